// Package doc defines the block-based document model the edit engine
// operates on.
package doc

import (
	"fmt"
	"time"

	"inkwell/core/internal/hashing"
)

// Block kinds.
const (
	KindParagraph = "paragraph"
	KindHeading   = "heading"
)

// Block is one unit of document content. Hash always reflects the
// current normalized text.
type Block struct {
	ID           string `json:"id"`
	Kind         string `json:"kind"`
	HeadingLevel int    `json:"headingLevel,omitempty"`
	Text         string `json:"text"`
	Hash         string `json:"hash"`
}

// Document is an ordered block sequence plus the version token that
// optimistic edits are checked against.
type Document struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Blocks       []Block   `json:"blocks"`
	BaseVersion  string    `json:"baseVersion"`
	LastModified time.Time `json:"lastModified"`
}

// NewParagraph builds a paragraph block with its hash filled in.
func NewParagraph(id, text string) Block {
	return Block{ID: id, Kind: KindParagraph, Text: text, Hash: hashing.Hash(text)}
}

// NewHeading builds a heading block with its hash filled in.
func NewHeading(id string, level int, text string) Block {
	return Block{ID: id, Kind: KindHeading, HeadingLevel: level, Text: text, Hash: hashing.Hash(text)}
}

// ResetHash recomputes the hash after a text change.
func (b *Block) ResetHash() {
	b.Hash = hashing.Hash(b.Text)
}

// Version derives the whole-document version token. It changes exactly
// when block ids, order, or text change; other metadata does not feed
// into it.
func Version(blocks []Block) string {
	parts := make([]string, 0, len(blocks)*2)
	for _, b := range blocks {
		parts = append(parts, b.ID, b.Hash)
	}
	return hashing.Digest(parts...)
}

// CloneBlocks copies a block slice. Blocks hold no references, so the
// copy shares nothing with the original.
func CloneBlocks(blocks []Block) []Block {
	out := make([]Block, len(blocks))
	copy(out, blocks)
	return out
}

// IndexOf returns the position of the block with the given id, or -1.
func IndexOf(blocks []Block, id string) int {
	for i, b := range blocks {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// Validate checks structural integrity: unique ids, known kinds, sane
// heading levels, and hashes in sync with text.
func (d Document) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("document has no id")
	}
	seen := make(map[string]struct{}, len(d.Blocks))
	for i, b := range d.Blocks {
		if b.ID == "" {
			return fmt.Errorf("block %d has no id", i)
		}
		if _, dup := seen[b.ID]; dup {
			return fmt.Errorf("duplicate block id %s", b.ID)
		}
		seen[b.ID] = struct{}{}
		switch b.Kind {
		case KindParagraph:
		case KindHeading:
			if b.HeadingLevel < 1 || b.HeadingLevel > 6 {
				return fmt.Errorf("block %s: heading level %d out of range", b.ID, b.HeadingLevel)
			}
		default:
			return fmt.Errorf("block %s: unknown kind %q", b.ID, b.Kind)
		}
		if b.Hash != hashing.Hash(b.Text) {
			return fmt.Errorf("block %s: hash out of sync with text", b.ID)
		}
	}
	return nil
}
