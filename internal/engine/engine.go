package engine

import (
	"fmt"
	"unicode/utf16"

	"inkwell/core/internal/doc"
	"inkwell/core/internal/util"
)

// Simulate runs the batch against a copy of the document and reports
// what would change. The document is never mutated.
func Simulate(batch DocEditBatch, document doc.Document) (*SimulateResult, error) {
	out, err := run(batch, document)
	if err != nil {
		return nil, err
	}
	return &SimulateResult{NewVersion: out.version, ChangedBlockIDs: out.changed, Diff: out.diff}, nil
}

// Apply runs the batch and returns the new block snapshot on full
// success. A failing op discards all earlier effects; the input
// document is never mutated either way.
func Apply(batch DocEditBatch, document doc.Document) (*ApplyResult, error) {
	out, err := run(batch, document)
	if err != nil {
		return nil, err
	}
	return &ApplyResult{NewVersion: out.version, ChangedBlockIDs: out.changed, Blocks: out.blocks}, nil
}

type outcome struct {
	blocks  []doc.Block
	version string
	changed []string
	diff    []DiffBlock
}

func run(batch DocEditBatch, document doc.Document) (*outcome, error) {
	if batch.BaseVersion != document.BaseVersion {
		return nil, &BatchError{
			Code:    ErrBaseVersionMismatch,
			Message: fmt.Sprintf("batch targets version %s, document is at %s", batch.BaseVersion, document.BaseVersion),
		}
	}

	working := doc.CloneBlocks(document.Blocks)
	diff := make([]DiffBlock, 0, len(batch.Ops))
	var changed []string
	seen := map[string]bool{}
	touch := func(id string) {
		if !seen[id] {
			seen[id] = true
			changed = append(changed, id)
		}
	}

	for i, op := range batch.Ops {
		switch op.Kind {
		case OpReplace, OpReplaceBlock:
			idx := doc.IndexOf(working, op.BlockID)
			if idx < 0 {
				return nil, missingTarget(op.BlockID)
			}
			cur := working[idx]
			if op.ExpectHash != "" && op.ExpectHash != cur.Hash {
				return nil, staleTarget(cur)
			}
			oldText := cur.Text
			if op.Kind == OpReplace {
				if len(op.Range) != 2 {
					return nil, fmt.Errorf("op %d: replace requires a two-element range", i)
				}
				cur.Text = spliceUTF16(cur.Text, op.Range[0], op.Range[1], op.Text)
			} else {
				cur.Text = op.Text
			}
			cur.ResetHash()
			working[idx] = cur
			diff = append(diff, DiffBlock{BlockID: cur.ID, Kind: DiffModified, OldText: oldText, NewText: cur.Text})
			touch(cur.ID)

		case OpInsertAfter:
			anchor := doc.IndexOf(working, op.BlockID)
			if anchor < 0 {
				return nil, missingTarget(op.BlockID)
			}
			newID := op.NewBlockID
			if newID == "" {
				newID = util.NewID("blk")
			}
			if existing := doc.IndexOf(working, newID); existing >= 0 {
				return nil, staleTarget(working[existing])
			}
			working = insertAt(working, anchor+1, doc.NewParagraph(newID, op.Text))
			diff = append(diff, DiffBlock{BlockID: newID, Kind: DiffInserted, NewText: op.Text})
			touch(newID)

		case OpDeleteBlock:
			idx := doc.IndexOf(working, op.BlockID)
			if idx < 0 {
				return nil, missingTarget(op.BlockID)
			}
			removed := working[idx]
			working = append(working[:idx], working[idx+1:]...)
			diff = append(diff, DiffBlock{BlockID: removed.ID, Kind: DiffDeleted, OldText: removed.Text})
			touch(removed.ID)

		case OpMoveBlock:
			idx := doc.IndexOf(working, op.BlockID)
			if idx < 0 {
				return nil, missingTarget(op.BlockID)
			}
			moved := working[idx]
			working = append(working[:idx], working[idx+1:]...)
			// Anchor resolution happens after removal, so moving a
			// block after itself reports the anchor as missing.
			anchor := doc.IndexOf(working, op.AfterBlockID)
			if anchor < 0 {
				return nil, missingTarget(op.AfterBlockID)
			}
			working = insertAt(working, anchor+1, moved)
			diff = append(diff, DiffBlock{BlockID: moved.ID, Kind: DiffMoved})
			touch(moved.ID)

		case OpAnnotate:
			if doc.IndexOf(working, op.BlockID) < 0 {
				return nil, missingTarget(op.BlockID)
			}
			diff = append(diff, DiffBlock{BlockID: op.BlockID, Kind: DiffUnchanged, Annotation: op.Note})

		default:
			return nil, fmt.Errorf("op %d: unsupported op type %q", i, op.Kind)
		}
	}

	return &outcome{
		blocks:  working,
		version: doc.Version(working),
		changed: changed,
		diff:    diff,
	}, nil
}

func missingTarget(blockID string) *BatchError {
	return &BatchError{
		Code:      ErrExpectHashMismatch,
		Message:   fmt.Sprintf("block %s not found in document", blockID),
		Conflicts: []Conflict{{BlockID: blockID}},
	}
}

func staleTarget(b doc.Block) *BatchError {
	return &BatchError{
		Code:      ErrExpectHashMismatch,
		Message:   fmt.Sprintf("block %s does not match the expected content", b.ID),
		Conflicts: []Conflict{{BlockID: b.ID, CurrentText: b.Text, CurrentHash: b.Hash}},
	}
}

func insertAt(blocks []doc.Block, idx int, b doc.Block) []doc.Block {
	blocks = append(blocks, doc.Block{})
	copy(blocks[idx+1:], blocks[idx:])
	blocks[idx] = b
	return blocks
}

// spliceUTF16 replaces the [start, end) span of text with replacement,
// counting offsets in UTF-16 code units. Out-of-range indices clamp to
// the text and an inverted range collapses to an insertion at start.
func spliceUTF16(text string, start, end int, replacement string) string {
	units := utf16.Encode([]rune(text))
	if start < 0 {
		start = 0
	}
	if start > len(units) {
		start = len(units)
	}
	if end < start {
		end = start
	}
	if end > len(units) {
		end = len(units)
	}
	out := make([]uint16, 0, start+len(replacement)+len(units)-end)
	out = append(out, units[:start]...)
	out = append(out, utf16.Encode([]rune(replacement))...)
	out = append(out, units[end:]...)
	return string(utf16.Decode(out))
}
