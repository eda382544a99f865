// Package engine applies typed edit batches to documents: simulate for
// a reviewable diff, apply for the committed result, one algorithm for
// both.
package engine

import (
	"inkwell/core/internal/doc"
)

// BatchType is the wire envelope discriminator.
const BatchType = "doc_edit_batch"

// Op kinds.
const (
	OpReplace      = "replace"
	OpReplaceBlock = "replace_block"
	OpInsertAfter  = "insert_after"
	OpDeleteBlock  = "delete_block"
	OpMoveBlock    = "move_block"
	OpAnnotate     = "annotate"
)

// Diff kinds.
const (
	DiffUnchanged = "unchanged"
	DiffModified  = "modified"
	DiffInserted  = "inserted"
	DiffDeleted   = "deleted"
	DiffMoved     = "moved"
)

// Batch failure codes.
const (
	ErrBaseVersionMismatch = "BASE_VERSION_MISMATCH"
	ErrExpectHashMismatch  = "EXPECT_HASH_MISMATCH"
)

// EditOp is one edit instruction. Kind selects the variant; fields the
// variant does not use stay empty. Replace ranges count UTF-16 code
// units over the block text.
type EditOp struct {
	Kind         string `json:"type"`
	BlockID      string `json:"blockId"`
	Range        []int  `json:"range,omitempty"`
	Text         string `json:"text,omitempty"`
	ExpectHash   string `json:"expectHash,omitempty"`
	NewBlockID   string `json:"newBlockId,omitempty"`
	AfterBlockID string `json:"afterBlockId,omitempty"`
	Note         string `json:"note,omitempty"`
}

// DocEditBatch is an ordered, atomic set of ops against one document
// snapshot. Either every op lands or none do.
type DocEditBatch struct {
	Type        string   `json:"type"`
	DocID       string   `json:"docId"`
	BaseVersion string   `json:"baseVersion"`
	Ops         []EditOp `json:"ops"`
	Simulate    bool     `json:"simulate,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

// DiffBlock is one entry of a simulation diff, one per op in op order.
type DiffBlock struct {
	BlockID    string `json:"blockId"`
	Kind       string `json:"kind"`
	OldText    string `json:"oldText,omitempty"`
	NewText    string `json:"newText,omitempty"`
	Annotation string `json:"annotation,omitempty"`
}

// Conflict describes the current state of a block an op could not be
// applied to. A missing block reports empty text and hash.
type Conflict struct {
	BlockID     string `json:"blockId"`
	CurrentText string `json:"currentText"`
	CurrentHash string `json:"currentHash"`
}

// SimulateResult is what a dry run produces.
type SimulateResult struct {
	NewVersion      string      `json:"newVersion"`
	ChangedBlockIDs []string    `json:"changedBlockIds"`
	Diff            []DiffBlock `json:"diff"`
}

// ApplyResult carries the new snapshot for the caller to persist.
type ApplyResult struct {
	NewVersion      string      `json:"newVersion"`
	ChangedBlockIDs []string    `json:"changedBlockIds"`
	Blocks          []doc.Block `json:"blocks"`
}

// BatchError is a recoverable batch rejection: either the whole batch
// is stale or a specific op hit a conflict.
type BatchError struct {
	Code      string     `json:"code"`
	Message   string     `json:"message"`
	Conflicts []Conflict `json:"conflicts,omitempty"`
}

func (e *BatchError) Error() string {
	return e.Code + ": " + e.Message
}
