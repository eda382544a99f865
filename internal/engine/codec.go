package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Wire limits. Oversized batches are rejected before any op runs.
const (
	maxBatchOps   = 128
	maxOpTextSize = 1 << 20
)

// DecodeBatch parses and validates a wire-format edit batch. Unknown
// fields, unknown op types, and missing required fields are rejected up
// front so the engine only ever sees well-formed input.
func DecodeBatch(raw []byte) (*DocEditBatch, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var batch DocEditBatch
	if err := dec.Decode(&batch); err != nil {
		return nil, fmt.Errorf("decode batch: %w", err)
	}
	if err := ValidateBatch(batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

// EncodeBatch renders a batch back to its wire form.
func EncodeBatch(batch DocEditBatch) ([]byte, error) {
	if batch.Type == "" {
		batch.Type = BatchType
	}
	data, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode batch: %w", err)
	}
	return data, nil
}

// ValidateBatch checks the envelope and every op for structural
// problems. Target existence and hash freshness stay the engine's
// business.
func ValidateBatch(batch DocEditBatch) error {
	if batch.Type != BatchType {
		return fmt.Errorf("batch type must be %q", BatchType)
	}
	if strings.TrimSpace(batch.DocID) == "" {
		return errors.New("batch docId is required")
	}
	if strings.TrimSpace(batch.BaseVersion) == "" {
		return errors.New("batch baseVersion is required")
	}
	if len(batch.Ops) == 0 {
		return errors.New("batch has no ops")
	}
	if len(batch.Ops) > maxBatchOps {
		return fmt.Errorf("batch has %d ops, limit is %d", len(batch.Ops), maxBatchOps)
	}
	for i, op := range batch.Ops {
		if err := validateOp(op); err != nil {
			return fmt.Errorf("op %d: %w", i, err)
		}
	}
	return nil
}

func validateOp(op EditOp) error {
	if op.Kind == "" {
		return errors.New("op type is required")
	}
	if op.BlockID == "" {
		return errors.New("blockId is required")
	}
	if len(op.Text) > maxOpTextSize {
		return fmt.Errorf("text exceeds %d bytes", maxOpTextSize)
	}
	switch op.Kind {
	case OpReplace:
		if len(op.Range) != 2 {
			return errors.New("replace requires a two-element range")
		}
	case OpReplaceBlock, OpInsertAfter, OpDeleteBlock:
	case OpMoveBlock:
		if op.AfterBlockID == "" {
			return errors.New("move_block requires afterBlockId")
		}
	case OpAnnotate:
		if op.Note == "" {
			return errors.New("annotate requires a note")
		}
	default:
		return fmt.Errorf("unsupported op type %q", op.Kind)
	}
	return nil
}
