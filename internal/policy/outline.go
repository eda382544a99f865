package policy

import (
	"fmt"
	"regexp"

	"inkwell/core/internal/engine"
)

// Outline guard rule names.
const (
	RuleRequiredBeat = "RequiredBeat"
	RuleBeatMarker   = "BeatMarker"
)

var beatMarkerRe = regexp.MustCompile(`<!--\s*beat:\s*([^>]*?)\s*-->`)

// SceneMeta describes the scene a batch edits: the outline contract and
// the current blocks the gate checks ops against.
type SceneMeta struct {
	ID      string       `json:"id"`
	Outline *Outline     `json:"outline,omitempty"`
	Blocks  []BlockState `json:"blocks"`
}

// Outline lists the block ids a scene must keep.
type Outline struct {
	RequiredBeats []string `json:"requiredBeats"`
}

// BlockState is the gate's view of one current block.
type BlockState struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Hash string `json:"hash,omitempty"`
}

// Report is the outcome of guarding one op.
type Report struct {
	Blocking bool   `json:"blocking"`
	Reason   string `json:"reason,omitempty"`
	Hits     []Hit  `json:"hits,omitempty"`
}

// OutlineGuards checks one op against the scene's structural contract.
// Only deletions can block: removing a required beat or a block whose
// text carries a beat marker. Everything else passes.
func OutlineGuards(op engine.EditOp, meta SceneMeta) Report {
	if op.Kind != engine.OpDeleteBlock {
		return Report{}
	}
	if meta.Outline != nil {
		for _, beat := range meta.Outline.RequiredBeats {
			if beat == op.BlockID {
				return Report{
					Blocking: true,
					Reason:   fmt.Sprintf("block %s is a required outline beat", op.BlockID),
					Hits: []Hit{{
						Rule:    RuleRequiredBeat,
						BlockID: op.BlockID,
						Message: "deleting a required outline beat",
					}},
				}
			}
		}
	}
	if state, ok := findBlockState(meta, op.BlockID); ok {
		if m := beatMarkerRe.FindStringSubmatch(state.Text); m != nil {
			return Report{
				Blocking: true,
				Reason:   fmt.Sprintf("block %s carries beat marker %q", op.BlockID, m[1]),
				Hits: []Hit{{
					Rule:    RuleBeatMarker,
					BlockID: op.BlockID,
					Message: fmt.Sprintf("deleting a block marked with beat %q", m[1]),
				}},
			}
		}
	}
	return Report{}
}

func findBlockState(meta SceneMeta, blockID string) (BlockState, bool) {
	for _, b := range meta.Blocks {
		if b.ID == blockID {
			return b, true
		}
	}
	return BlockState{}, false
}
