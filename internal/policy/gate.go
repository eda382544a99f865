package policy

import (
	"inkwell/core/internal/engine"
)

// GateContext bundles everything the gate needs to judge a batch.
type GateContext struct {
	SceneMeta     SceneMeta  `json:"sceneMeta"`
	Style         StyleRules `json:"style"`
	AllowOverride bool       `json:"allowOverride,omitempty"`
}

// BlockedOp is an op the gate kept out of the batch.
type BlockedOp struct {
	Op      engine.EditOp `json:"op"`
	Reason  string        `json:"reason"`
	Details []Hit         `json:"details,omitempty"`
}

// WarnedOp is an allowed op whose target tripped style rules.
type WarnedOp struct {
	Op   engine.EditOp `json:"op"`
	Hits []Hit         `json:"hits"`
}

// GateSummary is derived from the partition; allowedOps plus blockedOps
// always equals totalOps.
type GateSummary struct {
	TotalOps      int `json:"totalOps"`
	AllowedOps    int `json:"allowedOps"`
	BlockedOps    int `json:"blockedOps"`
	WarningsCount int `json:"warningsCount"`
}

// GateResult partitions a batch into allowed and blocked ops.
type GateResult struct {
	Allowed  []engine.EditOp `json:"allowed"`
	Blocked  []BlockedOp     `json:"blocked"`
	Warnings []WarnedOp      `json:"warnings"`
	Summary  GateSummary     `json:"summary"`
}

// GateBatch screens every op: outline guards first, then style rules
// over the target block's current text. A blocking guard finding keeps
// the op out of the batch unless the context allows an override; style
// hits only ever warn. Ops whose target id does not resolve pass
// through silently, the engine decides their fate. The gate never
// errors.
func GateBatch(batch engine.DocEditBatch, ctx GateContext) GateResult {
	var result GateResult
	for _, op := range batch.Ops {
		report := OutlineGuards(op, ctx.SceneMeta)
		if report.Blocking && !ctx.AllowOverride {
			result.Blocked = append(result.Blocked, BlockedOp{Op: op, Reason: report.Reason, Details: report.Hits})
			continue
		}
		if state, ok := findBlockState(ctx.SceneMeta, op.BlockID); ok {
			if hits := EvaluateStyleRules(op.BlockID, state.Text, ctx.Style); len(hits) > 0 {
				result.Warnings = append(result.Warnings, WarnedOp{Op: op, Hits: hits})
			}
		}
		result.Allowed = append(result.Allowed, op)
	}
	result.Summary = GateSummary{
		TotalOps:      len(batch.Ops),
		AllowedOps:    len(result.Allowed),
		BlockedOps:    len(result.Blocked),
		WarningsCount: len(result.Warnings),
	}
	return result
}
