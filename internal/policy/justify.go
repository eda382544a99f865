package policy

import (
	"fmt"
	"strings"

	"inkwell/core/internal/engine"
)

var opKindPhrases = map[string]string{
	engine.OpReplace:      "Revising a span of the block",
	engine.OpReplaceBlock: "Rewriting the block in full",
	engine.OpInsertAfter:  "Adding new content after the anchor",
	engine.OpDeleteBlock:  "Removing redundant or problematic content",
	engine.OpMoveBlock:    "Moving the block to a new position",
	engine.OpAnnotate:     "Attaching an editorial note",
}

// GenerateJustification renders a human-readable reason for one op.
// Pure formatting: the same inputs always produce the same string.
func GenerateJustification(opKind, intent string, ruleNames []string) string {
	phrase, ok := opKindPhrases[opKind]
	if !ok {
		phrase = "Applying an edit"
	}
	var b strings.Builder
	if intent = strings.TrimSpace(intent); intent != "" {
		b.WriteString(intent)
		b.WriteString(": ")
	}
	b.WriteString(phrase)
	if distinct := distinctStrings(ruleNames); len(distinct) > 0 {
		b.WriteString(" (addresses ")
		b.WriteString(strings.Join(distinct, ", "))
		b.WriteString(")")
	}
	b.WriteString(".")
	return b.String()
}

// GateAndJustify gates the batch and returns it narrowed to the allowed
// ops, with one justification per op appended to the notes. The input
// batch is left untouched.
func GateAndJustify(batch engine.DocEditBatch, ctx GateContext, intent string) (GateResult, engine.DocEditBatch) {
	result := GateBatch(batch, ctx)

	hitRulesByBlock := map[string][]string{}
	for _, w := range result.Warnings {
		for _, h := range w.Hits {
			hitRulesByBlock[h.BlockID] = append(hitRulesByBlock[h.BlockID], h.Rule)
		}
	}

	out := batch
	out.Ops = append([]engine.EditOp(nil), result.Allowed...)
	if len(out.Ops) > 0 {
		lines := make([]string, 0, len(out.Ops))
		for _, op := range out.Ops {
			reason := GenerateJustification(op.Kind, intent, hitRulesByBlock[op.BlockID])
			lines = append(lines, fmt.Sprintf("- [%s %s] %s", op.Kind, op.BlockID, reason))
		}
		block := "Edit justifications:\n" + strings.Join(lines, "\n")
		if out.Notes == "" {
			out.Notes = block
		} else {
			out.Notes = out.Notes + "\n\n" + block
		}
	}
	return result, out
}

func distinctStrings(values []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
