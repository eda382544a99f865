package policy

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestWeakAdverbsFlagged(t *testing.T) {
	rules := StyleRules{Rules: []string{RuleNoWeakAdverbs}}
	hits := EvaluateStyleRules("b1", "He ran quickly and quietly.", rules)
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d: %+v", len(hits), hits)
	}
	if !reflect.DeepEqual(hits[0].MatchedSpan, []int{7, 14}) {
		t.Fatalf("first span = %v, want [7 14]", hits[0].MatchedSpan)
	}
	if !reflect.DeepEqual(hits[1].MatchedSpan, []int{19, 26}) {
		t.Fatalf("second span = %v, want [19 26]", hits[1].MatchedSpan)
	}
}

func TestWeakAdverbExceptions(t *testing.T) {
	rules := StyleRules{Rules: []string{RuleNoWeakAdverbs}}
	hits := EvaluateStyleRules("b1", "Only the family came early, likely lonely.", rules)
	if len(hits) != 0 {
		t.Fatalf("exception words flagged: %+v", hits)
	}
}

func TestPassiveVoiceFlagged(t *testing.T) {
	rules := StyleRules{Rules: []string{RuleNoPassiveVoice}}
	hits := EvaluateStyleRules("b1", "The door was opened by the wind.", rules)
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d: %+v", len(hits), hits)
	}
	if hits[0].Rule != RuleNoPassiveVoice || !strings.Contains(hits[0].Message, "was opened") {
		t.Fatalf("hit = %+v", hits[0])
	}
}

func TestBanlistCaseInsensitiveWholeWord(t *testing.T) {
	rules := StyleRules{Rules: []string{RuleBanlist}, Banlist: []string{"suddenly", "very"}}
	hits := EvaluateStyleRules("b1", "Very suddenly, the veryword stayed.", rules)
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d: %+v", len(hits), hits)
	}
	for _, h := range hits {
		if h.Rule != RuleBanlist {
			t.Fatalf("wrong rule on hit: %+v", h)
		}
	}
}

func TestParagraphLengthThreshold(t *testing.T) {
	rules := StyleRules{Rules: []string{RuleMaxParagraphLength}, MaxParagraphLength: 500}

	atLimit := EvaluateStyleRules("b1", strings.Repeat("x", 500), rules)
	if len(atLimit) != 0 {
		t.Fatalf("text at the limit flagged: %+v", atLimit)
	}

	over := EvaluateStyleRules("b1", strings.Repeat("x", 600), rules)
	if len(over) != 1 {
		t.Fatalf("expected exactly 1 hit, got %d", len(over))
	}
	if !reflect.DeepEqual(over[0].MatchedSpan, []int{0, 600}) {
		t.Fatalf("span = %v, want [0 600]", over[0].MatchedSpan)
	}
}

func TestSpansCountUTF16Units(t *testing.T) {
	rules := StyleRules{Rules: []string{RuleNoWeakAdverbs}}
	hits := EvaluateStyleRules("b1", "\U0001F600 quickly", rules)
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	// The emoji occupies two UTF-16 units, so "quickly" starts at 3.
	if !reflect.DeepEqual(hits[0].MatchedSpan, []int{3, 10}) {
		t.Fatalf("span = %v, want [3 10]", hits[0].MatchedSpan)
	}
}

func TestDisabledRulesDoNotRun(t *testing.T) {
	rules := StyleRules{Rules: []string{RuleNoPassiveVoice}}
	hits := EvaluateStyleRules("b1", "He ran quickly.", rules)
	if len(hits) != 0 {
		t.Fatalf("disabled rule produced hits: %+v", hits)
	}
}

func TestLoadStyleRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "style.yaml")
	config := "rules:\n  - NoWeakAdverbs\n  - Banlist\nbanlist:\n  - utilize\nmax_paragraph_length: 280\n"
	if err := os.WriteFile(path, []byte(config), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	rules, err := LoadStyleRules(path)
	if err != nil {
		t.Fatalf("LoadStyleRules() error = %v", err)
	}
	if !reflect.DeepEqual(rules.Rules, []string{RuleNoWeakAdverbs, RuleBanlist}) {
		t.Fatalf("rules = %v", rules.Rules)
	}
	if rules.MaxParagraphLength != 280 {
		t.Fatalf("maxParagraphLength = %d, want 280", rules.MaxParagraphLength)
	}
}

func TestLoadStyleRulesRejectsUnknownRule(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "style.yaml")
	if err := os.WriteFile(path, []byte("rules:\n  - NoAdjectives\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := LoadStyleRules(path); err == nil || !strings.Contains(err.Error(), "NoAdjectives") {
		t.Fatalf("unknown rule accepted: %v", err)
	}
}

func TestLoadStyleRulesDefaultsThreshold(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "style.yaml")
	if err := os.WriteFile(path, []byte("rules:\n  - MaxParagraphLength\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	rules, err := LoadStyleRules(path)
	if err != nil {
		t.Fatalf("LoadStyleRules() error = %v", err)
	}
	if rules.MaxParagraphLength != DefaultMaxParagraphLength {
		t.Fatalf("threshold = %d, want default %d", rules.MaxParagraphLength, DefaultMaxParagraphLength)
	}
}
