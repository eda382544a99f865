// Package policy screens edit batches before they reach the engine:
// advisory style rules, blocking outline guards, and the gate that
// partitions a batch into allowed and blocked ops.
package policy

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Style rule names. The set is closed; configs naming anything else are
// rejected at load time.
const (
	RuleNoWeakAdverbs      = "NoWeakAdverbs"
	RuleNoPassiveVoice     = "NoPassiveVoice"
	RuleBanlist            = "Banlist"
	RuleMaxParagraphLength = "MaxParagraphLength"
)

// DefaultMaxParagraphLength is the paragraph size ceiling in UTF-16
// code units when a config leaves it unset.
const DefaultMaxParagraphLength = 500

var knownRules = map[string]struct{}{
	RuleNoWeakAdverbs:      {},
	RuleNoPassiveVoice:     {},
	RuleBanlist:            {},
	RuleMaxParagraphLength: {},
}

// Hit is one style finding. Spans count UTF-16 code units, the same
// convention replace ranges use.
type Hit struct {
	Rule        string `json:"rule"`
	BlockID     string `json:"blockId"`
	Message     string `json:"message"`
	MatchedSpan []int  `json:"matchedSpan,omitempty"`
}

// StyleRules selects which rules run and with what inputs.
type StyleRules struct {
	Rules              []string `json:"rules" yaml:"rules"`
	Banlist            []string `json:"banlist,omitempty" yaml:"banlist"`
	MaxParagraphLength int      `json:"maxParagraphLength,omitempty" yaml:"max_paragraph_length"`
}

// DefaultStyleRules enables every rule with an empty banlist.
func DefaultStyleRules() StyleRules {
	return StyleRules{
		Rules:              []string{RuleNoWeakAdverbs, RuleNoPassiveVoice, RuleBanlist, RuleMaxParagraphLength},
		MaxParagraphLength: DefaultMaxParagraphLength,
	}
}

// LoadStyleRules reads a YAML rule config and validates the rule names.
func LoadStyleRules(path string) (StyleRules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return StyleRules{}, fmt.Errorf("read style rules: %w", err)
	}
	var rules StyleRules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return StyleRules{}, fmt.Errorf("parse style rules: %w", err)
	}
	for _, name := range rules.Rules {
		if _, ok := knownRules[name]; !ok {
			return StyleRules{}, fmt.Errorf("unknown style rule %q", name)
		}
	}
	if rules.MaxParagraphLength <= 0 {
		rules.MaxParagraphLength = DefaultMaxParagraphLength
	}
	return rules, nil
}

var (
	adverbRe  = regexp.MustCompile(`(?i)\b\w+ly\b`)
	passiveRe = regexp.MustCompile(`(?i)\b(was|were|is|are|been|be|being)\s+\w+ed\b`)
)

// Words ending in -ly that are not adverbs worth flagging.
var adverbExceptions = map[string]struct{}{
	"only": {}, "family": {}, "early": {}, "likely": {}, "lonely": {},
	"lovely": {}, "holy": {}, "silly": {}, "daily": {},
}

// EvaluateStyleRules runs the selected rules over one block's text.
// Hits are advisory; the evaluator never blocks and never errors.
func EvaluateStyleRules(blockID, text string, rules StyleRules) []Hit {
	var hits []Hit
	for _, rule := range rules.Rules {
		switch rule {
		case RuleNoWeakAdverbs:
			hits = append(hits, weakAdverbHits(blockID, text)...)
		case RuleNoPassiveVoice:
			hits = append(hits, passiveVoiceHits(blockID, text)...)
		case RuleBanlist:
			hits = append(hits, banlistHits(blockID, text, rules.Banlist)...)
		case RuleMaxParagraphLength:
			hits = append(hits, paragraphLengthHits(blockID, text, rules.MaxParagraphLength)...)
		}
	}
	return hits
}

func weakAdverbHits(blockID, text string) []Hit {
	var hits []Hit
	for _, m := range adverbRe.FindAllStringIndex(text, -1) {
		word := text[m[0]:m[1]]
		if _, ok := adverbExceptions[strings.ToLower(word)]; ok {
			continue
		}
		hits = append(hits, Hit{
			Rule:        RuleNoWeakAdverbs,
			BlockID:     blockID,
			Message:     fmt.Sprintf("weak adverb %q", word),
			MatchedSpan: utf16Span(text, m[0], m[1]),
		})
	}
	return hits
}

func passiveVoiceHits(blockID, text string) []Hit {
	var hits []Hit
	for _, m := range passiveRe.FindAllStringIndex(text, -1) {
		hits = append(hits, Hit{
			Rule:        RuleNoPassiveVoice,
			BlockID:     blockID,
			Message:     fmt.Sprintf("possible passive voice %q", text[m[0]:m[1]]),
			MatchedSpan: utf16Span(text, m[0], m[1]),
		})
	}
	return hits
}

func banlistHits(blockID, text string, banlist []string) []Hit {
	var hits []Hit
	for _, word := range banlist {
		word = strings.TrimSpace(word)
		if word == "" {
			continue
		}
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
		if err != nil {
			continue
		}
		for _, m := range re.FindAllStringIndex(text, -1) {
			hits = append(hits, Hit{
				Rule:        RuleBanlist,
				BlockID:     blockID,
				Message:     fmt.Sprintf("banned word %q", text[m[0]:m[1]]),
				MatchedSpan: utf16Span(text, m[0], m[1]),
			})
		}
	}
	return hits
}

func paragraphLengthHits(blockID, text string, limit int) []Hit {
	if limit <= 0 {
		limit = DefaultMaxParagraphLength
	}
	length := utf16Len(text)
	if length <= limit {
		return nil
	}
	return []Hit{{
		Rule:        RuleMaxParagraphLength,
		BlockID:     blockID,
		Message:     fmt.Sprintf("paragraph runs %d UTF-16 units, limit is %d", length, limit),
		MatchedSpan: []int{0, length},
	}}
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n++
		if r > 0xFFFF {
			n++
		}
	}
	return n
}

// utf16Span converts a byte-offset match to UTF-16 code unit offsets.
func utf16Span(text string, byteStart, byteEnd int) []int {
	start := utf16Len(text[:byteStart])
	return []int{start, start + utf16Len(text[byteStart:byteEnd])}
}
