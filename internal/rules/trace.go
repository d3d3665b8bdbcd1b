package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hyprpal/vview/internal/state"
)

// RuleTrace captures the outcome of a single rule evaluation.
type RuleTrace struct {
	Rule    string         `json:"rule"`
	Kind    Kind           `json:"kind"`
	Score   int            `json:"score"`
	Matched bool           `json:"matched"`
	Details map[string]any `json:"details,omitempty"`
}

// ScoreTrace explains how a view scored a resource.
type ScoreTrace struct {
	View  string      `json:"view"`
	Score int         `json:"score"`
	Owns  bool        `json:"owns"`
	Rules []RuleTrace `json:"rules,omitempty"`
}

// TraceScore scores res against v while recording each rule's decision.
// The resulting Score always equals Score(v, res).
func TraceScore(v *View, res *state.Resource) ScoreTrace {
	if v == nil {
		return ScoreTrace{}
	}
	trace := ScoreTrace{View: v.Name}
	if res == nil {
		return trace
	}
	trace.Rules = make([]RuleTrace, 0, len(v.Rules))
	for _, rule := range v.Rules {
		matched := rule.Matches(res)
		details := map[string]any{"expected": rule.Value()}
		switch rule.Kind() {
		case KindName:
			details["actual"] = res.Name
		case KindPath:
			details["actual"] = res.Location
		case KindCategory:
			details["actual"] = res.Category
		}
		if !rule.Valid() {
			details["invalid"] = true
		}
		if matched {
			trace.Score = addScore(trace.Score, rule.Score())
		}
		trace.Rules = append(trace.Rules, RuleTrace{
			Rule:    rule.ID(),
			Kind:    rule.Kind(),
			Score:   rule.Score(),
			Matched: matched,
			Details: details,
		})
	}
	trace.Owns = trace.Score > 0
	return trace
}

// SummarizeScoreTrace renders a score trace as human-readable lines.
func SummarizeScoreTrace(trace ScoreTrace) []string {
	lines := []string{fmt.Sprintf("%s => %d (owns=%t)", trace.View, trace.Score, trace.Owns)}
	for _, rt := range trace.Rules {
		line := fmt.Sprintf("  %s %s => %t (score %d)", rt.Kind, rt.Rule, rt.Matched, rt.Score)
		if detail := formatTraceDetails(rt.Details); detail != "" {
			line = fmt.Sprintf("%s %s", line, detail)
		}
		lines = append(lines, line)
	}
	return lines
}

func formatTraceDetails(details map[string]any) string {
	if len(details) == 0 {
		return ""
	}
	keys := make([]string, 0, len(details))
	for key := range details {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", key, details[key]))
	}
	return "[" + strings.Join(parts, " ") + "]"
}
