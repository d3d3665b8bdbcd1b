package rules

import (
	"fmt"
	"math"
	"regexp"

	"github.com/hyprpal/vview/internal/config"
	"github.com/hyprpal/vview/internal/layout"
	"github.com/hyprpal/vview/internal/state"
)

// Kind identifies which resource attribute a rule inspects.
type Kind string

const (
	KindName     Kind = "name"
	KindPath     Kind = "path"
	KindCategory Kind = "category"
)

// Rule is an immutable scored predicate over a resource. A rule whose
// pattern or value was missing or malformed never matches.
type Rule struct {
	id       string
	kind     Kind
	value    string
	score    int
	pattern  *regexp.Regexp
	category string
}

// NewNameRule matches resources whose name matches the glob pattern.
func NewNameRule(id, pattern string, score any) Rule {
	return Rule{id: ruleID(id, KindName, pattern), kind: KindName, value: pattern, score: NormalizeScore(score), pattern: compileGlob(pattern)}
}

// NewPathRule matches resources whose location matches the glob pattern.
func NewPathRule(id, pattern string, score any) Rule {
	return Rule{id: ruleID(id, KindPath, pattern), kind: KindPath, value: pattern, score: NormalizeScore(score), pattern: compileGlob(pattern)}
}

// NewCategoryRule matches resources whose category equals category exactly.
func NewCategoryRule(id, category string, score any) Rule {
	return Rule{id: ruleID(id, KindCategory, category), kind: KindCategory, value: category, score: NormalizeScore(score), category: category}
}

func ruleID(id string, kind Kind, value string) string {
	if id != "" {
		return id
	}
	return fmt.Sprintf("%s:%s", kind, value)
}

func (r Rule) ID() string    { return r.id }
func (r Rule) Kind() Kind    { return r.kind }
func (r Rule) Value() string { return r.value }
func (r Rule) Score() int    { return r.score }

// Valid reports whether the rule has a usable pattern or value.
func (r Rule) Valid() bool {
	switch r.kind {
	case KindName, KindPath:
		return r.pattern != nil
	case KindCategory:
		return r.category != ""
	default:
		return false
	}
}

// Matches evaluates the rule against res. Nil resources never match.
func (r Rule) Matches(res *state.Resource) bool {
	if res == nil || !r.Valid() {
		return false
	}
	switch r.kind {
	case KindName:
		return r.pattern.MatchString(res.Name)
	case KindPath:
		return r.pattern.MatchString(res.Location)
	case KindCategory:
		return res.Category == r.category
	}
	return false
}

// NormalizeScore converts a raw score to an int. Anything that is not an
// integer value of an integer type, including floats and numeric strings,
// becomes zero.
func NormalizeScore(raw any) int {
	switch v := raw.(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		if v > math.MaxInt || v < math.MinInt {
			return 0
		}
		return int(v)
	case uint8:
		return int(v)
	case uint16:
		return int(v)
	case uint32:
		if uint64(v) > math.MaxInt {
			return 0
		}
		return int(v)
	case uint:
		if uint64(v) > math.MaxInt {
			return 0
		}
		return int(v)
	case uint64:
		if v > math.MaxInt {
			return 0
		}
		return int(v)
	default:
		return 0
	}
}

// Snapshot holds the externally owned state a view carries between
// activations. The core never interprets it.
type Snapshot struct {
	Variables map[string]any
	Layout    layout.Snapshot
}

// View aggregates rules under a name with a static tie-break weight.
type View struct {
	Name   string
	Rules  []Rule
	Weight int
	State  Snapshot
}

// NewView builds a detached view. The weight is normalized like rule scores.
func NewView(name string, weight any, rules ...Rule) *View {
	return &View{
		Name:   name,
		Rules:  append([]Rule(nil), rules...),
		Weight: NormalizeScore(weight),
	}
}

// BuildRule compiles one rule declaration. Declarations that set no kind
// produce a rule that never matches.
func BuildRule(rc config.RuleConfig) Rule {
	switch {
	case rc.Name != "":
		return NewNameRule(rc.ID, rc.Name, rc.Score)
	case rc.Path != "":
		return NewPathRule(rc.ID, rc.Path, rc.Score)
	default:
		return NewCategoryRule(rc.ID, rc.Category, rc.Score)
	}
}

// BuildViews compiles configuration into detached views, preserving
// declaration order.
func BuildViews(cfg *config.Config) []*View {
	if cfg == nil {
		return nil
	}
	views := make([]*View, 0, len(cfg.Views))
	for _, vc := range cfg.Views {
		compiled := make([]Rule, 0, len(vc.Rules))
		for _, rc := range vc.Rules {
			compiled = append(compiled, BuildRule(rc))
		}
		views = append(views, NewView(vc.Name, vc.Weight, compiled...))
	}
	return views
}
