package rules

import (
	"errors"
	"fmt"
	"math"

	"github.com/hyprpal/vview/internal/state"
)

// ErrInvalidArgument is returned by comparison helpers given a nil view.
var ErrInvalidArgument = errors.New("invalid argument")

// Score sums the scores of every rule in v that matches res. A nil view or
// resource scores zero and the sum saturates instead of overflowing.
func Score(v *View, res *state.Resource) int {
	if v == nil || res == nil {
		return 0
	}
	total := 0
	for _, rule := range v.Rules {
		if rule.Matches(res) {
			total = addScore(total, rule.Score())
		}
	}
	return total
}

// addScore adds s to total, saturating at the int bounds so that a large
// positive rule never wraps a view into non-ownership.
func addScore(total, s int) int {
	switch {
	case s > 0 && total > math.MaxInt-s:
		return math.MaxInt
	case s < 0 && total < math.MinInt-s:
		return math.MinInt
	}
	return total + s
}

// Owns reports whether res belongs to v. Several views may own the same
// resource.
func Owns(v *View, res *state.Resource) bool {
	return Score(v, res) > 0
}

// Members filters pool down to the resources v owns, keeping pool order.
func Members(v *View, pool []state.Resource) []state.Resource {
	if v == nil {
		return nil
	}
	out := make([]state.Resource, 0)
	for i := range pool {
		if Owns(v, &pool[i]) {
			out = append(out, pool[i])
		}
	}
	return out
}

// ScoreLess orders views by static weight.
func ScoreLess(a, b *View) (bool, error) {
	if err := checkViews(a, b); err != nil {
		return false, err
	}
	return a.Weight < b.Weight, nil
}

// ScoreGreater orders views by static weight, highest first.
func ScoreGreater(a, b *View) (bool, error) {
	if err := checkViews(a, b); err != nil {
		return false, err
	}
	return a.Weight > b.Weight, nil
}

func checkViews(a, b *View) error {
	if a == nil {
		return fmt.Errorf("compare views: first operand is not a view: %w", ErrInvalidArgument)
	}
	if b == nil {
		return fmt.Errorf("compare views: second operand is not a view: %w", ErrInvalidArgument)
	}
	return nil
}
