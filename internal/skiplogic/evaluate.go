// Package skiplogic evaluates declarative visibility rules against a
// respondent's answers and keeps the answer snapshot consistent with the
// resulting visibility.
package skiplogic

import "surveyflow/internal/model"

// Evaluate reports whether a rule's condition holds for the given answers.
// Unanswered triggers, unknown operators and non-numeric comparisons are
// all "not met".
func Evaluate(rule model.Rule, answers model.Answers) bool {
	actual, present := answers[model.Key(rule.TriggerQuestion)]
	if !present || actual == nil {
		return false
	}
	if s, ok := actual.(string); ok && s == "" {
		return false
	}

	got := model.ParseIDs(actual)
	want := model.ParseIDs(rule.TriggerValues)

	switch rule.Operator {
	case model.OpIn:
		return intersects(got, want)
	case model.OpContains:
		return subset(want, got)
	case model.OpEquals:
		return sameSet(got, want)
	case model.OpNotEquals:
		return !sameSet(got, want)
	case model.OpGreaterThan:
		a, b, ok := singles(got, want)
		return ok && a > b
	case model.OpLessThan:
		a, b, ok := singles(got, want)
		return ok && a < b
	}
	return false
}

func toSet(ids []float64) map[float64]struct{} {
	s := make(map[float64]struct{}, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func intersects(a, b []float64) bool {
	set := toSet(a)
	for _, id := range b {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}

// subset reports whether every member of sub appears in super
func subset(sub, super []float64) bool {
	set := toSet(super)
	for _, id := range sub {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}

func sameSet(a, b []float64) bool {
	sa, sb := toSet(a), toSet(b)
	if len(sa) != len(sb) {
		return false
	}
	for id := range sa {
		if _, ok := sb[id]; !ok {
			return false
		}
	}
	return true
}

func singles(a, b []float64) (float64, float64, bool) {
	if len(a) != 1 || len(b) != 1 {
		return 0, 0, false
	}
	return a[0], b[0], true
}
