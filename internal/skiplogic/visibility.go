package skiplogic

import "surveyflow/internal/model"

// RuleIndex maps a target sequence number to the rules that govern it
type RuleIndex map[int][]model.Rule

// IndexRules builds the target index once per definition
func IndexRules(rules []model.Rule) RuleIndex {
	idx := make(RuleIndex)
	for _, r := range rules {
		for _, target := range r.Targets {
			idx[target] = append(idx[target], r)
		}
	}
	return idx
}

// Visible decides one question. A question without rules is visible; any
// failing SHOW rule or any satisfied HIDE rule hides it.
func Visible(sn int, index RuleIndex, answers model.Answers) bool {
	for _, r := range index[sn] {
		switch r.Action {
		case model.ActionShow:
			if !Evaluate(r, answers) {
				return false
			}
		case model.ActionHide:
			if Evaluate(r, answers) {
				return false
			}
		}
	}
	return true
}

// ResolveVisibility computes the set of visible questions. It is pure: the
// result depends only on its arguments.
func ResolveVisibility(questions []model.Question, index RuleIndex, answers model.Answers) model.VisibilitySet {
	set := make(model.VisibilitySet, len(questions))
	for _, q := range questions {
		if Visible(q.SequenceNum, index, answers) {
			set[q.SequenceNum] = struct{}{}
		}
	}
	return set
}

// EffectiveRequired reports whether a question must be answered, either by
// its own constraint or because a satisfied REQUIRE rule targets it.
func EffectiveRequired(q *model.Question, index RuleIndex, answers model.Answers) bool {
	if q.Constraints.Required {
		return true
	}
	for _, r := range index[q.SequenceNum] {
		if r.Action == model.ActionRequire && Evaluate(r, answers) {
			return true
		}
	}
	return false
}

// JumpTargets returns the targets of satisfied JUMP_TO rules whose trigger is
// one of the given questions, in rule order.
func JumpTargets(rules []model.Rule, triggers []model.Question, answers model.Answers) []int {
	onPage := make(map[int]bool, len(triggers))
	for _, q := range triggers {
		onPage[q.SequenceNum] = true
	}
	var targets []int
	for _, r := range rules {
		if r.Action != model.ActionJumpTo || !onPage[r.TriggerQuestion] {
			continue
		}
		if Evaluate(r, answers) {
			targets = append(targets, r.Targets...)
		}
	}
	return targets
}
