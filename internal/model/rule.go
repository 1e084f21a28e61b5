package model

import (
	"bytes"
	"encoding/json"
)

// Operator compares a trigger answer with the rule's expected values
type Operator string

const (
	OpEquals      Operator = "EQUALS"
	OpNotEquals   Operator = "NOT_EQUALS"
	OpIn          Operator = "IN"
	OpContains    Operator = "CONTAINS"
	OpGreaterThan Operator = "GREATER_THAN"
	OpLessThan    Operator = "LESS_THAN"
)

// Action is applied to a rule's targets when its condition holds
type Action string

const (
	ActionShow    Action = "SHOW"
	ActionHide    Action = "HIDE"
	ActionJumpTo  Action = "JUMP_TO"
	ActionEnable  Action = "ENABLE"
	ActionRequire Action = "REQUIRE"
)

// TriggerValues holds one or more expected values. It decodes from a scalar or an array.
type TriggerValues []any

func (v *TriggerValues) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var list []any
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*v = list
		return nil
	}
	var single any
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	if single == nil {
		*v = nil
		return nil
	}
	*v = TriggerValues{single}
	return nil
}

// Rule is a declarative skip-logic rule
type Rule struct {
	TriggerQuestion int           `json:"trigger_question_sn" bson:"trigger_question_sn" yaml:"trigger_question_sn" validate:"required"`
	TriggerValues   TriggerValues `json:"trigger_options_sn" bson:"trigger_options_sn" yaml:"trigger_options_sn"`
	Operator        Operator      `json:"operator" bson:"operator" yaml:"operator" validate:"required,oneof=EQUALS NOT_EQUALS IN CONTAINS GREATER_THAN LESS_THAN"`
	Action          Action        `json:"action" bson:"action" yaml:"action" validate:"required,oneof=SHOW HIDE JUMP_TO ENABLE REQUIRE"`
	Targets         []int         `json:"target_questions_sn" bson:"target_questions_sn" yaml:"target_questions_sn" validate:"required,min=1"`
}
