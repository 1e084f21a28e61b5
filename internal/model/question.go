package model

import (
	"strconv"
	"strings"
)

// QuestionType defines how a question is answered
type QuestionType string

const (
	QuestionTypeText         QuestionType = "text"
	QuestionTypeTextArea     QuestionType = "text_area"
	QuestionTypeNumber       QuestionType = "number"
	QuestionTypeSingleChoice QuestionType = "single_choice"
	QuestionTypeMultiSelect  QuestionType = "multi_select"
	QuestionTypeDropDown     QuestionType = "drop_down"
	QuestionTypeRating       QuestionType = "rating"
)

// IsChoice reports whether answers reference option ids
func (t QuestionType) IsChoice() bool {
	switch t {
	case QuestionTypeSingleChoice, QuestionTypeMultiSelect, QuestionTypeDropDown:
		return true
	}
	return false
}

// Constraints holds per-question answer constraints
type Constraints struct {
	Required   bool     `json:"required" bson:"required" yaml:"required"`
	Verifiable bool     `json:"verifiable,omitempty" bson:"verifiable,omitempty" yaml:"verifiable"` // Checked by the verification service before leaving the page
	MinLength  *int     `json:"min_length,omitempty" bson:"min_length,omitempty" yaml:"min_length"`
	MaxLength  *int     `json:"max_length,omitempty" bson:"max_length,omitempty" yaml:"max_length"`
	MinValue   *float64 `json:"min_value,omitempty" bson:"min_value,omitempty" yaml:"min_value"`
	MaxValue   *float64 `json:"max_value,omitempty" bson:"max_value,omitempty" yaml:"max_value"`
}

// Question is a single survey question
type Question struct {
	SequenceNum int          `json:"sequence_num" bson:"sequence_num" yaml:"sequence_num" validate:"required,gt=0"`
	Type        QuestionType `json:"type" bson:"type" yaml:"type" validate:"required,oneof=text text_area number single_choice multi_select drop_down rating"`
	Prompt      string       `json:"question" bson:"question" yaml:"question" validate:"required"`
	Category    int          `json:"category" bson:"category" yaml:"category"`
	Placeholder string       `json:"placeholder,omitempty" bson:"placeholder,omitempty" yaml:"placeholder"`
	Scale       string       `json:"scale,omitempty" bson:"scale,omitempty" yaml:"scale"` // Rating range, e.g. "1-5"
	DependsOn   *int         `json:"depends_on,omitempty" bson:"depends_on,omitempty" yaml:"depends_on"`
	Options     []Option     `json:"options,omitempty" bson:"options,omitempty" yaml:"options"`
	Constraints Constraints  `json:"constraints" bson:"constraints" yaml:"constraints"`
}

// ScaleRange parses Scale into its bounds. Missing or malformed scales yield ok=false.
func (q *Question) ScaleRange() (min, max int, ok bool) {
	lo, hi, found := strings.Cut(strings.TrimSpace(q.Scale), "-")
	if !found {
		return 0, 0, false
	}
	min, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return 0, 0, false
	}
	max, err = strconv.Atoi(strings.TrimSpace(hi))
	if err != nil || max < min {
		return 0, 0, false
	}
	return min, max, true
}

// OtherOptionIDs returns the ids of all is-other options in the tree
func (q *Question) OtherOptionIDs() map[int]bool {
	ids := make(map[int]bool)
	for _, o := range FlattenOptions(q.Options) {
		if o.IsOther {
			ids[o.ID] = true
		}
	}
	return ids
}
