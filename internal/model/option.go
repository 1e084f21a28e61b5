package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Option is a selectable choice. Sub-options form a tree owned by the parent option.
type Option struct {
	ID               int      `json:"id" bson:"id" yaml:"id"`
	Label            string   `json:"label" bson:"label" yaml:"label"`
	IsOther          bool     `json:"is_other,omitempty" bson:"is_other,omitempty" yaml:"is_other"`
	DependencyOption *int     `json:"dependency_option,omitempty" bson:"dependency_option,omitempty" yaml:"dependency_option"` // Parent question's option that unlocks this one
	SubOptions       []Option `json:"sub_options,omitempty" bson:"sub_options,omitempty" yaml:"sub_options"`
}

// rawOption accepts every option shape published definitions have used:
// {id,text,is_other}, {sequence,label|text,sub_options} and {value,label}.
type rawOption struct {
	ID               any             `json:"id"`
	Sequence         any             `json:"sequence"`
	Value            any             `json:"value"`
	Label            string          `json:"label"`
	Text             string          `json:"text"`
	IsOther          bool            `json:"is_other"`
	DependencyOption any             `json:"dependency_option"`
	SubOptions       []Option        `json:"sub_options"`
	Children         json.RawMessage `json:"children"`
}

// UnmarshalJSON decodes a bare string or any of the object shapes into one Option
func (o *Option) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		var label string
		if err := json.Unmarshal(data, &label); err != nil {
			return err
		}
		*o = Option{Label: label}
		return nil
	}

	var raw rawOption
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid option: %w", err)
	}

	opt := Option{IsOther: raw.IsOther, SubOptions: raw.SubOptions}
	for _, candidate := range []any{raw.ID, raw.Sequence, raw.Value} {
		if id, ok := ParseInt(candidate); ok {
			opt.ID = id
			break
		}
	}

	switch {
	case raw.Label != "":
		opt.Label = raw.Label
	case raw.Text != "":
		opt.Label = raw.Text
	case raw.Value != nil:
		opt.Label = fmt.Sprint(raw.Value)
	}

	if dep, ok := ParseInt(raw.DependencyOption); ok {
		opt.DependencyOption = &dep
	}
	if len(opt.SubOptions) == 0 && len(raw.Children) > 0 {
		if err := json.Unmarshal(raw.Children, &opt.SubOptions); err != nil {
			return fmt.Errorf("invalid option children: %w", err)
		}
	}

	*o = opt
	return nil
}

// normalizeOptions assigns positional ids (1-based) to options decoded without one
func normalizeOptions(opts []Option) []Option {
	for i := range opts {
		if opts[i].ID == 0 {
			opts[i].ID = i + 1
		}
		if opts[i].Label == "" {
			opts[i].Label = fmt.Sprintf("Option %d", opts[i].ID)
		}
		opts[i].SubOptions = normalizeOptions(opts[i].SubOptions)
	}
	return opts
}

// FlattenOptions lists every option in the tree, depth-first, parents before children
func FlattenOptions(opts []Option) []Option {
	var out []Option
	var walk func([]Option)
	walk = func(level []Option) {
		for _, o := range level {
			out = append(out, o)
			walk(o.SubOptions)
		}
	}
	walk(opts)
	return out
}

// FindOption looks an option up anywhere in the tree
func FindOption(opts []Option, id int) (*Option, bool) {
	for i := range opts {
		if opts[i].ID == id {
			return &opts[i], true
		}
		if found, ok := FindOption(opts[i].SubOptions, id); ok {
			return found, true
		}
	}
	return nil, false
}

// FindOptionPath returns the chain of options from a root down to id, or nil
func FindOptionPath(opts []Option, id int) []Option {
	for _, o := range opts {
		if o.ID == id {
			return []Option{o}
		}
		if sub := FindOptionPath(o.SubOptions, id); sub != nil {
			return append([]Option{o}, sub...)
		}
	}
	return nil
}

// Breadcrumb renders the path to an option as "Parent / Child"
func Breadcrumb(opts []Option, id int) string {
	path := FindOptionPath(opts, id)
	labels := make([]string, 0, len(path))
	for _, o := range path {
		labels = append(labels, o.Label)
	}
	return strings.Join(labels, " / ")
}

// SearchOptions matches labels case-insensitively across the whole tree
func SearchOptions(opts []Option, term string) []Option {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil
	}
	var matches []Option
	for _, o := range FlattenOptions(opts) {
		if strings.Contains(strings.ToLower(o.Label), term) {
			matches = append(matches, o)
		}
	}
	return matches
}

// AvailableOptions returns the options a respondent can pick given the parent
// question's answer. Options without a dependency are always available; when
// the parent is unanswered, dependent options are withheld.
func AvailableOptions(q *Question, answers Answers) []Option {
	if q.DependsOn == nil {
		return q.Options
	}
	parent, hasParent := ParseInt(answers.Get(*q.DependsOn))

	var out []Option
	for _, o := range q.Options {
		if o.DependencyOption == nil || (hasParent && *o.DependencyOption == parent) {
			out = append(out, o)
		}
	}
	return out
}
