package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Answers is the respondent's answer snapshot keyed by stringified sequence number.
// Free text for an is-other selection lives under "<sn>_other".
type Answers map[string]any

// Key returns the snapshot key for a question
func Key(sn int) string {
	return strconv.Itoa(sn)
}

// OtherKey returns the snapshot key for a question's is-other text
func OtherKey(sn int) string {
	return strconv.Itoa(sn) + "_other"
}

// ParseKey splits a snapshot key into its sequence number and other flag
func ParseKey(key string) (sn int, other bool, ok bool) {
	base, found := strings.CutSuffix(key, "_other")
	n, err := strconv.Atoi(base)
	if err != nil || n <= 0 {
		return 0, false, false
	}
	return n, found, true
}

// Get returns a question's answer, or nil
func (a Answers) Get(sn int) any {
	if a == nil {
		return nil
	}
	return a[Key(sn)]
}

// Other returns the is-other text for a question
func (a Answers) Other(sn int) string {
	if a == nil {
		return ""
	}
	s, _ := a[OtherKey(sn)].(string)
	return s
}

// Clone returns a shallow copy; values are treated as immutable
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Answered reports whether a question holds a non-empty answer
func (a Answers) Answered(sn int) bool {
	return !IsEmpty(a.Get(sn))
}

// IsEmpty reports whether a value counts as unanswered: nil, "", or an empty list
func IsEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []any:
		return len(val) == 0
	case []string:
		return len(val) == 0
	case []int:
		return len(val) == 0
	case []float64:
		return len(val) == 0
	}
	return false
}

// ParseNumber converts an answer or rule value to a number. Booleans, blank
// strings and NaN are not numbers.
func ParseNumber(v any) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int32:
		f = float64(val)
	case int64:
		f = float64(val)
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseInt converts a value to an integer id; fractional numbers are rejected
func ParseInt(v any) (int, bool) {
	f, ok := ParseNumber(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// ParseIDs normalises a scalar or list into numbers, dropping unparseable entries
func ParseIDs(v any) []float64 {
	var items []any
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		items = val
	case TriggerValues:
		items = val
	case []string:
		for _, s := range val {
			items = append(items, s)
		}
	case []int:
		for _, n := range val {
			items = append(items, n)
		}
	case []float64:
		for _, n := range val {
			items = append(items, n)
		}
	default:
		items = []any{val}
	}

	ids := make([]float64, 0, len(items))
	for _, item := range items {
		if n, ok := ParseNumber(item); ok {
			ids = append(ids, n)
		}
	}
	return ids
}

// ParseOptionIDs is ParseIDs restricted to whole numbers, de-duplicated, in input order
func ParseOptionIDs(v any) []int {
	seen := make(map[int]bool)
	var out []int
	for _, f := range ParseIDs(v) {
		if f != math.Trunc(f) {
			continue
		}
		id := int(f)
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
