package model

import "sort"

// VisibilitySet holds the sequence numbers currently shown to the respondent
type VisibilitySet map[int]struct{}

// NewVisibilitySet builds a set from sequence numbers
func NewVisibilitySet(sns ...int) VisibilitySet {
	s := make(VisibilitySet, len(sns))
	for _, sn := range sns {
		s[sn] = struct{}{}
	}
	return s
}

func (s VisibilitySet) Has(sn int) bool {
	_, ok := s[sn]
	return ok
}

// Equal compares by size and members
func (s VisibilitySet) Equal(other VisibilitySet) bool {
	if len(s) != len(other) {
		return false
	}
	for sn := range s {
		if !other.Has(sn) {
			return false
		}
	}
	return true
}

// Minus returns the members of s missing from other, sorted
func (s VisibilitySet) Minus(other VisibilitySet) []int {
	var out []int
	for sn := range s {
		if !other.Has(sn) {
			out = append(out, sn)
		}
	}
	sort.Ints(out)
	return out
}

// Sorted lists the members in ascending order
func (s VisibilitySet) Sorted() []int {
	out := make([]int, 0, len(s))
	for sn := range s {
		out = append(out, sn)
	}
	sort.Ints(out)
	return out
}
