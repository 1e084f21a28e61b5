// Package pager splits a survey into category pages and tracks the
// respondent's position among the pages that currently have visible questions.
package pager

import (
	"sort"

	"surveyflow/internal/model"
)

// Page is one non-empty category with its visible questions
type Page struct {
	Category  model.Category   `json:"category"`
	Questions []model.Question `json:"questions"`
}

// Partition orders categories by rank and keeps only those with at least one
// visible question. Questions keep their definition order.
func Partition(categories []model.Category, questions []model.Question, visible model.VisibilitySet) []Page {
	ordered := make([]model.Category, len(categories))
	copy(ordered, categories)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Rank < ordered[j].Rank
	})

	pages := make([]Page, 0, len(ordered))
	for _, cat := range ordered {
		var qs []model.Question
		for _, q := range questions {
			if q.Category == cat.ID && visible.Has(q.SequenceNum) {
				qs = append(qs, q)
			}
		}
		if len(qs) > 0 {
			pages = append(pages, Page{Category: cat, Questions: qs})
		}
	}
	return pages
}

// PageOf returns the index of the page holding a question, or -1
func PageOf(pages []Page, sn int) int {
	for i, p := range pages {
		for _, q := range p.Questions {
			if q.SequenceNum == sn {
				return i
			}
		}
	}
	return -1
}

// Cursor is the pagination position over a partitioned survey
type Cursor struct {
	pages []Page
	index int
}

// NewCursor starts at index, clamped into range
func NewCursor(pages []Page, index int) *Cursor {
	c := &Cursor{pages: pages}
	c.index = c.clamp(index)
	return c
}

func (c *Cursor) clamp(i int) int {
	if i >= len(c.pages) {
		i = len(c.pages) - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

func (c *Cursor) Index() int { return c.index }

func (c *Cursor) PageCount() int { return len(c.pages) }

func (c *Cursor) Pages() []Page { return c.pages }

// Current returns the current page; ok is false when no page has questions
func (c *Cursor) Current() (Page, bool) {
	if len(c.pages) == 0 {
		return Page{}, false
	}
	return c.pages[c.index], true
}

// Next advances one page and reports whether the index moved
func (c *Cursor) Next() bool {
	return c.JumpTo(c.index + 1)
}

// Previous goes back one page and reports whether the index moved
func (c *Cursor) Previous() bool {
	return c.JumpTo(c.index - 1)
}

// JumpTo moves to a page index, clamped
func (c *Cursor) JumpTo(i int) bool {
	prev := c.index
	c.index = c.clamp(i)
	return c.index != prev
}

func (c *Cursor) IsFirst() bool { return c.index == 0 }

func (c *Cursor) IsLast() bool { return c.index >= len(c.pages)-1 }

// Progress is (index+1)/pages, or 0 without pages
func (c *Cursor) Progress() float64 {
	if len(c.pages) == 0 {
		return 0
	}
	return float64(c.index+1) / float64(len(c.pages))
}

// Repartition swaps in a freshly partitioned page list. The cursor stays on
// the current category when it survives; otherwise the old index is clamped.
func (c *Cursor) Repartition(pages []Page) {
	current, ok := c.Current()
	c.pages = pages
	if ok {
		for i, p := range pages {
			if p.Category.ID == current.Category.ID {
				c.index = i
				return
			}
		}
	}
	c.index = c.clamp(c.index)
}

// JumpTarget resolves satisfied JUMP_TO rules triggered on the current page to
// the first page after it that shows one of their targets.
func (c *Cursor) JumpTarget(targets []int) (int, bool) {
	best := -1
	for _, sn := range targets {
		i := PageOf(c.pages, sn)
		if i > c.index && (best == -1 || i < best) {
			best = i
		}
	}
	return best, best != -1
}

// IndexOf returns the page index of a category, or -1 when it has no page
func (c *Cursor) IndexOf(categoryID int) int {
	for i, p := range c.pages {
		if p.Category.ID == categoryID {
			return i
		}
	}
	return -1
}

// CategoriesBetween lists the categories of the pages strictly between two indexes
func (c *Cursor) CategoriesBetween(from, to int) []int {
	var out []int
	for i := from + 1; i < to && i < len(c.pages); i++ {
		if i >= 0 {
			out = append(out, c.pages[i].Category.ID)
		}
	}
	return out
}
