package pager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveyflow/internal/model"
)

func fixture() ([]model.Category, []model.Question) {
	cats := []model.Category{
		{ID: 3, Rank: 3, Name: "Closing"},
		{ID: 1, Rank: 1, Name: "About you"},
		{ID: 2, Rank: 2, Name: "Household"},
	}
	qs := []model.Question{
		{SequenceNum: 1, Category: 1},
		{SequenceNum: 2, Category: 1},
		{SequenceNum: 3, Category: 1},
		{SequenceNum: 4, Category: 2},
		{SequenceNum: 5, Category: 3},
	}
	return cats, qs
}

func sns(p Page) []int {
	out := make([]int, 0, len(p.Questions))
	for _, q := range p.Questions {
		out = append(out, q.SequenceNum)
	}
	return out
}

func TestPartition_SortsAndFilters(t *testing.T) {
	cats, qs := fixture()
	pages := Partition(cats, qs, model.NewVisibilitySet(1, 3, 4, 5))

	require.Len(t, pages, 3)
	assert.Equal(t, "About you", pages[0].Category.Name)
	assert.Equal(t, []int{1, 3}, sns(pages[0]))
	assert.Equal(t, "Household", pages[1].Category.Name)
	assert.Equal(t, "Closing", pages[2].Category.Name)
}

func TestPartition_DropsEmptyCategories(t *testing.T) {
	cats, qs := fixture()
	pages := Partition(cats, qs, model.NewVisibilitySet(4, 5))

	require.Len(t, pages, 2)
	assert.Equal(t, 2, pages[0].Category.ID)

	c := NewCursor(pages, 0)
	assert.InDelta(t, 0.5, c.Progress(), 1e-9)
	assert.True(t, c.IsFirst())
	assert.False(t, c.IsLast())
}

func TestCursor_Navigation(t *testing.T) {
	cats, qs := fixture()
	c := NewCursor(Partition(cats, qs, model.NewVisibilitySet(1, 2, 3, 4, 5)), 0)

	assert.False(t, c.Previous())
	assert.Equal(t, 0, c.Index())
	assert.InDelta(t, 1.0/3.0, c.Progress(), 1e-9)

	assert.True(t, c.Next())
	assert.True(t, c.Next())
	assert.True(t, c.IsLast())
	assert.False(t, c.Next())
	assert.Equal(t, 2, c.Index())
	assert.InDelta(t, 1.0, c.Progress(), 1e-9)

	assert.True(t, c.Previous())
	assert.Equal(t, 1, c.Index())
}

func TestCursor_ClampsOutOfRangeStart(t *testing.T) {
	cats, qs := fixture()
	pages := Partition(cats, qs, model.NewVisibilitySet(1, 4))
	assert.Equal(t, 1, NewCursor(pages, 7).Index())
	assert.Equal(t, 0, NewCursor(pages, -3).Index())
}

func TestCursor_Empty(t *testing.T) {
	c := NewCursor(nil, 3)
	_, ok := c.Current()
	assert.False(t, ok)
	assert.Equal(t, 0, c.Index())
	assert.Zero(t, c.Progress())
	assert.True(t, c.IsFirst())
	assert.True(t, c.IsLast())
	assert.False(t, c.Next())
}

func TestCursor_Repartition(t *testing.T) {
	cats, qs := fixture()

	t.Run("follows surviving category", func(t *testing.T) {
		c := NewCursor(Partition(cats, qs, model.NewVisibilitySet(1, 4, 5)), 1)
		c.Repartition(Partition(cats, qs, model.NewVisibilitySet(4, 5)))
		page, ok := c.Current()
		require.True(t, ok)
		assert.Equal(t, 2, page.Category.ID)
		assert.Equal(t, 0, c.Index())
	})

	t.Run("clamps when current page empties", func(t *testing.T) {
		c := NewCursor(Partition(cats, qs, model.NewVisibilitySet(1, 4, 5)), 2)
		c.Repartition(Partition(cats, qs, model.NewVisibilitySet(1, 4)))
		assert.Equal(t, 1, c.Index())
		assert.True(t, c.IsLast())
	})
}

func TestCursor_JumpTarget(t *testing.T) {
	cats, qs := fixture()
	c := NewCursor(Partition(cats, qs, model.NewVisibilitySet(1, 2, 3, 4, 5)), 0)

	idx, ok := c.JumpTarget([]int{5, 4})
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	_, ok = c.JumpTarget([]int{2, 42})
	assert.False(t, ok)
}

func TestCursor_CategoryLookup(t *testing.T) {
	cats, qs := fixture()
	c := NewCursor(Partition(cats, qs, model.NewVisibilitySet(1, 4, 5)), 0)

	assert.Equal(t, 0, c.IndexOf(1))
	assert.Equal(t, 2, c.IndexOf(3))
	assert.Equal(t, -1, c.IndexOf(9))

	assert.Equal(t, []int{2}, c.CategoriesBetween(0, 2))
	assert.Empty(t, c.CategoriesBetween(0, 1))
	assert.Equal(t, []int{2, 3}, c.CategoriesBetween(0, 10))
}
