package skiplogic

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveyflow/internal/model"
)

// chainSurvey: Q2 shows when Q1 = 2, Q3 shows when Q2 = 1, Q4 hides when Q1 = 3.
func chainSurvey() *model.Survey {
	s := &model.Survey{
		ID: "s1",
		Questions: []model.Question{
			{SequenceNum: 1, Type: model.QuestionTypeSingleChoice, Category: 1, Options: []model.Option{{ID: 1}, {ID: 2}, {ID: 3}}},
			{SequenceNum: 2, Type: model.QuestionTypeSingleChoice, Category: 1, Options: []model.Option{{ID: 1}, {ID: 2, IsOther: true}}},
			{SequenceNum: 3, Type: model.QuestionTypeText, Category: 2, Constraints: model.Constraints{Required: true}},
			{SequenceNum: 4, Type: model.QuestionTypeNumber, Category: 2},
		},
		Rules: []model.Rule{
			{TriggerQuestion: 1, TriggerValues: model.TriggerValues{2.0}, Operator: model.OpIn, Action: model.ActionShow, Targets: []int{2}},
			{TriggerQuestion: 2, TriggerValues: model.TriggerValues{1.0}, Operator: model.OpIn, Action: model.ActionShow, Targets: []int{3}},
			{TriggerQuestion: 1, TriggerValues: model.TriggerValues{3.0}, Operator: model.OpEquals, Action: model.ActionHide, Targets: []int{4}},
		},
	}
	return s
}

func TestController_ShowRuleScenario(t *testing.T) {
	store := NewMapStore(nil)
	c := NewController(chainSurvey(), store)
	assert.Equal(t, []int{1, 4}, c.Visible().Sorted())

	change, err := c.OnAnswerChange(1, "2")
	require.NoError(t, err)
	assert.True(t, change.Changed)
	assert.Equal(t, []int{2}, change.Shown)
	assert.True(t, c.Visible().Has(2))

	_, err = c.OnAnswerChange(2, "2")
	require.NoError(t, err)
	require.NoError(t, c.SetOther(2, "something else"))

	change, err = c.OnAnswerChange(1, "1")
	require.NoError(t, err)
	assert.Equal(t, []int{2}, change.Hidden)
	assert.False(t, c.Visible().Has(2))

	answers := c.Answers()
	assert.Nil(t, answers["2"])
	assert.Equal(t, "", answers["2_other"])
	assert.ElementsMatch(t, []string{"2", "2_other"}, change.Cleared)
}

func TestController_CascadingHide(t *testing.T) {
	c := NewController(chainSurvey(), NewMapStore(nil))

	_, err := c.OnAnswerChange(1, "2")
	require.NoError(t, err)
	_, err = c.OnAnswerChange(2, "1")
	require.NoError(t, err)
	_, err = c.OnAnswerChange(3, "details")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, c.Visible().Sorted())

	change, err := c.OnAnswerChange(1, "1")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, change.Hidden)

	answers := c.Answers()
	assert.True(t, model.IsEmpty(answers["2"]))
	assert.True(t, model.IsEmpty(answers["3"]))
}

func TestController_NotifiesOnlyOnChange(t *testing.T) {
	var notified []Change
	c := NewController(chainSurvey(), NewMapStore(nil), WithObserver(func(ch Change) {
		notified = append(notified, ch)
	}))

	_, err := c.OnAnswerChange(4, 10)
	require.NoError(t, err)
	assert.Empty(t, notified)

	_, err = c.OnAnswerChange(1, "2")
	require.NoError(t, err)
	require.Len(t, notified, 1)
	assert.Equal(t, []int{2}, notified[0].Shown)

	_, err = c.OnAnswerChange(1, "2")
	require.NoError(t, err)
	assert.Len(t, notified, 1)
}

func TestController_RejectsUnknownAndHidden(t *testing.T) {
	c := NewController(chainSurvey(), NewMapStore(nil))

	_, err := c.OnAnswerChange(42, "x")
	assert.ErrorIs(t, err, ErrUnknownQuestion)

	_, err = c.OnAnswerChange(2, "1")
	assert.ErrorIs(t, err, ErrQuestionHidden)

	assert.ErrorIs(t, c.SetOther(3, "x"), ErrQuestionHidden)
}

type flakyStore struct {
	*MapStore
	failKeys map[string]bool
}

func (s *flakyStore) Set(key string, value any) error {
	if s.failKeys[key] {
		return errors.New("write rejected")
	}
	return s.MapStore.Set(key, value)
}

func TestController_CleanupFailureKeepsVisibility(t *testing.T) {
	store := &flakyStore{MapStore: NewMapStore(nil), failKeys: map[string]bool{}}
	c := NewController(chainSurvey(), store)

	_, err := c.OnAnswerChange(1, "2")
	require.NoError(t, err)
	_, err = c.OnAnswerChange(2, "2")
	require.NoError(t, err)

	store.failKeys["2"] = true
	change, err := c.OnAnswerChange(1, "1")
	require.NoError(t, err)
	assert.Error(t, change.CleanupErr)
	assert.False(t, c.Visible().Has(2))
	assert.Equal(t, "2", c.Answers()["2"])

	store.failKeys = map[string]bool{}
	healed := c.Recompute()
	assert.NoError(t, healed.CleanupErr)
	assert.Nil(t, c.Answers()["2"])
}

func TestController_StoreWriteFailure(t *testing.T) {
	store := &flakyStore{MapStore: NewMapStore(nil), failKeys: map[string]bool{"1": true}}
	c := NewController(chainSurvey(), store)

	_, err := c.OnAnswerChange(1, "2")
	assert.Error(t, err)
	assert.False(t, c.Visible().Has(2))
}

func TestController_RecomputeSweepsRestoredSnapshot(t *testing.T) {
	restored := model.Answers{"1": "1", "2": "1", "3": "stale"}
	c := NewController(chainSurvey(), NewMapStore(restored), WithVisible([]int{1, 2, 3, 4}))

	change := c.Recompute()
	assert.Equal(t, []int{2, 3}, change.Hidden)
	answers := c.Answers()
	assert.Nil(t, answers["2"])
	assert.Nil(t, answers["3"])
	assert.Equal(t, "1", answers["1"])
}

func TestController_RestoreReplacesSnapshot(t *testing.T) {
	c := NewController(chainSurvey(), NewMapStore(model.Answers{"4": 7.0}))

	change, err := c.Restore(model.Answers{"1": "2", "2": "1", "3": "kept"})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, change.Shown)

	answers := c.Answers()
	assert.Nil(t, answers["4"])
	assert.Equal(t, "kept", answers["3"])

	change, err = c.Restore(model.Answers{"1": "3", "4": 1.0})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4}, change.Hidden)
	assert.Nil(t, c.Answers()["4"])
}

func TestController_ValidatesRequiredField(t *testing.T) {
	c := NewController(chainSurvey(), NewMapStore(nil), WithFieldValidation())
	_, err := c.OnAnswerChange(1, "2")
	require.NoError(t, err)
	_, err = c.OnAnswerChange(2, "1")
	require.NoError(t, err)

	change, err := c.OnAnswerChange(3, "")
	require.NoError(t, err)
	require.NotNil(t, change.FieldError)
	assert.Equal(t, MsgRequired, change.FieldError.Message)

	change, err = c.OnAnswerChange(3, "fine")
	require.NoError(t, err)
	assert.Nil(t, change.FieldError)
}

func TestController_CleanupInvariantHoldsForEditSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	values := []any{"1", "2", "3", "", nil, []any{1.0, 2.0}}

	for run := 0; run < 50; run++ {
		c := NewController(chainSurvey(), NewMapStore(nil))
		for step := 0; step < 30; step++ {
			visible := c.Visible().Sorted()
			sn := visible[rng.Intn(len(visible))]
			_, err := c.OnAnswerChange(sn, values[rng.Intn(len(values))])
			require.NoError(t, err)

			answers := c.Answers()
			set := c.Visible()
			for _, q := range chainSurvey().Questions {
				if set.Has(q.SequenceNum) {
					continue
				}
				assert.True(t, model.IsEmpty(answers.Get(q.SequenceNum)), "run %d step %d: ghost answer on %d", run, step, q.SequenceNum)
				assert.True(t, model.IsEmpty(answers[model.OtherKey(q.SequenceNum)]))
			}
		}
	}
}
