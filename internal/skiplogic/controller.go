package skiplogic

import (
	"errors"
	"fmt"

	"surveyflow/internal/model"
)

var (
	ErrUnknownQuestion = errors.New("unknown question")
	ErrQuestionHidden  = errors.New("question is hidden")
)

// Store is the writable answer snapshot the controller works against
type Store interface {
	Snapshot() model.Answers
	Set(key string, value any) error
}

// MapStore is an in-memory Store
type MapStore struct {
	answers model.Answers
}

func NewMapStore(answers model.Answers) *MapStore {
	if answers == nil {
		answers = model.Answers{}
	}
	return &MapStore{answers: answers}
}

func (s *MapStore) Snapshot() model.Answers {
	return s.answers.Clone()
}

func (s *MapStore) Set(key string, value any) error {
	s.answers[key] = value
	return nil
}

// Change describes the effect of one edit or recompute
type Change struct {
	SequenceNum int                 `json:"sequenceNum,omitempty"`
	Visible     model.VisibilitySet `json:"-"`
	Hidden      []int               `json:"hidden,omitempty"`  // Left the visible set
	Shown       []int               `json:"shown,omitempty"`   // Joined the visible set
	Cleared     []string            `json:"cleared,omitempty"` // Snapshot keys wiped because their question is hidden
	Changed     bool                `json:"changed"`
	FieldError  *FieldError         `json:"fieldError,omitempty"`
	CleanupErr  error               `json:"-"`
}

// Observer is notified when the visible set changes
type Observer func(Change)

// Controller owns one session's visibility state. It is not safe for
// concurrent use; callers process one edit at a time.
type Controller struct {
	survey    *model.Survey
	questions map[int]*model.Question
	index     RuleIndex
	store     Store
	held      model.VisibilitySet
	observers []Observer
	validate  bool
}

// ControllerOption configures a Controller
type ControllerOption func(*Controller)

// WithVisible seeds the previously held visible set, e.g. from a saved session
func WithVisible(sns []int) ControllerOption {
	return func(c *Controller) {
		c.held = model.NewVisibilitySet(sns...)
	}
}

// WithObserver registers a visibility change observer
func WithObserver(o Observer) ControllerOption {
	return func(c *Controller) {
		c.observers = append(c.observers, o)
	}
}

// WithFieldValidation validates required questions as they are edited
func WithFieldValidation() ControllerOption {
	return func(c *Controller) {
		c.validate = true
	}
}

// NewController builds a controller over a normalised survey definition.
// Without WithVisible the held set is resolved from the store as-is.
func NewController(survey *model.Survey, store Store, opts ...ControllerOption) *Controller {
	c := &Controller{
		survey:    survey,
		questions: make(map[int]*model.Question, len(survey.Questions)),
		index:     IndexRules(survey.Rules),
		store:     store,
	}
	for i := range survey.Questions {
		q := &survey.Questions[i]
		c.questions[q.SequenceNum] = q
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.held == nil {
		c.held = ResolveVisibility(survey.Questions, c.index, store.Snapshot())
	}
	return c
}

// Visible returns a copy of the held visible set
func (c *Controller) Visible() model.VisibilitySet {
	return model.NewVisibilitySet(c.held.Sorted()...)
}

// Answers returns a copy of the current snapshot
func (c *Controller) Answers() model.Answers {
	return c.store.Snapshot()
}

// Index exposes the rule index for callers that paginate or validate
func (c *Controller) Index() RuleIndex {
	return c.index
}

// OnAnswerChange applies one respondent edit. Visibility is resolved from a
// predictive snapshot that already contains the edit, then answers of
// questions that became hidden are wiped.
func (c *Controller) OnAnswerChange(sn int, value any) (Change, error) {
	q, ok := c.questions[sn]
	if !ok {
		return Change{}, fmt.Errorf("question %d: %w", sn, ErrUnknownQuestion)
	}
	if !c.held.Has(sn) {
		return Change{}, fmt.Errorf("question %d: %w", sn, ErrQuestionHidden)
	}

	predictive := c.store.Snapshot()
	predictive[model.Key(sn)] = value
	if err := c.store.Set(model.Key(sn), value); err != nil {
		return Change{}, fmt.Errorf("failed to store answer for question %d: %w", sn, err)
	}

	change := c.apply(predictive)
	change.SequenceNum = sn

	if c.validate && change.Visible.Has(sn) && EffectiveRequired(q, c.index, predictive) {
		change.FieldError = ValidateAnswer(q, true, predictive)
	}
	return change, nil
}

// SetOther stores the free text of an is-other selection. Rules never read
// it, so visibility is unaffected.
func (c *Controller) SetOther(sn int, text string) error {
	if _, ok := c.questions[sn]; !ok {
		return fmt.Errorf("question %d: %w", sn, ErrUnknownQuestion)
	}
	if !c.held.Has(sn) {
		return fmt.Errorf("question %d: %w", sn, ErrQuestionHidden)
	}
	if err := c.store.Set(model.OtherKey(sn), text); err != nil {
		return fmt.Errorf("failed to store other text for question %d: %w", sn, err)
	}
	return nil
}

// Recompute re-resolves visibility from the store, e.g. after a bulk
// restore, and wipes answers of hidden questions.
func (c *Controller) Recompute() Change {
	return c.apply(c.store.Snapshot())
}

// Restore replaces the store's contents with answers and recomputes. Keys
// missing from answers are emptied.
func (c *Controller) Restore(answers model.Answers) (Change, error) {
	var errs []error
	for key := range c.store.Snapshot() {
		if _, ok := answers[key]; !ok {
			if err := c.store.Set(key, emptyValue(key)); err != nil {
				errs = append(errs, fmt.Errorf("failed to clear %s: %w", key, err))
			}
		}
	}
	for key, v := range answers {
		if err := c.store.Set(key, v); err != nil {
			errs = append(errs, fmt.Errorf("failed to restore %s: %w", key, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return Change{}, err
	}
	return c.Recompute(), nil
}

func (c *Controller) apply(snapshot model.Answers) Change {
	next, cleared := c.settle(snapshot)

	var cleanupErrs []error
	for _, key := range cleared {
		if err := c.store.Set(key, emptyValue(key)); err != nil {
			cleanupErrs = append(cleanupErrs, fmt.Errorf("failed to clear %s: %w", key, err))
		}
	}

	prev := c.held
	c.held = next

	change := Change{
		Visible:    next,
		Hidden:     prev.Minus(next),
		Shown:      next.Minus(prev),
		Cleared:    cleared,
		Changed:    !prev.Equal(next),
		CleanupErr: errors.Join(cleanupErrs...),
	}
	if change.Changed {
		for _, o := range c.observers {
			o(change)
		}
	}
	return change
}

// settle resolves visibility and wipes hidden answers in the snapshot until
// no hidden question carries an answer. Each pass clears at least one
// non-empty value, so the loop ends within len(questions)+1 passes.
func (c *Controller) settle(snapshot model.Answers) (model.VisibilitySet, []string) {
	var cleared []string
	for pass := 0; ; pass++ {
		next := ResolveVisibility(c.survey.Questions, c.index, snapshot)
		if pass > len(c.survey.Questions) {
			return next, cleared
		}

		stale := false
		for _, q := range c.survey.Questions {
			if next.Has(q.SequenceNum) {
				continue
			}
			for _, key := range []string{model.Key(q.SequenceNum), model.OtherKey(q.SequenceNum)} {
				if v, ok := snapshot[key]; ok && !model.IsEmpty(v) {
					snapshot[key] = emptyValue(key)
					cleared = append(cleared, key)
					stale = true
				}
			}
		}
		if !stale {
			return next, cleared
		}
	}
}

// emptyValue is what a cleared key holds: null for answers, "" for other text
func emptyValue(key string) any {
	if _, other, _ := model.ParseKey(key); other {
		return ""
	}
	return nil
}
