package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"surveyflow/internal/metrics"
	"surveyflow/internal/model"
	"surveyflow/internal/pager"
	"surveyflow/internal/skiplogic"
	"surveyflow/internal/submission"
)

var (
	ErrSessionNotFound         = errors.New("session not found")
	ErrInvalidAnswer           = errors.New("invalid answer value")
	ErrStaleVerification       = errors.New("verification result is stale")
	ErrVerificationUnavailable = errors.New("verification unavailable")
	ErrValidationFailed        = errors.New("validation failed")
	ErrSubmissionFailed        = errors.New("submission failed")
	ErrSubmissionRejected      = errors.New("submission rejected")
	ErrSubmissionInFlight      = submission.ErrInFlight
	ErrAlreadySubmitted        = submission.ErrAlreadySubmitted
)

const (
	msgVerificationFailed = "We could not verify your answers. Please try again."
	msgSubmissionFailed   = "We could not submit your answers. Please try again."
)

// SnapshotStore persists session state between requests
type SnapshotStore interface {
	Save(ctx context.Context, state *model.SessionState) error
	Load(ctx context.Context, surveyID, sessionID string) (*model.SessionState, error)
	Delete(ctx context.Context, surveyID, sessionID string) error
}

// QuestionView is a question as shown on the current page
type QuestionView struct {
	model.Question
	Required         bool           `json:"required"`
	AvailableOptions []model.Option `json:"availableOptions,omitempty"`
}

// SessionView is everything a respondent client renders
type SessionView struct {
	SessionID        string               `json:"sessionId"`
	SurveyID         string               `json:"surveyId"`
	Title            string               `json:"title"`
	PageIndex        int                  `json:"pageIndex"`
	PageCount        int                  `json:"pageCount"`
	Category         *model.Category      `json:"category,omitempty"`
	Questions        []QuestionView       `json:"questions"`
	Progress         float64              `json:"progress"`
	AnsweredProgress float64              `json:"answeredProgress"`
	IsFirst          bool                 `json:"isFirst"`
	IsLast           bool                 `json:"isLast"`
	Visible          []int                `json:"visible"`
	Answers          model.Answers        `json:"answers"`
	FieldErrors      map[int]string       `json:"fieldErrors,omitempty"`
	VerifyMessage    string               `json:"verifyMessage,omitempty"`
	Submission       model.SubmissionView `json:"submission"`
	KeyChoices       []model.KeyChoice    `json:"keyChoices,omitempty"`
}

// AnswerResult pairs the visibility change of one edit with the refreshed view
type AnswerResult struct {
	Change  skiplogic.Change `json:"change"`
	Session *SessionView     `json:"session"`
}

// StartResult is a new session and the token that addresses it
type StartResult struct {
	Token   string       `json:"token"`
	Session *SessionView `json:"session"`
}

// SessionService drives respondents through a survey. Every mutation of a
// session runs under its lock; verification and submission calls do not.
type SessionService struct {
	surveys     *SurveyService
	store       SnapshotStore
	auth        *AuthService
	verifier    Verifier
	submitter   Submitter
	broadcaster Broadcaster
	locks       *sessionLocks
	logger      *zap.Logger
	metrics     *metrics.Collector
}

// NewSessionService creates a new session service. verifier may be nil.
func NewSessionService(
	surveys *SurveyService,
	store SnapshotStore,
	auth *AuthService,
	verifier Verifier,
	submitter Submitter,
	logger *zap.Logger,
	m *metrics.Collector,
) *SessionService {
	return &SessionService{
		surveys:     surveys,
		store:       store,
		auth:        auth,
		verifier:    verifier,
		submitter:   submitter,
		broadcaster: noopBroadcaster{},
		locks:       newSessionLocks(),
		logger:      logger,
		metrics:     m,
	}
}

// SetBroadcaster sets the broadcaster (called after hub is created)
func (s *SessionService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// activeSession is one loaded session with the engine objects rebuilt around it
type activeSession struct {
	survey *model.Survey
	state  *model.SessionState
	ctrl   *skiplogic.Controller
	cursor *pager.Cursor
	sub    *submission.State
	dirty  bool
}

// Start opens a session on a survey and issues its respondent token
func (s *SessionService) Start(ctx context.Context, surveyID string, info model.RespondentInfo) (*StartResult, error) {
	survey, err := s.surveys.Get(ctx, surveyID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	info.SessionID = uuid.New().String()
	state := &model.SessionState{
		ID:             info.SessionID,
		SurveyID:       surveyID,
		Answers:        model.Answers{},
		RespondentInfo: info,
		Submission:     model.SubmissionView{Status: string(submission.StatusIdle)},
		StartedAt:      now,
	}
	sess := s.open(survey, state)
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}

	token, err := s.auth.GenerateRespondentToken(surveyID, state.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	s.logger.Info("session started",
		zap.String("surveyId", surveyID),
		zap.String("sessionId", state.ID),
		zap.Int("pages", sess.cursor.PageCount()))
	return &StartResult{Token: token, Session: sess.view()}, nil
}

// Resume returns the saved session. Definition edits made since the last
// request are applied on load.
func (s *SessionService) Resume(ctx context.Context, claims *model.RespondentClaims) (*SessionView, error) {
	return s.locked(ctx, claims, func(*activeSession) error { return nil })
}

// Answer applies one edit. key is "<sn>" for an answer or "<sn>_other" for
// the free text of an is-other selection.
func (s *SessionService) Answer(ctx context.Context, claims *model.RespondentClaims, key string, value any) (*AnswerResult, error) {
	sn, other, ok := model.ParseKey(key)
	if !ok {
		return nil, fmt.Errorf("answer key %q: %w", key, skiplogic.ErrUnknownQuestion)
	}

	var change skiplogic.Change
	view, err := s.locked(ctx, claims, func(sess *activeSession) error {
		if err := sess.editable(); err != nil {
			return err
		}
		if sess.sub.Status == submission.StatusError {
			sess.sub.Reset()
		}

		if other {
			text, ok := value.(string)
			if !ok && value != nil {
				return fmt.Errorf("answer key %q expects text: %w", key, ErrInvalidAnswer)
			}
			if err := sess.ctrl.SetOther(sn, text); err != nil {
				return err
			}
			change = skiplogic.Change{SequenceNum: sn, Visible: sess.ctrl.Visible()}
		} else {
			var err error
			if change, err = s.applyEdit(sess, sn, value); err != nil {
				return err
			}
		}

		sess.state.VerifyGen++
		sess.dirty = true
		delete(sess.state.FieldErrors, sn)
		if change.FieldError != nil {
			if sess.state.FieldErrors == nil {
				sess.state.FieldErrors = make(map[int]string)
			}
			sess.state.FieldErrors[sn] = change.FieldError.Message
		}
		sess.absorb(change)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AnswerChanges.Inc()
	if change.Changed {
		s.metrics.VisibilityChanges.Inc()
		s.broadcaster.BroadcastToSession(claims.SessionID, EventVisibilityChanged, change)
	}
	s.metrics.AnswersCleared.Add(float64(len(change.Cleared)))
	if change.CleanupErr != nil {
		s.metrics.CleanupFailures.Inc()
		s.logger.Warn("hidden answer cleanup failed",
			zap.String("sessionId", claims.SessionID),
			zap.Error(change.CleanupErr))
	}

	return &AnswerResult{Change: change, Session: view}, nil
}

// applyEdit runs the edit through the controller, then clears dependent
// selections whose option is no longer available. The returned change covers
// the whole cascade.
func (s *SessionService) applyEdit(sess *activeSession, sn int, value any) (skiplogic.Change, error) {
	before := sess.ctrl.Visible()
	change, err := sess.ctrl.OnAnswerChange(sn, value)
	if err != nil {
		return change, err
	}

	pending := []int{sn}
	for len(pending) > 0 {
		parent := pending[0]
		pending = pending[1:]
		for i := range sess.survey.Questions {
			q := &sess.survey.Questions[i]
			if q.DependsOn == nil || *q.DependsOn != parent || !sess.ctrl.Visible().Has(q.SequenceNum) {
				continue
			}
			answers := sess.ctrl.Answers()
			if !answers.Answered(q.SequenceNum) || selectionAvailable(q, answers) {
				continue
			}
			dep, err := sess.ctrl.OnAnswerChange(q.SequenceNum, nil)
			if err != nil {
				return change, err
			}
			change.Cleared = append(change.Cleared, model.Key(q.SequenceNum))
			change.Cleared = append(change.Cleared, dep.Cleared...)
			change.CleanupErr = errors.Join(change.CleanupErr, dep.CleanupErr)
			if answers.Other(q.SequenceNum) != "" {
				if err := sess.ctrl.SetOther(q.SequenceNum, ""); err != nil {
					return change, err
				}
				change.Cleared = append(change.Cleared, model.OtherKey(q.SequenceNum))
			}
			delete(sess.state.FieldErrors, q.SequenceNum)
			pending = append(pending, q.SequenceNum)
		}
	}

	after := sess.ctrl.Visible()
	change.Visible = after
	change.Hidden = before.Minus(after)
	change.Shown = after.Minus(before)
	change.Changed = !before.Equal(after)
	return change, nil
}

func selectionAvailable(q *model.Question, answers model.Answers) bool {
	available := model.AvailableOptions(q, answers)
	for _, id := range model.ParseOptionIDs(answers.Get(q.SequenceNum)) {
		if _, ok := model.FindOption(available, id); !ok {
			return false
		}
	}
	return true
}

// Next validates the current page, verifies it when the page carries
// verifiable answers, then follows a JUMP_TO rule or moves one page on.
// On the last page it submits.
func (s *SessionService) Next(ctx context.Context, claims *model.RespondentClaims) (*SessionView, error) {
	var (
		fields map[string]any
		gen    uint64
		submit bool
		moved  bool
	)
	view, err := s.locked(ctx, claims, func(sess *activeSession) error {
		if err := sess.editable(); err != nil {
			return err
		}
		page, ok := sess.cursor.Current()
		if !ok {
			return nil
		}
		if err := sess.checkPage(page); err != nil {
			return err
		}
		if f := verifiableFields(page, sess.state.Answers); s.verifier != nil && len(f) > 0 {
			sess.state.VerifyGen++
			sess.dirty = true
			fields, gen = f, sess.state.VerifyGen
			return nil
		}
		submit = s.advance(sess, page)
		moved = !submit
		return nil
	})
	if err == nil && moved {
		s.pageChanged(claims.SessionID, view)
	}
	if err != nil || (fields == nil && !submit) {
		return view, err
	}

	if fields != nil {
		result, verr := s.verifier.Verify(ctx, claims.SurveyID, fields)
		view, err = s.locked(ctx, claims, func(sess *activeSession) error {
			if sess.state.VerifyGen != gen {
				s.metrics.Verifications.WithLabelValues("stale").Inc()
				return ErrStaleVerification
			}
			sess.dirty = true
			if verr != nil {
				s.metrics.Verifications.WithLabelValues("error").Inc()
				s.logger.Error("verification failed", zap.String("sessionId", claims.SessionID), zap.Error(verr))
				sess.state.VerifyMessage = msgVerificationFailed
				return fmt.Errorf("%w: %v", ErrVerificationUnavailable, verr)
			}
			if !result.Valid {
				s.metrics.Verifications.WithLabelValues("rejected").Inc()
				sess.state.FieldErrors = result.FieldErrors()
				sess.state.VerifyMessage = result.Message
				return ErrValidationFailed
			}
			s.metrics.Verifications.WithLabelValues("passed").Inc()
			sess.state.VerifyMessage = ""
			page, ok := sess.cursor.Current()
			if !ok {
				return nil
			}
			submit = s.advance(sess, page)
			moved = !submit
			return nil
		})
		if err == nil && moved {
			s.pageChanged(claims.SessionID, view)
		}
		if err != nil || !submit {
			return view, err
		}
	}

	return s.Submit(ctx, claims)
}

// advance moves past page and reports whether page was the last one. The
// move is pushed onto the history together with any pages a jump skipped.
func (s *SessionService) advance(sess *activeSession, page pager.Page) bool {
	step := model.PageStep{Category: page.Category.ID}
	targets := skiplogic.JumpTargets(sess.survey.Rules, page.Questions, sess.state.Answers)
	if i, ok := sess.cursor.JumpTarget(targets); ok {
		step.Skipped = sess.cursor.CategoriesBetween(sess.cursor.Index(), i)
		sess.cursor.JumpTo(i)
	} else if sess.cursor.IsLast() {
		return true
	} else {
		sess.cursor.Next()
	}
	sess.state.History = append(sess.state.History, step)
	sess.state.FieldErrors = nil
	sess.dirty = true
	return false
}

func (s *SessionService) pageChanged(sessionID string, view *SessionView) {
	s.broadcaster.BroadcastToSession(sessionID, EventPageChanged, map[string]int{"pageIndex": view.PageIndex})
}

// Previous returns to the page the last forward move started from and
// discards any pending verification
func (s *SessionService) Previous(ctx context.Context, claims *model.RespondentClaims) (*SessionView, error) {
	moved := false
	view, err := s.locked(ctx, claims, func(sess *activeSession) error {
		if err := sess.editable(); err != nil {
			return err
		}
		if !sess.back() {
			return nil
		}
		sess.state.VerifyGen++
		sess.state.FieldErrors = nil
		sess.state.VerifyMessage = ""
		sess.dirty = true
		moved = true
		return nil
	})
	if err == nil && moved {
		s.pageChanged(claims.SessionID, view)
	}
	return view, err
}

// Submit validates every visible question outside skipped pages, assembles
// the payload from their answers and hands it to the submitter. A rejected or failed
// submission keeps the answers and may be retried.
func (s *SessionService) Submit(ctx context.Context, claims *model.RespondentClaims) (*SessionView, error) {
	var payload model.SubmissionPayload
	view, err := s.locked(ctx, claims, func(sess *activeSession) error {
		if err := sess.editable(); err != nil {
			return err
		}
		visible := sess.answerable()
		var questions []model.Question
		for _, q := range sess.survey.Questions {
			if visible.Has(q.SequenceNum) {
				questions = append(questions, q)
			}
		}
		if errs := skiplogic.ValidateQuestions(questions, sess.ctrl.Index(), sess.state.Answers); len(errs) > 0 {
			sess.state.FieldErrors = errs.ByQuestion()
			if i := pager.PageOf(sess.cursor.Pages(), errs[0].QuestionSN); i >= 0 {
				sess.rewind(i)
				sess.cursor.JumpTo(i)
			}
			sess.dirty = true
			return ErrValidationFailed
		}
		if err := sess.sub.Begin(); err != nil {
			return err
		}
		sess.state.VerifyGen++
		sess.state.FieldErrors = nil
		sess.dirty = true
		payload = submission.Assemble(sess.survey.ID, sess.survey.Questions, sess.state.Answers, submission.Options{
			Visible:    visible,
			Respondent: sess.state.RespondentInfo,
		})
		return nil
	})
	if err != nil {
		return view, err
	}

	result, serr := s.submitter.Submit(ctx, &payload)
	view, err = s.locked(ctx, claims, func(sess *activeSession) error {
		sess.dirty = true
		switch {
		case serr != nil:
			s.metrics.Submissions.WithLabelValues("error").Inc()
			s.logger.Error("submission failed", zap.String("sessionId", claims.SessionID), zap.Error(serr))
			if err := sess.sub.Fail(nil, msgSubmissionFailed); err != nil {
				return err
			}
			return fmt.Errorf("%w: %v", ErrSubmissionFailed, serr)
		case !result.Accepted:
			s.metrics.Submissions.WithLabelValues("rejected").Inc()
			if err := sess.sub.Fail(result.FieldErrors, result.Message); err != nil {
				return err
			}
			sess.state.FieldErrors = result.FieldErrors
			return ErrSubmissionRejected
		}

		if err := sess.sub.Succeed(result.ResponseID, result.AwardAssigned); err != nil {
			return err
		}
		s.metrics.Submissions.WithLabelValues("accepted").Inc()
		s.logger.Info("survey submitted",
			zap.String("surveyId", claims.SurveyID),
			zap.String("sessionId", claims.SessionID),
			zap.String("responseId", result.ResponseID),
			zap.Int("responses", len(payload.Responses)))
		sess.state.Answers = model.Answers{}
		return nil
	})
	if err == nil {
		s.broadcaster.BroadcastToSession(claims.SessionID, EventSubmitted, view.Submission)
	}
	return view, err
}

// Reset discards the saved session
func (s *SessionService) Reset(ctx context.Context, claims *model.RespondentClaims) error {
	if err := s.discard(ctx, claims); err != nil {
		return err
	}
	s.broadcaster.BroadcastToSession(claims.SessionID, EventSessionReset, nil)
	s.broadcaster.DisconnectSession(claims.SessionID)
	s.logger.Info("session reset", zap.String("sessionId", claims.SessionID))
	return nil
}

func (s *SessionService) discard(ctx context.Context, claims *model.RespondentClaims) error {
	unlock := s.locks.lock(claims.SessionID)
	defer unlock()

	if err := s.store.Delete(ctx, claims.SurveyID, claims.SessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// locked loads the session under its lock, runs fn and saves the session if
// fn changed it. The view is returned alongside fn's error.
func (s *SessionService) locked(ctx context.Context, claims *model.RespondentClaims, fn func(*activeSession) error) (*SessionView, error) {
	unlock := s.locks.lock(claims.SessionID)
	defer unlock()

	sess, err := s.load(ctx, claims.SurveyID, claims.SessionID)
	if err != nil {
		return nil, err
	}
	fnErr := fn(sess)
	if sess.dirty {
		if err := s.save(ctx, sess); err != nil {
			return nil, err
		}
	}
	return sess.view(), fnErr
}

func (s *SessionService) load(ctx context.Context, surveyID, sessionID string) (*activeSession, error) {
	state, err := s.store.Load(ctx, surveyID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if state == nil {
		return nil, ErrSessionNotFound
	}
	survey, err := s.surveys.Get(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	return s.open(survey, state), nil
}

// open rebuilds the controller and cursor from saved state, then recomputes
// so the session follows the current definition.
func (s *SessionService) open(survey *model.Survey, state *model.SessionState) *activeSession {
	if state.Answers == nil {
		state.Answers = model.Answers{}
	}
	opts := []skiplogic.ControllerOption{skiplogic.WithFieldValidation()}
	if state.Visible != nil {
		opts = append(opts, skiplogic.WithVisible(state.Visible))
	}

	sess := &activeSession{
		survey: survey,
		state:  state,
		ctrl:   skiplogic.NewController(survey, skiplogic.NewMapStore(state.Answers), opts...),
		sub:    submission.FromView(state.Submission),
	}
	sess.cursor = pager.NewCursor(sess.partition(sess.ctrl.Visible()), state.PageIndex)

	change := sess.ctrl.Recompute()
	sess.absorb(change)
	if change.Changed || len(change.Cleared) > 0 || state.Visible == nil {
		sess.dirty = true
	}
	return sess
}

func (s *SessionService) save(ctx context.Context, sess *activeSession) error {
	sess.state.Visible = sess.ctrl.Visible().Sorted()
	sess.state.PageIndex = sess.cursor.Index()
	sess.state.Submission = sess.sub.View()
	if err := s.store.Save(ctx, sess.state); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (sess *activeSession) partition(visible model.VisibilitySet) []pager.Page {
	return pager.Partition(sess.survey.Categories, sess.survey.Questions, visible)
}

// absorb repartitions after a visibility change and drops errors of hidden questions
func (sess *activeSession) absorb(change skiplogic.Change) {
	if !change.Changed {
		return
	}
	sess.cursor.Repartition(sess.partition(change.Visible))
	for _, sn := range change.Hidden {
		delete(sess.state.FieldErrors, sn)
	}
}

// back pops the history to the page the last forward move started from.
// Steps whose page is gone or not behind the cursor are dropped; with no
// usable step the cursor moves one page back.
func (sess *activeSession) back() bool {
	for n := len(sess.state.History); n > 0; n = len(sess.state.History) {
		step := sess.state.History[n-1]
		sess.state.History = sess.state.History[:n-1]
		if i := sess.cursor.IndexOf(step.Category); i >= 0 && i < sess.cursor.Index() {
			return sess.cursor.JumpTo(i)
		}
	}
	return sess.cursor.Previous()
}

// rewind drops the forward moves made from page i onwards
func (sess *activeSession) rewind(i int) {
	h := sess.state.History
	for len(h) > 0 {
		if j := sess.cursor.IndexOf(h[len(h)-1].Category); j >= 0 && j < i {
			break
		}
		h = h[:len(h)-1]
	}
	sess.state.History = h
}

// answerable is the visible set without the questions of pages a jump skipped
func (sess *activeSession) answerable() model.VisibilitySet {
	skipped := make(map[int]bool)
	for _, step := range sess.state.History {
		for _, id := range step.Skipped {
			skipped[id] = true
		}
	}
	set := sess.ctrl.Visible()
	for _, q := range sess.survey.Questions {
		if skipped[q.Category] {
			delete(set, q.SequenceNum)
		}
	}
	return set
}

func (sess *activeSession) editable() error {
	switch sess.sub.Status {
	case submission.StatusLoading:
		return ErrSubmissionInFlight
	case submission.StatusSuccess:
		return ErrAlreadySubmitted
	}
	return nil
}

// checkPage validates the page's questions and records their errors
func (sess *activeSession) checkPage(page pager.Page) error {
	errs := skiplogic.ValidateQuestions(page.Questions, sess.ctrl.Index(), sess.state.Answers)
	if len(errs) > 0 {
		sess.state.FieldErrors = errs.ByQuestion()
		sess.dirty = true
		return ErrValidationFailed
	}
	if len(sess.state.FieldErrors) > 0 {
		sess.state.FieldErrors = nil
		sess.dirty = true
	}
	return nil
}

func verifiableFields(page pager.Page, answers model.Answers) map[string]any {
	fields := make(map[string]any)
	for _, q := range page.Questions {
		if q.Constraints.Verifiable && answers.Answered(q.SequenceNum) {
			fields[model.Key(q.SequenceNum)] = answers.Get(q.SequenceNum)
		}
	}
	return fields
}

func (sess *activeSession) view() *SessionView {
	answers := sess.state.Answers
	visible := sess.ctrl.Visible()
	answerable := sess.answerable()
	v := &SessionView{
		SessionID:        sess.state.ID,
		SurveyID:         sess.survey.ID,
		Title:            sess.survey.Metadata.Title,
		PageIndex:        sess.cursor.Index(),
		PageCount:        sess.cursor.PageCount(),
		Questions:        []QuestionView{},
		Progress:         sess.cursor.Progress(),
		AnsweredProgress: skiplogic.AnsweredProgress(sess.survey.Questions, answerable, answers),
		IsFirst:          sess.cursor.IsFirst(),
		IsLast:           sess.cursor.IsLast(),
		Visible:          visible.Sorted(),
		Answers:          answers,
		FieldErrors:      sess.state.FieldErrors,
		VerifyMessage:    sess.state.VerifyMessage,
		Submission:       sess.sub.View(),
		KeyChoices:       sess.survey.KeyChoices,
	}
	if page, ok := sess.cursor.Current(); ok {
		category := page.Category
		v.Category = &category
		for i := range page.Questions {
			q := &page.Questions[i]
			v.Questions = append(v.Questions, QuestionView{
				Question:         *q,
				Required:         skiplogic.EffectiveRequired(q, sess.ctrl.Index(), answers),
				AvailableOptions: model.AvailableOptions(q, answers),
			})
		}
	}
	return v
}
