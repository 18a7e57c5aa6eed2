// Package runner drives one respondent through a survey: loading, the mobile intro, one-at-a-time
// or table answering, submission, and the timed return home.
package runner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/usfbank/surveyweb/internal/delay"
	"github.com/usfbank/surveyweb/internal/domain"
	"github.com/usfbank/surveyweb/internal/errors"
	"github.com/usfbank/surveyweb/internal/event"
)

const (
	// DesktopMinWidth is the widest viewport still rendered in the mobile flow.
	DesktopMinWidth = 768

	FadeDuration  = 300 * time.Millisecond
	RedirectAfter = 5 * time.Second
)

// User-facing messages.
const (
	MsgLoad       = "Error loading survey. Please try again."
	MsgSubmit     = "Error submitting survey. Please try again."
	MsgNoAnswers  = "Please answer at least one question"
	MsgNoQuestion = "No questions found for this survey. Please contact your administrator."
)

type State int

const (
	StateLoading State = iota
	StateError
	StateIntro
	StateInProgress
	StateSubmitted
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateError:
		return "error"
	case StateIntro:
		return "intro"
	case StateInProgress:
		return "in-progress"
	case StateSubmitted:
		return "submitted"
	}
	return "unknown"
}

type Mode int

const (
	ModeDesktop Mode = iota
	ModeMobile
)

// ModeFor picks the layout for a viewport width. An unknown width (0) renders the desktop table.
func ModeFor(width int) Mode {
	if width > 0 && width <= DesktopMinWidth {
		return ModeMobile
	}
	return ModeDesktop
}

type API interface {
	GetSurvey(ctx context.Context, surveyID string) (domain.Survey, error)
	ListQuestions(ctx context.Context, surveyID string) ([]domain.Question, error)
	SubmitResponses(ctx context.Context, s domain.Submission) error
}

type Publisher interface {
	Publish(ctx context.Context, e event.Event)
}

type Config struct {
	SurveyID  string
	Mode      Mode
	After     delay.AfterFunc
	Publisher Publisher
	Now       func() time.Time

	// OnDone is called once when the runner finishes: on return home or when the redirect fires.
	OnDone func()
}

// Runner holds the state of one survey run. It is safe for concurrent use.
type Runner struct {
	surveyID string
	pub      Publisher
	now      func() time.Time
	onDone   func()
	tasks    *delay.Group

	mu        sync.Mutex
	mode      Mode
	loaded    bool
	failed    bool
	submitted bool
	intro     bool
	survey    domain.Survey
	questions []domain.Question
	answers   domain.Answers
	current   int
	fading    bool
	errMsg    string
	redirect  string
	seen      time.Time
	done      bool
}

func New(c Config) *Runner {
	now := c.Now
	if now == nil {
		now = time.Now
	}

	return &Runner{
		surveyID: c.SurveyID,
		pub:      c.Publisher,
		now:      now,
		onDone:   c.OnDone,
		tasks:    delay.NewGroup(c.After),
		mode:     c.Mode,
		intro:    true,
		answers:  make(domain.Answers),
		seen:     now(),
	}
}

// Load fetches the survey and its questions. An open run fetches again on every call so question edits
// show up; answers to questions that no longer exist are dropped. A submitted run is not reloaded.
func (r *Runner) Load(ctx context.Context, api API) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.touch()
	if r.submitted {
		return nil
	}

	survey, err := api.GetSurvey(ctx, r.surveyID)
	var qs []domain.Question
	if err == nil {
		qs, err = api.ListQuestions(ctx, r.surveyID)
	}
	if err != nil {
		slog.ErrorContext(ctx, "runner: load survey failed", "survey_id", r.surveyID, "error", err)
		r.failed = true
		r.errMsg = MsgLoad
		return err
	}

	r.survey = survey
	r.questions = qs
	for id := range r.answers {
		if !r.hasQuestion(id) {
			delete(r.answers, id)
		}
	}
	r.current = r.clamp(r.current)

	r.loaded = true
	if r.failed {
		r.failed = false
		r.errMsg = ""
	}
	return nil
}

// SetMode switches between the mobile flow and the desktop table, keeping the answers.
func (r *Runner) SetMode(m Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mode = m
}

func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state()
}

func (r *Runner) state() State {
	switch {
	case r.failed:
		return StateError
	case !r.loaded:
		return StateLoading
	case r.submitted:
		return StateSubmitted
	case r.mode == ModeMobile && r.intro:
		return StateIntro
	}
	return StateInProgress
}

// Start leaves the mobile intro and shows the first question.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.touch()
	if r.state() != StateIntro {
		return errors.Invalid("survey is not at the intro")
	}
	if len(r.questions) == 0 {
		return errors.Invalid(MsgNoQuestion)
	}

	r.intro = false
	r.current = 0
	return nil
}

// Answer records value for a question, replacing any earlier answer.
func (r *Runner) Answer(questionID int64, value int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.touch()
	if r.state() != StateInProgress {
		return errors.Invalid("survey is not in progress")
	}
	if !domain.ValidAnswer(value) {
		return errors.Invalid("answer must be between %d and %d", domain.AnswerRarely, domain.AnswerFrequently)
	}
	if !r.hasQuestion(questionID) {
		return errors.New(errors.CodeNotFound, errors.WithMessagef("question %d is not part of this survey", questionID))
	}

	r.answers[questionID] = value
	r.errMsg = ""
	return nil
}

// Next fades to the following question. It reports false when the move was ignored, either
// because a transition is already running or because the current question is the last.
func (r *Runner) Next() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.touch()
	if !r.navigable() || r.current >= len(r.questions)-1 {
		return false
	}
	r.transitionTo(r.current + 1)
	return true
}

// Prev fades to the previous question, or returns to the intro from the first one.
func (r *Runner) Prev() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.touch()
	if !r.navigable() {
		return false
	}
	if r.current == 0 {
		r.intro = true
		return true
	}
	r.transitionTo(r.current - 1)
	return true
}

func (r *Runner) navigable() bool {
	return r.mode == ModeMobile && r.state() == StateInProgress && !r.fading
}

// transitionTo hides the question and shows question idx once the fade has finished.
func (r *Runner) transitionTo(idx int) {
	r.fading = true
	r.tasks.After(FadeDuration, func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		r.current = r.clamp(idx)
		r.fading = false
	})
}

// Submit sends the answered questions, scores them and schedules the return home.
func (r *Runner) Submit(ctx context.Context, api API, user string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.touch()
	if r.state() != StateInProgress {
		return errors.Invalid("survey is not in progress")
	}
	if len(r.answers) == 0 {
		r.errMsg = MsgNoAnswers
		return errors.Invalid(MsgNoAnswers)
	}

	sub := domain.Submission{SurveyID: r.surveyID, Responses: r.answers.Payload()}
	if err := api.SubmitResponses(ctx, sub); err != nil {
		slog.ErrorContext(ctx, "runner: submit responses failed", "survey_id", r.surveyID, "error", err)
		r.errMsg = MsgSubmit
		return err
	}

	r.submitted = true
	r.errMsg = ""

	score := domain.Score{
		SurveyID:   r.surveyID,
		Username:   user,
		TotalScore: domain.TotalScore(r.questions, r.answers),
		Answered:   len(r.answers),
		SubmitTime: r.now(),
	}
	slog.InfoContext(ctx, "runner: responses submitted",
		"survey_id", r.surveyID, "user", user, "answered", score.Answered, "score", score.TotalScore.String())
	if r.pub != nil {
		r.pub.Publish(ctx, domain.EventResponsesSubmitted{Score: score})
	}

	r.tasks.After(RedirectAfter, func() {
		r.mu.Lock()
		r.redirect = "/"
		r.mu.Unlock()
		r.finish()
	})
	return nil
}

// ReturnHome resets the run and cancels every pending timer.
func (r *Runner) ReturnHome() {
	r.mu.Lock()
	r.answers = make(domain.Answers)
	r.current = 0
	r.intro = true
	r.submitted = false
	r.fading = false
	r.redirect = "/"
	r.mu.Unlock()

	r.finish()
}

// Close cancels the pending timers without notifying the owner.
func (r *Runner) Close() {
	r.tasks.Close()
}

func (r *Runner) finish() {
	r.tasks.Close()

	r.mu.Lock()
	done := r.done
	r.done = true
	r.mu.Unlock()

	if !done && r.onDone != nil {
		r.onDone()
	}
}

// Score is the live weighted total over the answered questions.
func (r *Runner) Score() decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return domain.TotalScore(r.questions, r.answers)
}

// Redirect returns where the browser should go, or "" to stay on the survey.
func (r *Runner) Redirect() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.redirect
}

// Pending reports the number of scheduled timers.
func (r *Runner) Pending() int {
	return r.tasks.Pending()
}

// IdleSince returns the time of the last interaction.
func (r *Runner) IdleSince() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seen
}

func (r *Runner) touch() {
	r.seen = r.now()
}

// clamp keeps a question index inside the current question list.
func (r *Runner) clamp(idx int) int {
	if idx >= len(r.questions) {
		idx = len(r.questions) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

func (r *Runner) hasQuestion(id int64) bool {
	for _, q := range r.questions {
		if q.ID == id {
			return true
		}
	}
	return false
}
