// Package admin implements the survey admin workspace: survey creation and selection, and
// weighted question editing. Every mutation re-fetches the authoritative list from the API.
package admin

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/usfbank/surveyweb/internal/domain"
	"github.com/usfbank/surveyweb/internal/errors"
	"github.com/usfbank/surveyweb/internal/event"
)

// User-facing messages.
const (
	MsgFillSurvey       = "Please fill in both survey ID and description"
	MsgSelectSurvey     = "Please select a survey first"
	MsgInvalidWeight    = "Weight must be a positive whole number"
	MsgCreateSurvey     = "Error creating survey"
	MsgDeleteSurvey     = "Error deleting survey"
	MsgLoadSurveys      = "Error loading surveys"
	MsgLoadQuestions    = "Error loading questions"
	MsgCreateQuestion   = "Error creating question"
	MsgUpdateQuestion   = "Error updating question"
	MsgDeleteQuestion   = "Error deleting question"
	MsgQuestionNotFound = "Question not found"
)

const recentScores = 10

type API interface {
	ListSurveys(ctx context.Context) ([]domain.Survey, error)
	CreateSurvey(ctx context.Context, s domain.Survey) error
	DeleteSurvey(ctx context.Context, surveyID string) error
	ListQuestions(ctx context.Context, surveyID string) ([]domain.Question, error)
	CreateQuestion(ctx context.Context, q domain.Question) error
	UpdateQuestion(ctx context.Context, q domain.Question) error
	DeleteQuestion(ctx context.Context, id int64) error
}

// Ledger lists locally recorded scores. It is optional.
type Ledger interface {
	Recent(ctx context.Context, surveyID string, limit int) ([]domain.Score, error)
}

type Publisher interface {
	Publish(ctx context.Context, e event.Event)
}

// State is the part of the workspace that survives between requests.
// Drafts holds an editable copy per question ID; a missing entry means the row is not being edited.
type State struct {
	Selected    string                     `json:"selected"`
	NewSurvey   domain.Survey              `json:"new_survey"`
	NewQuestion domain.Question            `json:"new_question"`
	Drafts      map[int64]*domain.Question `json:"drafts,omitempty"`
	Error       string                     `json:"error,omitempty"`
}

// NewState returns the state of a workspace opened on surveyID, which may be empty.
func NewState(surveyID string) State {
	return State{
		Selected:    surveyID,
		NewQuestion: domain.Question{SurveyID: surveyID, Weight: 1},
	}
}

type Config struct {
	API       API
	Ledger    Ledger
	Publisher Publisher
}

// Workspace is one request's view of an administrator's workspace.
type Workspace struct {
	State

	Surveys   []domain.Survey
	Questions []domain.Question
	Scores    []domain.Score

	api    API
	ledger Ledger
	pub    Publisher
}

func New(c Config, st State) *Workspace {
	if st.Drafts == nil {
		st.Drafts = make(map[int64]*domain.Question)
	}
	if st.NewQuestion.Weight == 0 {
		st.NewQuestion.Weight = 1
	}

	return &Workspace{
		State:  st,
		api:    c.API,
		ledger: c.Ledger,
		pub:    c.Publisher,
	}
}

// Load fetches the survey list and the questions of the selected survey.
func (w *Workspace) Load(ctx context.Context) {
	_ = w.loadSurveys(ctx)
	_ = w.loadQuestions(ctx)
	w.loadScores(ctx)
}

// Location is the browser location that reflects the selected survey.
func (w *Workspace) Location() string {
	if w.Selected == "" {
		return "/admin"
	}
	return "/admin/" + url.PathEscape(w.Selected)
}

// CreateSurvey creates a survey. Both fields are required; nothing is sent when either is empty.
func (w *Workspace) CreateSurvey(ctx context.Context, s domain.Survey) error {
	s.SurveyID = strings.TrimSpace(s.SurveyID)
	s.SurveyDescription = strings.TrimSpace(s.SurveyDescription)
	w.NewSurvey = s

	if s.SurveyID == "" || s.SurveyDescription == "" {
		w.Error = MsgFillSurvey
		return errors.Invalid(MsgFillSurvey)
	}

	if err := w.api.CreateSurvey(ctx, s); err != nil {
		return w.fail(ctx, MsgCreateSurvey, err)
	}

	w.NewSurvey = domain.Survey{}
	w.Error = ""
	w.publish(ctx, domain.EventSurveyCreated{Survey: s})
	return w.loadSurveys(ctx)
}

// DeleteSurvey removes a survey and its questions. Deleting the selected survey clears the selection.
func (w *Workspace) DeleteSurvey(ctx context.Context, surveyID string) error {
	if surveyID == "" {
		w.Error = MsgSelectSurvey
		return errors.Invalid(MsgSelectSurvey)
	}

	if err := w.api.DeleteSurvey(ctx, surveyID); err != nil {
		return w.fail(ctx, MsgDeleteSurvey, err)
	}

	w.publish(ctx, domain.EventSurveyDeleted{SurveyID: surveyID})
	if surveyID == w.Selected {
		w.State = NewState("")
		w.Drafts = make(map[int64]*domain.Question)
		w.Questions = nil
	}
	return w.loadSurveys(ctx)
}

// Select makes surveyID the active survey and loads its questions. An empty ID clears the list
// without calling the API.
func (w *Workspace) Select(ctx context.Context, surveyID string) error {
	if surveyID != w.Selected {
		w.Drafts = make(map[int64]*domain.Question)
	}
	w.Selected = surveyID
	w.NewQuestion.SurveyID = surveyID
	return w.loadQuestions(ctx)
}

// CreateQuestion adds a question to the selected survey.
func (w *Workspace) CreateQuestion(ctx context.Context, q domain.Question) error {
	if w.Selected == "" {
		w.Error = MsgSelectSurvey
		return errors.Invalid(MsgSelectSurvey)
	}

	q.SurveyID = w.Selected
	w.NewQuestion = q
	if q.Weight < 1 {
		w.Error = MsgInvalidWeight
		return errors.Invalid(MsgInvalidWeight)
	}

	if err := w.api.CreateQuestion(ctx, q); err != nil {
		return w.fail(ctx, MsgCreateQuestion, err)
	}

	w.NewQuestion = domain.Question{SurveyID: w.Selected, Weight: 1}
	w.publish(ctx, domain.EventQuestionsChanged{SurveyID: w.Selected, Op: "create"})
	return w.loadQuestions(ctx)
}

// BeginEdit opens an edit buffer holding a copy of the question.
func (w *Workspace) BeginEdit(id int64) error {
	for _, q := range w.Questions {
		if q.ID == id {
			cp := q
			w.Drafts[id] = &cp
			return nil
		}
	}

	w.Error = MsgQuestionNotFound
	return errors.New(errors.CodeNotFound, errors.WithMessagef(MsgQuestionNotFound))
}

// Draft returns the edit buffer of a question, if the row is being edited.
func (w *Workspace) Draft(id int64) (*domain.Question, bool) {
	d, ok := w.Drafts[id]
	return d, ok && d != nil
}

// Editing returns the edit buffer of a question, or nil when the row is not being edited.
func (w *Workspace) Editing(id int64) *domain.Question {
	d, _ := w.Draft(id)
	return d
}

// EditDraft changes the editable fields of an open edit buffer.
func (w *Workspace) EditDraft(id int64, category, description string, weight int) error {
	d, ok := w.Draft(id)
	if !ok {
		return errors.New(errors.CodeNotFound, errors.WithMessagef("question %d is not being edited", id))
	}

	d.Category = category
	d.Description = description
	d.Weight = weight
	return nil
}

// SaveEdit sends the edit buffer as a full update and discards it, whatever the outcome.
func (w *Workspace) SaveEdit(ctx context.Context, id int64) error {
	d, ok := w.Draft(id)
	if !ok {
		return errors.New(errors.CodeNotFound, errors.WithMessagef("question %d is not being edited", id))
	}

	if d.Weight < 1 {
		w.Error = MsgInvalidWeight
		return errors.Invalid(MsgInvalidWeight)
	}

	q := *d
	delete(w.Drafts, id)

	if err := w.api.UpdateQuestion(ctx, q); err != nil {
		_ = w.fail(ctx, MsgUpdateQuestion, err)
		_ = w.loadQuestions(ctx)
		return err
	}

	w.publish(ctx, domain.EventQuestionsChanged{SurveyID: q.SurveyID, Op: "update"})
	return w.loadQuestions(ctx)
}

// CancelEdit discards the edit buffer without saving.
func (w *Workspace) CancelEdit(id int64) {
	delete(w.Drafts, id)
}

func (w *Workspace) DeleteQuestion(ctx context.Context, id int64) error {
	delete(w.Drafts, id)

	if err := w.api.DeleteQuestion(ctx, id); err != nil {
		_ = w.fail(ctx, MsgDeleteQuestion, err)
		_ = w.loadQuestions(ctx)
		return err
	}

	w.publish(ctx, domain.EventQuestionsChanged{SurveyID: w.Selected, Op: "delete"})
	return w.loadQuestions(ctx)
}

func (w *Workspace) loadSurveys(ctx context.Context) error {
	surveys, err := w.api.ListSurveys(ctx)
	if err != nil {
		return w.fail(ctx, MsgLoadSurveys, err)
	}
	w.Surveys = surveys
	return nil
}

func (w *Workspace) loadQuestions(ctx context.Context) error {
	if w.Selected == "" {
		w.Questions = nil
		return nil
	}

	qs, err := w.api.ListQuestions(ctx, w.Selected)
	if err != nil {
		return w.fail(ctx, MsgLoadQuestions, err)
	}
	w.Questions = qs
	return nil
}

func (w *Workspace) loadScores(ctx context.Context) {
	if w.ledger == nil || w.Selected == "" {
		w.Scores = nil
		return
	}

	scores, err := w.ledger.Recent(ctx, w.Selected, recentScores)
	if err != nil {
		slog.WarnContext(ctx, "admin: load recent scores failed", "survey_id", w.Selected, "error", err)
		return
	}
	w.Scores = scores
}

func (w *Workspace) fail(ctx context.Context, msg string, err error) error {
	slog.ErrorContext(ctx, "admin: "+strings.ToLower(msg), "survey_id", w.Selected, "error", err)
	w.Error = msg
	return err
}

func (w *Workspace) publish(ctx context.Context, e event.Event) {
	if w.pub != nil {
		w.pub.Publish(ctx, e)
	}
}
