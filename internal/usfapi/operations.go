package usfapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/usfbank/surveyweb/internal/domain"
	"github.com/usfbank/surveyweb/internal/errors"
)

type credentialsBody struct {
	ID    string `json:"id"`
	PW    string `json:"pw"`
	Email string `json:"email,omitempty"`
}

type resultBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (r resultBody) err(fallback string) error {
	if r.Success {
		return nil
	}

	msg := r.Error
	if msg == "" {
		msg = fallback
	}
	return errors.New(errors.CodeUnauthenticated, errors.WithMessagef("%s", msg))
}

// Login authenticates with the external API. On success the API session cookie is kept in the credentials.
func (cn *Conn) Login(ctx context.Context, id, pw string) error {
	var out resultBody
	if err := cn.do(ctx, "login", http.MethodPost, "/usf/login", nil, credentialsBody{ID: id, PW: pw}, &out); err != nil {
		return err
	}
	return out.err("Login failed")
}

func (cn *Conn) Register(ctx context.Context, id, pw, email string) error {
	var out resultBody
	if err := cn.do(ctx, "register", http.MethodPost, "/usf/register", nil, credentialsBody{ID: id, PW: pw, Email: email}, &out); err != nil {
		return err
	}
	if !out.Success {
		msg := out.Error
		if msg == "" {
			msg = "Registration failed"
		}
		return errors.Invalid("%s", msg)
	}
	return nil
}

func (cn *Conn) Logout(ctx context.Context) error {
	return cn.do(ctx, "logout", http.MethodPost, "/usf/logout", nil, nil, nil)
}

type meBody struct {
	LoggedIn bool   `json:"logged_in"`
	User     string `json:"user"`
}

// Me returns the identity attached to the current credentials.
func (cn *Conn) Me(ctx context.Context) (domain.Identity, error) {
	var out meBody
	if err := cn.do(ctx, "me", http.MethodGet, "/usf/me", nil, nil, &out); err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{LoggedIn: out.LoggedIn, User: out.User}, nil
}

func (cn *Conn) ListSurveys(ctx context.Context) ([]domain.Survey, error) {
	var out struct {
		Surveys []domain.Survey `json:"surveys"`
	}
	if err := cn.do(ctx, "list_surveys", http.MethodGet, "/usf/surveys", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Surveys, nil
}

func (cn *Conn) GetSurvey(ctx context.Context, surveyID string) (domain.Survey, error) {
	var out struct {
		Survey *domain.Survey `json:"survey"`
	}
	if err := cn.do(ctx, "get_survey", http.MethodGet, "/usf/surveys/"+url.PathEscape(surveyID), nil, nil, &out); err != nil {
		return domain.Survey{}, err
	}
	if out.Survey == nil {
		return domain.Survey{}, errors.New(errors.CodeNotFound, errors.WithMessagef("Survey not found"))
	}
	return *out.Survey, nil
}

func (cn *Conn) CreateSurvey(ctx context.Context, s domain.Survey) error {
	return cn.do(ctx, "create_survey", http.MethodPost, "/usf/surveys", nil, s, nil)
}

func (cn *Conn) DeleteSurvey(ctx context.Context, surveyID string) error {
	return cn.do(ctx, "delete_survey", http.MethodDelete, "/usf/surveys/"+url.PathEscape(surveyID), nil, nil, nil)
}

func (cn *Conn) ListQuestions(ctx context.Context, surveyID string) ([]domain.Question, error) {
	var out struct {
		Questions []domain.Question `json:"questions"`
	}
	q := url.Values{"survey_id": []string{surveyID}}
	if err := cn.do(ctx, "list_questions", http.MethodGet, "/usf/questions", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Questions, nil
}

func (cn *Conn) CreateQuestion(ctx context.Context, q domain.Question) error {
	body := struct {
		SurveyID          string `json:"survey_id"`
		SurveyDescription string `json:"survey_description"`
		Category          string `json:"category"`
		Description       string `json:"description"`
		Weight            int    `json:"weight"`
	}{q.SurveyID, q.SurveyDescription, q.Category, q.Description, q.Weight}

	return cn.do(ctx, "create_question", http.MethodPost, "/usf/questions", nil, body, nil)
}

// UpdateQuestion replaces the question identified by q.ID with the full question object.
func (cn *Conn) UpdateQuestion(ctx context.Context, q domain.Question) error {
	return cn.do(ctx, "update_question", http.MethodPut, "/usf/questions/"+strconv.FormatInt(q.ID, 10), nil, q, nil)
}

func (cn *Conn) DeleteQuestion(ctx context.Context, id int64) error {
	return cn.do(ctx, "delete_question", http.MethodDelete, "/usf/questions/"+strconv.FormatInt(id, 10), nil, nil, nil)
}

func (cn *Conn) SubmitResponses(ctx context.Context, s domain.Submission) error {
	return cn.do(ctx, "submit_responses", http.MethodPost, "/usf/responses", nil, s, nil)
}
