package runner

import (
	"github.com/shopspring/decimal"

	"github.com/usfbank/surveyweb/internal/domain"
)

// View is a consistent snapshot of a runner, for rendering.
type View struct {
	SurveyID  string
	State     State
	Mode      Mode
	Survey    domain.Survey
	Questions []domain.Question
	Answers   domain.Answers
	Current   int
	Question  domain.Question
	Fading    bool
	Error     string
	Redirect  string
	Score     decimal.Decimal
}

func (r *Runner) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()

	v := View{
		SurveyID:  r.surveyID,
		State:     r.state(),
		Mode:      r.mode,
		Survey:    r.survey,
		Questions: append([]domain.Question(nil), r.questions...),
		Answers:   make(domain.Answers, len(r.answers)),
		Current:   r.current,
		Fading:    r.fading,
		Error:     r.errMsg,
		Redirect:  r.redirect,
		Score:     domain.TotalScore(r.questions, r.answers),
	}
	for id, a := range r.answers {
		v.Answers[id] = a
	}
	if r.current < len(r.questions) {
		v.Question = r.questions[r.current]
	}
	return v
}

func (v View) Mobile() bool { return v.Mode == ModeMobile }

// Empty reports a loaded survey without questions.
func (v View) Empty() bool { return v.State != StateLoading && v.State != StateError && len(v.Questions) == 0 }

func (v View) First() bool { return v.Current == 0 }

func (v View) Last() bool { return v.Current >= len(v.Questions)-1 }

// Position is the 1-based index of the current question.
func (v View) Position() int { return v.Current + 1 }

func (v View) Answer(questionID int64) int { return v.Answers[questionID] }

func (v View) Answered() int { return len(v.Answers) }
