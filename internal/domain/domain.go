package domain

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// RoleAdmin is the identity the external API reports for administrators.
const RoleAdmin = "ADMIN"

// Identity is the result of a session lookup against the external API.
type Identity struct {
	LoggedIn bool
	User     string
}

func (i Identity) IsAdmin() bool {
	return i.LoggedIn && i.User == RoleAdmin
}

// Survey is a named collection of weighted questions.
type Survey struct {
	SurveyID          string `json:"survey_id"`
	SurveyDescription string `json:"survey_description"`
}

// Question is a single weighted prompt within a survey. ID is assigned by the external API.
type Question struct {
	ID                int64  `json:"id"`
	SurveyID          string `json:"survey_id"`
	SurveyDescription string `json:"survey_description"`
	Category          string `json:"category"`
	Description       string `json:"description"`
	Weight            int    `json:"weight"`
}

// Likert answers, from least to most frequent.
const (
	AnswerRarely     = 1
	AnswerSometimes  = 2
	AnswerFrequently = 3
)

// AnswerLabels are the labels shown for each Likert answer, indexed by answer-1.
var AnswerLabels = [...]string{"Rarely", "Sometimes", "Frequently"}

// ValidAnswer reports whether v is one of the accepted Likert answers.
func ValidAnswer(v int) bool {
	return v >= AnswerRarely && v <= AnswerFrequently
}

// Answers maps a question ID to the chosen Likert answer. Unanswered questions are absent.
type Answers map[int64]int

// Payload converts answers into the submission body used by the external API, keyed by question ID.
func (a Answers) Payload() map[string]int {
	p := make(map[string]int, len(a))
	for id, v := range a {
		p[strconv.FormatInt(id, 10)] = v
	}
	return p
}

// Submission is a batch of answers for one survey.
type Submission struct {
	SurveyID  string         `json:"survey_id"`
	Responses map[string]int `json:"responses"`
}

// Score is the weighted total of a respondent's answers, computed client side.
type Score struct {
	SurveyID   string
	Username   string
	TotalScore decimal.Decimal
	Answered   int
	SubmitTime time.Time
}

// TotalScore sums weight x answer over the answered questions. Unanswered questions contribute zero.
func TotalScore(questions []Question, answers Answers) decimal.Decimal {
	total := decimal.Zero
	for _, q := range questions {
		v, ok := answers[q.ID]
		if !ok {
			continue
		}
		total = total.Add(decimal.NewFromInt(int64(q.Weight) * int64(v)))
	}
	return total
}
