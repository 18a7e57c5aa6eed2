package domain

const (
	EventNameSurveyCreated      = "survey.created"
	EventNameSurveyDeleted      = "survey.deleted"
	EventNameQuestionsChanged   = "questions.changed"
	EventNameResponsesSubmitted = "responses.submitted"
)

type EventSurveyCreated struct {
	Survey Survey
}

func (EventSurveyCreated) Name() string { return EventNameSurveyCreated }

type EventSurveyDeleted struct {
	SurveyID string
}

func (EventSurveyDeleted) Name() string { return EventNameSurveyDeleted }

// EventQuestionsChanged is published after a question was created, updated or deleted.
type EventQuestionsChanged struct {
	SurveyID string
	Op       string
}

func (EventQuestionsChanged) Name() string { return EventNameQuestionsChanged }

type EventResponsesSubmitted struct {
	Score Score
}

func (EventResponsesSubmitted) Name() string { return EventNameResponsesSubmitted }
