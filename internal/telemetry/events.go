package telemetry

import (
	"context"
	"log/slog"

	"github.com/usfbank/surveyweb/internal/domain"
	"github.com/usfbank/surveyweb/internal/event"
)

const subscriberName = "telemetry"

// SubscribeEvents counts and logs domain events published on eb.
func SubscribeEvents(eb *event.Bus) {
	eb.Subscribe(domain.EventNameResponsesSubmitted, subscriberName, func(ctx context.Context, e event.Event) error {
		ev, ok := e.(domain.EventResponsesSubmitted)
		if !ok {
			return nil
		}
		ObserveSubmission(ev.Score.SurveyID, ev.Score.Answered)
		return nil
	})

	logEvent := func(ctx context.Context, e event.Event) error {
		slog.InfoContext(ctx, "event: "+e.Name(), "payload", e)
		return nil
	}
	eb.Subscribe(domain.EventNameSurveyCreated, subscriberName, logEvent)
	eb.Subscribe(domain.EventNameSurveyDeleted, subscriberName, logEvent)
	eb.Subscribe(domain.EventNameQuestionsChanged, subscriberName, logEvent)
}
