// Package ledger records the client-side weighted score of every accepted submission in Postgres.
// The external API never receives the score; the ledger keeps it for review.
package ledger

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/usfbank/surveyweb/internal/domain"
	"github.com/usfbank/surveyweb/internal/errors"
	"github.com/usfbank/surveyweb/internal/event"
)

const subscriberName = "ledger"

type Config struct {
	EventBus *event.Bus
	DB       *pgxpool.Pool
}

type Service struct {
	db *pgxpool.Pool
}

// NewService subscribes the ledger to submitted responses.
func NewService(c Config) *Service {
	s := &Service{db: c.DB}

	c.EventBus.Subscribe(domain.EventNameResponsesSubmitted, subscriberName, func(ctx context.Context, e event.Event) error {
		ev, ok := e.(domain.EventResponsesSubmitted)
		if !ok {
			return fmt.Errorf("unexpected event %T", e)
		}
		return s.Record(ctx, ev.Score)
	})

	return s
}

// Migrate creates the scores table when it does not exist.
func (s *Service) Migrate(ctx context.Context) error {
	const stmt = `
CREATE TABLE IF NOT EXISTS survey_scores (
	survey_id   TEXT        NOT NULL,
	username    TEXT        NOT NULL,
	total_score NUMERIC     NOT NULL,
	answered    INTEGER     NOT NULL,
	submit_time TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (survey_id, username, submit_time)
);`

	if _, err := s.db.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("ledger: migrate: %w", err)
	}
	return nil
}

// Record stores one score. Recording the same submission twice is reported as AlreadyExists.
func (s *Service) Record(ctx context.Context, sc domain.Score) error {
	const stmt = `
INSERT INTO survey_scores (survey_id, username, total_score, answered, submit_time)
VALUES ($1, $2, $3, $4, $5);`

	_, err := s.db.Exec(ctx, stmt, sc.SurveyID, sc.Username, sc.TotalScore, sc.Answered, sc.SubmitTime)

	var pgErr *pgconn.PgError
	const codeUniqueViolation = "23505"
	if stderrors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return errors.New(errors.CodeAlreadyExists, errors.WithCause(err))
	}

	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "ledger: score recorded", "survey_id", sc.SurveyID, "user", sc.Username)
	return nil
}

// Recent lists the latest scores of a survey, newest first.
func (s *Service) Recent(ctx context.Context, surveyID string, limit int) ([]domain.Score, error) {
	const stmt = `
SELECT username, total_score, answered, submit_time
FROM survey_scores
WHERE survey_id = $1
ORDER BY submit_time DESC
LIMIT $2;`

	rows, err := s.db.Query(ctx, stmt, surveyID, limit)
	if err != nil {
		return nil, err
	}

	scores, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Score, error) {
		var sc domain.Score
		if err := r.Scan(&sc.Username, &sc.TotalScore, &sc.Answered, &sc.SubmitTime); err != nil {
			return domain.Score{}, err
		}
		sc.SurveyID = surveyID
		return sc, nil
	})
	if err != nil {
		return nil, err
	}

	return scores, nil
}
