package database

import (
	"context"
	"errors"

	apperrors "smsview/internal/errors"
	"smsview/internal/metrics"
	"smsview/internal/models"
	"smsview/pkg/circuitbreaker"
)

// GuardedJournal routes journal calls through a circuit breaker so a broken
// database is not hit on every load.
type GuardedJournal struct {
	journal *Journal
	breaker *circuitbreaker.Breaker
}

func NewGuarded(journal *Journal, breaker *circuitbreaker.Breaker) *GuardedJournal {
	return &GuardedJournal{journal: journal, breaker: breaker}
}

func (g *GuardedJournal) Record(ctx context.Context, event *models.LoadEvent) error {
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		return g.journal.Record(ctx, event)
	})
	return g.translate(err)
}

func (g *GuardedJournal) Recent(ctx context.Context, limit int) ([]models.LoadEvent, error) {
	var events []models.LoadEvent
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var queryErr error
		events, queryErr = g.journal.Recent(ctx, limit)
		return queryErr
	})
	if err != nil {
		return nil, g.translate(err)
	}
	return events, nil
}

func (g *GuardedJournal) Close() error {
	return g.journal.Close()
}

func (g *GuardedJournal) Breaker() *circuitbreaker.Breaker {
	return g.breaker
}

func (g *GuardedJournal) translate(err error) error {
	if err == nil || !errors.Is(err, circuitbreaker.ErrOpen) {
		return err
	}
	metrics.IncrementCounter(metrics.JournalRejectedTotal, nil, "Journal calls rejected by the circuit breaker")
	return apperrors.Wrap(err, apperrors.ErrCodeDatabaseConnection, "load journal unavailable").
		WithUserMessage("The load journal is temporarily unavailable")
}
