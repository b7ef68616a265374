package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/questline-learn/questline-api/internal/dto"
)

// OutcomeDispatcher hands committed workflow outcomes to downstream
// consumers (XP ledger, badges, notifications). Dispatch is fire-and-
// forget from the engine's point of view: the transition is already
// durable when it is called.
type OutcomeDispatcher interface {
	Dispatch(ctx context.Context, outcome dto.OutcomeEvent) error
}

type natsOutcomeDispatcher struct {
	conn          *nats.Conn
	subjectPrefix string
	logger        zerolog.Logger
}

// NewNATSOutcomeDispatcher publishes outcomes as JSON to
// "<prefix>.<kind>" subjects.
func NewNATSOutcomeDispatcher(conn *nats.Conn, subjectPrefix string, logger zerolog.Logger) OutcomeDispatcher {
	if subjectPrefix == "" {
		subjectPrefix = "questline.submissions"
	}

	return &natsOutcomeDispatcher{
		conn:          conn,
		subjectPrefix: subjectPrefix,
		logger:        logger.With().Str("component", "outcome_dispatcher").Logger(),
	}
}

func (d *natsOutcomeDispatcher) Dispatch(ctx context.Context, outcome dto.OutcomeEvent) error {
	data, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("failed to encode outcome event: %w", err)
	}

	subject := d.subjectPrefix + "." + outcome.Kind
	if err := d.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish outcome event: %w", err)
	}

	d.logger.Debug().
		Str("subject", subject).
		Str("submission_id", outcome.SubmissionID).
		Str("idempotency_key", outcome.IdempotencyKey).
		Msg("outcome published")

	return nil
}

type logOutcomeDispatcher struct {
	logger zerolog.Logger
}

// NewLogOutcomeDispatcher logs outcomes instead of publishing them. Used
// when no broker is configured, e.g. local development.
func NewLogOutcomeDispatcher(logger zerolog.Logger) OutcomeDispatcher {
	return &logOutcomeDispatcher{
		logger: logger.With().Str("component", "outcome_dispatcher").Logger(),
	}
}

func (d *logOutcomeDispatcher) Dispatch(_ context.Context, outcome dto.OutcomeEvent) error {
	d.logger.Info().
		Str("submission_id", outcome.SubmissionID).
		Str("kind", outcome.Kind).
		Str("idempotency_key", outcome.IdempotencyKey).
		Msg("outcome emitted without broker")

	return nil
}
