package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/questline-learn/questline-api/internal/dto"
	"github.com/questline-learn/questline-api/internal/models"
	"github.com/questline-learn/questline-api/internal/observability"
	"github.com/questline-learn/questline-api/internal/repository"
)

const xpDedupeTTL = 7 * 24 * time.Hour

// XPService is the downstream consumer of approved submission outcomes.
// It writes XP ledger rows keyed by the outcome's idempotency key, so a
// duplicate emission never double-awards, and serves cached XP totals.
type XPService interface {
	Start(ctx context.Context)
	HandleOutcome(ctx context.Context, outcome dto.OutcomeEvent) error
	Summary(ctx context.Context, studentID string) (dto.XPSummaryResponse, error)
}

type xpService struct {
	awards   repository.XPRepository
	missions repository.MissionRepository
	redis    *redis.Client
	nats     *nats.Conn
	subject  string
	cacheTTL time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewXPService constructs the XP ledger consumer. The redis client and
// NATS connection are optional; without NATS, HandleOutcome must be
// called directly (as the in-process wiring does in tests).
func NewXPService(awardRepo repository.XPRepository, missionRepo repository.MissionRepository, redisClient *redis.Client, natsConn *nats.Conn, subject string, cacheTTL time.Duration, logger zerolog.Logger) XPService {
	if subject == "" {
		subject = "questline.submissions.approved"
	}

	return &xpService{
		awards:   awardRepo,
		missions: missionRepo,
		redis:    redisClient,
		nats:     natsConn,
		subject:  subject,
		cacheTTL: cacheTTL,
		logger:   logger.With().Str("component", "xp_service").Logger(),
		now:      time.Now,
	}
}

func (s *xpService) Start(ctx context.Context) {
	if s.nats == nil {
		return
	}

	sub, err := s.nats.Subscribe(s.subject, func(msg *nats.Msg) {
		var outcome dto.OutcomeEvent
		if err := json.Unmarshal(msg.Data, &outcome); err != nil {
			s.logger.Warn().Err(err).Msg("discarding malformed outcome event")
			return
		}

		if err := s.HandleOutcome(ctx, outcome); err != nil {
			s.logger.Error().Err(err).
				Str("submission_id", outcome.SubmissionID).
				Msg("failed to handle outcome event")
		}
	})
	if err != nil {
		s.logger.Error().Err(err).Str("subject", s.subject).Msg("failed to subscribe to outcomes")
		return
	}

	go func() {
		<-ctx.Done()
		_ = sub.Unsubscribe()
	}()
}

// HandleOutcome awards XP for an approved submission outcome. Duplicate
// emissions are detected twice over: a redis fast-path on the idempotency
// key, then the ledger's unique index as the durable guard.
func (s *xpService) HandleOutcome(ctx context.Context, outcome dto.OutcomeEvent) error {
	if outcome.Kind != dto.OutcomeKindApproved {
		return nil
	}
	if outcome.IdempotencyKey == "" {
		return errors.New("outcome event missing idempotency key")
	}

	if s.redis != nil {
		fresh, err := s.redis.SetNX(ctx, "questline:xp:idem:"+outcome.IdempotencyKey, 1, xpDedupeTTL).Result()
		if err != nil {
			s.logger.Warn().Err(err).Msg("xp dedupe check failed, falling through to ledger")
		} else if !fresh {
			s.logger.Debug().
				Str("idempotency_key", outcome.IdempotencyKey).
				Msg("duplicate outcome ignored")
			return nil
		}
	}

	mission, err := s.missions.GetByID(ctx, outcome.MissionID)
	if err != nil {
		return err
	}
	if mission.XPReward <= 0 {
		return nil
	}

	award := models.XPAward{
		StudentID:      outcome.StudentID,
		MissionID:      outcome.MissionID,
		SubmissionID:   outcome.SubmissionID,
		Amount:         mission.XPReward,
		IdempotencyKey: outcome.IdempotencyKey,
		AwardedAt:      s.now(),
	}

	if err := s.awards.CreateAward(ctx, &award); err != nil {
		if errors.Is(err, repository.ErrDuplicateAward) {
			s.logger.Debug().
				Str("idempotency_key", outcome.IdempotencyKey).
				Msg("xp award already recorded")
			return nil
		}
		return err
	}

	s.invalidateTotal(ctx, outcome.StudentID)
	observability.XPAwardsTotal().Add(float64(mission.XPReward))
	s.logger.Info().
		Str("student_id", outcome.StudentID).
		Str("mission_id", outcome.MissionID).
		Int("amount", mission.XPReward).
		Msg("xp awarded")

	return nil
}

func (s *xpService) Summary(ctx context.Context, studentID string) (dto.XPSummaryResponse, error) {
	total, err := s.cachedTotal(ctx, studentID)
	if err != nil {
		return dto.XPSummaryResponse{}, err
	}

	awards, err := s.awards.ListAwards(ctx, studentID)
	if err != nil {
		return dto.XPSummaryResponse{}, err
	}

	return dto.XPSummaryResponse{
		StudentID: studentID,
		Total:     total,
		Awards:    dto.NewXPAwardResponseSlice(awards),
	}, nil
}

func (s *xpService) cachedTotal(ctx context.Context, studentID string) (int64, error) {
	key := "questline:xp:total:" + studentID

	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, key).Int64(); err == nil {
			return cached, nil
		}
	}

	total, err := s.awards.TotalForStudent(ctx, studentID)
	if err != nil {
		return 0, err
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, key, total, s.cacheTTL).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to cache xp total")
		}
	}

	return total, nil
}

func (s *xpService) invalidateTotal(ctx context.Context, studentID string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, "questline:xp:total:"+studentID).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate xp total cache")
	}
}
