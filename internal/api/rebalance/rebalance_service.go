package rebalance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-itinerary-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/recommendation"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/scheduler"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/trip"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service re-plans a finished trip around the activities the user locked.
type Service interface {
	Rebalance(ctx context.Context, userID string, tripID uuid.UUID) (*types.Trip, error)
}

type ServiceImpl struct {
	logger    *slog.Logger
	repo      trip.Repository
	locks     *trip.LockRegistry
	scorer    *recommendation.Scorer
	scheduler *scheduler.Scheduler
}

func NewServiceImpl(repo trip.Repository, locks *trip.LockRegistry, scorer *recommendation.Scorer, sched *scheduler.Scheduler, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:    logger,
		repo:      repo,
		locks:     locks,
		scorer:    scorer,
		scheduler: sched,
	}
}

func (s *ServiceImpl) Rebalance(ctx context.Context, userID string, tripID uuid.UUID) (*types.Trip, error) {
	ctx, span := otel.Tracer("RebalanceService").Start(ctx, "Rebalance", trace.WithAttributes(
		attribute.String("trip.id", tripID.String()),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "Rebalance"), slog.String("tripID", tripID.String()))

	t, err := s.rebalance(ctx, userID, tripID)
	outcome := "ok"
	if err != nil {
		outcome = string(types.CodeFor(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "rebalance failed")
		l.WarnContext(ctx, "Rebalance refused or failed", slog.Any("error", err))
	} else {
		span.SetStatus(codes.Ok, "rebalanced")
		l.InfoContext(ctx, "Trip rebalanced",
			slog.Int("scheduled", len(t.Scheduled)),
			slog.Int("unscheduled", len(t.Unscheduled)))
	}
	metrics.Get().RebalanceRunsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	return t, err
}

func (s *ServiceImpl) rebalance(ctx context.Context, userID string, tripID uuid.UUID) (*types.Trip, error) {
	lease, ok := s.locks.TryAcquire(tripID, "rebalance")
	if !ok {
		return nil, fmt.Errorf("trip %s: %w", tripID, types.ErrConflict)
	}
	defer lease.Release()

	t, err := trip.LoadOwned(ctx, s.repo, userID, tripID)
	if err != nil {
		return nil, err
	}
	if t.Status != types.TripStatusComplete {
		return nil, fmt.Errorf("cannot rebalance a trip in status %s: %w", t.Status, types.ErrInvalidTransition)
	}

	result, err := s.Plan(t)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	t.Scheduled = result.Scheduled
	t.Unscheduled = result.Unscheduled
	t.LastRebalancedAt = &now

	if err := s.repo.SaveTrip(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Plan computes the rebalanced split of a trip without persisting it. Locked
// activities stay where they are; everything else is ranked and scheduled again.
func (s *ServiceImpl) Plan(t *types.Trip) (types.ScheduleResult, error) {
	var locked []types.ScheduledActivity
	seen := make(map[string]bool)
	for _, a := range t.Scheduled {
		if a.Locked {
			locked = append(locked, a)
			seen[a.Candidate.ID] = true
		}
	}

	details := make(map[string]*types.PlaceDetails)
	var candidates []types.CandidateActivity
	add := func(c types.CandidateActivity) {
		c = c.WithDefaults()
		if seen[c.ID] {
			return
		}
		seen[c.ID] = true
		candidates = append(candidates, c)
	}
	for _, a := range t.Scheduled {
		if !a.Locked {
			add(a.Candidate)
			if a.Details != nil {
				details[a.Candidate.ID] = a.Details
			}
		}
	}
	for _, u := range t.Unscheduled {
		add(u.Candidate)
	}

	ranked, excluded := s.scorer.Rank(candidates, t.Preferences, recommendation.ScoringContext{})
	result, err := s.scheduler.Schedule(t.DateRange, ranked, locked, t.Preferences)
	if err != nil {
		return types.ScheduleResult{}, err
	}
	for i, a := range result.Scheduled {
		if a.Details == nil {
			result.Scheduled[i].Details = details[a.Candidate.ID]
		}
	}
	result.Unscheduled = append(result.Unscheduled, excluded...)
	return result, nil
}
