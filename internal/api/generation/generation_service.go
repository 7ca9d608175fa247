package generation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-itinerary-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/notify"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/trip"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service triggers background generation. Both calls return as soon as the
// trip is generating; progress is observed by polling the trip.
type Service interface {
	StartGeneration(ctx context.Context, userID string, tripID uuid.UUID, prefs *types.PreferenceProfile) (*types.Trip, error)
	Regenerate(ctx context.Context, userID string, tripID uuid.UUID) (*types.Trip, error)
}

// Submitter accepts tasks for background execution.
type Submitter interface {
	Submit(task Task) error
}

type ServiceImpl struct {
	logger      *slog.Logger
	repo        trip.Repository
	locks       *trip.LockRegistry
	queue       Submitter
	notifier    notify.Notifier
	maxAttempts int
}

func NewServiceImpl(repo trip.Repository, locks *trip.LockRegistry, queue Submitter, notifier notify.Notifier, maxAttempts int, logger *slog.Logger) *ServiceImpl {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &ServiceImpl{
		logger:      logger,
		repo:        repo,
		locks:       locks,
		queue:       queue,
		notifier:    notifier,
		maxAttempts: maxAttempts,
	}
}

// StartGeneration moves a draft trip to generating and queues the first attempt.
func (s *ServiceImpl) StartGeneration(ctx context.Context, userID string, tripID uuid.UUID, prefs *types.PreferenceProfile) (*types.Trip, error) {
	if prefs != nil {
		if err := prefs.Validate(); err != nil {
			return nil, err
		}
	}
	return s.launch(ctx, userID, tripID, prefs, false)
}

// Regenerate clears the previous result and queues another attempt, as long
// as the retry budget allows it. Besides ERROR it accepts DRAFT and COMPLETE
// trips, and GENERATING or BASIC_READY trips whose task no longer holds the lease.
func (s *ServiceImpl) Regenerate(ctx context.Context, userID string, tripID uuid.UUID) (*types.Trip, error) {
	return s.launch(ctx, userID, tripID, nil, true)
}

func (s *ServiceImpl) launch(ctx context.Context, userID string, tripID uuid.UUID, prefs *types.PreferenceProfile, regenerate bool) (*types.Trip, error) {
	ctx, span := otel.Tracer("GenerationService").Start(ctx, "Launch", trace.WithAttributes(
		attribute.String("trip.id", tripID.String()),
		attribute.Bool("regenerate", regenerate),
	))
	defer span.End()

	taskID := TaskID()
	l := s.logger.With(slog.String("tripID", tripID.String()), slog.String("task", taskID))

	lease, ok := s.locks.TryAcquire(tripID, taskID)
	if !ok {
		return nil, fmt.Errorf("trip %s: %w", tripID, types.ErrConflict)
	}
	handedOff := false
	defer func() {
		if !handedOff {
			lease.Release()
		}
	}()

	t, err := trip.LoadOwned(ctx, s.repo, userID, tripID)
	if err != nil {
		return nil, err
	}
	if err := s.checkTransition(ctx, t, regenerate, l); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if regenerate {
		if err := s.repo.DeleteActivities(ctx, tripID); err != nil {
			return nil, persistenceError(err)
		}
	}
	if prefs != nil {
		t.Preferences = prefs.Normalize()
	}
	t.Status = types.TripStatusGenerating
	t.Progress = 0
	t.AttemptsCount++
	t.Error = nil
	t.Scheduled = nil
	t.Unscheduled = nil
	t.LastRebalancedAt = nil
	if err := s.repo.SaveTrip(ctx, t); err != nil {
		l.ErrorContext(ctx, "Failed to mark trip generating", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		return nil, persistenceError(err)
	}
	s.publish(ctx, t, l)

	task := Task{ID: taskID, TripID: tripID, Attempt: t.AttemptsCount, Lease: lease, SpanContext: span.SpanContext()}
	if err := s.queue.Submit(task); err != nil {
		metrics.Get().GenerationQueueRejections.Add(ctx, 1)
		l.WarnContext(ctx, "Generation queue rejected task", slog.Any("error", err))
		t.Status = types.TripStatusError
		t.Error = types.NewTripError(err)
		if serr := s.repo.SaveStatus(ctx, t); serr != nil {
			l.ErrorContext(ctx, "Failed to record queue rejection", slog.Any("error", serr))
		} else {
			s.publish(ctx, t, l)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "queue unavailable")
		return nil, err
	}
	handedOff = true

	l.InfoContext(ctx, "Generation queued", slog.Int("attempt", t.AttemptsCount), slog.Bool("regenerate", regenerate))
	span.SetStatus(codes.Ok, "generation queued")
	return t, nil
}

// checkTransition decides whether the trip may enter generating. The caller
// holds the lease, so an in-flight status seen by regenerate belongs to a task
// that no longer exists.
func (s *ServiceImpl) checkTransition(ctx context.Context, t *types.Trip, regenerate bool, l *slog.Logger) error {
	if !regenerate {
		switch t.Status {
		case types.TripStatusDraft:
			return nil
		case types.TripStatusGenerating, types.TripStatusBasicReady:
			return fmt.Errorf("trip %s is already %s: %w", t.ID, t.Status, types.ErrConflict)
		default:
			return fmt.Errorf("cannot start generation from %s, use regenerate: %w", t.Status, types.ErrInvalidTransition)
		}
	}

	if t.AttemptsCount < s.maxAttempts {
		return nil
	}
	err := fmt.Errorf("%w: %d of %d attempts used", types.ErrRetryBudgetExhausted, t.AttemptsCount, s.maxAttempts)
	if t.Status == types.TripStatusError && (t.Error == nil || t.Error.Code != types.CodeRetryBudgetExhausted) {
		t.Error = types.NewTripError(err)
		if serr := s.repo.SaveStatus(ctx, t); serr != nil {
			l.ErrorContext(ctx, "Failed to pin exhausted trip", slog.Any("error", serr))
		} else {
			s.publish(ctx, t, l)
		}
	}
	return err
}

func (s *ServiceImpl) publish(ctx context.Context, t *types.Trip, l *slog.Logger) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, types.EventFor(t)); err != nil {
		l.WarnContext(ctx, "Trip event not delivered", slog.Any("error", err))
	}
}
