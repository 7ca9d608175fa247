package trip

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-itinerary-planner/internal/api/scheduler"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service manages trip records outside of generation: drafts, reads and manual edits.
type Service interface {
	CreateTrip(ctx context.Context, userID string, req types.CreateTripRequest) (*types.Trip, error)
	GetTrip(ctx context.Context, userID string, tripID uuid.UUID) (*types.Trip, error)
	UpdateActivity(ctx context.Context, userID string, tripID, activityID uuid.UUID, edit types.ActivityEdit) (*types.Trip, error)
	RemoveActivity(ctx context.Context, userID string, tripID, activityID uuid.UUID) (*types.Trip, error)
}

type ServiceImpl struct {
	logger      *slog.Logger
	repo        Repository
	locks       *LockRegistry
	maxTripDays int
}

func NewServiceImpl(repo Repository, locks *LockRegistry, maxTripDays int, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:      logger,
		repo:        repo,
		locks:       locks,
		maxTripDays: maxTripDays,
	}
}

// LoadOwned loads a trip and hides it from anyone but its owner.
func LoadOwned(ctx context.Context, repo Repository, userID string, tripID uuid.UUID) (*types.Trip, error) {
	t, err := repo.LoadTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if t.UserID != userID {
		return nil, fmt.Errorf("trip %s: %w", tripID, types.ErrNotFound)
	}
	return t, nil
}

func (s *ServiceImpl) CreateTrip(ctx context.Context, userID string, req types.CreateTripRequest) (*types.Trip, error) {
	ctx, span := otel.Tracer("TripService").Start(ctx, "CreateTrip", trace.WithAttributes(
		attribute.String("destination", req.Destination),
	))
	defer span.End()

	destination := strings.TrimSpace(req.Destination)
	if destination == "" {
		return nil, fmt.Errorf("%w: destination is required", types.ErrInvalidInput)
	}
	dr := types.DateRange{Start: req.StartDate, End: req.EndDate}
	if err := dr.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidInput, err)
	}
	if s.maxTripDays > 0 && dr.NumDays() > s.maxTripDays {
		return nil, fmt.Errorf("%w: trip spans %d days, limit is %d", types.ErrInvalidInput, dr.NumDays(), s.maxTripDays)
	}

	prefs := types.DefaultPreferenceProfile()
	if req.Preferences != nil {
		if err := req.Preferences.Validate(); err != nil {
			span.RecordError(err)
			return nil, err
		}
		prefs = req.Preferences.Normalize()
	}

	cityID := req.CityID
	if cityID == "" {
		cityID = Slug(destination)
	}
	t := &types.Trip{
		UserID:      userID,
		Destination: destination,
		CityID:      cityID,
		DateRange:   dr,
		Preferences: prefs,
		Status:      types.TripStatusDraft,
	}
	if err := s.repo.CreateTrip(ctx, t); err != nil {
		s.logger.ErrorContext(ctx, "Failed to create trip", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("trip.id", t.ID.String()))
	span.SetStatus(codes.Ok, "trip created")
	return t, nil
}

func (s *ServiceImpl) GetTrip(ctx context.Context, userID string, tripID uuid.UUID) (*types.Trip, error) {
	return LoadOwned(ctx, s.repo, userID, tripID)
}

// UpdateActivity re-times one activity of a finished trip and locks it in place
// so later rebalances keep it.
func (s *ServiceImpl) UpdateActivity(ctx context.Context, userID string, tripID, activityID uuid.UUID, edit types.ActivityEdit) (*types.Trip, error) {
	ctx, span := otel.Tracer("TripService").Start(ctx, "UpdateActivity", trace.WithAttributes(
		attribute.String("trip.id", tripID.String()),
		attribute.String("activity.id", activityID.String()),
	))
	defer span.End()

	return s.edit(ctx, userID, tripID, func(t *types.Trip) error {
		idx := indexOf(t.Scheduled, activityID)
		if idx < 0 {
			return fmt.Errorf("activity %s: %w", activityID, types.ErrNotFound)
		}
		a := t.Scheduled[idx]
		duration := a.DurationMinutes()
		if edit.Date != nil {
			a.Date = *edit.Date
		}
		if edit.Start != nil {
			a.Start = *edit.Start
		}
		if edit.DurationMinutes != nil {
			duration = *edit.DurationMinutes
		}
		a.End = a.Start.Add(duration)

		switch {
		case !t.DateRange.Contains(a.Date):
			return fmt.Errorf("%w: %s is outside the trip", types.ErrInvalidInput, a.Date)
		case duration <= 0 || !a.Start.Valid() || !a.End.Valid():
			return fmt.Errorf("%w: activity must start and end within the day", types.ErrInvalidInput)
		}
		for i, other := range t.Scheduled {
			if i != idx && a.Overlaps(other) {
				return fmt.Errorf("%w: overlaps %q at %s", types.ErrInvalidInput, other.Candidate.Name, other.Start)
			}
		}
		a.Locked = true
		t.Scheduled[idx] = a
		return nil
	})
}

func (s *ServiceImpl) RemoveActivity(ctx context.Context, userID string, tripID, activityID uuid.UUID) (*types.Trip, error) {
	ctx, span := otel.Tracer("TripService").Start(ctx, "RemoveActivity", trace.WithAttributes(
		attribute.String("trip.id", tripID.String()),
		attribute.String("activity.id", activityID.String()),
	))
	defer span.End()

	return s.edit(ctx, userID, tripID, func(t *types.Trip) error {
		idx := indexOf(t.Scheduled, activityID)
		if idx < 0 {
			return fmt.Errorf("activity %s: %w", activityID, types.ErrNotFound)
		}
		t.Scheduled = append(t.Scheduled[:idx], t.Scheduled[idx+1:]...)
		return nil
	})
}

// edit applies fn to a finished trip under its lease and persists the result.
func (s *ServiceImpl) edit(ctx context.Context, userID string, tripID uuid.UUID, fn func(*types.Trip) error) (*types.Trip, error) {
	l := s.logger.With(slog.String("tripID", tripID.String()))

	lease, ok := s.locks.TryAcquire(tripID, "edit")
	if !ok {
		return nil, fmt.Errorf("trip %s: %w", tripID, types.ErrConflict)
	}
	defer lease.Release()

	t, err := LoadOwned(ctx, s.repo, userID, tripID)
	if err != nil {
		return nil, err
	}
	if t.Status != types.TripStatusComplete {
		return nil, fmt.Errorf("cannot edit a trip in status %s: %w", t.Status, types.ErrInvalidTransition)
	}
	if err := fn(t); err != nil {
		return nil, err
	}
	scheduler.Sequence(t.Scheduled, t.DateRange)

	if err := s.repo.SaveTrip(ctx, t); err != nil {
		l.ErrorContext(ctx, "Failed to save edited trip", slog.Any("error", err))
		return nil, err
	}
	l.InfoContext(ctx, "Trip edited", slog.Int("version", t.Version))
	return t, nil
}

func indexOf(acts []types.ScheduledActivity, id uuid.UUID) int {
	for i, a := range acts {
		if a.ID == id {
			return i
		}
	}
	return -1
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug turns a destination name into the city id used for place pools.
func Slug(destination string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(destination), "-"), "-")
}
