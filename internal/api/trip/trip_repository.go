package trip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	database "github.com/FACorreiaa/go-itinerary-planner/app/db"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

var _ Repository = (*RepositoryImpl)(nil)

// Repository is the trip record store. Writes that carry a trip check its
// Version against the stored one and bump it on success.
type Repository interface {
	CreateTrip(ctx context.Context, t *types.Trip) error
	LoadTrip(ctx context.Context, id uuid.UUID) (*types.Trip, error)
	// SaveTrip writes the status fields and replaces both activity collections in one transaction.
	SaveTrip(ctx context.Context, t *types.Trip) error
	// SaveStatus writes status, progress, attempts and error only.
	SaveStatus(ctx context.Context, t *types.Trip) error
	DeleteActivities(ctx context.Context, id uuid.UUID) error
}

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool database.Pool
}

func NewRepository(pgpool database.Pool, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *RepositoryImpl) CreateTrip(ctx context.Context, t *types.Trip) error {
	ctx, span := otel.Tracer("TripRepository").Start(ctx, "CreateTrip")
	defer span.End()

	prefs, err := json.Marshal(t.Preferences)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now().UTC()
	query := `
		INSERT INTO trips (
			id, user_id, destination, city_id, start_date, end_date, preferences,
			status, progress, attempts_count, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, 0, 1, $9, $9)
	`
	if _, err := r.pgpool.Exec(ctx, query, t.ID, t.UserID, t.Destination, t.CityID,
		t.DateRange.Start.Time, t.DateRange.End.Time, prefs, string(types.TripStatusDraft), now); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return fmt.Errorf("%w: failed to insert trip: %v", types.ErrPersistenceFailure, err)
	}

	t.Status = types.TripStatusDraft
	t.Progress = 0
	t.AttemptsCount = 0
	t.Version = 1
	t.CreatedAt = now
	t.UpdatedAt = now
	span.SetAttributes(attribute.String("trip.id", t.ID.String()))
	r.logger.InfoContext(ctx, "Trip created", slog.String("tripID", t.ID.String()), slog.String("destination", t.Destination))
	return nil
}

func (r *RepositoryImpl) LoadTrip(ctx context.Context, id uuid.UUID) (*types.Trip, error) {
	ctx, span := otel.Tracer("TripRepository").Start(ctx, "LoadTrip", trace.WithAttributes(
		attribute.String("trip.id", id.String()),
	))
	defer span.End()

	tx, err := r.pgpool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to start transaction: %v", types.ErrPersistenceFailure, err)
	}
	defer tx.Rollback(ctx)

	query := `
		SELECT id, user_id, destination, city_id, start_date, end_date, preferences, status, progress,
		       attempts_count, error_code, error_message, error_retryable, last_rebalanced_at, version,
		       created_at, updated_at
		FROM trips
		WHERE id = $1
	`
	var (
		t               types.Trip
		start, end      time.Time
		prefs           []byte
		status          string
		errCode, errMsg *string
		errRetryable    bool
	)
	err = tx.QueryRow(ctx, query, id).Scan(&t.ID, &t.UserID, &t.Destination, &t.CityID, &start, &end, &prefs,
		&status, &t.Progress, &t.AttemptsCount, &errCode, &errMsg, &errRetryable, &t.LastRebalancedAt,
		&t.Version, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("trip %s: %w", id, types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("%w: failed to query trip: %v", types.ErrPersistenceFailure, err)
	}
	t.DateRange = types.DateRange{Start: types.DateOf(start), End: types.DateOf(end)}
	t.Status = types.TripStatus(status)
	if len(prefs) > 0 {
		if err := json.Unmarshal(prefs, &t.Preferences); err != nil {
			return nil, fmt.Errorf("%w: failed to decode preferences: %v", types.ErrPersistenceFailure, err)
		}
	}
	if errCode != nil {
		t.Error = &types.TripError{Code: types.ErrorCode(*errCode), Retryable: errRetryable}
		if errMsg != nil {
			t.Error.Message = *errMsg
		}
	}

	if t.Scheduled, err = r.loadScheduled(ctx, tx, id); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if t.Unscheduled, err = r.loadUnscheduled(ctx, tx, id); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: failed to commit transaction: %v", types.ErrPersistenceFailure, err)
	}
	span.SetStatus(codes.Ok, "trip loaded")
	return &t, nil
}

func (r *RepositoryImpl) loadScheduled(ctx context.Context, tx pgx.Tx, id uuid.UUID) ([]types.ScheduledActivity, error) {
	query := `
		SELECT id, candidate, activity_date, start_minute, end_minute, day_index, sequence, slot, locked, details
		FROM trip_activities
		WHERE trip_id = $1
		ORDER BY activity_date, start_minute, sequence
	`
	rows, err := tx.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query activities: %v", types.ErrPersistenceFailure, err)
	}
	defer rows.Close()

	var out []types.ScheduledActivity
	for rows.Next() {
		var (
			a          types.ScheduledActivity
			candidate  []byte
			date       time.Time
			start, end int
			slot       string
			details    []byte
		)
		if err := rows.Scan(&a.ID, &candidate, &date, &start, &end, &a.DayIndex, &a.Sequence, &slot, &a.Locked, &details); err != nil {
			return nil, fmt.Errorf("%w: failed to scan activity row: %v", types.ErrPersistenceFailure, err)
		}
		if err := json.Unmarshal(candidate, &a.Candidate); err != nil {
			return nil, fmt.Errorf("%w: failed to decode activity candidate: %v", types.ErrPersistenceFailure, err)
		}
		if len(details) > 0 {
			a.Details = &types.PlaceDetails{}
			if err := json.Unmarshal(details, a.Details); err != nil {
				return nil, fmt.Errorf("%w: failed to decode activity details: %v", types.ErrPersistenceFailure, err)
			}
		}
		a.Date = types.DateOf(date)
		a.Start, a.End = types.Clock(start), types.Clock(end)
		a.Slot = types.Slot(slot)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating activity rows: %v", types.ErrPersistenceFailure, err)
	}
	return out, nil
}

func (r *RepositoryImpl) loadUnscheduled(ctx context.Context, tx pgx.Tx, id uuid.UUID) ([]types.UnscheduledActivity, error) {
	query := `
		SELECT candidate, reason, detail
		FROM trip_unscheduled
		WHERE trip_id = $1
		ORDER BY position
	`
	rows, err := tx.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query unscheduled: %v", types.ErrPersistenceFailure, err)
	}
	defer rows.Close()

	var out []types.UnscheduledActivity
	for rows.Next() {
		var (
			u         types.UnscheduledActivity
			candidate []byte
			reason    string
		)
		if err := rows.Scan(&candidate, &reason, &u.Detail); err != nil {
			return nil, fmt.Errorf("%w: failed to scan unscheduled row: %v", types.ErrPersistenceFailure, err)
		}
		if err := json.Unmarshal(candidate, &u.Candidate); err != nil {
			return nil, fmt.Errorf("%w: failed to decode unscheduled candidate: %v", types.ErrPersistenceFailure, err)
		}
		u.Reason = types.UnscheduledReason(reason)
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating unscheduled rows: %v", types.ErrPersistenceFailure, err)
	}
	return out, nil
}

func (r *RepositoryImpl) SaveTrip(ctx context.Context, t *types.Trip) error {
	ctx, span := otel.Tracer("TripRepository").Start(ctx, "SaveTrip", trace.WithAttributes(
		attribute.String("trip.id", t.ID.String()),
		attribute.String("trip.status", string(t.Status)),
		attribute.Int("activities.scheduled", len(t.Scheduled)),
	))
	defer span.End()

	prefs, err := json.Marshal(t.Preferences)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}

	tx, err := r.pgpool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: failed to start transaction: %v", types.ErrPersistenceFailure, err)
	}
	defer tx.Rollback(ctx)

	code, msg, retryable := errorColumns(t.Error)
	now := time.Now().UTC()
	tag, err := tx.Exec(ctx, `
		UPDATE trips SET
			preferences = $2, status = $3, progress = $4, attempts_count = $5,
			error_code = $6, error_message = $7, error_retryable = $8,
			last_rebalanced_at = $9, version = version + 1, updated_at = $10
		WHERE id = $1 AND version = $11
	`, t.ID, prefs, string(t.Status), t.Progress, t.AttemptsCount, code, msg, retryable,
		t.LastRebalancedAt, now, t.Version)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: failed to update trip: %v", types.ErrPersistenceFailure, err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "version mismatch")
		return fmt.Errorf("trip %s at version %d: %w", t.ID, t.Version, types.ErrVersionMismatch)
	}

	if err := replaceActivities(ctx, tx, t); err != nil {
		span.RecordError(err)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: failed to commit transaction: %v", types.ErrPersistenceFailure, err)
	}
	t.Version++
	t.UpdatedAt = now
	span.SetStatus(codes.Ok, "trip saved")
	return nil
}

func replaceActivities(ctx context.Context, tx pgx.Tx, t *types.Trip) error {
	if _, err := tx.Exec(ctx, `DELETE FROM trip_activities WHERE trip_id = $1`, t.ID); err != nil {
		return fmt.Errorf("%w: failed to clear activities: %v", types.ErrPersistenceFailure, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM trip_unscheduled WHERE trip_id = $1`, t.ID); err != nil {
		return fmt.Errorf("%w: failed to clear unscheduled: %v", types.ErrPersistenceFailure, err)
	}

	for _, a := range t.Scheduled {
		candidate, err := json.Marshal(a.Candidate)
		if err != nil {
			return fmt.Errorf("failed to encode candidate: %w", err)
		}
		var details []byte
		if a.Details != nil {
			if details, err = json.Marshal(a.Details); err != nil {
				return fmt.Errorf("failed to encode details: %w", err)
			}
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO trip_activities (
				id, trip_id, candidate, activity_date, start_minute, end_minute, day_index, sequence, slot, locked, details
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, a.ID, t.ID, candidate, a.Date.Time, int(a.Start), int(a.End), a.DayIndex, a.Sequence,
			string(a.Slot), a.Locked, details); err != nil {
			return fmt.Errorf("%w: failed to insert activity: %v", types.ErrPersistenceFailure, err)
		}
	}

	for i, u := range t.Unscheduled {
		candidate, err := json.Marshal(u.Candidate)
		if err != nil {
			return fmt.Errorf("failed to encode candidate: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO trip_unscheduled (trip_id, position, candidate, reason, detail)
			VALUES ($1, $2, $3, $4, $5)
		`, t.ID, i, candidate, string(u.Reason), u.Detail); err != nil {
			return fmt.Errorf("%w: failed to insert unscheduled: %v", types.ErrPersistenceFailure, err)
		}
	}
	return nil
}

func (r *RepositoryImpl) SaveStatus(ctx context.Context, t *types.Trip) error {
	ctx, span := otel.Tracer("TripRepository").Start(ctx, "SaveStatus", trace.WithAttributes(
		attribute.String("trip.id", t.ID.String()),
		attribute.String("trip.status", string(t.Status)),
		attribute.Int("trip.progress", t.Progress),
	))
	defer span.End()

	code, msg, retryable := errorColumns(t.Error)
	now := time.Now().UTC()
	tag, err := r.pgpool.Exec(ctx, `
		UPDATE trips SET
			status = $2, progress = $3, attempts_count = $4,
			error_code = $5, error_message = $6, error_retryable = $7,
			version = version + 1, updated_at = $8
		WHERE id = $1 AND version = $9
	`, t.ID, string(t.Status), t.Progress, t.AttemptsCount, code, msg, retryable, now, t.Version)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: failed to update trip status: %v", types.ErrPersistenceFailure, err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "version mismatch")
		return fmt.Errorf("trip %s at version %d: %w", t.ID, t.Version, types.ErrVersionMismatch)
	}
	t.Version++
	t.UpdatedAt = now
	return nil
}

func (r *RepositoryImpl) DeleteActivities(ctx context.Context, id uuid.UUID) error {
	ctx, span := otel.Tracer("TripRepository").Start(ctx, "DeleteActivities", trace.WithAttributes(
		attribute.String("trip.id", id.String()),
	))
	defer span.End()

	tx, err := r.pgpool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: failed to start transaction: %v", types.ErrPersistenceFailure, err)
	}
	defer tx.Rollback(ctx)

	if err := replaceActivities(ctx, tx, &types.Trip{ID: id}); err != nil {
		span.RecordError(err)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: failed to commit transaction: %v", types.ErrPersistenceFailure, err)
	}
	r.logger.DebugContext(ctx, "Trip activities cleared", slog.String("tripID", id.String()))
	return nil
}

func errorColumns(e *types.TripError) (*string, *string, bool) {
	if e == nil {
		return nil, nil, false
	}
	code := string(e.Code)
	return &code, &e.Message, e.Retryable
}
