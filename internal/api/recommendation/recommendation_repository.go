package recommendation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	database "github.com/FACorreiaa/go-itinerary-planner/app/db"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

var _ PlaceRepository = (*PlaceRepositoryImpl)(nil)

// PlaceRepository reads the curated place pool of each city.
type PlaceRepository interface {
	ListByCity(ctx context.Context, cityID string) ([]types.CandidateActivity, error)
	DetailsByRef(ctx context.Context, placeRef string) (*types.PlaceDetails, error)
	SavePlaces(ctx context.Context, cityID string, places []types.CandidateActivity) (int, error)
}

type PlaceRepositoryImpl struct {
	logger *slog.Logger
	pgpool database.Pool
}

func NewPlaceRepository(pgpool database.Pool, logger *slog.Logger) *PlaceRepositoryImpl {
	return &PlaceRepositoryImpl{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *PlaceRepositoryImpl) ListByCity(ctx context.Context, cityID string) ([]types.CandidateActivity, error) {
	ctx, span := otel.Tracer("PlaceRepository").Start(ctx, "ListByCity", trace.WithAttributes(
		attribute.String("city.id", cityID),
	))
	defer span.End()

	query := `
		SELECT id, name, category, latitude, longitude, address, place_ref, duration_minutes,
		       opening_hours, rating, review_count, price_tier, tags
		FROM places
		WHERE city_id = $1
		ORDER BY id
	`
	rows, err := r.pgpool.Query(ctx, query, cityID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("failed to query places by city: %w", err)
	}
	defer rows.Close()

	var places []types.CandidateActivity
	for rows.Next() {
		var (
			p     types.CandidateActivity
			hours []byte
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Location.Lat, &p.Location.Lon, &p.Address,
			&p.PlaceRef, &p.DurationMinutes, &hours, &p.Rating, &p.ReviewCount, &p.PriceTier, &p.Tags); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan place row: %w", err)
		}
		if p.OpeningHours, err = decodeHours(hours); err != nil {
			r.logger.WarnContext(ctx, "Ignoring malformed opening hours", slog.String("place", p.ID), slog.Any("error", err))
		}
		places = append(places, p)
	}
	if err = rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error iterating place rows: %w", err)
	}

	span.SetAttributes(attribute.Int("places.count", len(places)))
	span.SetStatus(codes.Ok, "places loaded")
	r.logger.DebugContext(ctx, "Places retrieved by city", slog.String("cityID", cityID), slog.Int("count", len(places)))
	return places, nil
}

func (r *PlaceRepositoryImpl) DetailsByRef(ctx context.Context, placeRef string) (*types.PlaceDetails, error) {
	ctx, span := otel.Tracer("PlaceRepository").Start(ctx, "DetailsByRef", trace.WithAttributes(
		attribute.String("place.ref", placeRef),
	))
	defer span.End()

	query := `
		SELECT opening_hours, price_tier, rating, review_count, website, phone, summary, photo_urls
		FROM places
		WHERE place_ref = $1 OR id = $1
		LIMIT 1
	`
	var (
		d     types.PlaceDetails
		hours []byte
	)
	err := r.pgpool.QueryRow(ctx, query, placeRef).Scan(&hours, &d.PriceTier, &d.Rating, &d.ReviewCount,
		&d.Website, &d.Phone, &d.Summary, &d.PhotoURLs)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "place not found")
			return nil, fmt.Errorf("place %q: %w", placeRef, types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("failed to query place details: %w", err)
	}
	if d.OpeningHours, err = decodeHours(hours); err != nil {
		r.logger.WarnContext(ctx, "Ignoring malformed opening hours", slog.String("place", placeRef), slog.Any("error", err))
	}
	span.SetStatus(codes.Ok, "details loaded")
	return &d, nil
}

// SavePlaces upserts places into a city's pool and returns how many rows were written.
func (r *PlaceRepositoryImpl) SavePlaces(ctx context.Context, cityID string, places []types.CandidateActivity) (int, error) {
	ctx, span := otel.Tracer("PlaceRepository").Start(ctx, "SavePlaces", trace.WithAttributes(
		attribute.String("city.id", cityID),
		attribute.Int("places.count", len(places)),
	))
	defer span.End()

	tx, err := r.pgpool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO places (
			id, city_id, name, category, latitude, longitude, address, place_ref,
			duration_minutes, opening_hours, rating, review_count, price_tier, tags
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			city_id = EXCLUDED.city_id, name = EXCLUDED.name, category = EXCLUDED.category,
			latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude, address = EXCLUDED.address,
			place_ref = EXCLUDED.place_ref, duration_minutes = EXCLUDED.duration_minutes,
			opening_hours = EXCLUDED.opening_hours, rating = EXCLUDED.rating,
			review_count = EXCLUDED.review_count, price_tier = EXCLUDED.price_tier, tags = EXCLUDED.tags
	`
	written := 0
	for _, raw := range places {
		p := raw.WithDefaults()
		if err := p.Validate(); err != nil {
			r.logger.WarnContext(ctx, "Skipping invalid place", slog.String("name", p.Name), slog.Any("error", err))
			continue
		}
		hours, err := json.Marshal(p.OpeningHours)
		if err != nil {
			return 0, fmt.Errorf("failed to encode opening hours: %w", err)
		}
		tags := p.Tags
		if tags == nil {
			tags = []string{}
		}
		if _, err := tx.Exec(ctx, query, p.ID, cityID, p.Name, p.Category, p.Location.Lat, p.Location.Lon,
			p.Address, p.PlaceRef, p.DurationMinutes, hours, p.Rating, p.ReviewCount, p.PriceTier, tags); err != nil {
			span.RecordError(err)
			return 0, fmt.Errorf("failed to upsert place %q: %w", p.Name, err)
		}
		written++
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	r.logger.InfoContext(ctx, "Places saved", slog.String("cityID", cityID), slog.Int("count", written))
	return written, nil
}

func decodeHours(raw []byte) (types.OpeningHours, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var hours types.OpeningHours
	if err := json.Unmarshal(raw, &hours); err != nil {
		return nil, fmt.Errorf("failed to decode opening hours: %w", err)
	}
	if err := hours.Validate(); err != nil {
		return nil, err
	}
	if len(hours) == 0 {
		return nil, nil
	}
	return hours, nil
}
