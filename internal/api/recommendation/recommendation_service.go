package recommendation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/FACorreiaa/go-itinerary-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-itinerary-planner/config"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service serves ranked place recommendations for a city.
type Service interface {
	GetRecommendations(ctx context.Context, cityID string, req types.RecommendationRequest) (*types.RecommendationResponse, error)
	CityPool(ctx context.Context, cityID string) ([]types.CandidateActivity, error)
	Invalidate(cityID string)
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   PlaceRepository
	scorer *Scorer
	cfg    config.RecommendationsConfig
	cache  *cache.Cache
	group  singleflight.Group
}

func NewServiceImpl(repo PlaceRepository, scorer *Scorer, cfg config.RecommendationsConfig, logger *slog.Logger) *ServiceImpl {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 20
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 100
	}
	cfg.DefaultLimit = min(cfg.DefaultLimit, cfg.MaxLimit)
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
		scorer: scorer,
		cfg:    cfg,
		cache:  cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
	}
}

// CityPool returns the place pool of a city. Concurrent misses for the same
// city share one repository call.
func (s *ServiceImpl) CityPool(ctx context.Context, cityID string) ([]types.CandidateActivity, error) {
	if cached, found := s.cache.Get(cityID); found {
		return cached.([]types.CandidateActivity), nil
	}
	v, err, _ := s.group.Do(cityID, func() (interface{}, error) {
		if cached, found := s.cache.Get(cityID); found {
			return cached, nil
		}
		pool, err := s.repo.ListByCity(ctx, cityID)
		if err != nil {
			return nil, err
		}
		s.cache.Set(cityID, pool, cache.DefaultExpiration)
		return pool, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load place pool for %q: %w", cityID, err)
	}
	return v.([]types.CandidateActivity), nil
}

func (s *ServiceImpl) Invalidate(cityID string) {
	s.cache.Delete(cityID)
}

func (s *ServiceImpl) GetRecommendations(ctx context.Context, cityID string, req types.RecommendationRequest) (*types.RecommendationResponse, error) {
	ctx, span := otel.Tracer("RecommendationService").Start(ctx, "GetRecommendations", trace.WithAttributes(
		attribute.String("city.id", cityID),
		attribute.String("kind", string(req.Kind)),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "GetRecommendations"), slog.String("cityID", cityID))

	profile := types.DefaultPreferenceProfile()
	if req.Preferences != nil {
		if err := req.Preferences.Validate(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "invalid preferences")
			return nil, err
		}
		profile = *req.Preferences
	}
	if req.Kind == "" {
		req.Kind = types.PlaceKindAll
	}
	switch req.Kind {
	case types.PlaceKindAll, types.PlaceKindAttraction, types.PlaceKindRestaurant:
	default:
		return nil, fmt.Errorf("unknown place kind %q: %w", req.Kind, types.ErrInvalidPreferences)
	}

	pool, err := s.CityPool(ctx, cityID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to load place pool", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "pool load failed")
		return nil, err
	}

	sctx := ScoringContext{
		Budget:          req.Budget,
		StartTime:       req.StartTime,
		CurrentLocation: req.CurrentLocation,
		CrowdPreference: req.CrowdPreference,
	}
	if req.Date != nil {
		wd := req.Date.Weekday()
		sctx.Weekday = &wd
	}
	result := s.scorer.Score(filterKind(pool, req.Kind), profile, sctx)

	resp := &types.RecommendationResponse{
		CityID:      cityID,
		Ranked:      truncate(result.Ranked, s.limit(req.Limit)),
		GeneratedAt: time.Now().UTC(),
	}
	if resp.Ranked == nil {
		resp.Ranked = []types.RecommendationScore{}
	}
	if req.IncludeExcluded {
		resp.Excluded = result.Excluded
	}

	metrics.Get().RecommendationRequests.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(req.Kind))))
	span.SetAttributes(attribute.Int("ranked.count", len(resp.Ranked)), attribute.Int("excluded.count", len(result.Excluded)))
	span.SetStatus(codes.Ok, "recommendations ranked")
	l.DebugContext(ctx, "Recommendations ranked", slog.Int("ranked", len(resp.Ranked)), slog.Int("excluded", len(result.Excluded)))
	return resp, nil
}

func (s *ServiceImpl) limit(requested int) int {
	switch {
	case requested <= 0:
		return s.cfg.DefaultLimit
	case requested > s.cfg.MaxLimit:
		return s.cfg.MaxLimit
	default:
		return requested
	}
}

func filterKind(pool []types.CandidateActivity, kind types.PlaceKind) []types.CandidateActivity {
	if kind == types.PlaceKindAll {
		return pool
	}
	out := make([]types.CandidateActivity, 0, len(pool))
	for _, c := range pool {
		if c.IsMeal() == (kind == types.PlaceKindRestaurant) {
			out = append(out, c)
		}
	}
	return out
}

func truncate(scores []types.RecommendationScore, n int) []types.RecommendationScore {
	if len(scores) > n {
		return scores[:n]
	}
	return scores
}
