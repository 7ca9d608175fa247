package container

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	database "github.com/FACorreiaa/go-itinerary-planner/app/db"
	"github.com/FACorreiaa/go-itinerary-planner/config"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/enrichment"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/generation"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/notify"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/proposer"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/rebalance"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/recommendation"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/scheduler"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/trip"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Logger *slog.Logger
	Pool   *pgxpool.Pool
	Redis  *redis.Client

	Places  recommendation.PlaceRepository
	Trips   trip.Repository
	Workers *generation.WorkerPool

	TripHandler           *trip.HandlerImpl
	GenerationHandler     *generation.HandlerImpl
	RebalanceHandler      *rebalance.HandlerImpl
	RecommendationHandler *recommendation.HandlerImpl
}

// Option overrides a dependency the container would otherwise build from config.
type Option func(*overrides)

type overrides struct {
	proposer proposer.Proposer
	enricher enrichment.Enricher
	notifier notify.Notifier
}

func WithProposer(p proposer.Proposer) Option {
	return func(o *overrides) { o.proposer = p }
}

func WithEnricher(e enrichment.Enricher) Option {
	return func(o *overrides) { o.enricher = e }
}

func WithNotifier(n notify.Notifier) Option {
	return func(o *overrides) { o.notifier = n }
}

// NewContainer initializes and returns a new dependency container. Workers
// are built but not started.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Container, error) {
	var o overrides
	for _, opt := range opts {
		opt(&o)
	}
	c := &Container{Config: cfg, Logger: logger}

	if err := c.initStorage(ctx); err != nil {
		c.Close()
		return nil, err
	}

	scorer := recommendation.NewScorer(recommendation.NewOptions(cfg.Scoring))
	schedCfg, err := scheduler.NewConfig(cfg.Scheduler)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("scheduler config: %w", err)
	}
	sched := scheduler.New(schedCfg)
	locks := trip.NewLockRegistry()

	recommendationService := recommendation.NewServiceImpl(c.Places, scorer, cfg.Recommendations, logger)

	prop := o.proposer
	if prop == nil {
		prop = c.buildProposer(ctx, recommendationService)
	}
	enricher := o.enricher
	if enricher == nil {
		enricher = c.buildEnricher()
	}
	notifier := o.notifier
	if notifier == nil {
		notifier = c.buildNotifier()
	}

	pipeline := generation.NewPipeline(generation.Dependencies{
		Repo:      c.Trips,
		Proposer:  prop,
		Pool:      recommendationService,
		Enricher:  enricher,
		Scorer:    scorer,
		Scheduler: sched,
		Notifier:  notifier,
	}, cfg.Generation, logger)
	c.Workers = generation.NewWorkerPool(pipeline, cfg.Generation.Workers, cfg.Generation.QueueSize, logger)

	tripService := trip.NewServiceImpl(c.Trips, locks, cfg.Scheduler.MaxTripDays, logger)
	generationService := generation.NewServiceImpl(c.Trips, locks, c.Workers, notifier, cfg.Generation.MaxRetryAttempts, logger)
	rebalanceService := rebalance.NewServiceImpl(c.Trips, locks, scorer, sched, logger)

	c.TripHandler = trip.NewHandlerImpl(tripService, logger)
	c.GenerationHandler = generation.NewHandlerImpl(generationService, logger)
	c.RebalanceHandler = rebalance.NewHandlerImpl(rebalanceService, logger)
	c.RecommendationHandler = recommendation.NewHandlerImpl(recommendationService, logger)
	return c, nil
}

func (c *Container) initStorage(ctx context.Context) error {
	switch c.Config.Storage.Driver {
	case "memory":
		c.Logger.Warn("Using in-memory storage, trips are lost on restart")
		c.Trips = trip.NewMemoryRepository()
		c.Places = recommendation.NewMemoryPlaceRepository()
		return nil
	case "", "postgres":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Config.Storage.Driver)
	}

	dbConfig, err := database.NewDatabaseConfig(c.Config, c.Logger)
	if err != nil {
		c.Logger.Error("Failed to generate database config", slog.Any("error", err))
		return err
	}
	if err := database.RunMigrations(dbConfig.ConnectionURL, c.Logger); err != nil {
		c.Logger.Error("Failed to run database migrations", slog.Any("error", err))
		return err
	}
	pool, err := database.Init(ctx, dbConfig, c.Logger)
	if err != nil {
		return err
	}
	c.Pool = pool
	if err := database.WaitForDB(ctx, pool, dbConfig.ConnectAttempts, c.Logger); err != nil {
		return err
	}
	c.Trips = trip.NewRepository(pool, c.Logger)
	c.Places = recommendation.NewPlaceRepository(pool, c.Logger)
	return nil
}

func (c *Container) buildProposer(ctx context.Context, pool proposer.PoolSource) proposer.Proposer {
	cfg := c.Config.Proposer
	fallback := proposer.NewPoolProposer(pool, cfg.MaxCandidates, c.Logger)
	if cfg.Driver == "pool" {
		return fallback
	}
	client, err := proposer.NewAIClient(ctx, cfg.APIKey, cfg.Model)
	if err != nil {
		c.Logger.Warn("Gemini proposer unavailable, proposing from city pools", slog.Any("error", err))
		return fallback
	}
	return proposer.NewGeminiProposer(client, cfg, c.Logger)
}

func (c *Container) buildEnricher() enrichment.Enricher {
	cfg := c.Config.Enrichment
	var e enrichment.Enricher
	switch cfg.Driver {
	case "none":
		return enrichment.NopEnricher{}
	case "http":
		e = enrichment.NewHTTPEnricher(cfg, c.Logger)
	default:
		e = enrichment.NewStoreEnricher(c.Places)
	}
	if cfg.CacheSize > 0 {
		e = enrichment.NewCachedEnricher(e, cfg.CacheSize, cfg.CacheTTL)
	}
	return e
}

func (c *Container) buildNotifier() notify.Notifier {
	rc := c.Config.Repositories.Redis
	if rc.Host == "" {
		return notify.NewLogNotifier(c.Logger)
	}
	c.Redis = redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(rc.Host, rc.Port),
		Password: rc.Password,
		DB:       rc.DB,
	})
	return notify.NewRedisNotifier(c.Redis, rc.Channel, c.Logger)
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Warn("Failed to close redis client", slog.Any("error", err))
		}
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}
