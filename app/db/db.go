package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	uuid "github.com/vgarvardt/pgx-google-uuid/v5"

	"github.com/FACorreiaa/go-itinerary-planner/config"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const (
	defaultConnectAttempts = 5
	defaultMaxConns        = 10
	defaultMaxConnIdleTime = 5 * time.Minute
)

var ErrDirtyMigration = errors.New("database migration state is dirty")

// PoolSettings are the pgxpool tunables taken from configuration. Zero
// values keep pgxpool's own defaults.
type PoolSettings struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	ConnectTimeout    time.Duration
}

type DatabaseConfig struct {
	ConnectionURL   string
	Pool            PoolSettings
	ConnectAttempts uint
}

// Pool is the subset of *pgxpool.Pool the repositories use.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ Pool = (*pgxpool.Pool)(nil)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// WaitForDB pings until the database answers, backing off between attempts.
func WaitForDB(ctx context.Context, db Pinger, attempts uint, logger *slog.Logger) error {
	if attempts == 0 {
		attempts = defaultConnectAttempts
	}
	err := retry.Do(
		func() error { return db.Ping(ctx) },
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(200*time.Millisecond),
		retry.MaxDelay(5*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.WarnContext(ctx, "Database ping failed, retrying",
				slog.Uint64("attempt", uint64(n+1)),
				slog.Uint64("max_attempts", uint64(attempts)),
				slog.Any("error", err))
		}),
	)
	if err != nil {
		logger.ErrorContext(ctx, "Database not reachable", slog.Any("error", err))
		return fmt.Errorf("database not ready after %d attempts: %w", attempts, err)
	}
	logger.InfoContext(ctx, "Database connection successful")
	return nil
}

// RunMigrations applies the embedded migrations. A dirty schema is an error:
// the service must not start against a half-applied migration.
func RunMigrations(databaseURL string, logger *slog.Logger) error {
	if !strings.HasPrefix(databaseURL, "postgres://") && !strings.HasPrefix(databaseURL, "postgresql://") {
		return errors.New("invalid database URL scheme for migrate, expected postgresql://")
	}
	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize migrate instance: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if err := errors.Join(srcErr, dbErr); err != nil {
			logger.Warn("Error closing migrate instance", slog.Any("error", err))
		}
	}()

	upErr := m.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", upErr)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		logger.Info("No migrations applied")
	case err != nil:
		logger.Warn("Could not determine migration version", slog.Any("error", err))
	case dirty:
		return fmt.Errorf("%w at version %d", ErrDirtyMigration, version)
	case errors.Is(upErr, migrate.ErrNoChange):
		logger.Info("Schema up to date", slog.Uint64("version", uint64(version)))
	default:
		logger.Info("Migrations applied", slog.Uint64("version", uint64(version)))
	}
	return nil
}

// NewDatabaseConfig builds the connection URL and pool settings from configuration.
func NewDatabaseConfig(cfg *config.Config, logger *slog.Logger) (*DatabaseConfig, error) {
	if cfg == nil || cfg.Repositories.Postgres.Host == "" {
		return nil, errors.New("postgres configuration is missing or invalid")
	}
	pg := cfg.Repositories.Postgres

	sslMode := pg.SSLMODE
	if sslMode == "" {
		sslMode = "disable"
	}
	query := url.Values{}
	query.Set("sslmode", sslMode)
	query.Set("timezone", "utc")

	connURL := url.URL{
		Scheme:   "postgresql", // migrate only accepts postgres schemes
		User:     url.UserPassword(pg.Username, pg.Password),
		Host:     fmt.Sprintf("%s:%s", pg.Host, pg.Port),
		Path:     pg.DB,
		RawQuery: query.Encode(),
	}
	logger.Info("Database connection URL generated", slog.String("host", connURL.Host), slog.String("database", connURL.Path))

	return &DatabaseConfig{
		ConnectionURL: connURL.String(),
		Pool: PoolSettings{
			MaxConns:          pg.Pool.MaxConns,
			MinConns:          pg.Pool.MinConns,
			MaxConnLifetime:   pg.Pool.MaxConnLifetime,
			MaxConnIdleTime:   pg.Pool.MaxConnIdleTime,
			HealthCheckPeriod: pg.Pool.HealthCheckPeriod,
			ConnectTimeout:    pg.Pool.ConnectTimeout,
		},
		ConnectAttempts: pg.ConnectAttempts,
	}, nil
}

// PoolConfig parses the connection URL and applies the pool settings and the
// uuid type registration.
func PoolConfig(dbCfg *DatabaseConfig, logger *slog.Logger) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(dbCfg.ConnectionURL)
	if err != nil {
		return nil, fmt.Errorf("failed parsing db config: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		uuid.Register(conn.TypeMap())
		return nil
	}

	s := dbCfg.Pool
	cfg.MaxConns = defaultMaxConns
	if s.MaxConns > 0 {
		cfg.MaxConns = s.MaxConns
	}
	if s.MinConns > 0 {
		cfg.MinConns = min(s.MinConns, cfg.MaxConns)
	}
	if s.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = s.MaxConnLifetime
	}
	cfg.MaxConnIdleTime = defaultMaxConnIdleTime
	if s.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = s.MaxConnIdleTime
	}
	if s.HealthCheckPeriod > 0 {
		cfg.HealthCheckPeriod = s.HealthCheckPeriod
	}
	if s.ConnectTimeout > 0 {
		cfg.ConnConfig.ConnectTimeout = s.ConnectTimeout
	}
	logger.Debug("Database pool configured",
		slog.Int("max_conns", int(cfg.MaxConns)),
		slog.Int("min_conns", int(cfg.MinConns)),
		slog.Duration("max_conn_lifetime", cfg.MaxConnLifetime),
		slog.Duration("max_conn_idle_time", cfg.MaxConnIdleTime))
	return cfg, nil
}

// Init creates the pgxpool connection pool.
func Init(ctx context.Context, dbCfg *DatabaseConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	cfg, err := PoolConfig(dbCfg, logger)
	if err != nil {
		logger.Error("Failed to parse database config", slog.Any("error", err))
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		logger.Error("Failed to create database connection pool", slog.Any("error", err))
		return nil, fmt.Errorf("failed creating db pool: %w", err)
	}
	logger.Info("Database connection pool initialized", slog.Int("max_conns", int(cfg.MaxConns)))
	return pool, nil
}
