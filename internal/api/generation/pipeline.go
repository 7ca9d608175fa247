package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-itinerary-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-itinerary-planner/config"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/enrichment"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/notify"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/proposer"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/recommendation"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/scheduler"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/trip"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

// Progress checkpoints written as the pipeline advances.
const (
	progressProposed  = 10
	progressValidated = 25
	progressEnriched  = 40
	progressMeals     = 45
	progressScheduled = 60
	progressBasic     = 75
	progressDetails   = 90
	progressComplete  = 100
)

var errStaleTask = errors.New("task no longer owns the trip")

var _ Runner = (*Pipeline)(nil)

// Dependencies are the collaborators a pipeline run needs. Pool and Enricher
// are optional.
type Dependencies struct {
	Repo      trip.Repository
	Proposer  proposer.Proposer
	Pool      proposer.PoolSource
	Enricher  enrichment.Enricher
	Scorer    *recommendation.Scorer
	Scheduler *scheduler.Scheduler
	Notifier  notify.Notifier
}

// Pipeline runs one generation attempt from proposal to a complete trip.
type Pipeline struct {
	deps       Dependencies
	cfg        config.GenerationConfig
	retryDelay time.Duration
	logger     *slog.Logger
}

func NewPipeline(deps Dependencies, cfg config.GenerationConfig, logger *slog.Logger) *Pipeline {
	if deps.Enricher == nil {
		deps.Enricher = enrichment.NopEnricher{}
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.NewLogNotifier(logger)
	}
	if cfg.DetailConcurrency <= 0 {
		cfg.DetailConcurrency = 4
	}
	if cfg.StatusWriteAttempts == 0 {
		cfg.StatusWriteAttempts = 5
	}
	return &Pipeline{
		deps:       deps,
		cfg:        cfg,
		retryDelay: 200 * time.Millisecond,
		logger:     logger.With(slog.String("component", "generation_pipeline")),
	}
}

// Run executes the task and always leaves the trip in basic_ready, complete or
// error, unless a newer attempt has taken the trip over.
func (p *Pipeline) Run(ctx context.Context, task Task) {
	defer task.Lease.Release()

	ctx, span := otel.Tracer("GenerationPipeline").Start(ctx, "Run",
		trace.WithLinks(trace.Link{SpanContext: task.SpanContext}),
		trace.WithAttributes(
			attribute.String("trip.id", task.TripID.String()),
			attribute.String("task.id", task.ID),
			attribute.Int("attempt", task.Attempt),
		))
	defer span.End()
	l := p.logger.With(slog.String("task", task.ID), slog.String("tripID", task.TripID.String()), slog.Int("attempt", task.Attempt))

	start := time.Now()
	err := p.execute(ctx, task, l)

	outcome := string(types.TripStatusComplete)
	switch {
	case errors.Is(err, errStaleTask):
		outcome = "stale"
		l.InfoContext(ctx, "Generation task superseded, nothing written")
	case err != nil:
		outcome = string(types.CodeFor(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
	default:
		span.SetStatus(codes.Ok, "trip complete")
		l.InfoContext(ctx, "Generation finished", slog.Duration("took", time.Since(start)))
	}
	m := metrics.Get()
	m.GenerationRunsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	m.GenerationDurationSeconds.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (p *Pipeline) execute(ctx context.Context, task Task, l *slog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			l.ErrorContext(ctx, "Generation task panicked", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
			err = fmt.Errorf("%w: panic: %v", types.ErrSchedulingFailure, r)
		}
		if err != nil && !errors.Is(err, errStaleTask) {
			l.ErrorContext(ctx, "Generation failed", slog.Any("error", err))
			p.fail(ctx, task, err, l)
		}
	}()

	t, err := p.deps.Repo.LoadTrip(ctx, task.TripID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return errStaleTask
		}
		return fmt.Errorf("%w: loading trip: %v", types.ErrPersistenceFailure, err)
	}
	if stale(t, task) {
		return errStaleTask
	}
	return p.generate(ctx, t, task, l)
}

func (p *Pipeline) generate(ctx context.Context, t *types.Trip, task Task, l *slog.Logger) error {
	prefs := t.Preferences.Normalize()

	proposal, err := p.deps.Proposer.Propose(ctx, proposer.ProposalRequest{
		Destination: t.Destination,
		CityID:      t.CityID,
		DateRange:   t.DateRange,
		Profile:     prefs,
		Attempt:     task.Attempt,
	})
	if err != nil {
		if !errors.Is(err, types.ErrProposerFailure) {
			err = fmt.Errorf("%w: %v", types.ErrProposerFailure, err)
		}
		return err
	}
	if err := p.progress(ctx, t, progressProposed, l); err != nil {
		return err
	}

	candidates, invalid := proposer.Validate(proposal.Candidates)
	invalid = append(proposal.Rejected, invalid...)
	if len(candidates) == 0 {
		return fmt.Errorf("%w: none of the %d proposed candidates is usable", types.ErrProposerFailure, len(invalid))
	}
	if len(invalid) > 0 {
		l.WarnContext(ctx, "Dropped invalid candidates", slog.Int("invalid", len(invalid)))
	}
	if err := p.progress(ctx, t, progressValidated, l); err != nil {
		return err
	}

	candidates = p.fillMissing(ctx, candidates, l)
	if err := p.progress(ctx, t, progressEnriched, l); err != nil {
		return err
	}

	candidates = p.topUpMeals(ctx, t, prefs, candidates, l)
	if err := p.progress(ctx, t, progressMeals, l); err != nil {
		return err
	}

	ranked, excluded := p.deps.Scorer.Rank(candidates, prefs, recommendation.ScoringContext{})
	result, err := p.deps.Scheduler.Schedule(t.DateRange, ranked, nil, prefs)
	if err != nil {
		return err
	}
	if err := p.progress(ctx, t, progressScheduled, l); err != nil {
		return err
	}

	t.Scheduled = result.Scheduled
	t.Unscheduled = append(append(result.Unscheduled, excluded...), invalid...)
	t.Status = types.TripStatusBasicReady
	t.AdvanceProgress(progressBasic)
	if err := p.persist(ctx, t, p.deps.Repo.SaveTrip, l); err != nil {
		return err
	}
	p.publish(ctx, t, l)
	m := metrics.Get()
	m.ScheduledActivitiesTotal.Add(ctx, int64(len(t.Scheduled)))
	m.UnscheduledActivitiesTotal.Add(ctx, int64(len(t.Unscheduled)))
	l.InfoContext(ctx, "Schedule placed",
		slog.Int("scheduled", len(t.Scheduled)),
		slog.Int("unscheduled", len(t.Unscheduled)))

	p.attachDetails(ctx, t, l)
	t.AdvanceProgress(progressDetails)
	if err := p.persist(ctx, t, p.deps.Repo.SaveTrip, l); err != nil {
		return err
	}
	p.publish(ctx, t, l)

	t.Status = types.TripStatusComplete
	t.AdvanceProgress(progressComplete)
	if err := p.persist(ctx, t, p.deps.Repo.SaveStatus, l); err != nil {
		return err
	}
	p.publish(ctx, t, l)
	return nil
}

// stale reports whether a newer attempt or a finished run owns the trip.
func stale(t *types.Trip, task Task) bool {
	return t.AttemptsCount != task.Attempt || !t.Status.InFlight()
}

func (p *Pipeline) progress(ctx context.Context, t *types.Trip, pct int, l *slog.Logger) error {
	t.AdvanceProgress(pct)
	if err := p.deps.Repo.SaveStatus(ctx, t); err != nil {
		return persistenceError(err)
	}
	p.publish(ctx, t, l)
	return nil
}

// persist retries a write that moves the trip to a new status.
func (p *Pipeline) persist(ctx context.Context, t *types.Trip, write func(context.Context, *types.Trip) error, l *slog.Logger) error {
	err := retry.Do(
		func() error {
			err := write(ctx, t)
			if errors.Is(err, types.ErrVersionMismatch) || errors.Is(err, types.ErrNotFound) {
				return retry.Unrecoverable(err)
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(p.cfg.StatusWriteAttempts),
		retry.Delay(p.retryDelay),
		retry.MaxDelay(5*time.Second),
		retry.DelayType(retry.FullJitterBackoffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			l.WarnContext(ctx, "Retrying trip write", slog.Uint64("attempt", uint64(n+1)), slog.Any("error", err))
		}),
	)
	if err != nil {
		return persistenceError(err)
	}
	return nil
}

// fail records cause on the trip. It reloads the trip so a write that lost a
// version race can still land, and gives up if a newer attempt owns the trip.
func (p *Pipeline) fail(ctx context.Context, task Task, cause error, l *slog.Logger) {
	var failed *types.Trip
	err := retry.Do(
		func() error {
			t, err := p.deps.Repo.LoadTrip(ctx, task.TripID)
			if err != nil {
				if errors.Is(err, types.ErrNotFound) {
					return retry.Unrecoverable(err)
				}
				return err
			}
			if stale(t, task) {
				return retry.Unrecoverable(errStaleTask)
			}
			t.Status = types.TripStatusError
			t.Error = types.NewTripError(cause)
			if err := p.deps.Repo.SaveStatus(ctx, t); err != nil {
				return err
			}
			failed = t
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(p.cfg.StatusWriteAttempts),
		retry.Delay(p.retryDelay),
		retry.MaxDelay(5*time.Second),
		retry.DelayType(retry.FullJitterBackoffDelay),
		retry.LastErrorOnly(true),
	)
	switch {
	case errors.Is(err, errStaleTask):
		l.InfoContext(ctx, "Trip taken over by a newer attempt, error not recorded")
	case err != nil:
		l.ErrorContext(ctx, "Failed to record generation error", slog.Any("cause", cause), slog.Any("error", err))
	default:
		p.publish(ctx, failed, l)
	}
}

func (p *Pipeline) publish(ctx context.Context, t *types.Trip, l *slog.Logger) {
	if err := p.deps.Notifier.Publish(ctx, types.EventFor(t)); err != nil {
		l.WarnContext(ctx, "Trip event not delivered", slog.Any("error", err))
	}
}

// fillMissing looks up hours, price and rating for candidates that lack them.
// Lookups that fail leave the candidate as it was.
func (p *Pipeline) fillMissing(ctx context.Context, candidates []types.CandidateActivity, l *slog.Logger) []types.CandidateActivity {
	out := make([]types.CandidateActivity, len(candidates))
	copy(out, candidates)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.DetailConcurrency)
	for i, c := range candidates {
		if !enrichment.NeedsDetails(c) {
			continue
		}
		g.Go(func() error {
			d, err := p.deps.Enricher.Details(gctx, enrichment.RefFor(c))
			if err != nil {
				l.DebugContext(ctx, "No details for candidate", slog.String("candidate", c.ID), slog.Any("error", err))
				return nil
			}
			out[i] = enrichment.Fill(c, d)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// topUpMeals adds meal candidates from the city pool when the proposal has
// fewer than the flagged meals need.
func (p *Pipeline) topUpMeals(ctx context.Context, t *types.Trip, prefs types.PreferenceProfile, candidates []types.CandidateActivity, l *slog.Logger) []types.CandidateActivity {
	if p.deps.Pool == nil || prefs.MealImportance == nil || !prefs.MealImportance.Any() {
		return candidates
	}
	flagged := 0
	for _, slot := range types.MealSlots {
		if prefs.MealImportance.Wants(slot) {
			flagged++
		}
	}
	needed := max(flagged*t.DateRange.NumDays(), p.cfg.MinMealCandidates)

	have := 0
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		seen[c.ID] = true
		if c.IsMeal() {
			have++
		}
	}
	if have >= needed {
		return candidates
	}

	pool, err := p.deps.Pool.CityPool(ctx, t.CityID)
	if err != nil {
		l.WarnContext(ctx, "Meal top-up skipped", slog.Any("error", err))
		return candidates
	}
	var meals []types.CandidateActivity
	for _, c := range pool {
		if c.IsMeal() {
			meals = append(meals, c)
		}
	}
	valid, _ := proposer.Validate(meals)
	added := 0
	for _, c := range valid {
		if have+added >= needed {
			break
		}
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		candidates = append(candidates, c)
		added++
	}
	if added > 0 {
		l.InfoContext(ctx, "Topped up meal candidates from the city pool", slog.Int("added", added))
	}
	return candidates
}

// attachDetails fetches presentation details for every placed activity.
// Failures leave the activity without details.
func (p *Pipeline) attachDetails(ctx context.Context, t *types.Trip, l *slog.Logger) {
	details := make([]*types.PlaceDetails, len(t.Scheduled))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.DetailConcurrency)
	for i, a := range t.Scheduled {
		if a.Details != nil {
			continue
		}
		g.Go(func() error {
			d, err := p.deps.Enricher.Details(gctx, enrichment.RefFor(a.Candidate))
			if err != nil || d == nil {
				if err != nil {
					l.DebugContext(ctx, "No details for activity", slog.String("candidate", a.Candidate.ID), slog.Any("error", err))
				}
				return nil
			}
			cp := *d
			details[i] = &cp
			return nil
		})
	}
	_ = g.Wait()

	for i, d := range details {
		if d != nil {
			t.Scheduled[i].Details = d
		}
	}
}

func persistenceError(err error) error {
	if errors.Is(err, types.ErrPersistenceFailure) || errors.Is(err, types.ErrVersionMismatch) {
		return err
	}
	return fmt.Errorf("%w: %v", types.ErrPersistenceFailure, err)
}
