package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	GenerationRunsTotal        metric.Int64Counter
	GenerationDurationSeconds  metric.Float64Histogram
	ScheduledActivitiesTotal   metric.Int64Counter
	UnscheduledActivitiesTotal metric.Int64Counter
	RebalanceRunsTotal         metric.Int64Counter
	RecommendationRequests     metric.Int64Counter
	ProposerRetriesTotal       metric.Int64Counter
	EnrichmentLookupsTotal     metric.Int64Counter
	GenerationQueueRejections  metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments ONLY ONCE,
// from the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("ItineraryPlanner")
		m := &AppMetrics{}

		m.GenerationRunsTotal = counter(meter, "generation_runs_total", "Generation attempts finished, by outcome", "{run}")
		m.GenerationDurationSeconds = histogram(meter, "generation_duration_seconds", "Wall time of a generation pipeline run")
		m.ScheduledActivitiesTotal = counter(meter, "scheduled_activities_total", "Activities placed by the scheduler", "{activity}")
		m.UnscheduledActivitiesTotal = counter(meter, "unscheduled_activities_total", "Candidates left unscheduled, by reason", "{activity}")
		m.RebalanceRunsTotal = counter(meter, "rebalance_runs_total", "Rebalance passes, by outcome", "{run}")
		m.RecommendationRequests = counter(meter, "recommendation_requests_total", "Recommendation requests served", "{request}")
		m.ProposerRetriesTotal = counter(meter, "proposer_retries_total", "Retried proposer calls", "{retry}")
		m.EnrichmentLookupsTotal = counter(meter, "enrichment_lookups_total", "Place detail lookups, by cache result", "{lookup}")
		m.GenerationQueueRejections = counter(meter, "generation_queue_rejections_total", "Generation tasks rejected by a full queue", "{task}")

		appMetrics = m
	})
}

func counter(meter metric.Meter, name, desc, unit string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	if err != nil {
		log.Fatalf("Metrics: Failed to create %s: %v", name, err)
	}
	return c
}

func histogram(meter metric.Meter, name, desc string) metric.Float64Histogram {
	h, err := meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
	if err != nil {
		log.Fatalf("Metrics: Failed to create %s: %v", name, err)
	}
	return h
}

// Get returns the global AppMetrics, initializing them against the current
// MeterProvider on first use.
func Get() *AppMetrics {
	InitAppMetrics()
	return appMetrics
}
