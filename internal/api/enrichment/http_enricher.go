package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-itinerary-planner/config"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

var _ Enricher = (*HTTPEnricher)(nil)

// HTTPEnricher fetches details from a place-details service at
// GET {baseURL}/places/{ref}.
type HTTPEnricher struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	attempts   uint
	retryDelay time.Duration
	logger     *slog.Logger
}

func NewHTTPEnricher(cfg config.EnrichmentConfig, logger *slog.Logger) *HTTPEnricher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	attempts := cfg.Attempts
	if attempts == 0 {
		attempts = 3
	}
	return &HTTPEnricher{
		client:     &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		attempts:   attempts,
		retryDelay: 200 * time.Millisecond,
		logger:     logger,
	}
}

func (e *HTTPEnricher) Details(ctx context.Context, placeRef string) (*types.PlaceDetails, error) {
	ctx, span := otel.Tracer("HTTPEnricher").Start(ctx, "Details", trace.WithAttributes(
		attribute.String("place.ref", placeRef),
	))
	defer span.End()

	endpoint := e.baseURL + "/places/" + url.PathEscape(placeRef)
	var details types.PlaceDetails
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("Accept", "application/json")
			if e.apiKey != "" {
				req.Header.Set("Authorization", "Bearer "+e.apiKey)
			}
			resp, err := e.client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusNotFound:
				return retry.Unrecoverable(fmt.Errorf("place %s: %w", placeRef, types.ErrNotFound))
			case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
				return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
			case resp.StatusCode != http.StatusOK:
				return retry.Unrecoverable(fmt.Errorf("HTTP %d from place details service", resp.StatusCode))
			}
			if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
				return retry.Unrecoverable(fmt.Errorf("failed to decode place details: %w", err))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(e.attempts),
		retry.Delay(e.retryDelay),
		retry.MaxDelay(5*time.Second),
		retry.DelayType(retry.FullJitterBackoffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			e.logger.DebugContext(ctx, "Retrying place details fetch", slog.Uint64("attempt", uint64(n+1)), slog.String("ref", placeRef), slog.Any("error", err))
		}),
	)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &details, nil
}
