package proposer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/FACorreiaa/go-itinerary-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-itinerary-planner/config"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

var _ Proposer = (*GeminiProposer)(nil)

var errEmptyProposal = errors.New("model returned no activities")

type proposalResponse struct {
	Activities []json.RawMessage `json:"activities"`
}

// GeminiProposer asks a generative model for candidate places. Calls are
// throttled by a token bucket and retried with full-jitter backoff.
type GeminiProposer struct {
	generator  ContentGenerator
	limiter    *rate.Limiter
	cfg        config.ProposerConfig
	retryDelay time.Duration
	logger     *slog.Logger
}

func NewGeminiProposer(generator ContentGenerator, cfg config.ProposerConfig, logger *slog.Logger) *GeminiProposer {
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = 40
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &GeminiProposer{
		generator:  generator,
		limiter:    rate.NewLimiter(limit, max(cfg.Burst, 1)),
		cfg:        cfg,
		retryDelay: 500 * time.Millisecond,
		logger:     logger,
	}
}

func (p *GeminiProposer) Propose(ctx context.Context, req ProposalRequest) (Proposal, error) {
	ctx, span := otel.Tracer("GeminiProposer").Start(ctx, "Propose", trace.WithAttributes(
		attribute.String("destination", req.Destination),
		attribute.Int("attempt", req.Attempt),
	))
	defer span.End()
	l := p.logger.With(slog.String("method", "Propose"), slog.String("destination", req.Destination))

	prompt := itineraryCandidatesPrompt(req, p.cfg.MaxCandidates)
	temperature := p.cfg.Temperature
	genCfg := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
	}

	var proposal Proposal
	err := retry.Do(
		func() error {
			if err := p.limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(err)
			}
			text, err := p.generator.GenerateContent(ctx, prompt, genCfg)
			if err != nil {
				return err
			}
			var resp proposalResponse
			if err := json.Unmarshal([]byte(cleanJSONResponse(text)), &resp); err != nil {
				return fmt.Errorf("failed to parse model response: %w", err)
			}
			if len(resp.Activities) == 0 {
				return errEmptyProposal
			}
			proposal = DecodeActivities(resp.Activities)
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(p.cfg.Attempts),
		retry.Delay(p.retryDelay),
		retry.MaxDelay(10*time.Second),
		retry.DelayType(retry.FullJitterBackoffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			l.WarnContext(ctx, "Retrying proposer call", slog.Uint64("attempt", uint64(n+1)), slog.Any("error", err))
			metrics.Get().ProposerRetriesTotal.Add(ctx, 1)
		}),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "proposer failed")
		return Proposal{}, fmt.Errorf("%w: %v", types.ErrProposerFailure, err)
	}

	span.SetAttributes(
		attribute.Int("candidates", len(proposal.Candidates)),
		attribute.Int("rejected", len(proposal.Rejected)),
	)
	span.SetStatus(codes.Ok, "candidates proposed")
	if len(proposal.Rejected) > 0 {
		l.WarnContext(ctx, "Model returned undecodable activities", slog.Int("rejected", len(proposal.Rejected)))
	}
	l.InfoContext(ctx, "Model proposed candidates", slog.Int("count", len(proposal.Candidates)))
	proposal.Candidates = limit(proposal.Candidates, p.cfg.MaxCandidates)
	return proposal, nil
}

// cleanJSONResponse strips markdown fences and any prose around the JSON object.
func cleanJSONResponse(response string) string {
	response = strings.TrimSpace(response)
	if strings.HasPrefix(response, "```json") {
		response = strings.TrimPrefix(response, "```json")
	} else if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
	}
	response = strings.TrimSpace(strings.TrimSuffix(response, "```"))

	first := strings.Index(response, "{")
	last := strings.LastIndex(response, "}")
	if first == -1 || last <= first {
		return response
	}
	return response[first : last+1]
}
