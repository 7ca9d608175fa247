package proposer

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

var _ Proposer = (*PoolProposer)(nil)

// PoolSource is the part of the recommendation service the pool proposer reads.
type PoolSource interface {
	CityPool(ctx context.Context, cityID string) ([]types.CandidateActivity, error)
}

// PoolProposer proposes the stored place pool of the trip's city. It needs no
// external model and is used for local runs and as the meal top-up source.
type PoolProposer struct {
	pool          PoolSource
	maxCandidates int
	logger        *slog.Logger
}

func NewPoolProposer(pool PoolSource, maxCandidates int, logger *slog.Logger) *PoolProposer {
	return &PoolProposer{pool: pool, maxCandidates: maxCandidates, logger: logger}
}

func (p *PoolProposer) Propose(ctx context.Context, req ProposalRequest) (Proposal, error) {
	ctx, span := otel.Tracer("PoolProposer").Start(ctx, "Propose", trace.WithAttributes(
		attribute.String("city.id", req.CityID),
	))
	defer span.End()

	pool, err := p.pool.CityPool(ctx, req.CityID)
	if err != nil {
		span.RecordError(err)
		return Proposal{}, fmt.Errorf("%w: loading place pool for %s: %v", types.ErrProposerFailure, req.CityID, err)
	}
	if len(pool) == 0 {
		return Proposal{}, fmt.Errorf("%w: no places stored for city %q", types.ErrProposerFailure, req.CityID)
	}
	p.logger.DebugContext(ctx, "Proposing from place pool", slog.String("cityID", req.CityID), slog.Int("places", len(pool)))
	return Proposal{Candidates: limit(slices.Clone(pool), p.maxCandidates)}, nil
}
