package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	appMiddleware "github.com/FACorreiaa/go-itinerary-planner/app/middleware"
	"github.com/FACorreiaa/go-itinerary-planner/config"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/proposer"
	"github.com/FACorreiaa/go-itinerary-planner/internal/container"
	"github.com/FACorreiaa/go-itinerary-planner/internal/router"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

type fixedProposer []types.CandidateActivity

func (f fixedProposer) Propose(context.Context, proposer.ProposalRequest) (proposer.Proposal, error) {
	return proposer.Proposal{Candidates: append([]types.CandidateActivity(nil), f...)}, nil
}

func lisbonSights() []types.CandidateActivity {
	return []types.CandidateActivity{
		{ID: "gulbenkian", Name: "Gulbenkian Museum", Category: "museum", DurationMinutes: 120, Rating: 4.7, ReviewCount: 12000, PriceTier: 2, Tags: []string{"art"}},
		{ID: "belem", Name: "Belem Tower", Category: "landmark", DurationMinutes: 60, Rating: 4.5, ReviewCount: 80000, PriceTier: 2, Tags: []string{"history"}},
		{ID: "alfama", Name: "Alfama Walk", Category: "neighbourhood", DurationMinutes: 90, Rating: 4.6, ReviewCount: 5000, PriceTier: 1},
		{ID: "oceanario", Name: "Oceanario", Category: "aquarium", DurationMinutes: 150, Rating: 4.6, ReviewCount: 60000, PriceTier: 3},
		{ID: "lx-factory", Name: "LX Factory", Category: "market", DurationMinutes: 90, Rating: 4.4, ReviewCount: 20000, PriceTier: 2, Tags: []string{"shopping"}},
	}
}

func lisbonRestaurants() []types.CandidateActivity {
	return []types.CandidateActivity{
		{ID: "taberna", Name: "Taberna da Rua", Category: "restaurant", Rating: 4.6, ReviewCount: 900, PriceTier: 2, Tags: []string{"portuguese"}},
		{ID: "cervejaria", Name: "Cervejaria Ramiro", Category: "restaurant", Rating: 4.5, ReviewCount: 15000, PriceTier: 3, Tags: []string{"seafood"}},
		{ID: "churrasqueira", Name: "Churrasqueira", Category: "restaurant", Rating: 4.4, ReviewCount: 2000, PriceTier: 1, Tags: []string{"steakhouse"}},
		{ID: "ao-26", Name: "Ao 26 Vegan Food Project", Category: "restaurant", Rating: 4.7, ReviewCount: 3000, PriceTier: 2, Tags: []string{"vegan", "vegetarian"}},
		{ID: "time-out", Name: "Time Out Market", Category: "food", Rating: 4.4, ReviewCount: 40000, PriceTier: 2},
	}
}

// E2ETestSuite drives the HTTP API end to end on in-memory storage.
type E2ETestSuite struct {
	suite.Suite
	container *container.Container
	server    *httptest.Server
	client    *http.Client
}

func (s *E2ETestSuite) SetupSuite() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{}
	cfg.Storage.Driver = "memory"
	cfg.Enrichment.Driver = "store"
	cfg.Enrichment.CacheSize = 100
	cfg.Enrichment.CacheTTL = time.Minute
	cfg.Generation = config.GenerationConfig{
		MaxRetryAttempts:    3,
		Workers:             2,
		QueueSize:           8,
		MinMealCandidates:   2,
		DetailConcurrency:   2,
		StatusWriteAttempts: 2,
	}
	cfg.Scheduler.MaxTripDays = 14

	ctx := context.Background()
	c, err := container.NewContainer(ctx, cfg, logger, container.WithProposer(fixedProposer(lisbonSights())))
	s.Require().NoError(err)
	_, err = c.Places.SavePlaces(ctx, "lisbon", append(lisbonSights(), lisbonRestaurants()...))
	s.Require().NoError(err)
	c.Workers.Start(ctx)
	s.container = c

	mux := chi.NewMux()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)
	mux.Mount("/", router.SetupRouter(&router.Config{
		TripHandler:            c.TripHandler,
		GenerationHandler:      c.GenerationHandler,
		RebalanceHandler:       c.RebalanceHandler,
		RecommendationHandler:  c.RecommendationHandler,
		AuthenticateMiddleware: appMiddleware.Anonymous,
	}))
	s.server = httptest.NewServer(mux)
	s.client = &http.Client{Timeout: 10 * time.Second}
}

func (s *E2ETestSuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
	if s.container != nil {
		s.container.Workers.Stop()
		s.container.Close()
	}
}

func (s *E2ETestSuite) do(method, path string, body interface{}, out interface{}) int {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.server.URL+"/api/v1"+path, reader)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (s *E2ETestSuite) createTrip(days int) types.Trip {
	start := types.NewDate(2025, time.June, 2)
	var tr types.Trip
	code := s.do(http.MethodPost, "/trips", types.CreateTripRequest{
		Destination: "Lisbon",
		StartDate:   start,
		EndDate:     start.AddDays(days - 1),
	}, &tr)
	s.Require().Equal(http.StatusCreated, code)
	s.Require().Equal(types.TripStatusDraft, tr.Status)
	return tr
}

func (s *E2ETestSuite) waitForStatus(tr types.Trip, want types.TripStatus) types.Trip {
	var got types.Trip
	s.Require().Eventually(func() bool {
		got = types.Trip{}
		if s.do(http.MethodGet, "/trips/"+tr.ID.String(), nil, &got) != http.StatusOK {
			return false
		}
		return got.Status == want
	}, 5*time.Second, 20*time.Millisecond, "trip never reached %s", want)
	return got
}

func (s *E2ETestSuite) TestGenerateEditRebalanceRegenerate() {
	t := s.T()
	tr := s.createTrip(2)

	var queued types.Trip
	prefs := types.PreferenceProfile{DietaryRestrictions: []string{"vegetarian"}, EnergyLevel: 2}
	code := s.do(http.MethodPost, "/trips/"+tr.ID.String()+"/generate", types.StartGenerationRequest{Preferences: &prefs}, &queued)
	require.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, types.TripStatusGenerating, queued.Status)
	assert.Equal(t, 1, queued.AttemptsCount)

	done := s.waitForStatus(tr, types.TripStatusComplete)
	assert.Equal(t, 100, done.Progress)
	require.NotEmpty(t, done.Scheduled)

	meals := 0
	for _, a := range done.Scheduled {
		assert.True(t, done.DateRange.Contains(a.Date))
		assert.NotEqual(t, "churrasqueira", a.Candidate.ID, "vegetarian trips skip steakhouses")
		if a.Slot.IsMeal() {
			meals++
		}
	}
	assert.Positive(t, meals, "lunch and dinner come from the city pool")

	target := done.Scheduled[0]
	var edited types.Trip
	code = s.do(http.MethodPatch, "/trips/"+tr.ID.String()+"/activities/"+target.ID.String(),
		map[string]string{"start": "07:30"}, &edited)
	require.Equal(t, http.StatusOK, code)

	var rebalanced types.Trip
	code = s.do(http.MethodPost, "/trips/"+tr.ID.String()+"/rebalance", nil, &rebalanced)
	require.Equal(t, http.StatusOK, code)
	var kept *types.ScheduledActivity
	for i := range rebalanced.Scheduled {
		if rebalanced.Scheduled[i].ID == target.ID {
			kept = &rebalanced.Scheduled[i]
		}
	}
	require.NotNil(t, kept, "locked activity survives rebalance")
	assert.True(t, kept.Locked)
	assert.Equal(t, "07:30", kept.Start.String())
	assert.NotNil(t, rebalanced.LastRebalancedAt)

	code = s.do(http.MethodPost, "/trips/"+tr.ID.String()+"/regenerate", nil, &queued)
	require.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, 2, queued.AttemptsCount)
	assert.Empty(t, queued.Scheduled)

	again := s.waitForStatus(tr, types.TripStatusComplete)
	assert.Equal(t, 2, again.AttemptsCount)
	for _, a := range again.Scheduled {
		assert.False(t, a.Locked, "regenerate starts from a clean slate")
	}
}

func (s *E2ETestSuite) TestRejectedRequests() {
	t := s.T()

	code := s.do(http.MethodPost, "/trips", map[string]string{"destination": "Lisbon", "start_date": "2025-06-04", "end_date": "2025-06-02"}, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	tr := s.createTrip(1)
	code = s.do(http.MethodPost, "/trips/"+tr.ID.String()+"/rebalance", nil, nil)
	assert.Equal(t, http.StatusConflict, code, "drafts cannot be rebalanced")

	code = s.do(http.MethodPost, "/trips/"+tr.ID.String()+"/generate", map[string]interface{}{
		"preferences": map[string]interface{}{"energy_level": 7},
	}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code = s.do(http.MethodGet, "/trips/00000000-0000-0000-0000-000000000000", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func (s *E2ETestSuite) TestRecommendations() {
	t := s.T()
	var resp types.RecommendationResponse
	code := s.do(http.MethodPost, "/cities/lisbon/recommendations", types.RecommendationRequest{
		Preferences:     &types.PreferenceProfile{DietaryRestrictions: []string{"vegan"}, Interests: []string{"art"}},
		IncludeExcluded: true,
	}, &resp)
	require.Equal(t, http.StatusOK, code)
	require.NotEmpty(t, resp.Ranked)

	for i := 1; i < len(resp.Ranked); i++ {
		assert.GreaterOrEqual(t, resp.Ranked[i-1].Score, resp.Ranked[i].Score)
	}
	excluded := make([]string, 0, len(resp.Excluded))
	for _, e := range resp.Excluded {
		excluded = append(excluded, e.Candidate.ID)
	}
	assert.Contains(t, excluded, "churrasqueira")
}

func TestE2E(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping end-to-end tests in short mode")
	}
	suite.Run(t, new(E2ETestSuite))
}
