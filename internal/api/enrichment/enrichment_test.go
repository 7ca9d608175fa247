package enrichment

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-itinerary-planner/config"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

type MockEnricher struct {
	mock.Mock
}

func (m *MockEnricher) Details(ctx context.Context, placeRef string) (*types.PlaceDetails, error) {
	args := m.Called(ctx, placeRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.PlaceDetails), args.Error(1)
}

func newTestHTTPEnricher(baseURL string) *HTTPEnricher {
	e := NewHTTPEnricher(config.EnrichmentConfig{BaseURL: baseURL + "/", Timeout: time.Second, Attempts: 3, APIKey: "secret"},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	e.retryDelay = time.Millisecond
	return e
}

func TestHTTPEnricher_Details(t *testing.T) {
	ctx := context.Background()

	t.Run("fetches and decodes", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/places/ChIJ%2Fabc", r.URL.EscapedPath())
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"website":"https://example.pt","price_tier":2,"opening_hours":[{"weekday":1,"open":"10:00","close":"18:00"}]}`))
		}))
		defer srv.Close()

		d, err := newTestHTTPEnricher(srv.URL).Details(ctx, "ChIJ/abc")
		require.NoError(t, err)
		assert.Equal(t, "https://example.pt", d.Website)
		assert.Equal(t, 2, d.PriceTier)
		require.Len(t, d.OpeningHours, 1)
		assert.Equal(t, types.NewClock(18, 0), d.OpeningHours[0].Close)
	})

	t.Run("retries server errors", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(`{"phone":"+351 21 000 0000"}`))
		}))
		defer srv.Close()

		d, err := newTestHTTPEnricher(srv.URL).Details(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, "+351 21 000 0000", d.Phone)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("not found is final", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := newTestHTTPEnricher(srv.URL).Details(ctx, "missing")
		assert.ErrorIs(t, err, types.ErrNotFound)
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestCachedEnricher(t *testing.T) {
	ctx := context.Background()
	next := new(MockEnricher)
	next.On("Details", mock.Anything, "known").Return(&types.PlaceDetails{Website: "https://known.example"}, nil).Once()
	next.On("Details", mock.Anything, "unknown").Return(nil, types.ErrNotFound).Twice()

	c := NewCachedEnricher(next, 100, time.Minute)
	for range 3 {
		d, err := c.Details(ctx, "known")
		require.NoError(t, err)
		assert.Equal(t, "https://known.example", d.Website)
	}
	for range 2 {
		_, err := c.Details(ctx, "unknown")
		assert.ErrorIs(t, err, types.ErrNotFound)
	}
	next.AssertExpectations(t)

	c.Invalidate("known")
	next.On("Details", mock.Anything, "known").Return(&types.PlaceDetails{Website: "https://moved.example"}, nil).Once()
	d, err := c.Details(ctx, "known")
	require.NoError(t, err)
	assert.Equal(t, "https://moved.example", d.Website)
}

type stubSource map[string]*types.PlaceDetails

func (s stubSource) DetailsByRef(_ context.Context, ref string) (*types.PlaceDetails, error) {
	if d, ok := s[ref]; ok {
		return d, nil
	}
	return nil, types.ErrNotFound
}

func TestStoreEnricher(t *testing.T) {
	e := NewStoreEnricher(stubSource{"p1": {Summary: "A tiled palace"}})
	d, err := e.Details(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "A tiled palace", d.Summary)

	_, err = e.Details(context.Background(), "p2")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestFill(t *testing.T) {
	hours := types.OpeningHours{{Weekday: time.Monday, Open: types.NewClock(9, 0), Close: types.NewClock(17, 0)}}
	d := &types.PlaceDetails{OpeningHours: hours, PriceTier: 3, Rating: 4.2, ReviewCount: 800}

	bare := types.CandidateActivity{ID: "x", Name: "X"}
	assert.True(t, NeedsDetails(bare))
	filled := Fill(bare, d)
	assert.Equal(t, hours, filled.OpeningHours)
	assert.Equal(t, 3, filled.PriceTier)
	assert.Equal(t, 4.2, filled.Rating)
	assert.Equal(t, 800, filled.ReviewCount)
	assert.False(t, NeedsDetails(filled))

	known := types.CandidateActivity{ID: "y", Name: "Y", PriceTier: 1, Rating: 3.9, ReviewCount: 10}
	kept := Fill(known, d)
	assert.Equal(t, 1, kept.PriceTier)
	assert.Equal(t, 3.9, kept.Rating)
	assert.Equal(t, 10, kept.ReviewCount)

	assert.Equal(t, bare, Fill(bare, nil))
	assert.Equal(t, "y", RefFor(known))
	assert.Equal(t, "ref", RefFor(types.CandidateActivity{ID: "z", PlaceRef: "ref"}))
}
