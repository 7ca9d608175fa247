package generation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appMiddleware "github.com/FACorreiaa/go-itinerary-planner/app/middleware"
	"github.com/FACorreiaa/go-itinerary-planner/config"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/proposer"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/recommendation"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/scheduler"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/trip"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

const owner = "user-1"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type captureQueue struct {
	mu    sync.Mutex
	tasks []Task
	err   error
}

func (q *captureQueue) Submit(task Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *captureQueue) last(t *testing.T) Task {
	t.Helper()
	q.mu.Lock()
	defer q.mu.Unlock()
	require.NotEmpty(t, q.tasks)
	return q.tasks[len(q.tasks)-1]
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []types.TripEvent
}

func (n *recordingNotifier) Publish(_ context.Context, e types.TripEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return nil
}

func (n *recordingNotifier) all() []types.TripEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]types.TripEvent(nil), n.events...)
}

type scriptedProposer func(req proposer.ProposalRequest) ([]types.CandidateActivity, error)

func (f scriptedProposer) Propose(_ context.Context, req proposer.ProposalRequest) (proposer.Proposal, error) {
	cs, err := f(req)
	return proposer.Proposal{Candidates: cs}, err
}

type fixedProposal proposer.Proposal

func (f fixedProposal) Propose(context.Context, proposer.ProposalRequest) (proposer.Proposal, error) {
	return proposer.Proposal(f), nil
}

type stubPool []types.CandidateActivity

func (s stubPool) CityPool(context.Context, string) ([]types.CandidateActivity, error) {
	return s, nil
}

type stubEnricher map[string]*types.PlaceDetails

func (s stubEnricher) Details(_ context.Context, ref string) (*types.PlaceDetails, error) {
	if d, ok := s[ref]; ok {
		return d, nil
	}
	return nil, types.ErrNotFound
}

type fixture struct {
	repo     *trip.MemoryRepository
	locks    *trip.LockRegistry
	queue    *captureQueue
	notifier *recordingNotifier
	svc      *ServiceImpl
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     trip.NewMemoryRepository(),
		locks:    trip.NewLockRegistry(),
		queue:    &captureQueue{},
		notifier: &recordingNotifier{},
	}
	f.svc = NewServiceImpl(f.repo, f.locks, f.queue, f.notifier, 3, discardLogger())
	return f
}

func (f *fixture) draft(t *testing.T, days int, prefs types.PreferenceProfile) *types.Trip {
	t.Helper()
	start := types.NewDate(2025, time.June, 2)
	tr := &types.Trip{
		UserID:      owner,
		Destination: "Lisbon",
		CityID:      "lisbon",
		DateRange:   types.DateRange{Start: start, End: start.AddDays(days - 1)},
		Preferences: prefs,
	}
	require.NoError(t, f.repo.CreateTrip(context.Background(), tr))
	return tr
}

func (f *fixture) pipeline(deps Dependencies) *Pipeline {
	deps.Repo = f.repo
	deps.Notifier = f.notifier
	if deps.Scorer == nil {
		deps.Scorer = recommendation.NewScorer(recommendation.DefaultOptions())
	}
	if deps.Scheduler == nil {
		deps.Scheduler = scheduler.New(scheduler.DefaultConfig())
	}
	p := NewPipeline(deps, config.GenerationConfig{DetailConcurrency: 2, StatusWriteAttempts: 2}, discardLogger())
	p.retryDelay = time.Millisecond
	return p
}

func sights(n int) []types.CandidateActivity {
	out := make([]types.CandidateActivity, 0, n)
	for i := range n {
		out = append(out, types.CandidateActivity{
			ID:              "sight-" + string(rune('a'+i)),
			Name:            "Sight " + string(rune('A'+i)),
			Category:        "museum",
			PlaceRef:        "ref-" + string(rune('a'+i)),
			DurationMinutes: 60,
			Rating:          4.5 - float64(i)*0.1,
			ReviewCount:     1000 - i*10,
			PriceTier:       2,
		})
	}
	return out
}

func TestService_StartGeneration(t *testing.T) {
	ctx := context.Background()

	t.Run("draft becomes generating and the task owns the lease", func(t *testing.T) {
		f := newFixture(t)
		tr := f.draft(t, 2, types.DefaultPreferenceProfile())
		prefs := types.PreferenceProfile{EnergyLevel: 3, Interests: []string{"Art", "art"}}

		got, err := f.svc.StartGeneration(ctx, owner, tr.ID, &prefs)
		require.NoError(t, err)
		assert.Equal(t, types.TripStatusGenerating, got.Status)
		assert.Equal(t, 1, got.AttemptsCount)
		assert.Equal(t, 0, got.Progress)
		assert.Equal(t, []string{"art"}, got.Preferences.Interests)

		task := f.queue.last(t)
		assert.True(t, strings.HasPrefix(task.ID, "gen_"))
		assert.Equal(t, 1, task.Attempt)
		holder, held := f.locks.Holder(tr.ID)
		require.True(t, held)
		assert.Equal(t, task.ID, holder)

		events := f.notifier.all()
		require.NotEmpty(t, events)
		assert.Equal(t, types.TripStatusGenerating, events[len(events)-1].Status)
	})

	t.Run("invalid preferences leave the trip alone", func(t *testing.T) {
		f := newFixture(t)
		tr := f.draft(t, 2, types.DefaultPreferenceProfile())
		bad := types.PreferenceProfile{PriceTier: 9}

		_, err := f.svc.StartGeneration(ctx, owner, tr.ID, &bad)
		assert.ErrorIs(t, err, types.ErrInvalidPreferences)

		stored, err := f.repo.LoadTrip(ctx, tr.ID)
		require.NoError(t, err)
		assert.Equal(t, types.TripStatusDraft, stored.Status)
		assert.Equal(t, tr.Version, stored.Version)
		_, held := f.locks.Holder(tr.ID)
		assert.False(t, held)
	})

	t.Run("refused while generating without touching activities", func(t *testing.T) {
		f := newFixture(t)
		tr := f.draft(t, 1, types.DefaultPreferenceProfile())
		tr.Status = types.TripStatusGenerating
		tr.AttemptsCount = 1
		tr.Scheduled = []types.ScheduledActivity{{
			ID: uuid.New(), Candidate: sights(1)[0], Date: tr.DateRange.Start,
			Start: types.NewClock(9, 0), End: types.NewClock(10, 0), Slot: types.SlotActivity,
		}}
		require.NoError(t, f.repo.SaveTrip(ctx, tr))

		_, err := f.svc.StartGeneration(ctx, owner, tr.ID, nil)
		assert.ErrorIs(t, err, types.ErrConflict)

		stored, err := f.repo.LoadTrip(ctx, tr.ID)
		require.NoError(t, err)
		assert.Equal(t, tr.Scheduled, stored.Scheduled)
		assert.Equal(t, 1, stored.AttemptsCount)
		assert.Empty(t, f.queue.tasks)
	})

	t.Run("refused while another task holds the trip", func(t *testing.T) {
		f := newFixture(t)
		tr := f.draft(t, 1, types.DefaultPreferenceProfile())
		lease, ok := f.locks.TryAcquire(tr.ID, "rebalance")
		require.True(t, ok)
		defer lease.Release()

		_, err := f.svc.StartGeneration(ctx, owner, tr.ID, nil)
		assert.ErrorIs(t, err, types.ErrConflict)
	})

	t.Run("finished trips must be regenerated", func(t *testing.T) {
		f := newFixture(t)
		tr := f.draft(t, 1, types.DefaultPreferenceProfile())
		tr.Status = types.TripStatusComplete
		require.NoError(t, f.repo.SaveStatus(ctx, tr))

		_, err := f.svc.StartGeneration(ctx, owner, tr.ID, nil)
		assert.ErrorIs(t, err, types.ErrInvalidTransition)
	})

	t.Run("full queue records a retryable error", func(t *testing.T) {
		f := newFixture(t)
		f.queue.err = types.ErrQueueUnavailable
		tr := f.draft(t, 1, types.DefaultPreferenceProfile())

		_, err := f.svc.StartGeneration(ctx, owner, tr.ID, nil)
		assert.ErrorIs(t, err, types.ErrQueueUnavailable)

		stored, err := f.repo.LoadTrip(ctx, tr.ID)
		require.NoError(t, err)
		assert.Equal(t, types.TripStatusError, stored.Status)
		require.NotNil(t, stored.Error)
		assert.Equal(t, types.CodeQueueUnavailable, stored.Error.Code)
		assert.True(t, stored.Error.Retryable)
		_, held := f.locks.Holder(tr.ID)
		assert.False(t, held)
	})

	t.Run("other users cannot start it", func(t *testing.T) {
		f := newFixture(t)
		tr := f.draft(t, 1, types.DefaultPreferenceProfile())
		_, err := f.svc.StartGeneration(ctx, "intruder", tr.ID, nil)
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestService_Regenerate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tr := f.draft(t, 1, types.DefaultPreferenceProfile())
	failing := f.pipeline(Dependencies{Proposer: scriptedProposer(func(proposer.ProposalRequest) ([]types.CandidateActivity, error) {
		return nil, errors.New("model unavailable")
	})})

	_, err := f.svc.StartGeneration(ctx, owner, tr.ID, nil)
	require.NoError(t, err)
	failing.Run(ctx, f.queue.last(t))

	attempts := []int{1}
	for {
		got, err := f.svc.Regenerate(ctx, owner, tr.ID)
		if err != nil {
			assert.ErrorIs(t, err, types.ErrRetryBudgetExhausted)
			break
		}
		assert.Empty(t, got.Scheduled)
		attempts = append(attempts, got.AttemptsCount)
		failing.Run(ctx, f.queue.last(t))
	}
	assert.Equal(t, []int{1, 2, 3}, attempts)

	stored, err := f.repo.LoadTrip(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, types.TripStatusError, stored.Status)
	assert.Equal(t, 3, stored.AttemptsCount)
	require.NotNil(t, stored.Error)
	assert.Equal(t, types.CodeRetryBudgetExhausted, stored.Error.Code)
	assert.False(t, stored.Error.Retryable)

	_, err = f.svc.Regenerate(ctx, owner, tr.ID)
	assert.ErrorIs(t, err, types.ErrRetryBudgetExhausted)
}

func TestService_RegenerateRecoversAbandonedTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tr := f.draft(t, 1, types.DefaultPreferenceProfile())
	tr.Status = types.TripStatusGenerating
	tr.AttemptsCount = 1
	tr.Progress = 40
	require.NoError(t, f.repo.SaveStatus(ctx, tr))

	got, err := f.svc.Regenerate(ctx, owner, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.AttemptsCount)
	assert.Equal(t, 0, got.Progress)
}

func TestService_RegenerateSourceStates(t *testing.T) {
	ctx := context.Background()

	t.Run("from draft", func(t *testing.T) {
		f := newFixture(t)
		tr := f.draft(t, 1, types.DefaultPreferenceProfile())
		got, err := f.svc.Regenerate(ctx, owner, tr.ID)
		require.NoError(t, err)
		assert.Equal(t, types.TripStatusGenerating, got.Status)
		assert.Equal(t, 1, got.AttemptsCount)
	})

	t.Run("from complete", func(t *testing.T) {
		f := newFixture(t)
		tr := f.draft(t, 1, types.DefaultPreferenceProfile())
		tr.Status = types.TripStatusComplete
		tr.AttemptsCount = 1
		tr.Progress = 100
		require.NoError(t, f.repo.SaveStatus(ctx, tr))

		got, err := f.svc.Regenerate(ctx, owner, tr.ID)
		require.NoError(t, err)
		assert.Equal(t, types.TripStatusGenerating, got.Status)
		assert.Equal(t, 2, got.AttemptsCount)
	})

	t.Run("not while a task holds the lease", func(t *testing.T) {
		f := newFixture(t)
		tr := f.draft(t, 1, types.DefaultPreferenceProfile())
		_, err := f.svc.StartGeneration(ctx, owner, tr.ID, nil)
		require.NoError(t, err)

		_, err = f.svc.Regenerate(ctx, owner, tr.ID)
		assert.ErrorIs(t, err, types.ErrConflict)
	})
}

func TestPipeline_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("runs to complete with monotonic progress", func(t *testing.T) {
		f := newFixture(t)
		tr := f.draft(t, 2, types.PreferenceProfile{MealImportance: &types.MealImportance{}})
		proposal := append(sights(5), types.CandidateActivity{Name: ""}, types.CandidateActivity{
			ID: "steak", Name: "Steak House", Category: "museum", Tags: []string{"steakhouse"}, Rating: 5, ReviewCount: 10,
		})
		var gotReq proposer.ProposalRequest
		p := f.pipeline(Dependencies{
			Proposer: scriptedProposer(func(req proposer.ProposalRequest) ([]types.CandidateActivity, error) {
				gotReq = req
				return proposal, nil
			}),
			Enricher: stubEnricher{"ref-a": {Website: "https://a.example"}},
		})
		prefs := types.PreferenceProfile{DietaryRestrictions: []string{"vegetarian"}, MealImportance: &types.MealImportance{}}

		_, err := f.svc.StartGeneration(ctx, owner, tr.ID, &prefs)
		require.NoError(t, err)
		task := f.queue.last(t)
		p.Run(ctx, task)

		assert.Equal(t, "Lisbon", gotReq.Destination)
		assert.Equal(t, 1, gotReq.Attempt)

		stored, err := f.repo.LoadTrip(ctx, tr.ID)
		require.NoError(t, err)
		assert.Equal(t, types.TripStatusComplete, stored.Status)
		assert.Equal(t, 100, stored.Progress)
		assert.Nil(t, stored.Error)
		assert.Len(t, stored.Scheduled, 5)

		reasons := map[types.UnscheduledReason]int{}
		for _, u := range stored.Unscheduled {
			reasons[u.Reason]++
		}
		assert.Equal(t, 1, reasons[types.ReasonInvalidCandidate])
		assert.Equal(t, 1, reasons[types.ReasonExcludedByPreferences])

		withDetails := 0
		for _, a := range stored.Scheduled {
			if a.Details != nil {
				withDetails++
				assert.Equal(t, "https://a.example", a.Details.Website)
			}
		}
		assert.Equal(t, 1, withDetails)

		last := 0
		var statuses []types.TripStatus
		for _, e := range f.notifier.all() {
			assert.GreaterOrEqual(t, e.Progress, last, "progress regressed")
			last = e.Progress
			if len(statuses) == 0 || statuses[len(statuses)-1] != e.Status {
				statuses = append(statuses, e.Status)
			}
		}
		assert.Equal(t, []types.TripStatus{types.TripStatusGenerating, types.TripStatusBasicReady, types.TripStatusComplete}, statuses)

		_, held := f.locks.Holder(tr.ID)
		assert.False(t, held, "lease released")
	})

	t.Run("proposer failure ends in a retryable error", func(t *testing.T) {
		f := newFixture(t)
		tr := f.draft(t, 1, types.DefaultPreferenceProfile())
		p := f.pipeline(Dependencies{Proposer: scriptedProposer(func(proposer.ProposalRequest) ([]types.CandidateActivity, error) {
			return []types.CandidateActivity{{Name: ""}}, nil
		})})

		_, err := f.svc.StartGeneration(ctx, owner, tr.ID, nil)
		require.NoError(t, err)
		p.Run(ctx, f.queue.last(t))

		stored, err := f.repo.LoadTrip(ctx, tr.ID)
		require.NoError(t, err)
		assert.Equal(t, types.TripStatusError, stored.Status)
		require.NotNil(t, stored.Error)
		assert.Equal(t, types.CodeProposerFailure, stored.Error.Code)
		assert.True(t, stored.Error.Retryable)
		assert.Equal(t, 10, stored.Progress)
	})

	t.Run("undecodable proposals are reported as unscheduled", func(t *testing.T) {
		f := newFixture(t)
		tr := f.draft(t, 1, types.PreferenceProfile{MealImportance: &types.MealImportance{}})
		p := f.pipeline(Dependencies{Proposer: fixedProposal{
			Candidates: sights(2),
			Rejected: []types.UnscheduledActivity{{
				Candidate: types.CandidateActivity{Name: "Pensao Amor"},
				Reason:    types.ReasonInvalidCandidate,
				Detail:    `invalid clock value "9am"`,
			}},
		}})

		_, err := f.svc.StartGeneration(ctx, owner, tr.ID, nil)
		require.NoError(t, err)
		p.Run(ctx, f.queue.last(t))

		stored, err := f.repo.LoadTrip(ctx, tr.ID)
		require.NoError(t, err)
		assert.Equal(t, types.TripStatusComplete, stored.Status)
		assert.Len(t, stored.Scheduled, 2)
		require.Len(t, stored.Unscheduled, 1)
		assert.Equal(t, "Pensao Amor", stored.Unscheduled[0].Candidate.Name)
		assert.Equal(t, types.ReasonInvalidCandidate, stored.Unscheduled[0].Reason)
	})

	t.Run("a panic is recorded as an error", func(t *testing.T) {
		f := newFixture(t)
		tr := f.draft(t, 1, types.DefaultPreferenceProfile())
		p := f.pipeline(Dependencies{Proposer: scriptedProposer(func(proposer.ProposalRequest) ([]types.CandidateActivity, error) {
			panic("boom")
		})})

		_, err := f.svc.StartGeneration(ctx, owner, tr.ID, nil)
		require.NoError(t, err)
		p.Run(ctx, f.queue.last(t))

		stored, err := f.repo.LoadTrip(ctx, tr.ID)
		require.NoError(t, err)
		assert.Equal(t, types.TripStatusError, stored.Status)
		assert.Equal(t, types.CodeSchedulingFailure, stored.Error.Code)
		assert.Contains(t, stored.Error.Message, "boom")
	})

	t.Run("a superseded task writes nothing", func(t *testing.T) {
		f := newFixture(t)
		tr := f.draft(t, 1, types.DefaultPreferenceProfile())
		var calls atomic.Int32
		p := f.pipeline(Dependencies{Proposer: scriptedProposer(func(proposer.ProposalRequest) ([]types.CandidateActivity, error) {
			calls.Add(1)
			return sights(2), nil
		})})

		_, err := f.svc.StartGeneration(ctx, owner, tr.ID, nil)
		require.NoError(t, err)
		task := f.queue.last(t)
		task.Attempt = 7

		before, err := f.repo.LoadTrip(ctx, tr.ID)
		require.NoError(t, err)
		p.Run(ctx, task)

		after, err := f.repo.LoadTrip(ctx, tr.ID)
		require.NoError(t, err)
		assert.Equal(t, before.Version, after.Version)
		assert.Equal(t, types.TripStatusGenerating, after.Status)
		assert.Equal(t, int32(0), calls.Load())
	})

	t.Run("tops up dinners from the city pool", func(t *testing.T) {
		f := newFixture(t)
		dinnerOnly := types.PreferenceProfile{MealImportance: &types.MealImportance{Dinner: true}}
		tr := f.draft(t, 3, dinnerOnly)
		restaurants := []types.CandidateActivity{
			{ID: "r1", Name: "Taberna", Category: "restaurant", Tags: []string{"dinner"}, Rating: 4.6, ReviewCount: 900},
			{ID: "r2", Name: "Cervejaria", Category: "restaurant", Tags: []string{"dinner"}, Rating: 4.5, ReviewCount: 800},
			{ID: "r3", Name: "Tasca", Category: "restaurant", Tags: []string{"dinner"}, Rating: 4.4, ReviewCount: 700},
			{ID: "r4", Name: "Bistro", Category: "restaurant", Tags: []string{"dinner"}, Rating: 4.3, ReviewCount: 600},
			{ID: "m1", Name: "Museum", Category: "museum"},
		}
		p := f.pipeline(Dependencies{
			Proposer: scriptedProposer(func(proposer.ProposalRequest) ([]types.CandidateActivity, error) {
				return sights(3), nil
			}),
			Pool: stubPool(restaurants),
		})

		_, err := f.svc.StartGeneration(ctx, owner, tr.ID, nil)
		require.NoError(t, err)
		p.Run(ctx, f.queue.last(t))

		stored, err := f.repo.LoadTrip(ctx, tr.ID)
		require.NoError(t, err)
		require.Equal(t, types.TripStatusComplete, stored.Status)

		slots := map[types.Slot]int{}
		for _, a := range stored.Scheduled {
			slots[a.Slot]++
		}
		assert.Equal(t, 3, slots[types.SlotDinner])
		assert.Zero(t, slots[types.SlotLunch])
		assert.Zero(t, slots[types.SlotBreakfast])
		for _, u := range stored.Unscheduled {
			assert.NotEqual(t, "r4", u.Candidate.ID, "only the needed dinners are added")
		}
	})
}

type countingRunner struct {
	ran atomic.Int32
}

func (r *countingRunner) Run(context.Context, Task) {
	time.Sleep(time.Millisecond)
	r.ran.Add(1)
}

func TestWorkerPool(t *testing.T) {
	t.Run("rejects when the queue is full", func(t *testing.T) {
		pool := NewWorkerPool(&countingRunner{}, 1, 1, discardLogger())
		require.NoError(t, pool.Submit(Task{ID: "gen_1"}))
		err := pool.Submit(Task{ID: "gen_2"})
		assert.ErrorIs(t, err, types.ErrQueueUnavailable)
	})

	t.Run("stop drains queued tasks", func(t *testing.T) {
		runner := &countingRunner{}
		pool := NewWorkerPool(runner, 2, 10, discardLogger())
		for i := range 10 {
			require.NoError(t, pool.Submit(Task{ID: TaskID(), Attempt: i}))
		}
		pool.Start(context.Background())
		pool.Stop()
		assert.Equal(t, int32(10), runner.ran.Load())

		assert.ErrorIs(t, pool.Submit(Task{ID: "late"}), types.ErrQueueUnavailable)
		pool.Stop()
	})
}

func TestHandler_Generation(t *testing.T) {
	f := newFixture(t)
	tr := f.draft(t, 1, types.DefaultPreferenceProfile())
	h := NewHandlerImpl(f.svc, discardLogger())

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(appMiddleware.WithUserID(req.Context(), owner)))
		})
	})
	r.Post("/trips/{tripID}/generate", h.StartGeneration)
	r.Post("/trips/{tripID}/regenerate", h.Regenerate)

	serve := func(path, body string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
		return rr
	}

	rr := serve("/trips/"+tr.ID.String()+"/generate", `{"preferences":{"price_tier":9}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = serve("/trips/"+tr.ID.String()+"/generate", "")
	assert.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())

	rr = serve("/trips/"+tr.ID.String()+"/generate", "")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "busy")

	rr = serve("/trips/"+tr.ID.String()+"/regenerate", "")
	assert.Equal(t, http.StatusConflict, rr.Code, "the queued task still holds the trip")
}
