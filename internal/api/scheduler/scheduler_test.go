package scheduler

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-itinerary-planner/config"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

// 2025-06-02 is a Monday.
var monday = types.NewDate(2025, time.June, 2)

func singleDay() types.DateRange { return types.DateRange{Start: monday, End: monday} }

func clock(h, m int) types.Clock { return types.NewClock(h, m) }

func clockPtr(h, m int) *types.Clock {
	c := types.NewClock(h, m)
	return &c
}

func sight(id string, duration int) types.CandidateActivity {
	return types.CandidateActivity{
		ID:              id,
		Name:            "Sight " + id,
		Category:        "museum",
		DurationMinutes: duration,
		Rating:          4.5,
		ReviewCount:     100,
	}
}

func restaurant(id string) types.CandidateActivity {
	return types.CandidateActivity{
		ID:              id,
		Name:            "Restaurant " + id,
		Category:        "restaurant",
		DurationMinutes: 60,
		Rating:          4.2,
		ReviewCount:     80,
	}
}

func noMeals() *types.MealImportance { return &types.MealImportance{} }

func setupSchedulerTest() *Scheduler {
	return New(DefaultConfig())
}

func reasons(u []types.UnscheduledActivity) map[string]types.UnscheduledReason {
	out := make(map[string]types.UnscheduledReason, len(u))
	for _, a := range u {
		out[a.Candidate.ID] = a.Reason
	}
	return out
}

func TestSchedule_DailyCap(t *testing.T) {
	s := setupSchedulerTest()
	profile := types.PreferenceProfile{EnergyLevel: 1, MealImportance: noMeals()}

	candidates := make([]types.CandidateActivity, 0, 5)
	for i := 1; i <= 5; i++ {
		candidates = append(candidates, sight(fmt.Sprintf("c%d", i), 90))
	}

	result, err := s.Schedule(singleDay(), candidates, nil, profile)
	require.NoError(t, err)

	require.Len(t, result.Scheduled, 2)
	require.Len(t, result.Unscheduled, 3)
	for _, u := range result.Unscheduled {
		assert.Equal(t, types.ReasonDailyCapReached, u.Reason)
	}

	assert.Equal(t, "c1", result.Scheduled[0].Candidate.ID)
	assert.Equal(t, clock(9, 0), result.Scheduled[0].Start)
	assert.Equal(t, clock(10, 30), result.Scheduled[0].End)
	// next start honours the 15 minute travel buffer
	assert.Equal(t, "c2", result.Scheduled[1].Candidate.ID)
	assert.Equal(t, clock(10, 45), result.Scheduled[1].Start)
	assert.Equal(t, 1, result.Scheduled[0].Sequence)
	assert.Equal(t, 2, result.Scheduled[1].Sequence)
	assert.Equal(t, 1, result.Scheduled[1].DayIndex)
}

func TestSchedule_OpeningHoursMismatch(t *testing.T) {
	s := setupSchedulerTest()
	profile := types.PreferenceProfile{MealImportance: noMeals()}

	hours := types.OpeningHours{{Weekday: time.Monday, Open: clock(9, 0), Close: clock(11, 0)}}
	a := sight("gallery-a", 90)
	a.OpeningHours = hours
	a.PreferredStart = clockPtr(10, 0)
	b := sight("gallery-b", 90)
	b.OpeningHours = hours
	b.PreferredStart = clockPtr(10, 0)

	result, err := s.Schedule(singleDay(), []types.CandidateActivity{a, b}, nil, profile)
	require.NoError(t, err)

	assert.Empty(t, result.Scheduled)
	require.Len(t, result.Unscheduled, 2)
	for _, u := range result.Unscheduled {
		assert.Equal(t, types.ReasonNoOpeningHoursMatch, u.Reason)
	}
}

func TestSchedule_DinnerOnly(t *testing.T) {
	s := setupSchedulerTest()
	trip := types.DateRange{Start: monday, End: monday.AddDays(2)}
	profile := types.PreferenceProfile{MealImportance: &types.MealImportance{Dinner: true}}

	candidates := []types.CandidateActivity{restaurant("r1"), restaurant("r2"), restaurant("r3"), restaurant("r4")}

	result, err := s.Schedule(trip, candidates, nil, profile)
	require.NoError(t, err)

	require.Len(t, result.Scheduled, 3)
	dates := map[string]bool{}
	for _, a := range result.Scheduled {
		assert.Equal(t, types.SlotDinner, a.Slot)
		assert.Equal(t, clock(18, 30), a.Start)
		assert.Equal(t, clock(19, 30), a.End)
		dates[a.Date.String()] = true
	}
	assert.Len(t, dates, 3)

	require.Len(t, result.Unscheduled, 1)
	assert.Equal(t, "r4", result.Unscheduled[0].Candidate.ID)
	assert.Equal(t, types.ReasonNoTimeSlot, result.Unscheduled[0].Reason)
}

func TestSchedule_MealTagsRestrictSlots(t *testing.T) {
	s := setupSchedulerTest()
	profile := types.PreferenceProfile{MealImportance: &types.MealImportance{Breakfast: true, Dinner: true}}

	brunch := restaurant("bakery")
	brunch.Category = "bakery"
	brunch.Tags = []string{"breakfast"}
	steak := restaurant("grill")
	steak.Tags = []string{"dinner"}

	result, err := s.Schedule(singleDay(), []types.CandidateActivity{steak, brunch}, nil, profile)
	require.NoError(t, err)
	require.Len(t, result.Scheduled, 2)

	assert.Equal(t, "bakery", result.Scheduled[0].Candidate.ID)
	assert.Equal(t, types.SlotBreakfast, result.Scheduled[0].Slot)
	assert.Equal(t, clock(7, 0), result.Scheduled[0].Start)
	assert.Equal(t, "grill", result.Scheduled[1].Candidate.ID)
	assert.Equal(t, types.SlotDinner, result.Scheduled[1].Slot)

	t.Run("tagged only for an unflagged meal", func(t *testing.T) {
		lunchOnly := restaurant("tasca")
		lunchOnly.Tags = []string{"lunch"}
		lunchOnly.OpeningHours = types.OpeningHours{{Weekday: time.Monday, Open: clock(12, 0), Close: clock(15, 0)}}

		result, err := s.Schedule(singleDay(), []types.CandidateActivity{steak, brunch, lunchOnly}, nil, profile)
		require.NoError(t, err)
		require.Len(t, result.Scheduled, 2)
		require.Len(t, result.Unscheduled, 1)
		assert.Equal(t, "tasca", result.Unscheduled[0].Candidate.ID)
		assert.Equal(t, types.ReasonNoTimeSlot, result.Unscheduled[0].Reason)
	})

	t.Run("flagged meal closed during its window", func(t *testing.T) {
		lateBreakfast := restaurant("cafe")
		lateBreakfast.Tags = []string{"breakfast"}
		lateBreakfast.OpeningHours = types.OpeningHours{{Weekday: time.Monday, Open: clock(14, 0), Close: clock(18, 0)}}

		result, err := s.Schedule(singleDay(), []types.CandidateActivity{steak, brunch, lateBreakfast}, nil, profile)
		require.NoError(t, err)
		require.Len(t, result.Unscheduled, 1)
		assert.Equal(t, "cafe", result.Unscheduled[0].Candidate.ID)
		assert.Equal(t, types.ReasonNoOpeningHoursMatch, result.Unscheduled[0].Reason)
	})
}

func TestSchedule_NoTimeSlot(t *testing.T) {
	s := setupSchedulerTest()
	profile := types.PreferenceProfile{EnergyLevel: 3, MealImportance: noMeals()}

	candidates := []types.CandidateActivity{sight("a", 240), sight("b", 240), sight("c", 240), sight("d", 240)}
	result, err := s.Schedule(singleDay(), candidates, nil, profile)
	require.NoError(t, err)

	require.Len(t, result.Scheduled, 3)
	assert.Equal(t, clock(13, 15), result.Scheduled[1].Start)
	assert.Equal(t, clock(17, 30), result.Scheduled[2].Start)
	require.Len(t, result.Unscheduled, 1)
	assert.Equal(t, types.ReasonNoTimeSlot, result.Unscheduled[0].Reason)
}

func TestSchedule_FixedActivities(t *testing.T) {
	s := setupSchedulerTest()
	profile := types.PreferenceProfile{MealImportance: noMeals()}

	locked := types.ScheduledActivity{
		ID:        uuid.New(),
		Candidate: sight("tour", 120),
		Date:      monday,
		Start:     clock(10, 0),
		End:       clock(12, 0),
		Slot:      types.SlotActivity,
		Locked:    true,
	}

	t.Run("success", func(t *testing.T) {
		result, err := s.Schedule(singleDay(), []types.CandidateActivity{sight("museum", 90)}, []types.ScheduledActivity{locked}, profile)
		require.NoError(t, err)
		require.Len(t, result.Scheduled, 2)

		assert.Equal(t, locked.ID, result.Scheduled[0].ID)
		assert.True(t, result.Scheduled[0].Locked)
		assert.Equal(t, clock(10, 0), result.Scheduled[0].Start)

		assert.Equal(t, "museum", result.Scheduled[1].Candidate.ID)
		assert.Equal(t, clock(12, 15), result.Scheduled[1].Start)
	})

	t.Run("overlapping fixed", func(t *testing.T) {
		other := locked
		other.ID = uuid.New()
		other.Candidate = sight("other", 60)
		other.Start = clock(11, 0)
		other.End = clock(12, 30)

		_, err := s.Schedule(singleDay(), nil, []types.ScheduledActivity{locked, other}, profile)
		assert.ErrorIs(t, err, types.ErrSchedulingFailure)
	})

	t.Run("fixed count toward cap", func(t *testing.T) {
		low := types.PreferenceProfile{EnergyLevel: 1, MealImportance: noMeals()}
		result, err := s.Schedule(singleDay(), []types.CandidateActivity{sight("a", 60), sight("b", 60)}, []types.ScheduledActivity{locked}, low)
		require.NoError(t, err)
		assert.Len(t, result.Scheduled, 2)
		assert.Equal(t, types.ReasonDailyCapReached, reasons(result.Unscheduled)["b"])
	})
}

func TestSchedule_InputErrors(t *testing.T) {
	s := setupSchedulerTest()
	profile := types.DefaultPreferenceProfile()

	t.Run("inverted range", func(t *testing.T) {
		_, err := s.Schedule(types.DateRange{Start: monday, End: monday.AddDays(-1)}, nil, nil, profile)
		assert.ErrorIs(t, err, types.ErrSchedulingFailure)
	})

	t.Run("duplicate ids", func(t *testing.T) {
		_, err := s.Schedule(singleDay(), []types.CandidateActivity{sight("x", 60), sight("x", 60)}, nil, profile)
		assert.ErrorIs(t, err, types.ErrSchedulingFailure)
	})

	t.Run("invalid candidate is reported", func(t *testing.T) {
		bad := sight("bad", 60)
		bad.Rating = 9
		result, err := s.Schedule(singleDay(), []types.CandidateActivity{bad}, nil, profile)
		require.NoError(t, err)
		assert.Equal(t, types.ReasonInvalidCandidate, reasons(result.Unscheduled)["bad"])
	})
}

func TestSchedule_SpreadsAcrossDays(t *testing.T) {
	s := setupSchedulerTest()
	trip := types.DateRange{Start: monday, End: monday.AddDays(1)}
	profile := types.PreferenceProfile{EnergyLevel: 1, MealImportance: noMeals()}

	candidates := []types.CandidateActivity{sight("a", 60), sight("b", 60), sight("c", 60)}
	result, err := s.Schedule(trip, candidates, nil, profile)
	require.NoError(t, err)
	require.Len(t, result.Scheduled, 3)

	assert.Equal(t, 2, result.Scheduled[2].DayIndex)
	assert.Equal(t, "c", result.Scheduled[2].Candidate.ID)
	assert.Equal(t, 1, result.Scheduled[2].Sequence)
}

func mixedPool() []types.CandidateActivity {
	var pool []types.CandidateActivity
	for i := 0; i < 12; i++ {
		c := sight(fmt.Sprintf("s%02d", i), 45+15*(i%5))
		if i%3 == 0 {
			c.OpeningHours = types.OpeningHours{
				{Weekday: time.Monday, Open: clock(10, 0), Close: clock(17, 0)},
				{Weekday: time.Tuesday, Open: clock(13, 0), Close: clock(18, 0)},
				{Weekday: time.Wednesday, Open: clock(20, 0), Close: clock(2, 0)},
			}
		}
		pool = append(pool, c)
	}
	for i := 0; i < 6; i++ {
		r := restaurant(fmt.Sprintf("r%02d", i))
		if i%2 == 0 {
			r.OpeningHours = types.OpeningHours{
				{Weekday: time.Monday, Open: clock(12, 0), Close: clock(23, 0)},
				{Weekday: time.Tuesday, Open: clock(18, 0), Close: clock(22, 0)},
			}
		}
		pool = append(pool, r)
	}
	return pool
}

func TestSchedule_Invariants(t *testing.T) {
	s := setupSchedulerTest()
	trip := types.DateRange{Start: monday, End: monday.AddDays(2)}
	profile := types.PreferenceProfile{EnergyLevel: 3, MealImportance: &types.MealImportance{Breakfast: true, Lunch: true, Dinner: true}}

	result, err := s.Schedule(trip, mixedPool(), nil, profile)
	require.NoError(t, err)
	require.NotEmpty(t, result.Scheduled)

	for i, a := range result.Scheduled {
		assert.Greater(t, a.End, a.Start)
		if a.Candidate.OpeningHours.HasData() {
			assert.True(t, a.Candidate.OpeningHours.Covers(a.Date.Weekday(), a.Start, a.End), "activity %s outside opening hours", a.Candidate.ID)
		}
		for _, b := range result.Scheduled[i+1:] {
			assert.False(t, a.Overlaps(b), "%s overlaps %s", a.Candidate.ID, b.Candidate.ID)
		}
	}
	assert.Equal(t, len(mixedPool()), len(result.Scheduled)+len(result.Unscheduled))
}

func TestSchedule_Deterministic(t *testing.T) {
	s := setupSchedulerTest()
	trip := types.DateRange{Start: monday, End: monday.AddDays(2)}
	profile := types.PreferenceProfile{EnergyLevel: 2}

	first, err := s.Schedule(trip, mixedPool(), nil, profile)
	require.NoError(t, err)
	second, err := s.Schedule(trip, mixedPool(), nil, profile)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestNewConfig(t *testing.T) {
	t.Run("defaults kept", func(t *testing.T) {
		cfg, err := NewConfig(configFixture())
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("overrides", func(t *testing.T) {
		c := configFixture()
		c.StartTimes.Early = "06:30"
		c.DailyCaps = []int{1, 3, 5}
		c.MealWindows.Lunch.Start = "11:30"
		c.MealWindows.Lunch.End = "15:00"
		c.TravelBufferMinutes = 20

		cfg, err := NewConfig(c)
		require.NoError(t, err)
		assert.Equal(t, clock(6, 30), cfg.StartTimes[types.StartTimeEarly])
		assert.Equal(t, [3]int{1, 3, 5}, cfg.DailyCaps)
		assert.Equal(t, types.Segment{Start: clock(11, 30), End: clock(15, 0)}, cfg.MealWindows[types.SlotLunch])
		assert.Equal(t, 20, cfg.TravelBufferMinutes)
	})

	t.Run("bad clock", func(t *testing.T) {
		c := configFixture()
		c.DayEnds = []string{"late"}
		_, err := NewConfig(c)
		assert.Error(t, err)
	})
}

func configFixture() config.SchedulerConfig {
	return config.SchedulerConfig{}
}
