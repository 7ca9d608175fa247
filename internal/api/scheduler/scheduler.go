package scheduler

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

var activityNamespace = uuid.MustParse("0b6f4f0e-53c1-4c1e-9a57-5d3c8e2f7a90")

// Scheduler places ranked candidates onto a day-by-day timeline. It holds no
// mutable state and is safe for concurrent use.
type Scheduler struct {
	cfg Config
}

func New(cfg Config) *Scheduler {
	return &Scheduler{cfg: cfg}
}

func (s *Scheduler) Config() Config { return s.cfg }

// day tracks what has been placed on one date during a pass.
type day struct {
	date       types.Date
	placed     []types.ScheduledActivity
	activities int
	meals      map[types.Slot]bool
}

func (d *day) add(a types.ScheduledActivity) {
	d.placed = append(d.placed, a)
	if a.Slot.IsMeal() {
		d.meals[a.Slot] = true
	} else {
		d.activities++
	}
}

// Schedule assigns dates and times to candidates. Candidates must already be in
// rank order. Fixed activities keep their slots and are returned unchanged.
func (s *Scheduler) Schedule(dateRange types.DateRange, candidates []types.CandidateActivity, fixed []types.ScheduledActivity, profile types.PreferenceProfile) (types.ScheduleResult, error) {
	if err := dateRange.Validate(); err != nil {
		return types.ScheduleResult{}, fmt.Errorf("%w: %v", types.ErrSchedulingFailure, err)
	}
	if n := dateRange.NumDays(); s.cfg.MaxTripDays > 0 && n > s.cfg.MaxTripDays {
		return types.ScheduleResult{}, fmt.Errorf("%w: trip spans %d days, limit is %d", types.ErrSchedulingFailure, n, s.cfg.MaxTripDays)
	}
	profile = profile.Normalize()

	days := make([]*day, 0, dateRange.NumDays())
	byDate := make(map[string]*day)
	for _, date := range dateRange.Days() {
		d := &day{date: date, meals: make(map[types.Slot]bool)}
		days = append(days, d)
		byDate[date.String()] = d
	}

	seen := make(map[string]bool)
	if err := s.placeFixed(fixed, byDate, seen); err != nil {
		return types.ScheduleResult{}, err
	}

	var result types.ScheduleResult
	var meals, others []types.CandidateActivity
	position := make(map[string]int, len(candidates))
	for i, raw := range candidates {
		c := raw.WithDefaults()
		if seen[c.ID] {
			return types.ScheduleResult{}, fmt.Errorf("%w: duplicate candidate id %s", types.ErrSchedulingFailure, c.ID)
		}
		seen[c.ID] = true
		position[c.ID] = i
		if err := c.Validate(); err != nil {
			result.Unscheduled = append(result.Unscheduled, types.UnscheduledActivity{
				Candidate: c,
				Reason:    types.ReasonInvalidCandidate,
				Detail:    err.Error(),
			})
			continue
		}
		if c.IsMeal() {
			meals = append(meals, c)
		} else {
			others = append(others, c)
		}
	}

	result.Unscheduled = append(result.Unscheduled, s.placeMeals(meals, days, profile)...)
	result.Unscheduled = append(result.Unscheduled, s.placeActivities(others, days, profile)...)
	sort.SliceStable(result.Unscheduled, func(i, j int) bool {
		return position[result.Unscheduled[i].Candidate.ID] < position[result.Unscheduled[j].Candidate.ID]
	})

	for _, d := range days {
		result.Scheduled = append(result.Scheduled, d.placed...)
	}
	Sequence(result.Scheduled, dateRange)
	return result, nil
}

func (s *Scheduler) placeFixed(fixed []types.ScheduledActivity, byDate map[string]*day, seen map[string]bool) error {
	for _, f := range fixed {
		if f.End <= f.Start {
			return fmt.Errorf("%w: fixed activity %s ends before it starts", types.ErrSchedulingFailure, f.ID)
		}
		d, ok := byDate[f.Date.String()]
		if !ok {
			return fmt.Errorf("%w: fixed activity %s on %s is outside the trip", types.ErrSchedulingFailure, f.ID, f.Date)
		}
		if f.Candidate.ID != "" {
			if seen[f.Candidate.ID] {
				return fmt.Errorf("%w: duplicate candidate id %s", types.ErrSchedulingFailure, f.Candidate.ID)
			}
			seen[f.Candidate.ID] = true
		}
		for _, p := range d.placed {
			if p.Overlaps(f) {
				return fmt.Errorf("%w: fixed activities %s and %s overlap", types.ErrSchedulingFailure, p.ID, f.ID)
			}
		}
		if f.Slot == "" {
			f.Slot = types.SlotActivity
		}
		d.add(f)
	}
	return nil
}

// placeMeals fills every flagged meal window of every day with the best ranked
// meal candidate that fits. Leftover meal candidates are returned unscheduled.
func (s *Scheduler) placeMeals(meals []types.CandidateActivity, days []*day, profile types.PreferenceProfile) []types.UnscheduledActivity {
	used := make([]bool, len(meals))
	for _, d := range days {
		for _, slot := range types.MealSlots {
			if !profile.MealImportance.Wants(slot) || d.meals[slot] {
				continue
			}
			window, ok := s.cfg.MealWindows[slot]
			if !ok {
				continue
			}
			for i, c := range meals {
				if used[i] || !c.FitsMeal(slot) {
					continue
				}
				start, ok := s.earliestStart(c, d, window.Start, window.End, true)
				if !ok {
					continue
				}
				used[i] = true
				d.add(newActivity(c, d.date, start, slot))
				break
			}
		}
	}

	var unscheduled []types.UnscheduledActivity
	for i, c := range meals {
		if used[i] {
			continue
		}
		reason := types.ReasonNoTimeSlot
		if s.acceptsMeal(c, profile) && !s.mealHoursMatch(c, days, profile) {
			reason = types.ReasonNoOpeningHoursMatch
		}
		unscheduled = append(unscheduled, types.UnscheduledActivity{Candidate: c, Reason: reason})
	}
	return unscheduled
}

// acceptsMeal reports whether any flagged meal slot takes the candidate. A
// candidate tagged only for unflagged meals has no slot at all, whatever its hours.
func (s *Scheduler) acceptsMeal(c types.CandidateActivity, profile types.PreferenceProfile) bool {
	for _, slot := range types.MealSlots {
		if _, ok := s.cfg.MealWindows[slot]; ok && profile.MealImportance.Wants(slot) && c.FitsMeal(slot) {
			return true
		}
	}
	return false
}

func (s *Scheduler) mealHoursMatch(c types.CandidateActivity, days []*day, profile types.PreferenceProfile) bool {
	for _, d := range days {
		for _, slot := range types.MealSlots {
			window, ok := s.cfg.MealWindows[slot]
			if !ok || !profile.MealImportance.Wants(slot) || !c.FitsMeal(slot) {
				continue
			}
			if s.hoursFit(c, d.date, window.Start, window.End, true) {
				return true
			}
		}
	}
	return false
}

func (s *Scheduler) placeActivities(others []types.CandidateActivity, days []*day, profile types.PreferenceProfile) []types.UnscheduledActivity {
	envStart, envEnd := s.cfg.envelope(profile)
	dailyCap := s.cfg.dailyCap(profile)

	var unscheduled []types.UnscheduledActivity
	for _, c := range others {
		hoursMatched := false
		cappedEverywhere := true
		placed := false

		for _, d := range days {
			if !s.hoursFit(c, d.date, envStart, envEnd, false) {
				continue
			}
			hoursMatched = true
			if d.activities >= dailyCap {
				continue
			}
			cappedEverywhere = false
			start, ok := s.earliestStart(c, d, envStart, envEnd, false)
			if !ok {
				continue
			}
			d.add(newActivity(c, d.date, start, types.SlotActivity))
			placed = true
			break
		}
		if placed {
			continue
		}

		reason := types.ReasonNoTimeSlot
		switch {
		case !hoursMatched:
			reason = types.ReasonNoOpeningHoursMatch
		case cappedEverywhere:
			reason = types.ReasonDailyCapReached
		}
		unscheduled = append(unscheduled, types.UnscheduledActivity{Candidate: c, Reason: reason})
	}
	return unscheduled
}

// bounds returns the start range a candidate may use inside a window. A
// preferred start pins the candidate to that minute; meal windows ignore it.
func bounds(c types.CandidateActivity, winStart, winEnd types.Clock, meal bool) (types.Clock, types.Clock, bool) {
	if c.PreferredStart != nil && !meal {
		start := *c.PreferredStart
		if start.Add(c.DurationMinutes) > types.MinutesPerDay {
			return 0, 0, false
		}
		return start, start, true
	}
	last := winEnd.Add(-c.DurationMinutes)
	if last < winStart {
		return 0, 0, false
	}
	return winStart, last, true
}

func (s *Scheduler) openSegments(c types.CandidateActivity, date types.Date) []types.Segment {
	if !c.OpeningHours.HasData() {
		if s.cfg.AssumeOpenWhenUnknown {
			return []types.Segment{{Start: 0, End: types.MinutesPerDay}}
		}
		return nil
	}
	return c.OpeningHours.Segments(date.Weekday())
}

// hoursFit reports whether opening hours leave some start in the window,
// ignoring everything already placed. A window too short for the candidate
// is a time slot problem, not an opening hours one, so it reports true.
func (s *Scheduler) hoursFit(c types.CandidateActivity, date types.Date, winStart, winEnd types.Clock, meal bool) bool {
	lo, hi, ok := bounds(c, winStart, winEnd, meal)
	if !ok {
		return true
	}
	for _, seg := range s.openSegments(c, date) {
		start := max(lo, seg.Start)
		if start <= hi && start.Add(c.DurationMinutes) <= seg.End {
			return true
		}
	}
	return false
}

// earliestStart finds the first start minute at which the candidate fits the
// window, its opening hours and the buffered gaps between placed activities.
func (s *Scheduler) earliestStart(c types.CandidateActivity, d *day, winStart, winEnd types.Clock, meal bool) (types.Clock, bool) {
	lo, hi, ok := bounds(c, winStart, winEnd, meal)
	if !ok {
		return 0, false
	}
	segs := s.openSegments(c, d.date)

	points := []types.Clock{lo}
	for _, seg := range segs {
		points = append(points, seg.Start)
	}
	for _, p := range d.placed {
		points = append(points, p.End.Add(s.cfg.TravelBufferMinutes))
	}
	sort.Slice(points, func(i, j int) bool { return points[i] < points[j] })

	for _, start := range points {
		if start < lo || start > hi {
			continue
		}
		end := start.Add(c.DurationMinutes)
		if !covered(segs, start, end) {
			continue
		}
		if s.conflicts(d, start, end) {
			continue
		}
		return start, true
	}
	return 0, false
}

func covered(segs []types.Segment, start, end types.Clock) bool {
	for _, seg := range segs {
		if start >= seg.Start && end <= seg.End {
			return true
		}
	}
	return false
}

// conflicts reports whether [start, end) comes closer than the travel buffer
// to anything already on the day.
func (s *Scheduler) conflicts(d *day, start, end types.Clock) bool {
	buf := s.cfg.TravelBufferMinutes
	for _, p := range d.placed {
		if start < p.End.Add(buf) && p.Start < end.Add(buf) {
			return true
		}
	}
	return false
}

func newActivity(c types.CandidateActivity, date types.Date, start types.Clock, slot types.Slot) types.ScheduledActivity {
	return types.ScheduledActivity{
		ID:        uuid.NewSHA1(activityNamespace, []byte(c.ID+"|"+date.String())),
		Candidate: c,
		Date:      date,
		Start:     start,
		End:       start.Add(c.DurationMinutes),
		Slot:      slot,
	}
}

// Sequence orders the timeline by (date, start, candidate id) and numbers each day.
func Sequence(scheduled []types.ScheduledActivity, dateRange types.DateRange) {
	sort.SliceStable(scheduled, func(i, j int) bool {
		a, b := scheduled[i], scheduled[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.Candidate.ID < b.Candidate.ID
	})
	seq := 0
	for i := range scheduled {
		if i == 0 || !scheduled[i].Date.Equal(scheduled[i-1].Date) {
			seq = 0
		}
		seq++
		scheduled[i].DayIndex = dateRange.DayIndex(scheduled[i].Date)
		scheduled[i].Sequence = seq
	}
}
