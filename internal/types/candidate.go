package types

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultActivityDurationMinutes = 90
	DefaultMealDurationMinutes     = 60
)

var candidateNamespace = uuid.MustParse("6f1d3c52-8a4e-4b7a-9d43-2f6f0b8a1c11")

// OpeningInterval is one opening window on a weekday. Close <= Open means the
// window runs past midnight into the next weekday. Open == Close means open all day.
type OpeningInterval struct {
	Weekday time.Weekday `json:"weekday"`
	Open    Clock        `json:"open"`
	Close   Clock        `json:"close"`
}

type OpeningHours []OpeningInterval

// Segment is a closed-open [Start, End) window within a single day.
type Segment struct {
	Start Clock
	End   Clock
}

// HasData reports whether any opening information is known.
func (h OpeningHours) HasData() bool { return len(h) > 0 }

// Segments returns the merged open windows of a weekday, in order.
func (h OpeningHours) Segments(day time.Weekday) []Segment {
	prev := (day + 6) % 7
	var segs []Segment
	for _, iv := range h {
		switch {
		case iv.Weekday == day && iv.Open == iv.Close:
			segs = append(segs, Segment{0, MinutesPerDay})
		case iv.Weekday == day && iv.Close > iv.Open:
			segs = append(segs, Segment{iv.Open, iv.Close})
		case iv.Weekday == day:
			segs = append(segs, Segment{iv.Open, MinutesPerDay})
		}
		if iv.Weekday == prev && iv.Close < iv.Open && iv.Close > 0 {
			segs = append(segs, Segment{0, iv.Close})
		}
	}
	if len(segs) == 0 {
		return nil
	}
	sort.Slice(segs, func(i, j int) bool { return segs[i].Start < segs[j].Start })
	merged := []Segment{segs[0]}
	for _, s := range segs[1:] {
		last := &merged[len(merged)-1]
		if s.Start <= last.End {
			if s.End > last.End {
				last.End = s.End
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// Covers reports whether [start, end) lies within a single open window of the weekday.
func (h OpeningHours) Covers(day time.Weekday, start, end Clock) bool {
	for _, s := range h.Segments(day) {
		if start >= s.Start && end <= s.End {
			return true
		}
	}
	return false
}

// CoversAnyDay is Covers evaluated over the whole week.
func (h OpeningHours) CoversAnyDay(start, end Clock) bool {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if h.Covers(d, start, end) {
			return true
		}
	}
	return false
}

func (h OpeningHours) Validate() error {
	for _, iv := range h {
		if iv.Weekday < time.Sunday || iv.Weekday > time.Saturday {
			return fmt.Errorf("invalid weekday %d", iv.Weekday)
		}
		if !iv.Open.Valid() || !iv.Close.Valid() {
			return fmt.Errorf("invalid opening interval %s-%s", iv.Open, iv.Close)
		}
	}
	return nil
}

// CandidateActivity is a place proposed for the itinerary. It is never
// mutated once produced; scheduling copies it.
type CandidateActivity struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Category        string       `json:"category"`
	Location        GeoPoint     `json:"location"`
	Address         string       `json:"address,omitempty"`
	PlaceRef        string       `json:"place_ref,omitempty"`
	DurationMinutes int          `json:"duration_minutes"`
	OpeningHours    OpeningHours `json:"opening_hours,omitempty"`
	Rating          float64      `json:"rating"`
	ReviewCount     int          `json:"review_count"`
	PriceTier       int          `json:"price_tier,omitempty"`
	Tags            []string     `json:"tags,omitempty"`
	PreferredStart  *Clock       `json:"preferred_start,omitempty"`
}

var mealCategories = []string{"restaurant", "cafe", "bakery", "food", "diner", "bistro", "brunch"}

var mealTags = []string{"restaurant", "meal", "breakfast", "lunch", "dinner"}

// IsMeal reports whether the candidate can fill a meal slot.
func (c CandidateActivity) IsMeal() bool {
	if slices.Contains(mealCategories, strings.ToLower(c.Category)) {
		return true
	}
	for _, t := range c.Tags {
		if slices.Contains(mealTags, strings.ToLower(t)) {
			return true
		}
	}
	return false
}

// FitsMeal reports whether a meal candidate may fill the given slot. Candidates
// tagged with specific meals only fill those meals.
func (c CandidateActivity) FitsMeal(slot Slot) bool {
	var tagged []Slot
	for _, t := range c.Tags {
		switch s := Slot(strings.ToLower(t)); s {
		case SlotBreakfast, SlotLunch, SlotDinner:
			tagged = append(tagged, s)
		}
	}
	if len(tagged) == 0 {
		return c.IsMeal()
	}
	return slices.Contains(tagged, slot)
}

// HasTag reports whether the candidate carries the tag, case-insensitively.
func (c CandidateActivity) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// WithDefaults returns a copy with a deterministic id and a duration filled in.
func (c CandidateActivity) WithDefaults() CandidateActivity {
	out := c
	out.Tags = slices.Clone(c.Tags)
	out.OpeningHours = slices.Clone(c.OpeningHours)
	if out.ID == "" {
		key := strings.ToLower(strings.TrimSpace(c.Name)) + "|" + strings.ToLower(strings.TrimSpace(c.Address))
		out.ID = uuid.NewSHA1(candidateNamespace, []byte(key)).String()
	}
	if out.DurationMinutes <= 0 {
		if out.IsMeal() {
			out.DurationMinutes = DefaultMealDurationMinutes
		} else {
			out.DurationMinutes = DefaultActivityDurationMinutes
		}
	}
	return out
}

// Validate checks the candidate shape. It does not look at preferences.
func (c CandidateActivity) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("candidate has no name")
	}
	if c.DurationMinutes < 0 || c.DurationMinutes > MinutesPerDay {
		return fmt.Errorf("candidate %q has invalid duration %d", c.Name, c.DurationMinutes)
	}
	if c.Rating < 0 || c.Rating > 5 {
		return fmt.Errorf("candidate %q has invalid rating %.2f", c.Name, c.Rating)
	}
	if c.ReviewCount < 0 {
		return fmt.Errorf("candidate %q has negative review count", c.Name)
	}
	if c.PriceTier != 0 && (c.PriceTier < MinPriceTier || c.PriceTier > MaxPriceTier) {
		return fmt.Errorf("candidate %q has invalid price tier %d", c.Name, c.PriceTier)
	}
	if c.Location.Lat < -90 || c.Location.Lat > 90 || c.Location.Lon < -180 || c.Location.Lon > 180 {
		return fmt.Errorf("candidate %q has invalid location", c.Name)
	}
	if c.PreferredStart != nil && !c.PreferredStart.Valid() {
		return fmt.Errorf("candidate %q has invalid preferred start", c.Name)
	}
	if err := c.OpeningHours.Validate(); err != nil {
		return fmt.Errorf("candidate %q: %w", c.Name, err)
	}
	return nil
}
