package types

import (
	"github.com/google/uuid"
)

// Slot is the role an activity plays in a day.
type Slot string

const (
	SlotBreakfast Slot = "breakfast"
	SlotLunch     Slot = "lunch"
	SlotDinner    Slot = "dinner"
	SlotActivity  Slot = "activity"
)

// MealSlots lists meal slots in the order they occur in a day.
var MealSlots = []Slot{SlotBreakfast, SlotLunch, SlotDinner}

func (s Slot) IsMeal() bool {
	return s == SlotBreakfast || s == SlotLunch || s == SlotDinner
}

// UnscheduledReason explains why a candidate did not make it into the schedule.
type UnscheduledReason string

const (
	ReasonNoOpeningHoursMatch   UnscheduledReason = "no_opening_hours_match"
	ReasonNoTimeSlot            UnscheduledReason = "no_time_slot"
	ReasonDailyCapReached       UnscheduledReason = "daily_cap_reached"
	ReasonInvalidCandidate      UnscheduledReason = "invalid_candidate"
	ReasonExcludedByPreferences UnscheduledReason = "excluded_by_preferences"
)

// PlaceDetails holds presentation data fetched after scheduling.
type PlaceDetails struct {
	PhotoURLs []string `json:"photo_urls,omitempty"`
	Website   string   `json:"website,omitempty"`
	Phone     string   `json:"phone,omitempty"`
	Summary   string   `json:"summary,omitempty"`

	OpeningHours OpeningHours `json:"opening_hours,omitempty"`
	PriceTier    int          `json:"price_tier,omitempty"`
	Rating       float64      `json:"rating,omitempty"`
	ReviewCount  int          `json:"review_count,omitempty"`
}

type ScheduledActivity struct {
	ID        uuid.UUID         `json:"id"`
	Candidate CandidateActivity `json:"candidate"`
	Date      Date              `json:"date"`
	Start     Clock             `json:"start"`
	End       Clock             `json:"end"`
	DayIndex  int               `json:"day_index"`
	Sequence  int               `json:"sequence"`
	Slot      Slot              `json:"slot"`
	Locked    bool              `json:"locked"`
	Details   *PlaceDetails     `json:"details,omitempty"`
}

func (a ScheduledActivity) DurationMinutes() int { return int(a.End - a.Start) }

// Overlaps reports whether both activities share a date and their [start, end) intervals intersect.
func (a ScheduledActivity) Overlaps(b ScheduledActivity) bool {
	if !a.Date.Equal(b.Date) {
		return false
	}
	return a.Start < b.End && b.Start < a.End
}

type UnscheduledActivity struct {
	Candidate CandidateActivity `json:"candidate"`
	Reason    UnscheduledReason `json:"reason"`
	Detail    string            `json:"detail,omitempty"`
}

// ScheduleResult is the output of a scheduling pass.
type ScheduleResult struct {
	Scheduled   []ScheduledActivity   `json:"scheduled"`
	Unscheduled []UnscheduledActivity `json:"unscheduled"`
}
