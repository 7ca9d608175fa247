package types

import (
	"database/sql/driver"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// TripStatus represents the DB ENUM 'trip_status_enum'.
type TripStatus string

const (
	TripStatusDraft      TripStatus = "draft"
	TripStatusGenerating TripStatus = "generating"
	TripStatusBasicReady TripStatus = "basic_ready"
	TripStatusComplete   TripStatus = "complete"
	TripStatusError      TripStatus = "error"
)

func (s TripStatus) Valid() bool {
	switch s {
	case TripStatusDraft, TripStatusGenerating, TripStatusBasicReady, TripStatusComplete, TripStatusError:
		return true
	}
	return false
}

// InFlight reports whether a generation task owns the trip in this status.
func (s TripStatus) InFlight() bool {
	return s == TripStatusGenerating || s == TripStatusBasicReady
}

// Terminal reports whether a generation attempt has finished in this status.
func (s TripStatus) Terminal() bool {
	return s == TripStatusComplete || s == TripStatusError
}

// Scan implements the sql.Scanner interface for TripStatus.
func (s *TripStatus) Scan(value interface{}) error {
	strVal, ok := value.(string)
	if !ok {
		bytesVal, ok := value.([]byte)
		if !ok {
			return fmt.Errorf("failed to scan TripStatus: expected string or []byte, got %T", value)
		}
		strVal = string(bytesVal)
	}
	if !TripStatus(strVal).Valid() {
		return fmt.Errorf("unknown TripStatus value: %s", strVal)
	}
	*s = TripStatus(strVal)
	return nil
}

// Value implements the driver.Valuer interface for TripStatus.
func (s TripStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid TripStatus value: %s", s)
	}
	return string(s), nil
}

type Trip struct {
	ID               uuid.UUID             `json:"id"`
	UserID           string                `json:"user_id"`
	Destination      string                `json:"destination"`
	CityID           string                `json:"city_id"`
	DateRange        DateRange             `json:"date_range"`
	Preferences      PreferenceProfile     `json:"preferences"`
	Status           TripStatus            `json:"status"`
	Progress         int                   `json:"progress"`
	AttemptsCount    int                   `json:"attempts_count"`
	Error            *TripError            `json:"error,omitempty"`
	Scheduled        []ScheduledActivity   `json:"scheduled"`
	Unscheduled      []UnscheduledActivity `json:"unscheduled"`
	LastRebalancedAt *time.Time            `json:"last_rebalanced_at,omitempty"`
	Version          int                   `json:"version"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

// AdvanceProgress moves progress forward only.
func (t *Trip) AdvanceProgress(p int) {
	if p > 100 {
		p = 100
	}
	if p > t.Progress {
		t.Progress = p
	}
}

// Clone returns a deep copy of the trip.
func (t *Trip) Clone() *Trip {
	if t == nil {
		return nil
	}
	out := *t
	out.Preferences = clonePreferences(t.Preferences)
	out.Scheduled = make([]ScheduledActivity, len(t.Scheduled))
	for i, a := range t.Scheduled {
		a.Candidate = cloneCandidate(a.Candidate)
		if a.Details != nil {
			d := *a.Details
			d.PhotoURLs = slices.Clone(a.Details.PhotoURLs)
			a.Details = &d
		}
		out.Scheduled[i] = a
	}
	out.Unscheduled = make([]UnscheduledActivity, len(t.Unscheduled))
	for i, u := range t.Unscheduled {
		u.Candidate = cloneCandidate(u.Candidate)
		out.Unscheduled[i] = u
	}
	if t.Error != nil {
		e := *t.Error
		out.Error = &e
	}
	if t.LastRebalancedAt != nil {
		ts := *t.LastRebalancedAt
		out.LastRebalancedAt = &ts
	}
	return &out
}

func cloneCandidate(c CandidateActivity) CandidateActivity {
	c.Tags = slices.Clone(c.Tags)
	c.OpeningHours = slices.Clone(c.OpeningHours)
	if c.PreferredStart != nil {
		s := *c.PreferredStart
		c.PreferredStart = &s
	}
	return c
}

func clonePreferences(p PreferenceProfile) PreferenceProfile {
	p.Interests = slices.Clone(p.Interests)
	p.DietaryRestrictions = slices.Clone(p.DietaryRestrictions)
	p.CuisinePreferences.Preferred = slices.Clone(p.CuisinePreferences.Preferred)
	p.CuisinePreferences.Avoided = slices.Clone(p.CuisinePreferences.Avoided)
	p.TransportModes = slices.Clone(p.TransportModes)
	p.BestTimeOfDay = slices.Clone(p.BestTimeOfDay)
	p.IndoorPreferences = slices.Clone(p.IndoorPreferences)
	p.OutdoorPreferences = slices.Clone(p.OutdoorPreferences)
	if p.MealImportance != nil {
		mi := *p.MealImportance
		p.MealImportance = &mi
	}
	return p
}

// CreateTripRequest is the payload for creating a draft trip.
type CreateTripRequest struct {
	Destination string             `json:"destination"`
	CityID      string             `json:"city_id,omitempty"`
	StartDate   Date               `json:"start_date"`
	EndDate     Date               `json:"end_date"`
	Preferences *PreferenceProfile `json:"preferences,omitempty"`
}

// StartGenerationRequest optionally replaces the trip's preference snapshot.
type StartGenerationRequest struct {
	Preferences *PreferenceProfile `json:"preferences,omitempty"`
}

// ActivityEdit re-times a scheduled activity. Nil fields keep their value.
type ActivityEdit struct {
	Date            *Date  `json:"date,omitempty"`
	Start           *Clock `json:"start,omitempty"`
	DurationMinutes *int   `json:"duration_minutes,omitempty"`
}

// TripEvent is pushed to subscribers after every persisted status change.
type TripEvent struct {
	TripID    uuid.UUID  `json:"trip_id"`
	UserID    string     `json:"user_id"`
	Status    TripStatus `json:"status"`
	Progress  int        `json:"progress"`
	Attempt   int        `json:"attempt"`
	Error     *TripError `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

func EventFor(t *Trip) TripEvent {
	return TripEvent{
		TripID:    t.ID,
		UserID:    t.UserID,
		Status:    t.Status,
		Progress:  t.Progress,
		Attempt:   t.AttemptsCount,
		Error:     t.Error,
		Timestamp: time.Now().UTC(),
	}
}
