package types

import (
	"database/sql/driver"
	"fmt"
	"slices"
	"strings"
)

// --- ENUM Types ---

// StartTimePreference represents how early the traveller likes to start the day.
type StartTimePreference string

const (
	StartTimeEarly StartTimePreference = "early"
	StartTimeMid   StartTimePreference = "mid"
	StartTimeLate  StartTimePreference = "late"
)

func (s StartTimePreference) Valid() bool {
	switch s {
	case StartTimeEarly, StartTimeMid, StartTimeLate:
		return true
	}
	return false
}

// CrowdPreference represents the DB ENUM 'crowd_preference_enum'.
type CrowdPreference string

const (
	CrowdPopular CrowdPreference = "popular"
	CrowdHidden  CrowdPreference = "hidden"
	CrowdMixed   CrowdPreference = "mixed"
)

func (c CrowdPreference) Valid() bool {
	switch c {
	case CrowdPopular, CrowdHidden, CrowdMixed:
		return true
	}
	return false
}

// Scan implements the sql.Scanner interface for CrowdPreference.
func (c *CrowdPreference) Scan(value interface{}) error {
	strVal, ok := value.(string)
	if !ok {
		bytesVal, ok := value.([]byte)
		if !ok {
			return fmt.Errorf("failed to scan CrowdPreference: expected string or []byte, got %T", value)
		}
		strVal = string(bytesVal)
	}
	if !CrowdPreference(strVal).Valid() {
		return fmt.Errorf("unknown CrowdPreference value: %s", strVal)
	}
	*c = CrowdPreference(strVal)
	return nil
}

// Value implements the driver.Valuer interface for CrowdPreference.
func (c CrowdPreference) Value() (driver.Value, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid CrowdPreference value: %s", c)
	}
	return string(c), nil
}

type TransportMode string

const (
	TransportWalk   TransportMode = "walk"
	TransportPublic TransportMode = "public"
	TransportCar    TransportMode = "car"
	TransportBike   TransportMode = "bike"
)

func (t TransportMode) Valid() bool {
	switch t {
	case TransportWalk, TransportPublic, TransportCar, TransportBike:
		return true
	}
	return false
}

type TimeOfDay string

const (
	TimeOfDayMorning   TimeOfDay = "morning"
	TimeOfDayAfternoon TimeOfDay = "afternoon"
	TimeOfDayEvening   TimeOfDay = "evening"
	TimeOfDayNight     TimeOfDay = "night"
)

func (t TimeOfDay) Valid() bool {
	switch t {
	case TimeOfDayMorning, TimeOfDayAfternoon, TimeOfDayEvening, TimeOfDayNight:
		return true
	}
	return false
}

// Range returns the clock window a time of day covers.
func (t TimeOfDay) Range() (Clock, Clock) {
	switch t {
	case TimeOfDayMorning:
		return NewClock(6, 0), NewClock(12, 0)
	case TimeOfDayAfternoon:
		return NewClock(12, 0), NewClock(17, 0)
	case TimeOfDayEvening:
		return NewClock(17, 0), NewClock(21, 0)
	case TimeOfDayNight:
		return NewClock(21, 0), MinutesPerDay
	}
	return 0, MinutesPerDay
}

const (
	MinPriceTier   = 1
	MaxPriceTier   = 4
	MinEnergyLevel = 1
	MaxEnergyLevel = 3
)

type CuisinePreferences struct {
	Preferred []string `json:"preferred,omitempty"`
	Avoided   []string `json:"avoided,omitempty"`
}

// MealImportance flags which meals should be placed every day.
type MealImportance struct {
	Breakfast bool `json:"breakfast"`
	Lunch     bool `json:"lunch"`
	Dinner    bool `json:"dinner"`
}

func (m MealImportance) Any() bool { return m.Breakfast || m.Lunch || m.Dinner }

// Wants reports whether the meal slot is flagged as important.
func (m MealImportance) Wants(slot Slot) bool {
	switch slot {
	case SlotBreakfast:
		return m.Breakfast
	case SlotLunch:
		return m.Lunch
	case SlotDinner:
		return m.Dinner
	}
	return false
}

// PreferenceProfile is the traveller's preference snapshot used for scoring and scheduling.
type PreferenceProfile struct {
	Interests           []string            `json:"interests,omitempty"`
	PriceTier           int                 `json:"price_tier,omitempty"`
	EnergyLevel         int                 `json:"energy_level,omitempty"`
	PreferredStartTime  StartTimePreference `json:"preferred_start_time,omitempty"`
	DietaryRestrictions []string            `json:"dietary_restrictions,omitempty"`
	CuisinePreferences  CuisinePreferences  `json:"cuisine_preferences"`
	MealImportance      *MealImportance     `json:"meal_importance,omitempty"`
	TransportModes      []TransportMode     `json:"transport_modes,omitempty"`
	CrowdPreference     CrowdPreference     `json:"crowd_preference,omitempty"`
	BestTimeOfDay       []TimeOfDay         `json:"best_time_of_day,omitempty"`
	IndoorPreferences   []string            `json:"indoor_preferences,omitempty"`
	OutdoorPreferences  []string            `json:"outdoor_preferences,omitempty"`
}

// DefaultPreferenceProfile is the single source of preference defaults.
func DefaultPreferenceProfile() PreferenceProfile {
	return PreferenceProfile{
		PriceTier:          2,
		EnergyLevel:        2,
		PreferredStartTime: StartTimeMid,
		MealImportance:     &MealImportance{Lunch: true, Dinner: true},
		TransportModes:     []TransportMode{TransportWalk},
		CrowdPreference:    CrowdMixed,
	}
}

// Normalize returns a copy with every missing or malformed field replaced
// by its default. Tag lists go through NormalizeTags.
func (p PreferenceProfile) Normalize() PreferenceProfile {
	def := DefaultPreferenceProfile()
	out := p

	if out.PriceTier < MinPriceTier || out.PriceTier > MaxPriceTier {
		out.PriceTier = def.PriceTier
	}
	if out.EnergyLevel < MinEnergyLevel || out.EnergyLevel > MaxEnergyLevel {
		out.EnergyLevel = def.EnergyLevel
	}
	if !out.PreferredStartTime.Valid() {
		out.PreferredStartTime = def.PreferredStartTime
	}
	if !out.CrowdPreference.Valid() {
		out.CrowdPreference = def.CrowdPreference
	}
	if out.MealImportance == nil {
		out.MealImportance = def.MealImportance
	} else {
		mi := *out.MealImportance
		out.MealImportance = &mi
	}

	out.Interests = NormalizeTags(p.Interests)
	out.DietaryRestrictions = NormalizeTags(p.DietaryRestrictions)
	out.CuisinePreferences = CuisinePreferences{
		Preferred: NormalizeTags(p.CuisinePreferences.Preferred),
		Avoided:   NormalizeTags(p.CuisinePreferences.Avoided),
	}
	out.IndoorPreferences = NormalizeTags(p.IndoorPreferences)
	out.OutdoorPreferences = NormalizeTags(p.OutdoorPreferences)

	out.TransportModes = nil
	for _, m := range p.TransportModes {
		m = TransportMode(strings.ToLower(strings.TrimSpace(string(m))))
		if m.Valid() && !slices.Contains(out.TransportModes, m) {
			out.TransportModes = append(out.TransportModes, m)
		}
	}
	if len(out.TransportModes) == 0 {
		out.TransportModes = def.TransportModes
	}

	out.BestTimeOfDay = nil
	for _, t := range p.BestTimeOfDay {
		t = TimeOfDay(strings.ToLower(strings.TrimSpace(string(t))))
		if t.Valid() && !slices.Contains(out.BestTimeOfDay, t) {
			out.BestTimeOfDay = append(out.BestTimeOfDay, t)
		}
	}
	return out
}

// Validate rejects profiles that cannot be honoured. Zero values are
// accepted since Normalize fills them in.
func (p PreferenceProfile) Validate() error {
	if p.PriceTier != 0 && (p.PriceTier < MinPriceTier || p.PriceTier > MaxPriceTier) {
		return fmt.Errorf("%w: price_tier must be between %d and %d", ErrInvalidPreferences, MinPriceTier, MaxPriceTier)
	}
	if p.EnergyLevel != 0 && (p.EnergyLevel < MinEnergyLevel || p.EnergyLevel > MaxEnergyLevel) {
		return fmt.Errorf("%w: energy_level must be between %d and %d", ErrInvalidPreferences, MinEnergyLevel, MaxEnergyLevel)
	}
	if p.PreferredStartTime != "" && !p.PreferredStartTime.Valid() {
		return fmt.Errorf("%w: unknown preferred_start_time %q", ErrInvalidPreferences, p.PreferredStartTime)
	}
	if p.CrowdPreference != "" && !p.CrowdPreference.Valid() {
		return fmt.Errorf("%w: unknown crowd_preference %q", ErrInvalidPreferences, p.CrowdPreference)
	}
	for _, m := range p.TransportModes {
		if !m.Valid() {
			return fmt.Errorf("%w: unknown transport mode %q", ErrInvalidPreferences, m)
		}
	}
	for _, t := range p.BestTimeOfDay {
		if !t.Valid() {
			return fmt.Errorf("%w: unknown time of day %q", ErrInvalidPreferences, t)
		}
	}

	avoided := NormalizeTags(p.CuisinePreferences.Avoided)
	for _, c := range NormalizeTags(p.CuisinePreferences.Preferred) {
		if slices.Contains(avoided, c) {
			return fmt.Errorf("%w: cuisine %q is both preferred and avoided", ErrInvalidPreferences, c)
		}
	}
	return nil
}

// NormalizeTags returns the sorted set of lower-cased, non-empty tags.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		out = append(out, t)
	}
	slices.Sort(out)
	return slices.Compact(out)
}
