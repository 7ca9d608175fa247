package types

import "time"

// ScoreFactors is the per-factor breakdown of a recommendation score. Every factor is in [0,1].
type ScoreFactors struct {
	Interest  float64 `json:"interest"`
	Price     float64 `json:"price"`
	Quality   float64 `json:"quality"`
	Crowd     float64 `json:"crowd"`
	TimeOfDay float64 `json:"time_of_day"`
	Proximity float64 `json:"proximity"`
}

type RecommendationScore struct {
	Candidate       CandidateActivity `json:"candidate"`
	Score           float64           `json:"score"`
	Factors         ScoreFactors      `json:"factors"`
	Excluded        bool              `json:"excluded"`
	ExclusionReason string            `json:"exclusion_reason,omitempty"`
}

// PlaceKind filters the recommendation pool.
type PlaceKind string

const (
	PlaceKindAll        PlaceKind = "all"
	PlaceKindAttraction PlaceKind = "attraction"
	PlaceKindRestaurant PlaceKind = "restaurant"
)

type RecommendationRequest struct {
	Preferences     *PreferenceProfile `json:"preferences,omitempty"`
	Budget          int                `json:"budget,omitempty"`
	StartTime       *Clock             `json:"start_time,omitempty"`
	Date            *Date              `json:"date,omitempty"`
	CurrentLocation *GeoPoint          `json:"current_location,omitempty"`
	CrowdPreference CrowdPreference    `json:"crowd_preference,omitempty"`
	Kind            PlaceKind          `json:"kind,omitempty"`
	Limit           int                `json:"limit,omitempty"`
	IncludeExcluded bool               `json:"include_excluded,omitempty"`
}

type RecommendationResponse struct {
	CityID      string                `json:"city_id"`
	Ranked      []RecommendationScore `json:"ranked"`
	Excluded    []RecommendationScore `json:"excluded,omitempty"`
	GeneratedAt time.Time             `json:"generated_at"`
}
