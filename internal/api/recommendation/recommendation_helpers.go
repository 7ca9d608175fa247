package recommendation

import (
	"fmt"
	"math"
	"slices"

	"github.com/golang/geo/s2"

	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

const earthRadiusKm = 6371.0088

// distanceKm returns the great-circle distance between two points in kilometres.
func distanceKm(a, b types.GeoPoint) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lon)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lon)
	return p1.Distance(p2).Radians() * earthRadiusKm
}

// dietaryConflicts lists candidate tags that rule a place out for a restriction.
var dietaryConflicts = map[string][]string{
	"vegetarian":  {"steakhouse", "meat_only", "non_vegetarian"},
	"vegan":       {"steakhouse", "meat_only", "non_vegetarian", "non_vegan", "dairy_heavy"},
	"gluten_free": {"gluten_heavy", "non_gluten_free"},
	"halal":       {"pork", "non_halal", "alcohol_only"},
	"kosher":      {"pork", "shellfish", "non_kosher"},
	"dairy_free":  {"dairy_heavy", "cheese_bar"},
	"nut_free":    {"nut_heavy"},
}

func conflictsWith(restriction, tag string) bool {
	for _, c := range dietaryConflicts[restriction] {
		if c == tag {
			return true
		}
	}
	switch tag {
	case "no_" + restriction, "non_" + restriction, "no_" + restriction + "_options":
		return true
	}
	return false
}

// exclusionReason returns why the candidate must be hidden from this profile,
// or "" when it may be shown. The profile must be normalized.
func exclusionReason(c types.CandidateActivity, profile types.PreferenceProfile) string {
	terms := candidateTerms(c)
	for _, avoided := range profile.CuisinePreferences.Avoided {
		if slices.Contains(terms, avoided) {
			return fmt.Sprintf("avoided cuisine %q", avoided)
		}
	}
	for _, restriction := range profile.DietaryRestrictions {
		for _, term := range terms {
			if conflictsWith(restriction, term) {
				return fmt.Sprintf("conflicts with %s restriction (%s)", restriction, term)
			}
		}
	}
	return ""
}

// candidateTerms is the sorted set of the candidate's category and tags.
func candidateTerms(c types.CandidateActivity) []string {
	return types.NormalizeTags(append([]string{c.Category}, c.Tags...))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
