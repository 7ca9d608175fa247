package proposer

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

func preferencesPrompt(p types.PreferenceProfile) string {
	var b strings.Builder
	if len(p.Interests) > 0 {
		fmt.Fprintf(&b, "\n    - Interests: %s", strings.Join(p.Interests, ", "))
	}
	fmt.Fprintf(&b, "\n    - Budget: price tier %d of %d", p.PriceTier, types.MaxPriceTier)
	fmt.Fprintf(&b, "\n    - Energy: %d of %d, starts the day %s", p.EnergyLevel, types.MaxEnergyLevel, p.PreferredStartTime)
	if len(p.DietaryRestrictions) > 0 {
		fmt.Fprintf(&b, "\n    - Dietary restrictions (never suggest places that conflict): %s", strings.Join(p.DietaryRestrictions, ", "))
	}
	if len(p.CuisinePreferences.Preferred) > 0 {
		fmt.Fprintf(&b, "\n    - Favourite cuisines: %s", strings.Join(p.CuisinePreferences.Preferred, ", "))
	}
	if len(p.CuisinePreferences.Avoided) > 0 {
		fmt.Fprintf(&b, "\n    - Cuisines to avoid: %s", strings.Join(p.CuisinePreferences.Avoided, ", "))
	}
	if p.MealImportance != nil && p.MealImportance.Any() {
		var meals []string
		for _, slot := range types.MealSlots {
			if p.MealImportance.Wants(slot) {
				meals = append(meals, string(slot))
			}
		}
		fmt.Fprintf(&b, "\n    - Include enough restaurants for: %s", strings.Join(meals, ", "))
	}
	fmt.Fprintf(&b, "\n    - Crowds: prefers %s places", p.CrowdPreference)
	if len(p.BestTimeOfDay) > 0 {
		times := make([]string, 0, len(p.BestTimeOfDay))
		for _, tod := range p.BestTimeOfDay {
			from, to := tod.Range()
			times = append(times, fmt.Sprintf("%s (%s-%s)", tod, from, to))
		}
		fmt.Fprintf(&b, "\n    - Best times of day for sightseeing: %s", strings.Join(times, ", "))
	}
	if len(p.TransportModes) > 0 {
		modes := make([]string, 0, len(p.TransportModes))
		for _, m := range p.TransportModes {
			modes = append(modes, string(m))
		}
		fmt.Fprintf(&b, "\n    - Gets around by: %s (keep places reachable that way)", strings.Join(modes, ", "))
	}
	return b.String()
}

func itineraryCandidatesPrompt(req ProposalRequest, maxCandidates int) string {
	days := req.DateRange.NumDays()
	return fmt.Sprintf(`
        Suggest up to %d places to visit in %s for a %d day trip from %s to %s.
        The traveller's preferences are:%s
        Return the response STRICTLY as a JSON object with:
        {
        "activities": [
            {
            "name": "Name of the place",
            "category": "Primary category (e.g. museum, park, landmark, restaurant, cafe, bar)",
            "location": {"lat": <float>, "lon": <float>},
            "address": "Street address",
            "duration_minutes": <typical visit length in minutes>,
            "opening_hours": [{"weekday": <0=Sunday..6=Saturday>, "open": "HH:MM", "close": "HH:MM"}],
            "rating": <0-5>,
            "review_count": <integer>,
            "price_tier": <1-4>,
            "tags": ["lower_case_tags", "cuisine names for restaurants", "breakfast|lunch|dinner for meals"]
            }
        ]
        }`, maxCandidates, req.Destination, days, req.DateRange.Start, req.DateRange.End, preferencesPrompt(req.Profile))
}
