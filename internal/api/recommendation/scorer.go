package recommendation

import (
	"math"
	"sort"
	"time"

	"github.com/FACorreiaa/go-itinerary-planner/config"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

type Weights struct {
	Interest  float64
	Price     float64
	Quality   float64
	Crowd     float64
	TimeOfDay float64
	Proximity float64
}

func (w Weights) sum() float64 {
	return w.Interest + w.Price + w.Quality + w.Crowd + w.TimeOfDay + w.Proximity
}

type Options struct {
	Weights           Weights
	ReviewSaturation  int
	ProximityRadiusKm float64
}

func DefaultOptions() Options {
	return Options{
		Weights: Weights{
			Interest:  0.30,
			Price:     0.15,
			Quality:   0.25,
			Crowd:     0.10,
			TimeOfDay: 0.10,
			Proximity: 0.10,
		},
		ReviewSaturation:  10_000,
		ProximityRadiusKm: 5,
	}
}

// NewOptions reads tunables from configuration. All-zero weights keep the defaults.
func NewOptions(c config.ScoringConfig) Options {
	opts := DefaultOptions()
	w := Weights{
		Interest:  c.Weights.Interest,
		Price:     c.Weights.Price,
		Quality:   c.Weights.Quality,
		Crowd:     c.Weights.Crowd,
		TimeOfDay: c.Weights.TimeOfDay,
		Proximity: c.Weights.Proximity,
	}
	if w.sum() > 0 {
		opts.Weights = w
	}
	if c.ReviewSaturation > 0 {
		opts.ReviewSaturation = c.ReviewSaturation
	}
	if c.ProximityRadiusKm > 0 {
		opts.ProximityRadiusKm = c.ProximityRadiusKm
	}
	return opts
}

// ScoringContext carries the situational inputs of a scoring request.
// Zero values mean "not given".
type ScoringContext struct {
	Budget          int
	StartTime       *types.Clock
	Weekday         *time.Weekday
	CurrentLocation *types.GeoPoint
	CrowdPreference types.CrowdPreference
}

type Result struct {
	Ranked   []types.RecommendationScore
	Excluded []types.RecommendationScore
}

// Scorer ranks candidate places against a preference profile. It is pure and
// safe for concurrent use.
type Scorer struct {
	opts Options
}

func NewScorer(opts Options) *Scorer {
	if opts.Weights.sum() <= 0 {
		opts.Weights = DefaultOptions().Weights
	}
	if opts.ReviewSaturation <= 0 {
		opts.ReviewSaturation = DefaultOptions().ReviewSaturation
	}
	if opts.ProximityRadiusKm <= 0 {
		opts.ProximityRadiusKm = DefaultOptions().ProximityRadiusKm
	}
	return &Scorer{opts: opts}
}

// Score ranks candidates. Hard-excluded candidates go to Result.Excluded and never appear in Ranked.
func (s *Scorer) Score(candidates []types.CandidateActivity, profile types.PreferenceProfile, sctx ScoringContext) Result {
	profile = profile.Normalize()
	if sctx.Budget < types.MinPriceTier || sctx.Budget > types.MaxPriceTier {
		sctx.Budget = profile.PriceTier
	}
	if !sctx.CrowdPreference.Valid() {
		sctx.CrowdPreference = profile.CrowdPreference
	}
	interests := profileTerms(profile)
	radius := s.radiusKm(profile.TransportModes)

	var result Result
	for _, raw := range candidates {
		c := raw.WithDefaults()
		if reason := exclusionReason(c, profile); reason != "" {
			result.Excluded = append(result.Excluded, types.RecommendationScore{
				Candidate:       c,
				Excluded:        true,
				ExclusionReason: reason,
			})
			continue
		}

		f := types.ScoreFactors{
			Interest:  interestFit(c, interests),
			Price:     priceFit(c, sctx.Budget),
			Quality:   s.quality(c),
			Crowd:     s.crowdFit(c, sctx.CrowdPreference),
			TimeOfDay: timeOfDayFit(c, sctx, profile.BestTimeOfDay),
			Proximity: proximity(c, sctx.CurrentLocation, radius),
		}
		result.Ranked = append(result.Ranked, types.RecommendationScore{
			Candidate: c,
			Score:     s.combine(f),
			Factors:   f,
		})
	}

	sort.SliceStable(result.Ranked, func(i, j int) bool {
		a, b := result.Ranked[i], result.Ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Candidate.ReviewCount != b.Candidate.ReviewCount {
			return a.Candidate.ReviewCount > b.Candidate.ReviewCount
		}
		if a.Candidate.Rating != b.Candidate.Rating {
			return a.Candidate.Rating > b.Candidate.Rating
		}
		return a.Candidate.ID < b.Candidate.ID
	})
	return result
}

// Rank is Score flattened for the scheduler: ranked candidates in order, and
// the excluded ones as unscheduled entries.
func (s *Scorer) Rank(candidates []types.CandidateActivity, profile types.PreferenceProfile, sctx ScoringContext) ([]types.CandidateActivity, []types.UnscheduledActivity) {
	res := s.Score(candidates, profile, sctx)
	ranked := make([]types.CandidateActivity, 0, len(res.Ranked))
	for _, r := range res.Ranked {
		ranked = append(ranked, r.Candidate)
	}
	excluded := make([]types.UnscheduledActivity, 0, len(res.Excluded))
	for _, e := range res.Excluded {
		excluded = append(excluded, types.UnscheduledActivity{
			Candidate: e.Candidate,
			Reason:    types.ReasonExcludedByPreferences,
			Detail:    e.ExclusionReason,
		})
	}
	return ranked, excluded
}

func (s *Scorer) combine(f types.ScoreFactors) float64 {
	w := s.opts.Weights
	total := w.Interest*f.Interest +
		w.Price*f.Price +
		w.Quality*f.Quality +
		w.Crowd*f.Crowd +
		w.TimeOfDay*f.TimeOfDay +
		w.Proximity*f.Proximity
	// rounded so float noise never decides an ordering
	return math.Round(total/w.sum()*1e6) / 1e6
}

func profileTerms(p types.PreferenceProfile) []string {
	var terms []string
	terms = append(terms, p.Interests...)
	terms = append(terms, p.CuisinePreferences.Preferred...)
	terms = append(terms, p.IndoorPreferences...)
	terms = append(terms, p.OutdoorPreferences...)
	return types.NormalizeTags(terms)
}

// interestFit is the overlap coefficient between the candidate's terms and
// the profile's interests. Profiles without interests are neutral.
func interestFit(c types.CandidateActivity, interests []string) float64 {
	if len(interests) == 0 {
		return 0.5
	}
	terms := candidateTerms(c)
	if len(terms) == 0 {
		return 0
	}
	matches := 0
	for _, t := range terms {
		for _, i := range interests {
			if t == i {
				matches++
				break
			}
		}
	}
	return clamp01(float64(matches) / float64(min(len(terms), len(interests))))
}

func priceFit(c types.CandidateActivity, budget int) float64 {
	if c.PriceTier == 0 {
		return 0.5
	}
	diff := math.Abs(float64(c.PriceTier-budget)) / float64(types.MaxPriceTier-types.MinPriceTier)
	return clamp01(1 - diff*diff)
}

func (s *Scorer) volume(c types.CandidateActivity) float64 {
	return clamp01(math.Log1p(float64(c.ReviewCount)) / math.Log1p(float64(s.opts.ReviewSaturation)))
}

func (s *Scorer) quality(c types.CandidateActivity) float64 {
	return clamp01(0.6*c.Rating/5 + 0.4*s.volume(c))
}

func (s *Scorer) crowdFit(c types.CandidateActivity, pref types.CrowdPreference) float64 {
	v := s.volume(c)
	switch pref {
	case types.CrowdPopular:
		if c.HasTag("must_see") || c.HasTag("must-see") {
			v += 0.2
		}
		return clamp01(v)
	case types.CrowdHidden:
		h := 1 - v
		if c.HasTag("hidden_gem") || c.HasTag("local") {
			h += 0.2
		}
		if c.HasTag("crowded") {
			h -= 0.2
		}
		return clamp01(h)
	default:
		return 0.5
	}
}

// timeOfDayFit checks the candidate's hours against the requested start time
// or, without one, against the traveller's preferred times of day.
func timeOfDayFit(c types.CandidateActivity, sctx ScoringContext, best []types.TimeOfDay) float64 {
	if !c.OpeningHours.HasData() {
		return 1
	}
	if sctx.StartTime == nil {
		if len(best) == 0 {
			return 1
		}
		for _, tod := range best {
			from, to := tod.Range()
			if opensDuring(c, sctx.Weekday, from, to) {
				return 1
			}
		}
		return 0
	}
	start := *sctx.StartTime
	end := start.Add(c.DurationMinutes)
	if sctx.Weekday != nil {
		if c.OpeningHours.Covers(*sctx.Weekday, start, end) {
			return 1
		}
		return 0
	}
	if c.OpeningHours.CoversAnyDay(start, end) {
		return 1
	}
	return 0
}

// opensDuring reports whether a full visit fits inside [from, to) on the
// weekday, or on any weekday when none is given.
func opensDuring(c types.CandidateActivity, weekday *time.Weekday, from, to types.Clock) bool {
	first, last := time.Sunday, time.Saturday
	if weekday != nil {
		first, last = *weekday, *weekday
	}
	for d := first; d <= last; d++ {
		for _, seg := range c.OpeningHours.Segments(d) {
			if min(seg.End, to)-max(seg.Start, from) >= types.Clock(c.DurationMinutes) {
				return true
			}
		}
	}
	return false
}

// transportReach stretches the proximity radius for faster ways of getting around.
var transportReach = map[types.TransportMode]float64{
	types.TransportWalk:   1,
	types.TransportBike:   2,
	types.TransportPublic: 3,
	types.TransportCar:    5,
}

// radiusKm is the configured radius scaled by the farthest-reaching transport mode.
func (s *Scorer) radiusKm(modes []types.TransportMode) float64 {
	reach := 1.0
	for _, m := range modes {
		reach = max(reach, transportReach[m])
	}
	return s.opts.ProximityRadiusKm * reach
}

func proximity(c types.CandidateActivity, loc *types.GeoPoint, radiusKm float64) float64 {
	if loc == nil || c.Location.IsZero() {
		return 0
	}
	d := distanceKm(*loc, c.Location)
	return clamp01(1 / (1 + d/radiusKm))
}
