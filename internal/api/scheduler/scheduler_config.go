package scheduler

import (
	"fmt"

	"github.com/FACorreiaa/go-itinerary-planner/config"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

// Config holds the day envelope and pacing rules. Energy-indexed arrays are
// indexed by energyLevel-1.
type Config struct {
	StartTimes            map[types.StartTimePreference]types.Clock
	DayEnds               [types.MaxEnergyLevel]types.Clock
	DailyCaps             [types.MaxEnergyLevel]int
	MealWindows           map[types.Slot]types.Segment
	TravelBufferMinutes   int
	MaxTripDays           int
	AssumeOpenWhenUnknown bool
}

func DefaultConfig() Config {
	return Config{
		StartTimes: map[types.StartTimePreference]types.Clock{
			types.StartTimeEarly: types.NewClock(7, 0),
			types.StartTimeMid:   types.NewClock(9, 0),
			types.StartTimeLate:  types.NewClock(10, 30),
		},
		DayEnds:   [types.MaxEnergyLevel]types.Clock{types.NewClock(20, 0), types.NewClock(21, 30), types.NewClock(23, 0)},
		DailyCaps: [types.MaxEnergyLevel]int{2, 4, 6},
		MealWindows: map[types.Slot]types.Segment{
			types.SlotBreakfast: {Start: types.NewClock(7, 0), End: types.NewClock(10, 30)},
			types.SlotLunch:     {Start: types.NewClock(12, 0), End: types.NewClock(14, 30)},
			types.SlotDinner:    {Start: types.NewClock(18, 30), End: types.NewClock(21, 30)},
		},
		TravelBufferMinutes:   15,
		MaxTripDays:           30,
		AssumeOpenWhenUnknown: true,
	}
}

// NewConfig builds a Config from the application configuration, keeping
// defaults for anything left empty.
func NewConfig(c config.SchedulerConfig) (Config, error) {
	cfg := DefaultConfig()

	starts := map[types.StartTimePreference]string{
		types.StartTimeEarly: c.StartTimes.Early,
		types.StartTimeMid:   c.StartTimes.Mid,
		types.StartTimeLate:  c.StartTimes.Late,
	}
	for pref, raw := range starts {
		if raw == "" {
			continue
		}
		clock, err := types.ParseClock(raw)
		if err != nil {
			return Config{}, fmt.Errorf("scheduler start time %s: %w", pref, err)
		}
		cfg.StartTimes[pref] = clock
	}

	for i, raw := range c.DayEnds {
		if i >= len(cfg.DayEnds) {
			break
		}
		clock, err := types.ParseClock(raw)
		if err != nil {
			return Config{}, fmt.Errorf("scheduler day end for energy %d: %w", i+1, err)
		}
		cfg.DayEnds[i] = clock
	}
	for i, limit := range c.DailyCaps {
		if i >= len(cfg.DailyCaps) {
			break
		}
		if limit < 0 {
			return Config{}, fmt.Errorf("scheduler daily cap for energy %d must not be negative", i+1)
		}
		cfg.DailyCaps[i] = limit
	}

	windows := map[types.Slot]config.Window{
		types.SlotBreakfast: c.MealWindows.Breakfast,
		types.SlotLunch:     c.MealWindows.Lunch,
		types.SlotDinner:    c.MealWindows.Dinner,
	}
	for slot, w := range windows {
		if w.Start == "" && w.End == "" {
			continue
		}
		start, err := types.ParseClock(w.Start)
		if err != nil {
			return Config{}, fmt.Errorf("%s window start: %w", slot, err)
		}
		end, err := types.ParseClock(w.End)
		if err != nil {
			return Config{}, fmt.Errorf("%s window end: %w", slot, err)
		}
		if end <= start {
			return Config{}, fmt.Errorf("%s window must end after it starts", slot)
		}
		cfg.MealWindows[slot] = types.Segment{Start: start, End: end}
	}

	if c.TravelBufferMinutes > 0 {
		cfg.TravelBufferMinutes = c.TravelBufferMinutes
	}
	if c.MaxTripDays > 0 {
		cfg.MaxTripDays = c.MaxTripDays
	}
	if c.AssumeOpenWhenUnknown != nil {
		cfg.AssumeOpenWhenUnknown = *c.AssumeOpenWhenUnknown
	}
	return cfg, nil
}

func (c Config) envelope(profile types.PreferenceProfile) (types.Clock, types.Clock) {
	start, ok := c.StartTimes[profile.PreferredStartTime]
	if !ok {
		start = c.StartTimes[types.StartTimeMid]
	}
	return start, c.DayEnds[profile.EnergyLevel-1]
}

func (c Config) dailyCap(profile types.PreferenceProfile) int {
	return c.DailyCaps[profile.EnergyLevel-1]
}
