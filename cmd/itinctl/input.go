package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

// readJSON decodes path into dst. "-" reads standard input.
func readJSON(path string, dst interface{}) error {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func loadPlaces(path string) ([]types.CandidateActivity, error) {
	if path == "" {
		return nil, fmt.Errorf("--places is required")
	}
	var places []types.CandidateActivity
	if err := readJSON(path, &places); err != nil {
		return nil, err
	}
	return places, nil
}

// loadProfile reads a preference profile, or returns the defaults when path is empty.
func loadProfile(path string) (types.PreferenceProfile, error) {
	if path == "" {
		return types.DefaultPreferenceProfile(), nil
	}
	var p types.PreferenceProfile
	if err := readJSON(path, &p); err != nil {
		return types.PreferenceProfile{}, err
	}
	if err := p.Validate(); err != nil {
		return types.PreferenceProfile{}, err
	}
	return p.Normalize(), nil
}

func tripRange(start string, days int) (types.DateRange, error) {
	if days < 1 {
		return types.DateRange{}, fmt.Errorf("--days must be at least 1")
	}
	d, err := types.ParseDate(start)
	if err != nil {
		return types.DateRange{}, err
	}
	return types.DateRange{Start: d, End: d.AddDays(days - 1)}, nil
}
