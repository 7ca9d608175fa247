package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/FACorreiaa/go-itinerary-planner/internal/api/proposer"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/recommendation"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

func scoreCmd() *cobra.Command {
	var (
		placesPath  string
		profilePath string
		limit       int
		lat, lon    float64
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Rank a place list against a preference profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			places, err := loadPlaces(placesPath)
			if err != nil {
				return err
			}
			profile, err := loadProfile(profilePath)
			if err != nil {
				return err
			}

			sctx := recommendation.ScoringContext{}
			if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lon") {
				sctx.CurrentLocation = &types.GeoPoint{Lat: lat, Lon: lon}
			}
			valid, _ := proposer.Validate(places)
			result := recommendation.NewScorer(recommendation.NewOptions(cfg.Scoring)).Score(valid, profile, sctx)

			w := cmd.OutOrStdout()
			top := color.New(color.FgGreen, color.Bold)
			for i, s := range result.Ranked {
				if limit > 0 && i >= limit {
					break
				}
				line := fmt.Sprintf("%3d. %.3f  %-30s %s", i+1, s.Score, s.Candidate.Name, s.Candidate.Category)
				if i < 3 {
					top.Fprintln(w, line)
				} else {
					fmt.Fprintln(w, line)
				}
			}
			if len(result.Excluded) > 0 {
				fmt.Fprintln(w)
				for _, s := range result.Excluded {
					color.New(color.FgRed).Fprintf(w, "  excluded  %-30s %s\n", s.Candidate.Name, s.ExclusionReason)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&placesPath, "places", "p", "", "JSON file with candidate places (- for stdin)")
	cmd.Flags().StringVar(&profilePath, "prefs", "", "JSON file with a preference profile")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Show at most this many ranked places (0 for all)")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Current latitude for proximity scoring")
	cmd.Flags().Float64Var(&lon, "lon", 0, "Current longitude for proximity scoring")

	return cmd
}
