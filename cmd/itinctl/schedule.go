package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/FACorreiaa/go-itinerary-planner/internal/api/proposer"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/recommendation"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/scheduler"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

func scheduleCmd() *cobra.Command {
	var (
		placesPath  string
		profilePath string
		start       string
		days        int
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Build a day-by-day schedule from a place list",
		Long: `Validate, rank and schedule a JSON array of places for the given dates.
Places that do not fit are listed with the reason they were left out.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			places, err := loadPlaces(placesPath)
			if err != nil {
				return err
			}
			profile, err := loadProfile(profilePath)
			if err != nil {
				return err
			}
			dr, err := tripRange(start, days)
			if err != nil {
				return err
			}
			schedCfg, err := scheduler.NewConfig(cfg.Scheduler)
			if err != nil {
				return err
			}

			valid, invalid := proposer.Validate(places)
			scorer := recommendation.NewScorer(recommendation.NewOptions(cfg.Scoring))
			ranked, excluded := scorer.Rank(valid, profile, recommendation.ScoringContext{})
			result, err := scheduler.New(schedCfg).Schedule(dr, ranked, nil, profile)
			if err != nil {
				return err
			}
			result.Unscheduled = append(append(result.Unscheduled, excluded...), invalid...)
			logger.Debug("Schedule built", "scheduled", len(result.Scheduled), "unscheduled", len(result.Unscheduled))

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			printSchedule(cmd.OutOrStdout(), dr, result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&placesPath, "places", "p", "", "JSON file with candidate places (- for stdin)")
	cmd.Flags().StringVar(&profilePath, "prefs", "", "JSON file with a preference profile")
	cmd.Flags().StringVar(&start, "start", time.Now().Format("2006-01-02"), "First day of the trip (YYYY-MM-DD)")
	cmd.Flags().IntVarP(&days, "days", "d", 3, "Number of days")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")

	return cmd
}

func printSchedule(w io.Writer, dr types.DateRange, result types.ScheduleResult) {
	dayColor := color.New(color.FgCyan, color.Bold)
	mealColor := color.New(color.FgYellow)
	lockColor := color.New(color.FgMagenta)
	skipColor := color.New(color.FgRed)
	if w != os.Stdout {
		color.NoColor = true
	}

	for _, day := range dr.Days() {
		dayColor.Fprintf(w, "Day %d  %s %s\n", dr.DayIndex(day), day.Weekday(), day)
		placed := 0
		for _, a := range result.Scheduled {
			if !a.Date.Equal(day) {
				continue
			}
			placed++
			line := fmt.Sprintf("  %s-%s  %-10s %s", a.Start, a.End, a.Slot, a.Candidate.Name)
			switch {
			case a.Locked:
				lockColor.Fprintln(w, line+" (locked)")
			case a.Slot.IsMeal():
				mealColor.Fprintln(w, line)
			default:
				fmt.Fprintln(w, line)
			}
		}
		if placed == 0 {
			fmt.Fprintln(w, "  (free day)")
		}
	}

	if len(result.Unscheduled) > 0 {
		fmt.Fprintln(w)
		skipColor.Fprintf(w, "Unscheduled (%d)\n", len(result.Unscheduled))
		for _, u := range result.Unscheduled {
			name := u.Candidate.Name
			if name == "" {
				name = "<unnamed>"
			}
			if u.Detail != "" {
				fmt.Fprintf(w, "  %-30s %s: %s\n", name, u.Reason, u.Detail)
			} else {
				fmt.Fprintf(w, "  %-30s %s\n", name, u.Reason)
			}
		}
	}
}
