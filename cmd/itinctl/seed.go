package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	database "github.com/FACorreiaa/go-itinerary-planner/app/db"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/recommendation"
)

func seedPlacesCmd() *cobra.Command {
	var (
		placesPath string
		cityID     string
		migrate    bool
	)

	cmd := &cobra.Command{
		Use:   "seed-places",
		Short: "Load a city's place pool into Postgres",
		Long:  `Upsert a JSON array of places into the pool used for recommendations, meal top-ups and the pool proposer.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cityID == "" {
				return fmt.Errorf("--city is required")
			}
			places, err := loadPlaces(placesPath)
			if err != nil {
				return err
			}

			ctx := context.Background()
			dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
			if err != nil {
				return err
			}
			if migrate {
				if err := database.RunMigrations(dbConfig.ConnectionURL, logger); err != nil {
					return fmt.Errorf("failed to run migrations: %w", err)
				}
			}
			pool, err := database.Init(ctx, dbConfig, logger)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := database.WaitForDB(ctx, pool, dbConfig.ConnectAttempts, logger); err != nil {
				return err
			}

			written, err := recommendation.NewPlaceRepository(pool, logger).SavePlaces(ctx, cityID, places)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %d of %d places for %s\n", written, len(places), cityID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&placesPath, "places", "p", "", "JSON file with places (- for stdin)")
	cmd.Flags().StringVarP(&cityID, "city", "c", "", "City id the places belong to")
	cmd.Flags().BoolVar(&migrate, "migrate", true, "Run database migrations first")

	return cmd
}
