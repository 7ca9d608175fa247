package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	appLogger "github.com/FACorreiaa/go-itinerary-planner/app/logger"
	"github.com/FACorreiaa/go-itinerary-planner/config"
)

var (
	cfg    config.Config
	logger *slog.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "itinctl",
		Short: "Offline tools for the itinerary planner",
		Long: `itinctl scores and schedules place lists without running the API,
and seeds city place pools into the database.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.InitConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger = appLogger.New(os.Getenv("APP_ENV"), os.Stderr)
			return nil
		},
	}

	rootCmd.AddCommand(
		scheduleCmd(),
		scoreCmd(),
		seedPlacesCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
