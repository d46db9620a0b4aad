package run

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/avikko/wxpost/internal/app"
	"github.com/avikko/wxpost/internal/conf"
	"github.com/avikko/wxpost/internal/scheduler"
)

// Command creates a new command for the live scheduler.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scheduler and post at the configured fire points",
		Long:  "Start the scheduler loop: at every configured fire point, aggregate current conditions, render the summary and post it.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd.Context(), settings, scheduler.ModeLive)
		},
	}

	if err := setupFlags(cmd); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures flags specific to the run command.
func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().StringSlice("firepoints", nil, "Fire points as HH:MM local times (e.g. 08:00,18:00)")
	cmd.Flags().Int("tickinterval", 0, "Scheduler tick interval in seconds")

	if err := viper.BindPFlag("schedule.firepoints", cmd.Flags().Lookup("firepoints")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	if err := viper.BindPFlag("schedule.tickintervalseconds", cmd.Flags().Lookup("tickinterval")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
