package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/avikko/wxpost/cmd/preview"
	"github.com/avikko/wxpost/cmd/run"
	"github.com/avikko/wxpost/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand() *cobra.Command {
	settings := &conf.Settings{}
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "wxpost",
		Short: "Weather summary poster",
		Long:  "Aggregates current conditions from multiple weather sources and posts a templated summary at scheduled times.",
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the configuration file")
	if err := setupFlags(rootCmd); err != nil {
		cobra.CheckErr(err)
	}

	// Add sub-commands to the root command.
	rootCmd.AddCommand(run.Command(settings), preview.Command(settings))

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		loaded, err := conf.Load(configPath)
		if err != nil {
			return err
		}
		*settings = *loaded
		return nil
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command) error {
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")
	rootCmd.PersistentFlags().Float64("latitude", 0, "Latitude of the observing site")
	rootCmd.PersistentFlags().Float64("longitude", 0, "Longitude of the observing site")
	rootCmd.PersistentFlags().String("timezone", "", "Schedule timezone (IANA name)")

	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	if err := viper.BindPFlag("station.latitude", rootCmd.PersistentFlags().Lookup("latitude")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	if err := viper.BindPFlag("station.longitude", rootCmd.PersistentFlags().Lookup("longitude")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	if err := viper.BindPFlag("schedule.timezone", rootCmd.PersistentFlags().Lookup("timezone")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
