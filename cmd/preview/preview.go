package preview

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/avikko/wxpost/internal/app"
	"github.com/avikko/wxpost/internal/conf"
	"github.com/avikko/wxpost/internal/scheduler"
)

// Command creates a new command for rendering a summary without posting.
func Command(settings *conf.Settings) *cobra.Command {
	var nextFire bool

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Render a summary without posting",
		Long:  "Run the pipeline once and print the rendered summary instead of posting it. With --next-fire, wait for the next fire point first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := scheduler.ModePreviewNow
			if nextFire {
				mode = scheduler.ModePreviewNextFire
			}
			return app.Run(cmd.Context(), settings, mode)
		},
	}

	cmd.Flags().BoolVar(&nextFire, "next-fire", false, "Wait for the next fire point instead of rendering immediately")

	if err := setupFlags(cmd); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures flags specific to the preview command.
func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("template", "", "Post template override")

	if err := viper.BindPFlag("post.template", cmd.Flags().Lookup("template")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
