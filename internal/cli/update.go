package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Dev-derah/simple-content-ai/internal/core/version"
	"github.com/Dev-derah/simple-content-ai/internal/updater"
)

var updateCheck bool

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update contentai to the latest release",
	RunE: func(cmd *cobra.Command, args []string) error {
		if updateCheck {
			latest, newer, err := updater.Check(cmd.Context())
			if err != nil {
				return err
			}
			if !newer {
				fmt.Printf("Already up to date (v%s)\n", version.Version)
				return nil
			}
			fmt.Printf("New version available: %s\n  %s\n", latest.Version, latest.URL)
			return nil
		}

		var installed string
		err := spin(cmd.Context(), "Checking for updates...", func(ctx context.Context) error {
			var err error
			installed, err = updater.Update(ctx)
			return err
		})
		if err != nil {
			return err
		}
		if installed == "" {
			fmt.Printf("Already up to date (v%s)\n", version.Version)
			return nil
		}
		fmt.Printf("Successfully updated to %s\n", installed)
		return nil
	},
}

func init() {
	updateCmd.Flags().BoolVar(&updateCheck, "check", false, "only check whether an update is available")
	rootCmd.AddCommand(updateCmd)
}
