package main

import (
	"github.com/spf13/cobra"

	"dinehall/internal/browser"
)

func newRootCommand() *cobra.Command {
	return buildRootCommand(nil)
}

// buildRootCommand assembles the command tree. A nil launcher drives the
// locally installed Chrome.
func buildRootCommand(launcher browser.Launcher) *cobra.Command {
	ctx := &commandContext{launcher: launcher}

	root := &cobra.Command{
		Use:   "dinehall",
		Short: "Incremental dining hall menu scraper",
		Long: "dinehall walks every dining hall and meal on the menu site, skips the\n" +
			"hall/meal combinations already stored for the date, and records each\n" +
			"remaining item with its ingredients and nutrition facts.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if skipsConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&ctx.configFlag, "config", "c", "", "Path to config.toml (default ~/.config/dinehall/config.toml)")
	flags.StringVar(&ctx.levelFlag, "log-level", "", "Override logging.level (debug, info, warn, error)")

	root.AddCommand(
		newScrapeCommand(ctx),
		newDiscoverCommand(ctx),
		newCoverageCommand(ctx),
		newDoctorCommand(ctx),
		newLogsCommand(ctx),
		newTestNotifyCommand(ctx),
		newConfigCommand(ctx),
	)
	return root
}
