package cli

import (
	"log/slog"

	"github.com/promptping-ai/pull-request-ping/internal/config"
	"github.com/promptping-ai/pull-request-ping/internal/logging"
	"github.com/spf13/cobra"
)

var (
	verbose   bool
	appConfig *config.Config

	rootCmd = &cobra.Command{
		Use:   "prping",
		Short: "Multi-provider pull request tracker",
		Long: `prping watches the pull requests behind your local repositories.

It discovers repositories under configured roots, fetches the open PR for
each through the provider's own CLI (gh, glab, or az), and keeps a local
database of review comments, CI checks, and derived fix suggestions.`,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose/debug output")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		logging.Setup(verbose)

		cfg, err := config.Load()
		if err != nil {
			slog.Warn("failed to load config, using defaults", "error", err)
			defaults := config.DefaultConfig()
			cfg = &defaults
		}
		appConfig = cfg
	}

	rootCmd.AddCommand(prCmd)
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(repoCmd)
	rootCmd.AddCommand(roadmapCmd)
	rootCmd.AddCommand(dailyCmd)
	rootCmd.AddCommand(notificationsCmd)
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(configCmd)
}

func Execute() error {
	return rootCmd.Execute()
}
