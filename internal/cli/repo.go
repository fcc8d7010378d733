package cli

import (
	"fmt"
	"time"

	"github.com/promptping-ai/pull-request-ping/internal/cliexec"
	"github.com/promptping-ai/pull-request-ping/internal/discovery"
	"github.com/spf13/cobra"
)

var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Inspect discovered repositories",
	Example: `  prping repo list
  prping repo scan`,
}

func init() {
	repoCmd.AddCommand(repoListCmd)
	repoCmd.AddCommand(repoScanCmd)
}

var repoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List repositories known to the daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, closeStore, err := openStore()
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer closeStore()

		repos, err := st.ListRepos(cmd.Context(), 0)
		if err != nil {
			return fmt.Errorf("listing repositories: %w", err)
		}

		if len(repos) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No repositories ingested yet. Is the daemon running?")
			return nil
		}

		rows := make([][]string, 0, len(repos))
		for _, r := range repos {
			provider := r.Provider
			if provider == "" {
				provider = "auto"
			}
			rows = append(rows, []string{r.Name, r.Path, provider, r.Roadmap, r.LastSeen.Local().Format(time.DateTime)})
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"NAME", "PATH", "PROVIDER", "ROADMAP", "LAST SEEN"}, rows))
		return nil
	},
}

var repoScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Walk the configured roots and print what discovery finds",
	Long: `Run repository discovery immediately, without the daemon.

Useful for checking which repositories a tick would pick up and how
their settings documents are read.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		git := cliexec.NewRunner("git", appConfig.Providers.ParseCommandTimeout())
		scanner := discovery.NewScanner(appConfig.Discovery.Roots, git)

		repos := scanner.Discover(cmd.Context())
		if len(repos) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No repositories found under %v.\n", appConfig.Discovery.Roots)
			return nil
		}

		rows := make([][]string, 0, len(repos))
		for _, r := range repos {
			provider := r.Settings.Provider
			if provider == "" {
				provider = "auto"
			}
			rows = append(rows, []string{r.Name, r.Path, provider, r.Settings.Roadmap, r.Remote})
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"NAME", "PATH", "PROVIDER", "ROADMAP", "REMOTE"}, rows))
		return nil
	},
}
