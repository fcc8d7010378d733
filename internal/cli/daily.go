package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Show today's working context",
	Long: `Print the most recently fetched daily context document.

The daemon pulls it from daily.url once per calendar day. An empty URL
disables the fetch entirely.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, closeStore, err := openStore()
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer closeStore()

		dc, err := st.LatestDailyContext(cmd.Context())
		if err != nil {
			return fmt.Errorf("reading daily context: %w", err)
		}
		if dc == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No daily context fetched yet. Set daily.url and start the daemon.")
			return nil
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s (fetched %s)\n\n", dc.Day, dc.FetchedAt.Local().Format(time.Kitchen))
		fmt.Fprintln(cmd.OutOrStdout(), dc.Content)
		return nil
	},
}
