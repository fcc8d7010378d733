package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var roadmapCmd = &cobra.Command{
	Use:   "roadmap",
	Short: "Show per-roadmap rollups",
	Long: `Aggregate repository and PR state by roadmap.

Repositories opt into a roadmap through the roadmap field of their
.prping.md settings document.`,
	Example: `  prping roadmap`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, closeStore, err := openStore()
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer closeStore()

		aggs, err := st.RoadmapAggregates(cmd.Context(), 0)
		if err != nil {
			return fmt.Errorf("aggregating roadmaps: %w", err)
		}

		if len(aggs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No roadmap mappings. Add a roadmap field to a repo's .prping.md.")
			return nil
		}

		rows := make([][]string, 0, len(aggs))
		for _, a := range aggs {
			rows = append(rows, []string{
				a.Roadmap,
				strconv.Itoa(a.RepoCount),
				strconv.Itoa(a.OpenPRCount),
				strconv.Itoa(a.PendingFixCount),
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ROADMAP", "REPOS", "OPEN PRS", "PENDING FIXES"}, rows))
		return nil
	},
}
