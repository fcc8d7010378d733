package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var notificationsLimitFlag int

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"notify"},
	Short:   "Show recent daemon notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, closeStore, err := openStore()
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer closeStore()

		records, err := st.ListNotifications(cmd.Context(), notificationsLimitFlag)
		if err != nil {
			return fmt.Errorf("listing notifications: %w", err)
		}

		if len(records) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No notifications recorded.")
			return nil
		}

		rows := make([][]string, 0, len(records))
		for _, r := range records {
			rows = append(rows, []string{r.CreatedAt.Local().Format(time.DateTime), r.Kind, r.Message})
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"WHEN", "KIND", "MESSAGE"}, rows))
		return nil
	},
}

func init() {
	notificationsCmd.Flags().IntVar(&notificationsLimitFlag, "limit", 50, "Maximum notifications to show")
}
