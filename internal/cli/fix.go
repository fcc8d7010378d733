package cli

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/promptping-ai/pull-request-ping/internal/store"
	"github.com/spf13/cobra"
)

var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Review and approve derived fix suggestions",
	Long: `List and approve fix suggestions derived by the daemon.

Each ingestion cycle turns failing checks and unresolved review
comments into pending suggestions. Approving one pins it: the daemon
stops recomputing it, so it survives even after the underlying signal
clears.`,
	Example: `  prping fix list
  prping fix approve
  prping fix approve 3f81a2c09d4be576`,
}

func init() {
	fixCmd.AddCommand(fixListCmd)
	fixCmd.AddCommand(fixApproveCmd)
}

var fixListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending fix suggestions",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, closeStore, err := openStore()
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer closeStore()

		suggestions, err := st.ListPendingFixSuggestions(cmd.Context(), 0)
		if err != nil {
			return fmt.Errorf("listing suggestions: %w", err)
		}

		if len(suggestions) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No pending fix suggestions.")
			return nil
		}

		rows := make([][]string, 0, len(suggestions))
		for _, s := range suggestions {
			rows = append(rows, []string{s.ID, s.Severity, s.Summary})
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "SEVERITY", "SUMMARY"}, rows))
		return nil
	},
}

var fixApproveCmd = &cobra.Command{
	Use:   "approve [id...]",
	Short: "Approve fix suggestions",
	Long: `Approve one or more fix suggestions by id.

With no arguments, opens an interactive picker over the pending
suggestions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, closeStore, err := openStore()
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer closeStore()

		ids := args
		if len(ids) == 0 {
			ids, err = pickSuggestions(cmd, st)
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing selected.")
				return nil
			}
		}

		for _, id := range ids {
			approved, err := st.ApproveFixSuggestion(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("approving %s: %w", id, err)
			}
			if !approved {
				return fmt.Errorf("no pending fix suggestion with id %s", id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Approved %s\n", id)
		}
		return nil
	},
}

func pickSuggestions(cmd *cobra.Command, st *store.Store) ([]string, error) {
	suggestions, err := st.ListPendingFixSuggestions(cmd.Context(), 0)
	if err != nil {
		return nil, fmt.Errorf("listing suggestions: %w", err)
	}
	if len(suggestions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No pending fix suggestions.")
		return nil, nil
	}

	options := make([]huh.Option[string], 0, len(suggestions))
	for _, s := range suggestions {
		label := fmt.Sprintf("[%s] %s", s.Severity, s.Summary)
		options = append(options, huh.NewOption(label, s.ID))
	}

	var selected []string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Approve which suggestions?").
				Options(options...).
				Value(&selected),
		),
	)
	if err := form.Run(); err != nil {
		return nil, err
	}
	return selected, nil
}
