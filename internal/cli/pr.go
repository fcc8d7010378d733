package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/promptping-ai/pull-request-ping/internal/cliexec"
	"github.com/promptping-ai/pull-request-ping/internal/model"
	"github.com/promptping-ai/pull-request-ping/internal/provider"
	"github.com/promptping-ai/pull-request-ping/internal/server"
	"github.com/spf13/cobra"
)

var prCmd = &cobra.Command{
	Use:   "pr",
	Short: "Inspect and act on the current pull request",
	Long: `Fetch, reply to, and resolve review feedback on a pull request.

The PR is located through the provider CLI for the repository in the
current directory. Pass a number or URL to target a specific PR;
without one, the PR for the checked-out branch is used.`,
	Example: `  prping pr view
  prping pr view 42 --unresolved
  prping pr reply 2045 -m "done in abc1234"
  prping pr resolve PRRT_kwDOAbc123`,
}

var (
	prRepoFlag       string
	prProviderFlag   string
	prUnresolvedFlag bool
	prResolvedFlag   bool
	prJSONFlag       bool
	prMessageFlag    string
	prIdentFlag      string
)

func init() {
	prCmd.PersistentFlags().StringVar(&prRepoFlag, "repo", "", "Override repository detection (owner/repo)")
	prCmd.PersistentFlags().StringVar(&prProviderFlag, "provider", "", "Force a provider (github, gitlab, azure)")

	prViewCmd.Flags().BoolVar(&prUnresolvedFlag, "unresolved", false, "Show only unresolved review comments")
	prViewCmd.Flags().BoolVar(&prResolvedFlag, "resolved", false, "Show only resolved review comments")
	prViewCmd.Flags().BoolVar(&prJSONFlag, "json", false, "Output the unified PR as JSON")
	prViewCmd.MarkFlagsMutuallyExclusive("unresolved", "resolved")

	prReplyCmd.Flags().StringVarP(&prMessageFlag, "message", "m", "", "Reply body")
	prReplyCmd.MarkFlagRequired("message")
	prReplyCmd.Flags().StringVar(&prIdentFlag, "pr", "", "PR number or URL (default: current branch)")

	prResolveCmd.Flags().StringVar(&prIdentFlag, "pr", "", "PR number or URL (default: current branch)")

	prCmd.AddCommand(prViewCmd)
	prCmd.AddCommand(prReplyCmd)
	prCmd.AddCommand(prResolveCmd)
	prCmd.AddCommand(prChecksCmd)
}

// selectBackend picks the provider backend for the repository in dir,
// honoring the --provider flag and the configured default.
func selectBackend(ctx context.Context, dir string) (provider.Backend, error) {
	reg := server.NewRegistry(appConfig)

	override := prProviderFlag
	if override == "" {
		override = appConfig.Providers.Default
	}

	git := cliexec.NewRunner("git", appConfig.Providers.ParseCommandTimeout())
	remote := ""
	if out, err := git.Run(ctx, dir, "remote", "get-url", "origin"); err == nil {
		remote = strings.TrimSpace(string(out))
	}

	return reg.Select(remote, override)
}

func prRef(identifier string) provider.Ref {
	dir, _ := os.Getwd()
	return provider.Ref{Dir: dir, Identifier: identifier, Repo: prRepoFlag}
}

var prViewCmd = &cobra.Command{
	Use:   "view [number|url]",
	Short: "Show the pull request with its reviews and threads",
	Long: `Fetch the pull request and print it with review threads inline.

Resolution markers: ✓ resolved, ✗ unresolved, · unknown (the provider
did not report thread state). --unresolved and --resolved filter inline
comments; comments with unknown state are kept under both filters.`,
	Example: `  prping pr view
  prping pr view 42 --unresolved
  prping pr view https://github.com/acme/widgets/pull/42 --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		identifier := ""
		if len(args) > 0 {
			identifier = args[0]
		}
		ref := prRef(identifier)

		backend, err := selectBackend(ctx, ref.Dir)
		if err != nil {
			return err
		}

		pr, err := backend.FetchPR(ctx, ref)
		if err != nil {
			return fmt.Errorf("fetching PR: %w", err)
		}

		if prUnresolvedFlag || prResolvedFlag {
			filtered := model.FilterByResolution(*pr, prUnresolvedFlag)
			pr = &filtered
		}

		if prJSONFlag {
			data, err := json.MarshalIndent(pr, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		renderPR(cmd, pr)
		return nil
	},
}

func renderPR(cmd *cobra.Command, pr *model.PullRequest) {
	out := cmd.OutOrStdout()

	titleStyle := lipgloss.NewStyle().Bold(true)
	dimStyle := lipgloss.NewStyle().Faint(true)
	authorStyle := lipgloss.NewStyle().Bold(true)

	number := ""
	if pr.Number != nil {
		number = fmt.Sprintf("#%d ", *pr.Number)
	}
	fmt.Fprintf(out, "%s\n", titleStyle.Render(number+pr.Title))
	if pr.State != "" || pr.Author != "" {
		fmt.Fprintf(out, "%s\n", dimStyle.Render(strings.TrimSpace(pr.State+" · "+pr.Author)))
	}
	if pr.URL != "" {
		fmt.Fprintf(out, "%s\n", dimStyle.Render(pr.URL))
	}
	if pr.Body != "" {
		fmt.Fprintf(out, "\n%s\n", pr.Body)
	}

	if len(pr.Comments) > 0 {
		fmt.Fprintf(out, "\n%s\n", titleStyle.Render("Comments"))
		for _, c := range pr.Comments {
			fmt.Fprintf(out, "  %s %s\n", authorStyle.Render(c.Author), dimStyle.Render(c.CreatedAt))
			fmt.Fprintf(out, "    %s\n", indentBody(c.Body))
		}
	}

	if len(pr.Reviews) > 0 {
		fmt.Fprintf(out, "\n%s\n", titleStyle.Render("Reviews"))
		for _, r := range pr.Reviews {
			fmt.Fprintf(out, "  %s %s\n", authorStyle.Render(r.Author), dimStyle.Render(r.State))
			if r.Body != "" {
				fmt.Fprintf(out, "    %s\n", indentBody(r.Body))
			}
			for _, rc := range r.Comments {
				loc := rc.Path
				if rc.Line != nil {
					loc = fmt.Sprintf("%s:%d", rc.Path, *rc.Line)
				}
				fmt.Fprintf(out, "    %s %s\n", resolutionMarker(rc.IsResolved), dimStyle.Render(loc))
				fmt.Fprintf(out, "      %s\n", indentBody(rc.Body))
				if rc.ThreadID != "" {
					fmt.Fprintf(out, "      %s\n", dimStyle.Render("thread "+rc.ThreadID))
				}
			}
		}
	}
}

func resolutionMarker(resolved *bool) string {
	switch {
	case resolved == nil:
		return "·"
	case *resolved:
		return "✓"
	default:
		return "✗"
	}
}

func indentBody(body string) string {
	return strings.ReplaceAll(strings.TrimSpace(body), "\n", "\n      ")
}

var prReplyCmd = &cobra.Command{
	Use:   "reply <comment-id>",
	Short: "Reply to a review comment",
	Long: `Post a reply addressed at a review comment.

The id's meaning depends on the provider: a comment id on GitHub, a
thread id on Azure DevOps. GitLab cannot target a single comment and
posts the reply as a general note on the merge request.`,
	Example: `  prping pr reply 2045 -m "done in abc1234"
  prping pr reply 7 --pr 42 -m "tracked in the follow-up"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ref := prRef(prIdentFlag)

		backend, err := selectBackend(ctx, ref.Dir)
		if err != nil {
			return err
		}

		if err := backend.ReplyToComment(ctx, ref, args[0], prMessageFlag); err != nil {
			return fmt.Errorf("replying to comment %s: %w", args[0], err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Replied to %s via %s\n", args[0], backend.Name())
		return nil
	},
}

var prResolveCmd = &cobra.Command{
	Use:   "resolve <thread-id>",
	Short: "Mark a review thread resolved",
	Example: `  prping pr resolve PRRT_kwDOAbc123
  prping pr resolve 4 --pr 17 --provider azure`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ref := prRef(prIdentFlag)

		backend, err := selectBackend(ctx, ref.Dir)
		if err != nil {
			return err
		}

		if err := backend.ResolveThread(ctx, ref, args[0]); err != nil {
			return fmt.Errorf("resolving thread %s: %w", args[0], err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Resolved thread %s via %s\n", args[0], backend.Name())
		return nil
	},
}

var prChecksCmd = &cobra.Command{
	Use:   "checks [number|url]",
	Short: "Show CI checks for the pull request",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		identifier := ""
		if len(args) > 0 {
			identifier = args[0]
		}
		ref := prRef(identifier)

		backend, err := selectBackend(ctx, ref.Dir)
		if err != nil {
			return err
		}

		cf, ok := backend.(provider.ChecksFetcher)
		if !ok {
			return fmt.Errorf("provider %s: %w", backend.Name(), provider.ErrUnsupported)
		}

		checks, err := cf.FetchChecks(ctx, ref)
		if err != nil {
			return fmt.Errorf("fetching checks: %w", err)
		}

		if len(checks) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No checks reported.")
			return nil
		}

		rows := make([][]string, 0, len(checks))
		for _, c := range checks {
			conclusion := c.Conclusion
			if conclusion == "" {
				conclusion = "-"
			}
			rows = append(rows, []string{c.Name, c.Status, conclusion, c.URL})
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"NAME", "STATUS", "CONCLUSION", "URL"}, rows))
		return nil
	},
}
