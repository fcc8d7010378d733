// Package gitlab adapts the glab CLI into the unified pull request model.
package gitlab

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/promptping-ai/pull-request-ping/internal/cliexec"
	"github.com/promptping-ai/pull-request-ping/internal/model"
	"github.com/promptping-ai/pull-request-ping/internal/provider"
)

// GitLab has no author-association concept; every comment carries this
// placeholder so consumers never special-case an empty field.
const noAssociation = "NONE"

type runner interface {
	Run(ctx context.Context, dir string, args ...string) ([]byte, error)
	Available() bool
}

// Backend implements provider.Backend on top of the glab CLI.
type Backend struct {
	glab runner
}

// NewBackend creates a GitLab backend. timeout bounds each glab invocation;
// zero means the package default.
func NewBackend(timeout time.Duration) *Backend {
	return &Backend{glab: cliexec.NewRunner("glab", timeout)}
}

// Name returns "gitlab".
func (b *Backend) Name() string { return "gitlab" }

// MatchesRemote returns true for gitlab.com and self-hosted gitlab* hosts.
func (b *Backend) MatchesRemote(remote string) bool {
	host := remoteHost(remote)
	return host == "gitlab.com" || strings.HasPrefix(host, "gitlab")
}

// Available reports whether the glab binary was found.
func (b *Backend) Available() bool { return b.glab.Available() }

// FetchPR fetches the merge request and its discussions, then folds the
// discussions into the unified model: diff-anchored notes become inline
// review comments grouped per discussion, everything else becomes a general
// comment, and system notes are dropped.
func (b *Backend) FetchPR(ctx context.Context, ref provider.Ref) (*model.PullRequest, error) {
	if err := validateRepo(ref.Repo); err != nil {
		return nil, err
	}

	view, err := b.fetchView(ctx, ref)
	if err != nil {
		return nil, err
	}
	discussions, err := b.fetchDiscussions(ctx, ref, view.IID)
	if err != nil {
		return nil, err
	}

	return foldDiscussions(view, discussions), nil
}

// ReplyToComment cannot target a single comment through glab, so it posts a
// general note on the merge request instead.
func (b *Backend) ReplyToComment(ctx context.Context, ref provider.Ref, commentID, body string) error {
	if err := validateRepo(ref.Repo); err != nil {
		return err
	}
	view, err := b.fetchView(ctx, ref)
	if err != nil {
		return err
	}
	_, err = b.glab.Run(ctx, ref.Dir, b.withRepo(ref,
		"mr", "note", strconv.Itoa(view.IID), "-m", body)...)
	return err
}

// ResolveThread marks the discussion threadID resolved via the native
// resolution field.
func (b *Backend) ResolveThread(ctx context.Context, ref provider.Ref, threadID string) error {
	if err := validateRepo(ref.Repo); err != nil {
		return err
	}
	if threadID == "" {
		return fmt.Errorf("%w: empty discussion id", provider.ErrInvalidConfiguration)
	}
	view, err := b.fetchView(ctx, ref)
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("projects/:id/merge_requests/%d/discussions/%s?resolved=true", view.IID, threadID)
	_, err = b.glab.Run(ctx, ref.Dir, "api", "-X", "PUT", endpoint)
	return err
}

func (b *Backend) fetchView(ctx context.Context, ref provider.Ref) (*mrView, error) {
	args := []string{"mr", "view"}
	if ref.Identifier != "" {
		args = append(args, ref.Identifier)
	}
	args = append(args, "--output", "json")

	out, err := b.glab.Run(ctx, ref.Dir, b.withRepo(ref, args...)...)
	if err != nil {
		return nil, err
	}
	var view mrView
	if err := json.Unmarshal(out, &view); err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrInvalidResponse, err)
	}
	if view.IID == 0 {
		return nil, fmt.Errorf("%w: mr view payload has no iid", provider.ErrInvalidResponse)
	}
	return &view, nil
}

func (b *Backend) fetchDiscussions(ctx context.Context, ref provider.Ref, iid int) ([]discussion, error) {
	endpoint := fmt.Sprintf("projects/:id/merge_requests/%d/discussions?per_page=100", iid)
	out, err := b.glab.Run(ctx, ref.Dir, b.withRepo(ref, "api", endpoint)...)
	if err != nil {
		return nil, err
	}
	var discussions []discussion
	if err := json.Unmarshal(out, &discussions); err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrInvalidResponse, err)
	}
	return discussions, nil
}

// withRepo appends the repo override flag when one was given.
func (b *Backend) withRepo(ref provider.Ref, args ...string) []string {
	if ref.Repo != "" {
		return append(args, "-R", ref.Repo)
	}
	return args
}

// foldDiscussions converts the discussion list into the unified model. Inline
// notes sharing a discussion id collapse into one synthesized review whose id
// is the discussion id.
func foldDiscussions(view *mrView, discussions []discussion) *model.PullRequest {
	number := view.IID
	pr := &model.PullRequest{
		Title:  view.Title,
		Body:   view.Description,
		State:  model.NormalizeState(view.State),
		Author: view.Author.Username,
		URL:    view.WebURL,
		Number: &number,
	}

	for _, d := range discussions {
		var review *model.Review
		for _, n := range d.Notes {
			if n.System {
				continue
			}
			if n.Position == nil {
				pr.Comments = append(pr.Comments, model.Comment{
					ID:                strconv.FormatInt(n.ID, 10),
					Author:            n.Author.Username,
					AuthorAssociation: noAssociation,
					Body:              n.Body,
					CreatedAt:         n.CreatedAt,
				})
				continue
			}
			if review == nil {
				pr.Reviews = append(pr.Reviews, model.Review{
					ID:                d.ID,
					Author:            n.Author.Username,
					AuthorAssociation: noAssociation,
					State:             model.ReviewCommented,
					SubmittedAt:       n.CreatedAt,
				})
				review = &pr.Reviews[len(pr.Reviews)-1]
			}
			rc := model.ReviewComment{
				ID:        strconv.FormatInt(n.ID, 10),
				Path:      notePath(n.Position),
				Line:      noteLine(n.Position),
				Body:      n.Body,
				CreatedAt: n.CreatedAt,
				ThreadID:  d.ID,
			}
			if n.Resolvable {
				rc.IsResolved = model.BoolPtr(n.Resolved)
			}
			review.Comments = append(review.Comments, rc)
		}
	}
	return pr
}

func notePath(p *position) string {
	if p.NewPath != "" {
		return p.NewPath
	}
	return p.OldPath
}

func noteLine(p *position) *int {
	if p.NewLine != nil {
		return p.NewLine
	}
	return p.OldLine
}

func remoteHost(remote string) string {
	s := strings.ToLower(remote)
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.Index(s, "@"); i >= 0 {
		s = s[i+1:]
	}
	for _, sep := range []string{":", "/"} {
		if i := strings.Index(s, sep); i >= 0 {
			s = s[:i]
		}
	}
	return s
}

func validateRepo(repo string) error {
	if repo == "" {
		return nil
	}
	if strings.Count(repo, "/") == 0 || strings.HasPrefix(repo, "/") || strings.HasSuffix(repo, "/") {
		return fmt.Errorf("%w: repo override %q is not owner/repo shaped", provider.ErrInvalidConfiguration, repo)
	}
	return nil
}

var _ provider.Backend = (*Backend)(nil)
