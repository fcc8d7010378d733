// Package provider defines the contract a code-hosting backend must satisfy
// and a registry that selects one per repository.
package provider

import (
	"context"
	"time"

	"github.com/promptping-ai/pull-request-ping/internal/model"
)

// Ref locates a pull request for a backend call.
type Ref struct {
	// Dir is the repository working directory CLI calls run in. Empty means
	// the process working directory.
	Dir string
	// Identifier is a PR/MR number, a full web URL, or empty to resolve the
	// PR from the branch currently checked out in Dir.
	Identifier string
	// Repo optionally overrides repository detection with an "owner/repo"
	// string. Malformed values fail with ErrInvalidConfiguration.
	Repo string
}

// Backend is the interface for pull request hosting backends. Implementations
// wrap the provider's official CLI and normalize its output into the unified
// model.
type Backend interface {
	// Name returns the short identifier for this backend (e.g., "github", "gitlab").
	Name() string

	// MatchesRemote returns true if the given git remote URL belongs to this
	// backend's hosting service.
	MatchesRemote(remote string) bool

	// Available reports whether the backend's CLI binary is discoverable.
	Available() bool

	// FetchPR retrieves the referenced pull request, fully reconciled:
	// review comments carry thread identity and resolution status wherever
	// the provider exposes them, and absent (unknown) otherwise.
	FetchPR(ctx context.Context, ref Ref) (*model.PullRequest, error)

	// ReplyToComment adds a reply addressed at commentID. The id's meaning
	// is provider-specific: a comment id on GitHub, a thread id on Azure.
	// GitLab cannot target a single comment and posts a general note.
	ReplyToComment(ctx context.Context, ref Ref, commentID, body string) error

	// ResolveThread marks the review thread threadID resolved. Id shape is
	// validated before any subprocess call.
	ResolveThread(ctx context.Context, ref Ref, threadID string) error
}

// ChecksFetcher is an optional capability: backends that can report CI status
// for a pull request implement it. Callers type-assert and treat absence as
// ErrUnsupported.
type ChecksFetcher interface {
	// FetchChecks returns the CI check runs for the referenced PR.
	FetchChecks(ctx context.Context, ref Ref) ([]CheckRun, error)
}

// CheckRun is a single CI job attached to a pull request head commit.
type CheckRun struct {
	// Name is the check or pipeline job name.
	Name string
	// Status is the lifecycle state (e.g., "completed", "in_progress").
	Status string
	// Conclusion is the terminal outcome (e.g., "success", "failure"); empty
	// while the check is still running.
	Conclusion string
	// URL is the web URL for the check's detail page.
	URL string
	// CompletedAt is when the check finished, zero if still running.
	CompletedAt time.Time
}
