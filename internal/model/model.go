// Package model defines the provider-agnostic pull request schema that all
// provider adapters reconcile into.
package model

import "strings"

// Review states, normalized to uppercase by providers before they reach
// consumers.
const (
	ReviewApproved         = "APPROVED"
	ReviewChangesRequested = "CHANGES_REQUESTED"
	ReviewCommented        = "COMMENTED"
	ReviewDismissed        = "DISMISSED"
	ReviewPending          = "PENDING"
)

// PullRequest is the aggregate root for a fetched pull/merge request.
// Comments holds only general (non-inline) discussion; inline discussion lives
// exclusively under Reviews[].Comments. The value is rebuilt fresh on every
// fetch — nothing holds a long-lived mutable reference to it.
type PullRequest struct {
	Body     string       `json:"body"`
	Comments []Comment    `json:"comments"`
	Reviews  []Review     `json:"reviews"`
	Files    []FileChange `json:"files,omitempty"`
	Number   *int         `json:"number,omitempty"`

	// Presentation metadata. Optional: not every provider payload carries
	// all of it, and the reconciliation algorithms never depend on it.
	Title  string `json:"title,omitempty"`
	State  string `json:"state,omitempty"`
	Author string `json:"author,omitempty"`
	URL    string `json:"url,omitempty"`
}

// Comment is a top-level discussion entry on a pull request.
// IDs are provider-native strings and are not unique across providers.
type Comment struct {
	ID                string `json:"id"`
	Author            string `json:"author"`
	AuthorAssociation string `json:"author_association"`
	Body              string `json:"body"`
	CreatedAt         string `json:"created_at"`
	URL               string `json:"url"`
}

// Review is one reviewer's pass over the PR, or a synthesized grouping of
// inline comments by author when the platform returned no review record.
// A Review with no comments may exist as an intermediate value during
// reconciliation but is never surfaced to end consumers.
type Review struct {
	ID                string          `json:"id"`
	Author            string          `json:"author"`
	AuthorAssociation string          `json:"author_association"`
	Body              string          `json:"body,omitempty"`
	SubmittedAt       string          `json:"submitted_at,omitempty"`
	State             string          `json:"state"`
	Comments          []ReviewComment `json:"comments,omitempty"`
}

// ReviewComment is an inline code comment. ThreadID is the durable handle
// needed to resolve the surrounding thread and is distinct from the comment's
// own ID. IsResolved is tri-state: true, false, or nil (unknown). Unknown must
// never be collapsed to either resolved or unresolved — filters preserve it.
type ReviewComment struct {
	ID         string `json:"id"`
	Path       string `json:"path,omitempty"`
	Line       *int   `json:"line,omitempty"`
	Body       string `json:"body"`
	CreatedAt  string `json:"created_at"`
	URL        string `json:"url,omitempty"`
	ThreadID   string `json:"thread_id,omitempty"`
	IsResolved *bool  `json:"is_resolved,omitempty"`
}

// FileChange describes one changed file in the PR diff.
type FileChange struct {
	Path      string `json:"path"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// NormalizeState uppercases a provider review state so callers can compare
// against the Review* constants.
func NormalizeState(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// IntPtr returns a pointer to v. Convenience for optional line numbers.
func IntPtr(v int) *int { return &v }

// BoolPtr returns a pointer to v. Convenience for the tri-state resolution flag.
func BoolPtr(v bool) *bool { return &v }
