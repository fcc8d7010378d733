package store

import "time"

// Fix suggestion lifecycle and severity values.
const (
	SuggestionPending  = "pending"
	SuggestionApproved = "approved"

	SeverityHigh   = "high"
	SeverityMedium = "medium"
)

// Comment kinds in the flattened pr_comments projection.
const (
	CommentGeneral = "general"
	CommentInline  = "inline"
)

// Repo is a discovered repository.
type Repo struct {
	ID       string    `json:"id"`
	Path     string    `json:"path"`
	Name     string    `json:"name"`
	Remote   string    `json:"remote"`
	Provider string    `json:"provider"`
	Roadmap  string    `json:"roadmap"`
	LastSeen time.Time `json:"last_seen"`
}

// PullRequestRecord is the persisted projection of a fetched PR.
type PullRequestRecord struct {
	ID        string    `json:"id"`
	RepoID    string    `json:"repo_id"`
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	State     string    `json:"state"`
	Author    string    `json:"author"`
	URL       string    `json:"url"`
	Provider  string    `json:"provider"`
	FetchedAt time.Time `json:"fetched_at"`
}

// CheckRun is a persisted CI check attached to a PR.
type CheckRun struct {
	ID          string    `json:"id"`
	PRID        string    `json:"pr_id"`
	Name        string    `json:"name"`
	Status      string    `json:"status"`
	Conclusion  string    `json:"conclusion"`
	URL         string    `json:"url"`
	CompletedAt time.Time `json:"completed_at"`
}

// PRComment is the flattened projection of both general comments and inline
// review comments. Kind distinguishes the two; inline rows carry path, line,
// thread id, and the tri-state resolution flag.
type PRComment struct {
	ID         string `json:"id"`
	PRID       string `json:"pr_id"`
	SourceID   string `json:"source_id"`
	Kind       string `json:"kind"`
	Author     string `json:"author"`
	Body       string `json:"body"`
	Path       string `json:"path,omitempty"`
	Line       *int   `json:"line,omitempty"`
	ThreadID   string `json:"thread_id,omitempty"`
	IsResolved *bool  `json:"is_resolved,omitempty"`
	CreatedAt  string `json:"created_at"`
	URL        string `json:"url,omitempty"`
}

// FixSuggestion is a derived, replaceable recommendation pointing at a
// failing check or unresolved comment. Pending suggestions are recomputed on
// every tick; approved ones are never touched by ingestion.
type FixSuggestion struct {
	ID        string    `json:"id"`
	PRID      string    `json:"pr_id"`
	Severity  string    `json:"severity"`
	Status    string    `json:"status"`
	Summary   string    `json:"summary"`
	DetailURL string    `json:"detail_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RoadmapMapping associates a repository with an external project-tracking
// identifier.
type RoadmapMapping struct {
	ID      string `json:"id"`
	RepoID  string `json:"repo_id"`
	Roadmap string `json:"roadmap"`
}

// RoadmapAggregate is the per-roadmap rollup served to clients.
type RoadmapAggregate struct {
	Roadmap         string `json:"roadmap"`
	RepoCount       int    `json:"repo_count"`
	OpenPRCount     int    `json:"open_pr_count"`
	PendingFixCount int    `json:"pending_fix_count"`
}

// NotificationRecord is one daemon-emitted event.
type NotificationRecord struct {
	ID        string    `json:"id"`
	PRID      string    `json:"pr_id,omitempty"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// DailyContext is the once-per-day fetched markdown summary.
type DailyContext struct {
	Day       string    `json:"day"`
	Content   string    `json:"content"`
	FetchedAt time.Time `json:"fetched_at"`
}
