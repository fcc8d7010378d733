package gitlab

// Raw shapes emitted by the glab CLI.

// mrView mirrors `glab mr view --output json`.
type mrView struct {
	IID         int      `json:"iid"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	State       string   `json:"state"`
	WebURL      string   `json:"web_url"`
	Author      glabUser `json:"author"`
}

type glabUser struct {
	Username string `json:"username"`
}

// discussion is one element of the merge request discussions API response.
// It is the single source of truth for both general and inline comments.
type discussion struct {
	ID    string `json:"id"`
	Notes []note `json:"notes"`
}

type note struct {
	ID         int64     `json:"id"`
	Body       string    `json:"body"`
	Author     glabUser  `json:"author"`
	CreatedAt  string    `json:"created_at"`
	System     bool      `json:"system"`
	Resolvable bool      `json:"resolvable"`
	Resolved   bool      `json:"resolved"`
	Position   *position `json:"position"`
}

// position is present only on diff-anchored notes.
type position struct {
	NewPath string `json:"new_path"`
	OldPath string `json:"old_path"`
	NewLine *int   `json:"new_line"`
	OldLine *int   `json:"old_line"`
}
