package github

// Raw shapes emitted by the gh CLI. Field sets are trimmed to what the
// reconciliation actually consumes.

// prView mirrors `gh pr view --json` output.
type prView struct {
	Number   int           `json:"number"`
	Title    string        `json:"title"`
	Body     string        `json:"body"`
	State    string        `json:"state"`
	URL      string        `json:"url"`
	Author   viewUser      `json:"author"`
	Comments []viewComment `json:"comments"`
	Reviews  []viewReview  `json:"reviews"`
	Files    []viewFile    `json:"files"`
}

type viewUser struct {
	Login string `json:"login"`
}

type viewComment struct {
	ID                string   `json:"id"`
	Author            viewUser `json:"author"`
	AuthorAssociation string   `json:"authorAssociation"`
	Body              string   `json:"body"`
	CreatedAt         string   `json:"createdAt"`
	URL               string   `json:"url"`
}

type viewReview struct {
	ID                string   `json:"id"`
	Author            viewUser `json:"author"`
	AuthorAssociation string   `json:"authorAssociation"`
	Body              string   `json:"body"`
	SubmittedAt       string   `json:"submittedAt"`
	State             string   `json:"state"`
}

type viewFile struct {
	Path      string `json:"path"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// restComment mirrors one element of the REST pulls/{n}/comments response.
// Its PullRequestReviewID is an integer and cannot be joined against the
// string review ids in prView, which is why reconciliation joins by author.
type restComment struct {
	ID                  int64    `json:"id"`
	User                restUser `json:"user"`
	AuthorAssociation   string   `json:"author_association"`
	Body                string   `json:"body"`
	Path                string   `json:"path"`
	Line                *int     `json:"line"`
	OriginalLine        *int     `json:"original_line"`
	CreatedAt           string   `json:"created_at"`
	HTMLURL             string   `json:"html_url"`
	PullRequestReviewID int64    `json:"pull_request_review_id"`
	InReplyToID         int64    `json:"in_reply_to_id"`
}

type restUser struct {
	Login string `json:"login"`
}

// gqlThreadsResponse mirrors the reviewThreads GraphQL query response.
type gqlThreadsResponse struct {
	Data struct {
		Repository struct {
			PullRequest struct {
				ReviewThreads struct {
					Nodes []gqlThread `json:"nodes"`
				} `json:"reviewThreads"`
			} `json:"pullRequest"`
		} `json:"repository"`
	} `json:"data"`
}

type gqlThread struct {
	ID         string `json:"id"`
	IsResolved bool   `json:"isResolved"`
	Comments   struct {
		Nodes []gqlThreadComment `json:"nodes"`
	} `json:"comments"`
}

type gqlThreadComment struct {
	Path   string   `json:"path"`
	Line   *int     `json:"line"`
	Author viewUser `json:"author"`
}

// statusCheckRollup mirrors `gh pr view --json statusCheckRollup`.
type checksView struct {
	StatusCheckRollup []rollupNode `json:"statusCheckRollup"`
}

type rollupNode struct {
	Name        string `json:"name"`
	Context     string `json:"context"`
	Status      string `json:"status"`
	State       string `json:"state"`
	Conclusion  string `json:"conclusion"`
	DetailsURL  string `json:"detailsUrl"`
	TargetURL   string `json:"targetUrl"`
	CompletedAt string `json:"completedAt"`
}
