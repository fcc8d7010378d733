package azure

// Raw shapes emitted by the az CLI.

// prShow mirrors `az repos pr show -o json` (trimmed).
type prShow struct {
	PullRequestID int    `json:"pullRequestId"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Status        string `json:"status"`
	CreatedBy     azUser `json:"createdBy"`
	Repository    azRepo `json:"repository"`
	URL           string `json:"url"`
}

type azUser struct {
	DisplayName string `json:"displayName"`
	UniqueName  string `json:"uniqueName"`
}

type azRepo struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Project azProject `json:"project"`
}

type azProject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// threadList mirrors the pullRequestThreads resource response.
type threadList struct {
	Value []thread `json:"value"`
}

type thread struct {
	ID            int            `json:"id"`
	Status        string         `json:"status"`
	Comments      []threadNote   `json:"comments"`
	ThreadContext *threadContext `json:"threadContext"`
}

type threadNote struct {
	ID            int    `json:"id"`
	Content       string `json:"content"`
	Author        azUser `json:"author"`
	PublishedDate string `json:"publishedDate"`
	CommentType   string `json:"commentType"`
	IsDeleted     bool   `json:"isDeleted"`
}

type threadContext struct {
	FilePath       string   `json:"filePath"`
	RightFileStart *filePos `json:"rightFileStart"`
	LeftFileStart  *filePos `json:"leftFileStart"`
}

type filePos struct {
	Line int `json:"line"`
}
