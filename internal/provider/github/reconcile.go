package github

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/promptping-ai/pull-request-ping/internal/model"
)

// reconcile merges the three gh payloads into one unified PullRequest.
//
// The view payload omits inline review comments; the REST payload has them
// but carries integer review-association ids that cannot be joined against
// the view's string review ids. Inline comments are therefore attached to
// reviews by author login. Thread identity and resolution come from the
// GraphQL payload, joined approximately by (path, line, author); threads may
// be nil when the GraphQL call failed, leaving resolution unknown.
func reconcile(view *prView, inline []restComment, threads []gqlThread) *model.PullRequest {
	number := view.Number
	pr := &model.PullRequest{
		Title:  view.Title,
		Body:   view.Body,
		State:  model.NormalizeState(view.State),
		Author: view.Author.Login,
		URL:    view.URL,
		Number: &number,
	}

	for _, c := range view.Comments {
		pr.Comments = append(pr.Comments, model.Comment{
			ID:                c.ID,
			Author:            c.Author.Login,
			AuthorAssociation: c.AuthorAssociation,
			Body:              c.Body,
			CreatedAt:         c.CreatedAt,
			URL:               c.URL,
		})
	}

	for _, r := range view.Reviews {
		pr.Reviews = append(pr.Reviews, model.Review{
			ID:                r.ID,
			Author:            r.Author.Login,
			AuthorAssociation: r.AuthorAssociation,
			Body:              r.Body,
			SubmittedAt:       r.SubmittedAt,
			State:             model.NormalizeState(r.State),
		})
	}

	for _, f := range view.Files {
		pr.Files = append(pr.Files, model.FileChange{
			Path:      f.Path,
			Additions: f.Additions,
			Deletions: f.Deletions,
		})
	}

	resolution := indexThreads(threads)
	attachInline(pr, inline, resolution)
	return pr
}

// threadInfo is what the GraphQL join contributes per inline comment.
type threadInfo struct {
	id       string
	resolved bool
}

// indexThreads builds the (path, line, author) lookup from GraphQL threads.
func indexThreads(threads []gqlThread) map[string]threadInfo {
	if len(threads) == 0 {
		return nil
	}
	idx := make(map[string]threadInfo)
	for _, t := range threads {
		for _, c := range t.Comments.Nodes {
			idx[joinKey(c.Path, c.Line, c.Author.Login)] = threadInfo{id: t.ID, resolved: t.IsResolved}
		}
	}
	return idx
}

// attachInline distributes REST inline comments onto reviews by author: an
// existing review by the same author receives them, otherwise a COMMENTED
// review is synthesized for that author.
func attachInline(pr *model.PullRequest, inline []restComment, resolution map[string]threadInfo) {
	if len(inline) == 0 {
		return
	}

	// First review index per author, from the view's review list.
	reviewByAuthor := make(map[string]int)
	for i, r := range pr.Reviews {
		if _, seen := reviewByAuthor[r.Author]; !seen {
			reviewByAuthor[r.Author] = i
		}
	}

	byAuthor := make(map[string][]restComment)
	for _, c := range inline {
		byAuthor[c.User.Login] = append(byAuthor[c.User.Login], c)
	}
	authorOrder := make([]string, 0, len(byAuthor))
	for author := range byAuthor {
		authorOrder = append(authorOrder, author)
	}
	// Deterministic synthesis order keeps repeated fetches byte-identical.
	sort.Strings(authorOrder)

	for _, author := range authorOrder {
		comments := byAuthor[author]
		converted := make([]model.ReviewComment, 0, len(comments))
		for _, c := range comments {
			rc := model.ReviewComment{
				ID:        strconv.FormatInt(c.ID, 10),
				Path:      c.Path,
				Line:      commentLine(c),
				Body:      c.Body,
				CreatedAt: c.CreatedAt,
				URL:       c.HTMLURL,
			}
			if info, ok := resolution[joinKey(c.Path, rc.Line, author)]; ok {
				rc.ThreadID = info.id
				rc.IsResolved = model.BoolPtr(info.resolved)
			}
			converted = append(converted, rc)
		}

		if idx, ok := reviewByAuthor[author]; ok {
			pr.Reviews[idx].Comments = append(pr.Reviews[idx].Comments, converted...)
			continue
		}
		pr.Reviews = append(pr.Reviews, model.Review{
			ID:                "synthesized-" + author,
			Author:            author,
			AuthorAssociation: "NONE",
			State:             model.ReviewCommented,
			SubmittedAt:       earliestCreatedAt(comments),
			Comments:          converted,
		})
	}
}

// commentLine prefers the current diff line, falling back to the original
// line for comments on outdated hunks.
func commentLine(c restComment) *int {
	if c.Line != nil {
		return c.Line
	}
	return c.OriginalLine
}

func earliestCreatedAt(comments []restComment) string {
	earliest := comments[0].CreatedAt
	for _, c := range comments[1:] {
		if c.CreatedAt != "" && (earliest == "" || c.CreatedAt < earliest) {
			earliest = c.CreatedAt
		}
	}
	return earliest
}

func joinKey(path string, line *int, author string) string {
	n := -1
	if line != nil {
		n = *line
	}
	return fmt.Sprintf("%s:%d:%s", path, n, author)
}
