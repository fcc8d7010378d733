package model

// FilterByResolution returns a copy of pr keeping only inline comments that
// match the requested resolution direction. showUnresolved=true keeps
// unresolved comments, false keeps resolved ones. Comments whose resolution
// state is unknown (nil) are retained under both directions — unknown is
// "not excluded", never defaulted. Reviews left with zero comments are
// dropped. Top-level comments have no resolution concept and pass through
// untouched.
//
// The transform is identical regardless of which provider produced the data.
func FilterByResolution(pr PullRequest, showUnresolved bool) PullRequest {
	out := PullRequest{
		Body:     pr.Body,
		Comments: pr.Comments,
		Files:    pr.Files,
		Number:   pr.Number,
		Title:    pr.Title,
		State:    pr.State,
		Author:   pr.Author,
		URL:      pr.URL,
	}

	for _, review := range pr.Reviews {
		var kept []ReviewComment
		for _, c := range review.Comments {
			if c.IsResolved == nil {
				kept = append(kept, c)
				continue
			}
			if *c.IsResolved != showUnresolved {
				kept = append(kept, c)
			}
		}
		if len(kept) == 0 {
			continue
		}
		filtered := review
		filtered.Comments = kept
		out.Reviews = append(out.Reviews, filtered)
	}

	return out
}
