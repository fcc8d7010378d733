package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPR() PullRequest {
	return PullRequest{
		Body: "test PR",
		Comments: []Comment{
			{ID: "c1", Author: "alice", Body: "general comment"},
		},
		Reviews: []Review{
			{
				ID:     "r1",
				Author: "bob",
				State:  ReviewCommented,
				Comments: []ReviewComment{
					{ID: "rc1", Path: "main.go", Body: "resolved", IsResolved: BoolPtr(true)},
					{ID: "rc2", Path: "main.go", Body: "unresolved", IsResolved: BoolPtr(false)},
					{ID: "rc3", Path: "main.go", Body: "unknown"},
				},
			},
			{
				ID:     "r2",
				Author: "carol",
				State:  ReviewApproved,
				Comments: []ReviewComment{
					{ID: "rc4", Path: "util.go", Body: "all done", IsResolved: BoolPtr(true)},
				},
			},
		},
	}
}

func commentIDs(pr PullRequest) []string {
	var ids []string
	for _, r := range pr.Reviews {
		for _, c := range r.Comments {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

func TestFilterByResolution(t *testing.T) {
	t.Run("unresolved keeps unresolved and unknown", func(t *testing.T) {
		got := FilterByResolution(testPR(), true)
		assert.Equal(t, []string{"rc2", "rc3"}, commentIDs(got))
	})

	t.Run("resolved keeps resolved and unknown", func(t *testing.T) {
		got := FilterByResolution(testPR(), false)
		assert.Equal(t, []string{"rc1", "rc3", "rc4"}, commentIDs(got))
	})

	t.Run("drops reviews left empty", func(t *testing.T) {
		// r2's only comment is resolved, so the unresolved view drops the review.
		got := FilterByResolution(testPR(), true)
		require.Len(t, got.Reviews, 1)
		assert.Equal(t, "r1", got.Reviews[0].ID)
	})

	t.Run("top-level comments never filtered", func(t *testing.T) {
		for _, dir := range []bool{true, false} {
			got := FilterByResolution(testPR(), dir)
			assert.Len(t, got.Comments, 1)
		}
	})

	t.Run("input not mutated", func(t *testing.T) {
		pr := testPR()
		FilterByResolution(pr, true)
		assert.Len(t, pr.Reviews[0].Comments, 3)
	})
}

// The two filter directions partition the known-resolution comments and each
// independently retains every unknown-resolution comment.
func TestFilterPartition(t *testing.T) {
	pr := testPR()
	unresolved := FilterByResolution(pr, true)
	resolved := FilterByResolution(pr, false)

	seen := map[string]int{}
	for _, id := range commentIDs(unresolved) {
		seen[id]++
	}
	for _, id := range commentIDs(resolved) {
		seen[id]++
	}

	// Known-resolution comments appear on exactly one side; unknown on both.
	assert.Equal(t, map[string]int{
		"rc1": 1,
		"rc2": 1,
		"rc3": 2,
		"rc4": 1,
	}, seen)
}

func TestNormalizeState(t *testing.T) {
	assert.Equal(t, ReviewApproved, NormalizeState(" approved "))
	assert.Equal(t, ReviewChangesRequested, NormalizeState("changes_requested"))
	assert.Equal(t, "", NormalizeState(""))
}
