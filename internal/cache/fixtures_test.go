package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/charlesng35/issuerelay/internal/issue"
)

func fixtureIssue(number int, title string) *issue.Issue {
	body := "It crashes."
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return &issue.Issue{
		Number:    number,
		Title:     title,
		Body:      &body,
		State:     issue.StateOpen,
		Author:    issue.Author{Login: "octocat", AvatarURL: "https://avatars.githubusercontent.com/u/583231"},
		Labels:    []issue.Label{{Name: "bug", Color: "d73a4a"}},
		Comments:  1,
		CreatedAt: created,
		UpdatedAt: created.Add(time.Hour),
		HTMLURL:   "https://github.com/octo/repo/issues/1",
	}
}

// countingStore records how often the persistent tier is read.
type countingStore struct {
	PersistentStore
	reads atomic.Int64
}

func (c *countingStore) GetLive(ctx context.Context, owner, repo string, number int) (*issue.Issue, bool, error) {
	c.reads.Add(1)
	return c.PersistentStore.GetLive(ctx, owner, repo, number)
}
