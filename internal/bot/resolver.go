package bot

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/charlesng35/issuerelay/internal/issue"
	"github.com/charlesng35/issuerelay/pkg/logger"
)

// Source says where a resolved issue came from.
type Source string

const (
	SourceCache  Source = "cache"
	SourceGitHub Source = "github"
)

// IssueCache is the subset of cache.Service the resolver reads and fills.
type IssueCache interface {
	GetIssue(ctx context.Context, owner, repo string, number int) (*issue.Issue, bool)
	SetIssue(ctx context.Context, owner, repo string, number int, value *issue.Issue) error
}

// IssueFetcher loads an issue from GitHub.
type IssueFetcher interface {
	GetIssue(ctx context.Context, owner, repo string, number int) (*issue.Issue, error)
}

// Resolver serves issues from the cache and falls back to GitHub on a miss. Concurrent
// misses for the same issue share one fetch.
type Resolver struct {
	cache   IssueCache
	fetcher IssueFetcher
	group   singleflight.Group
	log     *zap.Logger
}

// NewResolver builds a resolver over cache and fetcher.
func NewResolver(cache IssueCache, fetcher IssueFetcher) (*Resolver, error) {
	if cache == nil {
		return nil, errors.New("bot: issue cache is required")
	}
	if fetcher == nil {
		return nil, errors.New("bot: issue fetcher is required")
	}
	return &Resolver{cache: cache, fetcher: fetcher, log: logger.WithModule("bot")}, nil
}

// Resolve returns the issue behind ref. Fetch errors are returned as-is and never cached.
// Failing to cache a fetched issue is logged and otherwise ignored.
func (r *Resolver) Resolve(ctx context.Context, ref Reference) (*issue.Issue, Source, error) {
	ref = ref.Normalize()
	if cached, ok := r.cache.GetIssue(ctx, ref.Owner, ref.Repo, ref.Number); ok {
		return cached, SourceCache, nil
	}

	// The shared fetch outlives any single caller giving up.
	fetchCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(ref.Key(), func() (any, error) {
		fetched, err := r.fetcher.GetIssue(fetchCtx, ref.Owner, ref.Repo, ref.Number)
		if err != nil {
			return nil, err
		}
		if err := r.cache.SetIssue(fetchCtx, ref.Owner, ref.Repo, ref.Number, fetched); err != nil {
			r.log.Warn("failed to cache fetched issue", zap.String("ref", ref.String()), zap.Error(err))
		}
		return fetched, nil
	})

	select {
	case <-ctx.Done():
		return nil, "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, "", res.Err
		}
		return res.Val.(*issue.Issue), SourceGitHub, nil
	}
}
