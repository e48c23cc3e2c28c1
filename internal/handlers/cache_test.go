package handlers_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/issuerelay/internal/cache"
	"github.com/charlesng35/issuerelay/internal/handlers/testutil"
)

func TestCacheRoutesRequireToken(t *testing.T) {
	env := testutil.NewEnv(t)

	resp := env.Request(http.MethodGet, "/api/cache/stats", nil, "")
	require.Equal(t, http.StatusUnauthorized, resp.Code, resp.Body.String())
	require.Equal(t, "Bearer", resp.Header().Get("WWW-Authenticate"))
}

func TestCacheStatsAndClear(t *testing.T) {
	env := testutil.NewEnv(t)
	token := env.AdminToken()
	ctx := context.Background()

	require.NoError(t, env.Cache.SetIssue(ctx, "octo", "hello", 1, testutil.Issue(1, "First")))
	require.NoError(t, env.Cache.SetIssue(ctx, "octo", "hello", 2, testutil.Issue(2, "Second")))

	resp := env.Request(http.MethodGet, "/api/cache/stats", nil, token)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var stats cache.Stats
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &stats)
	require.EqualValues(t, 2, stats.Sets)
	require.EqualValues(t, 2, stats.Size)

	resp = env.Request(http.MethodDelete, "/api/cache", nil, token)
	require.Equal(t, http.StatusNoContent, resp.Code, resp.Body.String())

	_, ok := env.Cache.GetIssue(ctx, "octo", "hello", 1)
	require.False(t, ok)
	require.Zero(t, env.Cache.Stats(ctx).Size)
}

func TestCacheDeleteIssue(t *testing.T) {
	env := testutil.NewEnv(t)
	token := env.AdminToken()
	ctx := context.Background()

	require.NoError(t, env.Cache.SetIssue(ctx, "octo", "hello", 7, testutil.Issue(7, "Crash")))
	require.NoError(t, env.Cache.SetIssue(ctx, "octo", "hello", 8, testutil.Issue(8, "Other")))

	// Path segments are normalised like chat references.
	resp := env.Request(http.MethodDelete, "/api/cache/issues/Octo/Hello/7", nil, token)
	require.Equal(t, http.StatusNoContent, resp.Code, resp.Body.String())

	_, ok := env.Cache.GetIssue(ctx, "octo", "hello", 7)
	require.False(t, ok)
	_, ok = env.Cache.GetIssue(ctx, "octo", "hello", 8)
	require.True(t, ok)

	// Deleting an absent key is not an error.
	resp = env.Request(http.MethodDelete, "/api/cache/issues/octo/hello/7", nil, token)
	require.Equal(t, http.StatusNoContent, resp.Code)
}

func TestCacheDeleteIssueValidatesPath(t *testing.T) {
	env := testutil.NewEnv(t)
	token := env.AdminToken()

	cases := map[string]string{
		"zero number":     "/api/cache/issues/octo/hello/0",
		"non numeric":     "/api/cache/issues/octo/hello/abc",
		"invalid owner":   "/api/cache/issues/-octo/hello/1",
		"invalid repo":    "/api/cache/issues/octo/he%20llo/1",
		"negative number": "/api/cache/issues/octo/hello/-3",
	}
	for name, path := range cases {
		t.Run(name, func(t *testing.T) {
			resp := env.Request(http.MethodDelete, path, nil, token)
			require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
			body := testutil.DecodeResponse(t, resp)
			require.False(t, body.Success)
			require.Equal(t, "BAD_REQUEST", body.Error.Code)
		})
	}
}

func TestCachePurge(t *testing.T) {
	env := testutil.NewEnv(t)
	token := env.AdminToken()
	ctx := context.Background()

	require.NoError(t, env.Cache.Set(ctx, cache.IssueKey("octo", "hello", 1), testutil.Issue(1, "Short"), 20*time.Millisecond))
	require.NoError(t, env.Cache.Set(ctx, cache.IssueKey("octo", "hello", 2), testutil.Issue(2, "Long"), time.Hour))
	time.Sleep(100 * time.Millisecond)

	resp := env.Request(http.MethodPost, "/api/cache/purge", nil, token)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var payload struct {
		Removed int64 `json:"removed"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &payload)
	require.EqualValues(t, 1, payload.Removed)
}
