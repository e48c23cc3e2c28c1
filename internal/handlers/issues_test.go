package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/issuerelay/internal/github"
	"github.com/charlesng35/issuerelay/internal/handlers/testutil"
)

type issuePayload struct {
	Reference string `json:"reference"`
	Source    string `json:"source"`
	Issue     struct {
		Number int    `json:"number"`
		Title  string `json:"title"`
		State  string `json:"state"`
	} `json:"issue"`
	Embed struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	} `json:"embed"`
}

func TestIssueLookupFillsCache(t *testing.T) {
	env := testutil.NewEnv(t)
	token := env.AdminToken()
	env.Fetcher.Add("octo", "hello", 1, testutil.Issue(1, "Crash on start"))

	resp := env.Request(http.MethodGet, "/api/issues/octo/hello/1", nil, token)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var first issuePayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &first)
	require.Equal(t, "octo/hello#1", first.Reference)
	require.Equal(t, "github", first.Source)
	require.Equal(t, 1, first.Issue.Number)
	require.Equal(t, "#1 Crash on start", first.Embed.Title)

	resp = env.Request(http.MethodGet, "/api/issues/Octo/Hello/1", nil, token)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var second issuePayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &second)
	require.Equal(t, "cache", second.Source)
	require.EqualValues(t, 1, env.Fetcher.Calls())

	_, ok := env.Cache.GetIssue(context.Background(), "octo", "hello", 1)
	require.True(t, ok)
}

func TestIssueLookupMapsFetchErrors(t *testing.T) {
	env := testutil.NewEnv(t)
	token := env.AdminToken()

	env.Fetcher.Fail("octo", "private", 1, &github.FetchError{
		Owner: "octo", Repo: "private", Number: 1,
		StatusCode: http.StatusForbidden, Kind: github.KindForbidden, Err: errors.New("forbidden"),
	})
	env.Fetcher.Fail("octo", "busy", 1, &github.FetchError{
		Owner: "octo", Repo: "busy", Number: 1,
		Kind: github.KindRateLimited, Err: errors.New("rate limit"),
	})

	cases := []struct {
		path   string
		status int
		code   string
	}{
		{"/api/issues/octo/hello/404", http.StatusNotFound, "issue.not_found"},
		{"/api/issues/octo/private/1", http.StatusForbidden, "github.forbidden"},
		{"/api/issues/octo/busy/1", http.StatusTooManyRequests, "github.rate_limited"},
	}
	for _, tc := range cases {
		resp := env.Request(http.MethodGet, tc.path, nil, token)
		require.Equal(t, tc.status, resp.Code, resp.Body.String())
		body := testutil.DecodeResponse(t, resp)
		require.False(t, body.Success)
		require.Equal(t, tc.code, body.Error.Code)
	}

	// Failures are never cached.
	_, ok := env.Cache.GetIssue(context.Background(), "octo", "hello", 404)
	require.False(t, ok)
}
