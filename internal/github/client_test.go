package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/issuerelay/internal/issue"
	apperrors "github.com/charlesng35/issuerelay/pkg/errors"
)

const issuePayload = `{
  "number": 42,
  "title": "Bug",
  "body": "It crashes on start",
  "state": "open",
  "draft": false,
  "comments": 3,
  "html_url": "https://github.com/octo/repo/issues/42",
  "created_at": "2024-03-01T10:00:00Z",
  "updated_at": "2024-03-02T11:30:00Z",
  "user": {"login": "octocat", "avatar_url": "https://avatars.githubusercontent.com/u/583231"},
  "labels": [{"name": "bug", "color": "d73a4a"}, {"name": "help wanted", "color": "008672"}]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc, cfg Config) *Client {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/repo/issues/", handler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	cfg.BaseURL = server.URL
	client, err := NewClient(cfg)
	require.NoError(t, err)
	return client
}

func TestGetIssueConvertsPayload(t *testing.T) {
	var gotAuth, gotAgent string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAgent = r.Header.Get("User-Agent")
		assert.Equal(t, "/repos/octo/repo/issues/42", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, issuePayload)
	}, Config{Token: "ghp_test", UserAgent: "issuerelay-test"})

	got, err := client.GetIssue(context.Background(), "octo", "repo", 42)
	require.NoError(t, err)

	assert.Equal(t, "Bearer ghp_test", gotAuth)
	assert.Equal(t, "issuerelay-test", gotAgent)
	assert.Equal(t, 42, got.Number)
	assert.Equal(t, "Bug", got.Title)
	require.NotNil(t, got.Body)
	assert.Equal(t, "It crashes on start", *got.Body)
	assert.Equal(t, issue.StateOpen, got.State)
	assert.Equal(t, 3, got.Comments)
	assert.Equal(t, issue.Author{Login: "octocat", AvatarURL: "https://avatars.githubusercontent.com/u/583231"}, got.Author)
	assert.Equal(t, []issue.Label{{Name: "bug", Color: "d73a4a"}, {Name: "help wanted", Color: "008672"}}, got.Labels)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), got.CreatedAt)
	require.NoError(t, got.Validate())
}

func TestGetIssueWithoutBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"number": 7, "title": "Draft PR", "state": "open", "draft": true,
			"created_at": "2024-03-01T10:00:00Z", "updated_at": "2024-03-01T10:00:00Z",
			"user": {"login": "hubot"}}`)
	}, Config{})

	got, err := client.GetIssue(context.Background(), "octo", "repo", 7)
	require.NoError(t, err)
	assert.Nil(t, got.Body)
	assert.True(t, got.Draft)
	assert.Empty(t, got.Labels)
}

func TestGetIssueClassifiesFailures(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		headers map[string]string
		body    string
		kind    Kind
		appErr  *apperrors.AppError
	}{
		{name: "not found", status: http.StatusNotFound, body: `{"message":"Not Found"}`, kind: KindNotFound, appErr: apperrors.ErrIssueNotFound},
		{name: "gone", status: http.StatusGone, body: `{"message":"This issue was deleted"}`, kind: KindNotFound, appErr: apperrors.ErrIssueNotFound},
		{name: "forbidden", status: http.StatusForbidden, body: `{"message":"Must have admin rights"}`, kind: KindForbidden, appErr: apperrors.ErrUpstreamForbidden},
		{
			name:   "primary rate limit",
			status: http.StatusForbidden,
			headers: map[string]string{
				"X-RateLimit-Limit":     "60",
				"X-RateLimit-Remaining": "0",
				"X-RateLimit-Reset":     fmt.Sprint(time.Now().Add(time.Hour).Unix()),
			},
			body:   `{"message":"API rate limit exceeded for 127.0.0.1."}`,
			kind:   KindRateLimited,
			appErr: apperrors.ErrUpstreamRateLimited,
		},
		{name: "too many requests", status: http.StatusTooManyRequests, body: `{"message":"slow down"}`, kind: KindRateLimited, appErr: apperrors.ErrUpstreamRateLimited},
		{name: "server error", status: http.StatusBadGateway, body: `{"message":"upstream"}`, kind: KindUnavailable, appErr: apperrors.ErrUpstreamUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tc.headers {
					w.Header().Set(k, v)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			}, Config{})

			_, err := client.GetIssue(context.Background(), "octo", "repo", 1)
			require.Error(t, err)

			var fetchErr *FetchError
			require.ErrorAs(t, err, &fetchErr)
			assert.Equal(t, tc.kind, fetchErr.Kind)
			assert.Equal(t, "octo", fetchErr.Owner)
			assert.Equal(t, 1, fetchErr.Number)

			assert.True(t, errors.Is(apperrors.FromError(err), tc.appErr))
			assert.Equal(t, tc.kind == KindNotFound, IsNotFound(err))
		})
	}
}

func TestGetIssueUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL
	server.Close()

	client, err := NewClient(Config{BaseURL: base, Timeout: time.Second})
	require.NoError(t, err)

	_, err = client.GetIssue(context.Background(), "octo", "repo", 1)
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, KindUnavailable, fetchErr.Kind)
	assert.Zero(t, fetchErr.StatusCode)
}

func TestNewClientRejectsBadBaseURL(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "://bad"})
	require.Error(t, err)
}
