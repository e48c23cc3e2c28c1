package bot

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/issuerelay/internal/github"
	"github.com/charlesng35/issuerelay/internal/issue"
)

func TestRenderIssue(t *testing.T) {
	ref := Reference{Owner: "octo", Repo: "hello", Number: 1}
	embed := RenderIssue(ref, fixtureIssue(1, "Crash on start"), RenderOptions{})

	assert.Equal(t, "#1 Crash on start", embed.Title)
	assert.Equal(t, "https://github.com/octo/hello/issues/1", embed.URL)
	assert.Equal(t, "Steps to reproduce.", embed.Description)
	assert.Equal(t, ColorOpen, embed.Color)
	assert.Equal(t, "2024-03-01T12:00:00Z", embed.Timestamp)
	require.NotNil(t, embed.Author)
	assert.Equal(t, "octocat", embed.Author.Name)
	assert.Equal(t, "https://github.com/octocat", embed.Author.URL)
	require.NotNil(t, embed.Footer)
	assert.Equal(t, "octo/hello", embed.Footer.Text)

	require.Len(t, embed.Fields, 3)
	assert.Equal(t, "Open", embed.Fields[0].Value)
	assert.Equal(t, "4", embed.Fields[1].Value)
	assert.Equal(t, "bug, help wanted", embed.Fields[2].Value)
}

func TestRenderIssueColors(t *testing.T) {
	ref := Reference{Owner: "octo", Repo: "hello", Number: 1}

	closed := fixtureIssue(1, "Done")
	closed.State = issue.StateClosed
	closed.Draft = true
	assert.Equal(t, ColorClosed, RenderIssue(ref, closed, RenderOptions{}).Color)

	draft := fixtureIssue(1, "WIP")
	draft.Draft = true
	embed := RenderIssue(ref, draft, RenderOptions{})
	assert.Equal(t, ColorDraft, embed.Color)
	assert.Equal(t, "Draft", embed.Fields[0].Value)
}

func TestRenderIssueTruncates(t *testing.T) {
	ref := Reference{Owner: "octo", Repo: "hello", Number: 1}
	is := fixtureIssue(1, strings.Repeat("t", 400))
	body := strings.Repeat("é", 500)
	is.Body = &body
	is.Labels = nil
	is.HTMLURL = ""

	embed := RenderIssue(ref, is, RenderOptions{BodyPreviewLength: 50})

	assert.Equal(t, 256, utf8.RuneCountInString(embed.Title))
	assert.True(t, strings.HasSuffix(embed.Title, "…"))
	assert.Equal(t, 50, utf8.RuneCountInString(embed.Description))
	assert.True(t, strings.HasSuffix(embed.Description, "…"))
	assert.Equal(t, ref.URL(), embed.URL)
	assert.Len(t, embed.Fields, 2)
}

func TestRenderIssueWithoutBody(t *testing.T) {
	is := fixtureIssue(1, "No body")
	is.Body = nil
	embed := RenderIssue(Reference{Owner: "octo", Repo: "hello", Number: 1}, is, RenderOptions{})
	assert.Empty(t, embed.Description)
}

func TestRenderFetchError(t *testing.T) {
	fetchErr := func(kind github.Kind) error {
		return &github.FetchError{Owner: "octo", Repo: "hello", Number: 9, Kind: kind, Err: errors.New("boom")}
	}

	assert.Equal(t, "Issue octo/hello#9 was not found.", RenderFetchError(fetchErr(github.KindNotFound)))
	assert.Contains(t, RenderFetchError(fetchErr(github.KindForbidden)), "access to octo/hello#9")
	assert.Contains(t, RenderFetchError(fetchErr(github.KindRateLimited)), "rate limit")
	assert.Contains(t, RenderFetchError(fetchErr(github.KindUnavailable)), "octo/hello#9")

	generic := RenderFetchError(errors.New("cache: database is locked"))
	assert.NotContains(t, generic, "database")
}
