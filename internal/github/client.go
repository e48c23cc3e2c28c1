// Package github fetches issue records from the GitHub REST API.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gogithub "github.com/google/go-github/v67/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/charlesng35/issuerelay/internal/issue"
	"github.com/charlesng35/issuerelay/internal/monitoring"
	"github.com/charlesng35/issuerelay/pkg/logger"
)

const defaultTimeout = 10 * time.Second

// Config controls how the client reaches GitHub.
type Config struct {
	// Token is a personal access or installation token. Empty means unauthenticated.
	Token string
	// BaseURL overrides the REST endpoint, for GitHub Enterprise or tests.
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Client fetches issues.
type Client struct {
	gh  *gogithub.Client
	log *zap.Logger
}

// NewClient builds a client from cfg.
func NewClient(cfg Config) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := &http.Client{Timeout: timeout}
	if token := strings.TrimSpace(cfg.Token); token != "" {
		httpClient.Transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
			Base:   http.DefaultTransport,
		}
	}

	gh := gogithub.NewClient(httpClient)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		parsed, err := url.Parse(strings.TrimSuffix(base, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("github: parse base url: %w", err)
		}
		gh.BaseURL = parsed
	}
	if cfg.UserAgent != "" {
		gh.UserAgent = cfg.UserAgent
	}

	return &Client{gh: gh, log: logger.WithModule("github")}, nil
}

// GetIssue fetches one issue or pull request by number. Failures are *FetchError.
func (c *Client) GetIssue(ctx context.Context, owner, repo string, number int) (*issue.Issue, error) {
	start := time.Now()
	ghIssue, resp, err := c.gh.Issues.Get(ctx, owner, repo, number)
	elapsed := time.Since(start)

	if err != nil {
		fetchErr := wrapError(err, resp, owner, repo, number)
		monitoring.RecordGitHubFetch(string(fetchErr.Kind), fetchErr.Error(), elapsed)
		c.log.Info("github fetch failed",
			zap.String("owner", owner),
			zap.String("repo", repo),
			zap.Int("number", number),
			zap.String("kind", string(fetchErr.Kind)),
			zap.Int("status", fetchErr.StatusCode),
			zap.Duration("elapsed", elapsed),
		)
		return nil, fetchErr
	}

	monitoring.RecordGitHubFetch(monitoring.ResultSuccess, "", elapsed)
	c.log.Debug("github fetch",
		zap.String("owner", owner),
		zap.String("repo", repo),
		zap.Int("number", number),
		zap.Duration("elapsed", elapsed),
	)
	return convertIssue(ghIssue), nil
}

func convertIssue(src *gogithub.Issue) *issue.Issue {
	if src == nil {
		return nil
	}

	out := &issue.Issue{
		Number:    src.GetNumber(),
		Title:     src.GetTitle(),
		Body:      src.Body,
		State:     issue.State(src.GetState()),
		Draft:     src.GetDraft(),
		Comments:  src.GetComments(),
		CreatedAt: src.GetCreatedAt().Time.UTC(),
		UpdatedAt: src.GetUpdatedAt().Time.UTC(),
		HTMLURL:   src.GetHTMLURL(),
	}
	if out.UpdatedAt.IsZero() {
		out.UpdatedAt = out.CreatedAt
	}

	if user := src.GetUser(); user != nil {
		out.Author = issue.Author{Login: user.GetLogin(), AvatarURL: user.GetAvatarURL()}
	}

	out.Labels = make([]issue.Label, 0, len(src.Labels))
	for _, label := range src.Labels {
		out.Labels = append(out.Labels, issue.Label{Name: label.GetName(), Color: label.GetColor()})
	}

	return out
}
