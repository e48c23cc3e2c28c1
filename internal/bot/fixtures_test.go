package bot

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/charlesng35/issuerelay/internal/github"
	"github.com/charlesng35/issuerelay/internal/issue"
)

func fixtureIssue(number int, title string) *issue.Issue {
	body := "Steps to reproduce."
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return &issue.Issue{
		Number:    number,
		Title:     title,
		Body:      &body,
		State:     issue.StateOpen,
		Author:    issue.Author{Login: "octocat", AvatarURL: "https://avatars.githubusercontent.com/u/583231"},
		Labels:    []issue.Label{{Name: "bug", Color: "d73a4a"}, {Name: "help wanted", Color: "008672"}},
		Comments:  4,
		CreatedAt: created,
		UpdatedAt: created.Add(2 * time.Hour),
		HTMLURL:   "https://github.com/octo/hello/issues/1",
	}
}

type memoryIssueCache struct {
	mu      sync.Mutex
	items   map[string]*issue.Issue
	setErr  error
	sets    atomic.Int64
	lookups atomic.Int64
}

func newMemoryIssueCache() *memoryIssueCache {
	return &memoryIssueCache{items: make(map[string]*issue.Issue)}
}

func (m *memoryIssueCache) GetIssue(_ context.Context, owner, repo string, number int) (*issue.Issue, bool) {
	m.lookups.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[Reference{Owner: owner, Repo: repo, Number: number}.Key()]
	return v, ok
}

func (m *memoryIssueCache) SetIssue(_ context.Context, owner, repo string, number int, value *issue.Issue) error {
	m.sets.Add(1)
	if m.setErr != nil {
		return m.setErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[Reference{Owner: owner, Repo: repo, Number: number}.Key()] = value
	return nil
}

type stubFetcher struct {
	calls   atomic.Int64
	release chan struct{}
	issues  map[string]*issue.Issue
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{issues: make(map[string]*issue.Issue)}
}

func (s *stubFetcher) add(ref Reference, is *issue.Issue) {
	s.issues[ref.Key()] = is
}

func (s *stubFetcher) GetIssue(_ context.Context, owner, repo string, number int) (*issue.Issue, error) {
	s.calls.Add(1)
	if s.release != nil {
		<-s.release
	}
	is, ok := s.issues[Reference{Owner: owner, Repo: repo, Number: number}.Key()]
	if !ok {
		return nil, &github.FetchError{Owner: owner, Repo: repo, Number: number, StatusCode: 404, Kind: github.KindNotFound, Err: errors.New("Not Found")}
	}
	return is, nil
}

type recordingSender struct {
	mu       sync.Mutex
	channels []string
	messages []*discordgo.MessageSend
	err      error
}

func (r *recordingSender) CreateMessage(_ context.Context, channelID string, msg *discordgo.MessageSend) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels = append(r.channels, channelID)
	r.messages = append(r.messages, msg)
	return r.err
}
