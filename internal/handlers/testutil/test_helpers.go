package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/issuerelay/internal/api"
	"github.com/charlesng35/issuerelay/internal/app"
	iauth "github.com/charlesng35/issuerelay/internal/auth"
	"github.com/charlesng35/issuerelay/internal/bot"
	"github.com/charlesng35/issuerelay/internal/cache"
	sharedtestutil "github.com/charlesng35/issuerelay/internal/database/testutil"
	"github.com/charlesng35/issuerelay/internal/github"
	"github.com/charlesng35/issuerelay/internal/issue"
	"github.com/charlesng35/issuerelay/internal/monitoring"
	"github.com/charlesng35/issuerelay/pkg/crypto"
	"github.com/charlesng35/issuerelay/pkg/response"
)

// AdminPassword is accepted by POST /api/auth/token in every Env.
const AdminPassword = "correct horse battery staple"

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T       *testing.T
	DB      *gorm.DB
	Router  *gin.Engine
	JWT     *iauth.JWTService
	Cache   *cache.Service
	Fetcher *Fetcher
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())

	store, err := cache.NewDatabaseStore(db)
	require.NoError(t, err)
	svc, err := cache.NewService(store, cache.WithCheckPeriod(time.Hour))
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	hash, err := crypto.HashPassword(AdminPassword)
	require.NoError(t, err)

	jwtSecret := "test-suite-super-secret-key-32-bytes!!"
	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:            jwtSecret,
		Issuer:            "test-suite",
		AccessTokenTTL:    time.Hour,
		AdminPasswordHash: hash,
	})
	require.NoError(t, err)

	fetcher := NewFetcher()
	resolver, err := bot.NewResolver(svc, fetcher)
	require.NoError(t, err)
	relay, err := bot.New(resolver, nil, bot.Options{})
	require.NoError(t, err)

	cfg := &app.Config{
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret: jwtSecret,
				Issuer: "test-suite",
				TTL:    time.Hour,
			},
		},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:     app.HealthConfig{Enabled: true},
		},
	}

	mod, err := monitoring.NewModule(monitoring.Options{})
	require.NoError(t, err)

	router, err := api.NewRouter(api.Dependencies{
		Config:     cfg,
		JWT:        jwtSvc,
		Cache:      svc,
		Issues:     relay,
		Monitoring: mod,
	})
	require.NoError(t, err)

	return &Env{
		T:       t,
		DB:      db,
		Router:  router,
		JWT:     jwtSvc,
		Cache:   svc,
		Fetcher: fetcher,
	}
}

// AdminToken mints an admin token directly from the JWT service.
func (e *Env) AdminToken() string {
	e.T.Helper()
	token, _, err := e.JWT.GenerateToken(iauth.TokenInput{Subject: "admin", Scopes: []string{iauth.ScopeAdmin}})
	require.NoError(e.T, err)
	return token
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(e.T, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(e.T, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// Fetcher is an in-memory GitHub stand-in. Unknown issues fail with a not-found FetchError.
type Fetcher struct {
	mu     sync.Mutex
	issues map[string]*issue.Issue
	errs   map[string]error
	calls  atomic.Int64
}

func NewFetcher() *Fetcher {
	return &Fetcher{issues: make(map[string]*issue.Issue), errs: make(map[string]error)}
}

// Add registers an issue served for owner/repo#number.
func (f *Fetcher) Add(owner, repo string, number int, is *issue.Issue) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issues[cache.IssueKey(owner, repo, number)] = is
}

// Fail makes lookups of owner/repo#number return err.
func (f *Fetcher) Fail(owner, repo string, number int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[cache.IssueKey(owner, repo, number)] = err
}

// Calls reports how many fetches reached the fetcher.
func (f *Fetcher) Calls() int64 {
	return f.calls.Load()
}

func (f *Fetcher) GetIssue(_ context.Context, owner, repo string, number int) (*issue.Issue, error) {
	f.calls.Add(1)
	key := cache.IssueKey(owner, repo, number)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	if is, ok := f.issues[key]; ok {
		return is, nil
	}
	return nil, &github.FetchError{
		Owner: owner, Repo: repo, Number: number,
		StatusCode: http.StatusNotFound, Kind: github.KindNotFound,
		Err: errors.New("not found"),
	}
}

// Issue returns a valid open issue fixture.
func Issue(number int, title string) *issue.Issue {
	body := "Steps to reproduce."
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return &issue.Issue{
		Number:    number,
		Title:     title,
		Body:      &body,
		State:     issue.StateOpen,
		Author:    issue.Author{Login: "octocat"},
		Labels:    []issue.Label{{Name: "bug", Color: "d73a4a"}},
		CreatedAt: created,
		UpdatedAt: created,
		HTMLURL:   "https://github.com/octo/hello/issues/1",
	}
}
