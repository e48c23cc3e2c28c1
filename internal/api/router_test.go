package api

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/issuerelay/internal/app"
	iauth "github.com/charlesng35/issuerelay/internal/auth"
	"github.com/charlesng35/issuerelay/internal/bot"
	"github.com/charlesng35/issuerelay/internal/cache"
	"github.com/charlesng35/issuerelay/internal/discord"
	"github.com/charlesng35/issuerelay/internal/issue"
	"github.com/charlesng35/issuerelay/internal/middleware"
	"github.com/charlesng35/issuerelay/internal/monitoring"
)

type stubCache struct{}

func (stubCache) Stats(context.Context) cache.Stats                      { return cache.Stats{} }
func (stubCache) Clear(context.Context) error                            { return nil }
func (stubCache) DeleteIssue(context.Context, string, string, int) error { return nil }
func (stubCache) PurgeExpired(context.Context) (int64, error)            { return 0, nil }

type stubLookup struct{}

func (stubLookup) Lookup(context.Context, bot.Reference) (*issue.Issue, *discordgo.MessageEmbed, bot.Source, error) {
	return &issue.Issue{Number: 1, Title: "stub", State: issue.StateOpen}, &discordgo.MessageEmbed{}, bot.SourceCache, nil
}

type stubCommands struct{}

func (stubCommands) HandleCommand(context.Context, *discordgo.Interaction) *discordgo.InteractionResponse {
	return discord.EphemeralReply("stub")
}

func testDependencies(t *testing.T) Dependencies {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "test-secret", Issuer: "test", AccessTokenTTL: 15 * time.Minute})
	require.NoError(t, err)

	mod, err := monitoring.NewModule(monitoring.Options{})
	require.NoError(t, err)

	return Dependencies{
		Config: &app.Config{
			Monitoring: app.MonitoringConfig{
				Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
				Health:     app.HealthConfig{Enabled: true},
			},
		},
		JWT:        jwtSvc,
		Cache:      stubCache{},
		Issues:     stubLookup{},
		Monitoring: mod,
	}
}

func serve(router http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestNewRouterValidatesDependencies(t *testing.T) {
	deps := testDependencies(t)

	missingConfig := deps
	missingConfig.Config = nil
	_, err := NewRouter(missingConfig)
	require.Error(t, err)

	missingJWT := deps
	missingJWT.JWT = nil
	_, err = NewRouter(missingJWT)
	require.Error(t, err)

	missingCache := deps
	missingCache.Cache = nil
	_, err = NewRouter(missingCache)
	require.Error(t, err)
}

func TestRouter_PublicAndProtectedRoutes(t *testing.T) {
	router, err := NewRouter(testDependencies(t))
	require.NoError(t, err)

	// Health should be public
	require.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/health").Code)
	require.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/health/ready").Code)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/cache/stats"},
		{http.MethodDelete, "/api/cache"},
		{http.MethodPost, "/api/cache/purge"},
		{http.MethodDelete, "/api/cache/issues/octo/hello/1"},
		{http.MethodGet, "/api/issues/octo/hello/1"},
		{http.MethodGet, "/api/monitoring/summary"},
	} {
		w := serve(router, tc.method, tc.path)
		require.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", tc.method, tc.path)
	}

	w := serve(router, http.MethodGet, "/does-not-exist")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
}

func TestRouter_ScopedTokens(t *testing.T) {
	deps := testDependencies(t)
	router, err := NewRouter(deps)
	require.NoError(t, err)

	readOnly, _, err := deps.JWT.GenerateToken(iauth.TokenInput{Subject: "viewer"})
	require.NoError(t, err)
	admin, _, err := deps.JWT.GenerateToken(iauth.TokenInput{Subject: "admin", Scopes: []string{iauth.ScopeAdmin}})
	require.NoError(t, err)

	request := func(token string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/issues/octo/hello/1", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)
		return w.Code
	}

	require.Equal(t, http.StatusForbidden, request(readOnly))
	require.Equal(t, http.StatusOK, request(admin))
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	router, err := NewRouter(testDependencies(t))
	require.NoError(t, err)

	// Trigger a request to generate metrics
	require.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/health").Code)

	metrics := serve(router, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, metrics.Code)
	require.True(t, strings.Contains(metrics.Body.String(), "go_goroutines"), "expected runtime metrics")
}

func TestRouter_HealthDisabled(t *testing.T) {
	deps := testDependencies(t)
	deps.Config.Monitoring.Health.Enabled = false
	deps.Config.Monitoring.Prometheus.Enabled = false

	router, err := NewRouter(deps)
	require.NoError(t, err)

	require.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/health/ready").Code)
	require.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/metrics").Code)
}

func TestRouter_InteractionsRoute(t *testing.T) {
	deps := testDependencies(t)

	router, err := NewRouter(deps)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, serve(router, http.MethodPost, "/interactions").Code)

	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	deps.Interactions, err = discord.NewInteractionHandler(hex.EncodeToString(pub), stubCommands{})
	require.NoError(t, err)

	router, err = NewRouter(deps)
	require.NoError(t, err)
	// Unsigned requests are rejected by the handler, proving the route is mounted.
	require.Equal(t, http.StatusUnauthorized, serve(router, http.MethodPost, "/interactions").Code)
}

func TestRouter_TokenRateLimit(t *testing.T) {
	deps := testDependencies(t)
	deps.TokenLimiter = middleware.NewRateLimiter(1, time.Minute)
	t.Cleanup(deps.TokenLimiter.Stop)

	router, err := NewRouter(deps)
	require.NoError(t, err)

	// Password login is disabled here, so the first attempt fails validation.
	require.Equal(t, http.StatusBadRequest, serve(router, http.MethodPost, "/api/auth/token").Code)
	require.Equal(t, http.StatusTooManyRequests, serve(router, http.MethodPost, "/api/auth/token").Code)
}
