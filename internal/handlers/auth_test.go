package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/issuerelay/internal/handlers/testutil"
)

type tokenPayload struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func TestTokenExchange(t *testing.T) {
	env := testutil.NewEnv(t)

	resp := env.Request(http.MethodPost, "/api/auth/token", map[string]string{
		"password": testutil.AdminPassword,
	}, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var token tokenPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &token)
	require.NotEmpty(t, token.AccessToken)
	require.Equal(t, "Bearer", token.TokenType)
	require.True(t, token.ExpiresAt.After(time.Now()))

	claims, err := env.JWT.ValidateToken(token.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "admin", claims.Subject)

	resp = env.Request(http.MethodGet, "/api/cache/stats", nil, token.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
}

func TestTokenExchangeCustomSubject(t *testing.T) {
	env := testutil.NewEnv(t)

	resp := env.Request(http.MethodPost, "/api/auth/token", map[string]string{
		"subject":  "ops-bot",
		"password": testutil.AdminPassword,
	}, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var token tokenPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &token)
	claims, err := env.JWT.ValidateToken(token.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "ops-bot", claims.Subject)
}

func TestTokenExchangeRejectsBadInput(t *testing.T) {
	env := testutil.NewEnv(t)

	resp := env.Request(http.MethodPost, "/api/auth/token", map[string]string{"password": "wrong"}, "")
	require.Equal(t, http.StatusUnauthorized, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodPost, "/api/auth/token", map[string]string{}, "")
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
	body := testutil.DecodeResponse(t, resp)
	require.Equal(t, "password is required", body.Error.Message)
}
