package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	iauth "github.com/charlesng35/issuerelay/internal/auth"
	appErrors "github.com/charlesng35/issuerelay/pkg/errors"
	"github.com/charlesng35/issuerelay/pkg/response"
)

const defaultTokenSubject = "admin"

// AuthHandler exchanges the admin password for a bearer token.
type AuthHandler struct {
	jwt *iauth.JWTService
}

func NewAuthHandler(jwt *iauth.JWTService) (*AuthHandler, error) {
	if jwt == nil {
		return nil, errors.New("auth handler: jwt service is required")
	}
	return &AuthHandler{jwt: jwt}, nil
}

type tokenRequest struct {
	Subject  string `json:"subject" validate:"omitempty,max=64"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// POST /api/auth/token
func (h *AuthHandler) Token(c *gin.Context) {
	var req tokenRequest
	if !bindAndValidate(c, &req) {
		return
	}

	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		subject = defaultTokenSubject
	}

	token, expiresAt, err := h.jwt.ExchangePassword(subject, req.Password)
	if err != nil {
		// Normalise auth errors to 401
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	response.Success(c, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt.UTC(),
	})
}
