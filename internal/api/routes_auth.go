package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/issuerelay/internal/handlers"
	"github.com/charlesng35/issuerelay/internal/middleware"
)

func registerAuthRoutes(r *gin.Engine, handler *handlers.AuthHandler, limiter *middleware.RateLimiter) {
	auth := r.Group("/api/auth")
	if limiter != nil {
		auth.Use(limiter.Handler())
	}
	auth.POST("/token", handler.Token)
}
