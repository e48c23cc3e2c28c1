package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/issuerelay/internal/handlers"
)

func registerCacheRoutes(api *gin.RouterGroup, handler *handlers.CacheHandler) {
	group := api.Group("/cache")
	{
		group.GET("/stats", handler.Stats)
		group.DELETE("", handler.Clear)
		group.POST("/purge", handler.Purge)
		group.DELETE("/issues/:owner/:repo/:number", handler.DeleteIssue)
	}
}

func registerIssueRoutes(api *gin.RouterGroup, handler *handlers.IssueHandler) {
	api.GET("/issues/:owner/:repo/:number", handler.Get)
}
