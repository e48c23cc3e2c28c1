package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/issuerelay/internal/cache"
	appErrors "github.com/charlesng35/issuerelay/pkg/errors"
	"github.com/charlesng35/issuerelay/pkg/response"
)

// CacheService is the part of cache.Service exposed to administrators.
type CacheService interface {
	Stats(ctx context.Context) cache.Stats
	Clear(ctx context.Context) error
	DeleteIssue(ctx context.Context, owner, repo string, number int) error
	PurgeExpired(ctx context.Context) (int64, error)
}

// CacheHandler exposes cache administration.
type CacheHandler struct {
	cache CacheService
}

func NewCacheHandler(svc CacheService) (*CacheHandler, error) {
	if svc == nil {
		return nil, errors.New("cache handler: cache service is required")
	}
	return &CacheHandler{cache: svc}, nil
}

// GET /api/cache/stats
func (h *CacheHandler) Stats(c *gin.Context) {
	response.Success(c, http.StatusOK, h.cache.Stats(requestContext(c)))
}

// DELETE /api/cache
func (h *CacheHandler) Clear(c *gin.Context) {
	if err := h.cache.Clear(requestContext(c)); err != nil {
		response.Error(c, appErrors.ErrCacheUnavailable.WithInternal(err))
		return
	}
	response.NoContent(c)
}

// DELETE /api/cache/issues/:owner/:repo/:number
func (h *CacheHandler) DeleteIssue(c *gin.Context) {
	ref, ok := bindIssuePath(c)
	if !ok {
		return
	}
	if err := h.cache.DeleteIssue(requestContext(c), ref.Owner, ref.Repo, ref.Number); err != nil {
		response.Error(c, appErrors.ErrCacheUnavailable.WithInternal(err))
		return
	}
	response.NoContent(c)
}

// POST /api/cache/purge
func (h *CacheHandler) Purge(c *gin.Context) {
	removed, err := h.cache.PurgeExpired(requestContext(c))
	if err != nil {
		response.Error(c, appErrors.ErrCacheUnavailable.WithInternal(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": removed})
}
