package cache

import (
	"context"
	"time"

	"github.com/charlesng35/issuerelay/internal/issue"
)

// PersistentStore is the durable tier behind the memory cache. Rows are keyed by the
// issue's composite identity and are live while now < expiresAt.
type PersistentStore interface {
	// GetLive returns the record when a live row exists. Absent or expired rows yield
	// found=false with a nil error.
	GetLive(ctx context.Context, owner, repo string, number int) (*issue.Issue, bool, error)
	Upsert(ctx context.Context, owner, repo string, number int, record *issue.Issue, expiresAt time.Time) error
	Delete(ctx context.Context, owner, repo string, number int) error
	DeleteAll(ctx context.Context) error
	CountLive(ctx context.Context) (int64, error)
	// PurgeExpired deletes rows whose expiry has passed and returns how many were removed.
	PurgeExpired(ctx context.Context) (int64, error)
}
