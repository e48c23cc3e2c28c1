package checks

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/issuerelay/internal/models"
	"github.com/charlesng35/issuerelay/internal/monitoring"
)

const defaultDatabaseTimeout = 2 * time.Second

// Database checks the persistent cache tier: the connection must answer a ping and the
// cached issue table must exist. A timeout degrades rather than fails, since lookups
// still fall through to GitHub while the store is slow.
func Database(db *gorm.DB, timeout time.Duration) monitoring.Check {
	if timeout <= 0 {
		timeout = defaultDatabaseTimeout
	}

	return monitoring.NewCheck("database", func(ctx context.Context) monitoring.ProbeResult {
		if db == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "database not configured"}
		}

		start := time.Now()
		sqlDB, err := db.DB()
		if err != nil {
			return monitoring.ResultFromError("database", err, time.Since(start))
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return monitoring.ResultFromError("database", err, time.Since(start))
		}
		if !db.WithContext(ctx).Migrator().HasTable(&models.CachedIssue{}) {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDown,
				Details:  "cached issue table missing",
				Duration: time.Since(start),
			}
		}
		return monitoring.ProbeResult{Status: monitoring.StatusUp, Duration: time.Since(start)}
	}).WithTimeout(timeout)
}
