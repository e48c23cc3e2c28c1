package checks

import (
	"context"
	"fmt"
	"time"

	"github.com/charlesng35/issuerelay/internal/monitoring"
)

const defaultGitHubFailureThreshold = 5

// GitHub degrades readiness once consecutive upstream fetch failures reach threshold.
// It never reports down: cached issues can still be served while GitHub is unreachable.
func GitHub(threshold uint64) monitoring.Check {
	if threshold == 0 {
		threshold = defaultGitHubFailureThreshold
	}

	return monitoring.NewCheck("github", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		summary := monitoring.Snapshot().GitHub

		if summary.ConsecutiveFailures >= threshold {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDegraded,
				Details:  fmt.Sprintf("%d consecutive failures: %s", summary.ConsecutiveFailures, summary.LastError),
				Duration: time.Since(start),
			}
		}

		return monitoring.ProbeResult{
			Status:   monitoring.StatusUp,
			Duration: time.Since(start),
		}
	}).AsOptional()
}
