package checks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/charlesng35/issuerelay/internal/monitoring"
)

const (
	defaultMaintenanceWindow = 6 * time.Hour
	minMaintenanceWindow     = time.Minute

	// A job counts as stale after missing this many scheduled runs.
	missedRunsAllowed = 3
)

// MaintenanceWindow derives how long a job may go without running from its cron
// schedule. Invalid or empty schedules fall back to six hours.
func MaintenanceWindow(spec string, now time.Time) time.Duration {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return defaultMaintenanceWindow
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return defaultMaintenanceWindow
	}
	first := schedule.Next(now)
	second := schedule.Next(first)
	if first.IsZero() || second.IsZero() {
		return defaultMaintenanceWindow
	}
	return max(missedRunsAllowed*second.Sub(first), minMaintenanceWindow)
}

// Maintenance checks the cache purge job. Consecutive failures are down; a job whose
// last run is older than the window derived from schedule is degraded.
func Maintenance(schedule string) monitoring.Check {
	window := MaintenanceWindow(schedule, time.Now())

	return monitoring.NewCheck("maintenance", func(ctx context.Context) monitoring.ProbeResult {
		jobs := monitoring.Snapshot().Maintenance.Jobs
		if len(jobs) == 0 {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "no maintenance jobs registered"}
		}

		now := time.Now()
		status := monitoring.StatusUp
		var notes []string
		for _, job := range jobs {
			switch {
			case job.TotalRuns == 0:
				notes = append(notes, job.Job+": pending first run")
			case job.ConsecutiveFailures > 0:
				status = monitoring.WorstStatus(status, monitoring.StatusDown)
				notes = append(notes, fmt.Sprintf("%s: %d consecutive failures: %s", job.Job, job.ConsecutiveFailures, job.LastError))
			}
			if !job.LastRunAt.IsZero() && now.Sub(job.LastRunAt) > window {
				status = monitoring.WorstStatus(status, monitoring.StatusDegraded)
				notes = append(notes, fmt.Sprintf("%s: no run since %s (window %s)", job.Job, job.LastRunAt.UTC().Format(time.RFC3339), window))
			}
		}
		return monitoring.ProbeResult{Status: status, Details: strings.Join(notes, "; ")}
	})
}
