package checks

import (
	"context"
	"fmt"
	"sync"

	"github.com/charlesng35/issuerelay/internal/monitoring"
)

const defaultReadFaultThreshold = 1

// Cache degrades readiness while the persistent tier keeps failing reads. Read faults
// are served as misses, so the relay still answers; the check compares the fault
// counter against the value seen on the previous run and degrades when it grew by at
// least threshold.
func Cache(threshold uint64) monitoring.Check {
	if threshold == 0 {
		threshold = defaultReadFaultThreshold
	}

	var (
		mu   sync.Mutex
		seen uint64
	)

	return monitoring.NewCheck("cache", func(ctx context.Context) monitoring.ProbeResult {
		summary := monitoring.Snapshot().Cache

		mu.Lock()
		rising := summary.ReadFaults - min(seen, summary.ReadFaults)
		seen = summary.ReadFaults
		mu.Unlock()

		result := monitoring.ProbeResult{Status: monitoring.StatusUp}
		if summary.ReadFaults > 0 || summary.WriteFailures > 0 {
			result.Details = fmt.Sprintf("%d read faults, %d write failures", summary.ReadFaults, summary.WriteFailures)
		}
		if rising >= threshold {
			result.Status = monitoring.StatusDegraded
			result.Details = fmt.Sprintf("%d new read faults since last check; %s", rising, result.Details)
		}
		return result
	}).AsOptional()
}
