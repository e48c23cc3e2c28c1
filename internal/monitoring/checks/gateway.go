package checks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charlesng35/issuerelay/internal/monitoring"
)

// GatewayObserver exposes the minimal state required to evaluate chat gateway health.
type GatewayObserver interface {
	Connected() bool
}

// Gateway reports the chat gateway connection. A disabled gateway is reported up so that
// interaction-only deployments stay ready.
func Gateway(observer GatewayObserver, enabled bool) monitoring.Check {
	return monitoring.NewCheck("gateway", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if !enabled {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusUp,
				Details:  "gateway disabled",
				Duration: time.Since(start),
			}
		}
		if observer == nil {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDegraded,
				Details:  "gateway unavailable",
				Duration: time.Since(start),
			}
		}

		snapshot := monitoring.Snapshot()
		status := monitoring.StatusUp
		var details []string

		if !observer.Connected() {
			status = monitoring.StatusDegraded
			details = append(details, "not connected")
		}
		if snapshot.Chat.GatewayFailures > 0 {
			details = append(details, fmt.Sprintf("%d failures", snapshot.Chat.GatewayFailures))
		}

		return monitoring.ProbeResult{
			Status:   status,
			Details:  strings.Join(details, "; "),
			Duration: time.Since(start),
		}
	}).AsOptional()
}
