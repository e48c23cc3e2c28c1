package monitoring

import "time"

// Summary surfaces aggregated monitoring data for the admin API.
type Summary struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Version     string             `json:"version,omitempty"`
	StartedAt   time.Time          `json:"started_at"`
	Cache       CacheSummary       `json:"cache"`
	GitHub      GitHubSummary      `json:"github"`
	Chat        ChatSummary        `json:"chat"`
	Maintenance MaintenanceSummary `json:"maintenance"`
}

type CacheSummary struct {
	MemoryHits    uint64 `json:"memory_hits"`
	MemoryMisses  uint64 `json:"memory_misses"`
	StoreHits     uint64 `json:"store_hits"`
	StoreMisses   uint64 `json:"store_misses"`
	Writes        uint64 `json:"writes"`
	WriteFailures uint64 `json:"write_failures"`
	Deletes       uint64 `json:"deletes"`
	ReadFaults    uint64 `json:"read_faults"`
}

type GitHubSummary struct {
	Success               uint64    `json:"success"`
	Failure               uint64    `json:"failure"`
	ConsecutiveFailures   uint64    `json:"consecutive_failures"`
	LastStatus            string    `json:"last_status"`
	LastCompletedAt       time.Time `json:"last_completed_at"`
	LastError             string    `json:"last_error,omitempty"`
	AverageLatencySeconds float64   `json:"average_latency_seconds"`
}

type FailureRecord struct {
	Type     string    `json:"type"`
	Message  string    `json:"message"`
	Occurred time.Time `json:"occurred_at"`
}

type ChatSummary struct {
	Handled            uint64         `json:"handled"`
	Failed             uint64         `json:"failed"`
	GatewayConnected   bool           `json:"gateway_connected"`
	GatewayFailures    uint64         `json:"gateway_failures"`
	LastGatewayFailure *FailureRecord `json:"last_gateway_failure,omitempty"`
}

type MaintenanceSummary struct {
	Jobs []MaintenanceJobSummary `json:"jobs"`
}

type MaintenanceJobSummary struct {
	Job                 string        `json:"job"`
	LastStatus          string        `json:"last_status"`
	LastRunAt           time.Time     `json:"last_run_at"`
	LastDuration        time.Duration `json:"last_duration"`
	LastError           string        `json:"last_error,omitempty"`
	ConsecutiveFailures uint64        `json:"consecutive_failures"`
	ConsecutiveSuccess  uint64        `json:"consecutive_success"`
	LastSuccessAt       time.Time     `json:"last_success_at"`
	TotalRuns           uint64        `json:"total_runs"`
}

// Snapshot returns a point-in-time summary from the current module when configured.
func Snapshot() Summary {
	if module := ensureModule(); module != nil {
		return module.Summary()
	}
	return Summary{GeneratedAt: time.Now()}
}
