package monitoring

import (
	"strings"
	"time"
)

// Cache tiers and lookup results used as metric labels.
const (
	TierMemory = "memory"
	TierStore  = "store"

	ResultHit     = "hit"
	ResultMiss    = "miss"
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// RecordCacheLookup counts a cache lookup against a tier.
func RecordCacheLookup(tier, result string) {
	module := ensureModule()
	if module == nil {
		return
	}
	tier = normalizeLabel(tier)
	result = normalizeLabel(result)
	module.metrics.cacheLookups.WithLabelValues(tier, result).Inc()
	module.stats.recordLookup(tier, result)
}

// RecordCacheWrite counts a cache write outcome.
func RecordCacheWrite(result string) {
	module := ensureModule()
	if module == nil {
		return
	}
	result = normalizeLabel(result)
	module.metrics.cacheWrites.WithLabelValues(result).Inc()
	module.stats.recordWrite(result)
}

// RecordCacheDelete counts a delete call.
func RecordCacheDelete() {
	module := ensureModule()
	if module == nil {
		return
	}
	module.metrics.cacheDeletes.Inc()
	module.stats.cacheDeletes.Add(1)
}

// RecordCacheReadFault counts a read fault that was downgraded to a miss.
func RecordCacheReadFault(tier string) {
	module := ensureModule()
	if module == nil {
		return
	}
	module.metrics.cacheReadFaults.WithLabelValues(normalizeLabel(tier)).Inc()
	module.stats.cacheReadFaults.Add(1)
}

// RecordGitHubFetch records an upstream fetch and its latency. Result is "success" or
// the failure kind (not_found, forbidden, rate_limited, unavailable).
func RecordGitHubFetch(result, message string, duration time.Duration) {
	module := ensureModule()
	if module == nil {
		return
	}
	result = normalizeLabel(result)
	module.metrics.githubFetches.WithLabelValues(result).Inc()
	observeDuration(module.metrics.githubFetchLatency, duration)
	module.stats.github.record(result, strings.TrimSpace(message), duration)
}

// RecordChatEvent counts a handled chat event, for example a slash command or gateway message.
func RecordChatEvent(source, result string) {
	module := ensureModule()
	if module == nil {
		return
	}
	source = normalizeLabel(source)
	result = normalizeLabel(result)
	module.metrics.chatEvents.WithLabelValues(source, result).Inc()
	module.stats.recordChatEvent(result)
}

// RecordGatewayConnection adjusts the gateway connection gauge.
func RecordGatewayConnection(delta int64) {
	module := ensureModule()
	if module == nil {
		return
	}
	if delta == 0 {
		return
	}
	module.metrics.gatewayConnections.Add(float64(delta))
	module.stats.recordGatewayConnection(delta)
	if module.stats.gatewayConnections.Load() <= 0 {
		module.metrics.gatewayConnections.Set(0)
	}
}

// RecordGatewayFailure snapshots a gateway failure occurrence.
func RecordGatewayFailure(failureType, message string) {
	module := ensureModule()
	if module == nil {
		return
	}
	failureType = normalizeLabel(failureType)
	module.metrics.gatewayFailures.WithLabelValues(failureType).Inc()
	module.stats.recordGatewayFailure(FailureRecord{
		Type:     failureType,
		Message:  strings.TrimSpace(message),
		Occurred: time.Now(),
	})
}

// ObserveAPILatency captures the HTTP request latency for the supplied route.
func ObserveAPILatency(method, path, status string, duration time.Duration) {
	module := ensureModule()
	if module == nil {
		return
	}
	if duration < 0 {
		duration = 0
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = "UNKNOWN"
	}
	path = sanitizePath(path)
	if path == "" {
		path = "unknown"
	}
	status = strings.TrimSpace(status)
	if status == "" {
		status = "unknown"
	}
	module.metrics.apiLatency.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordMaintenanceRun records the completion of a maintenance job.
func RecordMaintenanceRun(job, result, message string, duration time.Duration) {
	module := ensureModule()
	if module == nil {
		return
	}
	jobID := normalizeLabel(job)
	result = normalizeLabel(result)
	module.metrics.maintenanceRuns.WithLabelValues(jobID, result).Inc()
	observeDuration(module.metrics.maintenanceDuration.WithLabelValues(jobID), duration)
	if result == ResultSuccess {
		module.metrics.maintenanceLastRun.WithLabelValues(jobID).Set(float64(time.Now().Unix()))
	}
	stats := module.stats.maintenanceEntry(jobID)
	stats.record(result, strings.TrimSpace(message), duration)
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return value
}

func sanitizePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if path == "/" {
		return "root"
	}
	path = strings.Trim(path, "/")
	return strings.ReplaceAll(path, " ", "_")
}
