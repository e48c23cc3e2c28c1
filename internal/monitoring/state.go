package monitoring

import (
	"sync"
	"sync/atomic"
	"time"
)

type statStore struct {
	memoryHits   atomic.Uint64
	memoryMisses atomic.Uint64
	storeHits    atomic.Uint64
	storeMisses  atomic.Uint64

	cacheWrites        atomic.Uint64
	cacheWriteFailures atomic.Uint64
	cacheDeletes       atomic.Uint64
	cacheReadFaults    atomic.Uint64

	github fetchStats

	chatHandled atomic.Uint64
	chatFailed  atomic.Uint64

	gatewayConnections atomic.Int64
	gatewayFailures    atomic.Uint64
	gatewayLastFailure atomic.Value // *FailureRecord

	maintenance sync.Map // string -> *maintenanceStats
}

func newStatStore() *statStore {
	store := &statStore{}
	store.gatewayLastFailure.Store((*FailureRecord)(nil))
	return store
}

func (s *statStore) cloneMaintenance() []MaintenanceJobSummary {
	summaries := []MaintenanceJobSummary{}
	s.maintenance.Range(func(key, value any) bool {
		job := key.(string)
		stats := value.(*maintenanceStats)
		summaries = append(summaries, stats.snapshot(job))
		return true
	})
	return summaries
}

func (s *statStore) summary() Summary {
	lastFailure, _ := s.gatewayLastFailure.Load().(*FailureRecord)

	return Summary{
		GeneratedAt: time.Now(),
		Cache: CacheSummary{
			MemoryHits:    s.memoryHits.Load(),
			MemoryMisses:  s.memoryMisses.Load(),
			StoreHits:     s.storeHits.Load(),
			StoreMisses:   s.storeMisses.Load(),
			Writes:        s.cacheWrites.Load(),
			WriteFailures: s.cacheWriteFailures.Load(),
			Deletes:       s.cacheDeletes.Load(),
			ReadFaults:    s.cacheReadFaults.Load(),
		},
		GitHub: s.github.snapshot(),
		Chat: ChatSummary{
			Handled:            s.chatHandled.Load(),
			Failed:             s.chatFailed.Load(),
			GatewayConnected:   s.gatewayConnections.Load() > 0,
			GatewayFailures:    s.gatewayFailures.Load(),
			LastGatewayFailure: lastFailure,
		},
		Maintenance: MaintenanceSummary{
			Jobs: s.cloneMaintenance(),
		},
	}
}

func (s *statStore) recordLookup(tier, result string) {
	switch {
	case tier == TierMemory && result == ResultHit:
		s.memoryHits.Add(1)
	case tier == TierMemory:
		s.memoryMisses.Add(1)
	case result == ResultHit:
		s.storeHits.Add(1)
	default:
		s.storeMisses.Add(1)
	}
}

func (s *statStore) recordWrite(result string) {
	if result == ResultSuccess {
		s.cacheWrites.Add(1)
		return
	}
	s.cacheWriteFailures.Add(1)
}

func (s *statStore) recordChatEvent(result string) {
	if result == ResultSuccess {
		s.chatHandled.Add(1)
		return
	}
	s.chatFailed.Add(1)
}

func (s *statStore) recordGatewayConnection(delta int64) {
	newValue := s.gatewayConnections.Add(delta)
	if newValue < 0 {
		s.gatewayConnections.Store(0)
	}
}

func (s *statStore) recordGatewayFailure(record FailureRecord) {
	s.gatewayFailures.Add(1)
	cloned := record
	s.gatewayLastFailure.Store(&cloned)
}

func (s *statStore) maintenanceEntry(job string) *maintenanceStats {
	value, ok := s.maintenance.Load(job)
	if ok {
		return value.(*maintenanceStats)
	}
	stats := &maintenanceStats{}
	actual, _ := s.maintenance.LoadOrStore(job, stats)
	return actual.(*maintenanceStats)
}

type maintenanceStats struct {
	lastStatus           atomic.Value // string
	lastError            atomic.Value // string
	lastRun              atomic.Int64 // unix nano
	lastDuration         atomic.Int64 // nanoseconds
	consecutiveFailures  atomic.Uint64
	totalRuns            atomic.Uint64
	lastSuccessfulRun    atomic.Int64
	consecutiveSuccesses atomic.Uint64
}

func (m *maintenanceStats) snapshot(job string) MaintenanceJobSummary {
	status, _ := m.lastStatus.Load().(string)
	errMsg, _ := m.lastError.Load().(string)
	lastRun := time.Unix(0, m.lastRun.Load())
	lastSuccess := time.Unix(0, m.lastSuccessfulRun.Load())

	return MaintenanceJobSummary{
		Job:                 job,
		LastStatus:          status,
		LastRunAt:           lastRun,
		LastDuration:        time.Duration(m.lastDuration.Load()),
		LastError:           errMsg,
		ConsecutiveFailures: m.consecutiveFailures.Load(),
		ConsecutiveSuccess:  m.consecutiveSuccesses.Load(),
		LastSuccessAt:       lastSuccess,
		TotalRuns:           m.totalRuns.Load(),
	}
}

func (m *maintenanceStats) record(result, message string, duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	now := time.Now()
	m.lastStatus.Store(result)
	m.lastError.Store(message)
	m.lastRun.Store(now.UnixNano())
	m.lastDuration.Store(int64(duration))
	m.totalRuns.Add(1)

	switch result {
	case ResultSuccess:
		m.consecutiveFailures.Store(0)
		m.consecutiveSuccesses.Add(1)
		m.lastSuccessfulRun.Store(now.UnixNano())
	default:
		m.consecutiveFailures.Add(1)
		m.consecutiveSuccesses.Store(0)
	}
}

type fetchStats struct {
	success             atomic.Uint64
	failure             atomic.Uint64
	consecutiveFailures atomic.Uint64
	lastStatus          atomic.Value // string
	lastError           atomic.Value // string
	lastCompleted       atomic.Int64
	totalLatencyNs      atomic.Uint64
	totalFetches        atomic.Uint64
}

func (f *fetchStats) snapshot() GitHubSummary {
	status, _ := f.lastStatus.Load().(string)
	errMsg, _ := f.lastError.Load().(string)
	total := f.totalFetches.Load()

	var avg float64
	if total > 0 {
		avg = float64(f.totalLatencyNs.Load()) / float64(total) / float64(time.Second)
	}

	return GitHubSummary{
		Success:               f.success.Load(),
		Failure:               f.failure.Load(),
		ConsecutiveFailures:   f.consecutiveFailures.Load(),
		LastStatus:            status,
		LastCompletedAt:       time.Unix(0, f.lastCompleted.Load()),
		LastError:             errMsg,
		AverageLatencySeconds: avg,
	}
}

func (f *fetchStats) record(result, message string, duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	// not_found and forbidden are answers from a healthy upstream.
	switch result {
	case ResultSuccess, "not_found", "forbidden":
		f.success.Add(1)
		f.consecutiveFailures.Store(0)
	default:
		f.failure.Add(1)
		f.consecutiveFailures.Add(1)
	}

	f.lastStatus.Store(result)
	f.lastError.Store(message)
	f.lastCompleted.Store(time.Now().UnixNano())
	f.totalFetches.Add(1)
	f.totalLatencyNs.Add(uint64(duration))
}
