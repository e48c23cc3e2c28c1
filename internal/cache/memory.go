package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/zap"

	"github.com/charlesng35/issuerelay/internal/issue"
)

const minCheckPeriod = time.Second

// MemoryCache is the in-process tier. Every entry carries its own expiry and reads never
// extend it. Values are shared, not copied.
type MemoryCache struct {
	items       *ttlcache.Cache[string, *issue.Issue]
	log         *zap.Logger
	checkPeriod time.Duration

	unsubscribe []func()
	stop        chan struct{}
	wg          sync.WaitGroup
	closeOnce   sync.Once
}

// NewMemoryCache builds the memory tier and starts its expiry sweeper. A non-positive
// checkPeriod defaults to a fifth of defaultTTL, with a one second floor.
func NewMemoryCache(defaultTTL, checkPeriod time.Duration, log *zap.Logger) *MemoryCache {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	if checkPeriod <= 0 {
		checkPeriod = defaultCheckPeriod(defaultTTL)
	}
	if log == nil {
		log = zap.NewNop()
	}

	m := &MemoryCache{
		items: ttlcache.New[string, *issue.Issue](
			ttlcache.WithTTL[string, *issue.Issue](defaultTTL),
			ttlcache.WithDisableTouchOnHit[string, *issue.Issue](),
		),
		log:         log,
		checkPeriod: checkPeriod,
		stop:        make(chan struct{}),
	}

	m.unsubscribe = append(m.unsubscribe,
		m.items.OnInsertion(func(_ context.Context, item *ttlcache.Item[string, *issue.Issue]) {
			m.log.Debug("memory cache set",
				zap.String("key", item.Key()),
				zap.Time("expires_at", item.ExpiresAt()),
			)
		}),
		m.items.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *issue.Issue]) {
			m.log.Debug("memory cache evict",
				zap.String("key", item.Key()),
				zap.String("reason", evictionReason(reason)),
			)
		}),
	)

	m.wg.Add(1)
	go m.sweep()

	return m
}

func defaultCheckPeriod(ttl time.Duration) time.Duration {
	period := ttl / 5
	if period < minCheckPeriod {
		return minCheckPeriod
	}
	return period
}

func evictionReason(reason ttlcache.EvictionReason) string {
	switch reason {
	case ttlcache.EvictionReasonExpired:
		return "expired"
	case ttlcache.EvictionReasonDeleted:
		return "deleted"
	case ttlcache.EvictionReasonCapacityReached:
		return "capacity"
	default:
		return "unknown"
	}
}

func (m *MemoryCache) sweep() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.checkPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.items.DeleteExpired()
		}
	}
}

// Get returns the live value for key. Expired entries are never returned, whether or not
// the sweeper has removed them yet.
func (m *MemoryCache) Get(key string) (*issue.Issue, bool) {
	item := m.items.Get(key)
	if item == nil || item.IsExpired() {
		return nil, false
	}
	return item.Value(), true
}

// Set stores value under key for ttl, replacing any existing entry.
func (m *MemoryCache) Set(key string, value *issue.Issue, ttl time.Duration) {
	if ttl <= 0 {
		ttl = ttlcache.DefaultTTL
	}
	m.items.Set(key, value, ttl)
}

// Delete removes key. Absent keys are ignored.
func (m *MemoryCache) Delete(key string) {
	m.items.Delete(key)
}

// DeleteAll flushes every entry.
func (m *MemoryCache) DeleteAll() {
	m.items.DeleteAll()
}

// DeleteExpired removes entries whose TTL has passed.
func (m *MemoryCache) DeleteExpired() {
	m.items.DeleteExpired()
}

// Len counts live entries.
func (m *MemoryCache) Len() int {
	m.items.DeleteExpired()
	return m.items.Len()
}

// CheckPeriod reports the sweep interval.
func (m *MemoryCache) CheckPeriod() time.Duration {
	return m.checkPeriod
}

// Close stops the sweeper and waits for pending event handlers. It is safe to call more
// than once.
func (m *MemoryCache) Close() {
	m.closeOnce.Do(func() {
		close(m.stop)
		m.wg.Wait()
		for _, unsubscribe := range m.unsubscribe {
			unsubscribe()
		}
	})
}
