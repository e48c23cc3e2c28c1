// Package cache implements the two-tier issue cache: an in-process memory tier in front of
// a persistent database tier, composed by Service.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/issuerelay/internal/issue"
	"github.com/charlesng35/issuerelay/internal/monitoring"
	"github.com/charlesng35/issuerelay/pkg/logger"
)

// DefaultTTL applies when no TTL is configured.
const DefaultTTL = 300 * time.Second

// Stats reports process-lifetime counters and a size estimate. Counters never decrease;
// Clear does not reset them.
type Stats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Sets    uint64 `json:"sets"`
	Deletes uint64 `json:"deletes"`
	Size    int64  `json:"size"`
}

// Option customises a Service.
type Option func(*Service)

// WithDefaultTTL sets the TTL used by SetIssue, by Set when ttl <= 0, and for promotion.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.defaultTTL = ttl
		}
	}
}

// WithCheckPeriod overrides the memory tier's sweep interval.
func WithCheckPeriod(period time.Duration) Option {
	return func(s *Service) {
		if period > 0 {
			s.checkPeriod = period
		}
	}
}

// WithNow overrides the clock used to compute persistent expiry.
func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger overrides the service logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// Service composes the memory and persistent tiers. Reads go memory first, then the
// store, and promote store hits into memory. Writes go to both tiers in that order.
//
// A persistent hit is promoted with the default TTL, not the row's remaining lifetime, so
// an entry can stay visible in memory for up to one default TTL past its stored expiry.
type Service struct {
	memory      *MemoryCache
	store       PersistentStore
	defaultTTL  time.Duration
	checkPeriod time.Duration
	now         func() time.Time
	log         *zap.Logger

	hits    atomic.Uint64
	misses  atomic.Uint64
	sets    atomic.Uint64
	deletes atomic.Uint64
}

// NewService constructs the orchestrator over store and starts the memory sweeper. Call
// Close at shutdown.
func NewService(store PersistentStore, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("cache: persistent store is required")
	}
	if ds, ok := store.(*DatabaseStore); ok && ds == nil {
		return nil, errStoreNotInitialised
	}

	svc := &Service{
		store:      store,
		defaultTTL: DefaultTTL,
		now:        time.Now,
		log:        logger.WithModule("cache"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	svc.memory = NewMemoryCache(svc.defaultTTL, svc.checkPeriod, svc.log)

	svc.log.Info("issue cache ready",
		zap.Duration("default_ttl", svc.defaultTTL),
		zap.Duration("check_period", svc.memory.CheckPeriod()),
	)
	return svc, nil
}

// DefaultTTL reports the configured default TTL.
func (s *Service) DefaultTTL() time.Duration {
	return s.defaultTTL
}

// Get returns the cached record for key. It never fails: faults in either tier are logged
// and reported as a miss.
func (s *Service) Get(ctx context.Context, key string) (*issue.Issue, bool) {
	if ctx == nil {
		ctx = context.Background()
	}

	if value, ok := s.memory.Get(key); ok {
		s.hits.Add(1)
		monitoring.RecordCacheLookup(monitoring.TierMemory, monitoring.ResultHit)
		return value, true
	}
	monitoring.RecordCacheLookup(monitoring.TierMemory, monitoring.ResultMiss)

	owner, repo, number, err := ParseIssueKey(key)
	if err != nil {
		s.readFault(key, "key", err)
		return nil, false
	}

	value, found, err := s.store.GetLive(ctx, owner, repo, number)
	if err != nil {
		s.readFault(key, monitoring.TierStore, err)
		return nil, false
	}
	if !found {
		s.misses.Add(1)
		monitoring.RecordCacheLookup(monitoring.TierStore, monitoring.ResultMiss)
		return nil, false
	}

	s.memory.Set(key, value, s.defaultTTL)
	s.hits.Add(1)
	monitoring.RecordCacheLookup(monitoring.TierStore, monitoring.ResultHit)
	s.log.Debug("promoted persistent entry", zap.String("key", key))
	return value, true
}

func (s *Service) readFault(key, tier string, err error) {
	s.misses.Add(1)
	monitoring.RecordCacheReadFault(tier)
	s.log.Warn("cache read fault treated as miss",
		zap.String("key", key),
		zap.String("tier", tier),
		zap.Error(err),
	)
}

// Set writes value to both tiers. A ttl <= 0 selects the default TTL. When the persistent
// write fails the memory copy is kept and a *Error is returned.
func (s *Service) Set(ctx context.Context, key string, value *issue.Issue, ttl time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	owner, repo, number, err := ParseIssueKey(key)
	if err != nil {
		return s.writeFailed("set", key, err)
	}
	if err := value.Validate(); err != nil {
		return s.writeFailed("set", key, err)
	}

	s.memory.Set(key, value, ttl)
	s.sets.Add(1)

	expiresAt := s.now().Add(ttl)
	if err := s.store.Upsert(ctx, owner, repo, number, value, expiresAt); err != nil {
		return s.writeFailed("set", key, err)
	}

	monitoring.RecordCacheWrite(monitoring.ResultSuccess)
	return nil
}

// Delete removes key from both tiers. Absent keys are not an error.
func (s *Service) Delete(ctx context.Context, key string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.memory.Delete(key)
	s.deletes.Add(1)
	monitoring.RecordCacheDelete()

	owner, repo, number, err := ParseIssueKey(key)
	if err != nil {
		// Nothing can be persisted under a malformed key.
		return nil
	}
	if err := s.store.Delete(ctx, owner, repo, number); err != nil {
		return s.writeFailed("delete", key, err)
	}
	return nil
}

// Clear flushes the memory tier and removes every persistent row. Counters are kept.
func (s *Service) Clear(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.memory.DeleteAll()
	if err := s.store.DeleteAll(ctx); err != nil {
		return s.writeFailed("clear", "*", err)
	}
	s.log.Info("issue cache cleared")
	return nil
}

func (s *Service) writeFailed(op, key string, err error) error {
	monitoring.RecordCacheWrite(monitoring.ResultFailure)
	s.log.Warn("cache write failed",
		zap.String("op", op),
		zap.String("key", key),
		zap.Error(err),
	)
	return &Error{Op: op, Key: key, Err: err}
}

// Stats returns the counters and the larger of the two tiers' live entry counts.
func (s *Service) Stats(ctx context.Context) Stats {
	if ctx == nil {
		ctx = context.Background()
	}

	size := int64(s.memory.Len())
	persisted, err := s.store.CountLive(ctx)
	if err != nil {
		s.log.Warn("count persistent entries", zap.Error(err))
	} else if persisted > size {
		size = persisted
	}

	return Stats{
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
		Sets:    s.sets.Load(),
		Deletes: s.deletes.Load(),
		Size:    size,
	}
}

// GetIssue looks up an issue by identity.
func (s *Service) GetIssue(ctx context.Context, owner, repo string, number int) (*issue.Issue, bool) {
	return s.Get(ctx, IssueKey(owner, repo, number))
}

// SetIssue caches an issue by identity with the default TTL.
func (s *Service) SetIssue(ctx context.Context, owner, repo string, number int, value *issue.Issue) error {
	return s.Set(ctx, IssueKey(owner, repo, number), value, s.defaultTTL)
}

// DeleteIssue removes an issue by identity.
func (s *Service) DeleteIssue(ctx context.Context, owner, repo string, number int) error {
	return s.Delete(ctx, IssueKey(owner, repo, number))
}

// PurgeExpired drops expired entries from both tiers and returns the number of persistent
// rows removed.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	s.memory.DeleteExpired()
	removed, err := s.store.PurgeExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge expired: %w", err)
	}
	return removed, nil
}

// Close stops the memory sweeper. The database handle is owned by the caller.
func (s *Service) Close() {
	s.memory.Close()
}
