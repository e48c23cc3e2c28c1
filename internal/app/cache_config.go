package app

import (
	"github.com/charlesng35/issuerelay/internal/cache"
)

// ServiceOptions converts the cache configuration into cache.Service options. Zero
// values fall back to the cache package defaults.
func (c CacheConfig) ServiceOptions() []cache.Option {
	var opts []cache.Option
	if c.DefaultTTL > 0 {
		opts = append(opts, cache.WithDefaultTTL(c.DefaultTTL))
	}
	if c.CheckPeriod > 0 {
		opts = append(opts, cache.WithCheckPeriod(c.CheckPeriod))
	}
	return opts
}
