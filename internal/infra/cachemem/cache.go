// Package cachemem caches well-formed risk oracle answers in process memory.
package cachemem

import (
	"time"

	"assetguard/internal/domain"
	"assetguard/internal/usecase"

	gocache "github.com/patrickmn/go-cache"
)

var _ usecase.RiskCache = (*Cache)(nil)

type Cache struct {
	c *gocache.Cache
}

// New returns a cache whose entries expire after ttl. A non-positive ttl disables expiry.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		return &Cache{c: gocache.New(gocache.NoExpiration, 0)}
	}
	cleanup := 2 * ttl
	if cleanup < time.Second {
		cleanup = time.Second
	}
	return &Cache{c: gocache.New(ttl, cleanup)}
}

func (c *Cache) Get(key string) (domain.RiskSignal, bool) {
	if c == nil {
		return domain.RiskSignal{}, false
	}
	v, ok := c.c.Get(key)
	if !ok {
		return domain.RiskSignal{}, false
	}
	signal, ok := v.(domain.RiskSignal)
	return signal, ok
}

func (c *Cache) Set(key string, signal domain.RiskSignal) {
	if c == nil {
		return
	}
	signal.ThreatTypes = append([]string(nil), signal.ThreatTypes...)
	c.c.SetDefault(key, signal)
}

func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.c.ItemCount()
}
