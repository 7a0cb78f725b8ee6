// Package stats tracks per-registered-domain resolution counters and logs
// periodic snapshots. It rehomes golang.org/x/net/publicsuffix from the
// classmarkets-go-dns-resolver teacher's cache policy (which used it to
// decide TLD-aware cache TTLs, a concern this resolver's unbounded cache
// doesn't have) into an observability role instead.
package stats

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"
)

type entry struct {
	queries    int64
	cacheHits  int64
	failures   int64
	configHits int64
}

// Counter accumulates resolution activity keyed by registered domain
// (eTLD+1), e.g. "example.com" for "www.example.com".
type Counter struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func New() *Counter {
	return &Counter{entries: map[string]*entry{}}
}

func (c *Counter) RecordQuery(domain string)     { c.bump(domain, func(e *entry) { e.queries++ }) }
func (c *Counter) RecordCacheHit(domain string)  { c.bump(domain, func(e *entry) { e.cacheHits++ }) }
func (c *Counter) RecordFailure(domain string)   { c.bump(domain, func(e *entry) { e.failures++ }) }
func (c *Counter) RecordConfigHit(domain string) { c.bump(domain, func(e *entry) { e.configHits++ }) }

func (c *Counter) bump(domain string, f func(*entry)) {
	key := registeredDomain(domain)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	f(e)
}

// registeredDomain reduces domain to its eTLD+1, falling back to the
// trimmed input if publicsuffix can't classify it (e.g. a bare TLD query).
func registeredDomain(domain string) string {
	name := strings.TrimSuffix(strings.ToLower(domain), ".")
	if name == "" {
		return name
	}
	if reg, err := publicsuffix.EffectiveTLDPlusOne(name); err == nil {
		return reg
	}
	return name
}

// StartPeriodicLogging spawns a goroutine that logs one snapshot line per
// registered domain every interval, until ctx is done.
func (c *Counter) StartPeriodicLogging(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.logSnapshot()
			}
		}
	}()
}

func (c *Counter) logSnapshot() {
	c.mu.Lock()
	snapshot := make(map[string]entry, len(c.entries))
	for k, e := range c.entries {
		snapshot[k] = *e
	}
	c.mu.Unlock()

	for domain, e := range snapshot {
		logrus.WithFields(logrus.Fields{
			"domain":      domain,
			"queries":     e.queries,
			"cache_hits":  e.cacheHits,
			"failures":    e.failures,
			"config_hits": e.configHits,
		}).Info("resolution stats")
	}
}
