package transport

import (
	"net"
	"sync"

	"github.com/miekg/dns"
)

// responseCache is the process-wide response cache from spec.md §4.2: keyed
// by (question, authority IP), never evicted. Unlike the classmarkets
// teacher's cache package, which tracks per-record TTLs and expires entries,
// this cache is intentionally unbounded for the lifetime of the process —
// see DESIGN.md for the Open Question this resolves.
type responseCache struct {
	mu      sync.Mutex
	entries map[string]*dns.Msg
}

func newResponseCache() *responseCache {
	return &responseCache{entries: map[string]*dns.Msg{}}
}

func cacheKey(q dns.Question, authorityIP net.IP) string {
	return q.String() + "@" + authorityIP.String()
}

func (c *responseCache) lookup(q dns.Question, authorityIP net.IP) (*dns.Msg, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	resp, ok := c.entries[cacheKey(q, authorityIP)]
	return resp, ok
}

func (c *responseCache) store(q dns.Question, authorityIP net.IP, resp *dns.Msg) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(q, authorityIP)] = resp
}
