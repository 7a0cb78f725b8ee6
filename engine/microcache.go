package engine

import "net"

// microCache is a scratch name→IP map populated from glue records observed
// while walking the suffix list for one top-level Resolve call. It is
// created fresh by Resolve, threaded through resolveAuthority and SOA
// master resolution for the duration of that one call, and discarded afterwards — it must
// never be shared across concurrent Resolve calls, since two resolutions
// observing different glue for the same name would otherwise corrupt each
// other's view.
//
// microCache is accessed only from the single goroutine running its owning
// Resolve call, so it needs no lock.
type microCache struct {
	m map[string]net.IP
}

func newMicroCache() *microCache {
	return &microCache{m: map[string]net.IP{}}
}

// set records name's glue IP. Entries are never evicted for the lifetime of
// the microCache.
func (c *microCache) set(name string, ip net.IP) {
	c.m[canonical(name)] = ip
}

func (c *microCache) get(name string) (net.IP, bool) {
	ip, ok := c.m[canonical(name)]
	return ip, ok
}
