// Package engine implements the iterative DNS resolution walk: given a
// domain name, it discovers the authoritative server for that name by
// following delegations from the root down, and produces a single A-record
// answer.
package engine

import (
	"context"
	"net"

	"github.com/miekg/dns"

	"github.com/mprimi/dnsiter/stats"
)

// StaticLookup is the process-wide exact-match config consulted before any
// network activity. config.Static implements it.
type StaticLookup interface {
	Lookup(domain string) (net.IP, bool)
}

// TransportClient sends one DNS request to one authoritative server and
// returns its parsed response. transport.Client implements it.
type TransportClient interface {
	Send(ctx context.Context, req *dns.Msg, authorityIP net.IP) (*dns.Msg, error)
}

// Engine drives the iterative resolution walk described in SPEC_FULL.md
// §4.1. Concurrent calls to Resolve are safe.
type Engine struct {
	static    StaticLookup
	transport TransportClient
	selector  Selector
	stats     *stats.Counter
}

// New returns an Engine. static may be nil to disable the config
// short-circuit.
func New(static StaticLookup, transport TransportClient) *Engine {
	return &Engine{
		static:    static,
		transport: transport,
		selector:  newRandomSelector(),
	}
}

// WithSelector overrides the randomness source. Intended for tests; picks
// production code should leave the default math/rand-backed Selector.
func (e *Engine) WithSelector(s Selector) *Engine {
	e.selector = s
	return e
}

// WithStats attaches a stats.Counter that records config-hit observability.
// Transport-level query/cache-hit/failure counts are recorded by the
// transport.Client itself.
func (e *Engine) WithStats(c *stats.Counter) *Engine {
	e.stats = c
	return e
}
