// Package transport implements the resolver's TCP-only DNS transport:
// explicit length-prefixed framing over a fresh connection per query, with
// a process-wide response cache keyed by (question, authority IP).
//
// This deliberately does not use dns.Client.ExchangeContext (what the
// classmarkets-go-dns-resolver teacher uses): spec.md requires TCP framing
// and deadline handling to be visible and owned by this resolver, not
// delegated to the library. github.com/miekg/dns is kept for what it's
// good at — Pack/Unpack of the wire format — and nothing else.
package transport

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"

	"github.com/mprimi/dnsiter/stats"
)

// dialTimeout bounds both connection setup and the full request/response
// round trip, per spec.md §4.2 ("a single connect+read+write deadline of
// 10 seconds").
const dialTimeout = 10 * time.Second

// Client is the engine's TransportClient: it sends one query per Send call,
// over TCP, framed with a 2-byte big-endian length prefix, caching the
// result by (question, authority IP) for the life of the process.
type Client struct {
	cache *responseCache
	stats *stats.Counter
}

// New returns a Client. statsCounter may be nil, in which case query/cache
// observability is simply not recorded.
func New(statsCounter *stats.Counter) *Client {
	return &Client{
		cache: newResponseCache(),
		stats: statsCounter,
	}
}

// Send issues req against authorityIP:53 over TCP, or returns the cached
// response from a prior identical (question, authorityIP) pair.
func (c *Client) Send(ctx context.Context, req *dns.Msg, authorityIP net.IP) (*dns.Msg, error) {
	q := req.Question[0]

	if resp, ok := c.cache.lookup(q, authorityIP); ok {
		c.recordCacheHit(q.Name)
		return resp, nil
	}

	resp, err := c.exchange(ctx, req, authorityIP)
	if err != nil {
		c.recordFailure(q.Name)
		return nil, err
	}

	c.recordQuery(q.Name)
	c.cache.store(q, authorityIP, resp)
	return resp, nil
}

func (c *Client) exchange(ctx context.Context, req *dns.Msg, authorityIP net.IP) (*dns.Msg, error) {
	addr := net.JoinHostPort(authorityIP.String(), "53")

	deadline := time.Now().Add(dialTimeout)
	dialer := net.Dialer{Deadline: deadline}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}

	packed, err := req.Pack()
	if err != nil {
		return nil, fmt.Errorf("pack query: %w", err)
	}
	if err := writeFramed(conn, packed); err != nil {
		return nil, fmt.Errorf("write %s: %w", addr, err)
	}

	raw, err := readFramed(conn)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", addr, err)
	}

	resp := new(dns.Msg)
	if err := resp.Unpack(raw); err != nil {
		return nil, fmt.Errorf("unpack response from %s: %w", addr, err)
	}

	logrus.WithFields(logrus.Fields{
		"question":     q(req),
		"authority_ip": authorityIP.String(),
		"rcode":        dns.RcodeToString[resp.Rcode],
	}).Debug("transport exchange")

	return resp, nil
}

func q(req *dns.Msg) string {
	if len(req.Question) == 0 {
		return ""
	}
	return req.Question[0].String()
}

// writeFramed writes msg prefixed with its 2-byte big-endian length, the
// framing DNS-over-TCP uses (RFC 1035 §4.2.2).
func writeFramed(conn net.Conn, msg []byte) error {
	if len(msg) > 0xFFFF {
		return fmt.Errorf("message too large for TCP framing: %d bytes", len(msg))
	}
	var prefix [2]byte
	binary.BigEndian.PutUint16(prefix[:], uint16(len(msg)))
	if _, err := conn.Write(prefix[:]); err != nil {
		return err
	}
	_, err := conn.Write(msg)
	return err
}

func readFramed(conn net.Conn) ([]byte, error) {
	var prefix [2]byte
	if _, err := io.ReadFull(conn, prefix[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint16(prefix[:])
	buf := make([]byte, size)
	if _, err := io.ReadFull(conn, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (c *Client) recordCacheHit(domain string) {
	if c.stats != nil {
		c.stats.RecordCacheHit(domain)
	}
}

func (c *Client) recordQuery(domain string) {
	if c.stats != nil {
		c.stats.RecordQuery(domain)
	}
}

func (c *Client) recordFailure(domain string) {
	if c.stats != nil {
		c.stats.RecordFailure(domain)
	}
}
