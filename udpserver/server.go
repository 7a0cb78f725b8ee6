// Package udpserver is the UDP front-end that accepts DNS datagrams,
// answers each A question independently by forwarding it to the resolution
// engine, and drops the whole datagram if any question isn't A.
package udpserver

import (
	"context"
	"errors"
	"net"

	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/mprimi/dnsiter/engine"
)

// maxInFlight bounds concurrent handler goroutines, so a UDP datagram burst
// can't open unbounded outbound TCP connections against authoritative
// servers.
const maxInFlight = 256

// Resolver is the subset of *engine.Engine the server needs.
type Resolver interface {
	Resolve(ctx context.Context, domain string) (net.IP, error)
}

// Server is the UDP-facing front-end; it owns no resolution logic itself.
type Server struct {
	addr     string
	resolver Resolver
	sem      *semaphore.Weighted
}

func New(addr string, resolver Resolver) *Server {
	return &Server{
		addr:     addr,
		resolver: resolver,
		sem:      semaphore.NewWeighted(maxInFlight),
	}
}

// ListenAndServe blocks, handling datagrams until ctx is done or the socket
// fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	udpAddr, err := net.ResolveUDPAddr("udp", s.addr)
	if err != nil {
		return err
	}

	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := disableConnReset(conn); err != nil {
		logrus.WithError(err).Warn("disableConnReset failed")
	}

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, dns.MaxMsgSize)
	for {
		n, clientAddr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		payload := make([]byte, n)
		copy(payload, buf[:n])

		if !s.sem.TryAcquire(1) {
			logrus.Warn("dropping datagram: too many in-flight requests")
			continue
		}

		go func() {
			defer s.sem.Release(1)
			s.handle(ctx, conn, clientAddr, payload)
		}()
	}
}

func (s *Server) handle(ctx context.Context, conn *net.UDPConn, clientAddr *net.UDPAddr, payload []byte) {
	req := new(dns.Msg)
	if err := req.Unpack(payload); err != nil {
		logFatalDrop(logrus.Fields{"client": clientAddr.String()}, "unpack request: "+err.Error())
		return
	}

	resp := new(dns.Msg)
	resp.SetReply(req)

	// Each question is answered independently (spec.md §4.3): a non-A
	// question aborts the whole datagram into the fatal drop path, but a
	// ResolveFailed for one A question only REFUSEs that question and the
	// loop continues with the rest.
	for _, question := range req.Question {
		if question.Qtype != dns.TypeA {
			logFatalDrop(logrus.Fields{
				"client":   clientAddr.String(),
				"question": question.String(),
			}, "unsupported question")
			return
		}

		domain := question.Name

		ip, err := s.resolver.Resolve(ctx, domain)
		if err != nil {
			if errors.Is(err, engine.ErrResolveFailed) {
				resp.Rcode = dns.RcodeRefused
				continue
			}
			logFatalDrop(logrus.Fields{
				"client": clientAddr.String(),
				"domain": domain,
			}, "resolve: "+err.Error())
			return
		}

		resp.Answer = append(resp.Answer, &dns.A{
			Hdr: dns.RR_Header{Name: domain, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 0},
			A:   ip,
		})
	}

	packed, err := resp.Pack()
	if err != nil {
		logFatalDrop(logrus.Fields{"client": clientAddr.String()}, "pack response: "+err.Error())
		return
	}

	if _, err := conn.WriteToUDP(packed, clientAddr); err != nil {
		logrus.WithError(err).WithField("client", clientAddr.String()).Warn("write response")
	}
}

// logFatalDrop logs at Fatal severity without exiting the process: spec.md
// §7's "fatal log path" means the datagram is dropped, not that dnsiter
// stops serving other clients. logrus.Fatal itself calls os.Exit, so this
// bypasses it and logs at the Fatal level directly.
func logFatalDrop(fields logrus.Fields, msg string) {
	logrus.WithFields(fields).Log(logrus.FatalLevel, msg)
}
