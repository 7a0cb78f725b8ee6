package engine

import (
	"context"
	"net"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedSelector always picks the same index (mod n), making tests
// deterministic regardless of which Selector.Pick call site is exercised.
type fixedSelector struct{ idx int }

func (f fixedSelector) Pick(n int) int { return f.idx % n }

// scriptedTransport answers NS/A queries from a map keyed by
// "qtype qname @authorityIP", recording every Send call it receives.
type scriptedTransport struct {
	responses map[string]*dns.Msg
	sends     []string
}

func newScriptedTransport() *scriptedTransport {
	return &scriptedTransport{responses: map[string]*dns.Msg{}}
}

func transportKey(qtype uint16, name string, authorityIP net.IP) string {
	return dns.TypeToString[qtype] + " " + canonical(name) + " @" + authorityIP.String()
}

func (t *scriptedTransport) on(qtype uint16, name string, authorityIP net.IP, resp *dns.Msg) {
	t.responses[transportKey(qtype, name, authorityIP)] = resp
}

func (t *scriptedTransport) Send(_ context.Context, req *dns.Msg, authorityIP net.IP) (*dns.Msg, error) {
	q := req.Question[0]
	key := transportKey(q.Qtype, q.Name, authorityIP)
	t.sends = append(t.sends, key)

	resp, ok := t.responses[key]
	if !ok {
		panic("scriptedTransport: no scripted response for " + key)
	}
	return resp, nil
}

type mapStatic map[string]net.IP

func (m mapStatic) Lookup(domain string) (net.IP, bool) {
	ip, ok := m[canonical(domain)]
	return ip, ok
}

func nsResponse(owner string, nsTargets []string, glue map[string]net.IP) *dns.Msg {
	m := new(dns.Msg)
	for _, target := range nsTargets {
		m.Ns = append(m.Ns, &dns.NS{
			Hdr: dns.RR_Header{Name: dns.Fqdn(owner), Rrtype: dns.TypeNS, Class: dns.ClassINET},
			Ns:  dns.Fqdn(target),
		})
	}
	for name, ip := range glue {
		m.Extra = append(m.Extra, &dns.A{
			Hdr: dns.RR_Header{Name: dns.Fqdn(name), Rrtype: dns.TypeA, Class: dns.ClassINET},
			A:   ip,
		})
	}
	return m
}

func aResponse(owner string, ips ...net.IP) *dns.Msg {
	m := new(dns.Msg)
	for _, ip := range ips {
		m.Answer = append(m.Answer, &dns.A{
			Hdr: dns.RR_Header{Name: dns.Fqdn(owner), Rrtype: dns.TypeA, Class: dns.ClassINET},
			A:   ip,
		})
	}
	return m
}

// TestResolve_ConfigShortCircuit covers S1 and testable property 1: a
// StaticConfig hit returns immediately with zero transport sends.
func TestResolve_ConfigShortCircuit(t *testing.T) {
	tr := newScriptedTransport()
	static := mapStatic{"foo.test": net.ParseIP("10.0.0.1")}
	e := New(static, tr).WithSelector(fixedSelector{0})

	ip, err := e.Resolve(context.Background(), "foo.test")

	require.NoError(t, err)
	assert.Equal(t, net.ParseIP("10.0.0.1"), ip)
	assert.Empty(t, tr.sends)
}

// TestResolve_TwoLevelDelegationWithGlue covers S2: a two-level delegation
// resolved purely via glue, and testable property 2 (label order).
func TestResolve_TwoLevelDelegationWithGlue(t *testing.T) {
	root := RootServers[0]
	tld := net.ParseIP("192.0.2.1")
	authoritative := net.ParseIP("192.0.2.2")
	answer := net.ParseIP("93.184.216.34")

	tr := newScriptedTransport()
	tr.on(dns.TypeNS, "com", root, nsResponse("com", []string{"a.gtld"}, map[string]net.IP{"a.gtld": tld}))
	tr.on(dns.TypeNS, "example.com", tld, nsResponse("example.com", []string{"ns.example"}, map[string]net.IP{"ns.example": authoritative}))
	tr.on(dns.TypeA, "example.com", authoritative, aResponse("example.com", answer))

	e := New(nil, tr).WithSelector(fixedSelector{0})

	ip, err := e.Resolve(context.Background(), "example.com")

	require.NoError(t, err)
	assert.Equal(t, answer, ip)
	assert.Equal(t, []string{
		transportKey(dns.TypeNS, "com", root),
		transportKey(dns.TypeNS, "example.com", tld),
		transportKey(dns.TypeA, "example.com", authoritative),
	}, tr.sends)
}

// TestResolve_CNAMEWithoutSOA covers S3 (R3): no SOA, the engine
// recursively resolves the CNAME target from the root.
func TestResolve_CNAMEWithoutSOA(t *testing.T) {
	root := RootServers[0]
	netIP := net.ParseIP("192.0.2.10")
	answer := net.ParseIP("198.51.100.9")

	tr := newScriptedTransport()
	cnameResp := new(dns.Msg)
	cnameResp.Answer = append(cnameResp.Answer, &dns.CNAME{
		Hdr:    dns.RR_Header{Name: "example.com.", Rrtype: dns.TypeCNAME, Class: dns.ClassINET},
		Target: "target.net.",
	})
	tr.on(dns.TypeNS, "com", root, cnameResp)
	tr.on(dns.TypeNS, "net", root, nsResponse("net", []string{"ns.net"}, map[string]net.IP{"ns.net": netIP}))
	tr.on(dns.TypeNS, "target.net", netIP, nsResponse("target.net", []string{"ns.target"}, map[string]net.IP{"ns.target": netIP}))
	tr.on(dns.TypeA, "target.net", netIP, aResponse("target.net", answer))

	e := New(nil, tr).WithSelector(fixedSelector{0})

	ip, err := e.Resolve(context.Background(), "example.com")

	require.NoError(t, err)
	assert.Equal(t, answer, ip)
}

// TestResolve_CNAMEWithSOA covers S4 (R2): with an SOA present, the engine
// must resolve the CNAME target against the SOA master's IP directly
// (learned from the MicroCache), not re-resolve the SOA name. The SOA
// master's IP is glue for a "com" NS target, so it enters the MicroCache at
// the first step (testable property 3).
func TestResolve_CNAMEWithSOA(t *testing.T) {
	root := RootServers[0]
	tld := net.ParseIP("192.0.2.1")
	soaMasterIP := net.ParseIP("192.0.2.2")
	answer := net.ParseIP("198.51.100.9")

	tr := newScriptedTransport()
	comResp := nsResponse("com", []string{"a.gtld", "ns.example.com"}, nil)
	comResp.Extra = append(comResp.Extra,
		&dns.A{
			Hdr: dns.RR_Header{Name: "a.gtld.", Rrtype: dns.TypeA, Class: dns.ClassINET},
			A:   tld,
		},
		&dns.A{
			Hdr: dns.RR_Header{Name: "ns.example.com.", Rrtype: dns.TypeA, Class: dns.ClassINET},
			A:   soaMasterIP,
		},
	)
	tr.on(dns.TypeNS, "com", root, comResp)

	resp := nsResponse("example.com", nil, nil) // no NS glue at this step
	resp.Answer = append(resp.Answer, &dns.CNAME{
		Hdr:    dns.RR_Header{Name: "example.com.", Rrtype: dns.TypeCNAME, Class: dns.ClassINET},
		Target: "target.net.",
	})
	resp.Ns = append(resp.Ns, &dns.SOA{
		Hdr: dns.RR_Header{Name: "example.com.", Rrtype: dns.TypeSOA, Class: dns.ClassINET},
		Ns:  "ns.example.com.",
	})
	tr.on(dns.TypeNS, "example.com", tld, resp)

	tr.on(dns.TypeA, "target.net", soaMasterIP, aResponse("target.net", answer))

	e := New(nil, tr).WithSelector(fixedSelector{0})

	ip, err := e.Resolve(context.Background(), "example.com")

	require.NoError(t, err)
	assert.Equal(t, answer, ip)
	assert.Equal(t, []string{
		transportKey(dns.TypeNS, "com", root),
		transportKey(dns.TypeNS, "example.com", tld),
		transportKey(dns.TypeA, "target.net", soaMasterIP),
	}, tr.sends, "must not re-resolve ns.example.com separately")
}

// TestResolve_AuthorityByNameOnly covers S5 (R5): NS with no glue, no SOA,
// no CNAME forces a nested top-level Resolve of the NS target name. The NS
// target ("ns.example.com") lives in an entirely different zone than the
// domain being resolved ("foo.net"), so the nested Resolve walks its own,
// non-overlapping suffix chain down to an A answer, which then becomes the
// authority IP for the rest of the original walk.
func TestResolve_AuthorityByNameOnly(t *testing.T) {
	root := RootServers[0]
	netIP := net.ParseIP("192.0.2.50")
	comIP := net.ParseIP("192.0.2.60")
	exampleIP := net.ParseIP("192.0.2.61")
	subIP := net.ParseIP("192.0.2.62")
	nsTargetIP := net.ParseIP("192.0.2.70")
	answer := net.ParseIP("203.0.113.7")

	tr := newScriptedTransport()
	tr.on(dns.TypeNS, "net", root, nsResponse("net", []string{"ns.net"}, map[string]net.IP{"ns.net": netIP}))
	tr.on(dns.TypeNS, "foo.net", netIP, nsResponse("foo.net", []string{"ns.example.com"}, nil)) // no glue: R5

	tr.on(dns.TypeNS, "com", root, nsResponse("com", []string{"a.gtld"}, map[string]net.IP{"a.gtld": comIP}))
	tr.on(dns.TypeNS, "example.com", comIP, nsResponse("example.com", []string{"ns.example"}, map[string]net.IP{"ns.example": exampleIP}))
	tr.on(dns.TypeNS, "ns.example.com", exampleIP, nsResponse("ns.example.com", []string{"ns.sub"}, map[string]net.IP{"ns.sub": subIP}))
	tr.on(dns.TypeA, "ns.example.com", subIP, aResponse("ns.example.com", nsTargetIP))

	tr.on(dns.TypeA, "foo.net", nsTargetIP, aResponse("foo.net", answer))

	e := New(nil, tr).WithSelector(fixedSelector{0})

	ip, err := e.Resolve(context.Background(), "foo.net")

	require.NoError(t, err)
	assert.Equal(t, answer, ip)
}

// TestResolve_BudgetOverrun covers S6 and testable property 4: once the
// 101st transport send would be required within one top-level Resolve, the
// call fails with Overrun. Every NS query answers with a CNAME back into the
// same zone and no SOA, so R3 keeps re-entering resolveAuthority with the
// same shared budget (R3 is a within-call recursion, unlike R4/R5/R2's SOA
// and authority-name resolution, which spawn a fresh top-level Resolve and
// therefore a fresh budget). The budget is checked before the transport is
// invoked, so the 101st attempt never reaches loopingTransport: exactly
// maxSends real sends happen before Overrun fires.
func TestResolve_BudgetOverrun(t *testing.T) {
	tr := &loopingTransport{}
	e := New(nil, tr).WithSelector(fixedSelector{0})

	_, err := e.Resolve(context.Background(), "start.example")

	require.ErrorIs(t, err, ErrOverrun)
	assert.Equal(t, maxSends, tr.sendCount)
}

type loopingTransport struct {
	sendCount int
}

func (t *loopingTransport) Send(_ context.Context, req *dns.Msg, _ net.IP) (*dns.Msg, error) {
	t.sendCount++

	resp := new(dns.Msg)
	resp.Answer = append(resp.Answer, &dns.CNAME{
		Hdr:    dns.RR_Header{Name: req.Question[0].Name, Rrtype: dns.TypeCNAME, Class: dns.ClassINET},
		Target: "loop.test.",
	})
	return resp, nil
}

func TestSuffixList(t *testing.T) {
	assert.Equal(t,
		[]string{"com", "example.com", "b.example.com", "a.b.example.com"},
		suffixList("a.b.example.com"))
	assert.Equal(t, []string{"com"}, suffixList("com"))
	assert.Nil(t, suffixList(""))
}

func TestCanonical(t *testing.T) {
	assert.Equal(t, "example.com", canonical("Example.Com."))
	assert.Equal(t, "example.com", canonical("  example.com  "))
}

func TestMicroCache(t *testing.T) {
	mc := newMicroCache()
	_, ok := mc.get("ns.example.com")
	assert.False(t, ok)

	mc.set("NS.Example.Com.", net.ParseIP("192.0.2.9"))
	ip, ok := mc.get("ns.example.com")
	require.True(t, ok)
	assert.Equal(t, net.ParseIP("192.0.2.9"), ip)
}
