package engine

import (
	"net"

	"github.com/miekg/dns"
)

// classification is the four-bucket split of one NS response used by the
// classification table in spec.md §4.1.3.
type classification struct {
	authorityDomains []string // NS targets for the queried suffix
	authorityIPs     []net.IP // glue A records for authorityDomains
	soaDomains       []string // SOA master-names, in response order
	cnameDomains     []string // CNAME targets, in response order
}

// classifyDelegation buckets resp's records for suffix part, writing any
// glue it finds into mc before returning.
func classifyDelegation(resp *dns.Msg, part string, mc *microCache) classification {
	var c classification

	seenAuth := map[string]bool{}
	for _, rr := range answerAndAuthority(resp) {
		ns, ok := rr.(*dns.NS)
		if !ok || canonical(ns.Hdr.Name) != canonical(part) {
			continue
		}

		name := canonical(ns.Ns)
		if seenAuth[name] {
			continue
		}
		seenAuth[name] = true
		c.authorityDomains = append(c.authorityDomains, name)
	}

	for _, rr := range resp.Answer {
		if cname, ok := rr.(*dns.CNAME); ok {
			c.cnameDomains = append(c.cnameDomains, canonical(cname.Target))
		}
	}

	for _, rr := range resp.Ns {
		if soa, ok := rr.(*dns.SOA); ok {
			c.soaDomains = append(c.soaDomains, canonical(soa.Ns))
		}
	}

	if len(c.authorityDomains) == 0 {
		return c
	}

	for _, rr := range resp.Extra {
		a, ok := rr.(*dns.A)
		if !ok {
			continue
		}
		name := canonical(a.Hdr.Name)
		if !seenAuth[name] {
			continue
		}
		c.authorityIPs = append(c.authorityIPs, a.A)
		mc.set(name, a.A)
	}

	return c
}

func answerAndAuthority(resp *dns.Msg) []dns.RR {
	all := make([]dns.RR, 0, len(resp.Answer)+len(resp.Ns))
	all = append(all, resp.Answer...)
	all = append(all, resp.Ns...)
	return all
}
