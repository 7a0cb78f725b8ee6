package engine

import (
	"context"
	"fmt"
	"net"

	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
)

// recordTypeOfInterest is the record type ResolveFinalA answers with. It is
// always A in this build, since the UDP front-end only admits A questions
// (udpserver rejects everything else before the engine is ever invoked).
//
// ResolveFinalA filters the answer section by this type rather than by a
// hardcoded dns.TypeA check. If this engine is ever extended to admit other
// question types without updating that filter, it will silently keep
// matching only recordTypeOfInterest — documented here as a known
// constraint, not something to "fix" by special-casing A.
const recordTypeOfInterest = dns.TypeA

// Resolve returns the A-record IP for domain, discovering the authoritative
// server itself by walking delegations from the root. Resolve resets the
// work budget and creates a fresh glue scratch cache for this call; neither
// is shared with any other call, concurrent or not.
func (e *Engine) Resolve(ctx context.Context, domain string) (net.IP, error) {
	norm := canonical(domain)

	if e.static != nil {
		if ip, ok := e.static.Lookup(norm); ok {
			if e.stats != nil {
				e.stats.RecordConfigHit(norm)
			}
			logrus.WithField("domain", norm).Info("config hit")
			return ip, nil
		}
	}

	mc := newMicroCache()
	b := &budget{}

	authorityIP, answer, err := e.resolveAuthority(ctx, norm, mc, b)
	if err != nil {
		logrus.WithError(err).WithField("domain", norm).Warn("resolve failed")
		return nil, err
	}
	if answer != nil {
		logrus.WithField("domain", norm).Info("resolve complete")
		return answer, nil
	}

	ip, err := e.resolveFinalA(ctx, norm, authorityIP, b)
	if err != nil {
		logrus.WithError(err).WithField("domain", norm).Warn("resolve failed")
		return nil, err
	}

	logrus.WithField("domain", norm).Info("resolve complete")
	return ip, nil
}

// resolveAuthority walks domain's suffix list, applying the classification
// table (spec.md §4.1.3) at each step. It returns the authority IP reached
// once every suffix has been consumed, or — if R2/R3 terminates the walk
// early — the authority IP used for the final A-query together with the
// answer it produced.
func (e *Engine) resolveAuthority(ctx context.Context, domain string, mc *microCache, b *budget) (net.IP, net.IP, error) {
	current := e.randomRootServer()

	for _, part := range suffixList(domain) {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if err := b.send(); err != nil {
			return nil, nil, err
		}

		req := new(dns.Msg)
		req.SetQuestion(dns.Fqdn(part), dns.TypeNS)

		resp, err := e.transport.Send(ctx, req, current)
		if err != nil {
			return nil, nil, err
		}

		c := classifyDelegation(resp, part, mc)

		switch {
		case len(c.authorityIPs) > 0: // R1
			logStep("R1", part, current, c)
			current = c.authorityIPs[e.selector.Pick(len(c.authorityIPs))]

		case len(c.cnameDomains) > 0 && len(c.soaDomains) > 0: // R2
			logStep("R2", part, current, c)
			target := c.cnameDomains[e.selector.Pick(len(c.cnameDomains))]

			s, err := e.resolveSOAMaster(ctx, c.soaDomains[0], part, current, mc)
			if err != nil {
				return nil, nil, err
			}
			ip, err := e.resolveFinalA(ctx, target, s, b)
			if err != nil {
				return nil, nil, err
			}
			return s, ip, nil

		case len(c.cnameDomains) > 0: // R3
			logStep("R3", part, current, c)
			target := c.cnameDomains[e.selector.Pick(len(c.cnameDomains))]

			authIP, answer, err := e.resolveAuthority(ctx, target, mc, b)
			if err != nil {
				return nil, nil, err
			}
			if answer != nil {
				return authIP, answer, nil
			}
			ip, err := e.resolveFinalA(ctx, target, authIP, b)
			if err != nil {
				return nil, nil, err
			}
			return authIP, ip, nil

		case len(c.soaDomains) > 0: // R4
			logStep("R4", part, current, c)
			s, err := e.resolveSOAMaster(ctx, c.soaDomains[0], part, current, mc)
			if err != nil {
				return nil, nil, err
			}
			current = s

		case len(c.authorityDomains) > 0: // R5
			logStep("R5", part, current, c)
			name := c.authorityDomains[e.selector.Pick(len(c.authorityDomains))]

			ip, err := e.Resolve(ctx, name)
			if err != nil {
				return nil, nil, err
			}
			current = ip

		default: // R6
			logStep("R6", part, current, c)
			return nil, nil, fmt.Errorf("%w: no NS, SOA or CNAME records for %s", ErrResolveFailed, part)
		}
	}

	return current, nil, nil
}

// resolveSOAMaster resolves an SOA master-name to an IP, per spec.md §4.1.4.
func (e *Engine) resolveSOAMaster(ctx context.Context, soaName, part string, current net.IP, mc *microCache) (net.IP, error) {
	if ip, ok := mc.get(soaName); ok {
		return ip, nil
	}
	if canonical(soaName) == canonical(part) {
		return current, nil
	}
	return e.Resolve(ctx, soaName)
}

// resolveFinalA issues the terminal A query against authorityIP, per
// spec.md §4.1.5.
func (e *Engine) resolveFinalA(ctx context.Context, domain string, authorityIP net.IP, b *budget) (net.IP, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := b.send(); err != nil {
		return nil, err
	}

	req := new(dns.Msg)
	req.SetQuestion(dns.Fqdn(domain), recordTypeOfInterest)

	resp, err := e.transport.Send(ctx, req, authorityIP)
	if err != nil {
		return nil, err
	}

	var ips []net.IP
	for _, rr := range resp.Answer {
		if rr.Header().Rrtype != recordTypeOfInterest {
			continue
		}
		if a, ok := rr.(*dns.A); ok {
			ips = append(ips, a.A)
		}
	}
	if len(ips) > 0 {
		return ips[e.selector.Pick(len(ips))], nil
	}

	for _, rr := range resp.Ns {
		if _, ok := rr.(*dns.SOA); ok {
			return authorityIP, nil
		}
	}

	return nil, fmt.Errorf("%w: no A records for %s", ErrResolveFailed, domain)
}
