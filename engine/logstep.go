package engine

import (
	"net"

	"github.com/sirupsen/logrus"
)

// logStep emits the Debug-level "delegation step" event required by
// spec.md §6 ("Debug for each delegation step"). row is the classification
// table row (R1–R6) taken for this suffix.
func logStep(row, part string, authorityIP net.IP, c classification) {
	logrus.WithFields(logrus.Fields{
		"row":               row,
		"suffix":            part,
		"authority_ip":      authorityIP.String(),
		"authority_domains": len(c.authorityDomains),
		"authority_ips":     len(c.authorityIPs),
		"soa_domains":       len(c.soaDomains),
		"cname_domains":     len(c.cnameDomains),
	}).Debug("delegation step")
}
