// Package config loads the static domain=>IP overrides consulted before
// any delegation walk begins (spec.md §4.4). The file format is a handful
// of "domain=ip" lines; it's too small and bespoke for any of the pack's
// config libraries (viper, yaml.v3) to earn their keep over bufio.Scanner —
// see DESIGN.md.
package config

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"
)

// Static is the set of domain=>IP overrides loaded from a config file.
type Static struct {
	entries map[string]net.IP
}

// Load parses path, a file of "domain=ip" lines (blank lines and lines
// starting with "#" are skipped).
func Load(path string) (*Static, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	s := &Static{entries: map[string]net.IP{}}

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		domain, ipStr, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("%s:%d: expected domain=ip, got %q", path, lineNo, line)
		}

		ip := net.ParseIP(strings.TrimSpace(ipStr))
		if ip == nil || ip.To4() == nil {
			return nil, fmt.Errorf("%s:%d: not an IPv4 address: %q", path, lineNo, ipStr)
		}

		s.entries[normalize(domain)] = ip.To4()
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return s, nil
}

// Lookup implements engine.StaticLookup.
func (s *Static) Lookup(domain string) (net.IP, bool) {
	ip, ok := s.entries[normalize(domain)]
	return ip, ok
}

func normalize(domain string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
}
