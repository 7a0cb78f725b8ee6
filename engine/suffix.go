package engine

import "strings"

// canonical normalizes a domain name for comparison and storage: trimmed,
// trailing dot removed, lower-cased. It is used both for the caller-supplied
// domain and for names read off the wire.
func canonical(name string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(name), "."))
}

// suffixList returns domain's labels from shortest to longest, excluding the
// empty root label. domain must already be canonical. For "a.b.example.com"
// it returns ["com", "example.com", "b.example.com", "a.b.example.com"].
func suffixList(domain string) []string {
	if domain == "" {
		return nil
	}

	labels := strings.Split(domain, ".")
	suffixes := make([]string, len(labels))
	for i := range labels {
		suffixes[i] = strings.Join(labels[len(labels)-1-i:], ".")
	}
	return suffixes
}
