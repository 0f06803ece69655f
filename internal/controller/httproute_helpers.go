package controller

import "strings"

// Contains reports whether hosts includes host, ignoring case and a
// trailing dot.
func Contains(hosts []string, host string) bool {
	host = normalizeHost(host)
	for _, h := range hosts {
		if normalizeHost(h) == host {
			return true
		}
	}
	return false
}

func normalizeHost(h string) string {
	return strings.ToLower(strings.TrimSuffix(h, "."))
}
