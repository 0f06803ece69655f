package dns

import (
	"strings"
)

// Apex is the RR label for the zone apex.
const Apex = "@"

// RelativeName returns the RR of fqdn within domain. ok is false when fqdn
// is not inside domain.
// e.g. ("app.example.com", "example.com") → ("app", true)
// e.g. ("example.com", "example.com") → ("@", true)
func RelativeName(fqdn, domain string) (rr string, ok bool) {
	fqdn = strings.ToLower(strings.TrimSuffix(fqdn, "."))
	domain = strings.ToLower(strings.TrimSuffix(domain, "."))
	if fqdn == domain {
		return Apex, true
	}
	rr, ok = strings.CutSuffix(fqdn, "."+domain)
	if !ok || rr == "" {
		return "", false
	}
	return rr, true
}

// FullName joins rr and domain; the apex maps to domain itself.
func FullName(rr, domain string) string {
	if rr == Apex || rr == "" {
		return domain
	}
	return rr + "." + domain
}
