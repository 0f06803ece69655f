package config

import (
	"fmt"
	"net/netip"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"
)

// DomainMap maps host names, or "*." wildcards, to the IPv4 address their
// A record should carry.
type DomainMap struct {
	entries map[string]netip.Addr
}

// LoadDomainMap reads a YAML file mapping host names to IPv4 addresses.
func LoadDomainMap(path string) (*DomainMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading domain map file: %w", err)
	}

	raw := make(map[string]string)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing domain map file: %w", err)
	}
	return NewDomainMap(raw)
}

// NewDomainMap validates raw host to address entries.
func NewDomainMap(raw map[string]string) (*DomainMap, error) {
	entries := make(map[string]netip.Addr, len(raw))
	for host, v := range raw {
		addr, err := netip.ParseAddr(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("domain map entry %q: %w", host, err)
		}
		if !addr.Is4() {
			return nil, fmt.Errorf("domain map entry %q: %s is not an IPv4 address", host, addr)
		}
		entries[strings.ToLower(strings.TrimSuffix(host, "."))] = addr
	}
	return &DomainMap{entries: entries}, nil
}

// LookupIP finds the address for a hostname.
// It walks up the domain labels checking for exact matches and wildcard entries.
// Exact matches take priority over wildcards. For example, given:
//
//	"*.mydomain.com":    "10.0.0.1"
//	"app2.mydomain.com": "10.0.0.2"
//
// "app1.mydomain.com" returns 10.0.0.1 (wildcard match)
// "app2.mydomain.com" returns 10.0.0.2 (exact match wins)
func (dm *DomainMap) LookupIP(hostname string) (netip.Addr, bool) {
	hostname = strings.ToLower(strings.TrimSuffix(hostname, "."))
	for h := hostname; h != ""; {
		if ip, ok := dm.entries[h]; ok {
			return ip, true
		}
		idx := strings.Index(h, ".")
		if idx < 0 {
			break
		}
		if ip, ok := dm.entries["*."+h[idx+1:]]; ok {
			return ip, true
		}
		h = h[idx+1:]
	}
	return netip.Addr{}, false
}

// Len returns the number of entries.
func (dm *DomainMap) Len() int {
	return len(dm.entries)
}
