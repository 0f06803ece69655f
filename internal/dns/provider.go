package dns

import (
	"context"
	"net/netip"
)

// Provider is the record store the updater and front-ends work against.
type Provider interface {
	// ListAll returns the first page of records for domain.
	ListAll(ctx context.Context, domain string) (*RecordList, error)
	// ListForHost returns the records whose full name is fullName.
	ListForHost(ctx context.Context, fullName, domain string) (*RecordList, error)
	// DeleteForHost removes every record named rr, whatever its type,
	// and returns how many were removed.
	DeleteForHost(ctx context.Context, rr, domain string) (int, error)
	// CreateAddress adds an A record and returns its identifier.
	CreateAddress(ctx context.Context, rr, domain string, addr netip.Addr) (string, error)
}
