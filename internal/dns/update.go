package dns

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/go-logr/logr"
)

// ReplaceAddress makes rr.domain resolve to addr alone: it reads the current
// records, deletes everything under the name if anything exists, then
// creates a single A record. It returns the new record identifier.
//
// The sequence is not atomic. If the create fails after a delete, the name
// is left without records and the caller has to retry. Concurrent calls for
// the same name are not coordinated; the last create wins.
func ReplaceAddress(ctx context.Context, p Provider, rr, domain string, addr netip.Addr) (string, error) {
	fullName := FullName(rr, domain)
	current, err := p.ListForHost(ctx, fullName, domain)
	if err != nil {
		return "", fmt.Errorf("listing records for %s: %w", fullName, err)
	}
	return replace(ctx, p, current, rr, domain, addr)
}

// EnsureAddress is ReplaceAddress that leaves the name alone when its only A
// record already carries addr. Other record types under the name are not
// considered. changed reports whether records were written.
func EnsureAddress(ctx context.Context, p Provider, rr, domain string, addr netip.Addr) (id string, changed bool, err error) {
	fullName := FullName(rr, domain)
	current, err := p.ListForHost(ctx, fullName, domain)
	if err != nil {
		return "", false, fmt.Errorf("listing records for %s: %w", fullName, err)
	}
	if rec, ok := singleAddress(current.Records); ok && rec.Value == addr.String() {
		return rec.ID, false, nil
	}
	id, err = replace(ctx, p, current, rr, domain, addr)
	return id, err == nil, err
}

// singleAddress returns the A record of records when there is exactly one.
func singleAddress(records []Record) (Record, bool) {
	var found []Record
	for _, r := range records {
		if r.Type == RecordTypeA {
			found = append(found, r)
		}
	}
	if len(found) != 1 {
		return Record{}, false
	}
	return found[0], true
}

func replace(ctx context.Context, p Provider, current *RecordList, rr, domain string, addr netip.Addr) (string, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("rr", rr, "domain", domain)
	fullName := FullName(rr, domain)

	if len(current.Records) > 0 {
		removed, err := p.DeleteForHost(ctx, rr, domain)
		if err != nil {
			return "", fmt.Errorf("deleting records for %s: %w", fullName, err)
		}
		log.Info("deleted existing records", "count", removed)
	}

	id, err := p.CreateAddress(ctx, rr, domain, addr)
	if err != nil {
		return "", fmt.Errorf("creating A record for %s: %w", fullName, err)
	}
	log.Info("created A record", "address", addr.String(), "recordId", id)
	return id, nil
}
