package alidns

import (
	"errors"

	"github.com/yuriy-kovalchuk/alidns-manager/internal/alidns/rpc"
	"github.com/yuriy-kovalchuk/alidns-manager/internal/dns"
)

var (
	_ rpc.Validator = (*recordListResponse)(nil)
	_ rpc.Validator = (*deleteResponse)(nil)
	_ rpc.Validator = (*addResponse)(nil)
)

// recordListResponse is the payload of DescribeDomainRecords and
// DescribeSubDomainRecords. The records sit one level down, in
// DomainRecords.Record. Pointers mark fields that must be present.
type recordListResponse struct {
	RequestID     string `json:"RequestId"`
	TotalCount    *int   `json:"TotalCount"`
	PageNumber    *int   `json:"PageNumber"`
	PageSize      *int   `json:"PageSize"`
	DomainRecords *struct {
		Record []recordJSON `json:"Record"`
	} `json:"DomainRecords"`
}

func (r *recordListResponse) Validate() error {
	switch {
	case r.TotalCount == nil:
		return errors.New("missing TotalCount")
	case r.PageNumber == nil:
		return errors.New("missing PageNumber")
	case r.PageSize == nil:
		return errors.New("missing PageSize")
	case r.DomainRecords == nil:
		return errors.New("missing DomainRecords")
	case r.DomainRecords.Record == nil:
		return errors.New("missing DomainRecords.Record")
	}
	return nil
}

type recordJSON struct {
	RecordID   string         `json:"RecordId"`
	Type       dns.RecordType `json:"Type"`
	RR         string         `json:"RR"`
	DomainName string         `json:"DomainName"`
	Value      string         `json:"Value"`
	TTL        int64          `json:"TTL"`
	Weight     *int           `json:"Weight"`
	Priority   *int           `json:"Priority"`
	Status     string         `json:"Status"`
	Line       string         `json:"Line"`
	Locked     bool           `json:"Locked"`
}

// toRecordList must only be called after Validate succeeded.
func (r *recordListResponse) toRecordList() *dns.RecordList {
	records := make([]dns.Record, 0, len(r.DomainRecords.Record))
	for _, rec := range r.DomainRecords.Record {
		records = append(records, dns.Record{
			ID:         rec.RecordID,
			Type:       dns.ParseRecordType(string(rec.Type)),
			RR:         rec.RR,
			DomainName: rec.DomainName,
			Value:      rec.Value,
			TTL:        rec.TTL,
			Weight:     rec.Weight,
			Priority:   rec.Priority,
			Status:     rec.Status,
			Line:       rec.Line,
			Locked:     rec.Locked,
		})
	}
	return &dns.RecordList{
		TotalCount: *r.TotalCount,
		PageNumber: *r.PageNumber,
		PageSize:   *r.PageSize,
		Records:    records,
	}
}

// deleteResponse is the payload of DeleteSubDomainRecords.
type deleteResponse struct {
	RequestID  string `json:"RequestId"`
	RR         string `json:"RR"`
	TotalCount *count `json:"TotalCount"`
}

func (r *deleteResponse) Validate() error {
	if r.TotalCount == nil {
		return errors.New("missing TotalCount")
	}
	return nil
}

// addResponse is the payload of AddDomainRecord.
type addResponse struct {
	RequestID string `json:"RequestId"`
	RecordID  string `json:"RecordId"`
}

func (r *addResponse) Validate() error {
	if r.RecordID == "" {
		return errors.New("missing RecordId")
	}
	return nil
}
