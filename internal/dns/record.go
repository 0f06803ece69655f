package dns

// RecordType is a DNS record type. Values the provider returns that are not
// listed here decode to RecordTypeUnknown.
type RecordType string

const (
	RecordTypeA       RecordType = "A"
	RecordTypeAAAA    RecordType = "AAAA"
	RecordTypeCNAME   RecordType = "CNAME"
	RecordTypeTXT     RecordType = "TXT"
	RecordTypeNS      RecordType = "NS"
	RecordTypeMX      RecordType = "MX"
	RecordTypeSRV     RecordType = "SRV"
	RecordTypeCAA     RecordType = "CAA"
	RecordTypeUnknown RecordType = "Unknown"
)

// ParseRecordType maps s to a known type, or RecordTypeUnknown.
func ParseRecordType(s string) RecordType {
	switch t := RecordType(s); t {
	case RecordTypeA, RecordTypeAAAA, RecordTypeCNAME, RecordTypeTXT,
		RecordTypeNS, RecordTypeMX, RecordTypeSRV, RecordTypeCAA:
		return t
	}
	return RecordTypeUnknown
}

// UnmarshalText never fails; unrecognized types become RecordTypeUnknown.
func (t *RecordType) UnmarshalText(b []byte) error {
	*t = ParseRecordType(string(b))
	return nil
}

// Record is a snapshot of one remote resource record.
type Record struct {
	ID         string     `json:"id"`
	Type       RecordType `json:"type"`
	RR         string     `json:"rr"`
	DomainName string     `json:"domain_name"`
	Value      string     `json:"value"`
	TTL        int64      `json:"ttl"` // seconds
	Weight     *int       `json:"weight,omitempty"`
	Priority   *int       `json:"priority,omitempty"`
	Status     string     `json:"status"`
	Line       string     `json:"line"`
	Locked     bool       `json:"locked"`
}

// RecordList is one page of records.
type RecordList struct {
	TotalCount int      `json:"total_count"`
	PageNumber int      `json:"page_number"`
	PageSize   int      `json:"page_size"`
	Records    []Record `json:"records"`
}
