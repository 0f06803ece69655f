// Package alidnstest provides an in-memory Alibaba Cloud DNS API for tests.
package alidnstest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/yuriy-kovalchuk/alidns-manager/internal/alidns/rpc"
	"github.com/yuriy-kovalchuk/alidns-manager/internal/dns"
)

const (
	AccessKeyID     = "test-key-id"
	AccessKeySecret = "test-secret"
)

// Record is a stored record in provider wire naming.
type Record struct {
	RecordID   string `json:"RecordId"`
	Type       string `json:"Type"`
	RR         string `json:"RR"`
	DomainName string `json:"DomainName"`
	Value      string `json:"Value"`
	TTL        int    `json:"TTL"`
	Status     string `json:"Status"`
	Line       string `json:"Line"`
	Locked     bool   `json:"Locked"`
}

// Server is an http.Handler that verifies request signatures and keeps
// records in memory. Actions lists the actions received, in order.
type Server struct {
	mu     sync.Mutex
	store  map[string]Record
	nextID int
	calls  []string

	// Fail makes the named action answer with a provider error and the
	// given HTTP status.
	Fail map[string]int
	// Raw makes the named action answer with the given body verbatim.
	Raw map[string]string
}

// New returns an empty fake.
func New() *Server {
	return &Server{store: map[string]Record{}, Fail: map[string]int{}, Raw: map[string]string{}}
}

// Add stores a record and returns its id.
func (s *Server) Add(rec Record) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(rec)
}

func (s *Server) addLocked(rec Record) string {
	s.nextID++
	rec.RecordID = fmt.Sprintf("%d", 1000+s.nextID)
	if rec.TTL == 0 {
		rec.TTL = 600
	}
	if rec.Status == "" {
		rec.Status = "ENABLE"
	}
	if rec.Line == "" {
		rec.Line = "default"
	}
	s.store[rec.RecordID] = rec
	return rec.RecordID
}

// Records returns a copy of the stored records sorted by id.
func (s *Server) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, 0, len(s.store))
	for _, r := range s.store {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordID < out[j].RecordID })
	return out
}

// Actions returns the actions received so far, in order.
func (s *Server) Actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	params, err := verify(r.URL.RawQuery)
	if err != nil {
		writeError(w, http.StatusBadRequest, "SignatureDoesNotMatch", err.Error())
		return
	}
	q := url.Values{}
	for _, p := range params {
		q.Add(p.Key, p.Value)
	}
	action := q.Get("Action")

	s.mu.Lock()
	s.calls = append(s.calls, action)
	status, fail := s.Fail[action]
	raw, isRaw := s.Raw[action]
	s.mu.Unlock()

	switch {
	case fail:
		writeError(w, status, "InternalError", "injected failure for "+action)
		return
	case isRaw:
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(raw))
		return
	}

	switch action {
	case "DescribeDomainRecords":
		s.handleList(w, q.Get("DomainName"), func(Record) bool { return true })
	case "DescribeSubDomainRecords":
		full := strings.ToLower(q.Get("SubDomain"))
		s.handleList(w, q.Get("DomainName"), func(rec Record) bool {
			return dns.FullName(rec.RR, rec.DomainName) == full
		})
	case "DeleteSubDomainRecords":
		s.handleDelete(w, q.Get("RR"), q.Get("DomainName"))
	case "AddDomainRecord":
		s.handleAdd(w, q)
	default:
		writeError(w, http.StatusNotFound, "InvalidAction.NotFound", "unknown action "+action)
	}
}

func (s *Server) handleList(w http.ResponseWriter, domain string, match func(Record) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := []Record{}
	for _, rec := range s.store {
		if rec.DomainName == domain && match(rec) {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].RecordID < records[j].RecordID })
	writeJSON(w, map[string]any{
		"RequestId":     "req-list",
		"TotalCount":    len(records),
		"PageNumber":    1,
		"PageSize":      500,
		"DomainRecords": map[string]any{"Record": records},
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, rr, domain string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, rec := range s.store {
		if rec.DomainName == domain && rec.RR == rr {
			delete(s.store, id)
			removed++
		}
	}
	if removed == 0 {
		writeError(w, http.StatusBadRequest, "DomainRecordNotBelongToUser", "no records for "+rr)
		return
	}
	writeJSON(w, map[string]any{"RequestId": "req-del", "RR": rr, "TotalCount": fmt.Sprintf("%d", removed)})
}

func (s *Server) handleAdd(w http.ResponseWriter, q url.Values) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.addLocked(Record{
		DomainName: q.Get("DomainName"),
		RR:         q.Get("RR"),
		Type:       q.Get("Type"),
		Value:      q.Get("Value"),
	})
	writeJSON(w, map[string]any{"RequestId": "req-add", "RecordId": id})
}

// verify recomputes the signature over every parameter except Signature.
func verify(rawQuery string) ([]rpc.Param, error) {
	var params []rpc.Param
	var signature string
	for _, kv := range strings.Split(rawQuery, "&") {
		k, v, _ := strings.Cut(kv, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, err
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return nil, err
		}
		if key == "Signature" {
			signature = value
			continue
		}
		params = append(params, rpc.Param{Key: key, Value: value})
	}

	want := rpc.Signature(rpc.NewSecret(AccessKeySecret), rpc.StringToSign(rpc.CanonicalQuery(params)))
	if signature != want {
		return nil, fmt.Errorf("signature mismatch")
	}
	for _, p := range params {
		if p.Key == "AccessKeyId" && p.Value != AccessKeyID {
			return nil, fmt.Errorf("unknown access key")
		}
	}
	return params, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"RequestId": "req-err",
		"Code":      code,
		"Message":   message,
	})
}
