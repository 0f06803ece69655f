package alidns

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"reflect"
	"testing"

	"github.com/go-logr/logr"
	logrtesting "github.com/go-logr/logr/testing"

	"github.com/yuriy-kovalchuk/alidns-manager/internal/alidns/alidnstest"
	"github.com/yuriy-kovalchuk/alidns-manager/internal/alidns/rpc"
	"github.com/yuriy-kovalchuk/alidns-manager/internal/dns"
)

func TestNew_ValidSettings(t *testing.T) {
	settings := map[string]string{
		"access_key_id":     "key123",
		"access_key_secret": "secret456",
	}

	c, err := New(logr.Discard(), settings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.rpc == nil {
		t.Fatal("expected non-nil rpc client")
	}
}

func TestNew_InvalidSettings(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]string
	}{
		{"missing key id", map[string]string{"access_key_secret": "s"}},
		{"missing secret", map[string]string{"access_key_id": "k"}},
		{"bad endpoint", map[string]string{"access_key_id": "k", "access_key_secret": "s", "endpoint": "alidns.example.com"}},
		{"bad timeout", map[string]string{"access_key_id": "k", "access_key_secret": "s", "timeout": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(logr.Discard(), tt.settings); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestNew_SkipTLSVerify(t *testing.T) {
	settings := map[string]string{
		"access_key_id":     "key123",
		"access_key_secret": "secret456",
		"skip_tls_verify":   "true",
		"timeout":           "5s",
	}

	if _, err := New(logr.Discard(), settings); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClose_ZeroesSecret(t *testing.T) {
	c, err := New(logr.Discard(), map[string]string{
		"access_key_id":     "key123",
		"access_key_secret": "secret456",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.Close()
	if !c.secret.Empty() {
		t.Error("expected secret to be wiped")
	}
}

func newClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	c, err := New(logrtesting.NewTestLogger(t), map[string]string{
		"endpoint":          serverURL,
		"access_key_id":     alidnstest.AccessKeyID,
		"access_key_secret": alidnstest.AccessKeySecret,
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c
}

func TestListAll(t *testing.T) {
	fake := alidnstest.New()
	fake.Add(alidnstest.Record{DomainName: "example.com", RR: "www", Type: "A", Value: "10.0.0.1"})
	fake.Add(alidnstest.Record{DomainName: "example.com", RR: "@", Type: "MX", Value: "mx.example.com"})
	fake.Add(alidnstest.Record{DomainName: "other.org", RR: "www", Type: "A", Value: "10.0.0.2"})
	srv := httptest.NewServer(fake)
	defer srv.Close()

	list, err := newClient(t, srv.URL).ListAll(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if list.TotalCount != 2 || len(list.Records) != 2 {
		t.Fatalf("expected 2 records, got total=%d len=%d", list.TotalCount, len(list.Records))
	}
	if list.PageNumber != 1 || list.PageSize != 500 {
		t.Errorf("unexpected pagination %d/%d", list.PageNumber, list.PageSize)
	}
	rec := list.Records[0]
	if rec.RR != "www" || rec.Type != dns.RecordTypeA || rec.Value != "10.0.0.1" || rec.TTL != 600 {
		t.Errorf("unexpected first record %+v", rec)
	}
	if list.Records[1].Type != dns.RecordTypeMX {
		t.Errorf("expected MX, got %q", list.Records[1].Type)
	}
}

func TestListForHost(t *testing.T) {
	fake := alidnstest.New()
	fake.Add(alidnstest.Record{DomainName: "example.com", RR: "www", Type: "A", Value: "10.0.0.1"})
	fake.Add(alidnstest.Record{DomainName: "example.com", RR: "www", Type: "TXT", Value: "hello"})
	fake.Add(alidnstest.Record{DomainName: "example.com", RR: "api", Type: "A", Value: "10.0.0.2"})
	srv := httptest.NewServer(fake)
	defer srv.Close()

	list, err := newClient(t, srv.URL).ListForHost(context.Background(), "www.example.com", "example.com")
	if err != nil {
		t.Fatalf("ListForHost: %v", err)
	}
	if len(list.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(list.Records))
	}
	for _, rec := range list.Records {
		if rec.RR != "www" {
			t.Errorf("unexpected record %+v", rec)
		}
	}
}

func TestListForHost_UnknownType(t *testing.T) {
	fake := alidnstest.New()
	fake.Raw["DescribeSubDomainRecords"] = `{
		"RequestId": "r1",
		"TotalCount": 1,
		"PageNumber": 1,
		"PageSize": 20,
		"DomainRecords": {"Record": [{
			"RecordId": "9001",
			"Type": "FORWARD_URL",
			"RR": "go",
			"DomainName": "example.com",
			"Value": "https://example.org",
			"TTL": 600,
			"Weight": 3,
			"Status": "ENABLE",
			"Line": "default",
			"Locked": true,
			"Remark": "ignored"
		}]}
	}`
	srv := httptest.NewServer(fake)
	defer srv.Close()

	list, err := newClient(t, srv.URL).ListForHost(context.Background(), "go.example.com", "example.com")
	if err != nil {
		t.Fatalf("ListForHost: %v", err)
	}
	if len(list.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(list.Records))
	}

	weight := 3
	want := dns.Record{
		ID:         "9001",
		Type:       dns.RecordTypeUnknown,
		RR:         "go",
		DomainName: "example.com",
		Value:      "https://example.org",
		TTL:        600,
		Weight:     &weight,
		Status:     "ENABLE",
		Line:       "default",
		Locked:     true,
	}
	if !reflect.DeepEqual(list.Records[0], want) {
		t.Errorf("record = %+v, want %+v", list.Records[0], want)
	}
}

func TestDeleteForHost(t *testing.T) {
	fake := alidnstest.New()
	fake.Add(alidnstest.Record{DomainName: "example.com", RR: "www", Type: "A", Value: "10.0.0.1"})
	fake.Add(alidnstest.Record{DomainName: "example.com", RR: "www", Type: "TXT", Value: "keep?"})
	fake.Add(alidnstest.Record{DomainName: "example.com", RR: "api", Type: "A", Value: "10.0.0.2"})
	srv := httptest.NewServer(fake)
	defer srv.Close()

	n, err := newClient(t, srv.URL).DeleteForHost(context.Background(), "www", "example.com")
	if err != nil {
		t.Fatalf("DeleteForHost: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 removed, got %d", n)
	}
	if got := fake.Records(); len(got) != 1 || got[0].RR != "api" {
		t.Errorf("expected only api to remain, got %+v", got)
	}
}

func TestDeleteForHost_NumericCount(t *testing.T) {
	fake := alidnstest.New()
	fake.Raw["DeleteSubDomainRecords"] = `{"RequestId":"r","RR":"www","TotalCount":4}`
	srv := httptest.NewServer(fake)
	defer srv.Close()

	n, err := newClient(t, srv.URL).DeleteForHost(context.Background(), "www", "example.com")
	if err != nil {
		t.Fatalf("DeleteForHost: %v", err)
	}
	if n != 4 {
		t.Errorf("expected 4, got %d", n)
	}
}

func TestCreateAddress(t *testing.T) {
	fake := alidnstest.New()
	srv := httptest.NewServer(fake)
	defer srv.Close()

	id, err := newClient(t, srv.URL).CreateAddress(context.Background(), "www", "example.com", netip.MustParseAddr("192.0.2.7"))
	if err != nil {
		t.Fatalf("CreateAddress: %v", err)
	}

	got := fake.Records()
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	if got[0].RecordID != id {
		t.Errorf("expected id %q, got %q", got[0].RecordID, id)
	}
	if got[0].Type != "A" || got[0].RR != "www" || got[0].Value != "192.0.2.7" || got[0].DomainName != "example.com" {
		t.Errorf("unexpected stored record %+v", got[0])
	}
}

func TestProviderErrorPropagates(t *testing.T) {
	fake := alidnstest.New()
	fake.Fail["DescribeDomainRecords"] = http.StatusForbidden
	srv := httptest.NewServer(fake)
	defer srv.Close()

	_, err := newClient(t, srv.URL).ListAll(context.Background(), "example.com")

	var pe *rpc.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *rpc.ProviderError, got %T: %v", err, err)
	}
	if pe.StatusCode != http.StatusForbidden || pe.Code != "InternalError" {
		t.Errorf("unexpected provider error %+v", pe)
	}
}

func TestWrongSecretRejected(t *testing.T) {
	fake := alidnstest.New()
	srv := httptest.NewServer(fake)
	defer srv.Close()

	c, err := New(logr.Discard(), map[string]string{
		"endpoint":          srv.URL,
		"access_key_id":     alidnstest.AccessKeyID,
		"access_key_secret": "wrong",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = c.ListAll(context.Background(), "example.com")
	var pe *rpc.ProviderError
	if !errors.As(err, &pe) || pe.Code != "SignatureDoesNotMatch" {
		t.Fatalf("expected SignatureDoesNotMatch, got %v", err)
	}
}

func TestReplaceAddress_CallSequence(t *testing.T) {
	tests := []struct {
		name     string
		seed     []alidnstest.Record
		wantSeq  []string
		wantLeft int
	}{
		{
			name:     "existing record",
			seed:     []alidnstest.Record{{DomainName: "example.com", RR: "home", Type: "A", Value: "10.0.0.1"}},
			wantSeq:  []string{"DescribeSubDomainRecords", "DeleteSubDomainRecords", "AddDomainRecord"},
			wantLeft: 1,
		},
		{
			name:     "no record",
			wantSeq:  []string{"DescribeSubDomainRecords", "AddDomainRecord"},
			wantLeft: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := alidnstest.New()
			for _, rec := range tt.seed {
				fake.Add(rec)
			}
			srv := httptest.NewServer(fake)
			defer srv.Close()

			addr := netip.MustParseAddr("203.0.113.5")
			id, err := dns.ReplaceAddress(context.Background(), newClient(t, srv.URL), "home", "example.com", addr)
			if err != nil {
				t.Fatalf("ReplaceAddress: %v", err)
			}
			if got := fake.Actions(); !reflect.DeepEqual(got, tt.wantSeq) {
				t.Errorf("actions = %v, want %v", got, tt.wantSeq)
			}
			left := fake.Records()
			if len(left) != tt.wantLeft || left[0].RecordID != id || left[0].Value != addr.String() {
				t.Errorf("unexpected final records %+v", left)
			}
		})
	}
}

func TestReplaceAddress_StopsOnFailure(t *testing.T) {
	tests := []struct {
		name string
		fail func(*alidnstest.Server)
	}{
		{"non-2xx", func(f *alidnstest.Server) { f.Fail["DescribeSubDomainRecords"] = http.StatusServiceUnavailable }},
		{"malformed json", func(f *alidnstest.Server) { f.Raw["DescribeSubDomainRecords"] = `{"DomainRecords":` }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := alidnstest.New()
			fake.Add(alidnstest.Record{DomainName: "example.com", RR: "home", Type: "A", Value: "10.0.0.1"})
			tt.fail(fake)
			srv := httptest.NewServer(fake)
			defer srv.Close()

			_, err := dns.ReplaceAddress(context.Background(), newClient(t, srv.URL), "home", "example.com", netip.MustParseAddr("203.0.113.5"))
			if err == nil {
				t.Fatal("expected error")
			}
			if got := fake.Actions(); !reflect.DeepEqual(got, []string{"DescribeSubDomainRecords"}) {
				t.Errorf("expected only the read to be issued, got %v", got)
			}
			if len(fake.Records()) != 1 {
				t.Error("expected the existing record to be untouched")
			}
		})
	}
}

func TestMissingFieldsAreDecodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		action string
		body   string
		call   func(*Client) error
	}{
		{
			name:   "list without DomainRecords",
			action: "DescribeDomainRecords",
			body:   `{"RequestId":"r","TotalCount":0,"PageNumber":1,"PageSize":500}`,
			call: func(c *Client) error {
				_, err := c.ListAll(context.Background(), "example.com")
				return err
			},
		},
		{
			name:   "list without TotalCount",
			action: "DescribeSubDomainRecords",
			body:   `{"RequestId":"r","PageNumber":1,"PageSize":20,"DomainRecords":{"Record":[]}}`,
			call: func(c *Client) error {
				_, err := c.ListForHost(context.Background(), "www.example.com", "example.com")
				return err
			},
		},
		{
			name:   "list without Record array",
			action: "DescribeSubDomainRecords",
			body:   `{"RequestId":"r","TotalCount":0,"PageNumber":1,"PageSize":20,"DomainRecords":{}}`,
			call: func(c *Client) error {
				_, err := c.ListForHost(context.Background(), "www.example.com", "example.com")
				return err
			},
		},
		{
			name:   "delete without TotalCount",
			action: "DeleteSubDomainRecords",
			body:   `{"RequestId":"r","RR":"www"}`,
			call: func(c *Client) error {
				_, err := c.DeleteForHost(context.Background(), "www", "example.com")
				return err
			},
		},
		{
			name:   "add without RecordId",
			action: "AddDomainRecord",
			body:   `{"RequestId":"r"}`,
			call: func(c *Client) error {
				_, err := c.CreateAddress(context.Background(), "www", "example.com", netip.MustParseAddr("192.0.2.7"))
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := alidnstest.New()
			fake.Raw[tt.action] = tt.body
			srv := httptest.NewServer(fake)
			defer srv.Close()

			err := tt.call(newClient(t, srv.URL))

			var de *rpc.DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("expected *rpc.DecodeError, got %T: %v", err, err)
			}
			if de.Body != tt.body {
				t.Errorf("expected raw body in error, got %q", de.Body)
			}
		})
	}
}

func TestReplaceAddress_IncompleteListStopsAfterRead(t *testing.T) {
	fake := alidnstest.New()
	fake.Add(alidnstest.Record{DomainName: "example.com", RR: "home", Type: "TXT", Value: "keep"})
	fake.Raw["DescribeSubDomainRecords"] = `{"RequestId":"r"}`
	srv := httptest.NewServer(fake)
	defer srv.Close()

	_, err := dns.ReplaceAddress(context.Background(), newClient(t, srv.URL), "home", "example.com", netip.MustParseAddr("203.0.113.5"))

	var de *rpc.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected *rpc.DecodeError, got %T: %v", err, err)
	}
	if got := fake.Actions(); !reflect.DeepEqual(got, []string{"DescribeSubDomainRecords"}) {
		t.Errorf("expected only the read to be issued, got %v", got)
	}
	if recs := fake.Records(); len(recs) != 1 || recs[0].Type != "TXT" {
		t.Errorf("expected the existing record untouched, got %+v", recs)
	}
}
