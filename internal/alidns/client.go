// Package alidns is a client for the Alibaba Cloud DNS record API.
package alidns

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/hashicorp/go-cleanhttp"

	"github.com/yuriy-kovalchuk/alidns-manager/internal/alidns/rpc"
	"github.com/yuriy-kovalchuk/alidns-manager/internal/dns"
)

const (
	// DefaultEndpoint is used when the endpoint setting is empty.
	DefaultEndpoint = "https://alidns.cn-shanghai.aliyuncs.com"
	// DefaultAPIVersion is the Alidns API version sent on every call.
	DefaultAPIVersion = "2015-01-09"

	// listPageSize is the only page ever requested; records beyond it are
	// not fetched.
	listPageSize = "500"

	defaultTimeout = 30 * time.Second
)

var _ dns.Provider = (*Client)(nil)

// Client implements dns.Provider on top of the signed RPC API. It is safe
// for concurrent use.
type Client struct {
	rpc    *rpc.Client
	secret *rpc.Secret
	log    logr.Logger
}

// New creates a client from the given settings map.
// Required settings: access_key_id, access_key_secret.
// Optional settings: endpoint, api_version, timeout (default 30s),
// skip_tls_verify (default false).
func New(log logr.Logger, settings map[string]string) (*Client, error) {
	keyID := settings["access_key_id"]
	if keyID == "" {
		return nil, fmt.Errorf("alidns: missing required setting 'access_key_id'")
	}
	keySecret := settings["access_key_secret"]
	if keySecret == "" {
		return nil, fmt.Errorf("alidns: missing required setting 'access_key_secret'")
	}

	endpoint := strings.TrimRight(settings["endpoint"], "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("alidns: endpoint %q must start with http:// or https://", endpoint)
	}
	version := settings["api_version"]
	if version == "" {
		version = DefaultAPIVersion
	}

	timeout := defaultTimeout
	if v := settings["timeout"]; v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("alidns: invalid timeout %q: %w", v, err)
		}
		timeout = parsed
	}

	transport := cleanhttp.DefaultPooledTransport()
	if v := settings["skip_tls_verify"]; v == "true" {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	secret := rpc.NewSecret(keySecret)
	return &Client{
		rpc: rpc.NewClient(rpc.Options{
			Endpoint:    endpoint,
			Version:     version,
			AccessKeyID: keyID,
			Secret:      secret,
			HTTPClient:  &http.Client{Transport: transport, Timeout: timeout},
		}),
		secret: secret,
		log:    log,
	}, nil
}

// Close wipes the credential secret. The client must not be used afterwards.
func (c *Client) Close() {
	c.secret.Zero()
}

// call sends one action and decodes the response into out.
func (c *Client) call(ctx context.Context, action string, out any, params ...rpc.Param) error {
	c.log.V(1).Info("calling action", "action", action)
	if err := c.rpc.Get(action).Query(params...).Send(ctx, out); err != nil {
		return fmt.Errorf("alidns: %w", err)
	}
	return nil
}

// ListAll returns the first page (up to 500 records) of domain.
func (c *Client) ListAll(ctx context.Context, domain string) (*dns.RecordList, error) {
	var resp recordListResponse
	err := c.call(ctx, "DescribeDomainRecords", &resp,
		rpc.Param{Key: "DomainName", Value: domain},
		rpc.Param{Key: "PageSize", Value: listPageSize},
	)
	if err != nil {
		return nil, err
	}
	return resp.toRecordList(), nil
}

// ListForHost returns the records named fullName, e.g. "www.example.com".
func (c *Client) ListForHost(ctx context.Context, fullName, domain string) (*dns.RecordList, error) {
	var resp recordListResponse
	err := c.call(ctx, "DescribeSubDomainRecords", &resp,
		rpc.Param{Key: "SubDomain", Value: fullName},
		rpc.Param{Key: "DomainName", Value: domain},
	)
	if err != nil {
		return nil, err
	}
	return resp.toRecordList(), nil
}

// DeleteForHost removes all records named rr, of any type.
func (c *Client) DeleteForHost(ctx context.Context, rr, domain string) (int, error) {
	c.log.Info("deleting records", "rr", rr, "domain", domain)

	var resp deleteResponse
	err := c.call(ctx, "DeleteSubDomainRecords", &resp,
		rpc.Param{Key: "RR", Value: rr},
		rpc.Param{Key: "DomainName", Value: domain},
	)
	if err != nil {
		return 0, err
	}
	return int(*resp.TotalCount), nil
}

// CreateAddress adds an A record for rr pointing at addr.
func (c *Client) CreateAddress(ctx context.Context, rr, domain string, addr netip.Addr) (string, error) {
	c.log.Info("creating record", "rr", rr, "domain", domain, "value", addr.String())

	var resp addResponse
	err := c.call(ctx, "AddDomainRecord", &resp,
		rpc.Param{Key: "DomainName", Value: domain},
		rpc.Param{Key: "RR", Value: rr},
		rpc.Param{Key: "Type", Value: string(dns.RecordTypeA)},
		rpc.Param{Key: "Value", Value: addr.String()},
	)
	if err != nil {
		return "", err
	}
	return resp.RecordID, nil
}

// count accepts both 3 and "3"; DeleteSubDomainRecords reports its
// TotalCount as a string.
type count int

func (n *count) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid count %s: %w", b, err)
	}
	*n = count(v)
	return nil
}
