// Package rpc implements the signed RPC-style HTTP API used by Alibaba Cloud
// services: canonical query signing, call building and JSON decoding.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 10 << 20

// Client holds credentials and the endpoint. It is safe for concurrent use;
// every Call it creates is independent.
type Client struct {
	signer Signer
	http   *http.Client
}

// Options configures a Client.
type Options struct {
	Endpoint    string
	Version     string
	AccessKeyID string
	Secret      *Secret
	HTTPClient  *http.Client

	// Now and Nonce pin the signer inputs; nil uses the defaults.
	Now   func() time.Time
	Nonce func() string
}

// Validator is implemented by response shapes that need more than a
// successful json.Unmarshal, such as required fields. A failing Validate is
// reported as a DecodeError.
type Validator interface {
	Validate() error
}

// NewClient returns a Client for the given endpoint and credentials. A nil
// Secret signs with an empty secret.
func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	if opts.Secret == nil {
		opts.Secret = NewSecret("")
	}
	return &Client{
		signer: Signer{
			Endpoint:    opts.Endpoint,
			AccessKeyID: opts.AccessKeyID,
			Secret:      opts.Secret,
			Version:     opts.Version,
			Now:         opts.Now,
			Nonce:       opts.Nonce,
		},
		http: hc,
	}
}

// Get starts a call for the given action.
func (c *Client) Get(action string) *Call {
	return &Call{client: c, action: action}
}

// Call is one pending API call. It is consumed by Send.
type Call struct {
	client *Client
	action string
	query  []Param
}

// Query appends parameters. Repeated keys are kept and all of them are sent.
func (c *Call) Query(params ...Param) *Call {
	c.query = append(c.query, params...)
	return c
}

// Send signs the call, issues a single GET and decodes the JSON body into out.
// It never retries.
func (c *Call) Send(ctx context.Context, out any) error {
	u := c.client.signer.Sign(c.action, c.query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return newTransportError(c.action, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.http.Do(req)
	if err != nil {
		return newTransportError(c.action, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return newTransportError(c.action, fmt.Errorf("read body: %w", err))
	}

	if pe := checkProviderError(c.action, resp.StatusCode, body); pe != nil {
		pe.Message = redactKeyID(pe.Message, c.client.signer.AccessKeyID)
		return pe
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &DecodeError{Action: c.action, Body: string(body), Err: err}
	}
	if v, ok := out.(Validator); ok {
		if err := v.Validate(); err != nil {
			return &DecodeError{Action: c.action, Body: string(body), Err: err}
		}
	}
	return nil
}

// redactKeyID removes the access key id from provider text. A
// SignatureDoesNotMatch message echoes the server's string-to-sign, which
// carries it.
func redactKeyID(msg, keyID string) string {
	if keyID == "" {
		return msg
	}
	msg = strings.ReplaceAll(msg, Encode(Encode(keyID)), redacted)
	msg = strings.ReplaceAll(msg, Encode(keyID), redacted)
	return strings.ReplaceAll(msg, keyID, redacted)
}

// checkProviderError reports a provider error for non-2xx responses and for
// 2xx bodies that carry an error Code.
func checkProviderError(action string, status int, body []byte) *ProviderError {
	ok := status >= 200 && status < 300

	pe := &ProviderError{Action: action, StatusCode: status}
	if err := json.Unmarshal(body, pe); err != nil {
		if ok {
			// Left for the caller's decode to report.
			return nil
		}
		pe.Message = string(body)
		return pe
	}
	if ok && pe.Code == "" {
		return nil
	}
	return pe
}
