package rpc

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

const timestampLayout = "2006-01-02T15:04:05Z"

// Param is a single query parameter. Value must already be the exact wire
// representation; it is only percent-encoded during signing.
type Param struct {
	Key   string
	Value string
}

// baseParams are sent on every call and never vary.
var baseParams = []Param{
	{"Format", "JSON"},
	{"SignatureMethod", "HMAC-SHA1"},
	{"SignatureVersion", "1.0"},
}

// Signer turns an action and its parameters into a signed request URL.
type Signer struct {
	Endpoint    string
	AccessKeyID string
	Secret      *Secret
	Version     string

	// Now and Nonce default to the wall clock and a random UUID.
	Now   func() time.Time
	Nonce func() string
}

// Sign returns the final URL for one request. The URL embeds a fresh nonce
// and timestamp and must not be reused.
func (s *Signer) Sign(action string, query []Param) string {
	params := make([]Param, 0, len(baseParams)+5+len(query))
	params = append(params, baseParams...)
	params = append(params,
		Param{"Action", action},
		Param{"AccessKeyId", s.AccessKeyID},
		Param{"SignatureNonce", s.nonce()},
		Param{"Timestamp", s.now().UTC().Format(timestampLayout)},
		Param{"Version", s.Version},
	)
	params = append(params, query...)

	canonical := CanonicalQuery(params)
	signature := Signature(s.Secret, StringToSign(canonical))
	return s.Endpoint + "?Signature=" + Encode(signature) + "&" + canonical
}

func (s *Signer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Signer) nonce() string {
	if s.Nonce != nil {
		return s.Nonce()
	}
	return uuid.NewString()
}

// CanonicalQuery sorts params byte-wise by key, keeping the relative order of
// duplicate keys, and joins the encoded pairs with '&'. The input is not modified.
func CanonicalQuery(params []Param) string {
	sorted := slices.Clone(params)
	slices.SortStableFunc(sorted, func(a, b Param) int {
		return strings.Compare(a.Key, b.Key)
	})

	var b strings.Builder
	for i, p := range sorted {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(Encode(p.Key))
		b.WriteByte('=')
		b.WriteString(Encode(p.Value))
	}
	return b.String()
}

// StringToSign builds the signed payload. Method and path are fixed to GET
// and "/" regardless of the real endpoint path.
func StringToSign(canonical string) string {
	return "GET&" + Encode("/") + "&" + Encode(canonical)
}

// Signature is base64(HMAC-SHA1(secret+"&", stringToSign)).
func Signature(secret *Secret, stringToSign string) string {
	mac := hmac.New(sha1.New, secret.signingKey())
	mac.Write([]byte(stringToSign))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Encode percent-encodes s the way the provider canonicalizes: the form
// encoder's output with space as %20, '*' as %2A and '~' left literal.
// The corrections run after encoding and in this order.
func Encode(s string) string {
	e := url.QueryEscape(s)
	e = strings.ReplaceAll(e, "+", "%20")
	e = strings.ReplaceAll(e, "*", "%2A")
	return strings.ReplaceAll(e, "%7E", "~")
}
