package rpc

import "fmt"

const redacted = "[REDACTED]"

// Secret holds an access key secret. Every printing or marshalling path
// renders it redacted; only the signer reads the raw bytes.
type Secret struct {
	b []byte
}

// NewSecret copies s into a new Secret.
func NewSecret(s string) *Secret {
	return &Secret{b: []byte(s)}
}

// Empty reports whether the secret holds no bytes.
func (s *Secret) Empty() bool {
	return s == nil || len(s.b) == 0
}

// Zero overwrites the secret in place. The Secret is unusable afterwards.
func (s *Secret) Zero() {
	if s == nil {
		return
	}
	for i := range s.b {
		s.b[i] = 0
	}
	s.b = nil
}

// signingKey returns secret + "&". A nil Secret yields "&".
func (s *Secret) signingKey() []byte {
	if s == nil {
		return []byte{'&'}
	}
	key := make([]byte, 0, len(s.b)+1)
	key = append(key, s.b...)
	return append(key, '&')
}

func (s *Secret) String() string   { return redacted }
func (s *Secret) GoString() string { return redacted }

func (s *Secret) Format(f fmt.State, _ rune) {
	_, _ = f.Write([]byte(redacted))
}

func (s *Secret) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

func (s *Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}
