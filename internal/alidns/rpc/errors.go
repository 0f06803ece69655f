package rpc

import (
	"errors"
	"fmt"
	"net/url"
)

// TransportError means the HTTP exchange did not complete. The signed URL is
// never part of the message.
type TransportError struct {
	Action string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("rpc: %s: transport: %v", e.Action, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// newTransportError drops the *url.Error wrapper, which would otherwise
// print the signed URL including the access key id.
func newTransportError(action string, err error) *TransportError {
	var ue *url.Error
	if errors.As(err, &ue) {
		err = ue.Err
	}
	return &TransportError{Action: action, Err: err}
}

// DecodeError means the response body was not the expected JSON shape.
type DecodeError struct {
	Action string
	Body   string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("rpc: %s: decode response: %v (body=%s)", e.Action, e.Err, e.Body)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ProviderError is a well-formed error reported by the provider. The code
// and message are passed through as received.
type ProviderError struct {
	Action     string `json:"-"`
	StatusCode int    `json:"-"`
	Code       string `json:"Code"`
	Message    string `json:"Message"`
	RequestID  string `json:"RequestId"`
	Recommend  string `json:"Recommend"`
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("rpc: %s: provider error status=%d code=%s: %s", e.Action, e.StatusCode, e.Code, e.Message)
	if e.RequestID != "" {
		msg += " (request_id=" + e.RequestID + ")"
	}
	return msg
}
