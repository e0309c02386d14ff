package protocol

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrPayloadType is wrapped by MalformedResponseError when a payload accessor
// is called for the wrong kind.
var ErrPayloadType = errors.New("unexpected payload type")

// TransportError reports a network or HTTP level failure: the request did not
// produce a response document. It is never retried implicitly.
type TransportError struct {
	Method     string
	Endpoint   string
	StatusCode int   // HTTP status, 0 when no response was received
	Err        error // underlying cause
}

func (e *TransportError) Error() string {
	msg := "transport"
	if e.Method != "" {
		msg += " " + e.Method
	}
	if e.Endpoint != "" {
		msg += " " + e.Endpoint
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": http status %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a timeout.
func (e *TransportError) Timeout() bool {
	var ne net.Error
	if errors.As(e.Err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// ProtocolError means the control plane answered and reported failure. Message
// is passed through verbatim.
type ProtocolError struct {
	Method  string
	Message string
	Code    int64 // remote error code when one was sent
}

func (e *ProtocolError) Error() string {
	if e.Method == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Method, e.Message)
}

// MalformedResponseError means the response does not have the expected shape,
// usually a protocol version mismatch.
type MalformedResponseError struct {
	Method string
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	msg := "malformed response"
	if e.Method != "" {
		msg += " to " + e.Method
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

func malformed(reason string, err error) *MalformedResponseError {
	return &MalformedResponseError{Reason: reason, Err: err}
}

// WithMethod stamps the method name onto any of the protocol error kinds and
// returns err unchanged otherwise.
func WithMethod(err error, method string) error {
	var (
		te *TransportError
		pe *ProtocolError
		me *MalformedResponseError
	)
	switch {
	case errors.As(err, &te):
		if te.Method == "" {
			te.Method = method
		}
	case errors.As(err, &pe):
		if pe.Method == "" {
			pe.Method = method
		}
	case errors.As(err, &me):
		if me.Method == "" {
			me.Method = method
		}
	}
	return err
}

// IsTransport, IsProtocol and IsMalformed classify an error chain.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

func IsProtocol(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

func IsMalformed(err error) bool {
	var me *MalformedResponseError
	return errors.As(err, &me)
}
