package subscription

import (
	"fmt"
)

// DecodeError means the outer blob is unusable; the whole run stops.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "decode subscription blob: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// MalformedLinkError reports a single link that failed scheme parsing.
type MalformedLinkError struct {
	Scheme string
	Reason string
	Err    error
}

func (e *MalformedLinkError) Error() string {
	msg := e.Scheme + ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedLinkError) Unwrap() error { return e.Err }

func malformed(scheme, reason string, err error) error {
	return &MalformedLinkError{Scheme: scheme, Reason: reason, Err: err}
}

type UnknownSchemeError struct {
	Scheme string
}

func (e *UnknownSchemeError) Error() string {
	if e.Scheme == "" {
		return "line has no scheme"
	}
	return fmt.Sprintf("unsupported scheme %q", e.Scheme)
}

// Warning is a skipped line. Line is 1-based within the decoded blob.
type Warning struct {
	Line int
	Text string
	Err  error
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: %v", w.Line, w.Err)
}
