package sip

import "errors"

// Sentinel errors for the sip package (spec.md §7).
var (
	// ErrMalformedMessage is returned when a byte stream cannot be parsed
	// into a valid start line and header block.
	ErrMalformedMessage = errors.New("sip: malformed message")

	// ErrUnsupportedVersion is returned for a start line naming a SIP
	// version other than 2.0.
	ErrUnsupportedVersion = errors.New("sip: unsupported version")

	// ErrProtocolViolation covers a structurally valid message that
	// violates a mandatory-header or invariant rule (e.g. missing Call-ID,
	// Content-Length mismatch).
	ErrProtocolViolation = errors.New("sip: protocol violation")

	// ErrIncompleteMessage is returned by the streaming reader when a
	// complete message is not yet available in the buffer.
	ErrIncompleteMessage = errors.New("sip: incomplete message")
)
