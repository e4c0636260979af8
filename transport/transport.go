// Package transport is the interface-only abstraction of spec.md §4.E,
// plus two concrete swappable implementations (UDP, TCP). The transaction
// layer depends only on the Transport interface; it never assumes UDP or
// TCP semantics beyond what the interface documents.
//
// Grounded on the teacher's transport/udp.go and transport/tcp.go
// (github.com/emiago/sipgo), generalized to the opaque bidirectional
// datagram-channel framing rule of spec.md §4.E/§6 and adapted to push
// inbound messages onto the embedding application's single loop instead of
// dispatching handlers directly from the reader goroutine.
package transport

import (
	"errors"
	"fmt"

	"github.com/sipagent/core/sip"
)

// ErrTransport wraps any I/O-level failure returned by a Transport.
var ErrTransport = errors.New("transport: io error")

// Inbound is one message delivered by a Transport, paired with where it
// came from and which transport instance produced it.
type Inbound struct {
	Message     sip.Message
	RemoteAddr  string
	TransportID string
}

// Transport is the abstraction the transaction layer sends through and
// receives from (spec.md §4.E). Implementations deliver Inbound values on
// the channel returned by Messages(); their reader goroutines do blocking
// I/O until Close is called, but never touch transaction/dialog state
// directly — dispatch onto the loop is the caller's job.
type Transport interface {
	// ID identifies this transport instance (e.g. "udp:0.0.0.0:5060").
	ID() string

	// Network reports "udp" or "tcp".
	Network() string

	// Send writes message to remoteAddr. May be called concurrently with
	// Messages() delivery; implementations serialize their own writes.
	Send(message []byte, remoteAddr string) error

	// Messages returns the channel inbound messages are delivered on.
	Messages() <-chan Inbound

	// Errors returns the channel transport-level errors are delivered on
	// (malformed datagrams, read failures). Delivering an error does not
	// close the transport, but a read or accept failure ends the goroutine
	// that hit it.
	Errors() <-chan error

	// LocalContact returns a URI fragment ("host:port") suitable for a
	// Contact header pointing back at this transport (spec.md §4.E).
	LocalContact() string

	// Close stops background I/O and releases resources.
	Close() error
}

func wrapIOErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %v", ErrTransport, op, err)
}
