package transport

import (
	"sync"

	"github.com/sipagent/core/sip"
)

// Mock is an in-memory Transport used by the transaction/ua test
// suites instead of real sockets, grounded on the teacher's
// fakes/udp_conn.go in-memory connection pattern.
type Mock struct {
	id      string
	network string
	contact string

	msgs chan Inbound
	errs chan error

	mu  sync.Mutex
	out []sentMessage
}

type sentMessage struct {
	Bytes  []byte
	Remote string
}

// NewMock returns a Mock transport identified by id, reachable at contact.
func NewMock(id, network, contact string) *Mock {
	return &Mock{
		id:      id,
		network: network,
		contact: contact,
		msgs:    make(chan Inbound, 64),
		errs:    make(chan error, 16),
	}
}

func (m *Mock) ID() string      { return m.id }
func (m *Mock) Network() string { return m.network }

func (m *Mock) Send(message []byte, remoteAddr string) error {
	m.mu.Lock()
	m.out = append(m.out, sentMessage{Bytes: append([]byte(nil), message...), Remote: remoteAddr})
	m.mu.Unlock()
	return nil
}

func (m *Mock) Messages() <-chan Inbound { return m.msgs }
func (m *Mock) Errors() <-chan error      { return m.errs }
func (m *Mock) LocalContact() string     { return m.contact }
func (m *Mock) Close() error              { return nil }

// Sent returns every message handed to Send, in order.
func (m *Mock) Sent() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.out...)
}

// LastSent returns the most recently sent message, if any.
func (m *Mock) LastSent() (sentMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.out) == 0 {
		return sentMessage{}, false
	}
	return m.out[len(m.out)-1], true
}

// Deliver injects an inbound message as if it arrived from remoteAddr.
func (m *Mock) Deliver(msg sip.Message, remoteAddr string) {
	m.msgs <- Inbound{Message: msg, RemoteAddr: remoteAddr, TransportID: m.id}
}
