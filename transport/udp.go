package transport

import (
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/sipagent/core/sip"
)

// UDPMTUSize bounds a single read; a datagram must be a complete SIP
// message per spec.md §6.
var UDPMTUSize = 1500

// UDPTransport delivers and accepts whole-datagram SIP messages. UDP
// semantics may reorder or drop (spec.md §4.E), so no framing beyond "one
// read is one message" is applied.
type UDPTransport struct {
	conn *net.UDPConn

	msgs chan Inbound
	errs chan error

	writeMu sync.Mutex
	closed  chan struct{}

	log *slog.Logger
}

// ListenUDP binds a UDP socket at addr ("host:port") and starts the
// background read pump. The returned transport's Messages() channel must
// be drained by the embedding loop (spec.md §5).
func ListenUDP(addr string) (*UDPTransport, error) {
	laddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, wrapIOErr("resolve", err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, wrapIOErr("listen", err)
	}
	t := &UDPTransport{
		conn:   conn,
		msgs:   make(chan Inbound, 64),
		errs:   make(chan error, 16),
		closed: make(chan struct{}),
		log:    slog.Default().With("transport", "udp", "local", conn.LocalAddr().String()),
	}
	go t.readLoop()
	return t, nil
}

func (t *UDPTransport) readLoop() {
	buf := make([]byte, UDPMTUSize)
	for {
		n, raddr, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-t.closed:
				return
			default:
			}
			t.errs <- wrapIOErr("read", err)
			return
		}
		data := append([]byte(nil), buf[:n]...)
		msg, err := sip.ParseMessage(data)
		if err != nil {
			t.log.Warn("discarding malformed datagram", "remote", raddr.String(), "error", err)
			select {
			case t.errs <- err:
			default:
			}
			continue
		}
		select {
		case t.msgs <- Inbound{Message: msg, RemoteAddr: raddr.String(), TransportID: t.ID()}:
		case <-t.closed:
			return
		}
	}
}

func (t *UDPTransport) ID() string      { return "udp:" + t.conn.LocalAddr().String() }
func (t *UDPTransport) Network() string { return "udp" }

func (t *UDPTransport) Send(message []byte, remoteAddr string) error {
	if len(message) > UDPMTUSize {
		return fmt.Errorf("%w: message of %d bytes exceeds MTU %d", ErrTransport, len(message), UDPMTUSize)
	}
	raddr, err := net.ResolveUDPAddr("udp", remoteAddr)
	if err != nil {
		return wrapIOErr("resolve remote", err)
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_, err = t.conn.WriteToUDP(message, raddr)
	return wrapIOErr("write", err)
}

func (t *UDPTransport) Messages() <-chan Inbound { return t.msgs }
func (t *UDPTransport) Errors() <-chan error      { return t.errs }

func (t *UDPTransport) LocalContact() string { return t.conn.LocalAddr().String() }

func (t *UDPTransport) Close() error {
	close(t.closed)
	return t.conn.Close()
}
