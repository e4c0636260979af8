// Package transaction implements the RFC 3261 §17 client/server
// transaction state machines of spec.md §4.F, matching, and retransmission
// schedule. State machines are driven by github.com/looplab/fsm (a real
// domain dependency from arzzra-soft_phone/pkg/dialog/tx.go) instead of the
// teacher's hand-rolled closures-over-int FSM. Timers are driven by
// timer.Wheel/timer.Loop rather than goroutine time.AfterFunc, per the
// single-threaded cooperative loop spec.md §5 mandates.
package transaction

import (
	"github.com/sipagent/core/sip"
	"github.com/sipagent/core/timer"
	"github.com/sipagent/core/transport"
)

// Layer owns every live client and server transaction for one embedding
// application, keyed per spec.md §4.F. All methods run on the loop thread;
// there is no internal locking (spec.md §5).
type Layer struct {
	loop *timer.Loop

	clients map[ClientKey]*ClientTx
	servers map[ServerKey]*ServerTx

	// OnRequest is invoked for every request that starts a new server
	// transaction (i.e. not an ACK-to-non-2xx absorption or a
	// retransmission). The UAS layer wires this to dispatch INVITE/BYE/etc.
	OnRequest func(tx *ServerTx, req *sip.Request, remote string)

	// OnCancel is invoked when a CANCEL matches an in-progress INVITE
	// server transaction (same key, method substituted per spec.md §4.F).
	// The UAS layer wires this to send 487 on the INVITE and 200 on the
	// CANCEL itself (spec.md §4.H).
	OnCancel func(inviteTx *ServerTx, cancelReq *sip.Request, remote string)
}

// NewLayer returns an empty transaction Layer driven by loop.
func NewLayer(loop *timer.Loop) *Layer {
	return &Layer{
		loop:    loop,
		clients: make(map[ClientKey]*ClientTx),
		servers: make(map[ServerKey]*ServerTx),
	}
}

// Send starts a new client transaction for req over tp, toward remote.
func (l *Layer) Send(tp transport.Transport, req *sip.Request, remote string, onResponse func(*sip.Response), onDone func(error)) *ClientTx {
	tx := NewClientTx(l.loop, tp, req, remote, onResponse, func(err error) {
		delete(l.clients, clientKeyForRequest(req))
		if onDone != nil {
			onDone(err)
		}
	})
	l.clients[tx.Key()] = tx
	return tx
}

// HandleInbound dispatches one transport.Inbound to the matching
// transaction, or — for a request with no matching server transaction —
// creates one and invokes OnRequest.
func (l *Layer) HandleInbound(tp transport.Transport, in transport.Inbound) {
	switch msg := in.Message.(type) {
	case *sip.Response:
		l.handleResponse(msg)
	case *sip.Request:
		l.handleRequest(tp, msg, in.RemoteAddr)
	}
}

func (l *Layer) handleResponse(res *sip.Response) {
	key := clientKeyForResponse(res)
	tx, ok := l.clients[key]
	if !ok {
		return // stray response, silently absorbed per spec.md §5 cancellation note
	}
	tx.Receive(res)
}

func (l *Layer) handleRequest(tp transport.Transport, req *sip.Request, remote string) {
	if req.Method == sip.ACK {
		// An ACK to a non-2xx carries the INVITE's branch, so it matches the
		// INVITE server transaction's key once the method is INVITE.
		key := serverKeyForRequest(req)
		key.Method = sip.INVITE
		if tx, ok := l.servers[key]; ok {
			tx.ReceiveAck()
		}
		// ACK to a 2xx is end-to-end and bypasses the transaction layer
		// entirely (spec.md §4.F); it is not passed to OnRequest.
		return
	}

	key := serverKeyForRequest(req)
	if tx, ok := l.servers[key]; ok {
		if req.Method == sip.CANCEL {
			if l.OnCancel != nil {
				l.OnCancel(tx, req, remote)
			}
			return
		}
		tx.ReceiveRetransmit()
		return
	}

	if req.Method == sip.CANCEL {
		return // no matching INVITE transaction; nothing to cancel
	}

	tx := NewServerTx(l.loop, tp, req, remote, func() {
		delete(l.servers, key)
	})
	l.servers[key] = tx
	if l.OnRequest != nil {
		l.OnRequest(tx, req, remote)
	}
}

// ClientTransaction looks up a live client transaction by key.
func (l *Layer) ClientTransaction(key ClientKey) (*ClientTx, bool) {
	tx, ok := l.clients[key]
	return tx, ok
}

// ServerTransaction looks up a live server transaction by key.
func (l *Layer) ServerTransaction(key ServerKey) (*ServerTx, bool) {
	tx, ok := l.servers[key]
	return tx, ok
}
