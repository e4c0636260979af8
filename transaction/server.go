package transaction

import (
	"context"
	"time"

	"github.com/looplab/fsm"

	"github.com/sipagent/core/sip"
	"github.com/sipagent/core/timer"
	"github.com/sipagent/core/transport"
)

// Server FSM states (spec.md §4.F).
const (
	ServerProceeding = "Proceeding"
	ServerTrying     = "Trying"
	ServerCompleted  = "Completed"
	ServerConfirmed  = "Confirmed"
	ServerTerminated = "Terminated"
)

// ServerTx is one server transaction (spec.md §4.F).
type ServerTx struct {
	key       ServerKey
	fsm       *fsm.FSM
	isInvite  bool
	reliable  bool
	request   *sip.Request
	transport transport.Transport
	remote    string
	loop      *timer.Loop

	lastResponse *sip.Response

	trying100Handle timer.Handle
	retransmitHandle timer.Handle
	cleanupHandle    timer.Handle
	retransmitInterval time.Duration

	onTerminate func()
}

// NewServerTx creates a server transaction for an inbound req, arming the
// auto-100-Trying timer for INVITE (spec.md §4.F). onTerminate is called
// exactly once when the transaction reaches Terminated.
func NewServerTx(loop *timer.Loop, tp transport.Transport, req *sip.Request, remote string, onTerminate func()) *ServerTx {
	reliable := tp.Network() == "tcp"
	tx := &ServerTx{
		key:         serverKeyForRequest(req),
		isInvite:    req.IsInvite(),
		reliable:    reliable,
		request:     req,
		transport:   tp,
		remote:      remote,
		loop:        loop,
		onTerminate: onTerminate,
	}
	tx.fsm = tx.buildFSM()
	if tx.isInvite {
		tx.trying100Handle = loop.Wheel().Schedule(loop.After(auto100TryingDelay), func() {
			tx.respondInternal(sip.NewResponseFromRequest(req, sip.StatusTrying, "Trying", nil))
		})
	}
	return tx
}

func (tx *ServerTx) buildFSM() *fsm.FSM {
	if tx.isInvite {
		return fsm.NewFSM(
			ServerProceeding,
			fsm.Events{
				{Name: "1xx", Src: []string{ServerProceeding}, Dst: ServerProceeding},
				{Name: "2xx", Src: []string{ServerProceeding}, Dst: ServerTerminated},
				{Name: "3xx_6xx", Src: []string{ServerProceeding}, Dst: ServerCompleted},
				{Name: "ack", Src: []string{ServerCompleted}, Dst: ServerConfirmed},
				{Name: "timer_i", Src: []string{ServerConfirmed}, Dst: ServerTerminated},
				{Name: "timeout", Src: []string{ServerProceeding, ServerCompleted}, Dst: ServerTerminated},
				{Name: "transport_err", Src: []string{ServerProceeding, ServerCompleted, ServerConfirmed}, Dst: ServerTerminated},
			},
			fsm.Callbacks{
				"enter_" + ServerCompleted:  func(_ context.Context, e *fsm.Event) { tx.onEnterCompleted(e) },
				"enter_" + ServerConfirmed:  func(_ context.Context, e *fsm.Event) { tx.onEnterConfirmed(e) },
				"enter_" + ServerTerminated: func(_ context.Context, e *fsm.Event) { tx.onEnterTerminated(e) },
			},
		)
	}
	return fsm.NewFSM(
		ServerTrying,
		fsm.Events{
			{Name: "1xx", Src: []string{ServerTrying, ServerProceeding}, Dst: ServerProceeding},
			{Name: "final", Src: []string{ServerTrying, ServerProceeding}, Dst: ServerCompleted},
			{Name: "timer_j", Src: []string{ServerCompleted}, Dst: ServerTerminated},
			{Name: "transport_err", Src: []string{ServerTrying, ServerProceeding, ServerCompleted}, Dst: ServerTerminated},
		},
		fsm.Callbacks{
			"enter_" + ServerCompleted:  func(_ context.Context, e *fsm.Event) { tx.onEnterCompleted(e) },
			"enter_" + ServerTerminated: func(_ context.Context, e *fsm.Event) { tx.onEnterTerminated(e) },
		},
	)
}

// Respond sends res as the transaction's response to the request,
// advancing the FSM per spec.md §4.F.
func (tx *ServerTx) Respond(res *sip.Response) {
	if tx.fsm.Current() == ServerTerminated {
		return
	}
	tx.trying100Handle.Cancel()
	tx.respondInternal(res)

	switch {
	case res.IsProvisional():
		_ = tx.fsm.Event(context.Background(), "1xx")
	case tx.isInvite && res.IsSuccess():
		_ = tx.fsm.Event(context.Background(), "2xx")
	case tx.isInvite:
		_ = tx.fsm.Event(context.Background(), "3xx_6xx")
	default:
		_ = tx.fsm.Event(context.Background(), "final")
	}
}

func (tx *ServerTx) respondInternal(res *sip.Response) {
	tx.lastResponse = res
	_ = tx.transport.Send([]byte(res.String()), tx.remote)
}

func (tx *ServerTx) onEnterCompleted(_ *fsm.Event) {
	if !tx.isInvite {
		d := timerJ(tx.reliable)
		if d == 0 {
			_ = tx.fsm.Event(context.Background(), "timer_j")
			return
		}
		tx.cleanupHandle = tx.loop.Wheel().Schedule(tx.loop.After(d), func() {
			_ = tx.fsm.Event(context.Background(), "timer_j")
		})
		return
	}
	if !tx.reliable {
		tx.retransmitInterval = T1
		tx.scheduleResponseRetransmit()
	}
	tx.cleanupHandle = tx.loop.Wheel().Schedule(tx.loop.After(timerH()), func() {
		_ = tx.fsm.Event(context.Background(), "timeout")
	})
}

func (tx *ServerTx) scheduleResponseRetransmit() {
	tx.retransmitHandle = tx.loop.Wheel().Schedule(tx.loop.After(tx.retransmitInterval), func() {
		if tx.fsm.Current() != ServerCompleted {
			return
		}
		tx.respondInternal(tx.lastResponse)
		tx.retransmitInterval = nextRetransmit(tx.retransmitInterval)
		tx.scheduleResponseRetransmit()
	})
}

func (tx *ServerTx) onEnterConfirmed(_ *fsm.Event) {
	tx.retransmitHandle.Cancel()
	tx.cleanupHandle.Cancel()
	d := timerI(tx.reliable)
	if d == 0 {
		_ = tx.fsm.Event(context.Background(), "timer_i")
		return
	}
	tx.cleanupHandle = tx.loop.Wheel().Schedule(tx.loop.After(d), func() {
		_ = tx.fsm.Event(context.Background(), "timer_i")
	})
}

func (tx *ServerTx) onEnterTerminated(_ *fsm.Event) {
	tx.trying100Handle.Cancel()
	tx.retransmitHandle.Cancel()
	tx.cleanupHandle.Cancel()
	if tx.onTerminate != nil {
		tx.onTerminate()
	}
}

// ReceiveAck absorbs an ACK to a non-2xx final response, per spec.md §4.F
// ("ACK to a non-2xx is absorbed by the server INVITE transaction and does
// NOT create a new transaction").
func (tx *ServerTx) ReceiveAck() {
	if tx.isInvite && tx.fsm.Current() == ServerCompleted {
		_ = tx.fsm.Event(context.Background(), "ack")
	}
}

// ReceiveRetransmit re-sends the last response on a retransmitted request,
// per RFC 3261 §17.2.1 (the TU never sees the retransmit).
func (tx *ServerTx) ReceiveRetransmit() {
	if tx.lastResponse != nil {
		tx.respondInternal(tx.lastResponse)
	}
}

func (tx *ServerTx) Terminate() {
	if tx.fsm.Current() == ServerTerminated {
		return
	}
	_ = tx.fsm.Event(context.Background(), "transport_err")
}

func (tx *ServerTx) State() string    { return tx.fsm.Current() }
func (tx *ServerTx) Key() ServerKey   { return tx.key }
func (tx *ServerTx) Request() *sip.Request { return tx.request }
