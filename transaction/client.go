package transaction

import (
	"context"
	"time"

	"github.com/looplab/fsm"

	"github.com/sipagent/core/sip"
	"github.com/sipagent/core/timer"
	"github.com/sipagent/core/transport"
)

// Client FSM states, named the way the teacher's transaction_fsm.go names
// them but driven by github.com/looplab/fsm instead of hand-rolled
// closures-over-int (grounded on arzzra-soft_phone/pkg/dialog/tx.go).
const (
	ClientCalling    = "Calling"
	ClientTrying     = "Trying"
	ClientProceeding = "Proceeding"
	ClientCompleted  = "Completed"
	ClientTerminated = "Terminated"
)

// ClientTx is one client transaction (spec.md §4.F). Everything here runs
// on the loop thread; there is no internal locking.
type ClientTx struct {
	key       ClientKey
	fsm       *fsm.FSM
	isInvite  bool
	reliable  bool
	request   *sip.Request
	transport transport.Transport
	remote    string
	loop      *timer.Loop

	retransmitInterval time.Duration
	retransmitHandle   timer.Handle
	timeoutHandle      timer.Handle
	cleanupHandle      timer.Handle

	onResponse func(*sip.Response)
	onDone     func(err error)

	lastResponse *sip.Response
}

// NewClientTx starts a new client transaction for req over tp to remote,
// and sends the initial request. onResponse is called for every response
// received (provisional and final); onDone is called exactly once, with
// nil on normal completion (a final response was delivered) or a sentinel
// error (ErrTimeout, ErrTerminated).
func NewClientTx(loop *timer.Loop, tp transport.Transport, req *sip.Request, remote string, onResponse func(*sip.Response), onDone func(error)) *ClientTx {
	reliable := tp.Network() == "tcp"
	tx := &ClientTx{
		key:        clientKeyForRequest(req),
		isInvite:   req.IsInvite(),
		reliable:   reliable,
		request:    req,
		transport:  tp,
		remote:     remote,
		loop:       loop,
		onResponse: onResponse,
		onDone:     onDone,
	}
	tx.fsm = tx.buildFSM()
	tx.sendInitial()
	return tx
}

func (tx *ClientTx) buildFSM() *fsm.FSM {
	if tx.isInvite {
		return fsm.NewFSM(
			ClientCalling,
			fsm.Events{
				{Name: "1xx", Src: []string{ClientCalling, ClientProceeding}, Dst: ClientProceeding},
				{Name: "2xx", Src: []string{ClientCalling, ClientProceeding}, Dst: ClientTerminated},
				{Name: "3xx_6xx", Src: []string{ClientCalling, ClientProceeding}, Dst: ClientCompleted},
				{Name: "timer_d", Src: []string{ClientCompleted}, Dst: ClientTerminated},
				{Name: "timeout", Src: []string{ClientCalling, ClientProceeding}, Dst: ClientTerminated},
				{Name: "transport_err", Src: []string{ClientCalling, ClientProceeding, ClientCompleted}, Dst: ClientTerminated},
			},
			fsm.Callbacks{
				"enter_" + ClientCompleted:  func(_ context.Context, e *fsm.Event) { tx.onEnterCompleted(e) },
				"enter_" + ClientTerminated: func(_ context.Context, e *fsm.Event) { tx.onEnterTerminated(e) },
			},
		)
	}
	return fsm.NewFSM(
		ClientTrying,
		fsm.Events{
			{Name: "1xx", Src: []string{ClientTrying, ClientProceeding}, Dst: ClientProceeding},
			{Name: "final", Src: []string{ClientTrying, ClientProceeding}, Dst: ClientCompleted},
			{Name: "timer_k", Src: []string{ClientCompleted}, Dst: ClientTerminated},
			{Name: "timeout", Src: []string{ClientTrying, ClientProceeding}, Dst: ClientTerminated},
			{Name: "transport_err", Src: []string{ClientTrying, ClientProceeding, ClientCompleted}, Dst: ClientTerminated},
		},
		fsm.Callbacks{
			"enter_" + ClientCompleted:  func(_ context.Context, e *fsm.Event) { tx.onEnterCompleted(e) },
			"enter_" + ClientTerminated: func(_ context.Context, e *fsm.Event) { tx.onEnterTerminated(e) },
		},
	)
}

func (tx *ClientTx) sendInitial() {
	tx.send()
	if tx.reliable {
		tx.scheduleTimeout()
		return
	}
	tx.retransmitInterval = T1
	tx.scheduleRetransmit()
	tx.scheduleTimeout()
}

func (tx *ClientTx) send() {
	_ = tx.transport.Send([]byte(tx.request.String()), tx.remote)
}

func (tx *ClientTx) scheduleRetransmit() {
	tx.retransmitHandle = tx.loop.Wheel().Schedule(tx.loop.After(tx.retransmitInterval), func() {
		tx.send()
		tx.retransmitInterval = nextRetransmit(tx.retransmitInterval)
		tx.scheduleRetransmit()
	})
}

func (tx *ClientTx) scheduleTimeout() {
	d := timerF()
	if tx.isInvite {
		d = timerB()
	}
	tx.timeoutHandle = tx.loop.Wheel().Schedule(tx.loop.After(d), func() {
		event := "timeout"
		_ = tx.fsm.Event(context.Background(), event)
	})
}

func (tx *ClientTx) cancelTimers() {
	tx.retransmitHandle.Cancel()
	tx.timeoutHandle.Cancel()
}

// Receive processes a response matched to this transaction.
func (tx *ClientTx) Receive(res *sip.Response) {
	if tx.fsm.Current() == ClientTerminated {
		return
	}
	tx.lastResponse = res
	switch {
	case res.IsProvisional():
		tx.cancelRetransmitOnProvisional()
		_ = tx.fsm.Event(context.Background(), "1xx")
		if tx.onResponse != nil {
			tx.onResponse(res)
		}
	case tx.isInvite && res.IsSuccess():
		tx.cancelTimers()
		_ = tx.fsm.Event(context.Background(), "2xx")
		if tx.onResponse != nil {
			tx.onResponse(res)
		}
	case tx.isInvite:
		tx.cancelTimers()
		_ = tx.fsm.Event(context.Background(), "3xx_6xx")
		if tx.onResponse != nil {
			tx.onResponse(res)
		}
	default:
		tx.cancelTimers()
		_ = tx.fsm.Event(context.Background(), "final")
		if tx.onResponse != nil {
			tx.onResponse(res)
		}
	}
}

func (tx *ClientTx) cancelRetransmitOnProvisional() {
	// Retransmission continues per RFC 3261 even after 1xx for non-INVITE;
	// only INVITE retransmission stops once Proceeding is reached (the ACK
	// path replaces it). Collapse both via the isInvite branch.
	if tx.isInvite {
		tx.retransmitHandle.Cancel()
	}
}

func (tx *ClientTx) onEnterCompleted(e *fsm.Event) {
	if tx.isInvite {
		tx.retransmitHandle.Cancel()
		if e.Event == "3xx_6xx" {
			ack := sip.NewAckRequest(tx.request, tx.lastResponse)
			_ = tx.transport.Send([]byte(ack.String()), tx.remote)
		}
		d := timerD(tx.reliable)
		if d == 0 {
			_ = tx.fsm.Event(context.Background(), "timer_d")
			return
		}
		tx.cleanupHandle = tx.loop.Wheel().Schedule(tx.loop.After(d), func() {
			_ = tx.fsm.Event(context.Background(), "timer_d")
		})
		return
	}
	d := timerK(tx.reliable)
	if d == 0 {
		_ = tx.fsm.Event(context.Background(), "timer_k")
		return
	}
	tx.cleanupHandle = tx.loop.Wheel().Schedule(tx.loop.After(d), func() {
		_ = tx.fsm.Event(context.Background(), "timer_k")
	})
}

func (tx *ClientTx) onEnterTerminated(e *fsm.Event) {
	tx.cancelTimers()
	tx.cleanupHandle.Cancel()
	if tx.onDone == nil {
		return
	}
	switch e.Event {
	case "timeout":
		tx.onDone(ErrTimeout)
	case "transport_err":
		tx.onDone(ErrTerminated)
	default:
		tx.onDone(nil)
	}
}

// Terminate aborts the transaction immediately, as on a transport failure.
func (tx *ClientTx) Terminate() {
	if tx.fsm.Current() == ClientTerminated {
		return
	}
	_ = tx.fsm.Event(context.Background(), "transport_err")
}

// State returns the current FSM state name.
func (tx *ClientTx) State() string { return tx.fsm.Current() }

// Key returns the transaction's matching key.
func (tx *ClientTx) Key() ClientKey { return tx.key }

// Request returns the request this transaction was created for, so the UAC
// facade can build a matching CANCEL.
func (tx *ClientTx) Request() *sip.Request { return tx.request }

// Remote returns the destination this transaction sends to.
func (tx *ClientTx) Remote() string { return tx.remote }

// ReadyForCancel reports whether a CANCEL may be sent now: only once a
// provisional response has been received for this INVITE (spec.md §4.F
// "Cancellation."); otherwise the caller must queue the CANCEL until
// Receive delivers a provisional response.
func (tx *ClientTx) ReadyForCancel() bool {
	return tx.isInvite && tx.fsm.Current() == ClientProceeding
}
