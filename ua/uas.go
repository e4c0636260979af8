package ua

import (
	"github.com/sipagent/core/dialog"
	"github.com/sipagent/core/sip"
	"github.com/sipagent/core/timer"
	"github.com/sipagent/core/transaction"
	"github.com/sipagent/core/transport"
)

// Allow lists the methods this UAS understands, advertised on OPTIONS
// responses (spec.md §4.H).
var Allow = []sip.RequestMethod{sip.INVITE, sip.ACK, sip.BYE, sip.CANCEL, sip.OPTIONS, sip.INFO}

func allowHeader() *sip.AllowHeader {
	h := sip.AllowHeader(append([]sip.RequestMethod(nil), Allow...))
	return &h
}

// UAS is the incoming-call facade of spec.md §4.H: it owns a transaction
// Layer and dialog Table and dispatches new/in-dialog requests to the
// application's callbacks.
type UAS struct {
	loop      *timer.Loop
	transport transport.Transport
	txLayer   *transaction.Layer
	dialogs   *dialog.Table

	localContact sip.Uri

	calls map[*transaction.ServerTx]*IncomingCall

	OnInvite  func(call *IncomingCall)
	OnBye     func(d *dialog.Dialog, req *sip.Request)
	OnCancel  func(d *dialog.Dialog)
	OnOptions func(req *sip.Request) *sip.Response
	OnInfo    func(d *dialog.Dialog, req *sip.Request)
}

// NewUAS wires a transaction.Layer over tp and dispatches inbound requests
// per spec.md §4.H.
func NewUAS(loop *timer.Loop, tp transport.Transport, localContact sip.Uri) *UAS {
	uas := &UAS{
		loop:         loop,
		transport:    tp,
		txLayer:      transaction.NewLayer(loop),
		dialogs:      dialog.NewTable(),
		localContact: localContact,
		calls:        make(map[*transaction.ServerTx]*IncomingCall),
	}
	uas.txLayer.OnRequest = uas.handleRequest
	uas.txLayer.OnCancel = uas.handleCancel
	return uas
}

// HandleInbound feeds one transport.Inbound message through the
// transaction layer; call this from the application's read loop.
func (uas *UAS) HandleInbound(in transport.Inbound) {
	uas.txLayer.HandleInbound(uas.transport, in)
}

func (uas *UAS) handleRequest(tx *transaction.ServerTx, req *sip.Request, remote string) {
	switch req.Method {
	case sip.INVITE:
		uas.handleInvite(tx, req)
	case sip.BYE:
		uas.handleBye(tx, req)
	case sip.OPTIONS:
		uas.handleOptions(tx, req)
	case sip.INFO:
		uas.handleInfo(tx, req)
	default:
		tx.Respond(sip.NewResponseFromRequest(req, sip.StatusMethodNotAllowed, "Method Not Allowed", nil))
	}
}

func (uas *UAS) handleInvite(tx *transaction.ServerTx, req *sip.Request) {
	call := newIncomingCall(uas, tx, req)
	uas.calls[tx] = call
	if uas.OnInvite != nil {
		uas.OnInvite(call)
	}
}

// handleCancel implements spec.md §4.H: a CANCEL before a final response
// causes 487 on the INVITE and 200 OK on the CANCEL itself. The CANCEL
// never gets its own server transaction in this layer (spec.md §4.F), so
// its 200 OK is sent directly over the transport.
func (uas *UAS) handleCancel(inviteTx *transaction.ServerTx, cancelReq *sip.Request, remote string) {
	inviteTx.Respond(sip.NewResponseFromRequest(inviteTx.Request(), sip.StatusRequestTerminated, "Request Terminated", nil))
	_ = uas.transport.Send([]byte(sip.NewResponseFromRequest(cancelReq, sip.StatusOK, "OK", nil).String()), remote)

	call, ok := uas.calls[inviteTx]
	delete(uas.calls, inviteTx)
	if ok && uas.OnCancel != nil {
		uas.OnCancel(call.Dialog())
	}
}

func (uas *UAS) handleBye(tx *transaction.ServerTx, req *sip.Request) {
	id := dialogIDForRequest(req, true)
	d, ok := uas.dialogs.Get(id)
	if !ok {
		tx.Respond(sip.NewResponseFromRequest(req, sip.StatusCallTransactionNotExist, "Call/Transaction Does Not Exist", nil))
		return
	}
	d.Terminate()
	uas.dialogs.Delete(id)
	tx.Respond(sip.NewResponseFromRequest(req, sip.StatusOK, "OK", nil))
	if uas.OnBye != nil {
		uas.OnBye(d, req)
	}
}

func (uas *UAS) handleInfo(tx *transaction.ServerTx, req *sip.Request) {
	id := dialogIDForRequest(req, true)
	d, ok := uas.dialogs.Get(id)
	if !ok {
		tx.Respond(sip.NewResponseFromRequest(req, sip.StatusCallTransactionNotExist, "Call/Transaction Does Not Exist", nil))
		return
	}
	tx.Respond(sip.NewResponseFromRequest(req, sip.StatusOK, "OK", nil))
	if uas.OnInfo != nil {
		uas.OnInfo(d, req)
	}
}

func (uas *UAS) handleOptions(tx *transaction.ServerTx, req *sip.Request) {
	if uas.OnOptions != nil {
		res := uas.OnOptions(req)
		if res != nil {
			tx.Respond(res)
			return
		}
	}
	res := sip.NewResponseFromRequest(req, sip.StatusOK, "OK", nil)
	res.Headers().Append(allowHeader())
	tx.Respond(res)
}

// dialogIDForRequest computes the dialog ID an in-dialog request (from
// the peer) resolves to on our side: asUAS=true means we originally
// played UAS on this dialog, so our tag is the request's To tag and the
// peer's is the From tag (spec.md §4.G).
func dialogIDForRequest(req *sip.Request, asUAS bool) dialog.ID {
	fromTag, _ := req.Headers().From().Tag()
	toTag, _ := req.Headers().To().Tag()
	if asUAS {
		return dialog.ID{CallID: string(req.Headers().CallID()), LocalTag: toTag, RemoteTag: fromTag}
	}
	return dialog.ID{CallID: string(req.Headers().CallID()), LocalTag: fromTag, RemoteTag: toTag}
}

// Dialogs exposes the dialog table for introspection (e.g. by the media
// bridge or metrics layer).
func (uas *UAS) Dialogs() *dialog.Table { return uas.dialogs }
