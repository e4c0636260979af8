package ua

import (
	"github.com/sipagent/core/dialog"
	"github.com/sipagent/core/sip"
	"github.com/sipagent/core/timer"
	"github.com/sipagent/core/transaction"
	"github.com/sipagent/core/transport"
)

// UAC is the outgoing-operation facade of spec.md §4.I: it constructs
// in-dialog requests per the dialog layer's rules and hands them to the
// transaction machinery, reporting completion via a Completion handle.
type UAC struct {
	loop      *timer.Loop
	transport transport.Transport
	txLayer   *transaction.Layer
	dialogs   *dialog.Table

	localContact sip.Uri
}

// NewUAC wires a transaction.Layer over tp for outbound operations.
func NewUAC(loop *timer.Loop, tp transport.Transport, localContact sip.Uri) *UAC {
	return &UAC{
		loop:         loop,
		transport:    tp,
		txLayer:      transaction.NewLayer(loop),
		dialogs:      dialog.NewTable(),
		localContact: localContact,
	}
}

// HandleInbound feeds one transport.Inbound message through the
// transaction layer; call this from the application's read loop.
func (uac *UAC) HandleInbound(in transport.Inbound) {
	uac.txLayer.HandleInbound(uac.transport, in)
}

// Dialogs exposes the dialog table for introspection.
func (uac *UAC) Dialogs() *dialog.Table { return uac.dialogs }

func (uac *UAC) sendInDialog(req *sip.Request, remote string) *Completion {
	c := newCompletion()
	uac.txLayer.Send(uac.transport, req, remote,
		func(res *sip.Response) {
			if res.IsFinal() {
				c.resolve(res, nil)
			}
		},
		func(err error) {
			if err != nil {
				c.resolve(nil, err)
			}
		},
	)
	return c
}

// Invite starts a new call: builds and sends an initial INVITE carrying
// offerSDP, tracking the (early) dialog as provisional/final responses
// arrive. onProvisional/onFinal may be nil.
func (uac *UAC) Invite(recipient sip.Uri, remote string, offerSDP []byte, contentType string, onProvisional func(*dialog.Dialog, *sip.Response), onFinal func(*dialog.Dialog, *sip.Response, error)) *transaction.ClientTx {
	req := buildInitialInvite(recipient, uac.localContact, offerSDP, contentType)
	origCSeq := req.Headers().CSeq().SeqNo

	// Each distinct remote (To) tag seen across provisional responses is a
	// distinct early dialog; at most one is ever confirmed (spec.md §4.G
	// "Early-dialog handling.").
	early := make(map[string]*dialog.Dialog)

	tx := uac.txLayer.Send(uac.transport, req, remote,
		func(res *sip.Response) {
			toTag, _ := res.Headers().To().Tag()
			d, ok := early[toTag]
			if !ok {
				d = dialog.NewUACDialog(req, res, uac.localContact)
				early[toTag] = d
				uac.dialogs.Put(d)
			}

			if res.IsProvisional() {
				if onProvisional != nil {
					onProvisional(d, res)
				}
				return
			}

			if res.IsSuccess() {
				d.Confirm(res)
				for tag, other := range early {
					if tag != toTag {
						uac.dialogs.Delete(other.ID)
					}
				}
				ack := d.NewInDialogRequest(sip.ACK, origCSeq, uac.localContact)
				_ = uac.transport.Send([]byte(ack.String()), remote)
			} else {
				uac.dialogs.Delete(d.ID)
			}
			if onFinal != nil {
				onFinal(d, res, nil)
			}
		},
		func(err error) {
			if err != nil && onFinal != nil {
				onFinal(nil, nil, err)
			}
		},
	)
	return tx
}

func buildInitialInvite(recipient, localContact sip.Uri, body []byte, contentType string) *sip.Request {
	req := sip.NewRequest(sip.INVITE, recipient)

	branchParams := sip.NewParams()
	branchParams.Set("branch", sip.GenerateBranch())
	req.Headers().Append(&sip.ViaHeader{
		ProtocolName: "SIP", ProtocolVersion: "2.0", Transport: "UDP",
		Host: localContact.Host, Port: localContact.Port, Params: branchParams,
	})
	req.Headers().Append(sip.MaxForwardsHeader(70))

	fromParams := sip.NewParams()
	fromParams.Set("tag", sip.GenerateTag())
	req.Headers().Append(&sip.FromHeader{Address: localContact, Params: fromParams})
	req.Headers().Append(&sip.ToHeader{Address: recipient, Params: sip.NewParams()})
	req.Headers().Append(sip.CallIDHeader(sip.GenerateCallID(localContact.Host)))
	req.Headers().Append(&sip.CSeqHeader{SeqNo: 1, Method: sip.INVITE})
	req.Headers().Append(&sip.ContactHeader{Address: localContact})
	if len(body) > 0 {
		req.Headers().Append(sip.ContentTypeHeader(contentType))
		req.SetBody(body)
	}
	return req
}

// SendBye sends an in-dialog BYE and terminates the dialog locally once
// the request completes (spec.md §4.I).
func (uac *UAC) SendBye(d *dialog.Dialog, remote string) *Completion {
	req := d.NewBye(uac.localContact)
	c := uac.sendInDialog(req, remote)
	c.OnDone(func(*sip.Response, error) {
		d.Terminate()
		uac.dialogs.Delete(d.ID)
	})
	return c
}

// SendReinvite sends a re-INVITE carrying a new offer; on a 2xx the
// dialog's remote target is refreshed from Contact (spec.md §4.G).
func (uac *UAC) SendReinvite(d *dialog.Dialog, remote string, offerSDP []byte, contentType string) *Completion {
	req := d.NewReInvite(uac.localContact, offerSDP, contentType)
	c := uac.sendInDialog(req, remote)
	c.OnDone(func(res *sip.Response, err error) {
		if err == nil && res != nil && res.IsSuccess() {
			d.Confirm(res)
		}
	})
	return c
}

// SendInfo sends an in-dialog INFO carrying body/contentType.
func (uac *UAC) SendInfo(d *dialog.Dialog, remote string, body []byte, contentType string) *Completion {
	req := d.NewInfo(uac.localContact, body, contentType)
	return uac.sendInDialog(req, remote)
}

// SendCancel sends CANCEL for a pending client INVITE transaction. It is
// only valid once the transaction is ReadyForCancel (spec.md §4.F
// "Cancellation."); otherwise ErrNotReadyForCancel is returned and the
// caller should retry once a provisional response arrives.
func (uac *UAC) SendCancel(tx *transaction.ClientTx) error {
	if !tx.ReadyForCancel() {
		return ErrNotReadyForCancel
	}
	cancel := sip.NewCancelRequest(tx.Request())
	return uac.transport.Send([]byte(cancel.String()), tx.Remote())
}
