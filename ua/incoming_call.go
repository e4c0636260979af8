// Package ua implements the UAS/UAC facades of spec.md §4.H/§4.I: glue
// between the transaction and dialog layers and the embedding
// application's callbacks/operations. Grounded on the teacher's
// server.go/client.go/ua.go (Server/UserAgent wiring pattern), generalized
// from zerolog/goroutine plumbing to the single-threaded timer.Loop model.
package ua

import (
	"strings"

	"github.com/sipagent/core/dialog"
	"github.com/sipagent/core/sdp"
	"github.com/sipagent/core/sip"
	"github.com/sipagent/core/transaction"
)

// XHeaders is an ordered case-insensitive collection of the X-* headers
// found on an incoming INVITE (spec.md §4.H: "all headers matching X-*
// ... collected into an ordered mapping").
type XHeaders struct {
	keys   []string
	values map[string]string
}

func newXHeaders(req *sip.Request) XHeaders {
	xh := XHeaders{values: make(map[string]string)}
	for _, h := range req.Headers().All() {
		if len(h.Name()) > 2 && strings.EqualFold(h.Name()[:2], "X-") {
			k := strings.ToLower(h.Name())
			if _, seen := xh.values[k]; !seen {
				xh.keys = append(xh.keys, h.Name())
			}
			xh.values[k] = h.Value()
		}
	}
	return xh
}

// Get returns the value of an X-header, case-insensitively.
func (xh XHeaders) Get(name string) (string, bool) {
	v, ok := xh.values[strings.ToLower(name)]
	return v, ok
}

// Keys returns the X-header names in first-seen order.
func (xh XHeaders) Keys() []string { return append([]string(nil), xh.keys...) }

// IncomingCall is handed to the application's on_invite callback (spec.md
// §4.H). It wraps the server transaction and the (early) dialog, and
// exposes trying/ringing/accept/reject as the only ways to answer it.
type IncomingCall struct {
	uas *UAS
	tx  *transaction.ServerTx
	req *sip.Request

	Caller  sip.Uri
	Callee  sip.Uri
	CallID  string
	Offer   *sdp.Session
	Headers XHeaders

	dlg       *dialog.Dialog
	toTag     string
	answered  bool
}

func newIncomingCall(uas *UAS, tx *transaction.ServerTx, req *sip.Request) *IncomingCall {
	call := &IncomingCall{
		uas:    uas,
		tx:     tx,
		req:    req,
		Caller: req.Headers().From().Address.Clone(),
		Callee: req.Headers().To().Address.Clone(),
		CallID: string(req.Headers().CallID()),
		Headers: newXHeaders(req),
	}
	if len(req.Body()) > 0 {
		if offer, err := sdp.Parse(req.Body()); err == nil {
			call.Offer = offer
		}
	}
	return call
}

func (c *IncomingCall) ensureToTag() string {
	if c.toTag == "" {
		c.toTag = sip.GenerateTag()
	}
	return c.toTag
}

// Trying sends an explicit 100 Trying, preempting the UAS's automatic one.
func (c *IncomingCall) Trying() {
	c.tx.Respond(sip.NewResponseFromRequest(c.req, sip.StatusTrying, "Trying", nil))
}

// Ringing sends 180 Ringing, generating a To-tag if one hasn't been picked
// yet for this (early) dialog (spec.md §4.H).
func (c *IncomingCall) Ringing() {
	res := sip.NewResponseFromRequest(c.req, sip.StatusRinging, "Ringing", nil)
	c.applyToTag(res)
	c.tx.Respond(res)
	if c.dlg == nil {
		c.dlg = dialog.NewUASDialog(c.req, c.ensureToTag(), c.uas.localContact)
		c.uas.dialogs.Put(c.dlg)
	}
}

func (c *IncomingCall) applyToTag(res *sip.Response) {
	to := res.Headers().To()
	if to != nil {
		to.Params.Set("tag", c.ensureToTag())
	}
}

// Accept sends 200 OK carrying answerSDP, with Contact set to the
// transport's local contact. This confirms the dialog (spec.md §4.H).
func (c *IncomingCall) Accept(answerSDP []byte) *dialog.Dialog {
	if c.answered {
		return c.dlg
	}
	c.answered = true

	res := sip.NewResponseFromRequest(c.req, sip.StatusOK, "OK", answerSDP)
	c.applyToTag(res)
	res.Headers().Append(sip.ContentTypeHeader("application/sdp"))
	res.Headers().Append(&sip.ContactHeader{Address: c.uas.localContact})
	c.tx.Respond(res)

	if c.dlg == nil {
		c.dlg = dialog.NewUASDialog(c.req, c.ensureToTag(), c.uas.localContact)
	}
	// res carries our own Contact, so the remote target stays the one taken
	// from the INVITE.
	c.dlg.ConfirmFromRequest(c.req)
	c.uas.dialogs.Put(c.dlg)
	delete(c.uas.calls, c.tx)
	return c.dlg
}

// Reject sends a final non-2xx response (3xx-6xx), completing the server
// transaction without confirming a dialog.
func (c *IncomingCall) Reject(code sip.StatusCode, reason string) {
	if c.answered {
		return
	}
	c.answered = true
	res := sip.NewResponseFromRequest(c.req, code, reason, nil)
	c.applyToTag(res)
	c.tx.Respond(res)
	delete(c.uas.calls, c.tx)
}

// Dialog returns the early or confirmed dialog once Ringing or Accept has
// been called; nil beforehand.
func (c *IncomingCall) Dialog() *dialog.Dialog { return c.dlg }
