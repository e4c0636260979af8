// Package dialog implements the RFC 3261 §12 dialog layer of spec.md §4.G:
// dialog identification, route-set computation, CSeq discipline, and
// target refresh. Grounded on the teacher's dialog.go/dialog_client.go/
// dialog_server.go (Dialog/DialogClientSession/DialogServerSession),
// generalized from the teacher's atomic-field/goroutine-safe style to the
// plain, unlocked single-threaded loop spec.md §5 mandates — a Dialog is
// only ever touched from the loop thread.
package dialog

import (
	"errors"
	"math/rand"

	"github.com/sipagent/core/sip"
)

// State is a dialog's lifecycle stage (spec.md §3 "Dialog.").
type State int

const (
	Early State = iota
	Confirmed
	Terminated
)

func (s State) String() string {
	switch s {
	case Early:
		return "Early"
	case Confirmed:
		return "Confirmed"
	case Terminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// ID identifies a dialog by (Call-ID, local-tag, remote-tag), per
// spec.md §4.G.
type ID struct {
	CallID    string
	LocalTag  string
	RemoteTag string
}

// Sentinel errors (spec.md §7).
var (
	ErrUnknownDialog  = errors.New("dialog: not found")
	ErrInvalidCSeq    = errors.New("dialog: invalid cseq")
	ErrMissingContact = errors.New("dialog: missing contact header")
)

// Dialog is one RFC 3261 §12 dialog.
type Dialog struct {
	ID ID

	LocalURI  sip.Uri
	RemoteURI sip.Uri

	LocalCSeq  uint32
	RemoteCSeq uint32

	LocalTarget  sip.Uri // our Contact, advertised to the peer
	RemoteTarget sip.Uri // peer's Contact, target-refreshed from 2xx

	RouteSet []sip.Uri // ordered, per spec.md §4.G "Route set."
	Secure   bool

	State State

	isUAS bool
}

// NewUASDialog builds the (early) dialog for a server-side INVITE: the
// local tag is the To tag we generated, the remote tag is the From tag of
// the request, per spec.md §4.G "Dialog ID.".
func NewUASDialog(req *sip.Request, toTag string, localTarget sip.Uri) *Dialog {
	fromTag, _ := req.Headers().From().Tag()
	d := &Dialog{
		ID: ID{
			CallID:    string(req.Headers().CallID()),
			LocalTag:  toTag,
			RemoteTag: fromTag,
		},
		LocalURI:     req.Headers().To().Address.Clone(),
		RemoteURI:    req.Headers().From().Address.Clone(),
		RemoteTarget: firstContactURI(req),
		LocalTarget:  localTarget,
		LocalCSeq:    randomInitialCSeq(),
		RemoteCSeq:   req.Headers().CSeq().SeqNo,
		Secure:       req.Recipient.Secure,
		State:        Early,
		isUAS:        true,
	}
	d.RouteSet = routeSetFromRecordRoutes(req.Headers().RecordRoutes(), false)
	return d
}

// NewUACDialog builds the (early) dialog for a client-side INVITE from its
// 1xx/2xx response: the local tag is the From tag we generated, the
// remote tag is the response's To tag (swapped from the UAS case, per
// spec.md §4.G).
func NewUACDialog(req *sip.Request, res *sip.Response, localTarget sip.Uri) *Dialog {
	fromTag, _ := req.Headers().From().Tag()
	toTag, _ := res.Headers().To().Tag()
	d := &Dialog{
		ID: ID{
			CallID:    string(req.Headers().CallID()),
			LocalTag:  fromTag,
			RemoteTag: toTag,
		},
		LocalURI:     req.Headers().From().Address.Clone(),
		RemoteURI:    req.Headers().To().Address.Clone(),
		RemoteTarget: firstContactURI(res),
		LocalTarget:  localTarget,
		LocalCSeq:    req.Headers().CSeq().SeqNo,
		RemoteCSeq:   0,
		Secure:       req.Recipient.Secure,
		State:        Early,
		isUAS:        false,
	}
	d.RouteSet = routeSetFromRecordRoutes(res.Headers().RecordRoutes(), true)
	return d
}

func firstContactURI(msg sip.Message) sip.Uri {
	contacts := msg.Headers().Contacts()
	if len(contacts) == 0 {
		return sip.Uri{}
	}
	return contacts[0].Address
}

// routeSetFromRecordRoutes builds the route-set in the order spec.md §4.G
// requires: UAS keeps Record-Route order from the request; UAC reverses
// the Record-Route order from the response.
func routeSetFromRecordRoutes(rrs []*sip.RecordRouteHeader, reverse bool) []sip.Uri {
	set := make([]sip.Uri, 0, len(rrs))
	for _, rr := range rrs {
		set = append(set, rr.Address.Clone())
	}
	if reverse {
		for i, j := 0, len(set)-1; i < j; i, j = i+1, j-1 {
			set[i], set[j] = set[j], set[i]
		}
	}
	return set
}

// randomInitialCSeq returns a random 31-bit starting CSeq, per spec.md
// §4.G "CSeq discipline.".
func randomInitialCSeq() uint32 {
	return uint32(rand.Int31())
}

// Confirm transitions the dialog to Confirmed and applies target refresh
// from res's Contact, per spec.md §4.G "Target refresh." (called on the
// 2xx to the initial INVITE or a re-INVITE).
func (d *Dialog) Confirm(res *sip.Response) {
	if c := firstContactURI(res); c.Host != "" {
		d.RemoteTarget = c
	}
	d.State = Confirmed
}

// ConfirmFromRequest is Confirm's UAS-side counterpart: target refresh
// from a re-INVITE's Contact.
func (d *Dialog) ConfirmFromRequest(req *sip.Request) {
	if c := firstContactURI(req); c.Host != "" {
		d.RemoteTarget = c
	}
	d.State = Confirmed
}

// Terminate marks the dialog Terminated (BYE completion, non-2xx final to
// the initial INVITE, or local timeout per spec.md §3 "Dialog.").
func (d *Dialog) Terminate() { d.State = Terminated }

// NextCSeq increments and returns the local CSeq for a new in-dialog
// request (BYE, re-INVITE, INFO each consume a new value; spec.md §4.G).
func (d *Dialog) NextCSeq() uint32 {
	d.LocalCSeq++
	return d.LocalCSeq
}

// RequestURI computes the Request-URI and effective Route header list for
// an in-dialog request, applying loose- vs strict-routing per spec.md
// §4.G: if the route-set's top URI carries ";lr", the request-URI is the
// remote target and Route carries the route-set verbatim; otherwise
// strict-route rewriting applies (remote target pushed onto Route, top
// Route becomes the request-URI).
func (d *Dialog) RequestURI() (requestURI sip.Uri, routes []sip.Uri) {
	if len(d.RouteSet) == 0 {
		return d.RemoteTarget, nil
	}
	top := d.RouteSet[0]
	if top.UriParams.Has("lr") {
		return d.RemoteTarget, append([]sip.Uri(nil), d.RouteSet...)
	}
	// strict routing: request-URI becomes the top route, and the actual
	// target is appended to the end of the (rest-of-set) Route list.
	routes = append(append([]sip.Uri(nil), d.RouteSet[1:]...), d.RemoteTarget)
	return top, routes
}

// IsUAS reports whether this dialog was created from a server transaction.
func (d *Dialog) IsUAS() bool { return d.isUAS }
