package dialog

import (
	"github.com/sipagent/core/sip"
)

// NewInDialogRequest builds method as an in-dialog request on d: Request-
// URI and Route per RequestURI's loose/strict-routing decision, From/To
// tags from the dialog ID, a fresh branch, and a CSeq per spec.md §4.G
// "CSeq discipline." — ACK reuses the INVITE's CSeq instead of consuming a
// new one, so callers building an ACK should not call NextCSeq first.
func (d *Dialog) NewInDialogRequest(method sip.RequestMethod, cseq uint32, localContact sip.Uri) *sip.Request {
	requestURI, routes := d.RequestURI()
	req := sip.NewRequest(method, requestURI)

	branchParams := sip.NewParams()
	branchParams.Set("branch", sip.GenerateBranch())
	req.Headers().Append(&sip.ViaHeader{
		ProtocolName: "SIP", ProtocolVersion: "2.0", Transport: "UDP",
		Host: localContact.Host, Port: localContact.Port,
		Params: branchParams,
	})

	for _, r := range routes {
		req.Headers().Append(&sip.RouteHeader{Address: r})
	}

	// Whichever side originally sent the INVITE, a request WE originate
	// in-dialog always carries our tag as From and the peer's as To.
	fromParams := sip.NewParams()
	fromParams.Set("tag", d.ID.LocalTag)
	req.Headers().Append(&sip.FromHeader{Address: d.LocalURI, Params: fromParams})

	toParams := sip.NewParams()
	toParams.Set("tag", d.ID.RemoteTag)
	req.Headers().Append(&sip.ToHeader{Address: d.RemoteURI, Params: toParams})

	req.Headers().Append(sip.CallIDHeader(d.ID.CallID))
	req.Headers().Append(&sip.CSeqHeader{SeqNo: cseq, Method: method})
	req.Headers().Append(sip.MaxForwardsHeader(70))

	if method == sip.INVITE {
		req.Headers().Append(&sip.ContactHeader{Address: localContact})
	}

	return req
}

// NewBye builds an in-dialog BYE, consuming a new CSeq (spec.md §4.G).
func (d *Dialog) NewBye(localContact sip.Uri) *sip.Request {
	return d.NewInDialogRequest(sip.BYE, d.NextCSeq(), localContact)
}

// NewReInvite builds an in-dialog re-INVITE carrying body/contentType as
// the new offer, consuming a new CSeq.
func (d *Dialog) NewReInvite(localContact sip.Uri, body []byte, contentType string) *sip.Request {
	req := d.NewInDialogRequest(sip.INVITE, d.NextCSeq(), localContact)
	req.SetBody(body)
	req.Headers().Append(sip.ContentTypeHeader(contentType))
	return req
}

// NewInfo builds an in-dialog INFO carrying body/contentType, consuming a
// new CSeq.
func (d *Dialog) NewInfo(localContact sip.Uri, body []byte, contentType string) *sip.Request {
	req := d.NewInDialogRequest(sip.INFO, d.NextCSeq(), localContact)
	req.SetBody(body)
	req.Headers().Append(sip.ContentTypeHeader(contentType))
	return req
}
