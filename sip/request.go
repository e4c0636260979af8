package sip

import (
	"strings"
)

// Request is a SIP request message (RFC 3261 §7.1).
type Request struct {
	messageData

	Method    RequestMethod
	Recipient Uri // Request-URI
}

// NewRequest builds a bare request whose header set holds only
// Content-Length: 0; the caller is
// expected to populate Via/From/To/Call-ID/CSeq/Max-Forwards as appropriate.
func NewRequest(method RequestMethod, recipient Uri) *Request {
	return &Request{
		messageData: newMessageData(),
		Method:      method,
		Recipient:   recipient,
	}
}

func (r *Request) IsRequest() bool { return true }

func (r *Request) IsInvite() bool { return r.Method == INVITE }
func (r *Request) IsAck() bool    { return r.Method == ACK }
func (r *Request) IsCancel() bool { return r.Method == CANCEL }

// StartLine renders "METHOD sip:uri SIP/2.0".
func (r *Request) StartLine() string {
	var b strings.Builder
	b.WriteString(string(r.Method))
	b.WriteString(" ")
	r.Recipient.StringWrite(&b)
	b.WriteString(" ")
	b.WriteString(SIPVersion)
	return b.String()
}

// String renders the full message: start line, headers in canonical order
// (spec.md §4.C), blank line, body.
func (r *Request) String() string {
	var b strings.Builder
	b.WriteString(r.StartLine())
	b.WriteString("\r\n")
	for _, h := range r.Headers().Ordered() {
		h.StringWrite(&b)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	b.Write(r.Body())
	return b.String()
}

// Clone returns a deep copy, suitable for building a derived request (ACK,
// CANCEL, retransmission) without aliasing the original's headers.
func (r *Request) Clone() *Request {
	c := &Request{
		messageData: messageData{
			headers:   r.Headers().Clone(),
			body:      append([]byte(nil), r.Body()...),
			transport: r.transport,
			source:    r.source,
			dest:      r.dest,
		},
		Method:    r.Method,
		Recipient: r.Recipient.Clone(),
	}
	return c
}

// NewAckRequest builds the ACK for a non-2xx final response to an INVITE
// transaction, per RFC 3261 §17.1.1.3: same Call-ID/From/To(with tag)/Via
// (top only)/Route set as the original INVITE, CSeq number unchanged but
// method ACK, Max-Forwards reset.
func NewAckRequest(inv *Request, res *Response) *Request {
	ack := NewRequest(ACK, inv.Recipient)
	ack.transport = inv.transport
	ack.dest = inv.dest

	if via := inv.Headers().Via(); via != nil {
		v := via.headerClone().(*ViaHeader)
		ack.Headers().Append(v)
	}
	for _, route := range inv.Headers().Routes() {
		ack.Headers().Append(route.headerClone())
	}
	if from := inv.Headers().From(); from != nil {
		ack.Headers().Append(from.headerClone())
	}
	to := res.Headers().To()
	if to != nil {
		ack.Headers().Append(to.headerClone())
	}
	ack.Headers().Append(CallIDHeader(string(inv.Headers().CallID())))
	if cseq := inv.Headers().CSeq(); cseq != nil {
		ack.Headers().Append(&CSeqHeader{SeqNo: cseq.SeqNo, Method: ACK})
	}
	ack.Headers().Append(MaxForwardsHeader(70))
	return ack
}

// NewCancelRequest builds the CANCEL matching an in-flight INVITE, per RFC
// 3261 §9.1: same Request-URI, same top Via branch, same Call-ID/From/To
// (without a To tag, since no dialog exists yet), CSeq number unchanged but
// method CANCEL.
func NewCancelRequest(inv *Request) *Request {
	cancel := NewRequest(CANCEL, inv.Recipient)
	cancel.transport = inv.transport
	cancel.dest = inv.dest

	if via := inv.Headers().Via(); via != nil {
		cancel.Headers().Append(via.headerClone())
	}
	for _, route := range inv.Headers().Routes() {
		cancel.Headers().Append(route.headerClone())
	}
	if from := inv.Headers().From(); from != nil {
		cancel.Headers().Append(from.headerClone())
	}
	if to := inv.Headers().To(); to != nil {
		cancel.Headers().Append(to.headerClone())
	}
	cancel.Headers().Append(CallIDHeader(string(inv.Headers().CallID())))
	if cseq := inv.Headers().CSeq(); cseq != nil {
		cancel.Headers().Append(&CSeqHeader{SeqNo: cseq.SeqNo, Method: CANCEL})
	}
	cancel.Headers().Append(MaxForwardsHeader(70))
	return cancel
}
