package sip

import "strings"

// Response is a SIP response message (RFC 3261 §7.2).
type Response struct {
	messageData

	StatusCode StatusCode
	Reason     string
}

func NewResponse(code StatusCode, reason string) *Response {
	return &Response{messageData: newMessageData(), StatusCode: code, Reason: reason}
}

func (r *Response) IsRequest() bool { return false }

func (r *Response) IsProvisional() bool { return r.StatusCode >= 100 && r.StatusCode < 200 }
func (r *Response) IsSuccess() bool     { return r.StatusCode >= 200 && r.StatusCode < 300 }
func (r *Response) IsRedirection() bool { return r.StatusCode >= 300 && r.StatusCode < 400 }
func (r *Response) IsClientError() bool { return r.StatusCode >= 400 && r.StatusCode < 500 }
func (r *Response) IsServerError() bool { return r.StatusCode >= 500 && r.StatusCode < 600 }
func (r *Response) IsGlobalError() bool { return r.StatusCode >= 600 }
func (r *Response) IsFinal() bool       { return r.StatusCode >= 200 }

func (r *Response) StartLine() string {
	var b strings.Builder
	b.WriteString(SIPVersion)
	b.WriteString(" ")
	b.WriteString(formatStatusCode(r.StatusCode))
	b.WriteString(" ")
	b.WriteString(r.Reason)
	return b.String()
}

func (r *Response) String() string {
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

func (r *Response) Clone() *Response {
	return &Response{
		messageData: messageData{
			headers:   r.Headers().Clone(),
			body:      append([]byte(nil), r.Body()...),
			transport: r.transport,
			source:    r.source,
			dest:      r.dest,
		},
		StatusCode: r.StatusCode,
		Reason:     r.Reason,
	}
}

// NewResponseFromRequest builds the skeleton of a response for req: copies
// Record-Route, all Via (topmost first), From, To, Call-ID, and CSeq, per
// RFC 3261 §8.2.6.2. A To tag is generated unless the response is a 100
// Trying to an INVITE, preserving the rule that provisional-100 need not
// commit to a dialog.
func NewResponseFromRequest(req *Request, code StatusCode, reason string, body []byte) *Response {
	res := NewResponse(code, reason)
	res.transport = req.transport
	res.source = req.dest
	res.dest = req.source

	for _, via := range req.Headers().AllVia() {
		res.Headers().Append(via.headerClone())
	}
	for _, rr := range req.Headers().RecordRoutes() {
		res.Headers().Append(rr.headerClone())
	}
	if from := req.Headers().From(); from != nil {
		res.Headers().Append(from.headerClone())
	}
	if to := req.Headers().To(); to != nil {
		toClone := to.headerClone().(*ToHeader)
		if !(code == StatusTrying && req.Method == INVITE) {
			if _, hasTag := toClone.Params.Get("tag"); !hasTag {
				toClone.Params.Set("tag", GenerateTag())
			}
		}
		res.Headers().Append(toClone)
	}
	res.Headers().Append(CallIDHeader(string(req.Headers().CallID())))
	if cseq := req.Headers().CSeq(); cseq != nil {
		res.Headers().Append(&CSeqHeader{SeqNo: cseq.SeqNo, Method: cseq.Method})
	}
	// SetBody always (re)sets Content-Length, even to 0 for a bodyless
	// response (spec.md §4.C: Content-Length is always emitted).
	res.SetBody(body)
	return res
}
