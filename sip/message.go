package sip

import "strconv"

// RequestMethod is a SIP method token (RFC 3261 §7.1).
type RequestMethod string

const (
	INVITE    RequestMethod = "INVITE"
	ACK       RequestMethod = "ACK"
	CANCEL    RequestMethod = "CANCEL"
	BYE       RequestMethod = "BYE"
	REGISTER  RequestMethod = "REGISTER"
	OPTIONS   RequestMethod = "OPTIONS"
	SUBSCRIBE RequestMethod = "SUBSCRIBE"
	NOTIFY    RequestMethod = "NOTIFY"
	REFER     RequestMethod = "REFER"
	INFO      RequestMethod = "INFO"
	MESSAGE   RequestMethod = "MESSAGE"
	PRACK     RequestMethod = "PRACK"
	UPDATE    RequestMethod = "UPDATE"
	PUBLISH   RequestMethod = "PUBLISH"
)

// StatusCode is a SIP response status-code (RFC 3261 §7.2, §21).
type StatusCode int

const (
	StatusTrying               StatusCode = 100
	StatusRinging              StatusCode = 180
	StatusCallIsBeingForwarded StatusCode = 181
	StatusQueued               StatusCode = 182
	StatusSessionProgress      StatusCode = 183
	StatusOK                   StatusCode = 200
	StatusAccepted             StatusCode = 202
	StatusMovedPermanently     StatusCode = 301
	StatusMovedTemporarily     StatusCode = 302
	StatusUseProxy             StatusCode = 305
	StatusBadRequest           StatusCode = 400
	StatusUnauthorized         StatusCode = 401
	StatusForbidden            StatusCode = 403
	StatusNotFound             StatusCode = 404
	StatusMethodNotAllowed     StatusCode = 405
	StatusRequestTimeout       StatusCode = 408
	StatusTemporarilyUnavail   StatusCode = 480
	StatusCallTransactionNotExist StatusCode = 481
	StatusLoopDetected         StatusCode = 482
	StatusTooManyHops          StatusCode = 483
	StatusBusyHere             StatusCode = 486
	StatusRequestTerminated    StatusCode = 487
	StatusNotAcceptableHere    StatusCode = 488
	StatusServerInternalError  StatusCode = 500
	StatusNotImplemented       StatusCode = 501
	StatusServiceUnavailable   StatusCode = 503
	StatusVersionNotSupported  StatusCode = 505
	StatusBusyEverywhere       StatusCode = 600
	StatusDecline              StatusCode = 603
)

// SIPVersion is the protocol version token on the start line.
const SIPVersion = "SIP/2.0"

// Message is either a Request or a Response.
type Message interface {
	Headers() *Headers
	Body() []byte
	SetBody(body []byte)
	String() string
	IsRequest() bool
}

// messageData holds the fields common to Request and Response.
type messageData struct {
	headers *Headers
	body    []byte

	// Transport metadata set by the transport layer on receipt, or by the
	// sender before handing the message down (spec.md §4.E).
	transport string
	source    string
	dest      string
}

// newMessageData builds an empty header set with Content-Length already
// present as 0, so any constructor that never calls SetBody still
// serializes a Content-Length header (spec.md §4.C: always emitted).
func newMessageData() messageData {
	hs := NewHeaders()
	hs.Append(ContentLengthHeader(0))
	return messageData{headers: hs}
}

func (m *messageData) Headers() *Headers { return m.headers }
func (m *messageData) Body() []byte      { return m.body }

// SetBody replaces the message body and patches Content-Length to match,
// per spec.md Invariant 2.
func (m *messageData) SetBody(body []byte) {
	m.body = body
	m.headers.Remove("Content-Length")
	m.headers.Append(ContentLengthHeader(uint32(len(body))))
}

func (m *messageData) Transport() string   { return m.transport }
func (m *messageData) Source() string      { return m.source }
func (m *messageData) Destination() string { return m.dest }

func formatStatusCode(c StatusCode) string { return strconv.Itoa(int(c)) }
