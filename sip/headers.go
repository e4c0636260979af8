package sip

import (
	"io"
	"sort"
	"strconv"
	"strings"
)

// Header is any header field on a SIP message.
type Header interface {
	Name() string
	Value() string
	StringWrite(w io.StringWriter)
	headerClone() Header
}

// compactNames maps the RFC 3261 §7.3.3 compact forms to their full names.
var compactNames = map[string]string{
	"v": "Via",
	"f": "From",
	"t": "To",
	"m": "Contact",
	"i": "Call-ID",
	"l": "Content-Length",
	"c": "Content-Type",
	"s": "Subject",
	"k": "Supported",
	"e": "Content-Encoding",
}

// expandCompactName returns the canonical header name for name, expanding a
// single-letter compact form if one matches (case-insensitively).
func expandCompactName(name string) string {
	if full, ok := compactNames[strings.ToLower(name)]; ok {
		return full
	}
	return name
}

// GenericHeader is any header without a dedicated typed representation.
type GenericHeader struct {
	HName  string
	HValue string
}

func NewHeader(name, value string) *GenericHeader {
	return &GenericHeader{HName: expandCompactName(name), HValue: value}
}

func (h *GenericHeader) Name() string  { return h.HName }
func (h *GenericHeader) Value() string { return h.HValue }
func (h *GenericHeader) StringWrite(w io.StringWriter) {
	w.WriteString(h.HName)
	w.WriteString(": ")
	w.WriteString(h.HValue)
}
func (h *GenericHeader) headerClone() Header {
	c := *h
	return &c
}

// FromHeader / ToHeader represent From: and To:, each a display-name + URI +
// tag parameter.
type FromHeader struct {
	DisplayName string
	Address     Uri
	Params      Params
}

func (h *FromHeader) Name() string { return "From" }
func (h *FromHeader) Value() string {
	var b strings.Builder
	h.StringWrite(&b)
	return b.String()
}
func (h *FromHeader) StringWrite(w io.StringWriter) {
	writeNameAddr(w, h.DisplayName, h.Address, h.Params)
}
func (h *FromHeader) headerClone() Header {
	return &FromHeader{DisplayName: h.DisplayName, Address: h.Address.Clone(), Params: h.Params.Clone()}
}
func (h *FromHeader) Tag() (string, bool) { return h.Params.Get("tag") }

type ToHeader struct {
	DisplayName string
	Address     Uri
	Params      Params
}

func (h *ToHeader) Name() string { return "To" }
func (h *ToHeader) Value() string {
	var b strings.Builder
	h.StringWrite(&b)
	return b.String()
}
func (h *ToHeader) StringWrite(w io.StringWriter) {
	writeNameAddr(w, h.DisplayName, h.Address, h.Params)
}
func (h *ToHeader) headerClone() Header {
	return &ToHeader{DisplayName: h.DisplayName, Address: h.Address.Clone(), Params: h.Params.Clone()}
}
func (h *ToHeader) Tag() (string, bool) { return h.Params.Get("tag") }

func writeNameAddr(w io.StringWriter, displayName string, u Uri, params Params) {
	if displayName != "" {
		w.WriteString("\"")
		w.WriteString(displayName)
		w.WriteString("\" ")
	}
	w.WriteString("<")
	u.StringWrite(w)
	w.WriteString(">")
	if params.Len() > 0 {
		w.WriteString(";")
		params.ToStringWrite(';', w)
	}
}

// ContactHeader represents one Contact: value. Multiple contacts are
// represented as multiple Headers entries (never a comma-joined linked list)
// to keep the ordered-header model uniform (spec.md §3 round-trip rule).
type ContactHeader struct {
	DisplayName string
	Address     Uri
	Params      Params
	Star        bool // Contact: *
}

func (h *ContactHeader) Name() string { return "Contact" }
func (h *ContactHeader) Value() string {
	var b strings.Builder
	h.StringWrite(&b)
	return b.String()
}
func (h *ContactHeader) StringWrite(w io.StringWriter) {
	if h.Star {
		w.WriteString("*")
		return
	}
	writeNameAddr(w, h.DisplayName, h.Address, h.Params)
}
func (h *ContactHeader) headerClone() Header {
	return &ContactHeader{DisplayName: h.DisplayName, Address: h.Address.Clone(), Params: h.Params.Clone(), Star: h.Star}
}

// ViaHeader represents one Via: value (one hop). Multiple Via headers on a
// message are multiple Headers entries, topmost first.
type ViaHeader struct {
	ProtocolName    string // "SIP"
	ProtocolVersion string // "2.0"
	Transport       string // UDP, TCP
	Host            string
	Port            int
	Params          Params
}

func (h *ViaHeader) Name() string { return "Via" }
func (h *ViaHeader) Value() string {
	var b strings.Builder
	h.StringWrite(&b)
	return b.String()
}
func (h *ViaHeader) StringWrite(w io.StringWriter) {
	w.WriteString(h.ProtocolName)
	w.WriteString("/")
	w.WriteString(h.ProtocolVersion)
	w.WriteString("/")
	w.WriteString(strings.ToUpper(h.Transport))
	w.WriteString(" ")
	w.WriteString(h.Host)
	if h.Port > 0 {
		w.WriteString(":")
		w.WriteString(strconv.Itoa(h.Port))
	}
	if h.Params.Len() > 0 {
		w.WriteString(";")
		h.Params.ToStringWrite(';', w)
	}
}
func (h *ViaHeader) headerClone() Header {
	return &ViaHeader{
		ProtocolName: h.ProtocolName, ProtocolVersion: h.ProtocolVersion,
		Transport: h.Transport, Host: h.Host, Port: h.Port, Params: h.Params.Clone(),
	}
}
func (h *ViaHeader) Branch() (string, bool) { return h.Params.Get("branch") }

// CallIDHeader is Call-ID:.
type CallIDHeader string

func (h CallIDHeader) Name() string                  { return "Call-ID" }
func (h CallIDHeader) Value() string                 { return string(h) }
func (h CallIDHeader) StringWrite(w io.StringWriter) { w.WriteString("Call-ID: "); w.WriteString(string(h)) }
func (h CallIDHeader) headerClone() Header           { return h }

// CSeqHeader is CSeq:.
type CSeqHeader struct {
	SeqNo  uint32
	Method RequestMethod
}

func (h *CSeqHeader) Name() string { return "CSeq" }
func (h *CSeqHeader) Value() string {
	return strconv.FormatUint(uint64(h.SeqNo), 10) + " " + string(h.Method)
}
func (h *CSeqHeader) StringWrite(w io.StringWriter) {
	w.WriteString("CSeq: ")
	w.WriteString(h.Value())
}
func (h *CSeqHeader) headerClone() Header {
	c := *h
	return &c
}

// MaxForwardsHeader is Max-Forwards:.
type MaxForwardsHeader uint32

func (h MaxForwardsHeader) Name() string  { return "Max-Forwards" }
func (h MaxForwardsHeader) Value() string { return strconv.FormatUint(uint64(h), 10) }
func (h MaxForwardsHeader) StringWrite(w io.StringWriter) {
	w.WriteString("Max-Forwards: ")
	w.WriteString(h.Value())
}
func (h MaxForwardsHeader) headerClone() Header { return h }

// ContentLengthHeader is Content-Length:.
type ContentLengthHeader uint32

func (h ContentLengthHeader) Name() string  { return "Content-Length" }
func (h ContentLengthHeader) Value() string { return strconv.FormatUint(uint64(h), 10) }
func (h ContentLengthHeader) StringWrite(w io.StringWriter) {
	w.WriteString("Content-Length: ")
	w.WriteString(h.Value())
}
func (h ContentLengthHeader) headerClone() Header { return h }

// ContentTypeHeader is Content-Type:.
type ContentTypeHeader string

func (h ContentTypeHeader) Name() string  { return "Content-Type" }
func (h ContentTypeHeader) Value() string { return string(h) }
func (h ContentTypeHeader) StringWrite(w io.StringWriter) {
	w.WriteString("Content-Type: ")
	w.WriteString(string(h))
}
func (h ContentTypeHeader) headerClone() Header { return h }

// RouteHeader / RecordRouteHeader each carry a single URI (one hop); a
// message with several such hops carries several Headers entries in order.
type RouteHeader struct {
	Address Uri
}

func (h *RouteHeader) Name() string  { return "Route" }
func (h *RouteHeader) Value() string { return "<" + h.Address.String() + ">" }
func (h *RouteHeader) StringWrite(w io.StringWriter) {
	w.WriteString("Route: <")
	h.Address.StringWrite(w)
	w.WriteString(">")
}
func (h *RouteHeader) headerClone() Header { return &RouteHeader{Address: h.Address.Clone()} }

type RecordRouteHeader struct {
	Address Uri
}

func (h *RecordRouteHeader) Name() string  { return "Record-Route" }
func (h *RecordRouteHeader) Value() string { return "<" + h.Address.String() + ">" }
func (h *RecordRouteHeader) StringWrite(w io.StringWriter) {
	w.WriteString("Record-Route: <")
	h.Address.StringWrite(w)
	w.WriteString(">")
}
func (h *RecordRouteHeader) headerClone() Header {
	return &RecordRouteHeader{Address: h.Address.Clone()}
}

// AllowHeader is Allow: a token list of methods the sender supports (RFC
// 3261 §20.5). Compact and long forms parse to this same structured type
// (spec.md §4.B).
type AllowHeader []RequestMethod

func (h *AllowHeader) Name() string { return "Allow" }
func (h *AllowHeader) Value() string {
	names := make([]string, len(*h))
	for i, m := range *h {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}
func (h *AllowHeader) StringWrite(w io.StringWriter) {
	w.WriteString("Allow: ")
	w.WriteString(h.Value())
}
func (h *AllowHeader) headerClone() Header {
	c := append(AllowHeader(nil), *h...)
	return &c
}

// SupportedHeader is Supported: a token list of option tags (RFC 3261
// §20.37); "k" is its compact name. Compact and long forms parse to this
// same structured type (spec.md §4.B).
type SupportedHeader []string

func (h *SupportedHeader) Name() string { return "Supported" }
func (h *SupportedHeader) Value() string {
	return strings.Join([]string(*h), ", ")
}
func (h *SupportedHeader) StringWrite(w io.StringWriter) {
	w.WriteString("Supported: ")
	w.WriteString(h.Value())
}
func (h *SupportedHeader) headerClone() Header {
	c := append(SupportedHeader(nil), *h...)
	return &c
}

// headerOrder assigns each header name its slot in the canonical wire
// order of spec.md §4.C (Via, Max-Forwards, From, To, Call-ID, CSeq,
// Contact, Route/Record-Route, Allow, Supported, Content-Type, ...,
// Content-Length last). Headers with no entry float between Content-Type
// and Content-Length, same as the teacher treats any header it doesn't
// recognize by name.
var headerOrder = map[string]int{
	"Via":            0,
	"Max-Forwards":   1,
	"From":           2,
	"To":             3,
	"Call-ID":        4,
	"CSeq":           5,
	"Contact":        6,
	"Route":          7,
	"Record-Route":   7,
	"Allow":          8,
	"Supported":      9,
	"Content-Type":   10,
}

const (
	defaultHeaderPriority = 500
	contentLengthPriority = 1000
)

func headerPriority(name string) int {
	if name == "Content-Length" {
		return contentLengthPriority
	}
	if p, ok := headerOrder[name]; ok {
		return p
	}
	return defaultHeaderPriority
}

// Headers is the ordered header-field store of a Message (spec.md §3, §4.B).
// It preserves insertion order for round-trip fidelity while caching typed
// pointers to the handful of headers the transaction/dialog layers need on
// every message (Via/From/To/Call-ID/CSeq), the way
// the teacher's internal `headers` struct does.
type Headers struct {
	order []Header

	via    []*ViaHeader
	from   *FromHeader
	to     *ToHeader
	callID CallIDHeader
	cseq   *CSeqHeader
}

func NewHeaders() *Headers { return &Headers{order: make([]Header, 0, 8)} }

// Append adds h at the end of the header order (bottommost Via etc.).
func (hs *Headers) Append(h Header) {
	hs.order = append(hs.order, h)
	hs.reindex(h)
}

// Prepend adds h at the front (e.g. pushing a new topmost Via).
func (hs *Headers) Prepend(h Header) {
	hs.order = append([]Header{h}, hs.order...)
	if v, ok := h.(*ViaHeader); ok {
		hs.via = append([]*ViaHeader{v}, hs.via...)
		return
	}
	hs.reindex(h)
}

func (hs *Headers) reindex(h Header) {
	switch v := h.(type) {
	case *ViaHeader:
		hs.via = append(hs.via, v)
	case *FromHeader:
		hs.from = v
	case *ToHeader:
		hs.to = v
	case CallIDHeader:
		hs.callID = v
	case *CSeqHeader:
		hs.cseq = v
	}
}

// All returns every header in insertion/parse order, unsorted. Most
// callers serializing a full message want Ordered instead.
func (hs *Headers) All() []Header { return hs.order }

// Ordered returns every header sorted into the canonical wire order of
// spec.md §4.C. The sort is stable, so headers that share a priority
// (e.g. several Via or Record-Route entries) keep their relative order.
func (hs *Headers) Ordered() []Header {
	out := append([]Header(nil), hs.order...)
	sort.SliceStable(out, func(i, j int) bool {
		return headerPriority(out[i].Name()) < headerPriority(out[j].Name())
	})
	return out
}

// GetAll returns every header with the given (canonical) name, in order.
func (hs *Headers) GetAll(name string) []Header {
	name = expandCompactName(name)
	var out []Header
	for _, h := range hs.order {
		if strings.EqualFold(h.Name(), name) {
			out = append(out, h)
		}
	}
	return out
}

// Get returns the first header with the given name.
func (hs *Headers) Get(name string) (Header, bool) {
	name = expandCompactName(name)
	for _, h := range hs.order {
		if strings.EqualFold(h.Name(), name) {
			return h, true
		}
	}
	return nil, false
}

// Remove deletes every header with the given name.
func (hs *Headers) Remove(name string) {
	name = expandCompactName(name)
	out := hs.order[:0]
	for _, h := range hs.order {
		if !strings.EqualFold(h.Name(), name) {
			out = append(out, h)
		}
	}
	hs.order = out
	hs.rebuildCache()
}

func (hs *Headers) rebuildCache() {
	hs.via = nil
	hs.from = nil
	hs.to = nil
	hs.callID = ""
	hs.cseq = nil
	for _, h := range hs.order {
		hs.reindex(h)
	}
}

func (hs *Headers) Via() *ViaHeader {
	if len(hs.via) == 0 {
		return nil
	}
	return hs.via[0]
}

func (hs *Headers) AllVia() []*ViaHeader { return hs.via }
func (hs *Headers) From() *FromHeader    { return hs.from }
func (hs *Headers) To() *ToHeader        { return hs.to }
func (hs *Headers) CallID() CallIDHeader { return hs.callID }
func (hs *Headers) CSeq() *CSeqHeader    { return hs.cseq }

// Allow returns every Allow token across all Allow header entries, in
// order (a message may carry several comma-split or repeated entries).
func (hs *Headers) Allow() []RequestMethod {
	var out []RequestMethod
	for _, h := range hs.order {
		if a, ok := h.(*AllowHeader); ok {
			out = append(out, (*a)...)
		}
	}
	return out
}

// Supported returns every option tag across all Supported header entries,
// in order.
func (hs *Headers) Supported() []string {
	var out []string
	for _, h := range hs.order {
		if s, ok := h.(*SupportedHeader); ok {
			out = append(out, (*s)...)
		}
	}
	return out
}

func (hs *Headers) Contacts() []*ContactHeader {
	var out []*ContactHeader
	for _, h := range hs.order {
		if c, ok := h.(*ContactHeader); ok {
			out = append(out, c)
		}
	}
	return out
}

func (hs *Headers) Routes() []*RouteHeader {
	var out []*RouteHeader
	for _, h := range hs.order {
		if r, ok := h.(*RouteHeader); ok {
			out = append(out, r)
		}
	}
	return out
}

func (hs *Headers) RecordRoutes() []*RecordRouteHeader {
	var out []*RecordRouteHeader
	for _, h := range hs.order {
		if r, ok := h.(*RecordRouteHeader); ok {
			out = append(out, r)
		}
	}
	return out
}

// Clone returns an independent deep copy of the header set.
func (hs *Headers) Clone() *Headers {
	c := NewHeaders()
	for _, h := range hs.order {
		c.Append(h.headerClone())
	}
	return c
}
