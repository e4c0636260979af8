// Package sdp implements the structured Session Description Protocol model
// of spec.md §3/§4.D: parsing, building, and offer/answer negotiation for
// the audio media line this core cares about. Line-level parsing and
// marshaling is delegated to github.com/pion/sdp/v3; this package layers a
// smaller, purpose-built Session/MediaDescription/Codec model on top,
// grounded on arzzra-soft_phone/pkg/media_with_sdp/sdp_builder.go.
package sdp

import "fmt"

// Direction is a media-level direction attribute (RFC 4566 §6).
type Direction string

const (
	SendRecv Direction = "sendrecv"
	SendOnly Direction = "sendonly"
	RecvOnly Direction = "recvonly"
	Inactive Direction = "inactive"
)

// Invert returns the direction as seen from the other side of the
// negotiation (spec.md §4.D step 4).
func (d Direction) Invert() Direction {
	switch d {
	case SendOnly:
		return RecvOnly
	case RecvOnly:
		return SendOnly
	default:
		return d
	}
}

// Codec is one rtpmap entry: a payload type bound to an encoding.
type Codec struct {
	PT        uint8
	Name      string
	ClockRate uint32
	Channels  uint16
	Fmtp      string
}

// StaticCodecs are the statically-assigned payload types pre-seeded when
// absent from rtpmap, per spec.md §3 "Codec.".
var StaticCodecs = map[uint8]Codec{
	0: {PT: 0, Name: "PCMU", ClockRate: 8000, Channels: 1},
	8: {PT: 8, Name: "PCMA", ClockRate: 8000, Channels: 1},
	9: {PT: 9, Name: "G722", ClockRate: 8000, Channels: 1},
}

// IsDTMF reports whether name is the telephone-event encoding (DTMF, per
// spec.md §3/§4.D).
func IsDTMF(name string) bool { return name == "telephone-event" }

// Origin is the o= line (RFC 4566 §5.2).
type Origin struct {
	Username       string
	SessionID      uint64
	SessionVersion uint64
	NetworkType    string // "IN"
	AddressType    string // "IP4" or "IP6"
	Address        string
}

// Connection is a c= line, at session or media scope.
type Connection struct {
	NetworkType string
	AddressType string
	Address     string
}

// Timing is one t= line (RFC 4566 §5.9); NTP seconds, 0/0 meaning
// permanent/unbounded.
type Timing struct {
	Start uint64
	Stop  uint64
}

// Bandwidth is one b= line (RFC 4566 §5.8), at session or media scope.
type Bandwidth struct {
	Type  string // "CT", "AS", "TIAS", ...
	Value uint64
}

// MediaDescription is one m= section (spec.md §3 "MediaDescription.").
type MediaDescription struct {
	Type        string // "audio", "video", ...
	Port        int
	Proto       string // "RTP/AVP"
	PTs         []uint8
	Direction   Direction
	Codecs      map[uint8]Codec
	Ptime       int
	Conn        *Connection
	Bandwidth   []Bandwidth
	Fingerprint string      // opaque a=fingerprint value (e.g. "sha-256 AB:CD:...")
	Attrs       []Attribute // unrecognized attributes, preserved verbatim
}

// Attribute is a generic a= line not otherwise interpreted.
type Attribute struct {
	Key   string
	Value string
}

// Session is the structured SDP session description (spec.md §3 "SDP
// Session.").
type Session struct {
	Origin    Origin
	Name      string
	Conn      *Connection
	Timing    []Timing
	Bandwidth []Bandwidth
	Attrs     []Attribute
	Media     []MediaDescription
}

// FirstAudio returns the first audio media description, if any.
func (s *Session) FirstAudio() (*MediaDescription, bool) {
	for i := range s.Media {
		if s.Media[i].Type == "audio" {
			return &s.Media[i], true
		}
	}
	return nil, false
}

// Sentinel errors (spec.md §7).
var (
	ErrNoCommonCodec = fmt.Errorf("sdp: no common codec")
	ErrNoAudio       = fmt.Errorf("sdp: no audio media")
	ErrMalformed     = fmt.Errorf("sdp: malformed")
)
