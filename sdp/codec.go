package sdp

import (
	"fmt"
	"strconv"
	"strings"

	pionsdp "github.com/pion/sdp/v3"
)

// Parse decodes raw SDP bytes into a Session, per spec.md §4.D "Parse.".
// Line-level decoding (CRLF or LF terminated, per RFC 4566) is delegated to
// pion/sdp/v3; unrecognized attributes are preserved verbatim on the
// nearest scope.
func Parse(data []byte) (*Session, error) {
	var wire pionsdp.SessionDescription
	if err := wire.Unmarshal(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	s := &Session{
		Origin: Origin{
			Username:       wire.Origin.Username,
			SessionID:      wire.Origin.SessionID,
			SessionVersion: wire.Origin.SessionVersion,
			NetworkType:    wire.Origin.NetworkType,
			AddressType:    wire.Origin.AddressType,
			Address:        wire.Origin.UnicastAddress,
		},
		Name: string(wire.SessionName),
	}
	if wire.ConnectionInformation != nil {
		s.Conn = connFromWire(wire.ConnectionInformation)
	}
	for _, t := range wire.TimeDescriptions {
		s.Timing = append(s.Timing, Timing{Start: t.Timing.StartTime, Stop: t.Timing.StopTime})
	}
	for _, b := range wire.Bandwidth {
		s.Bandwidth = append(s.Bandwidth, Bandwidth{Type: b.Type, Value: b.Bandwidth})
	}
	for _, a := range wire.Attributes {
		s.Attrs = append(s.Attrs, Attribute{Key: a.Key, Value: a.Value})
	}

	for _, m := range wire.MediaDescriptions {
		md := MediaDescription{
			Type:      m.MediaName.Media,
			Port:      m.MediaName.Port.Value,
			Proto:     strings.Join(m.MediaName.Protos, "/"),
			Direction: SendRecv,
			Codecs:    map[uint8]Codec{},
		}
		for _, f := range m.MediaName.Formats {
			n, err := strconv.ParseUint(f, 10, 8)
			if err != nil {
				return nil, fmt.Errorf("%w: bad payload type %q", ErrMalformed, f)
			}
			md.PTs = append(md.PTs, uint8(n))
		}
		if m.ConnectionInformation != nil {
			md.Conn = connFromWire(m.ConnectionInformation)
		}
		for _, b := range m.Bandwidth {
			md.Bandwidth = append(md.Bandwidth, Bandwidth{Type: b.Type, Value: b.Bandwidth})
		}
		for _, a := range m.Attributes {
			switch a.Key {
			case "sendrecv", "sendonly", "recvonly", "inactive":
				md.Direction = Direction(a.Key)
			case "ptime":
				if n, err := strconv.Atoi(a.Value); err == nil {
					md.Ptime = n
				}
			case "rtpmap":
				pt, codec, err := parseRtpmap(a.Value)
				if err == nil {
					md.Codecs[pt] = codec
				}
			case "fmtp":
				pt, fmtp, err := parseFmtp(a.Value)
				if err == nil {
					if c, ok := md.Codecs[pt]; ok {
						c.Fmtp = fmtp
						md.Codecs[pt] = c
					}
				}
			case "fingerprint":
				md.Fingerprint = a.Value
			default:
				md.Attrs = append(md.Attrs, Attribute{Key: a.Key, Value: a.Value})
			}
		}
		// pre-seed static codecs absent from rtpmap, per spec.md §3.
		for _, pt := range md.PTs {
			if _, ok := md.Codecs[pt]; !ok {
				if static, ok := StaticCodecs[pt]; ok {
					md.Codecs[pt] = static
				}
			}
		}
		s.Media = append(s.Media, md)
	}

	return s, nil
}

func connFromWire(c *pionsdp.ConnectionInformation) *Connection {
	conn := &Connection{NetworkType: c.NetworkType, AddressType: c.AddressType}
	if c.Address != nil {
		conn.Address = c.Address.Address
	}
	return conn
}

func parseRtpmap(value string) (uint8, Codec, error) {
	fields := strings.SplitN(value, " ", 2)
	if len(fields) != 2 {
		return 0, Codec{}, fmt.Errorf("bad rtpmap %q", value)
	}
	ptN, err := strconv.ParseUint(fields[0], 10, 8)
	if err != nil {
		return 0, Codec{}, err
	}
	parts := strings.Split(fields[1], "/")
	codec := Codec{PT: uint8(ptN), Name: parts[0]}
	if len(parts) > 1 {
		if cr, err := strconv.ParseUint(parts[1], 10, 32); err == nil {
			codec.ClockRate = uint32(cr)
		}
	}
	codec.Channels = 1
	if len(parts) > 2 {
		if ch, err := strconv.ParseUint(parts[2], 10, 16); err == nil {
			codec.Channels = uint16(ch)
		}
	}
	return codec.PT, codec, nil
}

func parseFmtp(value string) (uint8, string, error) {
	fields := strings.SplitN(value, " ", 2)
	if len(fields) != 2 {
		return 0, "", fmt.Errorf("bad fmtp %q", value)
	}
	ptN, err := strconv.ParseUint(fields[0], 10, 8)
	if err != nil {
		return 0, "", err
	}
	return uint8(ptN), fields[1], nil
}

// Build emits a Session in RFC 4566 canonical field order, per spec.md
// §4.D "Build.", via pion/sdp/v3's JSEP session/media constructors.
func Build(s *Session) ([]byte, error) {
	wire, err := pionsdp.NewJSEPSessionDescription(false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	wire.Origin = pionsdp.Origin{
		Username:       s.Origin.Username,
		SessionID:      s.Origin.SessionID,
		SessionVersion: s.Origin.SessionVersion,
		NetworkType:    s.Origin.NetworkType,
		AddressType:    s.Origin.AddressType,
		UnicastAddress: s.Origin.Address,
	}
	wire.SessionName = pionsdp.SessionName(s.Name)
	if s.Conn != nil {
		wire.ConnectionInformation = connToWire(s.Conn)
	}
	if len(s.Timing) == 0 {
		wire.TimeDescriptions = []pionsdp.TimeDescription{{Timing: pionsdp.Timing{StartTime: 0, StopTime: 0}}}
	} else {
		wire.TimeDescriptions = nil
		for _, t := range s.Timing {
			wire.TimeDescriptions = append(wire.TimeDescriptions, pionsdp.TimeDescription{
				Timing: pionsdp.Timing{StartTime: t.Start, StopTime: t.Stop},
			})
		}
	}
	for _, b := range s.Bandwidth {
		wire.Bandwidth = append(wire.Bandwidth, pionsdp.Bandwidth{Type: b.Type, Bandwidth: b.Value})
	}
	for _, a := range s.Attrs {
		wire.Attributes = append(wire.Attributes, pionsdp.Attribute{Key: a.Key, Value: a.Value})
	}

	for _, md := range s.Media {
		formats := make([]string, 0, len(md.PTs))
		for _, pt := range md.PTs {
			formats = append(formats, strconv.Itoa(int(pt)))
		}
		m := pionsdp.NewJSEPMediaDescription(md.Type, nil)
		m.MediaName = pionsdp.MediaName{
			Media:   md.Type,
			Port:    pionsdp.RangedPort{Value: md.Port},
			Protos:  strings.Split(md.Proto, "/"),
			Formats: formats,
		}
		if md.Conn != nil {
			m.ConnectionInformation = connToWire(md.Conn)
		}
		for _, b := range md.Bandwidth {
			m.Bandwidth = append(m.Bandwidth, pionsdp.Bandwidth{Type: b.Type, Bandwidth: b.Value})
		}
		for _, pt := range md.PTs {
			c, ok := md.Codecs[pt]
			if !ok {
				continue
			}
			m = m.WithCodec(pt, c.Name, c.ClockRate, c.Channels, c.Fmtp)
		}
		// WithCodec appends each PT to Formats again; keep the m= line's own list.
		m.MediaName.Formats = formats
		if md.Ptime > 0 {
			m = m.WithValueAttribute("ptime", strconv.Itoa(md.Ptime))
		}
		if md.Direction != "" {
			m = m.WithPropertyAttribute(string(md.Direction))
		}
		if md.Fingerprint != "" {
			m = m.WithValueAttribute("fingerprint", md.Fingerprint)
		}
		for _, a := range md.Attrs {
			if a.Value == "" {
				m = m.WithPropertyAttribute(a.Key)
			} else {
				m = m.WithValueAttribute(a.Key, a.Value)
			}
		}
		wire = wire.WithMedia(m)
	}

	return wire.Marshal()
}

func connToWire(c *Connection) *pionsdp.ConnectionInformation {
	return &pionsdp.ConnectionInformation{
		NetworkType: c.NetworkType,
		AddressType: c.AddressType,
		Address:     &pionsdp.Address{Address: c.Address},
	}
}
