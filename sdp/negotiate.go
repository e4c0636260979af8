package sdp

import "strconv"

// dtmfDynamicPT is a dynamic payload type for telephone-event. Negotiate
// does not use it: an answer carries telephone-event only when the offer
// has it, and then with the offer's payload type.
const dtmfDynamicPT = 101

// NegotiateOptions carries the answerer-side negotiation inputs of
// spec.md §4.D.
type NegotiateOptions struct {
	LocalIP      string
	LocalPort    int
	Supported    []Codec // priority-ordered, local preference first
	SupportDTMF  bool
}

// Negotiate implements negotiate_sdp (spec.md §4.D, §6): selects the
// highest-preference codec common to the offer and Supported, optionally
// carries telephone-event, and inverts direction.
func Negotiate(offer *Session, opts NegotiateOptions) (*Session, error) {
	audioOffer, ok := offer.FirstAudio()
	if !ok {
		return nil, ErrNoAudio
	}

	chosen, ok := selectCodec(audioOffer, opts.Supported)
	if !ok {
		return nil, ErrNoCommonCodec
	}

	dtmfPT, hasDTMF := uint8(0), false
	if opts.SupportDTMF {
		dtmfPT, hasDTMF = findOfferedDTMF(audioOffer)
	}

	addrType := "IP4"
	if isIPv6(opts.LocalIP) {
		addrType = "IP6"
	}

	answer := &Session{
		Origin: Origin{
			Username:       "-",
			SessionID:      offer.Origin.SessionID,
			SessionVersion: offer.Origin.SessionVersion + 1,
			NetworkType:    "IN",
			AddressType:    addrType,
			Address:        opts.LocalIP,
		},
		Name: "-",
		Conn: &Connection{NetworkType: "IN", AddressType: addrType, Address: opts.LocalIP},
	}

	pts := []uint8{chosen.PT}
	codecs := map[uint8]Codec{chosen.PT: chosen}
	if hasDTMF {
		pts = append(pts, dtmfPT)
		codecs[dtmfPT] = Codec{PT: dtmfPT, Name: "telephone-event", ClockRate: chosen.ClockRate, Channels: 1, Fmtp: "0-15"}
	}

	answer.Media = []MediaDescription{
		{
			Type:      "audio",
			Port:      opts.LocalPort,
			Proto:     audioOffer.Proto,
			PTs:       pts,
			Direction: audioOffer.Direction.Invert(),
			Codecs:    codecs,
			Conn:      &Connection{NetworkType: "IN", AddressType: addrType, Address: opts.LocalIP},
		},
	}

	return answer, nil
}

// selectCodec intersects the offered PTs with supported, in the order of
// supported (local preference wins; first local match ties), per spec.md
// §4.D step 2.
func selectCodec(offer *MediaDescription, supported []Codec) (Codec, bool) {
	offered := map[uint8]bool{}
	for _, pt := range offer.PTs {
		offered[pt] = true
	}
	for _, c := range supported {
		if c.Name == "telephone-event" {
			continue
		}
		if offered[c.PT] {
			if oc, ok := offer.Codecs[c.PT]; ok {
				return oc, true
			}
			return c, true
		}
	}
	return Codec{}, false
}

func findOfferedDTMF(offer *MediaDescription) (uint8, bool) {
	for _, pt := range offer.PTs {
		if c, ok := offer.Codecs[pt]; ok && IsDTMF(c.Name) {
			return pt, true
		}
	}
	return 0, false
}

func isIPv6(addr string) bool {
	for _, c := range addr {
		if c == ':' {
			return true
		}
	}
	return false
}

// BuildOffer constructs a minimal single-audio-stream offer, matching
// spec.md §6's build_sdp(local_ip, rtp_port, payload_type, direction)
// helper.
func BuildOffer(localIP string, rtpPort int, pt uint8, direction Direction) *Session {
	addrType := "IP4"
	if isIPv6(localIP) {
		addrType = "IP6"
	}
	codec, ok := StaticCodecs[pt]
	if !ok {
		codec = Codec{PT: pt, Name: "PCMU", ClockRate: 8000, Channels: 1}
	}
	return &Session{
		Origin: Origin{
			Username: "-", SessionID: 1, SessionVersion: 1,
			NetworkType: "IN", AddressType: addrType, Address: localIP,
		},
		Name: "-",
		Conn: &Connection{NetworkType: "IN", AddressType: addrType, Address: localIP},
		Media: []MediaDescription{
			{
				Type: "audio", Port: rtpPort, Proto: "RTP/AVP",
				PTs: []uint8{pt}, Direction: direction,
				Codecs: map[uint8]Codec{pt: codec},
				Conn:   &Connection{NetworkType: "IN", AddressType: addrType, Address: localIP},
			},
		},
	}
}

func formatPT(pt uint8) string { return strconv.Itoa(int(pt)) }
