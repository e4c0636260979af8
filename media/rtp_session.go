package media

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/pion/rtp"

	"github.com/sipagent/core/sdp"
)

// UDPSession is a concrete CallSession over a plain UDP RTP socket,
// grounded on sebacius-switchboard/internal/rtpmanager/media.RTPSession's
// read/write split and arzzra-soft_phone/pkg/rtp's packet handling. It
// recognizes inbound telephone-event packets (RFC 4733) as DTMF and
// everything else as a raw PCM payload — the application remains
// responsible for actual codec decode, per spec.md §4.J "the core never
// touches RTP bytes" (this package is the one boundary that does).
type UDPSession struct {
	conn   *net.UDPConn
	answer *sdp.Session

	remote *net.UDPAddr

	mu       sync.Mutex
	onAudio  func(AudioFrame)
	onDTMF   func(DTMFEvent)
	seq      uint16
	ssrc     uint32
	closed   chan struct{}
	dtmfPT   uint8
	hasDTMF  bool
}

// NewUDPSession binds a UDP socket at localIP:localPort, negotiates offer
// against supported, and returns a session carrying the resulting answer
// (spec.md §4.J).
func NewUDPSession(localIP string, localPort int, offer *sdp.Session, supported []sdp.Codec, supportDTMF bool) (*UDPSession, error) {
	answer, err := sdp.Negotiate(offer, sdp.NegotiateOptions{
		LocalIP:     localIP,
		LocalPort:   localPort,
		Supported:   supported,
		SupportDTMF: supportDTMF,
	})
	if err != nil {
		return nil, err
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP(localIP), Port: localPort})
	if err != nil {
		return nil, err
	}

	m, hasAudio := offer.FirstAudio()
	var remote *net.UDPAddr
	if hasAudio {
		host := localIP
		if offer.Conn != nil {
			host = offer.Conn.Address
		} else if m.Conn != nil {
			host = m.Conn.Address
		}
		remote = &net.UDPAddr{IP: net.ParseIP(host), Port: m.Port}
	}

	s := &UDPSession{
		conn:   conn,
		answer: answer,
		remote: remote,
		closed: make(chan struct{}),
		ssrc:   1,
	}
	for _, am := range answer.Media {
		for pt, c := range am.Codecs {
			if sdp.IsDTMF(c.Name) {
				s.dtmfPT = pt
				s.hasDTMF = true
			}
		}
	}
	return s, nil
}

func (s *UDPSession) AnswerSDP() *sdp.Session { return s.answer }

// Start launches the read loop, demultiplexing DTMF event packets from
// plain audio payloads.
func (s *UDPSession) Start(ctx context.Context) error {
	go s.readLoop(ctx)
	return nil
}

func (s *UDPSession) readLoop(ctx context.Context) {
	buf := make([]byte, 1500)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.closed:
			return
		default:
		}
		n, _, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		var pkt rtp.Packet
		if err := pkt.Unmarshal(buf[:n]); err != nil {
			continue
		}
		s.dispatch(pkt)
	}
}

func (s *UDPSession) dispatch(pkt rtp.Packet) {
	s.mu.Lock()
	onAudio, onDTMF := s.onAudio, s.onDTMF
	isDTMF := s.hasDTMF && pkt.PayloadType == s.dtmfPT
	s.mu.Unlock()

	if isDTMF {
		if onDTMF != nil && len(pkt.Payload) >= 4 {
			digit := decodeDTMFDigit(pkt.Payload[0])
			duration := time.Duration(uint16(pkt.Payload[2])<<8|uint16(pkt.Payload[3])) * time.Microsecond * 125
			onDTMF(DTMFEvent{Digit: digit, Duration: duration})
		}
		return
	}
	if onAudio != nil {
		onAudio(AudioFrame{PCM: append([]byte(nil), pkt.Payload...), Timestamp: time.Duration(pkt.Timestamp) * time.Millisecond})
	}
}

// decodeDTMFDigit maps an RFC 4733 event code to its ASCII digit/letter.
func decodeDTMFDigit(code byte) byte {
	switch {
	case code <= 9:
		return '0' + code
	case code == 10:
		return '*'
	case code == 11:
		return '#'
	case code >= 12 && code <= 15:
		return 'A' + (code - 12)
	default:
		return '?'
	}
}

func (s *UDPSession) Stop() error {
	select {
	case <-s.closed:
	default:
		close(s.closed)
	}
	return s.conn.Close()
}

func (s *UDPSession) OnAudio(fn func(AudioFrame)) {
	s.mu.Lock()
	s.onAudio = fn
	s.mu.Unlock()
}

func (s *UDPSession) OnDTMF(fn func(DTMFEvent)) {
	s.mu.Lock()
	s.onDTMF = fn
	s.mu.Unlock()
}

// WritePCM sends raw PCM payload as one RTP packet to the negotiated
// remote endpoint, advancing sequence/timestamp state.
func (s *UDPSession) WritePCM(payload []byte, pt uint8, timestamp uint32) error {
	s.mu.Lock()
	seq := s.seq
	s.seq++
	ssrc := s.ssrc
	s.mu.Unlock()

	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    pt,
			SequenceNumber: seq,
			Timestamp:      timestamp,
			SSRC:           ssrc,
		},
		Payload: payload,
	}
	raw, err := pkt.Marshal()
	if err != nil {
		return err
	}
	_, err = s.conn.WriteToUDP(raw, s.remote)
	return err
}
