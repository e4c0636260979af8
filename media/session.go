// Package media defines the RTP bridge boundary of spec.md §4.J: the core
// signaling module never touches RTP bytes itself, it only negotiates SDP
// and hands the result to an externally-supplied CallSession. Grounded on
// arzzra-soft_phone/pkg/rtp/interface.go and
// sebacius-switchboard/internal/rtpmanager/media/interfaces.go's
// RTPSession split between signaling and the media plane.
package media

import (
	"context"
	"time"

	"github.com/sipagent/core/sdp"
)

// AudioFrame is one chunk of decoded PCM audio delivered to the
// application by a CallSession (spec.md §4.J "on_audio(pcm_bytes,
// timestamp)").
type AudioFrame struct {
	PCM       []byte
	Timestamp time.Duration
}

// DTMFEvent is one detected DTMF digit (spec.md §4.J "on_dtmf(digit,
// duration_ms)").
type DTMFEvent struct {
	Digit    byte
	Duration time.Duration
}

// CallSession is the external RTP bridge for one call leg. The signaling
// core constructs one from a local endpoint and the peer's SDP offer,
// obtains the negotiated answer, and thereafter only starts/stops it and
// receives audio/DTMF callbacks — it never parses or emits RTP packets
// itself.
type CallSession interface {
	// AnswerSDP returns the SDP answer produced when this session was
	// constructed from the offer (spec.md §4.J: "construction from
	// (local_ip, local_port, offer_sdp) producing sdp_answer").
	AnswerSDP() *sdp.Session

	// Start begins sending/receiving RTP for this session.
	Start(ctx context.Context) error

	// Stop tears the session down, releasing its transport resources.
	Stop() error

	// OnAudio registers the callback invoked for every decoded inbound
	// audio frame.
	OnAudio(fn func(AudioFrame))

	// OnDTMF registers the callback invoked for every detected DTMF digit.
	OnDTMF(fn func(DTMFEvent))
}

// Factory constructs a CallSession from a local RTP endpoint and the
// peer's offer, performing SDP negotiation via sdp.Negotiate (spec.md
// §4.D) to produce the answer the session will advertise.
type Factory func(localIP string, localPort int, offer *sdp.Session) (CallSession, error)
