package sdp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleOffer = "v=0\r\n" +
	"o=- 123 123 IN IP4 192.0.2.1\r\n" +
	"s=-\r\n" +
	"c=IN IP4 192.0.2.1\r\n" +
	"t=0 0\r\n" +
	"m=audio 49170 RTP/AVP 0 8 101\r\n" +
	"a=rtpmap:0 PCMU/8000\r\n" +
	"a=rtpmap:8 PCMA/8000\r\n" +
	"a=rtpmap:101 telephone-event/8000\r\n" +
	"a=fmtp:101 0-15\r\n" +
	"a=sendrecv\r\n"

func TestParseOfferExtractsCodecsAndDTMF(t *testing.T) {
	s, err := Parse([]byte(sampleOffer))
	require.NoError(t, err)
	audio, ok := s.FirstAudio()
	require.True(t, ok)
	assert.Equal(t, []uint8{0, 8, 101}, audio.PTs)
	assert.Equal(t, "PCMU", audio.Codecs[0].Name)
	assert.True(t, IsDTMF(audio.Codecs[101].Name))
	assert.Equal(t, SendRecv, audio.Direction)
}

func TestNegotiatePicksLocalPreferenceOrder(t *testing.T) {
	s, err := Parse([]byte(sampleOffer))
	require.NoError(t, err)

	answer, err := Negotiate(s, NegotiateOptions{
		LocalIP:   "192.0.2.9",
		LocalPort: 20000,
		Supported: []Codec{
			{PT: 8, Name: "PCMA", ClockRate: 8000, Channels: 1},
			{PT: 0, Name: "PCMU", ClockRate: 8000, Channels: 1},
		},
		SupportDTMF: true,
	})
	require.NoError(t, err)
	audio, ok := answer.FirstAudio()
	require.True(t, ok)
	assert.Equal(t, uint8(8), audio.PTs[0])
	assert.Contains(t, audio.PTs, uint8(101))
	assert.Equal(t, SendRecv, audio.Direction)
}

func TestNegotiateInvertsDirection(t *testing.T) {
	offerSendOnly := "v=0\r\no=- 1 1 IN IP4 192.0.2.1\r\ns=-\r\nc=IN IP4 192.0.2.1\r\nt=0 0\r\n" +
		"m=audio 1000 RTP/AVP 0\r\na=rtpmap:0 PCMU/8000\r\na=sendonly\r\n"
	s, err := Parse([]byte(offerSendOnly))
	require.NoError(t, err)
	answer, err := Negotiate(s, NegotiateOptions{LocalIP: "10.0.0.1", LocalPort: 5000, Supported: []Codec{{PT: 0, Name: "PCMU"}}})
	require.NoError(t, err)
	audio, _ := answer.FirstAudio()
	assert.Equal(t, RecvOnly, audio.Direction)
}

func TestNegotiateNoCommonCodec(t *testing.T) {
	s, err := Parse([]byte(sampleOffer))
	require.NoError(t, err)
	_, err = Negotiate(s, NegotiateOptions{LocalIP: "10.0.0.1", LocalPort: 5000, Supported: []Codec{{PT: 9, Name: "G722"}}})
	assert.ErrorIs(t, err, ErrNoCommonCodec)
}

func TestNegotiateNoAudio(t *testing.T) {
	noAudio := "v=0\r\no=- 1 1 IN IP4 192.0.2.1\r\ns=-\r\nc=IN IP4 192.0.2.1\r\nt=0 0\r\n" +
		"m=video 2000 RTP/AVP 96\r\n"
	s, err := Parse([]byte(noAudio))
	require.NoError(t, err)
	_, err = Negotiate(s, NegotiateOptions{LocalIP: "10.0.0.1", LocalPort: 5000, Supported: []Codec{{PT: 0, Name: "PCMU"}}})
	assert.ErrorIs(t, err, ErrNoAudio)
}

func TestBuildThenParseRoundTrip(t *testing.T) {
	offer := BuildOffer("192.0.2.5", 30000, 0, SendRecv)
	data, err := Build(offer)
	require.NoError(t, err)
	parsed, err := Parse(data)
	require.NoError(t, err)
	audio, ok := parsed.FirstAudio()
	require.True(t, ok)
	assert.Equal(t, 30000, audio.Port)
	assert.Equal(t, []uint8{0}, audio.PTs)
}
