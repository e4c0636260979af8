package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipagent/core/sdp"
)

const offerSDPText = `v=0
o=- 1 1 IN IP4 127.0.0.1
s=-
c=IN IP4 127.0.0.1
t=0 0
m=audio 40000 RTP/AVP 0 101
a=rtpmap:0 PCMU/8000
a=rtpmap:101 telephone-event/8000
a=sendrecv
`

func TestNewUDPSessionNegotiatesAndBindsSocket(t *testing.T) {
	offer, err := sdp.Parse([]byte(offerSDPText))
	require.NoError(t, err)

	sess, err := NewUDPSession("127.0.0.1", 0, offer, []sdp.Codec{{PT: 0, Name: "PCMU", ClockRate: 8000, Channels: 1}}, true)
	require.NoError(t, err)
	defer sess.Stop()

	answer := sess.AnswerSDP()
	require.NotNil(t, answer)
	m, ok := answer.FirstAudio()
	require.True(t, ok)
	assert.Contains(t, m.Codecs, uint8(0))
	assert.True(t, sess.hasDTMF)
}

func TestDecodeDTMFDigit(t *testing.T) {
	assert.Equal(t, byte('5'), decodeDTMFDigit(5))
	assert.Equal(t, byte('*'), decodeDTMFDigit(10))
	assert.Equal(t, byte('#'), decodeDTMFDigit(11))
	assert.Equal(t, byte('A'), decodeDTMFDigit(12))
}
