package sdp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleOfferWithTimingBandwidthFingerprint = "v=0\r\n" +
	"o=- 123 123 IN IP4 192.0.2.1\r\n" +
	"s=-\r\n" +
	"c=IN IP4 192.0.2.1\r\n" +
	"b=AS:64\r\n" +
	"t=3034423619 3034423619\r\n" +
	"m=audio 49170 RTP/AVP 0\r\n" +
	"b=AS:48\r\n" +
	"a=rtpmap:0 PCMU/8000\r\n" +
	"a=fingerprint:sha-256 AB:CD:EF\r\n" +
	"a=sendrecv\r\n"

func TestParsePreservesTimingBandwidthAndFingerprint(t *testing.T) {
	s, err := Parse([]byte(sampleOfferWithTimingBandwidthFingerprint))
	require.NoError(t, err)

	require.Len(t, s.Timing, 1)
	assert.EqualValues(t, 3034423619, s.Timing[0].Start)
	assert.EqualValues(t, 3034423619, s.Timing[0].Stop)

	require.Len(t, s.Bandwidth, 1)
	assert.Equal(t, "AS", s.Bandwidth[0].Type)
	assert.EqualValues(t, 64, s.Bandwidth[0].Value)

	audio, ok := s.FirstAudio()
	require.True(t, ok)
	require.Len(t, audio.Bandwidth, 1)
	assert.Equal(t, "AS", audio.Bandwidth[0].Type)
	assert.EqualValues(t, 48, audio.Bandwidth[0].Value)
	assert.Equal(t, "sha-256 AB:CD:EF", audio.Fingerprint)
}

func TestBuildRoundTripsTimingBandwidthAndFingerprint(t *testing.T) {
	s, err := Parse([]byte(sampleOfferWithTimingBandwidthFingerprint))
	require.NoError(t, err)

	out, err := Build(s)
	require.NoError(t, err)

	reparsed, err := Parse(out)
	require.NoError(t, err)

	require.Len(t, reparsed.Timing, 1)
	assert.EqualValues(t, 3034423619, reparsed.Timing[0].Start)
	require.Len(t, reparsed.Bandwidth, 1)
	assert.EqualValues(t, 64, reparsed.Bandwidth[0].Value)

	audio, ok := reparsed.FirstAudio()
	require.True(t, ok)
	require.Len(t, audio.Bandwidth, 1)
	assert.EqualValues(t, 48, audio.Bandwidth[0].Value)
	assert.Equal(t, "sha-256 AB:CD:EF", audio.Fingerprint)
}

func TestBuildDefaultsTimingWhenUnset(t *testing.T) {
	s := &Session{
		Origin: Origin{NetworkType: "IN", AddressType: "IP4", Address: "192.0.2.1"},
		Name:   "-",
		Media: []MediaDescription{
			{Type: "audio", Port: 49170, Proto: "RTP/AVP", PTs: []uint8{0}, Codecs: map[uint8]Codec{
				0: StaticCodecs[0],
			}},
		},
	}
	out, err := Build(s)
	require.NoError(t, err)
	reparsed, err := Parse(out)
	require.NoError(t, err)
	require.Len(t, reparsed.Timing, 1)
	assert.EqualValues(t, 0, reparsed.Timing[0].Start)
	assert.EqualValues(t, 0, reparsed.Timing[0].Stop)
}
