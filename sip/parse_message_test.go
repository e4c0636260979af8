package sip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleInvite = "INVITE sip:bob@example.com SIP/2.0\r\n" +
	"Via: SIP/2.0/UDP pc1.example.com;branch=z9hG4bK776asdhds\r\n" +
	"Max-Forwards: 70\r\n" +
	"To: Bob <sip:bob@example.com>\r\n" +
	"From: Alice <sip:alice@example.com>;tag=1928301774\r\n" +
	"Call-ID: a84b4c76e66710@pc1.example.com\r\n" +
	"CSeq: 314159 INVITE\r\n" +
	"Contact: <sip:alice@pc1.example.com>\r\n" +
	"Content-Type: application/sdp\r\n" +
	"Content-Length: 4\r\n" +
	"\r\n" +
	"test"

func TestParseMessageRequest(t *testing.T) {
	msg, err := ParseMessage([]byte(sampleInvite))
	require.NoError(t, err)
	req, ok := msg.(*Request)
	require.True(t, ok)
	assert.True(t, req.IsRequest())
	assert.Equal(t, INVITE, req.Method)
	assert.Equal(t, "bob@example.com", req.Recipient.User+"@"+req.Recipient.Host)
	assert.Equal(t, "test", string(req.Body()))

	via := req.Headers().Via()
	require.NotNil(t, via)
	branch, ok := via.Branch()
	require.True(t, ok)
	assert.Equal(t, "z9hG4bK776asdhds", branch)

	from := req.Headers().From()
	require.NotNil(t, from)
	tag, ok := from.Tag()
	require.True(t, ok)
	assert.Equal(t, "1928301774", tag)

	cseq := req.Headers().CSeq()
	require.NotNil(t, cseq)
	assert.EqualValues(t, 314159, cseq.SeqNo)
	assert.Equal(t, INVITE, cseq.Method)
}

func TestParseMessageAcceptsLFOnly(t *testing.T) {
	lfOnly := "OPTIONS sip:bob@example.com SIP/2.0\n" +
		"Via: SIP/2.0/UDP pc1.example.com;branch=z9hG4bK1\n" +
		"Max-Forwards: 70\n" +
		"To: <sip:bob@example.com>\n" +
		"From: <sip:alice@example.com>;tag=abc\n" +
		"Call-ID: callid1\n" +
		"CSeq: 1 OPTIONS\n" +
		"Content-Length: 0\n" +
		"\n"
	msg, err := ParseMessage([]byte(lfOnly))
	require.NoError(t, err)
	req := msg.(*Request)
	assert.Equal(t, OPTIONS, req.Method)
}

func TestParseMessageResponse(t *testing.T) {
	raw := "SIP/2.0 200 OK\r\n" +
		"Via: SIP/2.0/UDP pc1.example.com;branch=z9hG4bK776asdhds\r\n" +
		"To: Bob <sip:bob@example.com>;tag=abcd\r\n" +
		"From: Alice <sip:alice@example.com>;tag=1928301774\r\n" +
		"Call-ID: a84b4c76e66710@pc1.example.com\r\n" +
		"CSeq: 314159 INVITE\r\n" +
		"Content-Length: 0\r\n" +
		"\r\n"
	msg, err := ParseMessage([]byte(raw))
	require.NoError(t, err)
	res, ok := msg.(*Response)
	require.True(t, ok)
	assert.Equal(t, StatusOK, res.StatusCode)
	assert.True(t, res.IsSuccess())
}

func TestRequestSerializeRoundTrip(t *testing.T) {
	msg, err := ParseMessage([]byte(sampleInvite))
	require.NoError(t, err)
	req := msg.(*Request)
	reparsed, err := ParseMessage([]byte(req.String()))
	require.NoError(t, err)
	req2 := reparsed.(*Request)
	assert.Equal(t, req.Method, req2.Method)
	assert.Equal(t, req.Recipient.String(), req2.Recipient.String())
	assert.Equal(t, req.Body(), req2.Body())
}

func TestSetBodyPatchesContentLength(t *testing.T) {
	req := NewRequest(INFO, Uri{Host: "example.com"})
	req.SetBody([]byte("abcde"))
	cl, ok := req.Headers().Get("Content-Length")
	require.True(t, ok)
	assert.Equal(t, "5", cl.Value())
}

func TestNewAckRequestForNon2xx(t *testing.T) {
	msg, err := ParseMessage([]byte(sampleInvite))
	require.NoError(t, err)
	inv := msg.(*Request)
	res := NewResponseFromRequest(inv, StatusBusyHere, "Busy Here", nil)
	ack := NewAckRequest(inv, res)
	assert.Equal(t, ACK, ack.Method)
	branch, _ := ack.Headers().Via().Branch()
	invBranch, _ := inv.Headers().Via().Branch()
	assert.Equal(t, invBranch, branch)
	assert.Equal(t, string(inv.Headers().CallID()), string(ack.Headers().CallID()))
	assert.Equal(t, inv.Headers().CSeq().SeqNo, ack.Headers().CSeq().SeqNo)
}

func TestNewResponseFromRequestGeneratesToTag(t *testing.T) {
	msg, err := ParseMessage([]byte(sampleInvite))
	require.NoError(t, err)
	inv := msg.(*Request)
	res := NewResponseFromRequest(inv, StatusOK, "OK", nil)
	tag, ok := res.Headers().To().Tag()
	require.True(t, ok)
	assert.NotEmpty(t, tag)
}

func TestNewResponseFromRequestSkipsTagFor100Trying(t *testing.T) {
	msg, err := ParseMessage([]byte(sampleInvite))
	require.NoError(t, err)
	inv := msg.(*Request)
	res := NewResponseFromRequest(inv, StatusTrying, "Trying", nil)
	_, ok := res.Headers().To().Tag()
	assert.False(t, ok)
}

func TestNewResponseFromRequestAlwaysEmitsContentLength(t *testing.T) {
	msg, err := ParseMessage([]byte(sampleInvite))
	require.NoError(t, err)
	inv := msg.(*Request)
	res := NewResponseFromRequest(inv, StatusOK, "OK", nil)
	cl, ok := res.Headers().Get("Content-Length")
	require.True(t, ok)
	assert.Equal(t, "0", cl.Value())
	assert.Contains(t, res.String(), "Content-Length: 0")
}

func TestHeadersOrderedPutsViaBeforeRecordRouteAndContentLengthLast(t *testing.T) {
	msg, err := ParseMessage([]byte(sampleInvite))
	require.NoError(t, err)
	inv := msg.(*Request)
	res := NewResponseFromRequest(inv, StatusOK, "OK", nil)
	res.Headers().Append(&RecordRouteHeader{Address: Uri{Host: "proxy.example.com"}})

	names := make([]string, 0)
	for _, h := range res.Headers().Ordered() {
		names = append(names, h.Name())
	}

	viaIdx, rrIdx, clIdx := -1, -1, -1
	for i, n := range names {
		switch n {
		case "Via":
			viaIdx = i
		case "Record-Route":
			rrIdx = i
		case "Content-Length":
			clIdx = i
		}
	}
	require.NotEqual(t, -1, viaIdx)
	require.NotEqual(t, -1, rrIdx)
	require.NotEqual(t, -1, clIdx)
	assert.Less(t, viaIdx, rrIdx)
	assert.Equal(t, len(names)-1, clIdx)
}

func TestParseHeaderBlockSplitsCommaSeparatedRecordRoutes(t *testing.T) {
	raw := "SIP/2.0 200 OK\r\n" +
		"Via: SIP/2.0/UDP pc1.example.com;branch=z9hG4bK1\r\n" +
		"Record-Route: <sip:p1.example.com;lr>, <sip:p2.example.com;lr>\r\n" +
		"To: Bob <sip:bob@example.com>;tag=abcd\r\n" +
		"From: Alice <sip:alice@example.com>;tag=1928301774\r\n" +
		"Call-ID: a84b4c76e66710@pc1.example.com\r\n" +
		"CSeq: 314159 INVITE\r\n" +
		"Content-Length: 0\r\n" +
		"\r\n"
	msg, err := ParseMessage([]byte(raw))
	require.NoError(t, err)
	res := msg.(*Response)
	rrs := res.Headers().RecordRoutes()
	require.Len(t, rrs, 2)
	assert.Equal(t, "p1.example.com", rrs[0].Address.Host)
	assert.Equal(t, "p2.example.com", rrs[1].Address.Host)
}

func TestAllowAndCompactSupportedParseToStructuredTypes(t *testing.T) {
	long := "OPTIONS sip:bob@example.com SIP/2.0\r\n" +
		"Via: SIP/2.0/UDP pc1.example.com;branch=z9hG4bK1\r\n" +
		"Max-Forwards: 70\r\n" +
		"To: <sip:bob@example.com>\r\n" +
		"From: <sip:alice@example.com>;tag=abc\r\n" +
		"Call-ID: callid1\r\n" +
		"CSeq: 1 OPTIONS\r\n" +
		"Allow: INVITE, ACK, BYE\r\n" +
		"Content-Length: 0\r\n" +
		"\r\n"
	compact := "OPTIONS sip:bob@example.com SIP/2.0\r\n" +
		"Via: SIP/2.0/UDP pc1.example.com;branch=z9hG4bK1\r\n" +
		"Max-Forwards: 70\r\n" +
		"To: <sip:bob@example.com>\r\n" +
		"From: <sip:alice@example.com>;tag=abc\r\n" +
		"Call-ID: callid1\r\n" +
		"CSeq: 1 OPTIONS\r\n" +
		"k: understand-me\r\n" +
		"Content-Length: 0\r\n" +
		"\r\n"

	longMsg, err := ParseMessage([]byte(long))
	require.NoError(t, err)
	allow := longMsg.(*Request).Headers().Allow()
	assert.Equal(t, []RequestMethod{INVITE, ACK, BYE}, allow)

	compactMsg, err := ParseMessage([]byte(compact))
	require.NoError(t, err)
	supported := compactMsg.(*Request).Headers().Supported()
	assert.Equal(t, []string{"understand-me"}, supported)
}
