package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pingRequest = "OPTIONS sip:ping@example.com SIP/2.0\r\n" +
	"Via: SIP/2.0/UDP 127.0.0.1:5070;branch=z9hG4bK1\r\n" +
	"Max-Forwards: 70\r\n" +
	"To: <sip:ping@example.com>\r\n" +
	"From: <sip:pong@example.com>;tag=abc\r\n" +
	"Call-ID: loopback-test\r\n" +
	"CSeq: 1 OPTIONS\r\n" +
	"Content-Length: 0\r\n" +
	"\r\n"

func TestUDPTransportLoopback(t *testing.T) {
	a, err := ListenUDP("127.0.0.1:0")
	require.NoError(t, err)
	defer a.Close()
	b, err := ListenUDP("127.0.0.1:0")
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.Send([]byte(pingRequest), b.LocalContact()))

	select {
	case in := <-b.Messages():
		assert.True(t, in.Message.IsRequest())
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for datagram")
	}
}
