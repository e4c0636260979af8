package transaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipagent/core/sip"
	"github.com/sipagent/core/timer"
	"github.com/sipagent/core/transport"
)

func newInvite(t *testing.T) *sip.Request {
	t.Helper()
	recipient, err := sip.ParseUri("sip:bob@example.com")
	require.NoError(t, err)
	req := sip.NewRequest(sip.INVITE, recipient)
	req.Headers().Append(&sip.ViaHeader{
		ProtocolName: "SIP", ProtocolVersion: "2.0", Transport: "UDP",
		Host: "127.0.0.1", Port: 5070,
		Params: func() sip.Params { p := sip.NewParams(); p.Set("branch", sip.GenerateBranch()); return p }(),
	})
	req.Headers().Append(sip.MaxForwardsHeader(70))
	from, _ := sip.ParseUri("sip:alice@example.com")
	req.Headers().Append(&sip.FromHeader{Address: from, Params: func() sip.Params {
		p := sip.NewParams()
		p.Set("tag", sip.GenerateTag())
		return p
	}()})
	to, _ := sip.ParseUri("sip:bob@example.com")
	req.Headers().Append(&sip.ToHeader{Address: to, Params: sip.NewParams()})
	req.Headers().Append(sip.CallIDHeader(sip.GenerateCallID("")))
	req.Headers().Append(&sip.CSeqHeader{SeqNo: 1, Method: sip.INVITE})
	return req
}

func TestClientInviteReceivesProvisionalThenSuccess(t *testing.T) {
	loop := timer.NewLoop()
	tp := transport.NewMock("mock:a", "udp", "127.0.0.1:1")
	req := newInvite(t)

	var responses []*sip.Response
	done := make(chan error, 1)
	tx := NewClientTx(loop, tp, req, "127.0.0.1:2", func(r *sip.Response) { responses = append(responses, r) }, func(err error) { done <- err })

	ringing := sip.NewResponseFromRequest(req, sip.StatusRinging, "Ringing", nil)
	tx.Receive(ringing)
	assert.Equal(t, ClientProceeding, tx.State())

	ok := sip.NewResponseFromRequest(req, sip.StatusOK, "OK", nil)
	tx.Receive(ok)
	assert.Equal(t, ClientTerminated, tx.State())
	assert.Len(t, responses, 2)
	assert.Nil(t, <-done)
}

func TestClientInviteSendsAckOnNon2xx(t *testing.T) {
	loop := timer.NewLoop()
	tp := transport.NewMock("mock:a", "udp", "127.0.0.1:1")
	req := newInvite(t)

	tx := NewClientTx(loop, tp, req, "127.0.0.1:2", func(*sip.Response) {}, func(error) {})
	busy := sip.NewResponseFromRequest(req, sip.StatusBusyHere, "Busy Here", nil)
	tx.Receive(busy)

	sent, ok := tp.LastSent()
	require.True(t, ok)
	msg, err := sip.ParseMessage(sent.Bytes)
	require.NoError(t, err)
	ack := msg.(*sip.Request)
	assert.Equal(t, sip.ACK, ack.Method)
}

func TestClientInviteReliableCollapsesTimerD(t *testing.T) {
	loop := timer.NewLoop()
	tp := transport.NewMock("mock:a", "tcp", "127.0.0.1:1")
	req := newInvite(t)

	done := make(chan error, 1)
	tx := NewClientTx(loop, tp, req, "127.0.0.1:2", func(*sip.Response) {}, func(err error) { done <- err })
	busy := sip.NewResponseFromRequest(req, sip.StatusBusyHere, "Busy Here", nil)
	tx.Receive(busy)

	assert.Equal(t, ClientTerminated, tx.State())
}

func TestClientReadyForCancelOnlyAfterProvisional(t *testing.T) {
	loop := timer.NewLoop()
	tp := transport.NewMock("mock:a", "udp", "127.0.0.1:1")
	req := newInvite(t)
	tx := NewClientTx(loop, tp, req, "127.0.0.1:2", func(*sip.Response) {}, func(error) {})

	assert.False(t, tx.ReadyForCancel())
	tx.Receive(sip.NewResponseFromRequest(req, sip.StatusRinging, "Ringing", nil))
	assert.True(t, tx.ReadyForCancel())
}
