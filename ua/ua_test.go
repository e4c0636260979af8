package ua

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipagent/core/dialog"
	"github.com/sipagent/core/sip"
	"github.com/sipagent/core/timer"
	"github.com/sipagent/core/transport"
)

const testOffer = `v=0
o=- 1 1 IN IP4 127.0.0.1
s=-
c=IN IP4 127.0.0.1
t=0 0
m=audio 4000 RTP/AVP 0
a=rtpmap:0 PCMU/8000
a=sendrecv
`

func relay(t *testing.T, from *transport.Mock, to interface{ HandleInbound(transport.Inbound) }, fromAddr string) sip.Message {
	t.Helper()
	sent, ok := from.LastSent()
	require.True(t, ok)
	msg, err := sip.ParseMessage(sent.Bytes)
	require.NoError(t, err)
	to.HandleInbound(transport.Inbound{Message: msg, RemoteAddr: fromAddr})
	return msg
}

func TestFullInviteAcceptByeFlow(t *testing.T) {
	loop := timer.NewLoop()
	tpUAC := transport.NewMock("uac", "udp", "127.0.0.1:5060")
	tpUAS := transport.NewMock("uas", "udp", "127.0.0.1:5070")

	callee, _ := sip.ParseUri("sip:bob@127.0.0.1:5070")
	caller, _ := sip.ParseUri("sip:alice@127.0.0.1:5060")

	uac := NewUAC(loop, tpUAC, caller)
	uas := NewUAS(loop, tpUAS, callee)

	var acceptedCall *IncomingCall
	uas.OnInvite = func(call *IncomingCall) {
		acceptedCall = call
		call.Ringing()
		call.Accept([]byte(testOffer))
	}

	var finalDialog *dialog.Dialog
	var finalRes *sip.Response
	uac.Invite(callee, "127.0.0.1:5070", []byte(testOffer), "application/sdp",
		nil,
		func(d *dialog.Dialog, res *sip.Response, err error) {
			finalDialog = d
			finalRes = res
		},
	)

	// INVITE: UAC -> UAS
	relay(t, tpUAC, uas, "127.0.0.1:5060")
	require.NotNil(t, acceptedCall)

	// 180 Ringing, 200 OK: UAS -> UAC (Accept fired both Ringing+200 sends)
	sentFromUAS := tpUAS.Sent()
	require.Len(t, sentFromUAS, 2)
	for _, s := range sentFromUAS {
		msg, err := sip.ParseMessage(s.Bytes)
		require.NoError(t, err)
		uac.HandleInbound(transport.Inbound{Message: msg, RemoteAddr: "127.0.0.1:5070"})
	}

	require.NotNil(t, finalRes)
	assert.Equal(t, sip.StatusOK, finalRes.StatusCode)
	require.NotNil(t, finalDialog)
	assert.Equal(t, dialog.Confirmed, finalDialog.State)

	// ACK: UAC -> UAS
	ackSent, ok := tpUAC.LastSent()
	require.True(t, ok)
	ackMsg, err := sip.ParseMessage(ackSent.Bytes)
	require.NoError(t, err)
	assert.Equal(t, sip.ACK, ackMsg.(*sip.Request).Method)

	// BYE: UAC -> UAS
	var byeCompleted bool
	completion := uac.SendBye(finalDialog, "127.0.0.1:5070")
	completion.OnDone(func(*sip.Response, error) { byeCompleted = true })

	var byeReceived *sip.Request
	uas.OnBye = func(_ *dialog.Dialog, req *sip.Request) { byeReceived = req }
	relay(t, tpUAC, uas, "127.0.0.1:5060")
	require.NotNil(t, byeReceived)
	assert.Equal(t, sip.BYE, byeReceived.Method)

	relay(t, tpUAS, uac, "127.0.0.1:5070")
	assert.True(t, byeCompleted)
	assert.Equal(t, dialog.Terminated, finalDialog.State)
}

func TestCancelBeforeFinalResponse(t *testing.T) {
	loop := timer.NewLoop()
	tpUAC := transport.NewMock("uac", "udp", "127.0.0.1:5060")
	tpUAS := transport.NewMock("uas", "udp", "127.0.0.1:5070")

	callee, _ := sip.ParseUri("sip:bob@127.0.0.1:5070")
	caller, _ := sip.ParseUri("sip:alice@127.0.0.1:5060")

	uac := NewUAC(loop, tpUAC, caller)
	uas := NewUAS(loop, tpUAS, callee)

	var cancelled bool
	uas.OnCancel = func(*dialog.Dialog) { cancelled = true }
	uas.OnInvite = func(call *IncomingCall) { call.Ringing() }

	tx := uac.Invite(callee, "127.0.0.1:5070", nil, "", nil, nil)
	relay(t, tpUAC, uas, "127.0.0.1:5060")

	assert.False(t, tx.ReadyForCancel())
	assert.ErrorIs(t, uac.SendCancel(tx), ErrNotReadyForCancel)

	// UAS's Ringing() response travels back and flips the client tx into
	// Proceeding, making the CANCEL valid (spec.md §4.F "Cancellation.").
	relay(t, tpUAS, uac, "127.0.0.1:5070")
	require.True(t, tx.ReadyForCancel())

	require.NoError(t, uac.SendCancel(tx))
	relay(t, tpUAC, uas, "127.0.0.1:5060")

	assert.True(t, cancelled)
	sentFromUAS := tpUAS.Sent()
	require.Len(t, sentFromUAS, 3) // 180 Ringing, 487 on INVITE, 200 on CANCEL
}
