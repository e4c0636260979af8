package dialog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipagent/core/sip"
)

func newTestInvite(t *testing.T) *sip.Request {
	t.Helper()
	recipient, err := sip.ParseUri("sip:bob@example.com")
	require.NoError(t, err)
	req := sip.NewRequest(sip.INVITE, recipient)

	from, _ := sip.ParseUri("sip:alice@example.com")
	fromParams := sip.NewParams()
	fromParams.Set("tag", "alice-tag")
	req.Headers().Append(&sip.FromHeader{Address: from, Params: fromParams})

	to, _ := sip.ParseUri("sip:bob@example.com")
	req.Headers().Append(&sip.ToHeader{Address: to, Params: sip.NewParams()})

	req.Headers().Append(sip.CallIDHeader("call-123@alice-host"))
	req.Headers().Append(&sip.CSeqHeader{SeqNo: 1, Method: sip.INVITE})
	req.Headers().Append(sip.MaxForwardsHeader(70))

	contact, _ := sip.ParseUri("sip:alice@192.0.2.1:5060")
	req.Headers().Append(&sip.ContactHeader{Address: contact})

	rr1, _ := sip.ParseUri("sip:proxy1.example.com;lr")
	req.Headers().Append(&sip.RecordRouteHeader{Address: rr1})
	return req
}

func TestNewUASDialogSwapsTags(t *testing.T) {
	req := newTestInvite(t)
	localContact, _ := sip.ParseUri("sip:bob@198.51.100.1:5060")
	d := NewUASDialog(req, "bob-tag", localContact)

	assert.Equal(t, "bob-tag", d.ID.LocalTag)
	assert.Equal(t, "alice-tag", d.ID.RemoteTag)
	assert.Equal(t, "call-123@alice-host", d.ID.CallID)
	assert.Equal(t, Early, d.State)
	assert.True(t, d.IsUAS())
	assert.Equal(t, "sip:alice@192.0.2.1:5060", d.RemoteTarget.String())
}

func TestNewUACDialogUsesResponseToTag(t *testing.T) {
	req := newTestInvite(t)
	res := sip.NewResponseFromRequest(req, sip.StatusOK, "OK", nil)
	localContact, _ := sip.ParseUri("sip:alice@192.0.2.1:5060")
	d := NewUACDialog(req, res, localContact)

	assert.Equal(t, "alice-tag", d.ID.LocalTag)
	toTag, ok := res.Headers().To().Tag()
	require.True(t, ok)
	assert.Equal(t, toTag, d.ID.RemoteTag)
	assert.False(t, d.IsUAS())
}

func TestConfirmAppliesTargetRefresh(t *testing.T) {
	req := newTestInvite(t)
	localContact, _ := sip.ParseUri("sip:bob@198.51.100.1:5060")
	d := NewUASDialog(req, "bob-tag", localContact)

	res := sip.NewResponseFromRequest(req, sip.StatusOK, "OK", nil)
	newContact, _ := sip.ParseUri("sip:alice@203.0.113.9:5080")
	res.Headers().Append(&sip.ContactHeader{Address: newContact})

	d.Confirm(res)
	assert.Equal(t, Confirmed, d.State)
	assert.Equal(t, "sip:alice@203.0.113.9:5080", d.RemoteTarget.String())
}

func TestRequestURILooseRouting(t *testing.T) {
	req := newTestInvite(t)
	localContact, _ := sip.ParseUri("sip:bob@198.51.100.1:5060")
	d := NewUASDialog(req, "bob-tag", localContact)

	requestURI, routes := d.RequestURI()
	assert.Equal(t, d.RemoteTarget.String(), requestURI.String())
	require.Len(t, routes, 1)
	assert.Equal(t, "sip:proxy1.example.com;lr", routes[0].String())
}

func TestRequestURIStrictRouting(t *testing.T) {
	req := newTestInvite(t)
	localContact, _ := sip.ParseUri("sip:bob@198.51.100.1:5060")
	d := NewUASDialog(req, "bob-tag", localContact)
	strictRoute, _ := sip.ParseUri("sip:proxy1.example.com")
	d.RouteSet = []sip.Uri{strictRoute}

	requestURI, routes := d.RequestURI()
	assert.Equal(t, "sip:proxy1.example.com", requestURI.String())
	require.Len(t, routes, 1)
	assert.Equal(t, d.RemoteTarget.String(), routes[0].String())
}

func TestNextCSeqIncrementsFromRandomStart(t *testing.T) {
	req := newTestInvite(t)
	localContact, _ := sip.ParseUri("sip:bob@198.51.100.1:5060")
	d := NewUASDialog(req, "bob-tag", localContact)

	start := d.LocalCSeq
	assert.Equal(t, start+1, d.NextCSeq())
	assert.Equal(t, start+2, d.NextCSeq())
}

func TestNewByeConsumesCSeqAndTagsCorrectly(t *testing.T) {
	req := newTestInvite(t)
	localContact, _ := sip.ParseUri("sip:bob@198.51.100.1:5060")
	d := NewUASDialog(req, "bob-tag", localContact)
	start := d.LocalCSeq

	bye := d.NewBye(localContact)
	assert.Equal(t, sip.BYE, bye.Method)
	assert.Equal(t, start+1, bye.Headers().CSeq().SeqNo)

	fromTag, _ := bye.Headers().From().Tag()
	toTag, _ := bye.Headers().To().Tag()
	assert.Equal(t, "bob-tag", fromTag)
	assert.Equal(t, "alice-tag", toTag)
}

func TestTableRekeyOnEarlyDialogConfirmation(t *testing.T) {
	req := newTestInvite(t)
	localContact, _ := sip.ParseUri("sip:alice@192.0.2.1:5060")
	table := NewTable()

	early := NewUACDialog(req, sip.NewResponseFromRequest(req, sip.StatusRinging, "Ringing", nil), localContact)
	table.Put(early)
	assert.Equal(t, 1, table.Len())

	confirmedRes := sip.NewResponseFromRequest(req, sip.StatusOK, "OK", nil)
	confirmed := NewUACDialog(req, confirmedRes, localContact)
	table.Rekey(early.ID, confirmed.ID)

	_, stillThere := table.Get(early.ID)
	assert.False(t, stillThere)
	_, found := table.Get(confirmed.ID)
	assert.True(t, found)
}
