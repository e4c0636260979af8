package sip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUriBasic(t *testing.T) {
	u, err := ParseUri("sip:alice@example.com:5060;transport=udp")
	require.NoError(t, err)
	assert.False(t, u.Secure)
	assert.Equal(t, "alice", u.User)
	assert.Equal(t, "example.com", u.Host)
	assert.Equal(t, 5060, u.Port)
	v, ok := u.UriParams.Get("transport")
	require.True(t, ok)
	assert.Equal(t, "udp", v)
}

func TestParseUriSips(t *testing.T) {
	u, err := ParseUri("sips:bob@example.com")
	require.NoError(t, err)
	assert.True(t, u.Secure)
}

func TestParseUriIPv6(t *testing.T) {
	u, err := ParseUri("sip:alice@[2001:db8::1]:5060")
	require.NoError(t, err)
	assert.Equal(t, "[2001:db8::1]", u.Host)
	assert.Equal(t, 5060, u.Port)
}

func TestParseUriUnbalancedIPv6(t *testing.T) {
	_, err := ParseUri("sip:alice@[2001:db8::1:5060")
	require.Error(t, err)
	var malformed *MalformedUri
	assert.ErrorAs(t, err, &malformed)
}

func TestParseUriMissingScheme(t *testing.T) {
	_, err := ParseUri("alice@example.com")
	require.Error(t, err)
}

func TestParseUriEmptyHost(t *testing.T) {
	_, err := ParseUri("sip:")
	require.Error(t, err)
}

func TestUriRoundTrip(t *testing.T) {
	raw := "sip:alice:secret@example.com:5061;transport=tcp;lr?subject=hello"
	u, err := ParseUri(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, u.String())
}

func TestUriCloneIndependence(t *testing.T) {
	u, err := ParseUri("sip:alice@example.com;tag=abc")
	require.NoError(t, err)
	c := u.Clone()
	c.UriParams.Set("tag", "changed")
	v, _ := u.UriParams.Get("tag")
	assert.Equal(t, "abc", v)
}
