package sip

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParamsOrderPreserved(t *testing.T) {
	p := NewParams()
	p.Set("transport", "udp")
	p.Set("lr", "")
	p.Set("ttl", "70")
	assert.Equal(t, []string{"transport", "lr", "ttl"}, p.Keys())
}

func TestParamsSetOverwritesInPlace(t *testing.T) {
	p := NewParams()
	p.Set("a", "1")
	p.Set("b", "2")
	p.Set("a", "3")
	assert.Equal(t, []string{"a", "b"}, p.Keys())
	v, ok := p.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "3", v)
}

func TestParamsQuotingOfUnsafeValues(t *testing.T) {
	p := NewParams()
	p.Set("x", "has space")
	assert.Equal(t, `x="has space"`, p.String(';'))
}

func TestParamsRemove(t *testing.T) {
	p := NewParams()
	p.Set("a", "1")
	p.Set("b", "2")
	p.Remove("a")
	assert.False(t, p.Has("a"))
	assert.Equal(t, []string{"b"}, p.Keys())
}
