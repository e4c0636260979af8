package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["dial"])
}

func TestPortAllocatorWrapsAndReleases(t *testing.T) {
	p := newPortAllocator(20000, 20001)

	a, ok := p.acquire()
	assert.True(t, ok)
	b, ok := p.acquire()
	assert.True(t, ok)
	assert.NotEqual(t, a, b)

	_, ok = p.acquire()
	assert.False(t, ok, "pool of 2 ports should be exhausted")

	p.release(a)
	c, ok := p.acquire()
	assert.True(t, ok)
	assert.Equal(t, a, c)
}
