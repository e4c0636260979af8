package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTmpConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestLoadValidConfigDerivesContactFromListen(t *testing.T) {
	cfg, err := Load(writeTmpConfig(t, `
sipagent:
  listen:
    network: udp
    address: "192.0.2.10:5060"
  contact:
    user: alice
  log:
    level: debug
`))
	require.NoError(t, err)

	assert.Equal(t, "udp", cfg.Listen.Network)
	assert.Equal(t, "alice", cfg.Contact.User)
	assert.Equal(t, "192.0.2.10", cfg.Contact.Host)
	assert.Equal(t, 5060, cfg.Contact.Port)
	assert.Len(t, cfg.Media.Codecs, 2)
	assert.True(t, cfg.Media.SupportDTMF)
}

func TestLoadRejectsInvalidLogLevel(t *testing.T) {
	_, err := Load(writeTmpConfig(t, `
sipagent:
  listen:
    address: ":5060"
  log:
    level: verbose
`))
	require.Error(t, err)
}

func TestLoadRejectsInvalidPortRange(t *testing.T) {
	_, err := Load(writeTmpConfig(t, `
sipagent:
  listen:
    address: ":5060"
  media:
    rtp_port_min: 20100
    rtp_port_max: 20000
`))
	require.Error(t, err)
}

func TestLoadHonorsExplicitCodecList(t *testing.T) {
	cfg, err := Load(writeTmpConfig(t, `
sipagent:
  listen:
    address: ":5060"
  media:
    codecs:
      - pt: 0
        name: PCMU
        clock_rate: 8000
        channels: 1
`))
	require.NoError(t, err)
	require.Len(t, cfg.Media.Codecs, 1)
	assert.Equal(t, "PCMU", cfg.Media.Codecs[0].Name)
}
