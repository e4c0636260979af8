// Package config loads the sipagent CLI's configuration with viper,
// grounded on firestige-Otus/internal/config.Load's
// SetConfigFile/ReadInConfig/SetEnvKeyReplacer/AutomaticEnv/SetDefault
// pattern, trimmed to the surface a SIP user agent actually needs (this
// module's core packages take no dependency on viper at all — config only
// exists at the cmd/ boundary, per spec.md §1's CLI non-goal).
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config is the top-level static configuration for the sipagent CLI.
// Maps to the `sipagent:` root key in YAML; env vars use SIPAGENT_ prefix
// (e.g. SIPAGENT_LOG_LEVEL).
type Config struct {
	Listen  ListenConfig  `mapstructure:"listen"`
	Contact ContactConfig `mapstructure:"contact"`
	Media   MediaConfig   `mapstructure:"media"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Log     LogConfig     `mapstructure:"log"`
}

// ListenConfig is the SIP transport's bind address.
type ListenConfig struct {
	Network string `mapstructure:"network"` // "udp" | "tcp"
	Address string `mapstructure:"address"` // host:port
}

// ContactConfig builds the local Contact/From URI advertised in requests
// and responses (spec.md §4.A/§4.H).
type ContactConfig struct {
	User string `mapstructure:"user"`
	Host string `mapstructure:"host"` // empty = derive from listen.address
	Port int    `mapstructure:"port"` // 0 = derive from listen.address
}

// CodecConfig is one statically-assigned codec entered in preference
// order (spec.md §3 "Codec.").
type CodecConfig struct {
	PT        uint8  `mapstructure:"pt"`
	Name      string `mapstructure:"name"`
	ClockRate uint32 `mapstructure:"clock_rate"`
	Channels  uint16 `mapstructure:"channels"`
}

// MediaConfig governs the media.UDPSession this agent answers each call with
// (spec.md §4.J).
type MediaConfig struct {
	LocalIP       string        `mapstructure:"local_ip"`
	RTPPortMin    int           `mapstructure:"rtp_port_min"`
	RTPPortMax    int           `mapstructure:"rtp_port_max"`
	Codecs        []CodecConfig `mapstructure:"codecs"`
	SupportDTMF   bool          `mapstructure:"support_dtmf"`
}

// MetricsConfig governs the promhttp listener exposing the metrics.Registry.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// LogConfig governs the slog/logrus setup (cmd/sipagent/logging.go).
type LogConfig struct {
	Level string `mapstructure:"level"` // debug|info|warn|error
}

type configRoot struct {
	SIPAgent Config `mapstructure:"sipagent"`
}

// Load reads path (a YAML file), overlays SIPAGENT_-prefixed env vars,
// applies defaults and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg := root.SIPAgent

	if err := cfg.applyDefaultsAndValidate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sipagent.listen.network", "udp")
	v.SetDefault("sipagent.listen.address", "0.0.0.0:5060")

	v.SetDefault("sipagent.contact.user", "sipagent")

	v.SetDefault("sipagent.media.local_ip", "0.0.0.0")
	v.SetDefault("sipagent.media.rtp_port_min", 20000)
	v.SetDefault("sipagent.media.rtp_port_max", 20100)
	v.SetDefault("sipagent.media.support_dtmf", true)

	v.SetDefault("sipagent.metrics.enabled", true)
	v.SetDefault("sipagent.metrics.listen", ":9191")
	v.SetDefault("sipagent.metrics.path", "/metrics")

	v.SetDefault("sipagent.log.level", "info")
}

// applyDefaultsAndValidate fills in values that depend on other fields
// (contact host/port inherited from listen.address) and rejects an
// unusable config.
func (cfg *Config) applyDefaultsAndValidate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug/info/warn/error)", cfg.Log.Level)
	}

	if cfg.Listen.Address == "" {
		return fmt.Errorf("listen.address must not be empty")
	}

	host, port, err := splitHostPort(cfg.Listen.Address)
	if err != nil {
		return fmt.Errorf("listen.address: %w", err)
	}
	if cfg.Contact.Host == "" {
		cfg.Contact.Host = host
	}
	if cfg.Contact.Port == 0 {
		cfg.Contact.Port = port
	}

	if len(cfg.Media.Codecs) == 0 {
		cfg.Media.Codecs = []CodecConfig{
			{PT: 0, Name: "PCMU", ClockRate: 8000, Channels: 1},
			{PT: 8, Name: "PCMA", ClockRate: 8000, Channels: 1},
		}
	}
	if cfg.Media.RTPPortMax <= cfg.Media.RTPPortMin {
		return fmt.Errorf("media.rtp_port_max must be greater than media.rtp_port_min")
	}

	return nil
}

// splitHostPort parses "host:port", defaulting host to "0.0.0.0" when the
// listen address binds on all interfaces (e.g. ":5060").
func splitHostPort(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	if host == "" {
		host = "0.0.0.0"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	return host, port, nil
}
