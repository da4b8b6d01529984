// Package config loads a node or relay's tunables (spec §5, §6) the way
// the teacher loads its daemon config: defaults, then an optional
// config.yaml, then AGENTMAIL_* environment overrides, with CLI flags
// (parsed in cmd/) taking final precedence. Grounded on
// internal/bootstrap/wakuconfig/config.go's LoadFromPath/ApplyEnvOverrides
// shape.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable a node or relay process needs (spec §5's
// timeouts and retry parameters, plus the identity/listen settings from
// §6's CLI surface).
type Config struct {
	Name     string `yaml:"name"`
	Port     int    `yaml:"port"`
	DataDir  string `yaml:"dataDir"`
	RelayURL string `yaml:"relayUrl"`

	DirectTimeout time.Duration `yaml:"directTimeout"`
	RelayTimeout  time.Duration `yaml:"relayTimeout"`
	MDNSResolve   time.Duration `yaml:"mdnsResolve"`

	BackoffBase    time.Duration `yaml:"backoffBase"`
	BackoffCap     time.Duration `yaml:"backoffCap"`
	AttemptCeiling int           `yaml:"attemptCeiling"`

	RegisterEvery time.Duration `yaml:"registerEvery"`
	PickupEvery   time.Duration `yaml:"pickupEvery"`
	DrainTick     time.Duration `yaml:"drainTick"`
	DrainBatch    int           `yaml:"drainBatch"`
}

// Default returns spec §4.5/§5's stated defaults.
func Default() Config {
	return Config{
		Port:           7300,
		DataDir:        "./data",
		DirectTimeout:  3 * time.Second,
		RelayTimeout:   5 * time.Second,
		MDNSResolve:    2 * time.Second,
		BackoffBase:    5 * time.Second,
		BackoffCap:     300 * time.Second,
		AttemptCeiling: 20,
		RegisterEvery:  60 * time.Second,
		PickupEvery:    5 * time.Second,
		DrainTick:      2 * time.Second,
		DrainBatch:     16,
	}
}

// yamlShape mirrors Config but with pointer fields so a present-but-zero
// value in the file (e.g. port: 0) is distinguishable from an absent key,
// matching wakuconfig.DaemonNetworkConfig's *bool pattern.
type yamlShape struct {
	Name     *string `yaml:"name"`
	Port     *int    `yaml:"port"`
	DataDir  *string `yaml:"dataDir"`
	RelayURL *string `yaml:"relayUrl"`

	DirectTimeout *time.Duration `yaml:"directTimeout"`
	RelayTimeout  *time.Duration `yaml:"relayTimeout"`
	MDNSResolve   *time.Duration `yaml:"mdnsResolve"`

	BackoffBase    *time.Duration `yaml:"backoffBase"`
	BackoffCap     *time.Duration `yaml:"backoffCap"`
	AttemptCeiling *int           `yaml:"attemptCeiling"`

	RegisterEvery *time.Duration `yaml:"registerEvery"`
	PickupEvery   *time.Duration `yaml:"pickupEvery"`
	DrainTick     *time.Duration `yaml:"drainTick"`
	DrainBatch    *int           `yaml:"drainBatch"`
}

// LoadFromPath builds a Config starting from Default, merging in
// configPath's contents (if non-empty and readable) and then AGENTMAIL_*
// env overrides. CLI flags are applied afterward by the caller in cmd/,
// which always wins (spec §10.3's stated precedence order).
func LoadFromPath(configPath string) Config {
	cfg := Default()

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			var parsed yamlShape
			if err := yaml.Unmarshal(data, &parsed); err == nil {
				Merge(&cfg, parsed)
			}
		}
	}

	ApplyEnvOverrides(&cfg)
	return cfg
}

// Merge overlays any non-nil field of src onto dst.
func Merge(dst *Config, src yamlShape) {
	if src.Name != nil {
		dst.Name = *src.Name
	}
	if src.Port != nil {
		dst.Port = *src.Port
	}
	if src.DataDir != nil {
		dst.DataDir = *src.DataDir
	}
	if src.RelayURL != nil {
		dst.RelayURL = *src.RelayURL
	}
	if src.DirectTimeout != nil {
		dst.DirectTimeout = *src.DirectTimeout
	}
	if src.RelayTimeout != nil {
		dst.RelayTimeout = *src.RelayTimeout
	}
	if src.MDNSResolve != nil {
		dst.MDNSResolve = *src.MDNSResolve
	}
	if src.BackoffBase != nil {
		dst.BackoffBase = *src.BackoffBase
	}
	if src.BackoffCap != nil {
		dst.BackoffCap = *src.BackoffCap
	}
	if src.AttemptCeiling != nil {
		dst.AttemptCeiling = *src.AttemptCeiling
	}
	if src.RegisterEvery != nil {
		dst.RegisterEvery = *src.RegisterEvery
	}
	if src.PickupEvery != nil {
		dst.PickupEvery = *src.PickupEvery
	}
	if src.DrainTick != nil {
		dst.DrainTick = *src.DrainTick
	}
	if src.DrainBatch != nil {
		dst.DrainBatch = *src.DrainBatch
	}
}

// ApplyEnvOverrides applies AGENTMAIL_* environment variables on top of
// cfg, following wakuconfig.ApplyEnvOverrides's pattern of trimming,
// ignoring empty/unparseable values, and overriding in place.
func ApplyEnvOverrides(cfg *Config) {
	if name := strings.TrimSpace(os.Getenv("AGENTMAIL_NAME")); name != "" {
		cfg.Name = name
	}
	if relay := strings.TrimSpace(os.Getenv("AGENTMAIL_RELAY_URL")); relay != "" {
		cfg.RelayURL = relay
	}
	if dataDir := strings.TrimSpace(os.Getenv("AGENTMAIL_DATA_DIR")); dataDir != "" {
		cfg.DataDir = dataDir
	}
	if port := strings.TrimSpace(os.Getenv("AGENTMAIL_PORT")); port != "" {
		if v, err := strconv.Atoi(port); err == nil {
			cfg.Port = v
		}
	}
}
