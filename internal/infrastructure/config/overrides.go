package config

import (
	"strconv"
	"time"
)

// Rule is one pure configuration override, gated on the presence of a single
// environment signal. Rules are applied in order to an immutable base
// document, each producing a new document, so the rule set has no hidden
// order dependencies and every rule is unit-testable in isolation.
type Rule struct {
	Name   string
	Signal string
	Apply  func(cfg Config, value string) Config
}

// LookupFunc resolves an environment signal. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// ApplyOverrides applies each rule whose signal is present, in order,
// starting from the base document. The base is never mutated.
func ApplyOverrides(base Config, lookup LookupFunc, rules []Rule) Config {
	cfg := base
	for _, rule := range rules {
		if value, ok := lookup(rule.Signal); ok {
			cfg = rule.Apply(cfg, value)
		}
	}
	return cfg
}

// DefaultRules returns the ordered override rule set for the standard
// environment signals.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:   "state-dir",
			Signal: "CLAWSYNC_STATE_DIR",
			Apply: func(cfg Config, v string) Config {
				cfg.State.Dir = v
				return cfg
			},
		},
		{
			Name:   "r2-bucket",
			Signal: "R2_BUCKET",
			Apply: func(cfg Config, v string) Config {
				cfg.Remote.Bucket = v
				return cfg
			},
		},
		{
			Name:   "r2-endpoint",
			Signal: "R2_ENDPOINT",
			Apply: func(cfg Config, v string) Config {
				cfg.Remote.Endpoint = v
				return cfg
			},
		},
		{
			Name:   "r2-access-key",
			Signal: "R2_ACCESS_KEY_ID",
			Apply: func(cfg Config, v string) Config {
				cfg.Remote.AccessKeyID = v
				return cfg
			},
		},
		{
			Name:   "r2-secret-key",
			Signal: "R2_SECRET_ACCESS_KEY",
			Apply: func(cfg Config, v string) Config {
				cfg.Remote.SecretAccessKey = v
				return cfg
			},
		},
		{
			Name:   "r2-prefix",
			Signal: "R2_PREFIX",
			Apply: func(cfg Config, v string) Config {
				cfg.Remote.Prefix = v
				return cfg
			},
		},
		{
			Name:   "sync-interval",
			Signal: "CLAWSYNC_SYNC_INTERVAL",
			Apply: func(cfg Config, v string) Config {
				if d, err := time.ParseDuration(v); err == nil && d > 0 {
					cfg.Sync.Interval = d
				}
				return cfg
			},
		},
		{
			Name:   "initial-delay",
			Signal: "CLAWSYNC_INITIAL_DELAY",
			Apply: func(cfg Config, v string) Config {
				if d, err := time.ParseDuration(v); err == nil && d >= 0 {
					cfg.Sync.InitialDelay = d
				}
				return cfg
			},
		},
		{
			Name:   "mirror-mount-path",
			Signal: "CLAWSYNC_MIRROR_MOUNT",
			Apply: func(cfg Config, v string) Config {
				cfg.Mirror.MountPath = v
				return cfg
			},
		},
		{
			Name:   "mirror-mount-command",
			Signal: "CLAWSYNC_MIRROR_MOUNT_CMD",
			Apply: func(cfg Config, v string) Config {
				cfg.Mirror.MountCommand = v
				return cfg
			},
		},
		{
			Name:   "agent-command",
			Signal: "CLAWSYNC_AGENT_CMD",
			Apply: func(cfg Config, v string) Config {
				cfg.Agent.Enabled = true
				cfg.Agent.Command = v
				return cfg
			},
		},
		{
			Name:   "api-addr",
			Signal: "CLAWSYNC_API_ADDR",
			Apply: func(cfg Config, v string) Config {
				cfg.API.Addr = v
				return cfg
			},
		},
		{
			Name:   "api-disabled",
			Signal: "CLAWSYNC_API_DISABLED",
			Apply: func(cfg Config, v string) Config {
				if b, err := strconv.ParseBool(v); err == nil && b {
					cfg.API.Enabled = false
				}
				return cfg
			},
		},
		{
			Name:   "history-path",
			Signal: "CLAWSYNC_HISTORY_PATH",
			Apply: func(cfg Config, v string) Config {
				cfg.History.Path = v
				return cfg
			},
		},
		{
			Name:   "log-level",
			Signal: "CLAWSYNC_LOG_LEVEL",
			Apply: func(cfg Config, v string) Config {
				if validLogLevels[v] {
					cfg.Logging.Level = v
				}
				return cfg
			},
		},
		{
			Name:   "log-format",
			Signal: "CLAWSYNC_LOG_FORMAT",
			Apply: func(cfg Config, v string) Config {
				if validLogFormats[v] {
					cfg.Logging.Format = v
				}
				return cfg
			},
		},
		{
			Name:   "otlp-endpoint",
			Signal: "OTEL_EXPORTER_OTLP_ENDPOINT",
			Apply: func(cfg Config, v string) Config {
				cfg.Observability.Tracing.Enabled = true
				cfg.Observability.Tracing.ExporterType = "otlp"
				cfg.Observability.Tracing.OTLPEndpoint = v
				return cfg
			},
		},
	}
}
