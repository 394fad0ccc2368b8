// Package config provides configuration structs and utilities for the
// clawsync application.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config represents the root configuration for the clawsync application.
type Config struct {
	State         StateConfig         `yaml:"state"`
	Remote        RemoteConfig        `yaml:"remote"`
	Sync          SyncConfig          `yaml:"sync"`
	Mirror        MirrorConfig        `yaml:"mirror"`
	Agent         AgentConfig         `yaml:"agent"`
	API           APIConfig           `yaml:"api"`
	History       HistoryConfig       `yaml:"history"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
	Watcher       WatcherConfig       `yaml:"watcher"`
}

// StateConfig locates the local state tree.
type StateConfig struct {
	Dir string `yaml:"dir"`
}

// RemoteConfig holds credentials for the R2/S3 durable store.
type RemoteConfig struct {
	Bucket          string `yaml:"bucket"`
	Endpoint        string `yaml:"endpoint"` // S3-compatible endpoint (Cloudflare R2, MinIO)
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Prefix          string `yaml:"prefix"` // key prefix for all objects
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// Configured reports whether the remote store has usable credentials.
func (r *RemoteConfig) Configured() bool {
	return r.Bucket != "" && r.AccessKeyID != "" && r.SecretAccessKey != ""
}

// SyncConfig holds configuration for the backup scheduler and push channels.
type SyncConfig struct {
	Interval     time.Duration `yaml:"interval"`      // scheduler period
	InitialDelay time.Duration `yaml:"initial_delay"` // must exceed expected restore duration
	ExecTimeout  time.Duration `yaml:"exec_timeout"`  // bound on each executor round trip
	MinArchive   int           `yaml:"min_archive_bytes"`
	Shell        string        `yaml:"shell"`
}

// MirrorConfig holds configuration for the fallback mirror channel.
type MirrorConfig struct {
	MountPath    string `yaml:"mount_path"`
	MountCommand string `yaml:"mount_command"`
}

// AgentConfig holds configuration for the supervised agent process.
type AgentConfig struct {
	Enabled bool   `yaml:"enabled"`
	Command string `yaml:"command"`
	WorkDir string `yaml:"work_dir"`
}

// APIConfig holds configuration for the diagnostics HTTP endpoint.
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// HistoryConfig holds configuration for the sync attempt history database.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Keep    int    `yaml:"keep"` // attempts retained per cleanup
}

// LoggingConfig holds configuration for application logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// ObservabilityConfig holds configuration for tracing.
type ObservabilityConfig struct {
	Tracing TracingConfig `yaml:"tracing"`
}

// TracingConfig holds configuration for distributed tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ExporterType string  `yaml:"exporter_type"` // none, stdout, otlp
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate"`
	ServiceName  string  `yaml:"service_name"`
}

// WatcherConfig holds configuration for the state tree dirty watcher.
type WatcherConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// Default configuration values.
const (
	DefaultStateDir     = "/data/clawdbot"
	DefaultRegion       = "auto"
	DefaultSyncInterval = 10 * time.Minute
	DefaultInitialDelay = 90 * time.Second
	DefaultExecTimeout  = 30 * time.Second
	DefaultMinArchive   = 100
	DefaultShell        = "/bin/sh"

	DefaultMirrorMountPath = "/mnt/r2"

	DefaultAPIAddr = "127.0.0.1:8787"

	DefaultHistoryKeep = 500

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	DefaultTracingExporterType = "none"
	DefaultTracingSampleRate   = 1.0
	DefaultTracingServiceName  = "clawsync"

	DefaultWatcherDebounce = 30 * time.Second
)

// Valid log levels.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Valid log formats.
var validLogFormats = map[string]bool{
	"json": true,
	"text": true,
}

// Valid tracing exporter types.
var validTracingExporterTypes = map[string]bool{
	"none":   true,
	"stdout": true,
	"otlp":   true,
}

// NewDefaultConfig creates a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		State: StateConfig{
			Dir: DefaultStateDir,
		},
		Remote: RemoteConfig{
			Region: DefaultRegion,
		},
		Sync: SyncConfig{
			Interval:     DefaultSyncInterval,
			InitialDelay: DefaultInitialDelay,
			ExecTimeout:  DefaultExecTimeout,
			MinArchive:   DefaultMinArchive,
			Shell:        DefaultShell,
		},
		Mirror: MirrorConfig{
			MountPath: DefaultMirrorMountPath,
		},
		API: APIConfig{
			Enabled: true,
			Addr:    DefaultAPIAddr,
		},
		History: HistoryConfig{
			Enabled: true,
			Keep:    DefaultHistoryKeep,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Observability: ObservabilityConfig{
			Tracing: TracingConfig{
				Enabled:      false,
				ExporterType: DefaultTracingExporterType,
				SampleRate:   DefaultTracingSampleRate,
				ServiceName:  DefaultTracingServiceName,
			},
		},
		Watcher: WatcherConfig{
			Enabled:  true,
			Debounce: DefaultWatcherDebounce,
		},
	}
}

// Validate checks if the configuration is valid and returns an error if not.
func (c *Config) Validate() error {
	var errs []error

	if err := c.State.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("state: %w", err))
	}
	if err := c.Sync.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("sync: %w", err))
	}
	if err := c.Mirror.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("mirror: %w", err))
	}
	if err := c.API.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("api: %w", err))
	}
	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}
	if err := c.Observability.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("observability: %w", err))
	}
	if err := c.Watcher.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("watcher: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks if the StateConfig is valid.
func (s *StateConfig) Validate() error {
	if s.Dir == "" {
		return errors.New("dir is required")
	}
	return nil
}

// Validate checks if the SyncConfig is valid.
func (s *SyncConfig) Validate() error {
	var errs []error

	if s.Interval <= 0 {
		errs = append(errs, errors.New("interval must be positive"))
	}
	if s.InitialDelay < 0 {
		errs = append(errs, errors.New("initial_delay must be non-negative"))
	}
	if s.ExecTimeout <= 0 {
		errs = append(errs, errors.New("exec_timeout must be positive"))
	}
	if s.MinArchive <= 0 {
		errs = append(errs, errors.New("min_archive_bytes must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks if the MirrorConfig is valid.
func (m *MirrorConfig) Validate() error {
	if m.MountPath == "" {
		return errors.New("mount_path is required")
	}
	return nil
}

// Validate checks if the APIConfig is valid.
func (a *APIConfig) Validate() error {
	if a.Enabled && a.Addr == "" {
		return errors.New("addr is required when enabled")
	}
	return nil
}

// Validate checks if the LoggingConfig is valid.
func (l *LoggingConfig) Validate() error {
	var errs []error

	if l.Level != "" && !validLogLevels[l.Level] {
		errs = append(errs, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", l.Level))
	}
	if l.Format != "" && !validLogFormats[l.Format] {
		errs = append(errs, fmt.Errorf("invalid log format %q: must be one of json, text", l.Format))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks if the ObservabilityConfig is valid.
func (o *ObservabilityConfig) Validate() error {
	if err := o.Tracing.Validate(); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	return nil
}

// Validate checks if the TracingConfig is valid.
func (t *TracingConfig) Validate() error {
	var errs []error

	if t.Enabled {
		if t.ExporterType != "" && !validTracingExporterTypes[t.ExporterType] {
			errs = append(errs, fmt.Errorf("invalid exporter_type %q: must be one of none, stdout, otlp", t.ExporterType))
		}
		if t.ExporterType == "otlp" && t.OTLPEndpoint == "" {
			errs = append(errs, errors.New("otlp_endpoint is required when exporter_type is 'otlp'"))
		}
		if t.SampleRate < 0 || t.SampleRate > 1 {
			errs = append(errs, errors.New("sample_rate must be between 0.0 and 1.0"))
		}
		if t.ServiceName == "" {
			errs = append(errs, errors.New("service_name is required when tracing is enabled"))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks if the WatcherConfig is valid.
func (w *WatcherConfig) Validate() error {
	if w.Enabled && w.Debounce <= 0 {
		return errors.New("debounce must be positive when watcher is enabled")
	}
	return nil
}
