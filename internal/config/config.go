package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dustin/go-humanize"
)

// MatchType defines how a path pattern is interpreted.
type MatchType string

const (
	// MatchTypeExact matches the path exactly.
	MatchTypeExact MatchType = "Exact"
	// MatchTypePrefix matches any path starting with the prefix.
	MatchTypePrefix MatchType = "Prefix"
)

// LogLevel defines the minimum severity for error logs.
type LogLevel string

const (
	LogLevelDebug   LogLevel = "DEBUG"
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARNING"
	LogLevelError   LogLevel = "ERROR"
)

// Handler types known to the router.
const (
	HandlerTypeMediaListing = "MediaListing"
	HandlerTypeMediaFile    = "MediaFile"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultMaxHeaderBytes          = "64KiB"
	DefaultGracefulShutdownTimeout = "10s"
	DefaultAccessLogFormat         = "json"
	DefaultAccessLogTarget         = "stdout"
	DefaultErrorLogTarget          = "stderr"
)

// Config is the top-level configuration structure for the server.
// The port and media directory are not part of it; see ResolveStartup.
type Config struct {
	Server  *ServerConfig  `json:"server,omitempty" toml:"server,omitempty"`
	Logging *LoggingConfig `json:"logging,omitempty" toml:"logging,omitempty"`
}

// ServerConfig holds general server settings.
type ServerConfig struct {
	MaxHeaderBytes          *string `json:"max_header_bytes,omitempty" toml:"max_header_bytes,omitempty"` // e.g., "64KiB"
	MaxConnections          *int    `json:"max_connections,omitempty" toml:"max_connections,omitempty"`   // 0 = unlimited
	ReusePort               *bool   `json:"reuse_port,omitempty" toml:"reuse_port,omitempty"`
	GracefulShutdownTimeout *string `json:"graceful_shutdown_timeout,omitempty" toml:"graceful_shutdown_timeout,omitempty"` // e.g., "30s"
}

// Route defines a single routing rule.
type Route struct {
	PathPattern string    `json:"path_pattern" toml:"path_pattern"`
	MatchType   MatchType `json:"match_type" toml:"match_type"`
	HandlerType string    `json:"handler_type" toml:"handler_type"`
}

// LoggingConfig holds logging configurations.
type LoggingConfig struct {
	LogLevel  LogLevel         `json:"log_level,omitempty" toml:"log_level,omitempty"`
	AccessLog *AccessLogConfig `json:"access_log,omitempty" toml:"access_log,omitempty"`
	ErrorLog  *ErrorLogConfig  `json:"error_log,omitempty" toml:"error_log,omitempty"`
}

// AccessLogConfig configures access logging.
type AccessLogConfig struct {
	Enabled *bool  `json:"enabled,omitempty" toml:"enabled,omitempty"`
	Target  string `json:"target,omitempty" toml:"target,omitempty"`
	Format  string `json:"format,omitempty" toml:"format,omitempty"` // "json" or "text"
}

// ErrorLogConfig configures error logging.
type ErrorLogConfig struct {
	Target string `json:"target,omitempty" toml:"target,omitempty"`
}

// CatchAllPattern is a prefix every request target has, including ones without a
// leading slash.
const CatchAllPattern = ""

// DefaultRoutes returns the routing table of the media server: the listing on "/"
// and every other target to the media handler.
func DefaultRoutes() []Route {
	return []Route{
		{PathPattern: "/", MatchType: MatchTypeExact, HandlerType: HandlerTypeMediaListing},
		{PathPattern: CatchAllPattern, MatchType: MatchTypePrefix, HandlerType: HandlerTypeMediaFile},
	}
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// IsFilePath reports whether a log target names a file rather than a standard stream.
func IsFilePath(target string) bool {
	return target != "stdout" && target != "stderr"
}

// LoadConfig reads, parses, defaults and validates the configuration file at path.
// ".json" and ".toml" files are parsed by extension; anything else is tried as JSON
// first and then as TOML.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("configuration file path cannot be empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %s: %w", path, err)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := parseJSON(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config %s: %w", path, err)
		}
	case ".toml":
		if err := parseTOML(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config %s: %w", path, err)
		}
	default:
		jsonErr := parseJSON(data, cfg)
		if jsonErr != nil {
			cfg = &Config{}
			tomlErr := parseTOML(data, cfg)
			if tomlErr != nil {
				return nil, fmt.Errorf("failed to auto-detect and parse config %s: JSON error: %v; TOML error: %v", path, jsonErr, tomlErr)
			}
		}
	}

	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return cfg, nil
}

func parseJSON(data []byte, cfg *Config) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(cfg)
}

func parseTOML(data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("toml: empty input")
	}
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("toml: unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// ApplyDefaults fills in every unset optional value.
func ApplyDefaults(cfg *Config) {
	if cfg.Server == nil {
		cfg.Server = &ServerConfig{}
	}
	if cfg.Server.MaxHeaderBytes == nil {
		cfg.Server.MaxHeaderBytes = strPtr(DefaultMaxHeaderBytes)
	}
	if cfg.Server.MaxConnections == nil {
		cfg.Server.MaxConnections = intPtr(0)
	}
	if cfg.Server.ReusePort == nil {
		cfg.Server.ReusePort = boolPtr(false)
	}
	if cfg.Server.GracefulShutdownTimeout == nil {
		cfg.Server.GracefulShutdownTimeout = strPtr(DefaultGracefulShutdownTimeout)
	}

	if cfg.Logging == nil {
		cfg.Logging = &LoggingConfig{}
	}
	if cfg.Logging.LogLevel == "" {
		cfg.Logging.LogLevel = LogLevelInfo
	}
	if cfg.Logging.AccessLog == nil {
		cfg.Logging.AccessLog = &AccessLogConfig{}
	}
	if cfg.Logging.AccessLog.Enabled == nil {
		cfg.Logging.AccessLog.Enabled = boolPtr(true)
	}
	if cfg.Logging.AccessLog.Target == "" {
		cfg.Logging.AccessLog.Target = DefaultAccessLogTarget
	}
	if cfg.Logging.AccessLog.Format == "" {
		cfg.Logging.AccessLog.Format = DefaultAccessLogFormat
	}
	if cfg.Logging.ErrorLog == nil {
		cfg.Logging.ErrorLog = &ErrorLogConfig{}
	}
	if cfg.Logging.ErrorLog.Target == "" {
		cfg.Logging.ErrorLog.Target = DefaultErrorLogTarget
	}
}

// Validate checks a defaulted configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration cannot be nil")
	}
	if cfg.Server != nil {
		if cfg.Server.MaxHeaderBytes != nil {
			if _, err := ParseByteSize(*cfg.Server.MaxHeaderBytes); err != nil {
				return fmt.Errorf("server.max_header_bytes: %w", err)
			}
		}
		if cfg.Server.MaxConnections != nil && *cfg.Server.MaxConnections < 0 {
			return fmt.Errorf("server.max_connections must not be negative, got %d", *cfg.Server.MaxConnections)
		}
		if cfg.Server.GracefulShutdownTimeout != nil {
			if _, err := ParseDuration(*cfg.Server.GracefulShutdownTimeout); err != nil {
				return fmt.Errorf("server.graceful_shutdown_timeout: %w", err)
			}
		}
	}

	if lc := cfg.Logging; lc != nil {
		switch lc.LogLevel {
		case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError:
		default:
			return fmt.Errorf("logging.log_level: invalid value %q", lc.LogLevel)
		}
		if lc.AccessLog != nil {
			if err := validateTarget("logging.access_log.target", lc.AccessLog.Target); err != nil {
				return err
			}
			if lc.AccessLog.Format != "json" && lc.AccessLog.Format != "text" {
				return fmt.Errorf("logging.access_log.format: invalid value %q (want \"json\" or \"text\")", lc.AccessLog.Format)
			}
		}
		if lc.ErrorLog != nil {
			if err := validateTarget("logging.error_log.target", lc.ErrorLog.Target); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateTarget(field, target string) error {
	if target == "" {
		return fmt.Errorf("%s cannot be empty", field)
	}
	if IsFilePath(target) && !filepath.IsAbs(target) {
		return fmt.Errorf("%s must be \"stdout\", \"stderr\" or an absolute file path, got %q", field, target)
	}
	return nil
}

// ParseByteSize parses a human readable size such as "64KiB" or "1 MB".
func ParseByteSize(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}
	if n == 0 || n > 1<<62 {
		return 0, fmt.Errorf("byte size %q out of range", s)
	}
	return int64(n), nil
}

// ParseDuration parses a Go duration string such as "10s". Negative values are rejected.
func ParseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("duration %q must not be negative", s)
	}
	return d, nil
}

// MaxHeaderBytesValue returns the configured header limit in bytes.
func (sc *ServerConfig) MaxHeaderBytesValue() int64 {
	if sc == nil || sc.MaxHeaderBytes == nil {
		n, _ := ParseByteSize(DefaultMaxHeaderBytes)
		return n
	}
	n, err := ParseByteSize(*sc.MaxHeaderBytes)
	if err != nil {
		n, _ = ParseByteSize(DefaultMaxHeaderBytes)
	}
	return n
}

// GracefulShutdownTimeoutValue returns the configured shutdown grace period.
func (sc *ServerConfig) GracefulShutdownTimeoutValue() time.Duration {
	if sc == nil || sc.GracefulShutdownTimeout == nil {
		d, _ := ParseDuration(DefaultGracefulShutdownTimeout)
		return d
	}
	d, err := ParseDuration(*sc.GracefulShutdownTimeout)
	if err != nil {
		d, _ = ParseDuration(DefaultGracefulShutdownTimeout)
	}
	return d
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func boolPtr(b bool) *bool    { return &b }
