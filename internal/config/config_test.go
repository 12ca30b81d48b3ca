package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
)

// writeTempFile creates a temporary file with the given content and extension.
// It returns the path to the file; the file is removed when the test ends.
func writeTempFile(t *testing.T, content string, ext string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp(t.TempDir(), "test-config-*"+ext)
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		tmpFile.Close()
		t.Fatalf("Failed to write to temp file: %v", err)
	}
	if err := tmpFile.Close(); err != nil {
		t.Fatalf("Failed to close temp file: %v", err)
	}
	return tmpFile.Name()
}

// checkErrorContains checks if the error is not nil and its message contains the expected substring.
func checkErrorContains(t *testing.T, err error, expectedSubstring string) {
	t.Helper()
	if err == nil {
		t.Fatalf("Expected an error containing %q, but got nil", expectedSubstring)
	}
	if !strings.Contains(err.Error(), expectedSubstring) {
		t.Fatalf("Expected error message to contain %q, but got: %v", expectedSubstring, err)
	}
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	_, err := LoadConfig("")
	checkErrorContains(t, err, "configuration file path cannot be empty")
}

func TestLoadConfig_NonExistentFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "non_existent_file.json"))
	checkErrorContains(t, err, "failed to read configuration file")
}

func TestLoadConfig_ValidJSON(t *testing.T) {
	path := writeTempFile(t, `{"server": {"max_header_bytes": "8KiB", "max_connections": 16}}`, ".json")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed for valid JSON: %v", err)
	}
	if got := cfg.Server.MaxHeaderBytesValue(); got != 8*1024 {
		t.Errorf("Expected max header bytes 8192, got %d", got)
	}
	if cfg.Server.MaxConnections == nil || *cfg.Server.MaxConnections != 16 {
		t.Errorf("Expected max connections 16, got %v", cfg.Server.MaxConnections)
	}
	// Defaults still applied to the untouched sections.
	if cfg.Logging == nil || cfg.Logging.LogLevel != LogLevelInfo {
		t.Errorf("Expected default log level INFO, got %+v", cfg.Logging)
	}
}

func TestLoadConfig_ValidTOML(t *testing.T) {
	content := `
[server]
graceful_shutdown_timeout = "3s"
reuse_port = true

[logging]
log_level = "DEBUG"

[logging.access_log]
format = "text"
`
	path := writeTempFile(t, content, ".toml")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed for valid TOML: %v", err)
	}
	if got := cfg.Server.GracefulShutdownTimeoutValue(); got != 3*time.Second {
		t.Errorf("Expected graceful shutdown timeout 3s, got %v", got)
	}
	if cfg.Server.ReusePort == nil || !*cfg.Server.ReusePort {
		t.Errorf("Expected reuse_port true, got %v", cfg.Server.ReusePort)
	}
	if cfg.Logging.LogLevel != LogLevelDebug {
		t.Errorf("Expected log level DEBUG, got %s", cfg.Logging.LogLevel)
	}
	if cfg.Logging.AccessLog.Format != "text" {
		t.Errorf("Expected access log format text, got %s", cfg.Logging.AccessLog.Format)
	}
}

func TestLoadConfig_AutoDetectJSON(t *testing.T) {
	path := writeTempFile(t, `{"logging": {"log_level": "DEBUG"}}`, ".conf")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed for auto-detect JSON: %v", err)
	}
	if cfg.Logging.LogLevel != LogLevelDebug {
		t.Errorf("Expected log level to be DEBUG, got %v", cfg.Logging.LogLevel)
	}
}

func TestLoadConfig_AutoDetectTOML(t *testing.T) {
	content := `
[logging]
log_level = "WARNING"
`
	path := writeTempFile(t, content, ".cfg")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed for auto-detect TOML: %v", err)
	}
	if cfg.Logging.LogLevel != LogLevelWarning {
		t.Errorf("Expected log level to be WARNING, got %v", cfg.Logging.LogLevel)
	}
}

func TestLoadConfig_AutoDetectFailure(t *testing.T) {
	path := writeTempFile(t, `not json or toml`, ".data")

	_, err := LoadConfig(path)
	checkErrorContains(t, err, "failed to auto-detect and parse config")
	checkErrorContains(t, err, "JSON error")
	checkErrorContains(t, err, "TOML error")
}

func TestLoadConfig_EmptyFile(t *testing.T) {
	tests := []struct {
		name        string
		ext         string
		expectError string
	}{
		{name: "empty .json file", ext: ".json", expectError: "failed to parse JSON config"},
		{name: "empty .toml file", ext: ".toml", expectError: "empty input"},
		{name: "empty file auto-detect", ext: ".empty", expectError: "failed to auto-detect and parse config"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeTempFile(t, "", tc.ext)
			_, err := LoadConfig(path)
			checkErrorContains(t, err, tc.expectError)
		})
	}
}

func TestLoadConfig_UnknownKeysRejected(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		path := writeTempFile(t, `{"server": {"port": 8080}}`, ".json")
		_, err := LoadConfig(path)
		checkErrorContains(t, err, "unknown field")
	})
	t.Run("toml", func(t *testing.T) {
		path := writeTempFile(t, "[server]\nmedia_dir = \"/srv\"\n", ".toml")
		_, err := LoadConfig(path)
		checkErrorContains(t, err, "unknown keys")
	})
}

func TestLoadConfig_ValidationErrors(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		expectError string
	}{
		{
			name:        "bad header size",
			content:     "[server]\nmax_header_bytes = \"lots\"\n",
			expectError: "server.max_header_bytes",
		},
		{
			name:        "negative connections",
			content:     "[server]\nmax_connections = -1\n",
			expectError: "server.max_connections",
		},
		{
			name:        "bad duration",
			content:     "[server]\ngraceful_shutdown_timeout = \"soon\"\n",
			expectError: "server.graceful_shutdown_timeout",
		},
		{
			name:        "bad log level",
			content:     "[logging]\nlog_level = \"LOUD\"\n",
			expectError: "logging.log_level",
		},
		{
			name:        "relative log file",
			content:     "[logging.error_log]\ntarget = \"logs/error.log\"\n",
			expectError: "absolute file path",
		},
		{
			name:        "bad access log format",
			content:     "[logging.access_log]\nformat = \"xml\"\n",
			expectError: "logging.access_log.format",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeTempFile(t, tc.content, ".toml")
			_, err := LoadConfig(path)
			checkErrorContains(t, err, tc.expectError)
		})
	}
}

func TestLoadConfig_TOMLRoundTrip(t *testing.T) {
	original := Default()
	original.Logging.LogLevel = LogLevelError
	*original.Server.MaxConnections = 4

	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(original); err != nil {
		t.Fatalf("Failed to encode config as TOML: %v", err)
	}
	path := writeTempFile(t, sb.String(), ".toml")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed for encoded TOML: %v\n%s", err, sb.String())
	}
	if cfg.Logging.LogLevel != LogLevelError {
		t.Errorf("Expected log level ERROR, got %s", cfg.Logging.LogLevel)
	}
	if *cfg.Server.MaxConnections != 4 {
		t.Errorf("Expected max connections 4, got %d", *cfg.Server.MaxConnections)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Fatalf("Default config does not validate: %v", err)
	}
	if got := cfg.Server.MaxHeaderBytesValue(); got != 64*1024 {
		t.Errorf("Expected default max header bytes 65536, got %d", got)
	}
	if got := cfg.Server.GracefulShutdownTimeoutValue(); got != 10*time.Second {
		t.Errorf("Expected default graceful timeout 10s, got %v", got)
	}
	if !*cfg.Logging.AccessLog.Enabled {
		t.Error("Expected access log enabled by default")
	}
	if cfg.Logging.ErrorLog.Target != "stderr" || cfg.Logging.AccessLog.Target != "stdout" {
		t.Errorf("Unexpected default targets: error=%q access=%q", cfg.Logging.ErrorLog.Target, cfg.Logging.AccessLog.Target)
	}
}

func TestParseByteSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "64KiB", want: 65536},
		{in: "1 MB", want: 1000000},
		{in: "512", want: 512},
		{in: "0", wantErr: true},
		{in: "huge", wantErr: true},
	}
	for _, tc := range tests {
		got, err := ParseByteSize(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseByteSize(%q): expected error, got %d", tc.in, got)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseByteSize(%q) = %d, %v; want %d", tc.in, got, err, tc.want)
		}
	}
}

func TestDefaultRoutes(t *testing.T) {
	routes := DefaultRoutes()
	if len(routes) != 2 {
		t.Fatalf("Expected 2 routes, got %d", len(routes))
	}
	if routes[0].MatchType != MatchTypeExact || routes[0].PathPattern != "/" || routes[0].HandlerType != HandlerTypeMediaListing {
		t.Errorf("Unexpected listing route: %+v", routes[0])
	}
	if routes[1].MatchType != MatchTypePrefix || routes[1].PathPattern != CatchAllPattern || routes[1].HandlerType != HandlerTypeMediaFile {
		t.Errorf("Unexpected media route: %+v", routes[1])
	}
}
