package config

import (
	"fmt"
	"net"
	"path/filepath"
	"strconv"
)

// MediaDirEnvKey names the environment variable holding the media directory.
const MediaDirEnvKey = "MEDIA_DIR"

// Startup holds the values every run must supply: the listening port as the first
// positional argument and the media directory in the environment.
type Startup struct {
	Port     string
	MediaDir string
}

// ListenAddress returns the address to bind: all interfaces on the configured port.
func (s Startup) ListenAddress() string {
	return net.JoinHostPort("0.0.0.0", s.Port)
}

// ResolveStartup extracts the startup values from positional arguments (program name
// already removed) and the environment. A missing port or media directory is an error.
func ResolveStartup(args []string, lookupEnv func(string) (string, bool)) (Startup, error) {
	if len(args) < 1 || args[0] == "" {
		return Startup{}, fmt.Errorf("port is a required argument")
	}
	port := args[0]
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return Startup{}, fmt.Errorf("invalid port %q: must be a number between 0 and 65535", port)
	}

	mediaDir, ok := lookupEnv(MediaDirEnvKey)
	if !ok {
		return Startup{}, fmt.Errorf("unable to find env variable %s", MediaDirEnvKey)
	}
	if mediaDir == "" {
		return Startup{}, fmt.Errorf("env variable %s is empty", MediaDirEnvKey)
	}
	if !filepath.IsAbs(mediaDir) {
		abs, err := filepath.Abs(mediaDir)
		if err != nil {
			return Startup{}, fmt.Errorf("failed to resolve %s=%q to an absolute path: %w", MediaDirEnvKey, mediaDir, err)
		}
		mediaDir = abs
	}

	return Startup{Port: port, MediaDir: filepath.Clean(mediaDir)}, nil
}
