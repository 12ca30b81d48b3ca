package testutil

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"

	"example.com/mediaserve/internal/config"
	"example.com/mediaserve/internal/handlers/mediaserver"
	"example.com/mediaserve/internal/logger"
	"example.com/mediaserve/internal/router"
	"example.com/mediaserve/internal/server"
)

// DefaultTimeout bounds a single request/response exchange.
const DefaultTimeout = 5 * time.Second

// BodyMatcher defines a way to match the response body.
type BodyMatcher interface {
	Match(body []byte) (bool, string) // Returns match status and a description of mismatch
}

// ExactBodyMatcher matches the body exactly.
type ExactBodyMatcher struct {
	ExpectedBody []byte
}

// Match implements BodyMatcher for ExactBodyMatcher.
func (m *ExactBodyMatcher) Match(body []byte) (bool, string) {
	if bytes.Equal(m.ExpectedBody, body) {
		return true, ""
	}
	return false, fmt.Sprintf("bodies do not match exactly. Expected: %q, Got: %q", string(m.ExpectedBody), string(body))
}

// StringContainsBodyMatcher checks if the body contains a specific substring.
type StringContainsBodyMatcher struct {
	Substring string
}

// Match implements BodyMatcher for StringContainsBodyMatcher.
func (m *StringContainsBodyMatcher) Match(body []byte) (bool, string) {
	if bytes.Contains(body, []byte(m.Substring)) {
		return true, ""
	}
	return false, fmt.Sprintf("body does not contain substring: %q. Body: %q", m.Substring, string(body))
}

// ExpectedResponse models the expected outcome of a request.
type ExpectedResponse struct {
	StatusCode  int
	Headers     map[string]string // exact header values
	BodyMatcher BodyMatcher       // optional
}

// ActualResponse stores the outcome of a raw exchange with the server.
type ActualResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Error      error
}

// SyncBuffer is a bytes.Buffer safe for concurrent writers, used to capture server logs.
type SyncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *SyncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *SyncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// ServerInstance is a media server running in-process on a loopback port.
type ServerInstance struct {
	Server     *server.Server
	Config     *config.Config
	Address    string
	MediaDir   string
	ConfigPath string // empty when started with defaults
	LogBuffer  *SyncBuffer

	serveErr chan error
	stopOnce sync.Once
	stopErr  error
}

// WriteTempConfig creates a temporary configuration file in JSON or TOML format.
// It returns the path to the file and a cleanup function to remove it.
func WriteTempConfig(configData interface{}, format string) (filePath string, cleanupFunc func(), err error) {
	var data []byte
	var ext string

	switch strings.ToLower(format) {
	case "json":
		data, err = json.MarshalIndent(configData, "", "  ")
		ext = ".json"
	case "toml":
		buf := new(bytes.Buffer)
		if err = toml.NewEncoder(buf).Encode(configData); err == nil {
			data = buf.Bytes()
		}
		ext = ".toml"
	default:
		err = fmt.Errorf("unsupported config format: %s", format)
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal config data to %s: %w", format, err)
	}

	tmpFile, err := os.CreateTemp("", "testconfig-*"+ext)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp config file: %w", err)
	}
	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		return "", nil, fmt.Errorf("failed to write to temp config file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpFile.Name())
		return "", nil, fmt.Errorf("failed to close temp config file: %w", err)
	}

	filePath = tmpFile.Name()
	cleanupFunc = func() { os.Remove(filePath) }
	return filePath, cleanupFunc, nil
}

// WriteMediaFiles populates dir with the given files, keyed by name.
func WriteMediaFiles(dir string, files map[string][]byte) error {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), files[name], 0644); err != nil {
			return fmt.Errorf("failed to write media file %s: %w", name, err)
		}
	}
	return nil
}

// StartTestServer wires the media server exactly as the binary does and serves mediaDir on
// a loopback port chosen by the kernel. configFile may be empty to run with defaults; its
// logging section is replaced by a capture into LogBuffer.
func StartTestServer(configFile string, mediaDir string) (*ServerInstance, error) {
	if mediaDir == "" {
		return nil, fmt.Errorf("mediaDir cannot be empty")
	}

	cfg := config.Default()
	if configFile != "" {
		loaded, err := config.LoadConfig(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", configFile, err)
		}
		cfg = loaded
	}

	logBuf := &SyncBuffer{}
	lg := logger.NewTestLogger(logBuf)

	registry := server.NewHandlerRegistry()
	if err := mediaserver.Register(registry); err != nil {
		return nil, err
	}
	rt, err := router.NewRouter(config.DefaultRoutes(), registry, mediaDir, lg)
	if err != nil {
		return nil, fmt.Errorf("failed to create router: %w", err)
	}
	srv, err := server.NewServer(cfg, lg, rt, "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to create server: %w", err)
	}
	l, err := srv.Listen()
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	instance := &ServerInstance{
		Server:     srv,
		Config:     cfg,
		Address:    l.Addr().String(),
		MediaDir:   mediaDir,
		ConfigPath: configFile,
		LogBuffer:  logBuf,
		serveErr:   make(chan error, 1),
	}
	go func() { instance.serveErr <- srv.Serve(l) }()
	return instance, nil
}

// Stop shuts the server down gracefully and waits for the accept loop to exit.
func (si *ServerInstance) Stop() error {
	si.stopOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
		defer cancel()
		if err := si.Server.Shutdown(ctx); err != nil {
			si.stopErr = err
			return
		}
		select {
		case err := <-si.serveErr:
			if err != nil && !errors.Is(err, server.ErrServerClosed) {
				si.stopErr = err
			}
		case <-ctx.Done():
			si.stopErr = fmt.Errorf("accept loop did not exit: %w", ctx.Err())
		}
	})
	return si.stopErr
}

// SendRawRequest writes raw to a fresh connection and parses whatever the server answers.
func SendRawRequest(address, raw string) *ActualResponse {
	conn, err := net.DialTimeout("tcp", address, DefaultTimeout)
	if err != nil {
		return &ActualResponse{Error: fmt.Errorf("dial %s: %w", address, err)}
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(DefaultTimeout))

	if _, err := io.WriteString(conn, raw); err != nil {
		return &ActualResponse{Error: fmt.Errorf("write request: %w", err)}
	}

	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	if err != nil {
		return &ActualResponse{Error: fmt.Errorf("read response: %w", err)}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	return &ActualResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
		Error:      err,
	}
}

// Get issues a GET for path with the given extra header lines, e.g. "Range: bytes=0-1".
func Get(address, path string, headerLines ...string) *ActualResponse {
	var sb strings.Builder
	fmt.Fprintf(&sb, "GET %s HTTP/1.1\r\n", path)
	fmt.Fprintf(&sb, "Host: %s\r\n", address)
	for _, line := range headerLines {
		sb.WriteString(line)
		sb.WriteString("\r\n")
	}
	sb.WriteString("\r\n")
	return SendRawRequest(address, sb.String())
}

// AssertResponse checks actual against expected and reports every mismatch.
func AssertResponse(t *testing.T, expected ExpectedResponse, actual *ActualResponse) {
	t.Helper()
	if !assert.NoError(t, actual.Error, "request failed") {
		return
	}
	assert.Equal(t, expected.StatusCode, actual.StatusCode, "status code")
	for name, want := range expected.Headers {
		assert.Equal(t, want, actual.Headers.Get(name), "header %s", name)
	}
	if expected.BodyMatcher != nil {
		ok, msg := expected.BodyMatcher.Match(actual.Body)
		assert.True(t, ok, msg)
	}
}
