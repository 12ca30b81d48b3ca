package logger

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/rs/zerolog"

	"example.com/mediaserve/internal/config"
	"example.com/mediaserve/internal/http1"
)

// LogFields carries structured key/value pairs attached to a log entry.
type LogFields map[string]interface{}

// Logger is a general logger that contains specific loggers for access and errors.
type Logger struct {
	errorLog  zerolog.Logger
	accessLog *zerolog.Logger // nil when access logging is disabled

	// Non-nil only for file targets.
	errorFile  *fileWriter
	accessFile *fileWriter
}

// NewLogger creates and configures a new Logger instance.
func NewLogger(cfg *config.LoggingConfig) (*Logger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("logging configuration cannot be nil")
	}

	level, err := zerologLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	l := &Logger{}

	// Setup Error Logger
	errorTarget := config.DefaultErrorLogTarget
	if cfg.ErrorLog != nil && cfg.ErrorLog.Target != "" {
		errorTarget = cfg.ErrorLog.Target
	}
	errorOut, errorFile, err := openTarget(errorTarget)
	if err != nil {
		return nil, fmt.Errorf("error log: %w", err)
	}
	l.errorFile = errorFile
	l.errorLog = zerolog.New(errorOut).Level(level).With().Timestamp().Logger()

	// Setup Access Logger
	if cfg.AccessLog != nil && (cfg.AccessLog.Enabled == nil || *cfg.AccessLog.Enabled) {
		accessTarget := cfg.AccessLog.Target
		if accessTarget == "" {
			accessTarget = config.DefaultAccessLogTarget
		}
		accessOut, accessFile, err := openTarget(accessTarget)
		if err != nil {
			_ = l.CloseLogFiles()
			return nil, fmt.Errorf("access log: %w", err)
		}
		l.accessFile = accessFile

		var w io.Writer = accessOut
		if cfg.AccessLog.Format == "text" {
			w = zerolog.ConsoleWriter{Out: accessOut, NoColor: true, TimeFormat: time.RFC3339}
		}
		al := zerolog.New(w).With().Timestamp().Logger()
		l.accessLog = &al
	}

	return l, nil
}

// NewTestLogger returns a Logger that writes both error and access entries as JSON
// lines to out at DEBUG level.
func NewTestLogger(out io.Writer) *Logger {
	if out == nil {
		out = io.Discard
	}
	el := zerolog.New(out).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	al := zerolog.New(out).With().Timestamp().Logger()
	return &Logger{errorLog: el, accessLog: &al}
}

// NewDiscardLogger returns a Logger that drops everything.
func NewDiscardLogger() *Logger {
	return &Logger{errorLog: zerolog.Nop()}
}

func zerologLevel(level config.LogLevel) (zerolog.Level, error) {
	switch level {
	case config.LogLevelDebug:
		return zerolog.DebugLevel, nil
	case config.LogLevelInfo, "":
		return zerolog.InfoLevel, nil
	case config.LogLevelWarning:
		return zerolog.WarnLevel, nil
	case config.LogLevelError:
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q", level)
	}
}

// openTarget resolves "stdout", "stderr" or an absolute file path to a writer.
func openTarget(target string) (io.Writer, *fileWriter, error) {
	switch target {
	case "stdout":
		return os.Stdout, nil, nil
	case "stderr":
		return os.Stderr, nil, nil
	}
	fw, err := openFileWriter(target)
	if err != nil {
		return nil, nil, err
	}
	return fw, fw, nil
}

func (l *Logger) log(ev *zerolog.Event, msg string, fields []LogFields) {
	for _, f := range fields {
		if f != nil {
			ev = ev.Fields(map[string]interface{}(f))
		}
	}
	ev.Msg(msg)
}

// Debug logs at DEBUG level.
func (l *Logger) Debug(msg string, fields ...LogFields) {
	l.log(l.errorLog.Debug(), msg, fields)
}

// Info logs at INFO level.
func (l *Logger) Info(msg string, fields ...LogFields) {
	l.log(l.errorLog.Info(), msg, fields)
}

// Warn logs at WARNING level.
func (l *Logger) Warn(msg string, fields ...LogFields) {
	l.log(l.errorLog.Warn(), msg, fields)
}

// Error logs at ERROR level.
func (l *Logger) Error(msg string, fields ...LogFields) {
	l.log(l.errorLog.Error(), msg, fields)
}

// Access writes one access log entry. req is nil when the request could not be parsed.
func (l *Logger) Access(remoteAddr string, req *http1.Request, status int, responseBytes int64, duration time.Duration) {
	if l.accessLog == nil {
		return
	}

	host, port, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host, port = remoteAddr, "0"
	}

	ev := l.accessLog.Log().
		Str("remote_addr", host).
		Str("remote_port", port).
		Int("status", status).
		Int64("resp_bytes", responseBytes).
		Int64("duration_ms", duration.Milliseconds())
	if req != nil {
		ev = ev.Str("method", req.Method()).Str("uri", req.Path())
		if proto := req.Proto(); proto != "" {
			ev = ev.Str("protocol", proto)
		}
		if ua := req.Header("User-Agent"); ua != "" {
			ev = ev.Str("user_agent", ua)
		}
		if r, ok := req.Range(); ok {
			ev = ev.Str("range", r.String())
		}
	}
	ev.Send()
}

// CloseLogFiles closes any open log files. Standard streams are left open.
func (l *Logger) CloseLogFiles() error {
	var errs []error
	if l.accessFile != nil {
		errs = append(errs, l.accessFile.Close())
	}
	if l.errorFile != nil {
		errs = append(errs, l.errorFile.Close())
	}
	return errors.Join(errs...)
}

// ReopenLogFiles reopens file-based log targets; used on SIGHUP.
func (l *Logger) ReopenLogFiles() error {
	var errs []error
	if l.errorFile != nil {
		errs = append(errs, l.errorFile.Reopen())
	}
	if l.accessFile != nil {
		errs = append(errs, l.accessFile.Reopen())
	}
	return errors.Join(errs...)
}
