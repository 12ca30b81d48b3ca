package logger

import (
	"fmt"
	"os"
	"sync"
)

// fileWriter is an append-only log file that can be reopened in place, e.g. after
// logrotate moved the old file away.
type fileWriter struct {
	mu   sync.Mutex
	path string
	file *os.File
}

func openFileWriter(path string) (*fileWriter, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return &fileWriter{path: path, file: f}, nil
}

// Write implements io.Writer. zerolog issues one Write per event.
func (w *fileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return 0, fmt.Errorf("log file %s is closed", w.path)
	}
	return w.file.Write(p)
}

// Reopen closes the current file handle and opens path again.
func (w *fileWriter) Reopen() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to reopen log file %s: %w", w.path, err)
	}
	w.file = f
	return nil
}

// Close closes the file. Further writes fail.
func (w *fileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
