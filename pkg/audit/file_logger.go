package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileLogger appends audit events as JSON lines, rotating by size.
type FileLogger struct {
	baseLogger

	basePath string
	rotate   bool
	maxSize  int64
	maxFiles int

	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
	written int64
}

// FileLoggerConfig configures the file logger.
type FileLoggerConfig struct {
	BasePath string // Directory for audit logs
	Rotate   bool   // Enable size-based rotation
	MaxSize  int64  // Max file size in bytes (default 100MB)
	MaxFiles int    // Max rotated files to keep (default 10)
}

// DefaultFileLoggerConfig returns the default configuration.
func DefaultFileLoggerConfig() FileLoggerConfig {
	return FileLoggerConfig{
		BasePath: "/var/log/verihub/audit",
		Rotate:   true,
		MaxSize:  100 * 1024 * 1024,
		MaxFiles: 10,
	}
}

// NewFileLogger creates a file-backed audit logger.
func NewFileLogger(config FileLoggerConfig) (*FileLogger, error) {
	if config.BasePath == "" {
		config = DefaultFileLoggerConfig()
	}
	if config.MaxSize <= 0 {
		config.MaxSize = DefaultFileLoggerConfig().MaxSize
	}
	if config.MaxFiles <= 0 {
		config.MaxFiles = DefaultFileLoggerConfig().MaxFiles
	}

	if err := os.MkdirAll(config.BasePath, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}

	l := &FileLogger{
		basePath: config.BasePath,
		rotate:   config.Rotate,
		maxSize:  config.MaxSize,
		maxFiles: config.MaxFiles,
	}
	l.baseLogger = baseLogger{sink: l}

	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *FileLogger) open() error {
	path := filepath.Join(l.basePath, "audit.log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return err
	}
	l.file = file
	l.encoder = json.NewEncoder(file)
	l.written = info.Size()
	return nil
}

// Log implements Logger.
func (l *FileLogger) Log(_ context.Context, event *Event) error {
	if event == nil {
		return fmt.Errorf("event is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.rotate && l.written >= l.maxSize {
		if err := l.rotateLocked(); err != nil {
			return err
		}
	}

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to write audit event: %w", err)
	}
	// Encoded size approximation is fine for rotation purposes.
	data, _ := json.Marshal(event)
	l.written += int64(len(data)) + 1
	return nil
}

func (l *FileLogger) rotateLocked() error {
	l.file.Close()

	rotated := filepath.Join(l.basePath, fmt.Sprintf("audit-%s.log", time.Now().UTC().Format("20060102T150405")))
	if err := os.Rename(filepath.Join(l.basePath, "audit.log"), rotated); err != nil {
		return fmt.Errorf("failed to rotate audit log: %w", err)
	}

	l.pruneLocked()
	return l.open()
}

func (l *FileLogger) pruneLocked() {
	matches, err := filepath.Glob(filepath.Join(l.basePath, "audit-*.log"))
	if err != nil || len(matches) <= l.maxFiles {
		return
	}
	// Glob results are sorted; the timestamped names order oldest first.
	for _, path := range matches[:len(matches)-l.maxFiles] {
		os.Remove(path)
	}
}

// Close implements Logger.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
