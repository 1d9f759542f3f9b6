package audit

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FileLogger appends audit lines to a file. Each record is a single write on a
// file opened with O_APPEND.
type FileLogger struct {
	path     string
	file     *os.File
	mu       sync.Mutex
	maxSize  int64 // rotate once the file would exceed this size; 0 disables
	maxFiles int   // rotated files kept
	now      func() time.Time
}

// FileLoggerConfig configures the file logger
type FileLoggerConfig struct {
	Path     string // audit log file
	MaxSize  int64  // bytes before rotation, 0 disables rotation
	MaxFiles int    // rotated files to keep (default: 10)
}

// DefaultFileLoggerConfig returns default configuration
func DefaultFileLoggerConfig() FileLoggerConfig {
	return FileLoggerConfig{
		Path:     "rbac.log",
		MaxFiles: 10,
	}
}

// NewFileLogger creates a new file-based audit logger
func NewFileLogger(config FileLoggerConfig) (*FileLogger, error) {
	if config.Path == "" {
		config.Path = DefaultFileLoggerConfig().Path
	}
	if dir := filepath.Dir(config.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create audit log directory: %w", err)
		}
	}

	logger := &FileLogger{
		path:     config.Path,
		maxSize:  config.MaxSize,
		maxFiles: config.MaxFiles,
		now:      time.Now,
	}
	if logger.maxFiles <= 0 {
		logger.maxFiles = 10
	}

	if err := logger.openLogFile(); err != nil {
		return nil, err
	}

	return logger, nil
}

// Path returns the active log file
func (l *FileLogger) Path() string { return l.path }

func (l *FileLogger) openLogFile() error {
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit log file: %w", err)
	}
	l.file = file
	return nil
}

// rotatedPattern matches rotated siblings of the log file
func (l *FileLogger) rotatedPattern() string {
	ext := filepath.Ext(l.path)
	return strings.TrimSuffix(l.path, ext) + "-*" + ext
}

// rotateFile moves the current file aside and opens a fresh one
func (l *FileLogger) rotateFile() error {
	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}

	ext := filepath.Ext(l.path)
	rotated := fmt.Sprintf("%s-%s%s", strings.TrimSuffix(l.path, ext), l.now().Format("20060102-150405.000000000"), ext)
	if err := os.Rename(l.path, rotated); err != nil {
		return fmt.Errorf("failed to rename log file: %w", err)
	}

	if err := l.cleanupOldFiles(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to cleanup old audit logs: %v\n", err)
	}

	return l.openLogFile()
}

// cleanupOldFiles removes rotated files beyond the retention limit. The
// timestamp suffix sorts lexically, so the oldest files come first.
func (l *FileLogger) cleanupOldFiles() error {
	files, err := filepath.Glob(l.rotatedPattern())
	if err != nil {
		return err
	}
	if len(files) <= l.maxFiles {
		return nil
	}

	sort.Strings(files)
	for _, file := range files[:len(files)-l.maxFiles] {
		if err := os.Remove(file); err != nil {
			fmt.Fprintf(os.Stderr, "failed to remove old audit log %s: %v\n", file, err)
		}
	}
	return nil
}

// Append implements Logger.Append
func (l *FileLogger) Append(ctx context.Context, rec *Record) error {
	line := rec.Format() + "\n"

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return fmt.Errorf("%w: logger closed", ErrAuditWrite)
	}

	if l.maxSize > 0 {
		if info, err := l.file.Stat(); err == nil && info.Size() > 0 && info.Size()+int64(len(line)) > l.maxSize {
			if err := l.rotateFile(); err != nil {
				return fmt.Errorf("%w: %v", ErrAuditWrite, err)
			}
		}
	}

	if _, err := l.file.WriteString(line); err != nil {
		return fmt.Errorf("%w: %v", ErrAuditWrite, err)
	}
	return nil
}

// Close closes the file logger
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// ReadRecords parses the active log file. When count > 0 only the most recent
// count records are returned.
func (l *FileLogger) ReadRecords(count int) ([]*Record, error) {
	return ReadFile(l.path, count)
}

// maxLineSize bounds a single audit line when reading the log back
const maxLineSize = 16 * 1024 * 1024

// ReadFile parses an audit log file written by FileLogger
func ReadFile(path string, count int) ([]*Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer file.Close()

	var records []*Record
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, err := ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}

	if count > 0 && len(records) > count {
		records = records[len(records)-count:]
	}
	return records, nil
}
