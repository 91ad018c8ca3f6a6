package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// defaultMaxLogSize is the size at which the daemon log is rotated.
const defaultMaxLogSize int64 = 10 << 20

// LogFile is an append-only log writer that rotates itself to "<path>.old"
// once it grows past maxSize. The daemon hands it to logging.Init.
type LogFile struct {
	mu      sync.Mutex
	path    string
	maxSize int64
	file    *os.File
	size    int64
}

// OpenLogFile opens path for appending, creating its directory.
func OpenLogFile(path string, maxSize int64) (*LogFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	l := &LogFile{path: path, maxSize: maxSize}
	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *LogFile) open() error {
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	l.file = file
	l.size = info.Size()
	return nil
}

// Write appends p, rotating first when the file is already full.
func (l *LogFile) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return 0, os.ErrClosed
	}
	if l.maxSize > 0 && l.size > 0 && l.size+int64(len(p)) > l.maxSize {
		if err := l.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := l.file.Write(p)
	l.size += int64(n)
	return n, err
}

func (l *LogFile) rotate() error {
	l.file.Close()
	l.file = nil

	backup := l.path + ".old"
	os.Remove(backup)
	if err := os.Rename(l.path, backup); err != nil {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}
	return l.open()
}

// Path returns the log file path.
func (l *LogFile) Path() string {
	return l.path
}

// Close closes the log file.
func (l *LogFile) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// GetLogPath returns the path to the daemon log file.
func GetLogPath() string {
	return filepath.Join(stateDir(), "daemon.log")
}
