package repositories

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"browser-monitor-worker/logging"
)

// FileSink appends formatted entries to the log file. Each Append opens the
// file in append mode and closes it again; writes are serialized so two
// entries never interleave.
type FileSink struct {
	path   string
	mu     sync.Mutex
	logger *zap.Logger
}

func NewFileSink(path string, logger *zap.Logger) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileSink{path: path, logger: logging.OrNop(logger)}, nil
}

func (s *FileSink) Path() string { return s.path }

// Append never returns an error: a failed write is logged and the entry is lost.
func (s *FileSink) Append(entry string) {
	if err := s.write(entry); err != nil {
		s.logger.Error("failed to write to data file", zap.String("path", s.path), zap.Error(err))
		return
	}
	s.logger.Debug("wrote entry", zap.String("path", s.path), zap.String("entry", strings.TrimSpace(entry)))
}

func (s *FileSink) write(entry string) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	_, err = f.WriteString(entry)
	return err
}

// ReadAll returns the whole log; a missing file reads as empty.
func (s *FileSink) ReadAll() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read data file: %w", err)
	}
	return string(data), nil
}

// Tail returns the last n lines of the log.
func (s *FileSink) Tail(n int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if n > 0 && len(lines) > n {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan data file: %w", err)
	}
	return lines, nil
}
