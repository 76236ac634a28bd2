package notify

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nathanyu/account-ledger/internal/domain"
)

// SpoolSink appends notification envelopes, one JSON document per line, to a
// local mail spool file picked up by an external mailer.
type SpoolSink struct {
	path string
	file *os.File
	mu   sync.Mutex
}

// NewSpoolSink opens (or creates) the spool file at path
func NewSpoolSink(path string) (*SpoolSink, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create spool directory: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open spool file: %w", err)
	}

	return &SpoolSink{path: path, file: file}, nil
}

func (s *SpoolSink) Name() string { return "spool" }

func (s *SpoolSink) Send(_ context.Context, n domain.Notification, at time.Time) error {
	data, err := domain.EncodeNotification(n, at)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return fmt.Errorf("spool %s is closed", s.path)
	}

	if _, err := s.file.Write(data); err != nil {
		return fmt.Errorf("failed to write notification: %w", err)
	}

	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync spool: %w", err)
	}

	return nil
}

// Close closes the spool file
func (s *SpoolSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// SpooledNotification is a notification read back from a spool file
type SpooledNotification struct {
	domain.Notification
	At time.Time
}

// ReadSpool reads every notification in the spool file at path
func ReadSpool(path string) ([]SpooledNotification, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []SpooledNotification{}, nil
		}
		return nil, fmt.Errorf("failed to open spool for reading: %w", err)
	}
	defer file.Close()

	var out []SpooledNotification
	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		n, at, err := domain.DecodeNotification(line)
		if err != nil {
			return nil, fmt.Errorf("failed to decode notification at line %d: %w", lineNum, err)
		}
		out = append(out, SpooledNotification{Notification: n, At: at})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading spool: %w", err)
	}

	return out, nil
}
