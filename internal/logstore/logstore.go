// Package logstore is the session-scoped append-only log: one JSON document
// per line. The collector appends, the session controller reads and clears.
// A read racing an in-flight append may see a partial last line; ReadAll
// drops unparsable trailing lines instead of failing.
package logstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Store appends and reads newline-delimited JSON records at a fixed path.
type Store struct {
	mu   sync.Mutex
	path string
}

// New returns a store writing to path. The file is created by Reset.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the log file location.
func (s *Store) Path() string {
	return s.path
}

// Reset truncates the log file, creating it (and its directory) if needed.
// Called on session start and on explicit clear.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	if err := os.WriteFile(s.path, nil, 0o644); err != nil {
		return fmt.Errorf("truncating log store: %w", err)
	}
	return nil
}

// Append writes doc as one line, augmented with a receivedAt unix-millisecond
// timestamp recording when the collector accepted it. The client-reported
// timestamp inside doc is left untouched; the two may legitimately diverge.
func (s *Store) Append(doc map[string]any) error {
	doc["receivedAt"] = time.Now().UnixMilli()
	line, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding log entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log store: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("appending log entry: %w", err)
	}
	return nil
}

// ReadAll parses every stored document. Lines that do not parse (a partial
// trailing line from a concurrent append, typically) are skipped.
func (s *Store) ReadAll() ([]map[string]any, error) {
	raw, err := s.ReadRaw()
	if err != nil {
		return nil, err
	}
	var docs []map[string]any
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var doc map[string]any
		if err := json.Unmarshal([]byte(line), &doc); err != nil {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// ReadRaw returns the log file contents verbatim. A store that was never
// written reads as empty.
func (s *Store) ReadRaw() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("reading log store: %w", err)
	}
	return string(data), nil
}

// Count returns the number of complete stored lines.
func (s *Store) Count() (int, error) {
	raw, err := s.ReadRaw()
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return 0, nil
	}
	return strings.Count(raw, "\n"), nil
}
