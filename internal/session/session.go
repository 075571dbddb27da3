// Package session owns the instrumentation lifecycle: at most one active
// session per controller, holding the log collector, the log store, and
// every live instrument. All instrument and log operations go through the
// Controller so the single-session invariant cannot be bypassed.
package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/probekit/probekit/internal/collector"
	"github.com/probekit/probekit/internal/instrument"
	"github.com/probekit/probekit/internal/logstore"
	"github.com/probekit/probekit/internal/watch"
)

// Session is the single active lifecycle context. It lives in memory only;
// nothing survives a process restart.
type Session struct {
	ID        string
	Port      int
	StartedAt time.Time
	LogPath   string

	registry  *instrument.Registry
	store     *logstore.Store
	collector *collector.Server
	watcher   *watch.Watcher // nil when staleness watching is disabled
}

// Info is the caller-facing view of a session.
type Info struct {
	ID        string    `json:"id"`
	Port      int       `json:"port"`
	LogPath   string    `json:"log_file"`
	StartedAt time.Time `json:"started_at"`
}

func (s *Session) info() Info {
	return Info{ID: s.ID, Port: s.Port, LogPath: s.LogPath, StartedAt: s.StartedAt}
}

// StopResult reports what a stop operation did. Failures lists instruments
// whose code could not be removed; cleanup continues past them.
type StopResult struct {
	Stopped  bool     `json:"stopped"`
	Removed  int      `json:"instruments_removed"`
	Failures []string `json:"failures,omitempty"`
}

// marshalEntries renders parsed log documents as an indented JSON array.
func marshalEntries(docs []map[string]any) (string, error) {
	if docs == nil {
		docs = []map[string]any{}
	}
	out, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode log entries: %w", err)
	}
	return string(out), nil
}
