package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/probekit/probekit/internal/codegen"
	"github.com/probekit/probekit/internal/collector"
	"github.com/probekit/probekit/internal/config"
	"github.com/probekit/probekit/internal/inject"
	"github.com/probekit/probekit/internal/instrument"
	"github.com/probekit/probekit/internal/logstore"
	"github.com/probekit/probekit/internal/watch"
)

// ErrNotActive is returned by operations that require an active session.
var ErrNotActive = errors.New("no active session")

// ErrAlreadyActive is returned by Start while a session is alive.
var ErrAlreadyActive = errors.New("session already active")

// shutdownTimeout bounds collector shutdown during Stop.
const shutdownTimeout = 5 * time.Second

// Controller mediates every session, instrument, and log operation. It is an
// explicitly owned instance, not ambient state: tests run controllers side
// by side without interference.
type Controller struct {
	cfg    config.Config
	logger *zap.Logger

	mu     sync.Mutex
	active *Session
}

// NewController returns an inactive controller.
func NewController(cfg config.Config, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{cfg: cfg, logger: logger}
}

// Active reports whether a session is alive.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

// Current returns the active session's info.
func (c *Controller) Current() (Info, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return Info{}, ErrNotActive
	}
	return c.active.info(), nil
}

// Start transitions inactive → active: truncates the log store, launches the
// collector on the requested port (0 means the configured default), and
// creates an empty registry. Starting while active is an error.
func (c *Controller) Start(ctx context.Context, port int) (Info, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		return Info{}, fmt.Errorf("%w (id %s on port %d)", ErrAlreadyActive, c.active.ID, c.active.Port)
	}
	if port == 0 {
		port = c.cfg.DefaultPort
	}

	logPath, err := filepath.Abs(c.cfg.LogFile)
	if err != nil {
		return Info{}, fmt.Errorf("resolve log file path: %w", err)
	}
	store := logstore.New(logPath)
	if err := store.Reset(); err != nil {
		return Info{}, err
	}

	srv := collector.New(store, c.logger)
	if err := srv.Start(port); err != nil {
		return Info{}, err
	}

	sess := &Session{
		ID:        uuid.NewString(),
		Port:      srv.Port(),
		StartedAt: time.Now(),
		LogPath:   logPath,
		registry:  instrument.NewRegistry(),
		store:     store,
		collector: srv,
	}

	if !c.cfg.DisableWatch {
		w, err := watch.New(c.logger, func(path string) {
			if n := sess.registry.MarkStale(path); n > 0 {
				c.logger.Warn("instrumented file edited externally",
					zap.String("file", path), zap.Int("instruments", n))
			}
		})
		if err != nil {
			// Staleness detection is advisory; a session without it still works.
			c.logger.Warn("file watcher unavailable", zap.Error(err))
		} else {
			sess.watcher = w
		}
	}

	c.active = sess
	c.logger.Info("session started",
		zap.String("id", sess.ID), zap.Int("port", sess.Port), zap.String("log", logPath))
	return sess.info(), nil
}

// Stop transitions active → inactive. Every instrument still present is
// force-removed best-effort: a file that is missing or unwritable is noted
// as a failure and cleanup continues. The collector always shuts down and
// the registry is always discarded. Stopping when inactive is a no-op.
func (c *Controller) Stop(ctx context.Context) (StopResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return StopResult{}, nil
	}
	sess := c.active

	removed, failures := c.removeLocked(sess, sess.registry.All())

	if sess.watcher != nil {
		if err := sess.watcher.Close(); err != nil {
			c.logger.Warn("file watcher close failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := sess.collector.Shutdown(shutdownCtx); err != nil {
		c.logger.Warn("collector shutdown failed", zap.Error(err))
		failures = append(failures, err.Error())
	}

	sess.registry.Clear()
	c.active = nil
	c.logger.Info("session stopped", zap.String("id", sess.ID), zap.Int("removed", removed))
	return StopResult{Stopped: true, Removed: removed, Failures: failures}, nil
}

// AddInstrument generates the code block for (file, line, captures), splices
// it into the file, and registers the instrument. The file path is resolved
// against the working directory; the line must be within [1, lineCount+1].
func (c *Controller) AddInstrument(file string, line int, captures []string) (instrument.Instrument, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return instrument.Instrument{}, ErrNotActive
	}
	sess := c.active

	fallback, _ := codegen.ParseLanguage(c.cfg.DefaultLanguage)
	in, err := instrument.New(file, line, captures, fallback)
	if err != nil {
		return instrument.Instrument{}, err
	}

	block := codegen.Generate(in.ID, in.File, in.Line, sess.Port, in.Language, in.Captures)

	if sess.watcher != nil {
		sess.watcher.NoteSelfWrite(in.File)
	}
	if err := inject.InsertBlock(in.File, in.Line, block); err != nil {
		return instrument.Instrument{}, err
	}

	sess.registry.Add(in)
	if sess.watcher != nil {
		if err := sess.watcher.Add(in.File); err != nil {
			c.logger.Debug("cannot watch instrumented file", zap.String("file", in.File), zap.Error(err))
		}
	}

	c.logger.Info("instrument added",
		zap.String("id", in.ID), zap.String("file", in.File), zap.Int("line", in.Line),
		zap.String("language", in.Language.String()))
	return in, nil
}

// RemoveInstruments deletes instrument regions and registry entries. With a
// file argument it removes only that file's instruments; with "" it removes
// all. Removal is best-effort: failures are joined into the returned error
// but every instrument is attempted and unregistered regardless, since a
// removed instrument must not linger in the registry.
func (c *Controller) RemoveInstruments(file string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return 0, ErrNotActive
	}
	sess := c.active

	targets := sess.registry.All()
	if file != "" {
		abs, err := filepath.Abs(file)
		if err != nil {
			return 0, fmt.Errorf("resolve %s: %w", file, err)
		}
		targets = sess.registry.ByFile(abs)
	}

	removed, failures := c.removeLocked(sess, targets)
	if len(failures) > 0 {
		return removed, fmt.Errorf("removal incomplete: %v", failures)
	}
	return removed, nil
}

// removeLocked strips each instrument's region from its file and drops it
// from the registry. Files are processed once each with the wildcard matcher
// so even orphaned regions from the same session are cleaned up. Caller
// holds c.mu.
func (c *Controller) removeLocked(sess *Session, targets []instrument.Instrument) (int, []string) {
	var failures []string
	seen := make(map[string]bool)
	removed := 0

	for _, in := range targets {
		if !seen[in.File] {
			seen[in.File] = true
			if sess.watcher != nil {
				sess.watcher.NoteSelfWrite(in.File)
			}
			if _, err := inject.RemoveAll(in.File); err != nil {
				failures = append(failures, fmt.Sprintf("%s: %v", in.File, err))
			}
		}
		if sess.registry.Remove(in.ID) {
			removed++
		}
	}
	return removed, failures
}

// ListInstruments returns every live instrument in insertion order. When no
// session is active it returns an empty list, not an error: listing is
// harmless when nothing exists.
func (c *Controller) ListInstruments() []instrument.Instrument {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return []instrument.Instrument{}
	}
	return c.active.registry.All()
}

// ReadLogs returns the session's captured entries. Format "raw" returns the
// NDJSON text verbatim; anything else returns an indented JSON array of the
// parsed entries.
func (c *Controller) ReadLogs(format string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return "", ErrNotActive
	}
	if format == "raw" {
		return c.active.store.ReadRaw()
	}
	docs, err := c.active.store.ReadAll()
	if err != nil {
		return "", err
	}
	return marshalEntries(docs)
}

// ClearLogs truncates the session's log store.
func (c *Controller) ClearLogs() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return ErrNotActive
	}
	return c.active.store.Reset()
}
