// Package collector runs the local HTTP listener that receives fired
// instrument data. Instrumented code in browsers posts here cross-origin,
// so every response carries permissive CORS headers and preflight requests
// are answered with no body.
package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/probekit/probekit/internal/logstore"
)

// Server is a single-port listener bound to one session's log store.
type Server struct {
	store  *logstore.Store
	logger *zap.Logger
	engine *gin.Engine

	mu   sync.Mutex
	port int
	http *http.Server
	ln   net.Listener
}

// New builds a collector for the given store. Start binds the port.
func New(store *logstore.Store, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"POST", "GET", "OPTIONS"},
		AllowHeaders:    []string{"Content-Type"},
	}))

	s := &Server{store: store, logger: logger, engine: engine}

	engine.GET("/health", s.handleHealth)
	engine.POST("/log", s.handleLog)
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	return s
}

// Handler exposes the route handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start binds 127.0.0.1:port and serves in the background. A busy port is
// reported here, at session-start time. Port 0 picks a free port; Port
// returns whichever was bound.
func (s *Server) Start(port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return fmt.Errorf("collector already started on port %d", s.port)
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", port, err)
	}
	s.ln = ln
	s.port = ln.Addr().(*net.TCPAddr).Port

	// ReadHeaderTimeout bounds clients that open a connection and never
	// finish sending headers. Bodies are buffered per request in their own
	// handler goroutines, so one slow body never blocks the accept loop.
	s.http = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("collector serve failed", zap.Error(err))
		}
	}()

	s.logger.Info("log collector listening", zap.Int("port", s.port))
	return nil
}

// Port returns the bound port, or 0 before Start.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// Shutdown stops accepting connections and releases the port. In-flight
// requests get until ctx expires to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.http
	s.http = nil
	s.ln = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("collector shutdown: %w", err)
	}
	return nil
}

// handleHealth answers the probe with the active port, no side effects.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "port": s.Port()})
}

// handleLog ingests one posted log entry. The body is buffered in full
// before parsing; malformed JSON is answered with a 400 and never touches
// the store or crashes the listener.
func (s *Server) handleLog(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	if err := s.store.Append(doc); err != nil {
		s.logger.Error("failed to store log entry", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store log"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
