package httpserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tinytelemetry/auditstream/internal/auditlog"
)

// StreamErrorTrailer carries the failure of a stream that broke after the
// response status was sent.
const StreamErrorTrailer = "X-Audit-Stream-Error"

const copyBufferSize = 32 * 1024

// LogOpener is the narrow reader contract required by the HTTP API.
type LogOpener interface {
	Enabled() bool
	OpenLog(ctx context.Context, account, storeID, spaceID string) (*auditlog.Stream, error)
}

// Server exposes merged audit logs over HTTP.
type Server struct {
	addr      string
	logs      LogOpener
	logger    *slog.Logger
	server    *http.Server
	listener  net.Listener
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates a new HTTP API server.
func NewServer(addr string, logs LogOpener, logger *slog.Logger) *Server {
	if addr == "" {
		addr = "127.0.0.1:3000"
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:   addr,
		logs:   logs,
		logger: logger.With("component", "httpserver"),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/health", s.handleHealth)
	r.GET("/api/audit/:account/:store/:space", s.handleAuditLog)
	return r
}

// Listen binds the listen address and prepares the HTTP server.
func (s *Server) Listen() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.routes(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// No WriteTimeout: audit logs stream for as long as the client reads.
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.addr = listener.Addr().String()
	s.startTime = time.Now()
	return nil
}

// Serve blocks serving requests until Stop. It returns nil after a graceful
// shutdown.
func (s *Server) Serve() error {
	if s.listener == nil {
		return errors.New("httpserver: Serve called before Listen")
	}
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Start listens and serves in the background.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	go func() {
		if err := s.Serve(); err != nil {
			s.logger.Error("http server stopped", "error", err)
		}
	}()
	return nil
}

// Addr returns the listen address, resolved after Start.
func (s *Server) Addr() string { return s.addr }

// Stop gracefully shuts down the HTTP server. In-flight streams are canceled.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"uptime":        time.Since(s.startTime).String(),
		"audit_enabled": s.logs.Enabled(),
	})
}

func (s *Server) handleAuditLog(c *gin.Context) {
	account, storeID, spaceID := c.Param("account"), c.Param("store"), c.Param("space")

	stream, err := s.logs.OpenLog(c.Request.Context(), account, storeID, spaceID)
	if err != nil {
		status, msg := http.StatusInternalServerError, "failed to open audit log"
		switch {
		case errors.Is(err, auditlog.ErrNotEnabled):
			status, msg = http.StatusServiceUnavailable, "audit log reader is not enabled"
		case errors.Is(err, auditlog.ErrInvalidScope):
			status, msg = http.StatusBadRequest, "invalid account, store or space id"
		case errors.Is(err, auditlog.ErrListing):
			status, msg = http.StatusBadGateway, "failed to list audit log objects"
		}
		s.logger.Warn("open audit log failed",
			"account", account, "store_id", storeID, "space_id", spaceID,
			"status", status, "error", err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	defer stream.Close()

	c.Header("Content-Type", "text/tab-separated-values; charset=utf-8")
	c.Header("Trailer", StreamErrorTrailer)
	c.Header("X-Audit-Stream-Id", stream.ID())
	c.Status(http.StatusOK)

	buf := make([]byte, copyBufferSize)
	for {
		n, rerr := stream.Read(buf)
		if n > 0 {
			if _, werr := c.Writer.Write(buf[:n]); werr != nil {
				s.logger.Info("audit log client went away", "stream_id", stream.ID(), "error", werr)
				return
			}
			c.Writer.Flush()
		}
		if rerr == io.EOF {
			return
		}
		if rerr != nil {
			c.Writer.Header().Set(StreamErrorTrailer, rerr.Error())
			s.logger.Warn("audit log stream truncated", "stream_id", stream.ID(), "error", rerr)
			return
		}
	}
}
