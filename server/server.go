package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apperrors "github.com/kbukum/testserver/errors"
	"github.com/kbukum/testserver/logger"
	"github.com/kbukum/testserver/observability"
	"github.com/kbukum/testserver/routes"
	"github.com/kbukum/testserver/server/middleware"
)

var ginModeOnce sync.Once

// Server is the harness engine. Startup, Serve and Shutdown are called by a
// single owner; Addr, URL and IsTLS are safe from any goroutine.
type Server struct {
	config  Config
	log     *logger.Logger
	engine  *gin.Engine
	handler http.Handler
	ins     *observability.Instruments
	tracer  trace.Tracer

	mu         sync.Mutex
	routes     routes.Handler
	httpServer *http.Server
	listener   net.Listener
	port       int
	generation uint64
}

// Option configures a Server.
type Option func(*Server)

// WithInstruments records request metrics into ins.
func WithInstruments(ins *observability.Instruments) Option {
	return func(s *Server) { s.ins = ins }
}

// WithTracer traces requests with t instead of the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Server) { s.tracer = t }
}

// New creates an engine. The route table defaults to routes.Default and can
// be replaced with Mount before the first Startup.
func New(cfg Config, log *logger.Logger, opts ...Option) *Server {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.Nop()
	}

	ginModeOnce.Do(func() {
		if log.Level() <= zerolog.DebugLevel {
			gin.SetMode(gin.DebugMode)
		} else {
			gin.SetMode(gin.ReleaseMode)
		}
	})

	s := &Server{
		config: cfg,
		log:    log.WithComponent("server"),
		port:   cfg.Port,
		routes: routes.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	// No routes are registered: every method and target, CONNECT and
	// absolute-form included, falls through to the route table.
	s.engine = gin.New()
	s.engine.NoRoute(s.dispatch)

	handler := middleware.Chain(
		middleware.FullDuplex(),
		middleware.Recovery(s.log),
		middleware.RequestID(),
		middleware.Tracing(s.tracer),
		middleware.RequestLogger(s.log, s.ins),
		middleware.BodySizeLimit(cfg.MaxBodySize),
	)(s.engine)

	if cfg.H2C && !cfg.IsTLS() {
		handler = h2c.NewHandler(handler, &http2.Server{IdleTimeout: cfg.IdleTimeout})
	}
	s.handler = handler
	return s
}

// Mount replaces the route table.
func (s *Server) Mount(h routes.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes = h
}

func (s *Server) table() routes.Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.routes
}

// GinEngine returns the underlying Gin engine.
func (s *Server) GinEngine() *gin.Engine {
	return s.engine
}

// Handler returns the complete handler chain, for use without a listener.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Startup binds the listener of a new generation. The first generation may
// bind port 0; later ones rebind the port it resolved. TLS material is read
// anew every time.
func (s *Server) Startup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer != nil {
		return apperrors.InvalidState("start", "serving")
	}

	start := time.Now()
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.port))

	var tlsConfig *tls.Config
	if s.config.IsTLS() {
		cfg, err := s.config.TLS.Build()
		if err != nil {
			return apperrors.StartupFailed(addr, err)
		}
		tlsConfig = cfg
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return apperrors.StartupFailed(addr, err)
	}

	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
		ErrorLog:     log.New(logWriter{s.log}, "", 0),
		TLSConfig:    tlsConfig,
	}
	if tlsConfig != nil {
		if err := http2.ConfigureServer(srv, &http2.Server{IdleTimeout: s.config.IdleTimeout}); err != nil {
			_ = ln.Close()
			return apperrors.StartupFailed(addr, err)
		}
		ln = tls.NewListener(ln, srv.TLSConfig)
	}

	if tcp, ok := ln.Addr().(*net.TCPAddr); ok {
		s.port = tcp.Port
	}
	s.httpServer = srv
	s.listener = ln
	s.generation++

	if s.ins != nil {
		s.ins.RecordStartup(ctx, ln.Addr().String(), time.Since(start))
	}
	s.log.Debug("Listener bound", logger.Fields(
		logger.FieldAddr, ln.Addr().String(),
		"tls", tlsConfig != nil,
		"generation", s.generation,
	))
	return nil
}

// Serve serves the current generation until it is shut down. It returns nil
// after Shutdown and when no generation is bound.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	srv, ln := s.httpServer, s.listener
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve %s: %w", ln.Addr(), err)
	}
	return nil
}

// Shutdown stops the current generation: graceful for up to
// ShutdownTimeout, then connections are closed. The bound port is released
// before Shutdown returns.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv, ln := s.httpServer, s.listener
	s.httpServer = nil
	s.listener = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	// Serve may not have taken the listener yet.
	_ = ln.Close()
	if err != nil {
		s.log.Warn("Graceful shutdown incomplete, closing connections", logger.ErrorFields("shutdown", err))
		return srv.Close()
	}
	return nil
}

// Addr returns host:port. Once a generation was bound the port is the
// resolved one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.port))
}

// Port returns the bound port, or the configured one before Startup.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// URL returns the base URL, e.g. "https://127.0.0.1:8001".
func (s *Server) URL() string {
	scheme := "http"
	if s.IsTLS() {
		scheme = "https"
	}
	return scheme + "://" + s.Addr()
}

// IsTLS reports whether the engine serves TLS.
func (s *Server) IsTLS() bool {
	return s.config.IsTLS()
}

// Config returns the effective configuration.
func (s *Server) Config() Config {
	return s.config
}

// logWriter routes net/http's internal error log (TLS handshake failures,
// malformed requests) to the structured logger.
type logWriter struct {
	log *logger.Logger
}

func (w logWriter) Write(p []byte) (int, error) {
	msg := string(p)
	if n := len(msg); n > 0 && msg[n-1] == '\n' {
		msg = msg[:n-1]
	}
	w.log.Debug(msg)
	return len(p), nil
}
