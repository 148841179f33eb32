package fixture

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"github.com/kbukum/testserver/component"
	"github.com/kbukum/testserver/lifecycle"
	"github.com/kbukum/testserver/logger"
	"github.com/kbukum/testserver/observability"
	"github.com/kbukum/testserver/routes"
	"github.com/kbukum/testserver/security"
	"github.com/kbukum/testserver/server"
)

// Server is a handle on one harness server: the lifecycle controller plus
// the engine it drives. Controller methods (Start, Stop, RequestRestart,
// Ready, ...) are promoted.
type Server struct {
	*lifecycle.Controller

	engine *server.Server
	caFile string
}

// Option configures a Server.
type Option func(*serverOptions)

type serverOptions struct {
	name   string
	caFile string
	routes routes.Handler
	log    *logger.Logger
}

// WithName sets the component name. Defaults to "http" or "https".
func WithName(name string) Option {
	return func(o *serverOptions) { o.name = name }
}

// WithCAFile makes Client trust the CA bundle at path.
func WithCAFile(path string) Option {
	return func(o *serverOptions) { o.caFile = path }
}

// WithRoutes replaces the default route table.
func WithRoutes(h routes.Handler) Option {
	return func(o *serverOptions) { o.routes = h }
}

// WithLogger overrides the logger built from the configuration.
func WithLogger(log *logger.Logger) Option {
	return func(o *serverOptions) { o.log = log }
}

// NewServer starts a plain HTTP server described by cfg.HTTP and returns it
// once it accepts connections.
func NewServer(ctx context.Context, cfg *Config, opts ...Option) (*Server, error) {
	s, err := Build(cfg, cfg.HTTP, opts...)
	if err != nil {
		return nil, err
	}
	if err := s.Start(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// NewTLSServer starts an HTTPS server described by cfg.HTTPS using the
// given certificate and key files. An encrypted key is opened with
// cfg.HTTPS.TLS.KeyPassword.
func NewTLSServer(ctx context.Context, cfg *Config, certFile, keyFile string, opts ...Option) (*Server, error) {
	srvCfg := cfg.HTTPS
	srvCfg.TLS.CertFile = certFile
	srvCfg.TLS.KeyFile = keyFile
	s, err := Build(cfg, srvCfg, opts...)
	if err != nil {
		return nil, err
	}
	if err := s.Start(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Build creates a server without starting it.
func Build(cfg *Config, srvCfg server.Config, opts ...Option) (*Server, error) {
	srvCfg.ApplyDefaults()
	if err := srvCfg.Validate(); err != nil {
		return nil, err
	}

	o := serverOptions{name: "http"}
	if srvCfg.IsTLS() {
		o.name = "https"
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = cfg.Logger()
	}

	meter := observability.Meter()
	ins, err := observability.NewInstruments(meter)
	if err != nil {
		return nil, err
	}

	engine := server.New(srvCfg, o.log, server.WithInstruments(ins))
	if o.routes != nil {
		engine.Mount(o.routes)
	}

	ctrl := lifecycle.New(engine,
		lifecycle.WithName(o.name),
		lifecycle.WithConfig(cfg.Lifecycle),
		lifecycle.WithLogger(o.log),
		lifecycle.WithMeter(meter),
	)
	return &Server{Controller: ctrl, engine: engine, caFile: o.caFile}, nil
}

// URL returns the base URL, e.g. "http://127.0.0.1:41234".
func (s *Server) URL() string {
	return s.engine.URL()
}

// Addr returns host:port.
func (s *Server) Addr() string {
	return s.engine.Addr()
}

// Port returns the bound port.
func (s *Server) Port() int {
	return s.engine.Port()
}

// IsTLS reports whether the server speaks HTTPS.
func (s *Server) IsTLS() bool {
	return s.engine.IsTLS()
}

// Engine returns the underlying engine.
func (s *Server) Engine() *server.Server {
	return s.engine
}

// Client returns an http.Client for this server. It trusts the configured
// CA, negotiates HTTP/2 over TLS and never uses environment proxies.
func (s *Server) Client() (*http.Client, error) {
	transport := &http.Transport{
		Proxy:             nil,
		ForceAttemptHTTP2: true,
		IdleConnTimeout:   30 * time.Second,
	}
	if s.IsTLS() {
		clientTLS := security.ClientTLS{CAFile: s.caFile}
		tlsConfig, err := clientTLS.Build()
		if err != nil {
			return nil, err
		}
		if tlsConfig == nil {
			tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		transport.TLSClientConfig = tlsConfig
	}
	return &http.Client{Transport: transport, Timeout: 10 * time.Second}, nil
}

// Describe implements component.Describable.
func (s *Server) Describe() component.Description {
	details := s.Addr()
	if s.IsTLS() {
		details += " h2"
	} else if s.engine.Config().H2C {
		details += " h2c"
	}
	kind := "http"
	if s.IsTLS() {
		kind = "https"
	}
	return component.Description{
		Name:    s.Name(),
		Type:    kind,
		Details: details,
		Port:    s.Port(),
	}
}

var (
	_ component.Component   = (*Server)(nil)
	_ component.Describable = (*Server)(nil)
)
