package fixture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/kbukum/testserver/component"
	"github.com/kbukum/testserver/logger"
	"github.com/kbukum/testserver/observability"
	"github.com/kbukum/testserver/security/tlstest"
	"github.com/kbukum/testserver/testutil"
)

// Suite is the session-scoped harness: certificate material plus one plain
// and one TLS server, started once and stopped once.
type Suite struct {
	Config *Config
	Certs  *tlstest.TLSCerts
	HTTP   *Server
	HTTPS  *Server

	log       *logger.Logger
	registry  *component.Registry
	certDir   string
	telemetry func(context.Context) error
}

// NewSuite provisions certificates and starts both servers. On failure
// everything already started is released again.
func NewSuite(ctx context.Context, cfg *Config) (suite *Suite, err error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("fixture config: %w", err)
	}

	log := cfg.Logger().WithComponent("fixture")
	s := &Suite{
		Config:   cfg,
		log:      log,
		registry: component.NewRegistry(log),
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, s.Close(context.Background()))
		}
	}()

	s.telemetry, err = observability.Setup(ctx, cfg.Observability, log)
	if err != nil {
		return nil, err
	}

	s.certDir, err = os.MkdirTemp("", "testserver-certs-")
	if err != nil {
		return nil, fmt.Errorf("create cert dir: %w", err)
	}
	s.Certs, err = tlstest.Generate(s.certDir)
	if err != nil {
		return nil, err
	}

	s.HTTP, err = Build(cfg, cfg.HTTP)
	if err != nil {
		return nil, err
	}
	httpsCfg := cfg.HTTPS
	httpsCfg.TLS.CertFile = s.Certs.CertFile
	httpsCfg.TLS.KeyFile = s.Certs.KeyFile
	s.HTTPS, err = Build(cfg, httpsCfg, WithCAFile(s.Certs.CAFile))
	if err != nil {
		return nil, err
	}

	for _, c := range []component.Component{s.HTTP, s.HTTPS} {
		if err := s.registry.Register(c); err != nil {
			return nil, err
		}
	}
	if err := s.registry.StartAll(ctx); err != nil {
		return nil, err
	}

	for _, d := range s.registry.Describe() {
		log.Info("Server listening", logger.Fields(
			logger.FieldComponent, d.Name,
			logger.FieldAddr, d.Details,
		))
	}
	return s, nil
}

// Close stops the servers in reverse start order, flushes telemetry and
// removes the certificate files.
func (s *Suite) Close(ctx context.Context) error {
	errs := []error{s.registry.StopAll(ctx)}
	if s.telemetry != nil {
		errs = append(errs, s.telemetry(ctx))
		s.telemetry = nil
	}
	if s.certDir != "" {
		errs = append(errs, os.RemoveAll(s.certDir))
		s.certDir = ""
	}
	return errors.Join(errs...)
}

// Health reports the health of both servers.
func (s *Suite) Health(ctx context.Context) []component.Health {
	return s.registry.HealthAll(ctx)
}

// RestartAll restarts both servers concurrently on their current ports
// and returns once both are ready again.
func (s *Suite) RestartAll(ctx context.Context) error {
	m := testutil.NewManager(ctx)
	m.Add(s.HTTP)
	m.Add(s.HTTPS)
	return m.ResetAll()
}

// RunSuite runs the tests of a package against a shared Suite. setup
// receives the started suite before any test runs.
//
//	var suite *fixture.Suite
//
//	func TestMain(m *testing.M) {
//	    os.Exit(fixture.RunSuite(m, nil, func(s *fixture.Suite) { suite = s }))
//	}
func RunSuite(m *testing.M, cfg *Config, setup func(*Suite)) int {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	s, err := NewSuite(ctx, cfg)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fixture: %v\n", err)
		return 1
	}
	if setup != nil {
		setup(s)
	}

	code := m.Run()

	ctx, cancel = context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := s.Close(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fixture: %v\n", err)
		if code == 0 {
			code = 1
		}
	}
	return code
}
