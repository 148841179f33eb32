package fixture

import (
	"testing"

	"github.com/kbukum/testserver/security/tlstest"
	"github.com/kbukum/testserver/testutil"
)

// Serve starts a plain server for the duration of t. A nil cfg uses
// DefaultConfig.
func Serve(t testing.TB, cfg *Config, opts ...Option) *Server {
	t.Helper()
	if cfg == nil {
		cfg = DefaultConfig()
	}
	s, err := Build(cfg, cfg.HTTP, opts...)
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	testutil.T(t).Setup(s)
	return s
}

// ServeTLS starts an HTTPS server with certs for the duration of t. Its
// Client trusts the certs' CA.
func ServeTLS(t testing.TB, cfg *Config, certs *tlstest.TLSCerts, opts ...Option) *Server {
	t.Helper()
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if certs == nil {
		certs = tlstest.GenerateTLSCerts(t)
	}
	srvCfg := cfg.HTTPS
	srvCfg.TLS.CertFile = certs.CertFile
	srvCfg.TLS.KeyFile = certs.KeyFile
	opts = append([]Option{WithCAFile(certs.CAFile)}, opts...)

	s, err := Build(cfg, srvCfg, opts...)
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	testutil.T(t).Setup(s)
	return s
}
