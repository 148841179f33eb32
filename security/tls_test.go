package security_test

import (
	"crypto/tls"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kbukum/testserver/security"
	"github.com/kbukum/testserver/security/tlstest"
)

func TestClientTLS_BuildDisabled(t *testing.T) {
	var nilCfg *security.ClientTLS
	for _, cfg := range []*security.ClientTLS{nilCfg, {}} {
		got, err := cfg.Build()
		if err != nil || got != nil {
			t.Errorf("Build() = %v, %v; want nil, nil", got, err)
		}
	}
}

func TestClientTLS_Build(t *testing.T) {
	certs := tlstest.GenerateTLSCerts(t)

	tests := []struct {
		name    string
		cfg     security.ClientTLS
		wantErr string
		check   func(t *testing.T, c *tls.Config)
	}{
		{
			name: "ca bundle",
			cfg:  security.ClientTLS{CAFile: certs.CAFile},
			check: func(t *testing.T, c *tls.Config) {
				if c.RootCAs == nil {
					t.Error("RootCAs not set")
				}
				if c.MinVersion != tls.VersionTLS12 {
					t.Errorf("MinVersion = %x", c.MinVersion)
				}
			},
		},
		{
			name: "client certificate",
			cfg:  security.ClientTLS{CAFile: certs.CAFile, CertFile: certs.CertFile, KeyFile: certs.KeyFile, MinVersion: tls.VersionTLS13},
			check: func(t *testing.T, c *tls.Config) {
				if len(c.Certificates) != 1 {
					t.Errorf("Certificates = %d", len(c.Certificates))
				}
				if c.MinVersion != tls.VersionTLS13 {
					t.Errorf("MinVersion = %x", c.MinVersion)
				}
			},
		},
		{
			name: "skip verify",
			cfg:  security.ClientTLS{SkipVerify: true, ServerName: "localhost"},
			check: func(t *testing.T, c *tls.Config) {
				if !c.InsecureSkipVerify || c.ServerName != "localhost" {
					t.Errorf("unexpected config %+v", c)
				}
			},
		},
		{name: "missing ca", cfg: security.ClientTLS{CAFile: "/nonexistent/ca.pem"}, wantErr: "failed to read CA file"},
		{name: "invalid ca", cfg: security.ClientTLS{CAFile: tlstest.WriteInvalidPEM(t, "ca.pem")}, wantErr: "no certificates found"},
		{name: "cert without key", cfg: security.ClientTLS{CertFile: certs.CertFile}, wantErr: "must be provided together"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.cfg.Build()
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("error = %v, want containing %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			tc.check(t, got)
		})
	}
}

func TestServerTLS_Build(t *testing.T) {
	certs := tlstest.GenerateTLSCerts(t)

	tests := []struct {
		name    string
		cfg     security.ServerTLS
		wantErr string
	}{
		{name: "plain key", cfg: security.ServerTLS{CertFile: certs.CertFile, KeyFile: certs.KeyFile}},
		{name: "encrypted key", cfg: security.ServerTLS{CertFile: certs.CertFile, KeyFile: certs.EncryptedKeyFile, KeyPassword: certs.KeyPassword}},
		{name: "encrypted key without password", cfg: security.ServerTLS{CertFile: certs.CertFile, KeyFile: certs.EncryptedKeyFile}, wantErr: "no password"},
		{name: "encrypted key wrong password", cfg: security.ServerTLS{CertFile: certs.CertFile, KeyFile: certs.EncryptedKeyFile, KeyPassword: "nope"}, wantErr: "security/tls"},
		{name: "not configured", cfg: security.ServerTLS{}, wantErr: "no server certificate"},
		{name: "missing cert", cfg: security.ServerTLS{CertFile: "/nonexistent.pem", KeyFile: certs.KeyFile}, wantErr: "failed to read certificate"},
		{name: "key without cert", cfg: security.ServerTLS{KeyFile: certs.KeyFile}, wantErr: "must be provided together"},
		{name: "invalid cert", cfg: security.ServerTLS{CertFile: tlstest.WriteInvalidPEM(t, "cert.pem"), KeyFile: certs.KeyFile}, wantErr: "failed to load key pair"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.cfg.Build()
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("error = %v, want containing %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if len(got.Certificates) != 1 {
				t.Errorf("Certificates = %d", len(got.Certificates))
			}
			if got.ClientAuth != tls.NoClientCert {
				t.Errorf("ClientAuth = %v", got.ClientAuth)
			}
		})
	}
}

func TestServerTLS_ClientCA(t *testing.T) {
	certs := tlstest.GenerateTLSCerts(t)
	cfg := security.ServerTLS{CertFile: certs.CertFile, KeyFile: certs.KeyFile, ClientCAFile: certs.CAFile}
	got, err := cfg.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got.ClientCAs == nil || got.ClientAuth != tls.RequireAndVerifyClientCert {
		t.Errorf("client verification not configured: %+v", got)
	}
}

func TestDecryptKeyPEM(t *testing.T) {
	certs := tlstest.GenerateTLSCerts(t)
	plain, err := os.ReadFile(certs.KeyFile)
	if err != nil {
		t.Fatal(err)
	}

	same, err := security.DecryptKeyPEM(plain, "ignored")
	if err != nil || string(same) != string(plain) {
		t.Errorf("unencrypted key changed: %v", err)
	}

	enc, err := os.ReadFile(certs.EncryptedKeyFile)
	if err != nil {
		t.Fatal(err)
	}
	dec, err := security.DecryptKeyPEM(enc, certs.KeyPassword)
	if err != nil {
		t.Fatalf("DecryptKeyPEM: %v", err)
	}
	if string(dec) != string(plain) {
		t.Error("decrypted key differs from the original")
	}

	garbage := filepath.Join(t.TempDir(), "garbage")
	_ = os.WriteFile(garbage, []byte("not pem"), 0o600)
	data, _ := os.ReadFile(garbage)
	if _, err := security.DecryptKeyPEM(data, ""); err == nil {
		t.Error("expected error for non-PEM input")
	}
}
