package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadServeConfig(t *testing.T) {
	cfgFile := writeConfig(t, "name: cli\nhttps:\n  port: 9443\n")

	tests := []struct {
		name      string
		args      []string
		wantHTTP  int
		wantHTTPS int
		wantHost  string
		wantH2C   bool
		wantErr   bool
	}{
		{
			name:      "config port kept, unset port defaults",
			wantHTTP:  defaultHTTPPort,
			wantHTTPS: 9443,
			wantHost:  "127.0.0.1",
		},
		{
			name:      "flags win",
			args:      []string{"--http-port", "9000", "--https-port", "9001", "--host", "0.0.0.0", "--h2c"},
			wantHTTP:  9000,
			wantHTTPS: 9001,
			wantHost:  "0.0.0.0",
			wantH2C:   true,
		},
		{
			name:      "ephemeral",
			args:      []string{"--http-port", "0", "--https-port", "0"},
			wantHTTP:  0,
			wantHTTPS: 0,
			wantHost:  "127.0.0.1",
		},
		{
			name:    "same port twice",
			args:    []string{"--http-port", "9000", "--https-port", "9000"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{Use: "serve"}
			var opts serveFlags
			bindServeFlags(cmd, &opts)
			if err := cmd.ParseFlags(append([]string{"--config", cfgFile}, tt.args...)); err != nil {
				t.Fatal(err)
			}

			cfg, err := loadServeConfig(cmd, opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("loadServeConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if cfg.Name != "cli" {
				t.Errorf("Name = %q, want cli", cfg.Name)
			}
			if cfg.HTTP.Port != tt.wantHTTP || cfg.HTTPS.Port != tt.wantHTTPS {
				t.Errorf("ports = %d/%d, want %d/%d", cfg.HTTP.Port, cfg.HTTPS.Port, tt.wantHTTP, tt.wantHTTPS)
			}
			if cfg.HTTP.Host != tt.wantHost || cfg.HTTPS.Host != tt.wantHost {
				t.Errorf("hosts = %q/%q, want %q", cfg.HTTP.Host, cfg.HTTPS.Host, tt.wantHost)
			}
			if cfg.HTTP.H2C != tt.wantH2C {
				t.Errorf("H2C = %v, want %v", cfg.HTTP.H2C, tt.wantH2C)
			}
		})
	}
}

func TestLoadServeConfigCertFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "serve"}
	var opts serveFlags
	bindServeFlags(cmd, &opts)
	args := []string{
		"--config", writeConfig(t, "name: cli\n"),
		"--cert", "cert.pem", "--key", "key.encrypted.pem", "--key-password", "secret",
	}
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadServeConfig(cmd, opts)
	if err != nil {
		t.Fatal(err)
	}
	tls := cfg.HTTPS.TLS
	if tls.CertFile != "cert.pem" || tls.KeyFile != "key.encrypted.pem" || tls.KeyPassword != "secret" {
		t.Errorf("HTTPS.TLS = %+v", tls)
	}
	if cfg.HTTP.IsTLS() {
		t.Error("cert flags leaked into the HTTP server")
	}
}

func TestCertsCommand(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "certs")
	certsDir = dir
	t.Cleanup(func() { certsDir = "." })

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	if err := runCerts(cmd, nil); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"ca.pem", "cert.pem", "key.pem", "key.encrypted.pem"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
		if !strings.Contains(out.String(), path) {
			t.Errorf("output does not mention %s:\n%s", path, out.String())
		}
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	t.Cleanup(func() { versionCmd.SetOut(nil) })

	if err := versionCmd.RunE(versionCmd, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "testserver ") {
		t.Errorf("version output = %q", out.String())
	}
}
