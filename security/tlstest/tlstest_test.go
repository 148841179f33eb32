package tlstest

import (
	"crypto/x509"
	"os"
	"strings"
	"testing"
)

func TestGenerateTLSCerts(t *testing.T) {
	certs := GenerateTLSCerts(t)

	for _, path := range []string{certs.CAFile, certs.CertFile, certs.KeyFile, certs.EncryptedKeyFile} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("missing %s: %v", path, err)
		}
	}

	leaf, err := x509.ParseCertificate(certs.ServerTLS.Certificate[0])
	if err != nil {
		t.Fatalf("parse leaf: %v", err)
	}
	if _, err := leaf.Verify(x509.VerifyOptions{DNSName: "localhost", Roots: certs.CertPool}); err != nil {
		t.Errorf("leaf does not verify against CA: %v", err)
	}
	if _, err := leaf.Verify(x509.VerifyOptions{DNSName: "127.0.0.1", Roots: certs.CertPool}); err != nil {
		t.Errorf("leaf does not cover 127.0.0.1: %v", err)
	}
}

func TestEncryptedKeyFile(t *testing.T) {
	certs := GenerateTLSCerts(t)
	data, err := os.ReadFile(certs.EncryptedKeyFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Proc-Type: 4,ENCRYPTED") {
		t.Errorf("key is not encrypted:\n%s", data)
	}
	if certs.KeyPassword != DefaultKeyPassword {
		t.Errorf("KeyPassword = %q", certs.KeyPassword)
	}
}

func TestGenerateIntoMissingDir(t *testing.T) {
	if _, err := Generate("/nonexistent/dir/for/certs"); err == nil {
		t.Fatal("expected error writing into a missing directory")
	}
}
