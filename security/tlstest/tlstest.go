// Package tlstest provisions throwaway certificate material: a CA, a leaf
// certificate for localhost, its private key in plain and encrypted form,
// and a CA bundle clients can trust.
//
//	func TestWithTLS(t *testing.T) {
//	    certs := tlstest.GenerateTLSCerts(t)
//	    // certs.CAFile, certs.CertFile, certs.KeyFile are valid PEM files
//	}
//
// Generate writes into a caller-chosen directory for session-scoped use
// from TestMain, where no testing.TB is available.
package tlstest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kbukum/testserver/security"
)

// DefaultKeyPassword encrypts EncryptedKeyFile.
const DefaultKeyPassword = "password"

// TLSCerts holds paths to generated files and the parsed objects.
type TLSCerts struct {
	// CAFile is the CA certificate PEM file, usable as a trust bundle.
	CAFile string
	// CertFile is the localhost leaf certificate PEM file.
	CertFile string
	// KeyFile is the unencrypted leaf private key.
	KeyFile string
	// EncryptedKeyFile is KeyFile encrypted with KeyPassword.
	EncryptedKeyFile string
	// KeyPassword decrypts EncryptedKeyFile.
	KeyPassword string

	CACert    *x509.Certificate
	CAKey     *ecdsa.PrivateKey
	ServerTLS tls.Certificate
	CertPool  *x509.CertPool
}

// GenerateTLSCerts creates certificate material in t.TempDir().
func GenerateTLSCerts(t testing.TB) *TLSCerts {
	t.Helper()
	certs, err := Generate(t.TempDir())
	if err != nil {
		t.Fatalf("tlstest: %v", err)
	}
	return certs
}

// Generate creates a CA and a localhost certificate signed by it and writes
// them to dir. The leaf is valid for localhost, 127.0.0.1 and ::1.
func Generate(dir string) (*TLSCerts, error) {
	caKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate CA key: %w", err)
	}
	caTemplate := &x509.Certificate{
		SerialNumber:          serial(),
		Subject:               pkix.Name{Organization: []string{"testserver CA"}},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, caTemplate, caTemplate, &caKey.PublicKey, caKey)
	if err != nil {
		return nil, fmt.Errorf("create CA cert: %w", err)
	}
	caCert, err := x509.ParseCertificate(caDER)
	if err != nil {
		return nil, fmt.Errorf("parse CA cert: %w", err)
	}

	leafKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate leaf key: %w", err)
	}
	leafTemplate := &x509.Certificate{
		SerialNumber: serial(),
		Subject: pkix.Name{
			Organization: []string{"testserver"},
			CommonName:   "localhost",
		},
		DNSNames:    []string{"localhost"},
		IPAddresses: []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
		NotBefore:   time.Now().Add(-time.Hour),
		NotAfter:    time.Now().Add(24 * time.Hour),
		KeyUsage:    x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
	}
	leafDER, err := x509.CreateCertificate(rand.Reader, leafTemplate, caCert, &leafKey.PublicKey, caKey)
	if err != nil {
		return nil, fmt.Errorf("create leaf cert: %w", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(leafKey)
	if err != nil {
		return nil, fmt.Errorf("marshal leaf key: %w", err)
	}

	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	encPEM, err := security.EncryptKeyPEM(keyPEM, DefaultKeyPassword)
	if err != nil {
		return nil, err
	}

	certs := &TLSCerts{
		CAFile:           filepath.Join(dir, "ca.pem"),
		CertFile:         filepath.Join(dir, "cert.pem"),
		KeyFile:          filepath.Join(dir, "key.pem"),
		EncryptedKeyFile: filepath.Join(dir, "key.encrypted.pem"),
		KeyPassword:      DefaultKeyPassword,
		CACert:           caCert,
		CAKey:            caKey,
	}
	files := []struct {
		path string
		data []byte
	}{
		{certs.CAFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: caDER})},
		{certs.CertFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: leafDER})},
		{certs.KeyFile, keyPEM},
		{certs.EncryptedKeyFile, encPEM},
	}
	for _, f := range files {
		if err := os.WriteFile(f.path, f.data, 0o600); err != nil {
			return nil, fmt.Errorf("write %s: %w", f.path, err)
		}
	}

	certs.ServerTLS, err = tls.LoadX509KeyPair(certs.CertFile, certs.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load key pair: %w", err)
	}
	certs.CertPool = x509.NewCertPool()
	certs.CertPool.AddCert(caCert)
	return certs, nil
}

// WriteInvalidPEM writes a file that looks like PEM but does not decode to a
// certificate.
func WriteInvalidPEM(t testing.TB, filename string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), filename)
	content := []byte("-----BEGIN CERTIFICATE-----\nnot-valid-base64-data\n-----END CERTIFICATE-----\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("tlstest: write invalid PEM: %v", err)
	}
	return path
}

func serial() *big.Int {
	n, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		return big.NewInt(time.Now().UnixNano())
	}
	return n
}
