package security

import (
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
)

// ServerTLS describes the certificate material a TLS server loads.
type ServerTLS struct {
	// CertFile is the PEM certificate chain, leaf first.
	CertFile string `yaml:"cert_file" mapstructure:"cert_file"`

	// KeyFile is the PEM private key. It may be encrypted.
	KeyFile string `yaml:"key_file" mapstructure:"key_file"`

	// KeyPassword decrypts an encrypted KeyFile.
	KeyPassword string `yaml:"key_password" mapstructure:"key_password"`

	// ClientCAFile enables client certificate verification when set.
	ClientCAFile string `yaml:"client_ca_file" mapstructure:"client_ca_file"`

	// MinVersion defaults to TLS 1.2.
	MinVersion uint16 `yaml:"min_version" mapstructure:"min_version"`
}

// IsEnabled reports whether certificate material is configured.
func (s *ServerTLS) IsEnabled() bool {
	return s != nil && (s.CertFile != "" || s.KeyFile != "")
}

// Validate checks that cert and key come together.
func (s *ServerTLS) Validate() error {
	if s == nil {
		return nil
	}
	if (s.CertFile != "") != (s.KeyFile != "") {
		return fmt.Errorf("security/tls: both cert_file and key_file must be provided together")
	}
	return nil
}

// Build reads the certificate material and returns a server *tls.Config.
// Files are read on every call, so a server rebuilding its listener picks up
// replaced files.
func (s *ServerTLS) Build() (*tls.Config, error) {
	if !s.IsEnabled() {
		return nil, fmt.Errorf("security/tls: no server certificate configured")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	cert, err := s.LoadCertificate()
	if err != nil {
		return nil, err
	}

	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   minVersion(s.MinVersion),
	}
	if s.ClientCAFile != "" {
		pool, err := LoadCertPool(s.ClientCAFile)
		if err != nil {
			return nil, err
		}
		cfg.ClientCAs = pool
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return cfg, nil
}

// LoadCertificate loads the key pair, decrypting the key when needed.
func (s *ServerTLS) LoadCertificate() (tls.Certificate, error) {
	certPEM, err := os.ReadFile(s.CertFile)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("security/tls: failed to read certificate: %w", err)
	}
	keyPEM, err := os.ReadFile(s.KeyFile)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("security/tls: failed to read key: %w", err)
	}
	keyPEM, err = DecryptKeyPEM(keyPEM, s.KeyPassword)
	if err != nil {
		return tls.Certificate{}, err
	}
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("security/tls: failed to load key pair: %w", err)
	}
	return cert, nil
}

// DecryptKeyPEM returns keyPEM with its first private key block decrypted.
// Unencrypted input is returned unchanged.
func DecryptKeyPEM(keyPEM []byte, password string) ([]byte, error) {
	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return nil, fmt.Errorf("security/tls: key file contains no PEM data")
	}
	//nolint:staticcheck // legacy RFC 1423 encryption is what the key files use
	if !x509.IsEncryptedPEMBlock(block) {
		return keyPEM, nil
	}
	if password == "" {
		return nil, fmt.Errorf("security/tls: key is encrypted but no password was given")
	}
	//nolint:staticcheck
	der, err := x509.DecryptPEMBlock(block, []byte(password))
	if err != nil {
		return nil, fmt.Errorf("security/tls: failed to decrypt key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: block.Type, Bytes: der}), nil
}

// EncryptKeyPEM encrypts the first PEM block of keyPEM with password using
// AES-256-CBC.
func EncryptKeyPEM(keyPEM []byte, password string) ([]byte, error) {
	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return nil, fmt.Errorf("security/tls: key contains no PEM data")
	}
	//nolint:staticcheck
	enc, err := x509.EncryptPEMBlock(rand.Reader, block.Type, block.Bytes, []byte(password), x509.PEMCipherAES256)
	if err != nil {
		return nil, fmt.Errorf("security/tls: failed to encrypt key: %w", err)
	}
	return pem.EncodeToMemory(enc), nil
}
