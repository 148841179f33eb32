// Package security loads TLS material for the harness.
//
// ServerTLS turns certificate and key files into a server *tls.Config. Keys
// may be stored encrypted in the legacy PEM format, in which case
// KeyPassword decrypts them. ClientTLS builds the client side, trusting a CA
// bundle such as the one produced by package tlstest.
//
//	srv := security.ServerTLS{CertFile: certs.CertFile, KeyFile: certs.EncryptedKeyFile, KeyPassword: certs.KeyPassword}
//	tlsCfg, err := srv.Build()
package security
