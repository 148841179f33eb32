// Package version reports the harness build.
//
// Release builds stamp the values with -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/testserver/version.Version=v0.3.0" ./cmd/testserver
//
// Unstamped builds fall back to the VCS settings recorded by the Go
// toolchain.
package version
