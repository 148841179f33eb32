package fixture

import (
	"os"
	"strings"
	"testing"
)

// IsolatedVariables are removed from the environment by IsolateEnv. Names
// match case-insensitively.
var IsolatedVariables = []string{
	"SSL_CERT_FILE",
	"SSL_CERT_DIR",
	"HTTP_PROXY",
	"HTTPS_PROXY",
	"ALL_PROXY",
	"NO_PROXY",
	"SSLKEYLOGFILE",
}

// IsolateEnv removes IsolatedVariables from the process environment and
// restores the complete original environment when t ends. It changes
// process state, so tests using it must not run in parallel.
func IsolateEnv(t testing.TB) {
	t.Helper()
	t.Cleanup(Isolate())
}

// Isolate is IsolateEnv without a testing.TB, for TestMain. Calling the
// returned function restores the original environment.
func Isolate() (restore func()) {
	original := os.Environ()

	for _, kv := range original {
		name, _, _ := strings.Cut(kv, "=")
		if isIsolated(name) {
			os.Unsetenv(name)
		}
	}

	return func() {
		os.Clearenv()
		for _, kv := range original {
			name, value, _ := strings.Cut(kv, "=")
			os.Setenv(name, value)
		}
	}
}

func isIsolated(name string) bool {
	for _, v := range IsolatedVariables {
		if strings.EqualFold(name, v) {
			return true
		}
	}
	return false
}
