package bootstrap

import (
	"io"
	"os"
	"time"

	"github.com/kbukum/testserver/logger"
)

// Option configures the App during creation.
type Option func(*App)

// WithLogger sets the application logger. Defaults to logger.NewFromEnv.
func WithLogger(l *logger.Logger) Option {
	return func(a *App) { a.Logger = l }
}

// WithGracefulTimeout bounds StopAll and the OnStop hooks. Default 15s.
func WithGracefulTimeout(d time.Duration) Option {
	return func(a *App) { a.gracefulTimeout = d }
}

// WithSignals replaces OS signal delivery with ch.
func WithSignals(ch <-chan os.Signal) Option {
	return func(a *App) { a.signals = ch }
}

// WithOutput sets where the startup summary is printed. Default os.Stdout;
// nil disables it.
func WithOutput(w io.Writer) Option {
	return func(a *App) { a.out = w }
}
