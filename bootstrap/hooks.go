package bootstrap

import (
	"context"
	"fmt"
)

// Hook runs at a fixed point of the App lifecycle.
type Hook func(ctx context.Context) error

// OnStart registers hooks that run after all components have started.
func (a *App) OnStart(hooks ...Hook) {
	a.onStart = append(a.onStart, hooks...)
}

// OnReady registers hooks that run once the ready check has passed.
func (a *App) OnReady(hooks ...Hook) {
	a.onReady = append(a.onReady, hooks...)
}

// OnRestart registers hooks that run after a SIGHUP restart round.
func (a *App) OnRestart(hooks ...Hook) {
	a.onRestart = append(a.onRestart, hooks...)
}

// OnStop registers hooks that run after the components have stopped,
// e.g. flushing telemetry or removing temporary certificates.
func (a *App) OnStop(hooks ...Hook) {
	a.onStop = append(a.onStop, hooks...)
}

func runHooks(ctx context.Context, hooks []Hook) error {
	for i, h := range hooks {
		if err := h(ctx); err != nil {
			return fmt.Errorf("hook %d failed: %w", i, err)
		}
	}
	return nil
}
