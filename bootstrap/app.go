package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/testserver/component"
	"github.com/kbukum/testserver/logger"
)

// Restarter is implemented by components that can rebind in place, such as
// lifecycle.Controller.
type Restarter interface {
	component.Component
	RequestRestart(ctx context.Context) error
}

// App runs a set of components until it is told to stop.
type App struct {
	Name       string
	Version    string
	Components *component.Registry
	Logger     *logger.Logger
	Summary    *Summary

	gracefulTimeout time.Duration
	signals         <-chan os.Signal
	out             io.Writer

	onStart   []Hook
	onReady   []Hook
	onRestart []Hook
	onStop    []Hook
}

// NewApp creates an application named name.
func NewApp(name, version string, opts ...Option) *App {
	a := &App{
		Name:            name,
		Version:         version,
		gracefulTimeout: 15 * time.Second,
		out:             os.Stdout,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.Logger == nil {
		a.Logger = logger.NewFromEnv(name)
	}
	a.Components = component.NewRegistry(a.Logger)
	a.Summary = NewSummary(name, version)
	return a
}

// RegisterComponent adds c to the registry. Components start in
// registration order.
func (a *App) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// ReadyCheck verifies that every registered component reports healthy.
func (a *App) ReadyCheck(ctx context.Context) error {
	var unhealthy []string
	for _, h := range a.Components.HealthAll(ctx) {
		if h.Status == component.StatusHealthy {
			continue
		}
		detail := h.Name + "=" + string(h.Status)
		if h.Message != "" {
			detail += "(" + h.Message + ")"
		}
		unhealthy = append(unhealthy, detail)
	}
	if len(unhealthy) > 0 {
		return fmt.Errorf("unhealthy components: %v", unhealthy)
	}
	return nil
}

// Run starts everything, then blocks serving signals until SIGINT, SIGTERM
// or ctx cancellation, and finally shuts down.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}

	signals := a.signals
	if signals == nil {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		defer signal.Stop(ch)
		signals = ch
	}

	for {
		select {
		case <-ctx.Done():
			a.Logger.Info("Context canceled, shutting down")
			return a.Shutdown(context.Background())
		case sig, ok := <-signals:
			if !ok {
				return a.Shutdown(context.Background())
			}
			if sig == syscall.SIGHUP {
				if err := a.Restart(ctx); err != nil {
					a.Logger.Error("Restart failed", logger.ErrorFields("restart", err))
				}
				continue
			}
			a.Logger.Info("Received shutdown signal", logger.Fields("signal", sig.String()))
			return a.Shutdown(context.Background())
		}
	}
}

// Start runs the startup phases without blocking: components, OnStart
// hooks, the ready check, OnReady hooks and the summary. On failure the
// components already started are stopped again.
func (a *App) Start(ctx context.Context) error {
	start := time.Now()
	a.Logger.Info("Starting application", logger.Fields("name", a.Name, "version", a.Version))

	fail := func(err error) error {
		if stopErr := a.Components.StopAll(context.Background()); stopErr != nil {
			a.Logger.Warn("Cleanup after failed start incomplete", logger.ErrorFields("stop", stopErr))
		}
		return err
	}

	if err := a.Components.StartAll(ctx); err != nil {
		return fail(err)
	}
	if err := runHooks(ctx, a.onStart); err != nil {
		return fail(fmt.Errorf("start hooks: %w", err))
	}
	if err := a.ReadyCheck(ctx); err != nil {
		return fail(err)
	}
	if err := runHooks(ctx, a.onReady); err != nil {
		return fail(fmt.Errorf("ready hooks: %w", err))
	}

	a.Summary.SetStartupDuration(time.Since(start))
	if a.out != nil {
		a.Summary.Display(a.out, a.Components)
	}
	return nil
}

// Restart asks every Restarter to rebind, one after another, and then runs
// the OnRestart hooks. Failures are joined.
func (a *App) Restart(ctx context.Context) error {
	var errs []error
	for _, c := range a.Components.All() {
		r, ok := c.(Restarter)
		if !ok {
			continue
		}
		if err := r.RequestRestart(ctx); err != nil {
			errs = append(errs, fmt.Errorf("restart %s: %w", r.Name(), err))
			continue
		}
		a.Logger.Info("Component restarted", logger.Fields(logger.FieldComponent, r.Name()))
	}
	if err := runHooks(ctx, a.onRestart); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Shutdown stops all components in reverse order, then runs the OnStop
// hooks, all within the graceful timeout.
func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.Info("Shutting down application", logger.Fields("timeout", a.gracefulTimeout.String()))

	ctx, cancel := context.WithTimeout(ctx, a.gracefulTimeout)
	defer cancel()

	var errs []error
	if err := a.Components.StopAll(ctx); err != nil {
		a.Logger.Error("Shutdown completed with errors", logger.ErrorFields("stop", err))
		errs = append(errs, err)
	}
	if err := runHooks(ctx, a.onStop); err != nil {
		a.Logger.Error("OnStop hook error", logger.ErrorFields("hooks", err))
		errs = append(errs, err)
	}

	a.Logger.Info("Application shutdown complete")
	return errors.Join(errs...)
}
