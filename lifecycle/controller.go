package lifecycle

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/kbukum/testserver/component"
	apperrors "github.com/kbukum/testserver/errors"
	"github.com/kbukum/testserver/logger"
	"github.com/kbukum/testserver/observability"
	"github.com/kbukum/testserver/testutil"
)

// Engine is what the controller drives. Startup binds a new listener
// generation, Serve blocks serving it and returns nil once it is shut down,
// Shutdown releases it. Only the controller's goroutines call these.
type Engine interface {
	Startup(ctx context.Context) error
	Serve(ctx context.Context) error
	Shutdown(ctx context.Context) error
	Addr() string
}

// Controller owns one engine goroutine group.
type Controller struct {
	engine Engine
	config Config
	name   string
	log    *logger.Logger
	meter  metric.Meter
	ins    *observability.Instruments

	signal     *Signal
	ready      atomic.Bool
	shouldExit atomic.Bool
	state      atomic.Int32
	completed  atomic.Uint64
	restarts   atomic.Uint64

	mu      sync.Mutex
	started bool
	done    chan struct{}
	err     error
	// target is the restart cycle callers wait for. It is ahead of
	// completed while a restart is pending or in flight.
	target uint64
}

// New creates a controller for engine. It does not start anything.
func New(engine Engine, opts ...Option) *Controller {
	c := &Controller{
		engine: engine,
		name:   "server",
		log:    logger.Nop(),
		signal: NewSignal(),
		done:   make(chan struct{}),
	}
	c.config.ApplyDefaults()
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithComponent("lifecycle").WithFields(logger.Fields("server", c.name))

	ins, err := observability.NewInstruments(c.meter)
	if err != nil {
		c.log.Warn("Metrics disabled", logger.ErrorFields("instruments", err))
		ins = observability.NopInstruments()
	}
	c.ins = ins
	return c
}

// Start creates a controller and starts it.
func Start(ctx context.Context, engine Engine, opts ...Option) (*Controller, error) {
	c := New(engine, opts...)
	if err := c.Start(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Start spawns the engine goroutine group and blocks until the first
// listener is bound. A bind or TLS failure is returned as STARTUP_FAILED.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started || c.shouldExit.Load() {
		c.mu.Unlock()
		return apperrors.InvalidState("start", c.State().String())
	}
	c.started = true
	c.setState(StateStarting)
	c.mu.Unlock()

	go c.run()

	ctx, cancel := context.WithTimeout(ctx, c.config.StartTimeout)
	defer cancel()

	err := c.poll(ctx, func() bool { return c.ready.Load() })
	switch {
	case err == nil:
		c.log.Info("Server ready", logger.Fields(logger.FieldAddr, c.engine.Addr()))
		return nil
	case errors.Is(err, errDone):
		cause := c.Err()
		if cause == nil {
			cause = apperrors.Stopped()
		}
		return apperrors.StartupFailed(c.engine.Addr(), cause)
	default:
		// The group may still bind later; make sure it winds down.
		c.shouldExit.Store(true)
		return apperrors.StartupFailed(c.engine.Addr(), err)
	}
}

// RequestRestart asks the engine group to rebind and waits until that
// restart cycle has finished and the server is ready. Calls arriving while
// a restart is pending or in flight join it, so a burst of requests yields
// one cycle. Without a context deadline RestartTimeout applies. It may be
// called from any goroutine, concurrently.
func (c *Controller) RequestRestart(ctx context.Context) error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return apperrors.InvalidState("restart", c.State().String())
	}
	if c.shouldExit.Load() {
		c.mu.Unlock()
		return apperrors.Stopped()
	}
	outstanding := c.target > c.completed.Load()
	if !outstanding {
		c.target = c.completed.Load() + 1
	}
	ticket := c.target
	c.ready.Store(false)
	c.mu.Unlock()

	if !outstanding {
		c.signal.Set()
	}

	timeout := c.config.RestartTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	} else {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	err := c.poll(ctx, func() bool {
		return c.completed.Load() >= ticket && c.ready.Load()
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errDone):
		return apperrors.Stopped()
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.RestartTimeout(timeout).WithCause(c.Err())
	default:
		return err
	}
}

// Reset restarts the server. It makes the controller a testutil.TestComponent.
func (c *Controller) Reset(ctx context.Context) error {
	return c.RequestRestart(ctx)
}

// Stop raises the exit flag and joins the engine group. Calls after the
// first only wait. If ctx ends first SHUTDOWN_HANG is returned.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	c.shouldExit.Store(true)
	c.ready.Store(false)
	if !c.started {
		c.setState(StateStopped)
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return apperrors.ShutdownHang(ctx.Err())
	}
}

// Name implements component.Component.
func (c *Controller) Name() string {
	return c.name
}

// Health implements component.Component.
func (c *Controller) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.name, Status: component.StatusHealthy}
	switch state := c.State(); state {
	case StateReady:
	case StateStarting, StateRestarting:
		h.Status = component.StatusDegraded
		h.Message = state.String()
	default:
		h.Status = component.StatusUnhealthy
		h.Message = state.String()
		if err := c.Err(); err != nil {
			h.Message += ": " + err.Error()
		}
	}
	return h
}

// Ready reports whether the engine is bound and serving.
func (c *Controller) Ready() bool {
	return c.ready.Load()
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Restarts returns the number of completed restart cycles.
func (c *Controller) Restarts() uint64 {
	return c.restarts.Load()
}

// Err returns the last engine failure, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Done is closed when the engine group has exited.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

func (c *Controller) setErr(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
}

var errDone = errors.New("engine group exited")

// poll sleeps in PollInterval steps until cond holds, the group exits or ctx
// ends.
func (c *Controller) poll(ctx context.Context, cond func() bool) error {
	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()
	for {
		if cond() {
			return nil
		}
		select {
		case <-c.done:
			if cond() {
				return nil
			}
			return errDone
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// run is the engine goroutine group.
func (c *Controller) run() {
	defer close(c.done)

	ctx := context.Background()
	if err := c.engine.Startup(ctx); err != nil {
		c.setErr(err)
		c.setState(StateFailed)
		c.log.Error("Startup failed", logger.ErrorFields("startup", err))
		return
	}

	generations := make(chan struct{}, 1)
	generations <- struct{}{}
	c.setState(StateReady)
	c.ready.Store(true)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.acceptLoop(gctx, generations) })
	g.Go(func() error { return c.watch(gctx, generations) })

	if err := g.Wait(); err != nil {
		c.setErr(err)
		c.log.Error("Engine group failed", logger.ErrorFields("serve", err))
	}
	c.ready.Store(false)
	c.setState(StateStopped)
	c.log.Info("Server stopped", logger.Fields(logger.FieldRestarts, c.restarts.Load()))
}

// acceptLoop serves each listener generation handed over by the watcher.
func (c *Controller) acceptLoop(ctx context.Context, generations <-chan struct{}) error {
	for range generations {
		if err := c.engine.Serve(ctx); err != nil {
			return err
		}
	}
	return nil
}

// watch checks the exit flag between waits on the restart signal. It owns
// every Shutdown and every Startup after the first.
func (c *Controller) watch(ctx context.Context, generations chan<- struct{}) error {
	defer close(generations)
	for {
		if c.shouldExit.Load() || ctx.Err() != nil {
			c.ready.Store(false)
			c.setState(StateStopping)
			return c.shutdown()
		}
		if !c.signal.Wait(c.config.WatchInterval) {
			continue
		}
		if c.shouldExit.Load() {
			continue
		}
		c.restart(ctx, generations)
	}
}

// restart runs one cycle. A failed bind leaves readiness false so waiting
// callers time out instead of talking to a dead port, and drops the
// outstanding target so the next request starts a fresh cycle.
func (c *Controller) restart(ctx context.Context, generations chan<- struct{}) {
	addr := c.engine.Addr()

	spanCtx, span := observability.StartSpan(ctx, observability.SpanRestart)
	span.SetAttributes(attribute.String(observability.AttrAddr, addr))
	defer span.End()

	c.ready.Store(false)
	c.setState(StateRestarting)
	start := time.Now()

	if err := c.shutdown(); err != nil {
		c.log.Warn("Shutdown before restart incomplete", logger.ErrorFields("shutdown", err))
	}
	if err := c.engine.Startup(spanCtx); err != nil {
		c.mu.Lock()
		c.err = err
		c.target = c.completed.Load()
		c.setState(StateFailed)
		c.mu.Unlock()
		observability.SetSpanError(spanCtx, err)
		c.ins.RecordRestart(ctx, addr, false)
		c.log.Error("Restart failed", logger.ErrorFields("restart", err))
		return
	}

	select {
	case generations <- struct{}{}:
	case <-ctx.Done():
		// The accept loop is gone; the watcher exits on its next check.
		return
	}

	n := c.restarts.Add(1)
	c.mu.Lock()
	c.completed.Store(c.target)
	c.err = nil
	if !c.shouldExit.Load() {
		c.setState(StateReady)
		c.ready.Store(true)
	}
	c.mu.Unlock()
	c.ins.RecordRestart(ctx, addr, true)

	fields := logger.DurationFields("restart", time.Since(start))
	fields[logger.FieldAddr] = addr
	fields[logger.FieldRestarts] = n
	c.log.Info("Server restarted", fields)
}

func (c *Controller) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.ShutdownTimeout)
	defer cancel()
	return c.engine.Shutdown(ctx)
}

var (
	_ component.Component    = (*Controller)(nil)
	_ testutil.TestComponent = (*Controller)(nil)
)
