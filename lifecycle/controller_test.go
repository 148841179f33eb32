package lifecycle

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/kbukum/testserver/component"
	apperrors "github.com/kbukum/testserver/errors"
	"github.com/kbukum/testserver/logger"
	"github.com/kbukum/testserver/server"
)

var errBind = errors.New("address already in use")

// fakeEngine serves until shut down. Startup number n fails with failOn[n]
// and blocks on gates[n] when present.
type fakeEngine struct {
	mu            sync.Mutex
	startups      int
	shutdowns     int
	current       chan struct{}
	failOn        map[int]error
	gates         map[int]chan struct{}
	shutdownBlock chan struct{}
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{failOn: map[int]error{}, gates: map[int]chan struct{}{}}
}

func (e *fakeEngine) Startup(ctx context.Context) error {
	e.mu.Lock()
	e.startups++
	n := e.startups
	gate := e.gates[n]
	e.mu.Unlock()

	if gate != nil {
		<-gate
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.failOn[n]; err != nil {
		return err
	}
	if e.current != nil {
		return errors.New("generation already bound")
	}
	e.current = make(chan struct{})
	return nil
}

func (e *fakeEngine) Serve(ctx context.Context) error {
	e.mu.Lock()
	ch := e.current
	e.mu.Unlock()
	if ch == nil {
		return nil
	}
	<-ch
	return nil
}

func (e *fakeEngine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	block := e.shutdownBlock
	e.mu.Unlock()
	if block != nil {
		<-block
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.shutdowns++
	if e.current != nil {
		close(e.current)
		e.current = nil
	}
	return nil
}

func (e *fakeEngine) Addr() string { return "127.0.0.1:0" }

func (e *fakeEngine) counts() (startups, shutdowns int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startups, e.shutdowns
}

func fastConfig() Config {
	return Config{
		StartTimeout:   2 * time.Second,
		RestartTimeout: 2 * time.Second,
		PollInterval:   time.Millisecond,
		WatchInterval:  10 * time.Millisecond,
	}
}

func startController(t *testing.T, e Engine, opts ...Option) *Controller {
	t.Helper()
	opts = append([]Option{WithConfig(fastConfig())}, opts...)
	c, err := Start(context.Background(), e, opts...)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.Stop(ctx); err != nil {
			t.Errorf("Stop: %v", err)
		}
	})
	return c
}

func TestStartStop(t *testing.T) {
	e := newFakeEngine()
	c := New(e, WithConfig(fastConfig()), WithName("plain"))

	if c.State() != StateCreated || c.Ready() {
		t.Fatalf("fresh controller: state %s ready %v", c.State(), c.Ready())
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !c.Ready() || c.State() != StateReady {
		t.Fatalf("after Start: state %s ready %v", c.State(), c.Ready())
	}
	if h := c.Health(context.Background()); h.Status != component.StatusHealthy || h.Name != "plain" {
		t.Errorf("health = %+v", h)
	}
	if err := c.Start(context.Background()); !apperrors.IsCode(err, apperrors.ErrCodeInvalidState) {
		t.Errorf("second Start = %v, want INVALID_STATE", err)
	}

	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case <-c.Done():
	default:
		t.Fatal("engine group still running after Stop")
	}
	if c.Ready() || c.State() != StateStopped {
		t.Errorf("after Stop: state %s ready %v", c.State(), c.Ready())
	}
	if _, shutdowns := e.counts(); shutdowns != 1 {
		t.Errorf("shutdowns = %d, want 1", shutdowns)
	}
	if err := c.Stop(context.Background()); err != nil {
		t.Errorf("second Stop = %v", err)
	}
	if h := c.Health(context.Background()); h.Status != component.StatusUnhealthy {
		t.Errorf("health after stop = %+v", h)
	}
}

func TestStartupFailure(t *testing.T) {
	e := newFakeEngine()
	e.failOn[1] = errBind

	c, err := Start(context.Background(), e, WithConfig(fastConfig()))
	if c != nil {
		t.Error("expected nil controller")
	}
	if !apperrors.IsCode(err, apperrors.ErrCodeStartupFailed) {
		t.Fatalf("Start = %v, want STARTUP_FAILED", err)
	}
	if !errors.Is(err, errBind) {
		t.Errorf("cause lost: %v", err)
	}
}

func TestStartupFailureState(t *testing.T) {
	e := newFakeEngine()
	e.failOn[1] = errBind
	c := New(e, WithConfig(fastConfig()))

	if err := c.Start(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if c.State() != StateFailed {
		t.Errorf("state = %s, want failed", c.State())
	}
	if !errors.Is(c.Err(), errBind) {
		t.Errorf("Err() = %v", c.Err())
	}
	if err := c.Stop(context.Background()); err != nil {
		t.Errorf("Stop after failed start = %v", err)
	}
}

func TestStartTimeout(t *testing.T) {
	e := newFakeEngine()
	gate := make(chan struct{})
	e.gates[1] = gate
	defer close(gate)

	cfg := fastConfig()
	cfg.StartTimeout = 20 * time.Millisecond
	c := New(e, WithConfig(cfg))
	err := c.Start(context.Background())
	if !apperrors.IsCode(err, apperrors.ErrCodeStartupFailed) {
		t.Fatalf("Start = %v, want STARTUP_FAILED", err)
	}
}

func TestRequestRestart(t *testing.T) {
	e := newFakeEngine()
	c := startController(t, e)

	for i := 1; i <= 3; i++ {
		if err := c.RequestRestart(context.Background()); err != nil {
			t.Fatalf("restart %d: %v", i, err)
		}
		if !c.Ready() {
			t.Fatalf("not ready after restart %d", i)
		}
	}
	if got := c.Restarts(); got != 3 {
		t.Errorf("Restarts() = %d, want 3", got)
	}
	if startups, shutdowns := e.counts(); startups != 4 || shutdowns != 3 {
		t.Errorf("startups = %d, shutdowns = %d", startups, shutdowns)
	}
	if err := c.Reset(context.Background()); err != nil {
		t.Errorf("Reset: %v", err)
	}
}

func waitForState(t *testing.T, c *Controller, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for c.State() != want {
		if time.Now().After(deadline) {
			t.Fatalf("state = %s, never reached %s", c.State(), want)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestConcurrentRestartsShareOneCycle(t *testing.T) {
	e := newFakeEngine()
	gate := make(chan struct{})
	e.gates[2] = gate
	c := startController(t, e)

	const callers = 8
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- c.RequestRestart(context.Background())
		}()
	}
	waitForState(t, c, StateRestarting)
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("RequestRestart: %v", err)
		}
	}
	if n := c.Restarts(); n != 1 {
		t.Errorf("Restarts() = %d, want 1", n)
	}
	if startups, shutdowns := e.counts(); startups != 2 || shutdowns != 1 {
		t.Errorf("startups = %d, shutdowns = %d, want 2 and 1", startups, shutdowns)
	}
	if !c.Ready() {
		t.Error("not ready after concurrent restarts")
	}
}

func TestRestartJoinsCycleInFlight(t *testing.T) {
	e := newFakeEngine()
	gate := make(chan struct{})
	e.gates[2] = gate
	c := startController(t, e)

	errs := make(chan error, 2)
	go func() { errs <- c.RequestRestart(context.Background()) }()
	waitForState(t, c, StateRestarting)
	go func() { errs <- c.RequestRestart(context.Background()) }()
	time.Sleep(20 * time.Millisecond)
	close(gate)

	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("RequestRestart: %v", err)
		}
	}
	if n := c.Restarts(); n != 1 {
		t.Errorf("Restarts() = %d, want 1", n)
	}
	if startups, _ := e.counts(); startups != 2 {
		t.Errorf("startups = %d, want 2", startups)
	}
}

func TestRestartAfterCompletedCycleStartsAnother(t *testing.T) {
	e := newFakeEngine()
	c := startController(t, e)

	for i := 0; i < 2; i++ {
		if err := c.RequestRestart(context.Background()); err != nil {
			t.Fatalf("RequestRestart: %v", err)
		}
	}
	if n := c.Restarts(); n != 2 {
		t.Errorf("Restarts() = %d, want 2", n)
	}
}

func TestReadinessFalseDuringRestart(t *testing.T) {
	e := newFakeEngine()
	gate := make(chan struct{})
	e.gates[2] = gate
	c := startController(t, e)

	result := make(chan error, 1)
	go func() { result <- c.RequestRestart(context.Background()) }()

	waitForState(t, c, StateRestarting)
	if c.Ready() {
		t.Error("Ready() = true while the rebind is held")
	}
	if h := c.Health(context.Background()); h.Status != component.StatusDegraded {
		t.Errorf("health during restart = %+v", h)
	}
	close(gate)

	if err := <-result; err != nil {
		t.Fatalf("RequestRestart: %v", err)
	}
	if !c.Ready() || c.State() != StateReady {
		t.Errorf("after restart: state %s ready %v", c.State(), c.Ready())
	}
}

func TestRestartBeforeStart(t *testing.T) {
	c := New(newFakeEngine())
	err := c.RequestRestart(context.Background())
	if !apperrors.IsCode(err, apperrors.ErrCodeInvalidState) {
		t.Errorf("RequestRestart = %v, want INVALID_STATE", err)
	}
}

func TestRestartAfterStop(t *testing.T) {
	c := startController(t, newFakeEngine())
	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	err := c.RequestRestart(context.Background())
	if !apperrors.IsCode(err, apperrors.ErrCodeStopped) {
		t.Errorf("RequestRestart = %v, want SERVER_STOPPED", err)
	}
}

func TestStopBeforeStart(t *testing.T) {
	c := New(newFakeEngine())
	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if c.State() != StateStopped {
		t.Errorf("state = %s", c.State())
	}
	if err := c.Start(context.Background()); !apperrors.IsCode(err, apperrors.ErrCodeInvalidState) {
		t.Errorf("Start after Stop = %v, want INVALID_STATE", err)
	}
}

func TestRestartFailureTimesOut(t *testing.T) {
	e := newFakeEngine()
	e.failOn[2] = errBind
	cfg := fastConfig()
	cfg.RestartTimeout = 100 * time.Millisecond
	c := startController(t, e, WithConfig(cfg))

	err := c.RequestRestart(context.Background())
	if !apperrors.IsCode(err, apperrors.ErrCodeRestartTimeout) {
		t.Fatalf("RequestRestart = %v, want RESTART_TIMEOUT", err)
	}
	if c.Ready() {
		t.Error("ready after failed rebind")
	}
	if !errors.Is(c.Err(), errBind) {
		t.Errorf("Err() = %v", c.Err())
	}
	if h := c.Health(context.Background()); h.Status != component.StatusUnhealthy {
		t.Errorf("health = %+v", h)
	}

	// The next request rebinds.
	if err := c.RequestRestart(context.Background()); err != nil {
		t.Fatalf("second RequestRestart: %v", err)
	}
	if !c.Ready() || c.State() != StateReady {
		t.Errorf("state %s ready %v", c.State(), c.Ready())
	}
	if err := c.Err(); err != nil {
		t.Errorf("Err() after recovery = %v, want nil", err)
	}
}

func TestRestartContextDeadline(t *testing.T) {
	e := newFakeEngine()
	gate := make(chan struct{})
	e.gates[2] = gate
	c := startController(t, e)
	defer close(gate)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := c.RequestRestart(ctx)
	if !apperrors.IsCode(err, apperrors.ErrCodeRestartTimeout) {
		t.Errorf("RequestRestart = %v, want RESTART_TIMEOUT", err)
	}
}

func TestStopDuringRestart(t *testing.T) {
	e := newFakeEngine()
	gate := make(chan struct{})
	e.gates[2] = gate
	c := startController(t, e)

	result := make(chan error, 1)
	go func() { result <- c.RequestRestart(context.Background()) }()

	waitForState(t, c, StateRestarting)

	stopped := make(chan error, 1)
	go func() { stopped <- c.Stop(context.Background()) }()
	close(gate)

	select {
	case err := <-stopped:
		if err != nil {
			t.Fatalf("Stop: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return during restart")
	}
	err := <-result
	if err != nil && !apperrors.IsCode(err, apperrors.ErrCodeStopped) {
		t.Errorf("RequestRestart = %v, want nil or SERVER_STOPPED", err)
	}
	if c.State() != StateStopped {
		t.Errorf("state = %s", c.State())
	}
}

func TestStopHang(t *testing.T) {
	e := newFakeEngine()
	c := startController(t, e)

	release := make(chan struct{})
	e.mu.Lock()
	e.shutdownBlock = release
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := c.Stop(ctx); !apperrors.IsCode(err, apperrors.ErrCodeShutdownHang) {
		t.Errorf("Stop = %v, want SHUTDOWN_HANG", err)
	}
	close(release)
	if err := c.Stop(context.Background()); err != nil {
		t.Errorf("Stop after release = %v", err)
	}
}

func TestRestartMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	c := startController(t, newFakeEngine(), WithMeter(provider.Meter("test")))
	for i := 0; i < 2; i++ {
		if err := c.RequestRestart(context.Background()); err != nil {
			t.Fatalf("RequestRestart: %v", err)
		}
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "testserver.restarts" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("restarts data = %T", m.Data)
			}
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	if total != 2 {
		t.Errorf("recorded restarts = %d, want 2", total)
	}
}

func TestControllerWithServerEngine(t *testing.T) {
	engine := server.New(server.Config{}, logger.Nop())
	c := startController(t, engine, WithLogger(logger.Nop()))

	port := engine.Port()
	if port == 0 {
		t.Fatal("port not resolved")
	}
	fetch := func() string {
		t.Helper()
		resp, err := (&http.Client{Timeout: 5 * time.Second}).Get(engine.URL() + "/")
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return string(body)
	}

	if got := fetch(); got != "Hello, world!" {
		t.Fatalf("body = %q", got)
	}
	if err := c.RequestRestart(context.Background()); err != nil {
		t.Fatalf("RequestRestart: %v", err)
	}
	if engine.Port() != port {
		t.Errorf("port changed across restart: %d -> %d", port, engine.Port())
	}
	if got := fetch(); got != "Hello, world!" {
		t.Errorf("body after restart = %q", got)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{RestartTimeout: -time.Second}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative restart_timeout")
	}
	cfg = Config{}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
	if cfg.PollInterval != DefaultPollInterval || cfg.StartTimeout != DefaultStartTimeout {
		t.Errorf("defaults = %+v", cfg)
	}
}
