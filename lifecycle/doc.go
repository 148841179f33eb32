// Package lifecycle runs an HTTP engine in a background goroutine group and
// controls it from synchronous callers.
//
// The caller side (a test, a CLI signal handler) never calls into the
// engine's goroutines. It flips flags and sets a restart signal, then polls
// the readiness flag:
//
//	ctrl, err := lifecycle.Start(ctx, engine,
//	    lifecycle.WithLogger(log),
//	    lifecycle.WithConfig(lifecycle.Config{RestartTimeout: 2 * time.Second}),
//	)
//	if err != nil {
//	    return err
//	}
//	defer ctrl.Stop(context.Background())
//
//	// From any goroutine:
//	if err := ctrl.RequestRestart(ctx); err != nil {
//	    return err
//	}
//
// Inside the group an accept loop serves each listener generation while a
// watcher waits for the restart signal or the exit flag. A restart shuts the
// current generation down, binds a new one on the same port and hands it to
// the accept loop.
package lifecycle
