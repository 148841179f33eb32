// Package bootstrap runs harness components as a foreground process.
//
// An App starts its registered components in order, prints a startup
// summary and then waits for OS signals: SIGHUP asks every component that
// can restart to rebind, SIGINT and SIGTERM stop everything in reverse
// order.
//
//	app := bootstrap.NewApp("testserver", version.Short(), bootstrap.WithLogger(log))
//	_ = app.RegisterComponent(httpServer)
//	_ = app.RegisterComponent(httpsServer)
//	if err := app.Run(ctx); err != nil {
//	    log.Error("exited", logger.ErrorFields("run", err))
//	}
package bootstrap
