// Package logger provides structured logging for the test server harness
// using zerolog.
//
// Loggers are component-scoped: the lifecycle controller, the HTTP engine
// and the request middleware each tag their events with a component name so
// a failing test's output shows which side of the runner/engine boundary an
// event came from.
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "console"
//
// # Usage
//
//	log := logger.NewFromEnv("testserver").WithComponent("lifecycle")
//	log.Info("server ready", logger.Fields("addr", addr))
package logger
