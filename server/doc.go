// Package server is the HTTP engine of the harness: a Gin engine serving a
// routes.Table, with HTTP/2 over TLS and optional h2c on plain listeners.
//
// The engine is driven in generations. Startup binds a listener and builds
// a fresh http.Server, Serve runs it until Shutdown, and the next Startup
// rebinds the port the first generation resolved. This is what the
// lifecycle controller calls on every restart.
//
// # Middleware
//
// The handler chain (server/middleware) wraps the engine:
//
//   - Recovery: panics become 500 responses
//   - RequestID: request id in the context, headers untouched
//   - Tracing: one server span per request
//   - RequestLogger: structured request log and request metrics
//   - BodySizeLimit: caps request bodies
package server
