// Package errors provides the error taxonomy of the test server harness.
// Every failure surfaced by the lifecycle controller, the HTTP engine and the
// fixture layer is an *AppError carrying a machine-readable code, the HTTP
// status used when the error is rendered to a peer, and the underlying cause.
package errors
