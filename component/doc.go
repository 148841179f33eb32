// Package component defines the lifecycle contract shared by everything the
// harness starts and stops, and a registry that drives a set of components
// in a deterministic order.
//
// Components start in registration order and stop in reverse order, so a
// suite that registers the plain server before the TLS server tears the TLS
// server down first.
package component
