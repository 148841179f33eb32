// Package util holds small parsing helpers shared by the engine and config.
package util
