package testutil

import (
	"context"

	"github.com/kbukum/testserver/component"
)

// TestComponent extends component.Component with a Reset used between test
// cases.
type TestComponent interface {
	component.Component

	// Reset returns the component to a freshly started state. It blocks
	// until the component is usable again or ctx expires.
	Reset(ctx context.Context) error
}
