package component

import "context"

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health holds health information for a component.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a lifecycle-managed piece of the harness.
type Component interface {
	// Name returns the unique name of the component for registration.
	Name() string

	// Start brings the component up. It returns once the component is usable.
	Start(ctx context.Context) error

	// Stop shuts the component down and releases its resources.
	Stop(ctx context.Context) error

	// Health returns the current health status of the component.
	Health(ctx context.Context) Health
}

// Description is what a component reports about itself in startup
// summaries.
type Description struct {
	// Name is the display name. Falls back to Component.Name when empty.
	Name string
	// Type categorizes the component, e.g. "http", "https".
	Type string
	// Details is a one-liner such as "127.0.0.1:8001 h2".
	Details string
	// Port is the bound port, 0 if not applicable.
	Port int
}

// Describable is optionally implemented by components that can describe
// their bound address and mode.
type Describable interface {
	Describe() Description
}
