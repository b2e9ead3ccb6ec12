// Package runner manages the lifecycle of long-running services: ordered
// startup, graceful shutdown on OS signals, reverse-order stop.
package runner

import "context"

// Service is a unit the runner starts and stops.
type Service interface {
	// Name identifies the service in logs and errors.
	Name() string

	// Start initializes the service and returns once it is ready.
	// Must respect context cancellation.
	Start(ctx context.Context) error

	// Stop shuts the service down gracefully within the context deadline.
	Stop(ctx context.Context) error
}
