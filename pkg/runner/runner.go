package runner

import (
	"context"
	"fmt"
	"time"
)

// Runner starts services in registration order and stops them in reverse
// order when the context is cancelled or a shutdown signal arrives.
type Runner struct {
	services        []Service
	logger          Logger
	startupTimeout  time.Duration
	shutdownTimeout time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the runner's logger.
func WithLogger(logger Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithStartupTimeout bounds each service's Start. Default 1 minute.
func WithStartupTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.startupTimeout = d
	}
}

// WithShutdownTimeout bounds each service's Stop. Default 30 seconds.
func WithShutdownTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.shutdownTimeout = d
	}
}

// New creates a runner over the given services.
func New(services []Service, opts ...Option) *Runner {
	r := &Runner{
		services:        services,
		logger:          NewNoopLogger(),
		startupTimeout:  time.Minute,
		shutdownTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run starts every service, then blocks until the context is cancelled or
// an OS shutdown signal arrives, and finally stops the started services in
// reverse order.
func (r *Runner) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		WaitForShutdownSignal()
		r.logger.Info("shutdown signal received")
		cancel()
	}()

	var started []Service
	for _, svc := range r.services {
		r.logger.Info("starting service", "service", svc.Name())

		startCtx, startCancel := context.WithTimeout(ctx, r.startupTimeout)
		err := svc.Start(startCtx)
		startCancel()

		if err != nil {
			r.logger.Error("service failed to start", "service", svc.Name(), "error", err)
			r.stopAll(started)
			return fmt.Errorf("start service %s: %w", svc.Name(), err)
		}
		started = append(started, svc)
	}

	r.logger.Info("all services started", "count", len(started))
	<-ctx.Done()

	r.logger.Info("stopping services", "timeout", r.shutdownTimeout)
	r.stopAll(started)
	return nil
}

// stopAll stops services in reverse start order, logging failures instead
// of aborting so every service gets its chance to shut down.
func (r *Runner) stopAll(started []Service) {
	for i := len(started) - 1; i >= 0; i-- {
		svc := started[i]

		stopCtx, stopCancel := context.WithTimeout(context.Background(), r.shutdownTimeout)
		if err := svc.Stop(stopCtx); err != nil {
			r.logger.Error("service failed to stop", "service", svc.Name(), "error", err)
		} else {
			r.logger.Info("service stopped", "service", svc.Name())
		}
		stopCancel()
	}
}
