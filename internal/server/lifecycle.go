// Package server provides process lifecycle management: ordered service
// startup, signal handling, and reverse-order shutdown.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Service is a long-running component managed by the Lifecycle.
type Service interface {
	// Start blocks until the service stops or fails.
	Start() error
	// Stop asks the service to stop; Start must return soon after.
	Stop()
}

// FuncService adapts a start/stop function pair into a Service.
type FuncService struct {
	StartFn func() error
	StopFn  func()
}

// Start calls the underlying start function.
func (f *FuncService) Start() error { return f.StartFn() }

// Stop calls the underlying stop function.
func (f *FuncService) Stop() { f.StopFn() }

// Lifecycle starts registered services in order and stops them in reverse
// order on SIGINT/SIGTERM, context cancellation, or the first service error.
type Lifecycle struct {
	logger *zap.Logger
	names  []string
	svcs   []Service
}

// NewLifecycle creates an empty Lifecycle.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{logger: logger}
}

// Add registers a named service. Not safe to call after Run has started.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) {
	l.names = append(l.names, name)
	l.svcs = append(l.svcs, svc)
}

// Run starts every service in its own goroutine and blocks until a
// termination signal arrives, ctx is cancelled, or a service fails.
//
// Postcondition: All services have been stopped, in reverse registration
// order, when Run returns.
func (l *Lifecycle) Run(ctx context.Context) error {
	started := time.Now()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	failures := make(chan error, len(l.svcs))
	for i, svc := range l.svcs {
		name, svc := l.names[i], svc
		go func() {
			l.logger.Info("starting service", zap.String("service", name))
			if err := svc.Start(); err != nil {
				failures <- fmt.Errorf("service %s: %w", name, err)
				cancel()
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var cause error
	select {
	case sig := <-sigCh:
		l.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case cause = <-failures:
		l.logger.Error("service error, shutting down", zap.Error(cause))
	case <-ctx.Done():
		l.logger.Info("context cancelled, shutting down")
	}

	for i := len(l.svcs) - 1; i >= 0; i-- {
		stopStart := time.Now()
		l.svcs[i].Stop()
		l.logger.Info("service stopped",
			zap.String("service", l.names[i]),
			zap.Duration("elapsed", time.Since(stopStart)),
		)
	}

	l.logger.Info("shutdown complete", zap.Duration("uptime", time.Since(started)))
	return cause
}
