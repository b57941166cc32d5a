// Package lifecycle coordinates startup probes and graceful shutdown across subsystems.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Coordinator manages startup and shutdown hooks for the application lifecycle.
// Startup hooks that return an error keep the coordinator from reporting ready.
type Coordinator struct {
	ctx        context.Context
	cancel     context.CancelFunc
	startupWg  sync.WaitGroup
	shutdownWg sync.WaitGroup
	drained    chan struct{}

	mu       sync.RWMutex
	ready    bool
	failures map[string]error
	drains   []func()
}

// New creates a Coordinator with a cancellable context.
func New() *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		ctx:      ctx,
		cancel:   cancel,
		drained:  make(chan struct{}),
		failures: make(map[string]error),
	}
}

// Context returns the coordinator's context, cancelled on shutdown.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// OnStartup registers a named probe to run concurrently during startup.
// A non-nil error is recorded under name and reported by Failures.
func (c *Coordinator) OnStartup(name string, fn func() error) {
	c.startupWg.Go(func() {
		if err := fn(); err != nil {
			c.mu.Lock()
			c.failures[name] = err
			c.mu.Unlock()
		}
	})
}

// OnDrain registers a function that runs once the context is cancelled and
// before any shutdown hook. Drain hooks finish in-flight work that still needs
// the resources shutdown hooks release.
func (c *Coordinator) OnDrain(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drains = append(c.drains, fn)
}

// OnShutdown registers a function to run concurrently during shutdown, after
// every drain hook has returned.
func (c *Coordinator) OnShutdown(fn func()) {
	c.shutdownWg.Go(func() {
		<-c.drained
		fn()
	})
}

// Ready returns true after all startup hooks have completed without failure.
func (c *Coordinator) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready && len(c.failures) == 0
}

// Failures returns the combined startup hook errors, or nil.
func (c *Coordinator) Failures() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	errs := make([]error, 0, len(c.failures))
	for name, err := range c.failures {
		errs = append(errs, fmt.Errorf("%s: %w", name, err))
	}
	return errors.Join(errs...)
}

// WaitForStartup blocks until all startup hooks have completed and sets the ready flag.
func (c *Coordinator) WaitForStartup() {
	c.startupWg.Wait()
	c.mu.Lock()
	c.ready = true
	c.mu.Unlock()
}

// Shutdown cancels the context, runs the drain hooks, then waits for shutdown
// hooks to complete. The timeout covers both phases.
func (c *Coordinator) Shutdown(timeout time.Duration) error {
	c.cancel()

	c.mu.RLock()
	drains := slices.Clone(c.drains)
	c.mu.RUnlock()

	done := make(chan struct{})
	go func() {
		var wg sync.WaitGroup
		for _, fn := range drains {
			wg.Go(fn)
		}
		wg.Wait()
		c.closeDrained()

		c.shutdownWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("shutdown timeout after %v", timeout)
	}
}

func (c *Coordinator) closeDrained() {
	select {
	case <-c.drained:
	default:
		close(c.drained)
	}
}
