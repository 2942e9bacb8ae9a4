package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"pixelforge/core"

	"go.uber.org/zap"
)

// Manager is the shutdown coordination organism. It composes:
//   - OperationTracker: drains in-flight enhancements before cleanup
//   - ShutdownRegistry: ordered cleanup handlers
//   - SignalCounter: forces exit on a repeated interrupt
//
// The watch daemon owns one Manager: every enhancement runs through
// WrapOperation, teardown (index writer drain, database close, log sync)
// is registered up front, and the main goroutine blocks on Wait.
//
// Usage:
//
//	manager := NewManager(log.Zap(), WithTimeout(30*time.Second))
//
//	manager.Register("index-writer", 10, drainWriter)
//	manager.Register("database", 20, closeDatabase)
//
//	manager.Start()
//
//	// Per enhancement:
//	err := manager.WrapOperation(ctx, name, func(ctx context.Context) error {
//	    _, err := pipe.Run(ctx, req)
//	    return err
//	})
//
//	manager.Wait()
//	manager.Shutdown()
type Manager struct {
	logger   *zap.Logger
	timeout  time.Duration
	mu       sync.Mutex
	started  bool
	shutdown bool

	ctx    context.Context
	cancel context.CancelFunc

	tracker  *OperationTracker
	registry *ShutdownRegistry
	signals  *SignalCounter

	sigChan chan os.Signal

	// lastSignal is written by the signal goroutine before it increments the
	// counter, and read by the force callback on that same goroutine.
	lastSignal os.Signal
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithTimeout sets the total shutdown budget: drain plus cleanup.
// Default is 60 seconds.
func WithTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		m.timeout = timeout
	}
}

// NewManager creates a Manager ready to coordinate graceful shutdown.
// The logger is required.
//
// Defaults: 60 second timeout, forced exit on the second signal with the
// conventional 128+signal exit code.
func NewManager(logger *zap.Logger, opts ...ManagerOption) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		logger:   logger,
		timeout:  60 * time.Second,
		ctx:      ctx,
		cancel:   cancel,
		tracker:  NewOperationTracker(),
		registry: NewShutdownRegistry(),
		sigChan:  make(chan os.Signal, 1),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.signals = NewSignalCounter(2, func() {
		code := core.ExitCodeError
		if m.lastSignal != nil {
			code = core.SignalExitCode(m.lastSignal)
		}
		m.logger.Warn("Repeated shutdown signal, forcing exit",
			zap.Int("exit_code", code),
		)
		os.Exit(code)
	})

	return m
}

// Context returns the context that is cancelled when shutdown begins.
// Long-running loops should select on it.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Register adds a cleanup handler to run during Shutdown. Lower priority
// values run first; see ShutdownRegistry.Register for the priority ranges.
func (m *Manager) Register(name string, priority int, fn core.ShutdownFunc) {
	m.registry.Register(name, priority, fn)
	m.logger.Debug("Registered shutdown handler",
		zap.String("name", name),
		zap.Int("priority", priority),
	)
}

// Start begins listening for SIGINT and SIGTERM. The first signal cancels
// the manager context to begin graceful shutdown; the second forces the
// process out via the signal counter.
//
// Start is idempotent.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return
	}
	m.started = true

	signal.Notify(m.sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for sig := range m.sigChan {
			m.lastSignal = sig
			if m.signals.Increment() == 1 {
				m.logger.Info("Received shutdown signal, beginning graceful shutdown",
					zap.String("signal", sig.String()),
				)
				m.cancel()
			}
		}
	}()

	m.logger.Info("Shutdown manager started, listening for signals")
}

// Shutdown runs the graceful shutdown sequence:
//  1. Close the tracker so no new work starts
//  2. Wait for in-flight work, up to the timeout
//  3. Run cleanup handlers in priority order, on the remaining budget
//
// A drain timeout is logged but does not abort the sequence: cleanup
// handlers still run so queues flush and files close. Shutdown is
// idempotent; later calls return nil.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil
	}
	m.shutdown = true
	m.mu.Unlock()

	// Shutdown may be entered programmatically, without a signal.
	m.cancel()

	startTime := time.Now()
	m.logger.Info("Beginning graceful shutdown",
		zap.Duration("timeout", m.timeout),
		zap.Int("registered_handlers", m.registry.Count()),
	)

	m.tracker.Close()

	if active := m.tracker.ActiveCount(); active > 0 {
		m.logger.Info("Waiting for in-flight work",
			zap.Int64("active", active),
		)
	}

	if err := m.tracker.Wait(m.timeout); err != nil {
		m.logger.Warn("In-flight work did not drain",
			zap.Duration("waited", time.Since(startTime)),
			zap.Int64("remaining", m.tracker.ActiveCount()),
		)
	}

	// Cleanup runs on whatever budget the drain left, with a floor so a
	// fully spent drain still lets queues flush.
	remaining := m.timeout - time.Since(startTime)
	if remaining < time.Second {
		remaining = time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), remaining)
	defer cancel()

	m.logger.Info("Running cleanup handlers",
		zap.Strings("handlers", m.registry.Names()),
	)

	errs := m.registry.Shutdown(ctx)
	for _, err := range errs {
		m.logger.Error("Cleanup handler failed", zap.Error(err))
	}

	signal.Stop(m.sigChan)
	close(m.sigChan)

	duration := time.Since(startTime)
	if len(errs) > 0 {
		m.logger.Error("Shutdown finished with errors",
			zap.Duration("duration", duration),
			zap.Int("error_count", len(errs)),
		)
		return fmt.Errorf("shutdown finished with %d cleanup errors", len(errs))
	}

	m.logger.Info("Graceful shutdown complete",
		zap.Duration("duration", duration),
	)
	return nil
}

// Wait blocks until shutdown begins, via signal or a Shutdown call.
func (m *Manager) Wait() {
	<-m.ctx.Done()
}

// WrapOperation runs fn while tracking it as in-flight work, so Shutdown
// waits for it. When shutdown has already begun the function is not run and
// ErrTrackerClosed is returned. The name only feeds log lines.
//
// Example:
//
//	err := manager.WrapOperation(ctx, "enhance "+entry.Name(), func(ctx context.Context) error {
//	    _, err := pipe.Run(ctx, req)
//	    return err
//	})
//	if errors.Is(err, shutdown.ErrTrackerClosed) {
//	    return nil // leave the file for the next run
//	}
func (m *Manager) WrapOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	if !m.tracker.Start() {
		m.logger.Debug("Work rejected, shutdown in progress",
			zap.String("operation", name),
		)
		return ErrTrackerClosed
	}
	defer m.tracker.Done()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.ctx.Done():
		return context.Canceled
	default:
	}

	return fn(ctx)
}

// ActiveOperations returns the count of in-flight operations.
func (m *Manager) ActiveOperations() int64 {
	return m.tracker.ActiveCount()
}

// IsShuttingDown reports whether shutdown has begun.
func (m *Manager) IsShuttingDown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shutdown || m.tracker.IsClosed()
}

// RegisteredHandlers returns cleanup handler names in execution order.
func (m *Manager) RegisteredHandlers() []string {
	return m.registry.Names()
}
