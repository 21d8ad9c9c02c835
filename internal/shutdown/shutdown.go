// Package shutdown coordinates orderly teardown of the input source,
// pipeline and metrics endpoint on signal or end of stream.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jlif/jlif/internal/logging"
)

// Func performs cleanup for one component during shutdown.
type Func func(context.Context) error

// Manager runs registered shutdown functions exactly once, with a timeout.
type Manager struct {
	logger  *logging.Logger
	timeout time.Duration

	mu    sync.Mutex
	funcs []namedFunc
	once  sync.Once
}

type namedFunc struct {
	name string
	fn   Func
}

// New creates a shutdown manager. A zero timeout defaults to 10 seconds.
func New(logger *logging.Logger, timeout time.Duration) *Manager {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Manager{
		logger:  logger.WithComponent("shutdown"),
		timeout: timeout,
	}
}

// Register adds a shutdown function. Functions run in registration order.
func (m *Manager) Register(name string, fn Func) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.funcs = append(m.funcs, namedFunc{name: name, fn: fn})
}

// Notify triggers Shutdown when SIGINT or SIGTERM arrives. It returns a
// stop function releasing the signal handler.
func (m *Manager) Notify() func() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig, ok := <-sigCh
		if !ok {
			return
		}
		m.logger.Debug().Str("signal", sig.String()).Msg("Shutdown signal received")
		m.Shutdown()
	}()
	return func() {
		signal.Stop(sigCh)
		close(sigCh)
	}
}

// Shutdown runs the registered functions once, in order, bounded by the
// configured timeout.
func (m *Manager) Shutdown() {
	m.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		m.mu.Lock()
		funcs := m.funcs
		m.mu.Unlock()

		for _, nf := range funcs {
			if err := nf.fn(ctx); err != nil {
				m.logger.Warn().Err(err).Str("component", nf.name).Msg("Shutdown function failed")
			}
		}
	})
}
