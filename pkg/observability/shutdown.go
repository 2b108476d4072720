package observability

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ShutdownFunc releases one resource during shutdown
type ShutdownFunc func(context.Context) error

type namedCloser struct {
	name  string
	close ShutdownFunc
}

// ShutdownManager drains the registered HTTP servers and then closes the
// remaining resources when the process receives SIGINT or SIGTERM.
type ShutdownManager struct {
	logger  *Logger
	timeout time.Duration

	mu      sync.Mutex
	servers []namedCloser
	closers []namedCloser
}

// NewShutdownManager creates a shutdown manager. A non-positive timeout
// defaults to 30 seconds.
func NewShutdownManager(logger *Logger, timeout time.Duration) *ShutdownManager {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownManager{logger: logger, timeout: timeout}
}

// RegisterServer adds an HTTP server to drain. Servers drain before the
// closers run, so in-flight requests can still reach the resources the
// closers are about to tear down.
func (sm *ShutdownManager) RegisterServer(name string, server *http.Server) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.servers = append(sm.servers, namedCloser{name: name, close: server.Shutdown})
}

// RegisterCloser adds a resource to close once the servers have drained
func (sm *ShutdownManager) RegisterCloser(name string, fn ShutdownFunc) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.closers = append(sm.closers, namedCloser{name: name, close: fn})
}

// WaitForShutdown blocks until a termination signal arrives, then runs the
// drain-and-close sequence under the shutdown timeout.
func (sm *ShutdownManager) WaitForShutdown() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	sm.logger.WithField("signal", sig.String()).Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), sm.timeout)
	defer cancel()

	sm.mu.Lock()
	servers := sm.servers
	closers := sm.closers
	sm.mu.Unlock()

	failed := 0
	for _, srv := range servers {
		if err := srv.close(ctx); err != nil {
			sm.logger.WithError(err).WithField("server", srv.name).Error("server drain failed")
			failed++
			continue
		}
		sm.logger.WithField("server", srv.name).Info("server drained")
	}

	var wg sync.WaitGroup
	errCh := make(chan error, len(closers))
	for _, c := range closers {
		wg.Add(1)
		go func(c namedCloser) {
			defer wg.Done()
			if err := c.close(ctx); err != nil {
				sm.logger.WithError(err).WithField("resource", c.name).Error("resource close failed")
				errCh <- err
			}
		}(c)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("shutdown timed out after %s", sm.timeout)
	}

	close(errCh)
	for range errCh {
		failed++
	}
	if failed > 0 {
		return fmt.Errorf("shutdown finished with %d failures", failed)
	}

	sm.logger.Info("shutdown complete")
	return nil
}
