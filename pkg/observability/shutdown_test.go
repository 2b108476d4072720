package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

func TestShutdownManager_RegisterAndRun(t *testing.T) {
	logger := NewLogger(ErrorLevel, nil)
	sm := NewShutdownManager(logger, time.Second)

	var ran atomic.Int32
	sm.RegisterCloser("redis", func(ctx context.Context) error {
		ran.Add(1)
		return nil
	})
	sm.RegisterCloser("postgres", func(ctx context.Context) error {
		ran.Add(1)
		return nil
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- sm.WaitForShutdown()
	}()

	// Give WaitForShutdown time to install its signal handler
	time.Sleep(50 * time.Millisecond)
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("Failed to send signal: %v", err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("WaitForShutdown() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("WaitForShutdown did not return")
	}

	if ran.Load() != 2 {
		t.Errorf("closers ran = %d, want 2", ran.Load())
	}
}

func TestShutdownManager_DrainsRegisteredServers(t *testing.T) {
	logger := NewLogger(ErrorLevel, nil)
	sm := NewShutdownManager(logger, time.Second)

	api := httptest.NewServer(http.NewServeMux())
	t.Cleanup(api.Close)
	sm.RegisterServer("api", api.Config)
	sm.RegisterServer("ops", &http.Server{})

	errCh := make(chan error, 1)
	go func() {
		errCh <- sm.WaitForShutdown()
	}()

	time.Sleep(50 * time.Millisecond)
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("Failed to send signal: %v", err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("WaitForShutdown() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("WaitForShutdown did not return")
	}

	// The listener was closed by the drain
	if _, err := http.Get(api.URL); err == nil {
		t.Error("drained server should refuse new connections")
	}
}

func TestShutdownManager_PropagatesErrors(t *testing.T) {
	logger := NewLogger(ErrorLevel, nil)
	sm := NewShutdownManager(logger, time.Second)

	sm.RegisterCloser("bad resource", func(ctx context.Context) error {
		return errors.New("close failed")
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- sm.WaitForShutdown()
	}()

	time.Sleep(50 * time.Millisecond)
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("Failed to send signal: %v", err)
	}

	select {
	case err := <-errCh:
		if err == nil {
			t.Error("Expected error from failing closer")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("WaitForShutdown did not return")
	}
}

func TestNewShutdownManager_DefaultTimeout(t *testing.T) {
	sm := NewShutdownManager(NewLogger(ErrorLevel, nil), 0)
	if sm.timeout != 30*time.Second {
		t.Errorf("default timeout = %v, want 30s", sm.timeout)
	}
}
