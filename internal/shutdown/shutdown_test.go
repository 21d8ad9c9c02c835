package shutdown

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/jlif/jlif/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.New(logging.Config{Level: "error", Output: io.Discard})
}

func TestNew(t *testing.T) {
	m := New(testLogger(), 5*time.Second)
	if m == nil {
		t.Fatal("expected non-nil manager")
	}
	if m.timeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", m.timeout)
	}
}

func TestNewDefaultTimeout(t *testing.T) {
	m := New(testLogger(), 0)
	if m.timeout != 10*time.Second {
		t.Errorf("timeout = %v, want 10s default", m.timeout)
	}
}

func TestShutdownRunsInOrder(t *testing.T) {
	m := New(testLogger(), time.Second)

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		m.Register("step", func(ctx context.Context) error {
			order = append(order, i)
			return nil
		})
	}

	m.Shutdown()

	if len(order) != 3 {
		t.Fatalf("ran %d functions, want 3", len(order))
	}
	for i, got := range order {
		if got != i {
			t.Errorf("position %d ran function %d", i, got)
		}
	}
}

func TestShutdownRunsOnce(t *testing.T) {
	m := New(testLogger(), time.Second)

	calls := 0
	m.Register("counter", func(ctx context.Context) error {
		calls++
		return nil
	})

	m.Shutdown()
	m.Shutdown()

	if calls != 1 {
		t.Errorf("function ran %d times, want 1", calls)
	}
}

func TestShutdownContinuesAfterError(t *testing.T) {
	m := New(testLogger(), time.Second)

	ran := false
	m.Register("failing", func(ctx context.Context) error {
		return errors.New("cleanup failed")
	})
	m.Register("following", func(ctx context.Context) error {
		ran = true
		return nil
	})

	m.Shutdown()

	if !ran {
		t.Error("function after a failing one did not run")
	}
}

func TestNotifyStopReleasesHandler(t *testing.T) {
	m := New(testLogger(), time.Second)
	stop := m.Notify()
	stop()
}
