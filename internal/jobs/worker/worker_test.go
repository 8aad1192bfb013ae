package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/yungbote/neurobridge-coach/internal/platform/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPoolRunsTasksAndDrains(t *testing.T) {
	p := NewPool(logger.Nop(), Config{Concurrency: 2, TaskTimeout: time.Second})
	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		if err := p.Submit("count", func(ctx context.Context) error {
			ran.Add(1)
			return nil
		}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	if err := p.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := ran.Load(); got != 10 {
		t.Fatalf("ran: want=10 got=%d", got)
	}
}

func TestPoolBoundsConcurrency(t *testing.T) {
	p := NewPool(logger.Nop(), Config{Concurrency: 2, TaskTimeout: time.Second})
	var inflight, peak atomic.Int32
	for i := 0; i < 8; i++ {
		_ = p.Submit("bounded", func(ctx context.Context) error {
			n := inflight.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inflight.Add(-1)
			return nil
		})
	}
	_ = p.Close(context.Background())
	if peak.Load() > 2 {
		t.Fatalf("peak concurrency: want<=2 got=%d", peak.Load())
	}
}

func TestPoolIsolatesPanicsAndErrors(t *testing.T) {
	p := NewPool(logger.Nop(), Config{Concurrency: 1, TaskTimeout: time.Second})
	var after atomic.Bool
	_ = p.Submit("panics", func(ctx context.Context) error { panic("boom") })
	_ = p.Submit("fails", func(ctx context.Context) error { return errors.New("nope") })
	_ = p.Submit("after", func(ctx context.Context) error {
		after.Store(true)
		return nil
	})
	_ = p.Close(context.Background())
	if !after.Load() {
		t.Fatalf("task after a panic did not run")
	}
}

func TestPoolRejectsAfterClose(t *testing.T) {
	p := NewPool(logger.Nop(), Config{Concurrency: 1})
	_ = p.Close(context.Background())
	if err := p.Submit("late", func(ctx context.Context) error { return nil }); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestPoolCloseCancelsOnDeadline(t *testing.T) {
	p := NewPool(logger.Nop(), Config{Concurrency: 1, TaskTimeout: time.Minute})
	started := make(chan struct{})
	_ = p.Submit("slow", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	<-started
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := p.Close(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestInlineSwallowsPanics(t *testing.T) {
	var ran bool
	in := Inline{Log: logger.Nop()}
	_ = in.Submit("panics", func(ctx context.Context) error { panic("boom") })
	_ = in.Submit("ok", func(ctx context.Context) error {
		ran = true
		return nil
	})
	if !ran {
		t.Fatalf("inline task did not run")
	}
}
