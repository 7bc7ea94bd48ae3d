package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRunSweeperPurgesUntilCancelled(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_ = m.Put(ctx, newTask("gone", "", time.Now().Add(-48*time.Hour).Unix()))

	sweepCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		RunSweeper(sweepCtx, m, 5*time.Millisecond, zap.NewNop())
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		m.mu.RLock()
		n := len(m.tasks)
		m.mu.RUnlock()
		if n == 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("expired task never purged")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

type brokenSweeper struct{ calls chan struct{} }

func (b brokenSweeper) PurgeExpired(context.Context, time.Time) (int64, error) {
	select {
	case b.calls <- struct{}{}:
	default:
	}
	return 0, errors.New("disk full")
}

func TestRunSweeperKeepsGoingAfterError(t *testing.T) {
	b := brokenSweeper{calls: make(chan struct{}, 1)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go RunSweeper(ctx, b, time.Millisecond, zap.NewNop())

	for i := 0; i < 2; i++ {
		select {
		case <-b.calls:
		case <-time.After(time.Second):
			t.Fatalf("sweep %d never ran", i+1)
		}
	}
}
