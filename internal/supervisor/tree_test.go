package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type flakyService struct {
	starts  atomic.Int32
	running chan struct{}
}

func (f *flakyService) Serve(ctx context.Context) error {
	if f.starts.Add(1) == 1 {
		return errors.New("boom")
	}
	close(f.running)
	<-ctx.Done()
	return ctx.Err()
}

func TestTreeRestartsFailedService(t *testing.T) {
	tree := NewTree("test", TreeConfig{FailureBackoff: 10 * time.Millisecond, ShutdownTimeout: time.Second})
	svc := &flakyService{running: make(chan struct{})}
	tree.Add(svc)

	ctx, cancel := context.WithCancel(context.Background())
	done := tree.ServeBackground(ctx)

	select {
	case <-svc.running:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected service to be restarted, starts=%d", svc.starts.Load())
	}
	if got := svc.starts.Load(); got != 2 {
		t.Fatalf("expected 2 starts, got %d", got)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected tree to stop after cancel")
	}
}

func TestNewTreeAppliesDefaults(t *testing.T) {
	if NewTree("defaults", TreeConfig{}) == nil {
		t.Fatalf("expected tree")
	}
	def := DefaultTreeConfig()
	if def.FailureThreshold != 5 || def.FailureBackoff != 15*time.Second {
		t.Fatalf("unexpected defaults %+v", def)
	}
}
