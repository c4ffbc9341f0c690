package supervisor

import (
	"context"
	"time"

	"github.com/thejerf/suture/v4"

	"incidentwatch/internal/logger"
)

// TreeConfig controls restart behavior of supervised services.
type TreeConfig struct {
	// FailureThreshold is the number of failures before entering backoff.
	FailureThreshold float64
	// FailureDecay is the rate, in seconds, at which failures decay.
	FailureDecay float64
	// FailureBackoff is the wait once the threshold is exceeded.
	FailureBackoff time.Duration
	// ShutdownTimeout bounds how long each service gets to stop.
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig returns the production restart policy.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Tree is a single-level suture supervisor whose events go to the global logger.
type Tree struct {
	root *suture.Supervisor
}

// NewTree creates a supervisor. Zero config fields take DefaultTreeConfig values.
func NewTree(name string, cfg TreeConfig) *Tree {
	def := DefaultTreeConfig()
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.FailureDecay == 0 {
		cfg.FailureDecay = def.FailureDecay
	}
	if cfg.FailureBackoff == 0 {
		cfg.FailureBackoff = def.FailureBackoff
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}

	return &Tree{root: suture.New(name, suture.Spec{
		EventHook:        logEvent,
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	})}
}

// Add registers a service; it starts with the tree or immediately if already running.
func (t *Tree) Add(svc suture.Service) suture.ServiceToken {
	return t.root.Add(svc)
}

// Serve runs every service until ctx is canceled.
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground runs the tree in a goroutine and reports its exit on the returned channel.
func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

func logEvent(e suture.Event) {
	switch e.Type() {
	case suture.EventTypeServicePanic:
		logger.Errorf("Supervisor: %s", e)
	case suture.EventTypeServiceTerminate, suture.EventTypeStopTimeout, suture.EventTypeBackoff:
		logger.Warnf("Supervisor: %s", e)
	default:
		logger.Infof("Supervisor: %s", e)
	}
}
