package inference

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"incidentwatch/internal/logger"
	"incidentwatch/internal/metrics"
)

var (
	// ErrCircuitOpen is returned when a collaborator's breaker rejects a call.
	ErrCircuitOpen = errors.New("collaborator circuit open")
	// ErrBadResponse is returned when a collaborator answers with an unusable payload.
	ErrBadResponse = errors.New("collaborator returned bad response")
)

// BreakerConfig controls when a collaborator circuit opens.
type BreakerConfig struct {
	MaxRequests  uint32
	Interval     time.Duration
	OpenTimeout  time.Duration
	MinRequests  uint32
	FailureRatio float64
}

// ClientConfig configures one model-server client.
type ClientConfig struct {
	URL           string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	Headers       map[string]string
	Breaker       BreakerConfig
}

// Guard applies rate limiting, a per-call timeout and a circuit breaker to collaborator calls.
type Guard struct {
	name    string
	timeout time.Duration
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[struct{}]
}

// NewGuard creates a guard named after the collaborator it protects.
func NewGuard(name string, cfg ClientConfig) *Guard {
	b := cfg.Breaker
	if b.MaxRequests == 0 {
		b.MaxRequests = 3
	}
	if b.Interval <= 0 {
		b.Interval = time.Minute
	}
	if b.OpenTimeout <= 0 {
		b.OpenTimeout = 30 * time.Second
	}
	if b.MinRequests == 0 {
		b.MinRequests = 10
	}
	if b.FailureRatio <= 0 {
		b.FailureRatio = 0.6
	}

	limit := rate.Inf
	burst := cfg.Burst
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
		if burst <= 0 {
			burst = 1
		}
	}

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: b.MaxRequests,
		Interval:    b.Interval,
		Timeout:     b.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < b.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= b.FailureRatio {
				logger.Warnf("Opening %s circuit: %d/%d requests failed", name, counts.TotalFailures, counts.Requests)
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Infof("Circuit %s: %s -> %s", name, from, to)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})

	return &Guard{
		name:    name,
		timeout: cfg.Timeout,
		limiter: rate.NewLimiter(limit, burst),
		cb:      cb,
	}
}

// Do runs fn under the guard. Breaker rejections wrap ErrCircuitOpen.
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s rate limit: %w", g.name, err)
	}

	start := time.Now()
	_, err := g.cb.Execute(func() (struct{}, error) {
		callCtx := ctx
		if g.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}
		return struct{}{}, fn(callCtx)
	})

	outcome := "success"
	if err != nil {
		outcome = "failure"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = "rejected"
			err = fmt.Errorf("%w: %s: %v", ErrCircuitOpen, g.name, err)
		}
	}
	metrics.CollaboratorDuration.WithLabelValues(g.name, outcome).Observe(time.Since(start).Seconds())
	return err
}

// State returns the current breaker state.
func (g *Guard) State() gobreaker.State {
	return g.cb.State()
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
