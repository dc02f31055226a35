package video

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfman30/telehealth-scheduling/internal/observability/metrics"
	"github.com/wolfman30/telehealth-scheduling/pkg/logging"
)

// Retrying bounds CreateSession with a per-attempt timeout and a fixed number
// of attempts. Token issuance is passed straight through.
type Retrying struct {
	next           Provisioner
	logger         *logging.Logger
	metrics        *metrics.BookingMetrics
	maxAttempts    int
	attemptTimeout time.Duration
	backoff        time.Duration
}

func NewRetrying(next Provisioner, m *metrics.BookingMetrics, logger *logging.Logger) *Retrying {
	if next == nil {
		panic("video: provisioner required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Retrying{
		next:           next,
		logger:         logger,
		metrics:        m,
		maxAttempts:    3,
		attemptTimeout: 5 * time.Second,
		backoff:        200 * time.Millisecond,
	}
}

func (r *Retrying) WithMaxAttempts(n int) *Retrying {
	if n > 0 {
		r.maxAttempts = n
	}
	return r
}

func (r *Retrying) WithAttemptTimeout(d time.Duration) *Retrying {
	if d > 0 {
		r.attemptTimeout = d
	}
	return r
}

// WithBackoff sets the base delay; attempt n waits n*d before retrying.
func (r *Retrying) WithBackoff(d time.Duration) *Retrying {
	if d >= 0 {
		r.backoff = d
	}
	return r
}

func (r *Retrying) CreateSession(ctx context.Context) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, r.attemptTimeout)
		sessionID, err := r.next.CreateSession(attemptCtx)
		cancel()
		r.metrics.ObserveSessionAttempt(err == nil)
		if err == nil {
			return sessionID, nil
		}
		lastErr = err
		r.logger.Warn("video session attempt failed", "attempt", attempt, "max_attempts", r.maxAttempts, "error", err)

		if ctx.Err() != nil || attempt == r.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
		case <-time.After(time.Duration(attempt) * r.backoff):
		}
	}
	if ctx.Err() != nil {
		return "", fmt.Errorf("%w: %w", ErrSessionProvisioning, ctx.Err())
	}
	return "", fmt.Errorf("%w after %d attempts: %w", ErrSessionProvisioning, r.maxAttempts, lastErr)
}

func (r *Retrying) IssueToken(ctx context.Context, sessionID string, req TokenRequest) (string, error) {
	return r.next.IssueToken(ctx, sessionID, req)
}
