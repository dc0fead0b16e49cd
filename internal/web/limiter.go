package web

// limiter.go restricts how many conversions run at once. When every slot
// is held, new requests wait up to maxWait before failing with ErrBusy.
// WaitForDrain blocks until in-flight conversions finish, for shutdown.

import (
	"context"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/plusplusco/rows/internal/metric"
)

// DefaultMaxConcurrent is the default limit for parallel conversions.
const DefaultMaxConcurrent = 5

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// Limiter controls concurrent conversions with a weighted semaphore.
type Limiter struct {
	sem     *semaphore.Weighted
	size    int64
	maxWait time.Duration
	active  atomic.Int64
	metrics *metric.Metrics
}

// NewLimiter creates a limiter that allows at most maxConcurrent
// conversions. m may be nil.
func NewLimiter(maxConcurrent int, maxWait time.Duration, m *metric.Metrics) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &Limiter{
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		size:    int64(maxConcurrent),
		maxWait: maxWait,
		metrics: m,
	}
}

// Acquire waits for a slot. It returns ErrBusy when maxWait expires and
// ctx's error when ctx ends first. The caller must Release on success.
func (l *Limiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrBusy
	}
	l.acquired()
	return nil
}

// TryAcquire takes a slot without blocking.
func (l *Limiter) TryAcquire() bool {
	if !l.sem.TryAcquire(1) {
		return false
	}
	l.acquired()
	return true
}

func (l *Limiter) acquired() {
	l.active.Add(1)
	l.metrics.SlotAcquired()
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *Limiter) Release() {
	l.active.Add(-1)
	l.metrics.SlotReleased()
	l.sem.Release(1)
}

// Active returns the number of slots in use.
func (l *Limiter) Active() int { return int(l.active.Load()) }

// MaxConcurrent returns the number of slots.
func (l *Limiter) MaxConcurrent() int { return int(l.size) }

// WaitForDrain blocks until every slot is free or ctx ends. New requests
// queue behind it while it waits.
func (l *Limiter) WaitForDrain(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, l.size); err != nil {
		return err
	}
	l.sem.Release(l.size)
	return nil
}

// Middleware holds a slot for the duration of each request.
func (l *Limiter) Middleware(s *Server) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := l.Acquire(r.Context()); err != nil {
				if err == ErrBusy {
					w.Header().Set("Retry-After", strconv.Itoa(int(l.maxWait.Seconds())))
				}
				s.respondError(w, r, err, statusFor(err))
				return
			}
			defer l.Release()
			next.ServeHTTP(w, r)
		})
	}
}
