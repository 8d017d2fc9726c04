package bulk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/semaphore"

	"github.com/mikeblum/graph-bulk-import/conf"
	"github.com/mikeblum/graph-bulk-import/graph"
)

var ErrRetriesExhausted = errors.New("retries exhausted")

// RangeUsage is a snapshot of the governor's bookkeeping for one partition range.
type RangeUsage struct {
	CapacityUnits float64
	InFlight      int64
	Throttles     int64
}

type rangeState struct {
	sem   *semaphore.Weighted
	usage RangeUsage
}

// Governor enforces the retry policy on throttled writes and bounds concurrent requests
// per partition range.
type Governor struct {
	log            *conf.Log
	metrics        *GovernorMetrics
	policy         RetryPolicy
	maxConcurrency int64
	baseWaitTime   time.Duration
	sleep          func(ctx context.Context, d time.Duration) error

	mu     sync.Mutex
	ranges map[string]*rangeState
}

func NewGovernor(ctx context.Context, policy RetryPolicy, maxConcurrency int) (*Governor, error) {
	var err error
	log := conf.NewLog()
	var metrics *GovernorMetrics
	if metrics, err = NewGovernorMetrics(ctx); err != nil {
		log.WithErrorMsg(err, "Error bootstrapping metrics", "type", "governor")
		return nil, err
	}
	if maxConcurrency < 1 {
		maxConcurrency = DEFAULT_MAX_CONCURRENCY_PER_RANGE
	}
	return &Governor{
		log:            log,
		metrics:        metrics,
		policy:         policy.normalize(),
		maxConcurrency: int64(maxConcurrency),
		baseWaitTime:   DEFAULT_RETRY_BASE_WAIT,
		sleep:          sleepContext,
		ranges:         map[string]*rangeState{},
	}, nil
}

func (g *Governor) Policy() RetryPolicy {
	return g.policy
}

func (g *Governor) state(rangeID string) *rangeState {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.ranges[rangeID]
	if !ok {
		st = &rangeState{sem: semaphore.NewWeighted(g.maxConcurrency)}
		g.ranges[rangeID] = st
	}
	return st
}

// Acquire blocks until the range has a free request slot. The returned func releases it.
func (g *Governor) Acquire(ctx context.Context, rangeID string) (func(), error) {
	st := g.state(rangeID)
	if err := st.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	attrs := metric.WithAttributes(attribute.String("range", rangeID))
	g.mu.Lock()
	st.usage.InFlight++
	g.mu.Unlock()
	g.metrics.inflight.Add(ctx, 1, attrs)

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			st.usage.InFlight--
			g.mu.Unlock()
			g.metrics.inflight.Add(context.Background(), -1, attrs)
			st.sem.Release(1)
		})
	}, nil
}

func (g *Governor) Usage(rangeID string) RangeUsage {
	st := g.state(rangeID)
	g.mu.Lock()
	defer g.mu.Unlock()
	return st.usage
}

// WithRetry runs a write, retrying it on throttling until the policy's attempt budget is
// spent. It returns the capacity units of the successful attempt and the attempt count.
func (g *Governor) WithRetry(ctx context.Context, rangeID string, operation func(attempt int) (float64, error), observe func(Outcome)) (float64, int, error) {
	baseAttrs := []attribute.KeyValue{
		attribute.String("range", rangeID),
	}
	var err error
	var units float64
	var attempt int
	for attempt = 1; ; attempt++ {
		if units, err = operation(attempt); err == nil {
			g.record(ctx, rangeID, units, baseAttrs)
			return units, attempt, nil
		}

		throttle, ok := graph.IsThrottle(err)
		if !ok {
			g.metrics.failures.Add(ctx, 1,
				metric.WithAttributes(baseAttrs...),
				metric.WithAttributes(attribute.String("failure_type", string(FailureStoreError))),
			)
			return 0, attempt, err
		}

		g.metrics.throttles.Add(ctx, 1, metric.WithAttributes(baseAttrs...))
		st := g.state(rangeID)
		g.mu.Lock()
		st.usage.Throttles++
		g.mu.Unlock()

		if attempt >= g.policy.MaxAttempts {
			break
		}

		waitTime := g.calculateWaitTime(throttle, attempt)
		g.metrics.waitDuration.Record(ctx, waitTime.Seconds(), metric.WithAttributes(baseAttrs...))
		g.metrics.retryAttempts.Add(ctx, 1, metric.WithAttributes(baseAttrs...))
		g.log.With("action", "retry", "range", rangeID, "wait", waitTime, "attempt", attempt, "max-attempts", g.policy.MaxAttempts, "max-wait", g.policy.MaxRetryWait).Warn(fmt.Sprintf("Store throttled. Waiting %v", waitTime))
		if observe != nil {
			observe(Outcome{Status: StatusRetrying, RangeID: rangeID, Attempt: attempt, Reason: err})
		}
		if sleepErr := g.sleep(ctx, waitTime); sleepErr != nil {
			g.metrics.failures.Add(ctx, 1,
				metric.WithAttributes(baseAttrs...),
				metric.WithAttributes(attribute.String("failure_type", string(FailureCancelled))),
			)
			return 0, attempt, fmt.Errorf("context cancelled while waiting for throttle backoff: %w", sleepErr)
		}
	}

	retryErr := fmt.Errorf("%w: range %s failed after %d attempts: %w", ErrRetriesExhausted, rangeID, attempt, err)
	g.metrics.failures.Add(ctx, 1,
		metric.WithAttributes(baseAttrs...),
		metric.WithAttributes(attribute.String("failure_type", string(FailureMaxAttempts))),
	)
	g.log.WithErrorMsg(retryErr, "Retry Exhausted", "action", "retry", "range", rangeID, "max-attempts", g.policy.MaxAttempts, "max-wait", g.policy.MaxRetryWait)
	return 0, attempt, retryErr
}

func (g *Governor) record(ctx context.Context, rangeID string, units float64, attrs []attribute.KeyValue) {
	st := g.state(rangeID)
	g.mu.Lock()
	st.usage.CapacityUnits += units
	g.mu.Unlock()
	g.metrics.capacityUnits.Add(ctx, units, metric.WithAttributes(attrs...))
}

// calculateWaitTime honours the store's suggested delay up to MaxRetryWait.
func (g *Governor) calculateWaitTime(throttle *graph.ThrottleError, attempt int) time.Duration {
	if throttle != nil && throttle.RetryAfter > 0 {
		return min(throttle.RetryAfter, g.policy.MaxRetryWait)
	}

	// otherwise fall back to exponential backoff
	// 1st retry: base
	// 2nd retry: 2x base
	// 3rd retry: 4x base
	shift := attempt - 1
	if shift > 30 {
		shift = 30
	}
	backoff := g.baseWaitTime * time.Duration(1<<uint(shift))
	if backoff > g.policy.MaxRetryWait || backoff < 0 {
		backoff = g.policy.MaxRetryWait
	}
	return backoff
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	// wait alloted cooldown period
	case <-timer.C:
		return nil
	}
}
