package verify

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mateo/contract-intake/internal/types"
)

// RetryPolicy bounds retries and backoff for one verification call.
type RetryPolicy struct {
	MaxRetries     int           // retries after the first attempt
	InitialBackoff time.Duration // doubled per retry
	MaxBackoff     time.Duration
	CallTimeout    time.Duration // per-attempt timeout
}

// DefaultRetryPolicy matches the configured defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     3,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		CallTimeout:    DefaultTimeout,
	}
}

// Orchestrator dispatches the external verification calls concurrently and
// aggregates their settled results. A failing or timed-out service never
// fails the orchestration; it is recorded in the aggregate and the workflow
// coordinator decides the disposition.
type Orchestrator struct {
	checkers []Checker
	policy   RetryPolicy
}

// NewOrchestrator returns an orchestrator over the given checkers.
func NewOrchestrator(policy RetryPolicy, checkers ...Checker) *Orchestrator {
	if policy.CallTimeout <= 0 {
		policy.CallTimeout = DefaultTimeout
	}
	if policy.InitialBackoff <= 0 {
		policy.InitialBackoff = 200 * time.Millisecond
	}
	return &Orchestrator{checkers: checkers, policy: policy}
}

// Verify runs every checker that does not already have a complete result in
// prior. Calls run concurrently; the caller bounds total time through ctx.
// Results recorded as clear or flagged in prior are reused without
// re-triggering the service (dedupe by document id); error and timeout
// results are considered incomplete and re-attempted.
func (o *Orchestrator) Verify(ctx context.Context, documentID string, fp types.IdentityFingerprint, prior *types.VerificationResult) *types.VerificationResult {
	agg := types.NewVerificationResult(documentID)
	if prior != nil {
		for svc, r := range prior.Services {
			if r.Status == types.StatusClear || r.Status == types.StatusFlagged {
				agg.Services[svc] = r
			}
		}
	}

	results := make([]types.ServiceResult, len(o.checkers))
	pending := make([]bool, len(o.checkers))

	g := new(errgroup.Group)
	for i, checker := range o.checkers {
		if _, done := agg.Services[checker.Service()]; done {
			continue
		}
		pending[i] = true
		g.Go(func() error {
			results[i] = o.settle(ctx, checker, fp)
			return nil
		})
	}
	_ = g.Wait()

	for i := range o.checkers {
		if pending[i] {
			agg.Services[results[i].Service] = results[i]
		}
	}
	return agg
}

// settle runs one checker to a settled result, retrying transient failures
// with exponential backoff. It always returns a result, never an error.
func (o *Orchestrator) settle(ctx context.Context, checker Checker, fp types.IdentityFingerprint) types.ServiceResult {
	result := types.ServiceResult{Service: checker.Service()}
	backoff := o.policy.InitialBackoff

	for {
		result.Attempts++
		callCtx, cancel := context.WithTimeout(ctx, o.policy.CallTimeout)
		out, err := checker.Check(callCtx, fp)
		cancel()

		if err == nil {
			result.Status = out.Status
			result.Detail = out.Detail
			result.Score = out.Score
			break
		}

		// The overall deadline ended while this call was in flight: record a
		// timeout with whatever we know and stop. The eventual service
		// response, if any, is discarded.
		if ctx.Err() != nil {
			result.Status = types.StatusTimeout
			result.Detail = "verification deadline exceeded"
			break
		}

		if !transient(err) {
			result.Status = types.StatusError
			result.Detail = err.Error()
			break
		}

		if result.Attempts > o.policy.MaxRetries {
			if errors.Is(err, context.DeadlineExceeded) {
				result.Status = types.StatusTimeout
			} else {
				result.Status = types.StatusError
			}
			result.Detail = err.Error()
			break
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			result.Status = types.StatusTimeout
			result.Detail = "verification deadline exceeded"
			result.CheckedAt = time.Now().UTC()
			return result
		}
		backoff *= 2
		if o.policy.MaxBackoff > 0 && backoff > o.policy.MaxBackoff {
			backoff = o.policy.MaxBackoff
		}
	}

	result.CheckedAt = time.Now().UTC()
	return result
}

// transient reports whether a call error is worth retrying: network faults,
// 5xx responses, and per-call timeouts are; malformed responses and client
// errors are not.
func transient(err error) bool {
	var verr *Error
	if errors.As(err, &verr) {
		return verr.Transient
	}
	return errors.Is(err, context.DeadlineExceeded)
}
