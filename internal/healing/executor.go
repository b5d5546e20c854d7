package healing

import (
	"context"
	"time"

	"github.com/crediq/selfheal/internal/driver"
	"go.uber.org/zap"
)

// actionableScript is the page-side readiness check run before a click: the
// element must exist, be enabled, and occupy layout space.
const actionableScript = `(sel) => {
	const el = document.querySelector(sel);
	if (!el) return false;
	if (el.disabled) return false;
	const rect = el.getBoundingClientRect();
	return rect.width > 0 && rect.height > 0;
}`

// ExecutorConfig bounds the retry behavior of interactions. Retries use a
// fixed inter-attempt delay, never exponential backoff, so worst-case
// wall-clock time stays predictable.
type ExecutorConfig struct {
	PrimaryTimeout    time.Duration
	FallbackTimeout   time.Duration
	ActionableTimeout time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
}

func (c ExecutorConfig) withDefaults() ExecutorConfig {
	if c.PrimaryTimeout <= 0 {
		c.PrimaryTimeout = 10 * time.Second
	}
	if c.FallbackTimeout <= 0 {
		c.FallbackTimeout = 3 * time.Second
	}
	if c.ActionableTimeout <= 0 {
		c.ActionableTimeout = 5 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 500 * time.Millisecond
	}
	return c
}

// Executor performs verified interactions on resolved elements. Transient
// failures are retried up to the configured bound; structural failures
// (candidates exhausted, element gone, value permanently mismatched) are
// surfaced immediately and never downgraded.
type Executor struct {
	drv      driver.Driver
	waiter   *Waiter
	resolver *Resolver
	cfg      ExecutorConfig
	log      *zap.Logger
}

// NewExecutor wires an Executor. Zero config fields fall back to defaults.
func NewExecutor(drv driver.Driver, waiter *Waiter, resolver *Resolver, cfg ExecutorConfig, log *zap.Logger) *Executor {
	return &Executor{
		drv:      drv,
		waiter:   waiter,
		resolver: resolver,
		cfg:      cfg.withDefaults(),
		log:      log.Named("executor"),
	}
}

// Resolver exposes the underlying resolver for callers that only need
// resolution without an action.
func (e *Executor) Resolver() *Resolver { return e.resolver }

// Click resolves a locator from candidates and clicks it, retrying
// transient failures. If the element goes invisible between attempts the
// call aborts at once with ErrElementDisappeared: retrying a vanished
// element cannot succeed and would only burn the retry budget.
func (e *Executor) Click(ctx context.Context, candidates CandidateList) (string, error) {
	outcome, err := e.resolver.Resolve(ctx, candidates, e.cfg.PrimaryTimeout, e.cfg.FallbackTimeout)
	if err != nil {
		return "", err
	}
	locator := outcome.MatchedLocator

	if err := e.waiter.Wait(ctx, PredicateCondition{
		Script: actionableScript,
		Arg:    locator,
		Label:  "element actionable: " + locator,
	}, e.cfg.ActionableTimeout); err != nil {
		// The click attempts below surface the real failure if the
		// element truly is not interactable.
		e.log.Warn("element not actionable within budget, attempting anyway",
			zap.String("locator", locator), zap.Error(err))
	}

	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			if err := sleepCtx(ctx, e.cfg.RetryDelay); err != nil {
				return "", err
			}
			visible, verr := e.drv.IsVisible(ctx, locator)
			if verr == nil && !visible {
				return "", &InteractionFailure{
					Action:   "click",
					Locator:  locator,
					Attempts: attempt - 1,
					Err:      ErrElementDisappeared,
				}
			}
		}

		if err := e.drv.Click(ctx, locator); err != nil {
			lastErr = err
			e.log.Debug("click attempt failed",
				zap.String("locator", locator),
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}
		return locator, nil
	}

	return "", &InteractionFailure{
		Action:   "click",
		Locator:  locator,
		Attempts: e.cfg.MaxRetries,
		Err:      lastErr,
	}
}

// Fill resolves a locator, writes value, then reads the value back and
// compares. The read-back is what makes Fill trustworthy: without it a
// rejected or swallowed write would be reported as success. Mismatches are
// retried up to the bound, then reported with both expected and actual.
func (e *Executor) Fill(ctx context.Context, candidates CandidateList, value string) (string, error) {
	outcome, err := e.resolver.Resolve(ctx, candidates, e.cfg.PrimaryTimeout, e.cfg.FallbackTimeout)
	if err != nil {
		return "", err
	}
	locator := outcome.MatchedLocator

	var lastActual string
	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			if err := sleepCtx(ctx, e.cfg.RetryDelay); err != nil {
				return "", err
			}
			visible, verr := e.drv.IsVisible(ctx, locator)
			if verr == nil && !visible {
				return "", &InteractionFailure{
					Action:   "fill",
					Locator:  locator,
					Attempts: attempt - 1,
					Expected: value,
					Err:      ErrElementDisappeared,
				}
			}
		}

		if err := e.drv.Fill(ctx, locator, value); err != nil {
			lastErr = err
			e.log.Debug("fill attempt failed",
				zap.String("locator", locator),
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}

		actual, err := e.drv.InputValue(ctx, locator)
		if err != nil {
			lastErr = err
			continue
		}
		if actual == value {
			return locator, nil
		}

		lastActual = actual
		lastErr = ErrValueMismatch
		e.log.Debug("fill verification mismatch",
			zap.String("locator", locator),
			zap.Int("attempt", attempt),
			zap.String("expected", value),
			zap.String("actual", actual))
	}

	return "", &InteractionFailure{
		Action:   "fill",
		Locator:  locator,
		Attempts: e.cfg.MaxRetries,
		Expected: value,
		Actual:   lastActual,
		Err:      lastErr,
	}
}

// sleepCtx pauses for d unless ctx ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
