package healing

import (
	"context"
	"fmt"
	"time"

	"github.com/crediq/selfheal/internal/driver"
	"go.uber.org/zap"
)

// Condition is one awaitable end-state. Implementations delegate to the
// driver's native waiting primitive; nothing here polls in a loop of its
// own.
type Condition interface {
	// Describe names the condition for logs and timeout errors.
	Describe() string
	// Await blocks until the condition holds or the timeout elapses.
	Await(ctx context.Context, d driver.Driver, timeout time.Duration) error
}

// SelectorCondition waits for an element matching Locator to be present.
type SelectorCondition struct {
	Locator string
}

func (c SelectorCondition) Describe() string { return fmt.Sprintf("selector %q", c.Locator) }

func (c SelectorCondition) Await(ctx context.Context, d driver.Driver, timeout time.Duration) error {
	return d.WaitForSelector(ctx, c.Locator, timeout)
}

// PredicateCondition waits for a page-side function to evaluate truthy.
// Script is a JS arrow function source receiving Arg.
type PredicateCondition struct {
	Script string
	Arg    any
	// Label is used in place of the script source when describing the
	// condition. Optional.
	Label string
}

func (c PredicateCondition) Describe() string {
	if c.Label != "" {
		return fmt.Sprintf("predicate %q", c.Label)
	}
	return "predicate function"
}

func (c PredicateCondition) Await(ctx context.Context, d driver.Driver, timeout time.Duration) error {
	return d.WaitForFunction(ctx, c.Script, c.Arg, timeout)
}

// URLCondition waits for the page URL to match a regular expression.
type URLCondition struct {
	Pattern string
}

func (c URLCondition) Describe() string { return fmt.Sprintf("url matching %q", c.Pattern) }

func (c URLCondition) Await(ctx context.Context, d driver.Driver, timeout time.Duration) error {
	return d.WaitForURL(ctx, c.Pattern, timeout)
}

// LoadCondition waits for the current navigation to reach a load milestone.
type LoadCondition struct {
	State driver.LoadState
}

func (c LoadCondition) Describe() string { return fmt.Sprintf("load state %q", c.State) }

func (c LoadCondition) Await(ctx context.Context, d driver.Driver, timeout time.Duration) error {
	return d.WaitForLoadState(ctx, c.State, timeout)
}

// Waiter waits for single conditions against one driver. It is the atomic
// primitive the resolver, navigator, and executor are built on.
type Waiter struct {
	drv driver.Driver
	log *zap.Logger
}

// NewWaiter wires a Waiter to a driver.
func NewWaiter(drv driver.Driver, log *zap.Logger) *Waiter {
	return &Waiter{drv: drv, log: log.Named("waiter")}
}

// Wait blocks until cond holds. On an exhausted budget it returns a
// *TimeoutError carrying the condition description and the elapsed time;
// it never reports a degraded success.
func (w *Waiter) Wait(ctx context.Context, cond Condition, timeout time.Duration) error {
	start := time.Now()
	err := cond.Await(ctx, w.drv, timeout)
	if err == nil {
		return nil
	}
	if driver.IsTimeout(err) {
		w.log.Debug("wait timed out",
			zap.String("condition", cond.Describe()),
			zap.Duration("timeout", timeout))
		return &TimeoutError{Condition: cond.Describe(), Elapsed: time.Since(start), Err: err}
	}
	return fmt.Errorf("wait for %s failed: %w", cond.Describe(), err)
}
