// Package driver defines the browser-automation surface the healing engine
// consumes. Adapters (chromedp, playwright) implement Driver; the engine
// never talks to a browser library directly.
package driver

import (
	"context"
	"errors"
	"time"
)

// ErrWaitTimeout is returned (possibly wrapped) by every Driver method whose
// wait budget elapsed before the awaited state was reached. Adapters must
// translate their library's native timeout error into this sentinel so the
// engine can tell "kept waiting, never happened" apart from hard failures.
var ErrWaitTimeout = errors.New("driver: wait timed out")

// LoadState names a navigation milestone a caller can wait on.
type LoadState string

const (
	// LoadStateDOMContentLoaded fires once the document has been parsed.
	LoadStateDOMContentLoaded LoadState = "domcontentloaded"
	// LoadStateLoad fires once all subresources finished loading.
	LoadStateLoad LoadState = "load"
)

// GotoOptions control a single navigation attempt.
type GotoOptions struct {
	// WaitUntil is the milestone that must be reached before Goto returns.
	// Defaults to LoadStateDOMContentLoaded.
	WaitUntil LoadState
	// Timeout bounds the whole attempt, navigation plus milestone wait.
	Timeout time.Duration
}

// Driver is the automation collaborator contract. Every method that can
// block takes a context and an explicit timeout; there are no hidden
// background timers. Implementations that cannot interrupt an in-flight
// wait on context cancellation (playwright) still honor the timeout.
type Driver interface {
	// WaitForSelector blocks until an element matching locator is present
	// and visible, or the timeout elapses (ErrWaitTimeout).
	WaitForSelector(ctx context.Context, locator string, timeout time.Duration) error

	// Click performs a single click on the element matching locator.
	Click(ctx context.Context, locator string) error

	// Fill replaces the current content of the element matching locator
	// with value.
	Fill(ctx context.Context, locator string, value string) error

	// InputValue reads back the current value of the element.
	InputValue(ctx context.Context, locator string) (string, error)

	// IsVisible reports whether the element currently has a rendered box.
	// It does not wait; absence is reported as (false, nil).
	IsVisible(ctx context.Context, locator string) (bool, error)

	// Goto navigates to url and waits for the configured load milestone.
	Goto(ctx context.Context, url string, opts GotoOptions) error

	// WaitForLoadState blocks until the current page reaches state.
	WaitForLoadState(ctx context.Context, state LoadState, timeout time.Duration) error

	// WaitForFunction blocks until the page-side function source (a JS
	// arrow function receiving arg) evaluates truthy.
	WaitForFunction(ctx context.Context, script string, arg any, timeout time.Duration) error

	// WaitForURL blocks until the page URL matches the regular expression
	// pattern.
	WaitForURL(ctx context.Context, pattern string, timeout time.Duration) error

	// URL returns the current page URL.
	URL(ctx context.Context) (string, error)
}

// IsTimeout reports whether err represents an exhausted wait budget, either
// the adapter sentinel or a plain context deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrWaitTimeout) || errors.Is(err, context.DeadlineExceeded)
}
