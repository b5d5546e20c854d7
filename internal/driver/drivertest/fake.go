// Package drivertest provides a scripted in-memory Driver for unit tests.
// Tests declare which elements exist, how clicks and fills behave, and the
// fake honors wait budgets against that state.
package drivertest

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/crediq/selfheal/internal/driver"
)

// Fake is a deterministic Driver backed by maps instead of a browser. All
// mutators are safe to call from test goroutines while waits are in flight.
type Fake struct {
	mu         sync.Mutex
	present    map[string]bool
	invisible  map[string]bool
	values     map[string]string
	clickErrs  map[string][]error
	fillErrs   map[string][]error
	writeHook  func(locator, value string) string
	predicate  func(script string, arg any) bool
	navErrs    map[string]error
	currentURL string
	gotoLog    []string
	clickCount map[string]int
}

var _ driver.Driver = (*Fake)(nil)

// New returns an empty fake page.
func New() *Fake {
	return &Fake{
		present:    make(map[string]bool),
		invisible:  make(map[string]bool),
		values:     make(map[string]string),
		clickErrs:  make(map[string][]error),
		fillErrs:   make(map[string][]error),
		navErrs:    make(map[string]error),
		clickCount: make(map[string]int),
	}
}

// AddElement makes locator present and visible.
func (f *Fake) AddElement(locator string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.present[locator] = true
}

// RemoveElement removes locator from the page.
func (f *Fake) RemoveElement(locator string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.present, locator)
}

// AddElementAfter makes locator appear once delay has elapsed.
func (f *Fake) AddElementAfter(locator string, delay time.Duration) {
	time.AfterFunc(delay, func() { f.AddElement(locator) })
}

// SetInvisible keeps locator present but without a rendered box.
func (f *Fake) SetInvisible(locator string, invisible bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invisible[locator] = invisible
}

// FailClicks queues errors returned by successive Click calls on locator.
func (f *Fake) FailClicks(locator string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clickErrs[locator] = append(f.clickErrs[locator], errs...)
}

// FailFills queues errors returned by successive Fill calls on locator.
func (f *Fake) FailFills(locator string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fillErrs[locator] = append(f.fillErrs[locator], errs...)
}

// OnFill overrides the value actually stored by Fill, letting tests
// simulate inputs that mangle or reject writes.
func (f *Fake) OnFill(hook func(locator, value string) string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeHook = hook
}

// SetPredicate decides WaitForFunction outcomes. Without one, every
// predicate is immediately true.
func (f *Fake) SetPredicate(pred func(script string, arg any) bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.predicate = pred
}

// SetNavError makes Goto fail for url.
func (f *Fake) SetNavError(url string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navErrs[url] = err
}

// SetURL sets the current page URL without a navigation.
func (f *Fake) SetURL(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.currentURL = url
}

// Clicks reports how many clicks locator received.
func (f *Fake) Clicks(locator string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clickCount[locator]
}

// GotoLog lists every URL handed to Goto, in order.
func (f *Fake) GotoLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.gotoLog))
	copy(out, f.gotoLog)
	return out
}

// StoredValue reads the value last filled into locator.
func (f *Fake) StoredValue(locator string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[locator]
}

// await polls the scripted state until check passes, the budget elapses
// (driver.ErrWaitTimeout), or ctx ends.
func (f *Fake) await(ctx context.Context, timeout time.Duration, desc string, check func() bool) error {
	if f.locked(check) {
		return nil
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(2 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("%s: %w", desc, driver.ErrWaitTimeout)
		case <-tick.C:
			if f.locked(check) {
				return nil
			}
		}
	}
}

func (f *Fake) locked(check func() bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return check()
}

func (f *Fake) WaitForSelector(ctx context.Context, locator string, timeout time.Duration) error {
	return f.await(ctx, timeout, fmt.Sprintf("wait for selector %q", locator), func() bool {
		return f.present[locator] && !f.invisible[locator]
	})
}

func (f *Fake) Click(ctx context.Context, locator string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clickCount[locator]++
	if errs := f.clickErrs[locator]; len(errs) > 0 {
		f.clickErrs[locator] = errs[1:]
		return errs[0]
	}
	if !f.present[locator] {
		return fmt.Errorf("click %q: element not found", locator)
	}
	return nil
}

func (f *Fake) Fill(ctx context.Context, locator string, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if errs := f.fillErrs[locator]; len(errs) > 0 {
		f.fillErrs[locator] = errs[1:]
		return errs[0]
	}
	if !f.present[locator] {
		return fmt.Errorf("fill %q: element not found", locator)
	}
	stored := value
	if f.writeHook != nil {
		stored = f.writeHook(locator, value)
	}
	f.values[locator] = stored
	return nil
}

func (f *Fake) InputValue(ctx context.Context, locator string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.present[locator] {
		return "", fmt.Errorf("read value of %q: element not found", locator)
	}
	return f.values[locator], nil
}

func (f *Fake) IsVisible(ctx context.Context, locator string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.present[locator] && !f.invisible[locator], nil
}

func (f *Fake) Goto(ctx context.Context, url string, opts driver.GotoOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotoLog = append(f.gotoLog, url)
	if err := f.navErrs[url]; err != nil {
		return err
	}
	f.currentURL = url
	return nil
}

func (f *Fake) WaitForLoadState(ctx context.Context, state driver.LoadState, timeout time.Duration) error {
	return nil
}

func (f *Fake) WaitForFunction(ctx context.Context, script string, arg any, timeout time.Duration) error {
	return f.await(ctx, timeout, "wait for predicate", func() bool {
		if f.predicate == nil {
			return true
		}
		return f.predicate(script, arg)
	})
}

func (f *Fake) WaitForURL(ctx context.Context, pattern string, timeout time.Duration) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid url pattern %q: %w", pattern, err)
	}
	return f.await(ctx, timeout, fmt.Sprintf("wait for url %q", pattern), func() bool {
		return re.MatchString(f.currentURL)
	})
}

func (f *Fake) URL(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.currentURL, nil
}
