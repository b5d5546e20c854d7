// Package chromedpdrv implements the driver contract on top of chromedp.
package chromedpdrv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/crediq/selfheal/internal/driver"
)

// Options tune the launched browser.
type Options struct {
	Headless bool
	// NavigationTimeout is the default budget for Goto when the caller
	// passes none.
	NavigationTimeout time.Duration
}

// Driver drives a Chrome instance over CDP. The browser context created at
// construction carries the connection; every operation combines it with the
// caller's context so either side can end the work.
type Driver struct {
	browserCtx context.Context
	cancelAll  func()
	navTimeout time.Duration
	log        *zap.Logger
}

var _ driver.Driver = (*Driver)(nil)

// New launches a browser and returns a connected driver. Close releases it.
func New(ctx context.Context, opts Options, log *zap.Logger) (*Driver, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", opts.Headless),
		chromedp.Flag("disable-popup-blocking", true),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Start the browser process eagerly so construction fails fast.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	navTimeout := opts.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = 30 * time.Second
	}

	return &Driver{
		browserCtx: browserCtx,
		cancelAll: func() {
			browserCancel()
			allocCancel()
		},
		navTimeout: navTimeout,
		log:        log.Named("chromedp"),
	}, nil
}

// Close shuts the browser down.
func (d *Driver) Close() {
	d.cancelAll()
}

// run executes chromedp actions under the combined browser and caller
// contexts, translating an elapsed budget into the driver timeout sentinel.
func (d *Driver) run(ctx context.Context, timeout time.Duration, desc string, actions ...chromedp.Action) error {
	opCtx, opCancel := combineContext(d.browserCtx, ctx)
	defer opCancel()

	if timeout > 0 {
		var tCancel context.CancelFunc
		opCtx, tCancel = context.WithTimeout(opCtx, timeout)
		defer tCancel()
	}

	err := chromedp.Run(opCtx, actions...)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, chromedp.ErrPollingTimeout) {
		return fmt.Errorf("%s: %w", desc, driver.ErrWaitTimeout)
	}
	return fmt.Errorf("%s: %w", desc, err)
}

func (d *Driver) WaitForSelector(ctx context.Context, locator string, timeout time.Duration) error {
	return d.run(ctx, timeout, fmt.Sprintf("wait for selector %q", locator),
		chromedp.WaitVisible(locator, chromedp.ByQuery))
}

func (d *Driver) Click(ctx context.Context, locator string) error {
	return d.run(ctx, 0, fmt.Sprintf("click %q", locator),
		chromedp.ScrollIntoView(locator, chromedp.ByQuery),
		chromedp.Click(locator, chromedp.ByQuery))
}

func (d *Driver) Fill(ctx context.Context, locator string, value string) error {
	return d.run(ctx, 0, fmt.Sprintf("fill %q", locator),
		chromedp.ScrollIntoView(locator, chromedp.ByQuery),
		chromedp.Clear(locator, chromedp.ByQuery),
		chromedp.SendKeys(locator, value, chromedp.ByQuery))
}

func (d *Driver) InputValue(ctx context.Context, locator string) (string, error) {
	var value string
	err := d.run(ctx, 0, fmt.Sprintf("read value of %q", locator),
		chromedp.Value(locator, &value, chromedp.ByQuery))
	return value, err
}

func (d *Driver) IsVisible(ctx context.Context, locator string) (bool, error) {
	quoted, err := json.Marshal(locator)
	if err != nil {
		return false, fmt.Errorf("invalid locator %q: %w", locator, err)
	}
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return false;
		const rect = el.getBoundingClientRect();
		return rect.width > 0 && rect.height > 0;
	})()`, quoted)

	var visible bool
	if err := d.run(ctx, 0, fmt.Sprintf("visibility of %q", locator),
		chromedp.Evaluate(script, &visible)); err != nil {
		return false, err
	}
	return visible, nil
}

// Goto navigates and returns once the requested load milestone fires. The
// milestone listener is armed before navigation starts so a fast page
// cannot slip past it.
func (d *Driver) Goto(ctx context.Context, url string, opts driver.GotoOptions) error {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = d.navTimeout
	}
	waitUntil := opts.WaitUntil
	if waitUntil == "" {
		waitUntil = driver.LoadStateDOMContentLoaded
	}

	opCtx, opCancel := combineContext(d.browserCtx, ctx)
	defer opCancel()
	navCtx, navCancel := context.WithTimeout(opCtx, timeout)
	defer navCancel()

	milestone := make(chan struct{}, 1)
	chromedp.ListenTarget(navCtx, func(ev any) {
		reached := false
		switch ev.(type) {
		case *page.EventDomContentEventFired:
			reached = waitUntil == driver.LoadStateDOMContentLoaded
		case *page.EventLoadEventFired:
			reached = waitUntil == driver.LoadStateLoad
		}
		if reached {
			select {
			case milestone <- struct{}{}:
			default:
			}
		}
	})

	// chromedp.Navigate blocks until the load event; racing it against
	// the milestone channel lets domcontentloaded return earlier.
	navErr := make(chan error, 1)
	go func() {
		navErr <- chromedp.Run(navCtx, chromedp.Navigate(url))
	}()

	select {
	case <-milestone:
		return nil
	case err := <-navErr:
		if err == nil {
			return nil
		}
		if navCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("navigation to %q: %w", url, driver.ErrWaitTimeout)
		}
		return fmt.Errorf("navigation to %q failed: %w", url, err)
	case <-navCtx.Done():
		if navCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("navigation to %q: %w", url, driver.ErrWaitTimeout)
		}
		return fmt.Errorf("navigation to %q canceled: %w", url, navCtx.Err())
	}
}

func (d *Driver) WaitForLoadState(ctx context.Context, state driver.LoadState, timeout time.Duration) error {
	expr := `document.readyState === "complete"`
	if state == driver.LoadStateDOMContentLoaded {
		expr = `document.readyState !== "loading"`
	}
	return d.run(ctx, 0, fmt.Sprintf("wait for load state %q", state),
		chromedp.Poll(expr, nil, chromedp.WithPollingTimeout(timeout)))
}

func (d *Driver) WaitForFunction(ctx context.Context, script string, arg any, timeout time.Duration) error {
	return d.run(ctx, 0, "wait for predicate",
		chromedp.PollFunction(script, nil,
			chromedp.WithPollingArgs(arg),
			chromedp.WithPollingTimeout(timeout)))
}

func (d *Driver) WaitForURL(ctx context.Context, pattern string, timeout time.Duration) error {
	return d.run(ctx, 0, fmt.Sprintf("wait for url %q", pattern),
		chromedp.PollFunction(`(p) => new RegExp(p).test(window.location.href)`, nil,
			chromedp.WithPollingArgs(pattern),
			chromedp.WithPollingTimeout(timeout)))
}

func (d *Driver) URL(ctx context.Context) (string, error) {
	var url string
	err := d.run(ctx, 0, "read location", chromedp.Location(&url))
	return url, err
}

// combineContext derives a context from primary (which carries the CDP
// connection values) that is also canceled when secondary ends.
func combineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)
	go func() {
		select {
		case <-secondary.Done():
			cancel()
		case <-combined.Done():
		}
	}()
	return combined, cancel
}
