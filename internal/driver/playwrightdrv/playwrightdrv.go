// Package playwrightdrv implements the driver contract on top of
// playwright-go, whose page API matches the consumed surface one to one.
package playwrightdrv

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/playwright-community/playwright-go"
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

// Driver drives a Chromium page through Playwright. Playwright operations
// carry their own timeout options and cannot be interrupted mid-wait by
// context cancellation, so the caller's context is checked at operation
// boundaries only.
type Driver struct {
	pw         *playwright.Playwright
	browser    playwright.Browser
	page       playwright.Page
	navTimeout time.Duration
	log        *zap.Logger
}

var _ driver.Driver = (*Driver)(nil)

// New starts Playwright, launches Chromium, and opens one page.
func New(opts Options, log *zap.Logger) (*Driver, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	page, err := browser.NewPage()
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	navTimeout := opts.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = 30 * time.Second
	}

	return &Driver{
		pw:         pw,
		browser:    browser,
		page:       page,
		navTimeout: navTimeout,
		log:        log.Named("playwright"),
	}, nil
}

// Close tears the page, browser, and Playwright process down.
func (d *Driver) Close() {
	if err := d.page.Close(); err != nil {
		d.log.Debug("page close failed", zap.Error(err))
	}
	if err := d.browser.Close(); err != nil {
		d.log.Debug("browser close failed", zap.Error(err))
	}
	if err := d.pw.Stop(); err != nil {
		d.log.Debug("playwright stop failed", zap.Error(err))
	}
}

func millis(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}

// wrap translates Playwright timeout errors into the driver sentinel.
func wrap(desc string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%s: %w", desc, driver.ErrWaitTimeout)
	}
	return fmt.Errorf("%s: %w", desc, err)
}

func (d *Driver) WaitForSelector(ctx context.Context, locator string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := d.page.WaitForSelector(locator, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: millis(timeout),
	})
	return wrap(fmt.Sprintf("wait for selector %q", locator), err)
}

func (d *Driver) Click(ctx context.Context, locator string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return wrap(fmt.Sprintf("click %q", locator), d.page.Click(locator))
}

func (d *Driver) Fill(ctx context.Context, locator string, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return wrap(fmt.Sprintf("fill %q", locator), d.page.Fill(locator, value))
}

func (d *Driver) InputValue(ctx context.Context, locator string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	value, err := d.page.InputValue(locator)
	return value, wrap(fmt.Sprintf("read value of %q", locator), err)
}

func (d *Driver) IsVisible(ctx context.Context, locator string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	visible, err := d.page.IsVisible(locator)
	return visible, wrap(fmt.Sprintf("visibility of %q", locator), err)
}

func (d *Driver) Goto(ctx context.Context, url string, opts driver.GotoOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = d.navTimeout
	}

	waitUntil := playwright.WaitUntilStateDomcontentloaded
	if opts.WaitUntil == driver.LoadStateLoad {
		waitUntil = playwright.WaitUntilStateLoad
	}

	_, err := d.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: waitUntil,
		Timeout:   millis(timeout),
	})
	return wrap(fmt.Sprintf("navigation to %q", url), err)
}

func (d *Driver) WaitForLoadState(ctx context.Context, state driver.LoadState, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	loadState := playwright.LoadStateDomcontentloaded
	if state == driver.LoadStateLoad {
		loadState = playwright.LoadStateLoad
	}
	err := d.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   loadState,
		Timeout: millis(timeout),
	})
	return wrap(fmt.Sprintf("wait for load state %q", state), err)
}

func (d *Driver) WaitForFunction(ctx context.Context, script string, arg any, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := d.page.WaitForFunction(script, arg, playwright.PageWaitForFunctionOptions{
		Timeout: millis(timeout),
	})
	return wrap("wait for predicate", err)
}

func (d *Driver) WaitForURL(ctx context.Context, pattern string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid url pattern %q: %w", pattern, err)
	}
	err = d.page.WaitForURL(re, playwright.PageWaitForURLOptions{
		Timeout: millis(timeout),
	})
	return wrap(fmt.Sprintf("wait for url %q", pattern), err)
}

func (d *Driver) URL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return d.page.URL(), nil
}
