package healing

import (
	"context"
	"time"

	"github.com/crediq/selfheal/internal/driver"
	"go.uber.org/zap"
)

// GotoOptions tune one Navigator.Goto call.
type GotoOptions struct {
	// WaitUntil is the load milestone each attempt waits for before the
	// URL counts as reached. Defaults to DOM content loaded.
	WaitUntil driver.LoadState
	// Timeout bounds each individual URL attempt.
	Timeout time.Duration
}

// Navigator reaches the first responsive URL from an ordered target list.
type Navigator struct {
	drv driver.Driver
	log *zap.Logger
}

// NewNavigator wires a Navigator to a driver.
func NewNavigator(drv driver.Driver, log *zap.Logger) *Navigator {
	return &Navigator{drv: drv, log: log.Named("navigator")}
}

// Goto tries each URL exactly once, in order, and returns the first one
// that loads to the configured milestone. A failed URL never aborts the
// list; only exhaustion returns an error, a *NavigationFailure carrying the
// attempted URLs and the last underlying error.
func (n *Navigator) Goto(ctx context.Context, urls []string, opts GotoOptions) (string, error) {
	if len(urls) == 0 {
		return "", &NavigationFailure{}
	}
	if opts.WaitUntil == "" {
		opts.WaitUntil = driver.LoadStateDOMContentLoaded
	}

	var lastErr error
	for i, url := range urls {
		err := n.drv.Goto(ctx, url, driver.GotoOptions{
			WaitUntil: opts.WaitUntil,
			Timeout:   opts.Timeout,
		})
		if err == nil {
			if i > 0 {
				n.log.Info("navigated via fallback URL",
					zap.String("url", url),
					zap.Int("url_index", i))
			}
			return url, nil
		}

		lastErr = err
		n.log.Debug("navigation attempt failed",
			zap.String("url", url),
			zap.Int("url_index", i),
			zap.Error(err))

		if ctx.Err() != nil {
			break
		}
	}

	return "", &NavigationFailure{Attempted: urls, LastErr: lastErr}
}
