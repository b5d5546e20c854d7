package healing

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// errRaceWon is the internal sentinel a winning goroutine returns so the
// errgroup cancels the shared context for the losers.
var errRaceWon = errors.New("race won")

type raceResult struct {
	index int
	err   error
}

// WaitForAny races heterogeneous conditions against a single shared
// deadline and returns the index and value of the first one satisfied.
// Losers are abandoned: the shared context is cancelled as soon as a winner
// resolves, and drivers without native cancellation simply run out their
// timeout in the background.
func (w *Waiter) WaitForAny(ctx context.Context, conds []Condition, timeout time.Duration) (int, Condition, error) {
	if len(conds) == 0 {
		return -1, nil, errors.New("no conditions to race")
	}

	start := time.Now()
	raceCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results := make(chan raceResult, len(conds))
	g, gctx := errgroup.WithContext(raceCtx)
	for i, cond := range conds {
		g.Go(func() error {
			err := cond.Await(gctx, w.drv, timeout)
			results <- raceResult{index: i, err: err}
			if err == nil {
				return errRaceWon
			}
			return nil
		})
	}

	// Reap the group in the background so a slow loser cannot delay the
	// winner's return. The results channel is buffered for every racer.
	var reap sync.WaitGroup
	reap.Add(1)
	go func() {
		defer reap.Done()
		_ = g.Wait()
	}()

	var lastErr error
	for pending := len(conds); pending > 0; pending-- {
		res := <-results
		if res.err == nil {
			w.log.Debug("condition race won",
				zap.String("condition", conds[res.index].Describe()),
				zap.Duration("elapsed", time.Since(start)))
			return res.index, conds[res.index], nil
		}
		lastErr = res.err
	}
	reap.Wait()

	return -1, nil, &TimeoutError{
		Condition: "any of [" + describeAll(conds) + "]",
		Elapsed:   time.Since(start),
		Err:       lastErr,
	}
}

func describeAll(conds []Condition) string {
	parts := make([]string, len(conds))
	for i, c := range conds {
		parts[i] = c.Describe()
	}
	return strings.Join(parts, ", ")
}
