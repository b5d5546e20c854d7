package healing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Resolver turns a CandidateList into one concrete matched locator, healing
// through fallbacks when the primary no longer matches. Every outcome is
// recorded on the injected tracker.
type Resolver struct {
	waiter  *Waiter
	tracker *Tracker
	log     *zap.Logger
}

// NewResolver wires a Resolver to a waiter and the session tracker.
func NewResolver(waiter *Waiter, tracker *Tracker, log *zap.Logger) *Resolver {
	return &Resolver{waiter: waiter, tracker: tracker, log: log.Named("resolver")}
}

// Resolve tries the candidates in order: the primary with primaryTimeout,
// each fallback with fallbackTimeout (fallbacks are a safety net, not the
// expected path, so they get the shorter budget). The first match wins.
//
// Bookkeeping contract: totalAttempts is incremented exactly once per call;
// a fallback match increments successfulHeals and updates workingFallbacks;
// exhaustion appends to failedSelectors. The returned error on exhaustion
// is a *ResolutionFailure carrying the full attempted list and the last
// underlying error.
func (r *Resolver) Resolve(ctx context.Context, candidates CandidateList, primaryTimeout, fallbackTimeout time.Duration) (ResolutionOutcome, error) {
	if len(candidates) == 0 {
		return ResolutionOutcome{}, errors.New("candidate list is empty")
	}

	r.tracker.RecordAttempt(candidates.Primary())

	var lastErr error
	for i, locator := range candidates {
		timeout := primaryTimeout
		if i > 0 {
			timeout = fallbackTimeout
		}

		err := r.waiter.Wait(ctx, SelectorCondition{Locator: locator}, timeout)
		if err == nil {
			outcome := ResolutionOutcome{
				MatchedLocator: locator,
				CandidateIndex: i,
				Healed:         i > 0,
			}
			if outcome.Healed {
				r.tracker.RecordHeal(candidates.Primary(), locator, i)
				r.log.Info("healed selector via fallback",
					zap.String("primary", candidates.Primary()),
					zap.String("matched", locator),
					zap.Int("candidate_index", i))
			}
			return outcome, nil
		}

		lastErr = err
		r.log.Debug("candidate did not match",
			zap.String("locator", locator),
			zap.Int("candidate_index", i),
			zap.Error(err))

		if ctx.Err() != nil {
			lastErr = fmt.Errorf("resolution aborted: %w", ctx.Err())
			break
		}
	}

	failure := &ResolutionFailure{
		Attempted: candidates,
		LastErr:   lastErr,
		Timestamp: time.Now(),
	}
	r.tracker.RecordFailure(failure)
	return ResolutionOutcome{}, failure
}
