package healing

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinels for the two interaction failure modes that callers branch on.
var (
	// ErrElementDisappeared marks an element that went invisible between
	// interaction attempts. Fatal: remaining retries are not consumed.
	ErrElementDisappeared = errors.New("element disappeared during interaction")
	// ErrValueMismatch marks a fill whose read-back never matched the
	// requested value within the retry budget.
	ErrValueMismatch = errors.New("filled value did not match after verification")
)

// TimeoutError reports that a single wait exceeded its budget. It is the
// recoverable failure of the taxonomy: the caller may move on to the next
// candidate or URL.
type TimeoutError struct {
	Condition string
	Elapsed   time.Duration
	Err       error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for %s", e.Elapsed.Round(time.Millisecond), e.Condition)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// ResolutionFailure reports that every candidate in a CandidateList was
// exhausted. It is created exactly once per failed Resolve call and is
// always mirrored into the tracker's failedSelectors list.
type ResolutionFailure struct {
	Attempted CandidateList
	LastErr   error
	Timestamp time.Time
}

func (e *ResolutionFailure) Error() string {
	return fmt.Sprintf("all %d candidates exhausted for %q (last error: %v)",
		len(e.Attempted), e.Attempted.Primary(), e.LastErr)
}

func (e *ResolutionFailure) Unwrap() error { return e.LastErr }

// NavigationFailure reports that every URL in a navigation list failed.
type NavigationFailure struct {
	Attempted []string
	LastErr   error
}

func (e *NavigationFailure) Error() string {
	return fmt.Sprintf("all %d navigation targets failed [%s] (last error: %v)",
		len(e.Attempted), strings.Join(e.Attempted, ", "), e.LastErr)
}

func (e *NavigationFailure) Unwrap() error { return e.LastErr }

// InteractionFailure reports a click or fill that could not be completed
// after resolution succeeded. Err carries ErrElementDisappeared,
// ErrValueMismatch, or the last underlying driver error, so callers can use
// errors.Is to branch on the failure mode.
type InteractionFailure struct {
	Action   string // "click" or "fill"
	Locator  string
	Attempts int
	Expected string // fill only
	Actual   string // fill only
	Err      error
}

func (e *InteractionFailure) Error() string {
	if errors.Is(e.Err, ErrValueMismatch) {
		return fmt.Sprintf("%s on %q failed after %d attempts: expected %q, got %q",
			e.Action, e.Locator, e.Attempts, e.Expected, e.Actual)
	}
	return fmt.Sprintf("%s on %q failed after %d attempts: %v", e.Action, e.Locator, e.Attempts, e.Err)
}

func (e *InteractionFailure) Unwrap() error { return e.Err }
