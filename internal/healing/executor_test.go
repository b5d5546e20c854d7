package healing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crediq/selfheal/internal/driver/drivertest"
)

func newExecutorHarness(t *testing.T) (*drivertest.Fake, *Tracker, *Executor) {
	t.Helper()
	fake := drivertest.New()
	tracker := NewTracker(zap.NewNop())
	waiter := NewWaiter(fake, zap.NewNop())
	resolver := NewResolver(waiter, tracker, zap.NewNop())
	exec := NewExecutor(fake, waiter, resolver, ExecutorConfig{
		PrimaryTimeout:    testPrimaryTimeout,
		FallbackTimeout:   testFallbackTimeout,
		ActionableTimeout: 30 * time.Millisecond,
		MaxRetries:        3,
		RetryDelay:        5 * time.Millisecond,
	}, zap.NewNop())
	return fake, tracker, exec
}

func TestClickHappyPath(t *testing.T) {
	fake, _, exec := newExecutorHarness(t)
	fake.AddElement("#submit")

	locator, err := exec.Click(context.Background(), CandidateList{"#submit"})
	require.NoError(t, err)
	assert.Equal(t, "#submit", locator)
	assert.Equal(t, 1, fake.Clicks("#submit"))
}

func TestClickRetriesTransientFailure(t *testing.T) {
	fake, _, exec := newExecutorHarness(t)
	fake.AddElement("#submit")
	fake.FailClicks("#submit", errors.New("node detached"))

	locator, err := exec.Click(context.Background(), CandidateList{"#submit"})
	require.NoError(t, err)
	assert.Equal(t, "#submit", locator)
	assert.Equal(t, 2, fake.Clicks("#submit"))
}

func TestClickExhaustsRetryBudget(t *testing.T) {
	fake, _, exec := newExecutorHarness(t)
	fake.AddElement("#submit")
	boom := errors.New("click intercepted")
	fake.FailClicks("#submit", boom, boom, boom)

	_, err := exec.Click(context.Background(), CandidateList{"#submit"})
	require.Error(t, err)

	var ifErr *InteractionFailure
	require.ErrorAs(t, err, &ifErr)
	assert.Equal(t, "click", ifErr.Action)
	assert.Equal(t, 3, ifErr.Attempts)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, fake.Clicks("#submit"))
}

func TestClickAbortsWhenElementDisappears(t *testing.T) {
	fake := drivertest.New()
	tracker := NewTracker(zap.NewNop())
	waiter := NewWaiter(fake, zap.NewNop())
	resolver := NewResolver(waiter, tracker, zap.NewNop())
	exec := NewExecutor(fake, waiter, resolver, ExecutorConfig{
		PrimaryTimeout:    testPrimaryTimeout,
		FallbackTimeout:   testFallbackTimeout,
		ActionableTimeout: 30 * time.Millisecond,
		MaxRetries:        3,
		RetryDelay:        30 * time.Millisecond,
	}, zap.NewNop())

	fake.AddElement("#submit")
	// The first click fails; the element vanishes while the executor sits
	// out the retry delay. The remaining budget must not be spent.
	fake.FailClicks("#submit",
		errors.New("click intercepted"),
		errors.New("never reached"),
		errors.New("never reached"))
	time.AfterFunc(10*time.Millisecond, func() { fake.SetInvisible("#submit", true) })

	_, err := exec.Click(context.Background(), CandidateList{"#submit"})
	require.Error(t, err)

	var ifErr *InteractionFailure
	require.ErrorAs(t, err, &ifErr)
	assert.ErrorIs(t, err, ErrElementDisappeared)
	assert.Equal(t, 1, fake.Clicks("#submit"), "retry budget must not be consumed after disappearance")
}

func TestFillVerifiesReadBack(t *testing.T) {
	fake, _, exec := newExecutorHarness(t)
	fake.AddElement("#score")

	locator, err := exec.Fill(context.Background(), CandidateList{"#score"}, "750")
	require.NoError(t, err)
	assert.Equal(t, "#score", locator)
	assert.Equal(t, "750", fake.StoredValue("#score"))
}

func TestFillValueMismatchRetriesThenFails(t *testing.T) {
	fake, _, exec := newExecutorHarness(t)
	fake.AddElement("#score")
	// The input mangles every write: 750 always reads back as 751.
	fills := 0
	fake.OnFill(func(locator, value string) string {
		fills++
		return "751"
	})

	_, err := exec.Fill(context.Background(), CandidateList{"#score"}, "750")
	require.Error(t, err)

	var ifErr *InteractionFailure
	require.ErrorAs(t, err, &ifErr)
	assert.ErrorIs(t, err, ErrValueMismatch)
	assert.Equal(t, "750", ifErr.Expected)
	assert.Equal(t, "751", ifErr.Actual)
	assert.Equal(t, 3, fills, "each retry must rewrite and reverify")
	assert.Contains(t, err.Error(), "750")
	assert.Contains(t, err.Error(), "751")
}

func TestFillRecoversWhenWriteSticksOnRetry(t *testing.T) {
	fake, _, exec := newExecutorHarness(t)
	fake.AddElement("#score")
	fills := 0
	fake.OnFill(func(locator, value string) string {
		fills++
		if fills == 1 {
			return "" // first write is swallowed
		}
		return value
	})

	_, err := exec.Fill(context.Background(), CandidateList{"#score"}, "750")
	require.NoError(t, err)
	assert.Equal(t, 2, fills)
}

func TestFillPropagatesResolutionFailure(t *testing.T) {
	_, tracker, exec := newExecutorHarness(t)

	_, err := exec.Fill(context.Background(), CandidateList{"#absent", ".also-absent"}, "750")
	require.Error(t, err)

	var rf *ResolutionFailure
	require.ErrorAs(t, err, &rf)
	assert.Len(t, rf.Attempted, 2)
	assert.Equal(t, 1, tracker.Stats().TotalAttempts)
}
