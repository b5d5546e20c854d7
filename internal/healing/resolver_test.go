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

const (
	testPrimaryTimeout  = 40 * time.Millisecond
	testFallbackTimeout = 25 * time.Millisecond
)

func newResolverHarness(t *testing.T) (*drivertest.Fake, *Tracker, *Resolver) {
	t.Helper()
	fake := drivertest.New()
	tracker := NewTracker(zap.NewNop())
	waiter := NewWaiter(fake, zap.NewNop())
	return fake, tracker, NewResolver(waiter, tracker, zap.NewNop())
}

func TestResolvePrimaryMatch(t *testing.T) {
	fake, tracker, resolver := newResolverHarness(t)
	fake.AddElement("#score")

	out, err := resolver.Resolve(context.Background(),
		CandidateList{"#score", ".credit-score-value"},
		testPrimaryTimeout, testFallbackTimeout)
	require.NoError(t, err)

	assert.Equal(t, "#score", out.MatchedLocator)
	assert.Equal(t, 0, out.CandidateIndex)
	assert.False(t, out.Healed)

	stats := tracker.Stats()
	assert.Equal(t, 1, stats.TotalAttempts)
	assert.Equal(t, 0, stats.SuccessfulHeals)
}

func TestResolveHealsViaFallback(t *testing.T) {
	fake, tracker, resolver := newResolverHarness(t)
	// Primary "#score" is gone from the page; only the fallback exists.
	fake.AddElement(".credit-score-value")

	out, err := resolver.Resolve(context.Background(),
		CandidateList{"#score", ".credit-score-value"},
		testPrimaryTimeout, testFallbackTimeout)
	require.NoError(t, err)

	assert.Equal(t, ".credit-score-value", out.MatchedLocator)
	assert.Equal(t, 1, out.CandidateIndex)
	assert.True(t, out.Healed)

	stats := tracker.Stats()
	assert.Equal(t, 1, stats.TotalAttempts)
	assert.Equal(t, 1, stats.SuccessfulHeals)
	assert.Equal(t, ".credit-score-value", tracker.Snapshot().WorkingFallbacks["#score"])
}

func TestResolveDeepFallbackIndex(t *testing.T) {
	fake, tracker, resolver := newResolverHarness(t)
	fake.AddElement("[data-test=z]")

	out, err := resolver.Resolve(context.Background(),
		CandidateList{"#x", ".y", "[data-test=z]"},
		testPrimaryTimeout, testFallbackTimeout)
	require.NoError(t, err)

	assert.Equal(t, 2, out.CandidateIndex)
	assert.True(t, out.Healed)
	assert.Equal(t, 1, tracker.Stats().SuccessfulHeals)
}

func TestResolveExhaustion(t *testing.T) {
	_, tracker, resolver := newResolverHarness(t)
	start := time.Now()

	_, err := resolver.Resolve(context.Background(),
		CandidateList{"#x", ".y", "[data-test=z]"},
		testPrimaryTimeout, testFallbackTimeout)
	require.Error(t, err)

	var rf *ResolutionFailure
	require.ErrorAs(t, err, &rf)
	assert.Len(t, rf.Attempted, 3)
	assert.Equal(t, "#x", rf.Attempted.Primary())
	require.NotNil(t, rf.LastErr)

	snap := tracker.Snapshot()
	require.Len(t, snap.FailedSelectors, 1)
	rec := snap.FailedSelectors[0]
	assert.Equal(t, "#x", rec.Primary)
	assert.Equal(t, []string{".y", "[data-test=z]"}, rec.Fallbacks)
	assert.False(t, rec.Timestamp.Before(start))

	stats := tracker.Stats()
	assert.Equal(t, 1, stats.TotalAttempts)
	assert.Equal(t, 0, stats.SuccessfulHeals)
}

func TestResolveCountsOneAttemptPerCall(t *testing.T) {
	fake, tracker, resolver := newResolverHarness(t)
	fake.AddElement("#present")

	// A mix of outcomes; each call counts exactly once.
	_, err := resolver.Resolve(context.Background(), CandidateList{"#present"}, testPrimaryTimeout, testFallbackTimeout)
	require.NoError(t, err)
	_, err = resolver.Resolve(context.Background(), CandidateList{"#absent"}, testPrimaryTimeout, testFallbackTimeout)
	require.Error(t, err)
	_, err = resolver.Resolve(context.Background(), CandidateList{"#absent", "#present"}, testPrimaryTimeout, testFallbackTimeout)
	require.NoError(t, err)

	assert.Equal(t, 3, tracker.Stats().TotalAttempts)
}

func TestResolveEmptyCandidateList(t *testing.T) {
	_, tracker, resolver := newResolverHarness(t)

	_, err := resolver.Resolve(context.Background(), nil, testPrimaryTimeout, testFallbackTimeout)
	require.Error(t, err)

	var rf *ResolutionFailure
	assert.False(t, errors.As(err, &rf), "empty input is a usage error, not a resolution failure")
	assert.Equal(t, 0, tracker.Stats().TotalAttempts)
}

func TestResolveLateAppearanceWithinBudget(t *testing.T) {
	fake, _, resolver := newResolverHarness(t)
	fake.AddElementAfter("#slow", 10*time.Millisecond)

	out, err := resolver.Resolve(context.Background(), CandidateList{"#slow"}, testPrimaryTimeout, testFallbackTimeout)
	require.NoError(t, err)
	assert.False(t, out.Healed)
}
