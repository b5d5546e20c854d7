package healing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/crediq/selfheal/internal/driver/drivertest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWaitForAnyFirstConditionWins(t *testing.T) {
	fake := drivertest.New()
	fake.AddElement(".error-banner")
	waiter := NewWaiter(fake, zap.NewNop())

	idx, winner, err := waiter.WaitForAny(context.Background(), []Condition{
		SelectorCondition{Locator: ".score-updated"}, // never appears
		SelectorCondition{Locator: ".error-banner"},  // present now
	}, 100*time.Millisecond)
	require.NoError(t, err)

	assert.Equal(t, 1, idx)
	assert.Equal(t, `selector ".error-banner"`, winner.Describe())
}

func TestWaitForAnyHeterogeneousConditions(t *testing.T) {
	fake := drivertest.New()
	fake.SetURL("https://app.example.com/start")
	waiter := NewWaiter(fake, zap.NewNop())

	// The URL flips to the results page while both waits are in flight.
	time.AfterFunc(10*time.Millisecond, func() {
		fake.SetURL("https://app.example.com/results")
	})

	idx, _, err := waiter.WaitForAny(context.Background(), []Condition{
		SelectorCondition{Locator: "#never"},
		URLCondition{Pattern: `/results$`},
	}, 200*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
}

func TestWaitForAnyTimesOutWhenNothingResolves(t *testing.T) {
	fake := drivertest.New()
	waiter := NewWaiter(fake, zap.NewNop())

	start := time.Now()
	_, _, err := waiter.WaitForAny(context.Background(), []Condition{
		SelectorCondition{Locator: "#a"},
		SelectorCondition{Locator: "#b"},
	}, 40*time.Millisecond)
	require.Error(t, err)

	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Contains(t, te.Condition, `selector "#a"`)
	assert.Contains(t, te.Condition, `selector "#b"`)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestWaitForAnyRejectsEmptyInput(t *testing.T) {
	waiter := NewWaiter(drivertest.New(), zap.NewNop())
	_, _, err := waiter.WaitForAny(context.Background(), nil, 10*time.Millisecond)
	require.Error(t, err)
}
