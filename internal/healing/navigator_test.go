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

func TestGotoFirstURLSucceeds(t *testing.T) {
	fake := drivertest.New()
	nav := NewNavigator(fake, zap.NewNop())

	url, err := nav.Goto(context.Background(),
		[]string{"https://a.example.com", "https://b.example.com"},
		GotoOptions{Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	assert.Equal(t, "https://a.example.com", url)
	assert.Equal(t, []string{"https://a.example.com"}, fake.GotoLog(),
		"later URLs must not be touched once one succeeds")
}

func TestGotoFallsThroughToNextURL(t *testing.T) {
	fake := drivertest.New()
	fake.SetNavError("https://a.example.com", errors.New("connection refused"))
	nav := NewNavigator(fake, zap.NewNop())

	url, err := nav.Goto(context.Background(),
		[]string{"https://a.example.com", "https://b.example.com"},
		GotoOptions{Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	assert.Equal(t, "https://b.example.com", url)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, fake.GotoLog())
}

func TestGotoExhaustionTriesEachURLExactlyOnce(t *testing.T) {
	fake := drivertest.New()
	urls := []string{"https://a.example.com", "https://b.example.com", "https://c.example.com"}
	lastErr := errors.New("DNS failure")
	fake.SetNavError(urls[0], errors.New("connection refused"))
	fake.SetNavError(urls[1], errors.New("502"))
	fake.SetNavError(urls[2], lastErr)
	nav := NewNavigator(fake, zap.NewNop())

	_, err := nav.Goto(context.Background(), urls, GotoOptions{Timeout: 50 * time.Millisecond})
	require.Error(t, err)

	var nf *NavigationFailure
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, urls, nf.Attempted)
	assert.ErrorIs(t, nf.LastErr, lastErr)
	assert.Equal(t, urls, fake.GotoLog(), "each URL is tried exactly once per call")
}

func TestGotoEmptyList(t *testing.T) {
	nav := NewNavigator(drivertest.New(), zap.NewNop())
	_, err := nav.Goto(context.Background(), nil, GotoOptions{})

	var nf *NavigationFailure
	require.ErrorAs(t, err, &nf)
	assert.Empty(t, nf.Attempted)
}
