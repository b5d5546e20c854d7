package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "chromedp", cfg.Driver.Kind)
	assert.Equal(t, 3, cfg.Healing.MaxRetries)
	assert.Equal(t, 10*time.Second, cfg.Healing.PrimaryTimeout)
	assert.Less(t, cfg.Healing.FallbackTimeout, cfg.Healing.PrimaryTimeout,
		"fallbacks are a safety net and get the shorter budget")
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	cfg := Default()
	cfg.Driver.Kind = "selenium"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "selenium")
}

func TestValidateRejectsBadRetryBounds(t *testing.T) {
	cfg := Default()
	cfg.Healing.MaxRetries = 0
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Healing.PrimaryTimeout = 0
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Healing.RetryDelay = -time.Second
	require.Error(t, cfg.Validate())
}

func TestResolvedExportPath(t *testing.T) {
	cfg := Default()
	cfg.Learning.ExportPath = "/tmp/custom/learning.json"
	path, err := cfg.ResolvedExportPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom/learning.json", path)

	cfg.Learning.ExportPath = ""
	path, err = cfg.ResolvedExportPath()
	require.NoError(t, err)
	assert.Contains(t, path, ".selfheal")
}
