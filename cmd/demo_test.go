package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crediq/selfheal/internal/fields"
)

func TestDemoRegistryCatalog(t *testing.T) {
	reg, err := demoRegistry(zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, []string{"refresh-button", "report-id-input", "score-input"}, reg.Names())

	candidates, err := reg.Candidates("score-input")
	require.NoError(t, err)
	assert.Equal(t, "#score", candidates.Primary())
	assert.NotEmpty(t, candidates.Fallbacks())
}

func TestDemoScoreFieldRejectsOutOfRange(t *testing.T) {
	reg, err := demoRegistry(zap.NewNop())
	require.NoError(t, err)

	field, ok := reg.Lookup("score-input")
	require.True(t, ok)
	require.NotNil(t, field.Validate)

	var ve *fields.ValidationError
	err = field.Validate("900")
	require.ErrorAs(t, err, &ve)
	assert.NoError(t, field.Validate("742"))
}

func TestExecuteUnknownCommand(t *testing.T) {
	rootCmd.SetArgs([]string{"definitely-not-a-command"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := Execute(context.Background())
	assert.Error(t, err)
}
