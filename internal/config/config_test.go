package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deploynotify/internal/types"
)

func TestSecretStringAlias(t *testing.T) {
	var typesSecret types.SecretString = "xoxb-test"
	var configSecret SecretString = typesSecret

	assert.Equal(t, "***REDACTED***", configSecret.String())
	assert.Equal(t, "xoxb-test", configSecret.Unmask())
}

func TestDistributionsDecode(t *testing.T) {
	var d Distributions
	require.NoError(t, d.Decode(`[{"name":"prod","bucket":"arn:aws:s3:::prod-site","distributionId":"D123"}]`))

	require.Len(t, d, 1)
	assert.Equal(t, types.Environment{
		Name:           "prod",
		Bucket:         "arn:aws:s3:::prod-site",
		DistributionID: "D123",
	}, d[0])
}

func TestDistributionsDecodeKeepsOrderAndDuplicates(t *testing.T) {
	var d Distributions
	require.NoError(t, d.Decode(`[
		{"name":"a","bucket":"arn:aws:s3:::same","distributionId":"D1"},
		{"name":"b","bucket":"arn:aws:s3:::same","distributionId":"D2"}
	]`))

	require.Len(t, d, 2)
	assert.Equal(t, "a", d[0].Name)
	assert.Equal(t, "b", d[1].Name)
}

func TestDistributionsDecodeBlank(t *testing.T) {
	d := Distributions{{Name: "stale"}}
	require.NoError(t, d.Decode("   "))
	assert.NotNil(t, d)
	assert.Empty(t, d)
}

func TestDistributionsDecodeInvalid(t *testing.T) {
	var d Distributions
	err := d.Decode(`not-json`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DISTRIBUTIONS")
}

func TestConfigSlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Config{LogLevel: tt.in}.SlogLevel())
		})
	}
}

func TestConfigIsLocal(t *testing.T) {
	assert.True(t, Config{Environment: "local"}.IsLocal())
	assert.False(t, Config{Environment: "prod"}.IsLocal())
}
