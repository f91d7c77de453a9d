package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TRANSCRIPTION_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.APIKey)
	assert.Equal(t, "https://api.assemblyai.com/v2", cfg.APIBaseURL)
	assert.Equal(t, 25, cfg.MaxFileSizeMB)
	assert.Equal(t, 0.5, cfg.MinDurationSeconds)
	assert.Equal(t, 600.0, cfg.MaxDurationSeconds)
	assert.Equal(t, 0.6, cfg.ConfidenceThreshold)
	assert.Equal(t, "en", cfg.DefaultLanguage)
	assert.True(t, cfg.AutoLanguageDetection)
	assert.True(t, cfg.Punctuation)
	assert.True(t, cfg.FormatText)
	assert.False(t, cfg.Disfluencies)
	assert.Equal(t, 3, cfg.ConcurrentRequests)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, 2.0, cfg.RetryBaseDelaySeconds)
	assert.Equal(t, 60.0, cfg.RetryMaxDelaySeconds)
	assert.Equal(t, 300.0, cfg.PollWaitCeilingSeconds)
	assert.Equal(t, 24, cfg.TempMaxAgeHours)
	assert.Equal(t, "8080", cfg.Port)
	assert.Contains(t, cfg.SupportedLanguages, "en")
	assert.Contains(t, cfg.SupportedLanguages, "ru")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TRANSCRIPTION_API_KEY", "k")
	t.Setenv("MAX_FILE_SIZE_MB", "10")
	t.Setenv("CONFIDENCE_THRESHOLD", "0.75")
	t.Setenv("ENABLE_LANGUAGE_DETECTION", "false")
	t.Setenv("ENABLE_SPEAKER_LABELS", "true")
	t.Setenv("CONCURRENT_REQUESTS", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.MaxFileSizeMB)
	assert.Equal(t, 0.75, cfg.ConfidenceThreshold)
	assert.False(t, cfg.AutoLanguageDetection)
	assert.True(t, cfg.SpeakerLabels)
	assert.Equal(t, 5, cfg.ConcurrentRequests)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing api key",
			env:     map[string]string{},
			wantErr: "TRANSCRIPTION_API_KEY",
		},
		{
			name:    "zero file size",
			env:     map[string]string{"MAX_FILE_SIZE_MB": "0"},
			wantErr: "MAX_FILE_SIZE_MB",
		},
		{
			name:    "min above max duration",
			env:     map[string]string{"MIN_DURATION_SECONDS": "700"},
			wantErr: "duration bounds",
		},
		{
			name:    "threshold above one",
			env:     map[string]string{"CONFIDENCE_THRESHOLD": "1.5"},
			wantErr: "CONFIDENCE_THRESHOLD",
		},
		{
			name:    "zero concurrency",
			env:     map[string]string{"CONCURRENT_REQUESTS": "0"},
			wantErr: "CONCURRENT_REQUESTS",
		},
		{
			name:    "max retry delay below base",
			env:     map[string]string{"RETRY_MAX_DELAY_SECONDS": "1"},
			wantErr: "retry delays",
		},
		{
			name:    "unknown substitution policy",
			env:     map[string]string{"PII_SUBSTITUTION_POLICY": "redact"},
			wantErr: "PII_SUBSTITUTION_POLICY",
		},
		{
			name:    "unknown boost",
			env:     map[string]string{"BOOST_PARAM": "max"},
			wantErr: "BOOST_PARAM",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.name != "missing api key" {
				t.Setenv("TRANSCRIPTION_API_KEY", "k")
			} else {
				t.Setenv("TRANSCRIPTION_API_KEY", "")
			}
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestDurationHelpers(t *testing.T) {
	t.Setenv("TRANSCRIPTION_API_KEY", "k")
	t.Setenv("RETRY_BASE_DELAY_SECONDS", "1.5")
	t.Setenv("RETRY_MAX_DELAY_SECONDS", "30")
	t.Setenv("POLL_WAIT_CEILING_SECONDS", "120")
	t.Setenv("TEMP_MAX_AGE_HOURS", "6")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1500, int(cfg.RetryBaseDelay().Milliseconds()))
	assert.Equal(t, 30, int(cfg.RetryMaxDelay().Seconds()))
	assert.Equal(t, 120, int(cfg.PollWaitCeiling().Seconds()))
	assert.Equal(t, 6, int(cfg.TempMaxAge().Hours()))
}
