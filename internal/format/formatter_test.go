package format

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"voicescribe-go/internal/config"
	"voicescribe-go/internal/transcription"
	"voicescribe-go/internal/types"
)

func testFormatter() *Formatter {
	return New(&config.Config{
		MaxFileSizeMB:      25,
		MinDurationSeconds: 0.5,
		MaxDurationSeconds: 600,
		DefaultLanguage:    "en",
	})
}

func TestRenderSuccessByQuality(t *testing.T) {
	f := testFormatter()

	tests := []struct {
		quality types.Quality
		prefix  string
	}{
		{types.QualityHigh, "🎤✨"},
		{types.QualityMedium, "🎤"},
		{types.QualityLow, "🎤⚠️"},
	}

	for _, tc := range tests {
		t.Run(string(tc.quality), func(t *testing.T) {
			out := &types.TranscriptionOutcome{
				Quality:    tc.quality,
				Text:       "hello there everyone",
				Confidence: 0.5,
			}
			msg := f.Render(out, false)
			assert.True(t, strings.HasPrefix(msg, tc.prefix), "got %q", msg)
			assert.Contains(t, msg, "**Voice Message Transcribed:**")
			assert.Contains(t, msg, "hello there everyone")
		})
	}
}

func TestRenderLowQualityCaveat(t *testing.T) {
	f := testFormatter()
	out := &types.TranscriptionOutcome{
		Quality:    types.QualityLow,
		Text:       "barely audible mumbling",
		Confidence: 0.45,
	}

	msg := f.Render(out, false)
	assert.Contains(t, msg, "Confidence: 45%")
	assert.Contains(t, msg, "please verify")
}

func TestRenderFailureTemplates(t *testing.T) {
	f := testFormatter()

	tests := []struct {
		name string
		err  *types.Error
		want string
	}{
		{"auth", types.NewError(types.ErrAuthentication, "invalid api key"), "authentication failed"},
		{"timeout", types.NewError(types.ErrTimeout, "timed out after 300s"), "timed out"},
		{"format", types.NewError(types.ErrUnsupportedFormat, "decode failed"), "Unsupported audio format"},
		{"network", types.NewError(types.ErrNetwork, "connection refused"), "network error"},
		{"server", types.NewError(types.ErrServer, "503"), "network error"},
		{"too short", types.NewError(types.ErrValidation, "audio too short: 0.2s (min: 0.5s)"), "Audio too short"},
		{"too long", types.NewError(types.ErrValidation, "audio too long: 700.0s (max: 600.0s)"), "Audio too long"},
		{"generic", types.NewError(types.ErrUnknown, "mystery"), "couldn't process"},
		{"download", types.NewError(types.ErrDownload, "fetch failed"), "couldn't process"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := &types.TranscriptionOutcome{Quality: types.QualityFailed, Err: tc.err}
			msg := f.Render(out, false)
			assert.Contains(t, msg, tc.want)
		})
	}
}

func TestRenderFailureIncludesLimits(t *testing.T) {
	f := testFormatter()
	out := &types.TranscriptionOutcome{
		Quality:       types.QualityFailed,
		Err:           types.NewError(types.ErrPayloadTooLarge, "file size exceeds limit"),
		FileSizeBytes: 30 << 20,
	}

	msg := f.Render(out, false)
	assert.Contains(t, msg, "30.0MB")
	assert.Contains(t, msg, "under 25MB")
}

func TestRenderExtras(t *testing.T) {
	f := testFormatter()
	out := &types.TranscriptionOutcome{
		Quality:            types.QualityHigh,
		Text:               "bonjour tout le monde",
		Confidence:         0.92,
		Language:           "fr",
		LanguageConfidence: 0.98,
		Enrichment: &types.Enrichment{
			Speakers: []string{"A", "B"},
			Summary:  "Two people say hello.",
			Chapters: []types.Chapter{{Headline: "Intro"}},
		},
	}

	msg := f.Render(out, true)
	assert.Contains(t, msg, "Language: FR (98%)")
	assert.Contains(t, msg, "Speakers: 2 detected")
	assert.Contains(t, msg, "Summary available")
	assert.Contains(t, msg, "Chapters: 1 sections")

	plain := f.Render(out, false)
	assert.NotContains(t, plain, "Speakers")
}

func TestRenderExtrasDefaultLanguageOmitted(t *testing.T) {
	f := testFormatter()
	out := &types.TranscriptionOutcome{
		Quality:  types.QualityHigh,
		Text:     "hello there everyone",
		Language: "en",
	}
	msg := f.Render(out, true)
	assert.NotContains(t, msg, "Language:")
}

func TestRenderSearchResults(t *testing.T) {
	f := testFormatter()

	results := map[string][]transcription.WordMatch{
		"budget": {
			{Text: "budget", StartChar: 4, EndChar: 10, Count: 5},
			{Text: "budget", StartChar: 30, EndChar: 36, Count: 5},
			{Text: "budget", StartChar: 50, EndChar: 56, Count: 5},
			{Text: "budget", StartChar: 70, EndChar: 76, Count: 5},
			{Text: "budget", StartChar: 90, EndChar: 96, Count: 5},
		},
		"once":   {{Text: "once", StartChar: 1, EndChar: 5, Count: 1}},
		"absent": {},
	}

	msg := f.RenderSearchResults(results)
	require.Contains(t, msg, "**budget**: 5 occurrences")
	assert.Contains(t, msg, "**once**: 1 occurrence\n")
	assert.Contains(t, msg, "... and 2 more")
	assert.NotContains(t, msg, "absent")
}

func TestRenderSearchResultsEmpty(t *testing.T) {
	f := testFormatter()
	assert.Equal(t, "🔍 No matches found.", f.RenderSearchResults(map[string][]transcription.WordMatch{}))
	assert.Equal(t, "🔍 No matches found.", f.RenderSearchResults(map[string][]transcription.WordMatch{"x": {}}))
}
