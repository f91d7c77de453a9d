package transcription

import (
	"strings"

	"voicescribe-go/internal/types"
)

// ClassifyQuality scores a completed transcript into a discrete tier.
// Ordering matters: the low-confidence and sparse-text checks take precedence
// over the high-quality check.
func ClassifyQuality(confidence float64, text string, durationSeconds, threshold float64) types.Quality {
	if strings.TrimSpace(text) == "" || confidence == 0 {
		return types.QualityFailed
	}

	if confidence < threshold {
		return types.QualityLow
	}

	words := countWords(text)

	// Very short text for longer audio suggests the recognizer missed most
	// of the speech.
	if durationSeconds > 10 && words < 3 {
		return types.QualityLow
	}

	if confidence >= 0.85 && words >= 3 {
		return types.QualityHigh
	}

	return types.QualityMedium
}
