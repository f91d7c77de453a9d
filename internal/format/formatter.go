package format

import (
	"fmt"
	"sort"
	"strings"

	"voicescribe-go/internal/config"
	"voicescribe-go/internal/transcription"
	"voicescribe-go/internal/types"
)

// Formatter renders transcription outcomes into user-facing text. It is a
// pure mapping: no side effects, no I/O. The raw error taxonomy is never
// shown verbatim; failures map to the closest guidance template.
type Formatter struct {
	cfg *config.Config
}

func New(cfg *config.Config) *Formatter {
	return &Formatter{cfg: cfg}
}

var qualityGlyphs = map[types.Quality]string{
	types.QualityHigh:   "🎤✨",
	types.QualityMedium: "🎤",
	types.QualityLow:    "🎤⚠️",
}

// Render turns an outcome into the message shown to the user. With extras
// enabled, a compact summary line of enrichment findings is appended to
// successful transcriptions.
func (f *Formatter) Render(out *types.TranscriptionOutcome, extras bool) string {
	if out.Failed() {
		return f.renderFailure(out)
	}

	glyph, ok := qualityGlyphs[out.Quality]
	if !ok {
		glyph = "🎤"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s **Voice Message Transcribed:**\n\n%s", glyph, out.Text)

	if out.Quality == types.QualityLow {
		fmt.Fprintf(&b, "\n\n*(Confidence: %.0f%% - please verify)*", out.Confidence*100)
	}

	if extras {
		if line := f.extrasLine(out); line != "" {
			fmt.Fprintf(&b, "\n\n*%s*", line)
		}
	}
	return b.String()
}

func (f *Formatter) renderFailure(out *types.TranscriptionOutcome) string {
	var kind types.ErrorKind
	var msg string
	if out.Err != nil {
		kind = out.Err.Kind
		msg = strings.ToLower(out.Err.Message)
	}

	switch kind {
	case types.ErrAuthentication:
		return "🎤❌ Transcription service authentication failed. Please contact the administrator."
	case types.ErrTimeout:
		return "🎤⏱️ Transcription timed out. Please try again with a shorter recording."
	case types.ErrPayloadTooLarge:
		return fmt.Sprintf("🎤📁 File too large (%.1fMB). Please keep recordings under %dMB.",
			float64(out.FileSizeBytes)/(1024*1024), f.cfg.MaxFileSizeMB)
	case types.ErrUnsupportedFormat:
		return "🎤🔄 Unsupported audio format. Please try recording again in a standard format."
	case types.ErrNetwork, types.ErrServer:
		return "🎤🌐 A network error occurred. Please check your connection and try again."
	case types.ErrValidation:
		switch {
		case strings.Contains(msg, "too large"):
			return fmt.Sprintf("🎤📁 File too large (%.1fMB). Please keep recordings under %dMB.",
				float64(out.FileSizeBytes)/(1024*1024), f.cfg.MaxFileSizeMB)
		case strings.Contains(msg, "too short"):
			return fmt.Sprintf("🎤⚡ Audio too short (%.1fs). Please speak for at least %.1fs.",
				out.DurationSeconds, f.cfg.MinDurationSeconds)
		case strings.Contains(msg, "too long"):
			return fmt.Sprintf("🎤📏 Audio too long (%.1f min). Please keep recordings under %.0f minutes.",
				out.DurationSeconds/60, f.cfg.MaxDurationSeconds/60)
		}
	}

	return "🎤❌ I couldn't process your voice message. Please try speaking more clearly or use text instead."
}

func (f *Formatter) extrasLine(out *types.TranscriptionOutcome) string {
	var parts []string

	if out.Language != "" && out.Language != f.cfg.DefaultLanguage {
		if out.LanguageConfidence > 0 {
			parts = append(parts, fmt.Sprintf("Language: %s (%.0f%%)", strings.ToUpper(out.Language), out.LanguageConfidence*100))
		} else {
			parts = append(parts, fmt.Sprintf("Language: %s", strings.ToUpper(out.Language)))
		}
	}

	if out.Enrichment != nil {
		if n := len(out.Enrichment.Speakers); n > 1 {
			parts = append(parts, fmt.Sprintf("Speakers: %d detected", n))
		}
		if out.Enrichment.Summary != "" {
			parts = append(parts, "Summary available")
		}
		if n := len(out.Enrichment.Chapters); n > 0 {
			parts = append(parts, fmt.Sprintf("Chapters: %d sections", n))
		}
	}

	return strings.Join(parts, " | ")
}

// RenderSearchResults renders word-search hits for display.
func (f *Formatter) RenderSearchResults(results map[string][]transcription.WordMatch) string {
	words := make([]string, 0, len(results))
	for w, matches := range results {
		if len(matches) > 0 {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return "🔍 No matches found."
	}
	sort.Strings(words)

	var b strings.Builder
	b.WriteString("🔍 **Word Search Results:**\n")
	for _, w := range words {
		matches := results[w]
		count := matches[0].Count
		plural := "s"
		if count == 1 {
			plural = ""
		}
		fmt.Fprintf(&b, "\n**%s**: %d occurrence%s\n", w, count, plural)
		for i, m := range matches {
			if i == 3 {
				fmt.Fprintf(&b, "  • ... and %d more\n", len(matches)-3)
				break
			}
			fmt.Fprintf(&b, "  • Position %d-%d\n", m.StartChar, m.EndChar)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
