package transcription

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"voicescribe-go/internal/types"
)

// WordMatch is one occurrence of a searched word in the transcript, with
// character offsets into the transcript text. Both search paths produce this
// same shape so callers need not care which path ran.
type WordMatch struct {
	Text      string `json:"text"`
	StartChar int    `json:"start_char"`
	EndChar   int    `json:"end_char"`
	Count     int    `json:"count"`
}

// SearchWords looks up target words in a completed transcript. It tries the
// service's indexed search first and falls back to a local case-insensitive
// whole-word scan when that fails. Absent words map to empty lists, never an
// error.
//
// The fallback delimits matches by Unicode letter/digit boundaries. That has
// no meaning for languages written without word separators; confirm desired
// behavior before relying on it for such transcripts.
func (c *Client) SearchWords(ctx context.Context, outcome *types.TranscriptionOutcome, words []string) map[string][]WordMatch {
	if outcome.Failed() || outcome.Text == "" || len(words) == 0 {
		return map[string][]WordMatch{}
	}

	if outcome.TranscriptID != "" {
		if results, err := c.nativeSearch(ctx, outcome, words); err == nil {
			return results
		} else {
			c.log.WithError(err).Warn("indexed word search failed, falling back to text scan")
		}
	}

	return LocalWordSearch(outcome.Text, words)
}

func (c *Client) nativeSearch(ctx context.Context, outcome *types.TranscriptionOutcome, words []string) (map[string][]WordMatch, error) {
	endpoint := c.baseURL + "/transcript/" + outcome.TranscriptID + "/word-search?words=" + url.QueryEscape(strings.Join(words, ","))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("authorization", c.cfg.APIKey)

	var resp wordSearchResponse
	if err := c.do(httpReq, &resp); err != nil {
		return nil, err
	}

	results := make(map[string][]WordMatch, len(words))
	for _, w := range words {
		results[w] = []WordMatch{}
	}
	for _, m := range resp.Matches {
		key := matchKey(words, m.Text)
		if key == "" {
			continue
		}
		for _, idx := range m.Indexes {
			results[key] = append(results[key], WordMatch{
				Text:      m.Text,
				StartChar: int(idx[0]),
				EndChar:   int(idx[1]),
				Count:     m.Count,
			})
		}
	}
	return results, nil
}

func matchKey(words []string, text string) string {
	for _, w := range words {
		if strings.EqualFold(w, text) {
			return w
		}
	}
	return ""
}

// LocalWordSearch is the fallback scan: case-insensitive whole-word matching
// over the transcript text. RE2's \b boundary is ASCII-only and would miss
// every Cyrillic word, so word boundaries are checked against the Unicode
// letter/digit classes of the adjacent runes instead.
func LocalWordSearch(text string, words []string) map[string][]WordMatch {
	results := make(map[string][]WordMatch, len(words))
	for _, w := range words {
		results[w] = []WordMatch{}
		if w == "" {
			continue
		}

		re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(w))
		if err != nil {
			continue
		}
		var spans [][]int
		for _, idx := range re.FindAllStringIndex(text, -1) {
			if wordBounded(text, idx[0], idx[1]) {
				spans = append(spans, idx)
			}
		}
		for _, idx := range spans {
			results[w] = append(results[w], WordMatch{
				Text:      w,
				StartChar: idx[0],
				EndChar:   idx[1],
				Count:     len(spans),
			})
		}
	}
	return results
}

// wordBounded reports whether the match at text[start:end] is delimited by
// non-word runes on both sides.
func wordBounded(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
