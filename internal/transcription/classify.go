package transcription

import (
	"strings"

	"voicescribe-go/internal/types"
)

// message patterns used when an error carries no explicit taxonomy kind.
// Service error wording is not a stable contract, so this is best-effort:
// a miss falls through to the retryable unknown kind.
var messageKinds = []struct {
	needle string
	kind   types.ErrorKind
}{
	{"api key", types.ErrAuthentication},
	{"unauthorized", types.ErrAuthentication},
	{"authentication", types.ErrAuthentication},
	{"forbidden", types.ErrAuthentication},
	{"file size", types.ErrPayloadTooLarge},
	{"too large", types.ErrPayloadTooLarge},
	{"payload too large", types.ErrPayloadTooLarge},
	{"unsupported format", types.ErrUnsupportedFormat},
	{"invalid audio", types.ErrUnsupportedFormat},
	{"bad request", types.ErrMalformedRequest},
	{"malformed", types.ErrMalformedRequest},
	{"timed out", types.ErrTimeout},
	{"timeout", types.ErrTimeout},
	{"connection", types.ErrNetwork},
	{"network", types.ErrNetwork},
	{"server error", types.ErrServer},
}

// classify resolves err to a taxonomy kind: an explicit kind wins, otherwise
// the message is matched against known patterns.
func classify(err error) types.ErrorKind {
	if te, ok := types.AsError(err); ok {
		return te.Kind
	}
	return classifyMessage(err.Error())
}

func classifyMessage(msg string) types.ErrorKind {
	lower := strings.ToLower(msg)
	for _, m := range messageKinds {
		if strings.Contains(lower, m.needle) {
			return m.kind
		}
	}
	return types.ErrUnknown
}
