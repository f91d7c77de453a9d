package transcription

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"voicescribe-go/internal/types"
)

func TestClassifyMessage(t *testing.T) {
	tests := []struct {
		msg  string
		want types.ErrorKind
	}{
		{"Invalid API key provided", types.ErrAuthentication},
		{"401 Unauthorized", types.ErrAuthentication},
		{"access forbidden", types.ErrAuthentication},
		{"File size exceeds maximum", types.ErrPayloadTooLarge},
		{"upload is too large", types.ErrPayloadTooLarge},
		{"unsupported format: amr", types.ErrUnsupportedFormat},
		{"invalid audio container", types.ErrUnsupportedFormat},
		{"Bad Request: missing audio_url", types.ErrMalformedRequest},
		{"request timed out after 30s", types.ErrTimeout},
		{"connection refused", types.ErrNetwork},
		{"internal server error", types.ErrServer},
		{"something completely different", types.ErrUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.msg, func(t *testing.T) {
			assert.Equal(t, tc.want, classifyMessage(tc.msg))
		})
	}
}

func TestClassifyPrefersExplicitKind(t *testing.T) {
	// the message alone would match the network pattern; the explicit
	// kind must win
	err := types.NewError(types.ErrAuthentication, "connection established but key rejected")
	assert.Equal(t, types.ErrAuthentication, classify(err))

	wrapped := fmt.Errorf("outer: %w", types.NewError(types.ErrTimeout, "slow"))
	assert.Equal(t, types.ErrTimeout, classify(wrapped))

	assert.Equal(t, types.ErrUnknown, classify(errors.New("mystery")))
}
