package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"voicescribe-go/internal/logger"
	"voicescribe-go/internal/types"
)

func newTestTranscoder(t *testing.T) *Transcoder {
	t.Helper()
	return &Transcoder{dir: t.TempDir(), log: logger.Component("audio")}
}

func fetchBytes(data []byte) FetchFunc {
	return func(ctx context.Context, id string, w io.Writer) error {
		_, err := w.Write(data)
		return err
	}
}

func TestDownloadWritesUniqueFile(t *testing.T) {
	tr := newTestTranscoder(t)

	asset, err := tr.Download(context.Background(), Attachment{
		ID:              "file-123",
		MimeType:        "audio/ogg",
		DurationSeconds: 3.2,
	}, fetchBytes([]byte("voice bytes")), 42)
	require.NoError(t, err)

	name := filepath.Base(asset.Path)
	assert.True(t, strings.HasPrefix(name, "voice_42_"), "got %s", name)
	assert.True(t, strings.HasSuffix(name, ".ogg"), "got %s", name)
	assert.Equal(t, int64(len("voice bytes")), asset.SizeBytes)
	assert.Equal(t, types.StageRaw, asset.Stage)
	assert.Equal(t, 3.2, asset.DurationSeconds)

	data, err := os.ReadFile(asset.Path)
	require.NoError(t, err)
	assert.Equal(t, "voice bytes", string(data))
}

func TestDownloadExtensionFromMime(t *testing.T) {
	tests := []struct {
		mime string
		ext  string
	}{
		{"audio/ogg", ".ogg"},
		{"audio/mpeg", ".mp3"},
		{"audio/mp4", ".m4a"},
		{"audio/wav", ".wav"},
		{"audio/webm", ".webm"},
		{"audio/opus", ".opus"},
		{"application/x-unknown", ".ogg"},
		{"", ".ogg"},
	}

	tr := newTestTranscoder(t)
	for _, tc := range tests {
		t.Run(tc.mime, func(t *testing.T) {
			asset, err := tr.Download(context.Background(), Attachment{
				ID: "att-" + tc.mime, MimeType: tc.mime,
			}, fetchBytes([]byte("x")), 1)
			require.NoError(t, err)
			assert.Equal(t, tc.ext, filepath.Ext(asset.Path))
		})
	}
}

func TestDownloadFetchFailureKeepsPartialPath(t *testing.T) {
	tr := newTestTranscoder(t)

	fetch := func(ctx context.Context, id string, w io.Writer) error {
		w.Write([]byte("partial"))
		return errors.New("connection reset")
	}

	asset, err := tr.Download(context.Background(), Attachment{ID: "att-1"}, fetch, 7)
	require.Error(t, err)
	assert.Equal(t, types.ErrDownload, types.KindOf(err))

	// the partial file stays on disk for the caller to clean up
	require.NotNil(t, asset)
	_, statErr := os.Stat(asset.Path)
	assert.NoError(t, statErr)
}

func TestDownloadRejectsEmptyFetch(t *testing.T) {
	tr := newTestTranscoder(t)

	asset, err := tr.Download(context.Background(), Attachment{ID: "att-2"}, fetchBytes(nil), 7)
	require.Error(t, err)
	assert.Equal(t, types.ErrDownload, types.KindOf(err))
	require.NotNil(t, asset)
	assert.Contains(t, err.Error(), "no bytes")
}

func TestDownloadDistinctNamesPerMessage(t *testing.T) {
	tr := newTestTranscoder(t)

	a, err := tr.Download(context.Background(), Attachment{ID: "m1", MimeType: "audio/ogg"}, fetchBytes([]byte("a")), 9)
	require.NoError(t, err)
	b, err := tr.Download(context.Background(), Attachment{ID: "m2", MimeType: "audio/ogg"}, fetchBytes([]byte("b")), 9)
	require.NoError(t, err)

	assert.NotEqual(t, a.Path, b.Path)
}

func TestCleanupStale(t *testing.T) {
	tr := newTestTranscoder(t)

	stale := filepath.Join(tr.Dir(), "voice_1_abcd1234.ogg")
	fresh := filepath.Join(tr.Dir(), "voice_1_ffff0000.ogg")
	foreign := filepath.Join(tr.Dir(), "unrelated.tmp")
	for _, p := range []string{stale, fresh, foreign} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))
	require.NoError(t, os.Chtimes(foreign, old, old))

	removed := tr.CleanupStale(24 * time.Hour)
	assert.Equal(t, 1, removed)

	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err), "stale file should be gone")
	_, err = os.Stat(fresh)
	assert.NoError(t, err, "fresh file should survive")
	_, err = os.Stat(foreign)
	assert.NoError(t, err, "files outside the naming pattern are never touched")
}

func requireFfmpeg(t *testing.T) {
	t.Helper()
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not installed", bin)
		}
	}
}

// wavBytes builds a valid one-second PCM16 WAV file in memory.
func wavBytes(channels, sampleRate int) []byte {
	samples := make([]byte, sampleRate*channels*2)

	var b bytes.Buffer
	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, uint32(36+len(samples)))
	b.WriteString("WAVEfmt ")
	binary.Write(&b, binary.LittleEndian, uint32(16))
	binary.Write(&b, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&b, binary.LittleEndian, uint16(channels))
	binary.Write(&b, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&b, binary.LittleEndian, uint32(sampleRate*channels*2))
	binary.Write(&b, binary.LittleEndian, uint16(channels*2))
	binary.Write(&b, binary.LittleEndian, uint16(16))
	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, uint32(len(samples)))
	b.Write(samples)
	return b.Bytes()
}

func TestNormalizeProducesMono16k(t *testing.T) {
	requireFfmpeg(t)
	tr := newTestTranscoder(t)
	ctx := context.Background()

	asset, err := tr.Download(ctx, Attachment{
		ID: "stereo", MimeType: "audio/wav",
	}, fetchBytes(wavBytes(2, 44100)), 5)
	require.NoError(t, err)

	out, meta, err := tr.Normalize(ctx, asset)
	require.NoError(t, err)

	assert.Equal(t, types.StageNormalized, out.Stage)
	assert.Equal(t, 1, out.Channels)
	assert.Equal(t, 16000, out.SampleRate)
	assert.Equal(t, 2, meta.OriginalChannels)
	assert.Equal(t, 44100, meta.OriginalSampleRate)

	// verify the encoded file, not just the asset's own claim
	probed, err := tr.probe(ctx, out.Path)
	require.NoError(t, err)
	assert.Equal(t, 1, probed.channels)
	assert.Equal(t, 16000, probed.sampleRate)
}

func TestNormalizeFailureLeavesNoOutput(t *testing.T) {
	requireFfmpeg(t)
	tr := newTestTranscoder(t)
	ctx := context.Background()

	asset, err := tr.Download(ctx, Attachment{
		ID: "blocked", MimeType: "audio/wav",
	}, fetchBytes(wavBytes(1, 16000)), 6)
	require.NoError(t, err)

	// occupy the output path with a directory so the encode fails after a
	// successful probe
	outPath := strings.TrimSuffix(asset.Path, ".wav") + "_16k.wav"
	require.NoError(t, os.Mkdir(outPath, 0o755))

	_, _, err = tr.Normalize(ctx, asset)
	require.Error(t, err)
	assert.Equal(t, types.ErrUnsupportedFormat, types.KindOf(err))

	_, statErr := os.Stat(outPath)
	assert.True(t, os.IsNotExist(statErr), "a failed encode must not leave output behind")
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	tr := newTestTranscoder(t)

	asset, err := tr.Download(context.Background(), Attachment{
		ID: "bad", MimeType: "audio/ogg",
	}, fetchBytes([]byte("this is not audio")), 3)
	require.NoError(t, err)

	_, _, err = tr.Normalize(context.Background(), asset)
	require.Error(t, err)
	assert.Equal(t, types.ErrUnsupportedFormat, types.KindOf(err))
}
