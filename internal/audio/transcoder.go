package audio

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"voicescribe-go/internal/logger"
	"voicescribe-go/internal/types"
)

// tempDirName is the per-process staging directory under os.TempDir().
const tempDirName = "voicescribe_audio"

// Attachment is the transport-declared description of an inbound voice
// message. Duration, size, and MIME type come from the transport and may be
// approximate.
type Attachment struct {
	ID              string
	MimeType        string
	DurationSeconds float64
	SizeBytes       int64
}

// FetchFunc downloads the attachment's bytes into w. It is supplied by the
// chat-transport layer and treated as a fallible external call.
type FetchFunc func(ctx context.Context, id string, w io.Writer) error

// Metadata describes one normalization run: the input as decoded and the
// output as re-encoded for transcription.
type Metadata struct {
	OriginalDuration   float64 `json:"original_duration"`
	OriginalChannels   int     `json:"original_channels"`
	OriginalSampleRate int     `json:"original_sample_rate"`
	OriginalFormat     string  `json:"original_format"`
	Duration           float64 `json:"duration"`
	SizeBytes          int64   `json:"size_bytes"`
	CompressionRatio   float64 `json:"compression_ratio"`
	ProcessingSeconds  float64 `json:"processing_seconds"`

	// Transport-declared values, merged in by the orchestrator as
	// supplementary metadata.
	DeclaredDuration float64 `json:"declared_duration,omitempty"`
	DeclaredSize     int64   `json:"declared_size,omitempty"`
	DeclaredMime     string  `json:"declared_mime,omitempty"`
}

var mimeToExt = map[string]string{
	"audio/ogg":  "ogg",
	"audio/mpeg": "mp3",
	"audio/mp4":  "m4a",
	"audio/wav":  "wav",
	"audio/webm": "webm",
	"audio/opus": "opus",
}

// Transcoder stages voice attachments on local disk and re-encodes them into
// the canonical mono/16kHz form the transcription service works best with.
// Decode and encode run in external ffmpeg processes so CPU-bound codec work
// never blocks the scheduler.
type Transcoder struct {
	dir string
	log *logrus.Entry
}

func NewTranscoder() (*Transcoder, error) {
	dir := filepath.Join(os.TempDir(), tempDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	return &Transcoder{
		dir: dir,
		log: logger.Component("audio"),
	}, nil
}

// Dir returns the staging directory.
func (t *Transcoder) Dir() string { return t.dir }

// Download fetches the attachment's bytes to a uniquely named local file.
// On failure the returned asset, when non-nil, still names the partially
// written file; removing it is the caller's job, not this method's.
func (t *Transcoder) Download(ctx context.Context, att Attachment, fetch FetchFunc, ownerID int64) (*types.AudioAsset, error) {
	stamp := time.Now().Format("20060102_150405")
	sum := md5.Sum([]byte(fmt.Sprintf("%d_%s_%s", ownerID, stamp, att.ID)))
	name := fmt.Sprintf("voice_%d_%s.%s", ownerID, hex.EncodeToString(sum[:])[:8], extensionFor(att.MimeType))
	path := filepath.Join(t.dir, name)

	asset := &types.AudioAsset{
		Path:            path,
		MimeType:        att.MimeType,
		DurationSeconds: att.DurationSeconds,
		Stage:           types.StageRaw,
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, types.NewError(types.ErrDownload, "create %s: %v", path, err)
	}

	start := time.Now()
	fetchErr := fetch(ctx, att.ID, f)
	closeErr := f.Close()
	if fetchErr != nil {
		return asset, types.NewError(types.ErrDownload, "fetch attachment %s: %v", att.ID, fetchErr)
	}
	if closeErr != nil {
		return asset, types.NewError(types.ErrDownload, "flush %s: %v", path, closeErr)
	}

	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return asset, types.NewError(types.ErrDownload, "no bytes written for attachment %s", att.ID)
	}
	asset.SizeBytes = info.Size()

	t.log.WithFields(logrus.Fields{
		"owner_id":      ownerID,
		"attachment_id": att.ID,
		"size_bytes":    info.Size(),
		"download_ms":   time.Since(start).Milliseconds(),
		"path":          path,
	}).Info("voice attachment downloaded")

	return asset, nil
}

func extensionFor(mime string) string {
	if ext, ok := mimeToExt[mime]; ok {
		return ext
	}
	return "ogg"
}

// Normalize decodes the input, downmixes to mono, resamples to 16kHz, applies
// amplitude normalization plus a 100Hz high-pass filter, and re-encodes to
// PCM16 WAV. A decode failure is terminal; it is never retried.
func (t *Transcoder) Normalize(ctx context.Context, asset *types.AudioAsset) (*types.AudioAsset, *Metadata, error) {
	probe, err := t.probe(ctx, asset.Path)
	if err != nil {
		return nil, nil, err
	}

	ext := filepath.Ext(asset.Path)
	outPath := strings.TrimSuffix(asset.Path, ext) + ".wav"
	if outPath == asset.Path {
		outPath = strings.TrimSuffix(asset.Path, ext) + "_16k.wav"
	}

	start := time.Now()
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", asset.Path,
		"-ac", "1",
		"-ar", "16000",
		"-af", "highpass=f=100,dynaudnorm",
		"-c:a", "pcm_s16le",
		"-f", "wav",
		outPath,
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		// a failed encode can leave a partial output behind, and the
		// caller never learns its path
		os.Remove(outPath)
		return nil, nil, types.NewError(types.ErrUnsupportedFormat,
			"decode %s: %v: %s", filepath.Base(asset.Path), err, strings.TrimSpace(stderr.String()))
	}
	processing := time.Since(start).Seconds()

	info, err := os.Stat(outPath)
	if err != nil {
		return nil, nil, types.NewError(types.ErrUnsupportedFormat, "no output produced for %s", filepath.Base(asset.Path))
	}

	out := &types.AudioAsset{
		Path:            outPath,
		MimeType:        "audio/wav",
		SizeBytes:       info.Size(),
		DurationSeconds: probe.duration,
		Channels:        1,
		SampleRate:      16000,
		Stage:           types.StageNormalized,
	}

	ratio := 0.0
	if asset.SizeBytes > 0 {
		ratio = float64(info.Size()) / float64(asset.SizeBytes)
	}
	meta := &Metadata{
		OriginalDuration:   probe.duration,
		OriginalChannels:   probe.channels,
		OriginalSampleRate: probe.sampleRate,
		OriginalFormat:     strings.TrimPrefix(ext, "."),
		Duration:           probe.duration,
		SizeBytes:          info.Size(),
		CompressionRatio:   ratio,
		ProcessingSeconds:  processing,
	}

	t.log.WithFields(logrus.Fields{
		"original_channels":    probe.channels,
		"original_sample_rate": probe.sampleRate,
		"duration":             probe.duration,
		"size_bytes":           info.Size(),
		"processing_s":         processing,
	}).Info("audio normalization complete")

	return out, meta, nil
}

type probeResult struct {
	duration   float64
	channels   int
	sampleRate int
}

func (t *Transcoder) probe(ctx context.Context, path string) (*probeResult, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-print_format", "json",
		"-show_format", "-show_streams",
		path,
	)
	cmd.Stderr = &stderr
	raw, err := cmd.Output()
	if err != nil {
		return nil, types.NewError(types.ErrUnsupportedFormat,
			"probe %s: %v: %s", filepath.Base(path), err, strings.TrimSpace(stderr.String()))
	}

	var parsed struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
		Streams []struct {
			CodecType  string `json:"codec_type"`
			Channels   int    `json:"channels"`
			SampleRate string `json:"sample_rate"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, types.NewError(types.ErrUnsupportedFormat, "parse probe output for %s: %v", filepath.Base(path), err)
	}

	res := &probeResult{}
	res.duration, _ = strconv.ParseFloat(parsed.Format.Duration, 64)
	for _, s := range parsed.Streams {
		if s.CodecType == "audio" {
			res.channels = s.Channels
			res.sampleRate, _ = strconv.Atoi(s.SampleRate)
			break
		}
	}
	if res.channels == 0 {
		return nil, types.NewError(types.ErrUnsupportedFormat, "no audio stream in %s", filepath.Base(path))
	}
	return res, nil
}

// CleanupStale deletes pipeline-owned temp files older than maxAge. Files not
// matching the pipeline's naming pattern are never touched. Returns the number
// of files removed.
func (t *Transcoder) CleanupStale(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	matches, err := filepath.Glob(filepath.Join(t.dir, "voice_*"))
	if err != nil {
		t.log.WithError(err).Warn("stale sweep glob failed")
		return 0
	}

	removed := 0
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				t.log.WithError(err).WithField("path", path).Warn("stale file removal failed")
				continue
			}
			removed++
		}
	}
	if removed > 0 {
		t.log.WithField("count", removed).Info("stale temp files removed")
	}
	return removed
}
