package pipeline

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"voicescribe-go/internal/audio"
	"voicescribe-go/internal/config"
	"voicescribe-go/internal/logger"
	"voicescribe-go/internal/transcription"
	"voicescribe-go/internal/types"
)

// recentLimit bounds the in-memory outcome history kept for reporting.
const recentLimit = 256

// Hooks are the transport-provided callbacks for one voice message. Fetch is
// required; Indicate (the "show typing" hint) is optional and best-effort.
type Hooks struct {
	Fetch    audio.FetchFunc
	Indicate func(ctx context.Context) error
}

// Orchestrator sequences the full pipeline for one inbound voice message:
// download, normalize, rate-limited transcribe, statistics update, and
// unconditional temp-file cleanup. It is stateless per call aside from the
// shared statistics and the rate limiter inside the client; messages from
// the same owner are not serialized here.
type Orchestrator struct {
	cfg        *config.Config
	transcoder *audio.Transcoder
	client     *transcription.Client
	log        *logrus.Entry

	mu        sync.Mutex
	processed int64
	succeeded int64
	failed    int64
	audioSec  float64
	procSec   float64
	recent    []*types.TranscriptionOutcome
}

func New(cfg *config.Config, transcoder *audio.Transcoder, client *transcription.Client) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		transcoder: transcoder,
		client:     client,
		log:        logger.Component("pipeline"),
	}
}

// Process runs one voice message through the full pipeline. It never returns
// an error: any stage failure becomes a failed outcome carrying the causal
// error, the failure counter still advances, and cleanup still runs.
func (o *Orchestrator) Process(ctx context.Context, att audio.Attachment, ownerID int64, hooks Hooks) *types.TranscriptionOutcome {
	start := time.Now()
	log := o.log.WithFields(logrus.Fields{
		"owner_id":      ownerID,
		"attachment_id": att.ID,
		"duration":      att.DurationSeconds,
		"size_bytes":    att.SizeBytes,
		"mime_type":     att.MimeType,
	})
	log.Info("processing voice message")

	var temps []string
	defer func() {
		o.removeTempFiles(temps)
	}()

	if hooks.Indicate != nil {
		if err := hooks.Indicate(ctx); err != nil {
			log.WithError(err).Debug("processing indicator failed")
		}
	}

	raw, err := o.transcoder.Download(ctx, att, hooks.Fetch, ownerID)
	if raw != nil {
		temps = append(temps, raw.Path)
	}
	if err != nil {
		return o.finishFailed(log, att, err, start)
	}

	normalized, meta, err := o.transcoder.Normalize(ctx, raw)
	if err != nil {
		return o.finishFailed(log, att, err, start)
	}
	if normalized.Path != raw.Path {
		temps = append(temps, normalized.Path)
	}

	// Transport-declared values ride along as supplementary metadata, and
	// stand in for the probed values when the probe came back empty.
	meta.DeclaredDuration = att.DurationSeconds
	meta.DeclaredSize = att.SizeBytes
	meta.DeclaredMime = att.MimeType
	if meta.Duration == 0 {
		meta.Duration = att.DurationSeconds
	}
	if meta.SizeBytes == 0 {
		meta.SizeBytes = att.SizeBytes
	}

	outcome, err := o.client.Transcribe(ctx, normalized, meta)
	if err != nil {
		outcome = failedOutcome(att, meta, err, time.Since(start).Seconds())
	}

	o.record(outcome)

	if outcome.Failed() {
		log.WithField("error", outcome.Err.Error()).Warn("voice transcription failed")
	} else {
		log.WithFields(logrus.Fields{
			"confidence": outcome.Confidence,
			"quality":    outcome.Quality,
			"words":      outcome.WordCount,
		}).Info("voice transcription successful")
	}
	return outcome
}

func (o *Orchestrator) finishFailed(log *logrus.Entry, att audio.Attachment, err error, start time.Time) *types.TranscriptionOutcome {
	outcome := failedOutcome(att, nil, err, time.Since(start).Seconds())
	o.record(outcome)
	log.WithField("error", outcome.Err.Error()).Warn("voice processing failed")
	return outcome
}

func failedOutcome(att audio.Attachment, meta *audio.Metadata, err error, elapsed float64) *types.TranscriptionOutcome {
	te, ok := types.AsError(err)
	if !ok {
		te = types.NewError(types.ErrUnknown, "%v", err)
	}

	out := &types.TranscriptionOutcome{
		Quality:           types.QualityFailed,
		Err:               te,
		DurationSeconds:   att.DurationSeconds,
		ProcessingSeconds: elapsed,
		FileSizeBytes:     att.SizeBytes,
		Format:            att.MimeType,
	}
	if meta != nil {
		out.DurationSeconds = meta.Duration
		out.FileSizeBytes = meta.SizeBytes
		out.Format = meta.OriginalFormat
	}
	return out
}

// record updates the shared counters. The critical section is deliberately
// tiny: a handful of increments and a bounded history append.
func (o *Orchestrator) record(out *types.TranscriptionOutcome) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.processed++
	if out.Failed() {
		o.failed++
	} else {
		o.succeeded++
	}
	o.audioSec += out.DurationSeconds
	o.procSec += out.ProcessingSeconds

	o.recent = append(o.recent, out)
	if len(o.recent) > recentLimit {
		o.recent = o.recent[len(o.recent)-recentLimit:]
	}
}

// removeTempFiles deletes every file created during one run. Removal failures
// are logged and swallowed; they never mask the primary outcome.
func (o *Orchestrator) removeTempFiles(paths []string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			o.log.WithError(err).WithField("path", path).Warn("temp file cleanup failed")
		}
	}
}

// Snapshot is a point-in-time read of the running statistics, with derived
// rates computed lazily at read time.
type Snapshot struct {
	MessagesProcessed  int64   `json:"messages_processed"`
	Successful         int64   `json:"successful_transcriptions"`
	Failed             int64   `json:"failed_transcriptions"`
	TotalAudioSeconds  float64 `json:"total_audio_duration_seconds"`
	TotalProcessingSec float64 `json:"total_processing_seconds"`
	SuccessRate        float64 `json:"success_rate"`
	AvgProcessingSec   float64 `json:"avg_processing_seconds"`
	AvgAudioSeconds    float64 `json:"avg_audio_duration_seconds"`
}

// Stats returns a snapshot of the running statistics.
func (o *Orchestrator) Stats() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	snap := Snapshot{
		MessagesProcessed:  o.processed,
		Successful:         o.succeeded,
		Failed:             o.failed,
		TotalAudioSeconds:  o.audioSec,
		TotalProcessingSec: o.procSec,
	}
	if o.processed > 0 {
		snap.SuccessRate = float64(o.succeeded) / float64(o.processed)
		snap.AvgProcessingSec = o.procSec / float64(o.processed)
		snap.AvgAudioSeconds = o.audioSec / float64(o.processed)
	}
	return snap
}

// Recent returns a copy of the bounded outcome history, newest last.
func (o *Orchestrator) Recent() []*types.TranscriptionOutcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*types.TranscriptionOutcome, len(o.recent))
	copy(out, o.recent)
	return out
}
