package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"voicescribe-go/internal/audio"
	"voicescribe-go/internal/config"
	"voicescribe-go/internal/logger"
	"voicescribe-go/internal/ratelimit"
	"voicescribe-go/internal/types"
)

// Client drives one voice clip through the external transcription service to
// a terminal state: validate, configure, submit, poll, retry.
type Client struct {
	cfg     *config.Config
	baseURL string
	http    *http.Client
	limiter *ratelimit.Limiter
	log     *logrus.Entry

	// poll loop tuning; tests shrink these
	pollInitial    time.Duration
	pollMultiplier float64
	pollCap        time.Duration
}

func NewClient(cfg *config.Config, limiter *ratelimit.Limiter) *Client {
	return &Client{
		cfg:            cfg,
		baseURL:        strings.TrimRight(cfg.APIBaseURL, "/"),
		http:           &http.Client{Timeout: 2 * time.Minute},
		limiter:        limiter,
		log:            logger.Component("transcription"),
		pollInitial:    2 * time.Second,
		pollMultiplier: 1.2,
		pollCap:        10 * time.Second,
	}
}

// Transcribe runs one normalized asset through rate limiting, validation, and
// the submit/poll/retry loop, and assembles the outcome. The returned error
// always carries a taxonomy kind; converting it to a failed outcome is the
// orchestrator's job.
func (c *Client) Transcribe(ctx context.Context, asset *types.AudioAsset, meta *audio.Metadata) (*types.TranscriptionOutcome, error) {
	start := time.Now()

	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, types.NewError(types.ErrNetwork, "rate limiter: %v", err)
	}
	defer c.limiter.Release()

	if err := c.Validate(asset, meta); err != nil {
		return nil, err
	}

	req := BuildRequest(c.cfg)

	resp, err := c.submitWithRetry(ctx, asset, req)
	if err != nil {
		return nil, err
	}

	outcome := c.assembleOutcome(resp, req, meta, time.Since(start).Seconds())
	c.log.WithFields(logrus.Fields{
		"duration":      outcome.DurationSeconds,
		"confidence":    outcome.Confidence,
		"quality":       outcome.Quality,
		"processing_s":  outcome.ProcessingSeconds,
		"text_length":   len(outcome.Text),
		"transcript_id": outcome.TranscriptID,
	}).Info("transcription completed")
	return outcome, nil
}

// Validate rejects assets the service would refuse anyway: missing file,
// oversize, too short, too long. Checks run in that order and the first
// violation wins. Validation failures are terminal.
func (c *Client) Validate(asset *types.AudioAsset, meta *audio.Metadata) error {
	if _, err := os.Stat(asset.Path); err != nil {
		return types.NewError(types.ErrValidation, "audio file not found: %s", asset.Path)
	}

	sizeMB := float64(meta.SizeBytes) / (1024 * 1024)
	if sizeMB > float64(c.cfg.MaxFileSizeMB) {
		return types.NewError(types.ErrValidation, "file too large: %.1fMB (max: %dMB)", sizeMB, c.cfg.MaxFileSizeMB)
	}
	if meta.Duration < c.cfg.MinDurationSeconds {
		return types.NewError(types.ErrValidation, "audio too short: %.1fs (min: %.1fs)", meta.Duration, c.cfg.MinDurationSeconds)
	}
	if meta.Duration > c.cfg.MaxDurationSeconds {
		return types.NewError(types.ErrValidation, "audio too long: %.1fs (max: %.1fs)", meta.Duration, c.cfg.MaxDurationSeconds)
	}
	return nil
}

// submitWithRetry wraps one full submit-and-poll round in an exponential
// backoff loop: base delay doubled per attempt with 10% jitter, capped at the
// configured maximum. Terminal error kinds stop the loop immediately instead
// of consuming the remaining attempt budget.
func (c *Client) submitWithRetry(ctx context.Context, asset *types.AudioAsset, req Request) (*transcriptResponse, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.RetryBaseDelay()
	bo.Multiplier = 2
	bo.RandomizationFactor = 0.1
	bo.MaxInterval = c.cfg.RetryMaxDelay()
	bo.MaxElapsedTime = 0

	retries := uint64(0)
	if c.cfg.RetryAttempts > 1 {
		retries = uint64(c.cfg.RetryAttempts - 1)
	}

	attempt := 0
	var out *transcriptResponse
	op := func() error {
		attempt++
		resp, err := c.attempt(ctx, asset, req)
		if err != nil {
			kind := classify(err)
			c.log.WithFields(logrus.Fields{
				"attempt":      attempt,
				"max_attempts": c.cfg.RetryAttempts,
				"error_kind":   kind,
				"error":        err.Error(),
			}).Warn("transcription attempt failed")
			if !kind.Retryable() {
				return backoff.Permanent(err)
			}
			return err
		}
		out = resp
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, retries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return out, nil
}

// attempt performs one upload + submit + poll round.
func (c *Client) attempt(ctx context.Context, asset *types.AudioAsset, req Request) (*transcriptResponse, error) {
	uploadURL, err := c.upload(ctx, asset.Path)
	if err != nil {
		return nil, err
	}

	req.AudioURL = uploadURL
	job, err := c.create(ctx, req)
	if err != nil {
		return nil, err
	}
	if job.Status == "error" {
		return nil, serviceError(job.Error)
	}

	return c.poll(ctx, job)
}

func (c *Client) upload(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", types.NewError(types.ErrValidation, "read audio file: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", bytes.NewReader(data))
	if err != nil {
		return "", types.NewError(types.ErrMalformedRequest, "build upload request: %v", err)
	}
	httpReq.Header.Set("authorization", c.cfg.APIKey)
	httpReq.Header.Set("content-type", "application/octet-stream")

	var up uploadResponse
	if err := c.do(httpReq, &up); err != nil {
		return "", err
	}
	if up.UploadURL == "" {
		return "", types.NewError(types.ErrServer, "upload returned no URL")
	}
	return up.UploadURL, nil
}

func (c *Client) create(ctx context.Context, req Request) (*transcriptResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, types.NewError(types.ErrMalformedRequest, "marshal transcript request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcript", bytes.NewReader(body))
	if err != nil {
		return nil, types.NewError(types.ErrMalformedRequest, "build transcript request: %v", err)
	}
	httpReq.Header.Set("authorization", c.cfg.APIKey)
	httpReq.Header.Set("content-type", "application/json")

	var job transcriptResponse
	if err := c.do(httpReq, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// poll waits for the job to reach a terminal state on an increasing interval,
// bounded by the configured overall wait ceiling.
func (c *Client) poll(ctx context.Context, job *transcriptResponse) (*transcriptResponse, error) {
	deadline := time.Now().Add(c.cfg.PollWaitCeiling())
	interval := c.pollInitial

	for job.Status == "processing" || job.Status == "queued" {
		if time.Now().After(deadline) {
			return nil, types.NewError(types.ErrTimeout,
				"transcription timed out after %.0fs", c.cfg.PollWaitCeilingSeconds)
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, types.NewError(types.ErrTimeout, "poll canceled: %v", ctx.Err())
		case <-timer.C:
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transcript/"+job.ID, nil)
		if err != nil {
			return nil, types.NewError(types.ErrMalformedRequest, "build poll request: %v", err)
		}
		httpReq.Header.Set("authorization", c.cfg.APIKey)

		var refreshed transcriptResponse
		if err := c.do(httpReq, &refreshed); err != nil {
			return nil, err
		}
		job = &refreshed

		interval = time.Duration(float64(interval) * c.pollMultiplier)
		if interval > c.pollCap {
			interval = c.pollCap
		}
	}

	switch job.Status {
	case "completed":
		return job, nil
	case "error":
		return nil, serviceError(job.Error)
	default:
		return nil, types.NewError(types.ErrServer, "transcription finished with status %q", job.Status)
	}
}

// do executes one HTTP exchange and decodes the JSON body, mapping transport
// and status failures onto the error taxonomy.
func (c *Client) do(req *http.Request, target any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return types.NewError(types.ErrNetwork, "request %s: %v", req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.NewError(types.ErrNetwork, "read response: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return types.NewError(statusKind(resp.StatusCode),
			"service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, target); err != nil {
		return types.NewError(types.ErrServer, "decode response: %v", err)
	}
	return nil
}

func statusKind(code int) types.ErrorKind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return types.ErrAuthentication
	case code == http.StatusRequestEntityTooLarge:
		return types.ErrPayloadTooLarge
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		return types.ErrMalformedRequest
	case code >= 500:
		return types.ErrServer
	}
	return types.ErrUnknown
}

// serviceError classifies an error message reported by the service itself.
func serviceError(msg string) error {
	if msg == "" {
		msg = "unknown transcription error"
	}
	return types.NewError(classifyMessage(msg), "transcription error: %s", msg)
}

// assembleOutcome folds the completed service response, the request that
// produced it, and the audio metadata into the immutable outcome value.
func (c *Client) assembleOutcome(resp *transcriptResponse, req Request, meta *audio.Metadata, elapsed float64) *types.TranscriptionOutcome {
	text := resp.Text
	out := &types.TranscriptionOutcome{
		Text:              text,
		Confidence:        resp.Confidence,
		Quality:           ClassifyQuality(resp.Confidence, text, meta.Duration, c.cfg.ConfidenceThreshold),
		DurationSeconds:   meta.Duration,
		ProcessingSeconds: elapsed,
		FileSizeBytes:     meta.SizeBytes,
		Format:            meta.OriginalFormat,
		TranscriptID:      resp.ID,
		AudioURL:          resp.AudioURL,
		WordCount:         countWords(text),
		Characters:        utf8.RuneCountInString(text),
	}

	if resp.LanguageCode != "" {
		out.Language = resp.LanguageCode
		out.LanguageConfidence = resp.LanguageConfidence
	} else {
		out.Language = c.cfg.DefaultLanguage
	}

	out.Enrichment = extractEnrichment(resp, req)
	return out
}

// extractEnrichment is best-effort: a field is copied only when the request
// asked for it and the service returned it; absence is not an error.
func extractEnrichment(resp *transcriptResponse, req Request) *types.Enrichment {
	enr := &types.Enrichment{}
	found := false

	if req.SpeakerLabels && len(resp.Utterances) > 0 {
		seen := map[string]bool{}
		for _, u := range resp.Utterances {
			if u.Speaker != "" && !seen[u.Speaker] {
				seen[u.Speaker] = true
				enr.Speakers = append(enr.Speakers, u.Speaker)
			}
		}
		found = found || len(enr.Speakers) > 0
	}

	if req.Summarization && resp.Summary != "" {
		enr.Summary = resp.Summary
		found = true
	}

	if req.AutoChapters && len(resp.Chapters) > 0 {
		for _, ch := range resp.Chapters {
			enr.Chapters = append(enr.Chapters, types.Chapter{
				Headline: ch.Headline,
				Summary:  ch.Summary,
				StartMs:  ch.Start,
				EndMs:    ch.End,
			})
		}
		found = true
	}

	if req.ContentSafety && resp.ContentSafetyLabels != nil {
		for _, r := range resp.ContentSafetyLabels.Results {
			for _, l := range r.Labels {
				enr.ContentSafety = append(enr.ContentSafety, types.SafetyLabel{
					Label:      l.Label,
					Confidence: l.Confidence,
					Severity:   l.Severity,
				})
			}
		}
		found = found || len(enr.ContentSafety) > 0
	}

	if req.IABCategories && resp.IABCategoriesResult != nil {
		for _, r := range resp.IABCategoriesResult.Results {
			topic := types.Topic{Text: r.Text}
			for _, l := range r.Labels {
				topic.Labels = append(topic.Labels, types.TopicLabel{Label: l.Label, Relevance: l.Relevance})
			}
			enr.Topics = append(enr.Topics, topic)
		}
		found = found || len(enr.Topics) > 0
	}

	if req.SentimentAnalysis && len(resp.SentimentAnalysisResults) > 0 {
		for _, s := range resp.SentimentAnalysisResults {
			enr.Sentiment = append(enr.Sentiment, types.SentimentSpan{
				Text:       s.Text,
				Sentiment:  s.Sentiment,
				Confidence: s.Confidence,
				StartMs:    s.Start,
				EndMs:      s.End,
			})
		}
		found = true
	}

	if !found {
		return nil
	}
	return enr
}

func countWords(text string) int {
	return len(strings.Fields(text))
}
