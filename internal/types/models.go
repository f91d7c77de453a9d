package types

// Quality is the discrete trustworthiness tier assigned to a transcription.
type Quality string

const (
	QualityHigh   Quality = "high"
	QualityMedium Quality = "medium"
	QualityLow    Quality = "low"
	QualityFailed Quality = "failed"
)

// AudioStage tags where an asset sits in the processing chain.
type AudioStage string

const (
	StageRaw        AudioStage = "raw"
	StageNormalized AudioStage = "normalized"
)

// AudioAsset is a staged audio file on local disk plus its derived metadata.
// The file is owned exclusively by the pipeline invocation that created it
// and is deleted when that invocation finishes.
type AudioAsset struct {
	Path            string     `json:"path"`
	MimeType        string     `json:"mime_type,omitempty"`
	SizeBytes       int64      `json:"size_bytes"`
	DurationSeconds float64    `json:"duration_seconds"`
	Channels        int        `json:"channels"`
	SampleRate      int        `json:"sample_rate"`
	Stage           AudioStage `json:"stage"`
}

// Chapter is one auto-generated chapter of a longer recording.
type Chapter struct {
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	StartMs  int64  `json:"start_ms"`
	EndMs    int64  `json:"end_ms"`
}

// SafetyLabel is one content-safety finding on the transcript.
type SafetyLabel struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Severity   float64 `json:"severity"`
}

// TopicLabel is a single weighted topic classification.
type TopicLabel struct {
	Label     string  `json:"label"`
	Relevance float64 `json:"relevance"`
}

// Topic groups topic labels detected over a span of transcript text.
type Topic struct {
	Text   string       `json:"text"`
	Labels []TopicLabel `json:"labels"`
}

// SentimentSpan is the sentiment assigned to one span of the transcript.
type SentimentSpan struct {
	Text       string  `json:"text"`
	Sentiment  string  `json:"sentiment"`
	Confidence float64 `json:"confidence"`
	StartMs    int64   `json:"start_ms"`
	EndMs      int64   `json:"end_ms"`
}

// Enrichment holds the optional analysis extras a transcription service may
// return. Each field is populated only when the matching feature was requested
// AND the service actually returned it.
type Enrichment struct {
	Speakers      []string        `json:"speakers,omitempty"`
	Summary       string          `json:"summary,omitempty"`
	Chapters      []Chapter       `json:"chapters,omitempty"`
	ContentSafety []SafetyLabel   `json:"content_safety,omitempty"`
	Topics        []Topic         `json:"topics,omitempty"`
	Sentiment     []SentimentSpan `json:"sentiment,omitempty"`
}

// TranscriptionOutcome is the immutable result of processing one voice
// message. Quality is "failed" exactly when Err is set or Text is empty.
type TranscriptionOutcome struct {
	Text               string      `json:"text"`
	Confidence         float64     `json:"confidence"`
	Quality            Quality     `json:"quality"`
	Language           string      `json:"language,omitempty"`
	LanguageConfidence float64     `json:"language_confidence,omitempty"`
	DurationSeconds    float64     `json:"duration_seconds"`
	ProcessingSeconds  float64     `json:"processing_seconds"`
	FileSizeBytes      int64       `json:"file_size_bytes"`
	Format             string      `json:"format,omitempty"`
	Err                *Error      `json:"error,omitempty"`
	TranscriptID       string      `json:"transcript_id,omitempty"`
	AudioURL           string      `json:"audio_url,omitempty"`
	WordCount          int         `json:"word_count"`
	Characters         int         `json:"characters"`
	Enrichment         *Enrichment `json:"enrichment,omitempty"`
}

// Failed reports whether the outcome represents a failed transcription.
func (o *TranscriptionOutcome) Failed() bool {
	return o.Quality == QualityFailed
}
