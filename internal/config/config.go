package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the immutable, environment-sourced configuration for the voice
// pipeline. It is built once at startup, validated eagerly, and passed by
// pointer into every component; nothing re-reads the environment per call.
type Config struct {
	// Transcription service
	APIKey     string `env:"TRANSCRIPTION_API_KEY"`
	APIBaseURL string `env:"TRANSCRIPTION_API_URL" env-default:"https://api.assemblyai.com/v2"`

	// Input limits
	MaxFileSizeMB      int     `env:"MAX_FILE_SIZE_MB" env-default:"25"`
	MinDurationSeconds float64 `env:"MIN_DURATION_SECONDS" env-default:"0.5"`
	MaxDurationSeconds float64 `env:"MAX_DURATION_SECONDS" env-default:"600"`

	// Quality heuristics. Empirically chosen defaults carried over from the
	// previous deployment; tune at the product level, not here.
	ConfidenceThreshold float64 `env:"CONFIDENCE_THRESHOLD" env-default:"0.6"`

	// Language handling
	DefaultLanguage       string   `env:"DEFAULT_LANGUAGE" env-default:"en"`
	SupportedLanguages    []string `env:"SUPPORTED_LANGUAGES" env-default:"en,ru,es,fr,de,it,pt,zh,hi,ja"`
	AutoLanguageDetection bool     `env:"ENABLE_LANGUAGE_DETECTION" env-default:"true"`

	// Transcript shaping
	Punctuation  bool `env:"ENABLE_PUNCTUATION" env-default:"true"`
	FormatText   bool `env:"ENABLE_FORMAT_TEXT" env-default:"true"`
	Disfluencies bool `env:"ENABLE_DISFLUENCIES" env-default:"false"`

	// Analysis features
	SpeakerLabels     bool     `env:"ENABLE_SPEAKER_LABELS" env-default:"false"`
	PIIRedaction      bool     `env:"ENABLE_PII_REDACTION" env-default:"false"`
	PIIPolicies       []string `env:"PII_REDACTION_POLICIES" env-default:"person_name,phone_number,email_address"`
	PIISubstitution   string   `env:"PII_SUBSTITUTION_POLICY" env-default:"hash"`
	Summarization     bool     `env:"ENABLE_SUMMARIZATION" env-default:"false"`
	AutoChapters      bool     `env:"ENABLE_AUTO_CHAPTERS" env-default:"false"`
	ContentSafety     bool     `env:"ENABLE_CONTENT_SAFETY" env-default:"false"`
	TopicDetection    bool     `env:"ENABLE_TOPIC_DETECTION" env-default:"false"`
	IABCategories     bool     `env:"ENABLE_IAB_CATEGORIES" env-default:"false"`
	EntityDetection   bool     `env:"ENABLE_ENTITY_DETECTION" env-default:"false"`
	SentimentAnalysis bool     `env:"ENABLE_SENTIMENT_ANALYSIS" env-default:"false"`
	BoostParam        string   `env:"BOOST_PARAM" env-default:"default"`

	// Throughput and retries
	ConcurrentRequests     int     `env:"CONCURRENT_REQUESTS" env-default:"3"`
	RetryAttempts          int     `env:"RETRY_ATTEMPTS" env-default:"3"`
	RetryBaseDelaySeconds  float64 `env:"RETRY_BASE_DELAY_SECONDS" env-default:"2"`
	RetryMaxDelaySeconds   float64 `env:"RETRY_MAX_DELAY_SECONDS" env-default:"60"`
	PollWaitCeilingSeconds float64 `env:"POLL_WAIT_CEILING_SECONDS" env-default:"300"`

	// Housekeeping and service surface
	TempMaxAgeHours int    `env:"TEMP_MAX_AGE_HOURS" env-default:"24"`
	Port            string `env:"PORT" env-default:"8080"`
	ReportPath      string `env:"REPORT_PATH" env-default:"voicescribe_report.xlsx"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("TRANSCRIPTION_API_KEY is required")
	}
	if c.MaxFileSizeMB <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE_MB must be positive, got %d", c.MaxFileSizeMB)
	}
	if c.MinDurationSeconds < 0 || c.MinDurationSeconds >= c.MaxDurationSeconds {
		return fmt.Errorf("duration bounds invalid: min %.1fs, max %.1fs", c.MinDurationSeconds, c.MaxDurationSeconds)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("CONFIDENCE_THRESHOLD must be within [0,1], got %g", c.ConfidenceThreshold)
	}
	if c.ConcurrentRequests <= 0 {
		return fmt.Errorf("CONCURRENT_REQUESTS must be positive, got %d", c.ConcurrentRequests)
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("RETRY_ATTEMPTS must not be negative, got %d", c.RetryAttempts)
	}
	if c.RetryBaseDelaySeconds <= 0 || c.RetryMaxDelaySeconds < c.RetryBaseDelaySeconds {
		return fmt.Errorf("retry delays invalid: base %.1fs, max %.1fs", c.RetryBaseDelaySeconds, c.RetryMaxDelaySeconds)
	}
	switch c.PIISubstitution {
	case "hash", "entity_type":
	default:
		return fmt.Errorf("PII_SUBSTITUTION_POLICY must be hash or entity_type, got %q", c.PIISubstitution)
	}
	switch c.BoostParam {
	case "low", "default", "high":
	default:
		return fmt.Errorf("BOOST_PARAM must be low, default or high, got %q", c.BoostParam)
	}
	return nil
}

func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelaySeconds * float64(time.Second))
}

func (c *Config) RetryMaxDelay() time.Duration {
	return time.Duration(c.RetryMaxDelaySeconds * float64(time.Second))
}

func (c *Config) PollWaitCeiling() time.Duration {
	return time.Duration(c.PollWaitCeilingSeconds * float64(time.Second))
}

func (c *Config) TempMaxAge() time.Duration {
	return time.Duration(c.TempMaxAgeHours) * time.Hour
}
