package transcription

import (
	"voicescribe-go/internal/config"
)

// piiPolicyNames maps configuration policy names to the service's policy
// identifiers. Unrecognized names are silently dropped, not an error.
var piiPolicyNames = map[string]string{
	"person_name":            "person_name",
	"phone_number":           "phone_number",
	"email_address":          "email_address",
	"date_of_birth":          "date_of_birth",
	"credit_card_number":     "credit_card_number",
	"social_security_number": "us_social_security_number",
	"medical_condition":      "medical_condition",
	"drug":                   "drug",
	"location":               "location",
}

// Request is the resolved feature configuration for one transcription call.
// It is built fresh per attempt from the static configuration and never
// mutated afterwards. Exactly one of LanguageDetection and LanguageCode is
// active.
type Request struct {
	AudioURL          string   `json:"audio_url"`
	LanguageDetection bool     `json:"language_detection,omitempty"`
	LanguageCode      string   `json:"language_code,omitempty"`
	Punctuate         bool     `json:"punctuate"`
	FormatText        bool     `json:"format_text"`
	Disfluencies      bool     `json:"disfluencies,omitempty"`
	SpeakerLabels     bool     `json:"speaker_labels,omitempty"`
	RedactPII         bool     `json:"redact_pii,omitempty"`
	RedactPIIPolicies []string `json:"redact_pii_policies,omitempty"`
	RedactPIISub      string   `json:"redact_pii_sub,omitempty"`
	Summarization     bool     `json:"summarization,omitempty"`
	AutoChapters      bool     `json:"auto_chapters,omitempty"`
	ContentSafety     bool     `json:"content_safety,omitempty"`
	IABCategories     bool     `json:"iab_categories,omitempty"`
	EntityDetection   bool     `json:"entity_detection,omitempty"`
	SentimentAnalysis bool     `json:"sentiment_analysis,omitempty"`
	BoostParam        string   `json:"boost_param,omitempty"`
}

// BuildRequest maps the static configuration to a per-call request.
func BuildRequest(cfg *config.Config) Request {
	req := Request{
		LanguageDetection: cfg.AutoLanguageDetection,
		Punctuate:         cfg.Punctuation,
		FormatText:        cfg.FormatText,
		Disfluencies:      cfg.Disfluencies,
		SpeakerLabels:     cfg.SpeakerLabels,
		Summarization:     cfg.Summarization,
		AutoChapters:      cfg.AutoChapters,
		ContentSafety:     cfg.ContentSafety,
		IABCategories:     cfg.IABCategories || cfg.TopicDetection,
		EntityDetection:   cfg.EntityDetection,
		SentimentAnalysis: cfg.SentimentAnalysis,
		BoostParam:        cfg.BoostParam,
	}

	if !cfg.AutoLanguageDetection {
		req.LanguageCode = cfg.DefaultLanguage
	}

	if cfg.PIIRedaction {
		policies := make([]string, 0, len(cfg.PIIPolicies))
		for _, name := range cfg.PIIPolicies {
			if mapped, ok := piiPolicyNames[name]; ok {
				policies = append(policies, mapped)
			}
		}
		if len(policies) > 0 {
			req.RedactPII = true
			req.RedactPIIPolicies = policies
			req.RedactPIISub = cfg.PIISubstitution
		}
	}

	return req
}
