package transcription

// Wire shapes of the transcription service API. Optional analysis fields are
// decoded into explicit types and copied into outcome metadata only when the
// matching feature was requested and the service actually returned the field.

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type wireUtterance struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

type wireChapter struct {
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	Start    int64  `json:"start"`
	End      int64  `json:"end"`
}

type wireSafetyLabel struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Severity   float64 `json:"severity"`
}

type wireSafety struct {
	Results []struct {
		Labels []wireSafetyLabel `json:"labels"`
	} `json:"results"`
}

type wireTopicLabel struct {
	Relevance float64 `json:"relevance"`
	Label     string  `json:"label"`
}

type wireTopics struct {
	Results []struct {
		Text   string           `json:"text"`
		Labels []wireTopicLabel `json:"labels"`
	} `json:"results"`
}

type wireSentiment struct {
	Text       string  `json:"text"`
	Sentiment  string  `json:"sentiment"`
	Confidence float64 `json:"confidence"`
	Start      int64   `json:"start"`
	End        int64   `json:"end"`
}

type transcriptResponse struct {
	ID                 string  `json:"id"`
	Status             string  `json:"status"`
	Text               string  `json:"text"`
	Confidence         float64 `json:"confidence"`
	Error              string  `json:"error,omitempty"`
	AudioURL           string  `json:"audio_url,omitempty"`
	LanguageCode       string  `json:"language_code,omitempty"`
	LanguageConfidence float64 `json:"language_confidence,omitempty"`

	Utterances               []wireUtterance `json:"utterances,omitempty"`
	Summary                  string          `json:"summary,omitempty"`
	Chapters                 []wireChapter   `json:"chapters,omitempty"`
	ContentSafetyLabels      *wireSafety     `json:"content_safety_labels,omitempty"`
	IABCategoriesResult      *wireTopics     `json:"iab_categories_result,omitempty"`
	SentimentAnalysisResults []wireSentiment `json:"sentiment_analysis_results,omitempty"`
}

type wordSearchMatch struct {
	Text    string     `json:"text"`
	Count   int        `json:"count"`
	Indexes [][2]int64 `json:"indexes"`
}

type wordSearchResponse struct {
	ID      string            `json:"id"`
	Matches []wordSearchMatch `json:"matches"`
}
