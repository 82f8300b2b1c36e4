package domain

import "encoding/json"

// NoDataAvailable marks an absent search result or sentiment.
const NoDataAvailable = "no data available"

// SearchSnippet is one topic returned by the web search provider. Only Snippet
// feeds sentiment; the remaining fields are carried for the assessment prompt.
type SearchSnippet struct {
	Snippet  string `json:"snippet,omitempty"`
	Text     string `json:"Text,omitempty"`
	FirstURL string `json:"FirstURL,omitempty"`
}

// SentimentScore is a single classifier label with its confidence.
type SentimentScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Sentiment is either a classifier result or the NoDataAvailable marker.
type Sentiment struct {
	Scores []SentimentScore
	NoData bool
}

// MarshalJSON renders the marker as a plain string and scores as a list.
func (s Sentiment) MarshalJSON() ([]byte, error) {
	if s.NoData {
		return json.Marshal(NoDataAvailable)
	}
	scores := s.Scores
	if scores == nil {
		scores = []SentimentScore{}
	}
	return json.Marshal(scores)
}

// EntityEnrichment is the public-data context gathered for one counterparty.
type EntityEnrichment struct {
	EntityName    string          `json:"entityName"`
	SearchResults []SearchSnippet `json:"searchResults"`
	Sentiment     Sentiment       `json:"sentiment"`
}
