package service

import (
	"fmt"
	"time"
)

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Valid reports whether s is one of the three sentiment labels.
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return true
	}
	return false
}

type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// Valid reports whether u is one of the three urgency labels.
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return true
	}
	return false
}

// Entity is a labelled span of the email text.
type Entity struct {
	Text       string  `json:"text" yaml:"text"`
	Label      string  `json:"label" yaml:"label"`
	Start      int     `json:"start" yaml:"start"`
	End        int     `json:"end" yaml:"end"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Ticket is the structured output for one triaged email. Its JSON form is the
// wire contract of every surface.
type Ticket struct {
	CustomerID      string    `json:"customer_id" yaml:"customer_id"`
	Product         string    `json:"product" yaml:"product"`
	Sentiment       Sentiment `json:"sentiment" yaml:"sentiment"`
	Urgency         Urgency   `json:"urgency" yaml:"urgency"`
	Entities        []Entity  `json:"entities" yaml:"entities"`
	Summary         string    `json:"summary" yaml:"summary"`
	NextAction      string    `json:"next_action" yaml:"next_action"`
	ConfidenceScore float64   `json:"confidence_score" yaml:"confidence_score"`
}

// Validate checks the field invariants of t.
func (t Ticket) Validate() error {
	switch {
	case t.CustomerID == "":
		return &ValidationError{Field: "customer_id", Reason: "must not be empty"}
	case t.Product == "":
		return &ValidationError{Field: "product", Reason: "must not be empty"}
	case !t.Sentiment.Valid():
		return &ValidationError{Field: "sentiment", Reason: fmt.Sprintf("invalid value %q", t.Sentiment)}
	case !t.Urgency.Valid():
		return &ValidationError{Field: "urgency", Reason: fmt.Sprintf("invalid value %q", t.Urgency)}
	case t.Entities == nil:
		return &ValidationError{Field: "entities", Reason: "must not be null"}
	case t.Summary == "":
		return &ValidationError{Field: "summary", Reason: "must not be empty"}
	case t.NextAction == "":
		return &ValidationError{Field: "next_action", Reason: "must not be empty"}
	case t.ConfidenceScore < 0 || t.ConfidenceScore > 1:
		return &ValidationError{Field: "confidence_score", Reason: fmt.Sprintf("%v outside [0,1]", t.ConfidenceScore)}
	}
	for i, e := range t.Entities {
		if e.Confidence < 0 || e.Confidence > 1 {
			return &ValidationError{Field: fmt.Sprintf("entities[%d].confidence", i), Reason: fmt.Sprintf("%v outside [0,1]", e.Confidence)}
		}
	}
	return nil
}

type SentimentResult struct {
	Sentiment  Sentiment
	Confidence float64
	Scores     map[Sentiment]float64
}

type KeywordMatches struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
}

type UrgencyResult struct {
	Urgency        Urgency        `json:"urgency"`
	Confidence     float64        `json:"confidence"`
	KeywordMatches KeywordMatches `json:"keyword_matches"`
}

// Signals holds everything gathered from the ML components for one email.
type Signals struct {
	EmailText       string
	Entities        []Entity
	ProductMentions []string
	Sentiment       SentimentResult
	Urgency         UrgencyResult
}

// Path identifies which branch produced a ticket.
type Path string

const (
	PathLLM      Path = "llm"
	PathFallback Path = "fallback"
)

type Request struct {
	EmailText  string
	Model      string
	DisableLLM bool
}

// Record is a ticket together with its provenance, as stored and published.
type Record struct {
	ID        string    `json:"id" yaml:"id"`
	Ticket    Ticket    `json:"ticket" yaml:"ticket"`
	Path      Path      `json:"path" yaml:"path"`
	Model     string    `json:"model,omitempty" yaml:"model,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}
