package service

import (
	"strings"
)

var (
	defaultHighUrgencyKeywords = []string{
		"urgent", "emergency", "asap", "immediately", "critical",
		"broken", "down", "not working", "error", "bug", "crash",
		"angry", "frustrated", "disappointed", "unacceptable",
	}
	defaultMediumUrgencyKeywords = []string{
		"soon", "issue", "problem", "question", "help",
		"support", "assistance", "confused", "unclear",
	}
)

// UrgencyClassifier scores email text against two keyword sets.
type UrgencyClassifier struct {
	high   []string
	medium []string
}

type UrgencyOption func(*UrgencyClassifier)

// WithKeywords replaces the default keyword sets. Keywords are matched in lower case.
func WithKeywords(high, medium []string) UrgencyOption {
	return func(c *UrgencyClassifier) {
		c.high = lowerAll(high)
		c.medium = lowerAll(medium)
	}
}

func NewUrgencyClassifier(opts ...UrgencyOption) *UrgencyClassifier {
	c := &UrgencyClassifier{
		high:   defaultHighUrgencyKeywords,
		medium: defaultMediumUrgencyKeywords,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify counts keyword occurrences, shifts the high score by sentiment and
// applies the first matching rule of the urgency policy.
func (c *UrgencyClassifier) Classify(text string, sentiment Sentiment) UrgencyResult {
	lower := strings.ToLower(text)

	high := countKeywords(lower, c.high)
	medium := countKeywords(lower, c.medium)

	switch sentiment {
	case SentimentNegative:
		high += 2
	case SentimentPositive:
		high--
	}

	res := UrgencyResult{KeywordMatches: KeywordMatches{High: high, Medium: medium}}
	switch {
	case high >= 3:
		res.Urgency = UrgencyHigh
		res.Confidence = min(0.9, 0.5+float64(high)*0.1)
	case high >= 1 || medium >= 2:
		res.Urgency = UrgencyMedium
		res.Confidence = min(0.8, 0.4+float64(high+medium)*0.1)
	default:
		res.Urgency = UrgencyLow
		res.Confidence = 0.6
	}
	return res
}

// countKeywords counts how many keywords occur as substrings; each keyword
// contributes at most one.
func countKeywords(lower string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			n++
		}
	}
	return n
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
