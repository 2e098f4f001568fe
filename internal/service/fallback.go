package service

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	unknownCustomerID = "UNKNOWN"
	defaultProduct    = "General Support"
	summaryMaxRunes   = 100
)

const (
	ActionEscalateTier2  = "escalate_to_tier_2"
	ActionSeniorSupport  = "assign_to_senior_support"
	ActionBilling        = "assign_to_billing"
	ActionDefaultSupport = "assign_to_support"
)

// FallbackTicket builds a ticket from the ML signals alone. The result depends
// only on its input.
func FallbackTicket(s Signals) Ticket {
	return Ticket{
		CustomerID:      customerIDFromEntities(s.Entities),
		Product:         firstProductMention(s.ProductMentions),
		Sentiment:       s.Sentiment.Sentiment,
		Urgency:         s.Urgency.Urgency,
		Entities:        nonNilEntities(s.Entities),
		Summary:         TruncateSummary(s.EmailText),
		NextAction:      NextAction(s.EmailText, s.Sentiment.Sentiment, s.Urgency.Urgency),
		ConfidenceScore: FuseConfidence(s.Sentiment.Confidence, s.Urgency.Confidence),
	}
}

// FuseConfidence is the mean of the sentiment and urgency confidences,
// clamped to [0,1].
func FuseConfidence(sentiment, urgency float64) float64 {
	return clamp01((sentiment + urgency) / 2)
}

// NextAction routes a ticket; the first matching rule wins.
func NextAction(text string, sentiment Sentiment, urgency Urgency) string {
	lower := strings.ToLower(text)
	switch {
	case urgency == UrgencyHigh:
		return ActionEscalateTier2
	case sentiment == SentimentNegative:
		return ActionSeniorSupport
	case strings.Contains(lower, "billing") || strings.Contains(lower, "payment"):
		return ActionBilling
	default:
		return ActionDefaultSupport
	}
}

// TruncateSummary keeps the first 100 characters of text and marks truncation with "...".
func TruncateSummary(text string) string {
	if utf8.RuneCountInString(text) <= summaryMaxRunes {
		return text
	}
	end := 0
	for range summaryMaxRunes {
		_, size := utf8.DecodeRuneInString(text[end:])
		end += size
	}
	return text[:end] + "..."
}

func customerIDFromEntities(entities []Entity) string {
	for _, e := range entities {
		if e.Label == "PERSON" || e.Label == "ORG" {
			return "C_" + cases.Upper(language.Und).String(strings.ReplaceAll(e.Text, " ", "_"))
		}
	}
	return unknownCustomerID
}

func firstProductMention(mentions []string) string {
	for _, m := range mentions {
		if m != "" {
			return m
		}
	}
	return defaultProduct
}

func nonNilEntities(entities []Entity) []Entity {
	if entities == nil {
		return []Entity{}
	}
	return entities
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
