package display

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/godilite/ticket-triage/internal/service"
)

func sample() service.Ticket {
	return service.Ticket{
		CustomerID:      "C_ACME_CORP",
		Product:         "Widget-X",
		Sentiment:       service.SentimentNegative,
		Urgency:         service.UrgencyHigh,
		Entities:        []service.Entity{{Text: "Acme Corp", Label: "ORG", Confidence: 0.8}},
		Summary:         "Widget-X down",
		NextAction:      service.ActionEscalateTier2,
		ConfidenceScore: 0.855,
	}
}

func TestTicket(t *testing.T) {
	out := Ticket(sample(), "Our Widget-X is down. - Acme Corp")

	for _, want := range []string{"Original Email", "Widget-X is down", "C_ACME_CORP", "Negative", "High", "escalate_to_tier_2", "85.50%", "• Acme Corp (ORG)"} {
		assert.Contains(t, out, want)
	}
}

func TestTicket_NoEntitiesAndLongEmail(t *testing.T) {
	tk := sample()
	tk.Entities = []service.Entity{}
	email := strings.Repeat("a", 400)

	out := Ticket(tk, email)
	assert.NotContains(t, out, "Extracted Entities")
	assert.Contains(t, out, "...")
	assert.NotContains(t, out, strings.Repeat("a", 301))
}

func TestBatchSummary(t *testing.T) {
	var tickets []service.Ticket
	for i := range 12 {
		tk := sample()
		tk.CustomerID = fmt.Sprintf("C_%02d", i)
		tickets = append(tickets, tk)
	}

	out := BatchSummary(tickets, service.SummarizeBatch(tickets))
	assert.Contains(t, out, "C_09")
	assert.NotContains(t, out, "C_10")
	assert.Contains(t, out, "... and 2 more tickets")
	assert.Contains(t, out, "Total tickets: 12")
	assert.Contains(t, out, "Urgency distribution: high=12")
	assert.Contains(t, out, "Average confidence: 0.85")
}

func TestBatchSummary_Empty(t *testing.T) {
	assert.Contains(t, BatchSummary(nil, service.SummarizeBatch(nil)), "No tickets processed")
}

func TestCountsSorted(t *testing.T) {
	got := counts(map[service.Sentiment]int{service.SentimentPositive: 1, service.SentimentNegative: 2})
	assert.Equal(t, "negative=2 positive=1", got)
}
