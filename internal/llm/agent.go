package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/godilite/ticket-triage/internal/service"
	"go.uber.org/zap"
)

const DefaultModel = "gpt-4o-mini"

const systemPrompt = `You are a customer support triage assistant. You turn customer emails into structured tickets used for automatic routing.

You receive the original email, entities extracted from it, product mentions, and sentiment and urgency classifications with confidences.

Reply with a single JSON object and nothing else, with exactly these fields:
  customer_id (string), product (string), sentiment ("positive"|"neutral"|"negative"),
  urgency ("low"|"medium"|"high"), entities (array of {text,label,start,end,confidence}),
  summary (string), next_action (string), confidence_score (number 0..1).

Guidelines:
- Be concise but accurate in the summary.
- Choose the most appropriate next action, for example escalate_to_tier_2, assign_to_billing, assign_to_senior_support, technical_support, send_documentation, schedule_call, close_resolved.
- If no clear customer ID is found, derive a reasonable one from the email.
- If no specific product is mentioned, infer it from context or use "General Support".`

// Agent asks a chat model to synthesize a ticket from gathered signals.
type Agent struct {
	client       Completer
	logger       *zap.Logger
	defaultModel string
	temperature  float64
}

type AgentOption func(*Agent)

func WithDefaultModel(model string) AgentOption {
	return func(a *Agent) {
		if model != "" {
			a.defaultModel = model
		}
	}
}

func WithTemperature(t float64) AgentOption {
	return func(a *Agent) { a.temperature = t }
}

func NewAgent(client Completer, logger *zap.Logger, opts ...AgentOption) *Agent {
	if client == nil {
		panic("llm client must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Agent{
		client:       client,
		logger:       logger.Named("llm"),
		defaultModel: DefaultModel,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SynthesizeTicket returns the model's ticket. Every failure is a
// *service.SynthesisError; the caller validates the ticket.
func (a *Agent) SynthesizeTicket(ctx context.Context, signals service.Signals, model string) (service.Ticket, error) {
	if model == "" {
		model = a.defaultModel
	}
	prompt, err := buildPrompt(signals)
	if err != nil {
		return service.Ticket{}, &service.SynthesisError{Stage: "prompt", Err: err}
	}

	temperature := a.temperature
	resp, err := a.client.Complete(ctx, ChatRequest{
		Model: model,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature:    &temperature,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return service.Ticket{}, &service.SynthesisError{Stage: "request", Err: err}
	}
	a.logger.Debug("completion received",
		zap.String("model", resp.Model),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens))

	text, err := resp.Text()
	if err != nil {
		return service.Ticket{}, &service.SynthesisError{Stage: "parse", Err: err}
	}
	ticket, err := ParseTicket(text)
	if err != nil {
		return service.Ticket{}, &service.SynthesisError{Stage: "parse", Err: err}
	}
	return ticket, nil
}

type promptEntity struct {
	Text       string  `json:"text"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

func buildPrompt(s service.Signals) (string, error) {
	entities := make([]promptEntity, len(s.Entities))
	for i, e := range s.Entities {
		entities[i] = promptEntity{Text: e.Text, Label: e.Label, Confidence: e.Confidence}
	}
	entJSON, err := json.Marshal(entities)
	if err != nil {
		return "", err
	}
	products := s.ProductMentions
	if products == nil {
		products = []string{}
	}
	prodJSON, err := json.Marshal(products)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Analyze this customer email and create a structured ticket.\n\n")
	fmt.Fprintf(&b, "Email:\n%s\n\n", s.EmailText)
	b.WriteString("Pre-analysis results:\n")
	fmt.Fprintf(&b, "- Entities found: %s\n", entJSON)
	fmt.Fprintf(&b, "- Product mentions: %s\n", prodJSON)
	fmt.Fprintf(&b, "- Sentiment: %s (confidence: %.2f)\n", s.Sentiment.Sentiment, s.Sentiment.Confidence)
	fmt.Fprintf(&b, "- Urgency: %s (confidence: %.2f)\n", s.Urgency.Urgency, s.Urgency.Confidence)
	b.WriteString("\nCreate a complete ticket with all required fields.")
	return b.String(), nil
}

// ParseTicket decodes a ticket from model output, tolerating a surrounding
// markdown code fence.
func ParseTicket(text string) (service.Ticket, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	if text == "" {
		return service.Ticket{}, fmt.Errorf("empty completion")
	}

	var t service.Ticket
	if err := json.Unmarshal([]byte(text), &t); err != nil {
		return service.Ticket{}, fmt.Errorf("decode ticket: %w", err)
	}
	return t, nil
}
