package mocks

import (
	"context"

	"github.com/godilite/ticket-triage/internal/service"
)

// MockEntityExtractor is a stub EntityExtractor. Nil funcs return no entities.
type MockEntityExtractor struct {
	ExtractEntitiesFunc        func(ctx context.Context, text string) ([]service.Entity, error)
	ExtractProductMentionsFunc func(ctx context.Context, text string) ([]string, error)
}

func (m *MockEntityExtractor) ExtractEntities(ctx context.Context, text string) ([]service.Entity, error) {
	if m.ExtractEntitiesFunc != nil {
		return m.ExtractEntitiesFunc(ctx, text)
	}
	return []service.Entity{}, nil
}

func (m *MockEntityExtractor) ExtractProductMentions(ctx context.Context, text string) ([]string, error) {
	if m.ExtractProductMentionsFunc != nil {
		return m.ExtractProductMentionsFunc(ctx, text)
	}
	return nil, nil
}

// MockSentimentAnalyzer is a stub SentimentAnalyzer. A nil func reports
// neutral with confidence 0.5.
type MockSentimentAnalyzer struct {
	AnalyzeSentimentFunc func(ctx context.Context, text string) (service.SentimentResult, error)
}

func (m *MockSentimentAnalyzer) AnalyzeSentiment(ctx context.Context, text string) (service.SentimentResult, error) {
	if m.AnalyzeSentimentFunc != nil {
		return m.AnalyzeSentimentFunc(ctx, text)
	}
	return service.SentimentResult{Sentiment: service.SentimentNeutral, Confidence: 0.5}, nil
}

// FixedSentiment returns an analyzer that always reports s with confidence c.
func FixedSentiment(s service.Sentiment, c float64) *MockSentimentAnalyzer {
	return &MockSentimentAnalyzer{
		AnalyzeSentimentFunc: func(context.Context, string) (service.SentimentResult, error) {
			return service.SentimentResult{Sentiment: s, Confidence: c}, nil
		},
	}
}

// MockTicketAgent is a stub TicketAgent.
type MockTicketAgent struct {
	SynthesizeTicketFunc func(ctx context.Context, signals service.Signals, model string) (service.Ticket, error)
	Calls                int
}

func (m *MockTicketAgent) SynthesizeTicket(ctx context.Context, signals service.Signals, model string) (service.Ticket, error) {
	m.Calls++
	if m.SynthesizeTicketFunc != nil {
		return m.SynthesizeTicketFunc(ctx, signals, model)
	}
	return service.Ticket{}, &service.SynthesisError{Stage: "request", Err: context.DeadlineExceeded}
}
