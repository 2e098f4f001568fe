package service

import (
	"context"
)

// EntityExtractor finds named entities and product mentions in email text.
type EntityExtractor interface {
	ExtractEntities(ctx context.Context, text string) ([]Entity, error)
	ExtractProductMentions(ctx context.Context, text string) ([]string, error)
}

// SentimentAnalyzer labels the overall sentiment of email text.
type SentimentAnalyzer interface {
	AnalyzeSentiment(ctx context.Context, text string) (SentimentResult, error)
}

// TicketAgent asks a language model for a complete ticket. Any returned error
// is a *SynthesisError.
type TicketAgent interface {
	SynthesizeTicket(ctx context.Context, signals Signals, model string) (Ticket, error)
}

// TicketRepository defines the storage operations used by the service.
type TicketRepository interface {
	SaveTicket(ctx context.Context, rec Record) error
	GetTicket(ctx context.Context, id string) (Record, error)
	ListTickets(ctx context.Context, limit int) ([]Record, error)
}

// TicketPublisher forwards finished tickets to downstream routing.
type TicketPublisher interface {
	Publish(ctx context.Context, rec Record) error
}
