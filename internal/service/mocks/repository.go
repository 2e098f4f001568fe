package mocks

import (
	"context"
	"errors"

	"github.com/godilite/ticket-triage/internal/service"
)

// MockTicketRepository is a mock implementation of the TicketRepository interface
// for testing the service layer.
type MockTicketRepository struct {
	SaveTicketFunc  func(ctx context.Context, rec service.Record) error
	GetTicketFunc   func(ctx context.Context, id string) (service.Record, error)
	ListTicketsFunc func(ctx context.Context, limit int) ([]service.Record, error)
}

// SaveTicket implements the TicketRepository interface
func (m *MockTicketRepository) SaveTicket(ctx context.Context, rec service.Record) error {
	if m.SaveTicketFunc != nil {
		return m.SaveTicketFunc(ctx, rec)
	}
	return nil
}

// GetTicket implements the TicketRepository interface
func (m *MockTicketRepository) GetTicket(ctx context.Context, id string) (service.Record, error) {
	if m.GetTicketFunc != nil {
		return m.GetTicketFunc(ctx, id)
	}
	return service.Record{}, errors.New("GetTicketFunc not implemented")
}

// ListTickets implements the TicketRepository interface
func (m *MockTicketRepository) ListTickets(ctx context.Context, limit int) ([]service.Record, error) {
	if m.ListTicketsFunc != nil {
		return m.ListTicketsFunc(ctx, limit)
	}
	return nil, errors.New("ListTicketsFunc not implemented")
}

// MockTicketPublisher is a mock implementation of the TicketPublisher interface.
type MockTicketPublisher struct {
	PublishFunc func(ctx context.Context, rec service.Record) error
}

// Publish implements the TicketPublisher interface
func (m *MockTicketPublisher) Publish(ctx context.Context, rec service.Record) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, rec)
	}
	return nil
}
