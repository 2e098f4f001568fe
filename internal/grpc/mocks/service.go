package mocks

import (
	"context"
	"errors"

	"github.com/godilite/ticket-triage/internal/service"
)

// MockTriageService is a mock implementation of the TriageService interface
// for testing the handler layer. It uses function-based mocking for flexibility.
type MockTriageService struct {
	TriageFunc      func(ctx context.Context, req service.Request) (service.Result, error)
	GetTicketFunc   func(ctx context.Context, id string) (service.Record, error)
	ListTicketsFunc func(ctx context.Context, limit int) ([]service.Record, error)
}

// Triage implements the TriageService interface
func (m *MockTriageService) Triage(ctx context.Context, req service.Request) (service.Result, error) {
	if m.TriageFunc != nil {
		return m.TriageFunc(ctx, req)
	}
	return service.Result{}, errors.New("TriageFunc not implemented")
}

// GetTicket implements the TriageService interface
func (m *MockTriageService) GetTicket(ctx context.Context, id string) (service.Record, error) {
	if m.GetTicketFunc != nil {
		return m.GetTicketFunc(ctx, id)
	}
	return service.Record{}, errors.New("GetTicketFunc not implemented")
}

// ListTickets implements the TriageService interface
func (m *MockTriageService) ListTickets(ctx context.Context, limit int) ([]service.Record, error) {
	if m.ListTicketsFunc != nil {
		return m.ListTicketsFunc(ctx, limit)
	}
	return nil, errors.New("ListTicketsFunc not implemented")
}
