package grpc

import (
	"context"

	"github.com/godilite/ticket-triage/internal/service"
)

// TriageService is the part of the service layer exposed over gRPC.
type TriageService interface {
	Triage(ctx context.Context, req service.Request) (service.Result, error)
	GetTicket(ctx context.Context, id string) (service.Record, error)
	ListTickets(ctx context.Context, limit int) ([]service.Record, error)
}
