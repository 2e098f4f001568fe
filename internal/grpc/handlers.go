package grpc

import (
	"context"
	"errors"
	"time"

	pb "github.com/godilite/ticket-triage/api/v1"
	"github.com/godilite/ticket-triage/internal/service"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	defaultGRPCTimeout = 10 * time.Second
	// LLM synthesis alone may take up to the client timeout.
	defaultTriageTimeout = 45 * time.Second
)

type triageEmailRequest struct {
	EmailText string `json:"email_text"`
	Model     string `json:"model"`
	Demo      bool   `json:"demo"`
}

type getTicketRequest struct {
	ID string `json:"id"`
}

type listTicketsRequest struct {
	Limit int `json:"limit"`
}

type listTicketsResponse struct {
	Tickets []service.Record `json:"tickets"`
}

type GRPCHandlers struct {
	pb.UnimplementedTicketTriageServer
	triage        TriageService
	logger        *zap.Logger
	triageTimeout time.Duration
}

// NewGRPCHandlers initializes the gRPC handlers.
func NewGRPCHandlers(triage TriageService, logger *zap.Logger, triageTimeout time.Duration) *GRPCHandlers {
	if triage == nil {
		panic("nil TriageService provided to NewGRPCHandlers")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if triageTimeout <= 0 {
		triageTimeout = defaultTriageTimeout
	}
	return &GRPCHandlers{
		triage:        triage,
		logger:        logger.Named("grpc-handler"),
		triageTimeout: triageTimeout,
	}
}

func decodeRequest(in *structpb.Struct, dest any) error {
	if err := pb.Decode(in, dest); err != nil {
		return status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}
	return nil
}

func (s *GRPCHandlers) encodeResponse(op string, v any) (*structpb.Struct, error) {
	out, err := pb.Encode(v)
	if err != nil {
		s.logger.Error("failed to encode response", zap.String("op", op), zap.Error(err))
		return nil, status.Errorf(codes.Internal, "%s failed: encode response", op)
	}
	return out, nil
}

func (s *GRPCHandlers) handleError(ctx context.Context, op string, err error) error {
	switch ctx.Err() {
	case context.Canceled:
		s.logger.Warn("request canceled", zap.String("op", op))
		return status.Error(codes.Canceled, "request canceled")
	case context.DeadlineExceeded:
		s.logger.Warn("request timeout", zap.String("op", op))
		return status.Error(codes.DeadlineExceeded, "request timed out")
	}

	var validationErr *service.ValidationError
	switch {
	case errors.Is(err, service.ErrEmptyEmail):
		return status.Error(codes.InvalidArgument, "email_text is required")
	case errors.As(err, &validationErr):
		s.logger.Warn("ticket validation failed", zap.String("op", op), zap.Error(err))
		return status.Error(codes.InvalidArgument, validationErr.Error())
	case errors.Is(err, service.ErrModelUnavailable):
		s.logger.Error("model unavailable", zap.String("op", op), zap.Error(err))
		return status.Error(codes.Unavailable, "model unavailable")
	case errors.Is(err, service.ErrTicketNotFound):
		s.logger.Info("ticket not found", zap.String("op", op))
		return status.Error(codes.NotFound, "ticket not found")
	case errors.Is(err, service.ErrStorageFailure):
		s.logger.Error("storage failure", zap.String("op", op), zap.Error(err))
		return status.Error(codes.Internal, "database error")
	default:
		s.logger.Error("unexpected error", zap.String("op", op), zap.Error(err))
		return status.Errorf(codes.Internal, "%s failed: %v", op, err)
	}
}

func (s *GRPCHandlers) TriageEmail(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req triageEmailRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	if req.EmailText == "" {
		return nil, status.Error(codes.InvalidArgument, "email_text is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.triageTimeout)
	defer cancel()

	res, err := s.triage.Triage(ctx, service.Request{
		EmailText:  req.EmailText,
		Model:      req.Model,
		DisableLLM: req.Demo,
	})
	if err != nil {
		return nil, s.handleError(ctx, "TriageEmail", err)
	}

	return s.encodeResponse("TriageEmail", res.Record)
}

func (s *GRPCHandlers) GetTicket(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req getTicketRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	if req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	rec, err := s.triage.GetTicket(ctx, req.ID)
	if err != nil {
		return nil, s.handleError(ctx, "GetTicket", err)
	}

	return s.encodeResponse("GetTicket", rec)
}

func (s *GRPCHandlers) ListTickets(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req listTicketsRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	if req.Limit < 0 {
		return nil, status.Error(codes.InvalidArgument, "limit must not be negative")
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	recs, err := s.triage.ListTickets(ctx, req.Limit)
	if err != nil {
		return nil, s.handleError(ctx, "ListTickets", err)
	}
	if recs == nil {
		recs = []service.Record{}
	}

	return s.encodeResponse("ListTickets", listTicketsResponse{Tickets: recs})
}
