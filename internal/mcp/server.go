// Package mcp exposes triage as Model Context Protocol tools over stdio.
package mcp

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/godilite/ticket-triage/internal/service"
)

type Triager interface {
	Triage(ctx context.Context, req service.Request) (service.Result, error)
}

// Server wraps the MCP SDK server with the triage tools registered.
type Server struct {
	MCPServer *sdkmcp.Server

	triager Triager
	urgency *service.UrgencyClassifier
	logger  *zap.Logger
}

func NewServer(triager Triager, urgency *service.UrgencyClassifier, logger *zap.Logger) *Server {
	if triager == nil {
		panic("nil Triager provided to mcp.NewServer")
	}
	if urgency == nil {
		urgency = service.NewUrgencyClassifier()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		MCPServer: sdkmcp.NewServer(&sdkmcp.Implementation{Name: "ticket-triage", Version: service.Version}, nil),
		triager:   triager,
		urgency:   urgency,
		logger:    logger.Named("mcp"),
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "triage_email",
		Description: "Triage a customer support email into a structured ticket with sentiment, urgency, entities and the recommended next action.",
	}, s.handleTriageEmail)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "classify_urgency",
		Description: "Classify the urgency of a text given its sentiment label, using the keyword policy only.",
	}, s.handleClassifyUrgency)
}

// Run serves over stdin/stdout until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server over stdio")
	return s.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}

type triageEmailInput struct {
	EmailText string `json:"email_text" jsonschema:"the raw customer email text"`
	Demo      bool   `json:"demo,omitempty" jsonschema:"skip the language model and use the rule-based ticket"`
}

type triageEmailOutput struct {
	ID     string         `json:"id"`
	Path   string         `json:"path"`
	Ticket service.Ticket `json:"ticket"`
}

type classifyUrgencyInput struct {
	Text      string `json:"text" jsonschema:"text to classify"`
	Sentiment string `json:"sentiment,omitempty" jsonschema:"positive, neutral or negative (default neutral)"`
}

func (s *Server) handleTriageEmail(ctx context.Context, _ *sdkmcp.CallToolRequest, input triageEmailInput) (*sdkmcp.CallToolResult, triageEmailOutput, error) {
	if input.EmailText == "" {
		return nil, triageEmailOutput{}, fmt.Errorf("email_text is required")
	}

	res, err := s.triager.Triage(ctx, service.Request{EmailText: input.EmailText, DisableLLM: input.Demo})
	if err != nil {
		s.logger.Warn("triage_email failed", zap.Error(err))
		return nil, triageEmailOutput{}, fmt.Errorf("error processing email: %w", err)
	}

	return nil, triageEmailOutput{ID: res.ID, Path: string(res.Path), Ticket: res.Ticket}, nil
}

func (s *Server) handleClassifyUrgency(_ context.Context, _ *sdkmcp.CallToolRequest, input classifyUrgencyInput) (*sdkmcp.CallToolResult, service.UrgencyResult, error) {
	sentiment := service.Sentiment(strings.ToLower(strings.TrimSpace(input.Sentiment)))
	if sentiment == "" {
		sentiment = service.SentimentNeutral
	}
	if !sentiment.Valid() {
		return nil, service.UrgencyResult{}, fmt.Errorf("invalid sentiment %q: want positive, neutral or negative", input.Sentiment)
	}
	return nil, s.urgency.Classify(input.Text, sentiment), nil
}
