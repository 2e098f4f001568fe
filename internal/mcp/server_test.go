package mcp_test

import (
	"context"
	"encoding/json"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/godilite/ticket-triage/internal/mcp"
	"github.com/godilite/ticket-triage/internal/service"
	"github.com/godilite/ticket-triage/internal/service/mocks"
)

func connectInMemory(t *testing.T, ctx context.Context, srv *mcp.Server) *sdkmcp.ClientSession {
	t.Helper()
	t1, t2 := sdkmcp.NewInMemoryTransports()
	_, err := srv.MCPServer.Connect(ctx, t1, nil)
	require.NoError(t, err)
	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, t2, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session
}

func callTool(t *testing.T, ctx context.Context, session *sdkmcp.ClientSession, name string, args map[string]any, dest any) *sdkmcp.CallToolResult {
	t.Helper()
	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	if dest != nil && !res.IsError {
		for _, c := range res.Content {
			if tc, ok := c.(*sdkmcp.TextContent); ok {
				require.NoError(t, json.Unmarshal([]byte(tc.Text), dest), tc.Text)
				return res
			}
		}
		t.Fatalf("no text content in %s result", name)
	}
	return res
}

func errorText(res *sdkmcp.CallToolResult) string {
	for _, c := range res.Content {
		if tc, ok := c.(*sdkmcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func newServer(sentiment service.SentimentAnalyzer) *mcp.Server {
	svc := service.NewTriageService(&mocks.MockEntityExtractor{}, sentiment, zap.NewNop())
	return mcp.NewServer(svc, nil, zap.NewNop())
}

func TestTools_Listed(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx, newServer(mocks.FixedSentiment(service.SentimentNeutral, 0.5)))

	res, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"triage_email", "classify_urgency"}, names)
}

func TestTriageEmail(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx, newServer(mocks.FixedSentiment(service.SentimentNegative, 0.9)))

	var out struct {
		ID     string         `json:"id"`
		Path   string         `json:"path"`
		Ticket service.Ticket `json:"ticket"`
	}
	res := callTool(t, ctx, session, "triage_email", map[string]any{
		"email_text": "URGENT: checkout is broken and I am frustrated",
		"demo":       true,
	}, &out)
	require.False(t, res.IsError, errorText(res))

	assert.NotEmpty(t, out.ID)
	assert.Equal(t, "fallback", out.Path)
	assert.Equal(t, service.UrgencyHigh, out.Ticket.Urgency)
	assert.Equal(t, service.ActionEscalateTier2, out.Ticket.NextAction)
}

func TestTriageEmail_WhitespaceOnly(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx, newServer(mocks.FixedSentiment(service.SentimentNeutral, 0.5)))

	var out struct {
		Ticket service.Ticket `json:"ticket"`
	}
	res := callTool(t, ctx, session, "triage_email", map[string]any{"email_text": " \t "}, &out)
	require.False(t, res.IsError, errorText(res))
	assert.Equal(t, " \t ", out.Ticket.Summary)
	assert.NoError(t, out.Ticket.Validate())
}

func TestTriageEmail_Errors(t *testing.T) {
	ctx := context.Background()
	down := &mocks.MockSentimentAnalyzer{
		AnalyzeSentimentFunc: func(context.Context, string) (service.SentimentResult, error) {
			return service.SentimentResult{}, service.ErrModelUnavailable
		},
	}
	session := connectInMemory(t, ctx, newServer(down))

	res := callTool(t, ctx, session, "triage_email", map[string]any{"email_text": ""}, nil)
	assert.True(t, res.IsError)
	assert.Contains(t, errorText(res), "email_text is required")

	res = callTool(t, ctx, session, "triage_email", map[string]any{"email_text": "hello"}, nil)
	assert.True(t, res.IsError)
	assert.Contains(t, errorText(res), "model unavailable")
}

func TestClassifyUrgency(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx, newServer(mocks.FixedSentiment(service.SentimentNeutral, 0.5)))

	var out service.UrgencyResult
	res := callTool(t, ctx, session, "classify_urgency", map[string]any{
		"text":      "This is urgent, the system is down",
		"sentiment": "negative",
	}, &out)
	require.False(t, res.IsError, errorText(res))
	assert.Equal(t, service.UrgencyHigh, out.Urgency)
	assert.Equal(t, 4, out.KeywordMatches.High)
	assert.InDelta(t, 0.9, out.Confidence, 1e-9)

	out = service.UrgencyResult{}
	callTool(t, ctx, session, "classify_urgency", map[string]any{"text": "thanks for the great service"}, &out)
	assert.Equal(t, service.UrgencyLow, out.Urgency)

	res = callTool(t, ctx, session, "classify_urgency", map[string]any{"text": "x", "sentiment": "angry"}, nil)
	assert.True(t, res.IsError)
}

func TestNewServer_PanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { mcp.NewServer(nil, nil, nil) })
}
