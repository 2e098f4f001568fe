package app_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	pb "github.com/godilite/ticket-triage/api/v1"
	"github.com/godilite/ticket-triage/internal/app"
	"github.com/godilite/ticket-triage/internal/config"
	"github.com/godilite/ticket-triage/internal/service"
)

const llmTicket = `{"customer_id":"C_SARAH_JONES","product":"CloudSync Pro","sentiment":"negative","urgency":"high","entities":[],"summary":"CloudSync Pro sync outage","next_action":"escalate_to_tier_2","confidence_score":0.1}`

func fakeLLM(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := json.Marshal(map[string]any{
			"choices": []map[string]any{
				{"index": 0, "message": map[string]string{"role": "assistant", "content": llmTicket}, "finish_reason": "stop"},
			},
		})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(llmURL string) *config.Config {
	cfg := config.LoadFromEnv()
	cfg.DBDriver = "sqlite3"
	cfg.DBPath = ":memory:"
	cfg.RedisAddr = ""
	cfg.Kafka.Brokers = nil
	cfg.ONNX.ModelPath = ""
	cfg.GRPCPort = 0
	cfg.HTTPPort = 0
	cfg.LLM.APIKey = ""
	if llmURL != "" {
		cfg.LLM.APIKey = "sk-test"
		cfg.LLM.BaseURL = llmURL
		cfg.LLM.Timeout = 5 * time.Second
	}
	return cfg
}

func startApp(t *testing.T, cfg *config.Config) *app.App {
	t.Helper()
	a, err := app.NewApp(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(15 * time.Second):
			t.Error("app did not shut down")
		}
	})

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + a.HTTPAddr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)
	return a
}

func dialGRPC(t *testing.T, a *app.App) *grpc.ClientConn {
	t.Helper()
	conn, err := grpc.NewClient(a.GRPCAddr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestApp_FallbackOverHTTPThenReadOverGRPC(t *testing.T) {
	a := startApp(t, testConfig(""))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := http.Post("http://"+a.HTTPAddr().String()+"/triage", "application/json",
		strings.NewReader(`{"email_text":"Hi, my name is John Smith. My Widget-X is broken and this is unacceptable! I need help ASAP."}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ticket service.Ticket
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ticket))
	resp.Body.Close()

	assert.Equal(t, "C_JOHN_SMITH", ticket.CustomerID)
	assert.Equal(t, "Widget-X", ticket.Product)
	assert.Equal(t, service.SentimentNegative, ticket.Sentiment)
	assert.Equal(t, service.UrgencyHigh, ticket.Urgency)
	assert.Equal(t, service.ActionEscalateTier2, ticket.NextAction)

	client := pb.NewTicketTriageClient(dialGRPC(t, a))
	list, err := client.ListTickets(ctx, &structpb.Struct{})
	require.NoError(t, err)
	tickets := list.GetFields()["tickets"].GetListValue().GetValues()
	require.Len(t, tickets, 1)
	rec := tickets[0].GetStructValue()
	assert.Equal(t, "fallback", rec.GetFields()["path"].GetStringValue())

	id := rec.GetFields()["id"].GetStringValue()
	got, err := client.GetTicket(ctx, &structpb.Struct{Fields: map[string]*structpb.Value{"id": structpb.NewStringValue(id)}})
	require.NoError(t, err)
	var stored service.Record
	require.NoError(t, pb.Decode(got, &stored))
	assert.Equal(t, ticket, stored.Ticket)

	_, err = client.GetTicket(ctx, &structpb.Struct{Fields: map[string]*structpb.Value{"id": structpb.NewStringValue("missing")}})
	assert.Equal(t, codes.NotFound, status.Code(err))

	health, err := healthpb.NewHealthClient(dialGRPC(t, a)).Check(ctx, &healthpb.HealthCheckRequest{Service: pb.TicketTriage_ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, health.Status)
}

func TestApp_LLMPathOverGRPC(t *testing.T) {
	a := startApp(t, testConfig(fakeLLM(t).URL))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := pb.NewTicketTriageClient(dialGRPC(t, a))
	in, err := pb.Encode(map[string]any{"email_text": "Sarah Jones here. CloudSync Pro stopped syncing, this is urgent!"})
	require.NoError(t, err)

	out, err := client.TriageEmail(ctx, in)
	require.NoError(t, err)

	var rec service.Record
	require.NoError(t, pb.Decode(out, &rec))
	assert.Equal(t, service.PathLLM, rec.Path)
	assert.Equal(t, "gpt-4o-mini", rec.Model)
	assert.Equal(t, "C_SARAH_JONES", rec.Ticket.CustomerID)
	assert.NotEqual(t, 0.1, rec.Ticket.ConfidenceScore, "confidence comes from the ML signals")

	demo, err := pb.Encode(map[string]any{"email_text": "Sarah Jones here. CloudSync Pro stopped syncing, this is urgent!", "demo": true})
	require.NoError(t, err)
	out, err = client.TriageEmail(ctx, demo)
	require.NoError(t, err)
	var fallback service.Record
	require.NoError(t, pb.Decode(out, &fallback))
	assert.Equal(t, service.PathFallback, fallback.Path)
	assert.Empty(t, fallback.Model)
	assert.Equal(t, rec.Ticket.ConfidenceScore, fallback.Ticket.ConfidenceScore, "both paths fuse the same signals")
}

func TestApp_InvalidConfig(t *testing.T) {
	cfg := testConfig("")
	cfg.GRPCPort = -1
	_, err := app.NewApp(context.Background(), cfg, nil)
	assert.ErrorContains(t, err, "gRPC server")
}
