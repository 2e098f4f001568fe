package repository_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/godilite/ticket-triage/internal/repository"
	"github.com/godilite/ticket-triage/internal/service"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// Every new connection would see its own empty in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	for _, stmt := range repository.Schema {
		_, err = db.Exec(stmt)
		require.NoError(t, err)
	}
	return db
}

func testRecord(id string, createdAt time.Time, path service.Path) service.Record {
	return service.Record{
		ID: id,
		Ticket: service.Ticket{
			CustomerID: "C_SARAH_JOHNSON",
			Product:    "Widget-X",
			Sentiment:  service.SentimentNegative,
			Urgency:    service.UrgencyHigh,
			Entities: []service.Entity{
				{Text: "Sarah Johnson", Label: "PERSON", Start: 11, End: 24, Confidence: 0.85},
			},
			Summary:         "Widget-X is down",
			NextAction:      service.ActionEscalateTier2,
			ConfidenceScore: 0.85,
		},
		Path:      path,
		CreatedAt: createdAt,
	}
}

func TestTicketRepository_Integration(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewTicketRepository(setupTestDB(t), repository.WithDriver("sqlite3"))

	base := time.Date(2025, 10, 18, 10, 0, 0, 0, time.UTC)
	for i := range 5 {
		rec := testRecord(fmt.Sprintf("t-%d", i), base.Add(time.Duration(i)*time.Second+time.Duration(i)*time.Millisecond), service.PathFallback)
		require.NoError(t, repo.SaveTicket(ctx, rec))
	}
	llmRec := testRecord("t-llm", base.Add(-time.Hour), service.PathLLM)
	llmRec.Model = "gpt-4o-mini"
	llmRec.Ticket.Entities = nil
	require.NoError(t, repo.SaveTicket(ctx, llmRec))

	t.Run("GetTicket", func(t *testing.T) {
		got, err := repo.GetTicket(ctx, "t-2")
		require.NoError(t, err)

		want := testRecord("t-2", base.Add(2*time.Second+2*time.Millisecond), service.PathFallback)
		assert.Equal(t, want.Ticket, got.Ticket)
		assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
		assert.Equal(t, service.PathFallback, got.Path)
		assert.Empty(t, got.Model)
	})

	t.Run("GetTicket - model and empty entities", func(t *testing.T) {
		got, err := repo.GetTicket(ctx, "t-llm")
		require.NoError(t, err)
		assert.Equal(t, "gpt-4o-mini", got.Model)
		assert.NotNil(t, got.Ticket.Entities)
		assert.Empty(t, got.Ticket.Entities)
	})

	t.Run("GetTicket - not found", func(t *testing.T) {
		_, err := repo.GetTicket(ctx, "missing")
		assert.ErrorIs(t, err, service.ErrTicketNotFound)
	})

	t.Run("ListTickets - newest first", func(t *testing.T) {
		got, err := repo.ListTickets(ctx, 3)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "t-4", got[0].ID)
		assert.Equal(t, "t-3", got[1].ID)
		assert.Equal(t, "t-2", got[2].ID)
	})

	t.Run("ListTickets - all", func(t *testing.T) {
		got, err := repo.ListTickets(ctx, 100)
		require.NoError(t, err)
		require.Len(t, got, 6)
		assert.Equal(t, "t-llm", got[5].ID)
	})

	t.Run("SaveTicket - duplicate id", func(t *testing.T) {
		err := repo.SaveTicket(ctx, testRecord("t-0", base, service.PathFallback))
		assert.Error(t, err)
	})
}

func TestTicketRepository_EmptyList(t *testing.T) {
	repo := repository.NewTicketRepository(setupTestDB(t))

	got, err := repo.ListTickets(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestTicketRepository_WithTriageService(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewTicketRepository(setupTestDB(t))

	svc := service.NewTriageService(
		&stubExtractor{},
		&stubSentiment{},
		zap.NewNop(),
		service.WithRepository(repo),
	)

	res, err := svc.Triage(ctx, service.Request{EmailText: "Our payment page shows an error"})
	require.NoError(t, err)

	stored, err := svc.GetTicket(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Ticket, stored.Ticket)

	recent, err := svc.ListTickets(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, 1)
}

type stubExtractor struct{}

func (stubExtractor) ExtractEntities(context.Context, string) ([]service.Entity, error) {
	return []service.Entity{}, nil
}

func (stubExtractor) ExtractProductMentions(context.Context, string) ([]string, error) {
	return []string{"Checkout"}, nil
}

type stubSentiment struct{}

func (stubSentiment) AnalyzeSentiment(context.Context, string) (service.SentimentResult, error) {
	return service.SentimentResult{Sentiment: service.SentimentNegative, Confidence: 0.7}, nil
}
