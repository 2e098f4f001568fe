package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/godilite/ticket-triage/internal/repository/models"
	"github.com/godilite/ticket-triage/internal/service"
)

// Schema creates the tickets table. It is valid for both SQLite and
// PostgreSQL.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS tickets (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		product TEXT NOT NULL,
		sentiment TEXT NOT NULL,
		urgency TEXT NOT NULL,
		entities TEXT NOT NULL,
		summary TEXT NOT NULL,
		next_action TEXT NOT NULL,
		confidence_score DOUBLE PRECISION NOT NULL,
		path TEXT NOT NULL,
		model TEXT,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_created_at ON tickets (created_at)`,
}

// createdAtLayout has fixed-width fractions so that text order is time order.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z"

type TicketRepository struct {
	db       *sql.DB
	numbered bool
}

type Option func(*TicketRepository)

// WithDriver selects the placeholder style for the given database/sql driver
// name. "pgx" and "postgres" use $1, $2, ...
func WithDriver(driver string) Option {
	return func(r *TicketRepository) {
		r.numbered = driver == "pgx" || driver == "postgres"
	}
}

func NewTicketRepository(db *sql.DB, opts ...Option) *TicketRepository {
	r := &TicketRepository{db: db}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SaveTicket inserts rec. IDs are unique; saving the same ID twice fails.
func (r *TicketRepository) SaveTicket(ctx context.Context, rec service.Record) error {
	entities := rec.Ticket.Entities
	if entities == nil {
		entities = []service.Entity{}
	}
	entJSON, err := json.Marshal(entities)
	if err != nil {
		return fmt.Errorf("marshal entities: %w", err)
	}

	query := r.rebind(`
		INSERT INTO tickets (id, customer_id, product, sentiment, urgency, entities, summary, next_action, confidence_score, path, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err = r.db.ExecContext(ctx, query,
		rec.ID,
		rec.Ticket.CustomerID,
		rec.Ticket.Product,
		string(rec.Ticket.Sentiment),
		string(rec.Ticket.Urgency),
		string(entJSON),
		rec.Ticket.Summary,
		rec.Ticket.NextAction,
		rec.Ticket.ConfidenceScore,
		string(rec.Path),
		sql.NullString{String: rec.Model, Valid: rec.Model != ""},
		rec.CreatedAt.UTC().Format(createdAtLayout),
	)
	if err != nil {
		return fmt.Errorf("insert ticket %s: %w", rec.ID, err)
	}
	return nil
}

const selectColumns = `id, customer_id, product, sentiment, urgency, entities, summary, next_action, confidence_score, path, model, created_at`

// GetTicket returns service.ErrTicketNotFound when no row has the given id.
func (r *TicketRepository) GetTicket(ctx context.Context, id string) (service.Record, error) {
	query := r.rebind(`SELECT ` + selectColumns + ` FROM tickets WHERE id = ?`)

	var row models.TicketRow
	err := r.db.QueryRowContext(ctx, query, id).Scan(scanTargets(&row)...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return service.Record{}, fmt.Errorf("%w: %s", service.ErrTicketNotFound, id)
		}
		return service.Record{}, fmt.Errorf("query GetTicket: %w", err)
	}
	return toRecord(row)
}

// ListTickets returns the most recent records first.
func (r *TicketRepository) ListTickets(ctx context.Context, limit int) ([]service.Record, error) {
	query := r.rebind(`SELECT ` + selectColumns + ` FROM tickets ORDER BY created_at DESC, id DESC LIMIT ?`)

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query ListTickets: %w", err)
	}
	defer rows.Close()

	records := []service.Record{}
	for rows.Next() {
		var row models.TicketRow
		if err := rows.Scan(scanTargets(&row)...); err != nil {
			return nil, fmt.Errorf("scan ListTickets row: %w", err)
		}
		rec, err := toRecord(row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ListTickets: %w", err)
	}
	return records, nil
}

func scanTargets(row *models.TicketRow) []any {
	return []any{
		&row.ID, &row.CustomerID, &row.Product, &row.Sentiment, &row.Urgency, &row.Entities,
		&row.Summary, &row.NextAction, &row.ConfidenceScore, &row.Path, &row.Model, &row.CreatedAt,
	}
}

func toRecord(row models.TicketRow) (service.Record, error) {
	entities := []service.Entity{}
	if err := json.Unmarshal([]byte(row.Entities), &entities); err != nil {
		return service.Record{}, fmt.Errorf("decode entities of %s: %w", row.ID, err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, row.CreatedAt)
	if err != nil {
		return service.Record{}, fmt.Errorf("decode created_at of %s: %w", row.ID, err)
	}
	return service.Record{
		ID: row.ID,
		Ticket: service.Ticket{
			CustomerID:      row.CustomerID,
			Product:         row.Product,
			Sentiment:       service.Sentiment(row.Sentiment),
			Urgency:         service.Urgency(row.Urgency),
			Entities:        entities,
			Summary:         row.Summary,
			NextAction:      row.NextAction,
			ConfidenceScore: row.ConfidenceScore,
		},
		Path:      service.Path(row.Path),
		Model:     row.Model.String,
		CreatedAt: createdAt,
	}, nil
}

// rebind rewrites ? placeholders to $n for drivers that need it.
func (r *TicketRepository) rebind(query string) string {
	if !r.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}
