package models

import "database/sql"

// TicketRow mirrors one row of the tickets table.
type TicketRow struct {
	ID              string
	CustomerID      string
	Product         string
	Sentiment       string
	Urgency         string
	Entities        string
	Summary         string
	NextAction      string
	ConfidenceScore float64
	Path            string
	Model           sql.NullString
	CreatedAt       string
}
