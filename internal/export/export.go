// Package export writes triaged tickets as JSON, CSV or YAML.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/godilite/ticket-triage/internal/service"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatYAML Format = "yaml"
)

var ErrUnsupportedFormat = errors.New("unsupported format")

var csvHeader = []string{
	"customer_id", "product", "sentiment", "urgency", "entities",
	"summary", "next_action", "confidence_score",
}

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q (want json, csv or yaml)", ErrUnsupportedFormat, s)
}

// Write encodes tickets to w in the given format. An empty batch is still a
// valid document: "[]" for JSON and YAML, a header row for CSV.
func Write(w io.Writer, format Format, tickets []service.Ticket) error {
	if tickets == nil {
		tickets = []service.Ticket{}
	}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tickets)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(tickets); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatCSV:
		return writeCSV(w, tickets)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// writeCSV flattens entities into a JSON array cell.
func writeCSV(w io.Writer, tickets []service.Ticket) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, t := range tickets {
		entities, err := json.Marshal(t.Entities)
		if err != nil {
			return fmt.Errorf("encode entities: %w", err)
		}
		row := []string{
			t.CustomerID,
			t.Product,
			string(t.Sentiment),
			string(t.Urgency),
			string(entities),
			t.Summary,
			t.NextAction,
			strconv.FormatFloat(t.ConfidenceScore, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
