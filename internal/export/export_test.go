package export_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/godilite/ticket-triage/internal/export"
	"github.com/godilite/ticket-triage/internal/service"
)

func tickets() []service.Ticket {
	return []service.Ticket{
		{
			CustomerID:      "C_JOHN_SMITH",
			Product:         "Widget-X",
			Sentiment:       service.SentimentNegative,
			Urgency:         service.UrgencyHigh,
			Entities:        []service.Entity{{Text: "John Smith", Label: "PERSON", Start: 11, End: 21, Confidence: 0.85}},
			Summary:         "Hi, I am John Smith, my Widget-X is broken, \"again\"",
			NextAction:      service.ActionEscalateTier2,
			ConfidenceScore: 0.85,
		},
		{
			CustomerID:      "UNKNOWN",
			Product:         "General Support",
			Sentiment:       service.SentimentPositive,
			Urgency:         service.UrgencyLow,
			Entities:        []service.Entity{},
			Summary:         "Thanks!",
			NextAction:      service.ActionDefaultSupport,
			ConfidenceScore: 0.7,
		},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]export.Format{"json": export.FormatJSON, " CSV ": export.FormatCSV, "yml": export.FormatYAML} {
		got, err := export.ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := export.ParseFormat("xml")
	assert.ErrorIs(t, err, export.ErrUnsupportedFormat)
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.Write(&buf, export.FormatJSON, tickets()))

	var got []service.Ticket
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	if diff := cmp.Diff(tickets(), got); diff != "" {
		t.Errorf("json export mismatch (-want +got):\n%s", diff)
	}
	assert.Contains(t, buf.String(), "\n  {", "indented")
}

func TestWrite_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.Write(&buf, export.FormatYAML, tickets()))
	assert.Contains(t, buf.String(), "customer_id: C_JOHN_SMITH")
	assert.Contains(t, buf.String(), "next_action: escalate_to_tier_2")

	var got []service.Ticket
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	if diff := cmp.Diff(tickets(), got); diff != "" {
		t.Errorf("yaml export mismatch (-want +got):\n%s", diff)
	}
}

func TestWrite_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.Write(&buf, export.FormatCSV, tickets()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"customer_id", "product", "sentiment", "urgency", "entities", "summary", "next_action", "confidence_score"}, rows[0])
	assert.Equal(t, "Hi, I am John Smith, my Widget-X is broken, \"again\"", rows[1][5])
	assert.Equal(t, "0.85", rows[1][7])
	assert.Equal(t, "[]", rows[2][4])

	var ents []service.Entity
	require.NoError(t, json.Unmarshal([]byte(rows[1][4]), &ents))
	assert.Equal(t, "PERSON", ents[0].Label)
}

func TestWrite_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.Write(&buf, export.FormatJSON, nil))
	assert.Equal(t, "[]\n", buf.String())

	buf.Reset()
	require.NoError(t, export.Write(&buf, export.FormatCSV, nil))
	assert.Equal(t, "customer_id,product,sentiment,urgency,entities,summary,next_action,confidence_score\n", buf.String())
}

func TestWrite_Unsupported(t *testing.T) {
	assert.ErrorIs(t, export.Write(&bytes.Buffer{}, "xml", tickets()), export.ErrUnsupportedFormat)
}
