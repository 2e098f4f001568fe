// Package display renders tickets and batch summaries for the terminal.
package display

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/godilite/ticket-triage/internal/service"
)

const (
	emailPreviewRunes = 300
	batchPreviewRows  = 10
	labelWidth        = 15
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Width(labelWidth)
	faintStyle = lipgloss.NewStyle().Faint(true)

	emailPanel    = panel(lipgloss.Color("4"))
	entitiesPanel = panel(lipgloss.Color("2"))
)

func panel(border lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)
}

func sentimentText(s service.Sentiment) string {
	color := map[service.Sentiment]string{
		service.SentimentPositive: "2",
		service.SentimentNeutral:  "3",
		service.SentimentNegative: "1",
	}[s]
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(titleCase(string(s)))
}

func urgencyText(u service.Urgency) string {
	color := map[service.Urgency]string{
		service.UrgencyLow:    "2",
		service.UrgencyMedium: "3",
		service.UrgencyHigh:   "1",
	}[u]
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(u == service.UrgencyHigh).Render(titleCase(string(u)))
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func preview(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "..."
}

// Ticket renders the original email, the ticket fields and its entities.
func Ticket(t service.Ticket, email string) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Original Email"))
	b.WriteByte('\n')
	b.WriteString(emailPanel.Render(preview(email, emailPreviewRunes)))
	b.WriteString("\n\n")

	b.WriteString(titleStyle.Render("Ticket Analysis"))
	b.WriteByte('\n')
	rows := [][2]string{
		{"Customer ID", t.CustomerID},
		{"Product", t.Product},
		{"Sentiment", sentimentText(t.Sentiment)},
		{"Urgency", urgencyText(t.Urgency)},
		{"Summary", t.Summary},
		{"Next Action", t.NextAction},
		{"Confidence", fmt.Sprintf("%.2f%%", t.ConfidenceScore*100)},
	}
	for _, row := range rows {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(row[0]), row[1]))
		b.WriteByte('\n')
	}

	if len(t.Entities) > 0 {
		lines := make([]string, len(t.Entities))
		for i, e := range t.Entities {
			lines[i] = fmt.Sprintf("• %s (%s)", e.Text, e.Label)
		}
		b.WriteByte('\n')
		b.WriteString(titleStyle.Render("Extracted Entities"))
		b.WriteByte('\n')
		b.WriteString(entitiesPanel.Render(strings.Join(lines, "\n")))
		b.WriteByte('\n')
	}
	return b.String()
}

// BatchSummary renders the first rows of a batch as a table followed by the
// aggregate counts.
func BatchSummary(tickets []service.Ticket, sum service.BatchSummary) string {
	if len(tickets) == 0 {
		return faintStyle.Render("No tickets processed") + "\n"
	}

	headers := []string{"Customer ID", "Product", "Sentiment", "Urgency", "Confidence"}
	shown := tickets[:min(len(tickets), batchPreviewRows)]
	cells := make([][]string, len(shown))
	for i, t := range shown {
		cells[i] = []string{t.CustomerID, t.Product, string(t.Sentiment), string(t.Urgency), fmt.Sprintf("%.2f", t.ConfidenceScore)}
	}

	widths := make([]int, len(headers))
	for c, h := range headers {
		widths[c] = lipgloss.Width(h)
		for _, row := range cells {
			widths[c] = max(widths[c], lipgloss.Width(row[c]))
		}
	}
	renderRow := func(row []string, style lipgloss.Style) string {
		parts := make([]string, len(row))
		for c, cell := range row {
			parts[c] = style.Width(widths[c] + 2).Render(cell)
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Batch Processing Summary"))
	b.WriteByte('\n')
	b.WriteString(renderRow(headers, lipgloss.NewStyle().Bold(true)))
	b.WriteByte('\n')
	for _, row := range cells {
		b.WriteString(renderRow(row, lipgloss.NewStyle()))
		b.WriteByte('\n')
	}
	if extra := len(tickets) - len(shown); extra > 0 {
		b.WriteString(faintStyle.Render(fmt.Sprintf("... and %d more tickets", extra)))
		b.WriteByte('\n')
	}

	b.WriteByte('\n')
	fmt.Fprintf(&b, "Total tickets: %d\n", sum.Total)
	fmt.Fprintf(&b, "Urgency distribution: %s\n", counts(sum.UrgencyCounts))
	fmt.Fprintf(&b, "Sentiment distribution: %s\n", counts(sum.SentimentCounts))
	fmt.Fprintf(&b, "Average confidence: %.2f\n", sum.AverageConfidence)
	return b.String()
}

func counts[K ~string](m map[K]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, m[K(k)])
	}
	return strings.Join(parts, " ")
}
