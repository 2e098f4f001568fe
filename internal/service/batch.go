package service

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const DefaultBatchConcurrency = 5

// Triager is the single-email operation the batch runner fans out.
type Triager interface {
	Triage(ctx context.Context, req Request) (Result, error)
}

// BatchRunner triages many emails with a bounded number in flight.
type BatchRunner struct {
	triager     Triager
	concurrency int64
	logger      *zap.Logger
	onProgress  func(done, total int)
}

type BatchOption func(*BatchRunner)

func WithConcurrency(n int) BatchOption {
	return func(b *BatchRunner) {
		if n > 0 {
			b.concurrency = int64(n)
		}
	}
}

// WithProgress registers a callback invoked after every finished item. It may
// be called from several goroutines.
func WithProgress(fn func(done, total int)) BatchOption {
	return func(b *BatchRunner) { b.onProgress = fn }
}

func NewBatchRunner(triager Triager, logger *zap.Logger, opts ...BatchOption) *BatchRunner {
	if triager == nil {
		panic("triager must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &BatchRunner{
		triager:     triager,
		concurrency: DefaultBatchConcurrency,
		logger:      logger.Named("batch"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BatchResult holds the successful records in input order and the number of
// items dropped because they failed.
type BatchResult struct {
	Records []Record
	Failed  int
}

// Tickets returns the tickets of the successful records.
func (r BatchResult) Tickets() []Ticket {
	out := make([]Ticket, len(r.Records))
	for i, rec := range r.Records {
		out[i] = rec.Ticket
	}
	return out
}

// Run triages every email. A failed item is logged and omitted; it never
// aborts the batch. Cancelling ctx stops admitting new items.
func (b *BatchRunner) Run(ctx context.Context, emails []string, disableLLM bool) BatchResult {
	sem := semaphore.NewWeighted(b.concurrency)
	slots := make([]*Record, len(emails))
	var (
		wg   sync.WaitGroup
		done atomic.Int64
	)

	for i, email := range emails {
		if err := sem.Acquire(ctx, 1); err != nil {
			b.logger.Warn("batch cancelled before all emails were admitted",
				zap.Int("admitted", i), zap.Int("total", len(emails)), zap.Error(err))
			break
		}
		wg.Add(1)
		go func(i int, email string) {
			defer wg.Done()
			defer sem.Release(1)

			res, err := b.triager.Triage(ctx, Request{EmailText: email, DisableLLM: disableLLM})
			if err != nil {
				b.logger.Warn("error processing email", zap.Int("index", i), zap.Error(err))
			} else {
				rec := res.Record
				slots[i] = &rec
			}
			n := done.Add(1)
			if b.onProgress != nil {
				b.onProgress(int(n), len(emails))
			}
		}(i, email)
	}
	wg.Wait()

	result := BatchResult{Records: make([]Record, 0, len(emails))}
	for _, rec := range slots {
		if rec == nil {
			result.Failed++
			continue
		}
		result.Records = append(result.Records, *rec)
	}
	return result
}

// BatchSummary aggregates a set of tickets.
type BatchSummary struct {
	Total             int               `json:"total"`
	UrgencyCounts     map[Urgency]int   `json:"urgency_counts"`
	SentimentCounts   map[Sentiment]int `json:"sentiment_counts"`
	AverageConfidence float64           `json:"average_confidence"`
}

func SummarizeBatch(tickets []Ticket) BatchSummary {
	sum := BatchSummary{
		Total:           len(tickets),
		UrgencyCounts:   make(map[Urgency]int),
		SentimentCounts: make(map[Sentiment]int),
	}
	if len(tickets) == 0 {
		return sum
	}
	var total float64
	for _, t := range tickets {
		sum.UrgencyCounts[t.Urgency]++
		sum.SentimentCounts[t.Sentiment]++
		total += t.ConfidenceScore
	}
	sum.AverageConfidence = total / float64(len(tickets))
	return sum
}

// LoadEmails splits r into emails. Blank lines separate emails; input without
// any blank line is read as one email per line. Entries are trimmed and empty
// ones dropped.
func LoadEmails(r io.Reader) ([]string, error) {
	var b strings.Builder
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		b.WriteString(strings.TrimRight(sc.Text(), "\r"))
		b.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read emails: %w", err)
	}
	content := b.String()

	parts := strings.Split(content, "\n\n")
	if len(parts) == 1 {
		parts = strings.Split(content, "\n")
	}
	emails := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			emails = append(emails, p)
		}
	}
	return emails, nil
}

func LoadEmailsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open email file: %w", err)
	}
	defer f.Close()
	return LoadEmails(f)
}
