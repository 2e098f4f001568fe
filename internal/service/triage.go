package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Version is reported by every surface.
const Version = "0.1.0"

const (
	sideEffectTimeout = 5 * time.Second
	defaultListLimit  = 20
	maxListLimit      = 100
)

// Result is the outcome of triaging one email.
type Result struct {
	Record
	Signals Signals
}

// TriageService turns email text into tickets. The LLM agent, repository and
// publisher are optional.
type TriageService struct {
	extractor EntityExtractor
	sentiment SentimentAnalyzer
	urgency   *UrgencyClassifier
	agent     TicketAgent
	storage   TicketRepository
	publisher TicketPublisher
	model     string
	logger    *zap.Logger
	now       func() time.Time
}

type Option func(*TriageService)

func WithAgent(agent TicketAgent) Option {
	return func(s *TriageService) { s.agent = agent }
}

func WithRepository(repo TicketRepository) Option {
	return func(s *TriageService) { s.storage = repo }
}

func WithPublisher(pub TicketPublisher) Option {
	return func(s *TriageService) { s.publisher = pub }
}

func WithUrgencyClassifier(c *UrgencyClassifier) Option {
	return func(s *TriageService) { s.urgency = c }
}

// WithDefaultModel sets the model used when a request does not name one.
func WithDefaultModel(model string) Option {
	return func(s *TriageService) { s.model = model }
}

func WithClock(now func() time.Time) Option {
	return func(s *TriageService) { s.now = now }
}

// NewTriageService creates a new TriageService instance.
func NewTriageService(extractor EntityExtractor, sentiment SentimentAnalyzer, logger *zap.Logger, opts ...Option) *TriageService {
	if extractor == nil {
		panic("extractor must not be nil")
	}
	if sentiment == nil {
		panic("sentiment analyzer must not be nil")
	}
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l
	}
	s := &TriageService{
		extractor: extractor,
		sentiment: sentiment,
		urgency:   NewUrgencyClassifier(),
		logger:    logger.Named("triage"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process triages email text with the default model and returns the ticket.
func (s *TriageService) Process(ctx context.Context, emailText string) (Ticket, error) {
	res, err := s.Triage(ctx, Request{EmailText: emailText})
	if err != nil {
		return Ticket{}, err
	}
	return res.Ticket, nil
}

// Triage gathers the ML signals, tries LLM synthesis and falls back to the
// rule-based ticket when that step fails or is disabled. Errors are returned
// only for empty input, unavailable models and invalid final tickets.
func (s *TriageService) Triage(ctx context.Context, req Request) (Result, error) {
	if req.EmailText == "" {
		return Result{}, ErrEmptyEmail
	}
	model := req.Model
	if model == "" {
		model = s.model
	}

	signals, err := s.Gather(ctx, req.EmailText)
	if err != nil {
		return Result{}, err
	}

	ticket, path := s.synthesize(ctx, signals, model, req.DisableLLM)
	if err := ticket.Validate(); err != nil {
		s.logger.Error("ticket failed validation", zap.String("path", string(path)), zap.Error(err))
		return Result{}, err
	}

	rec := Record{
		ID:        uuid.NewString(),
		Ticket:    ticket,
		Path:      path,
		CreatedAt: s.now().UTC(),
	}
	if path == PathLLM {
		rec.Model = model
	}

	s.logger.Info("ticket triaged",
		zap.String("id", rec.ID),
		zap.String("path", string(path)),
		zap.String("urgency", string(ticket.Urgency)),
		zap.String("sentiment", string(ticket.Sentiment)),
		zap.String("next_action", ticket.NextAction),
		zap.Float64("confidence", ticket.ConfidenceScore))

	s.record(ctx, rec)
	return Result{Record: rec, Signals: signals}, nil
}

// Gather runs entity extraction, sentiment analysis and urgency
// classification. Urgency depends on the sentiment label.
func (s *TriageService) Gather(ctx context.Context, text string) (Signals, error) {
	entities, err := s.extractor.ExtractEntities(ctx, text)
	if err != nil {
		return Signals{}, fmt.Errorf("extract entities: %w", err)
	}
	products, err := s.extractor.ExtractProductMentions(ctx, text)
	if err != nil {
		return Signals{}, fmt.Errorf("extract product mentions: %w", err)
	}
	sentiment, err := s.sentiment.AnalyzeSentiment(ctx, text)
	if err != nil {
		return Signals{}, fmt.Errorf("analyze sentiment: %w", err)
	}
	if !sentiment.Sentiment.Valid() {
		return Signals{}, &ValidationError{Field: "sentiment", Reason: fmt.Sprintf("analyzer returned %q", sentiment.Sentiment)}
	}
	urgency := s.urgency.Classify(text, sentiment.Sentiment)

	if entities == nil {
		entities = []Entity{}
	}
	return Signals{
		EmailText:       text,
		Entities:        entities,
		ProductMentions: products,
		Sentiment:       sentiment,
		Urgency:         urgency,
	}, nil
}

func (s *TriageService) synthesize(ctx context.Context, signals Signals, model string, disableLLM bool) (Ticket, Path) {
	if s.agent == nil || disableLLM {
		return FallbackTicket(signals), PathFallback
	}

	ticket, err := s.callAgent(ctx, signals, model)
	if err == nil {
		ticket, err = finalizeLLMTicket(ticket, signals)
	}
	if err != nil {
		var synthErr *SynthesisError
		if !errors.As(err, &synthErr) {
			synthErr = &SynthesisError{Stage: "finalize", Err: err}
		}
		s.logger.Warn("llm synthesis failed, using fallback ticket",
			zap.String("model", model),
			zap.String("stage", synthErr.Stage),
			zap.Error(synthErr.Err))
		return FallbackTicket(signals), PathFallback
	}
	return ticket, PathLLM
}

// callAgent turns a panicking agent into a synthesis error.
func (s *TriageService) callAgent(ctx context.Context, signals Signals, model string) (ticket Ticket, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("ticket agent panicked", zap.Any("panic", r), zap.Stack("stack"))
			ticket, err = Ticket{}, &SynthesisError{Stage: "panic", Err: fmt.Errorf("%v", r)}
		}
	}()
	return s.agent.SynthesizeTicket(ctx, signals, model)
}

// finalizeLLMTicket replaces the model's confidence with the fused ML
// confidence and checks the result.
func finalizeLLMTicket(t Ticket, signals Signals) (Ticket, error) {
	t.ConfidenceScore = FuseConfidence(signals.Sentiment.Confidence, signals.Urgency.Confidence)
	if len(t.Entities) == 0 {
		t.Entities = signals.Entities
	}
	if err := t.Validate(); err != nil {
		return Ticket{}, &SynthesisError{Stage: "validate", Err: err}
	}
	return t, nil
}

// record persists and publishes rec. Failures are logged only.
func (s *TriageService) record(ctx context.Context, rec Record) {
	if s.storage == nil && s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if s.storage != nil {
		if err := s.storage.SaveTicket(ctx, rec); err != nil {
			s.logger.Error("failed to store ticket", zap.String("id", rec.ID), zap.Error(err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, rec); err != nil {
			s.logger.Warn("failed to publish ticket", zap.String("id", rec.ID), zap.Error(err))
		}
	}
}

// GetTicket returns a stored ticket record.
func (s *TriageService) GetTicket(ctx context.Context, id string) (Record, error) {
	if s.storage == nil {
		return Record{}, ErrTicketNotFound
	}
	rec, err := s.storage.GetTicket(ctx, id)
	if err != nil {
		if errors.Is(err, ErrTicketNotFound) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return rec, nil
}

// ListTickets returns up to limit of the most recent records.
func (s *TriageService) ListTickets(ctx context.Context, limit int) ([]Record, error) {
	if s.storage == nil {
		return []Record{}, nil
	}
	recs, err := s.storage.ListTickets(ctx, clampListLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return recs, nil
}

func clampListLimit(limit int) int {
	if limit <= 0 || limit > maxListLimit {
		return defaultListLimit
	}
	return limit
}
