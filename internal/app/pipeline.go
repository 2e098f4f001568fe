package app

import (
	"errors"

	"go.uber.org/zap"

	"github.com/godilite/ticket-triage/internal/config"
	"github.com/godilite/ticket-triage/internal/llm"
	"github.com/godilite/ticket-triage/internal/nlp"
	"github.com/godilite/ticket-triage/internal/service"
)

// Pipeline is a triage service together with the model handles it owns.
type Pipeline struct {
	Service *service.TriageService
	closers []func() error
}

// NewPipeline builds the ML components from cfg. The ONNX model is used when
// a model path is configured, the lexicon otherwise. LLM synthesis is
// enabled when an API key is present. Extra options are applied last.
func NewPipeline(cfg *config.Config, logger *zap.Logger, opts ...service.Option) *Pipeline {
	p := &Pipeline{}

	extractor := nlp.NewRuleExtractor(nlp.WithProductCatalog(cfg.ProductCatalog...))

	var sentiment service.SentimentAnalyzer
	if cfg.ONNX.ModelPath != "" {
		onnx := nlp.NewONNX(nlp.ONNXConfig{
			ModelPath:   cfg.ONNX.ModelPath,
			VocabPath:   cfg.ONNX.VocabPath,
			LibraryPath: cfg.ONNX.LibraryPath,
			Threads:     cfg.ONNX.Threads,
		}, logger)
		p.closers = append(p.closers, onnx.Close)
		sentiment = onnx
		logger.Info("sentiment model configured", zap.String("model", cfg.ONNX.ModelPath))
	} else {
		sentiment = nlp.NewLexicon()
		logger.Info("sentiment lexicon configured")
	}

	svcOpts := []service.Option{service.WithDefaultModel(cfg.LLM.Model)}
	if cfg.LLM.APIKey != "" {
		client := llm.NewClient(cfg.LLM.APIKey,
			llm.WithBaseURL(cfg.LLM.BaseURL),
			llm.WithTimeout(cfg.LLM.Timeout))
		svcOpts = append(svcOpts, service.WithAgent(llm.NewAgent(client, logger, llm.WithDefaultModel(cfg.LLM.Model))))
		logger.Info("llm synthesis enabled", zap.String("model", cfg.LLM.Model), zap.String("base_url", cfg.LLM.BaseURL))
	} else {
		logger.Info("llm synthesis disabled, using fallback tickets")
	}

	p.Service = service.NewTriageService(extractor, sentiment, logger, append(svcOpts, opts...)...)
	return p
}

func (p *Pipeline) Close() error {
	var errs []error
	for _, c := range p.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
