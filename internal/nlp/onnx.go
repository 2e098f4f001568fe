package nlp

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sync"

	"github.com/godilite/ticket-triage/internal/service"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

// ortEnv is the process-wide ONNX Runtime environment.
var ortEnv struct {
	once sync.Once
	err  error
}

func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// ONNXConfig locates a binary sentiment classifier export (for example
// DistilBERT fine-tuned on SST-2) and its vocabulary.
type ONNXConfig struct {
	ModelPath string
	VocabPath string
	// LibraryPath is the onnxruntime shared library. Empty means
	// libonnxruntime.so next to the model.
	LibraryPath string
	Threads     int
}

// ONNX is a transformer sentiment analyzer. The model is loaded on first use;
// if loading fails every call returns service.ErrModelUnavailable.
type ONNX struct {
	cfg    ONNXConfig
	logger *zap.Logger

	once    sync.Once
	loadErr error

	mu         sync.Mutex
	session    *ort.DynamicAdvancedSession
	vocab      *wordPiece
	inputNames []string
	outputName string
}

func NewONNX(cfg ONNXConfig, logger *zap.Logger) *ONNX {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LibraryPath == "" {
		cfg.LibraryPath = filepath.Join(filepath.Dir(cfg.ModelPath), "libonnxruntime.so")
	}
	if cfg.Threads <= 0 {
		cfg.Threads = 2
	}
	return &ONNX{cfg: cfg, logger: logger.Named("onnx")}
}

func (o *ONNX) load() error {
	o.once.Do(func() {
		o.loadErr = o.open()
		if o.loadErr != nil {
			o.logger.Error("sentiment model failed to load", zap.String("model", o.cfg.ModelPath), zap.Error(o.loadErr))
			return
		}
		o.logger.Info("sentiment model loaded", zap.String("model", o.cfg.ModelPath))
	})
	if o.loadErr != nil {
		return fmt.Errorf("%w: %v", service.ErrModelUnavailable, o.loadErr)
	}
	return nil
}

func (o *ONNX) open() error {
	vocab, err := loadWordPiece(o.cfg.VocabPath)
	if err != nil {
		return err
	}
	if err := initORT(o.cfg.LibraryPath); err != nil {
		return fmt.Errorf("onnx: initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(o.cfg.ModelPath)
	if err != nil {
		return fmt.Errorf("onnx: read model info: %w", err)
	}
	inputNames, err := classifierInputs(inputs)
	if err != nil {
		return err
	}
	if len(outputs) == 0 {
		return fmt.Errorf("onnx: model has no outputs")
	}
	if dims := outputs[0].Dimensions; len(dims) != 2 || dims[1] != 2 {
		return fmt.Errorf("onnx: expected [batch, 2] logits, got %v", dims)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return fmt.Errorf("onnx: session options: %w", err)
	}
	defer opts.Destroy()
	if err := opts.SetIntraOpNumThreads(o.cfg.Threads); err != nil {
		return fmt.Errorf("onnx: session options: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(o.cfg.ModelPath, inputNames, []string{outputs[0].Name}, opts)
	if err != nil {
		return fmt.Errorf("onnx: create session: %w", err)
	}

	o.session = session
	o.vocab = vocab
	o.inputNames = inputNames
	o.outputName = outputs[0].Name
	return nil
}

// classifierInputs returns input_ids, attention_mask and, when the model
// declares it, token_type_ids.
func classifierInputs(inputs []ort.InputOutputInfo) ([]string, error) {
	has := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		has[in.Name] = true
	}
	names := []string{"input_ids", "attention_mask"}
	for _, n := range names {
		if !has[n] {
			return nil, fmt.Errorf("onnx: model missing required input %q", n)
		}
	}
	if has["token_type_ids"] {
		names = append(names, "token_type_ids")
	}
	return names, nil
}

// AnalyzeSentiment runs the classifier and returns the argmax label with its
// softmax probability. The model is binary and never reports neutral.
func (o *ONNX) AnalyzeSentiment(ctx context.Context, text string) (service.SentimentResult, error) {
	if err := o.load(); err != nil {
		return service.SentimentResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return service.SentimentResult{}, err
	}

	logits, err := o.infer(text)
	if err != nil {
		return service.SentimentResult{}, fmt.Errorf("%w: %v", service.ErrModelUnavailable, err)
	}
	return sentimentFromLogits(logits[0], logits[1]), nil
}

func (o *ONNX) infer(text string) ([2]float32, error) {
	var logits [2]float32

	ids, mask := o.vocab.encode(text)
	shape := ort.NewShape(1, int64(len(ids)))

	values := make([]ort.Value, 0, len(o.inputNames))
	for _, name := range o.inputNames {
		var data []int64
		switch name {
		case "input_ids":
			data = ids
		case "attention_mask":
			data = mask
		default:
			data = make([]int64, len(ids))
		}
		t, err := ort.NewTensor(shape, data)
		if err != nil {
			return logits, fmt.Errorf("onnx: create %s tensor: %w", name, err)
		}
		defer t.Destroy()
		values = append(values, t)
	}

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 2))
	if err != nil {
		return logits, fmt.Errorf("onnx: create output tensor: %w", err)
	}
	defer out.Destroy()

	o.mu.Lock()
	if o.session == nil {
		o.mu.Unlock()
		return logits, fmt.Errorf("onnx: session closed")
	}
	err = o.session.Run(values, []ort.Value{out})
	o.mu.Unlock()
	if err != nil {
		return logits, fmt.Errorf("onnx: inference: %w", err)
	}

	copy(logits[:], out.GetData())
	return logits, nil
}

// sentimentFromLogits applies softmax over [NEGATIVE, POSITIVE] logits.
func sentimentFromLogits(negLogit, posLogit float32) service.SentimentResult {
	m := math.Max(float64(negLogit), float64(posLogit))
	en := math.Exp(float64(negLogit) - m)
	ep := math.Exp(float64(posLogit) - m)
	neg, pos := en/(en+ep), ep/(en+ep)

	res := service.SentimentResult{
		Scores: map[service.Sentiment]float64{
			service.SentimentNegative: neg,
			service.SentimentPositive: pos,
		},
	}
	if pos > neg {
		res.Sentiment, res.Confidence = service.SentimentPositive, pos
	} else {
		res.Sentiment, res.Confidence = service.SentimentNegative, neg
	}
	return res
}

// Close releases the inference session.
func (o *ONNX) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return nil
	}
	err := o.session.Destroy()
	o.session = nil
	return err
}
