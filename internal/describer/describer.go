package describer

import (
	"context"
	"errors"
	"strings"

	"ProjectZukan/pkg/gemini"
	"ProjectZukan/pkg/log"
	"ProjectZukan/pkg/openai"
)

const (
	KindLocal  = "local"
	KindOpenAI = "openai"
	KindGemini = "gemini"

	SourceLLM   = "llm"
	SourceLocal = "local"
	// SourceFallback marks text built by Fallback after a hosted failure.
	SourceFallback = "fallback"
)

var (
	// ErrGeneration is returned by hosted strategies on network, quota or empty-answer failures.
	ErrGeneration = errors.New("description generation failed")
	// ErrNotSupported is returned when the selected strategy cannot suggest subjects.
	ErrNotSupported = errors.New("operation not supported by description strategy")
)

type IDescriber interface {
	Describe(ctx context.Context, objectName, place string, image []byte) (string, error)
	// Source reports "llm" or "local".
	Source() string
}

type Suggestion struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// ISuggester lists easy-to-photograph subjects for a place.
type ISuggester interface {
	Suggest(ctx context.Context, place string, n int) ([]Suggestion, error)
}

// ImageAnalyzer is the hosted model surface both LLM clients implement.
type ImageAnalyzer interface {
	AnalyzeImage(ctx context.Context, image []byte, mimeType string, prompt string) (string, error)
	GenerateText(ctx context.Context, prompt string) (string, error)
	Close()
}

type Options struct {
	Kind        string
	OpenAIKey   string
	OpenAIModel string
	GeminiKey   string
	GeminiModel string
	Language    string
}

// New selects the strategy once at startup. A hosted strategy without an API key
// falls back to the local table.
func New(opts Options) IDescriber {
	kind := strings.ToLower(strings.TrimSpace(opts.Kind))

	var (
		analyzer ImageAnalyzer
		err      error
	)
	switch kind {
	case KindOpenAI, "":
		kind = KindOpenAI
		analyzer, err = openai.NewChatGPT(opts.OpenAIKey, opts.OpenAIModel)
	case KindGemini:
		analyzer, err = gemini.NewGeminiClient(opts.GeminiKey, opts.GeminiModel)
	case KindLocal:
		return NewLocal()
	default:
		log.Warn(log.Fields{"describer": opts.Kind}, "[describer.New] unknown describer, using local descriptions")
		return NewLocal()
	}

	if err != nil {
		log.Warn(log.Fields{
			"describer": kind,
			"error":     err.Error(),
		}, "[describer.New] hosted describer disabled, using local descriptions")
		return NewLocal()
	}

	log.Info(log.Fields{"describer": kind}, "[describer.New] hosted describer enabled")
	return NewHosted(analyzer, kind, opts.Language)
}
