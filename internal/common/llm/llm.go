// Package llm provides text generation against either a generic GenAI HTTP
// endpoint or Google Gemini.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"application-workflow/internal/common/config"
	"application-workflow/internal/common/logger"
	"application-workflow/internal/common/metrics"
)

var (
	ErrLLMTimeout       = errors.New("LLM_TIMEOUT")
	ErrGenerationFailed = errors.New("GENERATION_FAILED")
)

// Request is one generation call.
type Request struct {
	// Purpose labels metrics and logs, e.g. "questions" or "analysis".
	Purpose string
	Prompt  string
	Context map[string]interface{}
	// JSON asks the provider for a JSON-only answer.
	JSON bool
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Options holds provider-independent settings.
type Options struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxRetries  int
	MaxTokens   int
	Temperature float64
}

// OptionsFromConfig maps the apis.genai section.
func OptionsFromConfig(cfg *config.Config) Options {
	g := cfg.APIs.GenAI
	return Options{
		BaseURL:     g.BaseURL,
		APIKey:      g.APIKey,
		Model:       g.Model,
		Timeout:     config.GetDuration(g.Timeout),
		MaxRetries:  g.MaxRetries,
		MaxTokens:   g.MaxTokens,
		Temperature: g.Temperature,
	}
}

// New builds the configured provider wrapped with metrics.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (Generator, error) {
	opts := OptionsFromConfig(cfg)

	var gen Generator
	switch cfg.APIs.GenAI.Provider {
	case "gemini":
		g, err := NewGeminiGenerator(ctx, opts)
		if err != nil {
			return nil, err
		}
		gen = g
	case "http", "":
		gen = NewHTTPGenerator(opts)
	default:
		return nil, fmt.Errorf("unknown genai provider %q", cfg.APIs.GenAI.Provider)
	}
	return Instrument(gen, opts.Timeout, log), nil
}

type instrumented struct {
	next    Generator
	timeout time.Duration
	logger  logger.Logger
}

// Instrument bounds every call by timeout and records duration and result.
func Instrument(next Generator, timeout time.Duration, log logger.Logger) Generator {
	return &instrumented{next: next, timeout: timeout, logger: log}
}

func (g *instrumented) Generate(ctx context.Context, req Request) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := g.next.Generate(ctx, req)
	metrics.GenerationDuration.WithLabelValues(req.Purpose).Observe(time.Since(start).Seconds())

	if err != nil {
		result := "error"
		if errors.Is(err, ErrLLMTimeout) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			result = "timeout"
			err = fmt.Errorf("%w: %v", ErrLLMTimeout, err)
		}
		metrics.GenerationCalls.WithLabelValues(req.Purpose, result).Inc()
		g.logger.Warn("generation failed", map[string]interface{}{
			"purpose":    req.Purpose,
			"error":      err.Error(),
			"durationMs": time.Since(start).Milliseconds(),
		})
		return "", err
	}

	metrics.GenerationCalls.WithLabelValues(req.Purpose, "ok").Inc()
	g.logger.Debug("generation completed", map[string]interface{}{
		"purpose":    req.Purpose,
		"chars":      len(text),
		"durationMs": time.Since(start).Milliseconds(),
	})
	return text, nil
}

// ExtractJSON trims markdown fences and surrounding prose from a model
// answer, returning the outermost JSON object or array.
func ExtractJSON(text string) string {
	start := strings.IndexAny(text, "[{")
	if start < 0 {
		return strings.TrimSpace(text)
	}
	closer := byte('}')
	if text[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(text, closer)
	if end < start {
		return strings.TrimSpace(text[start:])
	}
	return text[start : end+1]
}
