package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	httpclient "application-workflow/internal/common/http"
)

// HTTPGenerator calls POST {BaseURL}/api/ai/generate.
type HTTPGenerator struct {
	opts   Options
	client *httpclient.Client
}

// NewHTTPGenerator relies on the caller's context for timeouts.
func NewHTTPGenerator(opts Options) *HTTPGenerator {
	return &HTTPGenerator{
		opts:   opts,
		client: httpclient.NewClient(0),
	}
}

func (g *HTTPGenerator) Generate(ctx context.Context, req Request) (string, error) {
	body := map[string]interface{}{
		"prompt":      req.Prompt,
		"context":     req.Context,
		"max_tokens":  g.opts.MaxTokens,
		"temperature": g.opts.Temperature,
	}
	if req.JSON {
		body["response_format"] = "json"
	}

	headers := map[string]string{}
	if g.opts.APIKey != "" {
		headers["Authorization"] = "Bearer " + g.opts.APIKey
	}
	url := strings.TrimRight(g.opts.BaseURL, "/") + "/api/ai/generate"

	var lastErr error
	for attempt := 0; attempt <= g.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ErrLLMTimeout
			}
		}

		resp, err := g.client.DoJSON(ctx, http.MethodPost, url, body, headers)
		if err != nil {
			if ctx.Err() != nil {
				return "", ErrLLMTimeout
			}
			lastErr = err
			continue
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			// 4xx other than throttling will not improve on retry.
			if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				break
			}
			continue
		}

		var apiResponse struct {
			Text string `json:"text"`
		}
		if err := resp.Decode(&apiResponse); err != nil {
			return "", fmt.Errorf("%w: decode error: %v", ErrGenerationFailed, err)
		}
		if strings.TrimSpace(apiResponse.Text) == "" {
			return "", fmt.Errorf("%w: empty response", ErrGenerationFailed)
		}
		return apiResponse.Text, nil
	}

	return "", fmt.Errorf("%w: %v", ErrGenerationFailed, lastErr)
}
