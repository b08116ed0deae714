package llm

import (
	"context"
	"strings"
)

// Ollama's native /api/chat endpoint, not OpenAI-compatible. The trailing
// slash is part of the URL this client has always called.
const ollamaChatPath = "/api/chat/"

// ollamaRequest is Ollama's native chat body: generation parameters ride
// inside options, and structured output is requested via format.
type ollamaRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Format   map[string]any `json:"format,omitempty"`
	Options  *ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	NumPredict  *int     `json:"num_predict,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// ollamaResponse is the subset of the native reply shape this package
// consumes. Token counters live at the top level, not under a usage object.
type ollamaResponse struct {
	Message *struct {
		Content string `json:"content"`
	} `json:"message"`
	PromptEvalCount int `json:"prompt_eval_count"`
	EvalCount       int `json:"eval_count"`
}

func dispatchOllama(ctx context.Context, req ChatRequest, messages []Message) ([]byte, error) {
	payload := ollamaRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   false,
	}
	if req.ResponseFormat != nil {
		payload.Format = extractSchema(req.ResponseFormat)
	}
	if req.MaxTokens != nil || req.Temperature != nil || req.TopP != nil || len(req.Stop) > 0 {
		payload.Options = &ollamaOptions{
			NumPredict:  req.MaxTokens,
			Temperature: req.Temperature,
			TopP:        req.TopP,
			Stop:        req.Stop,
		}
	}
	return postJSON(ctx, req.HTTPClient, strings.TrimRight(req.ServerURL, "/")+ollamaChatPath, payload)
}
