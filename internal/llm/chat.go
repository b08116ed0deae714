package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Chat is the unified entry point: it validates configuration, assembles the
// conversation, performs exactly one blocking transport round trip, and
// normalizes the reply. Transport errors propagate unmodified; no retries are
// attempted. The wall clock for metrics covers the transport call only.
func Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	switch req.Provider {
	case ProviderLMStudio, ProviderOllama:
		if strings.TrimSpace(req.ServerURL) == "" {
			return nil, fmt.Errorf("%w for provider %q", ErrServerURLRequired, req.Provider)
		}
	case ProviderOpenAI:
		if strings.TrimSpace(req.APIKey) == "" {
			return nil, fmt.Errorf("%w for provider %q", ErrAPIKeyRequired, req.Provider)
		}
	default:
		return nil, fmt.Errorf("%w %q", ErrInvalidProvider, req.Provider)
	}

	if req.Endpoint == "" {
		req.Endpoint = EndpointCompletions
	}
	if req.Endpoint != EndpointCompletions && req.Endpoint != EndpointCreate {
		return nil, fmt.Errorf("%w %q", ErrInvalidEndpoint, req.Endpoint)
	}

	messages := BuildMessages(req.Message, req.SystemPrompt, req.History)

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		raw *RawResponse
		err error
	)
	start := time.Now()
	switch req.Provider {
	case ProviderLMStudio:
		var body []byte
		body, err = dispatchLMStudio(ctx, req, messages)
		raw = &RawResponse{Body: body}
	case ProviderOllama:
		var body []byte
		body, err = dispatchOllama(ctx, req, messages)
		raw = &RawResponse{Body: body}
	case ProviderOpenAI:
		raw, err = dispatchOpenAI(ctx, req, messages)
	}
	elapsed := time.Since(start)
	if err != nil {
		return nil, err
	}

	params := GenerationParams{
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	resp, err := ParseResponse(raw, elapsed, params, req.ReturnMetrics, req.ReturnChainOfThought, req.Provider, req.Endpoint)
	if err != nil {
		return nil, err
	}

	if len(req.ResponseFormat) > 0 && !resp.Err {
		return ValidateAndParseStructuredResponse(resp, req.ResponseFormat, req.Provider)
	}
	return resp, nil
}

// ChatWithLMStudio sends req to an LM Studio server at serverURL.
func ChatWithLMStudio(ctx context.Context, serverURL string, req ChatRequest) (*ChatResponse, error) {
	req.Provider = ProviderLMStudio
	req.ServerURL = serverURL
	return Chat(ctx, req)
}

// ChatWithOllama sends req to an Ollama server at serverURL.
func ChatWithOllama(ctx context.Context, serverURL string, req ChatRequest) (*ChatResponse, error) {
	req.Provider = ProviderOllama
	req.ServerURL = serverURL
	return Chat(ctx, req)
}

// ChatWithOpenAI sends req to the OpenAI API authenticated with apiKey.
func ChatWithOpenAI(ctx context.Context, apiKey string, req ChatRequest) (*ChatResponse, error) {
	req.Provider = ProviderOpenAI
	req.APIKey = apiKey
	return Chat(ctx, req)
}
