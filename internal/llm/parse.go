package llm

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/responses"
)

// RawResponse carries one provider-shaped reply, uninterpreted. Exactly one
// field is set: Body for the raw-HTTP providers, Completion or Response for
// the two OpenAI endpoint variants.
type RawResponse struct {
	Body       []byte
	Completion *openai.ChatCompletion
	Response   *responses.Response
}

// Response-shape failures are reported as error payloads, not raised, so a
// caller can render them without crashing.
const (
	invalidFormatMessage  = "Invalid response format: unable to decode provider response"
	missingMessageMessage = "Unable to parse response message from provider response"
)

func errorPayload(message string) *ChatResponse {
	return &ChatResponse{Content: message, Err: true}
}

type usageCounts struct {
	prompt     int
	completion int
	total      int
}

// ParseResponse shapes one raw provider reply into the normalized contract:
// content extraction, optional chain-of-thought splitting for the local
// providers, and best-effort metrics. elapsed is the wall-clock duration of
// the transport call only. Configuration mistakes (unknown provider or
// endpoint) are errors; malformed provider replies come back as Err payloads.
func ParseResponse(raw *RawResponse, elapsed time.Duration, params GenerationParams, returnMetrics, returnChainOfThought bool, provider Provider, endpoint Endpoint) (*ChatResponse, error) {
	if !provider.Valid() {
		return nil, fmt.Errorf("%w %q", ErrInvalidProvider, provider)
	}
	if endpoint == "" {
		endpoint = EndpointCompletions
	}

	var content string
	var usage usageCounts

	switch provider {
	case ProviderLMStudio:
		if endpoint != EndpointCompletions {
			return nil, fmt.Errorf("%w %q", ErrInvalidEndpoint, endpoint)
		}
		if raw == nil || raw.Body == nil {
			return errorPayload(invalidFormatMessage), nil
		}
		var parsed lmStudioResponse
		if err := json.Unmarshal(raw.Body, &parsed); err != nil {
			return errorPayload(invalidFormatMessage), nil
		}
		if len(parsed.Choices) == 0 {
			return errorPayload(missingMessageMessage), nil
		}
		content = parsed.Choices[0].Message.Content
		if parsed.Usage != nil {
			usage = usageCounts{
				prompt:     parsed.Usage.PromptTokens,
				completion: parsed.Usage.CompletionTokens,
				total:      parsed.Usage.TotalTokens,
			}
		}
	case ProviderOllama:
		if raw == nil || raw.Body == nil {
			return errorPayload(invalidFormatMessage), nil
		}
		var parsed ollamaResponse
		if err := json.Unmarshal(raw.Body, &parsed); err != nil {
			return errorPayload(invalidFormatMessage), nil
		}
		if parsed.Message == nil {
			return errorPayload(missingMessageMessage), nil
		}
		content = parsed.Message.Content
		usage = usageCounts{
			prompt:     parsed.PromptEvalCount,
			completion: parsed.EvalCount,
			total:      parsed.PromptEvalCount + parsed.EvalCount,
		}
	case ProviderOpenAI:
		switch endpoint {
		case EndpointCompletions:
			if raw == nil || raw.Completion == nil {
				return errorPayload(invalidFormatMessage), nil
			}
			if len(raw.Completion.Choices) == 0 {
				return errorPayload(missingMessageMessage), nil
			}
			content = raw.Completion.Choices[0].Message.Content
			usage = usageCounts{
				prompt:     int(raw.Completion.Usage.PromptTokens),
				completion: int(raw.Completion.Usage.CompletionTokens),
				total:      int(raw.Completion.Usage.TotalTokens),
			}
		case EndpointCreate:
			if raw == nil || raw.Response == nil {
				return errorPayload(invalidFormatMessage), nil
			}
			content = raw.Response.OutputText()
			usage = usageCounts{
				prompt:     int(raw.Response.Usage.InputTokens),
				completion: int(raw.Response.Usage.OutputTokens),
				total:      int(raw.Response.Usage.TotalTokens),
			}
		default:
			return nil, fmt.Errorf("%w %q", ErrInvalidEndpoint, endpoint)
		}
	}

	resp := &ChatResponse{Content: content}

	// Local models interleave tag-delimited reasoning with the answer, so the
	// markup is always stripped from displayed content; the flag only controls
	// whether the reasoning itself is surfaced. OpenAI content is returned
	// exactly as supplied.
	if provider != ProviderOpenAI {
		reasoning, remainder, err := ParseChainOfThought(RawText(content), provider)
		if err == nil {
			if remainder != nil {
				resp.Content = *remainder
			} else {
				resp.Content = ""
			}
			if returnChainOfThought && reasoning != nil {
				resp.Reasoning = reasoning
			}
		}
	}

	if returnMetrics {
		resp.Metrics = buildMetrics(elapsed, usage, params)
	}
	return resp, nil
}

// buildMetrics degrades gracefully: counters a provider did not report stay
// zero, and tokens/sec is left unset for a non-positive duration.
func buildMetrics(elapsed time.Duration, usage usageCounts, params GenerationParams) *Metrics {
	if usage.total == 0 {
		usage.total = usage.prompt + usage.completion
	}
	m := &Metrics{
		ResponseTime:     elapsed.Seconds(),
		PromptTokens:     usage.prompt,
		CompletionTokens: usage.completion,
		TotalTokens:      usage.total,
		Model:            params.Model,
		Temperature:      params.Temperature,
		MaxTokens:        params.MaxTokens,
	}
	if secs := elapsed.Seconds(); secs > 0 {
		m.TokensPerSecond = float64(usage.completion) / secs
	}
	return m
}
