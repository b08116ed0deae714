// Package llm normalizes three heterogeneous chat backends (an LM Studio
// OpenAI-compatible server, a native Ollama server, and the OpenAI cloud API)
// into one request/response contract: conversation assembly, dispatch,
// response parsing, chain-of-thought extraction, structured-output validation,
// and per-call metrics.
package llm

import (
	"errors"
	"net/http"
	"time"
)

// Provider identifies a supported chat backend.
type Provider string

const (
	// ProviderLMStudio is a local LM Studio server speaking the
	// OpenAI-compatible /v1/chat/completions API.
	ProviderLMStudio Provider = "lmstudio"
	// ProviderOllama is a local Ollama server speaking its native /api/chat API.
	ProviderOllama Provider = "ollama"
	// ProviderOpenAI is the OpenAI cloud API via the official SDK.
	ProviderOpenAI Provider = "openai"
)

// Valid reports whether p is one of the three supported providers.
func (p Provider) Valid() bool {
	switch p {
	case ProviderLMStudio, ProviderOllama, ProviderOpenAI:
		return true
	}
	return false
}

// Endpoint selects the OpenAI API variant used for dispatch and parsing.
type Endpoint string

const (
	// EndpointCompletions is the chat-completions style API.
	EndpointCompletions Endpoint = "completions"
	// EndpointCreate is the newer "responses" style API.
	EndpointCreate Endpoint = "create"
)

// Role is the author role for a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single conversation turn in provider wire order.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// HistoryTurn is one completed exchange from prior conversation. Each turn
// contributes a user message followed by an assistant message.
type HistoryTurn struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

// DefaultTimeout bounds a single transport round trip when neither the
// request nor the configuration supplies a timeout.
const DefaultTimeout = 60 * time.Second

// ChatRequest is the provider-agnostic request payload for Chat.
//
// Numeric generation parameters are pointers so that unset fields are omitted
// from provider request bodies entirely rather than sent as zero values.
type ChatRequest struct {
	Provider Provider
	Model    string
	// Message is the current user message, always placed last.
	Message      string
	SystemPrompt string
	History      []HistoryTurn

	// ServerURL is required for lmstudio and ollama.
	ServerURL string
	// APIKey is required for openai.
	APIKey string
	// BaseURL overrides the OpenAI API base, e.g. for a compatible gateway.
	BaseURL string
	// HTTPClient overrides the transport; nil uses a default client.
	HTTPClient *http.Client

	MaxTokens   *int
	Temperature *float64
	TopP        *float64
	Stop        []string
	// ResponseFormat is a JSON-schema-like contract the reply content must
	// satisfy. Supports both a bare schema and the OpenAI
	// {json_schema:{schema:...}} wrapper.
	ResponseFormat map[string]any

	ReturnMetrics        bool
	ReturnChainOfThought bool

	// Endpoint selects the OpenAI API variant; empty means "completions".
	Endpoint Endpoint
	// Timeout bounds the transport call; zero falls back to DefaultTimeout.
	Timeout time.Duration
}

// Metrics are derived timing and token-usage figures for one call.
// They are computed per response and never persisted.
type Metrics struct {
	ResponseTime     float64  `json:"response_time"`
	PromptTokens     int      `json:"prompt_tokens"`
	CompletionTokens int      `json:"completion_tokens"`
	TotalTokens      int      `json:"total_tokens"`
	TokensPerSecond  float64  `json:"tokens_per_second,omitempty"`
	Model            string   `json:"model,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	MaxTokens        *int     `json:"max_tokens,omitempty"`
}

// ChatResponse is the normalized reply. Content is the assistant's final text,
// or the parsed object after structured-response validation. Err marks a
// response-shape failure; Content then holds a human-readable description.
type ChatResponse struct {
	Content   any      `json:"content"`
	Reasoning *string  `json:"reasoning,omitempty"`
	Metrics   *Metrics `json:"metrics,omitempty"`
	Err       bool     `json:"error,omitempty"`
}

// Text returns Content when it is a plain string, and "" otherwise.
func (r *ChatResponse) Text() string {
	s, _ := r.Content.(string)
	return s
}

// GenerationParams are the request parameters echoed back into Metrics.
type GenerationParams struct {
	Model       string
	Temperature *float64
	MaxTokens   *int
}

// Configuration errors, raised synchronously before any I/O.
var (
	ErrInvalidProvider   = errors.New("invalid provider")
	ErrInvalidEndpoint   = errors.New("invalid endpoint")
	ErrServerURLRequired = errors.New("server_url is required")
	ErrAPIKeyRequired    = errors.New("api_key is required")
)

// ErrStructuredValidation marks a reply whose content does not satisfy the
// requested response format. Distinct from configuration errors.
var ErrStructuredValidation = errors.New("structured response validation failed")

// ErrReasoningNotImplemented is returned when chain-of-thought extraction is
// requested for the openai provider, whose reasoning is never tag-delimited.
var ErrReasoningNotImplemented = errors.New("chain of thought parsing for openai is not implemented")
