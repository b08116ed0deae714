package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/responses"
	"github.com/openai/openai-go/v2/shared"
)

// isGPT5Family reports whether the model belongs to the gpt-5 family, which
// rejects temperature/top_p/stop and takes a reasoning effort instead.
func isGPT5Family(model string) bool {
	return strings.HasPrefix(strings.ToLower(model), "gpt-5")
}

func newOpenAIClient(req ChatRequest) openai.Client {
	opts := []option.RequestOption{option.WithAPIKey(req.APIKey)}
	if req.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(req.BaseURL))
	}
	if req.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(req.HTTPClient))
	}
	return openai.NewClient(opts...)
}

func dispatchOpenAI(ctx context.Context, req ChatRequest, messages []Message) (*RawResponse, error) {
	client := newOpenAIClient(req)

	switch req.Endpoint {
	case EndpointCompletions:
		completion, err := client.Chat.Completions.New(ctx, completionParams(req, messages))
		if err != nil {
			return nil, err
		}
		return &RawResponse{Completion: completion}, nil
	case EndpointCreate:
		resp, err := client.Responses.New(ctx, responseParams(req, messages))
		if err != nil {
			return nil, err
		}
		return &RawResponse{Response: resp}, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrInvalidEndpoint, req.Endpoint)
	}
}

func completionParams(req ChatRequest, messages []Message) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: toOpenAIMessages(messages),
	}
	if req.MaxTokens != nil {
		params.MaxTokens = openai.Int(int64(*req.MaxTokens))
	}
	if isGPT5Family(req.Model) {
		params.ReasoningEffort = shared.ReasoningEffortLow
		return params
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.TopP != nil {
		params.TopP = openai.Float(*req.TopP)
	}
	if len(req.Stop) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{OfStringArray: req.Stop}
	}
	return params
}

func responseParams(req ChatRequest, messages []Message) responses.ResponseNewParams {
	input := make(responses.ResponseInputParam, 0, len(messages))
	for _, m := range messages {
		input = append(input, responses.ResponseInputItemUnionParam{
			OfMessage: &responses.EasyInputMessageParam{
				Role:    responses.EasyInputMessageRole(m.Role),
				Content: responses.EasyInputMessageContentUnionParam{OfString: openai.String(m.Content)},
			},
		})
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(req.Model),
		Input: responses.ResponseNewParamsInputUnion{OfInputItemList: input},
	}
	if req.MaxTokens != nil {
		params.MaxOutputTokens = openai.Int(int64(*req.MaxTokens))
	}
	if isGPT5Family(req.Model) {
		params.Reasoning = shared.ReasoningParam{Effort: shared.ReasoningEffortLow}
		return params
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.TopP != nil {
		params.TopP = openai.Float(*req.TopP)
	}
	return params
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
