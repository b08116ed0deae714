package llm

import (
	"errors"
	"strings"
	"testing"
)

func deref(t *testing.T, s *string) string {
	t.Helper()
	if s == nil {
		t.Fatalf("expected non-nil string")
	}
	return *s
}

func TestParseChainOfThought_TagVariants(t *testing.T) {
	tests := []struct {
		name          string
		in            string
		wantReasoning string
		wantContent   string
	}{
		{"think", "<think>Let me analyze this data...</think>Here is the final answer.", "Let me analyze this data...", "Here is the final answer."},
		{"thinking", "<thinking>Considering the options...</thinking>The best choice is A.", "Considering the options...", "The best choice is A."},
		{"reasoning", "<reasoning>This requires careful thought.</reasoning>Final conclusion.", "This requires careful thought.", "Final conclusion."},
		{"thought", "<thought>Breaking down the problem...</thought>Solution follows.", "Breaking down the problem...", "Solution follows."},
		{"analysis", "<analysis>Examining the data points...</analysis>Result is positive.", "Examining the data points...", "Result is positive."},
		{"case insensitive", "<THINK>Uppercase tags work too</THINK>Final answer", "Uppercase tags work too", "Final answer"},
		{"whitespace stripped", "  <think>  Reasoning with spaces  </think>  Content with spaces  ", "Reasoning with spaces", "Content with spaces"},
		{"special characters", "<think>Testing with $pecial ch@rs & symbols!</think>Final answer.", "Testing with $pecial ch@rs & symbols!", "Final answer."},
		{"json content", `<think>Analyzing JSON structure</think>{"result": "success", "value": 42}`, "Analyzing JSON structure", `{"result": "success", "value": 42}`},
		{"unicode", "<think>Pensée en français 🤔</think>Final answer with emoji ✅", "Pensée en français 🤔", "Final answer with emoji ✅"},
		{"closing tag only", "Some text </think> more text", "Some text", "more text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reasoning, content, err := ParseChainOfThought(RawText(tt.in), ProviderLMStudio)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := deref(t, reasoning); got != tt.wantReasoning {
				t.Fatalf("reasoning = %q, want %q", got, tt.wantReasoning)
			}
			if got := deref(t, content); got != tt.wantContent {
				t.Fatalf("content = %q, want %q", got, tt.wantContent)
			}
		})
	}
}

func TestParseChainOfThought_MultilineReasoning(t *testing.T) {
	in := "<think>\nFirst, point A.\nThen, point B.\n</think>The answer is 42."

	reasoning, content, err := ParseChainOfThought(RawText(in), ProviderOllama)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := deref(t, reasoning); !strings.Contains(got, "point A") || !strings.Contains(got, "point B") {
		t.Fatalf("unexpected reasoning: %q", got)
	}
	if got := deref(t, content); got != "The answer is 42." {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestParseChainOfThought_NoMarkers(t *testing.T) {
	reasoning, content, err := ParseChainOfThought(RawText("This is just a regular response."), ProviderLMStudio)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reasoning != nil {
		t.Fatalf("expected nil reasoning, got %q", *reasoning)
	}
	if got := deref(t, content); got != "This is just a regular response." {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestParseChainOfThought_FirstTagByPriorityWins(t *testing.T) {
	in := "<think>First reasoning</think><reasoning>Second reasoning</reasoning>Final answer"

	reasoning, content, err := ParseChainOfThought(RawText(in), ProviderLMStudio)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := deref(t, reasoning); got != "First reasoning" {
		t.Fatalf("unexpected reasoning: %q", got)
	}
	if got := deref(t, content); !strings.Contains(got, "<reasoning>Second reasoning</reasoning>Final answer") {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestParseChainOfThought_NestedTagTruncatesAtFirstClose(t *testing.T) {
	in := "<think>Outer <think>inner</think> reasoning</think>Answer"

	reasoning, content, err := ParseChainOfThought(RawText(in), ProviderLMStudio)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := deref(t, reasoning); got != "Outer <think>inner" {
		t.Fatalf("unexpected reasoning: %q", got)
	}
	if got := deref(t, content); !strings.Contains(got, "reasoning</think>Answer") {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestParseChainOfThought_StructuredWithReasoningField(t *testing.T) {
	reply := Reply{Structured: &StructuredReply{
		Content:          "The final answer is 42.",
		ReasoningContent: "Let me think about this step by step.",
	}}

	reasoning, content, err := ParseChainOfThought(reply, ProviderLMStudio)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := deref(t, reasoning); got != "Let me think about this step by step." {
		t.Fatalf("unexpected reasoning: %q", got)
	}
	if got := deref(t, content); got != "The final answer is 42." {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestParseChainOfThought_StructuredWithoutReasoningFieldScansMarkup(t *testing.T) {
	reply := Reply{Structured: &StructuredReply{Content: "<think>Internal reasoning</think>Final answer"}}

	reasoning, content, err := ParseChainOfThought(reply, ProviderLMStudio)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := deref(t, reasoning); got != "Internal reasoning" {
		t.Fatalf("unexpected reasoning: %q", got)
	}
	if got := deref(t, content); got != "Final answer" {
		t.Fatalf("unexpected content: %q", got)
	}
}

// A structured reply with empty content keeps content as "", while a bare
// empty string yields nil content. The asymmetry is part of the contract.
func TestParseChainOfThought_EmptyContentRepresentations(t *testing.T) {
	reasoning, content, err := ParseChainOfThought(Reply{Structured: &StructuredReply{Content: ""}}, ProviderLMStudio)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reasoning != nil {
		t.Fatalf("expected nil reasoning, got %q", *reasoning)
	}
	if got := deref(t, content); got != "" {
		t.Fatalf("expected empty content, got %q", got)
	}

	reasoning, content, err = ParseChainOfThought(RawText(""), ProviderLMStudio)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reasoning != nil || content != nil {
		t.Fatalf("expected nil/nil for empty string, got %v/%v", reasoning, content)
	}
}

func TestParseChainOfThought_AbsentReply(t *testing.T) {
	reasoning, content, err := ParseChainOfThought(Reply{}, ProviderOllama)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reasoning != nil || content != nil {
		t.Fatalf("expected nil/nil for absent reply, got %v/%v", reasoning, content)
	}
}

func TestParseChainOfThought_InvalidProvider(t *testing.T) {
	_, _, err := ParseChainOfThought(RawText("Some response text"), Provider("invalid_provider"))
	if !errors.Is(err, ErrInvalidProvider) {
		t.Fatalf("expected ErrInvalidProvider, got %v", err)
	}
}

func TestParseChainOfThought_OpenAINotImplemented(t *testing.T) {
	_, _, err := ParseChainOfThought(RawText("Some response text"), ProviderOpenAI)
	if !errors.Is(err, ErrReasoningNotImplemented) {
		t.Fatalf("expected ErrReasoningNotImplemented, got %v", err)
	}
}
