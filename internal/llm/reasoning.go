package llm

import (
	"fmt"
	"regexp"
	"strings"
)

// Reply is the chain-of-thought extractor input: either raw assistant text or
// a structured reply that may carry an explicit reasoning field. A zero Reply
// represents an absent response.
type Reply struct {
	Text       *string
	Structured *StructuredReply
}

// StructuredReply is a provider reply that separates content from reasoning.
type StructuredReply struct {
	Content          string
	ReasoningContent string
}

// RawText wraps a plain response string.
func RawText(s string) Reply {
	return Reply{Text: &s}
}

// Tag names recognized as reasoning markup, in priority order. The first name
// that matches anywhere in the text wins, regardless of position.
var reasoningTags = []string{"think", "thinking", "reasoning", "thought", "analysis"}

// The opening tag (and anything before it) is optional so a bare closing tag
// still delimits reasoning from the start of the text. Non-greedy, so a
// same-named nested tag truncates at the first closing tag.
var reasoningPatterns = func() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(reasoningTags))
	for i, tag := range reasoningTags {
		patterns[i] = regexp.MustCompile(`(?is)(?:.*?<` + tag + `>)?(.*?)</` + tag + `>`)
	}
	return patterns
}()

// ParseChainOfThought splits a reply into reasoning and final content.
//
// For raw text it scans for reasoning markup; reasoning is the matched inner
// text and content is everything after the closing tag, both stripped. With
// no markup, content is the stripped text, or nil when that is empty. A
// structured reply with a non-empty reasoning field bypasses the scan, and its
// empty content stays "" rather than nil.
//
// Only lmstudio and ollama replies carry tag-delimited reasoning; openai is
// rejected with ErrReasoningNotImplemented.
func ParseChainOfThought(reply Reply, provider Provider) (reasoning, content *string, err error) {
	if !provider.Valid() {
		return nil, nil, fmt.Errorf("%w %q", ErrInvalidProvider, provider)
	}
	if provider == ProviderOpenAI {
		return nil, nil, ErrReasoningNotImplemented
	}

	switch {
	case reply.Structured != nil:
		if r := strings.TrimSpace(reply.Structured.ReasoningContent); r != "" {
			c := strings.TrimSpace(reply.Structured.Content)
			return &r, &c, nil
		}
		text := reply.Structured.Content
		if strings.TrimSpace(text) == "" {
			empty := ""
			return nil, &empty, nil
		}
		reasoning, content = scanReasoningMarkup(text)
		if content == nil {
			empty := ""
			content = &empty
		}
		return reasoning, content, nil
	case reply.Text != nil:
		reasoning, content = scanReasoningMarkup(*reply.Text)
		return reasoning, content, nil
	default:
		return nil, nil, nil
	}
}

func scanReasoningMarkup(text string) (reasoning, content *string) {
	for _, pattern := range reasoningPatterns {
		loc := pattern.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		r := strings.TrimSpace(text[loc[2]:loc[3]])
		c := strings.TrimSpace(text[loc[1]:])
		return &r, &c
	}
	stripped := strings.TrimSpace(text)
	if stripped == "" {
		return nil, nil
	}
	return nil, &stripped
}
