package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docbt/docbt/internal/config"
	"github.com/docbt/docbt/internal/llm"
)

// chatFunc is replaced in tests to avoid real provider round trips.
var chatFunc = llm.Chat

func newChatCmd() *cobra.Command {
	var (
		prompt  string
		profile string
		metrics bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Send a message (or start interactive chat without -p)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			p := cfg.Profile(profile)
			if err := p.Validate(); err != nil {
				return fmt.Errorf("llm profile: %w", err)
			}
			if metrics {
				p.ReturnMetrics = true
			}

			runner := &chatRunner{cfg: cfg, profile: p}

			trimmedPrompt := strings.TrimSpace(prompt)
			if trimmedPrompt != "" {
				text, err := runner.Send(cmd.Context(), trimmedPrompt)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			}

			fallback := bufio.NewReader(cmd.InOrStdin())
			return runChatREPL(cmd.Context(), runner, cmd.InOrStdin(), fallback, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Prompt message")
	cmd.Flags().StringVar(&profile, "profile", "", "Provider profile from config (default: default)")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "Print response metrics")

	return cmd
}

// chatRunner threads conversation history through successive sends.
type chatRunner struct {
	cfg     *config.Config
	profile config.ProviderProfile
	history []llm.HistoryTurn
}

func (r *chatRunner) Send(ctx context.Context, message string) (string, error) {
	req := r.profile.ChatRequest(message, r.history)

	resp, err := chatFunc(ctx, req)
	if err != nil {
		return "", err
	}

	text := resp.Text()
	if text == "" && resp.Content != nil {
		// Structured content renders as JSON.
		encoded, err := json.Marshal(resp.Content)
		if err == nil {
			text = string(encoded)
		}
	}
	if !resp.Err {
		r.history = append(r.history, llm.HistoryTurn{User: message, Assistant: text})
	}

	out := text
	if resp.Reasoning != nil {
		out = fmt.Sprintf("[reasoning]\n%s\n\n%s", *resp.Reasoning, text)
	}
	if resp.Metrics != nil {
		stats, err := json.Marshal(resp.Metrics)
		if err == nil {
			out = fmt.Sprintf("%s\n%s", out, stats)
		}
	}
	return out, nil
}

func (r *chatRunner) Reset() {
	r.history = nil
}
