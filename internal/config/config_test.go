package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/docbt/docbt/internal/llm"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("DOCBT_HOME", home)
	if err := os.WriteFile(filepath.Join(home, "config.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return home
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("DOCBT_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	p := cfg.DefaultLLM()
	if p.Provider != "lmstudio" {
		t.Fatalf("unexpected default provider: %q", p.Provider)
	}
	if p.ServerURL != "http://localhost:1234" {
		t.Fatalf("unexpected default server_url: %q", p.ServerURL)
	}
	if p.RequestTimeout != 60*time.Second {
		t.Fatalf("unexpected default timeout: %v", p.RequestTimeout)
	}
	if cfg.Server.Listen != "127.0.0.1:8555" {
		t.Fatalf("unexpected default listen: %q", cfg.Server.Listen)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("unexpected default log level: %q", cfg.Logging.Level)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	home := writeConfig(t, `
[llm.default]
provider = "ollama"
model = "llama3"
server_url = "http://localhost:11434"
request_timeout = "90s"
return_metrics = true

[llm.cloud]
provider = "openai"
model = "gpt-4"
api_key = "sk-test"

[server]
listen = "0.0.0.0:9000"

[logging]
level = "debug"
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HomeDir != home {
		t.Fatalf("HomeDir = %q, want %q", cfg.HomeDir, home)
	}

	p := cfg.DefaultLLM()
	if p.Provider != "ollama" || p.Model != "llama3" {
		t.Fatalf("unexpected default profile: %+v", p)
	}
	if p.RequestTimeout != 90*time.Second {
		t.Fatalf("unexpected timeout: %v", p.RequestTimeout)
	}
	if !p.ReturnMetrics {
		t.Fatalf("expected return_metrics true")
	}

	cloud := cfg.Profile("cloud")
	if cloud.Provider != "openai" || cloud.APIKey != "sk-test" {
		t.Fatalf("unexpected cloud profile: %+v", cloud)
	}

	if cfg.Server.Listen != "0.0.0.0:9000" {
		t.Fatalf("unexpected listen: %q", cfg.Server.Listen)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected log level: %q", cfg.Logging.Level)
	}
}

func TestLoad_ExpandsEnvInStrings(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-from-env")
	writeConfig(t, `
[llm.default]
provider = "openai"
model = "gpt-4"
api_key = "$TEST_OPENAI_KEY"
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.DefaultLLM().APIKey; got != "sk-from-env" {
		t.Fatalf("api_key = %q, want expanded env value", got)
	}
}

func TestProfile_FallsBackToDefault(t *testing.T) {
	t.Setenv("DOCBT_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Profile("nonexistent"); got.Provider != "lmstudio" {
		t.Fatalf("expected fallback to default profile, got %+v", got)
	}
}

func TestProviderProfileValidate(t *testing.T) {
	valid := ProviderProfile{
		Provider:       "lmstudio",
		Model:          "local-model",
		ServerURL:      "http://localhost:1234",
		RequestTimeout: time.Minute,
	}

	tests := []struct {
		name    string
		mutate  func(*ProviderProfile)
		wantErr string
	}{
		{"valid", func(p *ProviderProfile) {}, ""},
		{"unsupported provider", func(p *ProviderProfile) { p.Provider = "bedrock" }, "unsupported provider"},
		{"missing model", func(p *ProviderProfile) { p.Model = "" }, "model is required"},
		{"zero timeout", func(p *ProviderProfile) { p.RequestTimeout = 0 }, "request_timeout"},
		{"local missing server_url", func(p *ProviderProfile) { p.ServerURL = "" }, "server_url is required"},
		{"openai missing api_key", func(p *ProviderProfile) {
			p.Provider = "openai"
			p.APIKey = ""
		}, "api_key is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigValidate_ReportsProfileErrors(t *testing.T) {
	writeConfig(t, `
[llm.default]
provider = "openai"
model = "gpt-4"
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	err = cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "llm.default") {
		t.Fatalf("expected llm.default validation error, got %v", err)
	}
}

func TestChatRequest_FromProfile(t *testing.T) {
	temp := 0.4
	p := ProviderProfile{
		Provider:             "ollama",
		Model:                "llama3",
		ServerURL:            "http://localhost:11434",
		SystemPrompt:         "Be brief.",
		MaxTokens:            256,
		Temperature:          &temp,
		Stop:                 "STOP, END",
		RequestTimeout:       45 * time.Second,
		ReturnChainOfThought: true,
	}

	history := []llm.HistoryTurn{{User: "Q", Assistant: "A"}}
	req := p.ChatRequest("hello", history)

	if req.Provider != llm.ProviderOllama || req.Model != "llama3" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.SystemPrompt != "Be brief." || len(req.History) != 1 {
		t.Fatalf("unexpected conversation fields: %+v", req)
	}
	if req.MaxTokens == nil || *req.MaxTokens != 256 {
		t.Fatalf("unexpected max_tokens: %v", req.MaxTokens)
	}
	if req.Temperature == nil || *req.Temperature != 0.4 {
		t.Fatalf("unexpected temperature: %v", req.Temperature)
	}
	if len(req.Stop) != 2 || req.Stop[0] != "STOP" || req.Stop[1] != "END" {
		t.Fatalf("unexpected stop: %#v", req.Stop)
	}
	if req.Timeout != 45*time.Second || !req.ReturnChainOfThought {
		t.Fatalf("unexpected request options: %+v", req)
	}
}

func TestChatRequest_ZeroMaxTokensOmitted(t *testing.T) {
	p := ProviderProfile{Provider: "lmstudio", Model: "m", ServerURL: "http://localhost:1234"}

	if req := p.ChatRequest("hi", nil); req.MaxTokens != nil {
		t.Fatalf("expected nil max_tokens, got %v", *req.MaxTokens)
	}
}

func TestDefaultUserConfigTOML(t *testing.T) {
	out, err := DefaultUserConfigTOML()
	if err != nil {
		t.Fatalf("DefaultUserConfigTOML: %v", err)
	}
	for _, want := range []string{"provider", "lmstudio", "server_url", "request_timeout"} {
		if !strings.Contains(out, want) {
			t.Fatalf("generated config missing %q:\n%s", want, out)
		}
	}
}
