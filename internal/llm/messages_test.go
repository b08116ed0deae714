package llm

import (
	"reflect"
	"testing"
)

func TestBuildMessages_CurrentOnly(t *testing.T) {
	got := BuildMessages("Hello", "", nil)

	want := []Message{{Role: RoleUser, Content: "Hello"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected messages: %+v", got)
	}
}

func TestBuildMessages_SystemPromptFirst(t *testing.T) {
	got := BuildMessages("Hello", "You are a helpful assistant.", nil)

	want := []Message{
		{Role: RoleSystem, Content: "You are a helpful assistant."},
		{Role: RoleUser, Content: "Hello"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected messages: %+v", got)
	}
}

func TestBuildMessages_HistoryOrder(t *testing.T) {
	history := []HistoryTurn{
		{User: "Q1", Assistant: "A1"},
		{User: "Q2", Assistant: "A2"},
	}

	got := BuildMessages("Hi", "Be nice", history)

	want := []Message{
		{Role: RoleSystem, Content: "Be nice"},
		{Role: RoleUser, Content: "Q1"},
		{Role: RoleAssistant, Content: "A1"},
		{Role: RoleUser, Content: "Q2"},
		{Role: RoleAssistant, Content: "A2"},
		{Role: RoleUser, Content: "Hi"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected messages: %+v", got)
	}
}

func TestBuildMessages_DoesNotMutateHistory(t *testing.T) {
	history := []HistoryTurn{{User: "Previous", Assistant: "Response"}}

	_ = BuildMessages("Current", "System", history)

	if history[0].User != "Previous" || history[0].Assistant != "Response" {
		t.Fatalf("history mutated: %+v", history)
	}
}

func TestParseStopSequences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"single", "STOP", []string{"STOP"}},
		{"multiple", "STOP, END, TERMINATE", []string{"STOP", "END", "TERMINATE"}},
		{"extra whitespace", "  STOP  ,  END  ", []string{"STOP", "END"}},
		{"no spaces", "STOP,END", []string{"STOP", "END"}},
		{"trailing comma", "STOP, END, ", []string{"STOP", "END"}},
		{"empty items filtered", "STOP,,END,,,TERMINATE", []string{"STOP", "END", "TERMINATE"}},
		{"special characters", "<|end|>, ###, [DONE]", []string{"<|end|>", "###", "[DONE]"}},
		{"tabs stripped", "\tSTOP\t,\tEND\t", []string{"STOP", "END"}},
		{"unicode", "STOP, 停止, КОНЕЦ", []string{"STOP", "停止", "КОНЕЦ"}},
		{"empty", "", nil},
		{"whitespace only", "   ", nil},
		{"commas only", ",,,", nil},
		{"single comma", ",", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseStopSequences(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ParseStopSequences(%q) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}
