package prompt_test

import (
	"strings"
	"testing"

	"github.com/wizeapp/inference-worker/internal/chat"
	"github.com/wizeapp/inference-worker/internal/prompt"
)

func TestRender(t *testing.T) {
	messages := []chat.Message{
		{Role: chat.RoleSystem, Content: "You are helpful."},
		{Role: chat.RoleUser, Content: "Hi"},
		{Role: chat.RoleAssistant, Content: "Hello!"},
		{Role: chat.RoleUser, Content: "How are you?"},
	}

	got, err := prompt.Render(messages)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	want := "<|system|>\nYou are helpful.<|end|>\n" +
		"<|user|>\nHi<|end|>\n" +
		"<|assistant|>\nHello!<|end|>\n" +
		"<|user|>\nHow are you?<|end|>\n" +
		"<|assistant|>\n"
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestRenderSkipsUnknownRoles(t *testing.T) {
	messages := []chat.Message{
		{Role: "tool", Content: "should be dropped"},
		{Role: chat.RoleUser, Content: "Hi"},
	}

	got, err := prompt.Render(messages)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if strings.Contains(got, "dropped") {
		t.Errorf("unknown role content leaked into prompt: %q", got)
	}
	if !strings.Contains(got, "<|user|>\nHi<|end|>\n") {
		t.Errorf("user turn missing from prompt: %q", got)
	}
}

func TestRenderEmptyEndsWithAssistantCue(t *testing.T) {
	got, err := prompt.Render(nil)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got != "<|assistant|>\n" {
		t.Errorf("Render(nil) = %q, want assistant cue only", got)
	}
}

func TestTruncate(t *testing.T) {
	p := "one two three four five"

	if got := prompt.Truncate(p, 3); got != "one two three" {
		t.Errorf("Truncate() = %q, want %q", got, "one two three")
	}

	// Short enough prompts come back untouched
	if got := prompt.Truncate(p, 10); got != p {
		t.Errorf("Truncate() = %q, want unchanged", got)
	}

	// Zero means no limit
	if got := prompt.Truncate(p, 0); got != p {
		t.Errorf("Truncate(0) = %q, want unchanged", got)
	}
}

func TestTruncatePreservesTemplateBytes(t *testing.T) {
	rendered, err := prompt.Render([]chat.Message{
		{Role: chat.RoleSystem, Content: "Be brief."},
		{Role: chat.RoleUser, Content: "alpha beta gamma delta"},
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	got := prompt.Truncate(rendered, 6)

	want := "<|system|>\nBe brief.<|end|>\n<|user|>\nalpha beta"
	if got != want {
		t.Errorf("Truncate() = %q, want %q", got, want)
	}

	// The surviving text must be a byte-for-byte prefix of the rendered
	// prompt; collapsed newlines would break the chat template.
	if !strings.HasPrefix(rendered, got) {
		t.Errorf("truncated prompt is not a prefix of the original:\n%q\nvs\n%q", got, rendered)
	}
	if !strings.Contains(got, "<|system|>\n") {
		t.Errorf("template newlines lost: %q", got)
	}
}

func TestClean(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"cuts at end token", "I'm fine.<|end|>\n<|user|>\nleaked", "I'm fine."},
		{"trims whitespace", "  hello  ", "hello"},
		{"no end token", "plain response", "plain response"},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := prompt.Clean(tc.in); got != tc.want {
				t.Errorf("Clean(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := prompt.EstimateTokens("three word reply"); got != 3 {
		t.Errorf("EstimateTokens() = %d, want 3", got)
	}
	if got := prompt.EstimateTokens(""); got != 0 {
		t.Errorf("EstimateTokens(\"\") = %d, want 0", got)
	}
}
