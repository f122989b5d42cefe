// Package prompt renders conversation turns into the model's chat template
// and cleans up raw generations on the way back out.
package prompt

import (
	"strings"
	"text/template"
	"unicode"

	"github.com/wizeapp/inference-worker/internal/chat"
)

// EndToken terminates every templated turn; generation stops at the first one.
const EndToken = "<|end|>"

// assistantCue is appended after the last turn so the model continues as the
// assistant rather than predicting another user turn.
const assistantCue = "<|assistant|>\n"

var turnTmpl = template.Must(template.New("turn").Parse(
	"<|{{.Role}}|>\n{{.Content}}" + EndToken + "\n"))

// Render converts messages into the chat-template prompt. Turns with roles
// other than system/user/assistant are skipped.
func Render(messages []chat.Message) (string, error) {
	var b strings.Builder

	for _, m := range messages {
		switch m.Role {
		case chat.RoleSystem, chat.RoleUser, chat.RoleAssistant:
		default:
			continue
		}
		if err := turnTmpl.Execute(&b, m); err != nil {
			return "", err
		}
	}

	b.WriteString(assistantCue)
	return b.String(), nil
}

// Truncate limits the prompt to roughly maxTokens tokens, keeping the head.
// Token boundaries are approximated by whitespace fields; the surviving text
// comes back byte-for-byte, newlines included, so the rendered chat template
// stays intact. The binding re-tokenizes against the real vocabulary, so this
// is only a guard against prompts that would blow past the context window.
func Truncate(prompt string, maxTokens int) string {
	if maxTokens <= 0 {
		return prompt
	}
	fields := 0
	inField := false
	for i, r := range prompt {
		isSpace := unicode.IsSpace(r)
		switch {
		case inField && isSpace:
			inField = false
			if fields == maxTokens {
				return prompt[:i]
			}
		case !inField && !isSpace:
			inField = true
			fields++
		}
	}
	return prompt
}

// Clean strips everything from the first end token onward and trims the
// surrounding whitespace.
func Clean(generated string) string {
	if i := strings.Index(generated, EndToken); i >= 0 {
		generated = generated[:i]
	}
	return strings.TrimSpace(generated)
}

// EstimateTokens approximates a token count by whitespace-separated words.
func EstimateTokens(s string) int {
	return len(strings.Fields(s))
}
