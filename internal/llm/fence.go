package llm

import "strings"

const fence = "```"

// StripFence unwraps a response that is one fenced code block from start to end.
// Text that does not open with a fence is only trimmed. A generic fence holding
// more fences is left alone; a ```json fence may carry fences inside its strings.
func StripFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, fence) {
		return text
	}

	body := strings.TrimSuffix(strings.TrimPrefix(text, fence), fence)

	tag, rest, found := strings.Cut(body, "\n")
	if !found || !isFenceTag(tag) {
		return text
	}

	if !strings.EqualFold(strings.TrimSpace(tag), "json") && strings.Contains(rest, fence) {
		return text
	}

	return strings.TrimSpace(rest)
}

func isFenceTag(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "", "json", "markdown", "md", "text", "plaintext":
		return true
	default:
		return false
	}
}
