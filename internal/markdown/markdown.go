// Package markdown builds Telegram MarkdownV2 text.
package markdown

import "strings"

// Taken from https://core.telegram.org/bots/api#markdownv2-style.
const mdV2SpecialChars = `_*[]()~` + "`" + `>#+-=|{}.!\`

//nolint:gochecknoglobals // Read-only lookup table.
var (
	textLookup = lookup(mdV2SpecialChars)
	urlLookup  = lookup(`)\`)
)

// EscapeV2 escapes every character that has a meaning in MarkdownV2.
func EscapeV2(input string) string {
	return escape(input, &textLookup)
}

func Bold(text string) string {
	return "*" + EscapeV2(text) + "*"
}

// Link renders an inline link; inside the URL part only ')' and '\' are escaped.
func Link(text string, url string) string {
	return "[" + EscapeV2(text) + "](" + escape(url, &urlLookup) + ")"
}

// Pre renders a code block; inside it only '`' and '\' are escaped.
func Pre(text string) string {
	var b strings.Builder
	b.WriteString("```\n")
	for i := range len(text) {
		if text[i] == '`' || text[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(text[i])
	}
	b.WriteString("\n```")

	return b.String()
}

func escape(input string, table *[256]bool) string {
	charsToEscape := 0

	for i := range len(input) {
		if table[input[i]] {
			charsToEscape++
		}
	}
	if charsToEscape == 0 {
		return input
	}

	var b strings.Builder
	b.Grow(len(input) + charsToEscape)

	for i := range len(input) {
		c := input[i]
		if table[c] {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}

	return b.String()
}

func lookup(chars string) [256]bool {
	var m [256]bool
	for _, c := range []byte(chars) {
		m[c] = true
	}
	return m
}
