package writer

import (
	"bidmaster/internal/domain"
	"bidmaster/internal/llm"
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const (
	replyBodyPrefixRunes = 500
	replyMaxOutputTokens = 1024
)

// Replier drafts a forum reply for a human to review.
type Replier struct {
	gen llm.Generator
	log *slog.Logger
}

func NewReplier(gen llm.Generator, log *slog.Logger) *Replier {
	return &Replier{gen: gen, log: log}
}

func (r *Replier) Reply(ctx context.Context, thread domain.Thread) (*domain.ReplyDraft, error) {
	if r == nil || r.gen == nil {
		return nil, ErrNotConfigured
	}

	title := strings.TrimSpace(thread.Title)
	if title == "" {
		return nil, fmt.Errorf("thread title: %w", ErrMissingInput)
	}

	b := strings.Builder{}
	b.WriteString("A user asked:\n")
	b.WriteString(title)
	b.WriteString("\n")
	if body := truncateRunes(strings.TrimSpace(thread.SelfText), replyBodyPrefixRunes); body != "" {
		b.WriteString(body)
		b.WriteString("...")
	}

	text, err := r.gen.Generate(ctx, llm.Request{
		Instructions:    replyInstructions,
		Input:           b.String(),
		MaxOutputTokens: replyMaxOutputTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("generate reply: %w", err)
	}

	text = strings.TrimSpace(llm.StripFence(text))
	if text == "" {
		return nil, fmt.Errorf("%w: reply is empty", ErrMalformedDraft)
	}

	return &domain.ReplyDraft{Thread: thread, Text: text}, nil
}

func truncateRunes(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}

	return string(runes[:maxRunes])
}
