package writer

import (
	"bidmaster/internal/domain"
	"bidmaster/internal/llm"
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const socialMaxOutputTokens = 1024

// Promoter writes social copy for a stored article.
type Promoter struct {
	gen llm.Generator
	log *slog.Logger
}

func NewPromoter(gen llm.Generator, log *slog.Logger) *Promoter {
	return &Promoter{gen: gen, log: log}
}

func (p *Promoter) Promote(
	ctx context.Context,
	post domain.StoredPost,
	articleURL string,
) (*domain.SocialPostDraft, error) {
	if p == nil || p.gen == nil {
		return nil, ErrNotConfigured
	}

	title := strings.TrimSpace(post.Title)
	if title == "" {
		return nil, fmt.Errorf("article title: %w", ErrMissingInput)
	}

	articleURL = strings.TrimSpace(articleURL)
	if articleURL == "" {
		return nil, fmt.Errorf("article URL: %w", ErrMissingInput)
	}

	input := fmt.Sprintf("Title: %s\nExcerpt: %s\nLink: %s", title, strings.TrimSpace(post.Excerpt), articleURL)

	text, err := p.gen.Generate(ctx, llm.Request{
		Instructions:    socialInstructions,
		Input:           input,
		MaxOutputTokens: socialMaxOutputTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("generate social copy: %w", err)
	}

	text = strings.TrimSpace(llm.StripFence(text))
	if text == "" {
		return nil, fmt.Errorf("%w: social copy is empty", ErrMalformedDraft)
	}

	if !strings.Contains(text, articleURL) {
		p.log.InfoContext(ctx, "Social copy has no article link so it is appended",
			"slug", post.Slug,
			"url", articleURL)

		text += "\n\n" + articleURL
	}

	return &domain.SocialPostDraft{Article: post, URL: articleURL, Text: text}, nil
}
