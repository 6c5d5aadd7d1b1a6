package writer

import (
	"bidmaster/internal/domain"
	"bidmaster/internal/llm"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"mvdan.cc/xurls/v2"
)

const (
	draftMaxOutputTokens = 4096
	slugMaxRunes         = 96
)

var (
	slugRe      = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	strictURLRe = xurls.Strict()
)

// Drafter turns a topic into a structured article draft.
type Drafter struct {
	gen llm.Generator
	log *slog.Logger
}

func NewDrafter(gen llm.Generator, log *slog.Logger) *Drafter {
	return &Drafter{gen: gen, log: log}
}

// Draft returns a validated draft, or an error when no usable draft was produced.
func (d *Drafter) Draft(ctx context.Context, topic domain.Topic) (*domain.DraftArticle, error) {
	if d == nil || d.gen == nil {
		return nil, ErrNotConfigured
	}

	title := strings.TrimSpace(topic.Title)
	if title == "" {
		return nil, fmt.Errorf("topic title: %w", ErrMissingInput)
	}

	text, err := d.gen.Generate(ctx, llm.Request{
		Instructions:    draftInstructions,
		Input:           draftInput(topic),
		MaxOutputTokens: draftMaxOutputTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("generate draft: %w", err)
	}

	draft, err := ParseDraft(text)
	if err != nil {
		d.log.WarnContext(ctx, "Generated draft is rejected",
			"error", err,
			"topicTitle", title,
			"topicLink", topic.Link,
			"responseLen", len(text))

		return nil, err
	}

	if link := strings.TrimSpace(topic.Link); link != "" && !firstParagraphCites(draft.Body) {
		d.log.InfoContext(ctx, "Draft has no citation in first paragraph so source line is added",
			"slug", draft.Slug,
			"topicLink", link)

		draft.Body = "Source: " + link + "\n\n" + draft.Body
	}

	return draft, nil
}

func draftInput(topic domain.Topic) string {
	b := strings.Builder{}
	b.WriteString("Title: ")
	b.WriteString(strings.TrimSpace(topic.Title))
	b.WriteString("\n")

	if link := strings.TrimSpace(topic.Link); link != "" {
		b.WriteString("Source Link: ")
		b.WriteString(link)
		b.WriteString("\n")
	}

	if source := strings.TrimSpace(topic.Source); source != "" {
		b.WriteString("Publisher: ")
		b.WriteString(source)
		b.WriteString("\n")
	}

	b.WriteString("Summary: ")
	b.WriteString(strings.TrimSpace(topic.Summary))

	return b.String()
}

// ParseDraft strips an optional code fence and validates the draft schema.
func ParseDraft(text string) (*domain.DraftArticle, error) {
	var draft domain.DraftArticle
	if err := json.Unmarshal([]byte(llm.StripFence(text)), &draft); err != nil {
		return nil, fmt.Errorf("%w: unmarshal: %w", ErrMalformedDraft, err)
	}

	draft.Title = strings.TrimSpace(draft.Title)
	if draft.Title == "" {
		return nil, fmt.Errorf("%w: title is empty", ErrMalformedDraft)
	}

	draft.Slug = strings.TrimSpace(draft.Slug)
	if !ValidSlug(draft.Slug) {
		source := draft.Slug
		if source == "" {
			source = draft.Title
		}
		draft.Slug = Slugify(source)
	}
	if !ValidSlug(draft.Slug) {
		return nil, fmt.Errorf("%w: slug cannot be derived from %q", ErrMalformedDraft, draft.Title)
	}

	draft.Tier = domain.ParseTier(string(draft.Tier))
	if draft.Tier == "" {
		draft.Tier = domain.TierSMB
	}
	if !draft.Tier.Valid() {
		return nil, fmt.Errorf("%w: tier %q is unknown", ErrMalformedDraft, draft.Tier)
	}

	draft.Excerpt = strings.TrimSpace(draft.Excerpt)
	if draft.Excerpt == "" {
		return nil, fmt.Errorf("%w: excerpt is empty", ErrMalformedDraft)
	}
	if n := utf8.RuneCountInString(draft.Excerpt); n > domain.MaxExcerptRunes {
		return nil, fmt.Errorf("%w: excerpt has %d characters (max %d)", ErrMalformedDraft, n, domain.MaxExcerptRunes)
	}

	draft.Body = strings.TrimSpace(draft.Body)
	if draft.Body == "" {
		return nil, fmt.Errorf("%w: body is empty", ErrMalformedDraft)
	}

	return &draft, nil
}

func ValidSlug(slug string) bool {
	return utf8.RuneCountInString(slug) <= slugMaxRunes && slugRe.MatchString(slug)
}

// Slugify lowercases s and joins its alphanumeric runs with hyphens.
func Slugify(s string) string {
	var b strings.Builder
	pendingHyphen := false

	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)

			continue
		}

		pendingHyphen = true
	}

	slug := b.String()
	if len(slug) > slugMaxRunes {
		slug = strings.TrimRight(slug[:slugMaxRunes], "-")
	}

	return slug
}

func firstParagraphCites(body string) bool {
	first, _, _ := strings.Cut(strings.TrimSpace(body), "\n\n")
	for _, line := range strings.Split(first, "\n") {
		// A markdown heading alone is not the first paragraph.
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		if strictURLRe.MatchString(line) {
			return true
		}
	}

	// Headline-only first block: look at the next paragraph too.
	if isHeadingOnly(first) {
		_, rest, _ := strings.Cut(strings.TrimSpace(body), "\n\n")
		second, _, _ := strings.Cut(strings.TrimSpace(rest), "\n\n")
		return strictURLRe.MatchString(second)
	}

	return false
}

func isHeadingOnly(block string) bool {
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			return false
		}
	}

	return true
}
