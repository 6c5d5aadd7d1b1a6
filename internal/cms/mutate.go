package cms

import (
	"bidmaster/internal/domain"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

type slugDoc struct {
	Type    string `json:"_type"`
	Current string `json:"current"`
}

type createDoc struct {
	ID       string     `json:"_id"`
	Type     string     `json:"_type"`
	Title    string     `json:"title"`
	Slug     slugDoc    `json:"slug"`
	Tier     string     `json:"tier"`
	Excerpt  string     `json:"excerpt"`
	Content  []blockDoc `json:"content"`
	Featured bool       `json:"featured"`
}

type mutation struct {
	CreateIfNotExists *createDoc `json:"createIfNotExists,omitempty"`
}

type mutateRequest struct {
	Mutations []mutation `json:"mutations"`
}

type mutateResponse struct {
	TransactionID string `json:"transactionId"`
	Results       []struct {
		ID        string `json:"id"`
		Operation string `json:"operation"`
	} `json:"results"`
}

// CreateDraft stores the draft as an unpublished post.
// It returns ErrDuplicate when a post with the same ID already exists.
func (c *Client) CreateDraft(ctx context.Context, draft domain.DraftArticle) (*domain.StoredPost, error) {
	slug := strings.TrimSpace(draft.Slug)
	if slug == "" {
		return nil, ErrMissingSlug
	}

	tier := draft.Tier
	if tier == "" {
		tier = domain.TierSMB
	}

	doc := createDoc{
		ID:      DocumentID(slug),
		Type:    postType,
		Title:   draft.Title,
		Slug:    slugDoc{Type: "slug", Current: slug},
		Tier:    string(tier),
		Excerpt: draft.Excerpt,
		// One plain span; the body markup is kept as is.
		Content: []blockDoc{{
			Type:     "block",
			Style:    "normal",
			Children: []spanDoc{{Type: "span", Text: draft.Body}},
		}},
		Featured: false,
	}

	query := url.Values{}
	query.Set("returnIds", "true")
	query.Set("visibility", "sync")

	var resp mutateResponse
	err := c.do(ctx, http.MethodPost, c.endpoint("mutate", query),
		mutateRequest{Mutations: []mutation{{CreateIfNotExists: &doc}}}, &resp)
	if err != nil {
		return nil, fmt.Errorf("create draft: %w", err)
	}

	if len(resp.Results) == 0 || resp.Results[0].Operation != "create" {
		return nil, fmt.Errorf("create draft (slug = %s): %w", slug, ErrDuplicate)
	}

	return &domain.StoredPost{
		ID:      resp.Results[0].ID,
		Title:   doc.Title,
		Slug:    slug,
		Tier:    tier,
		Excerpt: doc.Excerpt,
		Content: []domain.Block{{Style: "normal", Spans: []string{draft.Body}}},
	}, nil
}

// Publish creates the draft unless a post with its slug is already stored.
// The existence check must succeed before anything is written.
func (c *Client) Publish(ctx context.Context, draft domain.DraftArticle) (Outcome, error) {
	slug := strings.TrimSpace(draft.Slug)
	if slug == "" {
		return "", ErrMissingSlug
	}

	exists, err := c.Exists(ctx, slug)
	if err != nil {
		return "", fmt.Errorf("check slug: %w", err)
	}

	if exists {
		c.log.InfoContext(ctx, "Post already exists so it is skipped",
			"slug", slug)

		return OutcomeDuplicate, nil
	}

	post, err := c.CreateDraft(ctx, draft)
	if errors.Is(err, ErrDuplicate) {
		c.log.WarnContext(ctx, "Post was created concurrently so it is skipped",
			"slug", slug)

		return OutcomeDuplicate, nil
	}
	if err != nil {
		return "", err
	}

	c.log.InfoContext(ctx, "Draft post is created",
		"slug", slug,
		"postID", post.ID,
		"tier", post.Tier)

	return OutcomeCreated, nil
}
