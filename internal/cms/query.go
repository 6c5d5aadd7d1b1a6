package cms

import (
	"bidmaster/internal/domain"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	existsQuery = `*[_type == "post" && slug.current == $slug][0...1]{_id}`
	//nolint:lll // GROQ projection reads best on one line.
	latestQueryFormat = `*[_type == "post"] | order(_createdAt desc)[0...%d]{_id, title, "slug": slug.current, tier, excerpt, content, featured, publishedAt, _createdAt}`
)

type queryResponse[T any] struct {
	Result T `json:"result"`
}

type idDoc struct {
	ID string `json:"_id"`
}

type spanDoc struct {
	Type string `json:"_type"`
	Text string `json:"text"`
}

type blockDoc struct {
	Type     string    `json:"_type"`
	Style    string    `json:"style,omitempty"`
	Children []spanDoc `json:"children"`
}

type postDoc struct {
	ID          string     `json:"_id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Tier        string     `json:"tier"`
	Excerpt     string     `json:"excerpt"`
	Content     []blockDoc `json:"content"`
	Featured    bool       `json:"featured"`
	PublishedAt *time.Time `json:"publishedAt"`
	CreatedAt   time.Time  `json:"_createdAt"`
}

// Exists reports whether a post with the slug is stored.
// Any failure is returned as an error; callers must not create on error.
func (c *Client) Exists(ctx context.Context, slug string) (bool, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return false, ErrMissingSlug
	}

	param, err := json.Marshal(slug)
	if err != nil {
		return false, fmt.Errorf("marshal slug: %w", err)
	}

	query := url.Values{}
	query.Set("query", existsQuery)
	query.Set("$slug", string(param))

	var resp queryResponse[[]idDoc]
	if err = c.do(ctx, http.MethodGet, c.endpoint("query", query), nil, &resp); err != nil {
		return false, fmt.Errorf("query slug: %w", err)
	}

	return len(resp.Result) > 0, nil
}

// Latest returns up to n posts, newest first, published or not.
func (c *Client) Latest(ctx context.Context, n int) ([]domain.StoredPost, error) {
	if n <= 0 {
		return nil, fmt.Errorf("count must be positive, got %d", n)
	}

	query := url.Values{}
	query.Set("query", fmt.Sprintf(latestQueryFormat, n))

	var resp queryResponse[[]postDoc]
	if err := c.do(ctx, http.MethodGet, c.endpoint("query", query), nil, &resp); err != nil {
		return nil, fmt.Errorf("query latest posts: %w", err)
	}

	posts := make([]domain.StoredPost, 0, len(resp.Result))
	for _, doc := range resp.Result {
		post, ok := doc.toDomain()
		if !ok {
			c.log.WarnContext(ctx, "Skipping stored post without title or slug",
				"postID", doc.ID)

			continue
		}
		posts = append(posts, post)
	}

	return posts, nil
}

func (d postDoc) toDomain() (domain.StoredPost, bool) {
	post := domain.StoredPost{
		ID:          d.ID,
		Title:       strings.TrimSpace(d.Title),
		Slug:        strings.TrimSpace(d.Slug),
		Tier:        domain.ParseTier(d.Tier),
		Excerpt:     strings.TrimSpace(d.Excerpt),
		Featured:    d.Featured,
		PublishedAt: d.PublishedAt,
		CreatedAt:   d.CreatedAt,
	}

	if post.Title == "" || post.Slug == "" {
		return domain.StoredPost{}, false
	}

	for _, block := range d.Content {
		if block.Type != "block" {
			continue
		}

		b := domain.Block{Style: block.Style}
		for _, span := range block.Children {
			b.Spans = append(b.Spans, span.Text)
		}
		post.Content = append(post.Content, b)
	}

	return post, true
}
