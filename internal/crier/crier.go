package crier

import (
	"bidmaster/internal/domain"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

const JobName = "crier"

var (
	ErrGenerate = errors.New("generate social copy")
	ErrSubmit   = errors.New("submit social post")
)

type Store interface {
	Latest(ctx context.Context, n int) ([]domain.StoredPost, error)
}

type Promoter interface {
	Promote(ctx context.Context, post domain.StoredPost, articleURL string) (*domain.SocialPostDraft, error)
}

// Poster submits copy to the social network and returns the new post ID.
type Poster interface {
	Post(ctx context.Context, text string) (string, error)
}

type Ledger interface {
	IsPromoted(ctx context.Context, slug string) (bool, error)
	RecordPromotion(ctx context.Context, slug string, url string) error
}

type Options struct {
	// SafeMode keeps generated copy local. Only false lets Run call the Poster.
	SafeMode    bool
	SiteBaseURL string
	LatestCount int
}

type Result struct {
	Draft           *domain.SocialPostDraft
	Submitted       bool
	SocialPostID    string
	AlreadyPromoted bool
}

func (r Result) String() string {
	slug := ""
	if r.Draft != nil {
		slug = r.Draft.Article.Slug
	}

	return fmt.Sprintf("slug=%s generated=%t submitted=%t alreadyPromoted=%t",
		slug, r.Draft != nil, r.Submitted, r.AlreadyPromoted)
}

// Crier promotes the newest stored post.
type Crier struct {
	store    Store
	promoter Promoter
	poster   Poster
	ledger   Ledger
	opts     Options
	log      *slog.Logger
}

// New builds a crier. poster and ledger may be nil.
func New(store Store, promoter Promoter, poster Poster, ledger Ledger, opts Options, log *slog.Logger) *Crier {
	if opts.LatestCount <= 0 {
		opts.LatestCount = 5
	}
	opts.SiteBaseURL = strings.TrimRight(strings.TrimSpace(opts.SiteBaseURL), "/")

	return &Crier{
		store:    store,
		promoter: promoter,
		poster:   poster,
		ledger:   ledger,
		opts:     opts,
		log:      log,
	}
}

func (c *Crier) Run(ctx context.Context) (Result, error) {
	var result Result

	if c.store == nil || c.promoter == nil {
		c.log.WarnContext(ctx, "Town crier is not configured so run is skipped",
			"hasStore", c.store != nil,
			"hasPromoter", c.promoter != nil)

		return result, nil
	}

	posts, err := c.store.Latest(ctx, c.opts.LatestCount)
	if err != nil {
		return result, fmt.Errorf("fetch latest posts: %w", err)
	}

	if len(posts) == 0 {
		c.log.InfoContext(ctx, "No posts are found so nothing is promoted",
			"latestCount", c.opts.LatestCount)

		return result, nil
	}

	latest := posts[0]
	articleURL := c.opts.SiteBaseURL + "/" + latest.Slug

	if !c.opts.SafeMode && c.ledger != nil {
		promoted, promotedErr := c.ledger.IsPromoted(ctx, latest.Slug)
		if promotedErr != nil {
			return result, fmt.Errorf("check promotion: %w", promotedErr)
		}

		if promoted {
			c.log.InfoContext(ctx, "Latest post is already promoted so it is skipped",
				"slug", latest.Slug)

			result.AlreadyPromoted = true

			return result, nil
		}
	}

	draft, err := c.promoter.Promote(ctx, latest, articleURL)
	if err != nil {
		return result, fmt.Errorf("%w: %w", ErrGenerate, err)
	}
	result.Draft = draft

	c.log.InfoContext(ctx, "Social copy is generated",
		"slug", latest.Slug,
		"title", latest.Title,
		"url", articleURL,
		"published", latest.Published(),
		"text", draft.Text)

	if c.opts.SafeMode {
		c.log.InfoContext(ctx, "Safe mode is on so social copy is not submitted",
			"slug", latest.Slug)

		return result, nil
	}

	if c.poster == nil {
		c.log.WarnContext(ctx, "Social network is not configured so social copy is not submitted",
			"slug", latest.Slug)

		return result, nil
	}

	postID, err := c.poster.Post(ctx, draft.Text)
	if err != nil {
		return result, fmt.Errorf("%w: %w", ErrSubmit, err)
	}
	result.Submitted = true
	result.SocialPostID = postID

	c.log.InfoContext(ctx, "Social post is submitted",
		"slug", latest.Slug,
		"socialPostID", postID)

	if c.ledger != nil {
		if err = c.ledger.RecordPromotion(ctx, latest.Slug, articleURL); err != nil {
			c.log.ErrorContext(ctx, "Failed to record promotion",
				"error", err,
				"slug", latest.Slug)
		}
	}

	return result, nil
}
