package domain

import (
	"strings"
	"time"
)

type Tier string

const (
	TierEnterprise Tier = "enterprise"
	TierSMB        Tier = "smb"
	TierSetAside   Tier = "set-aside"
)

func (t Tier) Valid() bool {
	switch t {
	case TierEnterprise, TierSMB, TierSetAside:
		return true
	default:
		return false
	}
}

// ParseTier normalises case and surrounding whitespace.
func ParseTier(raw string) Tier {
	return Tier(strings.ToLower(strings.TrimSpace(raw)))
}

const MaxExcerptRunes = 160

// Topic is a raw signal from a feed entry. Its identity is the link.
type Topic struct {
	Title   string
	Summary string
	Link    string
	Source  string
}

type DraftArticle struct {
	Title   string `json:"title"`
	Slug    string `json:"slug"`
	Tier    Tier   `json:"tier"`
	Excerpt string `json:"excerpt"`
	Body    string `json:"body"`
}

// StoredPost is a post document held by the content store.
// A nil PublishedAt marks the unpublished (draft) state.
type StoredPost struct {
	ID          string
	Title       string
	Slug        string
	Tier        Tier
	Excerpt     string
	Content     []Block
	Featured    bool
	PublishedAt *time.Time
	CreatedAt   time.Time
}

func (p StoredPost) Published() bool {
	return p.PublishedAt != nil
}

// Block is a minimal rich-text block: one paragraph made of plain spans.
type Block struct {
	Style string
	Spans []string
}

type Thread struct {
	ID       string
	Title    string
	SelfText string
	Author   string
	Source   string
	URL      string
}

type ReplyDraft struct {
	Thread Thread
	Text   string
}

type SocialPostDraft struct {
	Article StoredPost
	URL     string
	Text    string
}
