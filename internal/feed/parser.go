package feed

import (
	"bidmaster/internal/domain"
	"context"
	"strings"

	"github.com/mmcdole/gofeed"
)

func (s *Source) parseFeed(ctx context.Context, feedURL string, parsed *gofeed.Feed) []domain.Topic {
	feedTitle := strings.TrimSpace(parsed.Title)
	if feedTitle == "" {
		s.log.WarnContext(ctx, "Empty feed title",
			"feedURL", feedURL,
			"fallbackTitle", feedURL)

		feedTitle = feedURL
	}

	topics := make([]domain.Topic, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		topic, ok := s.parseFeedItem(ctx, feedURL, feedTitle, item)
		if !ok {
			continue
		}

		topics = append(topics, topic)
	}

	return topics
}

func (s *Source) parseFeedItem(
	ctx context.Context,
	feedURL string,
	feedTitle string,
	item *gofeed.Item,
) (domain.Topic, bool) {
	if item == nil {
		return domain.Topic{}, false
	}

	title := collapseSpaces(item.Title)
	link := strings.TrimSpace(item.Link)

	if title == "" {
		s.log.WarnContext(ctx, "Skipping feed item with empty title",
			"feedURL", feedURL,
			"itemLink", link)

		return domain.Topic{}, false
	}

	if link == "" {
		s.log.WarnContext(ctx, "Feed item has empty link",
			"feedURL", feedURL,
			"itemTitle", title)
	}

	summary := item.Description
	if strings.TrimSpace(summary) == "" {
		summary = item.Content
	}

	return domain.Topic{
		Title:   title,
		Summary: HTMLToText(summary),
		Link:    link,
		Source:  feedTitle,
	}, true
}
