package feed

import (
	"bidmaster/internal/domain"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"strings"
	"sync"

	"github.com/mmcdole/gofeed"
)

const (
	userAgent = "BidMasterRadar/1.0 (+https://bidmaster.com)"

	fetchFeedsMaxConcurrencyGrowthFactor = 2
)

// Source pulls topics from a fixed list of syndication feeds.
type Source struct {
	feedURLs  []string
	libParser *gofeed.Parser
	log       *slog.Logger
}

func NewSource(feedURLs []string, client *http.Client, log *slog.Logger) *Source {
	libParser := gofeed.NewParser()
	libParser.Client = client
	libParser.UserAgent = userAgent

	return &Source{
		feedURLs:  feedURLs,
		libParser: libParser,
		log:       log,
	}
}

// Fetch reads every feed concurrently. Topics keep the configured feed order;
// a failing feed contributes an error but does not drop the others.
func (s *Source) Fetch(ctx context.Context) ([]domain.Topic, error) {
	if len(s.feedURLs) == 0 {
		return nil, nil
	}

	type feedResult struct {
		topics []domain.Topic
		err    error
	}

	results := make([]feedResult, len(s.feedURLs))

	var wg sync.WaitGroup

	concurrency := min(runtime.NumCPU()*fetchFeedsMaxConcurrencyGrowthFactor, len(s.feedURLs))
	semCh := make(chan struct{}, concurrency)

	for i, feedURL := range s.feedURLs {
		semCh <- struct{}{}

		wg.Go(func() {
			defer func() { <-semCh }()

			topics, err := s.FetchFeed(ctx, feedURL)
			results[i] = feedResult{topics: topics, err: err}
		})
	}

	wg.Wait()

	var (
		topics []domain.Topic
		errs   []error
	)

	for _, r := range results {
		topics = append(topics, r.topics...)
		if r.err != nil {
			errs = append(errs, r.err)
		}
	}

	return topics, errors.Join(errs...)
}

func (s *Source) FetchFeed(ctx context.Context, feedURL string) ([]domain.Topic, error) {
	feedURL = strings.TrimSpace(feedURL)
	if feedURL == "" {
		return nil, errors.New("feed URL is empty")
	}

	parsed, err := s.libParser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed (URL = %s): %w", feedURL, err)
	}

	return s.parseFeed(ctx, feedURL, parsed), nil
}
