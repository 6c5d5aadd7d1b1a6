package forum

import (
	"bidmaster/internal/domain"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	redditAPIURL     = "https://oauth.reddit.com"
	redditTokenURL   = "https://www.reddit.com/api/v1/access_token"
	redditWebURL     = "https://www.reddit.com"
	errorBodyMaxSize = 512
)

// Reddit reads the newest submissions with app-only OAuth.
type Reddit struct {
	apiURL string
	client *http.Client
	log    *slog.Logger
}

func NewReddit(
	clientID string,
	clientSecret string,
	userAgent string,
	timeout time.Duration,
	log *slog.Logger,
) (*Reddit, error) {
	return NewRedditWithURL(clientID, clientSecret, userAgent, timeout, redditAPIURL, redditTokenURL, log)
}

func NewRedditWithURL(
	clientID string,
	clientSecret string,
	userAgent string,
	timeout time.Duration,
	apiURL string,
	tokenURL string,
	log *slog.Logger,
) (*Reddit, error) {
	clientID = strings.TrimSpace(clientID)
	clientSecret = strings.TrimSpace(clientSecret)
	if clientID == "" || clientSecret == "" {
		return nil, errors.New("client ID or secret is empty")
	}

	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return nil, errors.New("user agent is empty")
	}

	// Reddit rejects requests without a descriptive User-Agent, token requests included.
	base := &http.Client{
		Timeout:   timeout,
		Transport: &userAgentTransport{userAgent: userAgent, next: http.DefaultTransport},
	}

	cc := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	client := cc.Client(context.WithValue(context.Background(), oauth2.HTTPClient, base))
	client.Timeout = timeout

	return &Reddit{
		apiURL: strings.TrimRight(apiURL, "/"),
		client: client,
		log:    log,
	}, nil
}

type userAgentTransport struct {
	userAgent string
	next      http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)

	return t.next.RoundTrip(req)
}

type listing struct {
	Data struct {
		Children []struct {
			Kind string `json:"kind"`
			Data struct {
				ID        string `json:"id"`
				Title     string `json:"title"`
				SelfText  string `json:"selftext"`
				Author    string `json:"author"`
				Subreddit string `json:"subreddit"`
				URL       string `json:"url"`
				Permalink string `json:"permalink"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Newest returns up to limit newest submissions across the subreddits.
func (r *Reddit) Newest(ctx context.Context, subreddits []string, limit int) ([]domain.Thread, error) {
	names := make([]string, 0, len(subreddits))
	for _, s := range subreddits {
		s = strings.TrimPrefix(strings.TrimSpace(s), "r/")
		if s != "" {
			names = append(names, s)
		}
	}
	if len(names) == 0 {
		return nil, errors.New("no subreddits")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("raw_json", "1")

	endpoint := fmt.Sprintf("%s/r/%s/new?%s", r.apiURL, url.PathEscape(strings.Join(names, "+")), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyMaxSize))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded listing
	if err = json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}

	threads := make([]domain.Thread, 0, len(decoded.Data.Children))
	for _, child := range decoded.Data.Children {
		d := child.Data

		thread := domain.Thread{
			ID:       strings.TrimSpace(d.ID),
			Title:    strings.TrimSpace(d.Title),
			SelfText: strings.TrimSpace(d.SelfText),
			Author:   strings.TrimSpace(d.Author),
			Source:   strings.TrimSpace(d.Subreddit),
			URL:      strings.TrimSpace(d.URL),
		}
		if p := strings.TrimSpace(d.Permalink); p != "" {
			thread.URL = redditWebURL + p
		}

		if thread.ID == "" || thread.Title == "" {
			r.log.WarnContext(ctx, "Skipping submission without ID or title",
				"kind", child.Kind,
				"threadID", thread.ID)

			continue
		}

		threads = append(threads, thread)
	}

	return threads, nil
}
