package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

const (
	postType         = "post"
	docIDPrefix      = "post-"
	errorBodyMaxSize = 512
)

var (
	ErrMissingSlug = errors.New("slug is missing")
	// ErrDuplicate means a post with the slug already exists in the store.
	ErrDuplicate = errors.New("post already exists")
)

type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeDuplicate Outcome = "duplicate"
)

// Client talks to the Sanity HTTP API.
type Client struct {
	baseURL string
	dataset string
	token   string
	client  *http.Client
	log     *slog.Logger
}

// New builds a client for https://<projectID>.api.sanity.io/<apiVersion>.
func New(
	projectID string,
	dataset string,
	token string,
	apiVersion string,
	client *http.Client,
	log *slog.Logger,
) (*Client, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, errors.New("project ID is empty")
	}

	apiVersion = strings.TrimSpace(apiVersion)
	if apiVersion == "" {
		return nil, errors.New("API version is empty")
	}

	baseURL := fmt.Sprintf("https://%s.api.sanity.io/%s", url.PathEscape(projectID), url.PathEscape(apiVersion))

	return NewWithBaseURL(baseURL, dataset, token, client, log)
}

// NewWithBaseURL builds a client for an explicit API root, e.g. a test server.
func NewWithBaseURL(
	baseURL string,
	dataset string,
	token string,
	client *http.Client,
	log *slog.Logger,
) (*Client, error) {
	dataset = strings.TrimSpace(dataset)
	if dataset == "" {
		return nil, errors.New("dataset is empty")
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("token is empty")
	}

	if client == nil {
		client = http.DefaultClient
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		dataset: dataset,
		token:   token,
		client:  client,
		log:     log,
	}, nil
}

// DocumentID is the deterministic store ID of the post with the slug.
func DocumentID(slug string) string {
	return docIDPrefix + slug
}

type apiError struct {
	Error struct {
		Description string `json:"description"`
		Type        string `json:"type"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method string, endpoint string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Description != "" {
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, apiErr.Error.Description)
		}

		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(raw), errorBodyMaxSize))
	}

	if err = json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}

func (c *Client) endpoint(kind string, query url.Values) string {
	u := fmt.Sprintf("%s/data/%s/%s", c.baseURL, kind, url.PathEscape(c.dataset))
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	return u
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
