package social

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	linkedInBaseURL  = "https://api.linkedin.com"
	errorBodyMaxSize = 512
)

// LinkedIn posts to a company page through the UGC API.
type LinkedIn struct {
	token   string
	author  string
	baseURL string
	client  *http.Client
}

func NewLinkedIn(token string, orgID string, client *http.Client) (*LinkedIn, error) {
	return NewLinkedInWithURL(token, orgID, client, linkedInBaseURL)
}

func NewLinkedInWithURL(token string, orgID string, client *http.Client, baseURL string) (*LinkedIn, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("access token is empty")
	}

	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return nil, errors.New("organization ID is empty")
	}

	if client == nil {
		client = http.DefaultClient
	}

	return &LinkedIn{
		token:   token,
		author:  "urn:li:organization:" + orgID,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}, nil
}

type shareCommentary struct {
	Text string `json:"text"`
}

type shareContent struct {
	ShareCommentary    shareCommentary `json:"shareCommentary"`
	ShareMediaCategory string          `json:"shareMediaCategory"`
}

type ugcPost struct {
	Author          string `json:"author"`
	LifecycleState  string `json:"lifecycleState"`
	SpecificContent struct {
		ShareContent shareContent `json:"com.linkedin.ugc.ShareContent"`
	} `json:"specificContent"`
	Visibility struct {
		MemberNetworkVisibility string `json:"com.linkedin.ugc.MemberNetworkVisibility"`
	} `json:"visibility"`
}

// Post publishes text and returns the created post URN when LinkedIn reports one.
func (l *LinkedIn) Post(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("post text is empty")
	}

	var body ugcPost
	body.Author = l.author
	body.LifecycleState = "PUBLISHED"
	body.SpecificContent.ShareContent = shareContent{
		ShareCommentary:    shareCommentary{Text: text},
		ShareMediaCategory: "NONE",
	}
	body.Visibility.MemberNetworkVisibility = "PUBLIC"

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/v2/ugcPosts", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+l.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyMaxSize))
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	return resp.Header.Get("X-Restli-Id"), nil
}
