package cms_test

import (
	"bidmaster/internal/cms"
	"bidmaster/internal/cms/cmstest"
	"bidmaster/internal/domain"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func testDraft() domain.DraftArticle {
	return domain.DraftArticle{
		Title:   "DFARS Small Business Set-Aside Update",
		Slug:    "dfars-small-business-set-aside-update",
		Tier:    domain.TierSMB,
		Excerpt: "DoD amends DFARS set-aside rules.",
		Body:    "# Headline\n\nPer https://www.federalregister.gov/d/2023-22119 ...",
	}
}

func TestPublishIsIdempotent(t *testing.T) {
	srv := cmstest.NewServer(t)
	c := srv.NewClient(t)
	ctx := context.Background()

	first, err := c.Publish(ctx, testDraft())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != cms.OutcomeCreated {
		t.Fatalf("expected created, got %q", first)
	}

	second, err := c.Publish(ctx, testDraft())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second != cms.OutcomeDuplicate {
		t.Fatalf("expected duplicate, got %q", second)
	}

	if n := srv.PostsWithSlug(testDraft().Slug); n != 1 {
		t.Fatalf("expected exactly one post, got %d", n)
	}

	if srv.Mutations() != 1 {
		t.Fatalf("expected one mutation, got %d", srv.Mutations())
	}

	post := srv.Posts()[0]
	if post.Featured || post.PublishedAt != nil {
		t.Fatalf("expected unpublished, unfeatured post, got %+v", post)
	}
	if post.Body != testDraft().Body {
		t.Fatalf("expected body as a single span, got %q", post.Body)
	}
	if post.ID != "post-dfars-small-business-set-aside-update" {
		t.Fatalf("unexpected document ID: %q", post.ID)
	}
}

func TestPublishFailsClosedOnQueryError(t *testing.T) {
	srv := cmstest.NewServer(t)
	srv.FailQueries(true)
	c := srv.NewClient(t)

	outcome, err := c.Publish(context.Background(), testDraft())
	if err == nil {
		t.Fatalf("expected error, got outcome %q", outcome)
	}

	if srv.Mutations() != 0 {
		t.Fatalf("expected no mutation after failed check, got %d", srv.Mutations())
	}
}

func TestPublishTreatsConditionalConflictAsDuplicate(t *testing.T) {
	// Another writer created the document between our check and our create.
	existsCalls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			existsCalls++
			_, _ = w.Write([]byte(`{"result":[]}`))
		case http.MethodPost:
			_, _ = w.Write([]byte(`{"transactionId":"tx","results":[{"id":"post-x","operation":"none"}]}`))
		}
	}))
	defer srv.Close()

	c, err := cms.NewWithBaseURL(srv.URL, "production", "token", srv.Client(), slog.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	outcome, err := c.Publish(context.Background(), testDraft())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != cms.OutcomeDuplicate {
		t.Fatalf("expected duplicate, got %q", outcome)
	}
	if existsCalls != 1 {
		t.Fatalf("expected one existence check, got %d", existsCalls)
	}
}

func TestMissingSlugIsRejectedBeforeNetwork(t *testing.T) {
	srv := cmstest.NewServer(t)
	c := srv.NewClient(t)

	draft := testDraft()
	draft.Slug = " "

	if _, err := c.CreateDraft(context.Background(), draft); !errors.Is(err, cms.ErrMissingSlug) {
		t.Fatalf("expected ErrMissingSlug, got %v", err)
	}
	if _, err := c.Publish(context.Background(), draft); !errors.Is(err, cms.ErrMissingSlug) {
		t.Fatalf("expected ErrMissingSlug, got %v", err)
	}

	if srv.Queries() != 0 || srv.Mutations() != 0 {
		t.Fatalf("expected no requests, got %d queries and %d mutations", srv.Queries(), srv.Mutations())
	}
}

func TestExistsSendsParameterisedQuery(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		if r.URL.Path != "/data/query/production" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer token" {
			t.Errorf("unexpected auth header: %q", r.Header.Get("Authorization"))
		}
		_, _ = w.Write([]byte(`{"result":[{"_id":"post-a"}]}`))
	}))
	defer srv.Close()

	c, err := cms.NewWithBaseURL(srv.URL, "production", "token", srv.Client(), slog.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	exists, err := c.Exists(context.Background(), `a' || true || '`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exists {
		t.Fatalf("expected exists")
	}

	if got.Get("$slug") != `"a' || true || '"` {
		t.Fatalf("expected slug to travel as a JSON param, got %q", got.Get("$slug"))
	}
	if got.Get("query") != `*[_type == "post" && slug.current == $slug][0...1]{_id}` {
		t.Fatalf("unexpected query: %q", got.Get("query"))
	}
}

func TestLatestOrdersNewestFirst(t *testing.T) {
	srv := cmstest.NewServer(t)
	c := srv.NewClient(t)

	published := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	srv.AddPost(cmstest.Post{Title: "Old", Slug: "old", Tier: "enterprise", PublishedAt: &published})
	srv.AddPost(cmstest.Post{Title: "", Slug: "untitled"})
	srv.AddPost(cmstest.Post{Title: "New", Slug: "new", Tier: "smb", Excerpt: "Fresh", Body: "text"})

	posts, err := c.Latest(context.Background(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(posts) != 2 {
		t.Fatalf("expected 2 valid posts, got %d: %+v", len(posts), posts)
	}

	if posts[0].Slug != "new" || posts[0].Published() {
		t.Fatalf("unexpected newest post: %+v", posts[0])
	}
	if len(posts[0].Content) != 1 || posts[0].Content[0].Spans[0] != "text" {
		t.Fatalf("unexpected content: %+v", posts[0].Content)
	}

	if posts[1].Slug != "old" || !posts[1].Published() || posts[1].Tier != domain.TierEnterprise {
		t.Fatalf("unexpected older post: %+v", posts[1])
	}

	if _, err = c.Latest(context.Background(), 0); err == nil {
		t.Fatalf("expected error for non-positive count")
	}
}

func TestServiceErrorIsReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"description":"Insufficient permissions","type":"permissionError"}}`))
	}))
	defer srv.Close()

	c, err := cms.NewWithBaseURL(srv.URL, "production", "token", srv.Client(), slog.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = c.CreateDraft(context.Background(), testDraft())
	if err == nil || !strings.Contains(err.Error(), "Insufficient permissions") {
		t.Fatalf("expected service description in error, got %v", err)
	}
}

func TestNewValidatesSettings(t *testing.T) {
	tests := []struct {
		name       string
		projectID  string
		dataset    string
		token      string
		apiVersion string
	}{
		{"NoProject", "", "production", "token", "v2024-01-01"},
		{"NoDataset", "abc", " ", "token", "v2024-01-01"},
		{"NoToken", "abc", "production", "", "v2024-01-01"},
		{"NoVersion", "abc", "production", "token", ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := cms.New(test.projectID, test.dataset, test.token, test.apiVersion, nil, slog.Default())
			if err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
