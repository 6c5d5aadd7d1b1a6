// Package cmstest provides an in-memory Sanity fake for tests.
package cmstest

import (
	"bidmaster/internal/cms"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"
)

const (
	Dataset = "test"
	Token   = "sanity-test-token"

	existsPrefix = `*[_type == "post" && slug.current == $slug]`
	latestPrefix = `*[_type == "post"] | order(_createdAt desc)[0...`
)

type Post struct {
	ID          string
	Title       string
	Slug        string
	Tier        string
	Excerpt     string
	Body        string
	Featured    bool
	PublishedAt *time.Time
	CreatedAt   time.Time
}

// Server answers the query and mutate endpoints the cms client uses.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	posts       []Post
	queries     int
	mutations   int
	failQueries bool
	failMutates bool
	clock       time.Time
}

func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{clock: time.Date(2026, 1, 5, 6, 0, 0, 0, time.UTC)}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /data/query/{dataset}", s.handleQuery)
	mux.HandleFunc("POST /data/mutate/{dataset}", s.handleMutate)

	s.Server = httptest.NewServer(s.authorize(mux))
	t.Cleanup(s.Close)

	return s
}

// NewClient returns a cms client pointed at the fake.
func (s *Server) NewClient(t testing.TB) *cms.Client {
	t.Helper()

	c, err := cms.NewWithBaseURL(s.URL, Dataset, Token, s.Client(), slog.Default())
	if err != nil {
		t.Fatalf("create cms client: %v", err)
	}

	return c
}

// AddPost stores a post as if it was created now.
func (s *Server) AddPost(p Post) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = cms.DocumentID(p.Slug)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.tick()
	}
	s.posts = append(s.posts, p)
}

func (s *Server) Posts() []Post {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.posts)
}

func (s *Server) PostsWithSlug(slug string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, p := range s.posts {
		if p.Slug == slug {
			n++
		}
	}

	return n
}

func (s *Server) Queries() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.queries
}

func (s *Server) Mutations() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mutations
}

func (s *Server) FailQueries(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failQueries = fail
}

func (s *Server) FailMutations(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failMutates = fail
}

func (s *Server) tick() time.Time {
	s.clock = s.clock.Add(time.Minute)
	return s.clock
}

func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+Token {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queries++

	if r.PathValue("dataset") != Dataset {
		writeError(w, http.StatusNotFound, "dataset not found")
		return
	}

	if s.failQueries {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	query := r.URL.Query().Get("query")

	switch {
	case strings.HasPrefix(query, existsPrefix):
		var slug string
		if err := json.Unmarshal([]byte(r.URL.Query().Get("$slug")), &slug); err != nil {
			writeError(w, http.StatusBadRequest, "param $slug is not JSON")
			return
		}

		result := []map[string]any{}
		for _, p := range s.posts {
			if p.Slug == slug {
				result = append(result, map[string]any{"_id": p.ID})
				break
			}
		}
		writeJSON(w, map[string]any{"result": result})

	case strings.HasPrefix(query, latestPrefix):
		var n int
		if _, err := fmt.Sscanf(strings.TrimPrefix(query, latestPrefix), "%d]", &n); err != nil {
			writeError(w, http.StatusBadRequest, "bad slice")
			return
		}

		sorted := slices.Clone(s.posts)
		slices.SortStableFunc(sorted, func(a, b Post) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		})
		if len(sorted) > n {
			sorted = sorted[:n]
		}

		result := make([]map[string]any, 0, len(sorted))
		for _, p := range sorted {
			result = append(result, postJSON(p))
		}
		writeJSON(w, map[string]any{"result": result})

	default:
		writeError(w, http.StatusBadRequest, "unsupported query")
	}
}

type mutateRequest struct {
	Mutations []struct {
		CreateIfNotExists *struct {
			ID    string `json:"_id"`
			Type  string `json:"_type"`
			Title string `json:"title"`
			Slug  struct {
				Current string `json:"current"`
			} `json:"slug"`
			Tier    string `json:"tier"`
			Excerpt string `json:"excerpt"`
			Content []struct {
				Children []struct {
					Text string `json:"text"`
				} `json:"children"`
			} `json:"content"`
			Featured    bool       `json:"featured"`
			PublishedAt *time.Time `json:"publishedAt"`
		} `json:"createIfNotExists"`
	} `json:"mutations"`
}

func (s *Server) handleMutate(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mutations++

	if r.PathValue("dataset") != Dataset {
		writeError(w, http.StatusNotFound, "dataset not found")
		return
	}

	if s.failMutates {
		writeError(w, http.StatusInternalServerError, "mutation failed")
		return
	}

	var req mutateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "body is not JSON")
		return
	}

	results := []map[string]any{}
	for _, m := range req.Mutations {
		doc := m.CreateIfNotExists
		if doc == nil {
			writeError(w, http.StatusBadRequest, "unsupported mutation")
			return
		}

		exists := slices.ContainsFunc(s.posts, func(p Post) bool { return p.ID == doc.ID })
		if exists {
			results = append(results, map[string]any{"id": doc.ID, "operation": "none"})
			continue
		}

		var body strings.Builder
		for _, block := range doc.Content {
			for _, span := range block.Children {
				body.WriteString(span.Text)
			}
		}

		s.posts = append(s.posts, Post{
			ID:          doc.ID,
			Title:       doc.Title,
			Slug:        doc.Slug.Current,
			Tier:        doc.Tier,
			Excerpt:     doc.Excerpt,
			Body:        body.String(),
			Featured:    doc.Featured,
			PublishedAt: doc.PublishedAt,
			CreatedAt:   s.tick(),
		})
		results = append(results, map[string]any{"id": doc.ID, "operation": "create"})
	}

	writeJSON(w, map[string]any{"transactionId": fmt.Sprintf("tx-%d", s.mutations), "results": results})
}

func postJSON(p Post) map[string]any {
	doc := map[string]any{
		"_id":        p.ID,
		"title":      p.Title,
		"slug":       p.Slug,
		"tier":       p.Tier,
		"excerpt":    p.Excerpt,
		"featured":   p.Featured,
		"_createdAt": p.CreatedAt.Format(time.RFC3339),
		"content": []map[string]any{{
			"_type":    "block",
			"style":    "normal",
			"children": []map[string]any{{"_type": "span", "text": p.Body}},
		}},
	}
	if p.PublishedAt != nil {
		doc["publishedAt"] = p.PublishedAt.Format(time.RFC3339)
	}

	return doc
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"description": description, "type": "fakeError"},
	})
}
