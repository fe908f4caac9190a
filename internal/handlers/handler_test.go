// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for the API handler
// tests. Every collaborator is an in-memory fake.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"autoblog/internal/ai"
	"autoblog/internal/catalog"
	"autoblog/internal/config"
	"autoblog/internal/license"
	"autoblog/internal/pipeline"
	"autoblog/internal/render"
	"autoblog/internal/scheduler"
	"autoblog/internal/store"
	"autoblog/internal/wordpress"
)

// mockGenerator returns a fixed completion or error.
type mockGenerator struct {
	mu       sync.Mutex
	response string
	err      error
	calls    int
	block    chan struct{}
}

func (m *mockGenerator) Generate(ctx context.Context, _ ai.Request) (ai.Completion, error) {
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return ai.Completion{}, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return ai.Completion{}, m.err
	}
	return ai.Completion{Text: m.response, TokensUsed: 10}, nil
}

func (m *mockGenerator) ActiveName() string { return "openai" }

type mockCatalog struct {
	fallback bool
}

func (m *mockCatalog) Search(_ context.Context, keyword string, limit int) catalog.Result {
	products := catalog.Placeholders(keyword)
	return catalog.Result{Products: products[:min(limit, len(products))], Fallback: m.fallback}
}

func (m *mockCatalog) Details(_ context.Context, id string) (catalog.Product, bool) {
	return catalog.PlaceholderDetails(id), true
}

type mockPublisher struct {
	mu      sync.Mutex
	err     error
	pingErr error
	posts   int
}

func (m *mockPublisher) Publish(context.Context, wordpress.Post) (wordpress.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return wordpress.Result{}, m.err
	}
	m.posts++
	return wordpress.Result{PostID: "7", URL: "https://blog.example/?p=7"}, nil
}

func (m *mockPublisher) Ping(context.Context) ([]wordpress.Blog, error) {
	if m.pingErr != nil {
		return nil, m.pingErr
	}
	return []wordpress.Blog{{BlogID: "1", Name: "Blog", URL: "https://blog.example", IsAdmin: true}}, nil
}

func (m *mockPublisher) Transport() string { return "mock" }

type mockProviders struct {
	mu        sync.Mutex
	active    string
	available []string
}

func newMockProviders(names ...string) *mockProviders {
	m := &mockProviders{available: names}
	if len(names) > 0 {
		m.active = names[0]
	}
	return m
}

func (m *mockProviders) ActiveName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

func (m *mockProviders) Available() []string { return m.available }

func (m *mockProviders) HasProvider(name string) bool {
	for _, n := range m.available {
		if n == name {
			return true
		}
	}
	return false
}

func (m *mockProviders) SetActive(name string) error {
	if !m.HasProvider(name) {
		return errors.New("provider not available")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = name
	return nil
}

type mockCache struct {
	entries int
	err     error
}

func (m *mockCache) InvalidateAll(context.Context) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	n := m.entries
	m.entries = 0
	return n, nil
}

type mockPresigner struct{}

func (mockPresigner) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://s3.example/" + key + "?sig=x", nil
}

type testEnv struct {
	api     *API
	router  http.Handler
	gen     *mockGenerator
	pub     *mockPublisher
	counter *license.MemoryCounter
	history *store.MemoryHistory
}

func newTestEnv(t *testing.T, key string) *testEnv {
	t.Helper()
	st, err := license.Parse(key, "owner@example.com")
	if err != nil {
		t.Fatalf("license.Parse: %v", err)
	}
	r, err := render.New()
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}

	env := &testEnv{
		gen:     &mockGenerator{response: "# テスト記事\n\n## 見出し\n\n本文です。"},
		pub:     &mockPublisher{},
		counter: license.NewMemoryCounter(),
		history: store.NewMemoryHistory(),
	}
	mgr := license.NewManager(st, env.counter)
	file := &config.File{
		License: config.LicenseConfig{Key: key, Email: "owner@example.com"},
		WordPress: config.WordPressConfig{Sites: []config.Site{
			{ID: "main", Name: "Main", URL: "https://blog.example", Username: "u", Password: "p"},
		}},
		APIKeys: config.APIKeys{OpenAI: config.ProviderKey{Key: "sk-test"}},
	}
	publishers := func(config.Site) wordpress.Publisher { return env.pub }

	svc := pipeline.New(pipeline.Deps{
		Generator:  env.gen,
		Catalog:    &mockCatalog{},
		Limiter:    mgr,
		Sites:      file,
		History:    env.history,
		Renderer:   r,
		Publishers: publishers,
	}, pipeline.Options{RetryInterval: time.Millisecond})

	sched, err := scheduler.New(svc, mgr, "", "")
	if err != nil {
		t.Fatalf("scheduler.New: %v", err)
	}
	t.Cleanup(func() { sched.Stop(context.Background()) })

	env.api = NewAPI(Deps{
		Pipeline:   svc,
		Catalog:    &mockCatalog{},
		License:    mgr,
		Config:     file,
		Providers:  newMockProviders("openai", "claude"),
		Archive:    mockPresigner{},
		Scheduler:  sched,
		Publishers: publishers,
		Version:    "test",
	})
	env.router = testRouter(env.api)
	return env
}

// testRouter mirrors the production routes without the middleware stack.
func testRouter(a *API) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/generate-article", a.GenerateArticle)
	r.Post("/api/generate-product-review", a.GenerateProductReview)
	r.Post("/api/batch-generate", a.BatchGenerate)
	r.Get("/api/products/search", a.SearchProducts)
	r.Post("/api/products/cache/clear", a.ClearProductCache)
	r.Get("/api/products/{id}", a.ProductDetails)
	r.Get("/api/providers", a.ListProviders)
	r.Post("/api/providers/active", a.SetProvider)
	r.Get("/api/get-sites", a.GetSites)
	r.Get("/api/get-stats", a.GetStats)
	r.Get("/api/license", a.GetLicense)
	r.Get("/api/test-connection", a.TestConnection)
	r.Get("/api/templates", a.Templates)
	r.Get("/api/history", a.History)
	r.Get("/api/health-check", a.HealthCheck)
	r.Get("/api/schedule", a.Schedule)
	r.Post("/api/schedule/toggle", a.ToggleSchedule)
	return r
}

// do sends a request and decodes the JSON response into a map.
func (e *testEnv) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)

	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("%s %s: response is not JSON: %v\n%s", method, path, err, rr.Body.String())
	}
	return rr.Code, out
}
