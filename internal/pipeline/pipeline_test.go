// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"autoblog/internal/ai"
	"autoblog/internal/catalog"
	"autoblog/internal/config"
	"autoblog/internal/license"
	"autoblog/internal/render"
	"autoblog/internal/storage"
	"autoblog/internal/store"
	"autoblog/internal/templates"
	"autoblog/internal/wordpress"
)

// fakeGenerator returns queued results in order, repeating the last.
type fakeGenerator struct {
	mu      sync.Mutex
	results []genResult
	calls   int
	reqs    []ai.Request
}

type genResult struct {
	text string
	err  error
}

func (f *fakeGenerator) Generate(_ context.Context, req ai.Request) (ai.Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.results[min(f.calls, len(f.results)-1)]
	f.calls++
	f.reqs = append(f.reqs, req)
	if r.err != nil {
		return ai.Completion{}, r.err
	}
	return ai.Completion{Text: r.text, TokensUsed: 100}, nil
}

func (f *fakeGenerator) ActiveName() string { return "fake" }

func (f *fakeGenerator) lastRequest() ai.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reqs[len(f.reqs)-1]
}

type fakeCatalog struct {
	result  catalog.Result
	keyword string
}

func (f *fakeCatalog) Search(_ context.Context, keyword string, _ int) catalog.Result {
	f.keyword = keyword
	return f.result
}

type fakePublisher struct {
	mu    sync.Mutex
	err   error
	posts []wordpress.Post
}

func (f *fakePublisher) Publish(_ context.Context, p wordpress.Post) (wordpress.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return wordpress.Result{}, f.err
	}
	f.posts = append(f.posts, p)
	return wordpress.Result{PostID: "42", URL: "https://blog.example/?p=42"}, nil
}

func (f *fakePublisher) Ping(context.Context) ([]wordpress.Blog, error) { return nil, nil }
func (f *fakePublisher) Transport() string { return "fake" }

type fakeArchive struct {
	docs []storage.Document
}

func (f *fakeArchive) Save(_ context.Context, d storage.Document) (string, error) {
	f.docs = append(f.docs, d)
	return storage.ArchiveKey(d.ID, d.Created), nil
}

type harness struct {
	svc     *Service
	gen     *fakeGenerator
	pub     *fakePublisher
	counter *license.MemoryCounter
	history *store.MemoryHistory
	archive *fakeArchive
	now     time.Time
}

func newHarness(t *testing.T, results ...genResult) *harness {
	t.Helper()
	if len(results) == 0 {
		results = []genResult{{text: "# 筋トレの始め方\n\n## はじめに\n\n本文です。"}}
	}
	st, err := license.Parse("BAS-PRO-AB12-CD34", "owner@example.com")
	if err != nil {
		t.Fatalf("license.Parse: %v", err)
	}
	r, err := render.New()
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}

	// The license manager reads the wall clock, so the harness does too.
	h := &harness{
		gen:     &fakeGenerator{results: results},
		pub:     &fakePublisher{},
		counter: license.NewMemoryCounter(),
		history: store.NewMemoryHistory(),
		archive: &fakeArchive{},
		now:     time.Now(),
	}
	file := &config.File{WordPress: config.WordPressConfig{Sites: []config.Site{
		{ID: "a", Name: "A", URL: "https://a.example"},
		{ID: "b", Name: "B", URL: "https://b.example", IsDefault: true},
	}}}
	h.svc = New(Deps{
		Generator:  h.gen,
		Limiter:    license.NewManager(st, h.counter),
		Sites:      file,
		History:    h.history,
		Archive:    h.archive,
		Renderer:   r,
		Publishers: func(config.Site) wordpress.Publisher { return h.pub },
	}, Options{
		RetryInterval: time.Millisecond,
		Now:           func() time.Time { return h.now },
	})
	return h
}

func yearTag(now time.Time) string {
	return fmt.Sprintf("%d年", now.Year())
}

func TestGenerateArticleWithTheme(t *testing.T) {
	h := newHarness(t)
	art, err := h.svc.GenerateArticle(context.Background(), ArticleRequest{
		Theme:   "筋トレ方法",
		Keyword: "筋トレ,初心者",
	})
	if err != nil {
		t.Fatalf("GenerateArticle: %v", err)
	}

	if art.Template != templates.HowTo {
		t.Errorf("Template = %q, want howto", art.Template)
	}
	if art.Title != "筋トレの始め方" {
		t.Errorf("Title = %q", art.Title)
	}
	tmpl, _ := templates.Get(templates.HowTo)
	if len(tmpl.Sections) != 5 {
		t.Errorf("howto sections = %d, want 5", len(tmpl.Sections))
	}

	req := h.gen.lastRequest()
	if req.System != ai.SystemTemplateWriter || req.Temperature != 0.7 || req.MaxTokens != 3000 {
		t.Errorf("request = %+v", req)
	}
	for _, sec := range tmpl.Sections {
		if strings.Count(req.Prompt, sec.Label) < 1 {
			t.Errorf("prompt missing section %q", sec.Label)
		}
	}

	if art.WordCount == 0 || art.ArchiveKey == "" || len(h.archive.docs) != 1 {
		t.Errorf("article not finished: %+v", art)
	}
	recent, _ := h.history.Recent(context.Background(), 10)
	if len(recent) != 1 || recent[0].Status != store.StatusDraft || recent[0].ID != art.ID {
		t.Errorf("history = %+v", recent)
	}
}

func TestGenerateArticleCategoryOnly(t *testing.T) {
	h := newHarness(t, genResult{text: "見出しのない本文"})
	art, err := h.svc.GenerateArticle(context.Background(), ArticleRequest{Category: "anime"})
	if err != nil {
		t.Fatalf("GenerateArticle: %v", err)
	}
	if art.Title != "アニメ新作の最新情報" {
		t.Errorf("fallback title = %q", art.Title)
	}
	want := []string{"アニメ新作", "anime", yearTag(h.now), "おすすめ"}
	if strings.Join(art.Tags, ",") != strings.Join(want, ",") {
		t.Errorf("Tags = %v, want %v", art.Tags, want)
	}
	req := h.gen.lastRequest()
	if req.System != ai.SystemBlogWriter || !strings.Contains(req.Prompt, "アニメ新作に関する") {
		t.Errorf("category prompt not used: %+v", req)
	}
}

func TestGenerateArticleValidation(t *testing.T) {
	h := newHarness(t)
	tests := []ArticleRequest{
		{},
		{Category: "tech", Template: "nope"},
	}
	for _, req := range tests {
		_, err := h.svc.GenerateArticle(context.Background(), req)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("GenerateArticle(%+v) err = %v, want ValidationError", req, err)
		}
	}
	if h.gen.calls != 0 {
		t.Errorf("provider called %d times for invalid requests", h.gen.calls)
	}
}

func TestGenerateArticleLimit(t *testing.T) {
	h := newHarness(t)
	h.counter.Set(h.now, 50, 50)

	_, err := h.svc.GenerateArticle(context.Background(), ArticleRequest{Category: "tech"})
	var le *LimitError
	if !errors.As(err, &le) {
		t.Fatalf("err = %v, want LimitError", err)
	}
	if le.Limit.Allowed || le.Limit.Remaining != 0 {
		t.Errorf("limit = %+v", le.Limit)
	}
	if h.gen.calls != 0 {
		t.Error("provider must not be called over the limit")
	}
}

func TestGenerateArticleProviderError(t *testing.T) {
	h := newHarness(t, genResult{err: &ai.Error{Provider: "fake", Kind: ai.KindAuth, Status: 401}})
	_, err := h.svc.GenerateArticle(context.Background(), ArticleRequest{Category: "tech"})
	if ai.KindOf(err) != ai.KindAuth {
		t.Errorf("err = %v, want auth kind", err)
	}
}

func TestGenerateArticleWithProducts(t *testing.T) {
	products := []catalog.Product{{Title: "商品A", AffiliateURL: "https://al/a"}}

	t.Run("real products appended", func(t *testing.T) {
		h := newHarness(t)
		cat := &fakeCatalog{result: catalog.Result{Products: products}}
		h.svc.deps.Catalog = cat

		art, err := h.svc.GenerateArticle(context.Background(), ArticleRequest{Category: "tech", Keyword: "イヤホン,無線", WithProducts: true})
		if err != nil {
			t.Fatalf("GenerateArticle: %v", err)
		}
		if cat.keyword != "イヤホン" {
			t.Errorf("catalog searched %q, want first keyword", cat.keyword)
		}
		if !strings.Contains(art.Content, "## おすすめ商品") || len(art.Products) != 1 {
			t.Errorf("ad section missing:\n%s", art.Content)
		}
	})

	t.Run("catalog markup published as text", func(t *testing.T) {
		h := newHarness(t)
		h.svc.deps.Catalog = &fakeCatalog{result: catalog.Result{Products: []catalog.Product{{
			Title:        "<script>alert(1)</script>",
			Description:  "<img src=x onerror=alert(2)>",
			AffiliateURL: "https://al/a",
		}}}}

		art, err := h.svc.GenerateArticle(context.Background(), ArticleRequest{Category: "tech", WithProducts: true})
		if err != nil {
			t.Fatalf("GenerateArticle: %v", err)
		}
		if _, err := h.svc.Publish(context.Background(), art, PublishOptions{}); err != nil {
			t.Fatalf("Publish: %v", err)
		}
		content := h.pub.posts[0].Content
		if strings.Contains(content, "<script>") || strings.Contains(content, "<img src=x") {
			t.Errorf("raw catalog HTML published:\n%s", content)
		}
	})

	t.Run("placeholders skipped", func(t *testing.T) {
		h := newHarness(t)
		h.svc.deps.Catalog = &fakeCatalog{result: catalog.Result{Products: catalog.Placeholders("x"), Fallback: true}}

		art, err := h.svc.GenerateArticle(context.Background(), ArticleRequest{Category: "tech", WithProducts: true})
		if err != nil {
			t.Fatalf("GenerateArticle: %v", err)
		}
		if strings.Contains(art.Content, "おすすめ商品") || len(art.Products) != 0 {
			t.Error("placeholder products must not become ads")
		}
	})
}

func TestGenerateProductReview(t *testing.T) {
	h := newHarness(t, genResult{text: "<h2>比較</h2><p>本文</p><h2>まとめ</h2><p>結論</p>"})
	products := []catalog.Product{
		{Title: "商品A", Price: "1,980円"},
		{Title: "商品B", Price: "2,980円"},
	}

	art, err := h.svc.GenerateProductReview(context.Background(), ReviewRequest{Products: products, Keyword: "イヤホン"})
	if err != nil {
		t.Fatalf("GenerateProductReview: %v", err)
	}
	if art.Title != "【イヤホン】おすすめ商品2選" {
		t.Errorf("Title = %q", art.Title)
	}
	if art.Category != "レビュー" || art.Format != FormatHTML {
		t.Errorf("article = %+v", art)
	}
	want := []string{"イヤホン", "レビュー", "おすすめ", yearTag(h.now)}
	if strings.Join(art.Tags, ",") != strings.Join(want, ",") {
		t.Errorf("Tags = %v", art.Tags)
	}
	// Default position is right after the last </h2>.
	gallery := strings.Index(art.Content, `<div class="dmm-products-section">`)
	if gallery < strings.Index(art.Content, "<h2>まとめ</h2>") || gallery > strings.Index(art.Content, "<p>結論</p>") {
		t.Errorf("gallery not after last h2:\n%s", art.Content)
	}
	if req := h.gen.lastRequest(); req.MaxTokens != 4000 || req.System != ai.SystemAffiliateWriter {
		t.Errorf("request = %+v", req)
	}
}

func TestCTASplicedIntoArticles(t *testing.T) {
	cta := render.CTA{Text: "参加はこちら", URL: "https://line.me/ti/g2/abc"}

	t.Run("category article", func(t *testing.T) {
		h := newHarness(t)
		h.svc.deps.CTA = cta
		art, err := h.svc.GenerateArticle(context.Background(), ArticleRequest{Category: "tech"})
		if err != nil {
			t.Fatalf("GenerateArticle: %v", err)
		}
		if !strings.HasSuffix(strings.TrimSpace(art.Content), "</div>") || !strings.Contains(art.Content, "https://line.me/ti/g2/abc") {
			t.Errorf("cta missing:\n%s", art.Content)
		}
	})

	t.Run("product review after gallery", func(t *testing.T) {
		h := newHarness(t, genResult{text: "<h2>比較</h2><p>本文</p>"})
		h.svc.deps.CTA = cta
		art, err := h.svc.GenerateProductReview(context.Background(), ReviewRequest{
			Products: []catalog.Product{{Title: "商品A"}},
			Keyword:  "イヤホン",
		})
		if err != nil {
			t.Fatalf("GenerateProductReview: %v", err)
		}
		gallery := strings.Index(art.Content, "dmm-products-section")
		if c := strings.Index(art.Content, "autoblog-cta"); c < 0 || c < gallery {
			t.Errorf("cta should follow the gallery:\n%s", art.Content)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		h := newHarness(t)
		art, _ := h.svc.GenerateArticle(context.Background(), ArticleRequest{Category: "tech"})
		if strings.Contains(art.Content, "autoblog-cta") {
			t.Error("cta rendered without configuration")
		}
	})
}

func TestGenerateProductReviewValidation(t *testing.T) {
	h := newHarness(t)
	for _, req := range []ReviewRequest{
		{Keyword: "x"},
		{Products: []catalog.Product{{Title: "a"}}, Keyword: "  "},
	} {
		_, err := h.svc.GenerateProductReview(context.Background(), req)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("err = %v, want ValidationError", err)
		}
	}
}

func TestPublish(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	art, err := h.svc.GenerateArticle(ctx, ArticleRequest{Theme: "筋トレ方法", Keyword: "筋トレ"})
	if err != nil {
		t.Fatalf("GenerateArticle: %v", err)
	}

	res, err := h.svc.Publish(ctx, art, PublishOptions{})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if res.PostID != "42" {
		t.Errorf("result = %+v", res)
	}

	post := h.pub.posts[0]
	if strings.Contains(post.Content, "筋トレの始め方</h1>") || !strings.Contains(post.Content, "<h2>はじめに</h2>") {
		t.Errorf("content not converted without title:\n%s", post.Content)
	}
	if post.Excerpt == "" || post.Title != "筋トレの始め方" || post.Slug != "筋トレの始め方" {
		t.Errorf("post = %+v", post)
	}

	day, _, _ := h.counter.Counts(ctx, h.now)
	if day != 1 {
		t.Errorf("counter = %d, want 1", day)
	}
	recent, _ := h.history.Recent(ctx, 1)
	if recent[0].Status != store.StatusPublished || recent[0].URL != res.URL {
		t.Errorf("history = %+v", recent[0])
	}
}

func TestPublishSiteErrors(t *testing.T) {
	h := newHarness(t)
	disabled := false
	h.svc.deps.Sites = &config.File{WordPress: config.WordPressConfig{Sites: []config.Site{
		{ID: "off", URL: "https://off.example", Enabled: &disabled},
	}}}

	art := &Article{Title: "t", Content: "c"}
	if _, err := h.svc.Publish(context.Background(), art, PublishOptions{SiteID: "missing"}); !errors.Is(err, ErrSiteNotFound) {
		t.Errorf("err = %v, want ErrSiteNotFound", err)
	}
	if _, err := h.svc.Publish(context.Background(), art, PublishOptions{SiteID: "off"}); !errors.Is(err, ErrSiteDisabled) {
		t.Errorf("err = %v, want ErrSiteDisabled", err)
	}
}

func TestGenerateAndPublishPartialFailure(t *testing.T) {
	h := newHarness(t)
	h.pub.err = &wordpress.Error{Kind: wordpress.KindAuth, Status: 401}

	out, err := h.svc.GenerateAndPublish(context.Background(), ArticleRequest{Category: "tech"}, true)
	if err != nil {
		t.Fatalf("generation should succeed: %v", err)
	}
	if out.Article == nil || out.Article.Title == "" {
		t.Fatal("article must be kept when publishing fails")
	}
	if out.Published() || wordpress.KindOf(out.PublishErr) != wordpress.KindAuth {
		t.Errorf("outcome = %+v", out)
	}

	day, _, _ := h.counter.Counts(context.Background(), h.now)
	if day != 0 {
		t.Error("failed publish must not count against the limit")
	}
	recent, _ := h.history.Recent(context.Background(), 1)
	if recent[0].Status != store.StatusFailed || recent[0].Error == "" {
		t.Errorf("history = %+v", recent[0])
	}
}

func TestGenerateAndPublishNoAutoPost(t *testing.T) {
	h := newHarness(t)
	out, err := h.svc.GenerateAndPublish(context.Background(), ArticleRequest{Category: "tech"}, false)
	if err != nil || out.Published() || len(h.pub.posts) != 0 {
		t.Errorf("outcome = %+v, err %v, posts %d", out, err, len(h.pub.posts))
	}
}

func TestBatch(t *testing.T) {
	h := newHarness(t)
	res, err := h.svc.Batch(context.Background(), BatchRequest{Count: 3, Categories: []string{"tech", "food"}})
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if res.Generated != 3 || len(res.Results) != 3 {
		t.Fatalf("result = %+v", res)
	}
	cats := []string{res.Results[0].Category, res.Results[1].Category, res.Results[2].Category}
	if strings.Join(cats, ",") != "tech,food,tech" {
		t.Errorf("categories = %v", cats)
	}
}

func TestBatchValidation(t *testing.T) {
	h := newHarness(t)
	for _, n := range []int{0, 21} {
		_, err := h.svc.Batch(context.Background(), BatchRequest{Count: n})
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("Count %d: err = %v, want ValidationError", n, err)
		}
	}

	h.counter.Set(h.now, 48, 48)
	_, err := h.svc.Batch(context.Background(), BatchRequest{Count: 3})
	var le *LimitError
	if !errors.As(err, &le) {
		t.Errorf("err = %v, want LimitError", err)
	}
}

func TestBatchRetriesRateLimit(t *testing.T) {
	rateLimited := &ai.Error{Provider: "fake", Kind: ai.KindRateLimit, Status: 429}
	h := newHarness(t,
		genResult{err: rateLimited},
		genResult{err: rateLimited},
		genResult{text: "# 三度目の正直\n本文"},
	)

	res, err := h.svc.Batch(context.Background(), BatchRequest{Count: 1, Categories: []string{"tech"}})
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if h.gen.calls != 3 || res.Generated != 1 || res.Results[0].Title != "三度目の正直" {
		t.Errorf("calls = %d, result = %+v", h.gen.calls, res)
	}
}

func TestBatchGivesUpAndContinues(t *testing.T) {
	rateLimited := &ai.Error{Provider: "fake", Kind: ai.KindRateLimit, Status: 429}
	h := newHarness(t, genResult{err: rateLimited})

	res, err := h.svc.Batch(context.Background(), BatchRequest{Count: 2, Categories: []string{"tech"}})
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if h.gen.calls != 6 {
		t.Errorf("calls = %d, want 3 tries per item", h.gen.calls)
	}
	if res.Generated != 0 || res.Failed != 2 || len(res.Results) != 2 || res.Results[1].Error == "" {
		t.Errorf("result = %+v", res)
	}
	if ai.KindOf(res.FirstError()) != ai.KindRateLimit {
		t.Errorf("FirstError = %v", res.FirstError())
	}
}

func TestBatchNoRetryOnAuth(t *testing.T) {
	h := newHarness(t, genResult{err: &ai.Error{Provider: "fake", Kind: ai.KindAuth, Status: 401}})
	if _, err := h.svc.Batch(context.Background(), BatchRequest{Count: 1}); err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if h.gen.calls != 1 {
		t.Errorf("calls = %d, want 1", h.gen.calls)
	}
}

func TestBatchCancelledDuringDelay(t *testing.T) {
	h := newHarness(t)
	h.svc.opts.BatchDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	res, err := h.svc.Batch(ctx, BatchRequest{Count: 3})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if len(res.Results) != 1 {
		t.Errorf("results = %d, want 1 before cancellation", len(res.Results))
	}
}

func TestInFlight(t *testing.T) {
	f := NewInFlight()
	release, err := f.Acquire("generate-article")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := f.Acquire("generate-article"); !errors.Is(err, ErrInProgress) {
		t.Errorf("second Acquire err = %v, want ErrInProgress", err)
	}
	if _, err := f.Acquire("batch-generate"); err != nil {
		t.Errorf("other key should be free: %v", err)
	}
	release()
	release()
	if f.Busy("generate-article") {
		t.Error("key still busy after release")
	}
}

func TestDefaultKeyword(t *testing.T) {
	if DefaultKeyword("tech") != "IT最新技術" || DefaultKeyword("travel") != "travel" {
		t.Error("DefaultKeyword mapping wrong")
	}
}
