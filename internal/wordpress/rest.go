// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"autoblog/internal/config"
	"autoblog/internal/metrics"
)

// restDateLayout is the site-local timestamp format of the posts endpoint.
const restDateLayout = "2006-01-02T15:04:05"

// restPublisher talks to <site>/wp-json/wp/v2 with Basic auth.
type restPublisher struct {
	site    config.Site
	timeout time.Duration
	client  *http.Client
}

func newREST(site config.Site, timeout time.Duration, client *http.Client) *restPublisher {
	return &restPublisher{site: site, timeout: timeout, client: client}
}

func (p *restPublisher) Transport() string { return config.TransportREST }

type restPost struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	Status     string `json:"status"`
	Categories []int  `json:"categories,omitempty"`
	Tags       []int  `json:"tags,omitempty"`
	Excerpt    string `json:"excerpt,omitempty"`
	Slug       string `json:"slug,omitempty"`
	Format     string `json:"format"`
	Date       string `json:"date,omitempty"`
}

type restCreated struct {
	ID   int64  `json:"id"`
	Link string `json:"link"`
}

type restTerm struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Publish creates the post via POST /wp-json/wp/v2/posts. Tag names are
// resolved to term ids first, creating missing tags.
func (p *restPublisher) Publish(ctx context.Context, post Post) (Result, error) {
	body := restPost{
		Title:   post.Title,
		Content: post.Content,
		Status:  post.status(),
		Excerpt: post.Excerpt,
		Slug:    post.Slug,
		Format:  "standard",
	}
	if post.Date != nil {
		body.Date = post.Date.Format(restDateLayout)
	}
	if id, ok := categoryID(p.site, post.Category); ok {
		body.Categories = []int{id}
	}
	for _, name := range post.Tags {
		id, err := p.tagID(ctx, name)
		if err != nil {
			slog.Warn("wordpress tag resolve failed", "site", p.site.ID, "tag", name, "error", err)
			continue
		}
		body.Tags = append(body.Tags, id)
	}

	var created restCreated
	if err := p.do(ctx, "create_post", http.MethodPost, "/posts", body, &created); err != nil {
		return Result{}, err
	}

	link := created.Link
	id := strconv.FormatInt(created.ID, 10)
	if link == "" {
		link = p.site.BaseURL() + "/?p=" + id
	}
	return Result{PostID: id, URL: link}, nil
}

// Ping checks the credentials with GET /users/me.
func (p *restPublisher) Ping(ctx context.Context) ([]Blog, error) {
	var me struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	if err := p.do(ctx, "users_me", http.MethodGet, "/users/me?context=edit", nil, &me); err != nil {
		return nil, err
	}
	name := p.site.Name
	if name == "" {
		name = me.Name
	}
	blogID := p.site.BlogID
	if blogID == 0 {
		blogID = 1
	}
	return []Blog{{BlogID: strconv.Itoa(blogID), Name: name, URL: p.site.BaseURL(), IsAdmin: true}}, nil
}

// tagID finds a tag by exact name or creates it.
func (p *restPublisher) tagID(ctx context.Context, name string) (int, error) {
	var found []restTerm
	path := "/tags?per_page=100&search=" + url.QueryEscape(name)
	if err := p.do(ctx, "search_tag", http.MethodGet, path, nil, &found); err != nil {
		return 0, err
	}
	for _, t := range found {
		if strings.EqualFold(t.Name, name) {
			return t.ID, nil
		}
	}

	var created restTerm
	if err := p.do(ctx, "create_tag", http.MethodPost, "/tags", map[string]string{"name": name}, &created); err != nil {
		return 0, err
	}
	return created.ID, nil
}

func (p *restPublisher) do(ctx context.Context, op, method, path string, in, out any) (err error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	defer func() { metrics.ObserveNetworkRequest("wordpress", op, p.site.ID, start, err) }()

	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("wordpress marshal: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.site.BaseURL()+"/wp-json/wp/v2"+path, reader)
	if err != nil {
		return fmt.Errorf("wordpress request: %w", err)
	}
	req.SetBasicAuth(p.site.Username, p.site.Password)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return transportError(ctx, p.site.ID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(ctx, p.site.ID, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(p.site.ID, resp.StatusCode, restMessage(data))
	}
	if err := json.Unmarshal(data, out); err != nil {
		if looksLikeHTML(data) {
			return &Error{Site: p.site.ID, Kind: KindNotFound, Status: resp.StatusCode, Detail: "REST endpoint returned HTML"}
		}
		return &Error{Site: p.site.ID, Kind: KindServer, Status: resp.StatusCode, Detail: "malformed REST response", Err: err}
	}
	return nil
}

// restMessage extracts the message of a WordPress REST error body.
func restMessage(data []byte) string {
	var e struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &e) != nil {
		return ""
	}
	return e.Message
}
