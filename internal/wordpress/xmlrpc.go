// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package wordpress

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kolo/xmlrpc"

	"autoblog/internal/config"
	"autoblog/internal/metrics"
)

const defaultCategory = "その他"

// xmlrpcPublisher talks to <site>/xmlrpc.php.
type xmlrpcPublisher struct {
	site    config.Site
	timeout time.Duration
	client  *http.Client
}

func newXMLRPC(site config.Site, timeout time.Duration, client *http.Client) *xmlrpcPublisher {
	return &xmlrpcPublisher{site: site, timeout: timeout, client: client}
}

func (p *xmlrpcPublisher) Transport() string { return config.TransportXMLRPC }

func (p *xmlrpcPublisher) endpoint() string {
	return p.site.BaseURL() + "/xmlrpc.php"
}

func (p *xmlrpcPublisher) blogID() int {
	if p.site.BlogID > 0 {
		return p.site.BlogID
	}
	return 1
}

// Publish calls wp.newPost.
func (p *xmlrpcPublisher) Publish(ctx context.Context, post Post) (Result, error) {
	category := post.Category
	if category == "" {
		category = defaultCategory
	}
	tags := post.Tags
	if tags == nil {
		tags = []string{}
	}

	content := map[string]any{
		"post_type":      "post",
		"post_status":    post.status(),
		"post_title":     post.Title,
		"post_content":   post.Content,
		"comment_status": "open",
		"ping_status":    "open",
		"sticky":         false,
		"terms_names": map[string]any{
			"post_tag": tags,
			"category": []string{category},
		},
	}
	if post.Excerpt != "" {
		content["post_excerpt"] = post.Excerpt
	}
	if post.Slug != "" {
		content["post_name"] = post.Slug
	}
	if post.Date != nil {
		content["post_date"] = *post.Date
	}
	if id, ok := categoryID(p.site, category); ok {
		content["terms"] = map[string]any{"category": []int{id}}
		content["terms_names"] = map[string]any{"post_tag": tags}
	}

	var postID any
	err := p.call(ctx, "wp.newPost", &postID, p.blogID(), p.site.Username, p.site.Password, content)
	if err != nil {
		return Result{}, err
	}

	id := fmt.Sprint(postID)
	return Result{PostID: id, URL: p.site.BaseURL() + "/?p=" + id}, nil
}

// Ping calls wp.getUsersBlogs.
func (p *xmlrpcPublisher) Ping(ctx context.Context) ([]Blog, error) {
	var blogs []Blog
	if err := p.call(ctx, "wp.getUsersBlogs", &blogs, p.site.Username, p.site.Password); err != nil {
		return nil, err
	}
	return blogs, nil
}

func (p *xmlrpcPublisher) call(ctx context.Context, method string, result any, args ...any) (err error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	defer func() { metrics.ObserveNetworkRequest("wordpress", method, p.site.ID, start, err) }()

	body, err := xmlrpc.EncodeMethodCall(method, args...)
	if err != nil {
		return fmt.Errorf("wordpress encode %s: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("wordpress request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml")

	resp, err := p.client.Do(req)
	if err != nil {
		return transportError(ctx, p.site.ID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(ctx, p.site.ID, err)
	}
	if resp.StatusCode != http.StatusOK {
		return statusError(p.site.ID, resp.StatusCode, "")
	}
	if looksLikeHTML(data) {
		// XML-RPC disabled or wrong URL: WordPress served a page instead.
		return &Error{Site: p.site.ID, Kind: KindNotFound, Status: resp.StatusCode, Detail: "XML-RPC endpoint returned HTML"}
	}

	r := xmlrpc.Response(data)
	if err := r.Err(); err != nil {
		var fault xmlrpc.FaultError
		if errors.As(err, &fault) {
			return faultError(p.site.ID, fault.Code, fault.String)
		}
		return &Error{Site: p.site.ID, Kind: KindServer, Status: resp.StatusCode, Detail: "malformed XML-RPC response", Err: err}
	}
	if err := r.Unmarshal(result); err != nil {
		return &Error{Site: p.site.ID, Kind: KindServer, Status: resp.StatusCode, Detail: "malformed XML-RPC response", Err: err}
	}
	return nil
}

func looksLikeHTML(data []byte) bool {
	head := strings.ToLower(strings.TrimSpace(string(data[:min(len(data), 512)])))
	return strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html")
}
