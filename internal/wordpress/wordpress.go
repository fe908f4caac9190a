// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package wordpress publishes posts to WordPress sites over XML-RPC or the
// REST API. Failures are returned as *Error with a Kind; nothing here
// retries.
package wordpress

import (
	"context"
	"net/http"
	"time"

	"autoblog/internal/config"
)

const DefaultTimeout = 30 * time.Second

// Post statuses understood by both transports.
const (
	StatusPublish = "publish"
	StatusDraft   = "draft"
	StatusFuture  = "future"
)

// Post is an article ready to publish. Content is HTML.
type Post struct {
	Title    string
	Content  string
	Excerpt  string
	Category string
	Tags     []string
	// Slug is the post_name; WordPress derives one from the title when empty.
	Slug string
	// Status defaults to publish, or future when Date is set.
	Status string
	Date   *time.Time
}

func (p Post) status() string {
	switch {
	case p.Status != "":
		return p.Status
	case p.Date != nil:
		return StatusFuture
	default:
		return StatusPublish
	}
}

// Result identifies the created post.
type Result struct {
	PostID string `json:"postId"`
	URL    string `json:"url"`
}

// Blog is one blog reachable with the site credentials.
type Blog struct {
	BlogID  string `json:"blogId" xmlrpc:"blogid"`
	Name    string `json:"blogName" xmlrpc:"blogName"`
	URL     string `json:"url" xmlrpc:"url"`
	IsAdmin bool   `json:"isAdmin" xmlrpc:"isAdmin"`
}

// Publisher creates posts on a single site.
type Publisher interface {
	Publish(ctx context.Context, post Post) (Result, error)
	// Ping verifies the credentials and lists the reachable blogs.
	Ping(ctx context.Context) ([]Blog, error)
	Transport() string
}

// New returns the publisher matching the site's transport. XML-RPC is
// the default.
func New(site config.Site, timeout time.Duration) Publisher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if site.Transport == config.TransportREST {
		return newREST(site, timeout, &http.Client{})
	}
	return newXMLRPC(site, timeout, &http.Client{})
}

// categoryID returns the mapped term id for a category name.
func categoryID(site config.Site, category string) (int, bool) {
	id, ok := site.Categories[category]
	return id, ok && id > 0
}
