// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package storage archives generated articles in S3-compatible object
// storage. It wraps the AWS SDK v2 with path-style access (required by
// CEPH/Hetzner and MinIO).
package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Client stores article documents in a single private bucket.
type Client struct {
	s3        *s3.Client
	presigner *s3.PresignClient
	bucket    string
}

// New creates an S3 client with path-style addressing. Returns (nil, nil)
// if endpoint or credentials are empty, allowing the app to start without
// an archive.
func New(endpoint, region, accessKey, secretKey, bucket string) (*Client, error) {
	if endpoint == "" || accessKey == "" || secretKey == "" {
		return nil, nil
	}
	if bucket == "" {
		return nil, fmt.Errorf("storage: bucket is required")
	}

	s3Client := s3.New(s3.Options{
		Region:       region,
		BaseEndpoint: aws.String(strings.TrimRight(endpoint, "/")),
		Credentials:  credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		UsePathStyle: true,
	})

	return &Client{
		s3:        s3Client,
		presigner: s3.NewPresignClient(s3Client),
		bucket:    bucket,
	}, nil
}

// Document is an archived article.
type Document struct {
	ID       uuid.UUID
	Title    string
	Category string
	Template string
	Tags     []string
	Created  time.Time
	Body     string
}

// ArchiveKey returns articles/YYYY/MM/<id>.md for the document.
func ArchiveKey(id uuid.UUID, created time.Time) string {
	return fmt.Sprintf("articles/%04d/%02d/%s.md", created.Year(), int(created.Month()), id)
}

// Render returns the document as Markdown with a front matter header.
func (d Document) Render() []byte {
	var b bytes.Buffer
	b.WriteString("---\n")
	fmt.Fprintf(&b, "id: %s\n", d.ID)
	fmt.Fprintf(&b, "title: %q\n", d.Title)
	fmt.Fprintf(&b, "category: %q\n", d.Category)
	fmt.Fprintf(&b, "template: %q\n", d.Template)
	if len(d.Tags) > 0 {
		quoted := make([]string, len(d.Tags))
		for i, t := range d.Tags {
			quoted[i] = fmt.Sprintf("%q", t)
		}
		fmt.Fprintf(&b, "tags: [%s]\n", strings.Join(quoted, ", "))
	}
	fmt.Fprintf(&b, "created: %s\n", d.Created.UTC().Format(time.RFC3339))
	b.WriteString("---\n\n")
	b.WriteString(d.Body)
	return b.Bytes()
}

// Save uploads the document and returns its key.
func (c *Client) Save(ctx context.Context, d Document) (string, error) {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Created.IsZero() {
		d.Created = time.Now()
	}
	key := ArchiveKey(d.ID, d.Created)
	body := d.Render()

	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String("text/markdown; charset=utf-8"),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload %s/%s: %w", c.bucket, key, err)
	}
	return key, nil
}

// PresignedURL generates a pre-signed GET URL for an archived document.
// The URL is valid for the specified duration (S3 caps it at 7 days).
func (c *Client) PresignedURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	req, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("s3 presign %s/%s: %w", c.bucket, key, err)
	}
	return req.URL, nil
}

// Bucket returns the archive bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}
