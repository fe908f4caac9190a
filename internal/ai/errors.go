// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a provider failure.
type Kind string

const (
	KindAuth      Kind = "auth"       // 401, bad or revoked key
	KindRateLimit Kind = "rate_limit" // 429, retry later
	KindQuota     Kind = "quota"      // 402, out of credit
	KindTimeout   Kind = "timeout"    // deadline exceeded
	KindCanceled  Kind = "canceled"   // caller went away
	KindUpstream  Kind = "upstream"   // any other failure; Status may be 0
)

// Error is returned by every Provider for failed completions.
type Error struct {
	Provider string
	Kind     Kind
	Status   int
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Provider, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// statusError maps an HTTP status from the provider to an *Error.
func statusError(provider string, status int, detail string) *Error {
	e := &Error{Provider: provider, Status: status}
	switch status {
	case http.StatusUnauthorized:
		e.Kind = KindAuth
		e.Message = "API認証エラー: APIキーを確認してください"
	case http.StatusTooManyRequests:
		e.Kind = KindRateLimit
		e.Message = "APIレート制限エラー: しばらく時間をおいて再試行してください"
	case http.StatusPaymentRequired:
		e.Kind = KindQuota
		e.Message = "APIクレジット不足: アカウントの残高を確認してください"
	default:
		e.Kind = KindUpstream
		e.Message = "記事生成エラー"
		if detail != "" {
			e.Message += ": " + detail
		}
	}
	return e
}

// transportError maps a failure that produced no HTTP response.
func transportError(ctx context.Context, provider string, err error) *Error {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &Error{Provider: provider, Kind: KindTimeout, Message: "記事生成がタイムアウトしました", Err: err}
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return &Error{Provider: provider, Kind: KindCanceled, Message: "記事生成がキャンセルされました", Err: err}
	}
	return &Error{Provider: provider, Kind: KindUpstream, Message: "記事生成エラー: " + err.Error(), Err: err}
}
