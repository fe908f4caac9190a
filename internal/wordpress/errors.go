// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package wordpress

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind classifies publish failures.
type Kind string

const (
	KindAuth       Kind = "auth"
	KindPermission Kind = "permission"
	KindNotFound   Kind = "not_found"
	KindTimeout    Kind = "timeout"
	KindNetwork    Kind = "network"
	KindServer     Kind = "server"
)

var kindMessages = map[Kind]string{
	KindAuth:       "WordPress認証エラー: ユーザー名・パスワードを確認してください",
	KindPermission: "WordPress権限エラー: 投稿権限を確認してください",
	KindNotFound:   "WordPress URLエラー: サイトURLを確認してください",
	KindTimeout:    "WordPress接続タイムアウト",
	KindNetwork:    "WordPressに接続できません",
	KindServer:     "WordPress投稿エラー",
}

// Error is a classified failure talking to a WordPress site.
type Error struct {
	Site   string
	Kind   Kind
	Status int // HTTP status, 0 when none
	Fault  int // XML-RPC fault code, 0 when none
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := kindMessages[e.Kind]
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Site != "" {
		return fmt.Sprintf("%s (%s)", msg, e.Site)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the classification of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var we *Error
	if errors.As(err, &we) {
		return we.Kind
	}
	return ""
}

// statusError classifies a non-success HTTP status.
func statusError(site string, status int, detail string) *Error {
	e := &Error{Site: site, Status: status, Detail: detail}
	switch status {
	case http.StatusUnauthorized:
		e.Kind = KindAuth
	case http.StatusForbidden:
		e.Kind = KindPermission
	case http.StatusNotFound:
		e.Kind = KindNotFound
	default:
		e.Kind = KindServer
	}
	return e
}

// faultError classifies an XML-RPC fault. WordPress answers bad
// credentials with 403 and missing capabilities with 401.
func faultError(site string, code int, detail string) *Error {
	e := &Error{Site: site, Fault: code, Detail: detail}
	switch code {
	case 403:
		e.Kind = KindAuth
	case 401:
		e.Kind = KindPermission
	case 404:
		e.Kind = KindNotFound
	default:
		e.Kind = KindServer
	}
	return e
}

// transportError classifies a failure before any response arrived.
func transportError(ctx context.Context, site string, err error) *Error {
	e := &Error{Site: site, Err: err}
	var dnsErr *net.DNSError
	var netErr net.Error
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		e.Kind = KindTimeout
	case errors.As(err, &dnsErr):
		e.Kind = KindNotFound
		e.Detail = dnsErr.Name
	case errors.As(err, &netErr) && netErr.Timeout():
		e.Kind = KindTimeout
	default:
		e.Kind = KindNetwork
	}
	return e
}
