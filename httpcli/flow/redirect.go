/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package flow

import (
	"net/url"
	"strings"
)

// rewriteMethod applies the method-rewrite table for a redirect status.
// 301/302/303 turn a non-GET/HEAD method into GET and drop the body;
// 307/308 always preserve method and body.
func rewriteMethod(status int, method string) (newMethod string, dropBody bool) {
	switch status {
	case 307, 308:
		return method, false
	case 303:
		if method == "GET" || method == "HEAD" {
			return method, false
		}
		return "GET", true
	case 301, 302:
		if method == "GET" || method == "HEAD" {
			return method, false
		}
		if method == "POST" {
			return "GET", true
		}
		return method, false
	default:
		return method, false
	}
}

// sameHost reports whether two host[:port] authorities refer to the same
// host (port-insensitive), the granularity spec's AuthSameHost policy uses.
func sameHost(a, b string) bool {
	ha := a
	if i := strings.LastIndexByte(a, ':'); i >= 0 {
		ha = a[:i]
	}
	hb := b
	if i := strings.LastIndexByte(b, ':'); i >= 0 {
		hb = b[:i]
	}
	return strings.EqualFold(ha, hb)
}

// buildRedirectRequest resolves Location against the current request,
// applies the method-rewrite table, enforces https_only, and decides
// whether Authorization survives onto the new request.
func buildRedirectRequest(cur *Request, status int, location string, httpsOnly bool, authPolicy RedirectAuthPolicy) (*Request, error) {
	if location == "" {
		return nil, ErrorMissingLocation.Error(nil)
	}

	base := &url.URL{Scheme: cur.Scheme, Host: cur.Host, Path: "/"}
	target, err := base.Parse(location)
	if err != nil {
		return nil, ErrorMissingLocation.Error(err)
	}

	if httpsOnly && target.Scheme != "https" {
		return nil, ErrorHTTPSOnlyViolation.Error(nil)
	}

	method, dropBody := rewriteMethod(status, cur.Method)

	var body BodySource = EmptyBody{}
	if !dropBody && cur.Body != nil {
		if !cur.Body.Replayable() {
			return nil, ErrorBodyNotReplayable.Error(nil)
		}
		if err = cur.Body.Reset(); err != nil {
			return nil, ErrorBodyNotReplayable.Error(err)
		}
		body = cur.Body
	}

	hdr := cur.Header.Clone()
	if dropBody {
		hdr.Del("Content-Length")
		hdr.Del("Content-Type")
		hdr.Del("Transfer-Encoding")
	}

	keepAuth := false
	switch authPolicy {
	case AuthSameHost:
		keepAuth = sameHost(cur.Host, target.Host)
	case AuthNever:
		keepAuth = false
	}
	if !keepAuth {
		hdr.Del("Authorization")
	}

	path := target.Path
	if path == "" {
		path = "/"
	}
	if target.RawQuery != "" {
		path += "?" + target.RawQuery
	}

	return &Request{
		Method: method,
		Scheme: target.Scheme,
		Host:   target.Host,
		Path:   path,
		Header: hdr,
		Body:   body,
	}, nil
}

func isRedirectStatus(status int) bool {
	switch status {
	case 301, 302, 303, 307, 308:
		return true
	}
	return false
}
