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

package httpcli

import (
	"net/url"

	"golang.org/x/net/http/httpproxy"
)

// ResolveProxyFromEnvironment reads HTTP_PROXY/HTTPS_PROXY/ALL_PROXY/NO_PROXY
// (case-insensitive duplicates honored, matching net/http's own behavior)
// via golang.org/x/net/http/httpproxy, the same environment-proxy config
// surface net/http's own Transport delegates to. It returns nil when no
// proxy variable applies to any request (the common case), letting the
// Agent fall back to a direct connection.
func ResolveProxyFromEnvironment() *Proxy {
	cfg := httpproxy.FromEnvironment()
	if cfg.HTTPProxy == "" && cfg.HTTPSProxy == "" && cfg.AllProxy == "" {
		return nil
	}
	return &Proxy{envConfig: cfg}
}

// proxyForURL resolves which proxy (if any) to use for target, consulting
// the explicit override first and falling back to the environment-derived
// configuration captured at Config construction.
func proxyForURL(p *Proxy, target *url.URL) (*url.URL, error) {
	if p == nil {
		return nil, nil
	}
	if p.URL != nil {
		return p.URL, nil
	}
	if p.envConfig == nil {
		return nil, nil
	}
	return p.envConfig.ProxyFunc()(target)
}
