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

// Package httpcli assembles the engine's Clock/Resolver/Transport/Pool/
// Flow/Unit/Body layers into one synchronous call surface: Agent.Do runs
// one call -- including every redirect hop it follows -- through exactly
// one pass of the configured middleware chain.
package httpcli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	liberr "github.com/nabbar/htcli/errors"
	"github.com/nabbar/htcli/httpcli/body"
	htclock "github.com/nabbar/htcli/httpcli/clock"
	"github.com/nabbar/htcli/httpcli/flow"
	"github.com/nabbar/htcli/httpcli/pool"
	"github.com/nabbar/htcli/httpcli/resolver"
	"github.com/nabbar/htcli/httpcli/transport"
	"github.com/nabbar/htcli/httpcli/unit"
	"github.com/nabbar/htcli/logger"
)

const defaultUserAgent = "htcli/1.0"

// Agent is the engine's entry point: one Config, one connection Pool,
// one Resolver and one Transport, shared across every call it drives.
type Agent struct {
	cfg       *Config
	pool      *pool.Pool
	resolver  resolver.Resolver
	transport transport.Transport
	clock     htclock.Clock
}

// NewAgent builds an Agent from cfg (a nil cfg falls back to NewConfig).
// The resolver is the stdlib-backed resolver.System; swap Agent.resolver
// via WithResolver-style composition at construction if an override
// resolver.Chained (e.g. httpcli/dns-mapper) is required.
func NewAgent(cfg *Config) *Agent {
	if cfg == nil {
		cfg = NewConfig()
	}
	clk := htclock.System
	return &Agent{
		cfg:       cfg,
		pool:      pool.New(cfg.MaxIdleConnections, cfg.MaxIdleConnectionsPerHost, cfg.MaxIdleAge, clk),
		resolver:  resolver.NewSystem(),
		transport: transport.Dialer{NoDelay: cfg.NoDelay},
		clock:     clk,
	}
}

// Config returns the Agent's base configuration.
func (a *Agent) Config() *Config { return a.cfg }

// log returns cfg's logger, or nil when Config.Log is not set -- every
// call site guards on this before logging so a silent Agent pays no cost.
func (a *Agent) log(cfg *Config) logger.Logger {
	if cfg == nil || cfg.Log == nil {
		return nil
	}
	return cfg.Log()
}

// WithResolver overrides the Agent's address resolution, typically with a
// resolver.Chained wrapping a static override (httpcli/dns-mapper) around
// the default resolver.System.
func (a *Agent) WithResolver(r resolver.Resolver) *Agent {
	a.resolver = r
	return a
}

// Close empties the idle connection pool, closing every pooled
// connection. It does not affect calls already in flight.
func (a *Agent) Close() error {
	a.pool.Clear()
	return nil
}

// Do executes req: resolve, connect-or-reuse, send, receive, following
// redirects up to Config.MaxRedirects, turning a response status into an
// error when Config.HTTPStatusAsError is set. The configured middleware
// chain wraps this entire call once, so a single retry/circuit-breaker
// middleware sees the whole redirect chain as one unit, not one per hop.
func (a *Agent) Do(ctx context.Context, req *Request) (*Response, error) {
	cfg := a.cfg
	if req.Config != nil {
		cfg = req.Config
	}

	terminal := func(ctx context.Context, r *Request) (*Response, error) {
		return a.execute(ctx, r, cfg)
	}
	return cfg.Middleware.Build(terminal)(ctx, req)
}

func (a *Agent) execute(ctx context.Context, req *Request, cfg *Config) (*Response, error) {
	fr := a.buildFlowRequest(req, cfg)
	return a.run(ctx, fr, cfg)
}

// run drives fr to completion, rebuilding a fresh Flow/Unit for every
// redirect hop and for the one stale-pool retry a hop is allowed.
func (a *Agent) run(ctx context.Context, fr *flow.Request, cfg *Config) (*Response, error) {
	start := a.clock.Now()

	var globalDeadline time.Time
	if cfg.Timeouts.Global > 0 {
		globalDeadline = start.Add(cfg.Timeouts.Global)
	}

	redirectsLeft := cfg.MaxRedirects

	for {
		resp, next, err := a.hopWithRetry(ctx, fr, cfg, globalDeadline, redirectsLeft)
		if err != nil {
			if l := a.log(cfg); l != nil {
				l.Error("request failed", fmt.Sprintf("%s %s://%s%s", fr.Method, fr.Scheme, fr.Host, fr.Path), err)
			}
			return nil, err
		}
		if next != nil {
			if l := a.log(cfg); l != nil {
				l.Info("following redirect", fmt.Sprintf("%s -> %s://%s%s", fr.Method, next.Scheme, next.Host, next.Path))
			}
			redirectsLeft--
			fr = next
			continue
		}
		return resp, nil
	}
}

// hopWithRetry drives one hop, retrying exactly once on a stale pooled
// connection that failed before any response bytes arrived, provided the
// request body can be resent.
func (a *Agent) hopWithRetry(ctx context.Context, fr *flow.Request, cfg *Config, deadline time.Time, redirectsLeft int) (*Response, *flow.Request, error) {
	resp, next, err := a.hop(ctx, fr, cfg, deadline, redirectsLeft)
	if err == nil {
		return resp, next, nil
	}
	if !isStaleConnection(err) || !retryableBody(fr) {
		return nil, nil, err
	}
	if l := a.log(cfg); l != nil {
		l.Debug("retrying after stale pooled connection", fmt.Sprintf("%s://%s%s", fr.Scheme, fr.Host, fr.Path))
	}
	return a.hop(ctx, fr, cfg, deadline, redirectsLeft)
}

func (a *Agent) hop(ctx context.Context, fr *flow.Request, cfg *Config, deadline time.Time, redirectsLeft int) (*Response, *flow.Request, error) {
	now := a.clock.Now()

	key, err := a.poolKey(fr, cfg)
	if err != nil {
		return nil, nil, err
	}

	conn := a.pool.Acquire(key, now)
	reused := conn != nil
	if conn == nil {
		conn, err = a.dial(ctx, fr, key, cfg, deadline)
		if err != nil {
			return nil, nil, err
		}
		a.pool.Adopt(conn)
	}

	fcfg := flow.Config{
		MaxRedirects:          cfg.MaxRedirects,
		HTTPSOnly:             cfg.HTTPSOnly,
		RedirectAuthHeaders:   cfg.RedirectAuthHeaders,
		MaxResponseHeaderSize: cfg.MaxResponseHeaderSize,
		Expect100Continue:     !fr.IsBodyEmpty(),
		Await100Timeout:       cfg.Timeouts.Await100,
		RecvResponseTimeout:   cfg.Timeouts.RecvResponse,
		RecvBodyTimeout:       cfg.Timeouts.RecvBody,
	}

	f := flow.NewFlow(fcfg, fr, redirectsLeft)
	u := unit.New(f, conn, reused, a.clock, deadline)

	first := make([]byte, cfg.InputBufferSize)
	n, rerr := u.ReadInto(first)
	if rerr != nil && rerr != io.EOF {
		_ = u.Conn().Close()
		return nil, nil, rerr
	}

	status := f.Status()
	header := f.ResponseHeader()

	if isRedirectCandidate(status) && header.Has("Location") {
		if derr := drainUnit(u, rerr); derr != nil {
			_ = u.Conn().Close()
			return nil, nil, derr
		}
		nr, berr := f.BuildRedirect()
		if berr != nil {
			return nil, nil, berr
		}
		return nil, nr, nil
	}

	if cfg.HTTPStatusAsError && status >= 400 {
		if derr := drainUnit(u, rerr); derr != nil {
			_ = u.Conn().Close()
		}
		return nil, nil, ErrorHTTPStatus.Error(&StatusError{StatusCode: status, Status: http.StatusText(status)})
	}

	var wire io.Reader = u
	switch {
	case rerr == io.EOF:
		wire = bytes.NewReader(first[:n])
	case n > 0:
		wire = io.MultiReader(bytes.NewReader(first[:n]), u)
	}

	b, berr := body.NewBody(wire, body.Info{
		ContentEncoding: header.Get("Content-Encoding"),
		ContentType:     header.Get("Content-Type"),
		LimitBytes:      cfg.MaxBodyBytes,
	})
	if berr != nil {
		_ = u.Conn().Close()
		return nil, nil, berr
	}

	return &Response{
		Status: status,
		Header: header,
		Body:   &Body{pipe: b, unit: u, done: rerr == io.EOF},
	}, nil, nil
}

// drainUnit reads fr's response body to completion without surfacing it,
// so the connection reaches a state Unit can safely pool or close before
// the driver moves on to a redirect or an http-status-as-error failure.
func drainUnit(u *unit.Unit, firstErr error) error {
	if firstErr == io.EOF {
		return nil
	}
	buf := make([]byte, 4096)
	for {
		_, err := u.ReadInto(buf)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func isRedirectCandidate(status int) bool {
	switch status {
	case 301, 302, 303, 307, 308:
		return true
	}
	return false
}

// retryableBody reports whether fr's body can be sent again: empty, or
// replayable and successfully rewound.
func retryableBody(fr *flow.Request) bool {
	if fr.IsBodyEmpty() {
		return true
	}
	if fr.Body == nil || !fr.Body.Replayable() {
		return false
	}
	return fr.Body.Reset() == nil
}

func isStaleConnection(err error) bool {
	return liberr.IsCode(err, unit.ErrorStaleConnection)
}

// buildFlowRequest converts the public Request into the Flow's wire-level
// Request, inserting the three auto-headers Config governs.
func (a *Agent) buildFlowRequest(req *Request, cfg *Config) *flow.Request {
	hdr := req.Header.Clone()

	if v, send := cfg.UserAgent.Resolve(defaultUserAgent); send && !hdr.Has("User-Agent") {
		hdr.Set("User-Agent", v)
	}
	if v, send := cfg.Accept.Resolve("*/*"); send && !hdr.Has("Accept") {
		hdr.Set("Accept", v)
	}
	if v, send := cfg.AcceptEncoding.Resolve("gzip, br"); send && !hdr.Has("Accept-Encoding") {
		hdr.Set("Accept-Encoding", v)
	}

	return &flow.Request{
		Method: req.Method,
		Scheme: req.URL.Scheme,
		Host:   req.URL.Host,
		Path:   pathAndQuery(req.URL),
		Header: hdr,
		Body:   req.Body,
	}
}

func pathAndQuery(u *url.URL) string {
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p
}

// poolKey derives the connection-sharing key for fr: scheme/host/port
// plus the resolved proxy identity and a TLS profile fingerprint, so two
// requests that would tunnel through different proxies or negotiate
// different TLS configs never share a pooled connection.
func (a *Agent) poolKey(fr *flow.Request, cfg *Config) (pool.Key, error) {
	host, port := splitHostPort(fr.Host, fr.Scheme)

	proxyIdentity := ""
	if cfg.Proxy != nil {
		if u, err := proxyForURL(cfg.Proxy, &url.URL{Scheme: fr.Scheme, Host: fr.Host}); err == nil && u != nil {
			proxyIdentity = u.String()
		}
	}

	tlsFingerprint := ""
	if fr.Scheme == "https" && cfg.TLSConfig != nil {
		tlsFingerprint = fmt.Sprintf("%p", cfg.TLSConfig)
	}

	return pool.Key{
		Scheme:         fr.Scheme,
		Host:           host,
		Port:           port,
		ProxyIdentity:  proxyIdentity,
		TLSFingerprint: tlsFingerprint,
	}, nil
}

func splitHostPort(authority, scheme string) (host, port string) {
	h, p, err := net.SplitHostPort(authority)
	if err == nil {
		return h, p
	}
	if scheme == "https" {
		return authority, "443"
	}
	return authority, "80"
}

// dial resolves key's target (or its proxy, when one applies) and opens a
// transport connection, honoring the resolve and connect phase budgets
// dominated by the call's overall deadline.
func (a *Agent) dial(ctx context.Context, fr *flow.Request, key pool.Key, cfg *Config, deadline time.Time) (*pool.Conn, error) {
	now := a.clock.Now()
	target := key.Host + ":" + key.Port

	profile := transport.Profile{Kind: transport.Plain, ServerName: key.Host, TLSConfig: cfg.TLSConfig}
	dialAuthority := target

	if key.ProxyIdentity != "" {
		proxyURL, err := proxyForURL(cfg.Proxy, &url.URL{Scheme: fr.Scheme, Host: fr.Host})
		if err != nil {
			return nil, err
		}
		profile = transport.Profile{
			Kind:       transport.ConnectProxy,
			ServerName: key.Host,
			TLSConfig:  cfg.TLSConfig,
			ProxyAddr:  proxyAuthority(proxyURL),
			TargetHost: target,
			TunnelTLS:  fr.Scheme == "https",
		}
		dialAuthority = profile.ProxyAddr
	} else if fr.Scheme == "https" {
		profile.Kind = transport.TLS
	}

	resolveDeadline := htclock.Deadline(now, deadline, cfg.Timeouts.Resolve)
	addrs, err := a.resolver.Resolve(ctx, dialAuthority, cfg.IPFamily, resolveDeadline)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, resolver.ErrorDns.Error(nil)
	}

	connectDeadline := htclock.Deadline(now, deadline, cfg.Timeouts.Connect)
	nc, err := a.transport.Connect(ctx, addrs[0], profile, connectDeadline)
	if err != nil {
		return nil, err
	}

	return pool.NewConn(key, nc, cfg.InputBufferSize, cfg.OutputBufferSize, a.clock), nil
}

func proxyAuthority(u *url.URL) string {
	if u.Port() != "" {
		return u.Host
	}
	if u.Scheme == "https" {
		return u.Hostname() + ":443"
	}
	return u.Hostname() + ":80"
}
