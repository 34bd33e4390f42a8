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

// Package transport opens a byte-stream to a resolved address: plain TCP,
// TLS, or a CONNECT-proxy tunnel (optionally itself wrapped in TLS). TLS
// implementation details are delegated to certificates.TLSConfig, the
// collaborator spec §1 names as out of this engine's scope.
package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/netip"
	"time"

	libtls "github.com/nabbar/htcli/certificates"
	liberr "github.com/nabbar/htcli/errors"
)

const (
	ErrorConnectTimeout liberr.CodeError = iota + liberr.MinPkgHttpCliTransport
	ErrorConnectionFailed
	ErrorTlsHandshake
	ErrorProxyConnect
)

func init() {
	if liberr.ExistInMapMessage(ErrorConnectTimeout) {
		panic("error code collision with package httpcli/transport")
	}
	liberr.RegisterIdFctMessage(ErrorConnectTimeout, getMessage)
}

func getMessage(code liberr.CodeError) string {
	switch code {
	case ErrorConnectTimeout:
		return "connect exceeded its deadline"
	case ErrorConnectionFailed:
		return "tcp connection attempt failed"
	case ErrorTlsHandshake:
		return "tls handshake failed"
	case ErrorProxyConnect:
		return "CONNECT proxy negotiation failed"
	}
	return liberr.NullMessage
}

// Kind enumerates the transport profile variants.
type Kind uint8

const (
	Plain Kind = iota
	TLS
	ConnectProxy
)

// ProxyAuth carries Basic credentials for a CONNECT tunnel.
type ProxyAuth struct {
	Username string
	Password string
}

// Profile describes how to reach a target: directly, over TLS, or via an
// HTTP CONNECT proxy (itself optionally TLS-wrapped once tunnelled).
type Profile struct {
	Kind Kind

	// TLS / ConnectProxy's final hop
	ServerName string
	TLSConfig  libtls.TLSConfig

	// ConnectProxy
	ProxyAddr  string // host:port of the proxy, dialed in Plain mode
	TargetHost string // host:port sent in the CONNECT request line
	Auth       *ProxyAuth
	TunnelTLS  bool // wrap the tunnel in TLS once CONNECT succeeds
}

// Transport opens a byte-stream to addr according to profile, honoring
// connect timeout and NO_DELAY.
type Transport interface {
	Connect(ctx context.Context, addr netip.AddrPort, profile Profile, deadline time.Time) (net.Conn, error)
}

// Dialer is the production Transport. NoDelay applies TCP_NODELAY on the
// raw socket before any TLS handshake.
type Dialer struct {
	NoDelay bool
}

func (d Dialer) Connect(ctx context.Context, addr netip.AddrPort, profile Profile, deadline time.Time) (net.Conn, error) {
	switch profile.Kind {
	case Plain:
		return d.dialPlain(ctx, addr.String(), deadline)
	case TLS:
		return d.dialTLS(ctx, addr.String(), profile, deadline)
	case ConnectProxy:
		return d.dialConnectProxy(ctx, addr.String(), profile, deadline)
	default:
		return nil, ErrorConnectionFailed.Error(fmt.Errorf("unknown transport profile kind %d", profile.Kind))
	}
}

func (d Dialer) dialPlain(ctx context.Context, addr string, deadline time.Time) (net.Conn, error) {
	nd := net.Dialer{}
	if !deadline.IsZero() {
		nd.Deadline = deadline
	}

	nc, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ErrorConnectTimeout.Error(err)
		}
		return nil, ErrorConnectionFailed.Error(err)
	}

	d.applyNoDelay(nc)
	return nc, nil
}

func (d Dialer) applyNoDelay(nc net.Conn) {
	if !d.NoDelay {
		return
	}
	if tc, ok := nc.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
}

func (d Dialer) dialTLS(ctx context.Context, addr string, profile Profile, deadline time.Time) (net.Conn, error) {
	nc, err := d.dialPlain(ctx, addr, deadline)
	if err != nil {
		return nil, err
	}

	tnc, err := handshake(ctx, nc, profile.ServerName, profile.TLSConfig, deadline)
	if err != nil {
		_ = nc.Close()
		return nil, err
	}
	return tnc, nil
}

// dialConnectProxy opens a plain connection to the proxy, issues CONNECT,
// awaits a 2xx, then optionally wraps the tunnel in TLS. No net/http is
// involved: the request line and status line are hand-framed, since this
// package exists precisely to avoid depending on net/http's own client
// transport.
func (d Dialer) dialConnectProxy(ctx context.Context, _ string, profile Profile, deadline time.Time) (net.Conn, error) {
	nc, err := d.dialPlain(ctx, profile.ProxyAddr, deadline)
	if err != nil {
		return nil, err
	}

	if !deadline.IsZero() {
		_ = nc.SetDeadline(deadline)
	}

	req := "CONNECT " + profile.TargetHost + " HTTP/1.1\r\nHost: " + profile.TargetHost + "\r\n"
	if profile.Auth != nil {
		req += "Proxy-Authorization: Basic " + basicAuth(profile.Auth.Username, profile.Auth.Password) + "\r\n"
	}
	req += "\r\n"

	if _, err = nc.Write([]byte(req)); err != nil {
		_ = nc.Close()
		return nil, ErrorProxyConnect.Error(err)
	}

	br := bufio.NewReader(nc)
	statusLine, err := br.ReadString('\n')
	if err != nil {
		_ = nc.Close()
		return nil, ErrorProxyConnect.Error(err)
	}

	if !isSuccessStatusLine(statusLine) {
		_ = nc.Close()
		return nil, ErrorProxyConnect.Error(fmt.Errorf("proxy CONNECT returned %q", statusLine))
	}

	// discard the rest of the proxy's response headers up to the blank line
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			_ = nc.Close()
			return nil, ErrorProxyConnect.Error(err)
		}
		if line == "\r\n" || line == "\n" {
			break
		}
	}

	tunnel := net.Conn(&bufferedConn{Conn: nc, r: br})
	_ = nc.SetDeadline(time.Time{})

	if !profile.TunnelTLS {
		return tunnel, nil
	}

	tnc, err := handshake(ctx, tunnel, profile.ServerName, profile.TLSConfig, deadline)
	if err != nil {
		_ = tunnel.Close()
		return nil, err
	}
	return tnc, nil
}

func handshake(ctx context.Context, nc net.Conn, serverName string, cfg libtls.TLSConfig, deadline time.Time) (net.Conn, error) {
	var tlsCfg *tls.Config
	if cfg != nil {
		tlsCfg = cfg.TLS(serverName)
	} else {
		tlsCfg = &tls.Config{ServerName: serverName}
	}

	if !deadline.IsZero() {
		_ = nc.SetDeadline(deadline)
	}

	tc := tls.Client(nc, tlsCfg)
	if err := tc.HandshakeContext(ctx); err != nil {
		return nil, ErrorTlsHandshake.Error(err)
	}

	_ = nc.SetDeadline(time.Time{})
	return tc, nil
}

func isSuccessStatusLine(line string) bool {
	// "HTTP/1.1 200 Connection established\r\n"
	if len(line) < len("HTTP/1.1 200") {
		return false
	}
	i := 0
	for i < len(line) && line[i] != ' ' {
		i++
	}
	i++
	return i+3 <= len(line) && line[i] == '2'
}

func basicAuth(user, pass string) string {
	return base64Encode(user + ":" + pass)
}
