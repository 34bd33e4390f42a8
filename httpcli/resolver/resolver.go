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

// Package resolver resolves an authority (host[:port]) into a sequence of
// socket addresses, honoring an IP-family preference and a resolve
// deadline. It is the sole collaborator the Executor calls into before a
// Transport dial; DNS implementations are otherwise out of this engine's
// scope (spec §1), so both implementations here only wrap an existing
// resolution mechanism rather than speaking the DNS wire protocol from
// scratch.
package resolver

import (
	"context"
	"net"
	"net/netip"
	"strconv"
	"time"

	liberr "github.com/nabbar/htcli/errors"
)

const (
	ErrorDns liberr.CodeError = iota + liberr.MinPkgHttpCliResolver
	ErrorResolveTimeout
	ErrorInvalidAuthority
)

func init() {
	if liberr.ExistInMapMessage(ErrorDns) {
		panic("error code collision with package httpcli/resolver")
	}
	liberr.RegisterIdFctMessage(ErrorDns, getMessage)
}

func getMessage(code liberr.CodeError) string {
	switch code {
	case ErrorDns:
		return "dns lookup returned no records"
	case ErrorResolveTimeout:
		return "dns lookup exceeded the resolve deadline"
	case ErrorInvalidAuthority:
		return "authority is not a valid host[:port] value"
	}
	return liberr.NullMessage
}

// IPFamily is the resolver's address-family preference.
type IPFamily uint8

const (
	Any IPFamily = iota
	IPv4Only
	IPv6Only
	IPv6ThenIPv4
	IPv4ThenIPv6
)

// Resolver resolves authority to a family-ordered sequence of socket
// addresses, bounded by deadline.
type Resolver interface {
	Resolve(ctx context.Context, authority string, family IPFamily, deadline time.Time) ([]netip.AddrPort, error)
}

// Override is consulted before the underlying Resolver; a hit short-
// circuits resolution entirely. httpcli/dns-mapper implements this.
type Override interface {
	Search(endpoint string) (string, error)
}

// Chained wraps a Resolver with an optional static Override.
type Chained struct {
	Base     Resolver
	Override Override
}

func (c Chained) Resolve(ctx context.Context, authority string, family IPFamily, deadline time.Time) ([]netip.AddrPort, error) {
	if c.Override != nil {
		if mapped, err := c.Override.Search(authority); err == nil && mapped != "" && mapped != authority {
			authority = mapped
		}
	}
	return c.Base.Resolve(ctx, authority, family, deadline)
}

// System resolves via the stdlib *net.Resolver. This is an unavoidable
// use of the standard library: there is no ecosystem-library replacement
// for "ask the OS resolver" short of reimplementing the DNS wire protocol,
// which the MiekgDNS implementation below does for callers who want to
// bypass the OS entirely (see DESIGN.md).
type System struct {
	Resolver *net.Resolver
}

func NewSystem() *System {
	return &System{Resolver: net.DefaultResolver}
}

func (s *System) Resolve(ctx context.Context, authority string, family IPFamily, deadline time.Time) ([]netip.AddrPort, error) {
	host, port, err := SplitAuthority(authority)
	if err != nil {
		return nil, ErrorInvalidAuthority.Error(err)
	}

	if !deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, deadline)
		defer cancel()
	}

	r := s.Resolver
	if r == nil {
		r = net.DefaultResolver
	}

	ips, err := r.LookupNetIP(ctx, network(family), host)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ErrorResolveTimeout.Error(ctxErr)
		}
		return nil, ErrorDns.Error(err)
	}

	if len(ips) == 0 {
		return nil, ErrorDns.Error(nil)
	}

	return order(ips, port, family), nil
}

func network(family IPFamily) string {
	switch family {
	case IPv4Only:
		return "ip4"
	case IPv6Only:
		return "ip6"
	default:
		return "ip"
	}
}

// order sorts and filters addresses to match the family preference, then
// attaches the port.
func order(ips []netip.Addr, port uint16, family IPFamily) []netip.AddrPort {
	v4 := make([]netip.Addr, 0, len(ips))
	v6 := make([]netip.Addr, 0, len(ips))

	for _, ip := range ips {
		if ip.Is4() || ip.Is4In6() {
			v4 = append(v4, ip.Unmap())
		} else {
			v6 = append(v6, ip)
		}
	}

	var ordered []netip.Addr
	switch family {
	case IPv4Only:
		ordered = v4
	case IPv6Only:
		ordered = v6
	case IPv6ThenIPv4:
		ordered = append(append(ordered, v6...), v4...)
	case IPv4ThenIPv6:
		ordered = append(append(ordered, v4...), v6...)
	default:
		ordered = ips
	}

	out := make([]netip.AddrPort, 0, len(ordered))
	for _, ip := range ordered {
		out = append(out, netip.AddrPortFrom(ip, port))
	}
	return out
}

// SplitAuthority splits a host[:port] authority, defaulting the port to 80.
func SplitAuthority(authority string) (host string, port uint16, err error) {
	h, p, splitErr := net.SplitHostPort(authority)
	if splitErr != nil {
		return authority, 80, nil
	}

	n, err := strconv.ParseUint(p, 10, 16)
	if err != nil {
		return "", 0, err
	}

	return h, uint16(n), nil
}
