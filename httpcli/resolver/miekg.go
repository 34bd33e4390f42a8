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

package resolver

import (
	"context"
	"net/netip"
	"time"

	"github.com/miekg/dns"
)

// MiekgDNS resolves authorities by speaking the DNS wire protocol directly
// to a configured set of recursive servers, bypassing the OS resolver
// entirely. It is the worker-join-with-timeout shape spec §4.1 describes:
// the lookup runs in its own goroutine and the caller selects on the
// result channel vs. the deadline, so a slow server can never hold the
// goroutine open past the caller's wait -- the channel is buffered by 1,
// so the goroutine's single send never blocks even if nobody is left to
// receive it.
type MiekgDNS struct {
	Servers []string // "ip:port", tried in order
	Client  *dns.Client
}

func NewMiekgDNS(servers ...string) *MiekgDNS {
	return &MiekgDNS{
		Servers: servers,
		Client:  &dns.Client{Timeout: 5 * time.Second},
	}
}

func (m *MiekgDNS) Resolve(ctx context.Context, authority string, family IPFamily, deadline time.Time) ([]netip.AddrPort, error) {
	host, port, err := SplitAuthority(authority)
	if err != nil {
		return nil, ErrorInvalidAuthority.Error(err)
	}

	if ip, perr := netip.ParseAddr(host); perr == nil {
		return []netip.AddrPort{netip.AddrPortFrom(ip, port)}, nil
	}

	type result struct {
		ips []netip.Addr
		err error
	}
	ch := make(chan result, 1)

	go func() {
		ch <- m.lookup(host, family)
	}()

	select {
	case <-ctx.Done():
		return nil, ErrorResolveTimeout.Error(ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return nil, ErrorDns.Error(r.err)
		}
		if len(r.ips) == 0 {
			return nil, ErrorDns.Error(nil)
		}
		return order(r.ips, port, family), nil
	}
}

func (m *MiekgDNS) lookup(host string, family IPFamily) (ips []netip.Addr, err error) {
	qtypes := []uint16{dns.TypeA, dns.TypeAAAA}
	switch family {
	case IPv4Only:
		qtypes = []uint16{dns.TypeA}
	case IPv6Only:
		qtypes = []uint16{dns.TypeAAAA}
	}

	fqdn := dns.Fqdn(host)

	for _, qtype := range qtypes {
		msg := new(dns.Msg)
		msg.SetQuestion(fqdn, qtype)
		msg.RecursionDesired = true

		answered := false
		for _, server := range m.Servers {
			resp, _, e := m.Client.Exchange(msg, server)
			if e != nil {
				err = e
				continue
			}
			answered = true
			for _, rr := range resp.Answer {
				switch rec := rr.(type) {
				case *dns.A:
					if a, ok := netip.AddrFromSlice(rec.A.To4()); ok {
						ips = append(ips, a)
					}
				case *dns.AAAA:
					if a, ok := netip.AddrFromSlice(rec.AAAA.To16()); ok {
						ips = append(ips, a)
					}
				}
			}
			break
		}
		if answered {
			err = nil
		}
	}

	return ips, err
}
