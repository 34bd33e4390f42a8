/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
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

// Package dns_mapper provides a static hostname/port override table consulted
// before the engine's resolver package asks DNS anything at all.
//
// A DNSMapper satisfies httpcli/resolver's Override interface directly
// (its Search method is the override hook), so the usual way to use one is
// to wrap it in a resolver.Chained alongside whatever base Resolver the
// Agent would otherwise use:
//
//	mapper := dnsmapper.New(ctx, &dnsmapper.Config{
//	    DNSMapper: map[string]string{"api.internal:443": "10.0.0.5:8443"},
//	}, nil)
//	defer mapper.Close()
//
//	agent := httpcli.NewAgent(cfg).WithResolver(resolver.Chained{
//	    Base:     resolver.NewSystem(),
//	    Override: mapper,
//	})
package dns_mapper

import (
	"context"
	"sync"
	"time"

	libatm "github.com/nabbar/htcli/atomic"
	libdur "github.com/nabbar/htcli/duration"
)

// FuncMessage is a callback function type for logging or message handling.
// It receives string messages from the DNS mapper during operations.
type FuncMessage func(msg string)

// DNSMapper defines the interface for static endpoint mapping. All methods
// are thread-safe and can be called concurrently.
type DNSMapper interface {
	// Add registers a new mapping from hostname:port to host:port.
	// Supports wildcards: "*.example.com:*" or "api.example.com:*"
	Add(from, to string)

	// Get retrieves the mapped address for a given hostname:port.
	// Returns empty string if no mapping exists.
	Get(from string) string

	// Del removes a mapping.
	Del(from string)

	// Len returns the number of active mappings.
	Len() int

	// Walk iterates over all mappings, calling the provided function for each.
	// If the function returns false, iteration stops.
	Walk(func(from, to string) bool)

	// Clean parses an endpoint string into hostname and port components.
	// Returns host, port, and error if parsing fails.
	Clean(endpoint string) (host string, port string, err error)

	// Search resolves an endpoint using the mapping table without caching.
	// Returns the mapped address, or the original endpoint if no mapping
	// applies. This is the method resolver.Override requires.
	Search(endpoint string) (string, error)

	// SearchWithCache is Search with the result memoized.
	SearchWithCache(endpoint string) (string, error)

	// GetConfig returns the current configuration snapshot.
	GetConfig() Config

	// TimeCleaner starts a background goroutine that periodically drops
	// the SearchWithCache cache until ctx is cancelled or Close is called.
	TimeCleaner(ctx context.Context, dur time.Duration)

	// Close stops the cache cleaner and releases resources.
	Close() error
}

// New creates and initializes a new DNSMapper instance with the given
// configuration. cfg == nil yields an empty mapping table. The caller
// should call Close() when done to stop the cache cleaner.
func New(ctx context.Context, cfg *Config, msg FuncMessage) DNSMapper {
	if cfg == nil {
		cfg = &Config{
			DNSMapper:  make(map[string]string),
			TimerClean: libdur.ParseDuration(3 * time.Minute),
		}
	}

	if msg == nil {
		msg = func(string) {}
	}

	d := &dmp{
		d: new(sync.Map),
		z: new(sync.Map),
		c: libatm.NewValue[*Config](),
		n: libatm.NewValue[func()](),
		i: msg,
	}

	for edp, adr := range cfg.DNSMapper {
		d.Add(edp, adr)
	}

	d.c.Store(cfg)
	d.TimeCleaner(ctx, cfg.TimerClean.Time())

	return d
}
