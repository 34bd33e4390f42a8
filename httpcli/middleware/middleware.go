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

// Package middleware models request-wrapping interceptors as
// (req, next) -> resp rather than a slice of handlers, so ordering and
// short-circuiting are explicit: a middleware that never calls next simply
// never does, no sentinel return value required. The chain itself is a
// persistent singly-linked list so Config.Clone() can share it by pointer
// instead of copying a slice.
package middleware

import "context"

// Func is one link in the chain. next is the remainder of the chain,
// terminating in the Agent's raw executor; a Func that returns without
// calling next short-circuits everything downstream (e.g. a cache hit).
type Func[Req, Resp any] func(ctx context.Context, req Req, next Next[Req, Resp]) (Resp, error)

// Next invokes the remainder of the chain.
type Next[Req, Resp any] func(ctx context.Context, req Req) (Resp, error)

// Link is one persistent node of the chain: its own Func plus the rest of
// the chain. Link values are never mutated after construction, so sharing
// one across cloned Configs is always safe.
type Link[Req, Resp any] struct {
	fn   Func[Req, Resp]
	next *Link[Req, Resp]
}

// Chain holds the head of a persistent middleware chain. The zero Chain is
// empty and Build degenerates to calling terminal directly.
type Chain[Req, Resp any] struct {
	head *Link[Req, Resp]
}

// Append returns a new Chain with fn added after every middleware already
// in the receiver. Middlewares run in append order: the first one
// appended wraps everything and runs first (outermost); each later one
// sits closer to terminal. The receiver is left unmodified -- Append
// never mutates a Chain already shared by a cloned Config.
func (c Chain[Req, Resp]) Append(fn Func[Req, Resp]) Chain[Req, Resp] {
	if fn == nil {
		return c
	}
	return Chain[Req, Resp]{head: &Link[Req, Resp]{fn: fn, next: c.head}}
}

// Len reports how many middlewares are chained.
func (c Chain[Req, Resp]) Len() int {
	n := 0
	for l := c.head; l != nil; l = l.next {
		n++
	}
	return n
}

// Empty reports whether the chain has no middleware at all.
func (c Chain[Req, Resp]) Empty() bool { return c.head == nil }

// Build wraps terminal with every middleware in the chain, outermost
// first, and returns the single entry point the Agent calls once per
// top-level request. Building per call is an O(chain length) allocation,
// not per redirect hop -- the Agent calls Build exactly once and reuses
// the returned Next across any internal redirect loop.
func (c Chain[Req, Resp]) Build(terminal Next[Req, Resp]) Next[Req, Resp] {
	next := terminal
	for l := c.head; l != nil; l = l.next {
		fn := l.fn
		cur := next
		next = func(ctx context.Context, req Req) (Resp, error) {
			return fn(ctx, req, cur)
		}
	}
	return next
}
