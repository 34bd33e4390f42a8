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

// Package flow implements the pure HTTP/1.1 protocol state machine (C6):
// request-line -> request-body -> await-100 -> response headers ->
// response body -> reset/close. Flow owns no I/O; it consumes bytes and
// time from a caller-supplied slice and returns Events describing what
// the driver (httpcli/unit.Unit) must do next. This separation is the
// engine's load-bearing test seam: the whole protocol is exercisable
// without a socket.
package flow

import (
	"net/textproto"
	"strings"
)

// Header is an ordered, case-insensitive, multi-value header mapping.
type Header struct {
	keys   []string // canonical order of first appearance
	values map[string][]string
}

func NewHeader() *Header {
	return &Header{values: make(map[string][]string)}
}

func canonical(name string) string {
	return textproto.CanonicalMIMEHeaderKey(name)
}

// Add appends a value, preserving insertion order for Walk/serialization.
func (h *Header) Add(name, value string) {
	k := canonical(name)
	if _, ok := h.values[k]; !ok {
		h.keys = append(h.keys, k)
	}
	h.values[k] = append(h.values[k], value)
}

// Set replaces all existing values for name.
func (h *Header) Set(name, value string) {
	k := canonical(name)
	if _, ok := h.values[k]; !ok {
		h.keys = append(h.keys, k)
	}
	h.values[k] = []string{value}
}

// Get returns the first value for name, or "".
func (h *Header) Get(name string) string {
	vs := h.values[canonical(name)]
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

// Values returns all values for name in insertion order.
func (h *Header) Values(name string) []string {
	return h.values[canonical(name)]
}

// Has reports whether name has at least one value.
func (h *Header) Has(name string) bool {
	return len(h.values[canonical(name)]) > 0
}

// Del removes all values for name.
func (h *Header) Del(name string) {
	k := canonical(name)
	if _, ok := h.values[k]; !ok {
		return
	}
	delete(h.values, k)
	for i, kk := range h.keys {
		if kk == k {
			h.keys = append(h.keys[:i], h.keys[i+1:]...)
			break
		}
	}
}

// Walk calls fn for every (name, value) pair in insertion order.
func (h *Header) Walk(fn func(name, value string)) {
	for _, k := range h.keys {
		for _, v := range h.values[k] {
			fn(k, v)
		}
	}
}

// Clone returns a deep copy safe for independent mutation.
func (h *Header) Clone() *Header {
	n := NewHeader()
	n.keys = append([]string(nil), h.keys...)
	for k, v := range h.values {
		n.values[k] = append([]string(nil), v...)
	}
	return n
}

// HasToken reports whether name's combined values contain token,
// case-insensitively, as a comma-separated list item (e.g. Connection:
// close, Transfer-Encoding: chunked).
func (h *Header) HasToken(name, token string) bool {
	for _, v := range h.Values(name) {
		for _, part := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(part), token) {
				return true
			}
		}
	}
	return false
}

// BodySource is the capability a Request body provides: pull the next
// chunk into output, declare a length if known, and report whether the
// body can be replayed (required for a 307/308 redirect to resend it).
type BodySource interface {
	// WriteInto copies the next chunk of the body into out and reports
	// whether there is more after this call.
	WriteInto(out []byte) (n int, more bool, err error)

	// Len returns the declared length and whether it is known. An
	// unknown length forces chunked transfer-encoding.
	Len() (length int64, known bool)

	// Replayable reports whether Reset can rewind the source to its
	// start, which 307/308 redirects require.
	Replayable() bool

	// Reset rewinds the source to its start. Only called when
	// Replayable() is true.
	Reset() error
}

// EmptyBody is a zero-length BodySource.
type EmptyBody struct{}

func (EmptyBody) WriteInto([]byte) (int, bool, error) { return 0, false, nil }
func (EmptyBody) Len() (int64, bool)                  { return 0, true }
func (EmptyBody) Replayable() bool                    { return true }
func (EmptyBody) Reset() error                        { return nil }

// Request is the immutable-once-executing unit Flow drives across one
// hop. Method/URI/Header mirror spec §3; Body is the capability form of
// "body source" from spec §6.
type Request struct {
	Method string
	Scheme string
	Host   string // host[:port]
	Path   string // path?query
	Header *Header
	Body   BodySource
}

func (r *Request) IsBodyEmpty() bool {
	if r.Body == nil {
		return true
	}
	if n, known := r.Body.Len(); known && n == 0 {
		return true
	}
	return false
}
