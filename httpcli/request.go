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
	"io"
	"net/url"

	"github.com/nabbar/htcli/httpcli/flow"
)

// Request is the public, builder-facing counterpart of flow.Request: an
// absolute URI plus method, headers and an optional body source. A Request
// is immutable once handed to Agent.Do; FctConfig, when set, overrides the
// Agent's Config for this call only, via a cloned copy.
type Request struct {
	Method string
	URL    *url.URL
	Header *flow.Header
	Body   flow.BodySource

	// Config, when non-nil, overrides the Agent's Config for this call.
	// Build it from Agent.Config().Clone() so unset fields still inherit
	// the Agent's values.
	Config *Config
}

// NewRequest builds a Request with an empty header map and no body.
func NewRequest(method string, u *url.URL) *Request {
	return &Request{Method: method, URL: u, Header: flow.NewHeader(), Body: flow.EmptyBody{}}
}

// bytesBody is a replayable BodySource over an in-memory byte slice --
// the common case, and the only case a 307/308 redirect can always resend.
type bytesBody struct {
	data []byte
	at   int
}

// BytesBody wraps a fixed byte slice as a replayable request body.
func BytesBody(data []byte) flow.BodySource { return &bytesBody{data: data} }

func (b *bytesBody) WriteInto(out []byte) (int, bool, error) {
	n := copy(out, b.data[b.at:])
	b.at += n
	return n, b.at < len(b.data), nil
}

func (b *bytesBody) Len() (int64, bool) { return int64(len(b.data)), true }
func (b *bytesBody) Replayable() bool   { return true }
func (b *bytesBody) Reset() error       { b.at = 0; return nil }

// readerBody adapts an io.Reader as a non-replayable BodySource; a
// 307/308 redirect carrying one fails with flow.ErrorBodyNotReplayable,
// exactly the redirect-with-unreplayable-body edge case this type exists to exercise.
type readerBody struct {
	r      io.Reader
	length int64
	known  bool
	eof    bool
}

// ReaderBody adapts r as a request body. length/known declare
// Content-Length when known; otherwise the request is sent chunked.
func ReaderBody(r io.Reader, length int64, known bool) flow.BodySource {
	return &readerBody{r: r, length: length, known: known}
}

func (b *readerBody) WriteInto(out []byte) (int, bool, error) {
	if b.eof {
		return 0, false, nil
	}
	n, err := b.r.Read(out)
	if err == io.EOF {
		b.eof = true
		return n, false, nil
	}
	if err != nil {
		return n, false, err
	}
	return n, true, nil
}

func (b *readerBody) Len() (int64, bool) { return b.length, b.known }
func (b *readerBody) Replayable() bool   { return false }
func (b *readerBody) Reset() error       { return flow.ErrorBodyNotReplayable.Error(nil) }
