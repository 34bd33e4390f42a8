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

package body

import "io"

// Info carries the response metadata the pipeline needs to decide what
// decoding to apply: the raw Content-Encoding and Content-Type header
// values, and the raw-wire byte cap (<= 0 disables it).
type Info struct {
	ContentEncoding string
	ContentType     string
	LimitBytes      int64
}

// Body is the fully assembled decoder chain returned to the caller:
// CharsetDecoder(ContentDecoder(LimitReader(wire))). Close releases any
// resources the ContentDecoder stage holds (e.g. a gzip.Reader); it does
// not close wire, which belongs to the Unit/Connection.
type Body struct {
	io.Reader
	content *ContentDecoder
	charset *CharsetDecoder
	limit   *LimitReader
}

// NewBody layers the three C9 stages over wire per Info. wire is typically
// a *unit.Unit (which satisfies io.Reader via Unit.Read).
func NewBody(wire io.Reader, info Info) (*Body, error) {
	lr := NewLimitReader(wire, info.LimitBytes)

	cd, err := NewContentDecoder(lr, ParseEncoding(info.ContentEncoding))
	if err != nil {
		return nil, err
	}

	chd := NewCharsetDecoder(cd, info.ContentType)

	return &Body{Reader: chd, content: cd, charset: chd, limit: lr}, nil
}

// Unsupported reports whether the Content-Encoding was not one this
// package implements, so the caller can surface a warning instead of
// silently handing back undecoded bytes.
func (b *Body) Unsupported() bool { return b.content.Unsupported }

// CharsetDecoded reports whether charset transcoding actually ran.
func (b *Body) CharsetDecoded() bool { return b.charset.Active() }

// BytesRead reports the number of raw wire bytes consumed so far.
func (b *Body) BytesRead() int64 { return b.limit.N() }

// Close releases the ContentDecoder stage's resources.
func (b *Body) Close() error { return b.content.Close() }
