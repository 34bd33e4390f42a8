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

// Package body implements the C9 response body pipeline: a LimitReader
// capping raw wire bytes, a ContentDecoder undoing Content-Encoding, and a
// CharsetDecoder transcoding text/* payloads to UTF-8. Layered outermost to
// innermost as CharsetDecoder(ContentDecoder(LimitReader(wire))), so the
// limit always bounds bytes actually read off the connection rather than the
// (potentially much larger) decompressed output.
package body

import "io"

// LimitReader wraps r and fails with ErrorBodyExceedsLimit once more than
// max bytes have been read from it, rather than silently truncating. A zero
// or negative max disables the cap.
type LimitReader struct {
	r     io.Reader
	max   int64
	n     int64
	limit bool
}

// NewLimitReader builds a LimitReader over r. max <= 0 means unbounded.
func NewLimitReader(r io.Reader, max int64) *LimitReader {
	return &LimitReader{r: r, max: max, limit: max > 0}
}

func (l *LimitReader) Read(p []byte) (int, error) {
	if !l.limit {
		return l.r.Read(p)
	}

	remaining := l.max - l.n
	if remaining <= 0 {
		// The cap was hit exactly on a prior read. Only flag overflow if
		// the underlying stream actually has more to give; a body ending
		// precisely at max is not an overflow.
		var probe [1]byte
		pn, perr := l.r.Read(probe[:])
		if pn > 0 {
			l.n++
			return 0, ErrorBodyExceedsLimit.Error(nil)
		}
		if perr != nil && perr != io.EOF {
			return 0, perr
		}
		return 0, io.EOF
	}
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}

	n, err := l.r.Read(p)
	l.n += int64(n)
	return n, err
}

// N reports the number of bytes read so far.
func (l *LimitReader) N() int64 { return l.n }
