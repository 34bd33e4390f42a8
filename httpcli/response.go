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

	"go.uber.org/multierr"

	"github.com/nabbar/htcli/httpcli/body"
	"github.com/nabbar/htcli/httpcli/flow"
	"github.com/nabbar/htcli/httpcli/unit"
)

// Response is the outcome of a completed, non-redirected, non-error hop:
// the final status and headers, plus a Body the caller drives to
// completion (or abandons via Close).
type Response struct {
	Status int
	Header *flow.Header
	Body   *Body
}

// Body is the caller-facing response body: the decode chain from
// httpcli/body layered over the Unit that owns the underlying connection.
// A clean read to io.EOF lets the Unit return the connection to the pool
// (or close it, per Connection: close/undelimited framing) on its own;
// Close, called before that point, forces the connection closed since its
// read position can no longer be trusted for reuse.
type Body struct {
	pipe *body.Body
	unit *unit.Unit
	done bool
}

// Read implements io.Reader. Once it reports io.EOF the underlying
// connection has already been released by the Unit.
func (b *Body) Read(p []byte) (int, error) {
	n, err := b.pipe.Read(p)
	if err == io.EOF {
		b.done = true
	}
	return n, err
}

// Unsupported reports whether the response's Content-Encoding was not one
// httpcli/body implements (the bytes were passed through undecoded).
func (b *Body) Unsupported() bool { return b.pipe.Unsupported() }

// CharsetDecoded reports whether charset transcoding actually ran.
func (b *Body) CharsetDecoded() bool { return b.pipe.CharsetDecoded() }

// BytesRead reports the number of raw wire bytes consumed so far, the
// figure LimitBytes is checked against.
func (b *Body) BytesRead() int64 { return b.pipe.BytesRead() }

// Close releases the decode chain's resources and, if the body was not
// read to completion, force-closes the underlying connection rather than
// returning it to the pool in an indeterminate read position.
func (b *Body) Close() error {
	err := b.pipe.Close()
	if !b.done {
		err = multierr.Append(err, b.unit.Conn().Close())
	}
	return err
}
