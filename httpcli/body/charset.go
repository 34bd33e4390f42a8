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

import (
	"io"
	"mime"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// CharsetDecoder transcodes a text/* body to UTF-8 chunk by chunk, using
// the charset named in the response's Content-Type parameter. It is a
// no-op pass-through for non-text media types, for UTF-8 (including when
// no charset parameter is present at all, matching net/http's own
// leave-it-alone default), and for charset names htmlindex doesn't
// recognize -- garbling an already-correct body is worse than leaving it
// untouched.
type CharsetDecoder struct {
	r      io.Reader
	active bool
}

// NewCharsetDecoder inspects contentType and wraps r with a transcoding
// reader when, and only when, the media type is text/* and names a
// recognized non-UTF-8 charset.
func NewCharsetDecoder(r io.Reader, contentType string) *CharsetDecoder {
	enc, ok := textCharset(contentType)
	if !ok || enc == nil {
		return &CharsetDecoder{r: r}
	}
	return &CharsetDecoder{r: transform.NewReader(r, enc.NewDecoder()), active: true}
}

// Active reports whether transcoding is actually happening, versus a
// straight pass-through.
func (c *CharsetDecoder) Active() bool { return c.active }

func (c *CharsetDecoder) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if err != nil && err != io.EOF && c.active {
		return n, ErrorCharsetDecode.Error(err)
	}
	return n, err
}

// textCharset returns the encoding.Encoding named by contentType's charset
// parameter, and whether charset decoding should run at all (false for
// non-text media types, for utf-8, and for a missing/unparseable charset).
func textCharset(contentType string) (encoding.Encoding, bool) {
	if contentType == "" {
		return nil, false
	}

	mt, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, false
	}
	if !strings.HasPrefix(mt, "text/") {
		return nil, false
	}

	cs := strings.ToLower(strings.TrimSpace(params["charset"]))
	if cs == "" || cs == "utf-8" || cs == "utf8" {
		return nil, false
	}

	enc, err := htmlindex.Get(cs)
	if err != nil {
		return nil, false
	}
	return enc, true
}
