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

package flow

import (
	"strconv"
	"strings"
)

// serializeRequestHead renders the request line and header block,
// terminated by the blank line. Content-Length/Transfer-Encoding and
// Expect are injected by the caller into hdr before this runs.
func serializeRequestHead(req *Request, hdr *Header) []byte {
	var b strings.Builder
	b.Grow(256)

	path := req.Path
	if path == "" {
		path = "/"
	}
	b.WriteString(req.Method)
	b.WriteByte(' ')
	b.WriteString(path)
	b.WriteString(" HTTP/1.1\r\n")

	hdr.Walk(func(name, value string) {
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\r\n")
	})
	b.WriteString("\r\n")

	return []byte(b.String())
}

// headerAccumulator scans incoming bytes for the blank line that ends an
// HTTP/1.1 status line + header block, byte by byte so it never reads
// past what the caller handed it.
type headerAccumulator struct {
	buf     []byte
	maxSize int
}

func newHeaderAccumulator(maxSize int) *headerAccumulator {
	return &headerAccumulator{maxSize: maxSize}
}

// feed appends in to the accumulator and reports how many bytes of in
// were consumed, and the header block (without trailing blank line) once
// found. Bytes of in past the blank line are never consumed by this call;
// the caller re-feeds the remainder as body bytes.
func (a *headerAccumulator) feed(in []byte) (consumed int, block []byte, found bool, err error) {
	for consumed < len(in) {
		a.buf = append(a.buf, in[consumed])
		consumed++

		if a.maxSize > 0 && len(a.buf) > a.maxSize {
			return consumed, nil, false, ErrorHeaderSizeExceeded.Error(nil)
		}

		if hasBlankLineSuffix(a.buf) {
			block = trimBlankLineSuffix(a.buf)
			return consumed, block, true, nil
		}
	}
	return consumed, nil, false, nil
}

func hasBlankLineSuffix(b []byte) bool {
	n := len(b)
	if n >= 4 && b[n-4] == '\r' && b[n-3] == '\n' && b[n-2] == '\r' && b[n-1] == '\n' {
		return true
	}
	if n >= 2 && b[n-2] == '\n' && b[n-1] == '\n' {
		return true
	}
	return false
}

func trimBlankLineSuffix(b []byte) []byte {
	n := len(b)
	if n >= 4 && b[n-4] == '\r' && b[n-3] == '\n' && b[n-2] == '\r' && b[n-1] == '\n' {
		return b[:n-2]
	}
	return b[:n-1]
}

// parseStatusAndHeaders splits a header block (as produced by
// headerAccumulator, minus the final blank line) into a status code and
// a Header set. The status line is the first CRLF- or LF-terminated
// line; every following line is a "Name: value" header, with leading
// whitespace continuations folded onto the previous value per RFC 7230
// obsolete line folding.
func parseStatusAndHeaders(block []byte) (status int, hdr *Header, err error) {
	lines := splitLines(block)
	if len(lines) == 0 {
		return 0, nil, ErrorMalformedStatusLine.Error(nil)
	}

	status, err = parseStatusLine(lines[0])
	if err != nil {
		return 0, nil, err
	}

	hdr = NewHeader()
	var lastName string
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			if lastName == "" {
				return 0, nil, ErrorMalformedHeaderLine.Error(nil)
			}
			vs := hdr.Values(lastName)
			if len(vs) > 0 {
				hdr.values[canonical(lastName)][len(vs)-1] += " " + strings.TrimSpace(line)
			}
			continue
		}
		i := strings.IndexByte(line, ':')
		if i < 0 {
			return 0, nil, ErrorMalformedHeaderLine.Error(nil)
		}
		name := strings.TrimSpace(line[:i])
		value := strings.TrimSpace(line[i+1:])
		hdr.Add(name, value)
		lastName = name
	}

	return status, hdr, nil
}

func parseStatusLine(line string) (int, error) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 || !strings.HasPrefix(parts[0], "HTTP/1.") {
		return 0, ErrorMalformedStatusLine.Error(nil)
	}
	code, err := strconv.Atoi(parts[1])
	if err != nil || code < 100 || code > 599 {
		return 0, ErrorMalformedStatusLine.Error(nil)
	}
	return code, nil
}

func splitLines(block []byte) []string {
	s := string(block)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// determineFraming picks the response body framing mode per RFC 7230 §3.3.3:
// a response to HEAD, or with a 1xx/204/304 status, has no body regardless
// of headers; otherwise Transfer-Encoding: chunked wins over Content-Length,
// and the absence of both falls back to close-delimited framing.
func determineFraming(method string, status int, hdr *Header) (mode bodyFraming, length int64) {
	if method == "HEAD" || status == 204 || status == 304 || (status >= 100 && status < 200) {
		return framingNone, 0
	}
	if hdr.HasToken("Transfer-Encoding", "chunked") {
		return framingChunked, 0
	}
	if cl := hdr.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil && n >= 0 {
			if n == 0 {
				return framingNone, 0
			}
			return framingLength, n
		}
	}
	return framingCloseDelim, 0
}
