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

package flow_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/htcli/httpcli/flow"
)

type fixedBody struct {
	data []byte
	off  int
	repl bool
}

func (b *fixedBody) WriteInto(out []byte) (int, bool, error) {
	n := copy(out, b.data[b.off:])
	b.off += n
	return n, b.off < len(b.data), nil
}
func (b *fixedBody) Len() (int64, bool) { return int64(len(b.data)), true }
func (b *fixedBody) Replayable() bool   { return b.repl }
func (b *fixedBody) Reset() error       { b.off = 0; return nil }

func testConfig() flow.Config {
	return flow.Config{
		MaxRedirects:          5,
		MaxResponseHeaderSize: 1 << 16,
		Await100Timeout:       time.Second,
		RecvResponseTimeout:   time.Second,
		RecvBodyTimeout:       time.Second,
	}
}

// driveFlow plays a Flow to completion against a canned server response,
// without any socket: it is the seam the pure state machine buys us.
func driveFlow(f *flow.Flow, serverResp []byte) (sent []byte, body []byte) {
	out := make([]byte, 8192)
	var pending []byte

	for i := 0; i < 2000 && !f.Done() && !f.PendingRedirect(); i++ {
		ev, consumed, written, err := f.Advance(time.Now(), pending, out)
		Expect(err).ToNot(HaveOccurred())

		switch ev.Kind {
		case flow.EventTransmit:
			sent = append(sent, ev.Transmit...)
		case flow.EventResponseBody:
			body = append(body, out[:written]...)
		}

		pending = pending[consumed:]
		if len(pending) == 0 && ev.Kind == flow.EventAwaitInput && len(serverResp) > 0 {
			pending = serverResp
			serverResp = nil
		}
	}

	return sent, body
}

var _ = Describe("Flow", func() {
	It("sends a bodiless GET and decodes a Content-Length response", func() {
		req := &flow.Request{
			Method: "GET",
			Scheme: "http",
			Host:   "example.test",
			Path:   "/widgets",
			Header: flow.NewHeader(),
		}
		f := flow.NewFlow(testConfig(), req, 5)

		resp := []byte("HTTP/1.1 200 OK\r\nContent-Length: 5\r\nContent-Type: text/plain\r\n\r\nhello")
		sent, body := driveFlow(f, resp)

		Expect(string(sent)).To(ContainSubstring("GET /widgets HTTP/1.1\r\n"))
		Expect(string(sent)).To(ContainSubstring("Host: example.test\r\n"))
		Expect(f.Status()).To(Equal(200))
		Expect(string(body)).To(Equal("hello"))
	})

	It("sends a Content-Length-framed request body", func() {
		req := &flow.Request{
			Method: "POST",
			Scheme: "http",
			Host:   "example.test",
			Path:   "/widgets",
			Header: flow.NewHeader(),
			Body:   &fixedBody{data: []byte(`{"ok":true}`), repl: true},
		}
		f := flow.NewFlow(testConfig(), req, 5)

		resp := []byte("HTTP/1.1 204 No Content\r\n\r\n")
		sent, body := driveFlow(f, resp)

		Expect(string(sent)).To(ContainSubstring("Content-Length: 11\r\n"))
		Expect(string(sent)).To(ContainSubstring(`{"ok":true}`))
		Expect(f.Status()).To(Equal(204))
		Expect(body).To(BeEmpty())
	})

	It("decodes a chunked response body", func() {
		req := &flow.Request{Method: "GET", Scheme: "http", Host: "example.test", Path: "/", Header: flow.NewHeader()}
		f := flow.NewFlow(testConfig(), req, 5)

		resp := []byte("HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n" +
			"5\r\nhello\r\n6\r\n world\r\n0\r\n\r\n")
		_, body := driveFlow(f, resp)

		Expect(string(body)).To(Equal("hello world"))
	})

	It("rewrites a POST to GET and drops the body on a 302", func() {
		req := &flow.Request{
			Method: "POST",
			Scheme: "https",
			Host:   "example.test",
			Path:   "/submit",
			Header: flow.NewHeader(),
			Body:   &fixedBody{data: []byte("payload"), repl: true},
		}
		f := flow.NewFlow(testConfig(), req, 5)

		resp := []byte("HTTP/1.1 302 Found\r\nLocation: /thanks\r\nContent-Length: 0\r\n\r\n")
		driveFlow(f, resp)

		Expect(f.PendingRedirect()).To(BeTrue())

		next, err := f.BuildRedirect()
		Expect(err).ToNot(HaveOccurred())
		Expect(next.Method).To(Equal("GET"))
		Expect(next.Path).To(Equal("/thanks"))
		Expect(next.IsBodyEmpty()).To(BeTrue())
	})

	It("preserves method and body across a 307", func() {
		req := &flow.Request{
			Method: "PUT",
			Scheme: "https",
			Host:   "example.test",
			Path:   "/item/1",
			Header: flow.NewHeader(),
			Body:   &fixedBody{data: []byte("body"), repl: true},
		}
		f := flow.NewFlow(testConfig(), req, 5)

		resp := []byte("HTTP/1.1 307 Temporary Redirect\r\nLocation: https://example.test/item/1b\r\nContent-Length: 0\r\n\r\n")
		driveFlow(f, resp)

		next, err := f.BuildRedirect()
		Expect(err).ToNot(HaveOccurred())
		Expect(next.Method).To(Equal("PUT"))
		Expect(next.IsBodyEmpty()).To(BeFalse())
	})

	It("rejects a 307 redirect when the body cannot be replayed", func() {
		req := &flow.Request{
			Method: "PUT",
			Scheme: "https",
			Host:   "example.test",
			Path:   "/item/1",
			Header: flow.NewHeader(),
			Body:   &fixedBody{data: []byte("body"), repl: false},
		}
		f := flow.NewFlow(testConfig(), req, 5)

		resp := []byte("HTTP/1.1 307 Temporary Redirect\r\nLocation: /item/1b\r\nContent-Length: 0\r\n\r\n")
		driveFlow(f, resp)

		_, err := f.BuildRedirect()
		Expect(err).To(HaveOccurred())
	})

	It("enforces https_only on redirect targets", func() {
		req := &flow.Request{Method: "GET", Scheme: "https", Host: "example.test", Path: "/", Header: flow.NewHeader()}
		cfg := testConfig()
		cfg.HTTPSOnly = true
		f := flow.NewFlow(cfg, req, 5)

		resp := []byte("HTTP/1.1 301 Moved Permanently\r\nLocation: http://example.test/insecure\r\nContent-Length: 0\r\n\r\n")
		driveFlow(f, resp)

		_, err := f.BuildRedirect()
		Expect(err).To(HaveOccurred())
	})

	It("marks the connection for close when the server asks for it", func() {
		req := &flow.Request{Method: "GET", Scheme: "http", Host: "example.test", Path: "/", Header: flow.NewHeader()}
		f := flow.NewFlow(testConfig(), req, 5)

		resp := []byte("HTTP/1.1 200 OK\r\nConnection: close\r\nContent-Length: 2\r\n\r\nok")
		driveFlow(f, resp)

		Expect(f.MustCloseConn()).To(BeTrue())
	})
})
