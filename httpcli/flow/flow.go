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
	"time"
)

// Config holds the knobs that shape a Flow's behaviour across its whole
// request/response/redirect lifecycle. Every timeout here is a
// phase-specific budget; the driver is responsible for combining it with
// the call's overall remaining deadline (timeout dominance is enforced by
// the driver, not by Flow, since Flow has no notion of "overall").
type Config struct {
	MaxRedirects          int
	HTTPSOnly             bool
	RedirectAuthHeaders   RedirectAuthPolicy
	MaxResponseHeaderSize int
	Expect100Continue     bool
	Await100Timeout       time.Duration
	RecvResponseTimeout   time.Duration
	RecvBodyTimeout       time.Duration
}

// Flow is the pure HTTP/1.1 protocol state machine. It owns no socket: it
// is driven by repeated calls to Advance, each handed the current time,
// whatever bytes have newly arrived from the connection, and a scratch
// buffer to stage outgoing bytes or decoded body bytes into.
type Flow struct {
	cfg   Config
	req   *Request
	state stateTag

	// send-side
	headBytes   []byte
	headSent    int
	bodyChunked bool
	bodyLen     int64
	bodyKnown   bool
	bodyEOF     bool
	chunkTail   []byte // unsent tail of the most recent encoded chunk
	chunkTailAt int
	await100At  time.Time

	// recv-side
	hdrAcc        *headerAccumulator
	pendingBody   []byte // bytes already read past the header block's blank line
	status        int
	respHeader    *Header
	framing       bodyFraming
	bodyRemaining int64
	chunkDec      *chunkDecoder
	mustClose     bool
	redirectsLeft int
}

// NewFlow builds a Flow ready to drive req across one hop. redirectsLeft
// is the hop budget remaining after this one (spec's MaxRedirects minus
// hops already taken).
func NewFlow(cfg Config, req *Request, redirectsLeft int) *Flow {
	f := &Flow{
		cfg:           cfg,
		req:           req,
		state:         stSendRequest,
		redirectsLeft: redirectsLeft,
		hdrAcc:        newHeaderAccumulator(cfg.MaxResponseHeaderSize),
	}

	hdr := req.Header.Clone()
	if hdr.Get("Host") == "" {
		hdr.Set("Host", req.Host)
	}

	if req.Body != nil {
		length, known := req.Body.Len()
		f.bodyKnown = known
		f.bodyLen = length
		if known && length == 0 {
			hdr.Del("Transfer-Encoding")
		} else if known {
			hdr.Set("Content-Length", strconv.FormatInt(length, 10))
			hdr.Del("Transfer-Encoding")
		} else {
			hdr.Set("Transfer-Encoding", "chunked")
			hdr.Del("Content-Length")
			f.bodyChunked = true
		}
		if cfg.Expect100Continue && !(known && length == 0) {
			hdr.Set("Expect", "100-continue")
		}
	} else {
		hdr.Del("Content-Length")
		hdr.Del("Transfer-Encoding")
	}

	f.headBytes = serializeRequestHead(req, hdr)
	return f
}

// Advance runs one step of the protocol. input is newly-available bytes
// read from the connection since the previous call (nil/empty if none
// have arrived yet); out is scratch space Flow may fill with outgoing or
// decoded bytes. consumed is how much of input was used; written is how
// much of out was filled.
func (f *Flow) Advance(now time.Time, input []byte, out []byte) (Event, int, int, error) {
	switch f.state {
	case stSendRequest:
		return f.advanceSendHead(out)
	case stAwait100:
		return f.advanceAwait100(now, input)
	case stSendBody:
		return f.advanceSendBody(out)
	case stRecvResponse:
		return f.advanceRecvResponse(input)
	case stRecvBody:
		return f.advanceRecvBody(input, out)
	case stRedirect:
		return Event{}, 0, 0, ErrorUnexpectedState.Error(nil)
	case stCleanup, stDone:
		return Event{Kind: EventReset, MustClose: f.mustClose}, 0, 0, nil
	default:
		return Event{}, 0, 0, ErrorUnexpectedState.Error(nil)
	}
}

func (f *Flow) advanceSendHead(out []byte) (Event, int, int, error) {
	n := copy(out, f.headBytes[f.headSent:])
	f.headSent += n

	if f.headSent < len(f.headBytes) {
		return Event{Kind: EventTransmit, Transmit: out[:n]}, 0, n, nil
	}

	if f.req.IsBodyEmpty() {
		f.state = stRecvResponse
	} else if f.cfg.Expect100Continue {
		f.state = stAwait100
		f.await100At = time.Time{}
	} else {
		f.state = stSendBody
	}

	return Event{Kind: EventTransmit, Transmit: out[:n]}, 0, n, nil
}

func (f *Flow) advanceAwait100(now time.Time, input []byte) (Event, int, int, error) {
	if f.await100At.IsZero() {
		f.await100At = now
	}

	if len(input) == 0 {
		remaining := f.cfg.Await100Timeout - now.Sub(f.await100At)
		if remaining <= 0 {
			f.state = stSendBody
			return Event{Kind: EventAwaitInput, Timeout: 0}, 0, 0, nil
		}
		return Event{Kind: EventAwaitInput, Timeout: remaining}, 0, 0, nil
	}

	consumed, block, found, err := f.hdrAcc.feed(input)
	if err != nil {
		return Event{}, consumed, 0, err
	}
	if !found {
		return Event{Kind: EventAwaitInput, Timeout: f.cfg.Await100Timeout}, consumed, 0, nil
	}

	status, _, err := parseStatusAndHeaders(block)
	if err != nil {
		return Event{}, consumed, 0, err
	}

	f.hdrAcc = newHeaderAccumulator(f.cfg.MaxResponseHeaderSize)
	if status == 100 {
		f.state = stSendBody
		return Event{Kind: EventAwaitInput, Timeout: 0}, consumed, 0, nil
	}

	// Server answered with a final status without waiting for the body
	// (e.g. rejecting it outright): skip straight to response handling.
	f.pendingBody = append([]byte(nil), input[consumed:]...)
	f.state = stRecvResponse
	return Event{Kind: EventAwaitInput, Timeout: 0}, len(input), 0, nil
}

func (f *Flow) advanceSendBody(out []byte) (Event, int, int, error) {
	if f.chunkTailAt < len(f.chunkTail) {
		n := copy(out, f.chunkTail[f.chunkTailAt:])
		f.chunkTailAt += n
		return Event{Kind: EventTransmit, Transmit: out[:n]}, 0, n, nil
	}

	if f.bodyEOF {
		f.state = stRecvResponse
		return f.advanceRecvResponse(nil)
	}

	raw := out
	if f.bodyChunked {
		// leave room for chunk framing overhead
		if len(raw) > 64 {
			raw = raw[:len(raw)-32]
		}
	}

	n, more, err := f.req.Body.WriteInto(raw)
	if err != nil {
		return Event{}, 0, 0, err
	}
	if !more {
		f.bodyEOF = true
	}

	var chunk []byte
	if f.bodyChunked {
		chunk = encodeChunk(raw[:n])
		if !more {
			chunk = append(chunk, encodeChunk(nil)...)
		}
	} else {
		chunk = raw[:n]
	}

	written := copy(out, chunk)
	if written < len(chunk) {
		f.chunkTail = chunk
		f.chunkTailAt = written
	}

	return Event{Kind: EventTransmit, Transmit: out[:written]}, 0, written, nil
}

// advanceRecvResponse always reports consumed as len(input): whatever the
// driver hands in this call is fully absorbed, either into the header
// accumulator or into pendingBody for the body phase that follows. The
// driver never needs to know about that internal split.
func (f *Flow) advanceRecvResponse(input []byte) (Event, int, int, error) {
	realLen := len(input)

	buf := input
	if len(f.pendingBody) > 0 {
		buf = append(append([]byte(nil), f.pendingBody...), input...)
		f.pendingBody = nil
	}

	if len(buf) == 0 {
		return Event{Kind: EventAwaitInput, Timeout: f.cfg.RecvResponseTimeout}, 0, 0, nil
	}

	consumed, block, found, err := f.hdrAcc.feed(buf)
	if err != nil {
		return Event{}, realLen, 0, err
	}
	if !found {
		return Event{Kind: EventAwaitInput, Timeout: f.cfg.RecvResponseTimeout}, realLen, 0, nil
	}

	status, hdr, err := parseStatusAndHeaders(block)
	if err != nil {
		return Event{}, realLen, 0, err
	}

	f.status = status
	f.respHeader = hdr
	f.mustClose = hdr.HasToken("Connection", "close")
	f.framing, f.bodyRemaining = determineFraming(f.req.Method, status, hdr)
	if f.framing == framingChunked {
		f.chunkDec = newChunkDecoder()
	}

	if leftover := buf[consumed:]; len(leftover) > 0 {
		f.pendingBody = append([]byte(nil), leftover...)
	}

	f.state = stRecvBody
	return Event{Kind: EventResponseHeaders, Status: status, Headers: hdr}, realLen, 0, nil
}

// advanceRecvBody, like advanceRecvResponse, always reports consumed as
// len(input): bytes that don't fit this call's out buffer are folded
// back into pendingBody rather than left unconsumed in the caller's slice.
func (f *Flow) advanceRecvBody(input []byte, out []byte) (Event, int, int, error) {
	if f.framing == framingNone {
		f.finishBody()
		return Event{Kind: EventResponseBody, Amount: 0}, 0, 0, nil
	}

	realLen := len(input)

	buf := input
	if len(f.pendingBody) > 0 {
		buf = append(append([]byte(nil), f.pendingBody...), input...)
		f.pendingBody = nil
	}

	if len(buf) == 0 {
		return Event{Kind: EventAwaitInput, Timeout: f.cfg.RecvBodyTimeout}, 0, 0, nil
	}

	switch f.framing {
	case framingLength:
		n := len(buf)
		if int64(n) > f.bodyRemaining {
			n = int(f.bodyRemaining)
		}
		if len(out) < n {
			n = len(out)
		}
		written := copy(out, buf[:n])
		f.bodyRemaining -= int64(written)
		if leftover := buf[written:]; len(leftover) > 0 {
			f.pendingBody = append([]byte(nil), leftover...)
		}
		if f.bodyRemaining == 0 {
			f.finishBody()
		}
		return Event{Kind: EventResponseBody, Amount: written}, realLen, written, nil

	case framingChunked:
		consumed, written, done, err := f.chunkDec.decode(buf, out)
		if err != nil {
			return Event{}, realLen, written, err
		}
		if leftover := buf[consumed:]; len(leftover) > 0 {
			f.pendingBody = append([]byte(nil), leftover...)
		}
		if done {
			f.finishBody()
		}
		return Event{Kind: EventResponseBody, Amount: written}, realLen, written, nil

	case framingCloseDelim:
		n := len(buf)
		if len(out) < n {
			n = len(out)
		}
		written := copy(out, buf[:n])
		if leftover := buf[written:]; len(leftover) > 0 {
			f.pendingBody = append([]byte(nil), leftover...)
		}
		return Event{Kind: EventResponseBody, Amount: written}, realLen, written, nil
	}

	return Event{}, 0, 0, ErrorUnexpectedState.Error(nil)
}

func (f *Flow) finishBody() {
	if isRedirectStatus(f.status) && f.respHeader.Has("Location") {
		f.state = stRedirect
		return
	}
	if f.mustClose {
		f.state = stCleanup
		return
	}
	f.state = stDone
}

// PendingRedirect reports whether the last completed response is a
// redirect Flow has no more hops to follow into itself; the driver uses
// BuildRedirect to construct the next Request and starts a fresh Flow.
func (f *Flow) PendingRedirect() bool {
	return f.state == stRedirect
}

// BuildRedirect resolves the just-completed response's Location into the
// Request the driver should issue next, applying the method-rewrite
// table, https_only enforcement and Authorization propagation policy.
func (f *Flow) BuildRedirect() (*Request, error) {
	if f.state != stRedirect {
		return nil, ErrorUnexpectedState.Error(nil)
	}
	if f.redirectsLeft <= 0 {
		return nil, ErrorTooManyRedirects.Error(nil)
	}
	return buildRedirectRequest(f.req, f.status, f.respHeader.Get("Location"), f.cfg.HTTPSOnly, f.cfg.RedirectAuthHeaders)
}

// Status returns the final response status once headers have arrived.
func (f *Flow) Status() int { return f.status }

// ResponseHeader returns the final response headers once they've arrived.
func (f *Flow) ResponseHeader() *Header { return f.respHeader }

// MustCloseConn reports whether the connection is unfit for pooling after
// this exchange (server sent Connection: close, or the framing provided
// no way to know where the body ends short of EOF).
func (f *Flow) MustCloseConn() bool {
	return f.mustClose || f.framing == framingCloseDelim
}

// Done reports whether the exchange (including any redirect the driver
// chose to follow by constructing a new Flow) has fully completed.
func (f *Flow) Done() bool {
	return f.state == stDone || f.state == stCleanup
}
