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

import "time"

// EventKind tags the variant carried by an Event.
type EventKind uint8

const (
	EventAwaitInput EventKind = iota
	EventTransmit
	EventResponseHeaders
	EventResponseBody
	EventRedirect
	EventReset
)

func (k EventKind) String() string {
	switch k {
	case EventAwaitInput:
		return "AwaitInput"
	case EventTransmit:
		return "Transmit"
	case EventResponseHeaders:
		return "ResponseHeaders"
	case EventResponseBody:
		return "ResponseBody"
	case EventRedirect:
		return "Redirect"
	case EventReset:
		return "Reset"
	default:
		return "Unknown"
	}
}

// Event is what Flow returns to its driver. Only the fields relevant to
// Kind are meaningful.
type Event struct {
	Kind EventKind

	// EventAwaitInput
	Timeout time.Duration

	// EventTransmit: bytes the driver must write to the connection, in
	// order; the driver reports back how many were actually written via
	// Flow.Advance's next call (see ack in flow.go).
	Transmit []byte

	// EventResponseHeaders
	Status  int
	Headers *Header

	// EventResponseBody
	Amount int

	// EventRedirect
	NewRequest *Request

	// EventReset
	MustClose bool
}
