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

// Package unit binds one Flow to one pooled Connection (C7): it is the only
// place in the engine where the pure protocol state machine actually touches
// a socket. ReadInto drives the Flow forward -- sending the request head and
// body, awaiting bytes, decoding the response -- until it has produced body
// bytes, hit a clean end, or failed.
package unit

import (
	"io"
	"time"

	liberr "github.com/nabbar/htcli/errors"
	htclock "github.com/nabbar/htcli/httpcli/clock"
	"github.com/nabbar/htcli/httpcli/flow"
	"github.com/nabbar/htcli/httpcli/pool"
)

const (
	ErrorStaleConnection liberr.CodeError = iota + liberr.MinPkgHttpCliUnit
)

func init() {
	if liberr.ExistInMapMessage(ErrorStaleConnection) {
		panic("error code collision with package httpcli/unit")
	}
	liberr.RegisterIdFctMessage(ErrorStaleConnection, getMessage)
}

func getMessage(code liberr.CodeError) string {
	switch code {
	case ErrorStaleConnection:
		return "pooled connection failed before any response bytes were received"
	}
	return liberr.NullMessage
}

// Unit owns the Flow/Connection pair for exactly one hop of one call. It is
// single-use: once the Flow reaches a terminal state the Connection has been
// handed back to the Pool or closed, and the Unit must be discarded.
type Unit struct {
	flow   *flow.Flow
	conn   *pool.Conn
	clock  htclock.Clock
	reused bool

	// deadline is the overall call budget; zero means unbounded. It
	// dominates every per-phase timeout the Flow reports (the overall-budget
	// dominance rule), combined via htclock.Deadline.
	deadline time.Time
}

// New binds f to conn. reused marks conn as having come from the Pool
// (rather than a fresh dial), which governs stale-pool retry eligibility.
func New(f *flow.Flow, conn *pool.Conn, reused bool, clk htclock.Clock, deadline time.Time) *Unit {
	if clk == nil {
		clk = htclock.System
	}
	return &Unit{flow: f, conn: conn, clock: clk, reused: reused, deadline: deadline}
}

// Flow returns the driven Flow, for status/header/redirect inspection once
// headers have arrived.
func (u *Unit) Flow() *flow.Flow { return u.flow }

// Conn returns the underlying pooled connection.
func (u *Unit) Conn() *pool.Conn { return u.conn }

// ResponseStarted reports whether the response status line has been parsed
// yet. Executor uses its negation, combined with Reused, to decide whether
// an I/O failure qualifies for the one stale-pool retry.
func (u *Unit) ResponseStarted() bool { return u.flow.Status() != 0 }

// Reused reports whether this Unit's connection came from the Pool.
func (u *Unit) Reused() bool { return u.reused }

// Read satisfies io.Reader by delegating to ReadInto, so a Unit can sit at
// the bottom of the body package's decoder chain.
func (u *Unit) Read(p []byte) (int, error) { return u.ReadInto(p) }

// ReadInto drives the Flow until it has written decoded response body bytes
// into out (returning their count), reached a clean end (0, io.EOF), hit a
// pending redirect (0, io.EOF -- the caller checks Flow().PendingRedirect()
// before asking for more), or failed.
func (u *Unit) ReadInto(out []byte) (int, error) {
	for {
		if u.flow.PendingRedirect() {
			return 0, io.EOF
		}

		now := u.clock.Now()
		ev, consumed, written, err := u.flow.Advance(now, u.conn.Input(), out)
		if consumed > 0 {
			u.conn.ConsumeInput(consumed)
		}
		if err != nil {
			return written, u.wrapIOError(err)
		}

		switch ev.Kind {
		case flow.EventReset:
			u.release(ev.MustClose, now)
			return 0, io.EOF

		case flow.EventTransmit:
			if len(ev.Transmit) > 0 {
				if werr := u.conn.Write(ev.Transmit, true); werr != nil {
					return 0, u.wrapIOError(werr)
				}
			}
			continue

		case flow.EventAwaitInput:
			timeout := u.awaitTimeout(now, ev.Timeout)
			if aerr := u.conn.AwaitInput(timeout); aerr != nil {
				return 0, u.wrapIOError(aerr)
			}
			continue

		case flow.EventResponseHeaders:
			continue

		case flow.EventResponseBody:
			return written, nil

		default:
			continue
		}
	}
}

// awaitTimeout combines the Flow's requested phase timeout with the Unit's
// overall call deadline, the global budget always dominating.
func (u *Unit) awaitTimeout(now time.Time, phase time.Duration) time.Duration {
	d := htclock.Deadline(now, u.deadline, phase)
	if d.IsZero() {
		return 0
	}
	if remaining := d.Sub(now); remaining > 0 {
		return remaining
	}
	return time.Nanosecond
}

// release hands the connection back to the Pool, or closes it outright when
// the exchange left it unfit for reuse.
func (u *Unit) release(mustClose bool, now time.Time) {
	if mustClose {
		_ = u.conn.Close()
		return
	}
	u.conn.Reuse(now)
}

// wrapIOError flags a transport failure as stale-pool-retryable when it
// struck a reused connection before any response bytes arrived.
func (u *Unit) wrapIOError(err error) error {
	if u.reused && !u.ResponseStarted() {
		return ErrorStaleConnection.Error(err)
	}
	return err
}
