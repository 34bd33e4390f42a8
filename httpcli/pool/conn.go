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

package pool

import (
	"net"
	"time"

	liberr "github.com/nabbar/htcli/errors"
	htclock "github.com/nabbar/htcli/httpcli/clock"
)

const (
	ErrorConsumeOverflow liberr.CodeError = iota + liberr.MinPkgHttpCliPool
	ErrorAwaitInputTimeout
	ErrorConnectionClosed
)

func init() {
	if liberr.ExistInMapMessage(ErrorConsumeOverflow) {
		panic("error code collision with package httpcli/pool")
	}
	liberr.RegisterIdFctMessage(ErrorConsumeOverflow, getMessage)
}

func getMessage(code liberr.CodeError) string {
	switch code {
	case ErrorConsumeOverflow:
		return "consume_input exceeds the most recently filled length"
	case ErrorAwaitInputTimeout:
		return "await_input exceeded its deadline"
	case ErrorConnectionClosed:
		return "operation attempted on a closed connection"
	}
	return liberr.NullMessage
}

// Releaser returns a Conn to its owning Pool, or drops it if there is
// none (a Conn created outside of Acquire, e.g. by a fresh dial).
type Releaser interface {
	release(c *Conn, now time.Time)
}

// Conn is a transport plus its input/output buffers, identified by a Key.
// At any moment it is owned by exactly one of {the Executor, the Pool, or
// neither (closed)} -- Acquire/Release enforce that by always handing
// ownership across as a move, never leaving a Conn reachable from two
// places at once.
type Conn struct {
	Key     Key
	netConn net.Conn
	clock   htclock.Clock

	in  *inputBuffer
	out *outputBuffer

	created time.Time
	lastUse time.Time

	owner  Releaser
	closed bool
}

// NewConn wraps a freshly dialed net.Conn. inputSize/outputSize are the
// configured per-connection buffer caps (default 128 KiB each, per spec).
func NewConn(key Key, nc net.Conn, inputSize, outputSize int, clk htclock.Clock) *Conn {
	if clk == nil {
		clk = htclock.System
	}
	now := clk.Now()
	return &Conn{
		Key:     key,
		netConn: nc,
		clock:   clk,
		in:      newInputBuffer(inputSize),
		out:     newOutputBuffer(outputSize),
		created: now,
		lastUse: now,
	}
}

// Age reports how long ago the connection was created.
func (c *Conn) Age(now time.Time) time.Duration { return now.Sub(c.created) }

// Idle reports how long ago the connection was last used.
func (c *Conn) Idle(now time.Time) time.Duration { return now.Sub(c.lastUse) }

// AwaitInput reads from the transport until at least one byte is
// available or timeout elapses. A zero timeout blocks without a deadline.
func (c *Conn) AwaitInput(timeout time.Duration) error {
	if c.closed {
		return ErrorConnectionClosed.Error(nil)
	}

	if !c.in.HasRoom() {
		return nil // caller must Consume before asking for more
	}

	if timeout > 0 {
		_ = c.netConn.SetReadDeadline(c.clock.Now().Add(timeout))
	} else {
		_ = c.netConn.SetReadDeadline(time.Time{})
	}

	n, err := c.netConn.Read(c.in.Free())
	if n > 0 {
		c.in.Grow(n)
	}
	if err != nil {
		if isTimeout(err) {
			return ErrorAwaitInputTimeout.Error(err)
		}
		return err
	}
	return nil
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	if t, ok := err.(timeouter); ok {
		return t.Timeout()
	}
	return false
}

// Input borrows the filled prefix of the input buffer.
func (c *Conn) Input() []byte { return c.in.Filled() }

// ConsumeInput advances the read cursor by n, which must be <= the length
// of the slice most recently returned by Input. Over-consume panics: the
// spec names this a fatal bug, not a recoverable error.
func (c *Conn) ConsumeInput(n int) { c.in.Consume(n) }

// Write appends to the output buffer and flushes when full or when flush
// is requested (end of a logical write, e.g. end of headers).
func (c *Conn) Write(p []byte, flush bool) error {
	if c.closed {
		return ErrorConnectionClosed.Error(nil)
	}

	c.out.Append(p)

	if flush || c.out.Full() {
		return c.Flush()
	}
	return nil
}

func (c *Conn) Flush() error {
	if c.out.Len() == 0 {
		return nil
	}
	_, err := c.netConn.Write(c.out.Bytes())
	c.out.Reset()
	return err
}

// Close releases the transport. Safe to call more than once.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.in.Reset()
	c.out.Reset()
	return c.netConn.Close()
}

// Reuse returns the connection to its owning Pool, updating last-use. A
// Conn with no owner (e.g. one that bypassed the Pool) is closed instead.
func (c *Conn) Reuse(now time.Time) {
	c.lastUse = now
	if c.owner != nil {
		c.owner.release(c, now)
		return
	}
	_ = c.Close()
}

// bindOwner is called once by Pool.Release on first insertion.
func (c *Conn) bindOwner(p Releaser) { c.owner = p }
