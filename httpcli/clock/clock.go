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

// Package clock provides the monotonic time source used throughout the
// httpcli engine. It is the sole input to every deadline computation: the
// Pool's idle-age eviction, the Flow's phase timeouts, and the Executor's
// global budget all read through this interface rather than calling
// time.Now directly, so tests can inject a deterministic clock.
package clock

import "time"

// Clock returns the current instant. The default implementation wraps
// time.Now; tests substitute a Fake for deterministic timeout behavior.
type Clock interface {
	Now() time.Time
}

// Real is the production Clock, backed by the monotonic reading time.Now
// already provides on every supported platform.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

// System is the shared Real clock instance; most callers do not need their
// own allocation.
var System Clock = Real{}

// Fake is a test Clock with a manually advanced instant.
type Fake struct {
	at time.Time
}

// NewFake returns a Fake clock starting at the given instant.
func NewFake(at time.Time) *Fake {
	return &Fake{at: at}
}

func (f *Fake) Now() time.Time { return f.at }

// Advance moves the fake clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.at = f.at.Add(d)
}

// Deadline computes the effective deadline for a blocking call: the
// minimum of the global-remaining budget and a phase-specific timeout, per
// the dominance rule in the Timeouts invariant. A zero globalDeadline means
// no global budget is set. A zero phase means the phase has no timeout.
func Deadline(now time.Time, globalDeadline time.Time, phase time.Duration) time.Time {
	var phaseDeadline time.Time
	if phase > 0 {
		phaseDeadline = now.Add(phase)
	}

	switch {
	case globalDeadline.IsZero() && phaseDeadline.IsZero():
		return time.Time{}
	case globalDeadline.IsZero():
		return phaseDeadline
	case phaseDeadline.IsZero():
		return globalDeadline
	case globalDeadline.Before(phaseDeadline):
		return globalDeadline
	default:
		return phaseDeadline
	}
}

// Remaining returns the duration until deadline, or 0 if already passed.
// A zero deadline means "no deadline" and returns the sentinel -1 so
// callers can distinguish "unbounded" from "already expired".
func Remaining(now time.Time, deadline time.Time) time.Duration {
	if deadline.IsZero() {
		return -1
	}

	if d := deadline.Sub(now); d > 0 {
		return d
	}

	return 0
}
