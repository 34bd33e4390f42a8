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
	"container/list"
	"sync"
	"time"

	htclock "github.com/nabbar/htcli/httpcli/clock"
)

// entry is one idle Conn tracked both in its per-key queue and in the
// global LRU list; the two list.Element pointers let Release/Acquire
// remove an entry from both structures in O(1).
type entry struct {
	conn     *Conn
	key      Key
	lastUse  time.Time
	globalEl *list.Element
	keyEl    *list.Element
}

// Pool is a bounded cache of idle Connections keyed by Key, LRU by idle
// timestamp, capped globally and per-key, with age-based eviction. The
// Pool is the sole shared mutable state in the engine (spec §5): every
// mutation happens under one mutex, and I/O (closing evicted
// connections) happens after the lock is released so a slow transport
// teardown never blocks a concurrent acquirer.
type Pool struct {
	mu sync.Mutex

	maxGlobal  int
	maxPerHost int
	maxAge     time.Duration
	clock      htclock.Clock

	global *list.List // of *entry, most-recently-used at Back
	byKey  map[Key]*list.List
}

// New builds a Pool with the given caps. maxAge is the idle-eviction
// threshold; zero means no age limit.
func New(maxGlobal, maxPerHost int, maxAge time.Duration, clk htclock.Clock) *Pool {
	if clk == nil {
		clk = htclock.System
	}
	return &Pool{
		maxGlobal:  maxGlobal,
		maxPerHost: maxPerHost,
		maxAge:     maxAge,
		clock:      clk,
		global:     list.New(),
		byKey:      make(map[Key]*list.List),
	}
}

// Acquire returns the most-recently-used idle connection for key whose
// age is within maxAge, removing it from the idle set. Expired entries
// encountered along the way are evicted (and their transports closed
// after the lock is released). Returns nil if no usable entry exists.
func (p *Pool) Acquire(key Key, now time.Time) *Conn {
	var toClose []*Conn

	p.mu.Lock()
	q, ok := p.byKey[key]
	if !ok || q.Len() == 0 {
		p.mu.Unlock()
		return nil
	}

	var found *entry
	for el := q.Front(); el != nil; {
		next := el.Next()
		e := el.Value.(*entry)

		if p.maxAge > 0 && now.Sub(e.lastUse) > p.maxAge {
			p.removeEntry(e)
			toClose = append(toClose, e.conn)
			el = next
			continue
		}

		found = e
		p.removeEntry(e)
		break
	}
	p.mu.Unlock()

	for _, c := range toClose {
		_ = c.Close()
	}

	if found == nil {
		return nil
	}
	return found.conn
}

// Adopt binds a freshly dialed Conn to this Pool without making it idle:
// Reuse calls on it later (once the Executor is done with it) will then
// insert it for real instead of closing it as ownerless. Call this once,
// right after dialing, before handing the Conn to a Unit.
func (p *Pool) Adopt(conn *Conn) {
	conn.bindOwner(p)
}

// Release inserts conn at the head of its per-key queue with last_use =
// now. Per-key and global overflow evict the tail/least-recently-used
// entry respectively. release implements Releaser so Conn.Reuse can call
// back into the Pool without importing it.
func (p *Pool) release(conn *Conn, now time.Time) {
	p.Release(conn, now)
}

func (p *Pool) Release(conn *Conn, now time.Time) {
	conn.bindOwner(p)

	var toClose []*Conn

	p.mu.Lock()

	q, ok := p.byKey[conn.Key]
	if !ok {
		q = list.New()
		p.byKey[conn.Key] = q
	}

	e := &entry{conn: conn, key: conn.Key, lastUse: now}
	e.keyEl = q.PushFront(e)
	e.globalEl = p.global.PushFront(e)

	if p.maxPerHost > 0 {
		for q.Len() > p.maxPerHost {
			tail := q.Back().Value.(*entry)
			p.removeEntry(tail)
			toClose = append(toClose, tail.conn)
		}
	}

	if p.maxGlobal > 0 {
		for p.global.Len() > p.maxGlobal {
			tail := p.global.Back().Value.(*entry)
			p.removeEntry(tail)
			toClose = append(toClose, tail.conn)
		}
	}

	p.mu.Unlock()

	for _, c := range toClose {
		_ = c.Close()
	}
}

// removeEntry unlinks e from both its per-key list and the global list.
// Caller must hold p.mu.
func (p *Pool) removeEntry(e *entry) {
	q := p.byKey[e.key]
	if q != nil && e.keyEl != nil {
		q.Remove(e.keyEl)
		if q.Len() == 0 {
			delete(p.byKey, e.key)
		}
	}
	if e.globalEl != nil {
		p.global.Remove(e.globalEl)
	}
}

// Clear closes all idle connections and empties the pool.
func (p *Pool) Clear() {
	p.mu.Lock()
	var conns []*Conn
	for el := p.global.Front(); el != nil; el = el.Next() {
		conns = append(conns, el.Value.(*entry).conn)
	}
	p.global = list.New()
	p.byKey = make(map[Key]*list.List)
	p.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
}

// Len returns the total number of idle connections across all keys.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.global.Len()
}

// LenKey returns the number of idle connections for a single key.
func (p *Pool) LenKey(key Key) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if q, ok := p.byKey[key]; ok {
		return q.Len()
	}
	return 0
}
