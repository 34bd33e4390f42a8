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

// inputBuffer is a single-writer/single-reader byte buffer: the transport
// fills it, the Unit drains it. It is not a true ring (no wraparound) --
// it compacts on ConsumeAll instead, which is simpler and cheap since the
// Unit always drains what it read before the next AwaitInput call.
type inputBuffer struct {
	buf []byte
	len int // filled prefix length
	cap int
}

func newInputBuffer(capacity int) *inputBuffer {
	return &inputBuffer{buf: make([]byte, capacity), cap: capacity}
}

// Filled returns the filled prefix of the buffer.
func (b *inputBuffer) Filled() []byte {
	return b.buf[:b.len]
}

// Free returns the writable suffix of the buffer for a transport Read.
func (b *inputBuffer) Free() []byte {
	return b.buf[b.len:]
}

// Grow records n freshly-written bytes.
func (b *inputBuffer) Grow(n int) {
	b.len += n
}

// Consume advances past n bytes that the reader has processed. Over-
// consume (n > len) is the fatal bug the spec calls out; it panics rather
// than silently corrupting the buffer.
func (b *inputBuffer) Consume(n int) {
	if n < 0 || n > b.len {
		panic("pool: consume_input exceeds filled length")
	}
	if n == b.len {
		b.len = 0
		return
	}
	copy(b.buf, b.buf[n:b.len])
	b.len -= n
}

func (b *inputBuffer) HasRoom() bool {
	return b.len < b.cap
}

func (b *inputBuffer) Reset() {
	b.len = 0
}

// outputBuffer accumulates bytes to write and flushes in bounded chunks.
type outputBuffer struct {
	buf []byte
	cap int
}

func newOutputBuffer(capacity int) *outputBuffer {
	return &outputBuffer{buf: make([]byte, 0, capacity), cap: capacity}
}

func (b *outputBuffer) Append(p []byte) {
	b.buf = append(b.buf, p...)
}

func (b *outputBuffer) Full() bool {
	return len(b.buf) >= b.cap
}

func (b *outputBuffer) Len() int {
	return len(b.buf)
}

func (b *outputBuffer) Bytes() []byte {
	return b.buf
}

func (b *outputBuffer) Reset() {
	b.buf = b.buf[:0]
}
