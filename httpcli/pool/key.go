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

// Package pool implements the connection pool (C5) and the pooled
// Connection type (C4): a bounded cache of idle connections keyed by Key,
// evicted by age and by global/per-key LRU.
package pool

// Key is the tuple that determines connection-sharing compatibility.
// Equality is exact: two connections with differing proxy identity or TLS
// profile fingerprint are never shared, even if scheme/host/port match.
type Key struct {
	Scheme         string
	Host           string
	Port           string
	ProxyIdentity  string
	TLSFingerprint string
}

func (k Key) String() string {
	return k.Scheme + "://" + k.Host + ":" + k.Port + "|" + k.ProxyIdentity + "|" + k.TLSFingerprint
}
