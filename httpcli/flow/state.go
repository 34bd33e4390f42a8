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

// stateTag is the Flow's current protocol phase.
type stateTag uint8

const (
	stSendRequest stateTag = iota
	stSendBody
	stAwait100
	stRecvResponse
	stRecvBody
	stRedirect
	stCleanup
	stDone
)

// bodyFraming is how the response body's end is recognized.
type bodyFraming uint8

const (
	framingNone         bodyFraming = iota // bodiless response
	framingLength                         // Content-Length
	framingChunked                        // Transfer-Encoding: chunked
	framingCloseDelim                     // read until EOF
)

// RedirectAuthPolicy controls Authorization propagation across redirects.
type RedirectAuthPolicy uint8

const (
	AuthNever RedirectAuthPolicy = iota
	AuthSameHost
)
