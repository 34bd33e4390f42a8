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
	"fmt"

	liberr "github.com/nabbar/htcli/errors"
)

const (
	ErrorMalformedStatusLine liberr.CodeError = iota + liberr.MinPkgHttpCliFlow
	ErrorMalformedHeaderLine
	ErrorHeaderSizeExceeded
	ErrorMalformedChunkSize
	ErrorUnexpectedState
	ErrorBodyNotReplayable
	ErrorHTTPSOnlyViolation
	ErrorTooManyRedirects
	ErrorMissingLocation
)

func init() {
	if liberr.ExistInMapMessage(ErrorMalformedStatusLine) {
		panic(fmt.Errorf("error code collision with package htcli/httpcli/flow"))
	}
	liberr.RegisterIdFctMessage(ErrorMalformedStatusLine, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorMalformedStatusLine:
		return "response status line is malformed"
	case ErrorMalformedHeaderLine:
		return "response header line is malformed"
	case ErrorHeaderSizeExceeded:
		return "response header section exceeds the configured limit"
	case ErrorMalformedChunkSize:
		return "chunked body chunk-size line is malformed"
	case ErrorUnexpectedState:
		return "flow was advanced while in a terminal or invalid state"
	case ErrorBodyNotReplayable:
		return "redirect requires resending the body but the body source is not replayable"
	case ErrorHTTPSOnlyViolation:
		return "redirect target is not https and https-only is enforced"
	case ErrorTooManyRedirects:
		return "redirect count exceeds the configured maximum"
	case ErrorMissingLocation:
		return "redirect response carries no usable Location header"
	}

	return liberr.NullMessage
}
