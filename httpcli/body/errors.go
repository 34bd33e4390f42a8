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

package body

import (
	"fmt"

	liberr "github.com/nabbar/htcli/errors"
)

const (
	ErrorBodyExceedsLimit liberr.CodeError = iota + liberr.MinPkgHttpCliBody
	ErrorContentDecode
	ErrorCharsetDecode
)

func init() {
	if liberr.ExistInMapMessage(ErrorBodyExceedsLimit) {
		panic(fmt.Errorf("error code collision with package htcli/httpcli/body"))
	}
	liberr.RegisterIdFctMessage(ErrorBodyExceedsLimit, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorBodyExceedsLimit:
		return "response body exceeds the configured byte limit"
	case ErrorContentDecode:
		return "response body content-decoding failed"
	case ErrorCharsetDecode:
		return "response body charset transcoding failed"
	}
	return liberr.NullMessage
}
