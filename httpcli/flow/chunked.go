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
	"strconv"
	"strings"
)

// chunkDecoderPhase tracks where the decoder is within one chunk.
type chunkDecoderPhase uint8

const (
	chunkPhaseSize chunkDecoderPhase = iota
	chunkPhaseData
	chunkPhaseDataCRLF
	chunkPhaseTrailer
	chunkPhaseDone
)

// chunkDecoder parses a chunked-transfer body incrementally: hex
// chunk-size lines (extensions ignored), chunk data, and trailers
// (discarded -- spec names trailer exposure as a future hook, not yet
// wired to any caller-visible API).
type chunkDecoder struct {
	phase     chunkDecoderPhase
	remaining int64  // bytes left in the current chunk's data
	lineBuf   []byte // partial line accumulator for size/trailer lines
}

func newChunkDecoder() *chunkDecoder {
	return &chunkDecoder{phase: chunkPhaseSize}
}

// decode consumes from in, writes decoded body bytes into out, and
// reports how much of in was consumed, how much of out was written, and
// whether the terminal chunk + trailers have been fully consumed.
func (d *chunkDecoder) decode(in, out []byte) (consumed, written int, done bool, err error) {
	for consumed < len(in) {
		switch d.phase {
		case chunkPhaseSize:
			b := in[consumed]
			consumed++
			if b == '\n' {
				line := strings.TrimRight(string(d.lineBuf), "\r")
				d.lineBuf = d.lineBuf[:0]
				size, perr := parseChunkSize(line)
				if perr != nil {
					return consumed, written, false, perr
				}
				d.remaining = size
				if size == 0 {
					d.phase = chunkPhaseTrailer
				} else {
					d.phase = chunkPhaseData
				}
			} else if b != '\r' {
				d.lineBuf = append(d.lineBuf, b)
			}

		case chunkPhaseData:
			n := len(in) - consumed
			if int64(n) > d.remaining {
				n = int(d.remaining)
			}
			if len(out)-written < n {
				n = len(out) - written
			}
			if n == 0 {
				return consumed, written, false, nil
			}
			copy(out[written:written+n], in[consumed:consumed+n])
			consumed += n
			written += n
			d.remaining -= int64(n)
			if d.remaining == 0 {
				d.phase = chunkPhaseDataCRLF
			}

		case chunkPhaseDataCRLF:
			b := in[consumed]
			consumed++
			if b == '\n' {
				d.phase = chunkPhaseSize
			}

		case chunkPhaseTrailer:
			b := in[consumed]
			consumed++
			if b == '\n' {
				if len(d.lineBuf) == 0 {
					d.phase = chunkPhaseDone
					return consumed, written, true, nil
				}
				d.lineBuf = d.lineBuf[:0]
			} else if b != '\r' {
				d.lineBuf = append(d.lineBuf, b)
			}

		case chunkPhaseDone:
			return consumed, written, true, nil
		}
	}

	return consumed, written, d.phase == chunkPhaseDone, nil
}

func parseChunkSize(line string) (int64, error) {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i] // chunk extensions are ignored per spec
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, fmt.Errorf("flow: empty chunk-size line")
	}
	n, err := strconv.ParseInt(line, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("flow: malformed chunk-size %q: %w", line, err)
	}
	return n, nil
}

// encodeChunk frames a body chunk for transmission: "<hex-size>\r\n<data>\r\n".
// A zero-length chunk is the terminal chunk ("0\r\n\r\n", no trailers).
func encodeChunk(data []byte) []byte {
	size := strconv.FormatInt(int64(len(data)), 16)
	out := make([]byte, 0, len(size)+2+len(data)+2+2)
	out = append(out, size...)
	out = append(out, '\r', '\n')
	out = append(out, data...)
	out = append(out, '\r', '\n')
	if len(data) == 0 {
		return out
	}
	return out
}
