package httpx

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// maxChunkSizeLine bounds how many bytes a chunk-size line may span before
// the decoder gives up on ever finding its terminator.
const maxChunkSizeLine = 256

// ChunkSizeError reports a chunk-size line that is not valid hexadecimal.
type ChunkSizeError struct {
	// Line is the offending size line as it appeared on the wire.
	Line string
}

func (e *ChunkSizeError) Error() string {
	return fmt.Sprintf("httpx: invalid chunk size line %q", e.Line)
}

// ChunkFramingError reports chunk data that is not followed by the required
// CRLF, meaning the sender's framing is corrupt.
type ChunkFramingError struct {
	// Got holds the bytes found where CRLF was expected.
	Got string
}

func (e *ChunkFramingError) Error() string {
	return fmt.Sprintf("httpx: chunk data not terminated by CRLF, got %q", e.Got)
}

// DecodeChunks incrementally decodes chunked transfer-coding from buf. It
// extracts every chunk payload that is completely present and returns them
// in order together with the undecoded remainder, to be retained by the
// caller and re-submitted once more bytes arrive. done is true once the
// terminating zero-length chunk (and its trailer section) has been consumed.
//
// The decoder holds no state between calls; all sequencing lives in the
// (payloads, rest) contract.
func DecodeChunks(buf []byte) (payloads [][]byte, rest []byte, done bool, err error) {
	rest = buf

	for {
		line, after, ok := chunkLine(rest)
		if !ok {
			if len(rest) > maxChunkSizeLine {
				return nil, nil, false, &ChunkSizeError{Line: preview(rest)}
			}
			return payloads, rest, false, nil
		}

		// Chunk extensions after ';' are ignored.
		sizeStr := line
		if i := strings.IndexByte(sizeStr, ';'); i >= 0 {
			sizeStr = sizeStr[:i]
		}
		sizeStr = strings.TrimSpace(sizeStr)

		size, perr := strconv.ParseUint(sizeStr, 16, 32)
		if perr != nil {
			return nil, nil, false, &ChunkSizeError{Line: line}
		}

		if size == 0 {
			remainder, ok := consumeTrailers(after)
			if !ok {
				// Trailer section still in flight; leave rest at the
				// zero chunk so the next call resumes here.
				return payloads, rest, false, nil
			}
			return payloads, remainder, true, nil
		}

		need := int(size) + 2 // payload plus trailing CRLF
		if len(after) < need {
			return payloads, rest, false, nil
		}

		if after[size] != '\r' || after[size+1] != '\n' {
			return nil, nil, false, &ChunkFramingError{Got: string(after[size : size+2])}
		}

		payload := make([]byte, size)
		copy(payload, after[:size])
		payloads = append(payloads, payload)

		rest = after[need:]
	}
}

// ChunkDecoder adapts DecodeChunks to the client's Dechunker interface.
type ChunkDecoder struct{}

// Decode implements the dechunking stage of the byte-to-event pipeline.
func (ChunkDecoder) Decode(buf []byte) ([][]byte, []byte, bool, error) {
	return DecodeChunks(buf)
}

// chunkLine pops one CRLF-terminated line from buf. A bare LF is tolerated.
func chunkLine(buf []byte) (line string, after []byte, ok bool) {
	i := bytes.IndexByte(buf, '\n')
	if i < 0 {
		return "", nil, false
	}

	line = string(buf[:i])
	line = strings.TrimSuffix(line, "\r")
	return line, buf[i+1:], true
}

// consumeTrailers consumes the trailer section after the zero-length chunk:
// zero or more trailer lines followed by an empty line.
func consumeTrailers(buf []byte) ([]byte, bool) {
	cur := buf
	for {
		line, after, ok := chunkLine(cur)
		if !ok {
			return nil, false
		}
		cur = after
		if line == "" {
			return cur, true
		}
	}
}

func preview(buf []byte) string {
	if len(buf) > 32 {
		buf = buf[:32]
	}
	return string(buf)
}
