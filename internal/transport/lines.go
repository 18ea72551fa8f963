package transport

import (
	"bytes"
	"strings"
)

// maxPendingBytes bounds how much unterminated input is kept.
const maxPendingBytes = 4096

// LineBuffer accumulates raw bytes and yields complete newline-terminated lines.
type LineBuffer struct {
	buf []byte
}

// Feed appends chunk and returns every complete line, whitespace-trimmed.
// Blank lines are skipped.
func (b *LineBuffer) Feed(chunk []byte) []string {
	b.buf = append(b.buf, chunk...)

	var lines []string
	for {
		i := bytes.IndexByte(b.buf, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimSpace(string(b.buf[:i]))
		b.buf = b.buf[i+1:]
		if line != "" {
			lines = append(lines, line)
		}
	}

	// garbage without a terminator; resynchronise on the next newline
	if len(b.buf) > maxPendingBytes {
		b.buf = b.buf[:0]
	}
	return lines
}

// Pending returns the number of buffered bytes not yet terminated by a newline.
func (b *LineBuffer) Pending() int { return len(b.buf) }
