// Package outstream implements the append-only content buffer that the VM
// writes narrative text into and the embedder reads lines out of.
package outstream

import (
	"bytes"
	"fmt"
)

// Stream is an append-only byte buffer with a read cursor. Writers append;
// readers pull complete lines off the front. Lines returned by ReadLine are
// borrows into the stream's internal buffer and are only valid until the
// next Write.
type Stream struct {
	buf    bytes.Buffer
	cursor int // read position into buf.Bytes()
}

// New returns an empty Stream.
func New() *Stream {
	return &Stream{}
}

// Write appends bytes to the stream.
func (s *Stream) Write(p []byte) (n int, err error) {
	return s.buf.Write(p)
}

// WriteString appends a string to the stream.
func (s *Stream) WriteString(str string) (n int, err error) {
	return s.buf.WriteString(str)
}

// Writef appends a formatted string to the stream.
func (s *Stream) Writef(format string, args ...interface{}) {
	fmt.Fprintf(&s.buf, format, args...)
}

// Trim removes a single trailing '\n' (and a preceding '\r', if present)
// from the buffer, if the buffer is not empty.
func (s *Stream) Trim() {
	b := s.buf.Bytes()
	n := len(b)
	if n == 0 {
		return
	}
	if b[n-1] == '\n' {
		n--
		if n > 0 && b[n-1] == '\r' {
			n--
		}
		s.buf.Truncate(n)
	}
}

// IsEmpty reports whether the unread portion of the stream is empty.
func (s *Stream) IsEmpty() bool {
	return s.cursor >= s.buf.Len()
}

// ReadLine returns the next run of unread bytes up to and including the
// next '\n', or the remaining bytes if no '\n' remains. It reports false if
// there is nothing left to read. The returned slice is a borrow into the
// stream's buffer and is invalidated by the next Write.
func (s *Stream) ReadLine() (line []byte, ok bool) {
	all := s.buf.Bytes()
	if s.cursor >= len(all) {
		return nil, false
	}
	rest := all[s.cursor:]
	idx := bytes.IndexByte(rest, '\n')
	if idx < 0 {
		s.cursor = len(all)
		return rest, true
	}
	s.cursor += idx + 1
	return rest[:idx+1], true
}

// Reset discards all buffered content and resets the read cursor.
func (s *Stream) Reset() {
	s.buf.Reset()
	s.cursor = 0
}

// Bytes returns the full underlying buffer, including already-read bytes.
// Used by Dump and tests.
func (s *Stream) Bytes() []byte {
	return s.buf.Bytes()
}
