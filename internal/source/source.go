// Package source implements the immutable source buffer shared by the
// lexer, parser, and diagnostics renderer.
package source

import "bytes"

// Buffer is an immutable, logically null-terminated view of a story's
// source text. It is created once per Load and never mutated afterward.
type Buffer struct {
	Filename string
	bytes    []byte // does NOT include the trailing NUL
	lineOfs  []int  // byte offset of the start of each line, cached lazily
}

// New returns a Buffer over src. The caller must not mutate src afterward;
// Buffer treats it as immutable for the lifetime of the compile.
func New(filename string, src []byte) *Buffer {
	return &Buffer{Filename: filename, bytes: src}
}

// Len returns the number of bytes in the source, excluding the logical
// trailing NUL.
func (b *Buffer) Len() int {
	return len(b.bytes)
}

// Bytes returns the full source, excluding the logical trailing NUL.
func (b *Buffer) Bytes() []byte {
	return b.bytes
}

// At returns the byte at offset i, or 0 (the logical NUL terminator) if i
// is exactly Len(). Any other out-of-range offset panics, since spec
// invariant (a) guarantees callers never ask for more.
func (b *Buffer) At(i int) byte {
	if i == len(b.bytes) {
		return 0
	}
	return b.bytes[i]
}

// Slice returns the lexeme source[start:end].
func (b *Buffer) Slice(start, end int) []byte {
	return b.bytes[start:end]
}

// String returns the lexeme source[start:end] as a string.
func (b *Buffer) String(start, end int) string {
	return string(b.bytes[start:end])
}

// ensureLineIndex lazily computes the byte offsets of every line start.
func (b *Buffer) ensureLineIndex() {
	if b.lineOfs != nil {
		return
	}
	lineOfs := []int{0}
	for i, c := range b.bytes {
		if c == '\n' {
			lineOfs = append(lineOfs, i+1)
		}
	}
	b.lineOfs = lineOfs
}

// LineCol converts a byte offset into a 1-based (line, column) pair.
func (b *Buffer) LineCol(offset int) (line, col int) {
	b.ensureLineIndex()
	// binary search for the last line start <= offset
	lo, hi := 0, len(b.lineOfs)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if b.lineOfs[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	lineStart := b.lineOfs[lo]
	return lo + 1, offset - lineStart + 1
}

// Line returns the text of the given 1-based line number, without its
// trailing newline.
func (b *Buffer) Line(line int) string {
	b.ensureLineIndex()
	if line < 1 || line > len(b.lineOfs) {
		return ""
	}
	start := b.lineOfs[line-1]
	var end int
	if line < len(b.lineOfs) {
		end = b.lineOfs[line] - 1
	} else {
		end = len(b.bytes)
	}
	if end < start {
		end = start
	}
	text := b.bytes[start:end]
	text = bytes.TrimSuffix(text, []byte("\r"))
	return string(text)
}
