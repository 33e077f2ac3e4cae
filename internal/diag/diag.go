// Package diag implements diagnostics: the records the parser and semantic
// checker attach to a compile, and the path:line:col renderer from
// spec.md section 6.
package diag

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/width"

	"github.com/ink-lang/ink/internal/source"
)

// Kind classifies a Diagnostic.
type Kind int

const (
	UnknownIdentifier Kind = iota
	Redefinition
	EmptyConditional
	ExpectedElse
	MultipleElse
	FinalElseMisplaced
	TooFewArguments
	TooManyArguments
	SyntaxError
	RecursionTooDeep
)

var messages = map[Kind]string{
	UnknownIdentifier:  "unknown identifier",
	Redefinition:       "redefinition",
	EmptyConditional:   "empty conditional branch",
	ExpectedElse:       "expected 'else'",
	MultipleElse:       "multiple 'else' branches",
	FinalElseMisplaced: "final 'else' must be the last branch",
	TooFewArguments:    "too few arguments",
	TooManyArguments:   "too many arguments",
	SyntaxError:        "syntax error",
	RecursionTooDeep:   "recursion too deep",
}

// Diagnostic is a single compiler-reported problem.
type Diagnostic struct {
	Kind    Kind
	Start   int
	End     int
	Detail  string // optional extra context appended to the base message
}

// Message returns the human-readable message for the diagnostic, combining
// the kind's base text with any Detail.
func (d Diagnostic) Message() string {
	base := messages[d.Kind]
	if d.Detail == "" {
		return base
	}
	return base + ": " + d.Detail
}

// ANSI color codes used when color rendering is requested.
const (
	colorRed   = "\x1b[31m"
	colorBold  = "\x1b[1m"
	colorReset = "\x1b[0m"
)

// Render writes a diagnostic in the form:
//
//	path:line:col: error: <message>
//	    line | <snippet>
//	         | ^
func Render(w io.Writer, d Diagnostic, src *source.Buffer, color bool) {
	line, col := src.LineCol(d.Start)
	snippet := src.Line(line)

	if color {
		fmt.Fprintf(w, "%s%s:%d:%d:%s %serror:%s %s\n",
			colorBold, src.Filename, line, col, colorReset,
			colorRed, colorReset, d.Message())
	} else {
		fmt.Fprintf(w, "%s:%d:%d: error: %s\n", src.Filename, line, col, d.Message())
	}

	gutter := fmt.Sprintf("%d", line)
	pad := strings.Repeat(" ", len(gutter))
	fmt.Fprintf(w, "    %s | %s\n", gutter, snippet)

	caretCol := displayWidth(snippet, col-1)
	fmt.Fprintf(w, "    %s | %s^\n", pad, strings.Repeat(" ", caretCol))
}

// displayWidth returns the number of terminal columns occupied by the first
// n bytes of s, accounting for East-Asian wide runes so the caret lines up
// under multi-width characters in the snippet.
func displayWidth(s string, n int) int {
	col := 0
	for i, r := range s {
		if i >= n {
			break
		}
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			col += 2
		default:
			col++
		}
	}
	return col
}
