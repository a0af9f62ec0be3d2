// Package source implements the character-level input the scanner consumes:
// a byte reader with a single-character pushback slot and a running line
// counter, per spec.md §3 "Lexer scratch" and §4.1.
package source

import (
	"bufio"
	"io"

	"subcc.dev/subcc/pkg/diag"
)

// Source is the character source described in spec.md §4.1: nextChar/
// putbackChar/skipWhitespace, plus the line counter every diagnostic is
// tagged with. It owns no file handle — the driver opens/closes the file
// and hands Source a reader, matching the teacher's "parser wraps an
// io.Reader" pattern (pkg/asm/parsing.go, pkg/vm/parsing.go) rather than
// owning *os.File itself.
type Source struct {
	r       *bufio.Reader
	line    int
	putback byte
	hasPB   bool
}

// New wraps r for character-at-a-time scanning, starting at line 1.
func New(r io.Reader) *Source {
	return &Source{r: bufio.NewReader(r), line: 1}
}

// Line returns the current line number, 1-based, for diagnostic tagging.
func (s *Source) Line() int { return s.line }

// PutbackChar stashes c to be returned by the next NextChar call. Only one
// character of pushback is supported, matching spec.md's "one pending
// putback character" scratch-state invariant.
func (s *Source) PutbackChar(c byte) {
	s.putback = c
	s.hasPB = true
}

// NextChar returns the next input byte, or (0, io.EOF) at end of input.
// A line-feed increments the line counter as it is consumed.
func (s *Source) NextChar() (byte, error) {
	if s.hasPB {
		s.hasPB = false
		return s.putback, nil
	}

	c, err := s.r.ReadByte()
	if err != nil {
		return 0, err
	}
	if c == '\n' {
		s.line++
	}
	return c, nil
}

// SkipWhitespace consumes space, tab, carriage-return, form-feed and
// newline characters and returns the first non-whitespace byte, or
// (0, io.EOF) at end of input.
func (s *Source) SkipWhitespace() (byte, error) {
	for {
		c, err := s.NextChar()
		if err != nil {
			return 0, err
		}
		switch c {
		case ' ', '\t', '\r', '\f', '\n':
			continue
		default:
			return c, nil
		}
	}
}

// Fatal builds a diag.Error tagged with the source's current line, the
// "bare" message variant of spec.md §4.1.
func (s *Source) Fatal(kind diag.Kind, msg string) *diag.Error {
	return diag.New(kind, s.line, msg)
}

// Fatalf builds a diag.Error tagged with the source's current line, the
// string+string variant of spec.md §4.1.
func (s *Source) Fatalf(kind diag.Kind, format string, args ...any) *diag.Error {
	return diag.Newf(kind, s.line, format, args...)
}
