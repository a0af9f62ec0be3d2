// Package lexer implements the hand-written scanner of spec.md §4.2: a
// single scan()/reject() contract with one-token pushback, composite
// operator resolution by single-character lookahead, and integer/char/
// string literal recognition into a shared scratch buffer.
//
// The teacher repo (its-hmny.dev/nand2tetris) scans every one of its three
// languages with github.com/prataprc/goparsec parser combinators instead of
// a hand-rolled scanner. spec.md §3/§4.2 make the scan/reject contract (one
// pending token, a second reject is a fatal programmer error) an explicit,
// testable invariant of this component, which a combinator parser does not
// model the same way, so this package is written by hand instead — see
// DESIGN.md for the full justification.
package lexer

import (
	"io"

	"subcc.dev/subcc/pkg/diag"
	"subcc.dev/subcc/pkg/source"
	"subcc.dev/subcc/pkg/token"
)

// TextLen bounds the shared identifier/string scratch buffer. Overflow of
// either is a fatal lexical error (spec.md §4.2).
const TextLen = 512

// Lexer holds the scanner's mutable state: the character source, the one
// pending token rejection, and the shared text buffer identifiers and
// string literals are read into. Matches spec.md §3 "Lexer scratch".
type Lexer struct {
	src *source.Source

	hasPutback bool
	putback    token.Token

	// Text holds the identifier or (unescaped) string literal from the most
	// recent scan that produced one; its contents are overwritten on the
	// next such scan, exactly as spec.md documents.
	Text string
}

// New creates a Lexer reading from r.
func New(r io.Reader) *Lexer {
	return &Lexer{src: source.New(r)}
}

// Line reports the current source line, for diagnostics raised by callers
// (the parser) against a token this Lexer just produced.
func (l *Lexer) Line() int { return l.src.Line() }

// Reject stashes tok to be returned by the next Scan call. Rejecting twice
// without an intervening Scan is a programmer error (spec.md §4.2) and is
// reported as an internal diagnostic rather than panicking, so that a
// structured *diag.Error still reaches the driver.
func (l *Lexer) Reject(tok token.Token) *diag.Error {
	if l.hasPutback {
		return l.src.Fatal(diag.Internal, "internal error: rejecting a token while one is already pending")
	}
	l.putback = tok
	l.hasPutback = true
	return nil
}

// Scan returns the next token. It first drains a pending rejection if one
// is present, otherwise it skips whitespace and classifies the first
// character per spec.md §4.2's recognition algorithm. ok is false only at
// end of input, at which point tok.Kind is token.EOF.
func (l *Lexer) Scan() (tok token.Token, ok bool, err *diag.Error) {
	if l.hasPutback {
		l.hasPutback = false
		return l.putback, l.putback.Kind != token.EOF, nil
	}

	c, rerr := l.src.SkipWhitespace()
	if rerr == io.EOF {
		return token.Token{Kind: token.EOF}, false, nil
	}

	switch {
	case c == '+':
		return l.composite('+', token.INC, token.PLUS)
	case c == '-':
		return l.composite('-', token.DEC, token.MINUS)
	case c == '=':
		return l.composite('=', token.EQ, token.ASSIGN)
	case c == '!':
		return l.composite('=', token.NE, token.NOT)
	case c == '<':
		return l.scanLt()
	case c == '>':
		return l.scanGt()
	case c == '&':
		return l.composite('&', token.LOGAND, token.AMPER)
	case c == '|':
		return l.composite('|', token.LOGOR, token.OR)
	case c == '^':
		return token.Token{Kind: token.XOR}, true, nil
	case c == '~':
		return token.Token{Kind: token.INVERT}, true, nil
	case c == '*':
		return token.Token{Kind: token.STAR}, true, nil
	case c == '/':
		return token.Token{Kind: token.SLASH}, true, nil
	case c == ';':
		return token.Token{Kind: token.SEMI}, true, nil
	case c == '{':
		return token.Token{Kind: token.LBRACE}, true, nil
	case c == '}':
		return token.Token{Kind: token.RBRACE}, true, nil
	case c == '(':
		return token.Token{Kind: token.LPAREN}, true, nil
	case c == ')':
		return token.Token{Kind: token.RPAREN}, true, nil
	case c == '[':
		return token.Token{Kind: token.LBRACKET}, true, nil
	case c == ']':
		return token.Token{Kind: token.RBRACKET}, true, nil
	case c == ',':
		return token.Token{Kind: token.COMMA}, true, nil
	case c == '\'':
		return l.scanCharLit()
	case c == '"':
		return l.scanStringLit()
	case isDigit(c):
		return l.scanIntLit(c)
	case isIdentStart(c):
		return l.scanIdent(c)
	default:
		return token.Token{}, false, l.src.Fatalf(diag.Lexical, "unrecognized character '%c'", c)
	}
}

// composite resolves a two-way choice: if the next char is second, the
// token is two, else it is pushed back and the token is one.
func (l *Lexer) composite(second byte, two, one token.Kind) (token.Token, bool, *diag.Error) {
	c, err := l.src.NextChar()
	if err == nil && c == second {
		return token.Token{Kind: two}, true, nil
	}
	if err == nil {
		l.src.PutbackChar(c)
	}
	return token.Token{Kind: one}, true, nil
}

// scanLt resolves '<' vs '<=' vs '<<'.
func (l *Lexer) scanLt() (token.Token, bool, *diag.Error) {
	c, err := l.src.NextChar()
	if err == nil {
		switch c {
		case '=':
			return token.Token{Kind: token.LE}, true, nil
		case '<':
			return token.Token{Kind: token.LSHIFT}, true, nil
		default:
			l.src.PutbackChar(c)
		}
	}
	return token.Token{Kind: token.LT}, true, nil
}

// scanGt resolves '>' vs '>=' vs '>>'.
func (l *Lexer) scanGt() (token.Token, bool, *diag.Error) {
	c, err := l.src.NextChar()
	if err == nil {
		switch c {
		case '=':
			return token.Token{Kind: token.GE}, true, nil
		case '>':
			return token.Token{Kind: token.RSHIFT}, true, nil
		default:
			l.src.PutbackChar(c)
		}
	}
	return token.Token{Kind: token.GT}, true, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isIdentCont(c byte) bool { return isIdentStart(c) || isDigit(c) }

// scanIntLit accumulates a base-10 integer literal starting with first,
// pushing back the first non-digit.
func (l *Lexer) scanIntLit(first byte) (token.Token, bool, *diag.Error) {
	val := int64(first - '0')
	for {
		c, err := l.src.NextChar()
		if err != nil {
			break
		}
		if !isDigit(c) {
			l.src.PutbackChar(c)
			break
		}
		val = val*10 + int64(c-'0')
	}
	return token.Token{Kind: token.INTLIT, IntValue: val}, true, nil
}

// scanIdent reads [A-Za-z_][A-Za-z0-9_]* into the shared text buffer,
// then resolves it against the keyword table; overflow is fatal.
func (l *Lexer) scanIdent(first byte) (token.Token, bool, *diag.Error) {
	buf := []byte{first}
	for {
		c, err := l.src.NextChar()
		if err != nil {
			break
		}
		if !isIdentCont(c) {
			l.src.PutbackChar(c)
			break
		}
		if len(buf) >= TextLen {
			return token.Token{}, false, l.src.Fatal(diag.Lexical, "identifier too long")
		}
		buf = append(buf, c)
	}
	l.Text = string(buf)

	if kind, ok := token.Lookup(l.Text); ok {
		return token.Token{Kind: kind}, true, nil
	}
	return token.Token{Kind: token.IDENT}, true, nil
}

// escapeTable maps the escape letter following a backslash to its byte
// value, per spec.md §4.2's documented escape set.
var escapeTable = map[byte]byte{
	'\\': '\\', '"': '"', '\'': '\'',
	'a': '\a', 'b': '\b', 'f': '\f', 'n': '\n', 'r': '\r', 't': '\t', 'v': '\v',
}

// scanEscapedChar reads one (possibly backslash-escaped) byte from input.
func (l *Lexer) scanEscapedChar() (byte, *diag.Error) {
	c, err := l.src.NextChar()
	if err != nil {
		return 0, l.src.Fatal(diag.Lexical, "unexpected end of input in literal")
	}
	if c != '\\' {
		return c, nil
	}
	e, err := l.src.NextChar()
	if err != nil {
		return 0, l.src.Fatal(diag.Lexical, "unexpected end of input in escape sequence")
	}
	v, ok := escapeTable[e]
	if !ok {
		return 0, l.src.Fatalf(diag.Lexical, "unknown escape sequence '\\%c'", e)
	}
	return v, nil
}

// scanCharLit scans 'c' (one possibly escaped byte) and requires the
// closing quote; its IntValue is the byte's value.
func (l *Lexer) scanCharLit() (token.Token, bool, *diag.Error) {
	v, err := l.scanEscapedChar()
	if err != nil {
		return token.Token{}, false, err
	}
	c, rerr := l.src.NextChar()
	if rerr != nil || c != '\'' {
		return token.Token{}, false, l.src.Fatal(diag.Lexical, "expected closing quote in character literal")
	}
	return token.Token{Kind: token.INTLIT, IntValue: int64(v)}, true, nil
}

// scanStringLit reads escaped bytes into the shared text buffer up to the
// closing "; overflow is fatal.
func (l *Lexer) scanStringLit() (token.Token, bool, *diag.Error) {
	buf := make([]byte, 0, 32)
	for {
		c, cerr := l.src.NextChar()
		if cerr != nil {
			return token.Token{}, false, l.src.Fatal(diag.Lexical, "unterminated string literal")
		}
		if c == '"' {
			break
		}
		l.src.PutbackChar(c)
		v, err := l.scanEscapedChar()
		if err != nil {
			return token.Token{}, false, err
		}
		if len(buf) >= TextLen-1 {
			return token.Token{}, false, l.src.Fatal(diag.Lexical, "string literal too long")
		}
		buf = append(buf, v)
	}
	l.Text = string(buf)
	return token.Token{Kind: token.STRLIT}, true, nil
}
