package lexer_test

import (
	"strings"
	"testing"

	"subcc.dev/subcc/pkg/lexer"
	"subcc.dev/subcc/pkg/token"
)

func scanAll(t *testing.T, src string) []token.Token {
	t.Helper()
	l := lexer.New(strings.NewReader(src))
	var toks []token.Token
	for {
		tok, ok, err := l.Scan()
		if err != nil {
			t.Fatalf("unexpected scan error: %v", err)
		}
		toks = append(toks, tok)
		if !ok {
			break
		}
	}
	return toks
}

func TestOperatorAlphabet(t *testing.T) {
	src := "= || && | ^ & == != < > <= >= << >> + - * / ! ~ ++ --"
	want := []token.Kind{
		token.ASSIGN, token.LOGOR, token.LOGAND, token.OR, token.XOR, token.AMPER,
		token.EQ, token.NE, token.LT, token.GT, token.LE, token.GE,
		token.LSHIFT, token.RSHIFT, token.PLUS, token.MINUS, token.STAR, token.SLASH,
		token.NOT, token.INVERT, token.INC, token.DEC, token.EOF,
	}
	toks := scanAll(t, src)
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(toks), len(want), toks)
	}
	for i, tok := range toks {
		if tok.Kind != want[i] {
			t.Errorf("token %d: got %v, want %v", i, tok.Kind, want[i])
		}
	}
	if toks[len(toks)-1].Kind != token.EOF {
		t.Errorf("stream must end with exactly one EOF")
	}
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	toks := scanAll(t, "if else while for return void char int long foobar foo_123")
	wantKinds := []token.Kind{
		token.IF, token.ELSE, token.WHILE, token.FOR, token.RETURN,
		token.VOID, token.CHAR, token.INT, token.LONG, token.IDENT, token.IDENT, token.EOF,
	}
	for i, k := range wantKinds {
		if toks[i].Kind != k {
			t.Errorf("token %d: got %v, want %v", i, toks[i].Kind, k)
		}
	}
}

func TestIntegerLiteral(t *testing.T) {
	toks := scanAll(t, "12345 0 007")
	want := []int64{12345, 0, 7}
	for i, w := range want {
		if toks[i].Kind != token.INTLIT || toks[i].IntValue != w {
			t.Errorf("literal %d: got %+v, want value %d", i, toks[i], w)
		}
	}
}

func TestCharLiteralAndEscapes(t *testing.T) {
	l := lexer.New(strings.NewReader(`'A' '\n' '\''`))
	want := []int64{'A', '\n', '\''}
	for _, w := range want {
		tok, ok, err := l.Scan()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok || tok.Kind != token.INTLIT || tok.IntValue != w {
			t.Errorf("got %+v, want INTLIT %d", tok, w)
		}
	}
}

func TestStringLiteral(t *testing.T) {
	l := lexer.New(strings.NewReader(`"hi\n"`))
	tok, ok, err := l.Scan()
	if err != nil || !ok || tok.Kind != token.STRLIT {
		t.Fatalf("got %+v, %v, %v", tok, ok, err)
	}
	if l.Text != "hi\n" {
		t.Errorf("got text %q, want %q", l.Text, "hi\n")
	}
}

func TestRejectThenScanReturnsPushedBack(t *testing.T) {
	l := lexer.New(strings.NewReader("+ -"))
	first, _, _ := l.Scan()
	if err := l.Reject(first); err != nil {
		t.Fatalf("unexpected reject error: %v", err)
	}
	again, _, _ := l.Scan()
	if again.Kind != first.Kind {
		t.Errorf("expected rejected token back, got %v", again.Kind)
	}
	next, _, _ := l.Scan()
	if next.Kind != token.MINUS {
		t.Errorf("expected to resume scanning after replay, got %v", next.Kind)
	}
}

func TestDoubleRejectIsFatal(t *testing.T) {
	l := lexer.New(strings.NewReader("+ -"))
	tok, _, _ := l.Scan()
	if err := l.Reject(tok); err != nil {
		t.Fatalf("first reject should succeed: %v", err)
	}
	if err := l.Reject(tok); err == nil {
		t.Fatalf("second reject without intervening scan must be a fatal internal error")
	}
}

func TestUnrecognizedCharacterIsFatal(t *testing.T) {
	l := lexer.New(strings.NewReader("@"))
	_, _, err := l.Scan()
	if err == nil {
		t.Fatalf("expected a lexical error for '@'")
	}
}
