// Package token defines the closed set of lexical tokens produced by the
// scanner (see pkg/lexer) and consumed by the parsers (see pkg/parser).
package token

// Kind enumerates every token the scanner can produce. It is a closed set:
// any value not in this list is an internal error, never a user-facing one.
type Kind int

const (
	EOF Kind = iota

	// Operators, roughly in the precedence table's order (low to high), plus
	// the unary-only and postfix-only members at the end.
	ASSIGN
	LOGOR
	LOGAND
	OR
	XOR
	AMPER
	EQ
	NE
	LT
	GT
	LE
	GE
	LSHIFT
	RSHIFT
	PLUS
	MINUS
	STAR
	SLASH
	NOT    // '!'
	INVERT // '~'
	INC    // '++'
	DEC    // '--'

	// Punctuation
	SEMI
	LBRACE
	RBRACE
	LPAREN
	RPAREN
	LBRACKET
	RBRACKET
	COMMA

	// Literals and identifiers
	INTLIT
	STRLIT
	IDENT

	// Keywords
	IF
	ELSE
	WHILE
	FOR
	RETURN
	VOID
	CHAR
	INT
	LONG
)

// keywords maps every reserved word to its Kind. The scanner (see
// lexer.scanIdent) looks a fully read identifier up in this map.
var keywords = map[string]Kind{
	"if":     IF,
	"else":   ELSE,
	"while":  WHILE,
	"for":    FOR,
	"return": RETURN,
	"void":   VOID,
	"char":   CHAR,
	"int":    INT,
	"long":   LONG,
}

// Lookup returns the Kind for a reserved word and true, or (0, false) if
// word is an ordinary identifier.
func Lookup(word string) (Kind, bool) {
	k, ok := keywords[word]
	return k, ok
}

// IsTypeKeyword reports whether k introduces a declaration's base type.
func IsTypeKeyword(k Kind) bool {
	return k == VOID || k == CHAR || k == INT || k == LONG
}

// Token is the unit produced by the scanner. IntValue carries the numeric
// payload for INTLIT (the literal value) and is otherwise unused; string
// and identifier text lives in the lexer's shared scratch buffer, not here,
// matching spec.md's "Lexer scratch" data model (the buffer's contents are
// only valid until the next identifier/string scan).
type Token struct {
	Kind     Kind
	IntValue int64
}

var names = map[Kind]string{
	EOF: "EOF", ASSIGN: "=", LOGOR: "||", LOGAND: "&&", OR: "|", XOR: "^",
	AMPER: "&", EQ: "==", NE: "!=", LT: "<", GT: ">", LE: "<=", GE: ">=",
	LSHIFT: "<<", RSHIFT: ">>", PLUS: "+", MINUS: "-", STAR: "*", SLASH: "/",
	NOT: "!", INVERT: "~", INC: "++", DEC: "--",
	SEMI: ";", LBRACE: "{", RBRACE: "}", LPAREN: "(", RPAREN: ")",
	LBRACKET: "[", RBRACKET: "]", COMMA: ",",
	INTLIT: "INTEGERLIT", STRLIT: "STRINGLIT", IDENT: "IDENT",
	IF: "if", ELSE: "else", WHILE: "while", FOR: "for", RETURN: "return",
	VOID: "void", CHAR: "char", INT: "int", LONG: "long",
}

// String renders a Kind for diagnostics (e.g. "expected ;, found +").
func (k Kind) String() string {
	if name, ok := names[k]; ok {
		return name
	}
	return "<unknown token>"
}
