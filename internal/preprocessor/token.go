package preprocessor

import (
	"strings"

	"modernc.org/token"
)

// Kind classifies a Token.
type Kind int

const (
	KindPlain Kind = iota
	KindIdent
	KindComment
	KindFloat
	KindInt
	KindKeyword
	KindString
	KindDirective
)

var kindNames = [...]string{
	KindPlain:     "plain",
	KindIdent:     "identifier",
	KindComment:   "comment",
	KindFloat:     "float",
	KindInt:       "int",
	KindKeyword:   "keyword",
	KindString:    "string",
	KindDirective: "directive",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Token is one lexeme produced by a scanner. Tokens are values; nothing
// mutates them after the scanner hands them out.
type Token struct {
	Kind Kind
	Text string
	Pos  token.Position

	// Lines counts the newlines embedded in Text.
	Lines int

	// Call is set on identifiers whose next non-blank character is '('.
	Call bool

	// Value holds the parsed literal of #if expression tokens.
	Value Value

	// Dir is the parsed record of a KindDirective token.
	Dir *Directive

	// Arg is the parameter named after a '#' or '#@' operator.
	Arg string

	// Paste lists the fragments glued onto an identifier with '##'.
	Paste []string
}

func (t Token) IsKeyword(kw string) bool {
	return t.Kind == KindKeyword && t.Text == kw
}

// IsSpace reports whether t is a whitespace-only plain token.
func (t Token) IsSpace() bool {
	return t.Kind == KindPlain && strings.TrimSpace(t.Text) == ""
}

func (t Token) Line() int { return t.Pos.Line }
