package vql

import "fmt"

// TokenKind classifies a lexical token.
type TokenKind int

const (
	TokEOF TokenKind = iota
	TokIdent
	TokString
	TokNumber
	TokComma
	TokDot
	TokSemicolon
	TokLParen
	TokRParen
	TokLBracket
	TokRBracket
	TokCompare // = != < <= > >= ~
	TokPlus
	TokMinus
	TokAmp
	TokStar
)

func (k TokenKind) String() string {
	names := [...]string{
		"end of input",
		"identifier",
		"string",
		"number",
		"','",
		"'.'",
		"';'",
		"'('",
		"')'",
		"'['",
		"']'",
		"comparison",
		"'+'",
		"'-'",
		"'&'",
		"'*'",
	}
	if int(k) < 0 || int(k) >= len(names) {
		return fmt.Sprintf("TokenKind(%d)", int(k))
	}
	return names[k]
}

// Token is one lexical unit of a VQL script.
// For strings, Text holds the unescaped contents without quotes.
type Token struct {
	Kind TokenKind
	Text string
	Pos  int // byte offset
	Line int // 1-based
	Col  int // 1-based, in runes
}

func (t Token) String() string {
	switch t.Kind {
	case TokEOF:
		return t.Kind.String()
	case TokString:
		return fmt.Sprintf("string %q", t.Text)
	default:
		return fmt.Sprintf("%q", t.Text)
	}
}
