package vql

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// lexer turns a VQL script into tokens.
type lexer struct {
	src  string
	pos  int
	line int
	col  int
}

// Lex returns all tokens of src, ending with a TokEOF token.
// Comments and whitespace are discarded.
func Lex(src string) ([]Token, error) {
	l := &lexer{src: src, line: 1, col: 1}
	var out []Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
		if tok.Kind == TokEOF {
			return out, nil
		}
	}
}

func (l *lexer) peek() rune {
	if l.pos >= len(l.src) {
		return -1
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	return r
}

func (l *lexer) peekAt(offset int) rune {
	i := l.pos
	for ; offset > 0 && i < len(l.src); offset-- {
		_, size := utf8.DecodeRuneInString(l.src[i:])
		i += size
	}
	if i >= len(l.src) {
		return -1
	}
	r, _ := utf8.DecodeRuneInString(l.src[i:])
	return r
}

func (l *lexer) advance() rune {
	r, size := utf8.DecodeRuneInString(l.src[l.pos:])
	l.pos += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *lexer) errorf(tok Token, format string, args ...any) error {
	return newParseError(tok.Pos, tok.Line, tok.Col, format, args...)
}

func (l *lexer) skipSpaceAndComments() {
	for l.pos < len(l.src) {
		r := l.peek()
		switch {
		case r == '#':
			for l.pos < len(l.src) && l.peek() != '\n' {
				l.advance()
			}
		case unicode.IsSpace(r):
			l.advance()
		default:
			return
		}
	}
}

var singleRuneTokens = map[rune]TokenKind{
	',': TokComma,
	'.': TokDot,
	';': TokSemicolon,
	'(': TokLParen,
	')': TokRParen,
	'[': TokLBracket,
	']': TokRBracket,
	'+': TokPlus,
	'-': TokMinus,
	'&': TokAmp,
	'*': TokStar,
	'=': TokCompare,
	'~': TokCompare,
}

func (l *lexer) next() (Token, error) {
	l.skipSpaceAndComments()

	tok := Token{Pos: l.pos, Line: l.line, Col: l.col}
	if l.pos >= len(l.src) {
		tok.Kind = TokEOF
		return tok, nil
	}

	r := l.peek()
	switch {
	case r == '\'' || r == '"':
		return l.lexString(tok)
	case isDigit(r) || (r == '.' && isDigit(l.peekAt(1))):
		return l.lexNumber(tok), nil
	case isIdentStart(r):
		start := l.pos
		for l.pos < len(l.src) && isIdentPart(l.peek()) {
			l.advance()
		}
		tok.Kind = TokIdent
		tok.Text = l.src[start:l.pos]
		return tok, nil
	case r == '!' || r == '<' || r == '>':
		l.advance()
		if l.peek() == '=' {
			l.advance()
			tok.Text = string(r) + "="
		} else if r == '<' && l.peek() == '>' {
			l.advance()
			tok.Text = "!="
		} else if r == '!' {
			return tok, l.errorf(tok, "unexpected character '!'")
		} else {
			tok.Text = string(r)
		}
		tok.Kind = TokCompare
		return tok, nil
	}

	if kind, ok := singleRuneTokens[r]; ok {
		l.advance()
		tok.Kind = kind
		tok.Text = string(r)
		return tok, nil
	}
	return tok, l.errorf(tok, "unexpected character %q", r)
}

// lexString reads a quoted string. Backslash escapes the next character;
// \n and \t are the only named escapes.
func (l *lexer) lexString(tok Token) (Token, error) {
	quote := l.advance()
	var b strings.Builder
	for {
		if l.pos >= len(l.src) {
			return tok, l.errorf(tok, "unterminated string")
		}
		r := l.advance()
		switch r {
		case quote:
			tok.Kind = TokString
			tok.Text = b.String()
			return tok, nil
		case '\\':
			if l.pos >= len(l.src) {
				return tok, l.errorf(tok, "unterminated string")
			}
			esc := l.advance()
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteRune(esc)
			}
		default:
			b.WriteRune(r)
		}
	}
}

// lexNumber reads an unsigned integer or float literal with an optional
// exponent. A sign is a separate TokMinus token.
func (l *lexer) lexNumber(tok Token) Token {
	start := l.pos
	for isDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		l.advance()
		for isDigit(l.peek()) {
			l.advance()
		}
	}
	if e := l.peek(); e == 'e' || e == 'E' {
		sign := l.peekAt(1)
		if isDigit(sign) || ((sign == '+' || sign == '-') && isDigit(l.peekAt(2))) {
			l.advance()
			if sign == '+' || sign == '-' {
				l.advance()
			}
			for isDigit(l.peek()) {
				l.advance()
			}
		}
	}
	tok.Kind = TokNumber
	tok.Text = l.src[start:l.pos]
	return tok
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
