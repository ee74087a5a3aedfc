package vql

import (
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/vql/internal/queryir"
)

// statementKeywords start a new statement.
var statementKeywords = []string{"SELECT", "COUNT", "CREATE", "DROP", "SHOW", "IMPORT"}

// Parse parses every statement of src in source order.
// An empty script (or one holding only comments) yields no statements.
func Parse(src string) ([]Statement, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}

	var out []Statement
	for {
		for p.at(TokSemicolon) {
			p.advance()
		}
		if p.at(TokEOF) {
			return out, nil
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		out = append(out, stmt)

		if !p.at(TokEOF) && !p.at(TokSemicolon) && !p.atStatementStart() {
			return nil, p.errorf(p.peek(), "unexpected %s after %s", p.peek(), stmt.Kind())
		}
	}
}

// ParseOne parses a script that must hold exactly one statement.
func ParseOne(src string) (Statement, error) {
	stmts, err := Parse(src)
	if err != nil {
		return nil, err
	}
	if len(stmts) != 1 {
		return nil, &ParseError{Message: "expected exactly one statement, found " + strconv.Itoa(len(stmts))}
	}
	return stmts[0], nil
}

// ParseFilter parses a bare WHERE expression such as
//
//	pos > 10 AND (gene = 'BRCA1' OR gene = 'BRCA2')
//
// A blank expression is the empty tree (nil). A single condition is
// wrapped in an AND node, as in a WHERE clause.
func ParseFilter(expr string) (queryir.Node, error) {
	p, err := newParser(expr)
	if err != nil {
		return nil, err
	}
	if p.at(TokEOF) {
		return nil, nil
	}
	n, err := p.parseWhere()
	if err != nil {
		return nil, err
	}
	if !p.at(TokEOF) {
		return nil, p.errorf(p.peek(), "unexpected %s after expression", p.peek())
	}
	return n, nil
}

// parser is a recursive-descent parser over a token slice.
type parser struct {
	toks []Token
	pos  int
}

func newParser(src string) (*parser, error) {
	toks, err := Lex(src)
	if err != nil {
		return nil, err
	}
	return &parser{toks: toks}, nil
}

func (p *parser) peek() Token {
	return p.toks[p.pos]
}

func (p *parser) peekAt(offset int) Token {
	i := min(p.pos+offset, len(p.toks)-1)
	return p.toks[i]
}

func (p *parser) advance() Token {
	tok := p.toks[p.pos]
	if tok.Kind != TokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) at(kind TokenKind) bool {
	return p.peek().Kind == kind
}

// atKeyword reports whether the next token is the identifier kw,
// compared case-insensitively.
func (p *parser) atKeyword(kw string) bool {
	tok := p.peek()
	return tok.Kind == TokIdent && strings.EqualFold(tok.Text, kw)
}

func (p *parser) atStatementStart() bool {
	tok := p.peek()
	return tok.Kind == TokIdent && slices.Contains(statementKeywords, strings.ToUpper(tok.Text))
}

func (p *parser) errorf(tok Token, format string, args ...any) error {
	return newParseError(tok.Pos, tok.Line, tok.Col, format, args...)
}

func (p *parser) expect(kind TokenKind, what string) (Token, error) {
	if !p.at(kind) {
		return Token{}, p.errorf(p.peek(), "expected %s, found %s", what, p.peek())
	}
	return p.advance(), nil
}

func (p *parser) expectKeyword(kw string) error {
	if !p.atKeyword(kw) {
		return p.errorf(p.peek(), "expected %s, found %s", kw, p.peek())
	}
	p.advance()
	return nil
}

// parseName reads a selection, set or source name: an identifier or a
// quoted string.
func (p *parser) parseName(what string) (string, error) {
	tok := p.peek()
	switch tok.Kind {
	case TokIdent, TokString:
		if tok.Text == "" {
			return "", p.errorf(tok, "empty %s", what)
		}
		p.advance()
		return tok.Text, nil
	default:
		return "", p.errorf(tok, "expected %s, found %s", what, tok)
	}
}

func (p *parser) parseStatement() (Statement, error) {
	tok := p.peek()
	if tok.Kind != TokIdent {
		return nil, p.errorf(tok, "expected a command, found %s", tok)
	}
	switch strings.ToUpper(tok.Text) {
	case "SELECT":
		return p.parseSelect()
	case "COUNT":
		return p.parseCountStatement()
	case "CREATE":
		return p.parseCreate()
	case "DROP":
		return p.parseDrop()
	case "SHOW":
		return p.parseShow()
	case "IMPORT":
		return p.parseImport()
	default:
		return nil, p.errorf(tok, "unknown command %q", tok.Text)
	}
}

func (p *parser) parseSelect() (Statement, error) {
	p.advance() // SELECT

	fields, err := p.parseFieldList()
	if err != nil {
		return nil, err
	}
	stmt := Select{Fields: fields}

	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	if stmt.Source, err = p.parseName("source"); err != nil {
		return nil, err
	}

	if p.atKeyword("WHERE") {
		p.advance()
		if stmt.Filters, err = p.parseWhere(); err != nil {
			return nil, err
		}
	}

	if p.atKeyword("GROUP") {
		p.advance()
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		if stmt.GroupBy, err = p.parseFieldList(); err != nil {
			return nil, err
		}
	}

	if p.atKeyword("HAVING") {
		p.advance()
		if stmt.Having, err = p.parseWhere(); err != nil {
			return nil, err
		}
	}

	if p.atKeyword("ORDER") {
		p.advance()
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		field, err := p.parseField()
		if err != nil {
			return nil, err
		}
		stmt.OrderBy = &field
		switch {
		case p.atKeyword("DESC"):
			p.advance()
			stmt.OrderDesc = true
		case p.atKeyword("ASC"):
			p.advance()
		}
	}

	if p.atKeyword("LIMIT") {
		p.advance()
		limit, err := p.parseNonNegative("LIMIT")
		if err != nil {
			return nil, err
		}
		stmt.Limit = &limit
		if p.atKeyword("OFFSET") {
			p.advance()
			if stmt.Offset, err = p.parseNonNegative("OFFSET"); err != nil {
				return nil, err
			}
		}
	}

	return stmt, nil
}

// parseNonNegative reads the non-negative integer of LIMIT or OFFSET.
func (p *parser) parseNonNegative(clause string) (int, error) {
	tok := p.peek()
	if tok.Kind != TokNumber {
		return 0, p.errorf(tok, "%s expects an integer, found %s", clause, tok)
	}
	n, err := strconv.Atoi(tok.Text)
	if err != nil || n < 0 {
		return 0, p.errorf(tok, "%s expects a non-negative integer, found %s", clause, tok)
	}
	p.advance()
	return n, nil
}

func (p *parser) parseCountStatement() (Statement, error) {
	p.advance() // COUNT

	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	source, err := p.parseName("source")
	if err != nil {
		return nil, err
	}
	stmt := Count{Source: source}

	if p.atKeyword("WHERE") {
		p.advance()
		if stmt.Filters, err = p.parseWhere(); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func (p *parser) parseCreate() (Statement, error) {
	p.advance() // CREATE

	target, err := p.parseName("selection name")
	if err != nil {
		return nil, err
	}

	if p.at(TokCompare) && p.peek().Text == "=" {
		p.advance()
		return p.parseSetAlgebra(target)
	}

	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	source, err := p.parseName("source")
	if err != nil {
		return nil, err
	}

	if p.atKeyword("INTERSECT") {
		p.advance()
		path, err := p.expect(TokString, "a quoted BED file path")
		if err != nil {
			return nil, err
		}
		return BedImport{Target: target, Source: source, Path: path.Text}, nil
	}

	stmt := Create{Target: target, Source: source}
	if p.atKeyword("WHERE") {
		p.advance()
		if stmt.Filters, err = p.parseWhere(); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func (p *parser) parseSetAlgebra(target string) (Statement, error) {
	first, err := p.parseName("selection name")
	if err != nil {
		return nil, err
	}

	var op SetOp
	switch p.peek().Kind {
	case TokPlus:
		op = Union
	case TokMinus:
		op = Subtract
	case TokAmp:
		op = Intersect
	default:
		return nil, p.errorf(p.peek(), "expected set operator +, - or &, found %s", p.peek())
	}
	p.advance()

	second, err := p.parseName("selection name")
	if err != nil {
		return nil, err
	}
	return Set{Target: target, First: first, Second: second, Operator: op}, nil
}

// parseFeature reads a feature keyword and checks it against allowed.
func (p *parser) parseFeature(cmd string, allowed []string) (string, error) {
	tok, err := p.expect(TokIdent, "a feature")
	if err != nil {
		return "", err
	}
	feature := strings.ToLower(tok.Text)
	if !slices.Contains(allowed, feature) {
		return "", p.errorf(tok, "unknown %s feature %q (expected one of %s)", cmd, tok.Text, strings.Join(allowed, ", "))
	}
	return feature, nil
}

func (p *parser) parseDrop() (Statement, error) {
	p.advance() // DROP

	feature, err := p.parseFeature("DROP", dropFeatures)
	if err != nil {
		return nil, err
	}
	name, err := p.parseName("name")
	if err != nil {
		return nil, err
	}
	return Drop{Feature: feature, Name: name}, nil
}

func (p *parser) parseShow() (Statement, error) {
	p.advance() // SHOW

	feature, err := p.parseFeature("SHOW", showFeatures)
	if err != nil {
		return nil, err
	}
	return Show{Feature: feature}, nil
}

func (p *parser) parseImport() (Statement, error) {
	p.advance() // IMPORT

	feature, err := p.parseFeature("IMPORT", importFeatures)
	if err != nil {
		return nil, err
	}
	name, err := p.parseName("name")
	if err != nil {
		return nil, err
	}
	path, err := p.expect(TokString, "a quoted file path")
	if err != nil {
		return nil, err
	}
	return Import{Feature: feature, Name: name, Path: path.Text}, nil
}
