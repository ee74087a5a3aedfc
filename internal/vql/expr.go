package vql

import (
	"strconv"
	"strings"

	"github.com/roach88/vql/internal/ir"
	"github.com/roach88/vql/internal/queryir"
)

// parseFieldList reads one or more comma-separated fields.
func (p *parser) parseFieldList() ([]ir.FieldRef, error) {
	var fields []ir.FieldRef
	for {
		f, err := p.parseField()
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
		if !p.at(TokComma) {
			return fields, nil
		}
		p.advance()
	}
}

// parseField reads a field reference:
//
//	chr
//	annotations.gene
//	sample("alice").gt   sample["alice"]   sample.alice.gt   samples.alice
//	set("genes")
//
// Genotype references without a trailing field default to gt.
func (p *parser) parseField() (ir.FieldRef, error) {
	tok, err := p.expect(TokIdent, "a field")
	if err != nil {
		return ir.FieldRef{}, err
	}

	fn := strings.ToLower(tok.Text)
	switch {
	case fn == ir.GenotypeFunc || fn == ir.GenotypeFunc+"s":
		if p.at(TokLParen) || p.at(TokLBracket) || p.at(TokDot) {
			return p.parseGenotypeField()
		}
	case fn == ir.SetFunc && p.at(TokLParen):
		arg, err := p.parseCallArg()
		if err != nil {
			return ir.FieldRef{}, err
		}
		return ir.Call(ir.SetFunc, arg, ""), nil
	case p.at(TokLParen):
		return ir.FieldRef{}, p.errorf(tok, "unknown function %q", tok.Text)
	}

	if p.at(TokDot) {
		p.advance()
		name, err := p.expect(TokIdent, "a field name after '.'")
		if err != nil {
			return ir.FieldRef{}, err
		}
		return ir.Qualified(tok.Text, name.Text), nil
	}
	return ir.Field(tok.Text), nil
}

// parseGenotypeField reads the part after "sample": ("x"), ["x"] or .x,
// then an optional .field.
func (p *parser) parseGenotypeField() (ir.FieldRef, error) {
	var sample string
	switch p.peek().Kind {
	case TokLParen:
		arg, err := p.parseCallArg()
		if err != nil {
			return ir.FieldRef{}, err
		}
		sample = arg
	case TokLBracket:
		p.advance()
		arg, err := p.expect(TokString, "a quoted sample name")
		if err != nil {
			return ir.FieldRef{}, err
		}
		if _, err := p.expect(TokRBracket, "']'"); err != nil {
			return ir.FieldRef{}, err
		}
		sample = arg.Text
	default: // TokDot
		p.advance()
		name, err := p.parseName("sample name")
		if err != nil {
			return ir.FieldRef{}, err
		}
		sample = name
	}

	field := ir.DefaultGenotypeField
	if p.at(TokDot) {
		p.advance()
		name, err := p.expect(TokIdent, "a genotype field after '.'")
		if err != nil {
			return ir.FieldRef{}, err
		}
		field = name.Text
	}
	return ir.Call(ir.GenotypeFunc, sample, field), nil
}

// parseCallArg reads ( "arg" ).
func (p *parser) parseCallArg() (string, error) {
	if _, err := p.expect(TokLParen, "'('"); err != nil {
		return "", err
	}
	arg, err := p.expect(TokString, "a quoted argument")
	if err != nil {
		return "", err
	}
	if arg.Text == "" {
		return "", p.errorf(arg, "empty function argument")
	}
	if _, err := p.expect(TokRParen, "')'"); err != nil {
		return "", err
	}
	return arg.Text, nil
}

// parseWhere reads a WHERE or HAVING expression. A lone condition is
// wrapped in an AND node so that filters always have a logic root.
func (p *parser) parseWhere() (queryir.Node, error) {
	n, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if c, ok := n.(queryir.Condition); ok {
		return queryir.NewAnd(c), nil
	}
	return n, nil
}

// parseExpr reads a run of terms joined by one connective. Mixing AND and
// OR in one run is an error: the user must parenthesize.
func (p *parser) parseExpr() (queryir.Node, error) {
	first, err := p.parseTerm()
	if err != nil {
		return nil, err
	}

	var op queryir.LogicOp
	children := []queryir.Node{first}
	for {
		var next queryir.LogicOp
		switch {
		case p.atKeyword("AND"):
			next = queryir.And
		case p.atKeyword("OR"):
			next = queryir.Or
		}
		if next == "" {
			break
		}
		if op != "" && next != op {
			return nil, p.errorf(p.peek(), "cannot mix %s and %s without parentheses", op, next)
		}
		op = next
		p.advance()

		term, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		children = append(children, term)
	}

	if op == "" {
		return first, nil
	}
	return queryir.Logic{Op: op, Children: children}, nil
}

// parseTerm reads a parenthesized expression or a single condition.
func (p *parser) parseTerm() (queryir.Node, error) {
	if !p.at(TokLParen) {
		return p.parseCondition()
	}

	open := p.advance()
	n, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if !p.at(TokRParen) {
		return nil, p.errorf(open, "unmatched '(': expected ')', found %s", p.peek())
	}
	p.advance()
	return n, nil
}

func (p *parser) parseCondition() (queryir.Node, error) {
	start := p.peek()
	field, err := p.parseField()
	if err != nil {
		return nil, err
	}

	op, err := p.parseOperator()
	if err != nil {
		return nil, err
	}

	var value ir.Value
	if op.IsMembership() {
		value, err = p.parseMembershipValue(op)
	} else {
		value, err = p.parseScalarOrSet()
	}
	if err != nil {
		return nil, err
	}

	cond := queryir.Cond(field, op, value)
	if err := queryir.Validate(cond); err != nil {
		return nil, p.errorf(start, "%v", err)
	}
	return cond, nil
}

func (p *parser) parseOperator() (queryir.Operator, error) {
	tok := p.peek()
	switch {
	case tok.Kind == TokCompare:
		p.advance()
		return queryir.ParseOperator(tok.Text)
	case p.atKeyword("IN"):
		p.advance()
		return queryir.In, nil
	case p.atKeyword("HAS"):
		p.advance()
		return queryir.Has, nil
	case p.atKeyword("NOT"):
		p.advance()
		if !p.atKeyword("IN") {
			return "", p.errorf(p.peek(), "expected IN after NOT, found %s", p.peek())
		}
		p.advance()
		return queryir.NotIn, nil
	default:
		return "", p.errorf(tok, "expected a comparison operator, found %s", tok)
	}
}

// parseMembershipValue reads the right side of IN / NOT IN: a
// parenthesized list of literals or set("name").
func (p *parser) parseMembershipValue(op queryir.Operator) (ir.Value, error) {
	if p.atKeyword(ir.SetFunc) {
		return p.parseScalarOrSet()
	}
	if !p.at(TokLParen) {
		return nil, p.errorf(p.peek(), "%s expects a parenthesized list or set(...), found %s", op, p.peek())
	}
	open := p.advance()

	var list ir.List
	for {
		v, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		list = append(list, v)
		if !p.at(TokComma) {
			break
		}
		p.advance()
	}
	if !p.at(TokRParen) {
		return nil, p.errorf(open, "unmatched '(': expected ')', found %s", p.peek())
	}
	p.advance()
	return list, nil
}

// parseScalarOrSet reads a literal or a set("name") reference.
func (p *parser) parseScalarOrSet() (ir.Value, error) {
	if p.atKeyword(ir.SetFunc) && p.peekAt(1).Kind == TokLParen {
		p.advance()
		name, err := p.parseCallArg()
		if err != nil {
			return nil, err
		}
		return ir.SetRef{Name: name}, nil
	}
	if p.at(TokLParen) {
		return nil, p.errorf(p.peek(), "list values require IN or NOT IN")
	}
	return p.parseLiteral()
}

// parseLiteral reads a string, number or boolean.
func (p *parser) parseLiteral() (ir.Value, error) {
	tok := p.peek()
	switch tok.Kind {
	case TokString:
		p.advance()
		return ir.String(tok.Text), nil
	case TokMinus:
		p.advance()
		num, err := p.expect(TokNumber, "a number after '-'")
		if err != nil {
			return nil, err
		}
		return p.number(num, "-")
	case TokNumber:
		p.advance()
		return p.number(tok, "")
	case TokIdent:
		switch strings.ToLower(tok.Text) {
		case "true":
			p.advance()
			return ir.Bool(true), nil
		case "false":
			p.advance()
			return ir.Bool(false), nil
		}
		return nil, p.errorf(tok, "unquoted value %q: string values must be quoted", tok.Text)
	default:
		return nil, p.errorf(tok, "expected a value, found %s", tok)
	}
}

// number converts a number token. Literals with a fraction or an exponent
// are floats; everything else is an integer.
func (p *parser) number(tok Token, sign string) (ir.Value, error) {
	text := sign + tok.Text
	if strings.ContainsAny(tok.Text, ".eE") {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, p.errorf(tok, "invalid number %s", text)
		}
		return ir.Float(f), nil
	}
	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, p.errorf(tok, "integer %s out of range", text)
	}
	return ir.Int(i), nil
}
