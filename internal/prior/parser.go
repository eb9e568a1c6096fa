package prior

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/zclconf/go-cty/cty"
)

// Default is the keyword that resolves to the standard prior for the
// parameter the expression is attached to.
const Default = "default"

// Parse parses a single constructor expression into a Distribution.
// The keyword `default` is rejected here because it needs a parameter name
// for resolution; use ParseFor when defaults may appear.
func Parse(expr string) (Distribution, error) {
	p := &parser{input: strings.TrimSpace(expr)}
	dist, err := p.parseExpression()
	if err != nil {
		return nil, fmt.Errorf("parsing prior %q: %w", expr, err)
	}
	return dist, nil
}

// ParseFor parses a constructor expression attached to the named parameter,
// resolving the `default` keyword from the built-in table.
func ParseFor(param, expr string) (Distribution, error) {
	if strings.TrimSpace(expr) == Default {
		dist, ok := DefaultFor(param)
		if !ok {
			return nil, fmt.Errorf("parameter '%s' has no default prior", param)
		}
		return dist, nil
	}
	return Parse(expr)
}

// ParseDict parses an ordered list of parameter/expression pairs into a Dict.
func ParseDict(params []string, exprs map[string]string) (*Dict, error) {
	dict := NewDict()
	for _, param := range params {
		expr, ok := exprs[param]
		if !ok {
			return nil, fmt.Errorf("no prior expression for parameter '%s'", param)
		}
		dist, err := ParseFor(param, expr)
		if err != nil {
			return nil, err
		}
		dict.Set(param, dist)
	}
	return dict, nil
}

// parser is a hand-rolled recursive-descent parser over a single expression.
// The grammar is small enough that a scanner/parser split would be noise:
//
//	expr    := qualified '(' kwargs? ')'
//	kwargs  := ident '=' value (',' ident '=' value)*
//	value   := number | string | bool | none | '[' values ']'
type parser struct {
	input string
	pos   int
}

func (p *parser) parseExpression() (Distribution, error) {
	name, err := p.parseQualifiedName()
	if err != nil {
		return nil, err
	}

	ctor, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("unknown distribution '%s'", name)
	}

	args := NewArgs()
	if err := p.expect('('); err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.consume(')') {
		for {
			key, err := p.parseIdent()
			if err != nil {
				return nil, err
			}
			if err := p.expect('='); err != nil {
				return nil, err
			}
			val, err := p.parseValue()
			if err != nil {
				return nil, fmt.Errorf("argument '%s': %w", key, err)
			}
			args.Set(key, val)

			p.skipSpace()
			if p.consume(',') {
				continue
			}
			if err := p.expect(')'); err != nil {
				return nil, err
			}
			break
		}
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return nil, fmt.Errorf("unexpected trailing input at offset %d", p.pos)
	}

	return ctor(args)
}

// parseQualifiedName reads `ident ('.' ident)*` and returns the final
// segment; qualifications like bilby.core.prior are accepted and discarded.
func (p *parser) parseQualifiedName() (string, error) {
	name, err := p.parseIdent()
	if err != nil {
		return "", err
	}
	for p.consume('.') {
		name, err = p.parseIdent()
		if err != nil {
			return "", err
		}
	}
	return name, nil
}

func (p *parser) parseIdent() (string, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.input) {
		c := rune(p.input[p.pos])
		if unicode.IsLetter(c) || c == '_' || (p.pos > start && unicode.IsDigit(c)) {
			p.pos++
			continue
		}
		break
	}
	if p.pos == start {
		return "", fmt.Errorf("expected identifier at offset %d", p.pos)
	}
	return p.input[start:p.pos], nil
}

func (p *parser) parseValue() (cty.Value, error) {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return cty.NilVal, fmt.Errorf("expected value at end of input")
	}

	switch c := p.input[p.pos]; {
	case c == '\'' || c == '"':
		return p.parseString(c)
	case c == '[':
		return p.parseList()
	case c == '-' || c == '+' || unicode.IsDigit(rune(c)):
		return p.parseNumber()
	default:
		ident, err := p.parseIdent()
		if err != nil {
			return cty.NilVal, err
		}
		switch ident {
		case "True", "true":
			return cty.True, nil
		case "False", "false":
			return cty.False, nil
		case "None":
			return cty.NullVal(cty.DynamicPseudoType), nil
		}
		return cty.NilVal, fmt.Errorf("unexpected bare word '%s'", ident)
	}
}

func (p *parser) parseString(quote byte) (cty.Value, error) {
	p.pos++ // opening quote
	start := p.pos
	for p.pos < len(p.input) && p.input[p.pos] != quote {
		p.pos++
	}
	if p.pos >= len(p.input) {
		return cty.NilVal, fmt.Errorf("unterminated string starting at offset %d", start-1)
	}
	s := p.input[start:p.pos]
	p.pos++ // closing quote
	return cty.StringVal(s), nil
}

func (p *parser) parseNumber() (cty.Value, error) {
	start := p.pos
	if c := p.input[p.pos]; c == '-' || c == '+' {
		p.pos++
	}
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if unicode.IsDigit(rune(c)) || c == '.' || c == 'e' || c == 'E' {
			p.pos++
			continue
		}
		// Exponent signs only directly after 'e'/'E'.
		if (c == '-' || c == '+') && p.pos > start {
			prev := p.input[p.pos-1]
			if prev == 'e' || prev == 'E' {
				p.pos++
				continue
			}
		}
		break
	}
	f, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return cty.NilVal, fmt.Errorf("invalid number %q", p.input[start:p.pos])
	}
	return cty.NumberFloatVal(f), nil
}

func (p *parser) parseList() (cty.Value, error) {
	p.pos++ // opening bracket
	p.skipSpace()
	if p.consume(']') {
		return cty.EmptyTupleVal, nil
	}
	var vals []cty.Value
	for {
		v, err := p.parseValue()
		if err != nil {
			return cty.NilVal, err
		}
		vals = append(vals, v)
		p.skipSpace()
		if p.consume(',') {
			continue
		}
		if err := p.expect(']'); err != nil {
			return cty.NilVal, err
		}
		return cty.TupleVal(vals), nil
	}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) consume(c byte) bool {
	p.skipSpace()
	if p.pos < len(p.input) && p.input[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(c byte) error {
	if !p.consume(c) {
		return fmt.Errorf("expected '%c' at offset %d", c, p.pos)
	}
	return nil
}
