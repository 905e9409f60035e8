// Package selector evaluates JMS-style selector expressions against
// message properties. The grammar supports comparison operators
// (=, <>, >, <, >=, <=), the logical operators AND, OR and NOT,
// parentheses, string literals in single quotes, and numeric and
// boolean literals. Expressions are translated to expr source and
// compiled once; an empty selector matches everything.
package selector

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Program is a compiled selector.
type Program struct {
	prog *vm.Program
}

// Compile translates and compiles a selector expression.
func Compile(sel string) (*Program, error) {
	translated, err := translate(sel)
	if err != nil {
		return nil, err
	}
	prog, err := expr.Compile(translated,
		expr.Env(map[string]any{}),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", sel, err)
	}
	return &Program{prog: prog}, nil
}

// Validate reports whether the selector compiles. Used by the write
// path so malformed selectors are rejected before they are stored.
func Validate(sel string) error {
	if sel == "" {
		return nil
	}
	_, err := Compile(sel)
	return err
}

// Eval runs the compiled selector against the given properties.
// A missing property or a type-mismatched comparison is a non-match,
// reported as an error so the caller can log it; it never panics.
func (p *Program) Eval(properties map[string]any) (bool, error) {
	if properties == nil {
		properties = map[string]any{}
	}
	out, err := expr.Run(p.prog, properties)
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("selector did not evaluate to a boolean")
	}
	return b, nil
}

// translate parses the selector grammar and emits equivalent expr
// source. Output is fully parenthesized so the grammar's precedence
// (comparisons bind tighter than NOT, then AND, then OR) survives the
// translation regardless of expr's own operator table.
func translate(sel string) (string, error) {
	tokens, err := lex(sel)
	if err != nil {
		return "", err
	}
	p := &parser{tokens: tokens}
	out, err := p.parseOr()
	if err != nil {
		return "", err
	}
	if !p.eof() {
		return "", fmt.Errorf("invalid selector: unexpected %q", p.peek().text)
	}
	return out, nil
}

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokString
	tokNumber
	tokOp     // = <> > < >= <=
	tokLParen
	tokRParen
	tokAnd
	tokOr
	tokNot
	tokBool
)

type token struct {
	kind tokenKind
	text string // expr-ready form
}

func lex(sel string) ([]token, error) {
	var tokens []token
	i := 0
	n := len(sel)
	for i < n {
		c := sel[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			tokens = append(tokens, token{tokLParen, "("})
			i++
		case c == ')':
			tokens = append(tokens, token{tokRParen, ")"})
			i++
		case c == '\'':
			lit, next, err := scanString(sel, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{tokString, lit})
			i = next
		case c == '=':
			tokens = append(tokens, token{tokOp, "=="})
			i++
		case c == '<':
			switch {
			case i+1 < n && sel[i+1] == '>':
				tokens = append(tokens, token{tokOp, "!="})
				i += 2
			case i+1 < n && sel[i+1] == '=':
				tokens = append(tokens, token{tokOp, "<="})
				i += 2
			default:
				tokens = append(tokens, token{tokOp, "<"})
				i++
			}
		case c == '>':
			if i+1 < n && sel[i+1] == '=' {
				tokens = append(tokens, token{tokOp, ">="})
				i += 2
			} else {
				tokens = append(tokens, token{tokOp, ">"})
				i++
			}
		case c >= '0' && c <= '9':
			j := i
			for j < n && (sel[j] >= '0' && sel[j] <= '9' || sel[j] == '.') {
				j++
			}
			tokens = append(tokens, token{tokNumber, sel[i:j]})
			i = j
		case isIdentStart(rune(c)):
			j := i
			for j < n && isIdentPart(rune(sel[j])) {
				j++
			}
			word := sel[i:j]
			switch strings.ToUpper(word) {
			case "AND":
				tokens = append(tokens, token{tokAnd, "&&"})
			case "OR":
				tokens = append(tokens, token{tokOr, "||"})
			case "NOT":
				tokens = append(tokens, token{tokNot, "!"})
			case "TRUE":
				tokens = append(tokens, token{tokBool, "true"})
			case "FALSE":
				tokens = append(tokens, token{tokBool, "false"})
			default:
				tokens = append(tokens, token{tokIdent, word})
			}
			i = j
		default:
			return nil, fmt.Errorf("invalid selector: unexpected character %q at offset %d", c, i)
		}
	}
	return tokens, nil
}

// scanString consumes a single-quoted literal starting at i and
// returns the equivalent double-quoted literal. A doubled quote is
// the grammar's escape for a literal quote.
func scanString(sel string, i int) (string, int, error) {
	var out strings.Builder
	out.WriteByte('"')
	j := i + 1
	n := len(sel)
	for j < n {
		c := sel[j]
		if c == '\'' {
			if j+1 < n && sel[j+1] == '\'' {
				out.WriteByte('\'')
				j += 2
				continue
			}
			out.WriteByte('"')
			return out.String(), j + 1, nil
		}
		if c == '"' || c == '\\' {
			out.WriteByte('\\')
		}
		out.WriteByte(c)
		j++
	}
	return "", 0, fmt.Errorf("invalid selector: unterminated string literal at offset %d", i)
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) eof() bool     { return p.pos >= len(p.tokens) }
func (p *parser) peek() token   { return p.tokens[p.pos] }
func (p *parser) advance() token { t := p.tokens[p.pos]; p.pos++; return t }

func (p *parser) parseOr() (string, error) {
	left, err := p.parseAnd()
	if err != nil {
		return "", err
	}
	for !p.eof() && p.peek().kind == tokOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return "", err
		}
		left = "(" + left + " || " + right + ")"
	}
	return left, nil
}

func (p *parser) parseAnd() (string, error) {
	left, err := p.parseNot()
	if err != nil {
		return "", err
	}
	for !p.eof() && p.peek().kind == tokAnd {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return "", err
		}
		left = "(" + left + " && " + right + ")"
	}
	return left, nil
}

func (p *parser) parseNot() (string, error) {
	if !p.eof() && p.peek().kind == tokNot {
		p.advance()
		inner, err := p.parseNot()
		if err != nil {
			return "", err
		}
		return "!(" + inner + ")", nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (string, error) {
	left, err := p.parseOperand()
	if err != nil {
		return "", err
	}
	if !p.eof() && p.peek().kind == tokOp {
		op := p.advance()
		right, err := p.parseOperand()
		if err != nil {
			return "", err
		}
		return "(" + left + " " + op.text + " " + right + ")", nil
	}
	return left, nil
}

func (p *parser) parseOperand() (string, error) {
	if p.eof() {
		return "", fmt.Errorf("invalid selector: unexpected end of expression")
	}
	t := p.advance()
	switch t.kind {
	case tokIdent, tokString, tokNumber, tokBool:
		return t.text, nil
	case tokLParen:
		inner, err := p.parseOr()
		if err != nil {
			return "", err
		}
		if p.eof() || p.peek().kind != tokRParen {
			return "", fmt.Errorf("invalid selector: missing closing parenthesis")
		}
		p.advance()
		return "(" + inner + ")", nil
	default:
		return "", fmt.Errorf("invalid selector: unexpected %q", t.text)
	}
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentPart(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
