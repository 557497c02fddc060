package setuppy

import (
	"strings"

	"github.com/ko3luhbka/dephell/pkg/converters"
)

type valueKind int

const (
	valString valueKind = iota
	valList
	valDict
	valConst // True, False, None, numbers
	valExpr  // anything that needs evaluation
)

type value struct {
	kind  valueKind
	str   string
	items []value
	keys  []value // dict keys, parallel to items
	line  int
}

type keyword struct {
	name  string
	value value
	line  int
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

// findSetup locates the setup( call and returns its keyword arguments in
// source order. setuptools.setup( and __import__("setuptools").setup( match
// too; a "def setup(" does not.
func findSetup(toks []token) ([]keyword, error) {
	for i := 0; i+1 < len(toks); i++ {
		t := toks[i]
		if t.kind != tokName || t.text != "setup" || !toks[i+1].is("(") {
			continue
		}
		if i > 0 && toks[i-1].kind == tokName && toks[i-1].text == "def" {
			continue
		}
		p := &parser{toks: toks, pos: i + 2}
		return p.arguments()
	}
	return nil, converters.Errorf(0, 0, "no setup() call found")
}

func (p *parser) arguments() ([]keyword, error) {
	var out []keyword
	seen := make(map[string]bool)
	for {
		t := p.peek()
		switch {
		case t.is(")"):
			p.next()
			return out, nil
		case t.kind == tokEOF:
			return nil, converters.Errorf(t.line, t.column, "unexpected end of input in setup()")
		case t.is("**") || t.is("*"):
			return nil, converters.Unsupported(t.line, "unpacked arguments in setup()")
		}

		if t.kind != tokName || !p.toks[p.pos+1].is("=") {
			return nil, converters.Unsupported(t.line, "positional argument in setup()")
		}
		p.next()
		p.next()
		if seen[t.text] {
			return nil, converters.Errorf(t.line, t.column, "keyword argument repeated: %s", t.text)
		}
		seen[t.text] = true

		v, err := p.value()
		if err != nil {
			return nil, err
		}
		out = append(out, keyword{name: t.text, value: v, line: t.line})

		switch sep := p.peek(); {
		case sep.is(","):
			p.next()
		case sep.is(")"):
		default:
			return nil, converters.Errorf(sep.line, sep.column, "expected ',' or ')' after %s, got %q", t.text, sep.text)
		}
	}
}

func terminator(t token) bool {
	return t.kind == tokEOF || t.is(",") || t.is(")") || t.is("]") || t.is("}") || t.is(":")
}

// value parses one argument. Literals are decoded; any other expression is
// skipped and returned as valExpr so callers can decide whether it matters.
func (p *parser) value() (value, error) {
	start := p.pos
	v, ok, err := p.literal()
	if err != nil {
		return value{}, err
	}
	if ok && terminator(p.peek()) {
		return v, nil
	}
	p.pos = start
	return p.skipExpr()
}

func (p *parser) literal() (value, bool, error) {
	t := p.peek()
	switch {
	case t.kind == tokString:
		var b strings.Builder
		literal := true
		for p.peek().kind == tokString {
			s := p.next()
			literal = literal && !s.fmt
			b.WriteString(s.text)
		}
		return value{kind: valString, str: b.String(), line: t.line}, literal, nil

	case t.kind == tokNumber:
		p.next()
		return value{kind: valConst, str: t.text, line: t.line}, true, nil

	case t.kind == tokName:
		p.next()
		switch t.text {
		case "True", "False", "None":
			return value{kind: valConst, str: t.text, line: t.line}, true, nil
		}
		return value{}, false, nil

	case t.is("[") || t.is("("):
		return p.sequence()

	case t.is("{"):
		return p.dict()
	}
	return value{}, false, nil
}

func (p *parser) sequence() (value, bool, error) {
	open := p.next()
	closer := "]"
	if open.text == "(" {
		closer = ")"
	}
	out := value{kind: valList, line: open.line}
	comma := false
	for {
		t := p.peek()
		if t.is(closer) {
			p.next()
			break
		}
		if t.kind == tokEOF {
			return value{}, false, converters.Errorf(open.line, open.column, "unclosed %q", open.text)
		}
		item, err := p.value()
		if err != nil {
			return value{}, false, err
		}
		out.items = append(out.items, item)
		switch sep := p.peek(); {
		case sep.is(","):
			p.next()
			comma = true
		case sep.is(closer):
		default:
			return value{}, false, converters.Errorf(sep.line, sep.column, "expected ',' or %q, got %q", closer, sep.text)
		}
	}
	// A parenthesized single expression is not a tuple.
	if open.text == "(" && !comma && len(out.items) == 1 {
		return out.items[0], out.items[0].kind != valExpr, nil
	}
	return out, true, nil
}

func (p *parser) dict() (value, bool, error) {
	open := p.next()
	out := value{kind: valDict, line: open.line}
	for {
		t := p.peek()
		if t.is("}") {
			p.next()
			return out, true, nil
		}
		if t.kind == tokEOF {
			return value{}, false, converters.Errorf(open.line, open.column, "unclosed '{'")
		}
		if t.is("**") {
			return value{}, false, converters.Unsupported(t.line, "dict unpacking")
		}
		key, err := p.value()
		if err != nil {
			return value{}, false, err
		}
		if sep := p.next(); !sep.is(":") {
			return value{}, false, converters.Unsupported(sep.line, "set literal")
		}
		val, err := p.value()
		if err != nil {
			return value{}, false, err
		}
		out.keys = append(out.keys, key)
		out.items = append(out.items, val)
		switch sep := p.peek(); {
		case sep.is(","):
			p.next()
		case sep.is("}"):
		default:
			return value{}, false, converters.Errorf(sep.line, sep.column, "expected ',' or '}', got %q", sep.text)
		}
	}
}

// skipExpr consumes tokens up to the next top-level terminator.
func (p *parser) skipExpr() (value, error) {
	start := p.peek()
	depth := 0
	for {
		t := p.peek()
		switch {
		case t.kind == tokEOF:
			return value{}, converters.Errorf(start.line, start.column, "unexpected end of input")
		case t.is("(") || t.is("[") || t.is("{"):
			depth++
		case t.is(")") || t.is("]") || t.is("}"):
			if depth == 0 {
				return value{kind: valExpr, line: start.line}, nil
			}
			depth--
		case depth == 0 && (t.is(",") || t.is(":")):
			return value{kind: valExpr, line: start.line}, nil
		}
		p.next()
	}
}

// stringList returns v as a list of strings. A single string is split into
// lines when lines is set, otherwise it is a one-element list.
func (v value) stringList(lines bool) ([]string, bool) {
	switch v.kind {
	case valString:
		if !lines {
			return []string{v.str}, true
		}
		var out []string
		for _, l := range strings.Split(v.str, "\n") {
			if l = strings.TrimSpace(l); l != "" && !strings.HasPrefix(l, "#") {
				out = append(out, l)
			}
		}
		return out, true
	case valList:
		out := make([]string, 0, len(v.items))
		for _, it := range v.items {
			if it.kind != valString {
				return nil, false
			}
			out = append(out, it.str)
		}
		return out, true
	}
	return nil, false
}
