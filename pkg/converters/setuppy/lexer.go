package setuppy

import (
	"strings"
	"unicode"

	"github.com/ko3luhbka/dephell/pkg/converters"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokName
	tokString
	tokNumber
	tokOp
)

type token struct {
	kind   tokenKind
	text   string // source spelling (decoded value for strings)
	fmt    bool   // f-string: not a literal
	line   int
	column int
}

func (t token) is(op string) bool { return t.kind == tokOp && t.text == op }

// lexer splits Python source into the tokens the literal parser needs.
// Layout (newlines, indentation) is dropped; only setup() arguments are
// evaluated and those are whitespace-insensitive.
type lexer struct {
	src  []rune
	pos  int
	line int
	col  int
}

func tokenize(src string) ([]token, error) {
	lx := &lexer{src: []rune(src), line: 1, col: 1}
	var toks []token
	for {
		t, err := lx.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, t)
		if t.kind == tokEOF {
			return toks, nil
		}
	}
}

func (lx *lexer) peek(off int) rune {
	if lx.pos+off >= len(lx.src) {
		return 0
	}
	return lx.src[lx.pos+off]
}

func (lx *lexer) advance() rune {
	r := lx.src[lx.pos]
	lx.pos++
	if r == '\n' {
		lx.line++
		lx.col = 1
	} else {
		lx.col++
	}
	return r
}

func (lx *lexer) next() (token, error) {
	for lx.pos < len(lx.src) {
		r := lx.peek(0)
		switch {
		case r == '#':
			for lx.pos < len(lx.src) && lx.peek(0) != '\n' {
				lx.advance()
			}
		case r == '\\' && lx.peek(1) == '\n':
			lx.advance()
			lx.advance()
		case unicode.IsSpace(r):
			lx.advance()
		default:
			return lx.token()
		}
	}
	return token{kind: tokEOF, line: lx.line, column: lx.col}, nil
}

func (lx *lexer) token() (token, error) {
	line, col := lx.line, lx.col
	r := lx.peek(0)

	switch {
	case r == '_' || unicode.IsLetter(r):
		start := lx.pos
		for lx.pos < len(lx.src) && (lx.peek(0) == '_' || unicode.IsLetter(lx.peek(0)) || unicode.IsDigit(lx.peek(0))) {
			lx.advance()
		}
		word := string(lx.src[start:lx.pos])
		if q := lx.peek(0); (q == '\'' || q == '"') && isStringPrefix(word) {
			return lx.str(line, col, strings.ToLower(word))
		}
		return token{kind: tokName, text: word, line: line, column: col}, nil

	case r == '\'' || r == '"':
		return lx.str(line, col, "")

	case unicode.IsDigit(r) || (r == '.' && unicode.IsDigit(lx.peek(1))):
		start := lx.pos
		for lx.pos < len(lx.src) && (lx.peek(0) == '.' || lx.peek(0) == '_' || unicode.IsLetter(lx.peek(0)) || unicode.IsDigit(lx.peek(0))) {
			lx.advance()
		}
		return token{kind: tokNumber, text: string(lx.src[start:lx.pos]), line: line, column: col}, nil

	case r == '*' && lx.peek(1) == '*':
		lx.advance()
		lx.advance()
		return token{kind: tokOp, text: "**", line: line, column: col}, nil
	}

	lx.advance()
	return token{kind: tokOp, text: string(r), line: line, column: col}, nil
}

func isStringPrefix(word string) bool {
	switch strings.ToLower(word) {
	case "r", "u", "b", "f", "br", "rb", "fr", "rf":
		return true
	}
	return false
}

func (lx *lexer) str(line, col int, prefix string) (token, error) {
	raw := strings.Contains(prefix, "r")
	quote := lx.advance()
	triple := lx.peek(0) == quote && lx.peek(1) == quote
	if triple {
		lx.advance()
		lx.advance()
	}

	var b strings.Builder
	for {
		if lx.pos >= len(lx.src) {
			return token{}, converters.Errorf(line, col, "unterminated string")
		}
		r := lx.advance()
		switch {
		case r == quote && !triple:
			return lx.strToken(b.String(), prefix, line, col), nil
		case r == quote && lx.peek(0) == quote && lx.peek(1) == quote:
			lx.advance()
			lx.advance()
			return lx.strToken(b.String(), prefix, line, col), nil
		case r == '\n' && !triple:
			return token{}, converters.Errorf(line, col, "unterminated string")
		case r == '\\' && lx.pos < len(lx.src):
			esc := lx.advance()
			if raw {
				b.WriteRune('\\')
				b.WriteRune(esc)
				continue
			}
			switch esc {
			case '\n':
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			case 'r':
				b.WriteRune('\r')
			case '\\', '\'', '"':
				b.WriteRune(esc)
			default:
				b.WriteRune('\\')
				b.WriteRune(esc)
			}
		default:
			b.WriteRune(r)
		}
	}
}

func (lx *lexer) strToken(s, prefix string, line, col int) token {
	return token{kind: tokString, text: s, fmt: strings.Contains(prefix, "f"), line: line, column: col}
}
