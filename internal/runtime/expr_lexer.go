// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runtime

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Squarespace/template-engine-sub000/ast"
)

// operatorKind identifies an operator.
type operatorKind uint8

const (
	opMinus operatorKind = iota // unary -
	opPlus                      // unary +
	opNot
	opBitNot
	opPow
	opMul
	opDiv
	opRem
	opAdd
	opSub
	opShl
	opShr
	opLess
	opGreater
	opLessEqual
	opGreaterEqual
	opEqual
	opNotEqual
	opStrictEqual
	opStrictNotEqual
	opBitAnd
	opBitXor
	opBitOr
	opAnd
	opOr
	opAssign
	opSemicolon
	opComma
	opLeftParen
	opRightParen
)

// operator is an operator with its precedence and associativity.
type operator struct {
	kind  operatorKind
	text  string
	prec  int
	right bool // right associative
	unary bool
}

func (op *operator) String() string {
	if op.unary && (op.kind == opMinus || op.kind == opPlus) {
		return "u" + op.text
	}
	return op.text
}

var operators = [...]operator{
	opMinus:          {opMinus, "-", 16, true, true},
	opPlus:           {opPlus, "+", 16, true, true},
	opNot:            {opNot, "!", 16, true, true},
	opBitNot:         {opBitNot, "~", 16, true, true},
	opPow:            {opPow, "**", 15, true, false},
	opMul:            {opMul, "*", 14, false, false},
	opDiv:            {opDiv, "/", 14, false, false},
	opRem:            {opRem, "%", 14, false, false},
	opAdd:            {opAdd, "+", 13, false, false},
	opSub:            {opSub, "-", 13, false, false},
	opShl:            {opShl, "<<", 12, false, false},
	opShr:            {opShr, ">>", 12, false, false},
	opLess:           {opLess, "<", 11, false, false},
	opGreater:        {opGreater, ">", 11, false, false},
	opLessEqual:      {opLessEqual, "<=", 11, false, false},
	opGreaterEqual:   {opGreaterEqual, ">=", 11, false, false},
	opEqual:          {opEqual, "==", 10, false, false},
	opNotEqual:       {opNotEqual, "!=", 10, false, false},
	opStrictEqual:    {opStrictEqual, "===", 10, false, false},
	opStrictNotEqual: {opStrictNotEqual, "!==", 10, false, false},
	opBitAnd:         {opBitAnd, "&", 9, false, false},
	opBitXor:         {opBitXor, "^", 8, false, false},
	opBitOr:          {opBitOr, "|", 7, false, false},
	opAnd:            {opAnd, "&&", 6, false, false},
	opOr:             {opOr, "||", 5, false, false},
	opAssign:         {opAssign, "=", 3, true, false},
	opSemicolon:      {opSemicolon, ";", 0, false, false},
	opComma:          {opComma, ",", 0, false, false},
	opLeftParen:      {opLeftParen, "(", 0, false, false},
	opRightParen:     {opRightParen, ")", 0, false, false},
}

// binaryOperators lists the binary operators, longer first, so that the
// first one matching at a position is the longest.
var binaryOperators = [...]operatorKind{
	opStrictEqual, opStrictNotEqual,
	opPow, opShl, opShr, opLessEqual, opGreaterEqual, opEqual, opNotEqual, opAnd, opOr,
	opMul, opDiv, opRem, opAdd, opSub, opLess, opGreater, opBitAnd, opBitXor, opBitOr,
	opAssign, opSemicolon, opComma, opLeftParen, opRightParen,
}

// constants are the named constants of the expressions.
var constants = map[string]token{
	"null":     nullToken,
	"true":     trueToken,
	"false":    falseToken,
	"PI":       {typ: tokenNumber, num: math.Pi},
	"E":        {typ: tokenNumber, num: math.E},
	"Infinity": {typ: tokenNumber, num: math.Inf(1)},
	"NaN":      {typ: tokenNumber, num: math.NaN()},
}

// lexer tokenizes an expression.
type lexer struct {
	src    string
	p      int
	tokens []token
	opts   ExprOptions
}

// tokenize returns the tokens of the expression src.
func tokenize(src string, opts ExprOptions) ([]token, *ast.Error) {
	l := &lexer{src: src, opts: opts}
	if err := l.lex(); err != nil {
		return nil, err
	}
	return l.tokens, nil
}

func (l *lexer) errorf(format string, a ...any) *ast.Error {
	return ast.Errorf(ast.EngineError, ast.ErrExprTokenize, format, a...)
}

func (l *lexer) emit(t token) *ast.Error {
	if len(l.tokens) == l.opts.MaxTokens {
		return l.errorf("expression exceeds the maximum of %d tokens", l.opts.MaxTokens)
	}
	l.tokens = append(l.tokens, t)
	return nil
}

// unaryAllowed reports whether a '+' or '-' at the current position is a
// unary operator, that is there is no previous token or it is an operator
// other than ')'.
func (l *lexer) unaryAllowed() bool {
	if len(l.tokens) == 0 {
		return true
	}
	last := l.tokens[len(l.tokens)-1]
	return last.typ == tokenOperator && last.op.kind != opRightParen
}

func (l *lexer) lex() *ast.Error {
	for l.p < len(l.src) {
		c := l.src[l.p]
		var t token
		var err *ast.Error
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.p++
			continue
		case isDecDigit(c) || c == '.' && l.p+1 < len(l.src) && isDecDigit(l.src[l.p+1]):
			t, err = l.lexNumber()
		case c == '"' || c == '\'':
			t, err = l.lexString(c)
		case isIdentStart(c):
			t, err = l.lexIdentifier()
		case (c == '-' || c == '+') && l.unaryAllowed():
			kind := opMinus
			if c == '+' {
				kind = opPlus
			}
			t = token{typ: tokenOperator, op: &operators[kind]}
			l.p++
		case c == '!' && !strings.HasPrefix(l.src[l.p:], "!="):
			t = token{typ: tokenOperator, op: &operators[opNot]}
			l.p++
		case c == '~':
			t = token{typ: tokenOperator, op: &operators[opBitNot]}
			l.p++
		default:
			t, err = l.lexOperator()
		}
		if err != nil {
			return err
		}
		if err = l.emit(t); err != nil {
			return err
		}
	}
	return nil
}

func (l *lexer) lexOperator() (token, *ast.Error) {
	s := l.src[l.p:]
	for _, kind := range binaryOperators {
		op := &operators[kind]
		if strings.HasPrefix(s, op.text) {
			l.p += len(op.text)
			return token{typ: tokenOperator, op: op}, nil
		}
	}
	r, _ := utf8.DecodeRuneInString(s)
	return token{}, l.errorf("unexpected character %q at position %d", r, l.p)
}

// lexNumber lexes a decimal or hexadecimal number.
func (l *lexer) lexNumber() (token, *ast.Error) {
	s := l.src[l.p:]
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') && isHexDigit(s[2]) {
		p := 2
		for p < len(s) && isHexDigit(s[p]) {
			p++
		}
		n, err := strconv.ParseUint(s[2:p], 16, 64)
		if err != nil {
			if ne, ok := err.(*strconv.NumError); !ok || ne.Err != strconv.ErrRange {
				return token{}, l.errorf("invalid hexadecimal number %q", s[:p])
			}
			n = math.MaxUint64
		}
		l.p += p
		return token{typ: tokenNumber, num: float64(n)}, nil
	}
	var dot, exponent, needDigit bool
	p := 0
NUMBER:
	for p < len(s) {
		switch c := s[p]; {
		case isDecDigit(c):
			needDigit = false
		case c == '.':
			if exponent {
				return token{}, l.errorf("decimal point in exponent of number %q", s[:p+1])
			}
			if dot {
				return token{}, l.errorf("repeated decimal point in number %q", s[:p+1])
			}
			dot = true
		case c == 'e' || c == 'E':
			if exponent {
				break NUMBER
			}
			exponent = true
			needDigit = true
			if p+1 < len(s) && (s[p+1] == '+' || s[p+1] == '-') {
				p++
			}
		default:
			break NUMBER
		}
		p++
	}
	if needDigit {
		return token{}, l.errorf("missing digit in exponent of number %q", s[:p])
	}
	f, err := strconv.ParseFloat(s[:p], 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); !ok || ne.Err != strconv.ErrRange {
			return token{}, l.errorf("invalid number %q", s[:p])
		}
	}
	l.p += p
	return token{typ: tokenNumber, num: f}, nil
}

// lexString lexes a string quoted by quote.
func (l *lexer) lexString(quote byte) (token, *ast.Error) {
	var b strings.Builder
	p := l.p + 1
	for {
		if p >= len(l.src) {
			return token{}, l.errorf("unterminated string starting at position %d", l.p)
		}
		c := l.src[p]
		switch c {
		case quote:
			if b.Len() > l.opts.MaxStringLength {
				return token{}, l.errorf("string exceeds the maximum length of %d", l.opts.MaxStringLength)
			}
			l.p = p + 1
			return token{typ: tokenString, str: b.String()}, nil
		case '\n':
			return token{}, l.errorf("newline in string starting at position %d", l.p)
		case '\\':
			p++
			if p >= len(l.src) {
				continue
			}
			p = l.lexEscape(&b, p)
			continue
		}
		b.WriteByte(c)
		p++
	}
}

// lexEscape writes the escape sequence whose character after the backslash
// is at position p and returns the position after the sequence. Unknown
// or malformed sequences write the escaped character literally.
func (l *lexer) lexEscape(b *strings.Builder, p int) int {
	switch c := l.src[p]; c {
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'f':
		b.WriteByte('\f')
	case 'r':
		b.WriteByte('\r')
	case 'x', 'u', 'U':
		n := 2
		if c == 'u' {
			n = 4
		} else if c == 'U' {
			n = 8
		}
		if r, ok := parseHexRune(l.src, p+1, n); ok {
			b.WriteRune(r)
			return p + 1 + n
		}
		b.WriteByte(c)
	default:
		r, size := utf8.DecodeRuneInString(l.src[p:])
		b.WriteRune(r)
		return p + size
	}
	return p + 1
}

// parseHexRune parses the n hexadecimal digits of s at position p.
func parseHexRune(s string, p, n int) (rune, bool) {
	if p+n > len(s) {
		return 0, false
	}
	var r rune
	for i := p; i < p+n; i++ {
		c := s[i]
		if !isHexDigit(c) {
			return 0, false
		}
		r = r<<4 | rune(hexValue(c))
	}
	if r > utf8.MaxRune {
		return utf8.RuneError, true
	}
	return r, true
}

// lexIdentifier lexes a constant, a variable or a function call.
func (l *lexer) lexIdentifier() (token, *ast.Error) {
	p := l.p + 1
	for p < len(l.src) && isIdentChar(l.src[p]) {
		p++
	}
	name := l.src[l.p:p]
	if p < len(l.src) && l.src[p] == '(' {
		if _, ok := functions[name]; !ok {
			return token{}, l.errorf("unknown function %q", name)
		}
		l.p = p
		return token{typ: tokenCall, str: name}, nil
	}
	l.p = p
	if t, ok := constants[name]; ok {
		return t, nil
	}
	return token{typ: tokenVariable, ref: ast.ParseReference(name)}, nil
}

func isDecDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func isHexDigit(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func hexValue(c byte) byte {
	switch {
	case c <= '9':
		return c - '0'
	case c <= 'F':
		return c - 'A' + 10
	}
	return c - 'a' + 10
}

func isIdentStart(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || c == '_' || c == '$' || c == '@'
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDecDigit(c) || c == '.'
}
