// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compiler

import (
	"strings"
	"unicode/utf8"

	"github.com/Squarespace/template-engine-sub000/ast"
)

// keyword is an instruction keyword without its first character.
type keyword struct {
	suffix string
	op     ast.Opcode
}

// keywords maps the first character of an instruction keyword to its
// suffixes. Instruction keywords are a small fixed set, so dispatching on
// the first character is faster than matching a general pattern.
var keywords = [256][]keyword{
	'a': {{"lternates with", ast.OpAlternatesWith}},
	'c': {{"tx", ast.OpCtxvar}},
	'e': {{"nd", ast.OpEnd}, {"val", ast.OpEval}},
	'i': {{"f", ast.OpIf}, {"nclude", ast.OpInclude}, {"nject", ast.OpInject}},
	'm': {{"acro", ast.OpMacro}, {"eta-left", ast.OpMetaLeft}, {"eta-right", ast.OpMetaRight}},
	'n': {{"ewline", ast.OpNewline}},
	'o': {{"r", ast.OpOrPredicate}},
	'r': {{"epeated section", ast.OpRepeated}},
	's': {{"ection", ast.OpSection}, {"pace", ast.OpSpace}},
	't': {{"ab", ast.OpTab}},
	'v': {{"ar", ast.OpBindvar}},
}

// matcher matches patterns in the window [start, end) of a string. The
// match methods test a pattern at start without advancing it; consume
// advances start past the last successful match.
type matcher struct {
	str      string
	start    int
	end      int
	matchEnd int // end of the last successful match
}

func newMatcher(str string, start, end int) *matcher {
	return &matcher{str: str, start: start, end: end, matchEnd: start}
}

// match reports whether pattern is at the current position.
func (m *matcher) match(pattern string) bool {
	e := m.start + len(pattern)
	if e > m.end || m.str[m.start:e] != pattern {
		return false
	}
	m.matchEnd = e
	return true
}

// consume advances past the last successful match.
func (m *matcher) consume() {
	m.start = m.matchEnd
}

// complete reports whether the whole window has been consumed.
func (m *matcher) complete() bool {
	return m.start >= m.end
}

// peek returns the byte at the current position, or 0 if the window has
// been consumed.
func (m *matcher) peek() byte {
	if m.start >= m.end {
		return 0
	}
	return m.str[m.start]
}

// rest returns the part of the window not yet consumed.
func (m *matcher) rest() string {
	return m.str[m.start:m.end]
}

// matchSpace matches a single space.
func (m *matcher) matchSpace() bool {
	return m.match(" ")
}

// skipSpace consumes any white space.
func (m *matcher) skipSpace() {
	for m.start < m.end && isSpace(m.str[m.start]) {
		m.start++
	}
	m.matchEnd = m.start
}

// matchInstruction matches an instruction keyword followed by the end of
// the window or a space. It returns ast.OpNoMatch if there is no keyword.
func (m *matcher) matchInstruction() ast.Opcode {
	if m.complete() {
		return ast.OpNoMatch
	}
	for _, kw := range keywords[m.str[m.start]] {
		e := m.start + 1 + len(kw.suffix)
		if e > m.end || m.str[m.start+1:e] != kw.suffix {
			continue
		}
		if e == m.end || m.str[e] == ' ' {
			m.matchEnd = e
			return kw.op
		}
	}
	return ast.OpNoMatch
}

// matchVariable matches a variable name such as "a.b.0", "@" or "@index".
func (m *matcher) matchVariable() (string, bool) {
	i := m.start
	if i >= m.end || !isVariableStart(m.str[i]) {
		return "", false
	}
	i++
	for i < m.end && isVariableChar(m.str[i]) {
		i++
	}
	for i+1 < m.end && m.str[i] == '.' && isVariableChar(m.str[i+1]) {
		i += 2
		for i < m.end && isVariableChar(m.str[i]) {
			i++
		}
	}
	m.matchEnd = i
	return m.str[m.start:i], true
}

// matchVariables matches one or more comma separated variables.
func (m *matcher) matchVariables() ([]ast.Reference, bool) {
	var refs []ast.Reference
	for {
		name, ok := m.matchVariable()
		if !ok {
			return nil, false
		}
		m.consume()
		refs = append(refs, ast.ParseReference(name))
		i := m.start
		m.skipSpace()
		if m.peek() != ',' {
			m.start = i
			m.matchEnd = i
			return refs, true
		}
		m.start++
		m.skipSpace()
	}
}

// matchFormatters matches a formatter chain such as "|html|truncate 10".
// The arguments of a formatter run to the next '|' and are split on their
// delimiter, the first character after the formatter name.
func (m *matcher) matchFormatters() ([]*ast.Formatter, bool) {
	var formatters []*ast.Formatter
	for !m.complete() {
		if m.peek() != '|' {
			return nil, false
		}
		m.start++
		// A second '|' is likely a script fragment such as "{a||b}".
		if len(formatters) == 0 && m.peek() == '|' {
			return nil, false
		}
		name, ok := m.matchWord()
		if !ok {
			return nil, false
		}
		m.consume()
		f := &ast.Formatter{Name: name}
		if !m.complete() && m.peek() != '|' {
			_, size := utf8.DecodeRuneInString(m.rest())
			delim := m.str[m.start : m.start+size]
			m.start += size
			j := strings.IndexByte(m.rest(), '|')
			if j < 0 {
				j = m.end - m.start
			}
			f.Args = &ast.Args{Values: strings.Split(m.str[m.start:m.start+j], delim), Delimiter: delim}
			m.start += j
		}
		formatters = append(formatters, f)
	}
	m.matchEnd = m.start
	return formatters, true
}

// matchWord matches a formatter name.
func (m *matcher) matchWord() (string, bool) {
	i := m.start
	if i >= m.end || !isLetter(m.str[i]) && m.str[i] != '_' {
		return "", false
	}
	for i++; i < m.end && (isLetter(m.str[i]) || isDigit(m.str[i]) || m.str[i] == '_' || m.str[i] == '-'); i++ {
	}
	m.matchEnd = i
	return m.str[m.start:i], true
}

// matchIfExpression matches variables joined by the "&&" and "||"
// operators.
func (m *matcher) matchIfExpression() ([]ast.Operator, []ast.Reference, bool) {
	var operators []ast.Operator
	var refs []ast.Reference
	for {
		m.skipSpace()
		name, ok := m.matchVariable()
		if !ok {
			return nil, nil, false
		}
		m.consume()
		refs = append(refs, ast.ParseReference(name))
		m.skipSpace()
		if m.complete() {
			return operators, refs, true
		}
		switch {
		case m.match("&&"):
			operators = append(operators, ast.OperatorAnd)
		case m.match("||"):
			operators = append(operators, ast.OperatorOr)
		default:
			return nil, nil, false
		}
		m.consume()
	}
}

// matchFilePath matches a file path such as "blocks/item.block".
func (m *matcher) matchFilePath() (string, bool) {
	i := m.start
	for i < m.end && isFilePathChar(m.str[i]) {
		i++
	}
	if i == m.start {
		return "", false
	}
	m.matchEnd = i
	return m.str[m.start:i], true
}

// matchPredicate matches a predicate name, for example "equal?".
func (m *matcher) matchPredicate() (string, bool) {
	i := m.start
	if i >= m.end || !isLetter(m.str[i]) {
		return "", false
	}
	for i++; i < m.end && (isLetter(m.str[i]) || isDigit(m.str[i]) || m.str[i] == '_' || m.str[i] == '-'); i++ {
	}
	if i >= m.end || m.str[i] != '?' {
		return "", false
	}
	i++
	m.matchEnd = i
	return m.str[m.start:i], true
}

// matchArgs matches the rest of the window as a delimiter-bounded argument
// list. The delimiter is its first character. It returns nil if the window
// has been consumed.
func (m *matcher) matchArgs() *ast.Args {
	if m.complete() {
		return nil
	}
	_, size := utf8.DecodeRuneInString(m.rest())
	delim := m.str[m.start : m.start+size]
	values := m.str[m.start+size : m.end]
	m.matchEnd = m.end
	if values == "" {
		return nil
	}
	return &ast.Args{Values: strings.Split(values, delim), Delimiter: delim}
}

// matchDefinition matches the name of an @-variable definition.
func (m *matcher) matchDefinition() (string, bool) {
	i := m.start
	if i >= m.end || m.str[i] != '@' {
		return "", false
	}
	for i++; i < m.end && isDefinitionChar(m.str[i]); i++ {
	}
	if i == m.start+1 {
		return "", false
	}
	m.matchEnd = i
	return m.str[m.start:i], true
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isLetter(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func isVariableStart(c byte) bool {
	return isLetter(c) || c == '_' || c == '$' || c == '@'
}

func isVariableChar(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '_' || c == '$' || c == '@' || c == '-'
}

func isDefinitionChar(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '_' || c == '$' || c == '-'
}

func isFilePathChar(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '_' || c == '.' || c == '/' || c == '-'
}
