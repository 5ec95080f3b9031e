// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package compiler implements the scanner and the assembler that compile a
// template source into a tree of instructions.
package compiler

import (
	"strings"

	"github.com/Squarespace/template-engine-sub000/ast"
)

// Sink receives the instructions scanned by a parser.
type Sink interface {
	Accept(code ast.Code)
}

// Parse compiles src and returns the root of its tree with the errors that
// occurred. A tree is always returned, also if there are errors.
func Parse(src string) (*ast.Root, []*ast.Error) {
	asm := NewAssembler()
	p := &parser{src: src, sink: asm}
	p.parse()
	return asm.Root(), asm.Errors()
}

// parser scans a template source and sends the scanned instructions to a
// sink.
type parser struct {
	src  string
	sink Sink
}

// parse scans the source. Text runs until the next '{'. The tag ends at the
// first following '}', but if a '{' comes first, the tag restarts from it.
// A tag that cannot be parsed is emitted as text.
func (p *parser) parse() {
	src := p.src
	n := len(src)
	text := 0 // start of the pending text
	i := 0
	for i < n {
		if src[i] != '{' {
			i++
			continue
		}
		if strings.HasPrefix(src[i:], "{##") {
			p.emitText(text, i)
			i = p.parseMultilineComment(i + 3)
			text = i
			continue
		}
		start := i
		j := i + 1
		for j < n && src[j] != '}' {
			if src[j] == '{' {
				start = j
			}
			j++
		}
		if j == n {
			break
		}
		if code, ok := p.parseTag(start+1, j); ok {
			p.emitText(text, start)
			p.sink.Accept(code)
			text = j + 1
		}
		i = j + 1
	}
	p.emitText(text, n)
	p.sink.Accept(ast.OpEOF)
}

// emitText emits the text src[start:end], if it is not empty.
func (p *parser) emitText(start, end int) {
	if start < end {
		p.sink.Accept(&ast.Text{Text: p.src[start:end]})
	}
}

// parseMultilineComment emits a multi-line comment starting at i and
// returns the position after its end.
func (p *parser) parseMultilineComment(i int) int {
	e := strings.Index(p.src[i:], "##}")
	if e < 0 {
		p.sink.Accept(&ast.Comment{Text: p.src[i:], Multiline: true})
		return len(p.src)
	}
	p.sink.Accept(&ast.Comment{Text: p.src[i : i+e], Multiline: true})
	return i + e + 3
}

// parseTag parses the content src[start:end] of a tag.
func (p *parser) parseTag(start, end int) (ast.Code, bool) {
	if start == end {
		return nil, false
	}
	switch p.src[start] {
	case '#':
		return &ast.Comment{Text: p.src[start+1 : end]}, true
	case '.':
		return p.parseInstruction(newMatcher(p.src, start+1, end))
	}
	return parseVariable(newMatcher(p.src, start, end))
}

// parseInstruction parses an instruction or a predicate.
func (p *parser) parseInstruction(m *matcher) (ast.Code, bool) {
	op := m.matchInstruction()
	if op == ast.OpNoMatch {
		return parsePredicate(m, false)
	}
	m.consume()
	if op.IsAtomic() {
		if !m.complete() {
			return nil, false
		}
		return op, true
	}
	if op == ast.OpOrPredicate && m.complete() {
		return &ast.Predicate{Or: true}, true
	}
	if !m.matchSpace() {
		return nil, false
	}
	m.consume()
	switch op {
	case ast.OpBindvar:
		return parseBindvar(m)
	case ast.OpCtxvar:
		return parseCtxvar(m)
	case ast.OpEval:
		if m.complete() {
			return nil, false
		}
		return &ast.Eval{Code: m.rest()}, true
	case ast.OpIf:
		return parseIf(m)
	case ast.OpInclude:
		name, ok := m.matchFilePath()
		if !ok {
			return nil, false
		}
		m.consume()
		return &ast.Include{Name: name, Args: m.matchArgs()}, true
	case ast.OpInject:
		return parseInject(m)
	case ast.OpMacro:
		name, ok := m.matchFilePath()
		if !ok {
			return nil, false
		}
		m.consume()
		if !m.complete() {
			return nil, false
		}
		return &ast.Macro{Name: name}, true
	case ast.OpOrPredicate:
		return parsePredicate(m, true)
	case ast.OpRepeated, ast.OpSection:
		name, ok := m.matchVariable()
		if !ok {
			return nil, false
		}
		m.consume()
		if !m.complete() {
			return nil, false
		}
		if op == ast.OpRepeated {
			return &ast.Repeated{Variable: ast.ParseReference(name)}, true
		}
		return &ast.Section{Variable: ast.ParseReference(name)}, true
	}
	return nil, false
}

// parsePredicate parses a predicate name and its arguments.
func parsePredicate(m *matcher, or bool) (ast.Code, bool) {
	name, ok := m.matchPredicate()
	if !ok {
		return nil, false
	}
	m.consume()
	args := m.matchArgs()
	m.consume()
	return &ast.Predicate{Or: or, Name: name, Args: args}, true
}

// parseVariable parses one or more variables followed by formatters.
func parseVariable(m *matcher) (ast.Code, bool) {
	refs, ok := m.matchVariables()
	if !ok {
		return nil, false
	}
	formatters, ok := m.matchFormatters()
	if !ok {
		return nil, false
	}
	return &ast.Variable{Variables: refs, Formatters: formatters}, true
}

// parseBindvar parses "@name variables|formatters".
func parseBindvar(m *matcher) (ast.Code, bool) {
	name, ok := m.matchDefinition()
	if !ok {
		return nil, false
	}
	m.consume()
	if !m.matchSpace() {
		return nil, false
	}
	m.consume()
	refs, ok := m.matchVariables()
	if !ok {
		return nil, false
	}
	formatters, ok := m.matchFormatters()
	if !ok {
		return nil, false
	}
	return &ast.Bindvar{Name: name, Variables: refs, Formatters: formatters}, true
}

// parseCtxvar parses "@name key=variable key=variable ...".
func parseCtxvar(m *matcher) (ast.Code, bool) {
	name, ok := m.matchDefinition()
	if !ok {
		return nil, false
	}
	m.consume()
	var bindings []ast.Binding
	for !m.complete() {
		if !m.matchSpace() {
			return nil, false
		}
		m.consume()
		key, ok := m.matchWord()
		if !ok {
			return nil, false
		}
		m.consume()
		if !m.match("=") {
			return nil, false
		}
		m.consume()
		value, ok := m.matchVariable()
		if !ok {
			return nil, false
		}
		m.consume()
		bindings = append(bindings, ast.Binding{Name: key, Reference: ast.ParseReference(value)})
	}
	if len(bindings) == 0 {
		return nil, false
	}
	return &ast.Ctxvar{Name: name, Bindings: bindings}, true
}

// parseIf parses a predicate call or variables joined by "&&" and "||".
func parseIf(m *matcher) (ast.Code, bool) {
	if _, ok := m.matchPredicate(); ok {
		return parsePredicate(m, false)
	}
	operators, refs, ok := m.matchIfExpression()
	if !ok {
		return nil, false
	}
	return &ast.If{Operators: operators, Variables: refs}, true
}

// parseInject parses "@name path args".
func parseInject(m *matcher) (ast.Code, bool) {
	name, ok := m.matchDefinition()
	if !ok {
		return nil, false
	}
	m.consume()
	if !m.matchSpace() {
		return nil, false
	}
	m.consume()
	path, ok := m.matchFilePath()
	if !ok {
		return nil, false
	}
	m.consume()
	return &ast.Inject{Name: name, Path: path, Args: m.matchArgs()}, true
}
