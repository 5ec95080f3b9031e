// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compiler

import (
	"github.com/Squarespace/template-engine-sub000/ast"
)

// state is a state of the assembler.
type state uint8

const (
	stateRoot state = iota
	stateIf
	statePredicate
	stateOrPredicate
	stateRepeated
	stateSection
	stateBlock
	stateAlternatesWith
	stateEOF
	stateDead
)

var stateNames = [...]string{
	stateRoot:           "root",
	stateIf:             "if",
	statePredicate:      "predicate",
	stateOrPredicate:    "or-predicate",
	stateRepeated:       "repeated",
	stateSection:        "section",
	stateBlock:          "block",
	stateAlternatesWith: "alternates-with",
	stateEOF:            "eof",
	stateDead:           "dead",
}

func (s state) String() string {
	return stateNames[s]
}

// stateOf returns the state of the block instruction code.
func stateOf(code ast.Code) state {
	switch code.Opcode() {
	case ast.OpRoot:
		return stateRoot
	case ast.OpIf:
		return stateIf
	case ast.OpPredicate:
		return statePredicate
	case ast.OpOrPredicate:
		return stateOrPredicate
	case ast.OpRepeated:
		return stateRepeated
	case ast.OpSection:
		return stateSection
	}
	return stateBlock
}

// Assembler is a Sink that assembles the received instructions into a tree.
// Block instructions are nested while they are open, the instruction that
// closes a block is stored as its alternative.
type Assembler struct {
	root    *ast.Root
	current ast.Code // innermost open block
	stack   []opened // enclosing open blocks
	state   state
	errors  []*ast.Error
}

// opened is an enclosing open block with the state to restore when the
// nested block is closed.
type opened struct {
	code  ast.Code
	state state
}

// NewAssembler returns a new assembler.
func NewAssembler() *Assembler {
	root := &ast.Root{Consequents: ast.Block{}}
	return &Assembler{root: root, current: root, state: stateRoot}
}

// Root returns the root of the assembled tree.
func (a *Assembler) Root() *ast.Root {
	return a.root
}

// Errors returns the errors that occurred.
func (a *Assembler) Errors() []*ast.Error {
	return a.errors
}

// Complete reports whether the EOF instruction has been received with no
// block left open. A complete tree may still have errors.
func (a *Assembler) Complete() bool {
	return a.current == ast.Code(a.root) && a.state == stateEOF
}

func (a *Assembler) errorf(typ ast.ErrorType, format string, args ...any) {
	a.errors = append(a.errors, ast.Errorf(ast.AssemblerError, typ, format, args...))
}

// Accept implements the Sink interface.
func (a *Assembler) Accept(code ast.Code) {
	switch a.state {
	case stateDead, stateEOF:
		return
	}
	if ast.OpensBlock(code) {
		a.addConsequent(code)
		a.push(code)
		return
	}
	switch a.state {
	case stateRoot:
		a.atRoot(code)
	case stateIf, statePredicate, stateSection:
		a.conditional(code)
	case stateOrPredicate:
		a.orPredicate(code)
	case stateRepeated:
		a.repeated(code)
	case stateAlternatesWith:
		a.alternatesWith(code)
	case stateBlock:
		a.block(code)
	}
}

func (a *Assembler) atRoot(code ast.Code) {
	switch code.Opcode() {
	case ast.OpEOF:
		a.root.EOF = ast.OpEOF
		a.state = stateEOF
	case ast.OpEnd, ast.OpOrPredicate, ast.OpAlternatesWith:
		a.errorf(ast.ErrNotAllowedAtRoot, "%s is not allowed at root", code.Opcode())
	default:
		a.addConsequent(code)
	}
}

// conditional is the transition function of the if, predicate and section
// states.
func (a *Assembler) conditional(code ast.Code) {
	switch code.Opcode() {
	case ast.OpEnd:
		a.setAlternative(code)
		a.pop()
	case ast.OpOrPredicate:
		a.chain(code)
	case ast.OpAlternatesWith:
		a.errorf(ast.ErrNotAllowedInBlock, "%s is only allowed in a repeated section, found in %s", code.Opcode(), a.state)
	case ast.OpEOF:
		a.eofInBlock()
	default:
		a.addConsequent(code)
	}
}

func (a *Assembler) orPredicate(code ast.Code) {
	if code.Opcode() == ast.OpOrPredicate {
		if p := a.current.(*ast.Predicate); p.Name == "" && code.(*ast.Predicate).Name == "" {
			a.errorf(ast.ErrDeadCodeBlock, "%s follows an %s without predicate and is never executed", code.Opcode(), p.Opcode())
			return
		}
	}
	a.conditional(code)
}

func (a *Assembler) repeated(code ast.Code) {
	if code.Opcode() == ast.OpAlternatesWith {
		a.state = stateAlternatesWith
		return
	}
	a.conditional(code)
}

func (a *Assembler) alternatesWith(code ast.Code) {
	if code.Opcode() == ast.OpAlternatesWith {
		a.errorf(ast.ErrNotAllowedInBlock, "%s is already open in the repeated section", code.Opcode())
		return
	}
	a.conditional(code)
}

// block is the transition function of macro and struct instructions, that
// have no alternative.
func (a *Assembler) block(code ast.Code) {
	switch code.Opcode() {
	case ast.OpEnd:
		a.pop()
	case ast.OpOrPredicate, ast.OpAlternatesWith:
		a.errorf(ast.ErrNotAllowedInBlock, "%s is not allowed in %s", code.Opcode(), a.current.Opcode())
	case ast.OpEOF:
		a.eofInBlock()
	default:
		a.addConsequent(code)
	}
}

func (a *Assembler) eofInBlock() {
	a.errorf(ast.ErrEOFInBlock, "reached EOF in an unclosed %s block", a.current.Opcode())
	a.state = stateDead
}

// push opens the block code.
func (a *Assembler) push(code ast.Code) {
	a.stack = append(a.stack, opened{a.current, a.state})
	a.current = code
	a.state = stateOf(code)
}

// pop closes the current block.
func (a *Assembler) pop() {
	if len(a.stack) == 0 {
		a.errorf(ast.ErrStackUnderflow, "attempt to close the root block")
		a.state = stateDead
		return
	}
	last := len(a.stack) - 1
	a.current = a.stack[last].code
	a.state = a.stack[last].state
	a.stack = a.stack[:last]
}

// chain sets the or-predicate code as alternative of the current block and
// makes it the current block. The chained blocks share the same END.
func (a *Assembler) chain(code ast.Code) {
	a.setAlternative(code)
	a.current = code
	a.state = stateOrPredicate
}

func (a *Assembler) addConsequent(code ast.Code) {
	switch n := a.current.(type) {
	case *ast.Root:
		n.Consequents = append(n.Consequents, code)
	case *ast.Section:
		n.Consequents = append(n.Consequents, code)
	case *ast.Repeated:
		if a.state == stateAlternatesWith {
			n.AlternatesWith = append(n.AlternatesWith, code)
		} else {
			n.Consequents = append(n.Consequents, code)
		}
	case *ast.Predicate:
		n.Consequents = append(n.Consequents, code)
	case *ast.If:
		n.Consequents = append(n.Consequents, code)
	case *ast.Macro:
		n.Consequents = append(n.Consequents, code)
	case *ast.Struct:
		n.Consequents = append(n.Consequents, code)
	}
}

func (a *Assembler) setAlternative(code ast.Code) {
	switch n := a.current.(type) {
	case *ast.Section:
		n.Alternative = code
	case *ast.Repeated:
		n.Alternative = code
	case *ast.Predicate:
		n.Alternative = code
	case *ast.If:
		n.Alternative = code
	}
}
