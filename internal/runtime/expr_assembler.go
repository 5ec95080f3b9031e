// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runtime

import "github.com/Squarespace/template-engine-sub000/ast"

// assembler converts the tokens of an expression to reverse Polish
// notation with the shunting-yard algorithm.
type assembler struct {
	exprs  [][]token
	output []token
	stack  []token // operators, '(' and calls
}

// assemble returns the sub-expressions of tokens in reverse Polish
// notation. Empty sub-expressions are omitted.
func assemble(tokens []token) ([][]token, *ast.Error) {
	a := &assembler{}
	for _, t := range tokens {
		if err := a.push(t); err != nil {
			return nil, err
		}
	}
	if err := a.flush(); err != nil {
		return nil, err
	}
	return a.exprs, nil
}

func (a *assembler) errorf(format string, args ...any) *ast.Error {
	return ast.Errorf(ast.EngineError, ast.ErrExprAssemble, format, args...)
}

func (a *assembler) top() (token, bool) {
	if len(a.stack) == 0 {
		return token{}, false
	}
	return a.stack[len(a.stack)-1], true
}

func (a *assembler) pop() token {
	t := a.stack[len(a.stack)-1]
	a.stack = a.stack[:len(a.stack)-1]
	return t
}

func (a *assembler) push(t token) *ast.Error {
	switch t.typ {
	case tokenCall:
		a.stack = append(a.stack, t)
		a.output = append(a.output, argsToken)
		return nil
	case tokenOperator:
	default:
		a.output = append(a.output, t)
		return nil
	}
	switch op := t.op; op.kind {
	case opLeftParen:
		a.stack = append(a.stack, t)
	case opRightParen:
		if !a.popToLeftParen() {
			return a.errorf("mismatched parenthesis")
		}
		a.pop()
		if top, ok := a.top(); ok && top.typ == tokenCall {
			a.output = append(a.output, a.pop())
		}
	case opComma:
		if !a.popToLeftParen() {
			return a.errorf("comma outside of parenthesis")
		}
	case opSemicolon:
		return a.flush()
	default:
		for {
			top, ok := a.top()
			if !ok || top.typ != tokenOperator || top.op.kind == opLeftParen {
				break
			}
			if top.op.prec < op.prec || top.op.prec == op.prec && op.right {
				break
			}
			a.output = append(a.output, a.pop())
		}
		a.stack = append(a.stack, t)
	}
	return nil
}

// popToLeftParen moves the operators above the innermost '(' to the output.
// It returns false if there is no '('.
func (a *assembler) popToLeftParen() bool {
	for {
		top, ok := a.top()
		if !ok {
			return false
		}
		if top.typ == tokenOperator && top.op.kind == opLeftParen {
			return true
		}
		a.output = append(a.output, a.pop())
	}
}

// flush terminates the current sub-expression.
func (a *assembler) flush() *ast.Error {
	for len(a.stack) > 0 {
		t := a.pop()
		if t.typ == tokenOperator && t.op.kind == opLeftParen || t.typ == tokenCall {
			return a.errorf("mismatched parenthesis")
		}
		a.output = append(a.output, t)
	}
	if len(a.output) > 0 {
		a.exprs = append(a.exprs, a.output)
		a.output = nil
	}
	return nil
}
