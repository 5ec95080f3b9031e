// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runtime

import (
	"math"

	"github.com/Squarespace/template-engine-sub000/ast"
)

// reducer reduces the sub-expressions of an Expr against a context.
type reducer struct {
	ctx   *Context
	opts  ExprOptions
	stack []token
}

func (r *reducer) errorf(format string, a ...any) *ast.Error {
	return ast.Errorf(ast.EngineError, ast.ErrExprReduce, format, a...)
}

// Reduce reduces the sub-expressions of e in order and returns the values
// they produced. Assignments are committed to the current frame of ctx.
// Reduction stops at the first error.
func (e *Expr) Reduce(ctx *Context) ([]Node, *ast.Error) {
	if len(e.errors) > 0 {
		return nil, e.errors[0]
	}
	r := &reducer{ctx: ctx, opts: e.opts}
	var values []Node
	for _, tokens := range e.exprs {
		v, ok, err := r.reduce(tokens)
		if err != nil {
			return nil, err
		}
		if ok {
			values = append(values, v)
		}
	}
	return values, nil
}

// reduce reduces one sub-expression. It returns false if the expression
// does not produce a value.
func (r *reducer) reduce(tokens []token) (Node, bool, *ast.Error) {
	r.stack = r.stack[:0]
	for _, t := range tokens {
		switch t.typ {
		case tokenCall:
			if err := r.call(t.str); err != nil {
				return Missing, false, err
			}
		case tokenOperator:
			if t.op.kind == opAssign {
				return Missing, false, r.assign()
			}
			if t.op.unary {
				if len(r.stack) < 1 {
					return Missing, false, r.errorf("missing operand of %s", t.op.text)
				}
				top := len(r.stack) - 1
				r.stack[top] = unary(t.op.kind, r.node(r.stack[top]))
				continue
			}
			if len(r.stack) < 2 {
				return Missing, false, r.errorf("missing operand of %s", t.op.text)
			}
			y := r.node(r.pop())
			x := r.node(r.pop())
			v, err := r.binary(t.op.kind, x, y)
			if err != nil {
				return Missing, false, err
			}
			r.stack = append(r.stack, v)
		default:
			r.stack = append(r.stack, t)
		}
	}
	if len(r.stack) == 0 {
		return Missing, false, nil
	}
	top := r.stack[len(r.stack)-1]
	if !top.isLiteral() {
		return Missing, false, nil
	}
	return literalNode(top), true, nil
}

func (r *reducer) pop() token {
	t := r.stack[len(r.stack)-1]
	r.stack = r.stack[:len(r.stack)-1]
	return t
}

// node returns the node of the literal or variable t. Variables that cannot
// be resolved are null.
func (r *reducer) node(t token) Node {
	if t.typ == tokenVariable {
		n := r.ctx.Resolve(t.ref)
		if n.IsMissing() {
			return Null
		}
		return n
	}
	return literalNode(t)
}

// assign assigns the value on top of the stack to the @-variable below it.
func (r *reducer) assign() *ast.Error {
	if len(r.stack) < 2 {
		return r.errorf("missing operand of =")
	}
	value := r.node(r.pop())
	left := r.pop()
	if left.typ != tokenVariable || len(left.ref) != 1 || left.ref[0].IsIndex ||
		len(left.ref[0].Name) < 2 || left.ref[0].Name[0] != '@' {
		return r.errorf("invalid assignment to %s, the left operand must be an @-variable", left)
	}
	r.ctx.SetVar(left.ref[0].Name, value)
	return nil
}

// call calls the function name with the arguments above the innermost args
// marker.
func (r *reducer) call(name string) *ast.Error {
	i := len(r.stack) - 1
	for i >= 0 && r.stack[i].typ != tokenArgs {
		i--
	}
	if i < 0 {
		return r.errorf("missing arguments of %s", name)
	}
	args := make([]Node, 0, len(r.stack)-i-1)
	for _, t := range r.stack[i+1:] {
		args = append(args, r.node(t))
	}
	r.stack = r.stack[:i]
	v, err := functions[name](args)
	if err != nil {
		return r.errorf("%s: %s", name, err)
	}
	r.stack = append(r.stack, literalToken(v))
	return nil
}

func unary(kind operatorKind, x Node) token {
	switch kind {
	case opMinus:
		return numberToken(-x.AsNumber())
	case opPlus:
		return numberToken(x.AsNumber())
	case opNot:
		return booleanToken(!x.AsBoolean())
	}
	return numberToken(float64(^toInt32(x.AsNumber())))
}

func (r *reducer) binary(kind operatorKind, x, y Node) (token, *ast.Error) {
	switch kind {
	case opAdd:
		if isStringLike(x) || isStringLike(y) {
			s := x.AsString() + y.AsString()
			if len(s) > r.opts.MaxStringLength {
				return token{}, r.errorf("string exceeds the maximum length of %d", r.opts.MaxStringLength)
			}
			return token{typ: tokenString, str: s}, nil
		}
		return numberToken(x.AsNumber() + y.AsNumber()), nil
	case opSub:
		return numberToken(x.AsNumber() - y.AsNumber()), nil
	case opMul:
		return numberToken(x.AsNumber() * y.AsNumber()), nil
	case opDiv:
		return numberToken(x.AsNumber() / y.AsNumber()), nil
	case opRem:
		return numberToken(math.Mod(x.AsNumber(), y.AsNumber())), nil
	case opPow:
		b, e := x.AsNumber(), y.AsNumber()
		if math.IsNaN(e) {
			return numberToken(math.NaN()), nil
		}
		return numberToken(math.Pow(b, e)), nil
	case opShl:
		return numberToken(float64(toInt32(x.AsNumber()) << (uint32(toInt32(y.AsNumber())) & 31))), nil
	case opShr:
		return numberToken(float64(toInt32(x.AsNumber()) >> (uint32(toInt32(y.AsNumber())) & 31))), nil
	case opBitAnd:
		return numberToken(float64(toInt32(x.AsNumber()) & toInt32(y.AsNumber()))), nil
	case opBitXor:
		return numberToken(float64(toInt32(x.AsNumber()) ^ toInt32(y.AsNumber()))), nil
	case opBitOr:
		return numberToken(float64(toInt32(x.AsNumber()) | toInt32(y.AsNumber()))), nil
	case opLess, opGreater, opLessEqual, opGreaterEqual:
		return booleanToken(compare(kind, x, y)), nil
	case opEqual:
		return booleanToken(looseEquals(x, y)), nil
	case opNotEqual:
		return booleanToken(!looseEquals(x, y)), nil
	case opStrictEqual:
		return booleanToken(strictEquals(x, y)), nil
	case opStrictNotEqual:
		return booleanToken(!strictEquals(x, y)), nil
	case opAnd:
		return booleanToken(x.AsBoolean() && y.AsBoolean()), nil
	case opOr:
		return booleanToken(x.AsBoolean() || y.AsBoolean()), nil
	}
	return token{}, r.errorf("unexpected operator")
}

// isStringLike reports whether n is converted to a string by '+'.
func isStringLike(n Node) bool {
	switch n.Type() {
	case StringType, ArrayType, ObjectType:
		return true
	}
	return false
}

// compare applies a relational operator. Two strings are compared
// lexicographically, other values as numbers.
func compare(kind operatorKind, x, y Node) bool {
	if x.Type() == StringType && y.Type() == StringType {
		c := x.Compare(y)
		switch kind {
		case opLess:
			return c < 0
		case opGreater:
			return c > 0
		case opLessEqual:
			return c <= 0
		}
		return c >= 0
	}
	a, b := x.AsNumber(), y.AsNumber()
	switch kind {
	case opLess:
		return a < b
	case opGreater:
		return a > b
	case opLessEqual:
		return a <= b
	}
	return a >= b
}

// looseEquals implements the == operator.
func looseEquals(x, y Node) bool {
	tx, ty := x.Type(), y.Type()
	if tx == ty {
		return strictEquals(x, y)
	}
	if tx == NullType || ty == NullType {
		return false
	}
	if tx == ArrayType || tx == ObjectType {
		return looseEquals(NewString(x.AsString()), y)
	}
	if ty == ArrayType || ty == ObjectType {
		return looseEquals(x, NewString(y.AsString()))
	}
	return x.AsNumber() == y.AsNumber()
}

// strictEquals implements the === operator.
func strictEquals(x, y Node) bool {
	if x.Type() != y.Type() {
		return false
	}
	if x.Type() == NumberType {
		return x.AsNumber() == y.AsNumber()
	}
	return x.Equals(y)
}

func numberToken(f float64) token {
	return token{typ: tokenNumber, num: f}
}

func booleanToken(b bool) token {
	if b {
		return trueToken
	}
	return falseToken
}

// literalToken returns the literal token of n. Arrays and objects become
// strings.
func literalToken(n Node) token {
	switch n.Type() {
	case BooleanType:
		return booleanToken(n.AsBoolean())
	case NumberType:
		return numberToken(n.AsNumber())
	case StringType, ArrayType, ObjectType:
		return token{typ: tokenString, str: n.AsString()}
	}
	return nullToken
}

// literalNode returns the node of the literal t.
func literalNode(t token) Node {
	switch t.typ {
	case tokenBoolean:
		return NewBoolean(t.b)
	case tokenNumber:
		return NewNumber(t.num)
	case tokenString:
		return NewString(t.str)
	}
	return Null
}
