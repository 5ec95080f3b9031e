// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runtime

import (
	"strconv"
	"strings"

	"github.com/Squarespace/template-engine-sub000/ast"
)

// ExprOptions are the limits of the expression compiler.
type ExprOptions struct {

	// MaxTokens is the maximum number of tokens of an expression. If zero,
	// it is 500.
	MaxTokens int

	// MaxStringLength is the maximum length in bytes of a string literal or
	// of the result of a concatenation. If zero, it is 10000.
	MaxStringLength int
}

const (
	defaultMaxTokens       = 500
	defaultMaxStringLength = 10000
)

func (opts ExprOptions) withDefaults() ExprOptions {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.MaxStringLength <= 0 {
		opts.MaxStringLength = defaultMaxStringLength
	}
	return opts
}

// tokenType is the type of an expression token.
type tokenType uint8

const (
	tokenOperator tokenType = iota
	tokenNull
	tokenNumber
	tokenBoolean
	tokenString
	tokenVariable
	tokenCall
	tokenArgs
)

// token is an expression token.
type token struct {
	typ tokenType
	op  *operator     // operator
	num float64       // number
	b   bool          // boolean
	str string        // string, function name
	ref ast.Reference // variable
}

var (
	nullToken  = token{typ: tokenNull}
	argsToken  = token{typ: tokenArgs}
	trueToken  = token{typ: tokenBoolean, b: true}
	falseToken = token{typ: tokenBoolean}
)

// isLiteral reports whether t is a null, number, boolean or string token.
func (t token) isLiteral() bool {
	return tokenNull <= t.typ && t.typ <= tokenString
}

func (t token) String() string {
	switch t.typ {
	case tokenOperator:
		return t.op.String()
	case tokenNull:
		return "null"
	case tokenNumber:
		return formatNumber(t.num)
	case tokenBoolean:
		return strconv.FormatBool(t.b)
	case tokenString:
		return strconv.Quote(t.str)
	case tokenVariable:
		return t.ref.String()
	case tokenCall:
		return t.str + "()"
	}
	return "<args>"
}

// Expr is a compiled expression. It has one or more sub-expressions,
// separated by ';' in the source, each one in reverse Polish notation.
//
// An Expr is immutable and can be reduced concurrently by several renders.
type Expr struct {
	src    string
	debug  bool
	exprs  [][]token
	errors []*ast.Error
	opts   ExprOptions
}

// CompileExpr compiles the expression src. A leading '#' marks the
// expression for debug. Errors are returned by the Errors method of the
// returned Expr.
func CompileExpr(src string, opts ExprOptions) *Expr {
	e := &Expr{src: src, opts: opts.withDefaults()}
	s := strings.TrimSpace(src)
	if strings.HasPrefix(s, "#") {
		e.debug = true
		s = s[1:]
	}
	tokens, err := tokenize(s, e.opts)
	if err != nil {
		e.errors = append(e.errors, err)
		return e
	}
	e.exprs, err = assemble(tokens)
	if err != nil {
		e.errors = append(e.errors, err)
	}
	return e
}

// Errors returns the compilation errors.
func (e *Expr) Errors() []*ast.Error {
	return e.errors
}

// Debug reports whether the expression has been marked for debug.
func (e *Expr) Debug() bool {
	return e.debug
}

// String returns the compiled form of e, its sub-expressions in reverse
// Polish notation separated by "; ".
func (e *Expr) String() string {
	var b strings.Builder
	for i, tokens := range e.exprs {
		if i > 0 {
			b.WriteString("; ")
		}
		for j, t := range tokens {
			if j > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(t.String())
		}
	}
	return b.String()
}
