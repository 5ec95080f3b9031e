// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package astutil implements methods to walk, clone and inspect compiled
// template trees.
package astutil

import "github.com/Squarespace/template-engine-sub000/ast"

// Visitor's Visit method is invoked for every instruction encountered by
// Walk.
type Visitor interface {
	Visit(code ast.Code) (w Visitor)
}

// Walk visits a tree in depth. Initially it calls v.Visit(code), where code
// must not be nil. If the value w returned by v.Visit(code) is not nil, Walk
// is called recursively with w on the blocks and the alternative of code,
// in this order. Finally it calls w.Visit(nil).
func Walk(v Visitor, code ast.Code) {

	if v == nil {
		panic("v can't be nil")
	}

	if code == nil {
		panic("code can't be nil")
	}

	v = v.Visit(code)

	if v == nil {
		return
	}

	switch n := code.(type) {
	case *ast.Root:
		walkBlock(v, n.Consequents)
		walkCode(v, n.EOF)
	case *ast.Section:
		walkBlock(v, n.Consequents)
		walkCode(v, n.Alternative)
	case *ast.Repeated:
		walkBlock(v, n.Consequents)
		walkBlock(v, n.AlternatesWith)
		walkCode(v, n.Alternative)
	case *ast.Predicate:
		walkBlock(v, n.Consequents)
		walkCode(v, n.Alternative)
	case *ast.If:
		walkBlock(v, n.Consequents)
		walkCode(v, n.Alternative)
	case *ast.Macro:
		walkBlock(v, n.Consequents)
	case *ast.Struct:
		walkBlock(v, n.Consequents)
	}

	v.Visit(nil)
}

func walkBlock(v Visitor, block ast.Block) {
	for _, code := range block {
		walkCode(v, code)
	}
}

func walkCode(v Visitor, code ast.Code) {
	if code != nil {
		Walk(v, code)
	}
}

type inspector func(ast.Code) bool

func (f inspector) Visit(code ast.Code) Visitor {
	if f(code) {
		return f
	}
	return nil
}

// Inspect visits a tree in depth calling f for each instruction. If f
// returns true, Inspect visits the children of the instruction, then calls
// f(nil).
func Inspect(code ast.Code, f func(ast.Code) bool) {
	Walk(inspector(f), code)
}
