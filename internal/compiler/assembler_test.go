// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Squarespace/template-engine-sub000/ast"
)

func TestAssemblerComplete(t *testing.T) {
	a := NewAssembler()
	section := &ast.Section{Variable: ast.ParseReference("a")}
	a.Accept(section)
	a.Accept(&ast.Text{Text: "x"})
	assert.False(t, a.Complete())
	a.Accept(ast.OpEnd)
	assert.False(t, a.Complete())
	a.Accept(ast.OpEOF)
	assert.True(t, a.Complete())
	assert.Empty(t, a.Errors())

	// Instructions after EOF are ignored.
	a.Accept(&ast.Text{Text: "y"})
	assert.Equal(t, ast.Block{section}, a.Root().Consequents)
	assert.Equal(t, ast.OpEnd, section.Alternative)
	assert.Equal(t, ast.OpEOF, a.Root().EOF)
}

func TestAssemblerDead(t *testing.T) {
	a := NewAssembler()
	a.Accept(&ast.Macro{Name: "m"})
	a.Accept(ast.OpEOF)
	assert.False(t, a.Complete())
	require.Len(t, a.Errors(), 1)
	assert.Equal(t, ast.ErrEOFInBlock, a.Errors()[0].Type)
	assert.Equal(t, "assembler: EOF_IN_BLOCK: reached EOF in an unclosed MACRO block", a.Errors()[0].Error())
	a.Accept(ast.OpEnd)
	assert.Len(t, a.Errors(), 1)
	assert.Nil(t, a.Root().EOF)
}

func TestAssemblerStateRestore(t *testing.T) {
	// A block opened in the alternates-with block of a repeated section
	// returns to it when closed.
	root, errs := Parse("{.repeated section a}x{.alternates with}{.section b}y{.end}z{.end}")
	require.Empty(t, errs)
	r := root.Consequents[0].(*ast.Repeated)
	assert.Equal(t, ast.Block{&ast.Text{Text: "x"}}, r.Consequents)
	require.Len(t, r.AlternatesWith, 2)
	assert.Equal(t, &ast.Text{Text: "z"}, r.AlternatesWith[1])
	assert.Equal(t, ast.OpEnd, r.Alternative)
}

func TestAssemblerOrChain(t *testing.T) {
	root, errs := Parse("{.if a}1{.or b?}2{.or}3{.end}")
	require.Empty(t, errs)
	n := root.Consequents[0].(*ast.If)
	p1 := n.Alternative.(*ast.Predicate)
	assert.True(t, p1.Or)
	assert.Equal(t, "b?", p1.Name)
	p2 := p1.Alternative.(*ast.Predicate)
	assert.True(t, p2.Or)
	assert.Equal(t, "", p2.Name)
	assert.Equal(t, ast.Block{&ast.Text{Text: "3"}}, p2.Consequents)
	assert.Equal(t, ast.OpEnd, p2.Alternative)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "alternates-with", stateAlternatesWith.String())
	assert.Equal(t, stateRepeated, stateOf(&ast.Repeated{}))
	assert.Equal(t, stateBlock, stateOf(&ast.Macro{}))
}
