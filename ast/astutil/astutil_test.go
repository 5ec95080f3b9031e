// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package astutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Squarespace/template-engine-sub000/ast"
	"github.com/Squarespace/template-engine-sub000/internal/compiler"
)

const src = `{.macro m}{x}{.end}` +
	`{.section a}{b|html}{.or}{c}{.end}` +
	`{.repeated section items}{@}{.alternates with}{sep}{.or}{.include m}{.end}` +
	`{.if d && e}{.include p}{.end}` +
	`{.var @v a}{.ctx @c k=f.g}{.include p output}`

func parse(t *testing.T) *ast.Root {
	t.Helper()
	root, errs := compiler.Parse(src)
	require.Empty(t, errs)
	return root
}

func TestInspect(t *testing.T) {
	var ops []ast.Opcode
	nils := 0
	Inspect(parse(t), func(code ast.Code) bool {
		if code == nil {
			nils++
			return false
		}
		ops = append(ops, code.Opcode())
		return code.Opcode() != ast.OpMacro
	})
	assert.Equal(t, []ast.Opcode{
		ast.OpRoot,
		ast.OpMacro,
		ast.OpSection, ast.OpVariable, ast.OpOrPredicate, ast.OpVariable, ast.OpEnd,
		ast.OpRepeated, ast.OpVariable, ast.OpVariable, ast.OpOrPredicate, ast.OpInclude, ast.OpEnd,
		ast.OpIf, ast.OpInclude, ast.OpEnd,
		ast.OpBindvar, ast.OpCtxvar, ast.OpInclude,
		ast.OpEOF,
	}, ops)
	// One for each instruction whose children have been visited.
	assert.Equal(t, len(ops)-1, nils)
}

func TestWalkPanics(t *testing.T) {
	assert.Panics(t, func() { Walk(nil, &ast.Root{}) })
	assert.Panics(t, func() { Walk(inspector(func(ast.Code) bool { return true }), nil) })
}

func TestScanReferences(t *testing.T) {
	root, errs := compiler.Parse(`<h1>{title|html}</h1>` +
		`{.section a}{b}{c.d|json}{.or}{e}{.end}` +
		`{.repeated section items}{name}{.end}` +
		`{.plural? n}s{.end}{.if x || a}{.end}`)
	require.Empty(t, errs)
	refs := ScanReferences(root)
	assert.Equal(t, map[string]int{
		"ROOT": 1, "TEXT": 3, "VARIABLE": 5, "SECTION": 1, "OR_PREDICATE": 1, "END": 4,
		"REPEATED": 1, "PREDICATE": 1, "IF": 1, "EOF": 1,
	}, refs.Instructions)
	assert.Equal(t, map[string]int{"html": 1, "json": 1}, refs.Formatters)
	assert.Equal(t, map[string]int{"plural?": 1}, refs.Predicates)
	assert.Equal(t, 10, refs.TextBytes)
	assert.Equal(t, Scope{
		"title": nil,
		"a":     Scope{"b": nil, "c.d": nil, "e": nil},
		"items": Scope{"name": nil},
		"x":     nil,
	}, refs.Variables)
}

func TestScanReferencesMacro(t *testing.T) {
	refs := ScanReferences(parse(t))
	assert.Equal(t, 1, refs.Instructions["MACRO"])
	assert.Equal(t, 3, refs.Instructions["INCLUDE"])
	assert.Equal(t, 0, refs.TextBytes)
	assert.Equal(t, Scope{
		"x":     nil,
		"a":     Scope{"b": nil, "c": nil},
		"items": Scope{"@": nil, "sep": nil},
		"d":     nil,
		"e":     nil,
		"f.g":   nil,
	}, refs.Variables)
}

func TestIncludes(t *testing.T) {
	assert.Equal(t, []string{"p"}, Includes(parse(t)))
	assert.Empty(t, Includes(&ast.Root{}))
}

func TestClone(t *testing.T) {
	root := parse(t)
	before, err := ast.Marshal(root)
	require.NoError(t, err)
	clone := CloneTree(root)
	after, err := ast.Marshal(clone)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))

	// Changing the clone does not change the original.
	section := clone.Consequents[1].(*ast.Section)
	section.Variable[0].Name = "z"
	section.Consequents[0].(*ast.Variable).Formatters[0].Name = "json"
	again, err := ast.Marshal(root)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(again))

	assert.Nil(t, Clone(nil))
	assert.Equal(t, ast.OpSpace, Clone(ast.OpSpace))
}
