// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package astutil

import (
	"sort"

	"github.com/Squarespace/template-engine-sub000/ast"
)

// Scope is the shape of the variables referenced in a scope. The name of
// the variable of a section or a repeated section maps to the scope of its
// blocks, other names map to nil.
type Scope map[string]Scope

// References describes what a tree references.
type References struct {
	Instructions map[string]int // instruction counts by opcode name
	Formatters   map[string]int // formatter calls by name
	Predicates   map[string]int // predicate calls by name
	TextBytes    int            // total length of the literal text
	Variables    Scope
}

// ScanReferences returns the references of the tree code.
func ScanReferences(code ast.Code) *References {
	refs := &References{
		Instructions: map[string]int{},
		Formatters:   map[string]int{},
		Predicates:   map[string]int{},
		Variables:    Scope{},
	}
	refs.scan(code, refs.Variables)
	return refs
}

func (refs *References) scan(code ast.Code, scope Scope) {
	if code == nil {
		return
	}
	refs.Instructions[code.Opcode().String()]++
	switch n := code.(type) {
	case *ast.Root:
		refs.scanBlock(n.Consequents, scope)
		refs.scan(n.EOF, scope)
	case *ast.Text:
		refs.TextBytes += len(n.Text)
	case *ast.Variable:
		scope.addAll(n.Variables)
		refs.addFormatters(n.Formatters)
	case *ast.Bindvar:
		scope.addAll(n.Variables)
		refs.addFormatters(n.Formatters)
	case *ast.Section:
		child := scope.open(n.Variable)
		refs.scanBlock(n.Consequents, child)
		refs.scan(n.Alternative, child)
	case *ast.Repeated:
		child := scope.open(n.Variable)
		refs.scanBlock(n.Consequents, child)
		refs.scanBlock(n.AlternatesWith, child)
		refs.scan(n.Alternative, child)
	case *ast.Predicate:
		if n.Name != "" {
			refs.Predicates[n.Name]++
		}
		refs.scanBlock(n.Consequents, scope)
		refs.scan(n.Alternative, scope)
	case *ast.If:
		scope.addAll(n.Variables)
		refs.scanBlock(n.Consequents, scope)
		refs.scan(n.Alternative, scope)
	case *ast.Ctxvar:
		for _, b := range n.Bindings {
			scope.add(b.Reference)
		}
	case *ast.Macro:
		refs.scanBlock(n.Consequents, scope)
	case *ast.Struct:
		refs.scanBlock(n.Consequents, scope)
	}
}

func (refs *References) scanBlock(block ast.Block, scope Scope) {
	for _, code := range block {
		refs.scan(code, scope)
	}
}

func (refs *References) addFormatters(formatters []*ast.Formatter) {
	for _, f := range formatters {
		refs.Formatters[f.Name]++
	}
}

// add adds the name of ref to the scope.
func (s Scope) add(ref ast.Reference) {
	if len(ref) == 0 {
		return
	}
	name := ref.String()
	if _, ok := s[name]; !ok {
		s[name] = nil
	}
}

func (s Scope) addAll(refs []ast.Reference) {
	for _, ref := range refs {
		s.add(ref)
	}
}

// open returns the scope of ref, adding it if it does not exist.
func (s Scope) open(ref ast.Reference) Scope {
	name := ref.String()
	child := s[name]
	if child == nil {
		child = Scope{}
		s[name] = child
	}
	return child
}

// Includes returns the sorted names of the partials and macros included by
// the tree, excluding the macros it defines.
func Includes(code ast.Code) []string {
	macros := map[string]bool{}
	included := map[string]bool{}
	Inspect(code, func(code ast.Code) bool {
		switch n := code.(type) {
		case *ast.Macro:
			macros[n.Name] = true
		case *ast.Include:
			included[n.Name] = true
		}
		return true
	})
	names := make([]string, 0, len(included))
	for name := range included {
		if !macros[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
