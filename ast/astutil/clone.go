// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package astutil

import (
	"fmt"

	"github.com/Squarespace/template-engine-sub000/ast"
)

// CloneTree returns a complete copy of root.
func CloneTree(root *ast.Root) *ast.Root {
	return Clone(root).(*ast.Root)
}

// Clone returns a deep copy of code. Opaque payloads of Struct and Atom
// instructions are shared.
func Clone(code ast.Code) ast.Code {
	switch n := code.(type) {
	case nil:
		return nil
	case ast.Opcode:
		return n
	case *ast.Root:
		return &ast.Root{Consequents: cloneBlock(n.Consequents), EOF: Clone(n.EOF)}
	case *ast.Text:
		return &ast.Text{Text: n.Text}
	case *ast.Variable:
		return &ast.Variable{Variables: cloneReferences(n.Variables), Formatters: cloneFormatters(n.Formatters)}
	case *ast.Section:
		return &ast.Section{
			Variable:    cloneReference(n.Variable),
			Consequents: cloneBlock(n.Consequents),
			Alternative: Clone(n.Alternative),
		}
	case *ast.Repeated:
		return &ast.Repeated{
			Variable:       cloneReference(n.Variable),
			Consequents:    cloneBlock(n.Consequents),
			Alternative:    Clone(n.Alternative),
			AlternatesWith: cloneBlock(n.AlternatesWith),
		}
	case *ast.Predicate:
		return &ast.Predicate{
			Or:          n.Or,
			Name:        n.Name,
			Args:        cloneArgs(n.Args),
			Consequents: cloneBlock(n.Consequents),
			Alternative: Clone(n.Alternative),
		}
	case *ast.Bindvar:
		return &ast.Bindvar{Name: n.Name, Variables: cloneReferences(n.Variables), Formatters: cloneFormatters(n.Formatters)}
	case *ast.If:
		var operators []ast.Operator
		if n.Operators != nil {
			operators = make([]ast.Operator, len(n.Operators))
			copy(operators, n.Operators)
		}
		return &ast.If{
			Operators:   operators,
			Variables:   cloneReferences(n.Variables),
			Consequents: cloneBlock(n.Consequents),
			Alternative: Clone(n.Alternative),
		}
	case *ast.Inject:
		return &ast.Inject{Name: n.Name, Path: n.Path, Args: cloneArgs(n.Args)}
	case *ast.Macro:
		return &ast.Macro{Name: n.Name, Consequents: cloneBlock(n.Consequents)}
	case *ast.Comment:
		return &ast.Comment{Text: n.Text, Multiline: n.Multiline}
	case *ast.Struct:
		return &ast.Struct{Opaque: n.Opaque, Consequents: cloneBlock(n.Consequents)}
	case *ast.Atom:
		return &ast.Atom{Opaque: n.Opaque}
	case *ast.Ctxvar:
		var bindings []ast.Binding
		if n.Bindings != nil {
			bindings = make([]ast.Binding, len(n.Bindings))
			for i, b := range n.Bindings {
				bindings[i] = ast.Binding{Name: b.Name, Reference: cloneReference(b.Reference)}
			}
		}
		return &ast.Ctxvar{Name: n.Name, Bindings: bindings}
	case *ast.Eval:
		return &ast.Eval{Code: n.Code}
	case *ast.Include:
		return &ast.Include{Name: n.Name, Args: cloneArgs(n.Args)}
	default:
		panic(fmt.Sprintf("unexpected code type %T", code))
	}
}

func cloneBlock(block ast.Block) ast.Block {
	if block == nil {
		return nil
	}
	b := make(ast.Block, len(block))
	for i, code := range block {
		b[i] = Clone(code)
	}
	return b
}

func cloneReference(ref ast.Reference) ast.Reference {
	if ref == nil {
		return nil
	}
	r := make(ast.Reference, len(ref))
	copy(r, ref)
	return r
}

func cloneReferences(refs []ast.Reference) []ast.Reference {
	if refs == nil {
		return nil
	}
	r := make([]ast.Reference, len(refs))
	for i, ref := range refs {
		r[i] = cloneReference(ref)
	}
	return r
}

func cloneFormatters(formatters []*ast.Formatter) []*ast.Formatter {
	if formatters == nil {
		return nil
	}
	f := make([]*ast.Formatter, len(formatters))
	for i, formatter := range formatters {
		f[i] = &ast.Formatter{Name: formatter.Name, Args: cloneArgs(formatter.Args)}
	}
	return f
}

func cloneArgs(args *ast.Args) *ast.Args {
	if args == nil {
		return nil
	}
	values := make([]string, len(args.Values))
	copy(values, args.Values)
	return &ast.Args{Values: values, Delimiter: args.Delimiter}
}
