// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runtime

import "github.com/Squarespace/template-engine-sub000/ast"

// Frame is a scope of the frame stack of a Context.
type Frame struct {
	node           Node
	index          int  // iteration index, -1 if not iterating
	stopResolution bool // resolution does not continue to the parent frames
	variables      map[string]Node
	macros         map[string]*ast.Macro
}

func newFrame(node Node) *Frame {
	return &Frame{node: node, index: -1}
}

// Node returns the node in focus.
func (f *Frame) Node() Node {
	return f.node
}

// Index returns the current iteration index, or -1.
func (f *Frame) Index() int {
	return f.index
}

// SetVar sets the @-variable name.
func (f *Frame) SetVar(name string, node Node) {
	if f.variables == nil {
		f.variables = map[string]Node{}
	}
	f.variables[name] = node
}

// Var returns the @-variable name.
func (f *Frame) Var(name string) (Node, bool) {
	node, ok := f.variables[name]
	return node, ok
}

// SetMacro registers the macro m.
func (f *Frame) SetMacro(m *ast.Macro) {
	if f.macros == nil {
		f.macros = map[string]*ast.Macro{}
	}
	f.macros[m.Name] = m
}

// Macro returns the macro with the given name.
func (f *Frame) Macro(name string) (*ast.Macro, bool) {
	m, ok := f.macros[name]
	return m, ok
}

// resolve resolves the first segment of a reference in the frame.
func (f *Frame) resolve(head ast.Segment) (Node, bool) {
	if head.IsIndex {
		n := f.node.Index(head.Index)
		return n, !n.IsMissing()
	}
	name := head.Name
	if name == "@" {
		return f.node, true
	}
	if len(name) > 0 && name[0] == '@' {
		n, ok := f.variables[name]
		return n, ok
	}
	n := f.node.Get(name)
	return n, !n.IsMissing()
}

// indexNode returns the iteration index as a node, 1-based if one is true.
func (f *Frame) indexNode(one bool) Node {
	if one {
		return NewNumber(float64(f.index + 1))
	}
	return NewNumber(float64(f.index))
}

