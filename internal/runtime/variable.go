// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runtime

import "github.com/Squarespace/template-engine-sub000/ast"

// Variable is a resolved variable passed through a chain of formatters.
// Formatters rewrite it calling Set.
type Variable struct {
	Name ast.Reference
	node Node
}

// NewVariable returns a variable with the given name and node.
func NewVariable(name ast.Reference, node Node) *Variable {
	return &Variable{Name: name, node: node}
}

// Node returns the node of v.
func (v *Variable) Node() Node {
	return v.node
}

// Set sets the node of v. A value that is not a Node is converted with
// NewNode.
func (v *Variable) Set(value any) {
	v.node = NewNode(value)
}
