// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runtime

import (
	"errors"
	"math"
)

var (
	errNoArguments    = errors.New("expected at least one argument")
	errArgumentNumber = errors.New("expected exactly one argument")
)

// functions are the functions that can be called in expressions.
var functions = map[string]func(args []Node) (Node, error){
	"abs":  unaryFunction(func(n Node) Node { return NewNumber(math.Abs(n.AsNumber())) }),
	"bool": unaryFunction(func(n Node) Node { return NewBoolean(n.AsBoolean()) }),
	"max":  extremum(math.Max),
	"min":  extremum(math.Min),
	"num":  unaryFunction(func(n Node) Node { return NewNumber(n.AsNumber()) }),
	"str":  unaryFunction(func(n Node) Node { return NewString(n.AsString()) }),
}

func unaryFunction(f func(n Node) Node) func(args []Node) (Node, error) {
	return func(args []Node) (Node, error) {
		if len(args) != 1 {
			return Missing, errArgumentNumber
		}
		return f(args[0]), nil
	}
}

// extremum returns a function that folds its numeric arguments with f.
func extremum(f func(x, y float64) float64) func(args []Node) (Node, error) {
	return func(args []Node) (Node, error) {
		if len(args) == 0 {
			return Missing, errNoArguments
		}
		r := args[0].AsNumber()
		for _, arg := range args[1:] {
			r = f(r, arg.AsNumber())
		}
		return NewNumber(r), nil
	}
}
