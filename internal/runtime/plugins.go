// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runtime

// Formatter is a plugin that rewrites resolved variables before they are
// emitted. It receives all the variables of the instruction and usually
// rewrites only the first one.
type Formatter interface {
	Apply(ctx *Context, args []string, vars []*Variable)
}

// FormatterFunc is an adapter to use a function as a Formatter.
type FormatterFunc func(ctx *Context, args []string, vars []*Variable)

func (f FormatterFunc) Apply(ctx *Context, args []string, vars []*Variable) {
	f(ctx, args, vars)
}

// Predicate is a named boolean plugin.
type Predicate interface {
	Apply(ctx *Context, args []string) bool
}

// PredicateFunc is an adapter to use a function as a Predicate.
type PredicateFunc func(ctx *Context, args []string) bool

func (f PredicateFunc) Apply(ctx *Context, args []string) bool {
	return f(ctx, args)
}

// Locale is the locale service of a render. The engine only carries it to
// the plugins.
type Locale interface {
	LanguageTag() string
}
