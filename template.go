// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package template compiles and executes JSON-T templates.
//
// A template is compiled once with Parse and the resulting tree can be
// executed any number of times, also concurrently, against JSON data
//
//	code, errs := template.Parse(`{.section user}Hello {name|html}!{.end}`)
//	if len(errs) > 0 {
//		// handle the errors, the tree can still be executed
//	}
//	out, errs := template.Execute(code, []byte(`{"user":{"name":"Ann"}}`), nil)
//
// Execute uses an engine with the formatters and predicates of the builtin
// package. Use NewEngine to execute templates with other plugins.
package template

import (
	"reflect"
	"sync"

	"github.com/Squarespace/template-engine-sub000/ast"
	"github.com/Squarespace/template-engine-sub000/builtin"
	"github.com/Squarespace/template-engine-sub000/internal/compiler"
	"github.com/Squarespace/template-engine-sub000/internal/runtime"
)

type (
	// Code is a compiled template tree.
	Code = ast.Code

	// Error is an error that occurred compiling or executing a template.
	Error = ast.Error

	// ErrorType is the type of an Error.
	ErrorType = ast.ErrorType

	// Node is a JSON value.
	Node = runtime.Node

	// Variable is a resolved variable passed to a formatter.
	Variable = runtime.Variable

	// Context is the state of a render passed to the plugins.
	Context = runtime.Context

	// Formatter is a formatter plugin.
	Formatter = runtime.Formatter

	// FormatterFunc is an adapter to use a function as a Formatter.
	FormatterFunc = runtime.FormatterFunc

	// Predicate is a predicate plugin.
	Predicate = runtime.Predicate

	// PredicateFunc is an adapter to use a function as a Predicate.
	PredicateFunc = runtime.PredicateFunc

	// Locale is the locale service of a render.
	Locale = runtime.Locale

	// EngineOptions are the options of an Engine.
	EngineOptions = runtime.EngineOptions

	// ExprOptions are the limits of the expressions of the EVAL instruction.
	ExprOptions = runtime.ExprOptions
)

// Parse compiles src. A tree is always returned, also if there are errors,
// so the caller can decide whether to execute it.
func Parse(src string) (Code, []*Error) {
	root, errs := compiler.Parse(src)
	return root, errs
}

// Options are the options of a render.
type Options struct {

	// Partials maps partial names to their template, as source or as
	// compiled tree.
	Partials map[string]any

	// Injectables maps the paths of the INJECT instructions to their values.
	Injectables map[string]any

	// Locale is passed to the plugins.
	Locale Locale

	// EnableExpressions enables the EVAL instruction. It is disabled by
	// default.
	EnableExpressions bool

	// EnableInclude enables the INCLUDE instruction. It is disabled by
	// default.
	EnableInclude bool
}

// Engine executes compiled templates with a set of formatters and
// predicates. An Engine can be used concurrently.
type Engine struct {
	engine *runtime.Engine
}

// NewEngine returns a new engine. opts can be nil.
func NewEngine(opts *EngineOptions) *Engine {
	return &Engine{engine: runtime.NewEngine(opts)}
}

var (
	defaultEngine     *Engine
	defaultEngineOnce sync.Once
)

// DefaultEngine returns the engine used by Execute. It has the formatters
// and the predicates of the builtin package.
func DefaultEngine() *Engine {
	defaultEngineOnce.Do(func() {
		defaultEngine = NewEngine(&EngineOptions{
			Formatters: builtin.Formatters(),
			Predicates: builtin.Predicates(),
		})
	})
	return defaultEngine
}

// Execute executes code with the default engine. See Engine.Execute.
func Execute(code Code, root any, opts *Options) (string, []*Error) {
	return DefaultEngine().Execute(code, root, opts)
}

// Execute executes code with root as data and returns the output and the
// errors that occurred. root is converted as NewNode does, except that
// []byte and json.RawMessage values are decoded as JSON.
//
// Execute panics only if code is corrupt.
func (e *Engine) Execute(code Code, root any, opts *Options) (string, []*Error) {
	var node Node
	if data, ok := jsonBytes(root); ok {
		n, err := runtime.DecodeJSON(data)
		if err != nil {
			return "", []*Error{ast.Errorf(ast.EngineError, ast.ErrUnexpected, "invalid JSON data: %s", err)}
		}
		node = n
	} else {
		node = runtime.NewNode(root)
	}
	var co *runtime.ContextOptions
	if opts != nil {
		co = &runtime.ContextOptions{
			Partials:          opts.Partials,
			Injectables:       opts.Injectables,
			Locale:            opts.Locale,
			EnableExpressions: opts.EnableExpressions,
			EnableInclude:     opts.EnableInclude,
		}
	}
	ctx := runtime.NewContext(node, co)
	e.engine.Execute(code, ctx)
	return ctx.Output(), ctx.Errors()
}

// jsonBytes returns the bytes of v if its type is []byte or a type, such as
// json.RawMessage, whose underlying type is []byte.
func jsonBytes(v any) ([]byte, bool) {
	if b, ok := v.([]byte); ok {
		return b, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		return rv.Bytes(), true
	}
	return nil, false
}

// NewNode returns the node of the Go value v. See runtime.NewNode.
func NewNode(v any) Node {
	return runtime.NewNode(v)
}
