// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package runtime implements the interpreter of compiled template trees:
// the value model, the render context and the expression evaluator.
package runtime

import (
	"strings"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"

	"github.com/Squarespace/template-engine-sub000/ast"
)

// DefaultMaxPartialDepth is the default maximum nesting depth of included
// partials and macros.
const DefaultMaxPartialDepth = 16

// EngineOptions are the options of an Engine.
type EngineOptions struct {

	// Formatters are the formatters by name.
	Formatters map[string]Formatter

	// Predicates are the predicates by name. Names end with '?'.
	Predicates map[string]Predicate

	// Logger receives debug entries. If nil, nothing is logged.
	Logger *zerolog.Logger

	// MaxPartialDepth is the maximum nesting depth of included partials and
	// macros. If zero, it is DefaultMaxPartialDepth.
	MaxPartialDepth int

	// Expr are the limits of the expressions.
	Expr ExprOptions
}

// Engine executes compiled trees. An Engine can be used concurrently by
// several renders, each one with its own Context.
type Engine struct {
	formatters      map[string]Formatter
	predicates      map[string]Predicate
	exprs           cmap.ConcurrentMap[string, *Expr] // compiled expressions by source
	exprOptions     ExprOptions
	maxPartialDepth int
	logger          zerolog.Logger
}

// NewEngine returns a new engine. opts can be nil.
func NewEngine(opts *EngineOptions) *Engine {
	e := &Engine{
		formatters:      map[string]Formatter{},
		predicates:      map[string]Predicate{},
		exprs:           cmap.New[*Expr](),
		maxPartialDepth: DefaultMaxPartialDepth,
		logger:          zerolog.Nop(),
	}
	if opts != nil {
		for name, f := range opts.Formatters {
			e.formatters[name] = f
		}
		for name, p := range opts.Predicates {
			e.predicates[name] = p
		}
		if opts.Logger != nil {
			e.logger = *opts.Logger
		}
		if opts.MaxPartialDepth > 0 {
			e.maxPartialDepth = opts.MaxPartialDepth
		}
		e.exprOptions = opts.Expr
	}
	e.exprOptions = e.exprOptions.withDefaults()
	return e
}

// Formatter returns the formatter with the given name.
func (e *Engine) Formatter(name string) (Formatter, bool) {
	f, ok := e.formatters[name]
	return f, ok
}

// Predicate returns the predicate with the given name.
func (e *Engine) Predicate(name string) (Predicate, bool) {
	p, ok := e.predicates[name]
	return p, ok
}

// Execute executes code appending the output to ctx.
//
// Errors are recorded in ctx. Execute panics only if the tree is corrupt,
// for example if it closes more frames than it opens.
func (e *Engine) Execute(code ast.Code, ctx *Context) {
	ctx.engine = e
	if ctx.maxDepth <= 0 {
		ctx.maxDepth = e.maxPartialDepth
	}
	e.execute(code, ctx)
}

// execute executes a single instruction. A panic in the instruction is
// recorded as an error and the frames and the output buffer are restored.
func (e *Engine) execute(code ast.Code, ctx *Context) {
	if code == nil {
		return
	}
	frames, buf := len(ctx.frames), ctx.buf
	defer func() {
		if r := recover(); r != nil {
			if err, ok := r.(*fatalError); ok {
				panic(err)
			}
			ctx.frames = ctx.frames[:frames]
			ctx.buf = buf
			ctx.Errorf(ast.ErrUnexpected, "%s: %s", code.Opcode(), panicToString(r))
		}
	}()
	switch n := code.(type) {
	case ast.Opcode:
		switch n {
		case ast.OpMetaLeft:
			ctx.Append("{")
		case ast.OpMetaRight:
			ctx.Append("}")
		case ast.OpNewline:
			ctx.Append("\n")
		case ast.OpSpace:
			ctx.Append(" ")
		case ast.OpTab:
			ctx.Append("\t")
		}
	case *ast.Text:
		ctx.Append(n.Text)
	case *ast.Variable:
		vars := e.resolveVariables(n.Variables, ctx)
		e.applyFormatters(n.Formatters, vars, ctx)
		emit(ctx, vars[0].Node())
	case *ast.Section:
		node := ctx.Resolve(n.Variable)
		ctx.Push(node)
		if node.IsTruthy() {
			e.executeBlock(n.Consequents, ctx)
		} else {
			e.execute(n.Alternative, ctx)
		}
		ctx.Pop()
	case *ast.Repeated:
		e.executeRepeated(n, ctx)
	case *ast.Predicate:
		if n.Name == "" || e.test(n, ctx) {
			e.executeBlock(n.Consequents, ctx)
		} else {
			e.execute(n.Alternative, ctx)
		}
	case *ast.If:
		if e.fold(n, ctx) {
			e.executeBlock(n.Consequents, ctx)
		} else {
			e.execute(n.Alternative, ctx)
		}
	case *ast.Bindvar:
		vars := e.resolveVariables(n.Variables, ctx)
		e.applyFormatters(n.Formatters, vars, ctx)
		ctx.SetVar(n.Name, vars[0].Node())
	case *ast.Ctxvar:
		m := make(map[string]any, len(n.Bindings))
		for _, b := range n.Bindings {
			if v := ctx.Resolve(b.Reference); !v.IsMissing() {
				m[b.Name] = v.Value()
			}
		}
		ctx.SetVar(n.Name, NewNode(m))
	case *ast.Inject:
		if v, ok := ctx.Injectable(n.Path); ok {
			ctx.SetVar(n.Name, NewNode(v))
		} else {
			ctx.SetVar(n.Name, Missing)
		}
	case *ast.Macro:
		ctx.Frame().SetMacro(n)
	case *ast.Include:
		if ctx.includeEnabled {
			e.include(n, ctx)
		}
	case *ast.Eval:
		if ctx.exprEnabled {
			e.eval(n, ctx)
		}
	case *ast.Root:
		e.executeBlock(n.Consequents, ctx)
	case *ast.Struct:
		e.executeBlock(n.Consequents, ctx)
	case *ast.Comment, *ast.Atom:
	}
}

func (e *Engine) executeBlock(block ast.Block, ctx *Context) {
	for _, code := range block {
		e.execute(code, ctx)
	}
}

// executeRepeated executes the block of n for each element of the resolved
// array, separated by the alternates-with block.
func (e *Engine) executeRepeated(n *ast.Repeated, ctx *Context) {
	node := ctx.Resolve(n.Variable)
	ctx.Push(node)
	if node.Type() == ArrayType && node.Len() > 0 {
		elements := node.Elements()
		last := len(elements) - 1
		for i, element := range elements {
			f := ctx.Push(element)
			f.index = i
			e.executeBlock(n.Consequents, ctx)
			if i < last {
				e.executeBlock(n.AlternatesWith, ctx)
			}
			ctx.Pop()
		}
	} else {
		e.execute(n.Alternative, ctx)
	}
	ctx.Pop()
}

// fold returns the left-to-right fold of the variables of n. The fold stops
// as soon as an OR operator follows a true value or an AND operator
// follows a false value.
func (e *Engine) fold(n *ast.If, ctx *Context) bool {
	result := ctx.Resolve(n.Variables[0]).IsTruthy()
	for i, op := range n.Operators {
		if op == ast.OperatorOr && result || op == ast.OperatorAnd && !result {
			break
		}
		result = ctx.Resolve(n.Variables[i+1]).IsTruthy()
	}
	return result
}

// test calls the predicate of n. A predicate that does not exist is false.
func (e *Engine) test(n *ast.Predicate, ctx *Context) bool {
	p, ok := e.predicates[n.Name]
	if !ok {
		e.logger.Debug().Str("predicate", n.Name).Msg("predicate does not exist")
		return false
	}
	var args []string
	if n.Args != nil {
		args = n.Args.Values
	}
	return p.Apply(ctx, args)
}

func (e *Engine) resolveVariables(refs []ast.Reference, ctx *Context) []*Variable {
	vars := make([]*Variable, len(refs))
	for i, ref := range refs {
		vars[i] = NewVariable(ref, ctx.Resolve(ref))
	}
	return vars
}

// applyFormatters applies the formatters in order. Formatters that do not
// exist are skipped.
func (e *Engine) applyFormatters(formatters []*ast.Formatter, vars []*Variable, ctx *Context) {
	for _, f := range formatters {
		impl, ok := e.formatters[f.Name]
		if !ok {
			e.logger.Debug().Str("formatter", f.Name).Msg("formatter does not exist")
			continue
		}
		impl.Apply(ctx, f.ArgValues(), vars)
	}
}

// include executes a macro or a partial. Its output is discarded unless
// the "output" argument is given, and it is executed in a frame that stops
// the resolution if the "private" argument is given.
func (e *Engine) include(n *ast.Include, ctx *Context) {
	var block ast.Block
	if m, ok := ctx.lookupMacro(n.Name); ok {
		block = m.Consequents
	} else if root, ok := ctx.lookupPartial(n.Name); ok {
		block = root.Consequents
	} else {
		ctx.Errorf(ast.ErrPartialMissing, "partial %q does not exist", n.Name)
		return
	}
	if !ctx.enterPartial(n.Name) {
		return
	}
	defer ctx.exitPartial(n.Name)
	if n.HasArg("private") {
		f := ctx.Push(ctx.Node())
		f.stopResolution = true
		defer ctx.Pop()
	}
	if !n.HasArg("output") {
		buf := ctx.swapBuffer(&strings.Builder{})
		defer ctx.swapBuffer(buf)
	}
	e.executeBlock(block, ctx)
}

// eval reduces the expression of n in a child frame. The @-variables
// assigned by the expression are copied to the current frame only if the
// reduction succeeds.
func (e *Engine) eval(n *ast.Eval, ctx *Context) {
	expr := e.compile(n.Code)
	if errs := expr.Errors(); len(errs) > 0 {
		for _, err := range errs {
			ctx.AddError(err)
		}
		return
	}
	if expr.Debug() {
		ctx.Append(expr.String())
		ctx.Append(" -> ")
	}
	parent := ctx.Frame()
	child := ctx.Push(parent.node)
	values, err := expr.Reduce(ctx)
	ctx.Pop()
	if err != nil {
		ctx.AddError(err)
		return
	}
	for name, v := range child.variables {
		parent.SetVar(name, v)
	}
	for _, v := range values {
		emit(ctx, v)
	}
}

// compile returns the compiled expression src, compiling it on first use.
func (e *Engine) compile(src string) *Expr {
	if expr, ok := e.exprs.Get(src); ok {
		return expr
	}
	expr := CompileExpr(src, e.exprOptions)
	if !e.exprs.SetIfAbsent(src, expr) {
		expr, _ = e.exprs.Get(src)
	}
	e.logger.Debug().Str("expr", src).Int("errors", len(expr.Errors())).Msg("compiled expression")
	return expr
}

// emit appends node to the output. Null and Missing are not emitted.
func emit(ctx *Context, node Node) {
	switch node.Type() {
	case MissingType, NullType:
		return
	}
	ctx.Append(node.AsString())
}
