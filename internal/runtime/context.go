// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runtime

import (
	"strings"

	"github.com/Squarespace/template-engine-sub000/ast"
	"github.com/Squarespace/template-engine-sub000/internal/compiler"
)

// ContextOptions are the options of a render.
type ContextOptions struct {

	// Partials maps partial names to their template. A value can be the
	// source as string or []byte, an *ast.Root or another ast.Code.
	Partials map[string]any

	// Injectables maps the paths of the INJECT instructions to their values.
	Injectables map[string]any

	// Locale is passed to the plugins.
	Locale Locale

	// EnableExpressions enables the EVAL instruction.
	EnableExpressions bool

	// EnableInclude enables the INCLUDE instruction.
	EnableInclude bool

	// MaxPartialDepth is the maximum nesting depth of included partials and
	// macros. If zero, the engine's maximum is used.
	MaxPartialDepth int
}

// Context is the state of a render. It must not be used by more than one
// goroutine.
type Context struct {
	engine         *Engine
	frames         []*Frame
	buf            *strings.Builder
	partials       map[string]any
	injectables    map[string]any
	compiled       map[string]*ast.Root // partials compiled on first use
	locale         Locale
	depth          int
	maxDepth       int
	inFlight       map[string]bool
	errors         []*ast.Error
	exprEnabled    bool
	includeEnabled bool
}

// NewContext returns a new context whose root frame has node as node in
// focus. opts can be nil.
func NewContext(node Node, opts *ContextOptions) *Context {
	ctx := &Context{
		frames:   []*Frame{newFrame(node)},
		buf:      &strings.Builder{},
		compiled: map[string]*ast.Root{},
		inFlight: map[string]bool{},
	}
	if opts != nil {
		ctx.partials = opts.Partials
		ctx.injectables = opts.Injectables
		ctx.locale = opts.Locale
		ctx.exprEnabled = opts.EnableExpressions
		ctx.includeEnabled = opts.EnableInclude
		ctx.maxDepth = opts.MaxPartialDepth
	}
	return ctx
}

// Frame returns the current frame.
func (ctx *Context) Frame() *Frame {
	return ctx.frames[len(ctx.frames)-1]
}

// Push pushes a new frame with node in focus.
func (ctx *Context) Push(node Node) *Frame {
	f := newFrame(node)
	ctx.frames = append(ctx.frames, f)
	return f
}

// Pop pops the current frame. It panics if the frame is the root frame.
func (ctx *Context) Pop() {
	if len(ctx.frames) == 1 {
		panic(&fatalError{msg: "attempt to pop the root frame"})
	}
	ctx.frames[len(ctx.frames)-1] = nil
	ctx.frames = ctx.frames[:len(ctx.frames)-1]
}

// Node returns the node in focus.
func (ctx *Context) Node() Node {
	return ctx.Frame().node
}

// Resolve resolves the reference ref walking the frames from the current
// one. It returns Missing if ref cannot be resolved.
func (ctx *Context) Resolve(ref ast.Reference) Node {
	if len(ref) == 0 {
		return Missing
	}
	head := ref[0]
	for i := len(ctx.frames) - 1; i >= 0; i-- {
		f := ctx.frames[i]
		if !head.IsIndex && (head.Name == "@index" || head.Name == "@index0") {
			if f.index >= 0 {
				return f.indexNode(head.Name == "@index").Path(ref[1:])
			}
		} else if n, ok := f.resolve(head); ok {
			return n.Path(ref[1:])
		}
		if f.stopResolution {
			break
		}
	}
	return Missing
}

// SetVar sets the @-variable name on the current frame.
func (ctx *Context) SetVar(name string, node Node) {
	ctx.Frame().SetVar(name, node)
}

// Locale returns the locale of the render, or nil.
func (ctx *Context) Locale() Locale {
	return ctx.locale
}

// Injectable returns the injectable with the given path.
func (ctx *Context) Injectable(path string) (any, bool) {
	v, ok := ctx.injectables[path]
	return v, ok
}

// Append appends s to the output.
func (ctx *Context) Append(s string) {
	ctx.buf.WriteString(s)
}

// Output returns the output rendered so far.
func (ctx *Context) Output() string {
	return ctx.buf.String()
}

// swapBuffer replaces the output buffer with buf and returns the previous
// one.
func (ctx *Context) swapBuffer(buf *strings.Builder) *strings.Builder {
	old := ctx.buf
	ctx.buf = buf
	return old
}

// Errorf records an engine error.
func (ctx *Context) Errorf(typ ast.ErrorType, format string, a ...any) {
	ctx.AddError(ast.Errorf(ast.EngineError, typ, format, a...))
}

// AddError records err.
func (ctx *Context) AddError(err *ast.Error) {
	ctx.errors = append(ctx.errors, err)
	if ctx.engine != nil {
		ctx.engine.logger.Debug().Str("type", string(err.Type)).Str("message", err.Message).Msg("engine error")
	}
}

// Errors returns the errors recorded during the render.
func (ctx *Context) Errors() []*ast.Error {
	return ctx.errors
}

// lookupMacro looks up a macro walking the frames from the current one.
func (ctx *Context) lookupMacro(name string) (*ast.Macro, bool) {
	for i := len(ctx.frames) - 1; i >= 0; i-- {
		if m, ok := ctx.frames[i].Macro(name); ok {
			return m, true
		}
		if ctx.frames[i].stopResolution {
			break
		}
	}
	return nil, false
}

// lookupPartial returns the compiled partial name, compiling it on first
// use. A partial that does not compile is recorded as an error and
// replaced by an empty tree.
func (ctx *Context) lookupPartial(name string) (*ast.Root, bool) {
	if root, ok := ctx.compiled[name]; ok {
		return root, true
	}
	v, ok := ctx.partials[name]
	if !ok {
		return nil, false
	}
	var root *ast.Root
	switch v := v.(type) {
	case *ast.Root:
		root = v
	case ast.Code:
		root = &ast.Root{Consequents: ast.Block{v}, EOF: ast.OpEOF}
	case string:
		root = ctx.compilePartial(name, v)
	case []byte:
		root = ctx.compilePartial(name, string(v))
	default:
		ctx.Errorf(ast.ErrPartialParse, "partial %q has unsupported type %T", name, v)
		root = &ast.Root{EOF: ast.OpEOF}
	}
	ctx.compiled[name] = root
	return root, true
}

func (ctx *Context) compilePartial(name, src string) *ast.Root {
	root, errs := compiler.Parse(src)
	if ctx.engine != nil {
		ctx.engine.logger.Debug().Str("partial", name).Int("errors", len(errs)).Msg("compiled partial")
	}
	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, err := range errs {
			msgs[i] = err.Error()
		}
		ctx.Errorf(ast.ErrPartialParse, "partial %q: %s", name, strings.Join(msgs, "; "))
		return &ast.Root{EOF: ast.OpEOF}
	}
	return root
}

// enterPartial marks the partial or macro name as executing. It records an
// error and returns false if name is already executing or the maximum
// depth has been reached.
func (ctx *Context) enterPartial(name string) bool {
	if ctx.inFlight[name] {
		ctx.Errorf(ast.ErrPartialSelfRecursion, "partial %q includes itself", name)
		return false
	}
	if ctx.depth >= ctx.maxDepth {
		ctx.Errorf(ast.ErrPartialRecursionDepth, "partial %q exceeds the maximum depth of %d", name, ctx.maxDepth)
		return false
	}
	ctx.inFlight[name] = true
	ctx.depth++
	return true
}

func (ctx *Context) exitPartial(name string) {
	delete(ctx.inFlight, name)
	ctx.depth--
}

// RenderPartial renders the partial name with node in focus and returns
// its output. If private is true, names not resolved in node are not
// resolved in the enclosing frames. It returns false if the partial does
// not exist or cannot be entered.
func (ctx *Context) RenderPartial(name string, node Node, private bool) (string, bool) {
	if ctx.engine == nil {
		return "", false
	}
	root, ok := ctx.lookupPartial(name)
	if !ok {
		ctx.Errorf(ast.ErrPartialMissing, "partial %q does not exist", name)
		return "", false
	}
	if !ctx.enterPartial(name) {
		return "", false
	}
	defer ctx.exitPartial(name)
	f := ctx.Push(node)
	f.stopResolution = private
	buf := ctx.swapBuffer(&strings.Builder{})
	ctx.engine.execute(root, ctx)
	out := ctx.swapBuffer(buf).String()
	ctx.Pop()
	return out, true
}
