// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package builtin provides the core formatters and predicates.
//
// For example, to create an engine with all the formatters and predicates
// of this package
//
//	engine := template.NewEngine(&template.EngineOptions{
//		Formatters: builtin.Formatters(),
//		Predicates: builtin.Predicates(),
//	})
//
// And to use them in a template
//
//	{title|html}
//	{.plural? total}items{.or}item{.end}
package builtin

import (
	"bytes"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"

	"github.com/Squarespace/template-engine-sub000/ast"
	"github.com/Squarespace/template-engine-sub000/internal/runtime"
)

// Formatters returns the formatters of this package by name.
func Formatters() map[string]runtime.Formatter {
	return map[string]runtime.Formatter{
		"apply":       runtime.FormatterFunc(apply),
		"capitalize":  stringFormatter(capitalize),
		"count":       runtime.FormatterFunc(count),
		"html":        stringFormatter(htmlEscape),
		"htmlattr":    stringFormatter(attributeEscape),
		"json":        runtime.FormatterFunc(jsonFormatter),
		"json-pretty": runtime.FormatterFunc(jsonPretty),
		"markdown":    runtime.FormatterFunc(markdown),
		"truncate":    runtime.FormatterFunc(truncate),
		"url-encode":  stringFormatter(queryEscape),
	}
}

// Predicates returns the predicates of this package by name.
func Predicates() map[string]runtime.Predicate {
	return map[string]runtime.Predicate{
		"equal?":    runtime.PredicateFunc(equal),
		"even?":     numberPredicate(func(n int64) bool { return n%2 == 0 }),
		"odd?":      numberPredicate(func(n int64) bool { return n%2 != 0 }),
		"plural?":   numberPredicate(func(n int64) bool { return n > 1 }),
		"singular?": numberPredicate(func(n int64) bool { return n == 1 }),
	}
}

// stringFormatter returns a formatter that rewrites the first variable, as
// string, with f. Missing and null variables are left unchanged.
func stringFormatter(f func(s string) string) runtime.Formatter {
	return runtime.FormatterFunc(func(ctx *runtime.Context, args []string, vars []*runtime.Variable) {
		n := vars[0].Node()
		if n.IsMissing() || n.IsNull() {
			return
		}
		vars[0].Set(f(n.AsString()))
	})
}

// apply renders the partial named by the first argument with the variable
// as node in focus. A second argument "private" stops the resolution of
// names at the partial.
func apply(ctx *runtime.Context, args []string, vars []*runtime.Variable) {
	if len(args) == 0 {
		ctx.Errorf(ast.ErrFormatter, "apply: missing partial name")
		return
	}
	private := len(args) > 1 && args[1] == "private"
	out, ok := ctx.RenderPartial(args[0], vars[0].Node(), private)
	if !ok {
		vars[0].Set(runtime.Missing)
		return
	}
	vars[0].Set(out)
}

// capitalize returns s with the first letter in upper case.
func capitalize(s string) string {
	for i, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		if unicode.IsUpper(r) {
			return s
		}
		u := unicode.ToUpper(r)
		var b strings.Builder
		b.Grow(len(s))
		b.WriteString(s[:i])
		b.WriteRune(u)
		b.WriteString(s[i+utf8.RuneLen(r):])
		return b.String()
	}
	return s
}

// count returns the number of elements of an array or the number of
// properties of an object. It returns 0 for other values.
func count(ctx *runtime.Context, args []string, vars []*runtime.Variable) {
	n := vars[0].Node()
	switch n.Type() {
	case runtime.ArrayType, runtime.ObjectType:
		vars[0].Set(n.Len())
	default:
		vars[0].Set(0)
	}
}

func jsonFormatter(ctx *runtime.Context, args []string, vars []*runtime.Variable) {
	n := vars[0].Node()
	if n.IsMissing() {
		return
	}
	data, err := runtime.EncodeJSON(n.Value(), "")
	if err != nil {
		ctx.Errorf(ast.ErrFormatter, "json: %s", err)
		return
	}
	vars[0].Set(string(data))
}

func jsonPretty(ctx *runtime.Context, args []string, vars []*runtime.Variable) {
	n := vars[0].Node()
	if n.IsMissing() {
		return
	}
	data, err := runtime.EncodeJSON(n.Value(), "  ")
	if err != nil {
		ctx.Errorf(ast.ErrFormatter, "json-pretty: %s", err)
		return
	}
	vars[0].Set(string(data))
}

// markdown converts the variable from Markdown to HTML.
func markdown(ctx *runtime.Context, args []string, vars []*runtime.Variable) {
	n := vars[0].Node()
	if n.IsMissing() || n.IsNull() {
		return
	}
	var b bytes.Buffer
	if err := goldmark.Convert([]byte(n.AsString()), &b); err != nil {
		ctx.Errorf(ast.ErrFormatter, "markdown: %s", err)
		return
	}
	vars[0].Set(b.String())
}

// truncate abbreviates the variable to at most the number of bytes of the
// first argument, ending it with the second argument or "...". It cuts at
// the last space that fits.
func truncate(ctx *runtime.Context, args []string, vars []*runtime.Variable) {
	n := vars[0].Node()
	if n.IsMissing() || n.IsNull() {
		return
	}
	length := 100
	if len(args) > 0 {
		m, err := strconv.Atoi(strings.TrimSpace(args[0]))
		if err != nil {
			ctx.Errorf(ast.ErrFormatter, "truncate: invalid length %q", args[0])
			return
		}
		length = m
	}
	ellipsis := "..."
	if len(args) > 1 {
		ellipsis = args[1]
	}
	vars[0].Set(abbreviate(n.AsString(), length, ellipsis))
}

// abbreviate abbreviates s to at most n bytes, ending it with ellipsis if
// it has been cut.
func abbreviate(s string, n int, ellipsis string) string {
	const spaces = " \n\r\t\f"
	s = strings.TrimRight(s, spaces)
	if len(s) <= n {
		return s
	}
	if n < len(ellipsis) {
		return ""
	}
	cut := n - len(ellipsis)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if p := strings.LastIndexAny(s[:cut+1], spaces); p > 0 {
		cut = p
	}
	s = strings.TrimRight(s[:cut], spaces)
	if l := len(s) - 1; l >= 0 && (s[l] == '.' || s[l] == ',') {
		s = s[:l]
	}
	return s + ellipsis
}

// resolveArg resolves a predicate argument. JSON literals are decoded,
// other arguments are resolved as variables.
func resolveArg(ctx *runtime.Context, arg string) runtime.Node {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return runtime.Missing
	}
	switch c := arg[0]; {
	case c == '"' || c == '-' || '0' <= c && c <= '9', arg == "true", arg == "false", arg == "null":
		if n, err := runtime.DecodeJSON([]byte(arg)); err == nil {
			return n
		}
	}
	return ctx.Resolve(ast.ParseReference(arg))
}

// equal reports whether its two arguments are equal. With one argument, it
// compares the node in focus with the argument.
func equal(ctx *runtime.Context, args []string) bool {
	switch len(args) {
	case 1:
		return ctx.Node().Equals(resolveArg(ctx, args[0]))
	case 2:
		return resolveArg(ctx, args[0]).Equals(resolveArg(ctx, args[1]))
	}
	return false
}

// numberPredicate returns a predicate that tests an integer with f. The
// integer is the first argument, or the node in focus if there are no
// arguments.
func numberPredicate(f func(n int64) bool) runtime.Predicate {
	return runtime.PredicateFunc(func(ctx *runtime.Context, args []string) bool {
		node := ctx.Node()
		if len(args) > 0 {
			node = resolveArg(ctx, args[0])
		}
		if node.Type() != runtime.NumberType && node.Type() != runtime.StringType {
			return false
		}
		x := node.AsNumber()
		if x != float64(int64(x)) {
			return false
		}
		return f(int64(x))
	})
}
