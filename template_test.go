// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package template

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Squarespace/template-engine-sub000/ast"
)

// renderCase is a render test case read from the testdata directory.
type renderCase struct {
	Name        string            `yaml:"name"`
	Template    string            `yaml:"template"`
	Data        string            `yaml:"data"`
	Partials    map[string]string `yaml:"partials"`
	Include     bool              `yaml:"include"`
	Expressions bool              `yaml:"expressions"`
	Output      string            `yaml:"output"`
	Errors      []string          `yaml:"errors"`
}

func readRenderCases(t *testing.T) []renderCase {
	t.Helper()
	files, err := filepath.Glob(filepath.Join("testdata", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)
	var cases []renderCase
	for _, file := range files {
		data, err := os.ReadFile(file)
		require.NoError(t, err)
		var c []renderCase
		require.NoError(t, yaml.Unmarshal(data, &c), "reading %s", file)
		cases = append(cases, c...)
	}
	return cases
}

func TestRender(t *testing.T) {
	for _, c := range readRenderCases(t) {
		c := c
		t.Run(c.Name, func(t *testing.T) {
			code, errs := Parse(c.Template)
			data := c.Data
			if data == "" {
				data = "{}"
			}
			opts := &Options{EnableInclude: c.Include, EnableExpressions: c.Expressions}
			if c.Partials != nil {
				opts.Partials = map[string]any{}
				for name, src := range c.Partials {
					opts.Partials[name] = src
				}
			}
			out, execErrs := Execute(code, []byte(data), opts)
			errs = append(errs, execErrs...)
			assert.Equal(t, c.Output, out)
			var types []string
			for _, err := range errs {
				types = append(types, string(err.Type))
			}
			assert.Equal(t, c.Errors, types)
		})
	}
}

func TestParseIsPure(t *testing.T) {
	for _, c := range readRenderCases(t) {
		code1, _ := Parse(c.Template)
		code2, _ := Parse(c.Template)
		data1, err := ast.Marshal(code1)
		require.NoError(t, err)
		data2, err := ast.Marshal(code2)
		require.NoError(t, err)
		assert.Equal(t, string(data1), string(data2), "%s", c.Name)
	}
}

func TestBalancedBlocks(t *testing.T) {
	src := `{.section a}{.repeated section b}{@}{.alternates with},{.or}none{.end}` +
		`{.if c}{.macro m}x{.end}{.end}{.equal? a b}y{.or}n{.end}{.end}`
	_, errs := Parse(src)
	require.Empty(t, errs)

	// Removing any END leaves a block unclosed.
	parts := strings.Split(src, "{.end}")
	for i := 0; i < len(parts)-1; i++ {
		broken := strings.Join(parts[:i+1], "{.end}") + strings.Join(parts[i+1:], "{.end}")
		_, errs := Parse(broken)
		var types []ErrorType
		for _, err := range errs {
			types = append(types, err.Type)
		}
		assert.Contains(t, types, ast.ErrEOFInBlock, "removing END %d", i)
	}
}

func TestRecursionDepth(t *testing.T) {
	partials := map[string]any{}
	for i := 0; i < 20; i++ {
		partials[fmt.Sprintf("p%d", i)] = fmt.Sprintf("%d{.include p%d output}", i, i+1)
	}
	code, _ := Parse("{.include p0 output}")
	out, errs := Execute(code, nil, &Options{Partials: partials, EnableInclude: true})
	// The default maximum depth is 16.
	assert.Equal(t, "0123456789101112131415", out)
	require.Len(t, errs, 1)
	assert.Equal(t, ast.ErrPartialRecursionDepth, errs[0].Type)

	engine := NewEngine(&EngineOptions{MaxPartialDepth: 3})
	out, errs = engine.Execute(code, nil, &Options{Partials: partials, EnableInclude: true})
	assert.Equal(t, "012", out)
	require.Len(t, errs, 1)
	assert.Equal(t, ast.ErrPartialRecursionDepth, errs[0].Type)
}

func TestExecuteRoots(t *testing.T) {
	code, _ := Parse("{a}")
	type data struct {
		A int `json:"a"`
	}
	tests := []struct {
		root     any
		expected string
	}{
		{map[string]any{"a": "x"}, "x"},
		{data{A: 3}, "3"},
		{&data{A: 4}, "4"},
		{[]byte(`{"a":true}`), "true"},
		{json.RawMessage(`{"a":[1,2]}`), "1,2"},
		{nil, ""},
		{"a", ""},
	}
	for _, test := range tests {
		out, errs := Execute(code, test.root, nil)
		assert.Empty(t, errs)
		assert.Equal(t, test.expected, out, "root %#v", test.root)
	}

	out, errs := Execute(code, []byte(`{"a":`), nil)
	assert.Equal(t, "", out)
	require.Len(t, errs, 1)
	assert.Equal(t, ast.ErrUnexpected, errs[0].Type)
}

func TestInject(t *testing.T) {
	code, errs := Parse("{.inject @i data/item.json}{.inject @m missing.json}{@i.name}{@m}")
	require.Empty(t, errs)
	out, errs := Execute(code, nil, &Options{
		Injectables: map[string]any{"data/item.json": map[string]any{"name": "x"}},
	})
	assert.Empty(t, errs)
	assert.Equal(t, "x", out)
}

type locale string

func (l locale) LanguageTag() string { return string(l) }

func TestNewEngine(t *testing.T) {
	engine := NewEngine(&EngineOptions{
		Formatters: map[string]Formatter{
			"lang": FormatterFunc(func(ctx *Context, args []string, vars []*Variable) {
				vars[0].Set(ctx.Locale().LanguageTag() + ":" + vars[0].Node().AsString())
			}),
		},
		Predicates: map[string]Predicate{
			"long?": PredicateFunc(func(ctx *Context, args []string) bool {
				return ctx.Node().Len() > 3
			}),
		},
	})
	code, errs := Parse("{.section a}{.long?}{@|lang}{.or}short{.end}{.end}{a|html}")
	require.Empty(t, errs)
	out, errs := engine.Execute(code, map[string]any{"a": "<abcd>"}, &Options{Locale: locale("en-US")})
	assert.Empty(t, errs)
	// html is not a formatter of the engine.
	assert.Equal(t, "en-US:<abcd><abcd>", out)
}

func TestConcurrentExecute(t *testing.T) {
	code, errs := Parse("{.repeated section a}{.eval @ * 2}{.alternates with},{.end}")
	require.Empty(t, errs)
	before, err := ast.Marshal(code)
	require.NoError(t, err)
	var wg sync.WaitGroup
	outs := make([]string, 8)
	for i := range outs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outs[i], _ = Execute(code, map[string]any{"a": []any{i, 1}}, &Options{EnableExpressions: true})
		}(i)
	}
	wg.Wait()
	for i, out := range outs {
		assert.Equal(t, fmt.Sprintf("%d,2", i*2), out)
	}
	after, err := ast.Marshal(code)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}
