// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ast

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpcodeString(t *testing.T) {
	assert.Equal(t, "TEXT", OpText.String())
	assert.Equal(t, "OR_PREDICATE", OpOrPredicate.String())
	assert.Equal(t, "INCLUDE", OpInclude.String())
	assert.Equal(t, "NO_MATCH", OpNoMatch.String())
	assert.Equal(t, "Opcode(100)", Opcode(100).String())
}

func TestOpensBlock(t *testing.T) {
	assert.True(t, OpensBlock(&Section{}))
	assert.True(t, OpensBlock(&Predicate{}))
	assert.False(t, OpensBlock(&Predicate{Or: true}))
	assert.True(t, OpensBlock(&Macro{}))
	assert.False(t, OpensBlock(&Text{}))
	assert.False(t, OpensBlock(OpEnd))
	assert.False(t, OpensBlock(&Root{}))
}

var parseReferenceTests = []struct {
	name     string
	expected Reference
}{
	{"", nil},
	{"a", Reference{{Name: "a"}}},
	{"a.b", Reference{{Name: "a"}, {Name: "b"}}},
	{"a.0.b", Reference{{Name: "a"}, {Index: 0, IsIndex: true}, {Name: "b"}}},
	{"@index", Reference{{Name: "@index"}}},
	{"a.-1", Reference{{Name: "a"}, {Name: "-1"}}},
	{"a.2147483648", Reference{{Name: "a"}, {Name: "2147483648"}}},
	{"a.2147483647", Reference{{Name: "a"}, {Index: 2147483647, IsIndex: true}}},
	{"@", Reference{{Name: "@"}}},
}

func TestParseReference(t *testing.T) {
	for _, test := range parseReferenceTests {
		ref := ParseReference(test.name)
		assert.Equal(t, test.expected, ref, "ParseReference(%q)", test.name)
		assert.Equal(t, test.name, ref.String())
	}
	assert.Equal(t, "", ParseReference("0.a").Head())
	assert.Equal(t, "a", ParseReference("a.0").Head())
}

func TestIncludeHasArg(t *testing.T) {
	n := &Include{Name: "p", Args: &Args{Values: []string{"output", "private"}, Delimiter: " "}}
	assert.True(t, n.HasArg("output"))
	assert.True(t, n.HasArg("private"))
	assert.False(t, n.HasArg("other"))
	assert.False(t, (&Include{Name: "p"}).HasArg("output"))
}

func TestError(t *testing.T) {
	err := Errorf(EngineError, ErrPartialMissing, "partial %q does not exist", "x")
	assert.Equal(t, `engine: PARTIAL_MISSING: partial "x" does not exist`, err.Error())
	assert.Equal(t, "assembler", AssemblerError.String())
}

// article is the tree in the package documentation.
var article = &Root{
	Consequents: Block{
		&Section{
			Variable: ParseReference("article"),
			Consequents: Block{
				&Text{Text: "<h1>"},
				&Variable{
					Variables:  []Reference{ParseReference("title")},
					Formatters: []*Formatter{{Name: "html"}},
				},
				&Text{Text: "</h1>"},
			},
			Alternative: OpEnd,
		},
	},
	EOF: OpEOF,
}

func TestMarshal(t *testing.T) {
	data, err := Marshal(article)
	require.NoError(t, err)
	assert.Equal(t, `[17,1,[[2,["article"],[[0,"<h1>"],[1,[["title"]],[["html"]]],[0,"</h1>"]],3]],18]`, string(data))

	data, err = Marshal(&Root{Consequents: Block{&Text{Text: "<b>&amp;</b>"}}, EOF: OpEOF})
	require.NoError(t, err)
	assert.Equal(t, `[17,1,[[0,"<b>&amp;</b>"]],18]`, string(data))
}

var marshalTests = []struct {
	code     Code
	expected string
}{
	{OpSpace, `15`},
	{&Text{Text: "a\nb"}, `[0,"a\nb"]`},
	{&Text{Text: "<b>&amp;</b>"}, `[0,"<b>&amp;</b>"]`},
	{&Variable{Variables: []Reference{ParseReference("a.1"), ParseReference("b")}}, `[1,[["a",1],["b"]],0]`},
	{&Variable{
		Variables:  []Reference{ParseReference("a")},
		Formatters: []*Formatter{{Name: "truncate", Args: &Args{Values: []string{"10", "..."}, Delimiter: " "}}},
	}, `[1,[["a"]],[["truncate",[["10","..."]," "]]]]`},
	{&Repeated{
		Variable:       ParseReference("items"),
		Consequents:    Block{&Variable{Variables: []Reference{ParseReference("@")}}},
		Alternative:    OpEnd,
		AlternatesWith: Block{&Text{Text: ","}},
	}, `[4,["items"],[[1,[["@"]],0]],3,[[0,","]]]`},
	{&Predicate{Name: "plural?", Consequents: Block{}, Alternative: &Predicate{Or: true, Consequents: Block{}, Alternative: OpEnd}},
		`[5,"plural?",0,[],[7,0,0,[],3]]`},
	{&Bindvar{Name: "@a", Variables: []Reference{ParseReference("b")}}, `[6,"@a",[["b"]],0]`},
	{&If{
		Operators:   []Operator{OperatorAnd},
		Variables:   []Reference{ParseReference("a"), ParseReference("b")},
		Consequents: Block{},
		Alternative: OpEnd,
	}, `[8,[1],[["a"],["b"]],[],3]`},
	{&Inject{Name: "@a", Path: "a.json"}, `[9,"@a","a.json",0]`},
	{&Macro{Name: "m", Consequents: Block{OpNewline}}, `[10,"m",[14]]`},
	{&Comment{Text: " x ", Multiline: true}, `[11," x ",1]`},
	{&Ctxvar{Name: "@c", Bindings: []Binding{{Name: "a", Reference: ParseReference("b.c")}}}, `[22,"@c",[["a",["b","c"]]]]`},
	{&Eval{Code: "1+2"}, `[23,"1+2"]`},
	{&Include{Name: "p", Args: &Args{Values: []string{"output"}, Delimiter: " "}}, `[24,"p",[["output"]," "]]`},
	{&Atom{Opaque: "x"}, `[21,"x"]`},
	{&Struct{Opaque: nil, Consequents: Block{}}, `[20,null,[]]`},
}

func TestMarshalRoundTrip(t *testing.T) {
	for _, test := range marshalTests {
		data, err := Marshal(test.code)
		require.NoError(t, err)
		assert.Equal(t, test.expected, string(data))
		code, err := Unmarshal(data)
		require.NoError(t, err, "unmarshaling %s", data)
		assert.Equal(t, test.code.Opcode(), code.Opcode())
		again, err := Marshal(code)
		require.NoError(t, err)
		assert.Equal(t, test.expected, string(again))
	}
}

func TestUnmarshal(t *testing.T) {
	code, err := Unmarshal([]byte(`[17,1,[[2,["article"],[[0,"<h1>"],[1,[["title"]],[["html"]]],[0,"</h1>"]],3]],18]`))
	require.NoError(t, err)
	root, ok := code.(*Root)
	require.True(t, ok)
	require.Len(t, root.Consequents, 1)
	section := root.Consequents[0].(*Section)
	assert.Equal(t, ParseReference("article"), section.Variable)
	assert.Equal(t, OpEnd, section.Alternative)
	assert.Equal(t, &Text{Text: "<h1>"}, section.Consequents[0])
	v := section.Consequents[1].(*Variable)
	assert.Equal(t, "html", v.Formatters[0].Name)
	assert.Nil(t, v.Formatters[0].Args)
	assert.Equal(t, OpEOF, root.EOF)
}

func TestUnmarshalErrors(t *testing.T) {
	tests := []string{
		`"x"`,
		`1`,
		`[]`,
		`[0]`,
		`[0,1]`,
		`[99,"x"]`,
		`[17,2,[],18]`,
		`[1,[["a"]],[[]]]`,
		`[24,"p",[["a"]]]`,
		`[22,"@c",[["a"]]]`,
	}
	for _, src := range tests {
		_, err := Unmarshal([]byte(src))
		assert.True(t, errors.Is(err, errShape), "Unmarshal(%s): %v", src, err)
	}
	_, err := Unmarshal([]byte(`[0,`))
	assert.Error(t, err)
}

func TestSprint(t *testing.T) {
	expected := `ROOT
  block:
    SECTION article
      block:
        TEXT "<h1>"
        VARIABLE title|html
        TEXT "</h1>"
      alternative:
        END
  EOF
`
	assert.Equal(t, expected, Sprint(article))
	assert.Equal(t, "IF a && b\n  block:\n", Sprint(&If{
		Operators: []Operator{OperatorAnd},
		Variables: []Reference{ParseReference("a"), ParseReference("b")},
	}))
	assert.Equal(t, "INCLUDE p \" \" \"output private\"\n",
		Sprint(&Include{Name: "p", Args: &Args{Values: []string{"output", "private"}, Delimiter: " "}}))
}
