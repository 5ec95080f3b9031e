// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runtime

import (
	"math"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Squarespace/template-engine-sub000/ast"
)

func mustDecode(t *testing.T, src string) Node {
	t.Helper()
	node, err := DecodeJSON([]byte(src))
	require.NoError(t, err)
	return node
}

func TestNewNode(t *testing.T) {
	type item struct {
		Title string `json:"title"`
		Price int    `json:"price"`
	}
	assert.Equal(t, NullType, NewNode(nil).Type())
	assert.Equal(t, NumberType, NewNode(3).Type())
	assert.Equal(t, NumberType, NewNode(uint8(3)).Type())
	assert.Equal(t, NumberType, NewNode(json.Number("2.5")).Type())
	assert.Equal(t, StringType, NewNode([]byte("abc")).Type())
	assert.Equal(t, ArrayType, NewNode([]string{"a", "b"}).Type())
	assert.Equal(t, ObjectType, NewNode(map[string]int{"a": 1}).Type())
	assert.Equal(t, NullType, NewNode((*item)(nil)).Type())

	n := NewNode(&item{Title: "hat", Price: 20})
	require.Equal(t, ObjectType, n.Type())
	assert.Equal(t, "hat", n.Get("title").AsString())
	assert.Equal(t, 20.0, n.Get("price").AsNumber())

	n = NewNode(json.RawMessage(`{"a":[1,2]}`))
	assert.Equal(t, 2.0, n.Path(ast.ParseReference("a.1")).AsNumber())

	v := NewNode("x")
	assert.Equal(t, v, NewNode(v))
}

func TestNodeNavigation(t *testing.T) {
	n := mustDecode(t, `{"a":{"b":[10,{"c":"d"}]},"1":"one","n":null}`)
	assert.Equal(t, "d", n.Path(ast.ParseReference("a.b.1.c")).AsString())
	assert.Equal(t, "one", n.Index(1).AsString())
	assert.True(t, n.Get("n").IsNull())
	assert.True(t, n.Get("x").IsMissing())
	assert.True(t, n.Path(ast.ParseReference("x.y.z")).IsMissing())
	assert.True(t, n.Path(ast.ParseReference("a.b.5")).IsMissing())
	assert.True(t, Missing.Get("a").IsMissing())
	assert.True(t, Missing.Index(0).IsMissing())
	assert.Equal(t, []string{"1", "a", "n"}, n.Keys())
	assert.Len(t, n.Get("a").Get("b").Elements(), 2)
}

var asStringTests = []struct {
	src      string
	expected string
}{
	{`null`, "null"},
	{`true`, "true"},
	{`12`, "12"},
	{`1.25`, "1.25"},
	{`"abc"`, "abc"},
	{`[1,null,"a",[2,3]]`, "1,,a,2,3"},
	{`{"a":1}`, `{"a":1}`},
}

func TestNodeAsString(t *testing.T) {
	for _, test := range asStringTests {
		assert.Equal(t, test.expected, mustDecode(t, test.src).AsString(), test.src)
	}
	assert.Equal(t, "", Missing.AsString())
}

func TestNodeAsNumber(t *testing.T) {
	assert.Equal(t, 0.0, Null.AsNumber())
	assert.Equal(t, 1.0, True.AsNumber())
	assert.Equal(t, 12.0, NewString(" 12 ").AsNumber())
	assert.Equal(t, 0.0, NewString("").AsNumber())
	assert.Equal(t, 7.0, mustDecode(t, `[7]`).AsNumber())
	assert.Equal(t, 0.0, mustDecode(t, `[]`).AsNumber())
	assert.True(t, math.IsNaN(mustDecode(t, `[1,2]`).AsNumber()))
	assert.True(t, math.IsNaN(mustDecode(t, `{}`).AsNumber()))
	assert.True(t, math.IsNaN(NewString("a").AsNumber()))
	assert.True(t, math.IsNaN(Missing.AsNumber()))
}

func TestNodeTruthiness(t *testing.T) {
	for _, src := range []string{`0`, `""`, `false`, `null`, `[]`, `{}`} {
		assert.False(t, mustDecode(t, src).IsTruthy(), src)
	}
	assert.False(t, Missing.IsTruthy())
	assert.False(t, NewNumber(math.NaN()).IsTruthy())
	assert.False(t, NewNumber(math.Inf(1)).IsTruthy())
	for _, src := range []string{`1`, `-2.5`, `"a"`, `true`, `[1]`, `{"a":1}`} {
		assert.True(t, mustDecode(t, src).IsTruthy(), src)
	}
	assert.True(t, mustDecode(t, `{}`).AsBoolean())
	assert.True(t, mustDecode(t, `[]`).AsBoolean())
	assert.False(t, NewString("").AsBoolean())
}

func TestNodeEqualsAndCompare(t *testing.T) {
	a := mustDecode(t, `{"x":[1,2,{"y":null}]}`)
	b := mustDecode(t, `{"x":[1,2,{"y":null}]}`)
	c := mustDecode(t, `{"x":[1,2,{"y":0}]}`)
	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(c))
	assert.False(t, Null.Equals(Missing))
	assert.True(t, NewNumber(3).Equals(NewNode(3)))

	assert.Equal(t, -1, NewNumber(2).Compare(NewNumber(10)))
	assert.Equal(t, 1, NewString("b").Compare(NewString("a")))
	assert.Equal(t, 0, NewString("a").Compare(NewString("a")))
	assert.Equal(t, -1, False.Compare(True))
	assert.Equal(t, 0, True.Compare(True))
	assert.Equal(t, -1, Null.Compare(NewNumber(0)))
}

func TestNodeMarshalJSON(t *testing.T) {
	n := mustDecode(t, `{"b":[true,null],"a":"x"}`)
	data, err := json.Marshal(n)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"x","b":[true,null]}`, string(data))
}

func TestEncodeJSON(t *testing.T) {
	n := mustDecode(t, `{"b":"<i>&</i>","a":["<"]}`)
	assert.Equal(t, `{"a":["<"],"b":"<i>&</i>"}`, n.AsString())

	data, err := EncodeJSON(n.Value(), "  ")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": [\n    \"<\"\n  ],\n  \"b\": \"<i>&</i>\"\n}", string(data))

	data, err = EncodeJSON("<&>", "")
	require.NoError(t, err)
	assert.Equal(t, `"<&>"`, string(data))
}

func TestVariableSet(t *testing.T) {
	v := NewVariable(ast.ParseReference("a"), NewNumber(1))
	v.Set("x")
	assert.Equal(t, StringType, v.Node().Type())
	v.Set(NewNumber(2))
	assert.Equal(t, 2.0, v.Node().AsNumber())
	assert.Equal(t, "a", v.Name.String())
}
