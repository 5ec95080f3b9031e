// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runtime

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/Squarespace/template-engine-sub000/ast"
)

// Type is the type of a Node.
type Type uint8

const (
	MissingType Type = iota
	NullType
	BooleanType
	NumberType
	StringType
	ArrayType
	ObjectType
)

var typeNames = [...]string{"missing", "null", "boolean", "number", "string", "array", "object"}

func (t Type) String() string {
	return typeNames[t]
}

// Node is an immutable value of the data rendered by a template.
//
// Missing is distinct from Null: it is the result of resolving a name that
// does not exist, and navigating it always returns Missing.
type Node struct {
	typ   Type
	value any // bool, float64, string, []any or map[string]any
}

var (
	Missing = Node{}
	Null    = Node{typ: NullType}
	True    = Node{typ: BooleanType, value: true}
	False   = Node{typ: BooleanType, value: false}
)

// NewNumber returns a number node.
func NewNumber(f float64) Node {
	return Node{typ: NumberType, value: f}
}

// NewString returns a string node.
func NewString(s string) Node {
	return Node{typ: StringType, value: s}
}

// NewBoolean returns a boolean node.
func NewBoolean(b bool) Node {
	if b {
		return True
	}
	return False
}

// NewNode returns the node of the Go value v. Maps with string keys become
// objects, slices and arrays become arrays, structs are converted through
// their JSON encoding and json.RawMessage values are decoded. A Node is
// returned unchanged.
func NewNode(v any) Node {
	switch v := v.(type) {
	case Node:
		return v
	case nil:
		return Null
	case bool:
		return NewBoolean(v)
	case float64:
		return NewNumber(v)
	case float32:
		return NewNumber(float64(v))
	case int:
		return NewNumber(float64(v))
	case int8:
		return NewNumber(float64(v))
	case int16:
		return NewNumber(float64(v))
	case int32:
		return NewNumber(float64(v))
	case int64:
		return NewNumber(float64(v))
	case uint:
		return NewNumber(float64(v))
	case uint8:
		return NewNumber(float64(v))
	case uint16:
		return NewNumber(float64(v))
	case uint32:
		return NewNumber(float64(v))
	case uint64:
		return NewNumber(float64(v))
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return NewString(string(v))
		}
		return NewNumber(f)
	case string:
		return NewString(v)
	case json.RawMessage:
		node, err := DecodeJSON(v)
		if err != nil {
			return Missing
		}
		return node
	case []byte:
		return NewString(string(v))
	case []any:
		return Node{typ: ArrayType, value: v}
	case map[string]any:
		return Node{typ: ObjectType, value: v}
	case fmt.Stringer:
		if rv := reflect.ValueOf(v); rv.Kind() != reflect.Struct && rv.Kind() != reflect.Pointer {
			return NewString(v.String())
		}
	}
	return fromReflect(reflect.ValueOf(v))
}

func fromReflect(rv reflect.Value) Node {
	switch rv.Kind() {
	case reflect.Invalid:
		return Null
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null
		}
		return fromReflect(rv.Elem())
	case reflect.Bool:
		return NewBoolean(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return NewNumber(float64(rv.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return NewNumber(float64(rv.Uint()))
	case reflect.Float32, reflect.Float64:
		return NewNumber(rv.Float())
	case reflect.String:
		return NewString(rv.String())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return Null
		}
		s := make([]any, rv.Len())
		for i := range s {
			s[i] = rv.Index(i).Interface()
		}
		return Node{typ: ArrayType, value: s}
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		if rv.IsNil() {
			return Null
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return Node{typ: ObjectType, value: m}
	case reflect.Struct:
		data, err := json.Marshal(rv.Interface())
		if err != nil {
			return Missing
		}
		node, err := DecodeJSON(data)
		if err != nil {
			return Missing
		}
		return node
	}
	return NewString(fmt.Sprint(rv.Interface()))
}

// DecodeJSON decodes a JSON document into a node.
func DecodeJSON(data []byte) (Node, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return Missing, err
	}
	return NewNode(v), nil
}

// Type returns the type of n.
func (n Node) Type() Type { return n.typ }

// Value returns the Go value of n: nil, bool, float64, string, []any or
// map[string]any.
func (n Node) Value() any { return n.value }

// IsMissing reports whether n is Missing.
func (n Node) IsMissing() bool { return n.typ == MissingType }

// IsNull reports whether n is Null.
func (n Node) IsNull() bool { return n.typ == NullType }

// Get returns the property name of an object, or Missing.
func (n Node) Get(name string) Node {
	if n.typ != ObjectType {
		return Missing
	}
	v, ok := n.value.(map[string]any)[name]
	if !ok {
		return Missing
	}
	return NewNode(v)
}

// Index returns the element i of an array, or Missing. Objects are indexed
// by the decimal form of i.
func (n Node) Index(i int) Node {
	switch n.typ {
	case ArrayType:
		s := n.value.([]any)
		if i < 0 || i >= len(s) {
			return Missing
		}
		return NewNode(s[i])
	case ObjectType:
		return n.Get(strconv.Itoa(i))
	}
	return Missing
}

// Path navigates the segments of ref starting from n.
func (n Node) Path(ref ast.Reference) Node {
	for _, seg := range ref {
		if n.typ == MissingType {
			break
		}
		if seg.IsIndex {
			n = n.Index(seg.Index)
		} else {
			n = n.Get(seg.Name)
		}
	}
	return n
}

// Len returns the number of elements of an array, the number of properties
// of an object and the length in bytes of a string. Otherwise it returns 0.
func (n Node) Len() int {
	switch n.typ {
	case ArrayType:
		return len(n.value.([]any))
	case ObjectType:
		return len(n.value.(map[string]any))
	case StringType:
		return len(n.value.(string))
	}
	return 0
}

// Elements returns the elements of an array.
func (n Node) Elements() []Node {
	if n.typ != ArrayType {
		return nil
	}
	s := n.value.([]any)
	elements := make([]Node, len(s))
	for i, v := range s {
		elements[i] = NewNode(v)
	}
	return elements
}

// Keys returns the sorted property names of an object.
func (n Node) Keys() []string {
	if n.typ != ObjectType {
		return nil
	}
	m := n.value.(map[string]any)
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AsString converts n to a string. Missing is the empty string, arrays are
// their comma separated elements and objects their JSON encoding.
func (n Node) AsString() string {
	switch n.typ {
	case MissingType:
		return ""
	case NullType:
		return "null"
	case BooleanType:
		if n.value.(bool) {
			return "true"
		}
		return "false"
	case NumberType:
		return formatNumber(n.value.(float64))
	case StringType:
		return n.value.(string)
	case ArrayType:
		s := n.value.([]any)
		parts := make([]string, len(s))
		for i, v := range s {
			if e := NewNode(v); e.typ != NullType {
				parts[i] = e.AsString()
			}
		}
		return strings.Join(parts, ",")
	}
	data, err := EncodeJSON(n.value, "")
	if err != nil {
		return ""
	}
	return string(data)
}

// String implements fmt.Stringer.
func (n Node) String() string {
	return n.AsString()
}

// AsNumber converts n to a number the way JavaScript does.
func (n Node) AsNumber() float64 {
	switch n.typ {
	case NullType:
		return 0
	case BooleanType:
		if n.value.(bool) {
			return 1
		}
		return 0
	case NumberType:
		return n.value.(float64)
	case StringType:
		return parseNumber(n.value.(string))
	case ArrayType:
		return parseNumber(n.AsString())
	}
	return math.NaN()
}

// AsBoolean converts n to a boolean the way JavaScript does.
func (n Node) AsBoolean() bool {
	switch n.typ {
	case BooleanType:
		return n.value.(bool)
	case NumberType:
		f := n.value.(float64)
		return f != 0 && !math.IsNaN(f)
	case StringType:
		return n.value.(string) != ""
	case ArrayType, ObjectType:
		return true
	}
	return false
}

// IsTruthy reports whether n selects the block of a section: a non-empty
// string, a finite non-zero number, true, a non-empty array or an object
// with at least one property.
func (n Node) IsTruthy() bool {
	switch n.typ {
	case BooleanType:
		return n.value.(bool)
	case NumberType:
		f := n.value.(float64)
		return f != 0 && !math.IsNaN(f) && !math.IsInf(f, 0)
	case StringType, ArrayType, ObjectType:
		return n.Len() > 0
	}
	return false
}

// Equals reports whether n and o are structurally equal.
func (n Node) Equals(o Node) bool {
	if n.typ != o.typ {
		return false
	}
	switch n.typ {
	case MissingType, NullType:
		return true
	case ArrayType:
		a, b := n.value.([]any), o.value.([]any)
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if !NewNode(a[i]).Equals(NewNode(b[i])) {
				return false
			}
		}
		return true
	case ObjectType:
		a, b := n.value.(map[string]any), o.value.(map[string]any)
		if len(a) != len(b) {
			return false
		}
		for k, v := range a {
			w, ok := b[k]
			if !ok || !NewNode(v).Equals(NewNode(w)) {
				return false
			}
		}
		return true
	}
	return n.value == o.value
}

// Compare returns -1, 0 or +1 comparing n and o. Numbers are compared
// numerically, strings lexicographically and false is less than true.
// Values of different types are ordered by type.
func (n Node) Compare(o Node) int {
	if n.typ != o.typ {
		if n.typ < o.typ {
			return -1
		}
		return 1
	}
	switch n.typ {
	case BooleanType:
		a, b := n.value.(bool), o.value.(bool)
		switch {
		case a == b:
			return 0
		case !a:
			return -1
		}
		return 1
	case NumberType:
		a, b := n.value.(float64), o.value.(float64)
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	case StringType:
		return strings.Compare(n.value.(string), o.value.(string))
	case ArrayType, ObjectType:
		return strings.Compare(n.AsString(), o.AsString())
	}
	return 0
}

// MarshalJSON implements the json.Marshaler interface. Missing is encoded
// as null.
func (n Node) MarshalJSON() ([]byte, error) {
	return EncodeJSON(n.value, "")
}

// EncodeJSON returns the JSON encoding of v without escaping the HTML
// characters. If indent is not empty, each element begins on a new line
// indented by one or more copies of indent.
func EncodeJSON(v any, indent string) ([]byte, error) {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(b.Bytes(), []byte("\n")), nil
}
