// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ast

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// formatVersion is the version stored in the persisted form of a Root.
const formatVersion = 1

// Marshal returns the persisted JSON form of code: nested arrays whose
// first element is the opcode, and bare opcodes for atomic instructions.
// HTML characters in strings are not escaped.
func Marshal(code Code) ([]byte, error) {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(encode(code)); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(b.Bytes(), []byte("\n")), nil
}

// Unmarshal parses the persisted JSON form of a tree.
func Unmarshal(data []byte) (Code, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return decode(v)
}

func encode(code Code) any {
	switch n := code.(type) {
	case nil:
		return nil
	case Opcode:
		return int(n)
	case *Text:
		return []any{OpText, n.Text}
	case *Variable:
		return []any{OpVariable, encodeReferences(n.Variables), encodeFormatters(n.Formatters)}
	case *Section:
		return []any{OpSection, encodeReference(n.Variable), encodeBlock(n.Consequents), encode(n.Alternative)}
	case *Repeated:
		return []any{OpRepeated, encodeReference(n.Variable), encodeBlock(n.Consequents), encode(n.Alternative),
			encodeBlock(n.AlternatesWith)}
	case *Predicate:
		var name any = 0
		if n.Name != "" {
			name = n.Name
		}
		return []any{n.Opcode(), name, encodeArgs(n.Args), encodeBlock(n.Consequents), encode(n.Alternative)}
	case *Bindvar:
		return []any{OpBindvar, n.Name, encodeReferences(n.Variables), encodeFormatters(n.Formatters)}
	case *If:
		ops := make([]any, len(n.Operators))
		for i, op := range n.Operators {
			ops[i] = int(op)
		}
		return []any{OpIf, ops, encodeReferences(n.Variables), encodeBlock(n.Consequents), encode(n.Alternative)}
	case *Inject:
		return []any{OpInject, n.Name, n.Path, encodeArgs(n.Args)}
	case *Macro:
		return []any{OpMacro, n.Name, encodeBlock(n.Consequents)}
	case *Comment:
		multiline := 0
		if n.Multiline {
			multiline = 1
		}
		return []any{OpComment, n.Text, multiline}
	case *Root:
		return []any{OpRoot, formatVersion, encodeBlock(n.Consequents), encode(n.EOF)}
	case *Struct:
		return []any{OpStruct, n.Opaque, encodeBlock(n.Consequents)}
	case *Atom:
		return []any{OpAtom, n.Opaque}
	case *Ctxvar:
		bindings := make([]any, len(n.Bindings))
		for i, b := range n.Bindings {
			bindings[i] = []any{b.Name, encodeReference(b.Reference)}
		}
		return []any{OpCtxvar, n.Name, bindings}
	case *Eval:
		return []any{OpEval, n.Code}
	case *Include:
		return []any{OpInclude, n.Name, encodeArgs(n.Args)}
	}
	panic(fmt.Sprintf("ast: unexpected code type %T", code))
}

func encodeBlock(block Block) []any {
	s := make([]any, len(block))
	for i, code := range block {
		s[i] = encode(code)
	}
	return s
}

func encodeReference(ref Reference) []any {
	s := make([]any, len(ref))
	for i, seg := range ref {
		if seg.IsIndex {
			s[i] = seg.Index
		} else {
			s[i] = seg.Name
		}
	}
	return s
}

func encodeReferences(refs []Reference) []any {
	s := make([]any, len(refs))
	for i, ref := range refs {
		s[i] = encodeReference(ref)
	}
	return s
}

func encodeFormatters(formatters []*Formatter) any {
	if len(formatters) == 0 {
		return 0
	}
	s := make([]any, len(formatters))
	for i, f := range formatters {
		if f.Args == nil {
			s[i] = []any{f.Name}
		} else {
			s[i] = []any{f.Name, encodeArgs(f.Args)}
		}
	}
	return s
}

func encodeArgs(args *Args) any {
	if args == nil {
		return 0
	}
	values := make([]any, len(args.Values))
	for i, v := range args.Values {
		values[i] = v
	}
	return []any{values, args.Delimiter}
}

var errShape = errors.New("ast: invalid persisted instruction")

// decoder decodes the generic JSON value of an instruction. The first error
// encountered is kept and the following reads return zero values.
type decoder struct {
	err error
}

func (d *decoder) fail(format string, a ...any) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: "+format, append([]any{errShape}, a...)...)
	}
}

func decode(v any) (Code, error) {
	d := &decoder{}
	code := d.code(v)
	if d.err != nil {
		return nil, d.err
	}
	return code, nil
}

func (d *decoder) int(v any) int {
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
	}
	d.fail("expected integer, got %v", v)
	return 0
}

func (d *decoder) string(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	d.fail("expected string, got %v", v)
	return ""
}

func (d *decoder) array(v any) []any {
	if s, ok := v.([]any); ok {
		return s
	}
	d.fail("expected array, got %v", v)
	return nil
}

func (d *decoder) code(v any) Code {
	if v == nil {
		return nil
	}
	if n, ok := v.(json.Number); ok {
		op := Opcode(d.int(n))
		if !op.IsAtomic() {
			d.fail("opcode %s is not atomic", op)
		}
		return op
	}
	s := d.array(v)
	if len(s) == 0 {
		d.fail("empty instruction")
		return nil
	}
	op := Opcode(d.int(s[0]))
	want := map[Opcode]int{
		OpText: 2, OpVariable: 3, OpSection: 4, OpRepeated: 5, OpPredicate: 5, OpOrPredicate: 5,
		OpBindvar: 4, OpIf: 5, OpInject: 4, OpMacro: 3, OpComment: 3, OpRoot: 4, OpStruct: 3,
		OpAtom: 2, OpCtxvar: 3, OpEval: 2, OpInclude: 3,
	}
	if n, ok := want[op]; !ok || len(s) != n {
		d.fail("instruction %s with %d fields", op, len(s))
		return nil
	}
	switch op {
	case OpText:
		return &Text{Text: d.string(s[1])}
	case OpVariable:
		return &Variable{Variables: d.references(s[1]), Formatters: d.formatters(s[2])}
	case OpSection:
		return &Section{Variable: d.reference(s[1]), Consequents: d.block(s[2]), Alternative: d.code(s[3])}
	case OpRepeated:
		return &Repeated{Variable: d.reference(s[1]), Consequents: d.block(s[2]), Alternative: d.code(s[3]),
			AlternatesWith: d.block(s[4])}
	case OpPredicate, OpOrPredicate:
		p := &Predicate{Or: op == OpOrPredicate, Args: d.args(s[2]), Consequents: d.block(s[3]),
			Alternative: d.code(s[4])}
		if _, ok := s[1].(string); ok {
			p.Name = s[1].(string)
		}
		return p
	case OpBindvar:
		return &Bindvar{Name: d.string(s[1]), Variables: d.references(s[2]), Formatters: d.formatters(s[3])}
	case OpIf:
		raw := d.array(s[1])
		ops := make([]Operator, len(raw))
		for i, o := range raw {
			ops[i] = Operator(d.int(o))
		}
		return &If{Operators: ops, Variables: d.references(s[2]), Consequents: d.block(s[3]),
			Alternative: d.code(s[4])}
	case OpInject:
		return &Inject{Name: d.string(s[1]), Path: d.string(s[2]), Args: d.args(s[3])}
	case OpMacro:
		return &Macro{Name: d.string(s[1]), Consequents: d.block(s[2])}
	case OpComment:
		return &Comment{Text: d.string(s[1]), Multiline: d.int(s[2]) == 1}
	case OpRoot:
		if d.int(s[1]) != formatVersion {
			d.fail("unsupported version %v", s[1])
		}
		return &Root{Consequents: d.block(s[2]), EOF: d.code(s[3])}
	case OpStruct:
		return &Struct{Opaque: s[1], Consequents: d.block(s[2])}
	case OpAtom:
		return &Atom{Opaque: s[1]}
	case OpCtxvar:
		raw := d.array(s[2])
		bindings := make([]Binding, len(raw))
		for i, b := range raw {
			pair := d.array(b)
			if len(pair) != 2 {
				d.fail("binding with %d fields", len(pair))
				return nil
			}
			bindings[i] = Binding{Name: d.string(pair[0]), Reference: d.reference(pair[1])}
		}
		return &Ctxvar{Name: d.string(s[1]), Bindings: bindings}
	case OpEval:
		return &Eval{Code: d.string(s[1])}
	case OpInclude:
		return &Include{Name: d.string(s[1]), Args: d.args(s[2])}
	}
	return nil
}

func (d *decoder) block(v any) Block {
	raw := d.array(v)
	block := make(Block, len(raw))
	for i, c := range raw {
		block[i] = d.code(c)
	}
	return block
}

func (d *decoder) reference(v any) Reference {
	raw := d.array(v)
	ref := make(Reference, len(raw))
	for i, seg := range raw {
		if s, ok := seg.(string); ok {
			ref[i] = Segment{Name: s}
		} else {
			ref[i] = Segment{Index: d.int(seg), IsIndex: true}
		}
	}
	return ref
}

func (d *decoder) references(v any) []Reference {
	raw := d.array(v)
	refs := make([]Reference, len(raw))
	for i, r := range raw {
		refs[i] = d.reference(r)
	}
	return refs
}

func (d *decoder) formatters(v any) []*Formatter {
	if _, ok := v.(json.Number); ok {
		return nil
	}
	raw := d.array(v)
	formatters := make([]*Formatter, len(raw))
	for i, r := range raw {
		f := d.array(r)
		if len(f) == 0 || len(f) > 2 {
			d.fail("formatter with %d fields", len(f))
			return nil
		}
		formatters[i] = &Formatter{Name: d.string(f[0])}
		if len(f) == 2 {
			formatters[i].Args = d.args(f[1])
		}
	}
	return formatters
}

func (d *decoder) args(v any) *Args {
	if _, ok := v.(json.Number); ok {
		return nil
	}
	raw := d.array(v)
	if len(raw) != 2 {
		d.fail("arguments with %d fields", len(raw))
		return nil
	}
	values := d.array(raw[0])
	args := &Args{Values: make([]string, len(values)), Delimiter: d.string(raw[1])}
	for i, value := range values {
		args.Values[i] = d.string(value)
	}
	return args
}
