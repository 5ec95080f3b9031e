// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ast declares the types used to define compiled template trees.
//
// For example, the template
//
//	{.section article}<h1>{title|html}</h1>{.end}
//
// is compiled to the tree
//
//	&ast.Root{
//		Consequents: ast.Block{
//			&ast.Section{
//				Variable: ast.ParseReference("article"),
//				Consequents: ast.Block{
//					&ast.Text{Text: "<h1>"},
//					&ast.Variable{
//						Variables:  []ast.Reference{ast.ParseReference("title")},
//						Formatters: []*ast.Formatter{{Name: "html"}},
//					},
//					&ast.Text{Text: "</h1>"},
//				},
//				Alternative: ast.OpEnd,
//			},
//		},
//		EOF: ast.OpEOF,
//	}
//
// whose persisted JSON form is
//
//	[17,1,[[2,["article"],[[0,"<h1>"],[1,[["title"]],[["html"]]],[0,"</h1>"]],3]],18]
package ast

import "strconv"

// Opcode identifies an instruction kind. Its values are part of the
// persisted form of a compiled tree and must not change.
type Opcode uint8

const (
	OpText           Opcode = 0
	OpVariable       Opcode = 1
	OpSection        Opcode = 2
	OpEnd            Opcode = 3
	OpRepeated       Opcode = 4
	OpPredicate      Opcode = 5
	OpBindvar        Opcode = 6
	OpOrPredicate    Opcode = 7
	OpIf             Opcode = 8
	OpInject         Opcode = 9
	OpMacro          Opcode = 10
	OpComment        Opcode = 11
	OpMetaLeft       Opcode = 12
	OpMetaRight      Opcode = 13
	OpNewline        Opcode = 14
	OpSpace          Opcode = 15
	OpTab            Opcode = 16
	OpRoot           Opcode = 17
	OpEOF            Opcode = 18
	OpAlternatesWith Opcode = 19
	OpStruct         Opcode = 20
	OpAtom           Opcode = 21
	OpCtxvar         Opcode = 22
	OpEval           Opcode = 23
	OpInclude        Opcode = 24

	// OpNoMatch is returned by the matcher when no instruction keyword
	// matches. It never appears in a tree.
	OpNoMatch Opcode = 255
)

var opcodeNames = [...]string{
	OpText:           "TEXT",
	OpVariable:       "VARIABLE",
	OpSection:        "SECTION",
	OpEnd:            "END",
	OpRepeated:       "REPEATED",
	OpPredicate:      "PREDICATE",
	OpBindvar:        "BINDVAR",
	OpOrPredicate:    "OR_PREDICATE",
	OpIf:             "IF",
	OpInject:         "INJECT",
	OpMacro:          "MACRO",
	OpComment:        "COMMENT",
	OpMetaLeft:       "META_LEFT",
	OpMetaRight:      "META_RIGHT",
	OpNewline:        "NEWLINE",
	OpSpace:          "SPACE",
	OpTab:            "TAB",
	OpRoot:           "ROOT",
	OpEOF:            "EOF",
	OpAlternatesWith: "ALTERNATES_WITH",
	OpStruct:         "STRUCT",
	OpAtom:           "ATOM",
	OpCtxvar:         "CTXVAR",
	OpEval:           "EVAL",
	OpInclude:        "INCLUDE",
}

// String returns the name of the opcode, for example "REPEATED".
func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	if op == OpNoMatch {
		return "NO_MATCH"
	}
	return "Opcode(" + strconv.Itoa(int(op)) + ")"
}

// Opcode implements the Code interface, so that instructions without
// payload are represented by their bare opcode.
func (op Opcode) Opcode() Opcode { return op }

// IsAtomic reports whether op is an instruction without payload.
func (op Opcode) IsAtomic() bool {
	switch op {
	case OpEnd, OpEOF, OpNewline, OpSpace, OpTab, OpMetaLeft, OpMetaRight, OpAlternatesWith:
		return true
	}
	return false
}

// Code is an instruction of a compiled tree. It is either an atomic Opcode
// or a pointer to one of the instruction types of this package.
type Code interface {
	Opcode() Opcode
}

// Block is an ordered sequence of instructions.
type Block []Code

// Operator is a boolean operator of an If instruction.
type Operator uint8

const (
	OperatorOr  Operator = 0 // ||
	OperatorAnd Operator = 1 // &&
)

func (op Operator) String() string {
	if op == OperatorAnd {
		return "&&"
	}
	return "||"
}

// Args is a delimiter-bounded argument list of a formatter, predicate,
// inject or include instruction.
type Args struct {
	Values    []string
	Delimiter string
}

// Formatter is a formatter call in a Variable or Bindvar instruction.
type Formatter struct {
	Name string
	Args *Args // nil if the formatter has no arguments.
}

// ArgValues returns the argument values of f, or nil if it has none.
func (f *Formatter) ArgValues() []string {
	if f.Args == nil {
		return nil
	}
	return f.Args.Values
}

// Binding binds a name to a reference in a Ctxvar instruction.
type Binding struct {
	Name      string
	Reference Reference
}

// Text represents literal text.
type Text struct {
	Text string
}

func (*Text) Opcode() Opcode { return OpText }

// Variable emits the first of its variables after applying the
// formatters.
type Variable struct {
	Variables  []Reference
	Formatters []*Formatter
}

func (*Variable) Opcode() Opcode { return OpVariable }

// Section executes its block with the resolved variable in scope.
type Section struct {
	Variable    Reference
	Consequents Block
	Alternative Code
}

func (*Section) Opcode() Opcode { return OpSection }

// Repeated executes its block once for each element of the resolved array.
type Repeated struct {
	Variable       Reference
	Consequents    Block
	Alternative    Code
	AlternatesWith Block
}

func (*Repeated) Opcode() Opcode { return OpRepeated }

// Predicate executes its block if the named predicate is true. An empty
// name always executes the block.
//
// Or reports whether it is an OR_PREDICATE instruction, that is the
// alternative of a previous block.
type Predicate struct {
	Or          bool
	Name        string
	Args        *Args
	Consequents Block
	Alternative Code
}

func (p *Predicate) Opcode() Opcode {
	if p.Or {
		return OpOrPredicate
	}
	return OpPredicate
}

// Bindvar binds the first of its variables, after applying the
// formatters, to an @-variable of the current scope.
type Bindvar struct {
	Name       string
	Variables  []Reference
	Formatters []*Formatter
}

func (*Bindvar) Opcode() Opcode { return OpBindvar }

// If executes its block if the left-to-right fold of its variables with
// its operators is true. len(Operators) is len(Variables)-1.
type If struct {
	Operators   []Operator
	Variables   []Reference
	Consequents Block
	Alternative Code
}

func (*If) Opcode() Opcode { return OpIf }

// Inject binds an external injectable to an @-variable.
type Inject struct {
	Name string
	Path string
	Args *Args
}

func (*Inject) Opcode() Opcode { return OpInject }

// Macro defines a named block includable with Include.
type Macro struct {
	Name        string
	Consequents Block
}

func (*Macro) Opcode() Opcode { return OpMacro }

// Comment is a template comment.
type Comment struct {
	Text      string
	Multiline bool
}

func (*Comment) Opcode() Opcode { return OpComment }

// Root is the root of a compiled tree.
type Root struct {
	Consequents Block
	EOF         Code // OpEOF once the end of the source has been assembled.
}

func (*Root) Opcode() Opcode { return OpRoot }

// Struct is a block carrying an opaque payload for extensions.
type Struct struct {
	Opaque      any
	Consequents Block
}

func (*Struct) Opcode() Opcode { return OpStruct }

// Atom carries an opaque payload for extensions.
type Atom struct {
	Opaque any
}

func (*Atom) Opcode() Opcode { return OpAtom }

// Ctxvar binds an object built from its bindings to an @-variable.
type Ctxvar struct {
	Name     string
	Bindings []Binding
}

func (*Ctxvar) Opcode() Opcode { return OpCtxvar }

// Eval evaluates an expression.
type Eval struct {
	Code string
}

func (*Eval) Opcode() Opcode { return OpEval }

// Include executes a macro or a partial.
type Include struct {
	Name string
	Args *Args
}

func (*Include) Opcode() Opcode { return OpInclude }

// HasArg reports whether the include has the argument arg.
func (n *Include) HasArg(arg string) bool {
	if n.Args == nil {
		return false
	}
	for _, v := range n.Args.Values {
		if v == arg {
			return true
		}
	}
	return false
}

// OpensBlock reports whether code opens a nested block that is closed by an
// END instruction.
func OpensBlock(code Code) bool {
	switch code.Opcode() {
	case OpIf, OpMacro, OpPredicate, OpRepeated, OpSection, OpStruct:
		return true
	}
	return false
}
