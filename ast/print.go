// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ast

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Sprint returns the indented, human readable form of code.
func Sprint(code Code) string {
	var b strings.Builder
	_ = Fprint(&b, code)
	return b.String()
}

// Fprint writes the indented, human readable form of code to w. Each line
// names an instruction followed by its literal fields. Nested blocks are
// written under a label and the alternative instruction of a block under
// "alternative".
func Fprint(w io.Writer, code Code) error {
	p := &printer{w: w}
	p.code(code, 0)
	return p.err
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(depth int, format string, a ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, strings.Repeat("  ", depth)+format+"\n", a...)
}

func (p *printer) block(label string, block Block, depth int) {
	p.line(depth, "%s:", label)
	for _, code := range block {
		p.code(code, depth+1)
	}
}

func (p *printer) alternative(code Code, depth int) {
	if code == nil {
		return
	}
	p.line(depth, "alternative:")
	p.code(code, depth+1)
}

func (p *printer) code(code Code, depth int) {
	switch n := code.(type) {
	case nil:
		p.line(depth, "<nil>")
	case Opcode:
		p.line(depth, "%s", n)
	case *Text:
		p.line(depth, "TEXT %s", strconv.Quote(n.Text))
	case *Variable:
		p.line(depth, "VARIABLE %s%s", sprintReferences(n.Variables), sprintFormatters(n.Formatters))
	case *Section:
		p.line(depth, "SECTION %s", n.Variable)
		p.block("block", n.Consequents, depth+1)
		p.alternative(n.Alternative, depth+1)
	case *Repeated:
		p.line(depth, "REPEATED %s", n.Variable)
		p.block("block", n.Consequents, depth+1)
		if len(n.AlternatesWith) > 0 {
			p.block("alternates-with", n.AlternatesWith, depth+1)
		}
		p.alternative(n.Alternative, depth+1)
	case *Predicate:
		p.line(depth, "%s %s%s", n.Opcode(), n.Name, sprintArgs(n.Args))
		p.block("block", n.Consequents, depth+1)
		p.alternative(n.Alternative, depth+1)
	case *Bindvar:
		p.line(depth, "BINDVAR %s %s%s", n.Name, sprintReferences(n.Variables), sprintFormatters(n.Formatters))
	case *If:
		var b strings.Builder
		for i, v := range n.Variables {
			if i > 0 {
				b.WriteString(" " + n.Operators[i-1].String() + " ")
			}
			b.WriteString(v.String())
		}
		p.line(depth, "IF %s", b.String())
		p.block("block", n.Consequents, depth+1)
		p.alternative(n.Alternative, depth+1)
	case *Inject:
		p.line(depth, "INJECT %s %s%s", n.Name, n.Path, sprintArgs(n.Args))
	case *Macro:
		p.line(depth, "MACRO %s", n.Name)
		p.block("block", n.Consequents, depth+1)
	case *Comment:
		if n.Multiline {
			p.line(depth, "COMMENT multiline %s", strconv.Quote(n.Text))
		} else {
			p.line(depth, "COMMENT %s", strconv.Quote(n.Text))
		}
	case *Root:
		p.line(depth, "ROOT")
		p.block("block", n.Consequents, depth+1)
		if n.EOF != nil {
			p.code(n.EOF, depth+1)
		}
	case *Struct:
		p.line(depth, "STRUCT %v", n.Opaque)
		p.block("block", n.Consequents, depth+1)
	case *Atom:
		p.line(depth, "ATOM %v", n.Opaque)
	case *Ctxvar:
		var b strings.Builder
		for _, binding := range n.Bindings {
			b.WriteString(" " + binding.Name + "=" + binding.Reference.String())
		}
		p.line(depth, "CTXVAR %s%s", n.Name, b.String())
	case *Eval:
		p.line(depth, "EVAL %s", strconv.Quote(n.Code))
	case *Include:
		p.line(depth, "INCLUDE %s%s", n.Name, sprintArgs(n.Args))
	default:
		p.line(depth, "%T", code)
	}
}

func sprintReferences(refs []Reference) string {
	names := make([]string, len(refs))
	for i, ref := range refs {
		names[i] = ref.String()
	}
	return strings.Join(names, ", ")
}

func sprintFormatters(formatters []*Formatter) string {
	var b strings.Builder
	for _, f := range formatters {
		b.WriteString("|" + f.Name + sprintArgs(f.Args))
	}
	return b.String()
}

func sprintArgs(args *Args) string {
	if args == nil {
		return ""
	}
	return " " + strconv.Quote(args.Delimiter) + " " + strconv.Quote(strings.Join(args.Values, args.Delimiter))
}
