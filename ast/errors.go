// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ast

import "fmt"

// ErrorKind is the component that recorded an error.
type ErrorKind uint8

const (
	ParserError ErrorKind = iota
	AssemblerError
	EngineError
)

func (k ErrorKind) String() string {
	switch k {
	case ParserError:
		return "parser"
	case AssemblerError:
		return "assembler"
	case EngineError:
		return "engine"
	}
	return fmt.Sprintf("ErrorKind(%d)", uint8(k))
}

// ErrorType is a stable code identifying an error.
type ErrorType string

const (
	// Assembler.
	ErrEOFInBlock        ErrorType = "EOF_IN_BLOCK"
	ErrNotAllowedAtRoot  ErrorType = "NOT_ALLOWED_AT_ROOT"
	ErrNotAllowedInBlock ErrorType = "NOT_ALLOWED_IN_BLOCK"
	ErrDeadCodeBlock     ErrorType = "DEAD_CODE_BLOCK"
	ErrStackUnderflow    ErrorType = "STACK_UNDERFLOW"

	// Engine.
	ErrPartialMissing        ErrorType = "PARTIAL_MISSING"
	ErrPartialParse          ErrorType = "PARTIAL_PARSE"
	ErrPartialRecursionDepth ErrorType = "PARTIAL_RECURSION_DEPTH"
	ErrPartialSelfRecursion  ErrorType = "PARTIAL_SELF_RECURSION"
	ErrUnexpected            ErrorType = "UNEXPECTED_ERROR"
	ErrFormatter             ErrorType = "FORMATTER_ERROR"
	ErrExprTokenize          ErrorType = "EXPR_TOKENIZE"
	ErrExprAssemble          ErrorType = "EXPR_ASSEMBLE"
	ErrExprReduce            ErrorType = "EXPR_REDUCE"
)

// Error is a diagnostic recorded while compiling or executing a template.
type Error struct {
	Kind    ErrorKind
	Type    ErrorType
	Message string
}

// Errorf returns a new error of the given kind and type.
func Errorf(kind ErrorKind, typ ErrorType, format string, a ...any) *Error {
	return &Error{Kind: kind, Type: typ, Message: fmt.Sprintf(format, a...)}
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + string(e.Type) + ": " + e.Message
}
