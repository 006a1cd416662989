// Package diag defines the compiler's error taxonomy and renders errors as
// source diagnostics.
package diag

import (
	"errors"
	"fmt"

	"github.com/kilianc/rerb/internal/rerb/ast"
)

// UnrecognizedNodeError reports an AST construct the compiler does not model.
type UnrecognizedNodeError struct {
	Pos  ast.Pos
	Node string
}

func (e *UnrecognizedNodeError) Error() string {
	return fmt.Sprintf("%s: unrecognized node %s", e.Pos, e.Node)
}

// Reasons carried by UnbalancedTagError.
const (
	ReasonStray    = "stray closing tag"
	ReasonMismatch = "closing tag does not match"
	ReasonUnclosed = "unclosed tag"
	ReasonVoid     = "closing tag for self-closing element"
)

// UnbalancedTagError reports a closing tag without a matching open element or
// an element left open at the end of its enclosing scope.
type UnbalancedTagError struct {
	Pos    ast.Pos
	Tag    string
	Open   string // element open at the time, if any
	Reason string
}

func (e *UnbalancedTagError) Error() string {
	switch e.Reason {
	case ReasonUnclosed:
		return fmt.Sprintf("%s: unclosed tag <%s>", e.Pos, e.Tag)
	case ReasonMismatch:
		return fmt.Sprintf("%s: closing tag </%s> does not match open <%s>", e.Pos, e.Tag, e.Open)
	case ReasonVoid:
		return fmt.Sprintf("%s: closing tag </%s> for self-closing element", e.Pos, e.Tag)
	default:
		return fmt.Sprintf("%s: stray closing tag </%s>", e.Pos, e.Tag)
	}
}

// EmptyScopeError is raised when the scope stack is peeked or popped while
// empty. It indicates a compiler bug or an AST that broke the open/close
// contract.
type EmptyScopeError struct {
	Op string
}

func (e *EmptyScopeError) Error() string {
	return fmt.Sprintf("scope stack is empty (%s)", e.Op)
}

// InvalidAttributeError reports an attribute whose value cannot be compiled.
type InvalidAttributeError struct {
	Pos    ast.Pos
	Name   string
	Reason string
}

func (e *InvalidAttributeError) Error() string {
	return fmt.Sprintf("%s: invalid attribute %q: %s", e.Pos, e.Name, e.Reason)
}

// SyntaxError reports template text the parser cannot tokenize.
type SyntaxError struct {
	Pos ast.Pos
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: syntax error: %s", e.Pos, e.Msg)
}

// Position returns the source position carried by err, if any.
func Position(err error) (ast.Pos, bool) {
	var (
		unrecognized *UnrecognizedNodeError
		unbalanced   *UnbalancedTagError
		invalid      *InvalidAttributeError
		syntax       *SyntaxError
	)
	switch {
	case errors.As(err, &unrecognized):
		return unrecognized.Pos, unrecognized.Pos.Line > 0
	case errors.As(err, &unbalanced):
		return unbalanced.Pos, unbalanced.Pos.Line > 0
	case errors.As(err, &invalid):
		return invalid.Pos, invalid.Pos.Line > 0
	case errors.As(err, &syntax):
		return syntax.Pos, syntax.Pos.Line > 0
	}
	return ast.Pos{}, false
}
