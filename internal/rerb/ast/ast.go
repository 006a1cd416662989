package ast

import "fmt"

type Node interface {
	node()
}

// Pos is a location in the template source. Line and Col are 1-based; Col
// counts bytes.
type Pos struct {
	Offset int
	Line   int
	Col    int
}

func (p Pos) String() string {
	if p.Line == 0 {
		return "-"
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

type Document struct {
	Children []Node
}

func (*Document) node() {}

// Tag is an opening, self-closing or closing tag. Attrs is nil when the tag
// has no attribute list.
type Tag struct {
	Name    *TagName
	Attrs   *AttrList
	Closing bool
	// Solidus is set for `<x/>`; whether x is self-closing is decided by its name.
	Solidus bool
	Pos     Pos
}

func (*Tag) node() {}

// Source returns the tag name as written, with code blocks in their source form.
func (t *Tag) Source() string {
	if t.Name == nil {
		return ""
	}
	return partsSource(t.Name.Parts)
}

type TagName struct {
	Parts []Node
}

func (*TagName) node() {}

type AttrList struct {
	Attrs []*Attribute
}

func (*AttrList) node() {}

// Attribute is `name`, `name=value` or `name="value"`. Value is nil for a
// bare boolean attribute.
type Attribute struct {
	Name  *AttrName
	Value *AttrValue
	Pos   Pos
}

func (*Attribute) node() {}

func (a *Attribute) Source() string {
	if a.Name == nil {
		return ""
	}
	return partsSource(a.Name.Parts)
}

type AttrName struct {
	Parts []Node
}

func (*AttrName) node() {}

type AttrValue struct {
	// Quote is '"' or '\'', or 0 for an unquoted value.
	Quote byte
	Parts []Node
}

func (*AttrValue) node() {}

// Text is a run of literal fragments interleaved with code blocks.
type Text struct {
	Parts []Node
}

func (*Text) node() {}

type CodeKind int

const (
	CodeStatement CodeKind = iota
	CodeExpression
	CodeComment
)

func (k CodeKind) String() string {
	switch k {
	case CodeStatement:
		return "statement"
	case CodeExpression:
		return "expression"
	case CodeComment:
		return "comment"
	default:
		return fmt.Sprintf("CodeKind(%d)", int(k))
	}
}

// Code is an embedded code block. Source excludes delimiters and indicator.
type Code struct {
	Kind   CodeKind
	Source string
	Pos    Pos
}

func (*Code) node() {}

type RawString struct {
	Value string
}

func (*RawString) node() {}

type Comment struct {
	Text string
	Pos  Pos
}

func (*Comment) node() {}

type Doctype struct {
	Text string
	Pos  Pos
}

func (*Doctype) node() {}

func partsSource(parts []Node) string {
	var s string
	for _, p := range parts {
		switch p := p.(type) {
		case *RawString:
			s += p.Value
		case *Code:
			switch p.Kind {
			case CodeExpression:
				s += "{=" + p.Source + "}"
			default:
				s += "{" + p.Source + "}"
			}
		}
	}
	return s
}
