// Package ir defines the intermediate representation produced by the
// compiler: DOM-construction intent with no output syntax attached.
package ir

// Node is one of Ignore, Content, Expression, Statement, Create, Container
// or Attribute.
//
//sumtype:decl
type Node interface {
	irNode()
}

// Ignore contributes nothing to the output.
type Ignore struct{}

// Content is a literal fragment: text in a DOM scope, or a piece of a name or
// value literal.
type Content struct {
	Text string
}

// Expression is code whose runtime value is rendered as text, or interpolated
// when it sits inside a string literal.
type Expression struct {
	Code string
}

// Statement is code emitted verbatim on its own line and never interpolated.
type Statement struct {
	Code string
}

// Create declares a new element. Tag holds the tag name pieces, Setup the
// attribute assignments. Appending the element to its parent is left to the
// exporter.
type Create struct {
	Ref   string
	Tag   *Container
	Setup *Container
}

// Container is the finalized content of one scope frame.
type Container struct {
	Target string
	Nodes  []Node
}

type AttrKind int

const (
	AttrValue AttrKind = iota
	AttrEvent
	AttrBool
)

func (k AttrKind) String() string {
	switch k {
	case AttrEvent:
		return "event"
	case AttrBool:
		return "bool"
	default:
		return "value"
	}
}

// Attribute sets an attribute on Target or registers an event listener. For
// AttrEvent, Name holds the event type with the `on` prefix removed and Value
// the handler code. Value is nil for AttrBool.
type Attribute struct {
	Target string
	Kind   AttrKind
	Name   *Container
	Value  *Container
}

func (*Ignore) irNode()     {}
func (*Content) irNode()    {}
func (*Expression) irNode() {}
func (*Statement) irNode()  {}
func (*Create) irNode()     {}
func (*Container) irNode()  {}
func (*Attribute) irNode()  {}
