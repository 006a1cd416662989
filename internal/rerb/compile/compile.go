// Package compile lowers a template AST into the DOM-construction IR.
//
// Every opening tag pushes an element frame on the scope stack and every
// closing tag pops it, so the nesting of the generated Containers mirrors the
// element tree. Text runs, attribute lists and names are compiled inside
// transparent frames that share the target of the enclosing element.
package compile

import (
	"fmt"
	"strings"

	"github.com/kilianc/rerb/internal/rerb/ast"
	"github.com/kilianc/rerb/internal/rerb/diag"
	"github.com/kilianc/rerb/internal/rerb/ir"
	"github.com/kilianc/rerb/internal/rerb/scope"
)

const eventPrefix = "on"

type Options struct {
	// Root is the reference of the mount point that top-level nodes are
	// appended to.
	Root string
	// Prefix is prepended to every generated element name.
	Prefix string
	// Ref decorates a generated name into a reference in the output language,
	// e.g. an instance variable. Nil leaves names as they are.
	Ref func(name string) string
}

// Compile lowers doc into a Container targeting opts.Root. Each call uses its
// own scope stack and name counters.
func Compile(doc *ast.Document, opts Options) (*ir.Container, error) {
	if opts.Root == "" {
		opts.Root = "root"
	}
	c := &compiler{
		opts:  opts,
		stack: scope.New(opts.Root),
		names: newNamer(opts.Prefix),
	}
	out, err := c.document(doc)
	if err != nil {
		return nil, err
	}
	if d := c.stack.Depth(); d != 1 {
		if f := c.stack.OpenElement(); f != nil {
			return nil, &diag.UnbalancedTagError{Pos: f.Pos, Tag: f.Tag, Reason: diag.ReasonUnclosed}
		}
		return nil, fmt.Errorf("compile: scope depth %d after document", d)
	}
	return out, nil
}

type compiler struct {
	opts  Options
	stack *scope.Stack
	names *namer
}

func (c *compiler) ref(typ string) string {
	name := c.names.next(typ)
	if c.opts.Ref != nil {
		return c.opts.Ref(name)
	}
	return name
}

func (c *compiler) document(doc *ast.Document) (*ir.Container, error) {
	if doc == nil {
		return &ir.Container{Target: c.opts.Root}, nil
	}
	return container(c, doc.Children, c.node)
}

// container compiles parts inside a transparent frame. Each part's IR is
// appended to whichever frame is current once the part has been compiled,
// so an opening tag redirects the parts that follow it into its own frame.
func container[T any](c *compiler, parts []T, compile func(T) (ir.Node, error)) (*ir.Container, error) {
	cur, err := c.stack.Current()
	if err != nil {
		return nil, err
	}
	depth := c.stack.Depth()
	c.stack.Push(cur.Target)
	for _, p := range parts {
		n, err := compile(p)
		if err != nil {
			return nil, err
		}
		f, err := c.stack.Current()
		if err != nil {
			return nil, err
		}
		f.Append(n)
	}
	if c.stack.Depth() != depth+1 {
		if f := c.stack.OpenElement(); f != nil {
			return nil, &diag.UnbalancedTagError{Pos: f.Pos, Tag: f.Tag, Reason: diag.ReasonUnclosed}
		}
		return nil, fmt.Errorf("compile: scope depth %d, want %d", c.stack.Depth(), depth+1)
	}
	f, err := c.stack.Pop()
	if err != nil {
		return nil, err
	}
	return f.Container(), nil
}

// node compiles a top-level document child.
func (c *compiler) node(n ast.Node) (ir.Node, error) {
	switch n := n.(type) {
	case nil:
		return &ir.Ignore{}, nil
	case *ast.Text:
		return c.text(n)
	case *ast.Tag:
		if n.Closing {
			return c.closeTag(n)
		}
		return c.openTag(n)
	case *ast.Code:
		return code(n), nil
	case *ast.RawString:
		return c.text(&ast.Text{Parts: []ast.Node{n}})
	case *ast.Comment:
		return &ir.Ignore{}, nil
	case *ast.Doctype:
		return nil, &diag.UnrecognizedNodeError{Pos: n.Pos, Node: "doctype"}
	default:
		return nil, &diag.UnrecognizedNodeError{Node: fmt.Sprintf("%T", n)}
	}
}

func code(n *ast.Code) ir.Node {
	switch n.Kind {
	case ast.CodeStatement:
		return &ir.Statement{Code: strings.TrimSpace(n.Source)}
	case ast.CodeExpression:
		return &ir.Expression{Code: strings.TrimSpace(n.Source)}
	default:
		return &ir.Ignore{}
	}
}

// text compiles a text run. Literal fragments are trimmed on every side that
// touches the run boundary or a statement; a side next to an expression keeps
// its whitespace so `Hello {=name}` renders with the space.
func (c *compiler) text(t *ast.Text) (ir.Node, error) {
	i := -1
	return container(c, t.Parts, func(p ast.Node) (ir.Node, error) {
		i++
		switch p := p.(type) {
		case nil:
			return &ir.Ignore{}, nil
		case *ast.RawString:
			s := p.Value
			if strings.TrimSpace(s) == "" {
				return &ir.Ignore{}, nil
			}
			if !isExpression(t.Parts, i-1) {
				s = strings.TrimLeft(s, whitespace)
			}
			if !isExpression(t.Parts, i+1) {
				s = strings.TrimRight(s, whitespace)
			}
			return &ir.Content{Text: s}, nil
		case *ast.Code:
			return code(p), nil
		default:
			return nil, &diag.UnrecognizedNodeError{Node: fmt.Sprintf("%T in text", p)}
		}
	})
}

const whitespace = " \t\n\r\f\v"

func isExpression(parts []ast.Node, i int) bool {
	if i < 0 || i >= len(parts) {
		return false
	}
	c, ok := parts[i].(*ast.Code)
	return ok && c.Kind == ast.CodeExpression
}

func (c *compiler) openTag(t *ast.Tag) (ir.Node, error) {
	if t.Name == nil || len(t.Name.Parts) == 0 {
		return nil, &diag.UnrecognizedNodeError{Pos: t.Pos, Node: "tag without name"}
	}
	ref := c.ref(tagType(t.Name))
	c.stack.PushElement(ref, t.Source(), t.Pos)

	name, err := container(c, t.Name.Parts, func(p ast.Node) (ir.Node, error) {
		return literalPart(p, func() error {
			return &diag.SyntaxError{Pos: t.Pos, Msg: "statement in tag name"}
		})
	})
	if err != nil {
		return nil, err
	}

	setup := &ir.Container{Target: ref}
	if t.Attrs != nil {
		if setup, err = container(c, t.Attrs.Attrs, c.attribute); err != nil {
			return nil, err
		}
	}

	create := &ir.Create{Ref: ref, Tag: name, Setup: setup}
	if static, ok := staticName(t.Name); !ok || !SelfClosing(static) {
		// Stays open; the caller appends create to the new element frame.
		return create, nil
	}

	f, err := c.stack.Current()
	if err != nil {
		return nil, err
	}
	f.Append(create)
	if f, err = c.stack.Pop(); err != nil {
		return nil, err
	}
	return f.Container(), nil
}

func (c *compiler) closeTag(t *ast.Tag) (ir.Node, error) {
	tag := t.Source()
	top, err := c.stack.Current()
	if err != nil {
		return nil, err
	}
	if !top.Element() || top.Tag != tag {
		e := &diag.UnbalancedTagError{Pos: t.Pos, Tag: tag}
		if open := c.stack.OpenElement(); open != nil {
			e.Open = open.Tag
		}
		switch {
		case c.stack.Lookup(tag) != nil:
			e.Reason = diag.ReasonMismatch
		case SelfClosing(tag):
			e.Reason = diag.ReasonVoid
		default:
			e.Reason = diag.ReasonStray
		}
		return nil, e
	}
	f, err := c.stack.Pop()
	if err != nil {
		return nil, err
	}
	return f.Container(), nil
}

// literalPart compiles a piece of a tag name, attribute name or attribute
// value. Literal text is kept verbatim; statements are rejected with the
// error built by stmt.
func literalPart(p ast.Node, stmt func() error) (ir.Node, error) {
	switch p := p.(type) {
	case nil:
		return &ir.Ignore{}, nil
	case *ast.RawString:
		if p.Value == "" {
			return &ir.Ignore{}, nil
		}
		return &ir.Content{Text: p.Value}, nil
	case *ast.Code:
		if p.Kind == ast.CodeStatement {
			return nil, stmt()
		}
		return code(p), nil
	default:
		return nil, &diag.UnrecognizedNodeError{Node: fmt.Sprintf("%T", p)}
	}
}

func (c *compiler) attribute(a *ast.Attribute) (ir.Node, error) {
	if a == nil {
		return &ir.Ignore{}, nil
	}
	if a.Name == nil || len(a.Name.Parts) == 0 {
		return nil, &diag.UnrecognizedNodeError{Pos: a.Pos, Node: "attribute without name"}
	}
	cur, err := c.stack.Current()
	if err != nil {
		return nil, err
	}
	invalid := func(reason string) error {
		return &diag.InvalidAttributeError{Pos: a.Pos, Name: a.Source(), Reason: reason}
	}

	parts := a.Name.Parts
	kind := ir.AttrValue
	if r, ok := parts[0].(*ast.RawString); ok && strings.HasPrefix(r.Value, eventPrefix) {
		kind = ir.AttrEvent
		parts = append([]ast.Node{&ast.RawString{Value: r.Value[len(eventPrefix):]}}, parts[1:]...)
	} else if a.Value == nil {
		kind = ir.AttrBool
	}

	name, err := container(c, parts, func(p ast.Node) (ir.Node, error) {
		return literalPart(p, func() error { return invalid("statement in attribute name") })
	})
	if err != nil {
		return nil, err
	}

	out := &ir.Attribute{Target: cur.Target, Kind: kind, Name: name}
	switch kind {
	case ir.AttrEvent:
		if isIgnored(name) {
			return nil, invalid("missing event name")
		}
		handler, err := c.handler(a, invalid)
		if err != nil {
			return nil, err
		}
		out.Value = handler
	case ir.AttrValue:
		value, err := container(c, a.Value.Parts, func(p ast.Node) (ir.Node, error) {
			return literalPart(p, func() error { return invalid("statement in attribute value") })
		})
		if err != nil {
			return nil, err
		}
		out.Value = value
	}
	return out, nil
}

// handler compiles an event attribute value. It must be a single code block,
// used verbatim, or a single literal naming the handler.
func (c *compiler) handler(a *ast.Attribute, invalid func(string) error) (*ir.Container, error) {
	if a.Value == nil {
		return nil, invalid("event handler requires a value")
	}
	var parts []ast.Node
	for _, p := range a.Value.Parts {
		if r, ok := p.(*ast.RawString); ok && strings.TrimSpace(r.Value) == "" {
			continue
		}
		parts = append(parts, p)
	}
	if len(parts) == 0 {
		return nil, invalid("event handler requires a value")
	}
	if len(parts) > 1 {
		return nil, invalid("event handler must be a single code block or literal")
	}
	return container(c, parts, func(p ast.Node) (ir.Node, error) {
		switch p := p.(type) {
		case *ast.RawString:
			return &ir.Content{Text: strings.TrimSpace(p.Value)}, nil
		case *ast.Code:
			if p.Kind == ast.CodeComment {
				return nil, invalid("event handler must be a single code block or literal")
			}
			return &ir.Expression{Code: strings.TrimSpace(p.Source)}, nil
		default:
			return nil, &diag.UnrecognizedNodeError{Pos: a.Pos, Node: fmt.Sprintf("%T", p)}
		}
	})
}

func isIgnored(c *ir.Container) bool {
	for _, n := range c.Nodes {
		if _, ok := n.(*ir.Ignore); !ok {
			return false
		}
	}
	return true
}
