// Package export renders the IR as DOM-construction source code.
package export

import (
	"fmt"
	"strings"

	"github.com/kilianc/rerb/internal/rerb/ir"
)

// TextMode selects how literal text and expression values reach the DOM.
type TextMode int

const (
	// TextNode appends a new text node per fragment.
	TextNode TextMode = iota
	// Accumulate appends each fragment to the target's text.
	Accumulate
)

func (m TextMode) String() string {
	if m == Accumulate {
		return "accumulate"
	}
	return "node"
}

func ParseTextMode(s string) (TextMode, error) {
	switch s {
	case "", "node":
		return TextNode, nil
	case "accumulate":
		return Accumulate, nil
	default:
		return 0, fmt.Errorf("unknown text mode %q", s)
	}
}

type Options struct {
	// Root is the reference top-level elements are appended to.
	Root string
	// Document is the reference that owns createElement and createTextNode.
	Document string
	Text     TextMode
}

// Exporter renders IR for one target with a fixed set of options. It holds no
// per-call state and may be shared.
type Exporter struct {
	target Target
	opts   Options
}

func New(target Target, opts Options) *Exporter {
	if opts.Root == "" {
		opts.Root = "root"
	}
	if opts.Document == "" {
		opts.Document = "document"
	}
	return &Exporter{target: target, opts: opts}
}

func (e *Exporter) Target() Target { return e.target }

// Export renders n. The output has no leading or trailing whitespace.
//
// Export panics if n breaks the IR's shape, e.g. a Statement inside an
// attribute value; the compiler never produces such trees.
func (e *Exporter) Export(n ir.Node) string {
	var b strings.Builder
	e.export(&b, n, frame{current: e.opts.Root, parent: e.opts.Root})
	return strings.TrimSpace(b.String())
}

// frame is the exporter's view of the scope: the element receiving content
// and the element a new child is appended to.
type frame struct {
	current string
	parent  string
}

func (e *Exporter) export(b *strings.Builder, n ir.Node, f frame) {
	switch n := n.(type) {
	case nil, *ir.Ignore:
	case *ir.Statement:
		line(b, n.Code)
	case *ir.Content:
		e.text(b, f.current, Fragment{Text: n.Text})
	case *ir.Expression:
		e.text(b, f.current, Fragment{Text: n.Code, Code: true})
	case *ir.Create:
		line(b, e.target.CreateElement(n.Ref, e.tagName(n.Tag), e.opts.Document))
		if n.Setup != nil {
			e.export(b, n.Setup, f)
		}
		line(b, e.target.AppendChild(f.parent, n.Ref))
	case *ir.Container:
		inner := frame{current: n.Target, parent: f.current}
		for _, c := range n.Nodes {
			e.export(b, c, inner)
		}
	case *ir.Attribute:
		e.attribute(b, n)
	default:
		panic(fmt.Sprintf("export: unexpected node %T", n))
	}
}

func (e *Exporter) text(b *strings.Builder, target string, frag Fragment) {
	value := e.target.Literal([]Fragment{frag})
	if e.opts.Text == Accumulate {
		line(b, e.target.AccumulateText(target, value))
		return
	}
	line(b, e.target.AppendText(target, value, e.opts.Document))
}

func (e *Exporter) tagName(c *ir.Container) string {
	frags := fragments(nil, c)
	if !hasCode(frags) {
		var s strings.Builder
		for _, f := range frags {
			s.WriteString(f.Text)
		}
		return e.target.Static(s.String())
	}
	return e.target.Literal(frags)
}

func (e *Exporter) attribute(b *strings.Builder, a *ir.Attribute) {
	name := e.target.Literal(fragments(nil, a.Name))
	switch a.Kind {
	case ir.AttrEvent:
		line(b, e.target.AddEventListener(a.Target, name, code(a.Value)))
	case ir.AttrBool:
		line(b, e.target.SetBoolAttribute(a.Target, name))
	default:
		line(b, e.target.SetAttribute(a.Target, name, e.target.Literal(fragments(nil, a.Value))))
	}
}

// fragments flattens a string-context container into literal fragments,
// merging adjacent literal text.
func fragments(dst []Fragment, c *ir.Container) []Fragment {
	if c == nil {
		return dst
	}
	for _, n := range c.Nodes {
		switch n := n.(type) {
		case *ir.Ignore:
		case *ir.Content:
			if k := len(dst) - 1; k >= 0 && !dst[k].Code {
				dst[k].Text += n.Text
				continue
			}
			dst = append(dst, Fragment{Text: n.Text})
		case *ir.Expression:
			dst = append(dst, Fragment{Text: n.Code, Code: true})
		case *ir.Container:
			dst = fragments(dst, n)
		default:
			panic(fmt.Sprintf("export: %T in string context", n))
		}
	}
	return dst
}

// code renders an event handler: expressions and literals verbatim, never
// interpolated.
func code(c *ir.Container) string {
	var s strings.Builder
	for _, f := range fragments(nil, c) {
		s.WriteString(f.Text)
	}
	return s.String()
}

func line(b *strings.Builder, s string) {
	b.WriteString(s)
	b.WriteByte('\n')
}
