// Package scope implements the frame stack the compiler uses to track which
// element is being populated at each nesting depth.
package scope

import (
	"github.com/kilianc/rerb/internal/rerb/ast"
	"github.com/kilianc/rerb/internal/rerb/diag"
	"github.com/kilianc/rerb/internal/rerb/ir"
)

// Frame names the DOM node being populated and collects the IR emitted into it.
type Frame struct {
	Target string
	// Tag is the opening tag name as written for element frames, empty for
	// transparent frames.
	Tag   string
	Pos   ast.Pos
	Nodes []ir.Node
}

func (f *Frame) Append(n ir.Node) {
	f.Nodes = append(f.Nodes, n)
}

// Element reports whether f was pushed for an opening tag.
func (f *Frame) Element() bool {
	return f.Tag != ""
}

// Container hands the frame's nodes over to a new Container. The frame must
// not be used afterwards.
func (f *Frame) Container() *ir.Container {
	c := &ir.Container{Target: f.Target, Nodes: f.Nodes}
	f.Nodes = nil
	return c
}

type Stack struct {
	frames []*Frame
}

// New returns a stack holding a single root frame targeting root.
func New(root string) *Stack {
	return &Stack{frames: []*Frame{{Target: root}}}
}

// Push stacks a transparent frame.
func (s *Stack) Push(target string) *Frame {
	f := &Frame{Target: target}
	s.frames = append(s.frames, f)
	return f
}

// PushElement stacks a frame for the element opened by tag at pos.
func (s *Stack) PushElement(target, tag string, pos ast.Pos) *Frame {
	f := &Frame{Target: target, Tag: tag, Pos: pos}
	s.frames = append(s.frames, f)
	return f
}

func (s *Stack) Current() (*Frame, error) {
	if len(s.frames) == 0 {
		return nil, &diag.EmptyScopeError{Op: "current"}
	}
	return s.frames[len(s.frames)-1], nil
}

func (s *Stack) Pop() (*Frame, error) {
	if len(s.frames) == 0 {
		return nil, &diag.EmptyScopeError{Op: "pop"}
	}
	f := s.frames[len(s.frames)-1]
	s.frames[len(s.frames)-1] = nil
	s.frames = s.frames[:len(s.frames)-1]
	return f, nil
}

func (s *Stack) Depth() int {
	return len(s.frames)
}

// Root returns the bottom frame, or nil once it has been popped.
func (s *Stack) Root() *Frame {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[0]
}

// OpenElement returns the innermost element frame, or nil when only
// transparent frames are open.
func (s *Stack) OpenElement() *Frame {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if s.frames[i].Element() {
			return s.frames[i]
		}
	}
	return nil
}

// Lookup returns the innermost element frame opened by tag, or nil.
func (s *Stack) Lookup(tag string) *Frame {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if f := s.frames[i]; f.Element() && f.Tag == tag {
			return f
		}
	}
	return nil
}
