package compile

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianc/rerb/internal/rerb/diag"
	"github.com/kilianc/rerb/internal/rerb/ir"
	"github.com/kilianc/rerb/internal/rerb/parse"
)

func ivar(name string) string { return "@" + name }

func compileString(t *testing.T, src string, opts Options) (*ir.Container, error) {
	t.Helper()
	doc, err := parse.Parse(src, parse.Options{})
	require.NoError(t, err)
	return Compile(doc, opts)
}

func mustCompile(t *testing.T, src string) *ir.Container {
	t.Helper()
	out, err := compileString(t, src, Options{Root: "root", Ref: ivar})
	require.NoError(t, err)
	return out
}

func TestCompileDump(t *testing.T) {
	got := ir.Dump(mustCompile(t, "<h1>Hello World</h1>"))
	want := `(container root
  (container @h1_1
    (create @h1_1
      (container @h1_1
        (content "h1")
      )
      (container @h1_1)
    )
    (container @h1_1
      (content "Hello World")
    )
  )
)
`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("dump mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileNested(t *testing.T) {
	got := ir.Dump(mustCompile(t, "<h1><br/><h2></h2></h1>"))
	want := `(container root
  (container @h1_1
    (create @h1_1
      (container @h1_1
        (content "h1")
      )
      (container @h1_1)
    )
    (container @br_1
      (create @br_1
        (container @br_1
          (content "br")
        )
        (container @br_1)
      )
    )
    (container @h2_1
      (create @h2_1
        (container @h2_1
          (content "h2")
        )
        (container @h2_1)
      )
    )
  )
)
`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("dump mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileSelfClosing(t *testing.T) {
	a := ir.Dump(mustCompile(t, "<input>"))
	b := ir.Dump(mustCompile(t, "<input/>"))
	assert.Equal(t, a, b)

	// A solidus does not close a non-void element.
	_, err := compileString(t, "<div/>", Options{})
	var ue *diag.UnbalancedTagError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, diag.ReasonUnclosed, ue.Reason)
}

func TestCompileText(t *testing.T) {
	out := mustCompile(t, "<p>  Hello {=name} !  {if x} bye {end}</p>")
	el := out.Nodes[0].(*ir.Container)
	text := el.Nodes[1].(*ir.Container)
	want := []ir.Node{
		&ir.Content{Text: "Hello "},
		&ir.Expression{Code: "name"},
		&ir.Content{Text: " !"},
		&ir.Statement{Code: "if x"},
		&ir.Content{Text: "bye"},
		&ir.Statement{Code: "end"},
	}
	if diff := cmp.Diff(want, text.Nodes); diff != "" {
		t.Errorf("text mismatch (-want +got):\n%s", diff)
	}

	ws := mustCompile(t, "<p> \n\t </p>")
	assert.Equal(t, []ir.Node{&ir.Ignore{}}, ws.Nodes[0].(*ir.Container).Nodes[1].(*ir.Container).Nodes)
}

func TestCompileAttributes(t *testing.T) {
	out := mustCompile(t, `<div class="container" onclick="{=lambda { |e| p e }}" hidden data-{=v}="a {=b}"></div>`)
	create := out.Nodes[0].(*ir.Container).Nodes[0].(*ir.Create)
	attrs := create.Setup.Nodes
	require.Len(t, attrs, 4)

	want := []*ir.Attribute{
		{
			Target: "@div_1",
			Kind:   ir.AttrValue,
			Name:   &ir.Container{Target: "@div_1", Nodes: []ir.Node{&ir.Content{Text: "class"}}},
			Value:  &ir.Container{Target: "@div_1", Nodes: []ir.Node{&ir.Content{Text: "container"}}},
		},
		{
			Target: "@div_1",
			Kind:   ir.AttrEvent,
			Name:   &ir.Container{Target: "@div_1", Nodes: []ir.Node{&ir.Content{Text: "click"}}},
			Value:  &ir.Container{Target: "@div_1", Nodes: []ir.Node{&ir.Expression{Code: "lambda { |e| p e }"}}},
		},
		{
			Target: "@div_1",
			Kind:   ir.AttrBool,
			Name:   &ir.Container{Target: "@div_1", Nodes: []ir.Node{&ir.Content{Text: "hidden"}}},
		},
		{
			Target: "@div_1",
			Kind:   ir.AttrValue,
			Name: &ir.Container{Target: "@div_1", Nodes: []ir.Node{
				&ir.Content{Text: "data-"}, &ir.Expression{Code: "v"},
			}},
			Value: &ir.Container{Target: "@div_1", Nodes: []ir.Node{
				&ir.Content{Text: "a "}, &ir.Expression{Code: "b"},
			}},
		},
	}
	for i, w := range want {
		if diff := cmp.Diff(w, attrs[i]); diff != "" {
			t.Errorf("attr %d mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestCompileEventHandlerForms(t *testing.T) {
	for _, src := range []string{
		`<a onclick="{handle}"></a>`,
		`<a onclick=" {=handle} "></a>`,
		`<a onclick="handle"></a>`,
	} {
		out := mustCompile(t, src)
		attr := out.Nodes[0].(*ir.Container).Nodes[0].(*ir.Create).Setup.Nodes[0].(*ir.Attribute)
		require.Equal(t, ir.AttrEvent, attr.Kind, src)
		require.Len(t, attr.Value.Nodes, 1, src)
		switch v := attr.Value.Nodes[0].(type) {
		case *ir.Expression:
			assert.Equal(t, "handle", v.Code, src)
		case *ir.Content:
			assert.Equal(t, "handle", v.Text, src)
		default:
			t.Errorf("%s: unexpected handler %T", src, v)
		}
	}
}

func TestCompileNames(t *testing.T) {
	src := "<div><div></div></div><p></p><my-el></my-el><my_el></my_el><{=tag}></{=tag}>"
	out, err := compileString(t, src, Options{Prefix: "el_"})
	require.NoError(t, err)
	assert.Equal(t, []string{"el_div_1", "el_div_2", "el_p_1", "el_my_el_1", "el_my_el_2", "el_el_1"}, refs(out))

	again, err := compileString(t, src, Options{Prefix: "el_"})
	require.NoError(t, err)
	assert.Equal(t, refs(out), refs(again))
}

func TestCompileDefaultRoot(t *testing.T) {
	out, err := compileString(t, "{=foo}", Options{})
	require.NoError(t, err)
	assert.Equal(t, "root", out.Target)
}

func TestCompileErrors(t *testing.T) {
	cases := []struct {
		name  string
		src   string
		check func(t *testing.T, err error)
	}{
		{
			name: "stray closing tag",
			src:  "<p></p></div>",
			check: func(t *testing.T, err error) {
				var e *diag.UnbalancedTagError
				require.True(t, errors.As(err, &e))
				assert.Equal(t, diag.ReasonStray, e.Reason)
				assert.Equal(t, "div", e.Tag)
				assert.Equal(t, "1:8", e.Pos.String())
			},
		},
		{
			name: "mismatched closing tag",
			src:  "<div><span></div>",
			check: func(t *testing.T, err error) {
				var e *diag.UnbalancedTagError
				require.True(t, errors.As(err, &e))
				assert.Equal(t, diag.ReasonMismatch, e.Reason)
				assert.Equal(t, "span", e.Open)
			},
		},
		{
			name: "unclosed tag",
			src:  "<section>\n  <div>",
			check: func(t *testing.T, err error) {
				var e *diag.UnbalancedTagError
				require.True(t, errors.As(err, &e))
				assert.Equal(t, diag.ReasonUnclosed, e.Reason)
				assert.Equal(t, "div", e.Tag)
				assert.Equal(t, "2:3", e.Pos.String())
			},
		},
		{
			name: "closing a void element",
			src:  "<br></br>",
			check: func(t *testing.T, err error) {
				var e *diag.UnbalancedTagError
				require.True(t, errors.As(err, &e))
				assert.Equal(t, diag.ReasonVoid, e.Reason)
			},
		},
		{
			name:  "event without handler",
			src:   "<div onclick></div>",
			check: invalidAttr("onclick", "event handler requires a value"),
		},
		{
			name:  "event with empty handler",
			src:   `<div onclick=""></div>`,
			check: invalidAttr("onclick", "event handler requires a value"),
		},
		{
			name:  "event with mixed handler",
			src:   `<div onclick="go({=x})"></div>`,
			check: invalidAttr("onclick", "event handler must be a single code block or literal"),
		},
		{
			name:  "bare on",
			src:   `<div on="x"></div>`,
			check: invalidAttr("on", "missing event name"),
		},
		{
			name:  "statement in value",
			src:   `<div class="{if x}"></div>`,
			check: invalidAttr("class", "statement in attribute value"),
		},
		{
			name:  "statement in name",
			src:   `<div data-{x}="1"></div>`,
			check: invalidAttr("data-{x}", "statement in attribute name"),
		},
		{
			name: "statement in tag name",
			src:  `<{x}></{x}>`,
			check: func(t *testing.T, err error) {
				var e *diag.SyntaxError
				require.True(t, errors.As(err, &e))
				assert.Equal(t, "statement in tag name", e.Msg)
			},
		},
		{
			name: "doctype",
			src:  "<!DOCTYPE html><p></p>",
			check: func(t *testing.T, err error) {
				var e *diag.UnrecognizedNodeError
				require.True(t, errors.As(err, &e))
				assert.Equal(t, "doctype", e.Node)
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := compileString(t, tc.src, Options{})
			require.Error(t, err)
			assert.Nil(t, out)
			tc.check(t, err)
		})
	}
}

func invalidAttr(name, reason string) func(*testing.T, error) {
	return func(t *testing.T, err error) {
		var e *diag.InvalidAttributeError
		require.True(t, errors.As(err, &e), "got %T: %v", err, err)
		assert.Equal(t, name, e.Name)
		assert.Equal(t, reason, e.Reason)
	}
}

func TestSelfClosing(t *testing.T) {
	for _, name := range []string{"area", "base", "br", "col", "embed", "hr", "img", "input", "link", "meta", "param", "source", "track", "wbr"} {
		assert.True(t, SelfClosing(name), name)
	}
	for _, name := range []string{"div", "p", "", "inputs", "BR"} {
		assert.False(t, SelfClosing(name), name)
	}
}

// refs lists Create references in document order.
func refs(n ir.Node) []string {
	var out []string
	var walk func(ir.Node)
	walk = func(n ir.Node) {
		switch n := n.(type) {
		case *ir.Container:
			for _, c := range n.Nodes {
				walk(c)
			}
		case *ir.Create:
			out = append(out, n.Ref)
		}
	}
	walk(n)
	return out
}
