package build

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"goa.design/clue/log"

	"github.com/kilianc/rerb/internal/rerb/config"
	"github.com/kilianc/rerb/internal/rerb/diag"
)

func pipeline(t *testing.T, mutate func(*config.Config)) *Pipeline {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	p, err := New(cfg)
	require.NoError(t, err)
	return p
}

func TestBody(t *testing.T) {
	got, err := pipeline(t, nil).Body("<h1>Hello World</h1>")
	require.NoError(t, err)
	want := strings.Join([]string{
		"@h1_1 = document.createElement('h1')",
		"root.appendChild(@h1_1)",
		`@h1_1.appendChild(document.createTextNode("Hello World"))`,
	}, "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("body mismatch (-want +got):\n%s", diff)
	}
}

func TestBodyOptions(t *testing.T) {
	p := pipeline(t, func(c *config.Config) {
		c.Target = "js"
		c.Template = "raw"
		c.RootRef = "mount"
		c.Document = "doc"
		c.ElPrefix = "el_"
		c.Text = "accumulate"
		c.Syntax = "erb"
	})
	got, err := p.Body("<p>Hi <%= name %></p>")
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"const el_p_1 = doc.createElement('p');",
		"mount.appendChild(el_p_1);",
		`el_p_1.textContent += "Hi ";`,
		"el_p_1.textContent += `${name}`;",
	}, "\n"), got)
}

func TestFileClass(t *testing.T) {
	got, err := pipeline(t, nil).File(context.Background(), "views/todo_list.erb", []byte("<ul></ul>"), EmitCode)
	require.NoError(t, err)
	s := string(got)
	assert.True(t, strings.HasPrefix(s, "class TodoList\n"), s)
	assert.True(t, strings.HasSuffix(s, "TodoList.new\n"), s)
	assert.Contains(t, s, "    @ul_1 = document.createElement('ul')\n")
}

func TestFileViewModelOverride(t *testing.T) {
	p := pipeline(t, func(c *config.Config) { c.ViewModel = "Widget" })
	got, err := p.File(context.Background(), "x.erb", []byte("<p></p>"), EmitCode)
	require.NoError(t, err)
	assert.Contains(t, string(got), "class Widget\n")
}

func TestFileMinify(t *testing.T) {
	src := []byte("<h1>Hi</h1>")
	plain, err := pipeline(t, func(c *config.Config) { c.Template = "iife" }).
		File(context.Background(), "a.erb", src, EmitCode)
	require.NoError(t, err)
	small, err := pipeline(t, func(c *config.Config) { c.Template = "iife"; c.Minify = true }).
		File(context.Background(), "a.erb", src, EmitCode)
	require.NoError(t, err)
	assert.Less(t, len(small), len(plain))
	assert.Contains(t, string(small), "@h1_1 = document.createElement('h1')")

	// Minify only applies to HTML pages.
	rb, err := pipeline(t, func(c *config.Config) { c.Minify = true }).
		File(context.Background(), "a.erb", src, EmitCode)
	require.NoError(t, err)
	assert.Contains(t, string(rb), "\n  def setup_dom\n")
}

func TestFileEmitIR(t *testing.T) {
	got, err := pipeline(t, nil).File(context.Background(), "a.erb", []byte("<br>"), EmitIR)
	require.NoError(t, err)
	assert.Contains(t, string(got), "(create @br_1")
}

func TestFileLogs(t *testing.T) {
	var buf bytes.Buffer
	ctx := log.Context(context.Background(), log.WithOutput(&buf), log.WithFormat(log.FormatJSON), log.WithDebug())
	_, err := pipeline(t, nil).File(ctx, "views/card.erb", []byte("<div><p></p></div>"), EmitCode)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "views/card.erb")
	assert.Contains(t, buf.String(), "built template")
}

func TestFileErrors(t *testing.T) {
	p := pipeline(t, nil)
	_, err := p.File(context.Background(), "a.erb", []byte("<div>"), EmitCode)
	var unbalanced *diag.UnbalancedTagError
	require.True(t, errors.As(err, &unbalanced), "got %v", err)
	assert.Equal(t, "div", unbalanced.Tag)

	_, err = p.File(context.Background(), "a.erb", []byte("<p>{=</p>"), EmitCode)
	var syntax *diag.SyntaxError
	require.True(t, errors.As(err, &syntax), "got %v", err)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Template = "module"
	_, err := New(cfg)
	var ve *config.ValidationError
	require.True(t, errors.As(err, &ve), "got %v", err)
}

func TestNewNilConfig(t *testing.T) {
	p, err := New(nil)
	require.NoError(t, err)
	assert.Equal(t, "a.rb", p.OutPath("a.erb", EmitCode))
}

func TestOutPath(t *testing.T) {
	cases := []struct {
		mutate func(*config.Config)
		emit   Emit
		in     string
		want   string
	}{
		{nil, EmitCode, "views/todo.html.erb", "views/todo.rb"},
		{func(c *config.Config) { c.Template = "umd" }, EmitCode, "a/page.erb", "a/page.html"},
		{func(c *config.Config) { c.Target = "js" }, EmitCode, "counter.erb", "counter.js"},
		{nil, EmitIR, "counter.erb", "counter.ir"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, pipeline(t, tc.mutate).OutPath(tc.in, tc.emit), tc.in)
	}
}

func TestElements(t *testing.T) {
	c, err := pipeline(t, nil).IR("<ul><li>a</li><li>b<br></li></ul><hr>")
	require.NoError(t, err)
	assert.Equal(t, 5, Elements(c))
}

func TestParseEmit(t *testing.T) {
	e, err := ParseEmit("")
	require.NoError(t, err)
	assert.Equal(t, EmitCode, e)
	e, err = ParseEmit("ir")
	require.NoError(t, err)
	assert.Equal(t, EmitIR, e)
	_, err = ParseEmit("ast")
	assert.EqualError(t, err, `unknown emit mode "ast"`)
}
