// Package parse turns template text into an ast.Document.
//
// Embedded code blocks are masked first, the remaining markup is tokenized
// with golang.org/x/net/html, and the code blocks are spliced back in as
// ast.Code nodes wherever they appeared: text runs, tag names, attribute
// names and attribute values.
package parse

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/kilianc/rerb/internal/rerb/ast"
	"github.com/kilianc/rerb/internal/rerb/diag"
)

type Syntax int

const (
	// SyntaxBrace recognizes `{code}` statements and `{=code}` expressions.
	SyntaxBrace Syntax = iota
	// SyntaxERB recognizes `<% code %>`, `<%= code %>` and `<%# comment %>`.
	SyntaxERB
)

func (s Syntax) String() string {
	switch s {
	case SyntaxERB:
		return "erb"
	default:
		return "brace"
	}
}

// ParseSyntax maps a configuration value to a Syntax.
func ParseSyntax(s string) (Syntax, error) {
	switch s {
	case "", "brace":
		return SyntaxBrace, nil
	case "erb":
		return SyntaxERB, nil
	default:
		return 0, fmt.Errorf("unknown template syntax %q", s)
	}
}

type Options struct {
	Syntax Syntax
}

// Parse parses src. The returned document lists tags, text runs, comments
// and doctypes in source order; nesting is left to the compiler.
func Parse(src string, opts Options) (*ast.Document, error) {
	p := &parser{src: src}
	p.index()
	if i := strings.IndexAny(src, sentinelOpen+sentinelClose); i >= 0 {
		return nil, &diag.SyntaxError{Pos: p.pos(i), Msg: "reserved private-use character in template"}
	}

	var err error
	switch opts.Syntax {
	case SyntaxERB:
		p.m, err = maskERB(src)
	default:
		p.m, err = maskBrace(src)
	}
	if err != nil {
		var me *maskError
		if errors.As(err, &me) {
			return nil, &diag.SyntaxError{Pos: p.pos(me.offset), Msg: me.msg}
		}
		return nil, err
	}
	return p.parse()
}

type parser struct {
	src   string
	m     masked
	lines []int // offsets of line starts
}

func (p *parser) index() {
	p.lines = append(p.lines[:0], 0)
	for i := 0; i < len(p.src); i++ {
		if p.src[i] == '\n' {
			p.lines = append(p.lines, i+1)
		}
	}
}

// pos converts an offset in the original source into a Pos.
func (p *parser) pos(off int) ast.Pos {
	line := sort.Search(len(p.lines), func(i int) bool { return p.lines[i] > off }) - 1
	if line < 0 {
		line = 0
	}
	return ast.Pos{Offset: off, Line: line + 1, Col: off - p.lines[line] + 1}
}

// maskedPos converts an offset in the masked text into a Pos.
func (p *parser) maskedPos(off int) ast.Pos {
	return p.pos(p.m.origOffset(off))
}

func (p *parser) parse() (*ast.Document, error) {
	doc := &ast.Document{}
	z := html.NewTokenizer(strings.NewReader(p.m.text))
	off := 0
	for {
		tt := z.Next()
		// Raw must be copied before Text or TagName rewrite the buffer.
		raw := string(z.Raw())
		start := off
		off += len(raw)

		var (
			n   ast.Node
			err error
		)
		switch tt {
		case html.ErrorToken:
			if !errors.Is(z.Err(), io.EOF) {
				return nil, &diag.SyntaxError{Pos: p.maskedPos(start), Msg: z.Err().Error()}
			}
			if strings.TrimSpace(raw) != "" {
				return nil, &diag.SyntaxError{Pos: p.maskedPos(start), Msg: "unexpected end of input inside tag"}
			}
			return doc, nil
		case html.TextToken:
			n, err = p.text(string(z.Text()))
		case html.StartTagToken, html.SelfClosingTagToken:
			n, err = p.tag(raw, start, false, tt == html.SelfClosingTagToken)
		case html.EndTagToken:
			n, err = p.tag(raw, start, true, false)
		case html.CommentToken:
			n = &ast.Comment{Text: p.m.restore(string(z.Text())), Pos: p.maskedPos(start)}
		case html.DoctypeToken:
			n = &ast.Doctype{Text: string(z.Text()), Pos: p.maskedPos(start)}
		}
		if err != nil {
			return nil, err
		}
		if n != nil {
			doc.Children = append(doc.Children, n)
		}
	}
}

func (p *parser) text(s string) (ast.Node, error) {
	parts, err := p.expand(s)
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, nil
	}
	return &ast.Text{Parts: parts}, nil
}

// expand splits s at sentinels into RawString and Code parts.
func (p *parser) expand(s string) ([]ast.Node, error) {
	var parts []ast.Node
	for s != "" {
		i := strings.Index(s, sentinelOpen)
		if i < 0 {
			parts = append(parts, &ast.RawString{Value: s})
			break
		}
		rest := s[i+len(sentinelOpen):]
		j := strings.Index(rest, sentinelClose)
		if j < 0 {
			return nil, fmt.Errorf("parse: malformed code sentinel in %q", s)
		}
		n, err := strconv.Atoi(rest[:j])
		if err != nil || n >= len(p.m.blocks) {
			return nil, fmt.Errorf("parse: malformed code sentinel in %q", s)
		}
		b := p.m.blocks[n]
		head := s[:i]
		if b.lead {
			head = strings.TrimSuffix(head, tagLead)
		}
		if head != "" {
			parts = append(parts, &ast.RawString{Value: head})
		}
		parts = append(parts, &ast.Code{Kind: b.kind, Source: b.source, Pos: p.pos(b.offset)})
		s = rest[j+len(sentinelClose):]
	}
	return parts, nil
}

func (p *parser) tag(raw string, start int, closing, solidus bool) (ast.Node, error) {
	i := 1
	if closing {
		i = 2
	}
	nameStart := i
	for i < len(raw) && !isSpace(raw[i]) && raw[i] != '/' && raw[i] != '>' {
		i++
	}
	nameParts, err := p.expand(lowerASCII(raw[nameStart:i]))
	if err != nil {
		return nil, err
	}
	t := &ast.Tag{
		Name:    &ast.TagName{Parts: nameParts},
		Closing: closing,
		Solidus: solidus,
		Pos:     p.maskedPos(start),
	}
	if closing {
		return t, nil
	}

	attrs := lexAttrs(raw, i)
	if len(attrs) == 0 {
		return t, nil
	}
	t.Attrs = &ast.AttrList{}
	for _, a := range attrs {
		name, err := p.expand(lowerASCII(a.key))
		if err != nil {
			return nil, err
		}
		attr := &ast.Attribute{
			Name: &ast.AttrName{Parts: name},
			Pos:  p.maskedPos(start + a.offset),
		}
		if a.hasValue {
			value, err := p.expand(html.UnescapeString(a.value))
			if err != nil {
				return nil, err
			}
			attr.Value = &ast.AttrValue{Quote: a.quote, Parts: value}
		}
		t.Attrs.Attrs = append(t.Attrs.Attrs, attr)
	}
	return t, nil
}

type rawAttr struct {
	key      string
	value    string
	quote    byte
	hasValue bool
	offset   int // within the raw tag
}

// lexAttrs reads the attributes of the raw start tag r from offset i,
// following the tokenizer's attribute states. Unlike html.Tokenizer.TagAttr it
// keeps `name` and `name=""` apart. Repeated names keep the first occurrence.
func lexAttrs(r string, i int) []rawAttr {
	var out []rawAttr
	seen := map[string]bool{}
	for {
		i = skipSpace(r, i)
		if i >= len(r) || r[i] == '>' {
			return out
		}
		ks := i
		for i < len(r) {
			c := r[i]
			if c == '=' && i == ks {
				i++
				continue
			}
			if c == '=' || c == '/' || c == '>' || isSpace(c) {
				break
			}
			i++
		}
		a := rawAttr{key: r[ks:i], offset: ks}

		j := skipSpace(r, i)
		switch {
		case j < len(r) && r[j] == '/':
			i = j + 1
		case j < len(r) && r[j] == '=':
			a.hasValue = true
			j = skipSpace(r, j+1)
			switch {
			case j < len(r) && (r[j] == '"' || r[j] == '\''):
				a.quote = r[j]
				end := strings.IndexByte(r[j+1:], a.quote)
				if end < 0 {
					a.value = strings.TrimSuffix(r[j+1:], ">")
					i = len(r)
				} else {
					a.value = r[j+1 : j+1+end]
					i = j + 1 + end + 1
				}
			case j < len(r) && r[j] == '>':
				i = j
			default:
				vs := j
				for j < len(r) && !isSpace(r[j]) && r[j] != '>' {
					j++
				}
				a.value = r[vs:j]
				i = j
			}
		default:
			i = j
		}

		key := lowerASCII(a.key)
		if a.key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
}

func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\n', '\r', '\t', '\f':
		return true
	}
	return false
}

func lowerASCII(s string) string {
	for i := 0; i < len(s); i++ {
		if 'A' <= s[i] && s[i] <= 'Z' {
			b := []byte(s)
			for j := i; j < len(b); j++ {
				if 'A' <= b[j] && b[j] <= 'Z' {
					b[j] += 'a' - 'A'
				}
			}
			return string(b)
		}
	}
	return s
}
