package parse

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kilianc/rerb/internal/rerb/ast"
)

// Code blocks are replaced by private-use sentinels before tokenizing so the
// HTML tokenizer never sees `<`, `>` or quotes that belong to embedded code.
const (
	sentinelOpen  = "\uE000"
	sentinelClose = "\uE001"
	tagLead       = "x"
)

type block struct {
	kind   ast.CodeKind
	source string // trimmed code
	raw    string // original text including delimiters
	offset int    // original offset of the opening delimiter
	// lead is set when the sentinel was prefixed with tagLead so the
	// tokenizer reads `<{=tag}>` as a start tag.
	lead bool
}

// segment records one replacement so masked offsets map back to the source.
type segment struct {
	masked, maskedLen int
	orig, origLen     int
}

type masked struct {
	text     string
	blocks   []block
	segments []segment
}

type masker struct {
	src string
	b   strings.Builder
	m   masked
	// skip returns the end of the code block starting at i, if one does.
	skip func(i int) (int, bool)
}

func (mk *masker) replace(orig, origLen int, with string) {
	mk.m.segments = append(mk.m.segments, segment{
		masked:    mk.b.Len(),
		maskedLen: len(with),
		orig:      orig,
		origLen:   origLen,
	})
	mk.b.WriteString(with)
}

func (mk *masker) block(orig, origLen int, kind ast.CodeKind, code string) {
	n := len(mk.m.blocks)
	s := mk.b.String()
	lead := (strings.HasSuffix(s, "<") || strings.HasSuffix(s, "</")) && mk.inTag(orig+origLen)
	mk.m.blocks = append(mk.m.blocks, block{
		kind:   kind,
		source: code,
		raw:    mk.src[orig : orig+origLen],
		offset: orig,
		lead:   lead,
	})
	with := sentinelOpen + strconv.Itoa(n) + sentinelClose
	if lead {
		with = tagLead + with
	}
	mk.replace(orig, origLen, with)
}

// inTag reports whether the source from i on closes a tag before another one
// opens, i.e. a code block right after `<` is the tag name and not text.
// Quoted attribute values and further code blocks are skipped.
func (mk *masker) inTag(i int) bool {
	afterEq := false
	for i < len(mk.src) {
		if end, ok := mk.skip(i); ok {
			i, afterEq = end, false
			continue
		}
		switch c := mk.src[i]; {
		case c == '>':
			return true
		case c == '<':
			return false
		case (c == '"' || c == '\'') && afterEq:
			end, ok := skipQuoted(mk.src, i)
			if !ok {
				return false
			}
			i, afterEq = end+1, false
			continue
		case c == '=':
			afterEq = true
		case !isSpace(c):
			afterEq = false
		}
		i++
	}
	return false
}

func (mk *masker) done() masked {
	mk.m.text = mk.b.String()
	return mk.m
}

// maskError is converted into a positioned SyntaxError by the parser.
type maskError struct {
	offset int
	msg    string
}

func (e *maskError) Error() string {
	return fmt.Sprintf("offset %d: %s", e.offset, e.msg)
}

func maskBrace(src string) (masked, error) {
	mk := &masker{src: src}
	mk.skip = func(i int) (int, bool) {
		if src[i] != '{' || (i > 0 && src[i-1] == '\\') {
			return 0, false
		}
		end, ok := matchBrace(src, i)
		return end + 1, ok
	}
	// Inside <script> and <style> bodies a bare brace is CSS or JS, so only
	// {=expr} is code there.
	var pending, rawClose string
	for i := 0; i < len(src); {
		switch c := src[i]; {
		case c == '\\' && i+1 < len(src) && src[i+1] == '{':
			mk.replace(i, 2, "{")
			i += 2
		case c == '{' && rawClose != "" && !strings.HasPrefix(src[i:], "{="):
			mk.b.WriteByte(c)
			i++
		case c == '{':
			end, ok := matchBrace(src, i)
			if !ok {
				return masked{}, &maskError{i, "unterminated code block"}
			}
			inner := src[i+1 : end]
			kind := ast.CodeStatement
			if strings.HasPrefix(inner, "=") {
				kind = ast.CodeExpression
				inner = inner[1:]
			}
			code := strings.TrimSpace(inner)
			if code == "" {
				return masked{}, &maskError{i, "empty code block"}
			}
			mk.block(i, end+1-i, kind, code)
			i = end + 1
		default:
			switch {
			case c == '<' && rawClose == "":
				pending = rawTextOpen(src[i:])
			case c == '<' && hasPrefixFold(src[i:], rawClose):
				rawClose = ""
			case c == '>' && pending != "":
				rawClose, pending = pending, ""
			}
			mk.b.WriteByte(c)
			i++
		}
	}
	return mk.done(), nil
}

// rawTextOpen returns the closing tag prefix when s starts a <script> or
// <style> start tag.
func rawTextOpen(s string) string {
	for _, name := range []string{"script", "style"} {
		open := "<" + name
		if !hasPrefixFold(s, open) {
			continue
		}
		if len(s) == len(open) {
			return ""
		}
		switch s[len(open)] {
		case ' ', '\t', '\n', '\r', '\f', '/', '>':
			return "</" + name
		}
	}
	return ""
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// matchBrace returns the index of the brace closing the one at open. Nested
// braces are counted and quoted strings inside the code are skipped.
func matchBrace(src string, open int) (int, bool) {
	depth := 0
	for i := open; i < len(src); i++ {
		switch src[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		case '"', '\'', '`':
			end, ok := skipQuoted(src, i)
			if !ok {
				return 0, false
			}
			i = end
		}
	}
	return 0, false
}

func skipQuoted(src string, open int) (int, bool) {
	q := src[open]
	for i := open + 1; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case q:
			return i, true
		}
	}
	return 0, false
}

func maskERB(src string) (masked, error) {
	mk := &masker{src: src}
	mk.skip = func(i int) (int, bool) {
		if !strings.HasPrefix(src[i:], "<%") || strings.HasPrefix(src[i:], "<%%") {
			return 0, false
		}
		end := strings.Index(src[i+2:], "%>")
		return i + 2 + end + 2, end >= 0
	}
	for i := 0; i < len(src); {
		switch {
		case strings.HasPrefix(src[i:], "<%%"):
			mk.replace(i, 3, "<%")
			i += 3
		case strings.HasPrefix(src[i:], "<%"):
			end := strings.Index(src[i+2:], "%>")
			if end < 0 {
				return masked{}, &maskError{i, "unterminated code block"}
			}
			inner := src[i+2 : i+2+end]
			inner = strings.TrimPrefix(inner, "-")
			inner = strings.TrimSuffix(inner, "-")
			kind := ast.CodeStatement
			switch {
			case strings.HasPrefix(inner, "="):
				kind = ast.CodeExpression
				inner = inner[1:]
			case strings.HasPrefix(inner, "#"):
				kind = ast.CodeComment
				inner = inner[1:]
			}
			code := strings.TrimSpace(inner)
			if code == "" && kind != ast.CodeComment {
				return masked{}, &maskError{i, "empty code block"}
			}
			mk.block(i, end+4, kind, code)
			i += end + 4
		default:
			mk.b.WriteByte(src[i])
			i++
		}
	}
	return mk.done(), nil
}

// origOffset maps an offset in the masked text back to the source.
func (m *masked) origOffset(off int) int {
	k := sort.Search(len(m.segments), func(k int) bool {
		return m.segments[k].masked > off
	}) - 1
	if k < 0 {
		return off
	}
	s := m.segments[k]
	if off < s.masked+s.maskedLen {
		return s.orig
	}
	return s.orig + s.origLen + (off - s.masked - s.maskedLen)
}

// restore replaces sentinels in s with the original code block text.
func (m *masked) restore(s string) string {
	if !strings.Contains(s, sentinelOpen) {
		return s
	}
	var b strings.Builder
	for {
		i := strings.Index(s, sentinelOpen)
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		rest := s[i+len(sentinelOpen):]
		j := strings.Index(rest, sentinelClose)
		n, err := strconv.Atoi(rest[:max(j, 0)])
		if j < 0 || err != nil || n >= len(m.blocks) {
			b.WriteString(s)
			return b.String()
		}
		head := s[:i]
		if m.blocks[n].lead {
			head = strings.TrimSuffix(head, tagLead)
		}
		b.WriteString(head)
		b.WriteString(m.blocks[n].raw)
		s = rest[j+len(sentinelClose):]
	}
}
