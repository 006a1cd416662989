package compile

import (
	"strconv"
	"strings"

	"golang.org/x/net/html/atom"

	"github.com/kilianc/rerb/internal/rerb/ast"
)

var selfClosingTags = map[atom.Atom]bool{
	atom.Area:   true,
	atom.Base:   true,
	atom.Br:     true,
	atom.Col:    true,
	atom.Embed:  true,
	atom.Hr:     true,
	atom.Img:    true,
	atom.Input:  true,
	atom.Link:   true,
	atom.Meta:   true,
	atom.Param:  true,
	atom.Source: true,
	atom.Track:  true,
	atom.Wbr:    true,
}

// SelfClosing reports whether name is an HTML void element. Names are
// matched case-sensitively against the lowercase element names.
func SelfClosing(name string) bool {
	a := atom.Lookup([]byte(name))
	return a != 0 && selfClosingTags[a]
}

// staticName returns the tag name when it has no code parts.
func staticName(n *ast.TagName) (string, bool) {
	var b strings.Builder
	for _, p := range n.Parts {
		r, ok := p.(*ast.RawString)
		if !ok {
			return "", false
		}
		b.WriteString(r.Value)
	}
	return b.String(), true
}

// tagType derives the reference stem for a tag: literal parts only, with
// every byte outside [a-z0-9_] replaced by '_'.
func tagType(n *ast.TagName) string {
	var b strings.Builder
	for _, p := range n.Parts {
		r, ok := p.(*ast.RawString)
		if !ok {
			continue
		}
		for i := 0; i < len(r.Value); i++ {
			c := r.Value[i]
			switch {
			case 'a' <= c && c <= 'z', '0' <= c && c <= '9', c == '_':
				b.WriteByte(c)
			case 'A' <= c && c <= 'Z':
				b.WriteByte(c + 'a' - 'A')
			default:
				b.WriteByte('_')
			}
		}
	}
	if b.Len() == 0 {
		return "el"
	}
	return b.String()
}

// namer hands out `<prefix><tagtype>_<n>` references. Counters are per tag
// type and belong to one compilation.
type namer struct {
	prefix string
	counts map[string]int
}

func newNamer(prefix string) *namer {
	return &namer{prefix: prefix, counts: map[string]int{}}
}

func (n *namer) next(typ string) string {
	n.counts[typ]++
	return n.prefix + typ + "_" + strconv.Itoa(n.counts[typ])
}
