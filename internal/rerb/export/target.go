package export

import (
	"fmt"
	"strings"
)

// Fragment is one piece of a string literal: literal text, or code whose
// value is interpolated.
type Fragment struct {
	Text string
	Code bool
}

// Target renders DOM operations in one output language. Every method returns
// a single statement without a trailing newline.
type Target interface {
	Name() string
	// Ref decorates a generated element name, e.g. as an instance variable.
	Ref(name string) string
	// Literal renders an interpolating string literal.
	Literal(frags []Fragment) string
	// Static renders a literal that holds no code, used for tag names.
	Static(s string) string

	CreateElement(ref, tag, document string) string
	AppendChild(parent, child string) string
	AppendText(target, value, document string) string
	AccumulateText(target, value string) string
	SetAttribute(target, name, value string) string
	SetBoolAttribute(target, name string) string
	AddEventListener(target, event, handler string) string
}

// ByName returns the target registered under name.
func ByName(name string) (Target, error) {
	switch name {
	case "", "ruby":
		return Ruby{}, nil
	case "js", "javascript":
		return JavaScript{}, nil
	default:
		return nil, fmt.Errorf("unknown target %q", name)
	}
}

// Ruby emits ruby.wasm JS interop code. Element references are instance
// variables so they stay reachable from the rest of the view model.
type Ruby struct{}

func (Ruby) Name() string { return "ruby" }

func (Ruby) Ref(name string) string { return "@" + name }

var rubyEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"#{", `\#{`,
	"#@", `\#@`,
	"#$", `\#$`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
	"</", `<\/`,
	"<!--", `<\!--`,
)

func (Ruby) Literal(frags []Fragment) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, f := range frags {
		if f.Code {
			b.WriteString("#{" + f.Text + "}")
			continue
		}
		b.WriteString(rubyEscaper.Replace(f.Text))
	}
	b.WriteByte('"')
	return b.String()
}

func (Ruby) Static(s string) string { return singleQuoted(s) }

func (Ruby) CreateElement(ref, tag, document string) string {
	return fmt.Sprintf("%s = %s.createElement(%s)", ref, document, tag)
}

func (Ruby) AppendChild(parent, child string) string {
	return fmt.Sprintf("%s.appendChild(%s)", parent, child)
}

func (Ruby) AppendText(target, value, document string) string {
	return fmt.Sprintf("%s.appendChild(%s.createTextNode(%s))", target, document, value)
}

func (Ruby) AccumulateText(target, value string) string {
	return fmt.Sprintf("%s[:innerText] = %s[:innerText].to_s + %s", target, target, value)
}

func (Ruby) SetAttribute(target, name, value string) string {
	return fmt.Sprintf("%s.setAttribute(%s, %s)", target, name, value)
}

func (Ruby) SetBoolAttribute(target, name string) string {
	return fmt.Sprintf("%s.setAttribute(%s, true)", target, name)
}

func (Ruby) AddEventListener(target, event, handler string) string {
	return fmt.Sprintf("%s.addEventListener(%s, %s)", target, event, handler)
}

// JavaScript emits plain browser DOM code. Literals without code are
// double-quoted; literals with code become template literals.
type JavaScript struct{}

func (JavaScript) Name() string { return "js" }

func (JavaScript) Ref(name string) string { return name }

var (
	jsStringEscaper = strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"\n", `\n`,
		"\r", `\r`,
		"\t", `\t`,
		"\u2028", `\u2028`,
		"\u2029", `\u2029`,
		"</", `<\/`,
		"<!--", `<\!--`,
	)
	jsTemplateEscaper = strings.NewReplacer(
		`\`, `\\`,
		"`", "\\`",
		"${", `\${`,
		"\n", `\n`,
		"\r", `\r`,
		"\t", `\t`,
		"</", `<\/`,
		"<!--", `<\!--`,
	)
)

func (JavaScript) Literal(frags []Fragment) string {
	var b strings.Builder
	if !hasCode(frags) {
		b.WriteByte('"')
		for _, f := range frags {
			b.WriteString(jsStringEscaper.Replace(f.Text))
		}
		b.WriteByte('"')
		return b.String()
	}
	b.WriteByte('`')
	for _, f := range frags {
		if f.Code {
			b.WriteString("${" + f.Text + "}")
			continue
		}
		b.WriteString(jsTemplateEscaper.Replace(f.Text))
	}
	b.WriteByte('`')
	return b.String()
}

func (JavaScript) Static(s string) string { return singleQuoted(s) }

func (JavaScript) CreateElement(ref, tag, document string) string {
	return fmt.Sprintf("const %s = %s.createElement(%s);", ref, document, tag)
}

func (JavaScript) AppendChild(parent, child string) string {
	return fmt.Sprintf("%s.appendChild(%s);", parent, child)
}

func (JavaScript) AppendText(target, value, document string) string {
	return fmt.Sprintf("%s.appendChild(%s.createTextNode(%s));", target, document, value)
}

func (JavaScript) AccumulateText(target, value string) string {
	return fmt.Sprintf("%s.textContent += %s;", target, value)
}

func (JavaScript) SetAttribute(target, name, value string) string {
	return fmt.Sprintf("%s.setAttribute(%s, %s);", target, name, value)
}

func (JavaScript) SetBoolAttribute(target, name string) string {
	return fmt.Sprintf("%s.setAttribute(%s, true);", target, name)
}

func (JavaScript) AddEventListener(target, event, handler string) string {
	return fmt.Sprintf("%s.addEventListener(%s, %s);", target, event, handler)
}

var singleQuoteEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func singleQuoted(s string) string {
	return "'" + singleQuoteEscaper.Replace(s) + "'"
}

func hasCode(frags []Fragment) bool {
	for _, f := range frags {
		if f.Code {
			return true
		}
	}
	return false
}
