// Package page wraps exported DOM code into a view model class and,
// optionally, an HTML page that boots it.
package page

import (
	"fmt"
	"html"
	"path/filepath"
	"strings"
	"sync"
	"text/template"
	"unicode"

	"github.com/tdewolff/minify/v2"
	minhtml "github.com/tdewolff/minify/v2/html"
)

type Kind string

const (
	// Raw is the exported body on its own.
	Raw Kind = "raw"
	// Class wraps the body in a view model class and instantiates it.
	Class Kind = "class"
	// IIFE is an HTML page running the class with ruby.wasm's
	// browser.script.iife.js loader.
	IIFE Kind = "iife"
	// UMD is an HTML page that fetches a ruby.wasm binary and evaluates the
	// class with the UMD build.
	UMD Kind = "umd"
	// Module is an HTML page running the JavaScript class as a module script.
	Module Kind = "module"
)

var Kinds = []Kind{Raw, Class, IIFE, UMD, Module}

func ParseKind(s string) (Kind, error) {
	if s == "" {
		return Class, nil
	}
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown template kind %q", s)
}

// HTML reports whether k renders a full HTML page.
func (k Kind) HTML() bool {
	return k == IIFE || k == UMD || k == Module
}

// Ext is the file extension used for output of kind k in language target.
func (k Kind) Ext(target string) string {
	switch {
	case k.HTML():
		return ".html"
	case target == "js":
		return ".js"
	default:
		return ".rb"
	}
}

type Data struct {
	ViewModel string
	RootID    string
	RootRef   string
	Document  string
	Body      string
}

func (d Data) withDefaults() Data {
	if d.ViewModel == "" {
		d.ViewModel = "ViewModel"
	}
	if d.RootID == "" {
		d.RootID = "root"
	}
	if d.RootRef == "" {
		d.RootRef = "root"
	}
	if d.Document == "" {
		d.Document = "document"
	}
	return d
}

var funcs = template.FuncMap{
	"indent":   indent,
	"html":     html.EscapeString,
	"quote":    quote,
	"jsEscape": jsTemplateBody,
}

var templates = template.Must(template.New("page").Funcs(funcs).Parse(`
{{- define "ruby/class" -}}
class {{.ViewModel}}
  def initialize
    setup_dom
  end

  private

  def setup_dom
{{indent 4 .Body}}
  end

  def {{.Document}}
    JS.global[:document]
  end

  def {{.RootRef}}
    {{.Document}}.getElementById({{quote .RootID}})
  end
end

{{.ViewModel}}.new
{{- end}}

{{- define "js/class" -}}
class {{.ViewModel}} {
  constructor() {
    this.setupDom();
  }

  setupDom() {
    const {{.RootRef}} = {{.Document}}.getElementById({{quote .RootID}});
{{indent 4 .Body}}
  }
}

new {{.ViewModel}}();
{{- end}}

{{- define "iife" -}}
<html>
  <head>
    <script src="https://cdn.jsdelivr.net/npm/ruby-head-wasm-wasi@2.1.0/dist/browser.script.iife.js"></script>
    <script type="text/ruby">
      require 'js'

{{indent 6 .Class}}
    </script>
  </head>
  <body>
    <div id="{{html .RootID}}"></div>
  </body>
</html>
{{- end}}

{{- define "umd" -}}
<html>
  <script src="https://cdn.jsdelivr.net/npm/@ruby/wasm-wasi@latest/dist/browser.umd.js"></script>
  <script>
    const { DefaultRubyVM } = window["ruby-wasm-wasi"];
    const main = async () => {
      // Fetch and instantiate WebAssembly binary
      const response = await fetch(
        //      Tips: Replace the binary with debug info if you want symbolicated stack trace.
        //      (only nightly release for now)
        //      "https://cdn.jsdelivr.net/npm/ruby-3_2-wasm-wasi@next/dist/ruby.debug+stdlib.wasm"
        "https://cdn.jsdelivr.net/npm/ruby-3_2-wasm-wasi@latest/dist/ruby+stdlib.wasm"
      );
      const buffer = await response.arrayBuffer();
      const module = await WebAssembly.compile(buffer);
      const { vm } = await DefaultRubyVM(module);

      vm.printVersion();
      vm.eval(` + "`" + `
        require 'js'

{{indent 8 (jsEscape .Class)}}
      ` + "`" + `);
    };

    main();
  </script>
  <body>
    <div id="{{html .RootID}}"></div>
  </body>
</html>
{{- end}}

{{- define "module" -}}
<html>
  <head>
    <script type="module">
{{indent 6 .Class}}
    </script>
  </head>
  <body>
    <div id="{{html .RootID}}"></div>
  </body>
</html>
{{- end}}
`))

// Render wraps d.Body according to kind for the given target language
// ("ruby" or "js"). Page kinds that need a specific language reject the
// other one.
func Render(kind Kind, target string, d Data) (string, error) {
	d = d.withDefaults()
	if kind == Raw {
		return d.Body, nil
	}

	lang := "ruby"
	if target == "js" {
		lang = "js"
	}
	switch {
	case (kind == IIFE || kind == UMD) && lang != "ruby":
		return "", fmt.Errorf("template %s requires the ruby target", kind)
	case kind == Module && lang != "js":
		return "", fmt.Errorf("template %s requires the js target", kind)
	}

	class, err := execute(lang+"/class", d)
	if err != nil {
		return "", err
	}
	if kind == Class {
		return class, nil
	}
	return execute(string(kind), struct {
		Data
		Class string
	}{d, class})
}

func execute(name string, data any) (string, error) {
	var b strings.Builder
	if err := templates.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return b.String(), nil
}

// indent prefixes every non-empty line of s with n spaces.
func indent(n int, s string) string {
	pad := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = pad + l
		}
	}
	return strings.Join(lines, "\n")
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "</", `<\/`, "<!--", `<\!--`)

func quote(s string) string {
	return `"` + quoteEscaper.Replace(s) + `"`
}

var jsTemplateEscaper = strings.NewReplacer(`\`, `\\`, "`", "\\`", "${", `\${`)

// jsTemplateBody escapes s for embedding in a JavaScript template literal.
func jsTemplateBody(s string) string {
	return jsTemplateEscaper.Replace(s)
}

var (
	minifier     *minify.M
	minifierOnce sync.Once
)

func getMinifier() *minify.M {
	minifierOnce.Do(func() {
		minifier = minify.New()
		minifier.Add("text/html", &minhtml.Minifier{
			KeepDocumentTags: true,
			KeepEndTags:      true,
			KeepQuotes:       true,
		})
	})
	return minifier
}

// Minify collapses the markup of an HTML page. Script bodies are left alone.
func Minify(page string) (string, error) {
	out, err := getMinifier().String("text/html", page)
	if err != nil {
		return "", fmt.Errorf("minify: %w", err)
	}
	return out, nil
}

// ViewModelName derives a class name from a template path:
// "views/todo_list.erb" becomes "TodoList".
func ViewModelName(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	var b strings.Builder
	upper := true
	for _, r := range base {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if b.Len() == 0 && unicode.IsDigit(r) {
				b.WriteByte('V')
			}
			if upper {
				r = unicode.ToUpper(r)
				upper = false
			}
			b.WriteRune(r)
		default:
			upper = true
		}
	}
	if b.Len() == 0 {
		return "ViewModel"
	}
	return b.String()
}
