// Package build runs the whole pipeline for one template: parse, compile,
// export and wrap.
package build

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"goa.design/clue/log"

	"github.com/kilianc/rerb/internal/rerb/compile"
	"github.com/kilianc/rerb/internal/rerb/config"
	"github.com/kilianc/rerb/internal/rerb/export"
	"github.com/kilianc/rerb/internal/rerb/ir"
	"github.com/kilianc/rerb/internal/rerb/page"
	"github.com/kilianc/rerb/internal/rerb/parse"
)

// Emit selects what File produces.
type Emit string

const (
	// EmitCode produces the wrapped target code.
	EmitCode Emit = "code"
	// EmitIR produces the IR dump.
	EmitIR Emit = "ir"
)

func ParseEmit(s string) (Emit, error) {
	switch Emit(s) {
	case "", EmitCode:
		return EmitCode, nil
	case EmitIR:
		return EmitIR, nil
	default:
		return "", fmt.Errorf("unknown emit mode %q", s)
	}
}

// Pipeline is a validated config resolved into the options of every stage.
// It holds no per-template state and may be shared.
type Pipeline struct {
	cfg      *config.Config
	parse    parse.Options
	compile  compile.Options
	exporter *export.Exporter
	kind     page.Kind
}

func New(cfg *config.Config) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	syntax, err := parse.ParseSyntax(cfg.Syntax)
	if err != nil {
		return nil, err
	}
	target, err := export.ByName(cfg.Target)
	if err != nil {
		return nil, err
	}
	text, err := export.ParseTextMode(cfg.Text)
	if err != nil {
		return nil, err
	}
	kind, err := page.ParseKind(cfg.Template)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:   cfg,
		parse: parse.Options{Syntax: syntax},
		compile: compile.Options{
			Root:   cfg.RootRef,
			Prefix: cfg.ElPrefix,
			Ref:    target.Ref,
		},
		exporter: export.New(target, export.Options{
			Root:     cfg.RootRef,
			Document: cfg.Document,
			Text:     text,
		}),
		kind: kind,
	}, nil
}

// IR parses and compiles src.
func (p *Pipeline) IR(src string) (*ir.Container, error) {
	doc, err := parse.Parse(src, p.parse)
	if err != nil {
		return nil, err
	}
	return compile.Compile(doc, p.compile)
}

// Body returns the DOM-construction code for src without any wrapper.
func (p *Pipeline) Body(src string) (string, error) {
	c, err := p.IR(src)
	if err != nil {
		return "", err
	}
	return p.exporter.Export(c), nil
}

// File builds the template at path. The view model name comes from the
// config or, when unset, from the file name.
func (p *Pipeline) File(ctx context.Context, path string, src []byte, emit Emit) ([]byte, error) {
	c, err := p.IR(string(src))
	if err != nil {
		return nil, err
	}
	if emit == EmitIR {
		return []byte(ir.Dump(c)), nil
	}

	body := p.exporter.Export(c)
	vm := p.cfg.ViewModel
	if vm == "" {
		vm = page.ViewModelName(path)
	}
	out, err := page.Render(p.kind, p.cfg.Target, page.Data{
		ViewModel: vm,
		RootID:    p.cfg.RootID,
		RootRef:   p.cfg.RootRef,
		Document:  p.cfg.Document,
		Body:      body,
	})
	if err != nil {
		return nil, err
	}
	if p.cfg.Minify && p.kind.HTML() {
		if out, err = page.Minify(out); err != nil {
			return nil, err
		}
	}
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}

	log.Debug(ctx,
		log.KV{K: "msg", V: "built template"},
		log.KV{K: "path", V: path},
		log.KV{K: "elements", V: Elements(c)},
		log.KV{K: "bytes", V: len(out)},
	)
	return []byte(out), nil
}

// OutPath is the file written next to the template at path: the template
// name without its extensions plus the extension of the configured output.
func (p *Pipeline) OutPath(path string, emit Emit) string {
	dir, base := filepath.Split(path)
	if i := strings.IndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	ext := p.kind.Ext(p.cfg.Target)
	if emit == EmitIR {
		ext = ".ir"
	}
	return filepath.Join(dir, base+ext)
}

// Elements counts the Create nodes in n.
func Elements(n ir.Node) int {
	switch n := n.(type) {
	case *ir.Create:
		return 1
	case *ir.Container:
		total := 0
		for _, c := range n.Nodes {
			total += Elements(c)
		}
		return total
	default:
		return 0
	}
}
