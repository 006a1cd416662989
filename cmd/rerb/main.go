package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"goa.design/clue/log"

	"github.com/kilianc/rerb/internal/rerb/build"
	"github.com/kilianc/rerb/internal/rerb/config"
	"github.com/kilianc/rerb/internal/rerb/diag"
	"github.com/kilianc/rerb/internal/rerb/outfile"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// errReported marks errors whose diagnostic was already written.
var errReported = errors.New("rerb: failed")

type cli struct {
	flags *flag.FlagSet

	configPath string
	target     string
	template   string
	rootID     string
	rootRef    string
	document   string
	elPrefix   string
	text       string
	syntax     string
	minify     bool
	emit       string
	debug      bool
	out        string
	write      bool
}

func newCLI(stderr io.Writer) *cli {
	c := &cli{flags: flag.NewFlagSet("rerb", flag.ContinueOnError)}
	fs := c.flags
	fs.SetOutput(stderr)
	fs.Usage = func() {
		_, _ = fmt.Fprintln(stderr, "Usage: rerb [flags] FILE")
		_, _ = fmt.Fprintln(stderr, "       rerb -w [flags] [paths...]")
		_, _ = fmt.Fprintln(stderr, "")
		_, _ = fmt.Fprintln(stderr, "Compiles an HTML template with embedded code into DOM-construction code.")
		_, _ = fmt.Fprintln(stderr, "FILE may be - to read stdin. With -w, one output file is written next to")
		_, _ = fmt.Fprintln(stderr, "each *.erb template found by the paths.")
		_, _ = fmt.Fprintln(stderr, "")
		_, _ = fmt.Fprintln(stderr, "Paths behave like Go patterns:")
		_, _ = fmt.Fprintln(stderr, "  - ./...        recurse from cwd")
		_, _ = fmt.Fprintln(stderr, "  - ./dir        only that directory (non-recursive)")
		_, _ = fmt.Fprintln(stderr, "  - ./dir/...    recurse from that directory")
		_, _ = fmt.Fprintln(stderr, "  - ./file.erb   only that file")
		_, _ = fmt.Fprintln(stderr, "")
		_, _ = fmt.Fprintln(stderr, "Flags override settings from rerb.yaml.")
		fs.PrintDefaults()
	}
	fs.StringVar(&c.configPath, "config", "", "config file (defaults to the nearest rerb.yaml above cwd)")
	fs.StringVar(&c.target, "target", "", "output language: ruby or js")
	fs.StringVar(&c.template, "template", "", "wrapper: raw, class, iife, umd or module")
	fs.StringVar(&c.rootID, "root", "", "id of the mount element")
	fs.StringVar(&c.rootRef, "root-ref", "", "reference top-level elements are appended to")
	fs.StringVar(&c.document, "document", "", "reference that owns createElement")
	fs.StringVar(&c.elPrefix, "el-prefix", "", "prefix for generated element references")
	fs.StringVar(&c.text, "text", "", "text policy: node or accumulate")
	fs.StringVar(&c.syntax, "syntax", "", "code block syntax: brace or erb")
	fs.BoolVar(&c.minify, "minify", false, "minify HTML page output")
	fs.StringVar(&c.emit, "emit", "code", "what to emit: code or ir")
	fs.BoolVar(&c.debug, "debug", false, "enable debug logs")
	fs.StringVar(&c.out, "o", "", "write output to this file instead of stdout")
	fs.BoolVar(&c.write, "w", false, "write one output file next to each template")
	return c
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	c := newCLI(stderr)
	if err := c.flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if err := c.checkArgs(); err != nil {
		_, _ = fmt.Fprintf(stderr, "rerb: %v\n", err)
		c.flags.Usage()
		return 2
	}

	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format), log.WithOutput(stderr))
	if c.debug {
		ctx = log.Context(ctx, log.WithDebug())
	}

	if err := c.exec(ctx, stdin, stdout, stderr); err != nil {
		if !errors.Is(err, errReported) {
			_, _ = fmt.Fprintf(stderr, "rerb: %v\n", err)
		}
		return 1
	}
	return 0
}

func (c *cli) checkArgs() error {
	if _, err := build.ParseEmit(c.emit); err != nil {
		return err
	}
	switch {
	case c.write && c.out != "":
		return errors.New("cannot use -o with -w")
	case !c.write && c.flags.NArg() != 1:
		return errors.New("expected exactly one template")
	}
	return nil
}

func (c *cli) exec(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	cfg, err := c.config(ctx, cwd)
	if err != nil {
		return err
	}
	p, err := build.New(cfg)
	if err != nil {
		return err
	}
	emit, _ := build.ParseEmit(c.emit)

	if c.write {
		return c.writeAll(ctx, p, emit, cwd, stderr)
	}

	path := c.flags.Arg(0)
	var src []byte
	if path == "-" {
		src, err = io.ReadAll(stdin)
		path = "stdin.erb"
	} else {
		src, err = os.ReadFile(path)
	}
	if err != nil {
		return err
	}
	out, err := p.File(ctx, path, src, emit)
	if err != nil {
		diag.Render(stderr, path, src, err)
		return errReported
	}
	if c.out == "" {
		_, err = stdout.Write(out)
		return err
	}
	if _, err := outfile.WriteGeneratedFile(c.out, out); err != nil {
		return err
	}
	log.Info(ctx, log.KV{K: "msg", V: "wrote"}, log.KV{K: "path", V: c.out})
	return nil
}

// config loads -config, or the nearest rerb.yaml, and applies the flags that
// were set explicitly.
func (c *cli) config(ctx context.Context, cwd string) (*config.Config, error) {
	path := c.configPath
	if path == "" {
		found, err := config.Find(cwd)
		if err != nil {
			return nil, err
		}
		path = found
	}
	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		log.Debug(ctx, log.KV{K: "msg", V: "loaded config"}, log.KV{K: "path", V: path})
	}

	c.flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "target":
			cfg.Target = c.target
		case "template":
			cfg.Template = c.template
		case "root":
			cfg.RootID = c.rootID
		case "root-ref":
			cfg.RootRef = c.rootRef
		case "document":
			cfg.Document = c.document
		case "el-prefix":
			cfg.ElPrefix = c.elPrefix
		case "text":
			cfg.Text = c.text
		case "syntax":
			cfg.Syntax = c.syntax
		case "minify":
			cfg.Minify = c.minify
		}
	})
	return cfg, cfg.Validate()
}

func (c *cli) writeAll(ctx context.Context, p *build.Pipeline, emit build.Emit, cwd string, stderr io.Writer) error {
	patterns := c.flags.Args()
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}
	paths, err := build.Templates(cwd, patterns)
	if err != nil {
		return err
	}

	var allErr error
	for _, pth := range paths {
		if err := generateFile(ctx, p, emit, pth, stderr); err != nil {
			allErr = errors.Join(allErr, err)
		}
	}
	if allErr != nil {
		return errReported
	}
	return nil
}

func generateFile(ctx context.Context, p *build.Pipeline, emit build.Emit, pth string, stderr io.Writer) error {
	src, err := os.ReadFile(pth)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "rerb: %v\n", err)
		return err
	}
	out, err := p.File(ctx, pth, src, emit)
	if err != nil {
		diag.Render(stderr, displayPath(pth), src, err)
		return fmt.Errorf("%s: %w", pth, err)
	}
	outPath := p.OutPath(pth, emit)
	changed, err := outfile.WriteGeneratedFile(outPath, out)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "rerb: %v\n", err)
		return err
	}
	if changed {
		log.Info(ctx, log.KV{K: "msg", V: "wrote"}, log.KV{K: "path", V: displayPath(outPath)})
	}
	return nil
}

// displayPath shortens pth relative to cwd when it lies below it.
func displayPath(pth string) string {
	cwd, err := os.Getwd()
	if err != nil {
		return pth
	}
	rel, err := filepath.Rel(cwd, pth)
	if err != nil || strings.HasPrefix(rel, "..") {
		return pth
	}
	return rel
}
