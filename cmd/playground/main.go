package main

import (
	"context"
	"crypto/sha256"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"goa.design/clue/log"

	"github.com/kilianc/rerb/internal/rerb/build"
	"github.com/kilianc/rerb/internal/rerb/config"
	"github.com/kilianc/rerb/internal/rerb/diag"
	"github.com/kilianc/rerb/internal/rerb/outfile"
)

func main() {
	flag.Usage = func() {
		_, _ = fmt.Fprintln(os.Stderr, "Usage: playground [flags] FILE")
		_, _ = fmt.Fprintln(os.Stderr, "")
		_, _ = fmt.Fprintln(os.Stderr, "Watches FILE and regenerates its page whenever the template changes.")
		_, _ = fmt.Fprintln(os.Stderr, "Settings come from the nearest rerb.yaml; the page defaults to the iife template.")
		flag.PrintDefaults()
	}
	interval := flag.Duration("interval", 300*time.Millisecond, "watch polling interval")
	outFlag := flag.String("o", "", "output file (defaults to the page next to FILE)")
	debug := flag.Bool("debug", false, "enable debug logs")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format), log.WithOutput(os.Stderr))
	if *debug {
		ctx = log.Context(ctx, log.WithDebug())
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	w, err := newWatcher(flag.Arg(0), *outFlag, os.Stderr)
	if err != nil {
		fatal(err)
	}
	w.run(ctx, *interval)
}

type watcher struct {
	path     string
	out      string
	pipeline *build.Pipeline
	stderr   io.Writer

	lastHash [32]byte
	have     bool
}

func newWatcher(path, out string, stderr io.Writer) (*watcher, error) {
	cfg, err := loadConfig(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	p, err := build.New(cfg)
	if err != nil {
		return nil, err
	}
	if out == "" {
		out = p.OutPath(path, build.EmitCode)
	}
	return &watcher{path: path, out: out, pipeline: p, stderr: stderr}, nil
}

// loadConfig reads the nearest rerb.yaml. Without one the playground renders
// an iife page so the output opens straight in a browser.
func loadConfig(dir string) (*config.Config, error) {
	path, err := config.Find(dir)
	if err != nil {
		return nil, err
	}
	if path == "" {
		cfg := config.Default()
		cfg.Template = "iife"
		return cfg, nil
	}
	return config.Load(path)
}

func (w *watcher) run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		w.poll(ctx)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// poll regenerates the page when the template content changed since the last
// poll. Errors are reported and the watch goes on.
func (w *watcher) poll(ctx context.Context) {
	src, err := os.ReadFile(w.path)
	if err != nil {
		_, _ = fmt.Fprintf(w.stderr, "playground: read error: %v\n", err)
		return
	}
	h := sha256.Sum256(src)
	if w.have && h == w.lastHash {
		return
	}
	w.lastHash = h
	w.have = true

	out, err := w.pipeline.File(ctx, w.path, src, build.EmitCode)
	if err != nil {
		diag.Render(w.stderr, w.path, src, err)
		return
	}
	if _, err := outfile.WriteGeneratedFile(w.out, out); err != nil {
		_, _ = fmt.Fprintf(w.stderr, "playground: %v\n", err)
		return
	}
	log.Info(ctx, log.KV{K: "msg", V: "regenerated"}, log.KV{K: "path", V: w.out})
}

func fatal(err error) {
	_, _ = fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
