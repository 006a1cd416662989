package rerb

import (
	"context"

	"github.com/kilianc/rerb/internal/rerb/build"
	"github.com/kilianc/rerb/internal/rerb/config"
)

// Config holds the rerb.yaml settings.
type Config = config.Config

// DefaultConfig returns the settings used when no rerb.yaml is present:
// Ruby output wrapped in a view model class, brace code blocks.
func DefaultConfig() *Config {
	return config.Default()
}

// Compile turns a template into ruby.wasm DOM-construction code that appends
// to root and creates elements through document. The output has no wrapper
// and is identical for identical input.
func Compile(template, root, document string) (string, error) {
	cfg := config.Default()
	cfg.Template = "raw"
	if root != "" {
		cfg.RootRef = root
	}
	if document != "" {
		cfg.Document = document
	}
	p, err := build.New(cfg)
	if err != nil {
		return "", err
	}
	return p.Body(template)
}

// CompileFile builds the template at path with cfg, wrapped as cfg.Template
// asks. A nil cfg uses DefaultConfig.
//
// The result is suitable for writing next to the template, see OutPath.
func CompileFile(ctx context.Context, path string, src []byte, cfg *Config) ([]byte, error) {
	p, err := build.New(cfg)
	if err != nil {
		return nil, err
	}
	return p.File(ctx, path, src, build.EmitCode)
}

// OutPath is the file CompileFile output for the template at path is
// written to.
func OutPath(path string, cfg *Config) (string, error) {
	p, err := build.New(cfg)
	if err != nil {
		return "", err
	}
	return p.OutPath(path, build.EmitCode), nil
}
