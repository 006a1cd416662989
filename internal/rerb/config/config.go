// Package config loads and validates rerb settings from rerb.yaml.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up by Find.
const FileName = "rerb.yaml"

type Config struct {
	// Target is the output language: ruby (ruby.wasm JS interop) or js.
	Target string `yaml:"target" validate:"oneof=ruby js"`
	// Template selects the wrapper around the generated code.
	Template string `yaml:"template" validate:"oneof=raw class iife umd module"`
	// RootID is the id of the mount element in the page.
	RootID string `yaml:"root_id" validate:"required,printascii"`
	// RootRef is the reference the generated code appends top-level
	// elements to.
	RootRef string `yaml:"root_ref" validate:"required,ident"`
	// Document is the reference that owns createElement.
	Document string `yaml:"document" validate:"required,ident"`
	// ElPrefix is prepended to every generated element reference.
	ElPrefix string `yaml:"el_prefix" validate:"omitempty,ident"`
	// Text is the text policy: node appends text nodes, accumulate appends
	// to the element's text.
	Text string `yaml:"text" validate:"oneof=node accumulate"`
	// Syntax is the code block syntax: brace ({code}, {=code}) or erb.
	Syntax string `yaml:"syntax" validate:"oneof=brace erb"`
	// Minify collapses the markup of HTML page templates.
	Minify bool `yaml:"minify"`
	// ViewModel overrides the class name derived from the template file.
	ViewModel string `yaml:"view_model" validate:"omitempty,ident"`
}

func Default() *Config {
	return &Config{
		Target:   "ruby",
		Template: "class",
		RootID:   "root",
		RootRef:  "root",
		Document: "document",
		Text:     "node",
		Syntax:   "brace",
	}
}

// Load reads path on top of the defaults and validates the result. Unknown
// keys are rejected.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	defer f.Close()

	cfg := Default()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Find walks up from dir looking for rerb.yaml. It returns "" when there is
// none.
func Find(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		p := filepath.Join(dir, FileName)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// ValidationError lists every invalid setting.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid config: " + strings.Join(e.Problems, "; ")
}

var identRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("ident", func(fl validator.FieldLevel) bool {
		return identRE.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		c := sl.Current().Interface().(Config)
		switch c.Template {
		case "iife", "umd":
			if c.Target != "ruby" {
				sl.ReportError(c.Template, "template", "Template", "ruby_only", "")
			}
		case "module":
			if c.Target != "js" {
				sl.ReportError(c.Template, "template", "Template", "js_only", "")
			}
		}
	}, Config{})
	return v
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	ve := &ValidationError{}
	for _, fe := range verrs {
		ve.Problems = append(ve.Problems, describe(fe))
	}
	return ve
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value())
	case "ident":
		return fmt.Sprintf("%s must be an identifier, got %q", fe.Field(), fe.Value())
	case "printascii":
		return fmt.Sprintf("%s must be printable ASCII", fe.Field())
	case "ruby_only":
		return fmt.Sprintf("template %s requires target ruby", fe.Value())
	case "js_only":
		return fmt.Sprintf("template %s requires target js", fe.Value())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
