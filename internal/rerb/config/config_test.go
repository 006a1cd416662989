package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	writeFile(t, path, "target: js\ntemplate: module\nroot_id: app\nel_prefix: el_\nminify: true\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "js", cfg.Target)
	assert.Equal(t, "module", cfg.Template)
	assert.Equal(t, "app", cfg.RootID)
	assert.Equal(t, "el_", cfg.ElPrefix)
	assert.True(t, cfg.Minify)
	// Unset keys keep their defaults.
	assert.Equal(t, "root", cfg.RootRef)
	assert.Equal(t, "document", cfg.Document)
	assert.Equal(t, "brace", cfg.Syntax)
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	writeFile(t, path, "")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	writeFile(t, path, "tagret: js\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tagret")
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func(*Config)
		problems []string
	}{
		{
			name:     "unknown target",
			mutate:   func(c *Config) { c.Target = "python" },
			problems: []string{`target must be one of [ruby js], got "python"`},
		},
		{
			name:     "iife needs ruby",
			mutate:   func(c *Config) { c.Target = "js"; c.Template = "iife" },
			problems: []string{"template iife requires target ruby"},
		},
		{
			name:     "module needs js",
			mutate:   func(c *Config) { c.Template = "module" },
			problems: []string{"template module requires target js"},
		},
		{
			name: "every bad field is reported",
			mutate: func(c *Config) {
				c.RootRef = "my-root"
				c.Document = ""
				c.ElPrefix = "1x"
				c.Text = "append"
			},
			problems: []string{
				`root_ref must be an identifier, got "my-root"`,
				"document is required",
				`el_prefix must be an identifier, got "1x"`,
				`text must be one of [node accumulate], got "append"`,
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tc.problems, ve.Problems)
		})
	}
}

func TestFind(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, FileName), "target: ruby\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	got, err := Find(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, FileName), got)

	// A directory named like the file is not a match.
	other := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(other, FileName), 0o755))
	got, err = Find(other)
	require.NoError(t, err)
	if got != "" {
		// Some ancestor of the temp dir may carry a real rerb.yaml.
		assert.NotEqual(t, filepath.Join(other, FileName), got)
	}
}
