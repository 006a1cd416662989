package build

import (
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// TemplateExt is the suffix a file needs to be picked up as a template.
const TemplateExt = ".erb"

// IsTemplate reports whether name is a template file name. Stacked
// extensions such as row.html.erb count; OutPath drops all of them.
func IsTemplate(name string) bool {
	return strings.HasSuffix(name, TemplateExt) && len(name) > len(TemplateExt)
}

// Templates resolves patterns relative to cwd into sorted absolute template
// paths. A pattern ending in "..." walks the tree below it, a directory
// lists its own templates and anything else must name a template file.
func Templates(cwd string, patterns []string) ([]string, error) {
	set := map[string]struct{}{}
	for _, pat := range patterns {
		pat = strings.TrimSpace(pat)
		if pat == "" {
			continue
		}
		var err error
		if base, ok := recursive(pat); ok {
			err = walkTemplates(resolve(cwd, base), set)
		} else {
			err = addTemplates(resolve(cwd, pat), set)
		}
		if err != nil {
			return nil, err
		}
	}
	return slices.Sorted(maps.Keys(set)), nil
}

func recursive(pat string) (string, bool) {
	if pat != "..." && !strings.HasSuffix(pat, "/...") {
		return "", false
	}
	base := strings.TrimSuffix(strings.TrimSuffix(pat, "..."), "/")
	if base == "" {
		base = "."
	}
	return base, true
}

func resolve(cwd, p string) string {
	if !filepath.IsAbs(p) {
		p = filepath.Join(cwd, p)
	}
	return filepath.Clean(p)
}

func addTemplates(path string, set map[string]struct{}) error {
	st, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !st.IsDir() {
		if !IsTemplate(path) {
			return fmt.Errorf("not a %s template: %s", TemplateExt, path)
		}
		set[path] = struct{}{}
		return nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Type().IsRegular() && IsTemplate(e.Name()) {
			set[filepath.Join(path, e.Name())] = struct{}{}
		}
	}
	return nil
}

// walkTemplates skips vendor, node_modules and hidden directories below root.
func walkTemplates(root string, set map[string]struct{}) error {
	return filepath.WalkDir(root, func(path string, de fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case de.IsDir():
			if path != root && skipDir(de.Name()) {
				return filepath.SkipDir
			}
		case IsTemplate(de.Name()):
			set[path] = struct{}{}
		}
		return nil
	})
}

func skipDir(name string) bool {
	return name == "vendor" || name == "node_modules" || strings.HasPrefix(name, ".")
}
