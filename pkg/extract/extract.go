// Package extract determines which top-level Python module names a
// package claims. The namespace a package occupies is decided entirely by
// its installed file manifest: single-file modules are root-level .py
// files, package modules are root-level directories holding an
// __init__.py. Everything downstream (collision detection, fix planning,
// import routing) works on these names.
package extract

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// TopLevelModules returns the sorted top-level module names exported by a
// file manifest. Paths are install-root relative and slash-separated, the
// way dist-info RECORD files list them.
//
// A root-level "name.py" yields "name". A path "pkg/..." yields "pkg"
// only when the manifest also contains "pkg/__init__.py"; bare namespace
// directories without an __init__.py are not claimed. Dunder names such
// as __pycache__ and names that are not Python identifiers are skipped.
// An empty manifest yields no modules, which is valid: not every
// distribution installs importable code.
func TopLevelModules(files []string) []string {
	dirs := make(map[string]bool)
	hasInit := make(map[string]bool)
	var singles []string

	for _, f := range files {
		f = strings.TrimPrefix(f, "./")
		if f == "" {
			continue
		}
		slash := strings.IndexByte(f, '/')
		if slash < 0 {
			if name, ok := strings.CutSuffix(f, ".py"); ok {
				singles = append(singles, name)
			}
			continue
		}
		top := f[:slash]
		dirs[top] = true
		if f == top+"/__init__.py" {
			hasInit[top] = true
		}
	}

	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if !seen[name] && isModuleName(name) {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, name := range singles {
		add(name)
	}
	for dir := range dirs {
		if hasInit[dir] {
			add(dir)
		}
	}

	sort.Strings(out)
	return out
}

// isModuleName reports whether name is an importable Python identifier
// and not a dunder.
func isModuleName(name string) bool {
	if name == "" {
		return false
	}
	if strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__") {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// ProjectModules scans a project directory for the top-level modules the
// project itself defines, so the project's own namespace takes part in
// collision detection. Only the directory's immediate children are
// considered, mirroring how the import path sees a source checkout.
// Hidden entries and common non-code directories are skipped.
func ProjectModules(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || skipDirs[name] {
			continue
		}
		if !e.IsDir() {
			files = append(files, name)
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, name, "__init__.py")); err == nil {
			files = append(files, name+"/__init__.py")
		}
	}
	return TopLevelModules(files), nil
}

var skipDirs = map[string]bool{
	"build":         true,
	"dist":          true,
	"docs":          true,
	"node_modules":  true,
	"site-packages": true,
	"tests":         true,
	"venv":          true,
}
