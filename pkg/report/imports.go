package report

import (
	"bufio"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/modguard/modguard/pkg/collision"
)

var importRE = regexp.MustCompile(`^\s*(?:import\s+([A-Za-z_][\w.]*)|from\s+([A-Za-z_][\w.]*)\s+import\b)`)

// ScanImports walks the project's .py files and records every import of
// one of the given modules. Results are keyed by top-level module and
// ordered by file, then line. Directories that never hold project code
// (hidden dirs, virtualenvs, caches) are skipped.
func ScanImports(dir string, modules []string) (map[string][]ImportUse, error) {
	watch := make(map[string]bool, len(modules))
	for _, m := range modules {
		watch[m] = true
	}
	if len(watch) == 0 {
		return nil, nil
	}

	uses := make(map[string][]ImportUse)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != dir && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(name, ".py") {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = path
		}
		return scanFile(path, filepath.ToSlash(rel), watch, uses)
	})
	if err != nil {
		return nil, err
	}

	for m := range uses {
		sort.Slice(uses[m], func(i, j int) bool {
			if uses[m][i].File != uses[m][j].File {
				return uses[m][i].File < uses[m][j].File
			}
			return uses[m][i].Line < uses[m][j].Line
		})
	}
	if len(uses) == 0 {
		return nil, nil
	}
	return uses, nil
}

func scanFile(path, rel string, watch map[string]bool, uses map[string][]ImportUse) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for line := 1; scanner.Scan(); line++ {
		m := importRE.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		module := m[1]
		if module == "" {
			module = m[2]
		}
		top := strings.SplitN(module, ".", 2)[0]
		if !watch[top] {
			continue
		}
		uses[top] = append(uses[top], ImportUse{
			File:      rel,
			Line:      line,
			Statement: strings.TrimSpace(scanner.Text()),
		})
	}
	return scanner.Err()
}

var skipDirs = map[string]bool{
	"__pycache__":   true,
	"build":         true,
	"dist":          true,
	"node_modules":  true,
	"site-packages": true,
	"venv":          true,
}

// Refine escalates collision severity by observed usage: a module the
// project's own code imports is one sys.path reshuffle away from
// breaking, so its collision moves up one level. Severities never move
// down and whitelisted collisions are left alone.
func Refine(collisions []collision.Collision, uses map[string][]ImportUse) []collision.Collision {
	out := make([]collision.Collision, len(collisions))
	copy(out, collisions)
	for i := range out {
		if out[i].Whitelisted || len(uses[out[i].Module]) == 0 {
			continue
		}
		switch out[i].Severity {
		case collision.Informational:
			out[i].Severity = collision.Warning
		case collision.Warning:
			out[i].Severity = collision.Critical
		}
	}
	return out
}
