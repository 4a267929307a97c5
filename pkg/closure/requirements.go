package closure

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	depNameRE = regexp.MustCompile(`^([a-zA-Z0-9][-a-zA-Z0-9._]*)`)
	pinnedRE  = regexp.MustCompile(`==\s*([0-9][^\s;,]*)`)
)

// ParseRequirements reads a pip requirements.txt file and returns a shallow
// closure: the listed packages as direct requirements of the project, with
// no transitive edges and no file manifests. Pinned versions (==) are
// recorded; any other specifier yields version "latest".
//
// Comments, pip options (-r, -e, --hash), and URL requirements are skipped,
// matching pip's own tolerance for line noise.
func ParseRequirements(path string) (*Closure, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c := &Closure{Root: projectNameFromDir(filepath.Dir(path))}
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' || line[0] == '-' {
			continue
		}
		if strings.Contains(line, "://") || strings.HasPrefix(line, "git+") {
			continue
		}
		m := depNameRE.FindStringSubmatch(line)
		if len(m) < 2 {
			continue
		}
		name := NormalizeName(m[1])
		if seen[name] {
			continue
		}
		seen[name] = true

		version := "latest"
		if vm := pinnedRE.FindStringSubmatch(line); len(vm) > 1 {
			version = vm[1]
		}
		c.Requires = append(c.Requires, name)
		c.Packages = append(c.Packages, Package{Name: name, Version: version})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	c.Sort()
	return c, nil
}

// projectNameFromDir derives a project name from its directory, falling
// back to RootName when the directory is unhelpful ("." or empty).
func projectNameFromDir(dir string) string {
	base := filepath.Base(dir)
	if base == "." || base == string(filepath.Separator) || base == "" {
		return RootName
	}
	return base
}
