package closure

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ParsePoetryLock reads a poetry.lock file and returns a full closure: the
// lock records every package at its pinned version together with its
// declared dependencies, so the transitive structure is complete without
// contacting a registry. File manifests are not part of the lock and stay
// empty until enriched from an installed environment.
//
// The project name is read from the sibling pyproject.toml when present.
// Packages that no other lock entry depends on become the project's direct
// requirements, mirroring how Poetry roots its lock graph.
func ParsePoetryLock(path string) (*Closure, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lock lockFile
	if err := toml.Unmarshal(data, &lock); err != nil {
		return nil, err
	}

	c := &Closure{Root: pyprojectName(filepath.Dir(path))}
	if c.Root == "" {
		c.Root = projectNameFromDir(filepath.Dir(path))
	}

	present := make(map[string]bool, len(lock.Packages))
	for _, pkg := range lock.Packages {
		present[NormalizeName(pkg.Name)] = true
	}

	incoming := make(map[string]bool)
	for _, pkg := range lock.Packages {
		p := Package{Name: NormalizeName(pkg.Name), Version: pkg.Version}
		for dep := range pkg.Dependencies {
			to := NormalizeName(dep)
			if !present[to] {
				// Optional extras may reference packages outside the lock.
				continue
			}
			p.Dependencies = append(p.Dependencies, to)
			incoming[to] = true
		}
		c.Packages = append(c.Packages, p)
	}

	for _, pkg := range lock.Packages {
		name := NormalizeName(pkg.Name)
		if !incoming[name] {
			c.Requires = append(c.Requires, name)
		}
	}

	c.Sort()
	return c, nil
}

func pyprojectName(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "pyproject.toml"))
	if err != nil {
		return ""
	}
	var pyproject struct {
		Tool struct {
			Poetry struct {
				Name string `toml:"name"`
			} `toml:"poetry"`
		} `toml:"tool"`
		Project struct {
			Name string `toml:"name"`
		} `toml:"project"`
	}
	if err := toml.Unmarshal(data, &pyproject); err != nil {
		return ""
	}
	if pyproject.Tool.Poetry.Name != "" {
		return pyproject.Tool.Poetry.Name
	}
	return pyproject.Project.Name
}

type lockFile struct {
	Packages []lockPackage `toml:"package"`
}

type lockPackage struct {
	Name         string         `toml:"name"`
	Version      string         `toml:"version"`
	Description  string         `toml:"description"`
	Dependencies map[string]any `toml:"dependencies"`
}
