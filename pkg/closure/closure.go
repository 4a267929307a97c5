// Package closure models a resolved dependency closure: every package in a
// project's full dependency tree, pinned to one version, with its declared
// dependencies and installed file manifest.
//
// The closure is the input boundary of modguard. Producing it is the job of
// an external metadata collector (a lockfile reader, an installed
// environment walker, or CI tooling); analyzing it is the job of the rest
// of this module. The canonical interchange format is a JSON document read
// and written by [ReadJSON] and [WriteJSON].
package closure

import (
	"sort"
	"strings"

	"github.com/modguard/modguard/pkg/errors"
)

// RootName is the package name used for the project itself, the root of
// every dependency graph. It is deliberately not a valid PyPI name.
const RootName = "__project__"

// Package describes one resolved package in the closure.
type Package struct {
	Name         string      `json:"name"`                   // Normalized package name (PEP 503)
	Version      string      `json:"version"`                // Pinned version
	Dependencies []string    `json:"dependencies,omitempty"` // Declared direct dependency names
	Files        []string    `json:"files,omitempty"`        // Install-root-relative file manifest
	Candidates   []Candidate `json:"candidates,omitempty"`   // Alternative versions known from index metadata
}

// Candidate is an alternative version of a package together with the
// top-level module names it would export. Candidates bound the local
// search done by the version-constraint strategy; they are data supplied
// by the metadata collector or an index client, never fetched by the core.
type Candidate struct {
	Version string   `json:"version"`
	Modules []string `json:"modules,omitempty"`
}

// Closure is a complete resolved dependency set for one project.
type Closure struct {
	Root     string    `json:"root"`     // Project name (display only)
	Requires []string  `json:"requires"` // The project's direct dependencies
	Packages []Package `json:"packages"` // Every package in the closure
}

// NormalizeName converts a package name to its canonical form.
// Applies lowercase and replaces underscores and dots with hyphens,
// following PEP 503 normalization rules used by PyPI.
func NormalizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, "_", "-")
	return strings.ReplaceAll(s, ".", "-")
}

// Package returns the closure entry for the given (normalized) name.
// Lookup is by name alone; the graph builder rejects closures that carry
// a name at more than one version before any lookup matters.
func (c *Closure) Package(name string) (*Package, bool) {
	for i := range c.Packages {
		if c.Packages[i].Name == name {
			return &c.Packages[i], true
		}
	}
	return nil, false
}

// Exclude returns a copy of the closure with the named packages removed
// entirely: their entries, their appearance in dependency lists, and their
// appearance in the root requirements. Exclusion happens before graph
// construction, so an excluded package can never contribute to a collision.
func (c *Closure) Exclude(names []string) *Closure {
	if len(names) == 0 {
		return c
	}
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[NormalizeName(n)] = true
	}

	out := &Closure{Root: c.Root}
	for _, r := range c.Requires {
		if !drop[r] {
			out.Requires = append(out.Requires, r)
		}
	}
	for _, p := range c.Packages {
		if drop[p.Name] {
			continue
		}
		kept := p
		kept.Dependencies = nil
		for _, d := range p.Dependencies {
			if !drop[d] {
				kept.Dependencies = append(kept.Dependencies, d)
			}
		}
		out.Packages = append(out.Packages, kept)
	}
	return out
}

// Validate checks closure integrity: non-empty normalized package names,
// no duplicate (name, version) entries, and root requirements that point
// at packages present in the closure. Dependency references of non-root
// packages are checked later by the graph builder, which reports them as
// resolution failures rather than input errors.
func (c *Closure) Validate() error {
	seen := make(map[string]bool, len(c.Packages))
	byName := make(map[string]bool, len(c.Packages))
	for _, p := range c.Packages {
		if err := errors.ValidatePackageName(p.Name); err != nil {
			return err
		}
		if p.Name != NormalizeName(p.Name) {
			return errors.New(errors.ErrCodeInvalidClosure, "package name %q is not normalized", p.Name)
		}
		key := p.Name + "@" + p.Version
		if seen[key] {
			return errors.New(errors.ErrCodeInvalidClosure, "duplicate package %s", key)
		}
		seen[key] = true
		byName[p.Name] = true
	}
	for _, r := range c.Requires {
		if !byName[r] {
			return errors.New(errors.ErrCodeInvalidClosure, "root requirement %q not present in closure", r)
		}
	}
	return nil
}

// Sort orders packages and requirement lists lexically in place.
// Readers call this so that closures compare equal regardless of the
// order a collector emitted them in.
func (c *Closure) Sort() {
	sort.Strings(c.Requires)
	sort.Slice(c.Packages, func(i, j int) bool {
		if c.Packages[i].Name != c.Packages[j].Name {
			return c.Packages[i].Name < c.Packages[j].Name
		}
		return c.Packages[i].Version < c.Packages[j].Version
	})
	for i := range c.Packages {
		sort.Strings(c.Packages[i].Dependencies)
	}
}
