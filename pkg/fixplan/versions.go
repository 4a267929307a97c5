package fixplan

import (
	"context"
	"slices"
	"sort"

	"github.com/Masterminds/semver/v3"

	"github.com/modguard/modguard/pkg/closure"
)

// VersionSource supplies the alternative versions of a package considered
// by the version-constraint strategy, together with the top-level modules
// each version exports. The planner never contacts a registry itself; a
// source backed by an index client is wired in by the caller when remote
// lookups are wanted.
type VersionSource interface {
	Candidates(ctx context.Context, pkg string) ([]closure.Candidate, error)
}

// ClosureVersions serves candidates recorded in the closure document
// itself. This is the default source: feasibility is then decided purely
// from local input, with no network dependency.
type ClosureVersions struct {
	c *closure.Closure
}

// NewClosureVersions creates a source over the given closure.
func NewClosureVersions(c *closure.Closure) *ClosureVersions {
	return &ClosureVersions{c: c}
}

// Candidates returns the closure's recorded candidates for pkg.
func (s *ClosureVersions) Candidates(_ context.Context, pkg string) ([]closure.Candidate, error) {
	p, ok := s.c.Package(pkg)
	if !ok {
		return nil, nil
	}
	return p.Candidates, nil
}

// bestAlternative picks the candidate version of a package that stops
// exporting module: the highest version that parses as semver and does
// not list the module. Candidates with unparseable versions are skipped.
// Returns false when no candidate qualifies.
func bestAlternative(candidates []closure.Candidate, module string) (closure.Candidate, bool) {
	type parsed struct {
		cand closure.Candidate
		ver  *semver.Version
	}
	var ok []parsed
	for _, cand := range candidates {
		if slices.Contains(cand.Modules, module) {
			continue
		}
		v, err := semver.NewVersion(cand.Version)
		if err != nil {
			continue
		}
		ok = append(ok, parsed{cand, v})
	}
	if len(ok) == 0 {
		return closure.Candidate{}, false
	}
	sort.Slice(ok, func(i, j int) bool { return ok[i].ver.GreaterThan(ok[j].ver) })
	return ok[0].cand, true
}
