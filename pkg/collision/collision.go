// Package collision detects namespace collisions: top-level module names
// claimed by more than one package in a dependency graph. Python's import
// system resolves such a name to whichever package happens to win on
// sys.path, silently shadowing the rest, so every shared name is a latent
// runtime defect graded here by how likely the project is to hit it.
package collision

import (
	"sort"

	"github.com/modguard/modguard/pkg/depgraph"
)

// Severity grades a collision by proximity to the project root.
type Severity int

const (
	// Informational collisions sit deep in the tree, or are whitelisted.
	// They still get a planned action unless whitelisted; the grade only
	// lowers their urgency.
	Informational Severity = iota
	// Warning collisions involve packages within the policy's depth
	// threshold and deserve a fix before they surface.
	Warning
	// Critical collisions involve the project itself or one of its
	// direct dependencies. Imports in the project's own code can resolve
	// to the wrong package.
	Critical
)

func (s Severity) String() string {
	switch s {
	case Critical:
		return "critical"
	case Warning:
		return "warning"
	default:
		return "informational"
	}
}

// Provider is one package claiming a colliding module name.
type Provider struct {
	Package string
	Version string
	Depth   int
	Direct  bool
}

// Collision is one module name claimed by two or more packages.
// Providers are ordered by depth, then package name, so the first entry
// is the provider closest to the project root.
type Collision struct {
	Module      string
	Providers   []Provider
	Severity    Severity
	Whitelisted bool
}

// DefaultDepthThreshold separates warnings from informational findings.
const DefaultDepthThreshold = 3

// Policy tunes detection. The zero value applies the default depth
// threshold and no whitelist.
type Policy struct {
	// DepthThreshold is the maximum provider depth still graded Warning.
	// Zero means DefaultDepthThreshold.
	DepthThreshold int

	// Whitelist maps a module name to the package names allowed to share
	// it. A collision whose providers are all listed is acknowledged:
	// it stays in the report but is downgraded to Informational and
	// never planned for.
	Whitelist map[string][]string
}

func (p Policy) depthThreshold() int {
	if p.DepthThreshold <= 0 {
		return DefaultDepthThreshold
	}
	return p.DepthThreshold
}

func (p Policy) whitelisted(module string, providers []Provider) bool {
	allowed, ok := p.Whitelist[module]
	if !ok {
		return false
	}
	set := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		set[a] = true
	}
	for _, prov := range providers {
		if !set[prov.Package] {
			return false
		}
	}
	return true
}

// Detect finds every module name claimed by two or more graph nodes.
// modules maps each package name (the graph root included, under its node
// name) to the top-level modules it exports. The result is sorted by
// module name and fully deterministic for a given graph and policy.
func Detect(g *depgraph.Graph, modules map[string][]string, policy Policy) []Collision {
	claims := make(map[string][]Provider)
	for _, n := range g.Nodes() {
		for _, m := range modules[n.Name] {
			claims[m] = append(claims[m], Provider{
				Package: n.Name,
				Version: n.Version,
				Depth:   n.Depth,
				Direct:  n.Direct,
			})
		}
	}

	var out []Collision
	for module, providers := range claims {
		if len(providers) < 2 {
			continue
		}
		sort.Slice(providers, func(i, j int) bool {
			if providers[i].Depth != providers[j].Depth {
				return providers[i].Depth < providers[j].Depth
			}
			return providers[i].Package < providers[j].Package
		})

		c := Collision{Module: module, Providers: providers}
		c.Severity = grade(providers, policy.depthThreshold())
		if policy.whitelisted(module, providers) {
			c.Whitelisted = true
			c.Severity = Informational
		}
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Module < out[j].Module })
	return out
}

// grade assigns a severity from the shallowest provider alone. The
// closest claimant is the one most likely to shadow or be shadowed in
// the project's own imports, so a collision between a direct dependency
// and a depth-10 transitive one is still Critical. Deeper providers
// never soften the grade.
func grade(providers []Provider, threshold int) Severity {
	// Providers are depth-sorted, so the first one decides.
	switch head := providers[0]; {
	case head.Depth <= 1:
		return Critical
	case head.Depth <= threshold:
		return Warning
	default:
		return Informational
	}
}

// Actionable filters collisions at Warning or above that have not been
// whitelisted. Summaries and CI gates count these; the fix planner
// itself covers every non-whitelisted collision regardless of grade.
func Actionable(collisions []Collision) []Collision {
	var out []Collision
	for _, c := range collisions {
		if c.Severity >= Warning && !c.Whitelisted {
			out = append(out, c)
		}
	}
	return out
}

// Count tallies collisions per severity.
func Count(collisions []Collision) (critical, warning, informational int) {
	for _, c := range collisions {
		switch c.Severity {
		case Critical:
			critical++
		case Warning:
			warning++
		default:
			informational++
		}
	}
	return
}
