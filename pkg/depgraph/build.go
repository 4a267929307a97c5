package depgraph

import (
	"sort"

	"github.com/modguard/modguard/pkg/closure"
	"github.com/modguard/modguard/pkg/errors"
)

// DefaultMaxNodes bounds graph construction. Real Python closures top out
// in the low thousands of packages, so hitting this limit means the input
// is malformed rather than merely large.
const DefaultMaxNodes = 50000

// Options configures graph construction.
type Options struct {
	// MaxNodes caps the number of packages admitted to the graph.
	// Zero means DefaultMaxNodes.
	MaxNodes int
}

// Build constructs the dependency graph for a closure.
//
// Traversal is breadth-first from the project root, so every node's Depth
// is its shortest distance from the root. Nodes at the same depth are
// visited in lexical name order, which fixes Order and makes the build
// reproducible. Packages in the closure that are not reachable from the
// root are dropped.
//
// A dependency reference that names no closure entry fails the build with
// RESOLUTION_FAILED. A closure carrying two versions of the same package
// name fails with INVALID_CLOSURE, since the graph holds one node per
// name and could otherwise only keep whichever entry sorted first.
// Exceeding the node budget fails it with CYCLE_BUDGET_EXCEEDED.
func Build(c *closure.Closure, opts Options) (*Graph, error) {
	maxNodes := opts.MaxNodes
	if maxNodes <= 0 {
		maxNodes = DefaultMaxNodes
	}

	names := make(map[string]string, len(c.Packages))
	for _, p := range c.Packages {
		if prev, ok := names[p.Name]; ok {
			return nil, errors.New(errors.ErrCodeInvalidClosure,
				"package %q appears at versions %s and %s; a closure pins one version per name",
				p.Name, prev, p.Version)
		}
		names[p.Name] = p.Version
	}

	g := &Graph{
		root:    closure.RootName,
		index:   make(map[string]int),
		parents: make(map[string][]string),
	}

	root := &Node{
		Name:         closure.RootName,
		Dependencies: append([]string(nil), c.Requires...),
	}
	sort.Strings(root.Dependencies)
	g.index[root.Name] = 0
	g.nodes = append(g.nodes, root)

	frontier := []*Node{root}
	for len(frontier) > 0 {
		var next []*Node
		for _, n := range frontier {
			for _, dep := range n.Dependencies {
				if _, seen := g.index[dep]; seen {
					g.parents[dep] = append(g.parents[dep], n.Name)
					continue
				}
				pkg, ok := c.Package(dep)
				if !ok {
					return nil, errors.New(errors.ErrCodeResolutionFailed,
						"package %q requires %q, which is not in the closure", n.Name, dep)
				}
				if len(g.nodes) >= maxNodes {
					return nil, errors.New(errors.ErrCodeCycleBudgetExceeded,
						"dependency graph exceeds %d packages", maxNodes)
				}

				child := &Node{
					Name:         pkg.Name,
					Version:      pkg.Version,
					Dependencies: append([]string(nil), pkg.Dependencies...),
					Files:        pkg.Files,
					Depth:        n.Depth + 1,
					Direct:       n.Depth == 0,
				}
				sort.Strings(child.Dependencies)
				g.index[child.Name] = len(g.nodes)
				g.nodes = append(g.nodes, child)
				g.parents[child.Name] = append(g.parents[child.Name], n.Name)
				next = append(next, child)
			}
		}
		// Lexical order within the new depth layer fixes traversal order
		// independent of closure input order.
		sort.Slice(next, func(i, j int) bool { return next[i].Name < next[j].Name })
		frontier = next
	}

	// The frontier slices were built parent-by-parent, so node slots past
	// the root may be out of layer order. Re-rank once, then freeze.
	sort.SliceStable(g.nodes, func(i, j int) bool {
		if g.nodes[i].Depth != g.nodes[j].Depth {
			return g.nodes[i].Depth < g.nodes[j].Depth
		}
		return g.nodes[i].Name < g.nodes[j].Name
	})
	for i, n := range g.nodes {
		n.Order = i
		g.index[n.Name] = i
	}
	g.sortParents()

	return g, nil
}
