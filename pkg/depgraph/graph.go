// Package depgraph builds the in-memory dependency graph a scan operates
// on. The graph is rooted at the project node, layered by shortest
// distance from the root, and fully deterministic: two builds from the
// same closure produce identical node ordering.
//
// Graphs are scan-scoped. They are built at the start of a run, consumed
// by detection and planning, and discarded when the run ends; nothing in
// this package persists.
package depgraph

import (
	"sort"
)

// Node is one package in the dependency graph.
//
// Depth is the shortest distance from the project root (the root itself
// has depth 0, direct dependencies depth 1). Order is the node's rank in
// the deterministic traversal that built the graph, usable as a stable
// secondary sort key.
type Node struct {
	Name         string   // Normalized package name
	Version      string   // Pinned version
	Dependencies []string // Direct dependency names, sorted
	Files        []string // Install-root-relative file manifest
	Depth        int
	Order        int
	Direct       bool // Depth == 1
}

// IsRoot reports whether the node is the project root.
func (n *Node) IsRoot() bool { return n.Depth == 0 }

// Graph is an immutable dependency graph. Build is the only constructor.
type Graph struct {
	root    string
	nodes   []*Node
	index   map[string]int
	parents map[string][]string // child -> dependents, sorted
}

// Root returns the project root node.
func (g *Graph) Root() *Node {
	return g.nodes[g.index[g.root]]
}

// Node returns the named node, or false if the package is not reachable
// from the root.
func (g *Graph) Node(name string) (*Node, bool) {
	i, ok := g.index[name]
	if !ok {
		return nil, false
	}
	return g.nodes[i], true
}

// Len returns the number of reachable nodes, root included.
func (g *Graph) Len() int { return len(g.nodes) }

// Nodes returns all reachable nodes in traversal order: ascending depth,
// lexical name within a depth.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Dependents returns the packages that depend directly on name, sorted.
func (g *Graph) Dependents(name string) []string {
	return g.parents[name]
}

// Path returns one shortest dependency chain from the root to name, both
// endpoints included. Among equal-length chains the lexically smallest
// parent is chosen at every step, so the result is deterministic. Returns
// nil for unknown packages.
func (g *Graph) Path(name string) []string {
	n, ok := g.Node(name)
	if !ok {
		return nil
	}

	chain := []string{n.Name}
	for !n.IsRoot() {
		next := ""
		for _, p := range g.parents[n.Name] {
			parent, _ := g.Node(p)
			if parent.Depth != n.Depth-1 {
				continue
			}
			if next == "" || p < next {
				next = p
			}
		}
		chain = append(chain, next)
		n, _ = g.Node(next)
	}

	// Reverse into root-first order.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// sortParents normalizes the dependent lists after construction.
func (g *Graph) sortParents() {
	for _, deps := range g.parents {
		sort.Strings(deps)
	}
}
