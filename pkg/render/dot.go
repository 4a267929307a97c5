// Package render draws the dependency graph of a scan as a Graphviz
// diagram, highlighting the packages involved in collisions. The DOT
// output stands on its own for tooling; RenderSVG rasterizes it for
// humans.
package render

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/modguard/modguard/pkg/collision"
	"github.com/modguard/modguard/pkg/depgraph"
)

// Options configures graph rendering.
type Options struct {
	// Detailed includes versions and depths in node labels. When false,
	// only package names are shown.
	Detailed bool
}

// ToDOT converts a dependency graph to Graphviz DOT. Packages involved
// in a collision get a color by their worst severity (critical red,
// warning amber, informational grey), and each colliding module becomes
// a dashed edge cluster annotation in the node label.
func ToDOT(g *depgraph.Graph, collisions []collision.Collision, opts Options) string {
	worst, modules := collisionIndex(collisions)

	var buf bytes.Buffer
	buf.WriteString("digraph modguard {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes() {
		label := fmtLabel(n, modules[n.Name], opts.Detailed)
		attrs := fmtAttrs(n, worst, label)
		fmt.Fprintf(&buf, "  %q [%s];\n", n.Name, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, n := range g.Nodes() {
		for _, dep := range n.Dependencies {
			if _, ok := g.Node(dep); ok {
				fmt.Fprintf(&buf, "  %q -> %q;\n", n.Name, dep)
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// collisionIndex maps each involved package to its worst severity, and
// to the sorted colliding modules it provides.
func collisionIndex(collisions []collision.Collision) (map[string]collision.Severity, map[string][]string) {
	worst := make(map[string]collision.Severity)
	modules := make(map[string][]string)
	for _, c := range collisions {
		for _, p := range c.Providers {
			if sev, ok := worst[p.Package]; !ok || c.Severity > sev {
				worst[p.Package] = c.Severity
			}
			modules[p.Package] = append(modules[p.Package], c.Module)
		}
	}
	for pkg := range modules {
		sort.Strings(modules[pkg])
	}
	return worst, modules
}

func fmtLabel(n *depgraph.Node, colliding []string, detailed bool) string {
	label := n.Name
	if detailed && n.Version != "" {
		label += "\n" + n.Version + fmt.Sprintf(" (depth %d)", n.Depth)
	}
	if len(colliding) > 0 {
		label += "\ncollides: " + strings.Join(colliding, ", ")
	}
	return label
}

func fmtAttrs(n *depgraph.Node, worst map[string]collision.Severity, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if n.IsRoot() {
		attrs = append(attrs, "shape=doubleoctagon")
	}
	if sev, ok := worst[n.Name]; ok {
		attrs = append(attrs, fmt.Sprintf("fillcolor=%q", severityColor(sev)), "style=\"rounded,filled,bold\"")
	}
	return attrs
}

func severityColor(s collision.Severity) string {
	switch s {
	case collision.Critical:
		return "#f28779"
	case collision.Warning:
		return "#ffd173"
	default:
		return "#d4d4d4"
	}
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
