package render

import (
	"strings"
	"testing"

	"github.com/modguard/modguard/pkg/closure"
	"github.com/modguard/modguard/pkg/collision"
	"github.com/modguard/modguard/pkg/depgraph"
)

func testGraph(t *testing.T) *depgraph.Graph {
	t.Helper()
	c := &closure.Closure{
		Root:     "proj",
		Requires: []string{"aaa"},
		Packages: []closure.Package{
			{Name: "aaa", Version: "1.0.0", Dependencies: []string{"bbb"}},
			{Name: "bbb", Version: "2.0.0"},
		},
	}
	g, err := depgraph.Build(c, depgraph.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestToDOT(t *testing.T) {
	g := testGraph(t)
	collisions := []collision.Collision{{
		Module:   "utils",
		Severity: collision.Critical,
		Providers: []collision.Provider{
			{Package: "aaa", Version: "1.0.0", Depth: 1, Direct: true},
			{Package: "bbb", Version: "2.0.0", Depth: 2},
		},
	}}

	dot := ToDOT(g, collisions, Options{Detailed: true})

	for _, want := range []string{
		"digraph modguard {",
		`"__project__" -> "aaa";`,
		`"aaa" -> "bbb";`,
		"collides: utils",
		severityColor(collision.Critical),
		"doubleoctagon",
		"(depth 1)",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
}

func TestToDOTNoCollisions(t *testing.T) {
	dot := ToDOT(testGraph(t), nil, Options{})
	if strings.Contains(dot, "collides") || strings.Contains(dot, severityColor(collision.Critical)) {
		t.Errorf("unexpected collision styling:\n%s", dot)
	}
	if !strings.Contains(dot, `"aaa" [label="aaa"];`) {
		t.Errorf("plain node missing:\n%s", dot)
	}
}
