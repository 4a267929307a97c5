package collision

import (
	"reflect"
	"testing"

	"github.com/modguard/modguard/pkg/closure"
	"github.com/modguard/modguard/pkg/depgraph"
)

// buildGraph wires a linear chain proj -> a -> b -> c -> d -> e, giving
// one package at every depth from 1 through 5.
func buildGraph(t *testing.T) *depgraph.Graph {
	t.Helper()
	c := &closure.Closure{
		Root:     "proj",
		Requires: []string{"a"},
		Packages: []closure.Package{
			{Name: "a", Version: "1.0", Dependencies: []string{"b"}},
			{Name: "b", Version: "1.0", Dependencies: []string{"c"}},
			{Name: "c", Version: "1.0", Dependencies: []string{"d"}},
			{Name: "d", Version: "1.0", Dependencies: []string{"e"}},
			{Name: "e", Version: "1.0"},
		},
	}
	g, err := depgraph.Build(c, depgraph.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestDetectGrading(t *testing.T) {
	g := buildGraph(t)

	tests := []struct {
		name    string
		modules map[string][]string
		want    Severity
	}{
		{
			name:    "DirectDependencyIsCritical",
			modules: map[string][]string{"a": {"utils"}, "b": {"utils"}},
			want:    Critical,
		},
		{
			name:    "ProjectRootIsCritical",
			modules: map[string][]string{closure.RootName: {"utils"}, "c": {"utils"}},
			want:    Critical,
		},
		{
			name:    "WithinThresholdIsWarning",
			modules: map[string][]string{"b": {"utils"}, "c": {"utils"}},
			want:    Warning,
		},
		{
			name:    "ShallowestProviderDecides",
			modules: map[string][]string{"a": {"utils"}, "e": {"utils"}},
			want:    Critical,
		},
		{
			name:    "DeepPartnerKeepsWarning",
			modules: map[string][]string{"b": {"utils"}, "e": {"utils"}},
			want:    Warning,
		},
		{
			name:    "DeepIsInformational",
			modules: map[string][]string{"d": {"helpers"}, "e": {"helpers"}},
			want:    Informational,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detect(g, tt.modules, Policy{})
			if len(got) != 1 {
				t.Fatalf("collisions = %+v, want 1", got)
			}
			if got[0].Severity != tt.want {
				t.Errorf("severity = %s, want %s", got[0].Severity, tt.want)
			}
		})
	}
}

func TestDetectProviderOrder(t *testing.T) {
	g := buildGraph(t)
	modules := map[string][]string{
		"c": {"utils"},
		"a": {"utils"},
		"b": {"utils"},
	}

	got := Detect(g, modules, Policy{})
	if len(got) != 1 {
		t.Fatalf("collisions = %+v", got)
	}

	var order []string
	for _, p := range got[0].Providers {
		order = append(order, p.Package)
	}
	if !reflect.DeepEqual(order, []string{"a", "b", "c"}) {
		t.Errorf("provider order = %v", order)
	}
}

func TestDetectNoCollision(t *testing.T) {
	g := buildGraph(t)
	modules := map[string][]string{"a": {"one"}, "b": {"two"}}
	if got := Detect(g, modules, Policy{}); got != nil {
		t.Errorf("unexpected collisions: %+v", got)
	}
}

func TestDetectSortedByModule(t *testing.T) {
	g := buildGraph(t)
	modules := map[string][]string{
		"a": {"zeta", "alpha"},
		"b": {"zeta", "alpha"},
	}
	got := Detect(g, modules, Policy{})
	if len(got) != 2 || got[0].Module != "alpha" || got[1].Module != "zeta" {
		t.Errorf("collisions = %+v", got)
	}
}

func TestWhitelist(t *testing.T) {
	g := buildGraph(t)
	modules := map[string][]string{"a": {"utils"}, "b": {"utils"}}

	tests := []struct {
		name      string
		whitelist map[string][]string
		severity  Severity
		listed    bool
	}{
		{
			name:      "AllProvidersListed",
			whitelist: map[string][]string{"utils": {"a", "b"}},
			severity:  Informational,
			listed:    true,
		},
		{
			name:      "PartialListingDoesNotSuppress",
			whitelist: map[string][]string{"utils": {"a"}},
			severity:  Critical,
			listed:    false,
		},
		{
			name:      "OtherModuleUnaffected",
			whitelist: map[string][]string{"helpers": {"a", "b"}},
			severity:  Critical,
			listed:    false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detect(g, modules, Policy{Whitelist: tt.whitelist})
			if len(got) != 1 {
				t.Fatalf("collisions = %+v", got)
			}
			if got[0].Severity != tt.severity || got[0].Whitelisted != tt.listed {
				t.Errorf("got severity=%s whitelisted=%v, want %s/%v",
					got[0].Severity, got[0].Whitelisted, tt.severity, tt.listed)
			}
		})
	}
}

func TestActionableAndCount(t *testing.T) {
	collisions := []Collision{
		{Module: "a", Severity: Critical},
		{Module: "b", Severity: Warning},
		{Module: "c", Severity: Warning, Whitelisted: true},
		{Module: "d", Severity: Informational},
	}

	act := Actionable(collisions)
	if len(act) != 2 || act[0].Module != "a" || act[1].Module != "b" {
		t.Errorf("Actionable = %+v", act)
	}

	crit, warn, info := Count(collisions)
	if crit != 1 || warn != 2 || info != 1 {
		t.Errorf("Count = %d/%d/%d", crit, warn, info)
	}
}
