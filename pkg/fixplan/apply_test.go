package fixplan

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modguard/modguard/pkg/errors"
	"github.com/modguard/modguard/pkg/shim"
)

func TestApplyWritesArtifacts(t *testing.T) {
	plan := &Plan{Actions: []Action{
		RenameShim{ColModule: "utils", Winner: "aaa", Shadowed: []string{"bbb"}},
		VersionConstraint{ColModule: "json5", Constraints: []PackageConstraint{
			{Package: "ujson5", Current: "1.0.0", Target: "2.0.0", Range: "==2.0.0"},
		}},
		Isolate{ColModule: "helpers", Winner: "aaa", Packages: []string{"ccc"}},
	}}

	dir := t.TempDir()
	result, err := Apply(plan, DirWriter{Root: dir}, ApplyOptions{
		Modules: map[string][]string{"aaa": {"utils"}, "bbb": {"utils"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !result.AllSuccessful() {
		t.Fatalf("result = %+v", result.Applied)
	}
	if s, f := result.Counts(); s != 3 || f != 0 {
		t.Errorf("counts = %d/%d", s, f)
	}

	for _, rel := range []string{shim.RoutingFile, shim.ShimDir + "/_loader.py", shim.ShimDir + "/__init__.py", ConstraintsFile, IsolationFile} {
		if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(rel))); err != nil {
			t.Errorf("missing artifact %s: %v", rel, err)
		}
	}

	constraints, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(ConstraintsFile)))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(constraints), "ujson5==2.0.0") {
		t.Errorf("constraints = %q", constraints)
	}

	routing, err := os.Open(filepath.Join(dir, filepath.FromSlash(shim.RoutingFile)))
	if err != nil {
		t.Fatal(err)
	}
	defer routing.Close()
	table, err := shim.ReadTable(routing)
	if err != nil {
		t.Fatal(err)
	}
	if table.Routes["utils"].Winner != "aaa" {
		t.Errorf("routing table = %+v", table.Routes)
	}
	if table.Owners["utils"] != "aaa" {
		t.Errorf("owners = %+v", table.Owners)
	}
}

func TestApplyDryRun(t *testing.T) {
	plan := &Plan{Actions: []Action{
		RenameShim{ColModule: "utils", Winner: "aaa", Shadowed: []string{"bbb"}},
	}}

	w := &DryRunWriter{}
	result, err := Apply(plan, w, ApplyOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !result.AllSuccessful() {
		t.Fatalf("result = %+v", result.Applied)
	}
	if len(w.Paths) != 3 {
		t.Errorf("paths = %v", w.Paths)
	}
}

func TestApplyRecordsManualAsFailure(t *testing.T) {
	plan := &Plan{Actions: []Action{
		Manual{ColModule: "utils", Reason: "two direct dependencies"},
		RenameShim{ColModule: "helpers", Winner: "aaa", Shadowed: []string{"bbb"}},
	}}

	result, err := Apply(plan, &DryRunWriter{}, ApplyOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if result.AllSuccessful() {
		t.Error("manual action reported as applied")
	}
	if s, f := result.Counts(); s != 1 || f != 1 {
		t.Errorf("counts = %d/%d", s, f)
	}

	// Result is module-ordered: helpers before utils.
	if result.Applied[0].Action.Module() != "helpers" || !result.Applied[0].Succeeded() {
		t.Errorf("applied[0] = %+v", result.Applied[0])
	}
	if !errors.Is(result.Applied[1].Err, errors.ErrCodeInfeasibleStrategy) {
		t.Errorf("applied[1].Err = %v", result.Applied[1].Err)
	}
}
