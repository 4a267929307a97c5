package shim

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/modguard/modguard/pkg/errors"
)

func testTable(t *testing.T) *Table {
	t.Helper()
	table := NewTable()
	if err := table.AddRoute("utils", "pkg-a", []string{"pkg-b", "pkg-c"}); err != nil {
		t.Fatal(err)
	}
	table.SetOwners(map[string][]string{
		"pkg-a": {"utils", "pkga"},
		"pkg-b": {"utils", "pkgb"},
		"pkg-c": {"utils"},
	})
	return table
}

func TestRelocatedName(t *testing.T) {
	if got := RelocatedName("pkg-b", "utils"); got != "_modguard_pkg_b_utils" {
		t.Errorf("RelocatedName = %q", got)
	}
}

func TestAddRoute(t *testing.T) {
	table := testTable(t)

	if err := table.AddRoute("utils", "pkg-a", nil); err == nil {
		t.Error("duplicate route accepted")
	}
	if err := table.AddRoute("", "pkg-a", nil); err == nil {
		t.Error("empty module accepted")
	}

	route := table.Routes["utils"]
	if route.Winner != "pkg-a" {
		t.Errorf("winner = %q", route.Winner)
	}
	if route.Relocated["pkg-b"] != "_modguard_pkg_b_utils" {
		t.Errorf("relocated = %v", route.Relocated)
	}
}

func TestTableRoundTrip(t *testing.T) {
	table := testTable(t)

	var buf bytes.Buffer
	if err := table.WriteJSON(&buf); err != nil {
		t.Fatal(err)
	}
	got, err := ReadTable(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, table) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, table)
	}
}

func TestReadTableRejectsMalformed(t *testing.T) {
	docs := []string{
		`{"routes": {"utils": {"module": "other", "winner": "a"}}}`,
		`{"routes": {"utils": {"module": "utils"}}}`,
		`not json`,
	}
	for _, doc := range docs {
		if _, err := ReadTable(strings.NewReader(doc)); err == nil {
			t.Errorf("accepted %q", doc)
		}
	}
}

func TestDecide(t *testing.T) {
	r := NewRouter(testTable(t))

	tests := []struct {
		name       string
		caller     Caller
		target     string
		redirected bool
		diagnostic bool
	}{
		{name: "ShadowedGetsOwnCopy", caller: Caller{Package: "pkg-b"}, target: "_modguard_pkg_b_utils", redirected: true},
		{name: "WinnerKeepsPlainName", caller: Caller{Package: "pkg-a"}, target: "utils"},
		{name: "UnrelatedGetsWinner", caller: Caller{Package: "flask"}, target: "utils"},
		{name: "UnknownGetsWinnerWithDiagnostic", caller: Caller{}, target: "utils", diagnostic: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := r.Decide("utils", tt.caller)
			if !ok {
				t.Fatal("module not routed")
			}
			if d.Target != tt.target || d.Redirected != tt.redirected {
				t.Errorf("decision = %+v", d)
			}
			if (d.Diagnostic != "") != tt.diagnostic {
				t.Errorf("diagnostic = %q", d.Diagnostic)
			}
		})
	}

	if _, ok := r.Decide("unrouted", Caller{Package: "pkg-b"}); ok {
		t.Error("unrouted module resolved")
	}
}

func TestLoadCachesResolution(t *testing.T) {
	r := NewRouter(testTable(t))

	calls := 0
	load := func(target string) error {
		calls++
		return nil
	}

	for i := 0; i < 3; i++ {
		d, err := r.Load("utils", Caller{Package: "pkg-b"}, load)
		if err != nil {
			t.Fatal(err)
		}
		if d.Target != "_modguard_pkg_b_utils" {
			t.Errorf("target = %q", d.Target)
		}
	}
	if calls != 1 {
		t.Errorf("loader ran %d times, want 1", calls)
	}
}

func TestLoadDetectsReentry(t *testing.T) {
	r := NewRouter(testTable(t))

	_, err := r.Load("utils", Caller{Package: "pkg-b"}, func(string) error {
		_, inner := r.Load("utils", Caller{Package: "pkg-b"}, nil)
		if !errors.Is(inner, errors.ErrCodeRoutingCycle) {
			t.Errorf("inner error = %v", inner)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("outer load failed: %v", err)
	}

	// A different caller mid-flight is not a cycle.
	_, err = r.Load("utils", Caller{Package: "pkg-c"}, func(string) error {
		if _, inner := r.Load("utils", Caller{Package: "flask"}, nil); inner != nil {
			t.Errorf("cross-caller load failed: %v", inner)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestLoadFailureIsNotCached(t *testing.T) {
	r := NewRouter(testTable(t))

	boom := errors.New(errors.ErrCodeInternal, "boom")
	_, err := r.Load("utils", Caller{Package: "pkg-b"}, func(string) error { return boom })
	if !errors.Is(err, errors.ErrCodeApplyFailed) {
		t.Fatalf("err = %v", err)
	}

	calls := 0
	if _, err := r.Load("utils", Caller{Package: "pkg-b"}, func(string) error { calls++; return nil }); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("loader did not rerun after failure")
	}
}

func TestArtifacts(t *testing.T) {
	arts, err := Artifacts(testTable(t))
	if err != nil {
		t.Fatal(err)
	}

	byPath := make(map[string]string, len(arts))
	for _, a := range arts {
		byPath[a.Path] = string(a.Content)
	}

	routing, ok := byPath[RoutingFile]
	if !ok {
		t.Fatalf("missing %s in %v", RoutingFile, arts)
	}
	got, err := ReadTable(strings.NewReader(routing))
	if err != nil {
		t.Fatalf("routing artifact does not round-trip: %v", err)
	}
	if got.Routes["utils"].Winner != "pkg-a" {
		t.Errorf("routing artifact = %+v", got)
	}

	loader := byPath[ShimDir+"/_loader.py"]
	for _, want := range []string{"MetaPathFinder", "sys.meta_path", "_modguard_pkg_b_utils", "def install"} {
		if !strings.Contains(loader, want) {
			t.Errorf("loader missing %q", want)
		}
	}

	init := byPath[ShimDir+"/__init__.py"]
	if !strings.Contains(init, "install()") {
		t.Errorf("init = %q", init)
	}
}
