package cli

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/modguard/modguard/pkg/closure"
	"github.com/modguard/modguard/pkg/errors"
	"github.com/modguard/modguard/pkg/report"
)

func TestParseWhitelist(t *testing.T) {
	tests := []struct {
		name    string
		entries []string
		want    map[string][]string
		wantErr bool
	}{
		{name: "empty", entries: nil, want: nil},
		{
			name:    "single",
			entries: []string{"typing=typing-extensions"},
			want:    map[string][]string{"typing": {"typing-extensions"}},
		},
		{
			name:    "multiple packages",
			entries: []string{"utils=pkg-a,pkg-b"},
			want:    map[string][]string{"utils": {"pkg-a", "pkg-b"}},
		},
		{
			name:    "repeated module accumulates",
			entries: []string{"utils=pkg-a", "utils=pkg-b"},
			want:    map[string][]string{"utils": {"pkg-a", "pkg-b"}},
		},
		{name: "missing separator", entries: []string{"utils"}, wantErr: true},
		{name: "empty packages", entries: []string{"utils="}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseWhitelist(tt.entries)
			if tt.wantErr {
				if !errors.Is(err, errors.ErrCodeInvalidInput) {
					t.Fatalf("want INVALID_INPUT, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for module, pkgs := range tt.want {
				if len(got[module]) != len(pkgs) {
					t.Errorf("module %s: got %v, want %v", module, got[module], pkgs)
					continue
				}
				for i := range pkgs {
					if got[module][i] != pkgs[i] {
						t.Errorf("module %s: got %v, want %v", module, got[module], pkgs)
					}
				}
			}
		})
	}
}

func TestFailCheck(t *testing.T) {
	mixed := &report.Report{Collisions: []report.Collision{
		{Module: "utils", Severity: "critical"},
		{Module: "helpers", Severity: "warning"},
	}}
	warningsOnly := &report.Report{Collisions: []report.Collision{
		{Module: "helpers", Severity: "warning"},
	}}
	clean := &report.Report{}

	tests := []struct {
		name    string
		rep     *report.Report
		failOn  string
		wantErr bool
	}{
		{"critical present", mixed, "critical", true},
		{"warnings pass critical gate", warningsOnly, "critical", false},
		{"warnings fail warning gate", warningsOnly, "warning", true},
		{"never", mixed, "never", false},
		{"clean", clean, "warning", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := failCheck(tt.rep, nil, tt.failOn)
			if (err != nil) != tt.wantErr {
				t.Errorf("failCheck(%q) = %v, wantErr %v", tt.failOn, err, tt.wantErr)
			}
		})
	}

	t.Run("fixed collisions pass", func(t *testing.T) {
		fixed := map[string]bool{"utils": true, "helpers": true}
		if err := failCheck(mixed, fixed, "warning"); err != nil {
			t.Errorf("fixed collisions should pass the gate, got %v", err)
		}
	})

	if err := failCheck(clean, nil, "bogus"); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("unknown gate: want INVALID_CONFIG, got %v", err)
	}
}

// writeCollidingClosure drops a closure document with two packages
// sharing the "utils" module into a fresh directory.
func writeCollidingClosure(t *testing.T) string {
	t.Helper()
	c := &closure.Closure{
		Root:     "myproject",
		Requires: []string{"pkg-a", "pkg-b"},
		Packages: []closure.Package{
			{Name: "pkg-a", Version: "1.0.0", Files: []string{"utils/__init__.py"}},
			{Name: "pkg-b", Version: "2.0.0", Files: []string{"utils/__init__.py"}},
		},
	}
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "modguard.closure.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// A dry run previews fixes and must exit zero even when the closure
// holds collisions above the --fail-on severity.
func TestScanDryRunBypassesGate(t *testing.T) {
	path := writeCollidingClosure(t)
	ctx := withLogger(context.Background(), newLogger(io.Discard, log.FatalLevel))

	opts := &scanOpts{failOn: "critical", dryRun: true, noCache: true}
	if err := runScan(ctx, path, opts); err != nil {
		t.Fatalf("dry run should succeed despite critical collisions, got %v", err)
	}

	opts = &scanOpts{failOn: "critical", noCache: true}
	if err := runScan(ctx, path, opts); err == nil {
		t.Fatal("plain scan should fail the critical gate")
	}
}

func TestInputDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "closure.json")
	if err := os.WriteFile(file, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := inputDir(file); got != dir {
		t.Errorf("inputDir(file) = %q, want %q", got, dir)
	}
	if got := inputDir(dir); got != dir {
		t.Errorf("inputDir(dir) = %q, want %q", got, dir)
	}
}
