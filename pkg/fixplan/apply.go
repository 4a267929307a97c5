package fixplan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/modguard/modguard/pkg/errors"
	"github.com/modguard/modguard/pkg/shim"
)

// Artifact locations other than the shim files, relative to the project
// root. Constraints are written as a pip constraints file rather than
// edited into requirements, so applying a plan never rewrites files the
// user authored.
const (
	ConstraintsFile = ".modguard/constraints.txt"
	IsolationFile   = ".modguard/isolation.json"
)

// ArtifactWriter persists generated artifacts. Paths are always relative
// to the project root and slash-separated.
type ArtifactWriter interface {
	WriteFile(path string, data []byte) error
}

// DirWriter writes artifacts under a root directory, creating parent
// directories as needed.
type DirWriter struct {
	Root string
}

func (w DirWriter) WriteFile(path string, data []byte) error {
	full := filepath.Join(w.Root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0o644)
}

// DryRunWriter records what would be written without touching disk.
type DryRunWriter struct {
	Paths []string
}

func (w *DryRunWriter) WriteFile(path string, _ []byte) error {
	w.Paths = append(w.Paths, path)
	return nil
}

// AppliedFix is the outcome of applying one action.
type AppliedFix struct {
	Action Action
	Paths  []string // Artifacts the action produced
	Err    error
}

// Succeeded reports whether the action was applied cleanly.
func (a AppliedFix) Succeeded() bool { return a.Err == nil }

// Result collects the outcomes of applying a plan.
type Result struct {
	Applied []AppliedFix
}

// AllSuccessful reports whether every action in the plan was applied.
func (r *Result) AllSuccessful() bool {
	for _, a := range r.Applied {
		if !a.Succeeded() {
			return false
		}
	}
	return true
}

// Counts returns how many actions succeeded and failed.
func (r *Result) Counts() (succeeded, failed int) {
	for _, a := range r.Applied {
		if a.Succeeded() {
			succeeded++
		} else {
			failed++
		}
	}
	return
}

// ApplyOptions configures Apply.
type ApplyOptions struct {
	// Modules maps package name to its top-level modules. It seeds the
	// routing table's ownership map for caller attribution.
	Modules map[string][]string
}

// Apply writes the artifacts for every automated action in the plan.
// Rename-shim actions share one routing table and one generated loader;
// constraint and isolation actions each contribute to a single artifact
// of their own. Manual actions are recorded as failures with
// INFEASIBLE_STRATEGY so the result reflects what still needs a human.
//
// Apply is all-or-nothing per action but not per plan: a failing action
// is recorded and the remaining actions are still attempted.
func Apply(plan *Plan, w ArtifactWriter, opts ApplyOptions) (*Result, error) {
	result := &Result{}

	table := shim.NewTable()
	var shimActions []RenameShim
	var constraints []VersionConstraint
	var isolations []Isolate

	for _, action := range plan.Actions {
		switch a := action.(type) {
		case RenameShim:
			if err := table.AddRoute(a.ColModule, a.Winner, a.Shadowed); err != nil {
				result.Applied = append(result.Applied, AppliedFix{Action: a, Err: err})
				continue
			}
			shimActions = append(shimActions, a)
		case VersionConstraint:
			constraints = append(constraints, a)
		case Isolate:
			isolations = append(isolations, a)
		case Manual:
			result.Applied = append(result.Applied, AppliedFix{
				Action: a,
				Err:    errors.New(errors.ErrCodeInfeasibleStrategy, "manual review required: %s", a.Reason),
			})
		default:
			result.Applied = append(result.Applied, AppliedFix{
				Action: action,
				Err:    errors.New(errors.ErrCodeInternal, "unknown action type %T", action),
			})
		}
	}

	if len(shimActions) > 0 {
		table.SetOwners(opts.Modules)
		paths, err := writeShims(table, w)
		for _, a := range shimActions {
			result.Applied = append(result.Applied, AppliedFix{Action: a, Paths: paths, Err: err})
		}
	}
	if len(constraints) > 0 {
		err := w.WriteFile(ConstraintsFile, renderConstraints(constraints))
		for _, a := range constraints {
			result.Applied = append(result.Applied, AppliedFix{Action: a, Paths: []string{ConstraintsFile}, Err: err})
		}
	}
	if len(isolations) > 0 {
		data, err := renderIsolation(isolations)
		if err == nil {
			err = w.WriteFile(IsolationFile, data)
		}
		for _, a := range isolations {
			result.Applied = append(result.Applied, AppliedFix{Action: a, Paths: []string{IsolationFile}, Err: err})
		}
	}

	sort.Slice(result.Applied, func(i, j int) bool {
		return result.Applied[i].Action.Module() < result.Applied[j].Action.Module()
	})
	return result, nil
}

func writeShims(table *shim.Table, w ArtifactWriter) ([]string, error) {
	artifacts, err := shim.Artifacts(table)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		if err := w.WriteFile(a.Path, a.Content); err != nil {
			return nil, errors.Wrap(errors.ErrCodeApplyFailed, err, "write %s", a.Path)
		}
		paths = append(paths, a.Path)
	}
	return paths, nil
}

func renderConstraints(actions []VersionConstraint) []byte {
	var buf bytes.Buffer
	buf.WriteString("# Generated by modguard. Pass to pip with -c.\n")

	// One line per package. Collisions were reconciled at plan time, so
	// duplicate entries always agree; keep the first.
	seen := make(map[string]bool)
	var lines []string
	for _, a := range actions {
		for _, c := range a.Constraints {
			if seen[c.Package] {
				continue
			}
			seen[c.Package] = true
			lines = append(lines, fmt.Sprintf("%s%s  # was %s, drops %q\n", c.Package, c.Range, c.Current, a.ColModule))
		}
	}
	sort.Strings(lines)
	for _, l := range lines {
		buf.WriteString(l)
	}
	return buf.Bytes()
}

func renderIsolation(actions []Isolate) ([]byte, error) {
	type entry struct {
		Module   string   `json:"module"`
		Winner   string   `json:"winner"`
		Packages []string `json:"packages"`
	}
	entries := make([]entry, len(actions))
	for i, a := range actions {
		entries[i] = entry{Module: a.ColModule, Winner: a.Winner, Packages: a.Packages}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Module < entries[j].Module })
	return json.MarshalIndent(map[string]any{"isolate": entries}, "", "  ")
}
