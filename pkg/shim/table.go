// Package shim implements the import-redirection protocol that backs the
// rename-shim fix strategy. A routing table records, per colliding
// module, which package keeps the plain name and where every shadowed
// package's copy was relocated to; a generated Python loader installed on
// sys.meta_path consults that table at import time so each caller gets
// the copy its package actually depends on.
package shim

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/modguard/modguard/pkg/errors"
)

// RelocatedName returns the private module name a shadowed package's copy
// of module is installed under. The prefix keeps relocated modules out of
// the plain namespace and the package name makes them unambiguous.
func RelocatedName(pkg, module string) string {
	sanitized := strings.ReplaceAll(pkg, "-", "_")
	return fmt.Sprintf("_modguard_%s_%s", sanitized, module)
}

// Route is the redirection record for one colliding module.
type Route struct {
	Module    string            `json:"module"`
	Winner    string            `json:"winner"`              // Package that keeps the plain name
	Relocated map[string]string `json:"relocated,omitempty"` // Shadowed package -> relocated module name
}

// Table is the full routing table for one project, keyed by module name.
// Owners maps every known top-level module to the package that installs
// it; the loader uses it to attribute an importing stack frame to a
// package before consulting the routes.
type Table struct {
	Routes map[string]Route  `json:"routes"`
	Owners map[string]string `json:"owners,omitempty"`
}

// NewTable creates an empty routing table.
func NewTable() *Table {
	return &Table{Routes: make(map[string]Route), Owners: make(map[string]string)}
}

// SetOwners records the module ownership map used for caller
// attribution. modules maps package name to its top-level modules, the
// same shape collision detection consumes.
func (t *Table) SetOwners(modules map[string][]string) {
	for pkg, mods := range modules {
		for _, m := range mods {
			// Colliding modules have several claimants. Keep the
			// lexically smallest so the map is deterministic; at runtime
			// the plain name belongs to the route's winner anyway.
			if prev, ok := t.Owners[m]; ok && prev <= pkg {
				continue
			}
			t.Owners[m] = pkg
		}
	}
}

// AddRoute registers a redirection for module: winner keeps the name, and
// each shadowed package's copy is assigned its relocated name. Adding the
// same module twice is an error; routes are immutable once set.
func (t *Table) AddRoute(module, winner string, shadowed []string) error {
	if module == "" || winner == "" {
		return errors.New(errors.ErrCodeInvalidInput, "route needs a module and a winner")
	}
	if _, ok := t.Routes[module]; ok {
		return errors.New(errors.ErrCodeInvalidInput, "module %q already routed", module)
	}
	r := Route{Module: module, Winner: winner, Relocated: make(map[string]string, len(shadowed))}
	for _, pkg := range shadowed {
		r.Relocated[pkg] = RelocatedName(pkg, module)
	}
	t.Routes[module] = r
	return nil
}

// Modules returns the routed module names, sorted.
func (t *Table) Modules() []string {
	out := make([]string, 0, len(t.Routes))
	for m := range t.Routes {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// WriteJSON serializes the table. The format is shared with the generated
// Python loader, which reads the same document at interpreter startup.
func (t *Table) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}

// ReadTable deserializes a routing table written by WriteJSON.
func ReadTable(r io.Reader) (*Table, error) {
	var t Table
	if err := json.NewDecoder(r).Decode(&t); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode routing table")
	}
	if t.Routes == nil {
		t.Routes = make(map[string]Route)
	}
	for m, r := range t.Routes {
		if r.Module != m || r.Winner == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "malformed route for module %q", m)
		}
	}
	return &t, nil
}
