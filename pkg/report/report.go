// Package report assembles the result of one scan into a stable,
// exportable document: the detected collisions, where the project's own
// code imports colliding modules, and the planned fixes. Reports are the
// only cross-run artifact; the graph itself never leaves the run that
// built it.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/modguard/modguard/pkg/collision"
	"github.com/modguard/modguard/pkg/fixplan"
)

// Report is the full result of one scan.
type Report struct {
	ID          string                 `json:"id"` // Unique per scan
	Project     string                 `json:"project"`
	GeneratedAt time.Time              `json:"generated_at"`
	Packages    int                    `json:"packages"` // Graph size, root excluded
	Collisions  []Collision            `json:"collisions,omitempty"`
	ImportUses  map[string][]ImportUse `json:"import_uses,omitempty"` // Module -> project usages
	Plan        []PlannedFix           `json:"plan,omitempty"`
}

// Collision is the report view of one detected collision.
type Collision struct {
	Module      string     `json:"module"`
	Severity    string     `json:"severity"`
	Whitelisted bool       `json:"whitelisted,omitempty"`
	Providers   []Provider `json:"providers"`
}

// Provider mirrors collision.Provider in exportable form.
type Provider struct {
	Package string `json:"package"`
	Version string `json:"version"`
	Depth   int    `json:"depth"`
	Direct  bool   `json:"direct,omitempty"`
}

// ImportUse records one import of a colliding module in project code.
type ImportUse struct {
	File      string `json:"file"`
	Line      int    `json:"line"`
	Statement string `json:"statement"`
}

// PlannedFix is the report view of one planned action.
type PlannedFix struct {
	Module   string `json:"module"`
	Strategy string `json:"strategy"`
	Summary  string `json:"summary"`
}

// Options carries the inputs New assembles a report from.
type Options struct {
	Project    string
	Packages   int
	Collisions []collision.Collision
	ImportUses map[string][]ImportUse
	Plan       *fixplan.Plan
}

// New builds a report with a fresh scan ID.
func New(opts Options) *Report {
	r := &Report{
		ID:          uuid.NewString(),
		Project:     opts.Project,
		GeneratedAt: time.Now().UTC(),
		Packages:    opts.Packages,
		ImportUses:  opts.ImportUses,
	}
	for _, c := range opts.Collisions {
		rc := Collision{Module: c.Module, Severity: c.Severity.String(), Whitelisted: c.Whitelisted}
		for _, p := range c.Providers {
			rc.Providers = append(rc.Providers, Provider{
				Package: p.Package, Version: p.Version, Depth: p.Depth, Direct: p.Direct,
			})
		}
		r.Collisions = append(r.Collisions, rc)
	}
	if opts.Plan != nil {
		for _, a := range opts.Plan.Actions {
			r.Plan = append(r.Plan, PlannedFix{
				Module:   a.Module(),
				Strategy: string(a.Strategy()),
				Summary:  a.Describe(),
			})
		}
	}
	return r
}

// Counts tallies reported collisions per severity name.
func (r *Report) Counts() map[string]int {
	counts := make(map[string]int)
	for _, c := range r.Collisions {
		counts[c.Severity]++
	}
	return counts
}

// Summary renders a one-line outcome for logs.
func (r *Report) Summary() string {
	if len(r.Collisions) == 0 {
		return fmt.Sprintf("no collisions across %d packages", r.Packages)
	}
	counts := r.Counts()
	return fmt.Sprintf("%d collisions across %d packages (%d critical, %d warning, %d informational)",
		len(r.Collisions), r.Packages, counts["critical"], counts["warning"], counts["informational"])
}

// WriteJSON exports the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
