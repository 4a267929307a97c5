// Package fixplan turns detected namespace collisions into an ordered,
// reviewable plan of fixes. Each collision gets at most one action,
// chosen by walking a strategy preference list and taking the first
// strategy that is feasible for that collision. Plans are pure data until
// Apply writes their artifacts.
package fixplan

import (
	"fmt"
	"strings"
)

// Strategy names one way of resolving a collision.
type Strategy string

const (
	// StrategyRenameShim routes the colliding import through a generated
	// shim so each consumer sees the package it actually depends on.
	StrategyRenameShim Strategy = "rename_shim"

	// StrategyVersionConstraint pins shadowed packages to versions that
	// no longer export the colliding module.
	StrategyVersionConstraint Strategy = "version_constraint"

	// StrategyIsolate moves shadowed transitive packages into an
	// isolated import namespace.
	StrategyIsolate Strategy = "isolate"

	// StrategyManual marks a collision no automated strategy could
	// resolve. Manual actions are reported, never applied.
	StrategyManual Strategy = "manual"
)

// DefaultPreference is the strategy order used when the caller does not
// configure one. Manual is implicit and always last.
var DefaultPreference = []Strategy{StrategyRenameShim, StrategyVersionConstraint, StrategyIsolate}

// ParseStrategy validates a strategy name from configuration.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case StrategyRenameShim, StrategyVersionConstraint, StrategyIsolate, StrategyManual:
		return st, nil
	default:
		return "", fmt.Errorf("unknown strategy %q", s)
	}
}

// Action is one planned fix for one colliding module.
type Action interface {
	// Strategy identifies the action type.
	Strategy() Strategy
	// Module is the colliding top-level module the action resolves.
	Module() string
	// Describe renders a one-line human summary for plan output.
	Describe() string
}

// RenameShim routes imports of Module through a generated loader shim.
// Winner keeps the plain name; every package in Shadowed has its copy of
// the module relocated and reached through the shim's routing table.
type RenameShim struct {
	ColModule string
	Winner    string   // Package that keeps the module name
	Shadowed  []string // Packages whose copies are relocated, sorted
}

func (a RenameShim) Strategy() Strategy { return StrategyRenameShim }
func (a RenameShim) Module() string     { return a.ColModule }

func (a RenameShim) Describe() string {
	return fmt.Sprintf("shim %q: %s keeps the name, relocate %s",
		a.ColModule, a.Winner, strings.Join(a.Shadowed, ", "))
}

// PackageConstraint pins one package to a version that does not export
// the colliding module.
type PackageConstraint struct {
	Package string
	Current string
	Target  string
	Range   string // pip-style specifier, e.g. "==2.0.0"
}

// VersionConstraint resolves a collision by constraining every shadowed
// provider to a version that stops exporting the module.
type VersionConstraint struct {
	ColModule   string
	Constraints []PackageConstraint
}

func (a VersionConstraint) Strategy() Strategy { return StrategyVersionConstraint }
func (a VersionConstraint) Module() string     { return a.ColModule }

func (a VersionConstraint) Describe() string {
	parts := make([]string, len(a.Constraints))
	for i, c := range a.Constraints {
		parts[i] = fmt.Sprintf("%s %s (was %s)", c.Package, c.Range, c.Current)
	}
	return fmt.Sprintf("constrain %q: %s", a.ColModule, strings.Join(parts, ", "))
}

// Isolate resolves a collision by moving shadowed transitive packages
// into a private namespace.
type Isolate struct {
	ColModule string
	Winner    string
	Packages  []string // Packages to isolate, sorted
}

func (a Isolate) Strategy() Strategy { return StrategyIsolate }
func (a Isolate) Module() string     { return a.ColModule }

func (a Isolate) Describe() string {
	return fmt.Sprintf("isolate %q providers: %s", a.ColModule, strings.Join(a.Packages, ", "))
}

// Manual records that no automated strategy was feasible.
type Manual struct {
	ColModule string
	Reason    string
}

func (a Manual) Strategy() Strategy { return StrategyManual }
func (a Manual) Module() string     { return a.ColModule }

func (a Manual) Describe() string {
	return fmt.Sprintf("manual review of %q: %s", a.ColModule, a.Reason)
}
