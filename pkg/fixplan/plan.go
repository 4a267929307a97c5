package fixplan

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/modguard/modguard/pkg/closure"
	"github.com/modguard/modguard/pkg/collision"
	"github.com/modguard/modguard/pkg/errors"
)

// Plan is the ordered set of actions produced for one scan. Actions are
// sorted by module name and there is exactly one action per
// non-whitelisted collision.
type Plan struct {
	Actions []Action
}

// Empty reports whether the plan contains no actions at all.
func (p *Plan) Empty() bool { return len(p.Actions) == 0 }

// Automated returns the actions Apply can carry out, in plan order.
func (p *Plan) Automated() []Action {
	var out []Action
	for _, a := range p.Actions {
		if a.Strategy() != StrategyManual {
			out = append(out, a)
		}
	}
	return out
}

// ManualCount returns how many collisions were left for manual review.
func (p *Plan) ManualCount() int {
	n := 0
	for _, a := range p.Actions {
		if a.Strategy() == StrategyManual {
			n++
		}
	}
	return n
}

// Planner assigns a fix strategy to each actionable collision.
type Planner struct {
	Source VersionSource

	// Preference is the strategy order to try. Empty means
	// DefaultPreference. Manual is always the implicit fallback and must
	// not be listed.
	Preference []Strategy
}

// Plan builds the fix plan for the given collisions. Only whitelisted
// collisions are skipped; an informational finding still gets an action,
// severity grades urgency, not fixability. For each remaining collision
// the preference list is walked and the first feasible strategy chosen;
// when none is feasible the collision gets a Manual action instead of
// failing the plan.
//
// The winner of every collision is its first provider: the one closest
// to the project root, name-ordered within a depth. All other providers
// are shadowed.
func (p *Planner) Plan(ctx context.Context, collisions []collision.Collision) (*Plan, error) {
	prefs := p.Preference
	if len(prefs) == 0 {
		prefs = DefaultPreference
	}
	seen := make(map[Strategy]bool, len(prefs))
	for _, s := range prefs {
		if s == StrategyManual {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "manual cannot appear in the strategy preference")
		}
		if seen[s] {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "duplicate strategy %q in preference", s)
		}
		seen[s] = true
	}

	// Version pins must agree across collisions: once a package is
	// pinned for one module, later collisions have to live with that
	// version.
	pinned := make(map[string]string)

	plan := &Plan{}
	for _, col := range collisions {
		if col.Whitelisted {
			continue
		}
		action, err := p.planOne(ctx, col, prefs, pinned)
		if err != nil {
			return nil, err
		}
		plan.Actions = append(plan.Actions, action)
	}

	sort.Slice(plan.Actions, func(i, j int) bool {
		return plan.Actions[i].Module() < plan.Actions[j].Module()
	})
	return plan, nil
}

func (p *Planner) planOne(ctx context.Context, col collision.Collision, prefs []Strategy, pinned map[string]string) (Action, error) {
	winner := col.Providers[0]
	shadowed := col.Providers[1:]

	var lastReason string
	for _, strategy := range prefs {
		switch strategy {
		case StrategyRenameShim:
			return RenameShim{
				ColModule: col.Module,
				Winner:    winner.Package,
				Shadowed:  providerNames(shadowed),
			}, nil

		case StrategyVersionConstraint:
			action, reason, err := p.planConstraint(ctx, col, shadowed, pinned)
			if err != nil {
				return nil, err
			}
			if reason == "" {
				for _, c := range action.Constraints {
					pinned[c.Package] = c.Target
				}
				return action, nil
			}
			lastReason = reason

		case StrategyIsolate:
			// Always feasible: only the shadowed copies move into the
			// private namespace, the winner keeps the plain name.
			return Isolate{
				ColModule: col.Module,
				Winner:    winner.Package,
				Packages:  providerNames(shadowed),
			}, nil
		}
	}

	if lastReason == "" {
		lastReason = "no strategy in the configured preference applies"
	}
	return Manual{ColModule: col.Module, Reason: lastReason}, nil
}

// planConstraint checks whether every shadowed provider can move to a
// version that stops exporting the module. A non-empty reason means the
// strategy is infeasible for this collision.
func (p *Planner) planConstraint(ctx context.Context, col collision.Collision, shadowed []collision.Provider, pinned map[string]string) (VersionConstraint, string, error) {
	if p.Source == nil {
		return VersionConstraint{}, "no version source configured", nil
	}

	action := VersionConstraint{ColModule: col.Module}
	for _, prov := range shadowed {
		if target, ok := pinned[prov.Package]; ok {
			// An earlier collision already pinned this package. The pin
			// holds only if that version drops this module too.
			cands, err := p.Source.Candidates(ctx, prov.Package)
			if err != nil {
				return VersionConstraint{}, "", err
			}
			if !versionDropsModule(cands, target, col.Module) {
				return VersionConstraint{}, fmt.Sprintf("%s is already pinned to %s, which still exports %q", prov.Package, target, col.Module), nil
			}
			action.Constraints = append(action.Constraints, PackageConstraint{
				Package: prov.Package, Current: prov.Version, Target: target, Range: "==" + target,
			})
			continue
		}

		cands, err := p.Source.Candidates(ctx, prov.Package)
		if err != nil {
			return VersionConstraint{}, "", err
		}
		best, ok := bestAlternative(cands, col.Module)
		if !ok {
			return VersionConstraint{}, fmt.Sprintf("no known version of %s drops %q", prov.Package, col.Module), nil
		}
		action.Constraints = append(action.Constraints, PackageConstraint{
			Package: prov.Package, Current: prov.Version, Target: best.Version, Range: "==" + best.Version,
		})
	}
	return action, "", nil
}

// versionDropsModule reports whether the candidate at version exists and
// does not export module.
func versionDropsModule(candidates []closure.Candidate, version, module string) bool {
	for _, c := range candidates {
		if c.Version == version {
			return !slices.Contains(c.Modules, module)
		}
	}
	return false
}

func providerNames(providers []collision.Provider) []string {
	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.Package
	}
	sort.Strings(names)
	return names
}
