package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/modguard/modguard/pkg/cache"
	"github.com/modguard/modguard/pkg/closure"
	"github.com/modguard/modguard/pkg/collision"
	"github.com/modguard/modguard/pkg/depgraph"
	"github.com/modguard/modguard/pkg/errors"
	"github.com/modguard/modguard/pkg/fixplan"
	"github.com/modguard/modguard/pkg/observability"
	"github.com/modguard/modguard/pkg/pyindex"
	"github.com/modguard/modguard/pkg/report"
)

// Runner executes scans. It is stateless apart from its collaborators:
// the same Runner can serve concurrent scans with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner. A nil cache disables caching, a nil keyer
// uses the default, a nil logger uses the package default.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if c == nil {
		c = &cache.NullCache{}
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Stats records per-stage wall time and headline numbers for one scan.
type Stats struct {
	CollectTime time.Duration
	GraphTime   time.Duration
	ExtractTime time.Duration
	DetectTime  time.Duration
	PlanTime    time.Duration
	ApplyTime   time.Duration

	Packages   int // Reachable packages, root excluded
	Modules    int // Distinct top-level modules seen
	Collisions int
}

// Result is everything one scan produced. The graph and closure are
// scan-scoped working state; the report is the exportable outcome.
type Result struct {
	Closure    *closure.Closure
	Graph      *depgraph.Graph
	Modules    map[string][]string
	Collisions []collision.Collision
	Plan       *fixplan.Plan
	Applied    *fixplan.Result
	Report     *report.Report
	Stats      Stats
}

// Execute runs the full scan pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	result := &Result{}

	// Stage 1: collect the closure.
	c, err := runStage(ctx, "collect", &result.Stats.CollectTime, func() (*closure.Closure, error) {
		return collect(&opts)
	})
	if err != nil {
		return nil, err
	}
	result.Closure = c
	r.Logger.Info("collected closure",
		"project", c.Root,
		"packages", len(c.Packages),
		"duration", result.Stats.CollectTime)

	// Stage 2: build the graph.
	g, err := runStage(ctx, "graph", &result.Stats.GraphTime, func() (*depgraph.Graph, error) {
		return depgraph.Build(c, depgraph.Options{MaxNodes: opts.MaxNodes})
	})
	if err != nil {
		return nil, err
	}
	result.Graph = g
	result.Stats.Packages = g.Len() - 1
	r.Logger.Info("built dependency graph",
		"packages", result.Stats.Packages,
		"duration", result.Stats.GraphTime)

	// Stage 3: extract top-level modules.
	modules, err := runStage(ctx, "extract", &result.Stats.ExtractTime, func() (map[string][]string, error) {
		return extractModules(ctx, g, opts.ProjectDir(), opts.Workers)
	})
	if err != nil {
		return nil, err
	}
	result.Modules = modules
	result.Stats.Modules = countModules(modules)
	r.Logger.Info("extracted modules",
		"modules", result.Stats.Modules,
		"duration", result.Stats.ExtractTime)

	// Stage 4: detect collisions and refine by observed imports.
	var uses map[string][]report.ImportUse
	collisions, err := runStage(ctx, "detect", &result.Stats.DetectTime, func() ([]collision.Collision, error) {
		found := collision.Detect(g, modules, collision.Policy{
			DepthThreshold: opts.DepthThreshold,
			Whitelist:      opts.Whitelist,
		})
		var err error
		uses, err = report.ScanImports(opts.ProjectDir(), collidingModules(found))
		if err != nil {
			return nil, err
		}
		return report.Refine(found, uses), nil
	})
	if err != nil {
		return nil, err
	}
	result.Collisions = collisions
	result.Stats.Collisions = len(collisions)
	for _, col := range collisions {
		observability.Scan().OnCollision(ctx, col.Module, col.Severity.String())
	}
	r.Logger.Info("detected collisions",
		"collisions", len(collisions),
		"actionable", len(collision.Actionable(collisions)),
		"duration", result.Stats.DetectTime)

	// Stage 5: plan fixes.
	source := r.versionSource(c, opts)
	plan, err := runStage(ctx, "plan", &result.Stats.PlanTime, func() (*fixplan.Plan, error) {
		planner := &fixplan.Planner{Source: source, Preference: opts.StrategyPreference}
		return planner.Plan(ctx, collisions)
	})
	if err != nil {
		return nil, err
	}
	result.Plan = plan
	r.Logger.Info("planned fixes",
		"actions", len(plan.Actions),
		"manual", plan.ManualCount(),
		"duration", result.Stats.PlanTime)

	// Stage 6: apply, when asked to.
	if opts.Fix || opts.DryRun {
		applied, err := runStage(ctx, "apply", &result.Stats.ApplyTime, func() (*fixplan.Result, error) {
			return r.apply(plan, modules, opts)
		})
		if err != nil {
			return nil, err
		}
		result.Applied = applied
		succeeded, failed := applied.Counts()
		r.Logger.Info("applied fixes",
			"succeeded", succeeded,
			"failed", failed,
			"dry_run", opts.DryRun && !opts.Fix,
			"duration", result.Stats.ApplyTime)
	}

	result.Report = report.New(report.Options{
		Project:    c.Root,
		Packages:   result.Stats.Packages,
		Collisions: collisions,
		ImportUses: uses,
		Plan:       plan,
	})
	return result, nil
}

// DefaultIndexTTL is how long index responses stay cached. Release
// histories only grow, so a day of staleness is harmless.
const DefaultIndexTTL = 24 * time.Hour

// versionSource picks where constraint candidates come from: an
// explicitly injected source, the package index through the runner's
// cache, or the candidates recorded in the closure itself.
func (r *Runner) versionSource(c *closure.Closure, opts Options) fixplan.VersionSource {
	if opts.Source != nil {
		return opts.Source
	}
	if opts.UseIndex {
		clientOpts := []pyindex.Option{pyindex.WithKeyer(r.Keyer)}
		if opts.IndexURL != "" {
			clientOpts = append(clientOpts, pyindex.WithBaseURL(opts.IndexURL))
		}
		return pyindex.NewSource(pyindex.NewClient(r.Cache, DefaultIndexTTL, clientOpts...))
	}
	return fixplan.NewClosureVersions(c)
}

// apply writes the plan's artifacts into the project directory, or
// records them with a dry-run writer.
func (r *Runner) apply(plan *fixplan.Plan, modules map[string][]string, opts Options) (*fixplan.Result, error) {
	var w fixplan.ArtifactWriter
	if opts.Fix && !opts.DryRun {
		w = fixplan.DirWriter{Root: opts.ProjectDir()}
	} else {
		w = &fixplan.DryRunWriter{}
	}
	res, err := fixplan.Apply(plan, w, fixplan.ApplyOptions{Modules: modules})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeApplyFailed, err, "apply plan")
	}
	return res, nil
}

// runStage runs one pipeline stage with timing, hooks, and context
// checks.
func runStage[T any](ctx context.Context, name string, elapsed *time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	observability.Scan().OnStageStart(ctx, name)
	start := time.Now()
	v, err := fn()
	*elapsed = time.Since(start)
	observability.Scan().OnStageComplete(ctx, name, *elapsed, err)
	if err != nil {
		return zero, err
	}
	return v, nil
}

func countModules(modules map[string][]string) int {
	seen := make(map[string]bool)
	for _, mods := range modules {
		for _, m := range mods {
			seen[m] = true
		}
	}
	return len(seen)
}

func collidingModules(collisions []collision.Collision) []string {
	out := make([]string, len(collisions))
	for i, c := range collisions {
		out[i] = c.Module
	}
	return out
}
