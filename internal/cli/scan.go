package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/modguard/modguard/pkg/errors"
	"github.com/modguard/modguard/pkg/pipeline"
	"github.com/modguard/modguard/pkg/report"
)

// scanOpts holds the command-line flags for the scan command.
type scanOpts struct {
	project      string   // override project name
	sitePackages string   // installed environment for manifest enrichment
	output       string   // report file path ("-" for stdout)
	exclude      []string // packages removed before analysis
	whitelist    []string // module=pkg1,pkg2 entries
	strategies   []string // fix strategy order
	depth        int      // severity depth threshold
	maxNodes     int      // graph size cap
	workers      int      // extraction pool size
	fix          bool     // write fix artifacts
	dryRun       bool     // plan and report artifacts without writing
	index        bool     // consult the package index for versions
	indexURL     string   // alternative index root
	noCache      bool     // bypass the index cache
	github       bool     // force GitHub annotation output
	failOn       string   // severity that fails the command
}

// newScanCmd creates the scan command.
func newScanCmd() *cobra.Command {
	opts := scanOpts{failOn: "critical"}

	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Detect module namespace collisions in a dependency closure",
		Long: `Scan a dependency closure for top-level module namespace collisions.

The path may be a closure JSON document, a poetry.lock, a
requirements.txt, or a project directory holding one of those. It
defaults to the current directory.

Examples:
  modguard scan                              # Probe the current directory
  modguard scan closure.json --fix           # Apply planned fixes
  modguard scan . --whitelist typing=typing-extensions
  modguard scan poetry.lock --index          # PyPI-assisted version fixes`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := "."
			if len(args) == 1 {
				input = args[0]
			}
			return runScan(cmd.Context(), input, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.project, "project", "n", "", "project name (overrides auto-detection)")
	cmd.Flags().StringVar(&opts.sitePackages, "site-packages", "", "installed environment to read file manifests from")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the JSON report to a file (\"-\" for stdout)")
	cmd.Flags().StringArrayVar(&opts.exclude, "exclude", nil, "exclude a package from analysis (repeatable)")
	cmd.Flags().StringArrayVar(&opts.whitelist, "whitelist", nil, "allow packages to share a module: module=pkg1,pkg2 (repeatable)")
	cmd.Flags().StringSliceVar(&opts.strategies, "strategy", nil, "fix strategy order: rename_shim, version_constraint, isolate")
	cmd.Flags().IntVar(&opts.depth, "depth-threshold", 0, "graph depth separating warnings from informational findings")
	cmd.Flags().IntVar(&opts.maxNodes, "max-nodes", 0, "maximum graph nodes")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "extraction worker pool size")
	cmd.Flags().BoolVar(&opts.fix, "fix", false, "write fix artifacts into the project")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "plan fixes and list artifacts without writing")
	cmd.Flags().BoolVar(&opts.index, "index", false, "consult the package index for version candidates")
	cmd.Flags().StringVar(&opts.indexURL, "index-url", "", "package index root (default PyPI)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the index response cache")
	cmd.Flags().BoolVar(&opts.github, "github", false, "emit GitHub Actions annotations even outside a workflow")
	cmd.Flags().StringVar(&opts.failOn, "fail-on", opts.failOn, "exit nonzero at this severity: critical, warning, never")

	return cmd
}

// runScan executes the pipeline and renders the outcome.
func runScan(ctx context.Context, input string, opts *scanOpts) error {
	logger := loggerFromContext(ctx)

	whitelist, err := parseWhitelist(opts.whitelist)
	if err != nil {
		return err
	}
	prefs, err := parseStrategies(opts.strategies)
	if err != nil {
		return err
	}

	pipeOpts := pipeline.Options{
		Input:              input,
		Project:            opts.project,
		SitePackages:       opts.sitePackages,
		Exclude:            opts.exclude,
		Whitelist:          whitelist,
		DepthThreshold:     opts.depth,
		MaxNodes:           opts.maxNodes,
		StrategyPreference: prefs,
		Fix:                opts.fix,
		DryRun:             opts.dryRun,
		UseIndex:           opts.index,
		IndexURL:           opts.indexURL,
		Workers:            opts.workers,
	}

	cfg, err := LoadConfig(inputDir(input))
	if err != nil {
		return err
	}
	if err := cfg.Apply(&pipeOpts); err != nil {
		return err
	}

	backend := newCache(withLogger(ctx, logger), cfg.Cache, opts.noCache)
	defer backend.Close()

	p := newProgress(logger)
	runner := pipeline.NewRunner(backend, nil, logger)
	result, err := runner.Execute(ctx, pipeOpts)
	if err != nil {
		return err
	}
	p.done(fmt.Sprintf("Scanned %d packages", result.Stats.Packages))

	printNewline()
	printCollisions(result.Collisions)
	printPlan(result.Plan)
	printApplied(result.Applied, opts.dryRun && !opts.fix)

	if err := exportReport(result.Report, opts.output); err != nil {
		return err
	}
	if opts.github || report.InGitHubActions() {
		for _, line := range result.Report.Annotations() {
			fmt.Println(line)
		}
		if report.InGitHubActions() {
			if err := result.Report.PublishOutputs(); err != nil {
				logger.Warnf("Publishing workflow outputs failed: %v", err)
			}
		}
	}

	if !opts.fix && !opts.dryRun && len(result.Collisions) > 0 {
		printNewline()
		printNextStep("Preview fixes", "modguard scan "+input+" --dry-run")
	}

	// A pure dry run previews artifacts and always exits zero; the
	// severity gate applies to real scans and --fix runs.
	if opts.dryRun && !opts.fix {
		return nil
	}
	return failCheck(result.Report, fixedModules(result, opts.fix), opts.failOn)
}

// fixedModules collects modules whose fix was actually written, so a
// successful --fix run can pass the severity gate.
func fixedModules(result *pipeline.Result, fix bool) map[string]bool {
	if !fix || result.Applied == nil {
		return nil
	}
	fixed := make(map[string]bool)
	for _, f := range result.Applied.Applied {
		if f.Succeeded() {
			fixed[f.Action.Module()] = true
		}
	}
	return fixed
}

// exportReport writes the report as JSON to path, or stdout for "-".
func exportReport(r *report.Report, path string) error {
	switch path {
	case "":
		return nil
	case "-":
		return r.WriteJSON(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report %s: %w", path, err)
	}
	defer f.Close()
	if err := r.WriteJSON(f); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	printFile(path)
	return nil
}

// failCheck turns unresolved findings into a nonzero exit for CI
// gating. Collisions in fixed are considered resolved.
func failCheck(r *report.Report, fixed map[string]bool, failOn string) error {
	counts := make(map[string]int)
	for _, c := range r.Collisions {
		if !fixed[c.Module] {
			counts[c.Severity]++
		}
	}
	switch strings.ToLower(failOn) {
	case "never", "none", "":
		return nil
	case "warning":
		if n := counts["critical"] + counts["warning"]; n > 0 {
			return fmt.Errorf("%d actionable collisions", n)
		}
		return nil
	case "critical":
		if n := counts["critical"]; n > 0 {
			return fmt.Errorf("%d critical collisions", n)
		}
		return nil
	default:
		return errors.New(errors.ErrCodeInvalidConfig,
			"unknown --fail-on value %q: expected critical, warning, or never", failOn)
	}
}

// parseWhitelist converts repeated module=pkg1,pkg2 flags into the
// detector's whitelist map.
func parseWhitelist(entries []string) (map[string][]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	out := make(map[string][]string, len(entries))
	for _, entry := range entries {
		module, pkgs, ok := strings.Cut(entry, "=")
		if !ok || module == "" || pkgs == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput,
				"malformed --whitelist entry %q: expected module=pkg1,pkg2", entry)
		}
		out[module] = append(out[module], strings.Split(pkgs, ",")...)
	}
	return out, nil
}

// inputDir maps a scan input to the directory holding its configuration.
func inputDir(input string) string {
	if info, err := os.Stat(input); err == nil && !info.IsDir() {
		return filepath.Dir(input)
	}
	return input
}
