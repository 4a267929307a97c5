// Package pipeline runs a complete scan: collect the dependency closure,
// build the graph, extract module namespaces, detect collisions, plan
// fixes, and optionally apply them. CLI and CI entry points share this
// package so a scan behaves identically everywhere.
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{Input: "closure.json"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Report.Summary())
package pipeline

import (
	"os"
	"path/filepath"

	"github.com/modguard/modguard/pkg/closure"
	"github.com/modguard/modguard/pkg/depgraph"
	"github.com/modguard/modguard/pkg/errors"
	"github.com/modguard/modguard/pkg/fixplan"
)

// DefaultWorkers is the extraction worker pool size.
const DefaultWorkers = 20

// Options configures one scan.
type Options struct {
	// Input is what to scan: a closure JSON document, a
	// requirements.txt, a poetry.lock, or a project directory holding
	// one of those.
	Input string

	// Project overrides the project name derived from the input.
	Project string

	// SitePackages optionally points at an installed environment whose
	// dist-info records fill in missing file manifests.
	SitePackages string

	// Exclude removes packages from the closure before analysis.
	Exclude []string

	// Whitelist maps a module name to the packages allowed to share it.
	Whitelist map[string][]string

	// DepthThreshold tunes collision grading. Zero means the detector
	// default.
	DepthThreshold int

	// MaxNodes caps graph construction. Zero means the builder default.
	MaxNodes int

	// StrategyPreference orders fix strategies. Empty means the planner
	// default.
	StrategyPreference []fixplan.Strategy

	// Fix applies the plan's artifacts; DryRun records what would be
	// written instead. DryRun implies planning even without Fix.
	Fix    bool
	DryRun bool

	// Source supplies version candidates for the constraint strategy.
	// Nil means candidates recorded in the closure document, unless
	// UseIndex asks for a package-index lookup instead.
	Source fixplan.VersionSource

	// UseIndex consults a PyPI-compatible index for version candidates,
	// through the runner's cache. Ignored when Source is set.
	UseIndex bool

	// IndexURL overrides the index root. Empty means the public PyPI
	// JSON API.
	IndexURL string

	// Workers sizes the extraction pool. Zero means DefaultWorkers.
	Workers int

	// projectDir is the directory whose .py files are scanned for
	// import usage, derived from Input during validation.
	projectDir string
}

// ValidateAndSetDefaults checks the options and fills in derived
// values.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Input == "" {
		return errors.New(errors.ErrCodeInvalidInput, "nothing to scan: input is empty")
	}
	info, err := os.Stat(o.Input)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "input %s", o.Input)
	}
	if info.IsDir() {
		o.projectDir = o.Input
	} else {
		o.projectDir = filepath.Dir(o.Input)
	}

	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.MaxNodes <= 0 {
		o.MaxNodes = depgraph.DefaultMaxNodes
	}

	for _, name := range o.Exclude {
		if err := errors.ValidatePackageName(closure.NormalizeName(name)); err != nil {
			return err
		}
	}
	for module := range o.Whitelist {
		if err := errors.ValidateModuleName(module); err != nil {
			return err
		}
	}
	return nil
}

// ProjectDir returns the directory treated as the project checkout.
func (o *Options) ProjectDir() string { return o.projectDir }
