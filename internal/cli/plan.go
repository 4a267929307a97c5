package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/modguard/modguard/pkg/pipeline"
)

// newPlanCmd creates the plan command: a scan that stops after planning.
func newPlanCmd() *cobra.Command {
	var (
		exclude    []string
		whitelist  []string
		strategies []string
		index      bool
		noCache    bool
	)

	cmd := &cobra.Command{
		Use:   "plan [path]",
		Short: "Show the fix plan without applying anything",
		Long: `Plan fixes for detected collisions and print them.

Equivalent to scan without artifact writing or CI gating: useful for
reviewing what --fix would do.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := "."
			if len(args) == 1 {
				input = args[0]
			}
			return runPlan(cmd.Context(), input, exclude, whitelist, strategies, index, noCache)
		},
	}

	cmd.Flags().StringArrayVar(&exclude, "exclude", nil, "exclude a package from analysis (repeatable)")
	cmd.Flags().StringArrayVar(&whitelist, "whitelist", nil, "allow packages to share a module: module=pkg1,pkg2 (repeatable)")
	cmd.Flags().StringSliceVar(&strategies, "strategy", nil, "fix strategy order: rename_shim, version_constraint, isolate")
	cmd.Flags().BoolVar(&index, "index", false, "consult the package index for version candidates")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the index response cache")

	return cmd
}

func runPlan(ctx context.Context, input string, exclude, whitelistFlags, strategies []string, index, noCache bool) error {
	logger := loggerFromContext(ctx)

	whitelist, err := parseWhitelist(whitelistFlags)
	if err != nil {
		return err
	}
	prefs, err := parseStrategies(strategies)
	if err != nil {
		return err
	}

	pipeOpts := pipeline.Options{
		Input:              input,
		Exclude:            exclude,
		Whitelist:          whitelist,
		StrategyPreference: prefs,
		UseIndex:           index,
	}
	cfg, err := LoadConfig(inputDir(input))
	if err != nil {
		return err
	}
	if err := cfg.Apply(&pipeOpts); err != nil {
		return err
	}

	backend := newCache(withLogger(ctx, logger), cfg.Cache, noCache)
	defer backend.Close()

	runner := pipeline.NewRunner(backend, nil, logger)
	result, err := runner.Execute(ctx, pipeOpts)
	if err != nil {
		return err
	}

	printNewline()
	printCollisions(result.Collisions)
	printPlan(result.Plan)
	if result.Plan != nil && !result.Plan.Empty() {
		printNewline()
		printNextStep("Apply", "modguard scan "+input+" --fix")
	}
	return nil
}
