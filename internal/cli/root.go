// Package cli implements the modguard command-line interface.
//
// The main commands are:
//   - scan: analyze a dependency closure for namespace collisions
//   - graph: export the dependency graph as DOT or SVG
//   - cache: manage the package-index response cache
//
// All commands support --verbose (-v) for debug-level logging. Loggers
// are passed through context.Context so every command logs the same way.
package cli

import (
	"context"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/modguard/modguard/pkg/buildinfo"
	"github.com/modguard/modguard/pkg/observability"
)

// appName is the application name used for directories and display.
const appName = "modguard"

// Execute runs the modguard CLI and returns an error if any command
// fails. This is the main entry point for the CLI application.
func Execute(ctx context.Context) error {
	var verbose bool

	root := &cobra.Command{
		Use:          appName,
		Short:        "Modguard detects Python namespace collisions in dependency trees",
		Long: `Modguard analyzes a project's resolved dependency closure and reports
top-level module names claimed by more than one package. Import
resolution silently picks one winner; modguard finds those conflicts,
grades them, and plans fixes before they bite at runtime.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			logger := newLogger(os.Stderr, level)
			if verbose {
				observability.SetScanHooks(&logScanHooks{logger: logger})
				observability.SetIndexHooks(&logIndexHooks{logger: logger})
			}
			cmd.SetContext(withLogger(cmd.Context(), logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newScanCmd())
	root.AddCommand(newPlanCmd())
	root.AddCommand(newGraphCmd())
	root.AddCommand(newCacheCmd())
	root.AddCommand(newCompletionCmd())

	return root.ExecuteContext(ctx)
}
