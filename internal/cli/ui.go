package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/modguard/modguard/pkg/collision"
	"github.com/modguard/modguard/pkg/fixplan"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - links
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCritical = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	styleWarn     = lipgloss.NewStyle().Foreground(colorYellow)
	styleInfoSev  = lipgloss.NewStyle().Foreground(colorGray)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

// printSuccess prints a success message.
func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + msg)
}

// printError prints an error message.
func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconError.Render(iconError) + " " + msg)
}

// printWarning prints a warning message.
func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(msg))
}

// printInfo prints an info/status message.
func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + msg)
}

// printDetail prints a detail line (indented).
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println("  " + StyleDim.Render(msg))
}

// printFile prints a file output line.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

// printNewline prints an empty line.
func printNewline() {
	fmt.Println()
}

// =============================================================================
// Collision Output
// =============================================================================

// severityStyle maps a collision severity to its display style.
func severityStyle(s collision.Severity) lipgloss.Style {
	switch s {
	case collision.Critical:
		return styleCritical
	case collision.Warning:
		return styleWarn
	default:
		return styleInfoSev
	}
}

// printCollision prints one collision with its providers, worst first.
func printCollision(c collision.Collision) {
	label := severityStyle(c.Severity).Render(strings.ToUpper(c.Severity.String()))
	suffix := ""
	if c.Whitelisted {
		suffix = " " + StyleDim.Render("(whitelisted)")
	}
	fmt.Println(label + " module " + StyleValue.Render(c.Module) + suffix)

	for i, p := range c.Providers {
		marker := "shadowed by"
		if i == 0 {
			marker = "resolves to"
		}
		printDetail("%s %s %s (depth %d)", marker, p.Package, p.Version, p.Depth)
	}
}

// printCollisions prints every collision followed by a severity tally.
func printCollisions(collisions []collision.Collision) {
	if len(collisions) == 0 {
		printSuccess("No namespace collisions")
		return
	}
	for _, c := range collisions {
		printCollision(c)
	}
	printNewline()

	critical, warning, informational := collision.Count(collisions)
	var parts []string
	for _, part := range []struct {
		n   int
		sev collision.Severity
	}{
		{critical, collision.Critical},
		{warning, collision.Warning},
		{informational, collision.Informational},
	} {
		if part.n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", part.n, part.sev))
		}
	}
	printWarning("%d collisions: %s", len(collisions), strings.Join(parts, ", "))
}

// printPlan prints the fix plan, one line per action.
func printPlan(plan *fixplan.Plan) {
	if plan == nil || plan.Empty() {
		return
	}
	printNewline()
	fmt.Println(StyleTitle.Render("Plan"))
	for _, a := range plan.Actions {
		icon := styleIconSuccess.Render(iconSuccess)
		if a.Strategy() == fixplan.StrategyManual {
			icon = styleIconWarning.Render(iconWarning)
		}
		fmt.Println(icon + " " + StyleDim.Render(string(a.Strategy())) + " " + a.Describe())
	}
}

// printApplied prints the outcome of applying a plan.
func printApplied(res *fixplan.Result, dryRun bool) {
	if res == nil {
		return
	}
	printNewline()
	verb := "Applied"
	if dryRun {
		verb = "Would apply"
	}
	succeeded, failed := res.Counts()
	if failed > 0 {
		printWarning("%s %d fixes, %d need manual attention", verb, succeeded, failed)
	} else {
		printSuccess("%s %d fixes", verb, succeeded)
	}
	for _, fix := range res.Applied {
		for _, path := range fix.Paths {
			printFile(path)
		}
	}
}
