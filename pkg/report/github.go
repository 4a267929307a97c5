package report

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// InGitHubActions reports whether the process is running inside a GitHub
// Actions job.
func InGitHubActions() bool {
	return os.Getenv("GITHUB_ACTIONS") == "true"
}

// annotationType maps a collision severity to a workflow command level.
func annotationType(severity string) string {
	switch severity {
	case "critical":
		return "error"
	case "warning":
		return "warning"
	default:
		return "notice"
	}
}

// annotation formats one GitHub Actions workflow command.
func annotation(kind, message, file string, line int) string {
	var params string
	if file != "" {
		params = " file=" + file
		if line > 0 {
			params += fmt.Sprintf(",line=%d", line)
		}
	}
	// Workflow commands treat these sequences as syntax.
	message = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A").Replace(message)
	return fmt.Sprintf("::%s%s::%s", kind, params, message)
}

// Annotations renders the report as GitHub Actions workflow commands,
// one per collision. When the project imports a colliding module, the
// annotation is attached to each importing file and line; otherwise a
// single unanchored annotation is emitted. Planned fixes follow as
// notices.
func (r *Report) Annotations() []string {
	var out []string
	for _, c := range r.Collisions {
		kind := annotationType(c.Severity)

		parts := make([]string, len(c.Providers))
		for i, p := range c.Providers {
			parts[i] = fmt.Sprintf("%s (%s)", p.Package, p.Version)
		}
		message := fmt.Sprintf("module %q is provided by multiple packages: %s", c.Module, strings.Join(parts, ", "))

		if uses := r.ImportUses[c.Module]; len(uses) > 0 {
			for _, u := range uses {
				out = append(out, annotation(kind, message, u.File, u.Line))
			}
			continue
		}
		out = append(out, annotation(kind, message, "", 0))
	}

	for _, p := range r.Plan {
		out = append(out, annotation("notice", "suggested fix: "+p.Summary, "", 0))
	}
	return out
}

// SetOutput appends a step output for later workflow steps. Multi-line
// values use the heredoc form GITHUB_OUTPUT requires. A no-op outside
// GitHub Actions or when GITHUB_OUTPUT is unset.
func SetOutput(name, value string) error {
	if !InGitHubActions() {
		return nil
	}
	path := os.Getenv("GITHUB_OUTPUT")
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if strings.Contains(value, "\n") {
		_, err = fmt.Fprintf(f, "%s<<MODGUARD_EOF\n%s\nMODGUARD_EOF\n", name, value)
	} else {
		_, err = fmt.Fprintf(f, "%s=%s\n", name, value)
	}
	return err
}

// Outputs returns the step outputs a CI run publishes, sorted by name.
func (r *Report) Outputs() map[string]string {
	counts := r.Counts()
	out := map[string]string{
		"collisions": fmt.Sprint(len(r.Collisions)),
		"critical":   fmt.Sprint(counts["critical"]),
		"report-id":  r.ID,
	}
	return out
}

// PublishOutputs writes every report output via SetOutput.
func (r *Report) PublishOutputs() error {
	outputs := r.Outputs()
	names := make([]string, 0, len(outputs))
	for n := range outputs {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if err := SetOutput(n, outputs[n]); err != nil {
			return err
		}
	}
	return nil
}
