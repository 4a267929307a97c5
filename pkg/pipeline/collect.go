package pipeline

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/modguard/modguard/pkg/closure"
	"github.com/modguard/modguard/pkg/errors"
)

// collect loads the dependency closure from the scan input. Files are
// dispatched on their name; a directory is probed for a lockfile in
// order of fidelity (closure document, poetry.lock, requirements.txt).
func collect(opts *Options) (*closure.Closure, error) {
	path := opts.Input
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		found, err := probeDir(path)
		if err != nil {
			return nil, err
		}
		path = found
	}

	c, err := readInput(path)
	if err != nil {
		return nil, err
	}

	if opts.SitePackages != "" {
		sp := closure.NewSitePackages(opts.SitePackages)
		if err := sp.Enrich(c); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "site-packages %s", opts.SitePackages)
		}
	}
	if opts.Project != "" {
		c.Root = opts.Project
	}
	return c.Exclude(opts.Exclude), nil
}

func readInput(path string) (*closure.Closure, error) {
	switch base := filepath.Base(path); {
	case strings.HasSuffix(base, ".json"):
		return closure.ImportJSON(path)
	case base == "poetry.lock":
		return closure.ParsePoetryLock(path)
	case base == "requirements.txt" || strings.HasSuffix(base, ".txt"):
		return closure.ParseRequirements(path)
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput,
			"cannot read %s: expected a closure .json, poetry.lock, or requirements.txt", path)
	}
}

func probeDir(dir string) (string, error) {
	for _, name := range []string{"modguard.closure.json", "poetry.lock", "requirements.txt"} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", errors.New(errors.ErrCodeInvalidInput,
		"no dependency manifest in %s: expected modguard.closure.json, poetry.lock, or requirements.txt", dir)
}
