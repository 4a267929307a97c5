package closure

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var distInfoRE = regexp.MustCompile(`^([A-Za-z0-9][-A-Za-z0-9._]*)-([0-9][^-]*)\.dist-info$`)

// SitePackages reads installed-distribution metadata from a Python
// site-packages directory. Each installed distribution owns a
// <name>-<version>.dist-info directory whose RECORD file lists every
// installed path; that list is exactly the file manifest the module
// extractor needs.
type SitePackages struct {
	dir string
}

// NewSitePackages creates a reader for the given site-packages directory.
func NewSitePackages(dir string) *SitePackages {
	return &SitePackages{dir: dir}
}

// Files returns the install-root-relative file manifest for the named
// package, or nil if the distribution is not installed here. Metadata
// paths (the .dist-info directory itself) are filtered out: only payload
// files matter for namespace analysis.
func (s *SitePackages) Files(name, version string) ([]string, error) {
	name = NormalizeName(name)

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m := distInfoRE.FindStringSubmatch(e.Name())
		if len(m) < 3 || NormalizeName(m[1]) != name {
			continue
		}
		if version != "" && version != "latest" && m[2] != version {
			continue
		}
		return s.readRecord(filepath.Join(s.dir, e.Name(), "RECORD"))
	}
	return nil, nil
}

// Enrich fills in the file manifests of every closure package installed in
// this site-packages directory. Packages without an installed distribution
// are left untouched.
func (s *SitePackages) Enrich(c *Closure) error {
	for i := range c.Packages {
		if len(c.Packages[i].Files) > 0 {
			continue
		}
		files, err := s.Files(c.Packages[i].Name, c.Packages[i].Version)
		if err != nil {
			return err
		}
		c.Packages[i].Files = files
	}
	return nil
}

// readRecord parses a dist-info RECORD file: CSV lines of
// "path,hash,size". Only the path column is used.
func (s *SitePackages) readRecord(path string) ([]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var files []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rel := line
		if i := strings.IndexByte(line, ','); i >= 0 {
			rel = line[:i]
		}
		// RECORD paths use forward slashes regardless of platform.
		if rel == "" || strings.Contains(rel, ".dist-info/") || strings.HasPrefix(rel, "../") {
			continue
		}
		files = append(files, rel)
	}
	return files, scanner.Err()
}
