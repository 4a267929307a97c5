package closure

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/modguard/modguard/pkg/errors"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Requests", "requests"},
		{"typing_extensions", "typing-extensions"},
		{"zope.interface", "zope-interface"},
		{"  Flask  ", "flask"},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestReadJSON(t *testing.T) {
	doc := `{
		"root": "myproject",
		"requires": ["Requests"],
		"packages": [
			{"name": "urllib3", "version": "2.2.0", "files": ["urllib3/__init__.py"]},
			{"name": "Requests", "version": "2.31.0", "dependencies": ["urllib3"]}
		]
	}`

	c, err := ReadJSON(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}

	if c.Root != "myproject" {
		t.Errorf("Root = %q", c.Root)
	}
	// Names are normalized and packages sorted.
	if !reflect.DeepEqual(c.Requires, []string{"requests"}) {
		t.Errorf("Requires = %v", c.Requires)
	}
	if c.Packages[0].Name != "requests" || c.Packages[1].Name != "urllib3" {
		t.Errorf("packages not sorted/normalized: %+v", c.Packages)
	}
}

func TestReadJSONRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"Malformed", `{"root": `},
		{"DuplicatePackage", `{"root":"p","packages":[{"name":"a","version":"1.0"},{"name":"a","version":"1.0"}]}`},
		{"DanglingRequire", `{"root":"p","requires":["missing"],"packages":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadJSON(strings.NewReader(tt.doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestReadJSONDuplicateIsInvalidClosure(t *testing.T) {
	doc := `{"root":"p","packages":[{"name":"a","version":"1.0"},{"name":"a","version":"1.0"}]}`
	_, err := ReadJSON(strings.NewReader(doc))
	if !errors.Is(err, errors.ErrCodeInvalidClosure) {
		t.Errorf("expected INVALID_CLOSURE, got %v", err)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	c := &Closure{
		Root:     "proj",
		Requires: []string{"a"},
		Packages: []Package{
			{Name: "a", Version: "1.0", Dependencies: []string{"b"}, Files: []string{"a.py"}},
			{Name: "b", Version: "2.0", Candidates: []Candidate{{Version: "2.1", Modules: []string{"b2"}}}},
		},
	}

	var buf bytes.Buffer
	if err := WriteJSON(c, &buf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	got, err := ReadJSON(&buf)
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if !reflect.DeepEqual(got, c) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, c)
	}
}

func TestExclude(t *testing.T) {
	c := &Closure{
		Root:     "proj",
		Requires: []string{"c", "d"},
		Packages: []Package{
			{Name: "c", Version: "1.0", Dependencies: []string{"d"}},
			{Name: "d", Version: "1.0"},
		},
	}

	got := c.Exclude([]string{"D"})

	if _, ok := got.Package("d"); ok {
		t.Error("excluded package still present")
	}
	if !reflect.DeepEqual(got.Requires, []string{"c"}) {
		t.Errorf("Requires = %v", got.Requires)
	}
	pc, _ := got.Package("c")
	if len(pc.Dependencies) != 0 {
		t.Errorf("dangling dependency on excluded package: %v", pc.Dependencies)
	}

	// Original closure is untouched.
	if _, ok := c.Package("d"); !ok {
		t.Error("Exclude mutated its receiver")
	}
}

func TestParseRequirements(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "requirements.txt")
	content := `# comment
requests==2.31.0
Flask>=2.0
-r other.txt
git+https://github.com/x/y
typing_extensions

urllib3 @ https://example.com/urllib3.whl
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := ParseRequirements(path)
	if err != nil {
		t.Fatalf("ParseRequirements: %v", err)
	}

	want := []string{"flask", "requests", "typing-extensions"}
	if !reflect.DeepEqual(c.Requires, want) {
		t.Errorf("Requires = %v, want %v", c.Requires, want)
	}

	req, _ := c.Package("requests")
	if req.Version != "2.31.0" {
		t.Errorf("pinned version = %q", req.Version)
	}
	fl, _ := c.Package("flask")
	if fl.Version != "latest" {
		t.Errorf("unpinned version = %q, want latest", fl.Version)
	}
}

func TestParsePoetryLock(t *testing.T) {
	dir := t.TempDir()
	lock := `
[[package]]
name = "requests"
version = "2.31.0"

[package.dependencies]
urllib3 = ">=1.21"

[[package]]
name = "urllib3"
version = "2.2.0"
`
	pyproject := `
[tool.poetry]
name = "demo-app"
`
	if err := os.WriteFile(filepath.Join(dir, "poetry.lock"), []byte(lock), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "pyproject.toml"), []byte(pyproject), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := ParsePoetryLock(filepath.Join(dir, "poetry.lock"))
	if err != nil {
		t.Fatalf("ParsePoetryLock: %v", err)
	}

	if c.Root != "demo-app" {
		t.Errorf("Root = %q", c.Root)
	}
	if !reflect.DeepEqual(c.Requires, []string{"requests"}) {
		t.Errorf("Requires = %v", c.Requires)
	}
	req, ok := c.Package("requests")
	if !ok || !reflect.DeepEqual(req.Dependencies, []string{"urllib3"}) {
		t.Errorf("requests dependencies = %+v", req)
	}
}

func TestSitePackages(t *testing.T) {
	dir := t.TempDir()
	distInfo := filepath.Join(dir, "requests-2.31.0.dist-info")
	if err := os.MkdirAll(distInfo, 0o755); err != nil {
		t.Fatal(err)
	}
	record := `requests/__init__.py,sha256=abc,100
requests/api.py,sha256=def,200
requests-2.31.0.dist-info/METADATA,sha256=ghi,300
../bin/req,sha256=jkl,50
`
	if err := os.WriteFile(filepath.Join(distInfo, "RECORD"), []byte(record), 0o644); err != nil {
		t.Fatal(err)
	}

	sp := NewSitePackages(dir)
	files, err := sp.Files("Requests", "2.31.0")
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	want := []string{"requests/__init__.py", "requests/api.py"}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("Files = %v, want %v", files, want)
	}

	// Unknown distribution is nil, not an error.
	files, err = sp.Files("missing", "")
	if err != nil || files != nil {
		t.Errorf("missing dist: files=%v err=%v", files, err)
	}

	// Enrich fills only empty manifests.
	c := &Closure{Packages: []Package{
		{Name: "requests", Version: "2.31.0"},
		{Name: "other", Version: "1.0", Files: []string{"other.py"}},
	}}
	if err := sp.Enrich(c); err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if !reflect.DeepEqual(c.Packages[0].Files, want) {
		t.Errorf("enriched files = %v", c.Packages[0].Files)
	}
	if !reflect.DeepEqual(c.Packages[1].Files, []string{"other.py"}) {
		t.Errorf("pre-filled manifest overwritten: %v", c.Packages[1].Files)
	}
}
