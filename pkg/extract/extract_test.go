package extract

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestTopLevelModules(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  []string
	}{
		{
			name: "PackageAndSingleFile",
			files: []string{
				"requests/__init__.py",
				"requests/api.py",
				"six.py",
			},
			want: []string{"requests", "six"},
		},
		{
			name: "NamespaceDirWithoutInit",
			files: []string{
				"google/cloud/storage.py",
			},
			want: nil,
		},
		{
			name: "DunderSkipped",
			files: []string{
				"__pycache__/cached.pyc",
				"__init__.py",
				"pkg/__init__.py",
			},
			want: []string{"pkg"},
		},
		{
			name: "NonIdentifierSkipped",
			files: []string{
				"my-scripts/__init__.py",
				"1bad.py",
				"ok_name.py",
			},
			want: []string{"ok_name"},
		},
		{
			name: "NonPythonFilesIgnored",
			files: []string{
				"README.md",
				"data.json",
				"pkg/__init__.py",
				"pkg/data.csv",
			},
			want: []string{"pkg"},
		},
		{
			name:  "Empty",
			files: nil,
			want:  nil,
		},
		{
			name: "SortedAndDeduplicated",
			files: []string{
				"zeta.py",
				"alpha/__init__.py",
				"alpha/core.py",
				"alpha/util.py",
			},
			want: []string{"alpha", "zeta"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TopLevelModules(tt.files)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("TopLevelModules(%v) = %v, want %v", tt.files, got, tt.want)
			}
		})
	}
}

func TestProjectModules(t *testing.T) {
	dir := t.TempDir()

	write := func(rel string) {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("app.py")
	write("mylib/__init__.py")
	write("mylib/core.py")
	write("plaindir/notes.txt")
	write("tests/test_app.py")
	write(".hidden/__init__.py")
	write("README.md")

	got, err := ProjectModules(dir)
	if err != nil {
		t.Fatalf("ProjectModules: %v", err)
	}
	want := []string{"app", "mylib"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ProjectModules = %v, want %v", got, want)
	}
}
