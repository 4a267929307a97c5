package closure

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/modguard/modguard/pkg/errors"
)

// ReadJSON decodes a closure document from r.
//
// The input must be a JSON object with "root", "requires", and "packages"
// fields:
//
//	{
//	  "root": "myproject",
//	  "requires": ["requests"],
//	  "packages": [
//	    {"name": "requests", "version": "2.31.0",
//	     "dependencies": ["urllib3"],
//	     "files": ["requests/__init__.py", "requests/api.py"]}
//	  ]
//	}
//
// Package names are normalized on read, packages are sorted, and the
// document is validated. ReadJSON does not close r.
func ReadJSON(r io.Reader) (*Closure, error) {
	var c Closure
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidClosure, err, "decode closure")
	}

	for i := range c.Packages {
		c.Packages[i].Name = NormalizeName(c.Packages[i].Name)
		for j, d := range c.Packages[i].Dependencies {
			c.Packages[i].Dependencies[j] = NormalizeName(d)
		}
	}
	for i, r := range c.Requires {
		c.Requires[i] = NormalizeName(r)
	}

	c.Sort()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// WriteJSON encodes a closure as indented JSON and writes it to w.
// The output round-trips through [ReadJSON].
func WriteJSON(c *Closure, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ImportJSON reads a closure document from the file at path.
func ImportJSON(path string) (*Closure, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	c, err := ReadJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// ExportJSON writes a closure document to a file at path.
func ExportJSON(c *Closure, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(c, f)
}
