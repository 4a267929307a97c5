package shim

import (
	"bytes"
	"fmt"
	"path"
)

// Artifact is one generated file, path relative to the project root.
type Artifact struct {
	Path    string
	Content []byte
}

// Artifact locations under the project root. The directory is owned by
// the tool and safe to regenerate wholesale.
const (
	ArtifactDir  = ".modguard"
	ShimDir      = ".modguard/shims"
	RoutingFile  = ".modguard/routing.json"
	loaderFile   = "_loader.py"
	shimInitFile = "__init__.py"
)

// Artifacts renders every file the rename-shim strategy installs: the
// routing table, the meta-path loader, and the package init that
// installs it. Importing the shims package once, anywhere in the
// project, activates the redirection.
func Artifacts(t *Table) ([]Artifact, error) {
	var table bytes.Buffer
	if err := t.WriteJSON(&table); err != nil {
		return nil, err
	}

	return []Artifact{
		{Path: RoutingFile, Content: table.Bytes()},
		{Path: path.Join(ShimDir, loaderFile), Content: []byte(fmt.Sprintf(loaderSource, table.String()))},
		{Path: path.Join(ShimDir, shimInitFile), Content: []byte(shimInitSource)},
	}, nil
}

const shimInitSource = `# Generated by modguard - do not edit.
from ._loader import install

install()
`

// loaderSource is the generated meta-path finder. It mirrors the Go
// Router: shadowed packages get their relocated copies, everyone else
// gets the winner, resolution is cached per (module, caller), and
// re-entrant resolution of the same key raises instead of recursing.
const loaderSource = `# Generated by modguard - do not edit.
"""Import redirection for colliding top-level modules.

Installs a finder on sys.meta_path that consults the routing table below
and hands each importer the copy of a colliding module that its own
package depends on.
"""
import importlib
import json
import sys
from importlib.abc import Loader, MetaPathFinder
from importlib.util import spec_from_loader

_TABLE = json.loads(r"""
%s
""")
_ROUTING = _TABLE["routes"]

# Module name -> owning package, for attributing importing stack frames.
# Relocated copies attribute back to their original package.
_OWNERS = dict(_TABLE.get("owners") or {})
for _route in _ROUTING.values():
    for _package, _relocated in _route.get("relocated", {}).items():
        _OWNERS[_relocated] = _package


def _calling_package():
    """Walk the stack for the first frame outside the import machinery
    and return the package the frame's module belongs to."""
    frame = sys._getframe(1)
    while frame is not None:
        name = frame.f_globals.get("__name__", "")
        if name and not name.startswith(("importlib", "_frozen_importlib")) and __package__ not in name:
            top = name.partition(".")[0]
            return _OWNERS.get(top, "")
        frame = frame.f_back
    return ""


class _Redirect(Loader):
    def __init__(self, target):
        self._target = target

    def create_module(self, spec):
        return importlib.import_module(self._target)

    def exec_module(self, module):
        pass


class _RoutingFinder(MetaPathFinder):
    def __init__(self):
        self._resolved = {}
        self._in_flight = set()

    def find_spec(self, fullname, path, target=None):
        route = _ROUTING.get(fullname)
        if route is None:
            return None

        caller = _calling_package()
        key = (fullname, caller)
        if key in self._resolved:
            redirect = self._resolved[key]
        else:
            if key in self._in_flight:
                raise ImportError(
                    "modguard: import of %%r by %%r re-entered its own "
                    "resolution" %% (fullname, caller)
                )
            self._in_flight.add(key)
            try:
                redirect = route.get("relocated", {}).get(caller)
                self._resolved[key] = redirect
            finally:
                self._in_flight.discard(key)

        if redirect is None:
            # The winner provides the plain name; let the normal import
            # machinery find it.
            return None
        return spec_from_loader(fullname, _Redirect(redirect))


_installed = False


def install():
    global _installed
    if _installed:
        return
    sys.meta_path.insert(0, _RoutingFinder())
    _installed = True
`
