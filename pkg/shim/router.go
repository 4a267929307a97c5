package shim

import (
	"sync"

	"github.com/modguard/modguard/pkg/errors"
)

// Caller identifies whose code is performing an import. Package is the
// importing package's normalized name; the zero value means the caller
// could not be attributed (interactive sessions, exec'd strings).
type Caller struct {
	Package string
}

// Unknown reports whether the caller could not be attributed.
func (c Caller) Unknown() bool { return c.Package == "" }

// Decision is the outcome of routing one import.
type Decision struct {
	// Target is the module name to load.
	Target string
	// Redirected is true when the caller was sent to a relocated copy
	// instead of the plain name.
	Redirected bool
	// Diagnostic carries a note for imports routed on incomplete
	// information, such as an unattributable caller.
	Diagnostic string
}

// Router resolves imports of colliding modules against a routing table.
// It mirrors the decision procedure of the generated Python loader so the
// behavior can be exercised and verified here. Safe for concurrent use.
type Router struct {
	table *Table

	mu       sync.Mutex
	cache    map[routeKey]Decision
	inflight map[routeKey]bool
}

type routeKey struct {
	module string
	caller string
}

// NewRouter creates a router over the given table.
func NewRouter(table *Table) *Router {
	return &Router{
		table:    table,
		cache:    make(map[routeKey]Decision),
		inflight: make(map[routeKey]bool),
	}
}

// Routes reports whether module is under the router's control. Imports of
// unrouted modules fall through to the normal import machinery untouched.
func (r *Router) Routes(module string) bool {
	_, ok := r.table.Routes[module]
	return ok
}

// Decide resolves one import without side effects.
//
// A shadowed package importing the module gets its own relocated copy:
// its internal imports must keep seeing the code it shipped with. Every
// other caller, the winner and unrelated packages alike, gets the plain
// name, which the winner provides. An unknown caller also gets the plain
// name, with a diagnostic, since the winner is the resolution standard
// Python would have picked most of the time anyway.
func (r *Router) Decide(module string, caller Caller) (Decision, bool) {
	route, ok := r.table.Routes[module]
	if !ok {
		return Decision{}, false
	}
	if relocated, shadowed := route.Relocated[caller.Package]; shadowed {
		return Decision{Target: relocated, Redirected: true}, true
	}
	d := Decision{Target: module}
	if caller.Unknown() {
		d.Diagnostic = "caller unknown, routed to " + route.Winner
	}
	return d, true
}

// Load routes one import and runs the supplied loader for its target,
// guarding against re-entry: if loading the target circles back into a
// load of the same module for the same caller, the inner call fails with
// ROUTING_CYCLE instead of recursing forever. Successful resolutions are
// cached, so repeated imports are idempotent and skip the loader.
func (r *Router) Load(module string, caller Caller, load func(target string) error) (Decision, error) {
	d, ok := r.Decide(module, caller)
	if !ok {
		return Decision{}, errors.New(errors.ErrCodeNotFound, "module %q is not routed", module)
	}

	key := routeKey{module, caller.Package}
	r.mu.Lock()
	if cached, hit := r.cache[key]; hit {
		r.mu.Unlock()
		return cached, nil
	}
	if r.inflight[key] {
		r.mu.Unlock()
		return Decision{}, errors.New(errors.ErrCodeRoutingCycle,
			"import of %q by %q re-entered its own resolution", module, caller.Package)
	}
	r.inflight[key] = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.inflight, key)
		r.mu.Unlock()
	}()

	if load != nil {
		if err := load(d.Target); err != nil {
			return Decision{}, errors.Wrap(errors.ErrCodeApplyFailed, err, "load %s", d.Target)
		}
	}

	r.mu.Lock()
	r.cache[key] = d
	r.mu.Unlock()
	return d, nil
}
