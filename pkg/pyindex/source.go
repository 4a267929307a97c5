package pyindex

import (
	"context"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/modguard/modguard/pkg/closure"
	"github.com/modguard/modguard/pkg/errors"
)

// DefaultCandidateLimit caps how many index versions a single
// feasibility check considers.
const DefaultCandidateLimit = 5

// Source adapts the index client to the planner's VersionSource. It
// serves the newest published versions of a package as constraint
// candidates.
//
// The JSON API does not expose which top-level modules a given version
// installs, so every candidate is marked as exporting the package's
// eponymous module (the normalized name with hyphens as underscores).
// The effect is deliberate: upgrading can never be proposed as a way to
// drop a package's own module, only to shed an extra module the package
// happens to ship under a foreign name.
type Source struct {
	client *Client

	// Limit caps candidates per package. Zero means
	// DefaultCandidateLimit.
	Limit int
}

// NewSource wraps a client as a version source.
func NewSource(client *Client) *Source {
	return &Source{client: client}
}

// Candidates returns the package's newest versions, highest first.
// Unknown packages and versions that do not parse as semver yield no
// candidates rather than an error: the planner treats an empty candidate
// list as an infeasible strategy, which is the right outcome for a
// package the index has never heard of. Network failures do propagate.
func (s *Source) Candidates(ctx context.Context, pkg string) ([]closure.Candidate, error) {
	info, err := s.client.FetchPackage(ctx, pkg, false)
	if errors.Is(err, errors.ErrCodePackageNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	versions := make([]*semver.Version, 0, len(info.Releases))
	for _, raw := range info.Releases {
		if v, err := semver.NewVersion(raw); err == nil {
			versions = append(versions, v)
		}
	}
	sort.Sort(sort.Reverse(semver.Collection(versions)))

	limit := s.Limit
	if limit <= 0 {
		limit = DefaultCandidateLimit
	}
	if len(versions) > limit {
		versions = versions[:limit]
	}

	module := EponymousModule(pkg)
	out := make([]closure.Candidate, len(versions))
	for i, v := range versions {
		out[i] = closure.Candidate{Version: v.Original(), Modules: []string{module}}
	}
	return out, nil
}

// EponymousModule returns the module name a package conventionally
// installs: its normalized name with hyphens as underscores.
func EponymousModule(pkg string) string {
	return strings.ReplaceAll(closure.NormalizeName(pkg), "-", "_")
}
