// Package pyindex is a client for the PyPI JSON API. It backs the
// optional index-assisted mode: looking up which versions of a package
// exist so the version-constraint strategy has candidates beyond the
// ones recorded in the closure document.
package pyindex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/modguard/modguard/pkg/cache"
	"github.com/modguard/modguard/pkg/closure"
	"github.com/modguard/modguard/pkg/errors"
	"github.com/modguard/modguard/pkg/observability"
)

const (
	// DefaultBaseURL is the public PyPI JSON API root.
	DefaultBaseURL = "https://pypi.org/pypi"

	httpTimeout = 10 * time.Second
)

// PackageInfo holds the index metadata a scan needs: identity, the
// latest version, declared dependencies, and every published version.
type PackageInfo struct {
	Name     string   `json:"name"`    // Normalized package name
	Version  string   `json:"version"` // Latest published version
	Summary  string   `json:"summary,omitempty"`
	Releases []string `json:"releases"` // All published versions, unordered
}

// Client fetches package metadata from a PyPI-compatible index with
// response caching and retries. Safe for concurrent use.
type Client struct {
	http    *http.Client
	backend cache.Cache
	keyer   cache.Keyer
	ttl     time.Duration
	baseURL string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different index, such as a private
// mirror or a test server.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithKeyer swaps the cache key scheme, for callers that scope keys.
func WithKeyer(k cache.Keyer) Option {
	return func(c *Client) { c.keyer = k }
}

// NewClient creates an index client over the given cache backend. Pass
// a [cache.NullCache] to disable caching.
func NewClient(backend cache.Cache, ttl time.Duration, opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: httpTimeout},
		backend: backend,
		keyer:   cache.NewDefaultKeyer(),
		ttl:     ttl,
		baseURL: DefaultBaseURL,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// FetchPackage retrieves index metadata for a package. The name is
// normalized before lookup. With refresh true the cache is bypassed.
func (c *Client) FetchPackage(ctx context.Context, pkg string, refresh bool) (*PackageInfo, error) {
	pkg = closure.NormalizeName(pkg)
	if err := errors.ValidatePackageName(pkg); err != nil {
		return nil, err
	}

	var info PackageInfo
	err := c.cached(ctx, c.keyer.IndexKey(pkg), refresh, &info, func() error {
		return c.fetch(ctx, pkg, &info)
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// cached serves v from the cache when possible, otherwise runs fetch
// with retries and stores the result.
func (c *Client) cached(ctx context.Context, key string, refresh bool, v any, fetch func() error) error {
	if !refresh {
		if data, ok, _ := c.backend.Get(ctx, key); ok {
			if json.Unmarshal(data, v) == nil {
				observability.Cache().OnCacheHit(ctx, "index")
				return nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "index")
	}
	if err := cache.RetryWithBackoff(ctx, fetch); err != nil {
		return err
	}
	if data, err := json.Marshal(v); err == nil {
		_ = c.backend.Set(ctx, key, data, c.ttl)
		observability.Cache().OnCacheSet(ctx, "index", len(data))
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, pkg string, info *PackageInfo) error {
	observability.Index().OnRequest(ctx, pkg)
	start := time.Now()

	var data apiResponse
	if err := c.get(ctx, fmt.Sprintf("%s/%s/json", c.baseURL, pkg), &data); err != nil {
		observability.Index().OnError(ctx, pkg, err)
		return err
	}
	observability.Index().OnResponse(ctx, pkg, http.StatusOK, time.Since(start))

	releases := make([]string, 0, len(data.Releases))
	for version, files := range data.Releases {
		if yankedRelease(files) {
			continue
		}
		releases = append(releases, version)
	}

	*info = PackageInfo{
		Name:     closure.NormalizeName(data.Info.Name),
		Version:  data.Info.Version,
		Summary:  data.Info.Summary,
		Releases: releases,
	}
	return nil
}

// get performs one GET and JSON-decodes the response.
func (c *Client) get(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &cache.RetryableError{Err: errors.Wrap(errors.ErrCodeNetwork, err, "index request")}
	}
	defer resp.Body.Close()

	if err := checkStatus(resp.StatusCode); err != nil {
		return err
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return errors.New(errors.ErrCodePackageNotFound, "package not on the index")
	case code == http.StatusTooManyRequests:
		return &cache.RetryableError{Err: errors.New(errors.ErrCodeRateLimited, "index rate limit")}
	case code >= 500:
		return &cache.RetryableError{Err: errors.New(errors.ErrCodeNetwork, "index status %d", code)}
	default:
		return errors.New(errors.ErrCodeNetwork, "index status %d", code)
	}
}

// yankedRelease reports whether every file of a release was yanked.
// Releases with no files at all are kept: old uploads often lack file
// records but are still installable from mirrors.
func yankedRelease(files []releaseFile) bool {
	if len(files) == 0 {
		return false
	}
	for _, f := range files {
		if !f.Yanked {
			return false
		}
	}
	return true
}

type releaseFile struct {
	Filename string `json:"filename"`
	Yanked   bool   `json:"yanked"`
}

// apiResponse is the subset of the PyPI JSON document the client reads.
type apiResponse struct {
	Info struct {
		Name    string `json:"name"`
		Version string `json:"version"`
		Summary string `json:"summary"`
	} `json:"info"`
	Releases map[string][]releaseFile `json:"releases"`
}
