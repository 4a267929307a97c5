package cli

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/modguard/modguard/pkg/errors"
	"github.com/modguard/modguard/pkg/fixplan"
	"github.com/modguard/modguard/pkg/pipeline"
)

// ConfigFile is the per-project configuration file name.
const ConfigFile = ".modguard.toml"

// Config is the on-disk project configuration. Every field has a flag
// counterpart; flags win when both are set.
//
//	exclude = ["setuptools"]
//	depth_threshold = 3
//	strategies = ["rename_shim", "version_constraint"]
//	index = true
//
//	[whitelist]
//	typing = ["typing-extensions"]
//
//	[cache]
//	redis_addr = "localhost:6379"
type Config struct {
	Exclude        []string            `toml:"exclude"`
	Whitelist      map[string][]string `toml:"whitelist"`
	DepthThreshold int                 `toml:"depth_threshold"`
	MaxNodes       int                 `toml:"max_nodes"`
	Strategies     []string            `toml:"strategies"`
	Index          bool                `toml:"index"`
	IndexURL       string              `toml:"index_url"`
	SitePackages   string              `toml:"site_packages"`

	Cache CacheConfig `toml:"cache"`
}

// CacheConfig selects the cache backend for index lookups.
type CacheConfig struct {
	Disabled  bool   `toml:"disabled"`
	RedisAddr string `toml:"redis_addr"`
	RedisDB   int    `toml:"redis_db"`
}

// LoadConfig reads ConfigFile from dir. A missing file yields an empty
// configuration, not an error.
func LoadConfig(dir string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(dir, ConfigFile))
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", ConfigFile)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", ConfigFile)
	}
	return &cfg, nil
}

// Apply merges the configuration into opts. Options already set, from
// flags, keep their values.
func (cfg *Config) Apply(opts *pipeline.Options) error {
	if len(opts.Exclude) == 0 {
		opts.Exclude = cfg.Exclude
	}
	if len(opts.Whitelist) == 0 {
		opts.Whitelist = cfg.Whitelist
	}
	if opts.DepthThreshold == 0 {
		opts.DepthThreshold = cfg.DepthThreshold
	}
	if opts.MaxNodes == 0 {
		opts.MaxNodes = cfg.MaxNodes
	}
	if opts.SitePackages == "" {
		opts.SitePackages = cfg.SitePackages
	}
	if !opts.UseIndex {
		opts.UseIndex = cfg.Index
	}
	if opts.IndexURL == "" {
		opts.IndexURL = cfg.IndexURL
	}
	if len(opts.StrategyPreference) == 0 && len(cfg.Strategies) > 0 {
		prefs, err := parseStrategies(cfg.Strategies)
		if err != nil {
			return err
		}
		opts.StrategyPreference = prefs
	}
	return nil
}

// parseStrategies validates a list of strategy names from configuration
// or flags.
func parseStrategies(names []string) ([]fixplan.Strategy, error) {
	prefs := make([]fixplan.Strategy, 0, len(names))
	for _, name := range names {
		s, err := fixplan.ParseStrategy(name)
		if err != nil {
			return nil, err
		}
		prefs = append(prefs, s)
	}
	return prefs, nil
}
