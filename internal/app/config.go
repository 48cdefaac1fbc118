package app

import (
	"flag"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

const (
	DefaultCacheDir    = ".transferindex-cache"
	DefaultOutputPath  = "equivalencies.json"
	DefaultUserAgent   = "transferindex/1.0 (+https://github.com/hyperifyio/transferindex)"
	DefaultConcurrency = 4
	DefaultTimeout     = 60 * time.Second
)

// Config holds runtime configuration for the application.
type Config struct {
	ConfigPath string
	EnvFiles   []string

	// Institutions limits the run to these acronyms. Empty means all.
	Institutions []string
	// Sources replaces the published URL of an institution, keyed by acronym.
	Sources map[string]string

	// Fetching
	UserAgent   string
	Timeout     time.Duration
	Concurrency int
	// IgnoreRobots skips the robots.txt check of source hosts.
	IgnoreRobots bool

	// Cache
	CacheDir         string
	CacheMaxAge      time.Duration
	CachePurgeAfter  time.Duration
	CacheClear       bool
	CacheOnly        bool
	CacheStrictPerms bool
	Refresh          bool

	// Sinks
	OutputPath     string
	ReportPath     string
	ReportPDFPath  string
	DatabaseURL    string
	Migrate        bool
	KeepDuplicates bool

	Verbose bool
}

// listValue is a comma-separated flag. Set replaces the whole list.
type listValue struct{ dst *[]string }

func (v listValue) String() string {
	if v.dst == nil {
		return ""
	}
	return strings.Join(*v.dst, ",")
}

func (v listValue) Set(s string) error {
	*v.dst = splitList(s)
	return nil
}

// sourcesValue accepts ACRONYM=URL, repeated or comma-separated.
type sourcesValue struct{ dst *map[string]string }

func (v sourcesValue) String() string {
	if v.dst == nil || len(*v.dst) == 0 {
		return ""
	}
	parts := make([]string, 0, len(*v.dst))
	for _, k := range slices.Sorted(maps.Keys(*v.dst)) {
		parts = append(parts, k+"="+(*v.dst)[k])
	}
	return strings.Join(parts, ",")
}

func (v sourcesValue) Set(s string) error {
	if *v.dst == nil {
		*v.dst = map[string]string{}
	}
	for _, pair := range splitList(s) {
		k, u, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" || strings.TrimSpace(u) == "" {
			return fmt.Errorf("want ACRONYM=URL, got %q", pair)
		}
		(*v.dst)[k] = strings.TrimSpace(u)
	}
	return nil
}

// RegisterFlags binds the fields of cfg to fs and fills in the defaults.
func RegisterFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.ConfigPath, "config", "", "Config file (.yaml, .yml, .json or .toml)")
	fs.Var(listValue{&cfg.EnvFiles}, "env", "Comma-separated dotenv files loaded before reading the environment")
	fs.Var(listValue{&cfg.Institutions}, "inst", "Comma-separated institution acronyms to index (default all)")
	fs.Var(sourcesValue{&cfg.Sources}, "source", "Override a source URL as ACRONYM=URL; repeatable")

	fs.StringVar(&cfg.UserAgent, "ua", DefaultUserAgent, "User-Agent for source requests")
	fs.DurationVar(&cfg.Timeout, "timeout", DefaultTimeout, "Per-request timeout")
	fs.IntVar(&cfg.Concurrency, "concurrency", DefaultConcurrency, "Institutions extracted in parallel")
	fs.BoolVar(&cfg.IgnoreRobots, "robots.ignore", false, "Do not consult robots.txt of source hosts")

	fs.StringVar(&cfg.CacheDir, "cache.dir", DefaultCacheDir, "Cache directory; empty disables the cache")
	fs.DurationVar(&cfg.CacheMaxAge, "cache.maxAge", 0, "Serve cached sources younger than this without revalidating (e.g. 24h); 0 always revalidates")
	fs.DurationVar(&cfg.CachePurgeAfter, "cache.purgeAfter", 0, "Delete cache entries older than this before the run; 0 disables")
	fs.BoolVar(&cfg.CacheClear, "cache.clear", false, "Clear the cache directory before the run")
	fs.BoolVar(&cfg.CacheOnly, "cache.only", false, "Never touch the network; fail institutions that are not cached")
	fs.BoolVar(&cfg.CacheStrictPerms, "cache.strictPerms", false, "Restrict cache permissions (0700 dirs, 0600 files)")
	fs.BoolVar(&cfg.Refresh, "refresh", false, "Refetch every source unconditionally")

	fs.StringVar(&cfg.OutputPath, "out", DefaultOutputPath, "Write the run as JSON here; empty disables")
	fs.StringVar(&cfg.ReportPath, "report", "", "Write a Markdown run report here")
	fs.StringVar(&cfg.ReportPDFPath, "report.pdf", "", "Write a PDF run report here")
	fs.StringVar(&cfg.DatabaseURL, "db", "", "Postgres connection URL (or DATABASE_URL)")
	fs.BoolVar(&cfg.Migrate, "migrate", false, "Create database tables before saving")
	fs.BoolVar(&cfg.KeepDuplicates, "keepDuplicates", false, "Keep repeated equivalencies")

	fs.BoolVar(&cfg.Verbose, "v", false, "Verbose logging")
}

// LoadConfig parses args and layers the sources: defaults, then the config
// file, then the environment (after dotenv files), then flags given on the
// command line.
func LoadConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	RegisterFlags(fs, &cfg)
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	explicit := map[string]string{}
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = f.Value.String() })

	if err := LoadEnvFiles(cfg.EnvFiles...); err != nil {
		return cfg, fmt.Errorf("env files: %w", err)
	}
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = envString("CONFIG")
	}
	if cfg.ConfigPath != "" {
		fc, err := LoadConfigFile(cfg.ConfigPath)
		if err != nil {
			return cfg, fmt.Errorf("config file: %w", err)
		}
		if err := ApplyFileConfig(&cfg, fc); err != nil {
			return cfg, fmt.Errorf("config file: %w", err)
		}
	}
	if err := ApplyEnvOverrides(&cfg); err != nil {
		return cfg, err
	}
	for name, value := range explicit {
		if err := fs.Set(name, value); err != nil {
			return cfg, fmt.Errorf("flag -%s: %w", name, err)
		}
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
