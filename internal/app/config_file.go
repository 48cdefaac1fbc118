package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/transferindex/internal/extract"
)

// FileConfig represents the single-file configuration schema. Durations are
// strings such as "24h" in every format.
type FileConfig struct {
	Institutions []string          `yaml:"institutions" json:"institutions" toml:"institutions"`
	Sources      map[string]string `yaml:"sources" json:"sources" toml:"sources"`
	UserAgent    string            `yaml:"userAgent" json:"userAgent" toml:"userAgent"`
	Timeout      string            `yaml:"timeout" json:"timeout" toml:"timeout"`
	Concurrency  int               `yaml:"concurrency" json:"concurrency" toml:"concurrency"`
	Verbose      bool              `yaml:"verbose" json:"verbose" toml:"verbose"`

	Robots struct {
		Ignore bool `yaml:"ignore" json:"ignore" toml:"ignore"`
	} `yaml:"robots" json:"robots" toml:"robots"`

	Cache struct {
		Dir         string `yaml:"dir" json:"dir" toml:"dir"`
		MaxAge      string `yaml:"maxAge" json:"maxAge" toml:"maxAge"`
		PurgeAfter  string `yaml:"purgeAfter" json:"purgeAfter" toml:"purgeAfter"`
		Clear       bool   `yaml:"clear" json:"clear" toml:"clear"`
		Only        bool   `yaml:"only" json:"only" toml:"only"`
		StrictPerms bool   `yaml:"strictPerms" json:"strictPerms" toml:"strictPerms"`
		Refresh     bool   `yaml:"refresh" json:"refresh" toml:"refresh"`
	} `yaml:"cache" json:"cache" toml:"cache"`

	Output struct {
		JSON           string `yaml:"json" json:"json" toml:"json"`
		Report         string `yaml:"report" json:"report" toml:"report"`
		ReportPDF      string `yaml:"reportPDF" json:"reportPDF" toml:"reportPDF"`
		KeepDuplicates bool   `yaml:"keepDuplicates" json:"keepDuplicates" toml:"keepDuplicates"`
	} `yaml:"output" json:"output" toml:"output"`

	Database struct {
		URL     string `yaml:"url" json:"url" toml:"url"`
		Migrate bool   `yaml:"migrate" json:"migrate" toml:"migrate"`
	} `yaml:"database" json:"database" toml:"database"`
}

// LoadConfigFile reads YAML, JSON or TOML into FileConfig, chosen by the
// file extension.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse toml: %w", err)
		}
	default:
		return fc, fmt.Errorf("unsupported config extension %q", ext)
	}
	return fc, nil
}

// ApplyFileConfig overlays the values set in fc onto cfg. Flags given on the
// command line are re-applied afterwards by LoadConfig.
func ApplyFileConfig(cfg *Config, fc FileConfig) error {
	if cfg == nil {
		return nil
	}
	if len(fc.Institutions) > 0 {
		cfg.Institutions = append([]string{}, fc.Institutions...)
	}
	for k, u := range fc.Sources {
		if cfg.Sources == nil {
			cfg.Sources = map[string]string{}
		}
		cfg.Sources[k] = u
	}
	if fc.UserAgent != "" {
		cfg.UserAgent = fc.UserAgent
	}
	if fc.Concurrency != 0 {
		cfg.Concurrency = fc.Concurrency
	}
	if fc.Verbose {
		cfg.Verbose = true
	}
	cfg.IgnoreRobots = cfg.IgnoreRobots || fc.Robots.Ignore

	durations := []struct {
		dst  *time.Duration
		raw  string
		name string
	}{
		{&cfg.Timeout, fc.Timeout, "timeout"},
		{&cfg.CacheMaxAge, fc.Cache.MaxAge, "cache.maxAge"},
		{&cfg.CachePurgeAfter, fc.Cache.PurgeAfter, "cache.purgeAfter"},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = v
	}

	if fc.Cache.Dir != "" {
		cfg.CacheDir = fc.Cache.Dir
	}
	cfg.CacheClear = cfg.CacheClear || fc.Cache.Clear
	cfg.CacheOnly = cfg.CacheOnly || fc.Cache.Only
	cfg.CacheStrictPerms = cfg.CacheStrictPerms || fc.Cache.StrictPerms
	cfg.Refresh = cfg.Refresh || fc.Cache.Refresh

	if fc.Output.JSON != "" {
		cfg.OutputPath = fc.Output.JSON
	}
	if fc.Output.Report != "" {
		cfg.ReportPath = fc.Output.Report
	}
	if fc.Output.ReportPDF != "" {
		cfg.ReportPDFPath = fc.Output.ReportPDF
	}
	cfg.KeepDuplicates = cfg.KeepDuplicates || fc.Output.KeepDuplicates

	if fc.Database.URL != "" {
		cfg.DatabaseURL = fc.Database.URL
	}
	cfg.Migrate = cfg.Migrate || fc.Database.Migrate
	return nil
}

// ValidateConfig checks cross-field constraints and canonicalizes the
// acronyms in Institutions and Sources.
func ValidateConfig(cfg *Config) error {
	if cfg.Concurrency < 0 {
		return errors.New("config: concurrency must not be negative")
	}
	if cfg.Timeout < 0 || cfg.CacheMaxAge < 0 || cfg.CachePurgeAfter < 0 {
		return errors.New("config: durations must not be negative")
	}
	if cfg.CacheOnly && cfg.Refresh {
		return errors.New("config: cache.only and refresh are mutually exclusive")
	}
	if (cfg.CacheOnly || cfg.CacheMaxAge > 0) && strings.TrimSpace(cfg.CacheDir) == "" {
		return errors.New("config: cache.only and cache.maxAge need cache.dir")
	}
	if cfg.Migrate && cfg.DatabaseURL == "" {
		return errors.New("config: migrate needs a database URL (-db or DATABASE_URL)")
	}
	if cfg.OutputPath == "" && cfg.ReportPath == "" && cfg.ReportPDFPath == "" && cfg.DatabaseURL == "" {
		return errors.New("config: no output configured (-out, -report, -report.pdf or -db)")
	}

	known := map[string]string{}
	for _, inst := range extract.Institutions() {
		known[strings.ToUpper(inst.Acronym)] = inst.Acronym
	}
	for i, a := range cfg.Institutions {
		canon, ok := known[strings.ToUpper(strings.TrimSpace(a))]
		if !ok {
			return fmt.Errorf("config: unknown institution %q", a)
		}
		cfg.Institutions[i] = canon
	}
	if len(cfg.Sources) > 0 {
		sources := make(map[string]string, len(cfg.Sources))
		for a, u := range cfg.Sources {
			canon, ok := known[strings.ToUpper(strings.TrimSpace(a))]
			if !ok {
				return fmt.Errorf("config: source override for unknown institution %q", a)
			}
			sources[canon] = u
		}
		cfg.Sources = sources
	}
	return nil
}
