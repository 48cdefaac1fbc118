package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hyperifyio/transferindex/internal/extract"
)

// EnvPrefix starts every environment variable the application reads, except
// DATABASE_URL.
const EnvPrefix = "TRANSFERINDEX_"

func envString(key string) string { return strings.TrimSpace(os.Getenv(EnvPrefix + key)) }

// SourceEnvKey is the variable overriding an institution's source URL, for
// example TRANSFERINDEX_SOURCE_W_M for "W&M".
func SourceEnvKey(acronym string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(acronym) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return EnvPrefix + "SOURCE_" + b.String()
}

// ApplyEnvOverrides overrides cfg fields with environment variables that are
// set. Malformed numbers and durations are errors.
func ApplyEnvOverrides(cfg *Config) error {
	if cfg == nil {
		return nil
	}
	setString := func(dst *string, key string) {
		if v := envString(key); v != "" {
			*dst = v
		}
	}
	setString(&cfg.UserAgent, "USER_AGENT")
	setString(&cfg.CacheDir, "CACHE_DIR")
	setString(&cfg.OutputPath, "OUT")
	setString(&cfg.ReportPath, "REPORT")
	setString(&cfg.ReportPDFPath, "REPORT_PDF")
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.DatabaseURL = v
	}
	setString(&cfg.DatabaseURL, "DATABASE_URL")

	if v := envString("INST"); v != "" {
		cfg.Institutions = splitList(v)
	}
	for _, inst := range extract.Institutions() {
		if v := strings.TrimSpace(os.Getenv(SourceEnvKey(inst.Acronym))); v != "" {
			if cfg.Sources == nil {
				cfg.Sources = map[string]string{}
			}
			cfg.Sources[inst.Acronym] = v
		}
	}

	if v := envString("CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sCONCURRENCY: %w", EnvPrefix, err)
		}
		cfg.Concurrency = n
	}

	setDuration := func(dst *time.Duration, key string) error {
		v := envString(key)
		if v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = d
		return nil
	}
	if err := setDuration(&cfg.Timeout, "TIMEOUT"); err != nil {
		return err
	}
	if err := setDuration(&cfg.CacheMaxAge, "CACHE_MAX_AGE"); err != nil {
		return err
	}
	if err := setDuration(&cfg.CachePurgeAfter, "CACHE_PURGE_AFTER"); err != nil {
		return err
	}

	// Booleans override when env present and truthy/falsey
	setBool := func(dst *bool, key string) {
		switch strings.ToLower(envString(key)) {
		case "1", "true", "yes", "on":
			*dst = true
		case "0", "false", "no", "off":
			*dst = false
		}
	}
	setBool(&cfg.CacheClear, "CACHE_CLEAR")
	setBool(&cfg.CacheOnly, "CACHE_ONLY")
	setBool(&cfg.CacheStrictPerms, "CACHE_STRICT_PERMS")
	setBool(&cfg.Refresh, "REFRESH")
	setBool(&cfg.IgnoreRobots, "ROBOTS_IGNORE")
	setBool(&cfg.Migrate, "MIGRATE")
	setBool(&cfg.KeepDuplicates, "KEEP_DUPLICATES")
	setBool(&cfg.Verbose, "VERBOSE")
	return nil
}
