package app

import (
	"os"
	"path/filepath"
	"testing"
)

// LoadEnvFiles reads KEY=VALUE pairs and populates os.Environ.
func TestLoadEnvFiles_LoadsKeyValues(t *testing.T) {
	t.Setenv("FOO", "")
	t.Setenv("BAR", "")

	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "\n# sample dotenv file\nFOO=alpha\nBAR=\"beta gamma\"\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}

	if err := LoadEnvFiles(envPath); err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}
	if got := os.Getenv("FOO"); got != "alpha" {
		t.Fatalf("FOO=%q, want alpha", got)
	}
	if got := os.Getenv("BAR"); got != "beta gamma" {
		t.Fatalf("BAR=%q, want beta gamma", got)
	}
}

// Later files override earlier ones when loading multiple dotenv files.
func TestLoadEnvFiles_OverrideOrder(t *testing.T) {
	t.Setenv("K", "")
	dir := t.TempDir()
	a := filepath.Join(dir, ".env.a")
	b := filepath.Join(dir, ".env.b")
	if err := os.WriteFile(a, []byte("K=first\n"), 0o600); err != nil {
		t.Fatalf("write a: %v", err)
	}
	if err := os.WriteFile(b, []byte("K=second\n"), 0o600); err != nil {
		t.Fatalf("write b: %v", err)
	}

	if err := LoadEnvFiles(a, b); err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}
	if got := os.Getenv("K"); got != "second" {
		t.Fatalf("override order failed: got %q, want second", got)
	}
}

func TestLoadEnvFiles_MissingIsSkipped(t *testing.T) {
	if err := LoadEnvFiles(filepath.Join(t.TempDir(), "nope.env"), ""); err != nil {
		t.Fatalf("missing file should be skipped: %v", err)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db.example/transfer")
	t.Setenv("TRANSFERINDEX_DATABASE_URL", "")
	t.Setenv("TRANSFERINDEX_CACHE_DIR", "/tmp/transferindex-cache")
	t.Setenv("TRANSFERINDEX_CACHE_MAX_AGE", "36h")
	t.Setenv("TRANSFERINDEX_CONCURRENCY", "2")
	t.Setenv("TRANSFERINDEX_INST", "gmu, vt")
	t.Setenv("TRANSFERINDEX_REFRESH", "yes")
	t.Setenv("TRANSFERINDEX_VERBOSE", "off")
	t.Setenv("TRANSFERINDEX_SOURCE_W_M", "http://mirror.example/wm.pdf")

	cfg := Config{Verbose: true}
	if err := ApplyEnvOverrides(&cfg); err != nil {
		t.Fatalf("ApplyEnvOverrides: %v", err)
	}
	if cfg.DatabaseURL != "postgres://db.example/transfer" {
		t.Fatalf("DatabaseURL=%q", cfg.DatabaseURL)
	}
	if cfg.CacheDir != "/tmp/transferindex-cache" || cfg.CacheMaxAge.Hours() != 36 {
		t.Fatalf("cache settings: %q %s", cfg.CacheDir, cfg.CacheMaxAge)
	}
	if cfg.Concurrency != 2 {
		t.Fatalf("Concurrency=%d", cfg.Concurrency)
	}
	if len(cfg.Institutions) != 2 || cfg.Institutions[0] != "gmu" || cfg.Institutions[1] != "vt" {
		t.Fatalf("Institutions=%q", cfg.Institutions)
	}
	if !cfg.Refresh || cfg.Verbose {
		t.Fatalf("booleans: refresh=%v verbose=%v", cfg.Refresh, cfg.Verbose)
	}
	if got := cfg.Sources["W&M"]; got != "http://mirror.example/wm.pdf" {
		t.Fatalf("W&M source=%q", got)
	}
}

func TestApplyEnvOverrides_Malformed(t *testing.T) {
	t.Setenv("TRANSFERINDEX_CONCURRENCY", "many")
	var cfg Config
	if err := ApplyEnvOverrides(&cfg); err == nil {
		t.Fatal("want error for non-numeric concurrency")
	}

	t.Setenv("TRANSFERINDEX_CONCURRENCY", "")
	t.Setenv("TRANSFERINDEX_TIMEOUT", "soon")
	if err := ApplyEnvOverrides(&cfg); err == nil {
		t.Fatal("want error for bad duration")
	}
}

func TestSourceEnvKey(t *testing.T) {
	cases := map[string]string{
		"W&M": "TRANSFERINDEX_SOURCE_W_M",
		"gmu": "TRANSFERINDEX_SOURCE_GMU",
	}
	for in, want := range cases {
		if got := SourceEnvKey(in); got != want {
			t.Fatalf("SourceEnvKey(%q)=%q, want %q", in, got, want)
		}
	}
}
