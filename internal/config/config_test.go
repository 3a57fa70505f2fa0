package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestLoad_DefaultWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	def := DefaultConfig()
	if cfg.ProjectsDir != def.ProjectsDir || cfg.IdeasFile != def.IdeasFile {
		t.Fatalf("paths = %q/%q, want defaults", cfg.ProjectsDir, cfg.IdeasFile)
	}
	if cfg.Model != "gpt-4o-mini" || cfg.TimeoutSeconds != 120 {
		t.Fatalf("Model/Timeout = %q/%d", cfg.Model, cfg.TimeoutSeconds)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `{"model": "gpt-4o", "timeout_seconds": 30, "projects_dir": "/srv/projects"}`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Model != "gpt-4o" {
		t.Errorf("Model = %q, want gpt-4o", cfg.Model)
	}
	if cfg.Timeout() != 30*time.Second {
		t.Errorf("Timeout() = %v, want 30s", cfg.Timeout())
	}
	if got := cfg.ProjectsPath(tmpDir); got != "/srv/projects" {
		t.Errorf("ProjectsPath() = %q, want absolute override", got)
	}
	if got := cfg.IdeasPath(tmpDir); got != filepath.Join(tmpDir, "ideas.json") {
		t.Errorf("IdeasPath() = %q", got)
	}
}

func TestLoad_AcceptsCommentsAndTrailingCommas(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `{
	// run at 07:30
	"schedule": "30 7 * * *",
	"blacklist": ["crypto", "nft",],
	/* keep the rest default */
}`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Schedule != "30 7 * * *" {
		t.Errorf("Schedule = %q", cfg.Schedule)
	}
	if len(cfg.Blacklist) != 2 || cfg.Blacklist[1] != "nft" {
		t.Errorf("Blacklist = %v", cfg.Blacklist)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `{not json}`)

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestLoad_DisabledTools(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `{"disabled_tools": ["changeset_apply", " idea_list "]}`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.DisabledTools) != 2 {
		t.Fatalf("DisabledTools length = %d, want 2", len(cfg.DisabledTools))
	}
	if cfg.DisabledTools[0] != "changeset_apply" || cfg.DisabledTools[1] != "idea_list" {
		t.Errorf("DisabledTools = %v", cfg.DisabledTools)
	}
}

func TestMerge_ScalarOverride(t *testing.T) {
	base := &Config{Model: "a", TimeoutSeconds: 60, LogLevel: "info"}
	overlay := &Config{Model: "b", LogLevel: "  "}

	result := Merge(base, overlay)

	if result.Model != "b" {
		t.Errorf("Model = %q, want overlay", result.Model)
	}
	if result.TimeoutSeconds != 60 {
		t.Errorf("TimeoutSeconds = %d, want base (overlay is zero)", result.TimeoutSeconds)
	}
	if result.LogLevel != "info" {
		t.Errorf("LogLevel = %q, blank overlay must not win", result.LogLevel)
	}
}

func TestMerge_ArrayMergeDedup(t *testing.T) {
	base := &Config{Blacklist: []string{"crypto", "nft"}}
	overlay := &Config{Blacklist: []string{"nft", "dating", ""}}

	result := Merge(base, overlay)

	want := []string{"crypto", "nft", "dating"}
	if len(result.Blacklist) != len(want) {
		t.Fatalf("Blacklist = %v, want %v", result.Blacklist, want)
	}
	for i := range want {
		if result.Blacklist[i] != want[i] {
			t.Errorf("Blacklist[%d] = %q, want %q", i, result.Blacklist[i], want[i])
		}
	}
	if Merge(&Config{}, &Config{}).DisabledTools != nil {
		t.Error("empty merge should leave DisabledTools nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"every minute", func(c *Config) { c.Schedule = "* * * * *" }, false},
		{"empty schedule", func(c *Config) { c.Schedule = "" }, false},
		{"seconds field rejected", func(c *Config) { c.Schedule = "0 0 6 * * *" }, true},
		{"garbage schedule", func(c *Config) { c.Schedule = "daily" }, true},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"json format", func(c *Config) { c.LogFormat = "json" }, false},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, true},
		{"negative timeout", func(c *Config) { c.TimeoutSeconds = -1 }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestLoadEnv(t *testing.T) {
	tmpDir := t.TempDir()

	if err := LoadEnv(tmpDir); err != nil {
		t.Fatalf("LoadEnv() without .env error = %v", err)
	}

	t.Setenv(APIKeyEnv, "")
	os.Unsetenv(APIKeyEnv)
	if err := os.WriteFile(filepath.Join(tmpDir, ".env"), []byte("OPENAI_API_KEY=sk-from-file\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := LoadEnv(tmpDir); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}
	if got := APIKey(); got != "sk-from-file" {
		t.Errorf("APIKey() = %q, want value from .env", got)
	}
}

func TestLoadEnv_DoesNotOverrideEnvironment(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv(APIKeyEnv, "sk-from-env")
	if err := os.WriteFile(filepath.Join(tmpDir, ".env"), []byte("OPENAI_API_KEY=sk-from-file\n"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := LoadEnv(tmpDir); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}
	if got := APIKey(); got != "sk-from-env" {
		t.Errorf("APIKey() = %q, environment must win", got)
	}
}

func TestLedgerPath(t *testing.T) {
	if got := LedgerPath("/work"); got != filepath.Join("/work", LedgerFile) {
		t.Errorf("LedgerPath() = %q", got)
	}
}
