package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wardenhq/warden/internal/guard"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	cfgDir := filepath.Join(dir, ".warden")
	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(cfgDir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoader_ProjectOverridesGlobal(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	t.Setenv("HOME", home)

	writeConfig(t, home, `
version: "1"
settings:
  log_level: warn
`)
	writeConfig(t, project, `
settings:
  log_level: debug
`)

	loader, err := NewLoader(project)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := loader.Load()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Settings.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want project-level debug", cfg.Settings.LogLevel)
	}
	// Defaults survive merging when neither file sets them.
	if cfg.Settings.AgentDir != ".warden" {
		t.Errorf("AgentDir = %q, want default .warden", cfg.Settings.AgentDir)
	}
	if len(cfg.Hooks.PreToolUse) == 0 {
		t.Error("built-in PreToolUse matchers lost during merge")
	}
}

func TestLoader_MissingFilesFallBackToDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	loader, err := NewLoader(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := loader.Load()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Settings.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want default info", cfg.Settings.LogLevel)
	}
}

func TestLoader_InvalidYAML(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	project := t.TempDir()
	writeConfig(t, project, "settings: [not a map")

	loader, err := NewLoader(project)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := loader.Load(); err == nil {
		t.Error("Load accepted invalid YAML")
	}
}

func TestLoadFromFile_LayersOverDefaults(t *testing.T) {
	project := t.TempDir()
	path := writeConfig(t, project, `
settings:
  checkpoint:
    keep_count: 3
hooks:
  PreToolUse:
    - name: file-safety
      matcher: "^(Write|Edit)$"
      guards: [protected-file, tdd-strict]
`)

	loader, err := NewLoader(project)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := loader.LoadFromFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if got := cfg.Settings.Checkpoint.Keep(); got != 3 {
		t.Errorf("Keep() = %d, want 3", got)
	}
	// Source dir stays the default when the override omits it.
	if cfg.Settings.Checkpoint.SourceDir != "src" {
		t.Errorf("SourceDir = %q, want default src", cfg.Settings.Checkpoint.SourceDir)
	}
}

func TestLoader_ExplicitFalseOverridesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	project := t.TempDir()
	writeConfig(t, project, `
settings:
  audit:
    enabled: false
    store_enabled: false
  checkpoint:
    keep_count: 0
`)

	loader, err := NewLoader(project)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := loader.Load()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Settings.Audit.IsEnabled() {
		t.Error("audit enabled: false did not survive the merge")
	}
	if cfg.Settings.Audit.IsStoreEnabled() {
		t.Error("audit store_enabled: false did not survive the merge")
	}
	if got := cfg.Settings.Checkpoint.Keep(); got != 0 {
		t.Errorf("Keep() = %d, want configured 0", got)
	}
}

func TestLoader_AbsentAuditSectionKeepsDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	project := t.TempDir()
	writeConfig(t, project, `
settings:
  log_level: debug
`)

	loader, err := NewLoader(project)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := loader.Load()
	if err != nil {
		t.Fatal(err)
	}

	if !cfg.Settings.Audit.IsEnabled() || !cfg.Settings.Audit.IsStoreEnabled() {
		t.Error("omitting the audit section should keep the enabled defaults")
	}
	if got := cfg.Settings.Checkpoint.Keep(); got != 10 {
		t.Errorf("Keep() = %d, want default 10", got)
	}
}

func TestMergeAuditSettings_PartialOverride(t *testing.T) {
	base := DefaultConfig().Settings.Audit
	f := false
	merged := mergeAuditSettings(base, AuditSettings{StoreEnabled: &f})

	if !merged.IsEnabled() {
		t.Error("unset enabled should keep the base value")
	}
	if merged.IsStoreEnabled() {
		t.Error("store_enabled: false lost during merge")
	}
}

func TestMergeMatchers(t *testing.T) {
	base := []Matcher{
		{Name: "bash-safety", Pattern: "^Bash$", Guards: []guard.ID{guard.DangerousCommand}},
		{Name: "file-safety", Pattern: "^(Write|Edit)$", Guards: []guard.ID{guard.TDDLenient}},
	}
	override := []Matcher{
		{Name: "file-safety", Pattern: "^(Write|Edit)$", Guards: []guard.ID{guard.TDDStrict}},
		{Name: "extra", Pattern: "^WebFetch$", Guards: []guard.ID{guard.DangerousCommand}},
	}

	merged := mergeMatchers(base, override)

	if len(merged) != 3 {
		t.Fatalf("merged %d matchers, want 3", len(merged))
	}
	// Base order is preserved; same-name entries are replaced in place.
	if merged[0].Name != "bash-safety" {
		t.Errorf("merged[0] = %q, want bash-safety", merged[0].Name)
	}
	if merged[1].Name != "file-safety" || merged[1].Guards[0] != guard.TDDStrict {
		t.Errorf("merged[1] = %+v, want overridden file-safety with tdd-strict", merged[1])
	}
	if merged[2].Name != "extra" {
		t.Errorf("merged[2] = %q, want appended extra", merged[2].Name)
	}
}

func TestMergeMatchers_EmptySides(t *testing.T) {
	base := []Matcher{{Name: "a"}}
	if got := mergeMatchers(base, nil); len(got) != 1 {
		t.Errorf("merge with empty override returned %d matchers, want 1", len(got))
	}
	if got := mergeMatchers(nil, base); len(got) != 1 {
		t.Errorf("merge with empty base returned %d matchers, want 1", len(got))
	}
}
