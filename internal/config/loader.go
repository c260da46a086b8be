package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	globalConfigDir  = ".warden"
	projectConfigDir = ".warden"
	configFileName   = "config.yaml"
)

// Loader loads and merges configuration files. Precedence: built-in defaults,
// then the global file, then the project file.
type Loader struct {
	globalPath  string
	projectPath string
}

// NewLoader creates a loader for the given project directory. An empty
// projectDir means the current working directory.
func NewLoader(projectDir string) (*Loader, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	if projectDir == "" {
		projectDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
	}

	return &Loader{
		globalPath:  filepath.Join(homeDir, globalConfigDir, configFileName),
		projectPath: filepath.Join(projectDir, projectConfigDir, configFileName),
	}, nil
}

// Load merges defaults, global config, and project config.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	globalCfg, err := l.loadFile(l.globalPath)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load global config: %w", err)
	}
	if globalCfg != nil {
		cfg = mergeConfigs(cfg, globalCfg)
	}

	projectCfg, err := l.loadFile(l.projectPath)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load project config: %w", err)
	}
	if projectCfg != nil {
		cfg = mergeConfigs(cfg, projectCfg)
	}

	return cfg, nil
}

// LoadFromFile loads configuration from one specific file, layered over the
// defaults only.
func (l *Loader) LoadFromFile(path string) (*Config, error) {
	cfg, err := l.loadFile(path)
	if err != nil {
		return nil, err
	}
	return mergeConfigs(DefaultConfig(), cfg), nil
}

func (l *Loader) loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return &cfg, nil
}

// GlobalConfigPath returns the path to the global config file.
func (l *Loader) GlobalConfigPath() string {
	return l.globalPath
}

// ProjectConfigPath returns the path to the project config file.
func (l *Loader) ProjectConfigPath() string {
	return l.projectPath
}

// mergeConfigs merges two configurations with override taking precedence.
func mergeConfigs(base, override *Config) *Config {
	result := &Config{
		Version: coalesce(override.Version, base.Version),
		Settings: Settings{
			LogLevel:   coalesce(override.Settings.LogLevel, base.Settings.LogLevel),
			LogFile:    coalesce(override.Settings.LogFile, base.Settings.LogFile),
			AgentDir:   coalesce(override.Settings.AgentDir, base.Settings.AgentDir),
			Audit:      mergeAuditSettings(base.Settings.Audit, override.Settings.Audit),
			Checkpoint: mergeCheckpointSettings(base.Settings.Checkpoint, override.Settings.Checkpoint),
		},
		Hooks: Hooks{
			PreToolUse:         mergeMatchers(base.Hooks.PreToolUse, override.Hooks.PreToolUse),
			PostToolUse:        mergeMatchers(base.Hooks.PostToolUse, override.Hooks.PostToolUse),
			PostToolUseFailure: mergeMatchers(base.Hooks.PostToolUseFailure, override.Hooks.PostToolUseFailure),
			UserPromptSubmit:   mergeMatchers(base.Hooks.UserPromptSubmit, override.Hooks.UserPromptSubmit),
			Stop:               mergeMatchers(base.Hooks.Stop, override.Hooks.Stop),
			SubagentStop:       mergeMatchers(base.Hooks.SubagentStop, override.Hooks.SubagentStop),
			PreCompact:         mergeMatchers(base.Hooks.PreCompact, override.Hooks.PreCompact),
			SessionStart:       mergeMatchers(base.Hooks.SessionStart, override.Hooks.SessionStart),
			SessionEnd:         mergeMatchers(base.Hooks.SessionEnd, override.Hooks.SessionEnd),
		},
		Allowlist: mergeAllowRules(base.Allowlist, override.Allowlist),
	}

	return result
}

func mergeAuditSettings(base, override AuditSettings) AuditSettings {
	// Nil means the field was absent from the file. An explicit false must
	// win over an enabled default.
	result := base
	if override.Enabled != nil {
		result.Enabled = override.Enabled
	}
	if override.StoreEnabled != nil {
		result.StoreEnabled = override.StoreEnabled
	}
	return result
}

func mergeCheckpointSettings(base, override CheckpointSettings) CheckpointSettings {
	result := base
	if override.SourceDir != "" {
		result.SourceDir = override.SourceDir
	}
	if len(override.ConfigFiles) > 0 {
		result.ConfigFiles = override.ConfigFiles
	}
	if override.KeepCount != nil {
		result.KeepCount = override.KeepCount
	}
	return result
}

// mergeMatchers replaces same-name matchers in place and appends new ones,
// preserving the base declaration order. Evaluation order is load-bearing.
func mergeMatchers(base, override []Matcher) []Matcher {
	if len(override) == 0 {
		return base
	}
	if len(base) == 0 {
		return override
	}

	overrideByName := make(map[string]Matcher, len(override))
	for _, m := range override {
		overrideByName[m.Name] = m
	}

	result := make([]Matcher, 0, len(base)+len(override))
	seen := make(map[string]bool, len(base))
	for _, m := range base {
		if o, ok := overrideByName[m.Name]; ok {
			result = append(result, o)
		} else {
			result = append(result, m)
		}
		seen[m.Name] = true
	}
	for _, m := range override {
		if !seen[m.Name] {
			result = append(result, m)
		}
	}

	return result
}

func mergeAllowRules(base, override []AllowRule) []AllowRule {
	if len(override) == 0 {
		return base
	}
	if len(base) == 0 {
		return override
	}

	overrideByName := make(map[string]AllowRule, len(override))
	for _, r := range override {
		overrideByName[r.Name] = r
	}

	result := make([]AllowRule, 0, len(base)+len(override))
	seen := make(map[string]bool, len(base))
	for _, r := range base {
		if o, ok := overrideByName[r.Name]; ok {
			result = append(result, o)
		} else {
			result = append(result, r)
		}
		seen[r.Name] = true
	}
	for _, r := range override {
		if !seen[r.Name] {
			result = append(result, r)
		}
	}

	return result
}

func coalesce(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// Exists reports whether a config file exists at the given path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
