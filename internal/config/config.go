package config

import (
	"github.com/wardenhq/warden/internal/guard"
	"github.com/wardenhq/warden/internal/hooks"
)

// Config is the complete warden configuration.
type Config struct {
	Version   string      `yaml:"version"`
	Settings  Settings    `yaml:"settings"`
	Hooks     Hooks       `yaml:"hooks"`
	Allowlist []AllowRule `yaml:"allowlist,omitempty"`
}

// Settings contains global configuration settings.
type Settings struct {
	LogLevel   string             `yaml:"log_level"`
	LogFile    string             `yaml:"log_file,omitempty"`
	AgentDir   string             `yaml:"agent_dir,omitempty"` // relative to project root
	Audit      AuditSettings      `yaml:"audit"`
	Checkpoint CheckpointSettings `yaml:"checkpoint"`
}

// AuditSettings controls the audit sinks and the decision store. The fields
// are pointers so an explicit `enabled: false` in a config file is
// distinguishable from the field being absent when layers merge.
type AuditSettings struct {
	Enabled      *bool `yaml:"enabled,omitempty"`
	StoreEnabled *bool `yaml:"store_enabled,omitempty"`
}

// IsEnabled reports whether the JSONL audit sinks should write.
func (a AuditSettings) IsEnabled() bool {
	return a.Enabled != nil && *a.Enabled
}

// IsStoreEnabled reports whether decisions should also land in the SQLite
// decision store.
func (a AuditSettings) IsStoreEnabled() bool {
	return a.StoreEnabled != nil && *a.StoreEnabled
}

// CheckpointSettings controls which part of the project tree is snapshotted.
// KeepCount is a pointer for the same reason as AuditSettings: keep_count: 0
// is a legal retention setting and must survive the merge.
type CheckpointSettings struct {
	SourceDir   string   `yaml:"source_dir"`
	ConfigFiles []string `yaml:"config_files"`
	KeepCount   *int     `yaml:"keep_count,omitempty"`
}

// Keep returns the checkpoint retention count, falling back to the built-in
// default when unset.
func (c CheckpointSettings) Keep() int {
	if c.KeepCount == nil {
		return 10
	}
	return *c.KeepCount
}

// Hooks holds the ordered matcher lists per event type.
type Hooks struct {
	PreToolUse         []Matcher `yaml:"PreToolUse,omitempty"`
	PostToolUse        []Matcher `yaml:"PostToolUse,omitempty"`
	PostToolUseFailure []Matcher `yaml:"PostToolUseFailure,omitempty"`
	UserPromptSubmit   []Matcher `yaml:"UserPromptSubmit,omitempty"`
	Stop               []Matcher `yaml:"Stop,omitempty"`
	SubagentStop       []Matcher `yaml:"SubagentStop,omitempty"`
	PreCompact         []Matcher `yaml:"PreCompact,omitempty"`
	SessionStart       []Matcher `yaml:"SessionStart,omitempty"`
	SessionEnd         []Matcher `yaml:"SessionEnd,omitempty"`
}

// ForEvent returns the matchers registered for an event type, in declared
// order.
func (h *Hooks) ForEvent(event hooks.EventType) []Matcher {
	switch event {
	case hooks.PreToolUse:
		return h.PreToolUse
	case hooks.PostToolUse:
		return h.PostToolUse
	case hooks.PostToolUseFailure:
		return h.PostToolUseFailure
	case hooks.UserPromptSubmit:
		return h.UserPromptSubmit
	case hooks.Stop:
		return h.Stop
	case hooks.SubagentStop:
		return h.SubagentStop
	case hooks.PreCompact:
		return h.PreCompact
	case hooks.SessionStart:
		return h.SessionStart
	case hooks.SessionEnd:
		return h.SessionEnd
	default:
		return nil
	}
}

// Matcher scopes an ordered guard list to tools whose name matches Pattern.
// An empty pattern matches every tool; for non-tool events the pattern is
// ignored and the guards always run.
type Matcher struct {
	Name    string     `yaml:"name"`
	Pattern string     `yaml:"matcher,omitempty"`
	Guards  []guard.ID `yaml:"guards"`
}

// AllowRule short-circuits evaluation with an allow when the tool name, and
// optionally its input fields, match. Checked before any guard runs.
type AllowRule struct {
	Name          string              `yaml:"name"`
	Pattern       string              `yaml:"matcher"`
	InputPatterns map[string][]string `yaml:"input_patterns,omitempty"`
}

func boolPtr(v bool) *bool { return &v }
func intPtr(v int) *int    { return &v }

// DefaultConfig returns the built-in policy. Projects layer their own
// matchers on top via .warden/config.yaml.
func DefaultConfig() *Config {
	return &Config{
		Version: "1",
		Settings: Settings{
			LogLevel: "info",
			AgentDir: ".warden",
			Audit: AuditSettings{
				Enabled:      boolPtr(true),
				StoreEnabled: boolPtr(true),
			},
			Checkpoint: CheckpointSettings{
				SourceDir: "src",
				ConfigFiles: []string{
					"package.json", "tsconfig.json", "go.mod", "go.sum",
					"pyproject.toml", "Cargo.toml", "Makefile",
				},
				KeepCount: intPtr(10),
			},
		},
		Hooks: Hooks{
			PreToolUse: []Matcher{
				{
					Name:    "bash-safety",
					Pattern: "^Bash$",
					Guards:  []guard.ID{guard.DangerousCommand, guard.ForcePush},
				},
				{
					Name:    "file-safety",
					Pattern: "^(Write|Edit)$",
					Guards:  []guard.ID{guard.ProtectedFile, guard.TDDLenient},
				},
			},
			PostToolUse: []Matcher{
				{
					Name:   "audit",
					Guards: []guard.ID{guard.AuditToolUsage, guard.AuditFileChange},
				},
			},
			PostToolUseFailure: []Matcher{
				{
					Name:   "audit",
					Guards: []guard.ID{guard.AuditToolUsage},
				},
			},
			SessionStart: []Matcher{
				{Name: "session-log", Guards: []guard.ID{guard.SessionBoundary}},
			},
			SessionEnd: []Matcher{
				{Name: "session-log", Guards: []guard.ID{guard.SessionBoundary}},
			},
		},
	}
}
