// Package guard implements the policy predicates the engine runs against
// tool-use events. Guards are identified by a closed set of IDs resolved to
// functions when the engine is built; an unknown ID in config is a
// validation error, never a silent no-op.
package guard

import (
	"fmt"

	"github.com/wardenhq/warden/internal/audit"
	"github.com/wardenhq/warden/internal/hooks"
)

// ID names one guard in the catalogue.
type ID string

// The guard catalogue. Config references guards by these names.
const (
	DangerousCommand ID = "dangerous-command"
	ProtectedFile    ID = "protected-file"
	ForcePush        ID = "force-push"
	TDDStrict        ID = "tdd-strict"
	TDDLenient       ID = "tdd-lenient"
	AuditToolUsage   ID = "audit-tool-usage"
	AuditFileChange  ID = "audit-file-change"
	SessionBoundary  ID = "session-boundary"
)

// Func is one policy predicate. It may read the filesystem and append audit
// records, but it must not re-invoke the engine. A nil return means continue.
type Func func(ctx *hooks.Context, ev *hooks.Event) *hooks.Result

// Registry resolves guard IDs to functions. Audit-backed guards capture the
// recorder at build time so evaluation needs no shared globals.
type Registry struct {
	recorder *audit.Recorder
}

// NewRegistry returns a Registry whose audit guards write through rec.
func NewRegistry(rec *audit.Recorder) *Registry {
	return &Registry{recorder: rec}
}

// Resolve maps an ID to its function. Called once while building the engine,
// so config errors surface before any event is evaluated.
func (r *Registry) Resolve(id ID) (Func, error) {
	switch id {
	case DangerousCommand:
		return CheckDangerousCommand, nil
	case ProtectedFile:
		return CheckProtectedFile, nil
	case ForcePush:
		return CheckForcePush, nil
	case TDDStrict:
		return checkTDD(true), nil
	case TDDLenient:
		return checkTDD(false), nil
	case AuditToolUsage:
		return auditToolUsage(r.recorder), nil
	case AuditFileChange:
		return auditFileChange(r.recorder), nil
	case SessionBoundary:
		return sessionBoundary(r.recorder), nil
	default:
		return nil, fmt.Errorf("unknown guard id: %s", id)
	}
}

// stringField pulls a string out of a tool input map, tolerating absence.
func stringField(input map[string]any, key string) string {
	if input == nil {
		return ""
	}
	if v, ok := input[key].(string); ok {
		return v
	}
	return ""
}
