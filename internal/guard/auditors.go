package guard

import (
	"encoding/json"

	"github.com/wardenhq/warden/internal/audit"
	"github.com/wardenhq/warden/internal/hooks"
	"github.com/wardenhq/warden/internal/logger"
)

// auditToolUsage appends one JSON line per PostToolUse event. Never denies;
// a sink failure is the recorder's problem, not the tool call's.
func auditToolUsage(rec *audit.Recorder) Func {
	return func(ctx *hooks.Context, ev *hooks.Event) *hooks.Result {
		if rec == nil {
			return hooks.Continue()
		}
		if ev.Type != hooks.PostToolUse && ev.Type != hooks.PostToolUseFailure {
			return hooks.Continue()
		}

		var details json.RawMessage
		if ev.ToolInput != nil {
			if data, err := json.Marshal(ev.ToolInput); err == nil {
				details = data
			} else {
				logger.Debug().Err(err).Msg("Failed to serialize tool input for audit")
			}
		}

		rec.ToolUsage(audit.Entry{
			Timestamp: ev.Timestamp,
			SessionID: ev.SessionID,
			Event:     string(ev.Type),
			Tool:      ev.ToolName,
			Action:    "observed",
			Details:   details,
		})
		return hooks.Continue()
	}
}

// auditFileChange appends a human-readable line for Write/Edit completions.
func auditFileChange(rec *audit.Recorder) Func {
	return func(ctx *hooks.Context, ev *hooks.Event) *hooks.Result {
		if rec == nil {
			return hooks.Continue()
		}
		if ev.Type != hooks.PostToolUse {
			return hooks.Continue()
		}
		if ev.ToolName != "Write" && ev.ToolName != "Edit" {
			return hooks.Continue()
		}

		path := stringField(ev.ToolInput, "file_path")
		if path == "" {
			return hooks.Continue()
		}

		rec.FileChange(ev.SessionID, ev.ToolName, path)
		return hooks.Continue()
	}
}

// sessionBoundary appends start/end markers to the session log.
func sessionBoundary(rec *audit.Recorder) Func {
	return func(ctx *hooks.Context, ev *hooks.Event) *hooks.Result {
		if rec == nil {
			return hooks.Continue()
		}

		switch ev.Type {
		case hooks.SessionStart:
			marker := "session started"
			if ev.Source != "" {
				marker += " (" + ev.Source + ")"
			}
			rec.SessionMarker(ev.SessionID, marker)
		case hooks.SessionEnd:
			marker := "session ended"
			if ev.Reason != "" {
				marker += " (" + ev.Reason + ")"
			}
			rec.SessionMarker(ev.SessionID, marker)
		}
		return hooks.Continue()
	}
}
