package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wardenhq/warden/internal/logger"
)

// File names under the agent directory. All three are append-only; consumers
// must never rewrite them in place.
const (
	toolUsageLog  = "audit_log.jsonl"
	fileChangeLog = "file_changes.log"
	sessionLog    = "sessions.log"
)

// Recorder writes audit records under one agent directory. Every write
// failure is logged at debug level and swallowed: auditing faults must never
// block legitimate work.
type Recorder struct {
	agentDir string
	store    *Store // optional queryable mirror, may be nil
}

// NewRecorder returns a Recorder rooted at agentDir.
func NewRecorder(agentDir string) *Recorder {
	return &Recorder{agentDir: agentDir}
}

// WithStore attaches a decision store that mirrors tool-usage entries.
func (r *Recorder) WithStore(store *Store) *Recorder {
	r.store = store
	return r
}

// ToolUsage appends one JSON line to audit_log.jsonl.
func (r *Recorder) ToolUsage(e Entry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	line, err := json.Marshal(e)
	if err != nil {
		logger.Debug().Err(err).Msg("Failed to marshal audit entry")
		return
	}
	r.appendLine(toolUsageLog, string(line))
}

// FileChange appends one human-readable line to file_changes.log.
func (r *Recorder) FileChange(sessionID, tool, path string) {
	line := fmt.Sprintf("%s [%s] %s %s",
		time.Now().Format(time.RFC3339), sessionID, tool, path)
	r.appendLine(fileChangeLog, line)
}

// SessionMarker appends a session start/end marker to sessions.log.
func (r *Recorder) SessionMarker(sessionID, marker string) {
	line := fmt.Sprintf("%s [%s] %s",
		time.Now().Format(time.RFC3339), sessionID, marker)
	r.appendLine(sessionLog, line)
}

// RecordDecision mirrors an engine decision into the queryable store when one
// is attached.
func (r *Recorder) RecordDecision(d *Decision) {
	if r.store == nil {
		return
	}
	if err := r.store.RecordDecision(d); err != nil {
		logger.Debug().Err(err).Msg("Failed to record decision")
	}
}

func (r *Recorder) appendLine(name, line string) {
	if err := os.MkdirAll(r.agentDir, 0755); err != nil {
		logger.Debug().Err(err).Str("dir", r.agentDir).Msg("Failed to create agent directory")
		return
	}

	path := filepath.Join(r.agentDir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logger.Debug().Err(err).Str("log", name).Msg("Failed to open audit log")
		return
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteString(line + "\n"); err != nil {
		logger.Debug().Err(err).Str("log", name).Msg("Failed to append audit line")
	}
}
