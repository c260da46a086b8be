package session

import "time"

// Status is the lifecycle state of a session.
type Status string

// Session statuses. There is no automatic transition to interrupted: a
// session left active by an abnormal exit stays active on disk until the
// resuming process reinterprets it.
const (
	StatusActive      Status = "active"
	StatusCompleted   Status = "completed"
	StatusInterrupted Status = "interrupted"
	StatusForked      Status = "forked"
)

// State is one resumable unit of long-running work. Persisted on every
// mutation; never auto-deleted.
type State struct {
	SessionID          string    `json:"session_id"`
	ParentSessionID    string    `json:"parent_session_id,omitempty"`
	Status             Status    `json:"status"`
	CreatedAt          time.Time `json:"created_at"`
	LastActive         time.Time `json:"last_active"`
	CurrentFeature     string    `json:"current_feature,omitempty"`
	CompletedFeatures  []string  `json:"completed_features"`
	FailedFeatures     []string  `json:"failed_features"`
	ImportantDecisions []string  `json:"important_decisions"`
	ContextSummary     string    `json:"context_summary,omitempty"`
	Checkpoints        []string  `json:"checkpoints"`
	CurrentCheckpoint  string    `json:"current_checkpoint,omitempty"`
}
