package audit

import (
	"encoding/json"
	"time"
)

// Entry is one append-only audit record. Details holds the JSON-serialized
// tool input exactly as the driver supplied it.
type Entry struct {
	Timestamp time.Time       `json:"timestamp"`
	SessionID string          `json:"session_id"`
	Event     string          `json:"event"`
	Tool      string          `json:"tool,omitempty"`
	Action    string          `json:"action"`
	Details   json.RawMessage `json:"details,omitempty"`
}

// Decision is one engine evaluation outcome persisted to the queryable store.
type Decision struct {
	ID        int64
	SessionID string
	EventType string
	ToolName  string
	ToolInput map[string]any
	Action    string
	Reason    string
	Guard     string
	Timestamp time.Time
}

// Stats holds aggregate counts from the decision store.
type Stats struct {
	Total         int64
	CountByAction map[string]int64
	OldestEntry   time.Time
	NewestEntry   time.Time
}
