package checkpoint

import "time"

// FileSnapshot records one backed-up file within a checkpoint. Path is
// relative to the project root; BackedUp is true only when the copy into the
// checkpoint directory succeeded.
type FileSnapshot struct {
	Path     string `json:"path"`
	Hash     string `json:"hash"`
	Size     int64  `json:"size"`
	BackedUp bool   `json:"backed_up"`
}

// Info is the metadata for one restorable snapshot. It lives as
// checkpoint.json inside the checkpoint directory; that directory, metadata
// plus payload, is the complete durability unit.
type Info struct {
	ID          string         `json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	Description string         `json:"description"`
	FeatureID   string         `json:"feature_id,omitempty"`
	Files       []FileSnapshot `json:"files_snapshot"`
	CanRestore  bool           `json:"can_restore"`
}
