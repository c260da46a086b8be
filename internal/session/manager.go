package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/wardenhq/warden/internal/logger"
)

const (
	currentStateFile = "session_state.json"
	sessionsDir      = "sessions"
)

// Manager persists session state under one agent directory. It is an
// explicit context object: two managers over different directories never
// share state.
type Manager struct {
	agentDir string
}

// NewManager returns a Manager rooted at agentDir.
func NewManager(agentDir string) *Manager {
	return &Manager{agentDir: agentDir}
}

// Create returns a fresh active session. parentID may be empty.
func (m *Manager) Create(parentID string) *State {
	now := time.Now()
	return &State{
		SessionID:          uuid.NewString(),
		ParentSessionID:    parentID,
		Status:             StatusActive,
		CreatedAt:          now,
		LastActive:         now,
		CompletedFeatures:  []string{},
		FailedFeatures:     []string{},
		ImportantDecisions: []string{},
		Checkpoints:        []string{},
	}
}

// Save refreshes LastActive and writes the state both as the current-session
// pointer and as the per-id history entry. Both writes go through a temp
// file and rename so a crash never leaves a half-written JSON behind.
func (m *Manager) Save(st *State) error {
	st.LastActive = time.Now()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to persist session state: %w", err)
	}

	historyDir := filepath.Join(m.agentDir, sessionsDir)
	if err := os.MkdirAll(historyDir, 0755); err != nil {
		return fmt.Errorf("failed to create sessions directory: %w", err)
	}

	if err := writeAtomic(filepath.Join(historyDir, st.SessionID+".json"), data); err != nil {
		return err
	}
	return writeAtomic(filepath.Join(m.agentDir, currentStateFile), data)
}

// Load returns the current session, or nil when no readable state exists.
// Corrupt JSON is treated the same as absence.
func (m *Manager) Load() *State {
	return m.loadFile(filepath.Join(m.agentDir, currentStateFile))
}

// LoadByID returns one session from history, or nil when absent or corrupt.
func (m *Manager) LoadByID(id string) *State {
	return m.loadFile(filepath.Join(m.agentDir, sessionsDir, id+".json"))
}

func (m *Manager) loadFile(path string) *State {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Debug().Err(err).Str("path", path).Msg("Failed to read session state")
		}
		return nil
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		logger.Debug().Err(err).Str("path", path).Msg("Corrupt session state, treating as absent")
		return nil
	}
	return &st
}

// Fork branches a new active session off parent. The child copies the
// parent's progress by value so mutating one never affects the other; the
// parent transitions to forked. Both are persisted.
func (m *Manager) Fork(parent *State) (*State, error) {
	child := m.Create(parent.SessionID)
	child.CompletedFeatures = append([]string{}, parent.CompletedFeatures...)
	child.ImportantDecisions = append([]string{}, parent.ImportantDecisions...)
	child.Checkpoints = append([]string{}, parent.Checkpoints...)
	child.ContextSummary = parent.ContextSummary
	child.CurrentCheckpoint = parent.CurrentCheckpoint

	parent.Status = StatusForked

	if err := m.Save(parent); err != nil {
		return nil, fmt.Errorf("failed to persist forked parent: %w", err)
	}
	if err := m.Save(child); err != nil {
		return nil, fmt.Errorf("failed to persist forked child: %w", err)
	}

	logger.Info().
		Str("parent", parent.SessionID).
		Str("child", child.SessionID).
		Msg("Forked session")

	return child, nil
}

// Complete marks the session completed and persists it.
func (m *Manager) Complete(st *State) error {
	st.Status = StatusCompleted
	return m.Save(st)
}

// List returns every persisted session, most recently active first.
// Unreadable entries are skipped.
func (m *Manager) List() []*State {
	entries, err := os.ReadDir(filepath.Join(m.agentDir, sessionsDir))
	if err != nil {
		return nil
	}

	var sessions []*State
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		if st := m.loadFile(filepath.Join(m.agentDir, sessionsDir, entry.Name())); st != nil {
			sessions = append(sessions, st)
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastActive.After(sessions[j].LastActive)
	})
	return sessions
}

// writeAtomic writes data via a temp file in the target directory followed
// by a rename, so concurrent readers only ever see complete JSON.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to persist session state: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to persist session state: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to persist session state: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to persist session state: %w", err)
	}
	return nil
}
