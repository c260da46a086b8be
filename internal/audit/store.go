package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/wardenhq/warden/internal/logger"

	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

// Store is a SQLite-backed mirror of engine decisions. The JSONL sink stays
// the durable record; the store exists so `warden audit` can query history
// without scanning the whole log.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// OpenStore opens (or creates) the decision store under agentDir.
func OpenStore(agentDir string) (*Store, error) {
	dbPath := filepath.Join(agentDir, "decisions.db")
	if err := os.MkdirAll(agentDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create agent directory: %w", err)
	}

	// WAL mode keeps readers from blocking the hook path's single writer.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open decision store: %w", err)
	}

	store := &Store{db: db, dbPath: dbPath}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Debug().Str("path", dbPath).Msg("Opened decision store")
	return store, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS decisions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		tool_name TEXT,
		tool_input TEXT,
		action TEXT NOT NULL,
		reason TEXT,
		guard TEXT,
		timestamp INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_decisions_session ON decisions(session_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_decisions_action ON decisions(action);
	`

	_, err := s.db.Exec(schema)
	return err
}

// RecordDecision appends one decision row.
func (s *Store) RecordDecision(d *Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var inputJSON []byte
	if d.ToolInput != nil {
		var err error
		inputJSON, err = json.Marshal(d.ToolInput)
		if err != nil {
			return fmt.Errorf("failed to marshal tool_input: %w", err)
		}
	}

	ts := d.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	result, err := s.db.Exec(
		`INSERT INTO decisions (session_id, event_type, tool_name, tool_input, action, reason, guard, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.SessionID, d.EventType, d.ToolName, string(inputJSON),
		d.Action, d.Reason, d.Guard, ts.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record decision: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		d.ID = id
	}
	return nil
}

// RecentDecisions returns up to limit decisions in chronological order,
// optionally filtered by session id.
func (s *Store) RecentDecisions(sessionID string, limit int) ([]*Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, session_id, event_type, tool_name, tool_input, action, reason, guard, timestamp
		 FROM decisions`
	args := []any{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY timestamp DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var decisions []*Decision
	for rows.Next() {
		var d Decision
		var ts int64
		var toolName, toolInputJSON, reason, guard sql.NullString

		if err := rows.Scan(&d.ID, &d.SessionID, &d.EventType, &toolName,
			&toolInputJSON, &d.Action, &reason, &guard, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}

		d.ToolName = toolName.String
		d.Reason = reason.String
		d.Guard = guard.String
		d.Timestamp = time.Unix(ts, 0)

		if toolInputJSON.Valid && toolInputJSON.String != "" {
			if err := json.Unmarshal([]byte(toolInputJSON.String), &d.ToolInput); err != nil {
				logger.Debug().Err(err).Msg("Failed to unmarshal tool_input")
			}
		}

		decisions = append(decisions, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to chronological order.
	for i, j := 0, len(decisions)-1; i < j; i, j = i+1, j-1 {
		decisions[i], decisions[j] = decisions[j], decisions[i]
	}
	return decisions, nil
}

// Aggregate returns counts by action plus the covered time range.
func (s *Store) Aggregate() (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{CountByAction: make(map[string]int64)}

	rows, err := s.db.Query(`SELECT action, COUNT(*) FROM decisions GROUP BY action`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate decisions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var action string
		var count int64
		if err := rows.Scan(&action, &count); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate: %w", err)
		}
		stats.CountByAction[action] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if stats.Total > 0 {
		var oldest, newest int64
		err := s.db.QueryRow(`SELECT MIN(timestamp), MAX(timestamp) FROM decisions`).
			Scan(&oldest, &newest)
		if err != nil {
			return nil, fmt.Errorf("failed to query time range: %w", err)
		}
		stats.OldestEntry = time.Unix(oldest, 0)
		stats.NewestEntry = time.Unix(newest, 0)
	}

	return stats, nil
}

// Prune deletes decisions older than ttl and returns the number removed.
func (s *Store) Prune(ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-ttl).Unix()
	result, err := s.db.Exec(`DELETE FROM decisions WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune decisions: %w", err)
	}

	deleted, _ := result.RowsAffected()
	if deleted > 0 {
		logger.Debug().Int64("deleted", deleted).Msg("Pruned old decisions")
	}
	return deleted, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
