package audit

import (
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndQueryDecisions(t *testing.T) {
	store := openTestStore(t)

	base := time.Now().Add(-time.Hour)
	decisions := []*Decision{
		{SessionID: "sess-1", EventType: "PreToolUse", ToolName: "Bash",
			ToolInput: map[string]any{"command": "rm -rf /"},
			Action:    "deny", Reason: "destructive command", Guard: "dangerous-command",
			Timestamp: base},
		{SessionID: "sess-1", EventType: "PostToolUse", ToolName: "Write",
			Action: "continue", Guard: "audit-tool-usage",
			Timestamp: base.Add(time.Minute)},
		{SessionID: "sess-2", EventType: "PreToolUse", ToolName: "Edit",
			Action: "allow", Reason: "allowlisted",
			Timestamp: base.Add(2 * time.Minute)},
	}
	for _, d := range decisions {
		if err := store.RecordDecision(d); err != nil {
			t.Fatal(err)
		}
		if d.ID == 0 {
			t.Error("RecordDecision did not assign an id")
		}
	}

	all, err := store.RecentDecisions("", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("RecentDecisions returned %d rows, want 3", len(all))
	}
	// Chronological order.
	if all[0].Action != "deny" || all[2].Action != "allow" {
		t.Errorf("order = [%s %s %s], want oldest first", all[0].Action, all[1].Action, all[2].Action)
	}
	if got := all[0].ToolInput["command"]; got != "rm -rf /" {
		t.Errorf("tool input did not round-trip, got %v", got)
	}
	if all[0].Guard != "dangerous-command" {
		t.Errorf("Guard = %q", all[0].Guard)
	}

	sess1, err := store.RecentDecisions("sess-1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(sess1) != 2 {
		t.Errorf("session filter returned %d rows, want 2", len(sess1))
	}

	limited, err := store.RecentDecisions("", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Fatalf("limit returned %d rows, want 2", len(limited))
	}
	// Limit keeps the newest rows.
	if limited[0].Action != "continue" || limited[1].Action != "allow" {
		t.Errorf("limited order = [%s %s]", limited[0].Action, limited[1].Action)
	}
}

func TestAggregate(t *testing.T) {
	store := openTestStore(t)

	empty, err := store.Aggregate()
	if err != nil {
		t.Fatal(err)
	}
	if empty.Total != 0 {
		t.Errorf("empty store Total = %d", empty.Total)
	}

	for _, action := range []string{"deny", "deny", "continue", "allow"} {
		d := &Decision{SessionID: "s", EventType: "PreToolUse", Action: action}
		if err := store.RecordDecision(d); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := store.Aggregate()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 4 {
		t.Errorf("Total = %d, want 4", stats.Total)
	}
	if stats.CountByAction["deny"] != 2 || stats.CountByAction["continue"] != 1 {
		t.Errorf("CountByAction = %v", stats.CountByAction)
	}
	if stats.OldestEntry.IsZero() || stats.NewestEntry.Before(stats.OldestEntry) {
		t.Error("time range not populated")
	}
}

func TestPrune(t *testing.T) {
	store := openTestStore(t)

	old := &Decision{SessionID: "s", EventType: "PreToolUse", Action: "deny",
		Timestamp: time.Now().Add(-48 * time.Hour)}
	fresh := &Decision{SessionID: "s", EventType: "PreToolUse", Action: "continue"}
	for _, d := range []*Decision{old, fresh} {
		if err := store.RecordDecision(d); err != nil {
			t.Fatal(err)
		}
	}

	deleted, err := store.Prune(24 * time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Errorf("Prune deleted %d rows, want 1", deleted)
	}

	remaining, err := store.RecentDecisions("", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) != 1 || remaining[0].Action != "continue" {
		t.Errorf("remaining = %v", remaining)
	}
}

func TestRecorderMirrorsToStore(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	rec := NewRecorder(dir).WithStore(store)
	rec.RecordDecision(&Decision{SessionID: "sess-3", EventType: "PreToolUse",
		ToolName: "Bash", Action: "deny", Reason: "no"})

	rows, err := store.RecentDecisions("sess-3", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Reason != "no" {
		t.Error("decision did not reach the store through the recorder")
	}
}
