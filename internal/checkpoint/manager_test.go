package checkpoint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// newTestProject lays out a small project tree and returns a manager
// tracking src/ plus package.json.
func newTestProject(t *testing.T) (*Manager, string) {
	t.Helper()
	root := t.TempDir()

	writeProjectFile(t, root, "src/main.go", "package main\n")
	writeProjectFile(t, root, "src/api/handler.go", "package api\n")
	writeProjectFile(t, root, "package.json", `{"name":"demo"}`)

	agentDir := filepath.Join(root, ".warden")
	m := NewManager(agentDir, root, "src", []string{"package.json"})
	return m, root
}

func writeProjectFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func readProjectFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, rel))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestCreate(t *testing.T) {
	m, _ := newTestProject(t)

	info, err := m.Create("before refactor", "auth")
	if err != nil {
		t.Fatal(err)
	}
	if info.ID == "" {
		t.Error("checkpoint has no id")
	}
	if !info.CanRestore {
		t.Error("fresh checkpoint is not restorable")
	}
	if info.Description != "before refactor" || info.FeatureID != "auth" {
		t.Errorf("metadata = (%q, %q), want (before refactor, auth)", info.Description, info.FeatureID)
	}

	if len(info.Files) != 3 {
		t.Fatalf("snapshot holds %d files, want 3", len(info.Files))
	}
	for _, snap := range info.Files {
		if !snap.BackedUp {
			t.Errorf("%s not backed up", snap.Path)
		}
		if snap.Hash == "" || snap.Size == 0 {
			t.Errorf("%s missing hash or size", snap.Path)
		}
	}
}

func TestCreate_SkipsHiddenAndBuildOutput(t *testing.T) {
	m, root := newTestProject(t)

	writeProjectFile(t, root, "src/.cache/tmp.go", "x")
	writeProjectFile(t, root, "src/node_modules/lib/index.js", "x")
	writeProjectFile(t, root, "src/dist/bundle.js", "x")

	info, err := m.Create("", "")
	if err != nil {
		t.Fatal(err)
	}
	for _, snap := range info.Files {
		switch snap.Path {
		case "src/.cache/tmp.go", "src/node_modules/lib/index.js", "src/dist/bundle.js":
			t.Errorf("excluded file %s was snapshotted", snap.Path)
		}
	}
}

func TestCreate_MissingConfigFileOmitted(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "src/main.go", "package main\n")
	m := NewManager(filepath.Join(root, ".warden"), root, "src", []string{"tsconfig.json"})

	info, err := m.Create("", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(info.Files) != 1 {
		t.Errorf("snapshot holds %d files, want only src/main.go", len(info.Files))
	}
}

func TestRestore_RoundTrip(t *testing.T) {
	m, root := newTestProject(t)

	info, err := m.Create("", "")
	if err != nil {
		t.Fatal(err)
	}

	// Mutate and delete tracked files after the snapshot.
	writeProjectFile(t, root, "src/main.go", "package main // broken\n")
	if err := os.Remove(filepath.Join(root, "src", "api", "handler.go")); err != nil {
		t.Fatal(err)
	}

	if !m.Restore(info.ID) {
		t.Fatal("Restore returned false")
	}

	if got := readProjectFile(t, root, "src/main.go"); got != "package main\n" {
		t.Errorf("src/main.go = %q after restore", got)
	}
	if got := readProjectFile(t, root, "src/api/handler.go"); got != "package api\n" {
		t.Errorf("deleted file not recreated, got %q", got)
	}
	if got := readProjectFile(t, root, "package.json"); got != `{"name":"demo"}` {
		t.Errorf("package.json = %q after restore", got)
	}

	// Restoring again over a clean tree is a no-op but still succeeds.
	if !m.Restore(info.ID) {
		t.Error("second Restore returned false")
	}
}

func TestRestore_MissingCheckpoint(t *testing.T) {
	m, _ := newTestProject(t)

	if m.Restore("no-such-checkpoint") {
		t.Error("Restore succeeded for an unknown checkpoint")
	}
}

func TestRestore_RefusesNonRestorable(t *testing.T) {
	m, _ := newTestProject(t)

	info, err := m.Create("", "")
	if err != nil {
		t.Fatal(err)
	}

	info.CanRestore = false
	if err := m.writeMetadata(m.checkpointDir(info.ID), info); err != nil {
		t.Fatal(err)
	}

	if m.Restore(info.ID) {
		t.Error("Restore succeeded for a non-restorable checkpoint")
	}
}

func TestRestore_SkipsFilesWithoutBackup(t *testing.T) {
	m, root := newTestProject(t)

	info, err := m.Create("", "")
	if err != nil {
		t.Fatal(err)
	}

	// Simulate a partial checkpoint: hashed but never copied.
	for i := range info.Files {
		if info.Files[i].Path == "src/main.go" {
			info.Files[i].BackedUp = false
		}
	}
	if err := m.writeMetadata(m.checkpointDir(info.ID), info); err != nil {
		t.Fatal(err)
	}

	writeProjectFile(t, root, "src/main.go", "edited\n")
	if !m.Restore(info.ID) {
		t.Fatal("Restore returned false")
	}
	if got := readProjectFile(t, root, "src/main.go"); got != "edited\n" {
		t.Errorf("file without backup was overwritten, got %q", got)
	}
}

func TestList_NewestFirstAndSkipsCorrupt(t *testing.T) {
	m, _ := newTestProject(t)

	var ids []string
	for i := 0; i < 3; i++ {
		info, err := m.Create("", "")
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, info.ID)
		time.Sleep(10 * time.Millisecond)
	}

	// A directory with unreadable metadata must not appear.
	bad := m.checkpointDir("corrupt")
	if err := os.MkdirAll(bad, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(bad, metadataFile), []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}

	infos := m.List()
	if len(infos) != 3 {
		t.Fatalf("List returned %d checkpoints, want 3", len(infos))
	}
	if infos[0].ID != ids[2] || infos[2].ID != ids[0] {
		t.Errorf("List order = [%s %s %s], want newest first", infos[0].ID, infos[1].ID, infos[2].ID)
	}
}

func TestCleanup(t *testing.T) {
	m, _ := newTestProject(t)

	var ids []string
	for i := 0; i < 5; i++ {
		info, err := m.Create("", "")
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, info.ID)
		time.Sleep(10 * time.Millisecond)
	}

	if err := m.Cleanup(2); err != nil {
		t.Fatal(err)
	}

	infos := m.List()
	if len(infos) != 2 {
		t.Fatalf("%d checkpoints remain, want 2", len(infos))
	}
	if infos[0].ID != ids[4] || infos[1].ID != ids[3] {
		t.Error("Cleanup did not keep the most recent checkpoints")
	}

	// Keeping more than exist is a no-op.
	if err := m.Cleanup(10); err != nil {
		t.Fatal(err)
	}
	if got := len(m.List()); got != 2 {
		t.Errorf("%d checkpoints remain after generous cleanup, want 2", got)
	}
}

func TestCleanup_DeletesOldestFirst(t *testing.T) {
	m, _ := newTestProject(t)

	var ids []string
	for i := 0; i < 4; i++ {
		info, err := m.Create("", "")
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, info.ID)
		time.Sleep(10 * time.Millisecond)
	}

	targets := m.pruneTargets(2)
	if len(targets) != 2 {
		t.Fatalf("%d prune targets, want 2", len(targets))
	}
	if targets[0].ID != ids[0] || targets[1].ID != ids[1] {
		t.Errorf("prune order = [%s %s], want oldest first [%s %s]",
			targets[0].ID, targets[1].ID, ids[0], ids[1])
	}

	if got := m.pruneTargets(10); got != nil {
		t.Errorf("pruneTargets above the checkpoint count = %v, want nil", got)
	}
	if got := m.pruneTargets(-1); got != nil {
		t.Errorf("pruneTargets with negative keep = %v, want nil", got)
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	m, _ := newTestProject(t)

	info, err := m.Create("desc", "feat")
	if err != nil {
		t.Fatal(err)
	}

	loaded := m.loadMetadata(m.checkpointDir(info.ID))
	if loaded == nil {
		t.Fatal("metadata unreadable after Create")
	}
	if loaded.ID != info.ID || loaded.Description != "desc" || loaded.FeatureID != "feat" {
		t.Error("metadata fields lost in round trip")
	}
	if len(loaded.Files) != len(info.Files) {
		t.Errorf("metadata holds %d files, want %d", len(loaded.Files), len(info.Files))
	}

	var raw map[string]json.RawMessage
	data, err := os.ReadFile(filepath.Join(m.checkpointDir(info.ID), metadataFile))
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("checkpoint.json is not valid JSON: %v", err)
	}
}
