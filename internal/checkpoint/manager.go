package checkpoint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wardenhq/warden/internal/logger"
)

const (
	checkpointsDir = "checkpoints"
	metadataFile   = "checkpoint.json"
	payloadDir     = "files"
)

// Directories never included in a snapshot.
var excludedDirs = map[string]bool{
	"node_modules": true,
	"dist":         true,
	"build":        true,
	"out":          true,
	"target":       true,
	"vendor":       true,
}

// Manager snapshots and restores a tracked subset of the project tree. It
// consumes the same agent-directory conventions as the session manager.
type Manager struct {
	agentDir    string
	projectRoot string
	sourceDir   string
	configFiles []string
}

// NewManager returns a Manager. sourceDir is the tracked directory relative
// to projectRoot; configFiles are tracked top-level files.
func NewManager(agentDir, projectRoot, sourceDir string, configFiles []string) *Manager {
	return &Manager{
		agentDir:    agentDir,
		projectRoot: projectRoot,
		sourceDir:   sourceDir,
		configFiles: configFiles,
	}
}

// Create snapshots every tracked file into a new checkpoint directory.
// Files that disappear between discovery and copy are simply omitted:
// partial checkpoints are allowed.
func (m *Manager) Create(description, featureID string) (*Info, error) {
	info := &Info{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now(),
		Description: description,
		FeatureID:   featureID,
		CanRestore:  true,
	}

	dir := m.checkpointDir(info.ID)
	if err := os.MkdirAll(filepath.Join(dir, payloadDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	for _, rel := range m.discover() {
		snap, ok := m.snapshotFile(dir, rel)
		if !ok {
			continue
		}
		info.Files = append(info.Files, snap)
	}

	if err := m.writeMetadata(dir, info); err != nil {
		return nil, err
	}

	logger.Info().
		Str("checkpoint", info.ID).
		Int("files", len(info.Files)).
		Msg("Created checkpoint")

	return info, nil
}

// discover lists tracked files relative to the project root: everything
// under the source directory plus the fixed top-level config files. Hidden
// directories and build output are skipped.
func (m *Manager) discover() []string {
	var files []string

	srcRoot := filepath.Join(m.projectRoot, m.sourceDir)
	_ = filepath.WalkDir(srcRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are omitted, not fatal
		}
		name := d.Name()
		if d.IsDir() {
			if path != srcRoot && (strings.HasPrefix(name, ".") || excludedDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if rel, err := filepath.Rel(m.projectRoot, path); err == nil {
			files = append(files, rel)
		}
		return nil
	})

	for _, name := range m.configFiles {
		if _, err := os.Stat(filepath.Join(m.projectRoot, name)); err == nil {
			files = append(files, name)
		}
	}

	return files
}

// snapshotFile hashes and copies one file into the checkpoint payload.
// Returns ok=false when the file vanished before it could be read.
func (m *Manager) snapshotFile(checkpointDir, rel string) (FileSnapshot, bool) {
	src := filepath.Join(m.projectRoot, rel)
	data, err := os.ReadFile(src)
	if err != nil {
		logger.Debug().Err(err).Str("file", rel).Msg("Skipping unreadable file")
		return FileSnapshot{}, false
	}

	sum := sha256.Sum256(data)
	snap := FileSnapshot{
		Path: filepath.ToSlash(rel),
		Hash: hex.EncodeToString(sum[:]),
		Size: int64(len(data)),
	}

	dst := filepath.Join(checkpointDir, payloadDir, rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		logger.Debug().Err(err).Str("file", rel).Msg("Failed to create backup directory")
		return snap, true
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		logger.Debug().Err(err).Str("file", rel).Msg("Failed to back up file")
		return snap, true
	}

	snap.BackedUp = true
	return snap, true
}

// Restore copies every backed-up file of a checkpoint back to its original
// relative path, overwriting unconditionally. Returns false, with a logged
// error, when the checkpoint is missing or marked non-restorable.
func (m *Manager) Restore(checkpointID string) bool {
	info := m.loadMetadata(m.checkpointDir(checkpointID))
	if info == nil {
		logger.Error().
			Str("checkpoint", checkpointID).
			Msg("Cannot restore: checkpoint not found or metadata unreadable")
		return false
	}
	if !info.CanRestore {
		logger.Error().
			Str("checkpoint", checkpointID).
			Msg("Cannot restore: checkpoint is marked non-restorable")
		return false
	}

	restored := 0
	for _, snap := range info.Files {
		if !snap.BackedUp {
			continue
		}

		rel := filepath.FromSlash(snap.Path)
		src := filepath.Join(m.checkpointDir(checkpointID), payloadDir, rel)
		dst := filepath.Join(m.projectRoot, rel)

		data, err := os.ReadFile(src)
		if err != nil {
			logger.Warn().Err(err).Str("file", snap.Path).Msg("Backup payload unreadable, skipping")
			continue
		}

		m.warnOnDrift(dst, snap)

		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			logger.Warn().Err(err).Str("file", snap.Path).Msg("Failed to create directory for restore")
			continue
		}
		if err := os.WriteFile(dst, data, 0644); err != nil {
			logger.Warn().Err(err).Str("file", snap.Path).Msg("Failed to restore file")
			continue
		}
		restored++
	}

	logger.Info().
		Str("checkpoint", checkpointID).
		Int("files", restored).
		Msg("Restored checkpoint")

	return true
}

// warnOnDrift logs when the live file was edited since the snapshot was
// taken. Restore still overwrites; conflict resolution is out of scope.
func (m *Manager) warnOnDrift(livePath string, snap FileSnapshot) {
	data, err := os.ReadFile(livePath)
	if err != nil {
		return
	}
	sum := sha256.Sum256(data)
	if hex.EncodeToString(sum[:]) != snap.Hash {
		logger.Warn().
			Str("file", snap.Path).
			Msg("Live file differs from snapshot, overwriting")
	}
}

// List returns every checkpoint with valid metadata, newest first. Corrupt
// entries are silently skipped.
func (m *Manager) List() []*Info {
	root := filepath.Join(m.agentDir, checkpointsDir)
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}

	var infos []*Info
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if info := m.loadMetadata(filepath.Join(root, entry.Name())); info != nil {
			infos = append(infos, info)
		}
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.After(infos[j].CreatedAt)
	})
	return infos
}

// Cleanup deletes whole checkpoint directories beyond the keepCount most
// recent, oldest first. Irreversible.
func (m *Manager) Cleanup(keepCount int) error {
	for _, info := range m.pruneTargets(keepCount) {
		dir := m.checkpointDir(info.ID)
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to delete checkpoint %s: %w", info.ID, err)
		}
		logger.Info().Str("checkpoint", info.ID).Msg("Deleted checkpoint")
	}
	return nil
}

// pruneTargets returns the checkpoints Cleanup will delete, oldest first.
func (m *Manager) pruneTargets(keepCount int) []*Info {
	infos := m.List()
	if keepCount < 0 || len(infos) <= keepCount {
		return nil
	}

	excess := infos[keepCount:]
	targets := make([]*Info, 0, len(excess))
	for i := len(excess) - 1; i >= 0; i-- {
		targets = append(targets, excess[i])
	}
	return targets
}

func (m *Manager) checkpointDir(id string) string {
	return filepath.Join(m.agentDir, checkpointsDir, id)
}

func (m *Manager) loadMetadata(dir string) *Info {
	data, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		return nil
	}

	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		logger.Debug().Err(err).Str("dir", dir).Msg("Corrupt checkpoint metadata, skipping")
		return nil
	}
	return &info
}

func (m *Manager) writeMetadata(dir string, info *Info) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to persist checkpoint metadata: %w", err)
	}

	tmp, err := os.CreateTemp(dir, metadataFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to persist checkpoint metadata: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to persist checkpoint metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to persist checkpoint metadata: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, metadataFile)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to persist checkpoint metadata: %w", err)
	}
	return nil
}
