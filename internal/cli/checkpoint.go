package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/wardenhq/warden/internal/checkpoint"
	"github.com/wardenhq/warden/internal/session"
)

var (
	checkpointDescription string
	checkpointFeature     string
	checkpointKeep        int
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Snapshot and restore tracked project files",
	Long: `Snapshot and restore tracked project files.

A checkpoint copies the tracked subset of the project tree (the source
directory plus top-level config files) into the agent directory so work can
be rolled back after a bad change. Restore overwrites unconditionally.

Example:
  warden checkpoint create -d "before refactor"
  warden checkpoint list
  warden checkpoint restore <checkpoint-id>
  warden checkpoint cleanup --keep 10`,
}

var checkpointCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a checkpoint of the tracked files",
	RunE:  runCheckpointCreate,
}

var checkpointRestoreCmd = &cobra.Command{
	Use:   "restore <checkpoint-id>",
	Short: "Restore a checkpoint, overwriting tracked files",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckpointRestore,
}

var checkpointListCmd = &cobra.Command{
	Use:   "list",
	Short: "List checkpoints, newest first",
	RunE:  runCheckpointList,
}

var checkpointCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete all but the most recent checkpoints",
	RunE:  runCheckpointCleanup,
}

func init() {
	checkpointCreateCmd.Flags().StringVarP(&checkpointDescription, "description", "d", "", "Checkpoint description")
	checkpointCreateCmd.Flags().StringVarP(&checkpointFeature, "feature", "f", "", "Feature id this checkpoint belongs to")
	checkpointCleanupCmd.Flags().IntVar(&checkpointKeep, "keep", 10, "Number of most recent checkpoints to keep (overrides keep_count)")

	checkpointCmd.AddCommand(checkpointCreateCmd)
	checkpointCmd.AddCommand(checkpointRestoreCmd)
	checkpointCmd.AddCommand(checkpointListCmd)
	checkpointCmd.AddCommand(checkpointCleanupCmd)
	rootCmd.AddCommand(checkpointCmd)
}

func checkpointManager() (*checkpoint.Manager, string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, "", err
	}
	projectRoot, err := resolveProjectRoot()
	if err != nil {
		return nil, "", err
	}
	dir := agentDir(cfg, projectRoot)
	mgr := checkpoint.NewManager(dir, projectRoot,
		cfg.Settings.Checkpoint.SourceDir, cfg.Settings.Checkpoint.ConfigFiles)
	return mgr, dir, nil
}

func runCheckpointCreate(cmd *cobra.Command, args []string) error {
	mgr, dir, err := checkpointManager()
	if err != nil {
		return err
	}

	info, err := mgr.Create(checkpointDescription, checkpointFeature)
	if err != nil {
		return err
	}

	// Track the new checkpoint on the current session when one exists.
	sessions := session.NewManager(dir)
	if st := sessions.Load(); st != nil {
		st.Checkpoints = append(st.Checkpoints, info.ID)
		st.CurrentCheckpoint = info.ID
		if err := sessions.Save(st); err != nil {
			return err
		}
	}

	fmt.Printf("Created checkpoint %s (%d files)\n", info.ID, len(info.Files))
	return nil
}

func runCheckpointRestore(cmd *cobra.Command, args []string) error {
	mgr, _, err := checkpointManager()
	if err != nil {
		return err
	}

	if !mgr.Restore(args[0]) {
		return fmt.Errorf("checkpoint %s could not be restored: missing, corrupt, or marked non-restorable", args[0])
	}

	fmt.Printf("Restored checkpoint %s\n", args[0])
	return nil
}

func runCheckpointList(cmd *cobra.Command, args []string) error {
	mgr, _, err := checkpointManager()
	if err != nil {
		return err
	}

	infos := mgr.List()
	if len(infos) == 0 {
		fmt.Println("No checkpoints found.")
		return nil
	}

	for _, info := range infos {
		var total int64
		for _, f := range info.Files {
			total += f.Size
		}
		desc := info.Description
		if desc == "" {
			desc = "(no description)"
		}
		fmt.Printf("%s  %s  %d files, %s  %s\n",
			info.ID,
			humanize.Time(info.CreatedAt),
			len(info.Files),
			humanize.Bytes(uint64(total)),
			desc)
	}
	return nil
}

func runCheckpointCleanup(cmd *cobra.Command, args []string) error {
	mgr, _, err := checkpointManager()
	if err != nil {
		return err
	}

	keep := checkpointKeep
	if !cmd.Flags().Changed("keep") {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		keep = cfg.Settings.Checkpoint.Keep()
	}

	before := len(mgr.List())
	if err := mgr.Cleanup(keep); err != nil {
		return err
	}
	after := len(mgr.List())

	fmt.Printf("Deleted %d checkpoints, %d remain\n", before-after, after)
	return nil
}
