package cli

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/wardenhq/warden/internal/session"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage resumable work sessions",
	Long: `Manage resumable work sessions.

A session is a persisted unit of long-running work. Fork one to branch an
alternative implementation attempt without losing the original's history.

Example:
  warden session start
  warden session list
  warden session fork <session-id>
  warden session complete`,
}

var sessionStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a new session",
	RunE:  runSessionStart,
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted sessions, most recently active first",
	RunE:  runSessionList,
}

var sessionShowCmd = &cobra.Command{
	Use:   "show [session-id]",
	Short: "Show a session as JSON (current session when no id given)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSessionShow,
}

var sessionForkCmd = &cobra.Command{
	Use:   "fork <session-id>",
	Short: "Fork a session into a new active child",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionFork,
}

var sessionCompleteCmd = &cobra.Command{
	Use:   "complete",
	Short: "Mark the current session completed",
	RunE:  runSessionComplete,
}

var sessionResumeCmd = &cobra.Command{
	Use:   "resume <session-id>",
	Short: "Resume a session, making it the current one",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionResume,
}

func init() {
	sessionCmd.AddCommand(sessionStartCmd)
	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionForkCmd)
	sessionCmd.AddCommand(sessionCompleteCmd)
	sessionCmd.AddCommand(sessionResumeCmd)
	rootCmd.AddCommand(sessionCmd)
}

func sessionManager() (*session.Manager, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	projectRoot, err := resolveProjectRoot()
	if err != nil {
		return nil, err
	}
	return session.NewManager(agentDir(cfg, projectRoot)), nil
}

func runSessionStart(cmd *cobra.Command, args []string) error {
	mgr, err := sessionManager()
	if err != nil {
		return err
	}

	st := mgr.Create("")
	if err := mgr.Save(st); err != nil {
		return err
	}

	fmt.Printf("Started session %s\n", st.SessionID)
	return nil
}

func runSessionList(cmd *cobra.Command, args []string) error {
	mgr, err := sessionManager()
	if err != nil {
		return err
	}

	sessions := mgr.List()
	if len(sessions) == 0 {
		fmt.Println("No sessions found.")
		return nil
	}

	for _, st := range sessions {
		fmt.Printf("%s  %-11s  last active %s  (%d features done)\n",
			st.SessionID, st.Status,
			humanize.Time(st.LastActive),
			len(st.CompletedFeatures))
	}
	return nil
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	mgr, err := sessionManager()
	if err != nil {
		return err
	}

	var st *session.State
	if len(args) == 1 {
		st = mgr.LoadByID(args[0])
	} else {
		st = mgr.Load()
	}
	if st == nil {
		return fmt.Errorf("session not found")
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func runSessionFork(cmd *cobra.Command, args []string) error {
	mgr, err := sessionManager()
	if err != nil {
		return err
	}

	parent := mgr.LoadByID(args[0])
	if parent == nil {
		return fmt.Errorf("session not found: %s", args[0])
	}

	child, err := mgr.Fork(parent)
	if err != nil {
		return err
	}

	fmt.Printf("Forked %s -> %s\n", parent.SessionID, child.SessionID)
	return nil
}

func runSessionComplete(cmd *cobra.Command, args []string) error {
	mgr, err := sessionManager()
	if err != nil {
		return err
	}

	st := mgr.Load()
	if st == nil {
		return fmt.Errorf("no current session")
	}

	if err := mgr.Complete(st); err != nil {
		return err
	}

	fmt.Printf("Completed session %s\n", st.SessionID)
	return nil
}

func runSessionResume(cmd *cobra.Command, args []string) error {
	mgr, err := sessionManager()
	if err != nil {
		return err
	}

	st := mgr.LoadByID(args[0])
	if st == nil {
		return fmt.Errorf("session not found: %s", args[0])
	}

	// A session abandoned mid-run is still "active" on disk; resuming is the
	// explicit point where that gets reinterpreted.
	st.Status = session.StatusActive
	if err := mgr.Save(st); err != nil {
		return err
	}

	fmt.Printf("Resumed session %s\n", st.SessionID)
	return nil
}
