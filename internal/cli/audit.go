package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/wardenhq/warden/internal/audit"
)

var (
	auditLimit   int
	auditSession string
	auditTTL     time.Duration
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the decision history",
	Long: `Query the decision history.

The append-only audit_log.jsonl stays the durable record; these commands
read the SQLite decision store that mirrors it.

Example:
  warden audit tail -n 20
  warden audit stats
  warden audit prune --ttl 720h`,
}

var auditTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Show the most recent decisions",
	RunE:  runAuditTail,
}

var auditStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate decision counts",
	RunE:  runAuditStats,
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete decisions older than the retention window",
	RunE:  runAuditPrune,
}

func init() {
	auditTailCmd.Flags().IntVarP(&auditLimit, "limit", "n", 20, "Maximum number of decisions to show")
	auditTailCmd.Flags().StringVar(&auditSession, "session", "", "Filter by session id")
	auditPruneCmd.Flags().DurationVar(&auditTTL, "ttl", 30*24*time.Hour, "Delete decisions older than this")

	auditCmd.AddCommand(auditTailCmd)
	auditCmd.AddCommand(auditStatsCmd)
	auditCmd.AddCommand(auditPruneCmd)
	rootCmd.AddCommand(auditCmd)
}

func openAuditStore() (*audit.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	projectRoot, err := resolveProjectRoot()
	if err != nil {
		return nil, err
	}
	return audit.OpenStore(agentDir(cfg, projectRoot))
}

func runAuditTail(cmd *cobra.Command, args []string) error {
	store, err := openAuditStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	decisions, err := store.RecentDecisions(auditSession, auditLimit)
	if err != nil {
		return err
	}
	if len(decisions) == 0 {
		fmt.Println("No decisions recorded.")
		return nil
	}

	for _, d := range decisions {
		tool := d.ToolName
		if tool == "" {
			tool = "-"
		}
		line := fmt.Sprintf("%s  %-20s %-10s %-8s",
			humanize.Time(d.Timestamp), d.EventType, tool, d.Action)
		if d.Reason != "" {
			line += "  " + d.Reason
		}
		fmt.Println(line)
	}
	return nil
}

func runAuditPrune(cmd *cobra.Command, args []string) error {
	store, err := openAuditStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	deleted, err := store.Prune(auditTTL)
	if err != nil {
		return err
	}

	fmt.Printf("Pruned %d decisions older than %s\n", deleted, auditTTL)
	return nil
}

func runAuditStats(cmd *cobra.Command, args []string) error {
	store, err := openAuditStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	stats, err := store.Aggregate()
	if err != nil {
		return err
	}
	if stats.Total == 0 {
		fmt.Println("No decisions recorded.")
		return nil
	}

	fmt.Printf("Total decisions: %d\n", stats.Total)
	for action, count := range stats.CountByAction {
		fmt.Printf("  %-10s %d\n", action, count)
	}
	fmt.Printf("Oldest: %s\n", humanize.Time(stats.OldestEntry))
	fmt.Printf("Newest: %s\n", humanize.Time(stats.NewestEntry))
	return nil
}
