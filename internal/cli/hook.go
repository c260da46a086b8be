package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/wardenhq/warden/internal/audit"
	"github.com/wardenhq/warden/internal/engine"
	"github.com/wardenhq/warden/internal/guard"
	"github.com/wardenhq/warden/internal/hooks"
	"github.com/wardenhq/warden/internal/logger"
)

var (
	eventType string
	dryRun    bool
	featureID string
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Evaluate a hook event from the tool-execution driver",
	Long: `Evaluate a hook event from the tool-execution driver.

Reads the event payload as JSON from stdin, evaluates it against the
configured guard policies, and writes the decision as JSON to stdout.
The driver alone executes the tool and must honor deny/modify results.

Example:
  echo '{"tool_name": "Bash", "tool_input": {"command": "rm -rf /"}}' | warden hook --event PreToolUse`,
	RunE: runHook,
}

func init() {
	hookCmd.Flags().StringVarP(&eventType, "event", "e", "", "Hook event type (required)")
	hookCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would happen without denying")
	hookCmd.Flags().StringVar(&featureID, "feature", "", "Feature currently in progress")
	_ = hookCmd.MarkFlagRequired("event")
	rootCmd.AddCommand(hookCmd)
}

func runHook(cmd *cobra.Command, args []string) error {
	event := hooks.EventType(eventType)
	if !event.IsValid() {
		return fmt.Errorf("invalid event type: %s", eventType)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	projectRoot, err := resolveProjectRoot()
	if err != nil {
		return err
	}
	dir := agentDir(cfg, projectRoot)

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	if len(raw) == 0 {
		return fmt.Errorf("no input received from stdin")
	}

	logger.Debug().
		Str("event", eventType).
		RawJSON("input", raw).
		Msg("Received hook input")

	var recorder *audit.Recorder
	if cfg.Settings.Audit.IsEnabled() {
		recorder = audit.NewRecorder(dir)
		if cfg.Settings.Audit.IsStoreEnabled() {
			store, err := audit.OpenStore(dir)
			if err != nil {
				logger.Debug().Err(err).Msg("Failed to open decision store, continuing without it")
			} else {
				defer func() { _ = store.Close() }()
				recorder = recorder.WithStore(store)
			}
		}
	}

	eng, err := engine.New(cfg, guard.NewRegistry(recorder), recorder)
	if err != nil {
		return fmt.Errorf("failed to build engine: %w", err)
	}

	ctx := &hooks.Context{
		ProjectRoot:       projectRoot,
		AgentDir:          dir,
		FeatureInProgress: featureID,
	}

	result, err := eng.Evaluate(event, ctx, raw)
	if err != nil {
		logger.Error().Err(err).Msg("Evaluation failed")
		return err
	}

	if dryRun && result.Action == hooks.ActionDeny {
		logger.Info().
			Str("would_deny", result.Reason).
			Msg("Dry run: would deny")
		result = hooks.ContinueWithMessage("[DRY RUN] Would deny: " + result.Reason)
	}

	out, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	fmt.Println(string(out))
	return nil
}
