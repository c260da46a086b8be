package cli

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/wardenhq/warden/internal/guard"
	"github.com/wardenhq/warden/internal/hooks"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the merged configuration",
	Long: `Validate the merged configuration.

Checks that every matcher pattern compiles and every referenced guard id
resolves, so policy errors surface here instead of on the hook path.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	registry := guard.NewRegistry(nil)
	var problems []string

	for _, eventType := range hooks.ValidEventTypes {
		for _, m := range cfg.Hooks.ForEvent(eventType) {
			if m.Pattern != "" {
				if _, err := regexp.Compile(m.Pattern); err != nil {
					problems = append(problems, fmt.Sprintf(
						"%s matcher %q: invalid pattern: %v", eventType, m.Name, err))
				}
			}
			if len(m.Guards) == 0 {
				problems = append(problems, fmt.Sprintf(
					"%s matcher %q: no guards configured", eventType, m.Name))
			}
			for _, id := range m.Guards {
				if _, err := registry.Resolve(id); err != nil {
					problems = append(problems, fmt.Sprintf(
						"%s matcher %q: %v", eventType, m.Name, err))
				}
			}
		}
	}

	for _, rule := range cfg.Allowlist {
		if rule.Pattern == "" {
			problems = append(problems, fmt.Sprintf(
				"allowlist rule %q: empty matcher would allow every tool", rule.Name))
			continue
		}
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			problems = append(problems, fmt.Sprintf(
				"allowlist rule %q: invalid pattern: %v", rule.Name, err))
		}
		for field, patterns := range rule.InputPatterns {
			for _, p := range patterns {
				if _, err := regexp.Compile(p); err != nil {
					problems = append(problems, fmt.Sprintf(
						"allowlist rule %q field %q: invalid pattern: %v", rule.Name, field, err))
				}
			}
		}
	}

	if len(problems) > 0 {
		for _, p := range problems {
			fmt.Printf("  ✗ %s\n", p)
		}
		return fmt.Errorf("configuration has %d problem(s)", len(problems))
	}

	matcherTotal := 0
	for _, eventType := range hooks.ValidEventTypes {
		matcherTotal += len(cfg.Hooks.ForEvent(eventType))
	}
	fmt.Printf("Configuration valid: %d matchers, %d allowlist rules (version %s)\n",
		matcherTotal, len(cfg.Allowlist), cfg.Version)
	return nil
}
