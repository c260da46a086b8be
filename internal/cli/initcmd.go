package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wardenhq/warden/internal/config"
)

var initGlobal bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize warden configuration",
	Long: `Initialize a warden configuration file.

By default, creates a .warden/config.yaml in the current directory.
Use --global to create ~/.warden/config.yaml instead.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initGlobal, "global", "g", false, "Create global config in ~/.warden/")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	var configPath string

	if initGlobal {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(homeDir, ".warden", "config.yaml")
	} else {
		root, err := resolveProjectRoot()
		if err != nil {
			return err
		}
		configPath = filepath.Join(root, ".warden", "config.yaml")
	}

	if config.Exists(configPath) {
		return fmt.Errorf("config file already exists: %s", configPath)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := yaml.Marshal(config.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Created config file: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Edit the config file to customize guard policies")
	fmt.Println("2. Point your tool-execution driver at 'warden hook --event <type>'")
	fmt.Println("3. Run 'warden validate' to check the policy resolves cleanly")

	return nil
}
