package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/carelog/internal/config"
	"github.com/ppiankov/carelog/internal/model"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage carelog configuration",
	Long: `Manage carelog configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (CARELOG_*, OPENAI_API_KEY, INCIDENT_CONFIG, ...)
3. .env in the working directory
4. Config file (~/.carelog/config.yaml)
5. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if configFile := viper.ConfigFileUsed(); configFile != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		yamlData, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(yamlData))

		keyState := "not set"
		if cfg.LLM.APIKey != "" {
			keyState = "set"
		}
		fmt.Fprintf(os.Stderr, "\nAPI key: %s\n", keyState)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file at ~/.carelog/config.yaml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("error finding home directory: %w", err)
		}
		configPath := filepath.Join(home, ".carelog", "config.yaml")

		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file already exists: %s\nUse 'carelog config show' to view it, or delete it first to recreate", configPath)
		}

		data, err := defaultConfigFile()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
			return fmt.Errorf("error creating config directory: %w", err)
		}
		if err := os.WriteFile(configPath, data, 0o600); err != nil {
			return fmt.Errorf("error writing config: %w", err)
		}

		fmt.Printf("✓ Created default configuration: %s\n", configPath)
		fmt.Printf("\nTo view the configuration:\n")
		fmt.Printf("  carelog config show\n")
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [incident-config]",
	Short: "Validate the incident pattern file",
	Long: `Validate loads the incident pattern file and lists its incident types,
locations, assessment rules and any patterns skipped as malformed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		path := cfg.Incident.Path
		if len(args) == 1 {
			path = args[0]
		}

		ic, err := config.Load(path, newLogger(cfg))
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), describeIncidentConfig(ic))

		if n := len(ic.Skipped()); n > 0 {
			return fmt.Errorf("%d malformed pattern(s) skipped", n)
		}
		return nil
	},
}

// defaultConfigFile renders the default config with a comment header
func defaultConfigFile() ([]byte, error) {
	yamlData, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("error marshaling config: %w", err)
	}

	var b strings.Builder
	b.WriteString("# carelog configuration file\n")
	b.WriteString("#\n")
	b.WriteString("# Configuration hierarchy (highest to lowest priority):\n")
	b.WriteString("#   1. CLI flags\n")
	b.WriteString("#   2. Environment variables (CARELOG_*)\n")
	b.WriteString("#   3. This config file\n")
	b.WriteString("#   4. Built-in defaults\n\n")
	b.Write(yamlData)
	b.WriteString("\n# API keys are read from the environment:\n")
	b.WriteString("#   export OPENAI_API_KEY=sk-...\n")
	b.WriteString("#   export ANTHROPIC_API_KEY=sk-ant-...\n")
	b.WriteString("#   export OLLAMA_BASE_URL=http://localhost:11434\n")
	return []byte(b.String()), nil
}

func describeIncidentConfig(ic *config.IncidentConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✓ %s\n\n", ic.Path())

	fmt.Fprintf(&b, "Incident types (%d, in match order):\n", len(ic.Patterns()))
	for _, tp := range ic.Patterns() {
		fmt.Fprintf(&b, "  %-22s %d pattern(s)\n", tp.Type, len(tp.Patterns))
	}

	fmt.Fprintf(&b, "\nLocations (%d): %s\n", len(ic.Locations()), strings.Join(ic.Locations(), ", "))

	fmt.Fprintf(&b, "\nAssessment rules (%d, first match wins):\n", len(ic.Assessments()))
	for i, r := range ic.Assessments() {
		scope := "all types"
		if len(r.IncidentTypes) > 0 {
			scope = strings.Join(r.IncidentTypes, ", ")
		}
		fmt.Fprintf(&b, "  %d. %s [%s]\n", i+1, r.Name, scope)
	}

	n := ic.Notifications()
	fmt.Fprintf(&b, "\nAlways notify: %s\n", n.AlwaysNotify)
	fmt.Fprintf(&b, "Policy triggers: %d contact GP, %d call 999\n", len(n.Triggers.ContactGPIf), len(n.Triggers.Call999If))

	if skipped := ic.Skipped(); len(skipped) > 0 {
		fmt.Fprintf(&b, "\nSkipped patterns (%d):\n", len(skipped))
		for _, s := range skipped {
			fmt.Fprintf(&b, "  ✗ %s: %q: %v\n", s.Section, s.Source, s.Err)
		}
	}
	return b.String()
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
}
