package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/carelog/internal/llm"
	"github.com/ppiankov/carelog/internal/logging"
	"github.com/ppiankov/carelog/internal/model"
)

// Version is stamped at build time with -ldflags.
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "carelog",
	Short: "carelog - care-home incident transcript analysis",
	Long: `carelog turns a free-text call transcript describing a care-home
incident into a structured incident report and a draft notification email.

Facts are extracted by a language model when a credential is configured,
with deterministic pattern rules as the fallback. Incident types, locations,
risk-assessment reviews and policy triggers come from a YAML pattern file.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("carelog %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := model.DefaultConfig()
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.carelog/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.String("incident-config", defaults.Incident.Path, "incident pattern file")
	flags.String("llm-provider", defaults.LLM.Provider, "LLM provider (openai, anthropic, ollama)")
	flags.String("llm-model", defaults.LLM.Model, "LLM model name")
	flags.String("log-level", defaults.Log.Level, "log level (debug, info, warn, error)")
	flags.Bool("no-cache", false, "disable the model response cache")

	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("incident.path", flags.Lookup("incident-config"))
	_ = viper.BindPFlag("llm.provider", flags.Lookup("llm-provider"))
	_ = viper.BindPFlag("llm.model", flags.Lookup("llm-model"))
	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads .env, the config file and environment variables
func initConfig() {
	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".carelog"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// CARELOG_LLM_MODEL etc.
	viper.SetEnvPrefix("CARELOG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	bindEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// bindEnv maps the conventional variable names onto config keys. The
// prefixed form is listed first and wins when both are set. Variables that
// belong to one provider are applied in applyProviderEnv instead.
func bindEnv() {
	_ = viper.BindEnv("llm.model", "CARELOG_LLM_MODEL")
	_ = viper.BindEnv("llm.api_key", "CARELOG_LLM_API_KEY")
	_ = viper.BindEnv("llm.base_url", "CARELOG_LLM_BASE_URL")
	_ = viper.BindEnv("llm.http_proxy", "CARELOG_LLM_HTTP_PROXY")
	_ = viper.BindEnv("llm.https_proxy", "CARELOG_LLM_HTTPS_PROXY")
	_ = viper.BindEnv("llm.no_proxy", "CARELOG_LLM_NO_PROXY")
	_ = viper.BindEnv("incident.path", "CARELOG_INCIDENT_PATH", "INCIDENT_CONFIG")
	_ = viper.BindEnv("log.level", "CARELOG_LOG_LEVEL", "LOG_LEVEL")
	_ = viper.BindEnv("log.format", "CARELOG_LOG_FORMAT")
	_ = viper.BindEnv("server.addr", "CARELOG_SERVER_ADDR")
	_ = viper.BindEnv("cache.enabled", "CARELOG_CACHE_ENABLED")
	_ = viper.BindEnv("cache.dir", "CARELOG_CACHE_DIR")
}

// loadConfig merges defaults, config file, environment and flags
func loadConfig(cmd *cobra.Command) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyProviderEnv(&cfg.LLM, os.Getenv, viper.IsSet("llm.model"))
	if noCache, err := cmd.Flags().GetBool("no-cache"); err == nil && noCache {
		cfg.Cache.Enabled = false
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	return cfg, nil
}

// applyProviderEnv fills LLM settings from the variables of the selected
// provider only. Values already set by flags, CARELOG_* or the config file
// win; modelSet reports whether the model was set that way.
func applyProviderEnv(c *model.LLMConfig, getenv func(string) string, modelSet bool) {
	if c.APIKey == "" {
		if name := llm.KeyEnvVar(c.Provider); name != "" {
			c.APIKey = getenv(name)
		}
	}

	switch strings.ToLower(c.Provider) {
	case "openai", "":
		if v := getenv("OPENAI_MODEL"); v != "" && !modelSet {
			c.Model = v
		}
	case "ollama":
		if v := getenv("OLLAMA_BASE_URL"); v != "" && c.BaseURL == "" {
			c.BaseURL = v
		}
	}
}

func newLogger(cfg *model.Config) *logrus.Logger {
	return logging.New(cfg.Log.Level, cfg.Log.Format)
}

// parseSource maps a --force-source value to a source mode
func parseSource(s string) (model.SourceMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return model.SourceAuto, nil
	case "llm":
		return model.SourceLLMOnly, nil
	case "rules":
		return model.SourceRulesOnly, nil
	default:
		return "", fmt.Errorf("invalid --force-source %q (supported: llm, rules)", s)
	}
}
