package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/riskfeed/internal/logging"
	"github.com/ppiankov/riskfeed/internal/model"
)

// Version is set at build time
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

var optionalKeys = []string{
	"http.http_proxy",
	"http.https_proxy",
	"lexicon.violent_verbs_file",
	"lexicon.strong_hate_file",
	"lexicon.generic_hate_file",
	"moderation.base_url",
	"moderation.cache_dir",
	"monitor.nats_url",
	"monitor.metrics_addr",
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "riskfeed",
	Short: "riskfeed - explainable violence and hate risk scoring for public posts",
	Long: `riskfeed collects public posts, scores them for violent and hateful
language with a transparent rule-based model, and rolls the results up into
a per-user risk feed.

Every score comes with an explanation of the signals that produced it.
An external moderation model can optionally cross-check high scores.

riskfeed flags content for human review. It does not decide intent.`,
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
	Long:  `Display the version number of riskfeed.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "riskfeed %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.riskfeed/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().String("data-dir", "data", "directory for collected and generated data")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("output.data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig locates the config file; values are resolved later by loadConfig
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		return
	}

	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
		return
	}
	viper.SetConfigFile(filepath.Join(home, ".riskfeed", "config.yaml"))
}

// loadConfig resolves the configuration from defaults, the config file,
// RISKFEED_* environment variables and flags, then validates it
func loadConfig(v *viper.Viper) (*model.Config, error) {
	defaults, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("marshal defaults: %w", err)
	}

	path := v.ConfigFileUsed()

	// Defaults are loaded as the base config so every key is known to viper
	// and can be overridden from the environment.
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, fmt.Errorf("read defaults: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if verbose {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", path)
		}
	}

	v.SetEnvPrefix("RISKFEED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("moderation.api_key", "RISKFEED_MODERATION_API_KEY", "OPENAI_API_KEY")
	// omitempty keys are absent from the defaults document
	for _, key := range optionalKeys {
		_ = v.BindEnv(key)
	}

	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setup loads the configuration and builds the logger
func setup() (*model.Config, *logrus.Logger, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
