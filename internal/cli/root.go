package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/sentcheck/internal/logging"
	"github.com/ppiankov/sentcheck/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=..."
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "sentcheck",
	Short: "sentcheck - heuristic sentence acceptability checks from dependency parses",
	Long: `sentcheck decides whether a sentence is syntactically acceptable using
the root, subject and object tags of an external dependency parser.

Three strictness levels are available:
  lenient   a root and at least one of subject or object
  balanced  a subject and a root
  strict    a verbal root with both subject and object

It does not parse by itself and is not a grammar checker. It is a
fast heuristic gate for rewritten or generated sentences.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Configure(os.Stderr, verbose)
	},
}

// Execute runs the root command. Cancelling ctx stops long-running commands.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of sentcheck.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "sentcheck %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.sentcheck/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	setDefaults(viper.GetViper(), model.DefaultConfig())

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(home + "/.sentcheck")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match SENTCHECK_*, e.g. SENTCHECK_PARSER_BASE_URL
	viper.SetEnvPrefix("SENTCHECK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setDefaults registers every config key so env variables bind on Unmarshal
func setDefaults(v *viper.Viper, cfg *model.Config) {
	v.SetDefault("parser.backend", cfg.Parser.Backend)
	v.SetDefault("parser.base_url", cfg.Parser.BaseURL)
	v.SetDefault("parser.model", cfg.Parser.Model)
	v.SetDefault("parser.api_key", cfg.Parser.APIKey)
	v.SetDefault("parser.timeout", cfg.Parser.Timeout)
	v.SetDefault("parser.conllu_path", cfg.Parser.ConllUPath)
	v.SetDefault("parser.fetch_on_load", cfg.Parser.FetchOnLoad)
	v.SetDefault("parser.load_retries", cfg.Parser.LoadRetries)
	v.SetDefault("parser.requests_per_second", cfg.Parser.RequestsPerSecond)
	v.SetDefault("parser.burst", cfg.Parser.Burst)
	v.SetDefault("parser.http_proxy", cfg.Parser.HTTPProxy)
	v.SetDefault("parser.https_proxy", cfg.Parser.HTTPSProxy)
	v.SetDefault("parser.no_proxy", cfg.Parser.NoProxy)

	v.SetDefault("policy.ruleset", cfg.Policy.RuleSet)
	v.SetDefault("policy.default", cfg.Policy.Default)

	v.SetDefault("cache.enabled", cfg.Cache.Enabled)
	v.SetDefault("cache.backend", cfg.Cache.Backend)
	v.SetDefault("cache.dir", cfg.Cache.Dir)
	v.SetDefault("cache.ttl", cfg.Cache.TTL)
	v.SetDefault("cache.redis_addr", cfg.Cache.RedisAddr)

	v.SetDefault("records.backend", cfg.Records.Backend)
	v.SetDefault("records.dsn", cfg.Records.DSN)

	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("concurrency.workers", cfg.Concurrency.Workers)

	v.SetDefault("output.format", cfg.Output.Format)
	v.SetDefault("output.verbose", cfg.Output.Verbose)
}

// loadConfig resolves flags > env > file > defaults into a Config
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}
