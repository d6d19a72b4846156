package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dd0wney/cluso-socialgraph/pkg/config"
	"github.com/dd0wney/cluso-socialgraph/pkg/logging"
)

var rootCmd = &cobra.Command{
	Use:           "socialgraph",
	Short:         "Centrality and community analysis of a Twitter follower graph",
	Long:          "socialgraph loads an edge list and node table, ranks users by degree, betweenness, eigenvector and bridging centrality, detects communities and reports or serves the results.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default .socialgraph.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")
}

func initConfig() {
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".socialgraph")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
	}

	config.BindEnv(viper.GetViper())

	// Running without a config file is fine; defaults apply.
	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			fmt.Fprintln(os.Stderr, "Warning: failed to read config file:", err)
		}
	}
}

// bindFlags maps command flags onto config keys. Binding happens when the
// command runs so commands sharing a key do not override each other.
func bindFlags(bindings map[string]string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		for key, name := range bindings {
			if err := viper.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
				return fmt.Errorf("bind --%s: %w", name, err)
			}
		}
		return nil
	}
}

// loadConfig loads and validates the configuration, applying --log-level
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	if f := cmd.Flag("log-level"); f != nil && f.Changed {
		viper.Set("log_level", f.Value.String())
	}

	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newLogger writes JSON logs to stderr so reports can go to stdout
func newLogger(cfg config.Config) logging.Logger {
	logger := logging.NewJSONLogger(os.Stderr, logging.ParseLevel(cfg.LogLevel))
	logging.SetDefaultLogger(logger)
	return logger
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// flagChanged reports whether any of the named flags was set explicitly
func flagChanged(flags *pflag.FlagSet, names ...string) bool {
	for _, name := range names {
		if f := flags.Lookup(name); f != nil && f.Changed {
			return true
		}
	}
	return false
}
