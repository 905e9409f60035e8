// stubd CLI - service virtualization stub engine.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/getstubd/stubd/internal/storage"
	"github.com/getstubd/stubd/pkg/config"
	"github.com/getstubd/stubd/pkg/logging"
)

// Build-time variables set via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "stubd",
	Short: "Protocol-agnostic stub matching engine",
	Long: `stubd stores stub definitions for virtualized REST, SOAP, Kafka,
ActiveMQ, IBM MQ, TIBCO and file-transfer endpoints, and resolves
inbound requests to the single best-matching stub by destination,
selector, content pattern and priority.`,
	Version: fmt.Sprintf("%s (%s)", Version, Commit),
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(validateCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("STUBD")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("stubd")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}
	// A missing config file is fine; defaults and env cover it.
	_ = viper.ReadInConfig()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().String("config", "", "config file (default ./stubd.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (text|json)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// loadConfig merges defaults, the config file and environment.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parse configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.Config) *logging.Config {
	return &logging.Config{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: logging.ParseFormat(cfg.Log.Format),
	}
}

// openStore builds the configured stub store.
func openStore(cfg config.Config) (storage.StubStore, error) {
	var (
		store storage.StubStore
		err   error
	)
	switch cfg.Store.Driver {
	case config.DriverMemory, "":
		store = storage.NewMemoryStore()
	case config.DriverSQLite:
		store, err = storage.OpenSQLite(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if cfg.Store.Breaker {
		store = storage.NewBreakerStore(store)
	}
	return store, nil
}
