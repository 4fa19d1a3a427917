package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/psantana5/modelguard/internal/config"
	"github.com/psantana5/modelguard/pkg/logging"
	"github.com/psantana5/modelguard/pkg/retry"
	"github.com/psantana5/modelguard/pkg/store"
)

var (
	cfgFile      string
	outputFormat string
	logLevel     string

	cfg    *config.Config
	cfgErr error
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "modelguard",
	Short: "Run models behind engines that cannot re-enter themselves",
	Long: `modelguard attaches an execution engine to a model and runs it. While an engine
calls the model, the engine attribute is hidden so the call reaches the plain
forward pass, and it is restored afterwards even when the call fails.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgErr != nil {
			return cfgErr
		}
		switch outputFormat {
		case "table", "json", "yaml":
			return nil
		default:
			return fmt.Errorf("unsupported output format %q (use table, json or yaml)", outputFormat)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.modelguard/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json or yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	cfg, cfgErr = config.Load(viper.GetViper(), cfgFile)
	if cfgErr == nil && logLevel != "" {
		cfg.Log.Level = logLevel
	}
}

// newLogger builds the CLI logger. Console output goes to stderr so
// json and yaml output on stdout stays parseable.
func newLogger(c *config.Config, subComponent string) (*logging.Logger, error) {
	level := logging.ParseLevel(c.Log.Level)
	jsonFormat := c.Log.Format == "json"

	if c.Log.Dir == "" {
		l := logging.NewLogger(level, jsonFormat)
		l.SetConsole(os.Stderr)
		return l, nil
	}

	l, err := logging.NewFileLogger(c.Log.Dir, "modelguard", subComponent, level, jsonFormat)
	if err != nil {
		return nil, err
	}
	l.SetConsole(os.Stderr)
	return l, nil
}

// openStore opens the configured run store, creating the sqlite directory if needed
func openStore(c *config.Config) (store.Store, error) {
	if c.Store.Driver == "sqlite" && c.Store.DSN != "" {
		if err := os.MkdirAll(filepath.Dir(c.Store.DSN), 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	st, err := store.NewStore(store.Config{
		Type:  c.Store.Driver,
		DSN:   c.Store.DSN,
		Retry: retry.DefaultConfig(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", c.Store.Driver, err)
	}
	return st, nil
}
