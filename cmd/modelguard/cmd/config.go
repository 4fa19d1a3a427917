package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/psantana5/modelguard/pkg/logging"
)

var logrotateDir string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Prints the configuration after defaults, the config file and MODELGUARD_*
environment variables have been applied. Table output is printed as yaml.`,
	RunE: runConfigShow,
}

var configLogrotateCmd = &cobra.Command{
	Use:   "logrotate",
	Short: "Print a logrotate configuration for the modelguard log directory",
	RunE:  runConfigLogrotate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configLogrotateCmd)

	configLogrotateCmd.Flags().StringVar(&logrotateDir, "dir", "", "log base directory (default log.dir or "+logging.DefaultLogDir+")")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if used := viper.ConfigFileUsed(); used != "" && outputFormat == "table" {
		fmt.Fprintf(out, "# loaded from %s\n", used)
	}

	format := outputFormat
	if format == "table" {
		format = "yaml"
	}
	_, err := writeStructured(out, format, cfg)
	return err
}

func runConfigLogrotate(cmd *cobra.Command, args []string) error {
	dir := logrotateDir
	if dir == "" {
		dir = cfg.Log.Dir
	}
	fmt.Fprint(cmd.OutOrStdout(), logging.GenerateLogrotateConfig(dir, "modelguard"))
	return nil
}
