package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/psantana5/modelguard/pkg/store"
)

var (
	runsLimit      int
	pruneOlderThan time.Duration
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	RunE:  runRunsList,
}

var runsGetCmd = &cobra.Command{
	Use:   "get <run-id>",
	Short: "Show a single run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsGet,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsGetCmd)
	runsCmd.AddCommand(runsPruneCmd)

	runsListCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum number of runs, 0 for all")
	runsPruneCmd.Flags().DurationVar(&pruneOlderThan, "older-than", 30*24*time.Hour, "retention period")
}

func runRunsList(cmd *cobra.Command, args []string) error {
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(runsLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	out := cmd.OutOrStdout()
	if structured, err := writeStructured(out, outputFormat, runs); structured {
		return err
	}
	writeRunsTable(out, runs)
	return nil
}

func runRunsGet(cmd *cobra.Command, args []string) error {
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.GetRun(args[0])
	if errors.Is(err, store.ErrRunNotFound) {
		return fmt.Errorf("run %s not found", args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}

	out := cmd.OutOrStdout()
	if structured, err := writeStructured(out, outputFormat, run); structured {
		return err
	}
	writeRunDetail(out, run)
	return nil
}

var runsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete finished runs older than a retention period",
	RunE:  runRunsPrune,
}

func runRunsPrune(cmd *cobra.Command, args []string) error {
	if pruneOlderThan <= 0 {
		return fmt.Errorf("--older-than must be positive")
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	deleted, err := st.DeleteRunsBefore(time.Now().Add(-pruneOlderThan))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d runs finished more than %s ago\n", deleted, pruneOlderThan)
	return nil
}
