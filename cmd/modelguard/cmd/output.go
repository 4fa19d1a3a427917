package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/psantana5/modelguard/pkg/models"
)

// writeStructured prints v as json or yaml. It reports false for table output.
func writeStructured(w io.Writer, format string, v interface{}) (bool, error) {
	switch format {
	case "json":
		output, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return true, fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(w, string(output))
		return true, nil
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, fmt.Errorf("failed to marshal YAML: %w", err)
		}
		return true, enc.Close()
	default:
		return false, nil
	}
}

func writeRunsTable(w io.Writer, runs []*models.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return
	}

	table := tablewriter.NewWriter(w)
	table.Header("ID", "Model", "Engine", "Status", "Steps", "Failures", "Masked", "Violations", "Duration")
	for _, r := range runs {
		table.Append(
			r.ID,
			r.Model,
			r.Engine,
			string(r.Status),
			strconv.Itoa(r.Steps),
			strconv.Itoa(r.Failures),
			strconv.Itoa(r.Masked),
			strconv.Itoa(r.Violations),
			r.Duration().Round(time.Millisecond).String(),
		)
	}
	table.Render()
	fmt.Fprintf(w, "\nTotal runs: %d\n", len(runs))
}

func writeRunDetail(w io.Writer, r *models.RunRecord) {
	fmt.Fprintf(w, "Run:        %s\n", r.ID)
	fmt.Fprintf(w, "Model:      %s\n", r.Model)
	fmt.Fprintf(w, "Engine:     %s\n", r.Engine)
	fmt.Fprintf(w, "Status:     %s\n", r.Status)
	fmt.Fprintf(w, "Steps:      %d (%d failed)\n", r.Steps, r.Failures)
	fmt.Fprintf(w, "Masked:     %d\n", r.Masked)
	fmt.Fprintf(w, "Violations: %d\n", r.Violations)
	fmt.Fprintf(w, "Checksum:   %.6f\n", r.Checksum)
	fmt.Fprintf(w, "Started:    %s\n", r.StartedAt.Format(time.RFC3339))
	if !r.FinishedAt.IsZero() {
		fmt.Fprintf(w, "Finished:   %s (%s)\n", r.FinishedAt.Format(time.RFC3339), r.Duration().Round(time.Millisecond))
	}
	if r.Error != "" {
		fmt.Fprintf(w, "Last error: %s\n", r.Error)
	}
}
