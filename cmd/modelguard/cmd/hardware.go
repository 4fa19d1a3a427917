package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/psantana5/modelguard/internal/hardware"
	"github.com/psantana5/modelguard/pkg/engine"
	"github.com/psantana5/modelguard/pkg/models"
)

var hardwareCmd = &cobra.Command{
	Use:   "hardware",
	Short: "Show detected hardware and the engine auto selection would pick",
	RunE:  runHardware,
}

func init() {
	rootCmd.AddCommand(hardwareCmd)
}

type hardwareReport struct {
	Capabilities    *models.NodeCapabilities `json:"capabilities" yaml:"capabilities"`
	NodeType        models.NodeType          `json:"node_type" yaml:"node_type"`
	SuggestedEngine string                   `json:"suggested_engine" yaml:"suggested_engine"`
	Reason          string                   `json:"reason" yaml:"reason"`
}

func newHardwareReport(caps *models.NodeCapabilities, cacheSize int) hardwareReport {
	e, reason := engine.NewSelector(caps, cacheSize, engine.Instrumentation{}).SelectEngine(string(engine.EngineTypeAuto))
	return hardwareReport{
		Capabilities:    caps,
		NodeType:        hardware.DetectNodeType(caps.CPUThreads, caps.RAMTotalBytes),
		SuggestedEngine: e.Name(),
		Reason:          reason,
	}
}

func runHardware(cmd *cobra.Command, args []string) error {
	caps, err := hardware.Detect()
	if err != nil {
		return fmt.Errorf("failed to detect hardware: %w", err)
	}
	report := newHardwareReport(caps, cfg.Engine.CacheSize)

	out := cmd.OutOrStdout()
	if structured, err := writeStructured(out, outputFormat, report); structured {
		return err
	}
	writeHardwareTable(out, report)
	return nil
}

func writeHardwareTable(w io.Writer, r hardwareReport) {
	table := tablewriter.NewWriter(w)
	table.Header("Property", "Value")
	table.Append("CPU", r.Capabilities.CPUModel)
	table.Append("Threads", strconv.Itoa(r.Capabilities.CPUThreads))
	table.Append("RAM total", hardware.FormatRAM(r.Capabilities.RAMTotalBytes))
	table.Append("RAM available", hardware.FormatRAM(r.Capabilities.RAMAvailableBytes))
	table.Append("OS/Arch", r.Capabilities.OS+"/"+r.Capabilities.Architecture)
	table.Append("Node type", string(r.NodeType))
	table.Append("Suggested engine", r.SuggestedEngine)
	table.Render()
	fmt.Fprintf(w, "\n%s\n", r.Reason)
}
