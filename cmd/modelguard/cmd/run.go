package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/psantana5/modelguard/internal/hardware"
	"github.com/psantana5/modelguard/internal/runner"
	"github.com/psantana5/modelguard/pkg/engine"
	"github.com/psantana5/modelguard/pkg/metrics"
	"github.com/psantana5/modelguard/pkg/models"
	"github.com/psantana5/modelguard/pkg/shutdown"
	mgtls "github.com/psantana5/modelguard/pkg/tls"
	"github.com/psantana5/modelguard/pkg/tracing"
)

var (
	runModel          string
	runEngine         string
	runSteps          int
	runCallsPerSecond float64
	runFailEvery      int
	runDumpMetrics    bool
	runServe          bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a model behind the selected engine",
	Long: `Builds the configured model, attaches an engine chosen from the configuration
and the host hardware, and calls the model for the configured number of steps.
The run record is saved to the configured store.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runModel, "model", "", "model to run: linear or identity (default from config)")
	runCmd.Flags().StringVar(&runEngine, "engine", "", "engine: auto, native or cached (default from config)")
	runCmd.Flags().IntVar(&runSteps, "steps", 0, "number of calls (default from config)")
	runCmd.Flags().Float64Var(&runCallsPerSecond, "calls-per-second", 0, "throttle calls, 0 for unthrottled")
	runCmd.Flags().IntVar(&runFailEvery, "fail-every", 0, "make every Nth forward pass fail, 0 for never")
	runCmd.Flags().BoolVar(&runDumpMetrics, "dump-metrics", false, "print Prometheus metrics after the run")
	runCmd.Flags().BoolVar(&runServe, "serve", false, "keep serving /metrics after the run until interrupted")
}

// runSummary is the structured output of the run command
type runSummary struct {
	Run             *models.RunRecord `json:"run" yaml:"run"`
	SelectionReason string            `json:"selection_reason" yaml:"selection_reason"`
}

func applyRunFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("model") {
		cfg.Run.Model = runModel
	}
	if flags.Changed("engine") {
		cfg.Engine.Type = runEngine
	}
	if flags.Changed("steps") {
		cfg.Run.Steps = runSteps
	}
	if flags.Changed("calls-per-second") {
		cfg.Run.CallsPerSecond = runCallsPerSecond
	}
	if flags.Changed("fail-every") {
		cfg.Run.FailEvery = runFailEvery
	}
	if runServe {
		cfg.Metrics.Enabled = true
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	applyRunFlags(cmd)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg, "run")
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	shutdownMgr := shutdown.New(cfg.Shutdown.Timeout, logger)

	tp, err := tracing.InitTracer(tracing.Config{
		ServiceName:  cfg.Tracing.ServiceName,
		OTLPEndpoint: cfg.Tracing.Endpoint,
		Enabled:      cfg.Tracing.Enabled,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	shutdownMgr.Register("tracing", tp.Shutdown)

	st, err := openStore(cfg)
	if err != nil {
		shutdownMgr.Shutdown()
		return err
	}
	shutdownMgr.Register("store", shutdown.CloseResource(st))

	reg := prometheus.NewRegistry()
	guardMetrics := metrics.NewGuardMetrics(reg)
	if cfg.Metrics.Enabled {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		srv := metrics.NewServer(cfg.Metrics.Addr, reg, tp, logger)
		if cfg.Metrics.TLSCert != "" {
			tlsConfig, err := mgtls.LoadServerConfig(cfg.Metrics.TLSCert, cfg.Metrics.TLSKey, cfg.Metrics.TLSClientCA)
			if err != nil {
				shutdownMgr.Shutdown()
				return fmt.Errorf("failed to load metrics TLS config: %w", err)
			}
			srv.EnableTLS(tlsConfig)
		}
		srv.Start()
		shutdownMgr.Register("metrics-server", srv.Shutdown)
	}

	caps, err := hardware.Detect()
	if err != nil {
		logger.Warn("Hardware detection incomplete", map[string]interface{}{"error": err.Error()})
	}

	inst := engine.Instrumentation{Logger: logger, Metrics: guardMetrics, Tracer: tp}
	e, reason := engine.NewSelector(caps, cfg.Engine.CacheSize, inst).SelectEngine(cfg.Engine.Type)

	m, err := runner.BuildModel(cfg.Run.Model, cfg.Run.InputSize, cfg.Run.FailEvery)
	if err != nil {
		shutdownMgr.Shutdown()
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := runner.New(runner.Options{
		Steps:          cfg.Run.Steps,
		InputSize:      cfg.Run.InputSize,
		CallsPerSecond: cfg.Run.CallsPerSecond,
	}, st, inst)
	rec, err := r.Run(ctx, m, e)
	if err != nil {
		shutdownMgr.Shutdown()
		return err
	}

	out := cmd.OutOrStdout()
	structured, err := writeStructured(out, outputFormat, runSummary{Run: rec, SelectionReason: reason})
	if err != nil {
		shutdownMgr.Shutdown()
		return err
	}
	if !structured {
		fmt.Fprintf(out, "Engine: %s (%s)\n\n", e.Name(), reason)
		writeRunsTable(out, []*models.RunRecord{rec})
	}

	if runDumpMetrics {
		if err := metrics.WriteText(out, reg); err != nil {
			shutdownMgr.Shutdown()
			return err
		}
	}

	if cfg.Metrics.Enabled && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "Serving metrics on %s, press Ctrl+C to exit\n", cfg.Metrics.Addr)
		return shutdownMgr.WaitWithContext(ctx)
	}
	return shutdownMgr.Shutdown()
}
