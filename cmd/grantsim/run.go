package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"

	"github.com/go-drift/grant/cmd/grantsim/internal/config"
	"github.com/go-drift/grant/cmd/grantsim/internal/sim"
	"github.com/go-drift/grant/pkg/diagnostics"
)

var (
	runMetrics bool
	runVerbose bool
)

var runCmd = &cobra.Command{
	Use:   "run [scenario.yaml]",
	Short: "Run a scenario",
	Long: `Run a scenario file and print the dialog state after each step.
Without an argument, grantsim.yaml in the current directory is used.

Examples:
  grantsim run camera.yaml
  GRANT_STORE=sqlite GRANT_STORE_PATH=/tmp/grant.db grantsim run onboarding.yaml
  grantsim run --metrics --verbose`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScenario,
}

func init() {
	runCmd.Flags().BoolVar(&runMetrics, "metrics", false, "print collected metrics after the run")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "include stack traces in logged errors")
}

func runScenario(cmd *cobra.Command, args []string) error {
	path := config.DefaultFile
	if len(args) == 1 {
		path = args[0]
	}
	resolved, err := config.Resolve(path, os.LookupEnv)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: resolved.LogLevel}))
	metrics := diagnostics.NewMetricsSink()
	sink := diagnostics.NewMulti(diagnostics.NewLogSink(logger, runVerbose), metrics)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	st, closer, err := sim.OpenStore(ctx, resolved.Store, sink)
	if err != nil {
		return fmt.Errorf("opening %s store: %w", resolved.Store.Backend, err)
	}
	defer closer.Close()

	name := resolved.Scenario.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	logger.Info("running scenario", "name", name, "store", resolved.Store.Backend, "steps", len(resolved.Scenario.Steps))

	out := cmd.OutOrStdout()
	if _, err := sim.Run(ctx, resolved.Scenario, sim.Options{Store: st, Sink: sink, Out: out}); err != nil {
		return err
	}
	if runMetrics {
		return writeMetrics(out, metrics.Registry)
	}
	return nil
}

// writeMetrics prints non-zero counters and histogram counts, one sample
// per line.
func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var value float64
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				value = m.GetCounter().GetValue()
			case dto.MetricType_HISTOGRAM:
				value = float64(m.GetHistogram().GetSampleCount())
			default:
				continue
			}
			if value == 0 {
				continue
			}
			lines = append(lines, fmt.Sprintf("%s%s %g", mf.GetName(), formatLabels(m.GetLabel()), value))
		}
	}
	sort.Strings(lines)
	fmt.Fprintln(w, "metrics:")
	for _, l := range lines {
		fmt.Fprintln(w, "  "+l)
	}
	return nil
}

func formatLabels(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return ""
	}
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = fmt.Sprintf("%s=%q", p.GetName(), p.GetValue())
	}
	return "{" + strings.Join(parts, ",") + "}"
}
