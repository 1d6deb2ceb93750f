package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opscart/pod-sizing-optimizer/pkg/analyzer"
	"github.com/opscart/pod-sizing-optimizer/pkg/config"
	"github.com/opscart/pod-sizing-optimizer/pkg/datasource"
	"github.com/opscart/pod-sizing-optimizer/pkg/logging"
	"github.com/opscart/pod-sizing-optimizer/pkg/recommender"
	"github.com/opscart/pod-sizing-optimizer/pkg/reporter"
	"github.com/opscart/pod-sizing-optimizer/pkg/telemetry"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

type options struct {
	configPath         string
	window             string
	outputPath         string
	filter             string
	format             string
	discoverNamespaces bool
	verbose            bool
	metricsTextfile    string
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "pod-opt",
		Short: "Dynatrace-backed CPU, memory, and pod sizing optimizer",
		Long: `Query workload CPU, memory and pod count metrics from the Dynatrace API,
compute percentile based request and replica recommendations, and write a report.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, stdout, stderr)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "config.yaml", "Config file path (YAML or JSON)")
	flags.StringVarP(&opts.window, "window", "w", "", "Override time window, e.g. 7d or 24h")
	flags.StringVarP(&opts.outputPath, "output", "o", "", "Override output report path")
	flags.StringVar(&opts.filter, "filter", string(reporter.FilterAll), "Report default filter: all, low-utilization")
	flags.StringVar(&opts.format, "format", "", "Report format: html, csv, json (default from output extension)")
	flags.BoolVar(&opts.discoverNamespaces, "discover-namespaces", false, "List namespaces visible in Dynatrace and exit")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	flags.StringVar(&opts.metricsTextfile, "metrics-textfile", "", "Write client metrics in Prometheus text format to this file")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(stdout, "pod-opt %s\n", version)
		},
	})

	return rootCmd
}

func run(ctx context.Context, opts *options, stdout, stderr io.Writer) (err error) {
	// Empty level defers to LOG_LEVEL
	level := ""
	if opts.verbose {
		level = "debug"
	}
	logger := logging.New(logging.Options{Level: level, Writer: stderr})

	filter, err := reporter.ParseFilter(opts.filter)
	if err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath, config.Overrides{Window: opts.window, OutputPath: opts.outputPath})
	if err != nil {
		return err
	}

	format, err := reporter.ParseFormat(opts.format, cfg.OutputPath)
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := telemetry.New()
	if opts.metricsTextfile != "" {
		defer func() {
			if werr := metrics.WriteTextfile(opts.metricsTextfile); werr != nil && err == nil {
				err = werr
			}
		}()
	}

	src, err := datasource.NewDynatraceSource(datasource.Config{
		Endpoint: cfg.Endpoint,
		APIToken: string(cfg.APIToken),
		Timeout:  time.Duration(cfg.Timeout),
	}, logger, metrics)
	if err != nil {
		return err
	}

	if opts.discoverNamespaces {
		return printNamespaces(ctx, src, cfg.TimeWindow, stdout)
	}

	start := time.Now()
	logger.Info("starting metric acquisition",
		"endpoint", cfg.Endpoint,
		"window", cfg.TimeWindow,
		"namespaces", cfg.Namespaces,
		"tags", cfg.Tags,
	)

	acquirer := datasource.NewAcquirer(src, datasource.DefaultRegistry().WithOverrides(cfg.Selectors), datasource.AcquireOptions{
		Window:              cfg.TimeWindow,
		Namespaces:          cfg.Namespaces,
		Tags:                cfg.Tags,
		ScopeByNamespace:    cfg.ScopeByNamespace,
		SkipEmptyNamespaces: cfg.EmptyNamespacePolicy == config.EmptyNamespaceSkip,
	}, logger, metrics)

	set, err := acquirer.AcquireAll(ctx)
	if err != nil {
		return err
	}

	workloads := analyzer.MergeMetrics(set, logger)
	recs := recommender.New(cfg, logger).Recommend(workloads)
	summaries := recommender.SummarizeByNamespace(recs)

	rep := reporter.New(format, filter)
	report := rep.Generate(cfg, recs, summaries)
	path, err := rep.WriteFile(report, cfg.OutputPath)
	if err != nil {
		return err
	}

	logger.Info("report written",
		"run_id", report.RunID,
		"format", format,
		"workloads", len(recs),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	fmt.Fprintf(stdout, "Recommendations generated: %d\n", len(recs))
	fmt.Fprintf(stdout, "Report written to: %s\n", path)
	return nil
}

func printNamespaces(ctx context.Context, src *datasource.DynatraceSource, window string, stdout io.Writer) error {
	namespaces, err := src.DiscoverNamespaces(ctx, window)
	if err != nil {
		return fmt.Errorf("namespace discovery failed: %w", err)
	}
	if len(namespaces) == 0 {
		fmt.Fprintln(stdout, "No namespaces discovered.")
		return nil
	}
	fmt.Fprintln(stdout, "Discovered namespaces:")
	for _, ns := range namespaces {
		fmt.Fprintf(stdout, "- %s\n", ns)
	}
	return nil
}
