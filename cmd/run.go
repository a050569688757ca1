package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/fkoehler/gearharvest/config"
	"github.com/fkoehler/gearharvest/metrics"
	"github.com/fkoehler/gearharvest/pipeline"
	"github.com/fkoehler/gearharvest/progress"
)

func newRunCmd() *cobra.Command {
	var (
		entryURL          string
		concurrency       int
		delayMs           int
		discoveryTimeout  time.Duration
		extractionTimeout time.Duration
		output            string
		metricsAddr       string
		verbose           bool
	)

	cmd := &cobra.Command{
		Use:   "run <site>",
		Short: "Run one harvest for the given site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := defaultRegistry()
			site, ok := registry.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown site %q (known: %s)", args[0], strings.Join(registry.Names(), ", "))
			}

			v, err := config.NewViper(cfgFile)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("entry-url") {
				v.Set("entry_url", entryURL)
			}
			if flags.Changed("concurrency") {
				v.Set("concurrency", concurrency)
			}
			if flags.Changed("delay") {
				v.Set("discovery.delay", time.Duration(delayMs)*time.Millisecond)
			}
			if flags.Changed("discovery-timeout") {
				v.Set("discovery.timeout", discoveryTimeout)
			}
			if flags.Changed("timeout") {
				v.Set("extraction.timeout", extractionTimeout)
			}
			if flags.Changed("output") {
				v.Set("output_file", output)
			}
			if flags.Changed("metrics-addr") {
				v.Set("metrics_addr", metricsAddr)
			}
			if flags.Changed("verbose") {
				v.Set("verbose", verbose)
			}

			cfg, err := config.Load(v)
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			logger, level := newLogger(cfg.Verbose)
			slog.SetDefault(logger)
			slog.SetLogLoggerLevel(level.Level())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			m := metrics.New()
			var metricsServer *http.Server
			if cfg.MetricsAddr != "" {
				metricsServer = &http.Server{
					Addr:    cfg.MetricsAddr,
					Handler: promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}),
				}
				go func() {
					if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						slog.Error("metrics server failed", slog.Any("error", err))
					}
				}()
				slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
			}

			hub := progress.NewHub(progress.NewLogSink(logger))
			defer hub.Close()

			slog.Info("starting harvest",
				slog.String("site", site.Name()),
				slog.Int("concurrency", cfg.Concurrency),
				slog.String("output", cfg.OutputFile),
			)

			runner := pipeline.New(cfg, site, m, hub)
			summary, err := runner.Run(ctx)

			if metricsServer != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if serr := metricsServer.Shutdown(shutdownCtx); serr != nil {
					slog.Error("metrics server shutdown failed", slog.Any("error", serr))
				}
				cancel()
			}

			if err != nil {
				return err
			}
			printSummary(site.Name(), summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&entryURL, "entry-url", "", "Override the site's entry page URL")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Extraction concurrency cap")
	cmd.Flags().IntVar(&delayMs, "delay", 0, "Delay between discovery requests (milliseconds)")
	cmd.Flags().DurationVar(&discoveryTimeout, "discovery-timeout", 0, "Per-request timeout during discovery")
	cmd.Flags().DurationVar(&extractionTimeout, "timeout", 0, "Per-request timeout during extraction")
	cmd.Flags().StringVar(&output, "output", "", "Snapshot output path")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Prometheus metrics listen address (e.g. :9090)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	return cmd
}

func printSummary(site string, s *pipeline.Summary) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Printf("Harvest complete: %s\n", site)
	fmt.Printf("  Categories:    %d\n", s.Categories)
	fmt.Printf("  References:    %d\n", s.References)
	fmt.Printf("  Records:       %d\n", s.Records)
	fmt.Printf("  Errors:        %d\n", s.Errors)
	if len(s.ErrorsByKind) > 0 {
		fmt.Printf("  Error kinds:   %v\n", s.ErrorsByKind)
	}
	fmt.Printf("  Duration:      %v\n", s.Duration.Round(time.Millisecond))
	fmt.Printf("  Artifact:      %s\n", s.ArtifactPath)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
