/*
Package main is the entry point for the iocx command-line tool.

iocx scans a file or a directory tree and prints the URLs, registrable domains and
IPv4 addresses found in each file. Domains are validated against the Public Suffix
List and filtered through a noise denylist that drops code-like tokens such as
read.py.

Results are printed per file in scan order. Per-file failures are reported inline
and do not change the exit status; usage errors, an unusable target, a bad config
or suffix dataset, and interruption (SIGINT, SIGTERM) exit with status 1.
*/
package main

/*
iocx — fast tool in Go for extracting network indicators from text artifacts
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/x-stp/iocx/internal/config"
	"github.com/x-stp/iocx/internal/core"
	"github.com/x-stp/iocx/internal/ioc"
	iox "github.com/x-stp/iocx/internal/io"
	"github.com/x-stp/iocx/internal/metrics"
	"github.com/x-stp/iocx/internal/report"
	"github.com/x-stp/iocx/internal/scanner"
	"github.com/x-stp/iocx/internal/suffix"
)

// options holds the parsed command-line flags.
type options struct {
	file    string
	dir     string
	urls    bool
	domains bool
	ips     bool

	configPath     string
	suffixList     string
	includePrivate bool
	workers        int
	rateLimit      float64
	metricsAddr    string
	showStats      bool
	debug          bool
	verbose        bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "iocx (--file PATH | --dir PATH) [--urls] [--domains] [--ips]",
		Short: "iocx - extract URLs, domains and IPv4 addresses from text artifacts",
		Long: `Scans a single file or every regular file below a directory and prints the
network indicators found in each one. Domains are reduced to their registrable
form using the Public Suffix List.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return run(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.file, "file", "", "Path to a single file to scan")
	f.StringVar(&opts.dir, "dir", "", "Path to a directory to scan recursively")
	f.BoolVar(&opts.urls, "urls", false, "Extract URLs")
	f.BoolVar(&opts.domains, "domains", false, "Extract registrable domains")
	f.BoolVar(&opts.ips, "ips", false, "Extract IPv4 addresses")

	f.StringVar(&opts.configPath, "config", "", "YAML config file (default $"+config.EnvConfigPath+")")
	f.StringVar(&opts.suffixList, "suffix-list", "", "Public Suffix List file to use instead of the bundled copy")
	f.BoolVar(&opts.includePrivate, "include-private", false, "Also apply rules from the PRIVATE section of the suffix list")
	f.IntVar(&opts.workers, "workers", 0, "Number of worker goroutines (0 for one per CPU)")
	f.Float64Var(&opts.rateLimit, "rate-limit", 0, "Maximum files started per second (0 for unlimited)")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on host:port")
	f.BoolVar(&opts.showStats, "stats", false, "Print a summary to stderr when done")
	f.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	f.BoolVar(&opts.verbose, "verbose", false, "Enable informational logging")

	cmd.MarkFlagsMutuallyExclusive("file", "dir")
	cmd.MarkFlagsOneRequired("file", "dir")
	cmd.MarkFlagsOneRequired("urls", "domains", "ips")
	return cmd
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalChan
		fmt.Fprintln(os.Stderr, "Interrupt received, stopping...")
		cancel()
	}()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies explicitly set flags on top.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(config.ConfigPath(opts.configPath))
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("suffix-list") {
		cfg.SuffixList = opts.suffixList
	}
	if flags.Changed("include-private") {
		cfg.IncludePrivate = opts.includePrivate
	}
	if flags.Changed("workers") {
		cfg.Workers = opts.workers
	}
	if flags.Changed("rate-limit") {
		cfg.RateLimit = opts.rateLimit
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = opts.metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(w io.Writer, cfg *config.Config, opts *options) zerolog.Logger {
	level := cfg.Level()
	if opts.verbose && level > zerolog.InfoLevel {
		level = zerolog.InfoLevel
	}
	if opts.debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Str("component", "iocx").Logger()
}

func loadSuffixTable(cfg *config.Config) (*suffix.Table, error) {
	opts := suffix.Options{IncludePrivate: cfg.IncludePrivate}
	if cfg.SuffixList != "" {
		return suffix.LoadFile(cfg.SuffixList, opts)
	}
	return suffix.LoadEmbedded(opts)
}

func requestedKinds(opts *options) []ioc.Kind {
	var kinds []ioc.Kind
	if opts.urls {
		kinds = append(kinds, ioc.URL)
	}
	if opts.domains {
		kinds = append(kinds, ioc.Domain)
	}
	if opts.ips {
		kinds = append(kinds, ioc.IP)
	}
	return kinds
}

// scanRoot resolves the target flag and checks it matches the path type.
// A root that cannot be stat'ed is left to scanner.Targets, which reports it
// as a per-file error.
func scanRoot(opts *options) (string, error) {
	root, wantDir := opts.file, false
	if opts.dir != "" {
		root, wantDir = opts.dir, true
	}
	info, err := os.Stat(root)
	if err != nil {
		return root, nil
	}
	if wantDir && !info.IsDir() {
		return "", fmt.Errorf("--dir %s: not a directory", root)
	}
	if !wantDir && info.IsDir() {
		return "", fmt.Errorf("--file %s: is a directory, use --dir", root)
	}
	return root, nil
}

func run(cmd *cobra.Command, opts *options) error {
	ctx := cmd.Context()
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	logger := newLogger(stderr, cfg, opts)

	// Everything fatal happens before the first byte of the report.
	table, err := loadSuffixTable(cfg)
	if err != nil {
		return fmt.Errorf("failed to load suffix list: %w", err)
	}
	logger.Debug().Int("rules", table.Len()).Bool("private", table.IncludesPrivate()).Msg("Suffix table loaded")

	root, err := scanRoot(opts)
	if err != nil {
		return err
	}
	targets, err := scanner.Targets(root, logger.With().Str("component", "scanner").Logger())
	if err != nil {
		return err
	}
	logger.Info().Str("root", root).Int("files", len(targets)).Msg("Scan plan ready")

	kinds := requestedKinds(opts)
	extractor, err := core.NewExtractor(core.ExtractorConfig{
		Kinds:    kinds,
		Resolver: suffix.NewResolver(table, cfg.NoiseDenylist),
		Scheduler: core.SchedulerConfig{
			Workers:    cfg.Workers,
			QueueSize:  cfg.QueueSize,
			RateLimit:  cfg.RateLimit,
			PinWorkers: cfg.PinWorkers,
		},
		DecodeTolerance: cfg.DecodeTolerance,
	}, logger)
	if err != nil {
		return err
	}

	if err := metrics.StartMetricsServer(cfg.MetricsAddr, logger); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metrics.ShutdownMetricsServer(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("Metrics server shutdown failed")
		}
	}()

	out := iox.NewSyncWriter(stdout, 0)
	reporter := report.New(out, kinds)
	runErr := extractor.Run(ctx, targets, reporter)
	if err := out.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to write report: %w", err)
	}

	if opts.showStats {
		displayFinalStats(stderr, extractor.GetStats(), reporter, out.Metrics())
	}
	if errors.Is(runErr, context.Canceled) {
		return errors.New("interrupted")
	}
	return runErr
}

// displayFinalStats shows the summary statistics at the end.
func displayFinalStats(w io.Writer, stats *core.ExtractorStats, reporter *report.Reporter, written *iox.WriterMetrics) {
	elapsed := time.Since(stats.StartTime)
	processed := stats.ProcessedFiles.Load()
	rate := 0.0
	if elapsed.Seconds() > 0 {
		rate = float64(processed) / elapsed.Seconds()
	}

	fmt.Fprintf(w, "\n--- Final Extraction Statistics ---\n")
	fmt.Fprintf(w, " Processing Time: %v\n", elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "     Total Files: %d\n", stats.TotalFiles.Load())
	fmt.Fprintf(w, "       Processed: %d\n", processed)
	fmt.Fprintf(w, "          Failed: %d\n", stats.FailedFiles.Load())
	fmt.Fprintf(w, "        Reported: %d (error entries: %d)\n", reporter.Files(), reporter.Errors())
	fmt.Fprintf(w, "            URLs: %d\n", stats.URLsFound.Load())
	fmt.Fprintf(w, "         Domains: %d (rejected candidates: %d)\n", stats.DomainsFound.Load(), stats.CandidatesRejected.Load())
	fmt.Fprintf(w, "             IPs: %d\n", stats.IPsFound.Load())
	fmt.Fprintf(w, "      Bytes Read: %.2f MB\n", float64(stats.BytesRead.Load())/(1024*1024))
	fmt.Fprintf(w, "  Report Written: %.2f KB in %d blocks, %d flushes\n",
		float64(written.BytesWritten.Load())/1024, written.BlockCount.Load(), written.FlushCount.Load())
	fmt.Fprintf(w, "    Overall Rate: %.0f files/sec\n", rate)
	fmt.Fprintf(w, "-----------------------------------\n")
}
