package core

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
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/x-stp/iocx/internal/ioc"
	"github.com/x-stp/iocx/internal/metrics"
	"github.com/x-stp/iocx/internal/scanner"
	"github.com/x-stp/iocx/internal/suffix"
)

// Extractor turns scan targets into per-file indicator results.
// Concurrency: ExtractText and ScanFile are safe for concurrent use; Run drives
// them through a Scheduler and hands results to the sink in scan order.
type Extractor struct {
	kinds     []ioc.Kind
	matchers  []ioc.Matcher
	resolver  *suffix.Resolver
	schedCfg  SchedulerConfig
	tolerance float64
	stats     *ExtractorStats
	logger    zerolog.Logger
	metrics   *metrics.Metrics
}

// ExtractorConfig holds operational parameters.
type ExtractorConfig struct {
	Kinds           []ioc.Kind
	Resolver        *suffix.Resolver // required when Kinds contains ioc.Domain
	Scheduler       SchedulerConfig
	DecodeTolerance float64 // share of invalid UTF-8 accepted per file, 0..1
}

// ExtractorStats uses atomic counters for safe concurrent updates from workers.
type ExtractorStats struct {
	TotalFiles         atomic.Int64
	ProcessedFiles     atomic.Int64
	FailedFiles        atomic.Int64
	BytesRead          atomic.Int64
	URLsFound          atomic.Int64
	DomainsFound       atomic.Int64
	IPsFound           atomic.Int64
	CandidatesRejected atomic.Int64
	SubmitRetries      atomic.Int64
	StartTime          time.Time
}

// NewExtractor validates cfg and builds the matchers for the requested kinds.
func NewExtractor(cfg ExtractorConfig, logger zerolog.Logger) (*Extractor, error) {
	kinds := ioc.Canonical(cfg.Kinds)
	if len(kinds) == 0 {
		return nil, errors.New("no indicator kinds requested")
	}
	if cfg.DecodeTolerance < 0 || cfg.DecodeTolerance > 1 {
		return nil, fmt.Errorf("decode tolerance %v outside [0,1]", cfg.DecodeTolerance)
	}

	matchers := make([]ioc.Matcher, 0, len(kinds))
	for _, k := range kinds {
		if k == ioc.Domain && cfg.Resolver == nil {
			return nil, errors.New("domain extraction requires a suffix resolver")
		}
		matchers = append(matchers, ioc.MatcherFor(k))
	}

	return &Extractor{
		kinds:     kinds,
		matchers:  matchers,
		resolver:  cfg.Resolver,
		schedCfg:  cfg.Scheduler,
		tolerance: cfg.DecodeTolerance,
		stats:     &ExtractorStats{StartTime: time.Now()},
		logger:    logger.With().Str("component", "extractor").Logger(),
		metrics:   metrics.GetMetrics(),
	}, nil
}

// Kinds returns the requested kinds in report order.
func (e *Extractor) Kinds() []ioc.Kind { return e.kinds }

// GetStats returns the live counters.
func (e *Extractor) GetStats() *ExtractorStats { return e.stats }

// ExtractText runs every requested matcher over text. Host candidates are kept
// only when the resolver accepts them. Each kind is deduplicated and sorted; every
// requested kind is present in the result, possibly empty.
func (e *Extractor) ExtractText(text string) map[ioc.Kind][]string {
	out := make(map[ioc.Kind][]string, len(e.kinds))
	for i, k := range e.kinds {
		set := make(ioc.Set)
		for _, v := range e.matchers[i].Match(text) {
			if k != ioc.Domain {
				set.Add(v)
				continue
			}
			parsed, reason := e.resolver.Explain(v)
			if reason != suffix.Accepted {
				e.stats.CandidatesRejected.Add(1)
				e.metrics.CandidatesRejected.WithLabelValues(reason.String()).Inc()
				e.logger.Trace().Str("candidate", v).Stringer("reason", reason).Msg("Host candidate rejected")
				continue
			}
			set.Add(parsed.String())
		}
		out[k] = set.Sorted()
	}
	return out
}

// ScanFile reads and extracts a single file. Failures are returned as data.
func (e *Extractor) ScanFile(path string) ExtractionResult {
	done := metrics.MeasureDuration(e.metrics.StageDuration, prometheus.Labels{"stage": "read"})
	text, err := scanner.ReadText(path, e.tolerance)
	done()
	if err != nil {
		return e.failed(path, scanner.AsFileError(path, err))
	}
	e.stats.BytesRead.Add(int64(len(text)))
	e.metrics.BytesRead.Add(float64(len(text)))

	done = metrics.MeasureDuration(e.metrics.StageDuration, prometheus.Labels{"stage": "extract"})
	found := e.ExtractText(text)
	done()

	for k, vals := range found {
		n := int64(len(vals))
		switch k {
		case ioc.URL:
			e.stats.URLsFound.Add(n)
		case ioc.Domain:
			e.stats.DomainsFound.Add(n)
		case ioc.IP:
			e.stats.IPsFound.Add(n)
		}
		e.metrics.IndicatorsExtracted.WithLabelValues(string(k)).Add(float64(n))
	}
	e.stats.ProcessedFiles.Add(1)
	e.metrics.FilesScanned.WithLabelValues("ok").Inc()
	return ExtractionResult{Path: path, Indicators: found}
}

func (e *Extractor) failed(path string, fe *scanner.FileError) ExtractionResult {
	e.stats.FailedFiles.Add(1)
	e.metrics.FilesScanned.WithLabelValues("error").Inc()
	e.metrics.FileErrors.WithLabelValues(fe.Kind.String()).Inc()
	e.logger.Debug().Err(fe).Str("path", path).Stringer("kind", fe.Kind).Msg("File failed")
	return ExtractionResult{Path: path, Err: fe}
}

// Run scans every target and hands one result per target to sink, in target order.
// Per-file failures are delivered as results. Run returns an error only when ctx is
// cancelled, the scheduler cannot be started, or the sink fails; targets not yet
// emitted at that point are skipped.
func (e *Extractor) Run(ctx context.Context, targets []scanner.Target, sink Sink) error {
	if len(targets) == 0 {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sched, err := NewScheduler(runCtx, e.schedCfg, e.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize scheduler: %w", err)
	}
	defer sched.Shutdown()

	e.stats.TotalFiles.Add(int64(len(targets)))
	e.logger.Info().Int("files", len(targets)).Int("workers", sched.NumWorkers()).Msg("Starting extraction")

	// One buffered slot per target. Exactly one result is sent to each.
	slots := make([]chan ExtractionResult, len(targets))
	for i := range slots {
		slots[i] = make(chan ExtractionResult, 1)
	}
	// window bounds results held for an earlier, slower file.
	window := make(chan struct{}, sched.NumWorkers()*InflightPerWorker)

	submitErr := make(chan error, 1)
	go func() {
		err := e.submitAll(runCtx, sched, targets, slots, window)
		if err != nil {
			cancel()
		}
		submitErr <- err
	}()

	for i := range targets {
		var res ExtractionResult
		select {
		case res = <-slots[i]:
		case <-runCtx.Done():
			if err := ctx.Err(); err != nil {
				return err
			}
			return <-submitErr
		}
		<-window
		if err := sink.Write(res); err != nil {
			return fmt.Errorf("write result for %s: %w", res.Path, err)
		}
	}

	if err := <-submitErr; err != nil {
		return err
	}
	sched.Wait()
	e.logger.Info().
		Int64("processed", e.stats.ProcessedFiles.Load()).
		Int64("failed", e.stats.FailedFiles.Load()).
		Dur("elapsed", time.Since(e.stats.StartTime)).
		Msg("Extraction complete")
	return nil
}

// submitAll feeds targets to the scheduler in order, never running more than
// cap(window) results ahead of the emitter.
func (e *Extractor) submitAll(ctx context.Context, sched *Scheduler, targets []scanner.Target,
	slots []chan ExtractionResult, window chan struct{}) error {
	for i, tg := range targets {
		select {
		case window <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
		if tg.Err != nil {
			slots[i] <- e.failed(tg.Path, tg.Err)
			continue
		}
		if err := sched.Pace(ctx); err != nil {
			return err
		}
		if err := e.submit(ctx, sched, i, tg.Path, slots[i]); err != nil {
			return err
		}
	}
	return nil
}

// submit hands one file to the scheduler, backing off while its worker queue is
// full. When the queue stays full the file is scanned on the calling goroutine.
func (e *Extractor) submit(ctx context.Context, sched *Scheduler, index int, path string,
	slot chan<- ExtractionResult) error {
	callback := func(item *WorkItem) error {
		slot <- e.ScanFile(path)
		return nil
	}
	complete := func(item *WorkItem, err error) {
		if err != nil {
			slot <- e.failed(path, scanner.AsFileError(path, err))
		}
	}

	delay := RetryBaseDelay
	for attempt := 0; attempt < MaxSubmitRetries; attempt++ {
		err := sched.SubmitWork(ctx, index, path, callback, complete)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("submit %s: %w", path, err)
		}
		e.stats.SubmitRetries.Add(1)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = min(time.Duration(float64(delay)*RetryBackoffMultiplier), RetryMaxDelay)
	}

	e.logger.Debug().Str("path", path).Int("retries", MaxSubmitRetries).Msg("Queue still full, scanning inline")
	slot <- e.ScanFile(path)
	return nil
}
