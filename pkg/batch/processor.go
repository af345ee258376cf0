// Package batch drives a mining run: it feeds input identifiers one at a
// time, in input order, through a per-identifier pipeline.
//
// The abort token is checked before every identifier and stops the run
// outright. An identifier the remote API does not know is recorded in the
// run's invalid list and gets no table row. Any other pipeline error, or a
// pipeline panic, is recorded as a ProcessingError and the batch moves on. After every
// identifier the display-only rate-limit summary is refreshed.
package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/Sternrassler/forge-miner/pkg/pagination"
	"github.com/Sternrassler/forge-miner/pkg/ratelimit"
	"github.com/Sternrassler/forge-miner/pkg/run"
)

// Config holds the optional collaborators of a Processor.
type Config struct {
	// Summary is queried after every identifier. Nil disables the refresh.
	Summary SummarySource

	// OnSummary receives every refreshed summary.
	OnSummary func(ratelimit.Summary)

	// OnUnit receives every finished unit.
	OnUnit func(UnitResult)

	// Store saves the report once the run ends. Nil disables persistence.
	Store ReportStore

	// StoreTimeout bounds the final Save call.
	StoreTimeout time.Duration
}

// DefaultConfig returns a configuration without collaborators.
func DefaultConfig() Config {
	return Config{StoreTimeout: 10 * time.Second}
}

// Processor runs one pipeline over a list of identifiers.
type Processor struct {
	pipeline Pipeline
	config   Config
}

// NewProcessor creates a processor for pipeline.
func NewProcessor(pipeline Pipeline, config Config) *Processor {
	if config.StoreTimeout <= 0 {
		config.StoreTimeout = 10 * time.Second
	}
	return &Processor{
		pipeline: pipeline,
		config:   config,
	}
}

// Run processes identifiers strictly in order and returns the report. It
// never fails as a whole: cancellation yields a partial report.
func (p *Processor) Run(rc *run.Context, identifiers []string) *Report {
	logger := rc.Logger
	start := time.Now()

	report := &Report{
		RunID:     rc.ID,
		StartedAt: rc.StartedAt,
		Headers:   rc.Table.Headers(),
		Units:     make([]UnitResult, len(identifiers)),
	}
	for i, id := range identifiers {
		report.Units[i] = UnitResult{Identifier: id, Position: i, State: Pending}
	}

	logger.Info().Int("identifiers", len(identifiers)).Msg("Batch run started")

	for i, id := range identifiers {
		if rc.Aborted() {
			report.Cancelled = true
			logger.Info().Int("processed", i).Int("remaining", len(identifiers)-i).Msg("Batch run cancelled")
			break
		}

		u := Unit{Identifier: id, Position: i, Row: rc.Table.Len()}
		report.Units[i].State = Resolving
		unitStart := time.Now()

		err := p.process(rc, u)
		state := p.settle(rc, report, u, err)

		report.Units[i].State = state
		report.Units[i].Duration = time.Since(unitStart)
		if p.config.OnUnit != nil {
			p.config.OnUnit(report.Units[i])
		}

		p.refreshSummary(rc, report)
	}

	if rc.Aborted() {
		report.Cancelled = true
	}

	report.FinishedAt = time.Now()
	report.Rows = rc.Table.Snapshot()
	report.Invalid = rc.Invalid.Entries()

	runDuration.Observe(time.Since(start).Seconds())
	if report.Cancelled {
		runsTotal.WithLabelValues("cancelled").Inc()
	} else {
		runsTotal.WithLabelValues("complete").Inc()
	}

	logger.Info().
		Int("rows", len(report.Rows)).
		Int("invalid", len(report.Invalid)).
		Int("errors", len(report.Errors)).
		Bool("cancelled", report.Cancelled).
		Dur("duration", time.Since(start)).
		Msg("Batch run finished")

	p.save(rc, report)
	return report
}

// process runs the pipeline for one unit. A panic is turned into an error
// so that it stays local to the unit.
func (p *Processor) process(rc *run.Context, u Unit) (err error) {
	defer func() {
		if r := recover(); r != nil {
			rc.Logger.Error().
				Str("identifier", u.Identifier).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("Recovered from pipeline panic")
			err = fmt.Errorf("%w: %v", ErrPipelinePanic, r)
		}
	}()
	return p.pipeline.Process(rc, u)
}

// settle classifies a pipeline outcome and records it.
func (p *Processor) settle(rc *run.Context, report *Report, u Unit, err error) UnitState {
	logger := rc.Logger.With().Str("identifier", u.Identifier).Int("position", u.Position).Logger()

	switch {
	case err == nil:
		identifiersTotal.WithLabelValues("committed").Inc()
		logger.Info().Msg("Identifier committed")
		return Committed

	case errors.Is(err, pagination.ErrNotFound) || errors.Is(err, ErrInvalidIdentifier):
		identifiersTotal.WithLabelValues("rejected").Inc()
		if !pagination.IsRecordedNotFound(err) {
			// A walk records the resource itself.
			rc.Invalid.Add(u.Identifier)
		}
		if rc.Table.Len() != u.Row {
			logger.Warn().Int("rows", rc.Table.Len()-u.Row).Msg("Rejected identifier left rows behind")
		}
		logger.Warn().Err(err).Msg("Identifier rejected by remote API")
		return Rejected

	case rc.Aborted() && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		// Interrupted mid-pipeline; its partial row stays.
		identifiersTotal.WithLabelValues("interrupted").Inc()
		logger.Info().Msg("Identifier interrupted by cancellation")
		return Resolving

	default:
		identifiersTotal.WithLabelValues("failed").Inc()
		report.Errors = append(report.Errors, newProcessingError(u, err))
		logger.Error().Err(err).Msg("Identifier processing failed")
		return Failed
	}
}

func (p *Processor) refreshSummary(rc *run.Context, report *Report) {
	if p.config.Summary == nil {
		return
	}

	s, err := p.config.Summary.Summary(context.WithoutCancel(rc.Abort))
	if err != nil {
		rc.Logger.Warn().Err(err).Msg("Failed to refresh rate limit summary")
		return
	}

	report.Summary = &s
	if p.config.OnSummary != nil {
		p.config.OnSummary(s)
	}
}

func (p *Processor) save(rc *run.Context, report *Report) {
	if p.config.Store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(rc.Abort), p.config.StoreTimeout)
	defer cancel()

	if err := p.config.Store.Save(ctx, report); err != nil {
		rc.Logger.Error().Err(err).Msg("Failed to save run report")
		return
	}
	rc.Logger.Debug().Msg("Run report saved")
}
